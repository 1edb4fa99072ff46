package api

import (
	"encoding/json"
	"net/http"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/fault"
)

// ExecuteRequest is the JSON body for POST /v1/agent/actions.
type ExecuteRequest struct {
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ErrorResp is the body for requests rejected before dispatch.
type ErrorResp struct {
	Detail string `json:"detail"`
}

// statusFor maps fault codes to HTTP statuses. The envelope shape is the
// same either way; the status is a transport convenience.
var statusFor = map[fault.Code]int{
	fault.CodeRateLimited:      http.StatusTooManyRequests,
	fault.CodePermissionDenied: http.StatusForbidden,
	fault.CodeUnknownTool:      http.StatusForbidden,
	fault.CodeInvalidArgument:  http.StatusUnprocessableEntity,
	fault.CodeNotFound:         http.StatusNotFound,
	fault.CodeConflict:         http.StatusConflict,
	fault.CodeUpstream:         http.StatusBadGateway,
}

// handleExecute implements POST /v1/agent/actions.
// Auth middleware has already resolved the caller context.
func (d *Dependencies) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "Invalid JSON body"})
		return
	}
	if req.ToolName == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResp{Detail: "tool_name is required"})
		return
	}

	caller := callerFromContext(r.Context())
	if caller == nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResp{Detail: "missing caller context"})
		return
	}

	res := d.Dispatcher.Execute(r.Context(), req.ToolName, req.Arguments, caller)

	status := http.StatusOK
	if !res.Success {
		if s, ok := statusFor[res.Code]; ok {
			status = s
		} else {
			status = http.StatusBadGateway
		}
	}
	writeJSON(w, status, res)
}
