// Package dispatch orchestrates one tool invocation: rate limit, permission
// check, caller-scoped data access, execution, and an unconditional audit
// record, all normalized into a single envelope.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/audit"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/fault"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/policy"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/ratelimit"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/store"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/tools"
)

// StoreFactory builds the caller-scoped data-access handle for one dispatch.
type StoreFactory func(caller *identity.CallerContext) tools.Store

// Result is the normalized envelope every dispatch produces.
type Result struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     string     `json:"error,omitempty"`
	Code      fault.Code `json:"code,omitempty"`
	RequestID string     `json:"request_id"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

// Dispatcher executes catalog tools on behalf of authenticated callers.
type Dispatcher struct {
	registry *tools.Registry
	limiter  *ratelimit.Limiter
	tiers    ratelimit.Tiers
	stores   StoreFactory
	writer   audit.Writer
	logger   *zap.Logger
}

// NewDispatcher wires the pipeline and verifies that the catalog and the
// permission table cover exactly the same tool names. A tool registered on
// one side only is a configuration gap that must fail startup, not silently
// dispatch or deny.
func NewDispatcher(
	registry *tools.Registry,
	limiter *ratelimit.Limiter,
	tiers ratelimit.Tiers,
	stores StoreFactory,
	writer audit.Writer,
	logger *zap.Logger,
) (*Dispatcher, error) {
	for _, name := range registry.Names() {
		if !policy.Registered(name) {
			return nil, fmt.Errorf("dispatch: tool %q has no permission set entry", name)
		}
	}
	for _, name := range policy.Names() {
		if _, ok := registry.Get(name); !ok {
			return nil, fmt.Errorf("dispatch: permission table entry %q has no catalog handler", name)
		}
	}

	return &Dispatcher{
		registry: registry,
		limiter:  limiter,
		tiers:    tiers,
		stores:   stores,
		writer:   writer,
		logger:   logger,
	}, nil
}

// Execute runs one tool call through the full pipeline. It never returns an
// error: every failure is folded into the envelope, and exactly one audit
// record is emitted regardless of outcome.
func (d *Dispatcher) Execute(ctx context.Context, toolName string, args json.RawMessage, caller *identity.CallerContext) *Result {
	start := time.Now()
	requestID := uuid.New().String()

	res := d.execute(ctx, toolName, args, caller)
	res.RequestID = requestID

	rec := &audit.Record{
		RequestID:   requestID,
		Timestamp:   time.Now(),
		ToolName:    toolName,
		CallerID:    caller.CallerID,
		TenantID:    caller.TenantID,
		LocationID:  caller.ActiveLocationID,
		AccountKind: string(caller.AccountKind),
		Success:     res.Success,
		ErrorCode:   string(res.Code),
		ErrorDetail: res.Error,
		DurationMs:  float32(float64(time.Since(start)) / float64(time.Millisecond)),
	}
	d.writer.Write(rec)

	return res
}

func (d *Dispatcher) execute(ctx context.Context, toolName string, args json.RawMessage, caller *identity.CallerContext) *Result {
	// 1. Rate limit. Open navigation tools bypass and never consume budget.
	if !policy.Bypass(toolName) {
		cfg := d.tiers.ForKind(string(caller.AccountKind))
		check := d.limiter.CheckAndConsume(caller.ThrottleKey(), cfg)
		if !check.Allowed {
			return failure(fault.RateLimited(check.ResetAt))
		}
	}

	// 2. Permission check, deny-by-default.
	if decision := policy.Decide(toolName, caller); !decision.Allowed {
		if !policy.Registered(toolName) {
			// Catalog/permission-table mismatch is a configuration gap,
			// observable but never open.
			d.logger.Warn("unregistered tool requested",
				zap.String("tool_name", toolName),
				zap.String("caller_id", caller.CallerID),
			)
			return failure(fault.New(fault.CodeUnknownTool, "%s", decision.Reason))
		}
		return failure(fault.New(fault.CodePermissionDenied, "%s", decision.Reason))
	}

	handler, ok := d.registry.Get(toolName)
	if !ok {
		return failure(fault.New(fault.CodeUnknownTool, "tool %q is not registered for agent use", toolName))
	}

	// 3. Typed-argument contract.
	if err := tools.ValidateArgs(handler, args); err != nil {
		return failure(fault.From(err))
	}

	// 4. Invoke with a caller-scoped store handle. A tool implementation
	// error degrades to a reported failure, never an unhandled fault.
	env := &tools.Env{Store: d.stores(caller), Caller: caller}
	data, err := d.invoke(ctx, handler, args, env)
	if err != nil {
		// A scoped lookup that matched no rows is the caller's miss, not an
		// infrastructure failure.
		if errors.Is(err, store.ErrNotFound) {
			return failure(fault.Wrap(fault.CodeNotFound, err, err.Error()))
		}
		return failure(fault.From(err))
	}

	return &Result{Success: true, Data: data}
}

func (d *Dispatcher) invoke(ctx context.Context, handler tools.Handler, args json.RawMessage, env *tools.Env) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool panicked",
				zap.String("tool_name", handler.Name()),
				zap.Any("panic", r),
			)
			err = fault.New(fault.CodeUpstream, "tool %s failed: %v", handler.Name(), r)
		}
	}()
	return handler.Execute(ctx, args, env)
}

func failure(f *fault.Fault) *Result {
	res := &Result{
		Success: false,
		Error:   f.Message,
		Code:    f.Code,
	}
	if !f.ResetAt.IsZero() {
		t := f.ResetAt
		res.ResetAt = &t
	}
	return res
}
