// Package tools holds the fixed catalog of operations the agent layer may
// invoke. Each handler owns a JSON-schema contract for its arguments and is
// independent of transport.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/fault"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/identity"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/schedule"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/store"
)

// Store is the caller-scoped data access the catalog needs. Implemented by
// *store.Scoped; faked in tests.
type Store interface {
	FindPetByName(ctx context.Context, name string) (*store.Pet, error)
	MedicalHistory(ctx context.Context, petID string) ([]store.MedicalRecord, error)
	AppointmentsOn(ctx context.Context, locationID string, day time.Time) ([]schedule.Booking, error)
	CreateAppointment(ctx context.Context, in store.AppointmentInput) (*store.Appointment, error)
	SearchInventory(ctx context.Context, query string) ([]store.InventoryItem, error)
	CreateLocation(ctx context.Context, name, address string) (*store.Location, error)
	ListLocations(ctx context.Context) ([]store.Location, error)
	AssignUserToLocation(ctx context.Context, userID, locationID string) (*store.Assignment, error)
	RemoveAssignment(ctx context.Context, userID, locationID string) error
	ListAssignments(ctx context.Context) ([]store.Assignment, error)
}

// Env is the per-dispatch execution environment handed to a handler.
type Env struct {
	Store  Store
	Caller *identity.CallerContext
}

// Handler is one catalog entry.
type Handler interface {
	Name() string

	// Schema returns the compiled argument contract, validated by the
	// dispatcher before Execute is called.
	Schema() *jsonschema.Schema

	Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error)
}

// Registry is the fixed catalog, built once at process start.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds the full catalog.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	hours := schedule.DefaultHours()

	r.register(
		&navigateTool{},
		&findPetTool{},
		&medicalHistoryTool{},
		&medicalSummaryTool{},
		&availableSlotsTool{hours: hours},
		&scheduleAppointmentTool{hours: hours},
		&searchInventoryTool{},
		&createLocationTool{},
		&listLocationsTool{},
		&assignUserTool{},
		&removeAssignmentTool{},
		&listAssignmentsTool{},
	)
	return r
}

func (r *Registry) register(handlers ...Handler) {
	for _, h := range handlers {
		if _, dup := r.handlers[h.Name()]; dup {
			panic(fmt.Sprintf("tools: duplicate handler %q", h.Name()))
		}
		r.handlers[h.Name()] = h
	}
}

// Get returns the handler for a tool name.
func (r *Registry) Get(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns all catalog entries, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateArgs checks raw arguments against the handler's schema.
func ValidateArgs(h Handler, raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fault.New(fault.CodeInvalidArgument, "arguments are not valid JSON: %v", err)
	}
	if err := h.Schema().Validate(doc); err != nil {
		return fault.New(fault.CodeInvalidArgument, "invalid arguments for %s: %v", h.Name(), err)
	}
	return nil
}

// mustCompileSchema compiles an inline JSON schema at registration time.
func mustCompileSchema(name, src string) *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(src), &doc); err != nil {
		panic(fmt.Sprintf("tools: schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name+".json", doc); err != nil {
		panic(fmt.Sprintf("tools: schema %s: %v", name, err))
	}
	sch, err := c.Compile(name + ".json")
	if err != nil {
		panic(fmt.Sprintf("tools: schema %s: %v", name, err))
	}
	return sch
}

// decodeArgs unmarshals schema-validated arguments into the handler's
// typed struct.
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fault.New(fault.CodeInvalidArgument, "malformed arguments: %v", err)
	}
	return nil
}
