package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/fault"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/schedule"
	"github.com/pawtrail-ai/pawtrail/services/agent_actions/internal/store"
)

// availableSlotsTool lists candidate start times at the caller's active
// location for a given day and duration.
type availableSlotsTool struct {
	hours schedule.Hours
}

var availableSlotsSchema = mustCompileSchema("get_available_slots", `{
	"type": "object",
	"properties": {
		"date": {"type": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
		"duration_minutes": {"type": "integer", "minimum": 15, "maximum": 240}
	},
	"required": ["date"],
	"additionalProperties": false
}`)

func (t *availableSlotsTool) Name() string               { return "get_available_slots" }
func (t *availableSlotsTool) Schema() *jsonschema.Schema { return availableSlotsSchema }

func (t *availableSlotsTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		Date            string `json:"date"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = 30
	}

	day, err := time.ParseInLocation("2006-01-02", a.Date, time.UTC)
	if err != nil {
		return nil, fault.New(fault.CodeInvalidArgument, "invalid date %q", a.Date)
	}

	existing, err := env.Store.AppointmentsOn(ctx, env.Caller.ActiveLocationID, day)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(a.DurationMinutes) * time.Minute
	slots := schedule.FreeSlots(day, duration, existing, t.hours)

	formatted := make([]string, 0, len(slots))
	for _, s := range slots {
		formatted = append(formatted, s.Format(time.RFC3339))
	}
	return map[string]any{
		"date":             a.Date,
		"duration_minutes": a.DurationMinutes,
		"location_id":      env.Caller.ActiveLocationID,
		"slots":            formatted,
	}, nil
}

// scheduleAppointmentTool books a slot at the caller's active location.
//
// The in-process conflict check is advisory: two concurrent bookings can
// both pass it. The store's exclusion constraint is the authority, and its
// violation comes back as a conflict fault from CreateAppointment.
type scheduleAppointmentTool struct {
	hours schedule.Hours
}

var scheduleAppointmentSchema = mustCompileSchema("schedule_appointment", `{
	"type": "object",
	"properties": {
		"pet_name": {"type": "string", "minLength": 1, "maxLength": 128},
		"owner_name": {"type": "string", "maxLength": 128},
		"start_time": {"type": "string", "format": "date-time"},
		"duration_minutes": {"type": "integer", "minimum": 15, "maximum": 240},
		"reason": {"type": "string", "maxLength": 512}
	},
	"required": ["pet_name", "start_time"],
	"additionalProperties": false
}`)

func (t *scheduleAppointmentTool) Name() string               { return "schedule_appointment" }
func (t *scheduleAppointmentTool) Schema() *jsonschema.Schema { return scheduleAppointmentSchema }

func (t *scheduleAppointmentTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		PetName         string `json:"pet_name"`
		OwnerName       string `json:"owner_name"`
		StartTime       string `json:"start_time"`
		DurationMinutes int    `json:"duration_minutes"`
		Reason          string `json:"reason"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = 30
	}

	start, err := time.Parse(time.RFC3339, a.StartTime)
	if err != nil {
		return nil, fault.New(fault.CodeInvalidArgument, "invalid start_time %q", a.StartTime)
	}
	start = start.UTC()

	candidate := schedule.Booking{
		Start:    start,
		Duration: time.Duration(a.DurationMinutes) * time.Minute,
	}

	existing, err := env.Store.AppointmentsOn(ctx, env.Caller.ActiveLocationID, start)
	if err != nil {
		return nil, err
	}
	if schedule.HasConflict(candidate, existing) {
		return nil, fault.New(fault.CodeConflict, "slot %s is already booked", start.Format(time.RFC3339))
	}

	appt, err := env.Store.CreateAppointment(ctx, store.AppointmentInput{
		PetName:         a.PetName,
		OwnerName:       a.OwnerName,
		StartAt:         start,
		DurationMinutes: a.DurationMinutes,
		Reason:          a.Reason,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"appointment": appt}, nil
}
