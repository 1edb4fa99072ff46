package tools

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var emptyObjectSchema = `{
	"type": "object",
	"additionalProperties": false
}`

var userLocationSchema = `{
	"type": "object",
	"properties": {
		"user_id": {"type": "string", "minLength": 1, "maxLength": 64},
		"location_id": {"type": "string", "minLength": 1, "maxLength": 64}
	},
	"required": ["user_id", "location_id"],
	"additionalProperties": false
}`

type createLocationTool struct{}

var createLocationSchema = mustCompileSchema("create_location", `{
	"type": "object",
	"properties": {
		"name": {"type": "string", "minLength": 1, "maxLength": 128},
		"address": {"type": "string", "maxLength": 256}
	},
	"required": ["name"],
	"additionalProperties": false
}`)

func (t *createLocationTool) Name() string               { return "create_location" }
func (t *createLocationTool) Schema() *jsonschema.Schema { return createLocationSchema }

func (t *createLocationTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	loc, err := env.Store.CreateLocation(ctx, a.Name, a.Address)
	if err != nil {
		return nil, err
	}
	return map[string]any{"location": loc}, nil
}

type listLocationsTool struct{}

var listLocationsSchema = mustCompileSchema("list_locations", emptyObjectSchema)

func (t *listLocationsTool) Name() string               { return "list_locations" }
func (t *listLocationsTool) Schema() *jsonschema.Schema { return listLocationsSchema }

func (t *listLocationsTool) Execute(ctx context.Context, _ json.RawMessage, env *Env) (any, error) {
	locations, err := env.Store.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"locations": locations,
		"count":     len(locations),
	}, nil
}

type assignUserTool struct{}

var assignUserSchema = mustCompileSchema("assign_user_to_location", userLocationSchema)

func (t *assignUserTool) Name() string               { return "assign_user_to_location" }
func (t *assignUserTool) Schema() *jsonschema.Schema { return assignUserSchema }

func (t *assignUserTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		UserID     string `json:"user_id"`
		LocationID string `json:"location_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	assignment, err := env.Store.AssignUserToLocation(ctx, a.UserID, a.LocationID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"assignment": assignment}, nil
}

type removeAssignmentTool struct{}

var removeAssignmentSchema = mustCompileSchema("remove_location_assignment", userLocationSchema)

func (t *removeAssignmentTool) Name() string               { return "remove_location_assignment" }
func (t *removeAssignmentTool) Schema() *jsonschema.Schema { return removeAssignmentSchema }

func (t *removeAssignmentTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		UserID     string `json:"user_id"`
		LocationID string `json:"location_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	if err := env.Store.RemoveAssignment(ctx, a.UserID, a.LocationID); err != nil {
		return nil, err
	}
	return map[string]any{"removed": true}, nil
}

type listAssignmentsTool struct{}

var listAssignmentsSchema = mustCompileSchema("list_location_assignments", emptyObjectSchema)

func (t *listAssignmentsTool) Name() string               { return "list_location_assignments" }
func (t *listAssignmentsTool) Schema() *jsonschema.Schema { return listAssignmentsSchema }

func (t *listAssignmentsTool) Execute(ctx context.Context, _ json.RawMessage, env *Env) (any, error) {
	assignments, err := env.Store.ListAssignments(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"assignments": assignments,
		"count":       len(assignments),
	}, nil
}
