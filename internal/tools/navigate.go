package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// navigateTool points the client at an app route. Pure navigation, no data
// access.
type navigateTool struct{}

var navigateSchema = mustCompileSchema("navigate_to_route", `{
	"type": "object",
	"properties": {
		"route": {"type": "string", "pattern": "^/", "maxLength": 256}
	},
	"required": ["route"],
	"additionalProperties": false
}`)

func (t *navigateTool) Name() string               { return "navigate_to_route" }
func (t *navigateTool) Schema() *jsonschema.Schema { return navigateSchema }

func (t *navigateTool) Execute(_ context.Context, args json.RawMessage, _ *Env) (any, error) {
	var a struct {
		Route string `json:"route"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return map[string]any{"route": a.Route}, nil
}

// findPetTool resolves a pet by name among the caller's visible pets and
// returns the route to its profile.
type findPetTool struct{}

var findPetSchema = mustCompileSchema("find_pet_and_navigate", `{
	"type": "object",
	"properties": {
		"pet_name": {"type": "string", "minLength": 1, "maxLength": 128}
	},
	"required": ["pet_name"],
	"additionalProperties": false
}`)

func (t *findPetTool) Name() string               { return "find_pet_and_navigate" }
func (t *findPetTool) Schema() *jsonschema.Schema { return findPetSchema }

func (t *findPetTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		PetName string `json:"pet_name"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	pet, err := env.Store.FindPetByName(ctx, a.PetName)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"route": fmt.Sprintf("/pets/%s", pet.ID),
		"pet":   pet,
	}, nil
}
