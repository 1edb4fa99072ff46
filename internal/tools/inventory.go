package tools

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// searchInventoryTool searches the active location's stock.
type searchInventoryTool struct{}

var searchInventorySchema = mustCompileSchema("search_inventory", `{
	"type": "object",
	"properties": {
		"query": {"type": "string", "minLength": 1, "maxLength": 128}
	},
	"required": ["query"],
	"additionalProperties": false
}`)

func (t *searchInventoryTool) Name() string               { return "search_inventory" }
func (t *searchInventoryTool) Schema() *jsonschema.Schema { return searchInventorySchema }

func (t *searchInventoryTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		Query string `json:"query"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	items, err := env.Store.SearchInventory(ctx, a.Query)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"query": a.Query,
		"items": items,
		"count": len(items),
	}, nil
}
