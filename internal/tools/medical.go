package tools

import (
	"context"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var petIDSchema = `{
	"type": "object",
	"properties": {
		"pet_id": {"type": "string", "minLength": 1, "maxLength": 64}
	},
	"required": ["pet_id"],
	"additionalProperties": false
}`

// medicalHistoryTool returns a pet's full record list. Row-level scoping in
// the store already limits which pets the caller can read.
type medicalHistoryTool struct{}

var medicalHistorySchema = mustCompileSchema("get_medical_history", petIDSchema)

func (t *medicalHistoryTool) Name() string               { return "get_medical_history" }
func (t *medicalHistoryTool) Schema() *jsonschema.Schema { return medicalHistorySchema }

func (t *medicalHistoryTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		PetID string `json:"pet_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	records, err := env.Store.MedicalHistory(ctx, a.PetID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"pet_id":  a.PetID,
		"records": records,
		"count":   len(records),
	}, nil
}

// medicalSummaryTool condenses the history into a structured digest the
// conversational layer can phrase however it likes.
type medicalSummaryTool struct{}

var medicalSummarySchema = mustCompileSchema("summarize_medical_history", petIDSchema)

func (t *medicalSummaryTool) Name() string               { return "summarize_medical_history" }
func (t *medicalSummaryTool) Schema() *jsonschema.Schema { return medicalSummarySchema }

func (t *medicalSummaryTool) Execute(ctx context.Context, args json.RawMessage, env *Env) (any, error) {
	var a struct {
		PetID string `json:"pet_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	records, err := env.Store.MedicalHistory(ctx, a.PetID)
	if err != nil {
		return nil, err
	}

	byKind := make(map[string]int)
	for _, r := range records {
		byKind[r.Kind]++
	}

	summary := map[string]any{
		"pet_id":        a.PetID,
		"total_records": len(records),
		"by_kind":       byKind,
	}
	if len(records) > 0 {
		// Records come back newest first.
		latest := records[0]
		summary["latest_visit_at"] = latest.VisitedAt
		summary["latest_visit"] = latest.Description
	}
	return summary, nil
}
