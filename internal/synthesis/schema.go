package synthesis

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/losyky/ai-pf2e-assistant-sub002/internal/oracle"
	"github.com/losyky/ai-pf2e-assistant-sub002/internal/rules"
)

// Oracle output schemas. The same JSON Schema object is sent to the oracle as
// the tool declaration and compiled locally to re-check whatever comes back:
// schema-constrained providers still hallucinate shapes under load.

func ruleSetSchema(name, description string) *oracle.Schema {
	return &oracle.Schema{
		Name:        name,
		Description: description,
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"rules": map[string]interface{}{
					"type":     "array",
					"minItems": 1,
					"items": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{rules.DiscriminantField},
						"properties": map[string]interface{}{
							rules.DiscriminantField: map[string]interface{}{"type": "string"},
						},
					},
				},
				"explanation": map[string]interface{}{"type": "string"},
			},
			"required":             []interface{}{"rules", "explanation"},
			"additionalProperties": false,
		},
	}
}

func mechanicsSchema() *oracle.Schema {
	return &oracle.Schema{
		Name:        "report_mechanics",
		Description: "Report the game mechanics identified in a description.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"mechanics": map[string]interface{}{
					"type":  "array",
					"items": map[string]interface{}{"type": "string"},
				},
			},
			"required": []interface{}{"mechanics"},
		},
	}
}

func effectPlansSchema() *oracle.Schema {
	return &oracle.Schema{
		Name:        "configure_effects",
		Description: "Produce one companion effect configuration per suggested transient effect.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"effects": map[string]interface{}{
					"type":     "array",
					"minItems": 1,
					"items": map[string]interface{}{
						"type":     "object",
						"required": []interface{}{"name", "description", "duration"},
						"properties": map[string]interface{}{
							"name":        map[string]interface{}{"type": "string"},
							"description": map[string]interface{}{"type": "string"},
							"duration": map[string]interface{}{
								"type": "string",
								"enum": []interface{}{"unlimited", "rounds", "minutes", "hours"},
							},
							"rules":  map[string]interface{}{"type": "array"},
							"traits": map[string]interface{}{"type": "array"},
							"rarity": map[string]interface{}{"type": "string"},
						},
					},
				},
			},
			"required": []interface{}{"effects"},
		},
	}
}

// compileSchema turns an oracle schema's parameters into a validator.
func compileSchema(s *oracle.Schema) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s.Parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema %s: %w", s.Name, err)
	}
	compiled, err := jsonschema.CompileString(s.Name+".json", string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", s.Name, err)
	}
	return compiled, nil
}

// validateAgainst re-marshals a value and validates it against the compiled
// schema. A nil schema validates everything.
func validateAgainst(compiled *jsonschema.Schema, value interface{}) error {
	if compiled == nil {
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	return compiled.Validate(generic)
}
