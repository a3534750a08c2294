package planner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// planJSONSchema guards plan documents loaded from disk. Plans sit on disk
// between "generate" and "execute", sometimes hand-inspected in between, so
// loading re-checks shape before anything trusts the contents.
const planJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["migrations", "summary"],
  "properties": {
    "migrations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "table", "riskLevel"],
        "properties": {
          "type": {
            "type": "string",
            "enum": [
              "create_table", "add_column", "modify_column", "drop_column",
              "add_index", "drop_index", "add_foreign_key",
              "drop_foreign_key", "drop_table"
            ]
          },
          "table": {"type": "string", "minLength": 1},
          "details": {"type": "object"},
          "riskLevel": {"type": "string", "enum": ["low", "medium", "high", "blocking"]}
        }
      }
    },
    "summary": {
      "type": "object",
      "required": ["totalOperations"],
      "properties": {
        "totalOperations": {"type": "integer", "minimum": 0},
        "countsByType": {"type": "object", "additionalProperties": {"type": "integer"}}
      }
    },
    "risks": {"type": "array"},
    "estimatedTimeMs": {"type": "integer", "minimum": 0},
    "sourceHash": {"type": "string"}
  }
}`

// ValidatePlanDocument checks raw plan JSON against the embedded document
// schema and returns a descriptive error listing every violation.
func ValidatePlanDocument(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(planJSONSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("plan document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("plan document failed validation:\n  %s", strings.Join(issues, "\n  "))
}

// LoadPlan reads a plan document from disk, validates it and decodes it.
// Deserialization is lossless: the operation list and risk levels come back
// exactly as generated.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file %s: %w", path, err)
	}

	if err := ValidatePlanDocument(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return &plan, nil
}

// SavePlan writes a plan document to disk with stable formatting. The write
// is atomic (temp file + rename).
func SavePlan(plan *Plan, path string) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to finalize plan file: %w", err)
	}
	return nil
}
