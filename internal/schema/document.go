package schema

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// snapshotJSONSchema validates snapshot documents before decoding. Malformed
// baselines fail with precise JSON paths instead of silent zero values.
const snapshotJSONSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "driftline schema snapshot",
  "type": "object",
  "required": ["tables", "columns", "indexes", "foreignKeys"],
  "properties": {
    "tables": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "engine": {"type": "string"},
          "rowCountEstimate": {"type": "integer", "minimum": 0}
        }
      }
    },
    "columns": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tableName", "name", "columnType"],
        "properties": {
          "tableName": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "dataType": {"type": "string"},
          "columnType": {"type": "string", "minLength": 1},
          "maxLength": {"type": "integer", "minimum": 0},
          "isNullable": {"type": "boolean"},
          "defaultValue": {"type": "string"},
          "position": {"type": "integer", "minimum": 0}
        }
      }
    },
    "indexes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["tableName", "name", "columns"],
        "properties": {
          "tableName": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "columns": {"type": "array", "items": {"type": "string"}, "minItems": 1},
          "unique": {"type": "boolean"}
        }
      }
    },
    "foreignKeys": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "tableName", "column", "referencedTable", "referencedColumn"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "tableName": {"type": "string", "minLength": 1},
          "column": {"type": "string", "minLength": 1},
          "referencedTable": {"type": "string", "minLength": 1},
          "referencedColumn": {"type": "string", "minLength": 1},
          "onDelete": {"type": "string"}
        }
      }
    },
    "warnings": {"type": "array", "items": {"type": "string"}}
  }
}`

// ValidateSnapshotDocument checks raw snapshot JSON against the embedded
// document schema and returns a descriptive error listing every violation.
func ValidateSnapshotDocument(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(snapshotJSONSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("snapshot document is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var issues []string
	for _, desc := range result.Errors() {
		issues = append(issues, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
	}
	return fmt.Errorf("snapshot document failed validation:\n  %s", strings.Join(issues, "\n  "))
}
