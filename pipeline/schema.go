package pipeline

import (
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// definitionSchema is the JSON Schema every definition document must satisfy
// before strict decoding. Top-level keys other than the reserved ones are job
// or template blocks and share the job schema.
const definitionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["stages"],
  "properties": {
    "stages": {
      "type": "array",
      "items": {"type": "string"},
      "minItems": 1
    },
    "variables": {"$ref": "#/definitions/variables"},
    "requires": {"type": "string"}
  },
  "additionalProperties": {"$ref": "#/definitions/job"},
  "definitions": {
    "commands": {
      "type": "array",
      "items": {"type": "string"}
    },
    "variables": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    },
    "job": {
      "type": "object",
      "properties": {
        "stage": {"type": "string"},
        "extends": {
          "oneOf": [
            {"type": "string"},
            {"type": "array", "items": {"type": "string"}}
          ]
        },
        "variables": {"$ref": "#/definitions/variables"},
        "before_script": {"$ref": "#/definitions/commands"},
        "before_script+": {"$ref": "#/definitions/commands"},
        "script": {"$ref": "#/definitions/commands"},
        "script+": {"$ref": "#/definitions/commands"},
        "packages": {"$ref": "#/definitions/commands"},
        "packages+": {"$ref": "#/definitions/commands"},
        "only": {
          "type": "array",
          "items": {"type": "string"}
        },
        "allow_failure": {"type": "boolean"},
        "cache": {"$ref": "#/definitions/cache"},
        "deps": {
          "type": "array",
          "items": {"$ref": "#/definitions/dep"}
        }
      },
      "additionalProperties": false
    },
    "cache": {
      "type": "object",
      "required": ["key", "paths"],
      "properties": {
        "key": {
          "type": "object",
          "required": ["files"],
          "properties": {
            "files": {
              "type": "array",
              "items": {"type": "string"},
              "minItems": 1
            },
            "prefix": {"type": "string"}
          },
          "additionalProperties": false
        },
        "paths": {
          "type": "array",
          "items": {"type": "string"},
          "minItems": 1
        },
        "when": {"enum": ["on_success", "always", "never"]}
      },
      "additionalProperties": false
    },
    "dep": {
      "type": "object",
      "required": ["repo"],
      "properties": {
        "repo": {"type": "string"},
        "path": {"type": "string"},
        "ref": {"type": "string"}
      },
      "additionalProperties": false
    }
  }
}`

var (
	compiledSchema *gojsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

func getSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		loader := gojsonschema.NewStringLoader(definitionSchema)
		compiledSchema, compileErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, compileErr
}

// validateSchema checks the decoded document against the definition schema
// and reports all violations as a single ErrParse.
func validateSchema(doc *yaml.Node) error {
	var generic map[string]interface{}
	if err := doc.Decode(&generic); err != nil {
		return WrapErrorf(ErrParse, "invalid document: %v", err)
	}

	schema, err := getSchema()
	if err != nil {
		return WrapErrorf(ErrParse, "compiling definition schema: %v", err)
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(generic))
	if err != nil {
		return WrapErrorf(ErrParse, "validating definition: %v", err)
	}
	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return WrapError(ErrParse, strings.Join(violations, "; "))
}
