package services

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	contextutils "learnverse/internal/utils"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v2"
)

//go:embed schemas/profile_keys.yaml
var profileKeySchemas []byte

// SchemaLoader compiles the JSON Schemas of stored values
type SchemaLoader struct {
	schemas map[string]*gojsonschema.Schema
}

// NewSchemaLoader creates a new schema loader
func NewSchemaLoader() *SchemaLoader {
	return &SchemaLoader{
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// LoadProfileKeySchemas compiles the embedded store key schemas
func LoadProfileKeySchemas() (*SchemaLoader, error) {
	sl := NewSchemaLoader()
	if err := sl.LoadSchemas(profileKeySchemas); err != nil {
		return nil, err
	}
	return sl, nil
}

// LoadSchemas compiles every entry of a YAML document's top-level "schemas" map.
// Entries may reference each other as #/components/schemas/<name>.
func (sl *SchemaLoader) LoadSchemas(data []byte) error {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return contextutils.WrapError(err, "failed to parse schema file as YAML")
	}

	schemas, ok := doc["schemas"].(map[interface{}]interface{})
	if !ok {
		return contextutils.ErrorWithContextf("no schemas section found")
	}

	jsonCompatibleSchemas := make(map[string]interface{}, len(schemas))
	for schemaName, schemaData := range schemas {
		schemaNameStr, ok := schemaName.(string)
		if !ok {
			return contextutils.ErrorWithContextf("schema name is not a string: %v", schemaName)
		}
		convertedSchema, err := convertToJSONCompatible(schemaData)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to convert schema %s", schemaNameStr)
		}
		jsonCompatibleSchemas[schemaNameStr] = convertedSchema
	}

	for schemaNameStr := range jsonCompatibleSchemas {
		// every schema carries the full set so $ref resolves
		completeSchemaDoc := map[string]interface{}{
			"$schema": "http://json-schema.org/draft-07/schema#",
			"components": map[string]interface{}{
				"schemas": jsonCompatibleSchemas,
			},
			"$ref": "#/components/schemas/" + schemaNameStr,
		}

		schemaBytes, err := json.Marshal(completeSchemaDoc)
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to marshal schema %s", schemaNameStr)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to load schema %s", schemaNameStr)
		}
		sl.schemas[schemaNameStr] = schema
	}
	return nil
}

// Has reports whether a schema with the name was loaded
func (sl *SchemaLoader) Has(schemaName string) bool {
	_, ok := sl.schemas[schemaName]
	return ok
}

// ValidateJSON validates a JSON document against a schema.
// Violations are returned as ErrValidationFailed listing every failing field.
func (sl *SchemaLoader) ValidateJSON(document []byte, schemaName string) error {
	schema, exists := sl.schemas[schemaName]
	if !exists {
		return contextutils.ErrorWithContextf("schema %s not found", schemaName)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			contextutils.ErrValidationFailed.Message, fmt.Sprintf("%s: value is not valid JSON", schemaName), err)
	}
	if !result.Valid() {
		var validationErrors []string
		for _, validationErr := range result.Errors() {
			validationErrors = append(validationErrors, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		sort.Strings(validationErrors)
		return contextutils.NewAppError(contextutils.ErrorCodeValidationFailed, contextutils.SeverityWarn,
			contextutils.ErrValidationFailed.Message, fmt.Sprintf("%s: %s", schemaName, strings.Join(validationErrors, "; ")))
	}
	return nil
}

// ValidateData marshals data and validates it against a schema
func (sl *SchemaLoader) ValidateData(data interface{}, schemaName string) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal data")
	}
	return sl.ValidateJSON(jsonData, schemaName)
}

// convertToJSONCompatible turns yaml.v2 maps into JSON maps and rewrites
// nullable: true as a union with null.
func convertToJSONCompatible(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{})
		hasNullable := false

		for k, val := range v {
			keyStr, ok := k.(string)
			if !ok {
				return nil, contextutils.ErrorWithContextf("key is not a string: %v", k)
			}
			if keyStr == "nullable" {
				if nullable, ok := val.(bool); ok && nullable {
					hasNullable = true
				}
				continue
			}
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[keyStr] = convertedVal
		}

		if hasNullable {
			if ref, hasRef := result["$ref"].(string); hasRef {
				result["oneOf"] = []interface{}{
					map[string]interface{}{"$ref": ref},
					map[string]interface{}{"type": "null"},
				}
				delete(result, "$ref")
			} else if typeVal, hasType := result["type"].(string); hasType {
				result["type"] = []interface{}{typeVal, "null"}
			}
		}
		return result, nil
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, val := range v {
			convertedVal, err := convertToJSONCompatible(val)
			if err != nil {
				return nil, err
			}
			result[i] = convertedVal
		}
		return result, nil
	default:
		return data, nil
	}
}
