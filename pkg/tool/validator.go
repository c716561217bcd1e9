package tool

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// compiledSchema wraps a pre-compiled JSON schema for hot-path
// validation.
type compiledSchema struct {
	schema *gojsonschema.Schema
}

// compileSchema compiles a JSON-Schema document. A nil schema is legal
// and means the tool accepts any parameters.
func compileSchema(raw map[string]interface{}) (*compiledSchema, error) {
	if raw == nil {
		return nil, nil
	}

	loader := gojsonschema.NewGoLoader(raw)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &compiledSchema{schema: schema}, nil
}

// Validate checks parameters against the compiled schema and returns
// field-level error strings on failure.
func (c *compiledSchema) Validate(parameters map[string]interface{}) (bool, []string) {
	if parameters == nil {
		parameters = map[string]interface{}{}
	}

	result, err := c.schema.Validate(gojsonschema.NewGoLoader(parameters))
	if err != nil {
		return false, []string{fmt.Sprintf("validation failed: %v", err)}
	}

	if result.Valid() {
		return true, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		field := resultErr.Field()
		if field == "(root)" {
			errs = append(errs, resultErr.Description())
			continue
		}
		errs = append(errs, fmt.Sprintf("%s: %s", field, resultErr.Description()))
	}

	return false, errs
}
