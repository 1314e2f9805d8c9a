// Package validation runs JSON-schema checks through gojsonschema and reports
// them as flat per-field errors.
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a JSON schema expressed as nested Go maps.
type Schema map[string]interface{}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is one failed constraint. Code is the gojsonschema error
// type ("required", "enum", "invalid_type", "pattern", ...).
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks document against schema. An error is returned only when the
// schema itself cannot be compiled.
func Validate(schema Schema, document interface{}) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(map[string]interface{}(schema)),
		gojsonschema.NewGoLoader(document),
	)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(re),
			Message: re.Description(),
			Code:    re.Type(),
		})
	}
	return out, nil
}

// fieldOf resolves the offending property. gojsonschema reports missing
// properties against their parent, with the name in the details.
func fieldOf(re gojsonschema.ResultError) string {
	field := re.Field()
	if re.Type() == "required" {
		if prop, ok := re.Details()["property"].(string); ok {
			if field == "(root)" || field == "" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

// StringEnum builds a string property restricted to values.
func StringEnum(values ...string) map[string]interface{} {
	enum := make([]interface{}, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return map[string]interface{}{"type": "string", "enum": enum}
}

// GetErrorMessages returns "field: message" for each error.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	return len(vr.GetErrorsForField(field)) > 0
}

// GetErrorsForField returns errors for a field and its nested children.
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
