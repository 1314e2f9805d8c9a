package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactSchema = Schema{
	"type":     "object",
	"required": []interface{}{"fullName", "isUAEResident"},
	"properties": map[string]interface{}{
		"fullName":      map[string]interface{}{"type": "string"},
		"isUAEResident": map[string]interface{}{"type": "boolean"},
		"contactMethod": StringEnum("email", "phone", "whatsapp", "both"),
	},
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		document map[string]interface{}
		validate func(t *testing.T, res *ValidationResult)
	}{
		{
			name:     "valid document",
			document: map[string]interface{}{"fullName": "Jane Doe", "isUAEResident": true, "contactMethod": "phone"},
			validate: func(t *testing.T, res *ValidationResult) {
				assert.True(t, res.Valid)
				assert.Empty(t, res.Errors)
			},
		},
		{
			name:     "missing required field reports the property",
			document: map[string]interface{}{"isUAEResident": false},
			validate: func(t *testing.T, res *ValidationResult) {
				assert.False(t, res.Valid)
				assert.True(t, res.HasErrors("fullName"))
				assert.Equal(t, "required", res.GetErrorsForField("fullName")[0].Code)
			},
		},
		{
			name:     "wrong type",
			document: map[string]interface{}{"fullName": "Jane", "isUAEResident": "yes"},
			validate: func(t *testing.T, res *ValidationResult) {
				assert.True(t, res.HasErrors("isUAEResident"))
				assert.Equal(t, "invalid_type", res.GetErrorsForField("isUAEResident")[0].Code)
			},
		},
		{
			name:     "enum violation",
			document: map[string]interface{}{"fullName": "Jane", "isUAEResident": true, "contactMethod": "fax"},
			validate: func(t *testing.T, res *ValidationResult) {
				assert.True(t, res.HasErrors("contactMethod"))
				assert.Len(t, res.GetErrorMessages(), 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Validate(contactSchema, tt.document)
			require.NoError(t, err)
			tt.validate(t, res)
		})
	}
}

func TestValidate_EmptySchema(t *testing.T) {
	res, err := Validate(nil, map[string]interface{}{"anything": 1})
	require.NoError(t, err)
	assert.True(t, res.Valid)
}
