package category

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace/internal/models"
)

func intPtr(v int) *int { return &v }

func TestValidateField(t *testing.T) {
	tests := []struct {
		name   string
		schema models.AttributeSchema
		value  any
		want   string // substring of the message, "" for valid
	}{
		{"optional missing", models.AttributeSchema{Type: models.AttributeNumber}, nil, ""},
		{"optional blank", models.AttributeSchema{Type: models.AttributeEmail}, "   ", ""},
		{"required missing", models.AttributeSchema{Required: true}, nil, "is required"},
		{"required blank string", models.AttributeSchema{Required: true}, "  ", "is required"},
		{"required empty list", models.AttributeSchema{Required: true}, []any{}, "is required"},
		{"text ok", models.AttributeSchema{Type: models.AttributeText}, "Toyota", ""},
		{"non scalar", models.AttributeSchema{Type: models.AttributeText}, map[string]any{"a": 1}, "must be a string"},
		{"number from json", models.AttributeSchema{Type: models.AttributeNumber}, float64(128), ""},
		{"number string", models.AttributeSchema{Type: models.AttributeNumber}, "12.5", ""},
		{"number invalid", models.AttributeSchema{Type: models.AttributeNumber}, "12GB", "must be a number"},
		{"number leading dot", models.AttributeSchema{Type: models.AttributeNumber}, ".5", ""},
		{"number trailing dot", models.AttributeSchema{Type: models.AttributeNumber}, "5.", ""},
		{"number exponent", models.AttributeSchema{Type: models.AttributeNumber}, "1e3", ""},
		{"number signed", models.AttributeSchema{Type: models.AttributeNumber}, "-0.25", ""},
		{"number lone dot", models.AttributeSchema{Type: models.AttributeNumber}, ".", "must be a number"},
		{"number not finite", models.AttributeSchema{Type: models.AttributeNumber}, "NaN", "must be a number"},
		{"email ok", models.AttributeSchema{Type: models.AttributeEmail}, "seller@example.com", ""},
		{"email invalid", models.AttributeSchema{Type: models.AttributeEmail}, "seller-at-example", "valid email"},
		{"url ok", models.AttributeSchema{Type: models.AttributeURL}, "https://youtu.be/abc", ""},
		{"url invalid", models.AttributeSchema{Type: models.AttributeURL}, "not a link", "valid URL"},
		{"select ok", models.AttributeSchema{Type: models.AttributeSelect, Options: []string{"New", "Used"}}, "Used", ""},
		{"select is case sensitive", models.AttributeSchema{Type: models.AttributeSelect, Options: []string{"New", "Used"}}, "used", "is invalid"},
		{"text too short", models.AttributeSchema{Min: intPtr(3)}, "ab", "at least 3 characters"},
		{"text too long", models.AttributeSchema{Max: intPtr(3)}, "abcd", "greater than 3 characters"},
		{"length counts runes", models.AttributeSchema{Max: intPtr(6)}, "Liepāja", "greater than 6"},
		// Bounds are lengths even for numbers: 5 has one character.
		{"number min is a length", models.AttributeSchema{Type: models.AttributeNumber, Min: intPtr(2)}, float64(5), "at least 2 characters"},
		{"number max is a length", models.AttributeSchema{Type: models.AttributeNumber, Max: intPtr(4)}, "2024", ""},
		{"number over length", models.AttributeSchema{Type: models.AttributeNumber, Max: intPtr(4)}, float64(20245), "greater than 4"},
		{"bool renders as digit", models.AttributeSchema{Type: models.AttributeNumber}, true, ""},
		{"label used in message", models.AttributeSchema{Label: "Engine size", Required: true}, nil, "The Engine size field"},
		{"key used without label", models.AttributeSchema{Required: true}, "", "The fuel type field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := ValidateField("fuel_type", tt.schema, tt.value)
			if tt.want == "" {
				assert.Nil(t, fe)
				return
			}
			if assert.NotNil(t, fe) {
				assert.Equal(t, "fuel_type", fe.Field)
				assert.Contains(t, fe.Message, tt.want)
			}
		})
	}
}

func TestValidateAllOnDecodedSchema(t *testing.T) {
	var schemas map[string]models.AttributeSchema
	err := json.Unmarshal([]byte(`{
		"make": {"type": "text", "required": true},
		"year": {"type": "number", "required": true, "min": 4, "max": 4},
		"color": {"type": "colorpicker"}
	}`), &schemas)
	assert.NoError(t, err)

	errs := ValidateAll(schemas, map[string]any{"year": float64(99), "color": "red"})
	assert.Len(t, errs, 2)
	assert.Contains(t, errs["make"], "required")
	assert.Contains(t, errs["year"], "at least 4")

	errs = ValidateAll(schemas, map[string]any{"make": "Volvo", "year": "2019", "extra": "ignored"})
	assert.Empty(t, errs)
}
