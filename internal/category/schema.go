// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"marketplace/internal/models"
)

// formats checks email and URL values.
var formats = validator.New()

// numberPattern accepts decimal numbers with optional sign, fraction and
// exponent, such as "12", "-3.5", ".5", "5." and "1e3".
var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// FieldError is the validation failure of a single listing attribute.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateField checks one submitted value against its attribute schema and
// returns the first failure, or nil. A missing optional value is valid.
// Min and Max bound the character length of the value for every type,
// numbers included.
func ValidateField(key string, schema models.AttributeSchema, value any) *FieldError {
	label := schema.DisplayLabel(key)
	fail := func(format string, args ...any) *FieldError {
		return &FieldError{Field: key, Message: fmt.Sprintf(format, args...)}
	}

	if isEmpty(value) {
		if schema.Required {
			return fail("The %s field is required.", label)
		}
		return nil
	}

	s, ok := scalarString(value)
	if !ok {
		return fail("The %s field must be a string.", label)
	}

	switch schema.Type {
	case models.AttributeNumber:
		if !numberPattern.MatchString(s) {
			return fail("The %s field must be a number.", label)
		}
	case models.AttributeEmail:
		if formats.Var(s, "email") != nil {
			return fail("The %s field must be a valid email address.", label)
		}
	case models.AttributeURL:
		if formats.Var(s, "url") != nil {
			return fail("The %s field must be a valid URL.", label)
		}
	case models.AttributeSelect:
		if !slices.Contains(schema.Options, s) {
			return fail("The selected %s is invalid.", label)
		}
	}

	n := utf8.RuneCountInString(s)
	if schema.Min != nil && n < *schema.Min {
		return fail("The %s field must be at least %d characters.", label, *schema.Min)
	}
	if schema.Max != nil && n > *schema.Max {
		return fail("The %s field must not be greater than %d characters.", label, *schema.Max)
	}
	return nil
}

// ValidateAll checks every attribute in schemas against data and returns
// field → message for each failure. An empty map means the data is valid.
func ValidateAll(schemas map[string]models.AttributeSchema, data map[string]any) map[string]string {
	errs := make(map[string]string)
	for key, schema := range schemas {
		if fe := ValidateField(key, schema, data[key]); fe != nil {
			errs[key] = fe.Message
		}
	}
	return errs
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// scalarString renders a decoded JSON scalar the way it was submitted.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case json.Number:
		return t.String(), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		if t {
			return "1", true
		}
		return "0", true
	}
	return "", false
}
