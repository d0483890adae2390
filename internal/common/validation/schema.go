package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// JSONSchema describes the accepted shape of a workflow's input, whether it
// arrives as form fields or as job variables.
type JSONSchema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Format      string   `json:"format,omitempty"` // email, phone, url, integer
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Pattern     *string  `json:"pattern,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-']+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{7,}$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// ValidateInput validates input against the schema. Empty strings count as missing for required fields.
func ValidateInput(input map[string]interface{}, schema JSONSchema) *ValidationResult {
	var errs []ValidationError

	for _, field := range schema.Required {
		value, exists := input[field]
		if !exists || value == nil {
			errs = append(errs, ValidationError{Field: field, Message: "required field missing", Code: "REQUIRED_FIELD_MISSING"})
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			errs = append(errs, ValidationError{Field: field, Message: "required field is empty", Code: "REQUIRED_FIELD_MISSING"})
		}
	}

	for field, value := range input {
		prop, exists := schema.Properties[field]
		if !exists {
			if !schema.AdditionalProperties {
				errs = append(errs, ValidationError{Field: field, Message: "field not allowed in schema", Code: "EXTRA_FIELD"})
			}
			continue
		}
		if s, ok := value.(string); ok && s == "" {
			continue
		}
		errs = append(errs, validateField(field, value, prop)...)
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateForm validates flat string form values.
func ValidateForm(values map[string]string, schema JSONSchema) *ValidationResult {
	input := make(map[string]interface{}, len(values))
	for k, v := range values {
		input[k] = v
	}
	return ValidateInput(input, schema)
}

func validateField(field string, value interface{}, prop Property) []ValidationError {
	var errs []ValidationError

	if err := validateType(value, prop.Type); err != nil {
		return append(errs, ValidationError{Field: field, Message: err.Error(), Code: "INVALID_TYPE"})
	}

	if s, ok := value.(string); ok {
		if prop.MinLength != nil && len(s) < *prop.MinLength {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength), Code: "MIN_LENGTH_VIOLATION"})
		}
		if prop.MaxLength != nil && len(s) > *prop.MaxLength {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength), Code: "MAX_LENGTH_VIOLATION"})
		}
		if prop.Pattern != nil {
			if matched, err := regexp.MatchString(*prop.Pattern, s); err != nil || !matched {
				errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value must match pattern %s", *prop.Pattern), Code: "PATTERN_MISMATCH"})
			}
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, s) {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value must be one of %v", prop.Enum), Code: "INVALID_ENUM_VALUE"})
		}
		if e := validateFormat(field, s, prop.Format); e != nil {
			errs = append(errs, *e)
		}
	}

	if n, ok := asNumber(value, prop); ok {
		if prop.Minimum != nil && n < *prop.Minimum {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value must be >= %g", *prop.Minimum), Code: "MINIMUM_VIOLATION"})
		}
		if prop.Maximum != nil && n > *prop.Maximum {
			errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf("value must be <= %g", *prop.Maximum), Code: "MAXIMUM_VIOLATION"})
		}
	}

	return errs
}

func validateFormat(field, s, format string) *ValidationError {
	switch format {
	case "email":
		if !ValidateEmail(s) {
			return &ValidationError{Field: field, Message: "value must be a valid email address", Code: "INVALID_EMAIL"}
		}
	case "phone":
		if !ValidatePhone(s) {
			return &ValidationError{Field: field, Message: "value must be a valid phone number", Code: "INVALID_PHONE"}
		}
	case "url":
		if !ValidateURL(s) {
			return &ValidationError{Field: field, Message: "value must be a valid URL", Code: "INVALID_URL"}
		}
	case "integer":
		if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
			return &ValidationError{Field: field, Message: "value must be a whole number", Code: "INVALID_INTEGER"}
		}
	}
	return nil
}

// asNumber reads numeric values, including integer-formatted form strings.
func asNumber(value interface{}, prop Property) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		if prop.Format != "integer" {
			return 0, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		return float64(n), err == nil
	}
	return 0, false
}

func validateType(value interface{}, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number", "integer":
		switch value.(type) {
		case float64, int, int32, int64:
		default:
			return fmt.Errorf("expected %s, got %T", expectedType, value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// GetErrorMessages returns "field: message" strings.
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Fields lists the fields that failed, in error order without duplicates.
func (vr *ValidationResult) Fields() []string {
	seen := make(map[string]bool)
	var fields []string
	for _, err := range vr.Errors {
		if !seen[err.Field] {
			seen[err.Field] = true
			fields = append(fields, err.Field)
		}
	}
	return fields
}

func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

func ValidateURL(url string) bool {
	return urlPattern.MatchString(url)
}

func IntPtr(i int) *int { return &i }

func FloatPtr(f float64) *float64 { return &f }
