package embeddedsigning

import "esign-workflows/internal/common/validation"

var envelopeIDPattern = `^[A-Za-z0-9-]{1,64}$`

func GetFormSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"envID"},
		Properties: map[string]validation.Property{
			"envID": {
				Type:        "string",
				Description: "Envelope awaiting the user's signature",
				Pattern:     &envelopeIDPattern,
			},
			"signerEmail": {
				Type:      "string",
				Format:    "email",
				MaxLength: validation.IntPtr(100),
			},
			"signerName": {
				Type:      "string",
				MaxLength: validation.IntPtr(100),
			},
		},
	}
}
