package smsauthentication

import "esign-workflows/internal/common/validation"

func GetFormSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"signerEmail", "signerName", "phoneNumber"},
		Properties: map[string]validation.Property{
			"signerEmail": {
				Type:      "string",
				Format:    "email",
				MaxLength: validation.IntPtr(100),
			},
			"signerName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(100),
			},
			"phoneNumber": {
				Type:        "string",
				Description: "Number the access code is texted to, with country code",
				Format:      "phone",
				MaxLength:   validation.IntPtr(20),
			},
		},
	}
}
