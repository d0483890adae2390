package embeddedsending

import (
	"esign-workflows/internal/common/validation"
	"esign-workflows/internal/envelope"
)

var hoursPattern = `^\d{1,4}(\.\d{1,2})?$`

func GetFormSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"signerEmail", "signerName", "companyName", "volunHours"},
		Properties: map[string]validation.Property{
			"signerEmail": {
				Type:        "string",
				Description: "Email of the supervisor confirming the hours",
				Format:      "email",
				MaxLength:   validation.IntPtr(100),
			},
			"signerName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(100),
			},
			"ccEmail": {
				Type:      "string",
				Format:    "email",
				MaxLength: validation.IntPtr(100),
			},
			"ccName": {
				Type:      "string",
				MaxLength: validation.IntPtr(100),
			},
			"companyName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(200),
			},
			"volunHours": {
				Type:        "string",
				Description: "Hours volunteered",
				Pattern:     &hoursPattern,
			},
			"startingView": {
				Type: "string",
				Enum: []string{envelope.StartingViewTagging, envelope.StartingViewRecipient},
			},
		},
	}
}
