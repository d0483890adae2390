package bulksend

import "esign-workflows/internal/common/validation"

// GetFormSchema describes the bulk send form. Exactly one of bulkJSONFile and
// bulkCSVFile must be filled; that rule is checked when the recipients are parsed.
func GetFormSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"docName", "docDeadline", "inputFiles", "fileBase64"},
		Properties: map[string]validation.Property{
			"docName": {
				Type:        "string",
				Description: "Email subject of every envelope in the batch",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(100),
			},
			"docDeadline": {
				Type:        "string",
				Description: "Days until the envelopes expire",
				Format:      "integer",
				Minimum:     validation.FloatPtr(1),
				Maximum:     validation.FloatPtr(999),
			},
			"inputFiles": {
				Type:        "string",
				Description: "File name of the uploaded document",
				MaxLength:   validation.IntPtr(255),
			},
			"fileBase64": {
				Type:        "string",
				Description: "Document content as a data URL or raw base64",
			},
			"signerName": {
				Type:      "string",
				MaxLength: validation.IntPtr(100),
			},
			"signerEmail": {
				Type:      "string",
				Format:    "email",
				MaxLength: validation.IntPtr(100),
			},
			"bulkJSONFile": {Type: "string"},
			"bulkCSVFile":  {Type: "string"},
		},
	}
}

// GetJobSchema describes the variables of an esign.bulk.send job.
func GetJobSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:                 "object",
		Required:             []string{"accessToken", "expiresAt", "basePath", "accountId", "docName", "docDeadline", "documentBase64", "bulkRecipients"},
		AdditionalProperties: true,
		Properties: map[string]validation.Property{
			"accessToken": {Type: "string", MinLength: validation.IntPtr(1)},
			"expiresAt":   {Type: "string", MinLength: validation.IntPtr(1), Description: "RFC 3339 expiry of accessToken"},
			"basePath":    {Type: "string", Format: "url"},
			"accountId":   {Type: "string", MinLength: validation.IntPtr(1)},
			"docName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(100),
			},
			"docDeadline": {
				Type:    "number",
				Minimum: validation.FloatPtr(1),
				Maximum: validation.FloatPtr(999),
			},
			"fileName":       {Type: "string", MaxLength: validation.IntPtr(255)},
			"documentBase64": {Type: "string"},
			"bulkRecipients": {
				Type:        "array",
				Description: "One entry per copy: a recipient object or an array of recipient objects",
			},
			"signerName":  {Type: "string", MaxLength: validation.IntPtr(100)},
			"signerEmail": {Type: "string", Format: "email"},
		},
	}
}
