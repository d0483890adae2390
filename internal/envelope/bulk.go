package envelope

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultBulkRole is the role of the placeholder signer every bulk copy fills.
const DefaultBulkRole = "signer"

type BulkRecipient struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	RoleName    string `json:"roleName,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

// BulkRecord becomes one bulk copy. All of its recipients receive the same copy.
type BulkRecord struct {
	Recipients []BulkRecipient
}

// BuildBulkList produces one copy per record, keeping each record's recipients as given.
func BuildBulkList(name string, records []BulkRecord) (*esign.BulkSendingList, error) {
	if len(records) == 0 {
		return nil, errors.NewValidationError("bulk list requires at least one recipient", "bulkRecipients")
	}

	list := &esign.BulkSendingList{Name: name, BulkCopies: make([]esign.BulkSendCopy, 0, len(records))}
	for i, rec := range records {
		if len(rec.Recipients) == 0 {
			return nil, errors.NewValidationError(fmt.Sprintf("bulk record %d has no recipients", i+1), "bulkRecipients")
		}
		recipients := make([]esign.BulkSendRecipient, 0, len(rec.Recipients))
		for _, r := range rec.Recipients {
			if r.Email == "" {
				return nil, errors.NewValidationError(fmt.Sprintf("bulk record %d has a recipient without an email", i+1), "bulkRecipients")
			}
			recipients = append(recipients, esign.BulkSendRecipient{
				Name:        r.Name,
				Email:       r.Email,
				RoleName:    r.RoleName,
				RecipientID: r.RecipientID,
			})
		}
		list.BulkCopies = append(list.BulkCopies, esign.BulkSendCopy{Recipients: recipients})
	}
	return list, nil
}

var recipientSchema = map[string]interface{}{
	"type":     "object",
	"required": []string{"name", "email"},
	"properties": map[string]interface{}{
		"name":        map[string]interface{}{"type": "string", "minLength": 1},
		"email":       map[string]interface{}{"type": "string", "format": "email"},
		"roleName":    map[string]interface{}{"type": "string"},
		"recipientId": map[string]interface{}{"type": "string"},
	},
}

var bulkSchema = map[string]interface{}{
	"type":     "array",
	"minItems": 1,
	"items": map[string]interface{}{
		"oneOf": []interface{}{
			recipientSchema,
			map[string]interface{}{"type": "array", "minItems": 1, "items": recipientSchema},
		},
	},
}

// ParseBulkJSON reads a JSON array whose items are either a recipient object
// (one copy for one recipient) or an array of recipient objects (one shared copy).
func ParseBulkJSON(data []byte) ([]BulkRecord, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(bulkSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("bulk recipients are not valid JSON: %v", err), "bulkRecipients")
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.NewValidationError(strings.Join(msgs, "; "), "bulkRecipients")
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.NewValidationError(err.Error(), "bulkRecipients")
	}

	records := make([]BulkRecord, 0, len(items))
	for _, item := range items {
		var rec BulkRecord
		if trimmed := bytes.TrimSpace(item); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(item, &rec.Recipients); err != nil {
				return nil, errors.NewValidationError(err.Error(), "bulkRecipients")
			}
		} else {
			var r BulkRecipient
			if err := json.Unmarshal(item, &r); err != nil {
				return nil, errors.NewValidationError(err.Error(), "bulkRecipients")
			}
			rec.Recipients = []BulkRecipient{r}
		}
		records = append(records, withDefaultRole(rec))
	}
	return records, nil
}

// ParseBulkCSV reads a CSV file with a name,email header. Each row is one copy.
func ParseBulkCSV(r io.Reader) ([]BulkRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewValidationError("bulk CSV is empty", "bulkRecipients")
	}
	if err != nil {
		return nil, errors.NewValidationError(fmt.Sprintf("bulk CSV header: %v", err), "bulkRecipients")
	}

	nameCol, emailCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case "name":
			nameCol = i
		case "email":
			emailCol = i
		}
	}
	if nameCol < 0 || emailCol < 0 {
		return nil, errors.NewValidationError("bulk CSV header must contain name and email columns", "bulkRecipients")
	}

	var records []BulkRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.NewValidationError(fmt.Sprintf("bulk CSV line %d: %v", line, err), "bulkRecipients")
		}
		if nameCol >= len(row) || emailCol >= len(row) {
			return nil, errors.NewValidationError(fmt.Sprintf("bulk CSV line %d is missing columns", line), "bulkRecipients")
		}
		email := strings.TrimSpace(row[emailCol])
		if email == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("bulk CSV line %d has no email", line), "bulkRecipients")
		}
		records = append(records, withDefaultRole(BulkRecord{Recipients: []BulkRecipient{{
			Name:  strings.TrimSpace(row[nameCol]),
			Email: email,
		}}}))
	}
	if len(records) == 0 {
		return nil, errors.NewValidationError("bulk CSV has no recipients", "bulkRecipients")
	}
	return records, nil
}

func withDefaultRole(rec BulkRecord) BulkRecord {
	for i := range rec.Recipients {
		if rec.Recipients[i].RoleName == "" {
			rec.Recipients[i].RoleName = DefaultBulkRole
		}
	}
	return rec
}
