package bulksend

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/orchestrator"
)

type Service struct {
	config        *Config
	logger        logger.Logger
	orchestrators orchestrator.Factory
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:        config,
		logger:        deps.Logger,
		orchestrators: deps.Orchestrators,
	}
}

// Execute builds the list and draft, then runs the bulk send sequence with creds.
func (s *Service) Execute(ctx context.Context, creds esign.Credentials, input *Input) (*Output, error) {
	s.logger.Info("Executing bulk send", map[string]interface{}{
		"docName":      input.DocName,
		"deadlineDays": input.DeadlineDays,
		"copies":       len(input.Records),
	})

	list, err := envelope.BuildBulkList(s.config.ListName, input.Records)
	if err != nil {
		return nil, err
	}

	draft, err := envelope.BuildBulkDraft(envelope.BulkDraftInput{
		Subject: input.DocName,
		Document: envelope.Document{
			Content:   input.Document,
			Name:      input.FileName,
			Extension: fileExtension(input.FileName),
		},
		DeadlineDays: input.DeadlineDays,
		WarnDays:     s.config.WarnDays,
		CarbonCopy:   input.CarbonCopy,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrators(creds).BulkSend(ctx, orchestrator.BulkSendInput{List: list, Envelope: draft})
	if err != nil {
		return nil, err
	}

	output := &Output{
		ListID:      result.ListID,
		EnvelopeID:  result.EnvelopeID,
		BatchID:     result.BatchID,
		Queued:      result.Queued,
		Attempts:    result.Attempts,
		BatchStatus: result.BatchStatus,
	}
	if result.BatchStatus != nil {
		output.Sent = result.BatchStatus.SentCount()
		output.Failed = result.BatchStatus.FailedCount()
	}

	s.logger.Info("Bulk send submitted", map[string]interface{}{
		"listId":     output.ListID,
		"envelopeId": output.EnvelopeID,
		"batchId":    output.BatchID,
		"queued":     output.Queued,
		"sent":       output.Sent,
		"failed":     output.Failed,
	})
	return output, nil
}

// decodeDocument accepts a data URL or bare base64.
func decodeDocument(field, value string) ([]byte, error) {
	if i := strings.Index(value, ","); i >= 0 && strings.HasPrefix(value, "data:") {
		value = value[i+1:]
	}
	content, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(content) == 0 {
		return nil, errors.NewValidationError("document is not valid base64", field)
	}
	return content, nil
}

// fileExtension returns "" when the name has none, leaving the draft's pdf default.
func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// parseRecipients reads the recipient list from whichever of the JSON or CSV inputs is set.
func parseRecipients(jsonText, csvText string) ([]envelope.BulkRecord, error) {
	switch {
	case jsonText != "" && csvText != "":
		return nil, errors.NewValidationError("provide either a JSON or a CSV recipient list, not both", "bulkJSONFile", "bulkCSVFile")
	case jsonText != "":
		return envelope.ParseBulkJSON([]byte(jsonText))
	case csvText != "":
		return envelope.ParseBulkCSV(strings.NewReader(csvText))
	default:
		return nil, errors.NewValidationError("a recipient list is required", "bulkJSONFile", "bulkCSVFile")
	}
}

func carbonCopy(name, email string) *envelope.Party {
	if email == "" {
		return nil
	}
	return &envelope.Party{Name: name, Email: email}
}
