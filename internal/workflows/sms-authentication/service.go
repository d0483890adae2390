package smsauthentication

import (
	"context"
	"path"
	"strings"

	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/documents"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/orchestrator"
)

const signHereAnchor = "/sn1/"

type Service struct {
	config        *Config
	logger        logger.Logger
	orchestrators orchestrator.Factory
	documents     documents.Library
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:        config,
		logger:        deps.Logger,
		orchestrators: deps.Orchestrators,
		documents:     deps.Documents,
	}
}

// Execute sends the configured document to a signer who must enter a texted
// access code before opening it.
func (s *Service) Execute(ctx context.Context, creds esign.Credentials, input *Input) (*Output, error) {
	content, err := s.documents.Open(ctx, s.config.Document)
	if err != nil {
		return nil, err
	}

	def, err := envelope.Build(envelope.Input{
		Subject: s.config.Subject,
		Documents: []envelope.Document{{
			Content:   content,
			Name:      documentName(s.config.Document),
			Extension: strings.TrimPrefix(path.Ext(s.config.Document), "."),
			ID:        "1",
		}},
		Signers: []envelope.Signer{{
			Party:      envelope.Party{Name: input.SignerName, Email: input.SignerEmail},
			Tabs:       &esign.Tabs{SignHereTabs: []esign.Tab{envelope.SignHere(signHereAnchor, 20, 10)}},
			SMSNumbers: []string{input.PhoneNumber},
		}},
		Status: envelope.StatusSent,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrators(creds).SendEnvelope(ctx, def)
	if err != nil {
		return nil, err
	}

	s.logger.Info("SMS authenticated envelope sent", map[string]interface{}{
		"envelopeId": result.EnvelopeID,
	})
	return &Output{EnvelopeID: result.EnvelopeID}, nil
}

// documentName turns "World_Wide_Corp_lorem.html" into "World Wide Corp lorem".
func documentName(file string) string {
	return strings.ReplaceAll(strings.TrimSuffix(file, path.Ext(file)), "_", " ")
}
