package embeddedsigning

import (
	"context"

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

// Awaiting lists the envelopes waiting on the signed-in user.
func (s *Service) Awaiting(ctx context.Context, creds esign.Credentials) ([]esign.EnvelopeInfo, error) {
	return s.orchestrators(creds).ListAwaiting(ctx)
}

// Execute opens the signing ceremony on an existing envelope.
func (s *Service) Execute(ctx context.Context, creds esign.Credentials, input *Input) (*Output, error) {
	view, err := envelope.NewRecipientView(envelope.ViewInput{
		Email:                input.SignerEmail,
		UserName:             input.SignerName,
		ReturnURL:            s.config.ReturnURL,
		State:                s.config.ReturnState,
		PingURL:              s.config.PingURL,
		PingInterval:         s.config.PingInterval,
		AuthenticationMethod: s.config.AuthenticationMethod,
	})
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrators(creds).RecipientView(ctx, input.EnvelopeID, view)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recipient view created", map[string]interface{}{
		"envelopeId": result.EnvelopeID,
	})
	return &Output{EnvelopeID: result.EnvelopeID, RedirectURL: result.RedirectURL}, nil
}
