package embeddedsending

import (
	"context"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/orchestrator"

	"github.com/flosch/pongo2/v6"
)

const (
	documentName  = "Hours Volunteered"
	signatureTag  = "**signature_1**"
	dateSignedTag = "**date_1**"
)

// The anchor strings are white so they do not show in the signed document.
var hoursDocument = pongo2.Must(pongo2.FromString(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="UTF-8">
  </head>
  <body style="font-family:sans-serif;margin-left:2em;">
    <h1 style="font-family: 'Trebuchet MS', Helvetica, sans-serif; color: darkblue; margin-bottom: 0;">Volunteer Hours Confirmation</h1>
    <h4>Hi {{ SignerName }},</h4>
    <p style="margin-top:0em; margin-bottom:0em;">Company: {{ CompanyName }}</p>
    <p style="margin-top:0em; margin-bottom:0em;">Hours volunteered: {{ VolunHours }}</p>
    <p style="margin-top:3em;">
      Please confirm that {{ StudentName }} volunteered for the amount of hours stated above at {{ CompanyName }}.
    </p>
    <h3 style="margin-top:3em;">Sign Here: <span style="color:white;">` + signatureTag + `/</span></h3>
    <h3 style="margin-top:3em;">Date: <span style="color:white;">` + dateSignedTag + `/</span></h3>
  </body>
</html>
`))

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

// Execute creates the confirmation draft and returns the sender view URL.
func (s *Service) Execute(ctx context.Context, creds esign.Credentials, input *Input) (*Output, error) {
	def, err := s.buildEnvelope(input)
	if err != nil {
		return nil, err
	}

	view, err := envelope.NewSenderView(s.config.ReturnURL, s.config.ReturnState)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrators(creds).EmbeddedSending(ctx, orchestrator.SenderViewInput{
		Envelope:     def,
		View:         view,
		StartingView: input.StartingView,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sender view created", map[string]interface{}{
		"envelopeId":   result.EnvelopeID,
		"startingView": input.StartingView,
	})
	return &Output{EnvelopeID: result.EnvelopeID, RedirectURL: result.RedirectURL}, nil
}

func (s *Service) buildEnvelope(input *Input) (*esign.EnvelopeDefinition, error) {
	student := input.StudentName
	if student == "" {
		student = input.SignerName
	}

	doc, err := hoursDocument.ExecuteBytes(pongo2.Context{
		"SignerName":  input.SignerName,
		"CompanyName": input.CompanyName,
		"VolunHours":  input.VolunHours,
		"StudentName": student,
	})
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	in := envelope.Input{
		Subject: "Volunteer Hours Confirmation for " + student,
		Documents: []envelope.Document{{
			Content:   doc,
			Name:      documentName,
			Extension: "html",
			ID:        "1",
		}},
		Signers: []envelope.Signer{{
			Party: envelope.Party{Name: input.SignerName, Email: input.SignerEmail},
			Tabs: &esign.Tabs{
				SignHereTabs:   []esign.Tab{envelope.SignHere(signatureTag, 20, 10)},
				DateSignedTabs: []esign.Tab{envelope.DateSigned(dateSignedTag, 20, -5)},
			},
		}},
		Status:     envelope.StatusCreated,
		IDStamping: true,
		Expiration: &envelope.Expiration{
			AfterDays: s.config.ExpireAfterDays,
			WarnDays:  s.config.ExpireWarnDays,
		},
	}
	if input.CCEmail != "" {
		in.CarbonCopies = []envelope.Party{{Name: input.CCName, Email: input.CCEmail}}
	}
	return envelope.Build(in)
}
