package embeddedsigning

import (
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/orchestrator"
)

// Input identifies an existing envelope and the signer opening it.
type Input struct {
	EnvelopeID  string
	SignerEmail string
	SignerName  string
}

type Output struct {
	EnvelopeID  string
	RedirectURL string
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Orchestrators orchestrator.Factory
}
