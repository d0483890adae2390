package embeddedsending

import (
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/orchestrator"
)

type Input struct {
	SignerEmail  string
	SignerName   string
	CCEmail      string
	CCName       string
	CompanyName  string
	VolunHours   string
	StudentName  string
	StartingView string
}

type Output struct {
	EnvelopeID  string
	RedirectURL string
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Orchestrators orchestrator.Factory
}
