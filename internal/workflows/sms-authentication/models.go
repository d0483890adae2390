package smsauthentication

import (
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/documents"
	"esign-workflows/internal/orchestrator"
)

type Input struct {
	SignerEmail string
	SignerName  string
	PhoneNumber string
}

type Output struct {
	EnvelopeID string
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Orchestrators orchestrator.Factory
	Documents     documents.Library
}
