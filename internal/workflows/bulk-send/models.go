package bulksend

import (
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/orchestrator"
)

// Input is a bulk send request after parsing, from either the form or a job.
type Input struct {
	DocName      string
	DeadlineDays int
	FileName     string
	Document     []byte
	CarbonCopy   *envelope.Party
	Records      []envelope.BulkRecord
}

type Output struct {
	ListID      string                     `json:"listId"`
	EnvelopeID  string                     `json:"envelopeId"`
	BatchID     string                     `json:"batchId"`
	Queued      int                        `json:"queued"`
	Sent        int                        `json:"sent"`
	Failed      int                        `json:"failed"`
	Attempts    int                        `json:"attempts"`
	BatchStatus *esign.BulkSendBatchStatus `json:"batchStatus,omitempty"`
}

type ServiceDependencies struct {
	Logger        logger.Logger
	Orchestrators orchestrator.Factory
}
