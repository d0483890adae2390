package bulksend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"esign-workflows/internal/common/camunda"
	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/metrics"
	"esign-workflows/internal/common/validation"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/orchestrator"
	"esign-workflows/internal/session"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// TaskType is the Zeebe job type that runs a bulk send from a BPMN process.
const TaskType = "esign.bulk.send"

// JobHandler runs the bulk send sequence for Zeebe jobs. Credentials travel
// in the job variables because there is no browser session.
type JobHandler struct {
	config    *Config
	logger    logger.Logger
	camunda   *camunda.Client
	service   *Service
	errors    *errors.ErrorHandler
	jobWorker worker.JobWorker
	now       func() time.Time
}

type JobHandlerOptions struct {
	AppConfig     *config.Config
	Camunda       *camunda.Client
	CustomConfig  *Config
	Orchestrators orchestrator.Factory
	Logger        logger.Logger
}

func NewJobHandler(opts JobHandlerOptions) (*JobHandler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Orchestrators == nil {
		return nil, fmt.Errorf("orchestrator factory is required for %s", TaskType)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &JobHandler{
		config:  cfg,
		logger:  loggerInstance,
		camunda: opts.Camunda,
		errors:  errors.NewErrorHandler(loggerInstance),
		now:     time.Now,
		service: NewService(ServiceDependencies{
			Logger:        loggerInstance,
			Orchestrators: opts.Orchestrators,
		}, cfg),
	}, nil
}

func (h *JobHandler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("Processing bulk send job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	creds, input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	output, err := h.service.Execute(ctx, creds, input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	if err := h.completeJob(ctx, client, job, output); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

func (h *JobHandler) parseInput(job entities.Job) (esign.Credentials, *Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return esign.Credentials{}, nil, errors.NewValidationError(fmt.Sprintf("failed to parse job variables: %v", err))
	}

	result := validation.ValidateInput(variables, GetJobSchema())
	if !result.Valid {
		return esign.Credentials{}, nil, errors.NewValidationError(
			fmt.Sprintf("Validation errors: %v", result.GetErrorMessages()), result.Fields()...)
	}

	creds := esign.Credentials{
		AccessToken: variables["accessToken"].(string),
		BasePath:    variables["basePath"].(string),
		AccountID:   variables["accountId"].(string),
	}
	if err := h.checkToken(creds, variables["expiresAt"].(string)); err != nil {
		return creds, nil, err
	}

	deadline := variables["docDeadline"].(float64)
	if deadline != math.Trunc(deadline) {
		return creds, nil, errors.NewValidationError("docDeadline must be a whole number of days", "docDeadline")
	}

	document, err := decodeDocument("documentBase64", variables["documentBase64"].(string))
	if err != nil {
		return creds, nil, err
	}

	raw, err := json.Marshal(variables["bulkRecipients"])
	if err != nil {
		return creds, nil, errors.NewValidationError(err.Error(), "bulkRecipients")
	}
	records, err := envelope.ParseBulkJSON(raw)
	if err != nil {
		return creds, nil, err
	}

	input := &Input{
		DocName:      variables["docName"].(string),
		DeadlineDays: int(deadline),
		Document:     document,
		Records:      records,
		FileName:     "document.pdf",
	}
	if name, ok := variables["fileName"].(string); ok && name != "" {
		input.FileName = name
	}
	name, _ := variables["signerName"].(string)
	email, _ := variables["signerEmail"].(string)
	input.CarbonCopy = carbonCopy(name, email)

	return creds, input, nil
}

// checkToken applies the same submit buffer as the browser flow.
func (h *JobHandler) checkToken(creds esign.Credentials, expiresAt string) error {
	expiry, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil {
		return errors.NewValidationError("expiresAt must be an RFC 3339 timestamp", "expiresAt")
	}
	sess := &session.Session{
		AccessToken: creds.AccessToken,
		BasePath:    creds.BasePath,
		AccountID:   creds.AccountID,
		ExpiresAt:   expiry,
	}
	if sess.CheckToken(h.now(), h.config.TokenBuffer) {
		return nil
	}
	metrics.AuthExpiredTotal.WithLabelValues(WorkflowID, session.ForSubmit.String()).Inc()
	return errors.NewAuthExpiredError(fmt.Sprintf("access token expires at %s, within %s", expiry.Format(time.RFC3339), h.config.TokenBuffer)).
		WithMetadata("workflow", WorkflowID)
}

func outputVariables(output *Output) map[string]interface{} {
	return map[string]interface{}{
		"bulkSendSucceeded": true,
		"bulkListId":        output.ListID,
		"bulkEnvelopeId":    output.EnvelopeID,
		"bulkBatchId":       output.BatchID,
		"bulkQueued":        output.Queued,
		"bulkSent":          output.Sent,
		"bulkFailed":        output.Failed,
		"bulkPollAttempts":  output.Attempts,
	}
}

func (h *JobHandler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) error {
	send := func(ctx context.Context) error {
		request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(outputVariables(output))
		if err != nil {
			return errors.NewInternalError(err)
		}
		_, err = request.Send(ctx)
		return err
	}

	var err error
	if h.camunda != nil {
		err = h.camunda.ExecuteWithRetry(ctx, send, "complete job")
	} else {
		err = send(ctx)
	}
	if err != nil {
		return err
	}

	h.logger.Info("Successfully completed bulk send job", map[string]interface{}{
		"jobKey":     job.GetKey(),
		"envelopeId": output.EnvelopeID,
		"batchId":    output.BatchID,
		"queued":     output.Queued,
		"worker":     TaskType,
	})
	return nil
}

// failJob throws a BPMN error, or fails with retries for engine and session codes.
func (h *JobHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	bpmnErr := h.errors.HandleJobError(ctx, client, job, err)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, bpmnErr.Code).Inc()
}

func (h *JobHandler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("camunda client is required to register %s", TaskType)
	}

	h.jobWorker = camunda.StartJobWorker(h.camunda.GetClient(), camunda.WorkerOptions{
		TaskType:      TaskType,
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h.Handle, h.logger)
	return nil
}

func (h *JobHandler) Close() {
	if h.jobWorker != nil {
		h.logger.Info("Shutting down worker gracefully", map[string]interface{}{
			"worker": TaskType,
		})
		h.jobWorker.Close()
		h.jobWorker = nil
	}
}

func (h *JobHandler) HealthCheck(ctx context.Context) error {
	if h.camunda == nil {
		return fmt.Errorf("camunda client not configured")
	}
	if err := h.camunda.HealthCheck(ctx); err != nil {
		return fmt.Errorf("camunda health check failed: %w", err)
	}
	return nil
}

func (h *JobHandler) GetTaskType() string {
	return TaskType
}
