// Package orchestrator runs the ordered eSignature call sequences behind each
// workflow. A sequence stops at the first failing step and never rolls back.
package orchestrator

import (
	"context"
	stderrors "errors"
	"time"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/metrics"
	"esign-workflows/internal/envelope"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Step names, reported in errors, spans and orphan reports.
const (
	StepCreateBulkList      = "create_bulk_list"
	StepCreateEnvelope      = "create_envelope"
	StepAddBulkRecipient    = "add_bulk_recipient"
	StepAttachCustomField   = "attach_custom_field"
	StepSubmitBulkSend      = "submit_bulk_send"
	StepGetBatchStatus      = "get_batch_status"
	StepCreateRecipientView = "create_recipient_view"
	StepCreateSenderView    = "create_sender_view"
	StepListStatusChanges   = "list_status_changes"
)

const (
	WorkflowBulkSend          = "bulk-send"
	WorkflowEmbeddedSending   = "embedded-sending"
	WorkflowEmbeddedSigning   = "embedded-signing"
	WorkflowSMSAuthentication = "sms-authentication"
)

// API is the slice of the eSignature client the orchestrator drives.
type API interface {
	CreateBulkSendList(ctx context.Context, list *esign.BulkSendingList) (*esign.BulkSendingList, error)
	CreateEnvelope(ctx context.Context, def *esign.EnvelopeDefinition) (*esign.EnvelopeSummary, error)
	CreateRecipients(ctx context.Context, envelopeID string, recipients *esign.Recipients) (*esign.RecipientsUpdateSummary, error)
	CreateCustomFields(ctx context.Context, envelopeID string, fields *esign.CustomFields) (*esign.CustomFields, error)
	CreateBulkSendRequest(ctx context.Context, listID string, req *esign.BulkSendRequest) (*esign.BulkSendResponse, error)
	GetBulkSendBatchStatus(ctx context.Context, batchID string) (*esign.BulkSendBatchStatus, error)
	CreateRecipientView(ctx context.Context, envelopeID string, req *esign.RecipientViewRequest) (*esign.ViewURL, error)
	CreateSenderView(ctx context.Context, envelopeID string, req *esign.ReturnURLRequest) (*esign.ViewURL, error)
	ListStatusChanges(ctx context.Context, opts esign.ListStatusChangesOptions) (*esign.EnvelopesInformation, error)
}

// Orphan is a draft envelope left on the account by a workflow that failed after creating it.
type Orphan struct {
	Workflow   string
	EnvelopeID string
	Step       string
	Err        error
}

type OrphanReporter interface {
	Report(ctx context.Context, orphan Orphan) error
}

// Recorder receives workflow and step timings. *observability.Observability satisfies it.
type Recorder interface {
	RecordWorkflow(ctx context.Context, workflow, status string, duration time.Duration)
	RecordStep(ctx context.Context, step, status string, duration time.Duration)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Options struct {
	Poll     PollPolicy
	Orphans  OrphanReporter
	Logger   logger.Logger
	Tracer   trace.Tracer
	Recorder Recorder
	Sleeper  Sleeper
}

type Orchestrator struct {
	api      API
	poll     PollPolicy
	orphans  OrphanReporter
	log      logger.Logger
	tracer   trace.Tracer
	recorder Recorder
	sleep    Sleeper
}

// Factory builds an orchestrator bound to one caller's credentials.
type Factory func(creds esign.Credentials) *Orchestrator

func New(api API, opts Options) *Orchestrator {
	o := &Orchestrator{
		api:      api,
		poll:     opts.Poll.normalized(),
		orphans:  opts.Orphans,
		log:      opts.Logger,
		tracer:   opts.Tracer,
		recorder: opts.Recorder,
		sleep:    opts.Sleeper,
	}
	if o.log == nil {
		o.log = logger.NewNoOpLogger()
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer("orchestrator")
	}
	if o.sleep == nil {
		o.sleep = contextSleep
	}
	return o
}

// WorkflowResult is the terminal outcome of a successful run.
type WorkflowResult struct {
	EnvelopeID  string
	ListID      string
	BatchID     string
	RedirectURL string
	Queued      int
	BatchStatus *esign.BulkSendBatchStatus
	Attempts    int
}

// draft is set while the run's envelope exists but has not been sent. Only
// failures in that window leave an orphan behind.
type run struct {
	o          *Orchestrator
	workflow   string
	envelopeID string
	draft      bool
}

func (o *Orchestrator) start(ctx context.Context, workflow string, fn func(ctx context.Context, r *run) error) error {
	ctx, span := o.tracer.Start(ctx, "workflow "+workflow, trace.WithAttributes(attribute.String("workflow", workflow)))
	defer span.End()

	started := time.Now()
	r := &run{o: o, workflow: workflow}
	err := fn(ctx, r)

	outcome := "success"
	if err != nil {
		outcome = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.WorkflowRunsTotal.WithLabelValues(workflow, outcome).Inc()
	if o.recorder != nil {
		o.recorder.RecordWorkflow(ctx, workflow, outcome, time.Since(started))
	}
	return err
}

// step runs one remote call. A failure is wrapped as a RemoteAPIError naming
// the step, and reported as an orphan while the envelope is still a draft.
func (r *run) step(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	o := r.o
	ctx, span := o.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("workflow", r.workflow)))
	started := time.Now()
	err := fn(ctx)
	elapsed := time.Since(started)

	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	if o.recorder != nil {
		o.recorder.RecordStep(ctx, name, status, elapsed)
	}

	if err == nil {
		o.log.Debug("step completed", map[string]interface{}{
			"workflow": r.workflow,
			"step":     name,
			"duration": elapsed.String(),
		})
		return nil
	}

	stepErr := errors.NewRemoteAPIError(name, err)
	var apiErr *esign.APIError
	if stderrors.As(err, &apiErr) {
		stepErr.WithMetadata(errors.MetaStatusCode, apiErr.StatusCode).
			WithMetadata(errors.MetaProviderErrorCode, apiErr.ErrorCode).
			WithMetadata(errors.MetaProviderMessage, apiErr.Message)
	}
	if r.envelopeID != "" {
		stepErr.WithMetadata(errors.MetaEnvelopeID, r.envelopeID)
	}

	o.log.Error("step failed", map[string]interface{}{
		"workflow":   r.workflow,
		"step":       name,
		"envelopeId": r.envelopeID,
		"error":      err,
	})

	if r.draft {
		stepErr.WithMetadata(errors.MetaOrphaned, true)
		r.reportOrphan(ctx, name, stepErr)
	}
	return stepErr
}

func (r *run) reportOrphan(ctx context.Context, step string, err error) {
	if r.o.orphans == nil {
		return
	}
	orphan := Orphan{Workflow: r.workflow, EnvelopeID: r.envelopeID, Step: step, Err: err}
	if reportErr := r.o.orphans.Report(context.WithoutCancel(ctx), orphan); reportErr != nil {
		r.o.log.Warn("orphan report failed", map[string]interface{}{
			"workflow":   r.workflow,
			"envelopeId": r.envelopeID,
			"error":      reportErr,
		})
	}
}

func (r *run) createEnvelope(ctx context.Context, def *esign.EnvelopeDefinition) error {
	return r.step(ctx, StepCreateEnvelope, func(ctx context.Context) error {
		summary, err := r.o.api.CreateEnvelope(ctx, def)
		if err != nil {
			return err
		}
		r.envelopeID = summary.EnvelopeID
		r.draft = def.Status == envelope.StatusCreated
		return nil
	})
}

// sent marks the draft as handed over to the provider for delivery.
func (r *run) sent() {
	r.draft = false
}

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
