package bulksend

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/sanitize"
	"esign-workflows/internal/orchestrator"
	"esign-workflows/internal/session"
	"esign-workflows/internal/web"
	"esign-workflows/internal/workflows"
	"esign-workflows/pkg/registry"
)

const WorkflowID = orchestrator.WorkflowBulkSend

var (
	textFields = []string{"docName", "docDeadline", "inputFiles", "signerName", "signerEmail"}
	dataFields = []string{"fileBase64", "bulkJSONFile", "bulkCSVFile"}
)

// Handler serves the bulk send form and its submission.
type Handler struct {
	config  *Config
	deps    workflows.Deps
	logger  logger.Logger
	service *Service
}

type HandlerOptions struct {
	Deps         workflows.Deps
	CustomConfig *Config
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if err := opts.Deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies for bulk-send: %w", err)
	}

	cfg := createConfigFromAppConfig(opts.Deps.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for bulk-send: %w", err)
	}

	log := opts.Deps.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
		opts.Deps.Logger = log
	}
	log = log.Named(WorkflowID)

	return &Handler{
		config: cfg,
		deps:   opts.Deps,
		logger: log,
		service: NewService(ServiceDependencies{
			Logger:        log,
			Orchestrators: opts.Deps.Orchestrators,
		}, cfg),
	}, nil
}

func (h *Handler) Descriptor() registry.Workflow {
	return registry.Workflow{
		ID:          WorkflowID,
		DisplayName: "Bulk send",
		Description: "Send one document to every recipient on an uploaded JSON or CSV list.",
		Category:    "sending",
		Path:        "/" + WorkflowID,
		TaskType:    TaskType,
		ErrorCodes: []string{
			string(errors.ErrCodeValidationFailed),
			string(errors.ErrCodeRemoteAPIError),
			string(errors.ErrCodeBatchPollTimeout),
		},
		Tags: []string{"bulk", "expiration"},
	}
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.deps.Gate.Require(w, r, WorkflowID, session.ForForm); !ok {
		return
	}
	h.deps.Renderer.Render(w, http.StatusOK, WorkflowID, web.Page{
		Title: "Bulk send",
		Form:  map[string]string{"docDeadline": "30"},
	})
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.deps.Gate.Require(w, r, WorkflowID, session.ForSubmit)
	if !ok {
		return
	}

	input, err := h.parseForm(w, r)
	if err != nil {
		h.deps.Renderer.Error(w, err)
		return
	}

	ctx, cancel := workflows.RunContext(r, h.config.Timeout)
	defer cancel()

	output, err := h.service.Execute(ctx, sess.Credentials(), input)
	if err != nil {
		h.deps.Renderer.Error(w, err)
		return
	}

	sess.LastEnvelopeID = output.EnvelopeID
	h.deps.SaveSession(w, r, sess)

	details := []string{
		"Bulk list ID " + output.ListID + ".",
		"Batch ID " + output.BatchID + ".",
	}
	if output.Failed > 0 {
		details = append(details, fmt.Sprintf("%d copies failed to send.", output.Failed))
	}
	h.deps.Renderer.Done(w, web.DonePage{
		Title:   "Bulk sent",
		Heading: "Bulk send envelope was successfully performed!",
		Message: fmt.Sprintf("Bulk request queued to %d user lists.", output.Queued),
		Details: details,
	})
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*Input, error) {
	if err := workflows.ParseForm(w, r, h.config.MaxFormBytes); err != nil {
		return nil, err
	}

	text := sanitize.Form(r.PostForm, textFields...)
	data := sanitize.Raw(r.PostForm, dataFields...)

	values := make(map[string]string, len(text)+len(data))
	for k, v := range text {
		values[k] = v
	}
	for k, v := range data {
		values[k] = v
	}
	if err := workflows.CheckForm(values, GetFormSchema()); err != nil {
		return nil, err
	}
	if text["signerEmail"] != "" && text["signerName"] == "" {
		return nil, errors.NewValidationError("a carbon copy needs a name", "signerName")
	}

	deadline, _ := strconv.Atoi(text["docDeadline"])
	document, err := decodeDocument("fileBase64", data["fileBase64"])
	if err != nil {
		return nil, err
	}
	records, err := parseRecipients(data["bulkJSONFile"], data["bulkCSVFile"])
	if err != nil {
		return nil, err
	}

	return &Input{
		DocName:      text["docName"],
		DeadlineDays: deadline,
		FileName:     text["inputFiles"],
		Document:     document,
		CarbonCopy:   carbonCopy(text["signerName"], text["signerEmail"]),
		Records:      records,
	}, nil
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if workerCfg, exists := appConfig.Workers[WorkflowID]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = time.Duration(workerCfg.Timeout) * time.Millisecond
			}
		}
		if appConfig.Workflow.BulkListName != "" {
			cfg.ListName = appConfig.Workflow.BulkListName
		}
		if appConfig.Workflow.ExpireWarnDays > 0 {
			cfg.WarnDays = appConfig.Workflow.ExpireWarnDays
		}
		cfg.PollBudget = orchestrator.PolicyFromConfig(appConfig.Workflow.Poll).Budget()
		if appConfig.DocuSign.SubmitTokenBufferMin > 0 {
			cfg.TokenBuffer = time.Duration(appConfig.DocuSign.SubmitTokenBufferMin) * time.Minute
		}
	}

	return cfg
}
