package embeddedsigning

import (
	"fmt"
	"net/http"
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

const WorkflowID = orchestrator.WorkflowEmbeddedSigning

var formFields = []string{"envID", "signerEmail", "signerName"}

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
		return nil, fmt.Errorf("invalid dependencies for embedded-signing: %w", err)
	}

	cfg := createConfigFromAppConfig(opts.Deps.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for embedded-signing: %w", err)
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
		DisplayName: "Upcoming submissions",
		Description: "Sign an envelope that is waiting on you, without leaving the portal.",
		Category:    "signing",
		Path:        "/" + WorkflowID,
		ErrorCodes: []string{
			string(errors.ErrCodeValidationFailed),
			string(errors.ErrCodeRemoteAPIError),
		},
		Tags: []string{"embedded", "recipient-view"},
	}
}

// GetForm lists the envelopes awaiting the user's signature.
func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.deps.Gate.Require(w, r, WorkflowID, session.ForForm)
	if !ok {
		return
	}

	ctx, cancel := workflows.RunContext(r, h.config.Timeout)
	defer cancel()

	awaiting, err := h.service.Awaiting(ctx, sess.Credentials())
	if err != nil {
		h.deps.Renderer.Error(w, err)
		return
	}

	h.deps.Renderer.Render(w, http.StatusOK, WorkflowID, web.Page{
		Title: "Upcoming submissions",
		Form: map[string]string{
			"signerName":  sess.UserName,
			"signerEmail": sess.UserEmail,
		},
		Data: awaiting,
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
	if input.SignerName == "" {
		input.SignerName = sess.UserName
	}
	if input.SignerEmail == "" {
		input.SignerEmail = sess.UserEmail
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

	http.Redirect(w, r, output.RedirectURL, http.StatusFound)
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) (*Input, error) {
	if err := workflows.ParseForm(w, r, 0); err != nil {
		return nil, err
	}

	values := sanitize.Form(r.PostForm, formFields...)
	if err := workflows.CheckForm(values, GetFormSchema()); err != nil {
		return nil, err
	}

	return &Input{
		EnvelopeID:  values["envID"],
		SignerEmail: values["signerEmail"],
		SignerName:  values["signerName"],
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
		cfg.ReturnURL = appConfig.DocuSign.ReturnURL()
		cfg.ReturnState = appConfig.DocuSign.ReturnState
		cfg.PingURL = appConfig.DocuSign.PingURL()
	}

	return cfg
}
