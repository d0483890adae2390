package smsauthentication

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

const WorkflowID = orchestrator.WorkflowSMSAuthentication

var formFields = []string{"signerEmail", "signerName", "phoneNumber"}

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
		return nil, fmt.Errorf("invalid dependencies for sms-authentication: %w", err)
	}
	if opts.Deps.Documents == nil {
		return nil, fmt.Errorf("invalid dependencies for sms-authentication: document library is required")
	}

	cfg := createConfigFromAppConfig(opts.Deps.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for sms-authentication: %w", err)
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
			Documents:     opts.Deps.Documents,
		}, cfg),
	}, nil
}

func (h *Handler) Descriptor() registry.Workflow {
	return registry.Workflow{
		ID:          WorkflowID,
		DisplayName: "SMS authentication",
		Description: "Send a document whose signer must enter a code texted to their phone.",
		Category:    "sending",
		Path:        "/" + WorkflowID,
		ErrorCodes: []string{
			string(errors.ErrCodeValidationFailed),
			string(errors.ErrCodeRemoteAPIError),
		},
		Tags: []string{"remote", "recipient-authentication"},
	}
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.deps.Gate.Require(w, r, WorkflowID, session.ForForm); !ok {
		return
	}
	h.deps.Renderer.Render(w, http.StatusOK, WorkflowID, web.Page{
		Title: "Signing request by email",
		Form:  map[string]string{},
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

	h.deps.Renderer.Done(w, web.DonePage{
		Title:   "Envelope sent",
		Heading: "Envelope sent",
		Message: "The envelope has been created and sent!",
		Details: []string{"Envelope ID " + output.EnvelopeID + "."},
	})
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
		SignerEmail: values["signerEmail"],
		SignerName:  values["signerName"],
		PhoneNumber: values["phoneNumber"],
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
		if appConfig.Documents.SMSDocument != "" {
			cfg.Document = appConfig.Documents.SMSDocument
		}
	}

	return cfg
}
