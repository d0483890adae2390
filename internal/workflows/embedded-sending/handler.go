package embeddedsending

import (
	"fmt"
	"net/http"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/sanitize"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/orchestrator"
	"esign-workflows/internal/session"
	"esign-workflows/internal/web"
	"esign-workflows/internal/workflows"
	"esign-workflows/pkg/registry"
)

const WorkflowID = orchestrator.WorkflowEmbeddedSending

var formFields = []string{"signerEmail", "signerName", "ccEmail", "ccName", "companyName", "volunHours", "startingView"}

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
		return nil, fmt.Errorf("invalid dependencies for embedded-sending: %w", err)
	}

	cfg := createConfigFromAppConfig(opts.Deps.AppConfig, opts.CustomConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for embedded-sending: %w", err)
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
		DisplayName: "Volunteer hours confirmation",
		Description: "Prepare a volunteer hours confirmation and finish it in the embedded sending view.",
		Category:    "sending",
		Path:        "/" + WorkflowID,
		ErrorCodes: []string{
			string(errors.ErrCodeValidationFailed),
			string(errors.ErrCodeRemoteAPIError),
		},
		Tags: []string{"embedded", "sender-view"},
	}
}

func (h *Handler) GetForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.deps.Gate.Require(w, r, WorkflowID, session.ForForm); !ok {
		return
	}
	h.deps.Renderer.Render(w, http.StatusOK, WorkflowID, web.Page{
		Title: "Volunteer hours confirmation",
		Form:  map[string]string{"startingView": envelope.StartingViewTagging},
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
	input.StudentName = sess.UserName

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
	if (values["ccEmail"] == "") != (values["ccName"] == "") {
		return nil, errors.NewValidationError("the carbon copy needs both a name and an email", "ccName", "ccEmail")
	}

	startingView := values["startingView"]
	if startingView == "" {
		startingView = envelope.StartingViewTagging
	}

	return &Input{
		SignerEmail:  values["signerEmail"],
		SignerName:   values["signerName"],
		CCEmail:      values["ccEmail"],
		CCName:       values["ccName"],
		CompanyName:  values["companyName"],
		VolunHours:   values["volunHours"],
		StartingView: startingView,
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
	}

	return cfg
}
