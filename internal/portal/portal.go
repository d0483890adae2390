// Package portal assembles the workflow handlers, their registry and the HTTP router.
package portal

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/http"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/database"
	"esign-workflows/internal/common/esign"
	httpclient "esign-workflows/internal/common/http"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/documents"
	"esign-workflows/internal/orchestrator"
	"esign-workflows/internal/session"
	"esign-workflows/internal/web"
	"esign-workflows/internal/workflows"
	bulksend "esign-workflows/internal/workflows/bulk-send"
	embeddedsending "esign-workflows/internal/workflows/embedded-sending"
	embeddedsigning "esign-workflows/internal/workflows/embedded-signing"
	smsauthentication "esign-workflows/internal/workflows/sms-authentication"
	"esign-workflows/pkg/registry"

	"go.opentelemetry.io/otel/trace"
)

type Options struct {
	Config    *config.Config
	Redis     *database.RedisClient
	Documents documents.Library
	Orphans   orchestrator.OrphanReporter
	// HTTPClient defaults to a client bounded by docusign.request_timeout.
	HTTPClient *httpclient.Client
	Tracer     trace.Tracer
	Recorder   orchestrator.Recorder
	Logger     logger.Logger
}

type Portal struct {
	Handler       http.Handler
	Registry      *registry.WorkflowRegistry
	Sessions      *session.Store
	Orchestrators orchestrator.Factory
}

func New(opts Options) (*Portal, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.NewClient(config.GetDuration(cfg.DocuSign.RequestTimeout))
	}

	renderer, err := web.NewRenderer(cfg.App.Name, log)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	store := session.NewStore(opts.Redis, cfg.Session)
	deps := workflows.Deps{
		AppConfig: cfg,
		Gate:      session.NewAuthGate(store, cfg.DocuSign, log),
		Sessions:  store,
		Renderer:  renderer,
		Orchestrators: NewFactory(FactoryOptions{
			HTTPClient: hc,
			Poll:       orchestrator.PolicyFromConfig(cfg.Workflow.Poll),
			Orphans:    opts.Orphans,
			Tracer:     opts.Tracer,
			Recorder:   opts.Recorder,
			Logger:     log,
		}),
		Documents: opts.Documents,
		Logger:    log,
	}

	handlers, err := Workflows(deps)
	if err != nil {
		return nil, err
	}

	reg, err := Registry(cfg.App, handlers)
	if err != nil {
		return nil, err
	}

	router := web.NewRouter(web.RouterOptions{
		Renderer:  renderer,
		Sessions:  store,
		Registry:  reg,
		Workflows: handlers,
		Redis:     opts.Redis,
		Logger:    log,
	})

	log.Info("Portal assembled", map[string]interface{}{
		"workflows": len(handlers),
		"version":   reg.Version,
	})
	return &Portal{
		Handler:       router,
		Registry:      reg,
		Sessions:      store,
		Orchestrators: deps.Orchestrators,
	}, nil
}

// Workflows builds every enabled workflow handler. sms-authentication is
// skipped when there is no document library.
func Workflows(deps workflows.Deps) ([]web.Workflow, error) {
	var handlers []web.Workflow

	bulk, err := bulksend.NewHandler(bulksend.HandlerOptions{Deps: deps})
	if err != nil {
		return nil, err
	}
	if bulk.IsEnabled() {
		handlers = append(handlers, bulk)
	}

	sending, err := embeddedsending.NewHandler(embeddedsending.HandlerOptions{Deps: deps})
	if err != nil {
		return nil, err
	}
	if sending.IsEnabled() {
		handlers = append(handlers, sending)
	}

	signing, err := embeddedsigning.NewHandler(embeddedsigning.HandlerOptions{Deps: deps})
	if err != nil {
		return nil, err
	}
	if signing.IsEnabled() {
		handlers = append(handlers, signing)
	}

	if deps.Documents != nil {
		sms, err := smsauthentication.NewHandler(smsauthentication.HandlerOptions{Deps: deps})
		if err != nil {
			return nil, err
		}
		if sms.IsEnabled() {
			handlers = append(handlers, sms)
		}
	} else if deps.Logger != nil {
		deps.Logger.Warn("No document library, sms-authentication disabled", nil)
	}

	return handlers, nil
}

// Registry describes the handlers, overlaid with the descriptive fields of
// the registry file when one exists.
func Registry(app config.AppConfig, handlers []web.Workflow) (*registry.WorkflowRegistry, error) {
	descriptors := make([]registry.Workflow, 0, len(handlers))
	for _, h := range handlers {
		descriptors = append(descriptors, h.Descriptor())
	}
	reg := registry.New(app.Version, descriptors...)

	if app.RegistryPath != "" {
		file, err := registry.LoadRegistry(app.RegistryPath)
		switch {
		case stderrors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("load workflow registry %s: %w", app.RegistryPath, err)
		default:
			reg.Overlay(file)
		}
	}

	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow registry: %w", err)
	}
	return reg, nil
}

type FactoryOptions struct {
	HTTPClient *httpclient.Client
	Poll       orchestrator.PollPolicy
	Orphans    orchestrator.OrphanReporter
	Tracer     trace.Tracer
	Recorder   orchestrator.Recorder
	Logger     logger.Logger
}

// NewFactory returns a Factory that builds a fresh eSignature client for each
// set of session credentials.
func NewFactory(opts FactoryOptions) orchestrator.Factory {
	return func(creds esign.Credentials) *orchestrator.Orchestrator {
		return orchestrator.New(esign.NewClient(creds, opts.HTTPClient), orchestrator.Options{
			Poll:     opts.Poll,
			Orphans:  opts.Orphans,
			Logger:   opts.Logger,
			Tracer:   opts.Tracer,
			Recorder: opts.Recorder,
		})
	}
}
