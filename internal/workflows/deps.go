// Package workflows holds what the per-workflow handler packages share: their
// dependencies and the request plumbing around the auth gate.
package workflows

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/validation"
	"esign-workflows/internal/documents"
	"esign-workflows/internal/orchestrator"
	"esign-workflows/internal/session"
	"esign-workflows/internal/web"
)

// DefaultMaxFormBytes bounds a form post; bulk-send carries a base64 document.
const DefaultMaxFormBytes = 32 << 20

type Deps struct {
	AppConfig     *config.Config
	Gate          *session.AuthGate
	Sessions      *session.Store
	Renderer      *web.Renderer
	Orchestrators orchestrator.Factory
	Documents     documents.Library
	Logger        logger.Logger
}

// Validate checks the dependencies every form workflow needs. Documents is
// only checked by the workflows that read from the library.
func (d Deps) Validate() error {
	switch {
	case d.AppConfig == nil:
		return fmt.Errorf("app config is required")
	case d.Gate == nil:
		return fmt.Errorf("auth gate is required")
	case d.Sessions == nil:
		return fmt.Errorf("session store is required")
	case d.Renderer == nil:
		return fmt.Errorf("renderer is required")
	case d.Orchestrators == nil:
		return fmt.Errorf("orchestrator factory is required")
	}
	return nil
}

// ParseForm reads a urlencoded or multipart POST body capped at maxBytes.
func ParseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFormBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		err = r.ParseMultipartForm(maxBytes)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return errors.NewValidationError(fmt.Sprintf("could not read form: %v", err))
	}
	return nil
}

// CheckForm validates sanitized form values against schema.
func CheckForm(values map[string]string, schema validation.JSONSchema) error {
	result := validation.ValidateForm(values, schema)
	if result.Valid {
		return nil
	}
	return errors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "), result.Fields()...)
}

// RunContext bounds a workflow run by timeout. The run outlives a client
// disconnect so a half-finished sequence is still logged and reported.
func RunContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
}

// SaveSession persists sess, logging rather than failing the request.
func (d Deps) SaveSession(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := d.Sessions.Persist(w, r, sess); err != nil {
		d.Logger.Warn("session save failed", map[string]interface{}{"error": err})
	}
}
