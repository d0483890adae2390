package session

import (
	"fmt"
	"net/http"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/metrics"
)

// Purpose selects how much token lifetime a request needs.
type Purpose int

const (
	// ForForm applies the long buffer, before the user has entered anything.
	ForForm Purpose = iota
	ForSubmit
)

func (p Purpose) String() string {
	if p == ForSubmit {
		return "submit"
	}
	return "form"
}

const ReauthenticateMessage = "Sorry, you need to re-authenticate."

// AuthGate checks token freshness before a workflow handler runs.
type AuthGate struct {
	store  *Store
	config config.DocuSignConfig
	logger logger.Logger
	now    func() time.Time
}

func NewAuthGate(store *Store, cfg config.DocuSignConfig, log logger.Logger) *AuthGate {
	return &AuthGate{store: store, config: cfg, logger: log, now: time.Now}
}

func (g *AuthGate) buffer(p Purpose) time.Duration {
	if p == ForSubmit {
		return time.Duration(g.config.SubmitTokenBufferMin) * time.Minute
	}
	return time.Duration(g.config.FormTokenBufferMin) * time.Minute
}

// Require returns the session when its token is fresh enough. Otherwise it
// records the workflow to resume, redirects to authentication and returns
// false; the caller must stop handling the request.
func (g *AuthGate) Require(w http.ResponseWriter, r *http.Request, workflowID string, purpose Purpose) (*Session, bool) {
	sess, err := g.store.Load(r)
	if err != nil {
		g.logger.Error("session load failed", map[string]interface{}{"error": err, "workflow": workflowID})
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
		return nil, false
	}

	if sess.CheckToken(g.now(), g.buffer(purpose)) {
		return sess, true
	}

	authErr := errors.NewAuthExpiredError(fmt.Sprintf("token must stay valid for %s", g.buffer(purpose))).
		WithMetadata("workflow", workflowID).
		WithMetadata("purpose", purpose.String())
	metrics.AuthExpiredTotal.WithLabelValues(workflowID, purpose.String()).Inc()

	if purpose == ForSubmit {
		sess.AddFlash(ReauthenticateMessage)
	}
	sess.SetPending(workflowID)
	if err := g.store.Persist(w, r, sess); err != nil {
		g.logger.Error("session save failed", map[string]interface{}{"error": err, "workflow": workflowID})
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
		return nil, false
	}

	g.logger.Info("re-authentication required", map[string]interface{}{
		"workflow": workflowID,
		"purpose":  purpose.String(),
		"code":     authErr.Code,
		"error":    authErr,
	})
	http.Redirect(w, r, g.config.MustAuthenticatePath, http.StatusFound)
	return nil, false
}
