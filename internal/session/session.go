// Package session keeps per-browser state in Redis: the OAuth token written by
// the authentication service, the workflow to resume after re-authentication,
// and one-shot flash messages.
package session

import (
	"time"

	"esign-workflows/internal/common/esign"
)

type Session struct {
	ID              string    `json:"id"`
	AccessToken     string    `json:"accessToken,omitempty"`
	ExpiresAt       time.Time `json:"expiresAt,omitempty"`
	BasePath        string    `json:"basePath,omitempty"`
	AccountID       string    `json:"accountId,omitempty"`
	UserName        string    `json:"userName,omitempty"`
	UserEmail       string    `json:"userEmail,omitempty"`
	PendingWorkflow string    `json:"pendingWorkflow,omitempty"`
	LastEnvelopeID  string    `json:"lastEnvelopeId,omitempty"`
	Flash           []string  `json:"flash,omitempty"`
}

// CheckToken reports whether the token will still be valid buffer from now.
func (s *Session) CheckToken(now time.Time, buffer time.Duration) bool {
	if s == nil || s.AccessToken == "" || s.AccountID == "" || s.BasePath == "" {
		return false
	}
	return now.Add(buffer).Before(s.ExpiresAt)
}

func (s *Session) Credentials() esign.Credentials {
	return esign.Credentials{
		AccessToken: s.AccessToken,
		BasePath:    s.BasePath,
		AccountID:   s.AccountID,
	}
}

func (s *Session) AddFlash(msg string) {
	s.Flash = append(s.Flash, msg)
}

// PopFlash returns queued messages and clears them.
func (s *Session) PopFlash() []string {
	msgs := s.Flash
	s.Flash = nil
	return msgs
}

func (s *Session) SetPending(workflowID string) {
	s.PendingWorkflow = workflowID
}

// TakePending returns the workflow to resume and clears the marker.
func (s *Session) TakePending() string {
	id := s.PendingWorkflow
	s.PendingWorkflow = ""
	return id
}
