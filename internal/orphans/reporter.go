package orphans

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/common/metrics"
	"esign-workflows/internal/orchestrator"
)

type EmailSender interface {
	SendText(ctx context.Context, to []string, subject, body string) error
}

type TopicPublisher interface {
	PublishText(ctx context.Context, subject, message string) error
}

type Config struct {
	ToAddresses []string
}

// Reporter records draft envelopes that a failed workflow left on the account
// so an operator can void them. Email and topic delivery are both optional.
type Reporter struct {
	config Config
	email  EmailSender
	topic  TopicPublisher
	logger logger.Logger
}

func NewReporter(config Config, log logger.Logger, email EmailSender, topic TopicPublisher) *Reporter {
	return &Reporter{config: config, email: email, topic: topic, logger: log}
}

func (r *Reporter) Report(ctx context.Context, orphan orchestrator.Orphan) error {
	metrics.OrphanedEnvelopesTotal.WithLabelValues(orphan.Workflow, orphan.Step).Inc()

	r.logger.Warn("orphaned draft envelope", map[string]interface{}{
		"workflow":   orphan.Workflow,
		"envelopeId": orphan.EnvelopeID,
		"step":       orphan.Step,
		"error":      orphan.Err,
	})

	subject := fmt.Sprintf("Orphaned envelope %s (%s)", orphan.EnvelopeID, orphan.Workflow)
	body := formatBody(orphan)

	var errs []error
	if r.email != nil && len(r.config.ToAddresses) > 0 {
		if err := r.email.SendText(ctx, r.config.ToAddresses, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("email orphan report: %w", err))
		}
	}
	if r.topic != nil {
		if err := r.topic.PublishText(ctx, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("publish orphan report: %w", err))
		}
	}
	return stderrors.Join(errs...)
}

func formatBody(orphan orchestrator.Orphan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workflow: %s\n", orphan.Workflow)
	fmt.Fprintf(&b, "Envelope ID: %s\n", orphan.EnvelopeID)
	fmt.Fprintf(&b, "Failed step: %s\n", orphan.Step)
	if orphan.Err != nil {
		fmt.Fprintf(&b, "Error: %s\n", orphan.Err.Error())
	}
	b.WriteString("\nThe envelope was created as a draft and was not sent. Void or delete it from the account.\n")
	return b.String()
}
