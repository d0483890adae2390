package orchestrator

import (
	"context"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
)

// PollPolicy governs how the bulk batch status is read after submission.
// With MaxAttempts 1 the status is read once after InitialDelay and returned as is.
type PollPolicy struct {
	InitialDelay time.Duration
	MaxAttempts  int
	Multiplier   float64
	MaxDelay     time.Duration
}

func DefaultPollPolicy() PollPolicy {
	return PollPolicy{
		InitialDelay: 10 * time.Second,
		MaxAttempts:  1,
		Multiplier:   2,
		MaxDelay:     time.Minute,
	}
}

// PolicyFromConfig overrides the defaults with every positive value in cfg.
func PolicyFromConfig(cfg config.PollConfig) PollPolicy {
	policy := DefaultPollPolicy()
	if cfg.InitialDelay > 0 {
		policy.InitialDelay = config.GetDuration(cfg.InitialDelay)
	}
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxDelay > 0 {
		policy.MaxDelay = config.GetDuration(cfg.MaxDelay)
	}
	return policy
}

// Budget is the longest the policy can spend waiting between status reads.
func (p PollPolicy) Budget() time.Duration {
	p = p.normalized()
	var total time.Duration
	delay := p.InitialDelay
	for i := 0; i < p.MaxAttempts; i++ {
		total += delay
		delay = p.next(delay)
	}
	return total
}

func (p PollPolicy) normalized() PollPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.InitialDelay < 0 {
		p.InitialDelay = 0
	}
	return p
}

func (p PollPolicy) next(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * p.Multiplier)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

// pollBatch waits and reads the batch status. Past the first read it keeps
// going only while items are still queued. The bulk send is already submitted
// here, so running out of time ends in BATCH_POLL_TIMEOUT with the batch id
// rather than a failure that invites a resubmit.
func (r *run) pollBatch(ctx context.Context, batchID string) (*esign.BulkSendBatchStatus, int, error) {
	policy := r.o.poll
	delay := policy.InitialDelay

	var last *esign.BulkSendBatchStatus
	for attempt := 1; ; attempt++ {
		if err := r.o.sleep(ctx, delay); err != nil {
			return last, attempt - 1, r.pollTimeout(batchID, attempt-1, last, err)
		}

		var status *esign.BulkSendBatchStatus
		err := r.step(ctx, StepGetBatchStatus, func(ctx context.Context) error {
			var err error
			status, err = r.o.api.GetBulkSendBatchStatus(ctx, batchID)
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return last, attempt, r.pollTimeout(batchID, attempt, last, ctxErr)
			}
			if stdErr, ok := errors.AsStandard(err); ok {
				stdErr.WithMetadata(errors.MetaBatchID, batchID)
			}
			return last, attempt, err
		}
		last = status

		if policy.MaxAttempts == 1 || status.QueuedCount() == 0 {
			return status, attempt, nil
		}
		if attempt >= policy.MaxAttempts {
			return status, attempt, r.pollTimeout(batchID, attempt, status, nil)
		}

		r.o.log.Debug("batch still queued", map[string]interface{}{
			"batchId": batchID,
			"queued":  status.QueuedCount(),
			"attempt": attempt,
		})
		delay = policy.next(delay)
	}
}

func (r *run) pollTimeout(batchID string, attempts int, last *esign.BulkSendBatchStatus, cause error) error {
	var lastStatus interface{}
	if last != nil {
		lastStatus = last
	}
	err := errors.NewBatchPollTimeoutError(batchID, attempts, lastStatus).
		WithMetadata(errors.MetaEnvelopeID, r.envelopeID)
	if cause != nil {
		err.WithCause(cause)
	}
	r.o.log.Warn("batch status wait ended before the batch drained", map[string]interface{}{
		"workflow":   r.workflow,
		"batchId":    batchID,
		"envelopeId": r.envelopeID,
		"attempts":   attempts,
	})
	return err
}
