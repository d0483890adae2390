package orchestrator

import (
	"context"

	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/envelope"
)

// FolderAwaitingMySignature lists envelopes the current user still has to sign.
const FolderAwaitingMySignature = "awaiting_my_signature"

type BulkSendInput struct {
	List     *esign.BulkSendingList
	Envelope *esign.EnvelopeDefinition
}

// BulkSend creates the list and a draft envelope, links them, submits the bulk
// send and reads back the batch status.
func (o *Orchestrator) BulkSend(ctx context.Context, in BulkSendInput) (*WorkflowResult, error) {
	result := &WorkflowResult{}
	err := o.start(ctx, WorkflowBulkSend, func(ctx context.Context, r *run) error {
		if err := r.step(ctx, StepCreateBulkList, func(ctx context.Context) error {
			list, err := o.api.CreateBulkSendList(ctx, in.List)
			if err != nil {
				return err
			}
			result.ListID = list.ListID
			return nil
		}); err != nil {
			return err
		}

		if err := r.createEnvelope(ctx, in.Envelope); err != nil {
			return err
		}
		result.EnvelopeID = r.envelopeID

		if err := r.step(ctx, StepAddBulkRecipient, func(ctx context.Context) error {
			_, err := o.api.CreateRecipients(ctx, r.envelopeID, envelope.BulkPlaceholder())
			return err
		}); err != nil {
			return err
		}

		if err := r.step(ctx, StepAttachCustomField, func(ctx context.Context) error {
			_, err := o.api.CreateCustomFields(ctx, r.envelopeID, envelope.MailingListField(result.ListID))
			return err
		}); err != nil {
			return err
		}

		if err := r.step(ctx, StepSubmitBulkSend, func(ctx context.Context) error {
			resp, err := o.api.CreateBulkSendRequest(ctx, result.ListID, &esign.BulkSendRequest{
				EnvelopeOrTemplateID: r.envelopeID,
			})
			if err != nil {
				return err
			}
			result.BatchID = resp.BatchID
			return nil
		}); err != nil {
			return err
		}
		r.sent()

		status, attempts, err := r.pollBatch(ctx, result.BatchID)
		result.Attempts = attempts
		if status != nil {
			result.BatchStatus = status
			result.Queued = status.QueuedCount()
		}
		return err
	})
	if err != nil {
		return result, err
	}
	return result, nil
}

type SenderViewInput struct {
	Envelope     *esign.EnvelopeDefinition
	View         *esign.ReturnURLRequest
	StartingView string
}

// EmbeddedSending creates a draft and opens the sender view on it.
func (o *Orchestrator) EmbeddedSending(ctx context.Context, in SenderViewInput) (*WorkflowResult, error) {
	result := &WorkflowResult{}
	err := o.start(ctx, WorkflowEmbeddedSending, func(ctx context.Context, r *run) error {
		if err := r.createEnvelope(ctx, in.Envelope); err != nil {
			return err
		}
		result.EnvelopeID = r.envelopeID

		return r.step(ctx, StepCreateSenderView, func(ctx context.Context) error {
			view, err := o.api.CreateSenderView(ctx, r.envelopeID, in.View)
			if err != nil {
				return err
			}
			result.RedirectURL = envelope.ApplyStartingView(view.URL, in.StartingView)
			return nil
		})
	})
	return result, err
}

// RecipientView opens the signing ceremony on an envelope that already exists.
func (o *Orchestrator) RecipientView(ctx context.Context, envelopeID string, view *esign.RecipientViewRequest) (*WorkflowResult, error) {
	result := &WorkflowResult{EnvelopeID: envelopeID}
	err := o.start(ctx, WorkflowEmbeddedSigning, func(ctx context.Context, r *run) error {
		return r.step(ctx, StepCreateRecipientView, func(ctx context.Context) error {
			v, err := o.api.CreateRecipientView(ctx, envelopeID, view)
			if err != nil {
				return err
			}
			result.RedirectURL = v.URL
			return nil
		})
	})
	return result, err
}

// SendEnvelope creates an envelope with status "sent" so DocuSign delivers it immediately.
func (o *Orchestrator) SendEnvelope(ctx context.Context, def *esign.EnvelopeDefinition) (*WorkflowResult, error) {
	result := &WorkflowResult{}
	err := o.start(ctx, WorkflowSMSAuthentication, func(ctx context.Context, r *run) error {
		if err := r.createEnvelope(ctx, def); err != nil {
			return err
		}
		result.EnvelopeID = r.envelopeID
		return nil
	})
	return result, err
}

// ListAwaiting returns envelopes waiting on the current user's signature.
func (o *Orchestrator) ListAwaiting(ctx context.Context) ([]esign.EnvelopeInfo, error) {
	var envelopes []esign.EnvelopeInfo
	err := o.start(ctx, WorkflowEmbeddedSigning, func(ctx context.Context, r *run) error {
		return r.step(ctx, StepListStatusChanges, func(ctx context.Context) error {
			info, err := o.api.ListStatusChanges(ctx, esign.ListStatusChangesOptions{
				FolderIDs: []string{FolderAwaitingMySignature},
			})
			if err != nil {
				return err
			}
			envelopes = info.Envelopes
			return nil
		})
	})
	return envelopes, err
}
