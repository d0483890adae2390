package orchestrator

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/envelope"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) CreateBulkSendList(ctx context.Context, list *esign.BulkSendingList) (*esign.BulkSendingList, error) {
	args := m.Called(ctx, list)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.BulkSendingList), args.Error(1)
}

func (m *MockAPI) CreateEnvelope(ctx context.Context, def *esign.EnvelopeDefinition) (*esign.EnvelopeSummary, error) {
	args := m.Called(ctx, def)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.EnvelopeSummary), args.Error(1)
}

func (m *MockAPI) CreateRecipients(ctx context.Context, envelopeID string, recipients *esign.Recipients) (*esign.RecipientsUpdateSummary, error) {
	args := m.Called(ctx, envelopeID, recipients)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.RecipientsUpdateSummary), args.Error(1)
}

func (m *MockAPI) CreateCustomFields(ctx context.Context, envelopeID string, fields *esign.CustomFields) (*esign.CustomFields, error) {
	args := m.Called(ctx, envelopeID, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.CustomFields), args.Error(1)
}

func (m *MockAPI) CreateBulkSendRequest(ctx context.Context, listID string, req *esign.BulkSendRequest) (*esign.BulkSendResponse, error) {
	args := m.Called(ctx, listID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.BulkSendResponse), args.Error(1)
}

func (m *MockAPI) GetBulkSendBatchStatus(ctx context.Context, batchID string) (*esign.BulkSendBatchStatus, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.BulkSendBatchStatus), args.Error(1)
}

func (m *MockAPI) CreateRecipientView(ctx context.Context, envelopeID string, req *esign.RecipientViewRequest) (*esign.ViewURL, error) {
	args := m.Called(ctx, envelopeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.ViewURL), args.Error(1)
}

func (m *MockAPI) CreateSenderView(ctx context.Context, envelopeID string, req *esign.ReturnURLRequest) (*esign.ViewURL, error) {
	args := m.Called(ctx, envelopeID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.ViewURL), args.Error(1)
}

func (m *MockAPI) ListStatusChanges(ctx context.Context, opts esign.ListStatusChangesOptions) (*esign.EnvelopesInformation, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*esign.EnvelopesInformation), args.Error(1)
}

type recordingOrphans struct {
	reported []Orphan
}

func (r *recordingOrphans) Report(_ context.Context, o Orphan) error {
	r.reported = append(r.reported, o)
	return nil
}

type recordingSleeper struct {
	waits []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return ctx.Err()
}

func bulkInput() BulkSendInput {
	return BulkSendInput{
		List:     &esign.BulkSendingList{Name: "Send to students"},
		Envelope: &esign.EnvelopeDefinition{EmailSubject: "Field trip", Status: "created"},
	}
}

func batchStatus(queued string) *esign.BulkSendBatchStatus {
	raw, _ := json.Marshal(map[string]string{"batchId": "batch-1", "queued": queued})
	return &esign.BulkSendBatchStatus{BatchID: "batch-1", Queued: queued, Raw: raw}
}

func expectBulkSetup(api *MockAPI) {
	api.On("CreateBulkSendList", mock.Anything, mock.Anything).
		Return(&esign.BulkSendingList{ListID: "list-1"}, nil).Once()
	api.On("CreateEnvelope", mock.Anything, mock.Anything).
		Return(&esign.EnvelopeSummary{EnvelopeID: "env-1"}, nil).Once()
	api.On("CreateRecipients", mock.Anything, "env-1", envelope.BulkPlaceholder()).
		Return(&esign.RecipientsUpdateSummary{}, nil).Once()
}

func TestBulkSend_Success(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", envelope.MailingListField("list-1")).
		Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", &esign.BulkSendRequest{EnvelopeOrTemplateID: "env-1"}).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()
	status := batchStatus("1")
	api.On("GetBulkSendBatchStatus", mock.Anything, "batch-1").Return(status, nil).Once()

	sleeper := &recordingSleeper{}
	orphans := &recordingOrphans{}
	o := New(api, Options{Poll: DefaultPollPolicy(), Orphans: orphans, Sleeper: sleeper.sleep})

	result, err := o.BulkSend(context.Background(), bulkInput())

	require.NoError(t, err)
	assert.Equal(t, "env-1", result.EnvelopeID)
	assert.Equal(t, "list-1", result.ListID)
	assert.Equal(t, "batch-1", result.BatchID)
	assert.Equal(t, 1, result.Queued)
	assert.Same(t, status, result.BatchStatus)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, []time.Duration{10 * time.Second}, sleeper.waits)
	assert.Empty(t, orphans.reported)
	api.AssertExpectations(t)
	api.AssertNumberOfCalls(t, "GetBulkSendBatchStatus", 1)
}

func TestBulkSend_CustomFieldFailureStopsSequence(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).
		Return(nil, &esign.APIError{Operation: "createCustomFields", StatusCode: 400, ErrorCode: "INVALID_REQUEST_PARAMETER", Message: "bad field"}).Once()

	sleeper := &recordingSleeper{}
	orphans := &recordingOrphans{}
	o := New(api, Options{Poll: DefaultPollPolicy(), Orphans: orphans, Sleeper: sleeper.sleep})

	result, err := o.BulkSend(context.Background(), bulkInput())

	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRemoteAPIError, stdErr.Code)
	assert.Equal(t, StepAttachCustomField, stdErr.Step())
	assert.Equal(t, 400, stdErr.Metadata[errors.MetaStatusCode])
	assert.Equal(t, "INVALID_REQUEST_PARAMETER", stdErr.Metadata[errors.MetaProviderErrorCode])
	assert.Equal(t, "env-1", stdErr.Metadata[errors.MetaEnvelopeID])
	assert.Equal(t, "env-1", result.EnvelopeID)

	api.AssertNotCalled(t, "CreateBulkSendRequest", mock.Anything, mock.Anything, mock.Anything)
	api.AssertNotCalled(t, "GetBulkSendBatchStatus", mock.Anything, mock.Anything)
	assert.Empty(t, sleeper.waits)

	require.Len(t, orphans.reported, 1)
	assert.Equal(t, Orphan{Workflow: WorkflowBulkSend, EnvelopeID: "env-1", Step: StepAttachCustomField, Err: err}, orphans.reported[0])
}

func TestBulkSend_ListFailureIsNotAnOrphan(t *testing.T) {
	api := new(MockAPI)
	api.On("CreateBulkSendList", mock.Anything, mock.Anything).
		Return(nil, &esign.APIError{StatusCode: 401, ErrorCode: "USER_AUTHENTICATION_FAILED"}).Once()

	orphans := &recordingOrphans{}
	o := New(api, Options{Orphans: orphans, Sleeper: (&recordingSleeper{}).sleep})

	_, err := o.BulkSend(context.Background(), bulkInput())

	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, StepCreateBulkList, stdErr.Step())
	assert.Empty(t, orphans.reported)
	api.AssertNotCalled(t, "CreateEnvelope", mock.Anything, mock.Anything)
}

func TestBulkSend_PollsWithBackoffUntilDrained(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", mock.Anything).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()
	api.On("GetBulkSendBatchStatus", mock.Anything, "batch-1").Return(batchStatus("2"), nil).Twice()
	api.On("GetBulkSendBatchStatus", mock.Anything, "batch-1").Return(batchStatus("0"), nil).Once()

	sleeper := &recordingSleeper{}
	o := New(api, Options{
		Poll:    PollPolicy{InitialDelay: time.Second, MaxAttempts: 5, Multiplier: 2, MaxDelay: 3 * time.Second},
		Sleeper: sleeper.sleep,
	})

	result, err := o.BulkSend(context.Background(), bulkInput())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Queued)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, sleeper.waits)
}

func TestBulkSend_PollTimeout(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", mock.Anything).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()
	last := batchStatus("4")
	api.On("GetBulkSendBatchStatus", mock.Anything, "batch-1").Return(last, nil).Times(2)

	orphans := &recordingOrphans{}
	o := New(api, Options{
		Poll:    PollPolicy{InitialDelay: time.Millisecond, MaxAttempts: 2, Multiplier: 2},
		Orphans: orphans,
		Sleeper: (&recordingSleeper{}).sleep,
	})

	result, err := o.BulkSend(context.Background(), bulkInput())

	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeBatchPollTimeout, stdErr.Code)
	assert.Same(t, last, stdErr.Metadata[errors.MetaBatchStatus])
	assert.Same(t, last, result.BatchStatus)
	assert.Empty(t, orphans.reported)
}

func TestBulkSend_CancelledWhileWaiting(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", mock.Anything).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	o := New(api, Options{
		Poll: PollPolicy{InitialDelay: time.Hour, MaxAttempts: 1},
		Sleeper: func(ctx context.Context, d time.Duration) error {
			cancel()
			return contextSleep(ctx, d)
		},
	})

	orphans := &recordingOrphans{}
	o.orphans = orphans

	_, err := o.BulkSend(ctx, bulkInput())

	assert.ErrorIs(t, err, context.Canceled)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeBatchPollTimeout, stdErr.Code)
	assert.Equal(t, "batch-1", stdErr.Metadata[errors.MetaBatchID])
	assert.Equal(t, "env-1", stdErr.Metadata[errors.MetaEnvelopeID])
	assert.Empty(t, orphans.reported)
	api.AssertNotCalled(t, "GetBulkSendBatchStatus", mock.Anything, mock.Anything)
}

func TestBulkSend_DeadlineDuringWaitIsPollTimeout(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", mock.Anything).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	o := New(api, Options{Poll: PollPolicy{InitialDelay: time.Second, MaxAttempts: 1}})

	result, err := o.BulkSend(ctx, bulkInput())

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeBatchPollTimeout, stdErr.Code)
	assert.False(t, stdErr.Retryable)
	assert.Equal(t, "batch-1", stdErr.Metadata[errors.MetaBatchID])
	assert.Equal(t, "env-1", stdErr.Metadata[errors.MetaEnvelopeID])
	assert.Equal(t, "batch-1", result.BatchID)
	api.AssertNotCalled(t, "GetBulkSendBatchStatus", mock.Anything, mock.Anything)
}

func TestBulkSend_StatusReadFailureAfterSubmitIsNotAnOrphan(t *testing.T) {
	api := new(MockAPI)
	expectBulkSetup(api)
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", mock.Anything).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()
	api.On("GetBulkSendBatchStatus", mock.Anything, "batch-1").
		Return(nil, &esign.APIError{Operation: "getBulkSendBatchStatus", StatusCode: 503, Message: "unavailable"}).Once()

	orphans := &recordingOrphans{}
	o := New(api, Options{Poll: DefaultPollPolicy(), Orphans: orphans, Sleeper: (&recordingSleeper{}).sleep})

	_, err := o.BulkSend(context.Background(), bulkInput())

	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeRemoteAPIError, stdErr.Code)
	assert.Equal(t, StepGetBatchStatus, stdErr.Step())
	assert.Equal(t, "batch-1", stdErr.Metadata[errors.MetaBatchID])
	assert.NotContains(t, stdErr.Metadata, errors.MetaOrphaned)
	assert.Empty(t, orphans.reported)
}

func TestEmbeddedSending_StartingView(t *testing.T) {
	api := new(MockAPI)
	api.On("CreateEnvelope", mock.Anything, mock.Anything).Return(&esign.EnvelopeSummary{EnvelopeID: "env-2"}, nil).Once()
	view := &esign.ReturnURLRequest{ReturnURL: "http://localhost/ds-return"}
	api.On("CreateSenderView", mock.Anything, "env-2", view).
		Return(&esign.ViewURL{URL: "https://demo.docusign.net/send?send=1"}, nil).Once()

	o := New(api, Options{})
	result, err := o.EmbeddedSending(context.Background(), SenderViewInput{
		Envelope:     &esign.EnvelopeDefinition{Status: envelope.StatusCreated},
		View:         view,
		StartingView: envelope.StartingViewRecipient,
	})

	require.NoError(t, err)
	assert.Equal(t, "env-2", result.EnvelopeID)
	assert.Equal(t, "https://demo.docusign.net/send?send=0", result.RedirectURL)
}

func TestEmbeddedSending_ViewFailureReportsOrphan(t *testing.T) {
	api := new(MockAPI)
	api.On("CreateEnvelope", mock.Anything, mock.Anything).Return(&esign.EnvelopeSummary{EnvelopeID: "env-3"}, nil).Once()
	api.On("CreateSenderView", mock.Anything, "env-3", mock.Anything).
		Return(nil, &esign.APIError{StatusCode: 500}).Once()

	orphans := &recordingOrphans{}
	o := New(api, Options{Orphans: orphans})
	_, err := o.EmbeddedSending(context.Background(), SenderViewInput{
		Envelope: &esign.EnvelopeDefinition{Status: envelope.StatusCreated},
		View:     &esign.ReturnURLRequest{},
	})

	require.Error(t, err)
	stdErr, ok := errors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, true, stdErr.Metadata[errors.MetaOrphaned])
	require.Len(t, orphans.reported, 1)
	assert.Equal(t, StepCreateSenderView, orphans.reported[0].Step)
	assert.Equal(t, WorkflowEmbeddedSending, orphans.reported[0].Workflow)
}

func TestRecipientView(t *testing.T) {
	api := new(MockAPI)
	req := &esign.RecipientViewRequest{Email: "a@x.com", UserName: "A"}
	api.On("CreateRecipientView", mock.Anything, "env-4", req).
		Return(&esign.ViewURL{URL: "https://demo.docusign.net/signing"}, nil).Once()

	result, err := New(api, Options{}).RecipientView(context.Background(), "env-4", req)

	require.NoError(t, err)
	assert.Equal(t, "https://demo.docusign.net/signing", result.RedirectURL)
	api.AssertNotCalled(t, "CreateEnvelope", mock.Anything, mock.Anything)
}

func TestSendEnvelope(t *testing.T) {
	api := new(MockAPI)
	def := &esign.EnvelopeDefinition{Status: "sent"}
	api.On("CreateEnvelope", mock.Anything, def).Return(&esign.EnvelopeSummary{EnvelopeID: "env-5", Status: "sent"}, nil).Once()

	result, err := New(api, Options{}).SendEnvelope(context.Background(), def)

	require.NoError(t, err)
	assert.Equal(t, "env-5", result.EnvelopeID)
}

func TestListAwaiting(t *testing.T) {
	api := new(MockAPI)
	api.On("ListStatusChanges", mock.Anything, esign.ListStatusChangesOptions{FolderIDs: []string{FolderAwaitingMySignature}}).
		Return(&esign.EnvelopesInformation{Envelopes: []esign.EnvelopeInfo{{EnvelopeID: "e1"}, {EnvelopeID: "e2"}}}, nil).Once()

	envelopes, err := New(api, Options{}).ListAwaiting(context.Background())

	require.NoError(t, err)
	assert.Len(t, envelopes, 2)
}

func TestPollPolicy_Normalized(t *testing.T) {
	p := PollPolicy{MaxAttempts: 0, Multiplier: 0, InitialDelay: -time.Second}.normalized()
	assert.Equal(t, 1, p.MaxAttempts)
	assert.Equal(t, float64(1), p.Multiplier)
	assert.Equal(t, time.Duration(0), p.InitialDelay)
}

func TestPollPolicy_Budget(t *testing.T) {
	tests := []struct {
		name   string
		policy PollPolicy
		want   time.Duration
	}{
		{name: "single read", policy: DefaultPollPolicy(), want: 10 * time.Second},
		{name: "capped backoff", policy: PollPolicy{InitialDelay: time.Second, MaxAttempts: 3, Multiplier: 2, MaxDelay: 3 * time.Second}, want: 6 * time.Second},
		{name: "no cap", policy: PollPolicy{InitialDelay: time.Second, MaxAttempts: 3, Multiplier: 2}, want: 7 * time.Second},
		{name: "zero attempts", policy: PollPolicy{InitialDelay: time.Second}, want: time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Budget())
		})
	}
}

func TestPolicyFromConfig(t *testing.T) {
	assert.Equal(t, DefaultPollPolicy(), PolicyFromConfig(config.PollConfig{}))

	got := PolicyFromConfig(config.PollConfig{InitialDelay: 500, MaxAttempts: 4, Multiplier: 1.5, MaxDelay: 2000})
	assert.Equal(t, PollPolicy{InitialDelay: 500 * time.Millisecond, MaxAttempts: 4, Multiplier: 1.5, MaxDelay: 2 * time.Second}, got)
}
