package bulksend

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/session"
	"esign-workflows/internal/workflows/workflowtest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4 test document")

func createValidConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       5 * time.Second,
		ListName:      "Send to students",
		WarnDays:      5,
		MaxFormBytes:  1 << 20,
		TokenBuffer:   3 * time.Minute,
	}
}

func newTestHandler(t *testing.T) (*Handler, *workflowtest.Env) {
	t.Helper()
	env := workflowtest.New(t)
	h, err := NewHandler(HandlerOptions{Deps: env.Deps, CustomConfig: createValidConfig()})
	require.NoError(t, err)
	return h, env
}

func validForm() url.Values {
	return url.Values{
		"docName":      {"Course agreement"},
		"docDeadline":  {"30"},
		"inputFiles":   {"agreement.pdf"},
		"fileBase64":   {"data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdfBytes)},
		"bulkJSONFile": {`[{"name":"B","email":"b@x.com"},{"name":"C","email":"c@x.com"}]`},
	}
}

func expectBulkSuccess(api *workflowtest.MockAPI, queued string) {
	expectBulkStatus(api, &esign.BulkSendBatchStatus{BatchID: "batch-1", Queued: queued})
}

func expectBulkStatus(api *workflowtest.MockAPI, status *esign.BulkSendBatchStatus) {
	api.On("CreateBulkSendList", mock.Anything, mock.Anything).
		Return(&esign.BulkSendingList{ListID: "list-1"}, nil).Once()
	api.On("CreateEnvelope", mock.Anything, mock.Anything).
		Return(&esign.EnvelopeSummary{EnvelopeID: "env-1"}, nil).Once()
	api.On("CreateRecipients", mock.Anything, "env-1", mock.Anything).
		Return(&esign.RecipientsUpdateSummary{}, nil).Once()
	api.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).
		Return(&esign.CustomFields{}, nil).Once()
	api.On("CreateBulkSendRequest", mock.Anything, "list-1", &esign.BulkSendRequest{EnvelopeOrTemplateID: "env-1"}).
		Return(&esign.BulkSendResponse{BatchID: "batch-1"}, nil).Once()
	api.On("GetBulkSendBatchStatus", mock.Anything, "batch-1").Return(status, nil).Once()
}

func TestHandler_NewHandler(t *testing.T) {
	env := workflowtest.New(t)

	t.Run("valid configuration", func(t *testing.T) {
		h, err := NewHandler(HandlerOptions{Deps: env.Deps})
		require.NoError(t, err)
		assert.Equal(t, "Send to students", h.GetConfig().ListName)
		assert.True(t, h.IsEnabled())
	})

	t.Run("invalid configuration", func(t *testing.T) {
		cfg := createValidConfig()
		cfg.Timeout = 0
		_, err := NewHandler(HandlerOptions{Deps: env.Deps, CustomConfig: cfg})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timeout must be positive")
	})

	t.Run("missing dependencies", func(t *testing.T) {
		deps := env.Deps
		deps.Orchestrators = nil
		_, err := NewHandler(HandlerOptions{Deps: deps})
		require.Error(t, err)
	})
}

func TestHandler_GetForm(t *testing.T) {
	h, env := newTestHandler(t)

	t.Run("fresh token renders the form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bulk-send", nil)
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.GetForm(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="docDeadline"`)
	})

	t.Run("token inside the form buffer redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/bulk-send", nil)
		sess := env.SignIn(t, req, 5*time.Minute)
		rec := httptest.NewRecorder()

		h.GetForm(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/ds/mustAuthenticate", rec.Header().Get("Location"))
		stored := env.Session(t, sess.ID)
		assert.Equal(t, WorkflowID, stored.PendingWorkflow)
		assert.Empty(t, stored.Flash)
	})
}

func TestHandler_Submit(t *testing.T) {
	t.Run("queues the batch and shows the result", func(t *testing.T) {
		h, env := newTestHandler(t)
		expectBulkSuccess(env.API, "1")

		req := workflowtest.PostForm("/bulk-send", validForm())
		sess := env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "Bulk request queued to 1 user lists.")
		env.API.AssertExpectations(t)

		listCall := env.API.Calls[0]
		list := listCall.Arguments.Get(1).(*esign.BulkSendingList)
		assert.Equal(t, "Send to students", list.Name)
		require.Len(t, list.BulkCopies, 2)
		assert.Equal(t, "b@x.com", list.BulkCopies[0].Recipients[0].Email)

		draft := env.API.Calls[1].Arguments.Get(1).(*esign.EnvelopeDefinition)
		assert.Equal(t, "Course agreement", draft.EmailSubject)
		assert.Equal(t, envelope.StatusCreated, draft.Status)
		assert.Equal(t, "30", draft.Notification.Expirations.ExpireAfter)
		assert.Equal(t, "5", draft.Notification.Expirations.ExpireWarn)
		assert.Equal(t, base64.StdEncoding.EncodeToString(pdfBytes), draft.Documents[0].DocumentBase64)
		assert.Equal(t, "pdf", draft.Documents[0].FileExtension)
		assert.Nil(t, draft.Recipients)

		assert.Equal(t, "env-1", env.Session(t, sess.ID).LastEnvelopeID)
		require.Len(t, env.Credentials(), 1)
		assert.Equal(t, workflowtest.AccessToken, env.Credentials()[0].AccessToken)
	})

	t.Run("csv recipients and carbon copy", func(t *testing.T) {
		h, env := newTestHandler(t)
		expectBulkSuccess(env.API, "0")

		form := validForm()
		form.Del("bulkJSONFile")
		form.Set("bulkCSVFile", "name,email\nB,b@x.com\n")
		form.Set("signerName", "A")
		form.Set("signerEmail", "a@x.com")
		req := workflowtest.PostForm("/bulk-send", form)
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		draft := env.API.Calls[1].Arguments.Get(1).(*esign.EnvelopeDefinition)
		require.NotNil(t, draft.Recipients)
		assert.Equal(t, "a@x.com", draft.Recipients.CarbonCopies[0].Email)
		list := env.API.Calls[0].Arguments.Get(1).(*esign.BulkSendingList)
		assert.Len(t, list.BulkCopies, 1)
	})

	t.Run("failed copies are listed", func(t *testing.T) {
		h, env := newTestHandler(t)
		expectBulkStatus(env.API, &esign.BulkSendBatchStatus{BatchID: "batch-1", Queued: "0", Sent: "1", Failed: "1"})

		req := workflowtest.PostForm("/bulk-send", validForm())
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), "1 copies failed to send.")
	})

	t.Run("stale token flashes and redirects without calling the API", func(t *testing.T) {
		h, env := newTestHandler(t)

		req := workflowtest.PostForm("/bulk-send", validForm())
		sess := env.SignIn(t, req, time.Minute)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		assert.Equal(t, http.StatusFound, rec.Code)
		stored := env.Session(t, sess.ID)
		assert.Equal(t, []string{session.ReauthenticateMessage}, stored.Flash)
		assert.Equal(t, WorkflowID, stored.PendingWorkflow)
		env.API.AssertNotCalled(t, "CreateBulkSendList", mock.Anything, mock.Anything)
	})

	t.Run("validation failures render 400", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(url.Values)
			want   string
		}{
			{name: "missing deadline", mutate: func(v url.Values) { v.Del("docDeadline") }, want: "docDeadline"},
			{name: "deadline not a number", mutate: func(v url.Values) { v.Set("docDeadline", "soon") }, want: "docDeadline"},
			{name: "no recipient list", mutate: func(v url.Values) { v.Del("bulkJSONFile") }, want: "bulkCSVFile"},
			{name: "both recipient lists", mutate: func(v url.Values) { v.Set("bulkCSVFile", "name,email\nB,b@x.com") }, want: "bulkCSVFile"},
			{name: "bad base64", mutate: func(v url.Values) { v.Set("fileBase64", "not base64!") }, want: "fileBase64"},
			{name: "bad recipient json", mutate: func(v url.Values) { v.Set("bulkJSONFile", `[{"name":"B"}]`) }, want: "bulkRecipients"},
			{name: "carbon copy without name", mutate: func(v url.Values) { v.Set("signerEmail", "a@x.com") }, want: "signerName"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h, env := newTestHandler(t)
				form := validForm()
				tt.mutate(form)
				req := workflowtest.PostForm("/bulk-send", form)
				env.SignIn(t, req, time.Hour)
				rec := httptest.NewRecorder()

				h.Submit(rec, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Contains(t, rec.Body.String(), tt.want)
				assert.Empty(t, env.API.Calls)
			})
		}
	})

	t.Run("remote failure shows the provider error and reports the orphan", func(t *testing.T) {
		h, env := newTestHandler(t)
		env.API.On("CreateBulkSendList", mock.Anything, mock.Anything).
			Return(&esign.BulkSendingList{ListID: "list-1"}, nil).Once()
		env.API.On("CreateEnvelope", mock.Anything, mock.Anything).
			Return(&esign.EnvelopeSummary{EnvelopeID: "env-1"}, nil).Once()
		env.API.On("CreateRecipients", mock.Anything, "env-1", mock.Anything).
			Return(&esign.RecipientsUpdateSummary{}, nil).Once()
		env.API.On("CreateCustomFields", mock.Anything, "env-1", mock.Anything).
			Return(nil, &esign.APIError{Operation: "createCustomFields", StatusCode: 400, ErrorCode: "INVALID_REQUEST_PARAMETER", Message: "bad field"}).Once()

		req := workflowtest.PostForm("/bulk-send", validForm())
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "INVALID_REQUEST_PARAMETER")
		assert.Contains(t, rec.Body.String(), "attach_custom_field")
		env.API.AssertNotCalled(t, "CreateBulkSendRequest", mock.Anything, mock.Anything, mock.Anything)

		orphans := env.Orphans()
		require.Len(t, orphans, 1)
		assert.Equal(t, "env-1", orphans[0].EnvelopeID)
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: "timeout"},
		{name: "zero jobs", mutate: func(c *Config) { c.MaxJobsActive = 0 }, wantErr: "max_jobs_active"},
		{name: "no list name", mutate: func(c *Config) { c.ListName = "" }, wantErr: "list_name"},
		{name: "negative token buffer", mutate: func(c *Config) { c.TokenBuffer = -time.Second }, wantErr: "token buffer"},
		{name: "timeout inside poll budget", mutate: func(c *Config) { c.PollBudget = c.Timeout }, wantErr: "poll budget"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createValidConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCreateConfigFromAppConfig(t *testing.T) {
	appCfg := &config.Config{
		Workers: map[string]config.WorkerConfig{
			WorkflowID: {Enabled: false, MaxJobsActive: 2, Timeout: 90000},
		},
		Workflow: config.WorkflowConfig{
			BulkListName: "Cohort 7",
			Poll:         config.PollConfig{InitialDelay: 1000, MaxAttempts: 3, Multiplier: 2, MaxDelay: 3000},
		},
	}

	cfg := createConfigFromAppConfig(appCfg, nil)
	assert.Equal(t, 6*time.Second, cfg.PollBudget)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2, cfg.MaxJobsActive)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "Cohort 7", cfg.ListName)

	custom := createValidConfig()
	assert.Same(t, custom, createConfigFromAppConfig(appCfg, custom))
	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))
}

func TestDecodeDocument(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString(pdfBytes)

	got, err := decodeDocument("fileBase64", "data:application/pdf;base64,"+raw)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	got, err = decodeDocument("fileBase64", raw)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes, got)

	_, err = decodeDocument("fileBase64", "")
	assert.Error(t, err)
}

func TestFileExtension(t *testing.T) {
	assert.Equal(t, "pdf", fileExtension("Agreement.PDF"))
	assert.Equal(t, "docx", fileExtension("letter.docx"))
	assert.Equal(t, "", fileExtension("README"))
}
