package embeddedsending

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/envelope"
	"esign-workflows/internal/workflows/workflowtest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const senderViewURL = "https://demo.docusign.net/Signing/send?send=1&token=abc"

func newTestHandler(t *testing.T) (*Handler, *workflowtest.Env) {
	t.Helper()
	env := workflowtest.New(t)
	h, err := NewHandler(HandlerOptions{Deps: env.Deps})
	require.NoError(t, err)
	return h, env
}

func validForm() url.Values {
	return url.Values{
		"signerEmail": {"supervisor@example.org"},
		"signerName":  {"Sam Supervisor"},
		"ccEmail":     {"office@example.org"},
		"ccName":      {"Front Office"},
		"companyName": {"Food Bank <b>North</b>"},
		"volunHours":  {"12"},
	}
}

func expectSenderView(api *workflowtest.MockAPI) {
	api.On("CreateEnvelope", mock.Anything, mock.Anything).
		Return(&esign.EnvelopeSummary{EnvelopeID: "env-9"}, nil).Once()
	api.On("CreateSenderView", mock.Anything, "env-9", mock.Anything).
		Return(&esign.ViewURL{URL: senderViewURL}, nil).Once()
}

func TestHandler_Submit(t *testing.T) {
	t.Run("redirects to the tagging view", func(t *testing.T) {
		h, env := newTestHandler(t)
		expectSenderView(env.API)

		req := workflowtest.PostForm("/embedded-sending", validForm())
		sess := env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
		assert.Equal(t, senderViewURL, rec.Header().Get("Location"))
		assert.Equal(t, "env-9", env.Session(t, sess.ID).LastEnvelopeID)

		def := env.API.Calls[0].Arguments.Get(1).(*esign.EnvelopeDefinition)
		assert.Equal(t, "Volunteer Hours Confirmation for "+workflowtest.UserName, def.EmailSubject)
		assert.Equal(t, envelope.StatusCreated, def.Status)
		assert.Equal(t, "true", def.EnvelopeIDStamping)

		wantRecipients := &esign.Recipients{
			Signers: []esign.Signer{{
				Name:         "Sam Supervisor",
				Email:        "supervisor@example.org",
				RecipientID:  "1",
				RoutingOrder: "1",
				Tabs: &esign.Tabs{
					SignHereTabs:   []esign.Tab{{AnchorString: "**signature_1**", AnchorUnits: "pixels", AnchorXOffset: "20", AnchorYOffset: "10"}},
					DateSignedTabs: []esign.Tab{{AnchorString: "**date_1**", AnchorUnits: "pixels", AnchorXOffset: "20", AnchorYOffset: "-5"}},
				},
			}},
			CarbonCopies: []esign.CarbonCopy{{Name: "Front Office", Email: "office@example.org", RecipientID: "2", RoutingOrder: "2"}},
		}
		if diff := cmp.Diff(wantRecipients, def.Recipients); diff != "" {
			t.Errorf("recipients mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, "60", def.Notification.Expirations.ExpireAfter)
		assert.Equal(t, "10", def.Notification.Expirations.ExpireWarn)

		html, err := base64.StdEncoding.DecodeString(def.Documents[0].DocumentBase64)
		require.NoError(t, err)
		assert.Contains(t, string(html), "Company: Food Bank North")
		assert.Contains(t, string(html), "**signature_1**")
		assert.Equal(t, "html", def.Documents[0].FileExtension)

		view := env.API.Calls[1].Arguments.Get(2).(*esign.ReturnURLRequest)
		assert.Equal(t, workflowtest.AppURL+"/ds-return?state=123", view.ReturnURL)
	})

	t.Run("recipient starting view rewrites the send flag", func(t *testing.T) {
		h, env := newTestHandler(t)
		expectSenderView(env.API)

		form := validForm()
		form.Set("startingView", envelope.StartingViewRecipient)
		req := workflowtest.PostForm("/embedded-sending", form)
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://demo.docusign.net/Signing/send?send=0&token=abc", rec.Header().Get("Location"))
	})

	t.Run("carbon copy is optional", func(t *testing.T) {
		h, env := newTestHandler(t)
		expectSenderView(env.API)

		form := validForm()
		form.Del("ccEmail")
		form.Del("ccName")
		req := workflowtest.PostForm("/embedded-sending", form)
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		def := env.API.Calls[0].Arguments.Get(1).(*esign.EnvelopeDefinition)
		assert.Empty(t, def.Recipients.CarbonCopies)
	})

	t.Run("invalid input never reaches the API", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(url.Values)
		}{
			{name: "bad signer email", mutate: func(v url.Values) { v.Set("signerEmail", "nope") }},
			{name: "hours not numeric", mutate: func(v url.Values) { v.Set("volunHours", "lots") }},
			{name: "unknown starting view", mutate: func(v url.Values) { v.Set("startingView", "preview") }},
			{name: "cc email without name", mutate: func(v url.Values) { v.Del("ccName") }},
			{name: "markup-only signer name", mutate: func(v url.Values) { v.Set("signerName", "<script>x</script>") }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				h, env := newTestHandler(t)
				form := validForm()
				tt.mutate(form)
				req := workflowtest.PostForm("/embedded-sending", form)
				env.SignIn(t, req, time.Hour)
				rec := httptest.NewRecorder()

				h.Submit(rec, req)

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Empty(t, env.API.Calls)
			})
		}
	})

	t.Run("sender view failure reports the draft", func(t *testing.T) {
		h, env := newTestHandler(t)
		env.API.On("CreateEnvelope", mock.Anything, mock.Anything).
			Return(&esign.EnvelopeSummary{EnvelopeID: "env-9"}, nil).Once()
		env.API.On("CreateSenderView", mock.Anything, "env-9", mock.Anything).
			Return(nil, &esign.APIError{StatusCode: 401, ErrorCode: "USER_AUTHENTICATION_FAILED", Message: "expired"}).Once()

		req := workflowtest.PostForm("/embedded-sending", validForm())
		env.SignIn(t, req, time.Hour)
		rec := httptest.NewRecorder()

		h.Submit(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), "USER_AUTHENTICATION_FAILED")
		require.Len(t, env.Orphans(), 1)
		assert.Equal(t, "create_sender_view", env.Orphans()[0].Step)
	})
}

func TestHandler_GetForm(t *testing.T) {
	h, env := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/embedded-sending", nil)
	env.SignIn(t, req, time.Hour)
	rec := httptest.NewRecorder()
	h.GetForm(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="volunHours"`)

	req = httptest.NewRequest(http.MethodGet, "/embedded-sending", nil)
	rec = httptest.NewRecorder()
	h.GetForm(rec, req)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate(), "return url is required")

	cfg.ReturnURL = "https://portal.example.test/ds-return"
	assert.NoError(t, cfg.Validate())

	cfg.ExpireWarnDays = cfg.ExpireAfterDays
	assert.Error(t, cfg.Validate())
}
