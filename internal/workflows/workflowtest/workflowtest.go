// Package workflowtest wires workflow handlers against miniredis and a mocked
// eSignature API for handler tests.
package workflowtest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"esign-workflows/internal/common/config"
	"esign-workflows/internal/common/database"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/documents"
	"esign-workflows/internal/orchestrator"
	"esign-workflows/internal/session"
	"esign-workflows/internal/web"
	"esign-workflows/internal/workflows"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	AppURL      = "https://portal.example.test"
	AccessToken = "test-token"
	BasePath    = "https://demo.docusign.net/restapi"
	AccountID   = "acct-1"
	UserName    = "Pat Doe"
	UserEmail   = "pat@example.com"
)

// MockAPI is a testify mock of the eSignature calls the orchestrator makes.
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

// Env is a ready-to-use set of workflow dependencies.
type Env struct {
	Deps   workflows.Deps
	Store  *session.Store
	Redis  *miniredis.Miniredis
	API    *MockAPI
	DocDir string

	mu          sync.Mutex
	credentials []esign.Credentials
	orphans     []orchestrator.Orphan
}

func New(t *testing.T) *Env {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{
		App: config.AppConfig{Name: "esign-portal"},
		DocuSign: config.DocuSignConfig{
			AppURL:               AppURL,
			MustAuthenticatePath: "/ds/mustAuthenticate",
			ReturnPath:           "/ds-return",
			ReturnState:          "123",
			PingPath:             "/",
			PingEnabled:          true,
			FormTokenBufferMin:   10,
			SubmitTokenBufferMin: 3,
		},
		Session:   config.SessionConfig{CookieName: "esign_session", KeyPrefix: "session:", TTL: 60},
		Workers:   map[string]config.WorkerConfig{},
		Workflow:  config.WorkflowConfig{BulkListName: "Send to students"},
		Documents: config.DocumentsConfig{SMSDocument: "World_Wide_Corp_lorem.html"},
	}

	log := logger.NewTestLogger(t)
	redisClient := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = redisClient.Close() })
	store := session.NewStore(redisClient, cfg.Session)

	renderer, err := web.NewRenderer(cfg.App.Name, log)
	require.NoError(t, err)

	env := &Env{
		Store:  store,
		Redis:  mr,
		API:    &MockAPI{},
		DocDir: t.TempDir(),
	}
	env.Deps = workflows.Deps{
		AppConfig: cfg,
		Gate:      session.NewAuthGate(store, cfg.DocuSign, log),
		Sessions:  store,
		Renderer:  renderer,
		Documents: documents.NewFSLibrary(env.DocDir),
		Logger:    log,
	}
	env.Deps.Orchestrators = func(creds esign.Credentials) *orchestrator.Orchestrator {
		env.mu.Lock()
		env.credentials = append(env.credentials, creds)
		env.mu.Unlock()
		return orchestrator.New(env.API, orchestrator.Options{
			Orphans: env,
			Logger:  log,
			Sleeper: func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
		})
	}
	return env
}

// Report records orphans so tests can assert on them.
func (e *Env) Report(_ context.Context, orphan orchestrator.Orphan) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.orphans = append(e.orphans, orphan)
	return nil
}

func (e *Env) Orphans() []orchestrator.Orphan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]orchestrator.Orphan(nil), e.orphans...)
}

// Credentials lists the credentials each orchestrator was built with.
func (e *Env) Credentials() []esign.Credentials {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]esign.Credentials(nil), e.credentials...)
}

// AddDocument writes a file into the document library.
func (e *Env) AddDocument(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.DocDir, name), []byte(content), 0o600))
}

// SignIn stores a session whose token expires after ttl and attaches its cookie to req.
func (e *Env) SignIn(t *testing.T, req *http.Request, ttl time.Duration) *session.Session {
	t.Helper()
	sess := &session.Session{
		ID:          "sess-" + strings.ReplaceAll(t.Name(), "/", "-"),
		AccessToken: AccessToken,
		ExpiresAt:   time.Now().Add(ttl),
		BasePath:    BasePath,
		AccountID:   AccountID,
		UserName:    UserName,
		UserEmail:   UserEmail,
	}
	require.NoError(t, e.Store.Save(context.Background(), sess))
	req.AddCookie(&http.Cookie{Name: e.Deps.AppConfig.Session.CookieName, Value: sess.ID})
	return sess
}

// Session reads back a stored session.
func (e *Env) Session(t *testing.T, id string) *session.Session {
	t.Helper()
	sess, err := e.Store.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, sess)
	return sess
}

// PostForm builds a urlencoded POST request.
func PostForm(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
