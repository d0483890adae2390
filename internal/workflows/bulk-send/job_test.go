package bulksend

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
	"esign-workflows/internal/common/logger"
	"esign-workflows/internal/orchestrator"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "bulk-send-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_BulkSend",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Deadline:                 0,
		Variables:                string(variablesJSON),
	}

	return entities.Job{ActivatedJob: activatedJob}
}

func validJobVariables() map[string]interface{} {
	return map[string]interface{}{
		"accessToken":    "token",
		"expiresAt":      time.Now().Add(time.Hour).Format(time.RFC3339),
		"basePath":       "https://demo.docusign.net/restapi",
		"accountId":      "acct-1",
		"signerEmail":    "a@x.com",
		"signerName":     "A",
		"docName":        "Course agreement",
		"docDeadline":    30,
		"documentBase64": base64.StdEncoding.EncodeToString(pdfBytes),
		"bulkRecipients": []interface{}{
			map[string]interface{}{"name": "B", "email": "b@x.com"},
			map[string]interface{}{"name": "C", "email": "c@x.com"},
		},
		"processTrigger": "form",
	}
}

func newTestJobHandler(t *testing.T) *JobHandler {
	t.Helper()
	h, err := NewJobHandler(JobHandlerOptions{
		CustomConfig:  createValidConfig(),
		Orchestrators: func(esign.Credentials) *orchestrator.Orchestrator { return nil },
		Logger:        logger.NewNoOpLogger(),
	})
	require.NoError(t, err)
	return h
}

func TestNewJobHandler(t *testing.T) {
	_, err := NewJobHandler(JobHandlerOptions{CustomConfig: createValidConfig()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orchestrator factory")

	h := newTestJobHandler(t)
	assert.Equal(t, TaskType, h.GetTaskType())
}

func TestJobHandler_ParseInput(t *testing.T) {
	h := newTestJobHandler(t)

	tests := []struct {
		name      string
		mutate    func(map[string]interface{})
		wantField string
		validate  func(*testing.T, esign.Credentials, *Input)
	}{
		{
			name:   "valid variables",
			mutate: func(map[string]interface{}) {},
			validate: func(t *testing.T, creds esign.Credentials, in *Input) {
				assert.Equal(t, "token", creds.AccessToken)
				assert.Equal(t, "acct-1", creds.AccountID)
				assert.Equal(t, 30, in.DeadlineDays)
				assert.Equal(t, pdfBytes, in.Document)
				assert.Equal(t, "document.pdf", in.FileName)
				require.Len(t, in.Records, 2)
				assert.Equal(t, "c@x.com", in.Records[1].Recipients[0].Email)
				require.NotNil(t, in.CarbonCopy)
				assert.Equal(t, "a@x.com", in.CarbonCopy.Email)
			},
		},
		{
			name: "multi-recipient copy",
			mutate: func(v map[string]interface{}) {
				v["bulkRecipients"] = []interface{}{[]interface{}{
					map[string]interface{}{"name": "B", "email": "b@x.com"},
					map[string]interface{}{"name": "C", "email": "c@x.com"},
				}}
				v["fileName"] = "contract.pdf"
			},
			validate: func(t *testing.T, _ esign.Credentials, in *Input) {
				require.Len(t, in.Records, 1)
				assert.Len(t, in.Records[0].Recipients, 2)
				assert.Equal(t, "contract.pdf", in.FileName)
			},
		},
		{name: "missing token", mutate: func(v map[string]interface{}) { delete(v, "accessToken") }, wantField: "accessToken"},
		{name: "fractional deadline", mutate: func(v map[string]interface{}) { v["docDeadline"] = 2.5 }, wantField: "docDeadline"},
		{name: "deadline as string", mutate: func(v map[string]interface{}) { v["docDeadline"] = "30" }, wantField: "docDeadline"},
		{name: "recipients not an array", mutate: func(v map[string]interface{}) { v["bulkRecipients"] = "B" }, wantField: "bulkRecipients"},
		{name: "recipient without email", mutate: func(v map[string]interface{}) {
			v["bulkRecipients"] = []interface{}{map[string]interface{}{"name": "B"}}
		}, wantField: "bulkRecipients"},
		{name: "bad base path", mutate: func(v map[string]interface{}) { v["basePath"] = "demo" }, wantField: "basePath"},
		{name: "missing expiry", mutate: func(v map[string]interface{}) { delete(v, "expiresAt") }, wantField: "expiresAt"},
		{name: "unparseable expiry", mutate: func(v map[string]interface{}) { v["expiresAt"] = "tomorrow" }, wantField: "expiresAt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := validJobVariables()
			tt.mutate(vars)

			creds, input, err := h.parseInput(createMockJob(12345, vars))
			if tt.wantField != "" {
				require.Error(t, err)
				stdErr, ok := errors.AsStandard(err)
				require.True(t, ok)
				assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
				assert.Contains(t, stdErr.Metadata[errors.MetaFields], tt.wantField)
				return
			}
			require.NoError(t, err)
			tt.validate(t, creds, input)
		})
	}
}

func TestJobHandler_ParseInputAuthExpired(t *testing.T) {
	h := newTestJobHandler(t)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	tests := []struct {
		name      string
		expiresAt time.Time
		wantErr   bool
	}{
		{name: "outside buffer", expiresAt: now.Add(10 * time.Minute)},
		{name: "inside buffer", expiresAt: now.Add(2 * time.Minute), wantErr: true},
		{name: "already expired", expiresAt: now.Add(-time.Minute), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := validJobVariables()
			vars["expiresAt"] = tt.expiresAt.Format(time.RFC3339)

			_, input, err := h.parseInput(createMockJob(1, vars))
			if !tt.wantErr {
				require.NoError(t, err)
				assert.NotNil(t, input)
				return
			}
			require.Error(t, err)
			stdErr, ok := errors.AsStandard(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeAuthExpired, stdErr.Code)
			assert.Nil(t, input)

			bpmnErr := errors.ConvertToBPMNError(stdErr)
			assert.Equal(t, "ESIGN_AUTH_EXPIRED", bpmnErr.Code)
			assert.Equal(t, 0, bpmnErr.Retries)
		})
	}
}

func TestOutputVariables(t *testing.T) {
	vars := outputVariables(&Output{ListID: "list-1", EnvelopeID: "env-1", BatchID: "batch-1", Queued: 2, Failed: 1, Attempts: 1})

	assert.Equal(t, true, vars["bulkSendSucceeded"])
	assert.Equal(t, "env-1", vars["bulkEnvelopeId"])
	assert.Equal(t, 2, vars["bulkQueued"])
	assert.Equal(t, 1, vars["bulkFailed"])
}

func TestJobHandler_RegisterAndHealth(t *testing.T) {
	cfg := createValidConfig()
	cfg.Enabled = false
	h, err := NewJobHandler(JobHandlerOptions{
		CustomConfig:  cfg,
		Orchestrators: func(esign.Credentials) *orchestrator.Orchestrator { return nil },
		Logger:        logger.NewNoOpLogger(),
	})
	require.NoError(t, err)

	assert.NoError(t, h.Register())
	h.Close()

	h.config.Enabled = true
	assert.Error(t, h.Register())
	assert.Error(t, h.HealthCheck(t.Context()))
}
