package esign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	httpclient "esign-workflows/internal/common/http"
	"esign-workflows/internal/common/metrics"
)

const apiVersionPath = "/v2.1/accounts/"

// Credentials identify the caller's account. They are read from the session for every request.
type Credentials struct {
	AccessToken string
	BasePath    string
	AccountID   string
}

// Client is a typed client for the envelope, bulk send and view endpoints.
type Client struct {
	creds Credentials
	http  *httpclient.Client
}

func NewClient(creds Credentials, hc *httpclient.Client) *Client {
	return &Client{creds: creds, http: hc}
}

func (c *Client) CreateBulkSendList(ctx context.Context, list *BulkSendingList) (*BulkSendingList, error) {
	var out BulkSendingList
	if err := c.do(ctx, "createBulkSendList", http.MethodPost, "bulk_send_lists", nil, list, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateEnvelope(ctx context.Context, def *EnvelopeDefinition) (*EnvelopeSummary, error) {
	var out EnvelopeSummary
	if err := c.do(ctx, "createEnvelope", http.MethodPost, "envelopes", nil, def, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRecipients(ctx context.Context, envelopeID string, recipients *Recipients) (*RecipientsUpdateSummary, error) {
	var out RecipientsUpdateSummary
	path := "envelopes/" + url.PathEscape(envelopeID) + "/recipients"
	if err := c.do(ctx, "createRecipient", http.MethodPost, path, nil, recipients, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCustomFields(ctx context.Context, envelopeID string, fields *CustomFields) (*CustomFields, error) {
	var out CustomFields
	path := "envelopes/" + url.PathEscape(envelopeID) + "/custom_fields"
	if err := c.do(ctx, "createCustomFields", http.MethodPost, path, nil, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateBulkSendRequest(ctx context.Context, listID string, req *BulkSendRequest) (*BulkSendResponse, error) {
	var out BulkSendResponse
	path := "bulk_send_lists/" + url.PathEscape(listID) + "/send"
	if err := c.do(ctx, "createBulkSendRequest", http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetBulkSendBatchStatus(ctx context.Context, batchID string) (*BulkSendBatchStatus, error) {
	var raw json.RawMessage
	path := "bulk_send_batch/" + url.PathEscape(batchID)
	if err := c.do(ctx, "getBulkSendBatchStatus", http.MethodGet, path, nil, nil, &raw); err != nil {
		return nil, err
	}
	var out BulkSendBatchStatus
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("getBulkSendBatchStatus: decode response: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) CreateRecipientView(ctx context.Context, envelopeID string, req *RecipientViewRequest) (*ViewURL, error) {
	var out ViewURL
	path := "envelopes/" + url.PathEscape(envelopeID) + "/views/recipient"
	if err := c.do(ctx, "createRecipientView", http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSenderView(ctx context.Context, envelopeID string, req *ReturnURLRequest) (*ViewURL, error) {
	var out ViewURL
	path := "envelopes/" + url.PathEscape(envelopeID) + "/views/sender"
	if err := c.do(ctx, "createSenderView", http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListStatusChanges(ctx context.Context, opts ListStatusChangesOptions) (*EnvelopesInformation, error) {
	query := url.Values{}
	if len(opts.FolderIDs) > 0 {
		query.Set("folder_ids", strings.Join(opts.FolderIDs, ","))
	}
	if opts.FromDate != "" {
		query.Set("from_date", opts.FromDate)
	}
	var out EnvelopesInformation
	if err := c.do(ctx, "listStatusChanges", http.MethodGet, "envelopes", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := strings.TrimRight(c.creds.BasePath, "/") + apiVersionPath + url.PathEscape(c.creds.AccountID) + "/" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, operation, method, path string, query url.Values, in, out interface{}) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RemoteCallsTotal.WithLabelValues(operation, status).Inc()
		metrics.RemoteCallDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.creds.AccessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(operation, resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
