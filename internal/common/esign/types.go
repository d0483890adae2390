package esign

import "encoding/json"

// Wire types for the subset of the eSignature v2.1 REST API used by the portal.
// DocuSign encodes numbers and booleans as strings; the fields below follow that.

type EnvelopeDefinition struct {
	EmailSubject       string        `json:"emailSubject,omitempty"`
	Documents          []Document    `json:"documents,omitempty"`
	Recipients         *Recipients   `json:"recipients,omitempty"`
	Status             string        `json:"status,omitempty"`
	EnvelopeIDStamping string        `json:"envelopeIdStamping,omitempty"`
	Notification       *Notification `json:"notification,omitempty"`
	CustomFields       *CustomFields `json:"customFields,omitempty"`
}

type Document struct {
	DocumentBase64 string `json:"documentBase64"`
	Name           string `json:"name"`
	FileExtension  string `json:"fileExtension"`
	DocumentID     string `json:"documentId"`
}

type Recipients struct {
	Signers      []Signer     `json:"signers,omitempty"`
	CarbonCopies []CarbonCopy `json:"carbonCopies,omitempty"`
}

type Signer struct {
	Name                     string             `json:"name"`
	Email                    string             `json:"email"`
	RecipientID              string             `json:"recipientId"`
	RoutingOrder             string             `json:"routingOrder,omitempty"`
	ClientUserID             string             `json:"clientUserId,omitempty"`
	RoleName                 string             `json:"roleName,omitempty"`
	Status                   string             `json:"status,omitempty"`
	DeliveryMethod           string             `json:"deliveryMethod,omitempty"`
	RecipientType            string             `json:"recipientType,omitempty"`
	RequireIDLookup          string             `json:"requireIdLookup,omitempty"`
	IDCheckConfigurationName string             `json:"idCheckConfigurationName,omitempty"`
	SMSAuthentication        *SMSAuthentication `json:"smsAuthentication,omitempty"`
	Tabs                     *Tabs              `json:"tabs,omitempty"`
}

type SMSAuthentication struct {
	SenderProvidedNumbers []string `json:"senderProvidedNumbers"`
}

type CarbonCopy struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	RecipientID  string `json:"recipientId"`
	RoutingOrder string `json:"routingOrder,omitempty"`
}

type Tabs struct {
	SignHereTabs   []Tab `json:"signHereTabs,omitempty"`
	DateSignedTabs []Tab `json:"dateSignedTabs,omitempty"`
}

// Tab is an anchor-positioned field.
type Tab struct {
	AnchorString  string `json:"anchorString"`
	AnchorUnits   string `json:"anchorUnits,omitempty"`
	AnchorXOffset string `json:"anchorXOffset,omitempty"`
	AnchorYOffset string `json:"anchorYOffset,omitempty"`
}

type Notification struct {
	UseAccountDefaults string       `json:"useAccountDefaults"`
	Expirations        *Expirations `json:"expirations,omitempty"`
}

type Expirations struct {
	ExpireEnabled string `json:"expireEnabled"`
	ExpireAfter   string `json:"expireAfter"`
	ExpireWarn    string `json:"expireWarn"`
}

type CustomFields struct {
	TextCustomFields []TextCustomField `json:"textCustomFields"`
}

type TextCustomField struct {
	Name     string `json:"name"`
	Required string `json:"required"`
	Show     string `json:"show"`
	Value    string `json:"value"`
}

type EnvelopeSummary struct {
	EnvelopeID     string `json:"envelopeId"`
	Status         string `json:"status"`
	StatusDateTime string `json:"statusDateTime,omitempty"`
	URI            string `json:"uri,omitempty"`
}

type RecipientsUpdateSummary struct {
	RecipientUpdateResults []struct {
		RecipientID string `json:"recipientId"`
	} `json:"recipientUpdateResults,omitempty"`
}

// Bulk sending

type BulkSendingList struct {
	ListID     string         `json:"listId,omitempty"`
	Name       string         `json:"name"`
	BulkCopies []BulkSendCopy `json:"bulkCopies"`
}

type BulkSendCopy struct {
	Recipients []BulkSendRecipient `json:"recipients"`
}

type BulkSendRecipient struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	RoleName    string `json:"roleName,omitempty"`
	RecipientID string `json:"recipientId,omitempty"`
}

type BulkSendRequest struct {
	EnvelopeOrTemplateID string `json:"envelopeOrTemplateId"`
}

type BulkSendResponse struct {
	BatchID              string   `json:"batchId"`
	BatchName            string   `json:"batchName,omitempty"`
	BatchSize            string   `json:"batchSize,omitempty"`
	EnvelopeOrTemplateID string   `json:"envelopeOrTemplateId,omitempty"`
	ListID               string   `json:"listId,omitempty"`
	Errors               []string `json:"errors,omitempty"`
}

// BulkSendBatchStatus is a point-in-time snapshot of a bulk batch. Raw holds the
// body exactly as DocuSign returned it.
type BulkSendBatchStatus struct {
	BatchID   string          `json:"batchId"`
	BatchName string          `json:"batchName,omitempty"`
	BatchSize string          `json:"batchSize,omitempty"`
	Queued    string          `json:"queued"`
	Sent      string          `json:"sent"`
	Failed    string          `json:"failed"`
	Submitted string          `json:"submittedDate,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

func (s *BulkSendBatchStatus) QueuedCount() int { return atoi(s.Queued) }
func (s *BulkSendBatchStatus) SentCount() int   { return atoi(s.Sent) }
func (s *BulkSendBatchStatus) FailedCount() int { return atoi(s.Failed) }

// Views

type RecipientViewRequest struct {
	ReturnURL            string `json:"returnUrl"`
	AuthenticationMethod string `json:"authenticationMethod"`
	Email                string `json:"email"`
	UserName             string `json:"userName"`
	ClientUserID         string `json:"clientUserId,omitempty"`
	PingURL              string `json:"pingUrl,omitempty"`
	PingFrequency        string `json:"pingFrequency,omitempty"`
}

type ReturnURLRequest struct {
	ReturnURL string `json:"returnUrl"`
}

type ViewURL struct {
	URL string `json:"url"`
}

// Envelope listing

type ListStatusChangesOptions struct {
	FolderIDs []string
	FromDate  string
}

type EnvelopesInformation struct {
	ResultSetSize string         `json:"resultSetSize"`
	TotalSetSize  string         `json:"totalSetSize,omitempty"`
	Envelopes     []EnvelopeInfo `json:"envelopes"`
}

type EnvelopeInfo struct {
	EnvelopeID      string `json:"envelopeId"`
	EmailSubject    string `json:"emailSubject"`
	Status          string `json:"status"`
	SentDateTime    string `json:"sentDateTime,omitempty"`
	CreatedDateTime string `json:"createdDateTime,omitempty"`
}

type errorDetails struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}
