// Package envelope turns validated workflow input into eSignature request payloads.
// Nothing here performs I/O.
package envelope

import (
	"encoding/base64"
	"fmt"
	"strconv"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
)

const (
	StatusCreated = "created"
	StatusSent    = "sent"

	smsIDCheckConfiguration = "SMS Auth $"
)

type Document struct {
	Content   []byte
	Name      string
	Extension string
	ID        string
}

// Party is a recipient identity.
type Party struct {
	Name  string
	Email string
}

type Signer struct {
	Party
	ClientUserID string
	RoleName     string
	Tabs         *esign.Tabs
	// SMSNumbers enables SMS recipient authentication against these numbers.
	SMSNumbers []string
}

type Expiration struct {
	AfterDays int
	WarnDays  int
}

type Input struct {
	Subject      string
	Documents    []Document
	Signers      []Signer
	CarbonCopies []Party
	Status       string
	Expiration   *Expiration
	IDStamping   bool
}

// Build assembles an envelope definition. Signers are routed 1..n in input
// order and carbon copies continue the sequence; recipient ids follow the same numbering.
func Build(in Input) (*esign.EnvelopeDefinition, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = StatusCreated
	}

	def := &esign.EnvelopeDefinition{
		EmailSubject: in.Subject,
		Status:       status,
		Recipients:   &esign.Recipients{},
	}
	if in.IDStamping {
		def.EnvelopeIDStamping = "true"
	}

	for i, doc := range in.Documents {
		id := doc.ID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		def.Documents = append(def.Documents, esign.Document{
			DocumentBase64: base64.StdEncoding.EncodeToString(doc.Content),
			Name:           doc.Name,
			FileExtension:  doc.Extension,
			DocumentID:     id,
		})
	}

	seq := 0
	for _, s := range in.Signers {
		seq++
		signer := esign.Signer{
			Name:         s.Name,
			Email:        s.Email,
			RecipientID:  strconv.Itoa(seq),
			RoutingOrder: strconv.Itoa(seq),
			ClientUserID: s.ClientUserID,
			RoleName:     s.RoleName,
			Tabs:         s.Tabs,
		}
		if len(s.SMSNumbers) > 0 {
			signer.RequireIDLookup = "true"
			signer.IDCheckConfigurationName = smsIDCheckConfiguration
			signer.SMSAuthentication = &esign.SMSAuthentication{SenderProvidedNumbers: s.SMSNumbers}
		}
		def.Recipients.Signers = append(def.Recipients.Signers, signer)
	}
	for _, cc := range in.CarbonCopies {
		seq++
		def.Recipients.CarbonCopies = append(def.Recipients.CarbonCopies, esign.CarbonCopy{
			Name:         cc.Name,
			Email:        cc.Email,
			RecipientID:  strconv.Itoa(seq),
			RoutingOrder: strconv.Itoa(seq),
		})
	}

	if in.Expiration != nil {
		def.Notification = &esign.Notification{
			UseAccountDefaults: "false",
			Expirations: &esign.Expirations{
				ExpireEnabled: "true",
				ExpireAfter:   strconv.Itoa(in.Expiration.AfterDays),
				ExpireWarn:    strconv.Itoa(in.Expiration.WarnDays),
			},
		}
	}

	return def, nil
}

func validate(in Input) error {
	if len(in.Documents) == 0 {
		return errors.NewValidationError("envelope requires at least one document", "documents")
	}
	if len(in.Signers) == 0 {
		return errors.NewValidationError("envelope requires at least one signer", "signers")
	}
	for i, doc := range in.Documents {
		if len(doc.Content) == 0 {
			return errors.NewValidationError(fmt.Sprintf("document %d is empty", i+1), "documents")
		}
		if doc.Name == "" || doc.Extension == "" {
			return errors.NewValidationError(fmt.Sprintf("document %d needs a name and extension", i+1), "documents")
		}
	}
	for i, s := range in.Signers {
		if s.Name == "" || s.Email == "" {
			return errors.NewValidationError(fmt.Sprintf("signer %d needs a name and email", i+1), "signers")
		}
	}
	for i, cc := range in.CarbonCopies {
		if cc.Name == "" || cc.Email == "" {
			return errors.NewValidationError(fmt.Sprintf("carbon copy %d needs a name and email", i+1), "carbonCopies")
		}
	}
	switch in.Status {
	case "", StatusCreated, StatusSent:
	default:
		return errors.NewValidationError(fmt.Sprintf("unsupported envelope status %q", in.Status), "status")
	}
	if exp := in.Expiration; exp != nil {
		if exp.AfterDays <= 0 {
			return errors.NewValidationError("expiration must be at least one day", "expiration")
		}
		if exp.WarnDays < 0 || exp.WarnDays >= exp.AfterDays {
			return errors.NewValidationError("expiration warning must come before expiry", "expiration")
		}
	}
	return nil
}

// SignHere places a signature field relative to an anchor string in the document.
func SignHere(anchor string, x, y int) esign.Tab {
	return anchorTab(anchor, x, y)
}

// DateSigned places a date-signed field relative to an anchor string.
func DateSigned(anchor string, x, y int) esign.Tab {
	return anchorTab(anchor, x, y)
}

func anchorTab(anchor string, x, y int) esign.Tab {
	return esign.Tab{
		AnchorString:  anchor,
		AnchorUnits:   "pixels",
		AnchorXOffset: strconv.Itoa(x),
		AnchorYOffset: strconv.Itoa(y),
	}
}

// DefaultBulkWarnDays is how far ahead of expiry bulk recipients are warned.
const DefaultBulkWarnDays = 5

// BulkWarnDays is the expiry warning for a bulk envelope: warnDays ahead
// (DefaultBulkWarnDays when zero), or one day before expiry for short deadlines.
func BulkWarnDays(deadlineDays, warnDays int) int {
	warn := warnDays
	if warn <= 0 {
		warn = DefaultBulkWarnDays
	}
	if deadlineDays-1 < warn {
		warn = deadlineDays - 1
	}
	if warn < 0 {
		warn = 0
	}
	return warn
}

// Bulk placeholder signer. Each bulk copy's recipient takes its place.
const (
	BulkPlaceholderName  = "Multi Bulk Recipient::signer"
	BulkPlaceholderEmail = "multiBulkRecipients-signer@docusign.com"
	MailingListFieldName = "mailingListId"
)

// BulkPlaceholder is the signer added to a draft envelope before it is bulk sent.
func BulkPlaceholder() *esign.Recipients {
	return &esign.Recipients{Signers: []esign.Signer{{
		Name:           BulkPlaceholderName,
		Email:          BulkPlaceholderEmail,
		RoleName:       DefaultBulkRole,
		RoutingOrder:   "1",
		Status:         StatusCreated,
		DeliveryMethod: "email",
		RecipientID:    "1",
		RecipientType:  "signer",
	}}}
}

// MailingListField links a draft envelope to the bulk list it will be sent to.
func MailingListField(listID string) *esign.CustomFields {
	return &esign.CustomFields{TextCustomFields: []esign.TextCustomField{{
		Name:     MailingListFieldName,
		Required: "false",
		Show:     "false",
		Value:    listID,
	}}}
}

type BulkDraftInput struct {
	Subject      string
	Document     Document
	DeadlineDays int
	WarnDays     int
	// CarbonCopy, when set, receives a copy of every envelope in the batch.
	CarbonCopy *Party
}

// BuildBulkDraft builds the draft that a bulk list is sent against. It carries
// no signers of its own; BulkPlaceholder is added once the draft exists.
func BuildBulkDraft(in BulkDraftInput) (*esign.EnvelopeDefinition, error) {
	if len(in.Document.Content) == 0 || in.Document.Name == "" {
		return nil, errors.NewValidationError("bulk send requires a document", "fileBase64", "inputFiles")
	}
	if in.DeadlineDays <= 0 {
		return nil, errors.NewValidationError("deadline must be at least one day", "docDeadline")
	}

	doc := in.Document
	if doc.Extension == "" {
		doc.Extension = "pdf"
	}
	if doc.ID == "" {
		doc.ID = "1"
	}

	def := &esign.EnvelopeDefinition{
		EmailSubject:       in.Subject,
		Status:             StatusCreated,
		EnvelopeIDStamping: "true",
		Documents: []esign.Document{{
			DocumentBase64: base64.StdEncoding.EncodeToString(doc.Content),
			Name:           doc.Name,
			FileExtension:  doc.Extension,
			DocumentID:     doc.ID,
		}},
		Notification: &esign.Notification{
			UseAccountDefaults: "false",
			Expirations: &esign.Expirations{
				ExpireEnabled: "true",
				ExpireAfter:   strconv.Itoa(in.DeadlineDays),
				ExpireWarn:    strconv.Itoa(BulkWarnDays(in.DeadlineDays, in.WarnDays)),
			},
		},
	}
	if cc := in.CarbonCopy; cc != nil && cc.Email != "" {
		def.Recipients = &esign.Recipients{CarbonCopies: []esign.CarbonCopy{{
			Name:         cc.Name,
			Email:        cc.Email,
			RecipientID:  "2",
			RoutingOrder: "2",
		}}}
	}
	return def, nil
}
