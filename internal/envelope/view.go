package envelope

import (
	"net/url"
	"strconv"
	"strings"

	"esign-workflows/internal/common/errors"
	"esign-workflows/internal/common/esign"
)

const (
	DefaultAuthenticationMethod = "Email"
	DefaultPingInterval         = 600

	StartingViewTagging   = "tagging"
	StartingViewRecipient = "recipient"
)

type ViewInput struct {
	Email                string
	UserName             string
	ClientUserID         string
	ReturnURL            string
	State                string
	PingURL              string
	PingInterval         int
	AuthenticationMethod string
}

// NewRecipientView builds the request for an embedded signing ceremony.
func NewRecipientView(in ViewInput) (*esign.RecipientViewRequest, error) {
	if in.Email == "" || in.UserName == "" {
		return nil, errors.NewValidationError("recipient view requires the signer's email and name", "signerEmail", "signerName")
	}
	returnURL, err := WithState(in.ReturnURL, in.State)
	if err != nil {
		return nil, err
	}

	req := &esign.RecipientViewRequest{
		ReturnURL:            returnURL,
		AuthenticationMethod: in.AuthenticationMethod,
		Email:                in.Email,
		UserName:             in.UserName,
		ClientUserID:         in.ClientUserID,
		PingURL:              in.PingURL,
	}
	if req.AuthenticationMethod == "" {
		req.AuthenticationMethod = DefaultAuthenticationMethod
	}
	interval := in.PingInterval
	if interval <= 0 {
		interval = DefaultPingInterval
	}
	req.PingFrequency = strconv.Itoa(interval)
	return req, nil
}

// NewSenderView builds the request for an embedded sending (tagging) view.
func NewSenderView(returnURL, state string) (*esign.ReturnURLRequest, error) {
	u, err := WithState(returnURL, state)
	if err != nil {
		return nil, err
	}
	return &esign.ReturnURLRequest{ReturnURL: u}, nil
}

// WithState sets the state query parameter, replacing any existing value so
// it appears exactly once. An empty state leaves the URL untouched.
func WithState(rawURL, state string) (string, error) {
	if rawURL == "" {
		return "", errors.NewValidationError("return URL is required", "returnUrl")
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", errors.NewValidationError("return URL must be absolute", "returnUrl")
	}
	if state == "" {
		return rawURL, nil
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ApplyStartingView adjusts a sender view URL so it opens on the recipients
// page instead of the tagging page.
func ApplyStartingView(viewURL, startingView string) string {
	if startingView == StartingViewRecipient {
		return strings.Replace(viewURL, "send=1", "send=0", 1)
	}
	return viewURL
}
