package domain

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
)

// QRPayload is the decoded employer-issued QR code: a base64-encoded JSON
// object identifying one employee. The optional emp_pwd field is ignored at
// this trust boundary; the QR is an identity hint, not a credential.
type QRPayload struct {
	ExternalID string `json:"emp_id"`
	Username   string `json:"emp_uname"`
	Email      string `json:"emp_email"`
	Phone      string `json:"emp_mobile_no"`
	Password   string `json:"emp_pwd,omitempty"`
}

// ErrInvalidQRPayload is returned when the payload is not valid base64 JSON
// or is missing a required identity field.
var ErrInvalidQRPayload = errors.New("invalid qr payload")

// DecodeQRPayload decodes and validates a base64(JSON) QR payload.
func DecodeQRPayload(encoded string) (*QRPayload, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrInvalidQRPayload
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// mobile scanners sometimes hand over URL-safe encoding
		raw, err = base64.URLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, ErrInvalidQRPayload
		}
	}
	var p QRPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, ErrInvalidQRPayload
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the identity fields required to key an account.
func (p *QRPayload) Validate() error {
	p.ExternalID = strings.TrimSpace(p.ExternalID)
	p.Username = strings.TrimSpace(p.Username)
	p.Email = strings.TrimSpace(strings.ToLower(p.Email))
	p.Phone = strings.TrimSpace(p.Phone)
	if p.ExternalID == "" || p.Username == "" || p.Email == "" {
		return ErrInvalidQRPayload
	}
	return nil
}

// Encode returns the canonical base64(JSON) form, used by tooling that
// fabricates QR codes (seeding, tests).
func (p *QRPayload) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
