package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// Headers set by Shopify on webhook deliveries.
const (
	SignatureHeader  = "X-Shopify-Hmac-Sha256"
	TopicHeader      = "X-Shopify-Topic"
	ShopDomainHeader = "X-Shopify-Shop-Domain"
)

var (
	ErrMissingSignature = errors.New("missing_signature")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidConfig    = errors.New("webhook secret is required")
)

// Verifier validates webhook authenticity against the shared app secret.
//
// Verification must run over the exact raw bytes received on the wire,
// before any JSON decoding: a decode/re-encode round trip is not guaranteed
// to reproduce the original byte sequence.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrInvalidConfig
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify checks the base64-encoded HMAC-SHA256 signature over rawBody.
func (v *Verifier) Verify(rawBody []byte, providedSignature string) error {
	if v == nil || len(v.secret) == 0 {
		return ErrInvalidSignature
	}
	provided := strings.TrimSpace(providedSignature)
	if provided == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, v.secret)
	_, _ = mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	// hmac.Equal keeps the comparison constant time.
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// VerifyRequest reads the Shopify signature header and verifies rawBody.
func (v *Verifier) VerifyRequest(headers http.Header, rawBody []byte) error {
	return v.Verify(rawBody, headers.Get(SignatureHeader))
}

// Sign computes the signature Shopify would attach to body. Used by tests
// and local tooling.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
