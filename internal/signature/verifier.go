package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Header carries the webhook signature sent by WooCommerce.
const Header = "X-WC-Webhook-Signature"

// Encoding selects how the received signature is represented on the wire.
// It is fixed per deployment and never guessed from the request.
type Encoding string

const (
	EncodingHex    Encoding = "hex"
	EncodingBase64 Encoding = "base64"
)

var ErrUnknownEncoding = errors.New("unknown signature encoding")

// ParseEncoding maps a configuration value onto an Encoding.
func ParseEncoding(value string) (Encoding, error) {
	switch Encoding(strings.ToLower(strings.TrimSpace(value))) {
	case EncodingHex:
		return EncodingHex, nil
	case EncodingBase64:
		return EncodingBase64, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, value)
	}
}

// Verifier checks HMAC-SHA256 signatures for a single shared secret.
type Verifier struct {
	secret   []byte
	encoding Encoding
}

func NewVerifier(secret string, encoding Encoding) *Verifier {
	return &Verifier{secret: []byte(secret), encoding: encoding}
}

// Configured reports whether a secret is present. Callers treat an
// unconfigured verifier as a server fault rather than a rejected request.
func (v *Verifier) Configured() bool {
	return len(v.secret) > 0
}

func (v *Verifier) Encoding() Encoding {
	return v.encoding
}

func (v *Verifier) Verify(body []byte, received string) bool {
	return Verify(v.secret, body, received, v.encoding)
}

// Verify reports whether received is the signature of body under secret.
// An empty secret or signature never verifies.
func Verify(secret, body []byte, received string, encoding Encoding) bool {
	if len(secret) == 0 || received == "" {
		return false
	}

	digest := Sum(secret, body)

	switch encoding {
	case EncodingHex:
		expected := hex.EncodeToString(digest)
		return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
	case EncodingBase64:
		decoded, err := base64.StdEncoding.Strict().DecodeString(received)
		if err != nil {
			return false
		}
		return subtle.ConstantTimeCompare(digest, decoded) == 1
	default:
		return false
	}
}

// Sum returns the raw HMAC-SHA256 digest of body keyed by secret.
func Sum(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// Sign produces the wire representation of the signature for body.
func Sign(secret, body []byte, encoding Encoding) string {
	digest := Sum(secret, body)
	if encoding == EncodingBase64 {
		return base64.StdEncoding.EncodeToString(digest)
	}
	return hex.EncodeToString(digest)
}
