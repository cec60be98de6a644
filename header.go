package paserk

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Token format constants.
const (
	// tokenSeparator separates the four token fields.
	tokenSeparator = "."

	// tokenFields is the number of fields in a wrapped token:
	// version, purpose, wrap method, payload.
	tokenFields = 4

	// HeaderContextKey is the encryption context key that always carries the token header.
	HeaderContextKey = "PaserkHeader"
)

// payloadEncoding is unpadded base64url, whose alphabet never contains the separator.
var payloadEncoding = base64.RawURLEncoding

// BuildHeader returns the header for a wrapped token, including the trailing dot:
//
//	v4.local-wrap.aws-kms.
func BuildHeader(v Version, p Purpose, methodID string) string {
	return v.Header() + tokenSeparator + p.Tag() + tokenSeparator + methodID + tokenSeparator
}

// tokenParts holds the raw, unvalidated fields of a wrapped token.
type tokenParts struct {
	version string
	purpose string
	method  string
	payload string
}

// parseToken splits a wrapped token into its four fields.
// Field contents are not validated here.
func parseToken(token string) (tokenParts, error) {
	pieces := strings.Split(token, tokenSeparator)
	if len(pieces) != tokenFields {
		return tokenParts{}, fmt.Errorf("%w: expected %d fields, got %d", ErrMalformedToken, tokenFields, len(pieces))
	}
	return tokenParts{
		version: pieces[0],
		purpose: pieces[1],
		method:  pieces[2],
		payload: pieces[3],
	}, nil
}

// header recomputes the exact header bytes that were bound at wrap time.
func (p tokenParts) header() string {
	return p.version + tokenSeparator + p.purpose + tokenSeparator + p.method + tokenSeparator
}

// ciphertext decodes the payload field.
func (p tokenParts) ciphertext() ([]byte, error) {
	ct, err := payloadEncoding.DecodeString(p.payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return ct, nil
}

// encodePayload encodes service ciphertext for the token payload field.
func encodePayload(ciphertext []byte) string {
	return payloadEncoding.EncodeToString(ciphertext)
}
