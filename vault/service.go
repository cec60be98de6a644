// Package vault wraps PASERK keys with the HashiCorp Vault Transit secrets engine.
//
// The Transit key must be an AEAD type (for example aes256-gcm96). The
// encryption context, including the "PaserkHeader" entry, is sent as
// associated_data (paserk.CanonicalContext bytes). The stored ciphertext is
// Vault's own "vault:vN:..." string.
//
// Usage:
//
//	client, err := vault.NewClient("https://vault.example.com:8200", "hvs.token123")
//	w, err := vault.New(client, paserk.V4, "paserk")
package vault

import (
	"context"
	"fmt"

	paserk "github.com/rbaliyan/paserk-kms"
)

// MethodID is the wrap method identifier written into tokens produced by this package.
const MethodID = "vault-transit"

// Client abstracts the Vault Transit encrypt and decrypt operations.
// This allows injecting a mock for testing or wrapping any Vault client library.
type Client interface {
	// TransitEncrypt encrypts plaintext with the named Transit key, authenticating aad.
	// Returns Vault's ciphertext string (e.g., "vault:v1:base64data").
	TransitEncrypt(ctx context.Context, keyName string, plaintext, aad []byte) (string, error)

	// TransitDecrypt decrypts Vault ciphertext with the named Transit key, verifying aad.
	TransitDecrypt(ctx context.Context, keyName string, ciphertext string, aad []byte) ([]byte, error)
}

// Service implements paserk.Service on a Transit Client. The key ID is the Transit key name.
type Service struct {
	client Client
}

// NewService creates a Service. Returns an error if client is nil.
func NewService(client Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: vault client is nil", paserk.ErrInvalidConfig)
	}
	return &Service{client: client}, nil
}

// Encrypt implements paserk.Service.
func (s *Service) Encrypt(ctx context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	ct, err := s.client.TransitEncrypt(ctx, keyID, plaintext, paserk.CanonicalContext(encCtx))
	if err != nil {
		return nil, err
	}
	return []byte(ct), nil
}

// Decrypt implements paserk.Service.
func (s *Service) Decrypt(ctx context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	return s.client.TransitDecrypt(ctx, keyID, string(ciphertext), paserk.CanonicalContext(encCtx))
}

// New creates a Wrapper for the Transit key keyName, using MethodID.
func New(client Client, version paserk.Version, keyName string, opts ...paserk.Option) (*paserk.Wrapper, error) {
	svc, err := NewService(client)
	if err != nil {
		return nil, err
	}
	return paserk.New(svc, version, keyName, MethodID, opts...)
}

// Compile-time interface checks.
var (
	_ paserk.Service = (*Service)(nil)
	_ Client         = (*HTTPClient)(nil)
)
