// Package azurekv wraps PASERK keys with Azure Key Vault (Managed HSM) AES-GCM keys.
//
// Key Vault only authenticates additional data for AES-GCM, so this package uses
// the A256GCM algorithm and sends the encryption context, including the
// "PaserkHeader" entry, as paserk.CanonicalContext bytes. The stored ciphertext
// is len(version) || version || iv || tag || ciphertext, where version is the
// Key Vault key version that encrypted it.
//
// The key ID is "name" or "name/version". With a bare name, new tokens use the
// latest key version and older tokens keep decrypting after a rotation.
//
// Usage:
//
//	cred, err := azidentity.NewDefaultAzureCredential(nil)
//	client, err := azkeys.NewClient("https://my-hsm.managedhsm.azure.net/", cred, nil)
//
//	w, err := azurekv.New(client, paserk.V4, "paserk-wrap")
package azurekv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
	paserk "github.com/rbaliyan/paserk-kms"
)

// MethodID is the wrap method identifier written into tokens produced by this package.
const MethodID = "azure-kv"

const (
	ivSize  = 12
	tagSize = 16

	// maxVersionLen is the longest key version the one-byte length prefix holds.
	maxVersionLen = 255
)

// ErrMalformedCiphertext is returned when stored ciphertext cannot be split into
// key version, IV, tag and ciphertext, or Key Vault returns unexpected sizes.
var ErrMalformedCiphertext = errors.New("azurekv: malformed ciphertext")

// Client is the subset of the Azure Key Vault API used by this package.
type Client interface {
	Encrypt(ctx context.Context, name string, version string, parameters azkeys.KeyOperationParameters, options *azkeys.EncryptOptions) (azkeys.EncryptResponse, error)
	Decrypt(ctx context.Context, name string, version string, parameters azkeys.KeyOperationParameters, options *azkeys.DecryptOptions) (azkeys.DecryptResponse, error)
}

// Service implements paserk.Service with Key Vault A256GCM Encrypt and Decrypt.
type Service struct {
	client Client
}

// NewService creates a Service. Returns an error if client is nil.
func NewService(client Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: azurekv client is nil", paserk.ErrInvalidConfig)
	}
	return &Service{client: client}, nil
}

// splitKeyID splits "name[/version]". An empty version selects the latest.
func splitKeyID(keyID string) (name, version string) {
	name, version, _ = strings.Cut(keyID, "/")
	return name, version
}

// Encrypt implements paserk.Service.
func (s *Service) Encrypt(ctx context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	name, version := splitKeyID(keyID)
	alg := azkeys.EncryptionAlgorithmA256GCM
	resp, err := s.client.Encrypt(ctx, name, version, azkeys.KeyOperationParameters{
		Algorithm:                   &alg,
		Value:                       plaintext,
		AdditionalAuthenticatedData: paserk.CanonicalContext(encCtx),
	}, nil)
	if err != nil {
		return nil, err
	}
	if resp.KID != nil && resp.KID.Version() != "" {
		version = resp.KID.Version()
	}
	if version == "" || len(version) > maxVersionLen {
		return nil, fmt.Errorf("%w: key version %q", ErrMalformedCiphertext, version)
	}
	if len(resp.IV) != ivSize || len(resp.AuthenticationTag) != tagSize {
		return nil, fmt.Errorf("%w: iv %d bytes, tag %d bytes", ErrMalformedCiphertext, len(resp.IV), len(resp.AuthenticationTag))
	}

	out := make([]byte, 0, 1+len(version)+ivSize+tagSize+len(resp.Result))
	out = append(out, byte(len(version)))
	out = append(out, version...)
	out = append(out, resp.IV...)
	out = append(out, resp.AuthenticationTag...)
	out = append(out, resp.Result...)
	return out, nil
}

// sealed is a stored ciphertext split into its parts.
type sealed struct {
	version string
	iv      []byte
	tag     []byte
	value   []byte
}

func splitCiphertext(ciphertext []byte) (sealed, error) {
	if len(ciphertext) < 1 {
		return sealed{}, fmt.Errorf("%w: empty", ErrMalformedCiphertext)
	}
	n := int(ciphertext[0])
	rest := ciphertext[1:]
	if n == 0 || len(rest) < n+ivSize+tagSize {
		return sealed{}, fmt.Errorf("%w: %d bytes", ErrMalformedCiphertext, len(ciphertext))
	}
	return sealed{
		version: string(rest[:n]),
		iv:      rest[n : n+ivSize],
		tag:     rest[n+ivSize : n+ivSize+tagSize],
		value:   rest[n+ivSize+tagSize:],
	}, nil
}

// Decrypt implements paserk.Service. It always decrypts with the key version
// recorded in the ciphertext, whatever version keyID names.
func (s *Service) Decrypt(ctx context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	parts, err := splitCiphertext(ciphertext)
	if err != nil {
		return nil, err
	}
	name, _ := splitKeyID(keyID)
	alg := azkeys.EncryptionAlgorithmA256GCM
	resp, err := s.client.Decrypt(ctx, name, parts.version, azkeys.KeyOperationParameters{
		Algorithm:                   &alg,
		IV:                          parts.iv,
		AuthenticationTag:           parts.tag,
		Value:                       parts.value,
		AdditionalAuthenticatedData: paserk.CanonicalContext(encCtx),
	}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// New creates a Wrapper for the Key Vault key "name[/version]", using MethodID.
func New(client Client, version paserk.Version, keyID string, opts ...paserk.Option) (*paserk.Wrapper, error) {
	svc, err := NewService(client)
	if err != nil {
		return nil, err
	}
	return paserk.New(svc, version, keyID, MethodID, opts...)
}

// Compile-time interface checks.
var (
	_ paserk.Service = (*Service)(nil)
	_ Client         = (*azkeys.Client)(nil)
)
