// Package gcpkms wraps PASERK keys with Google Cloud KMS.
//
// Cloud KMS authenticates additional data (AAD) rather than a key/value context,
// so the encryption context, including the "PaserkHeader" entry, is sent as
// paserk.CanonicalContext bytes. CRC32C checksums are sent and verified on every
// request to detect corruption in transit.
//
// Usage:
//
//	client, err := kms.NewKeyManagementClient(ctx)
//	w, err := gcpkms.New(client, paserk.V4,
//	    "projects/p/locations/global/keyRings/r/cryptoKeys/k")
package gcpkms

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"

	kmspb "cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/googleapis/gax-go/v2"
	paserk "github.com/rbaliyan/paserk-kms"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MethodID is the wrap method identifier written into tokens produced by this package.
const MethodID = "gcp-kms"

// ErrIntegrity is returned when a Cloud KMS response fails CRC32C verification.
var ErrIntegrity = errors.New("gcpkms: response integrity check failed")

// Client is the subset of the GCP Cloud KMS API used by this package.
type Client interface {
	Encrypt(ctx context.Context, req *kmspb.EncryptRequest, opts ...gax.CallOption) (*kmspb.EncryptResponse, error)
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest, opts ...gax.CallOption) (*kmspb.DecryptResponse, error)
}

// Service implements paserk.Service with Cloud KMS symmetric Encrypt and Decrypt.
// The key ID is the full CryptoKey resource name.
type Service struct {
	client Client
}

// NewService creates a Service. Returns an error if client is nil.
func NewService(client Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: gcpkms client is nil", paserk.ErrInvalidConfig)
	}
	return &Service{client: client}, nil
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func checksum(b []byte) *wrapperspb.Int64Value {
	return wrapperspb.Int64(int64(crc32.Checksum(b, castagnoli)))
}

// Encrypt implements paserk.Service.
func (s *Service) Encrypt(ctx context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	aad := paserk.CanonicalContext(encCtx)
	resp, err := s.client.Encrypt(ctx, &kmspb.EncryptRequest{
		Name:                              keyID,
		Plaintext:                         plaintext,
		PlaintextCrc32C:                   checksum(plaintext),
		AdditionalAuthenticatedData:       aad,
		AdditionalAuthenticatedDataCrc32C: checksum(aad),
	})
	if err != nil {
		return nil, err
	}
	if !resp.VerifiedPlaintextCrc32C || !resp.VerifiedAdditionalAuthenticatedDataCrc32C {
		return nil, fmt.Errorf("%w: request checksums not verified", ErrIntegrity)
	}
	if resp.CiphertextCrc32C == nil || resp.CiphertextCrc32C.Value != checksum(resp.Ciphertext).Value {
		return nil, fmt.Errorf("%w: ciphertext checksum mismatch", ErrIntegrity)
	}
	return resp.Ciphertext, nil
}

// Decrypt implements paserk.Service.
func (s *Service) Decrypt(ctx context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	aad := paserk.CanonicalContext(encCtx)
	resp, err := s.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:                              keyID,
		Ciphertext:                        ciphertext,
		CiphertextCrc32C:                  checksum(ciphertext),
		AdditionalAuthenticatedData:       aad,
		AdditionalAuthenticatedDataCrc32C: checksum(aad),
	})
	if err != nil {
		return nil, err
	}
	if resp.PlaintextCrc32C == nil || resp.PlaintextCrc32C.Value != checksum(resp.Plaintext).Value {
		clear(resp.Plaintext)
		return nil, fmt.Errorf("%w: plaintext checksum mismatch", ErrIntegrity)
	}
	return resp.Plaintext, nil
}

// New creates a Wrapper for the given CryptoKey resource name, using MethodID.
func New(client Client, version paserk.Version, resourceName string, opts ...paserk.Option) (*paserk.Wrapper, error) {
	svc, err := NewService(client)
	if err != nil {
		return nil, err
	}
	return paserk.New(svc, version, resourceName, MethodID, opts...)
}

// Compile-time interface check.
var _ paserk.Service = (*Service)(nil)
