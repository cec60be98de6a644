// Package awskms wraps PASERK keys with AWS KMS.
//
// The token header is sent as the KMS encryption context entry "PaserkHeader",
// so KMS itself refuses to decrypt a token whose header was altered.
//
// Usage:
//
//	cfg, err := awsconfig.LoadDefaultConfig(ctx)
//	kmsClient := kms.NewFromConfig(cfg)
//
//	w, err := awskms.New(kmsClient, paserk.V4, "arn:aws:kms:us-west-2:111122223333:key/1234abcd")
//	token, err := w.LocalWrap(ctx, key)
package awskms

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	paserk "github.com/rbaliyan/paserk-kms"
)

// MethodID is the wrap method identifier written into tokens produced by this package.
const MethodID = "aws-kms"

// Client is the subset of the AWS KMS API used by this package.
type Client interface {
	Encrypt(ctx context.Context, params *kms.EncryptInput, optFns ...func(*kms.Options)) (*kms.EncryptOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Service implements paserk.Service with AWS KMS Encrypt and Decrypt.
// KMS errors are returned unmodified. Retries are left to the client's retryer.
type Service struct {
	client Client
}

// NewService creates a Service. Returns an error if client is nil.
func NewService(client Client) (*Service, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: awskms client is nil", paserk.ErrInvalidConfig)
	}
	return &Service{client: client}, nil
}

// Encrypt implements paserk.Service.
func (s *Service) Encrypt(ctx context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	out, err := s.client.Encrypt(ctx, &kms.EncryptInput{
		KeyId:             aws.String(keyID),
		Plaintext:         plaintext,
		EncryptionContext: encCtx,
	})
	if err != nil {
		return nil, err
	}
	return out.CiphertextBlob, nil
}

// Decrypt implements paserk.Service. The key ID is always sent so that KMS
// rejects ciphertext produced under any other key.
func (s *Service) Decrypt(ctx context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	out, err := s.client.Decrypt(ctx, &kms.DecryptInput{
		KeyId:             aws.String(keyID),
		CiphertextBlob:    ciphertext,
		EncryptionContext: encCtx,
	})
	if err != nil {
		return nil, err
	}
	return out.Plaintext, nil
}

// New creates a Wrapper for the given KMS key ID, ARN or alias, using MethodID.
func New(client Client, version paserk.Version, keyID string, opts ...paserk.Option) (*paserk.Wrapper, error) {
	svc, err := NewService(client)
	if err != nil {
		return nil, err
	}
	return paserk.New(svc, version, keyID, MethodID, opts...)
}

// NewFromConfig creates a Wrapper from a paserk.Config.
func NewFromConfig(client Client, cfg paserk.Config, opts ...paserk.Option) (*paserk.Wrapper, error) {
	svc, err := NewService(client)
	if err != nil {
		return nil, err
	}
	return paserk.NewFromConfig(svc, MethodID, cfg, opts...)
}

// Compile-time interface checks.
var (
	_ paserk.Service = (*Service)(nil)
	_ Client         = (*kms.Client)(nil)
)
