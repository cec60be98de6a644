// Package tinkaead wraps PASERK keys with a local Tink AEAD keyset.
//
// It suits deployments where the keyset itself is provisioned out of band (for
// example, mounted from a secret store) and no network KMS is available. The
// encryption context, including the "PaserkHeader" entry, is authenticated as
// associated data together with the key ID.
//
// Usage:
//
//	handle, err := tinkaead.LoadJSONKeyset(f)
//	w, err := tinkaead.New(paserk.V4, "keyset-1", tinkaead.WithKeyset("keyset-1", handle))
package tinkaead

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	paserk "github.com/rbaliyan/paserk-kms"
	"github.com/tink-crypto/tink-go/v2/aead"
	"github.com/tink-crypto/tink-go/v2/insecurecleartextkeyset"
	"github.com/tink-crypto/tink-go/v2/keyset"
	"github.com/tink-crypto/tink-go/v2/tink"
)

// MethodID is the wrap method identifier written into tokens produced by this package.
const MethodID = "tink-aead"

// Service implements paserk.Service over Tink AEAD primitives, selected by key ID.
type Service struct {
	primitives map[string]tink.AEAD
}

// Option configures a Service.
type Option func(*options)

type options struct {
	handles    map[string]*keyset.Handle
	primitives map[string]tink.AEAD
}

// WithKeyset registers an AEAD keyset handle under id.
func WithKeyset(id string, handle *keyset.Handle) Option {
	return func(o *options) {
		o.handles[id] = handle
	}
}

// WithAEAD registers an existing AEAD primitive under id.
func WithAEAD(id string, primitive tink.AEAD) Option {
	return func(o *options) {
		o.primitives[id] = primitive
	}
}

// NewService creates a Service. At least one keyset or primitive is required.
func NewService(opts ...Option) (*Service, error) {
	o := options{
		handles:    make(map[string]*keyset.Handle),
		primitives: make(map[string]tink.AEAD),
	}
	for _, opt := range opts {
		opt(&o)
	}

	for id, h := range o.handles {
		if h == nil {
			return nil, fmt.Errorf("%w: tinkaead keyset %q is nil", paserk.ErrInvalidConfig, id)
		}
		p, err := aead.New(h)
		if err != nil {
			return nil, fmt.Errorf("%w: tinkaead keyset %q: %v", paserk.ErrInvalidConfig, id, err)
		}
		o.primitives[id] = p
	}
	if len(o.primitives) == 0 {
		return nil, fmt.Errorf("%w: tinkaead requires at least one keyset", paserk.ErrInvalidConfig)
	}
	for id, p := range o.primitives {
		if id == "" || p == nil {
			return nil, fmt.Errorf("%w: tinkaead keyset %q is invalid", paserk.ErrInvalidConfig, id)
		}
	}
	return &Service{primitives: o.primitives}, nil
}

// LoadJSONKeyset reads a cleartext JSON keyset.
// The keyset is unencrypted; protect its source accordingly.
func LoadJSONKeyset(r io.Reader) (*keyset.Handle, error) {
	h, err := insecurecleartextkeyset.Read(keyset.NewJSONReader(r))
	if err != nil {
		return nil, fmt.Errorf("tinkaead: read keyset: %w", err)
	}
	return h, nil
}

// associatedData binds keyID and the encryption context.
func associatedData(keyID string, encCtx map[string]string) []byte {
	ad := binary.BigEndian.AppendUint32(nil, uint32(len(keyID)))
	ad = append(ad, keyID...)
	return append(ad, paserk.CanonicalContext(encCtx)...)
}

func (s *Service) primitive(keyID string) (tink.AEAD, error) {
	p, ok := s.primitives[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", paserk.ErrKeyNotFound, keyID)
	}
	return p, nil
}

// Encrypt implements paserk.Service.
func (s *Service) Encrypt(ctx context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.primitive(keyID)
	if err != nil {
		return nil, err
	}
	return p.Encrypt(plaintext, associatedData(keyID, encCtx))
}

// Decrypt implements paserk.Service.
func (s *Service) Decrypt(ctx context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.primitive(keyID)
	if err != nil {
		return nil, err
	}
	return p.Decrypt(ciphertext, associatedData(keyID, encCtx))
}

// New creates a Wrapper that encrypts under keyID, using MethodID.
func New(version paserk.Version, keyID string, opts ...Option) (*paserk.Wrapper, error) {
	return NewWithOptions(version, keyID, opts, nil)
}

// NewWithOptions is like New but also accepts Wrapper options.
func NewWithOptions(version paserk.Version, keyID string, opts []Option, wrapperOpts []paserk.Option) (*paserk.Wrapper, error) {
	svc, err := NewService(opts...)
	if err != nil {
		return nil, err
	}
	if _, err := svc.primitive(keyID); err != nil {
		return nil, fmt.Errorf("%w: %v", paserk.ErrInvalidConfig, err)
	}
	return paserk.New(svc, version, keyID, MethodID, wrapperOpts...)
}

// Compile-time interface check.
var _ paserk.Service = (*Service)(nil)
