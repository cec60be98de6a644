package paserk

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/awnumar/memguard"
)

// Key sizes per variant and version.
const (
	// symmetricKeySize is the key size for local keys in every supported version.
	symmetricKeySize = 32

	// v3SecretKeySize is a P-384 secret scalar.
	v3SecretKeySize = 48
)

// Key is key material that can be wrapped. It is implemented only by
// *SymmetricKey and *AsymmetricSecretKey.
type Key interface {
	// Raw returns a copy of the raw key bytes.
	Raw() []byte

	// Version returns the protocol version this key belongs to.
	Version() Version

	// Purpose returns the wrapping purpose for this key type.
	Purpose() Purpose

	// Wipe zeroes the key material.
	Wipe()

	isKey()
}

// isNilKey reports whether key is nil or a typed nil pointer.
func isNilKey(key Key) bool {
	switch k := key.(type) {
	case nil:
		return true
	case *SymmetricKey:
		return k == nil
	case *AsymmetricSecretKey:
		return k == nil
	}
	return false
}

// SymmetricKey is a local (symmetric) key. It is immutable once constructed.
type SymmetricKey struct {
	raw     []byte
	version Version
}

// NewSymmetricKey creates a symmetric key for the given version.
// The raw bytes are copied; the caller may zero the original afterwards.
func NewSymmetricKey(raw []byte, v Version) (*SymmetricKey, error) {
	if v.IsZero() {
		return nil, fmt.Errorf("%w: zero version", ErrInvalidKey)
	}
	if len(raw) != symmetricKeySize {
		return nil, fmt.Errorf("%w: symmetric key must be %d bytes, got %d", ErrInvalidKey, symmetricKeySize, len(raw))
	}
	return &SymmetricKey{raw: bytes.Clone(raw), version: v}, nil
}

// GenerateSymmetricKey creates a random symmetric key for the given version.
func GenerateSymmetricKey(v Version) (*SymmetricKey, error) {
	raw := make([]byte, symmetricKeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("paserk: failed to generate key: %w", err)
	}
	defer clear(raw)
	return NewSymmetricKey(raw, v)
}

// Raw returns a copy of the key bytes.
func (k *SymmetricKey) Raw() []byte {
	return bytes.Clone(k.raw)
}

// Version returns the protocol version of the key.
func (k *SymmetricKey) Version() Version {
	return k.version
}

// Purpose returns PurposeLocal.
func (k *SymmetricKey) Purpose() Purpose {
	return PurposeLocal
}

// Wipe zeroes the key material. The key must not be used afterwards.
func (k *SymmetricKey) Wipe() {
	memguard.WipeBytes(k.raw)
}

func (k *SymmetricKey) isKey() {}

// AsymmetricSecretKey is a secret (signing) key. It is immutable once constructed.
type AsymmetricSecretKey struct {
	raw     []byte
	version Version
}

// NewAsymmetricSecretKey creates a secret key for the given version.
//
// v3 keys are 48-byte P-384 scalars. v4 keys are Ed25519 keys, given either as a
// 32-byte seed (expanded to the 64-byte form) or as the 64-byte secret key, whose
// public half must match its seed.
func NewAsymmetricSecretKey(raw []byte, v Version) (*AsymmetricSecretKey, error) {
	switch {
	case v.Equal(V3):
		if len(raw) != v3SecretKeySize {
			return nil, fmt.Errorf("%w: v3 secret key must be %d bytes, got %d", ErrInvalidKey, v3SecretKeySize, len(raw))
		}
		return &AsymmetricSecretKey{raw: bytes.Clone(raw), version: v}, nil
	case v.Equal(V4):
		switch len(raw) {
		case ed25519.SeedSize:
			return &AsymmetricSecretKey{raw: ed25519.NewKeyFromSeed(raw), version: v}, nil
		case ed25519.PrivateKeySize:
			expanded := ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
			if !bytes.Equal(expanded, raw) {
				clear(expanded)
				return nil, fmt.Errorf("%w: v4 secret key public half does not match seed", ErrInvalidKey)
			}
			return &AsymmetricSecretKey{raw: expanded, version: v}, nil
		default:
			return nil, fmt.Errorf("%w: v4 secret key must be %d or %d bytes, got %d",
				ErrInvalidKey, ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
		}
	default:
		return nil, fmt.Errorf("%w: unsupported version %q", ErrInvalidKey, v.Header())
	}
}

// Raw returns a copy of the key bytes.
func (k *AsymmetricSecretKey) Raw() []byte {
	return bytes.Clone(k.raw)
}

// Version returns the protocol version of the key.
func (k *AsymmetricSecretKey) Version() Version {
	return k.version
}

// Purpose returns PurposeSecret.
func (k *AsymmetricSecretKey) Purpose() Purpose {
	return PurposeSecret
}

// Wipe zeroes the key material. The key must not be used afterwards.
func (k *AsymmetricSecretKey) Wipe() {
	memguard.WipeBytes(k.raw)
}

func (k *AsymmetricSecretKey) isKey() {}

// Compile-time interface checks.
var (
	_ Key = (*SymmetricKey)(nil)
	_ Key = (*AsymmetricSecretKey)(nil)
)
