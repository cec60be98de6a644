package paserk

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/awnumar/memguard"
)

// Static service ciphertext format: formatVersion(1) || nonce(12) || GCM ciphertext+tag.
const (
	// staticFormatVersion is the current StaticService ciphertext version.
	staticFormatVersion = 0x01

	// aesKeySize is the required key size in bytes (AES-256).
	aesKeySize = 32

	// gcmNonceSize is the nonce size for AES-GCM (12 bytes).
	gcmNonceSize = 12

	// gcmTagSize is the authentication tag size for GCM (16 bytes).
	gcmTagSize = 16
)

// StaticService is a Service backed by in-memory AES-256-GCM keys.
// The key ID and the encryption context are authenticated as associated data.
// It is safe for concurrent use.
//
// It is meant for tests, local development and offline tooling; production
// deployments should use a KMS-backed service.
type StaticService struct {
	mu        sync.RWMutex
	keys      map[string][]byte
	destroyed bool
	err       error // deferred validation error from options
}

// StaticOption configures a StaticService.
type StaticOption func(*StaticService)

// WithStaticKey adds another key, e.g. a previous key kept for unwrapping old tokens.
// The keyBytes must be 32 bytes for AES-256 and id must not be empty.
func WithStaticKey(keyBytes []byte, id string) StaticOption {
	return func(s *StaticService) {
		if s.err != nil {
			return
		}
		if err := s.add(keyBytes, id); err != nil {
			s.err = err
		}
	}
}

// NewStaticService creates a StaticService holding one key.
// Key bytes are copied internally; the caller may safely zero the original after construction.
func NewStaticService(keyBytes []byte, id string, opts ...StaticOption) (*StaticService, error) {
	s := &StaticService{keys: make(map[string][]byte)}
	if err := s.add(keyBytes, id); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

func (s *StaticService) add(keyBytes []byte, id string) error {
	if len(keyBytes) != aesKeySize {
		return fmt.Errorf("%w: service key %q has %d bytes, want %d", ErrInvalidKey, id, len(keyBytes), aesKeySize)
	}
	if id == "" {
		return fmt.Errorf("%w: service key ID must not be empty", ErrInvalidConfig)
	}
	b := make([]byte, aesKeySize)
	copy(b, keyBytes)
	s.keys[id] = b
	return nil
}

func (s *StaticService) aead(keyID string) (cipher.AEAD, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return nil, ErrServiceDestroyed
	}
	key, ok := s.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, keyID)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("paserk: failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("paserk: failed to create GCM: %w", err)
	}
	return gcm, nil
}

// staticAAD binds the key ID and the encryption context.
func staticAAD(keyID string, encCtx map[string]string) []byte {
	canonical := CanonicalContext(encCtx)
	aad := make([]byte, 0, 4+len(keyID)+len(canonical))
	aad = binary.BigEndian.AppendUint32(aad, uint32(len(keyID)))
	aad = append(aad, keyID...)
	return append(aad, canonical...)
}

// Encrypt implements Service.
func (s *StaticService) Encrypt(_ context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error) {
	gcm, err := s.aead(keyID)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 1+gcmNonceSize, 1+gcmNonceSize+len(plaintext)+gcmTagSize)
	out[0] = staticFormatVersion
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("paserk: failed to generate nonce: %w", err)
	}
	return gcm.Seal(out, out[1:], plaintext, staticAAD(keyID, encCtx)), nil
}

// Decrypt implements Service. It fails with ErrDecryptionFailed when the
// ciphertext, key ID or encryption context differ from those used to encrypt.
func (s *StaticService) Decrypt(_ context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error) {
	if len(ciphertext) < 1+gcmNonceSize+gcmTagSize {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}
	if ciphertext[0] != staticFormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrDecryptionFailed, ciphertext[0])
	}

	gcm, err := s.aead(keyID)
	if err != nil {
		return nil, err
	}

	nonce := ciphertext[1 : 1+gcmNonceSize]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[1+gcmNonceSize:], staticAAD(keyID, encCtx))
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrDecryptionFailed)
	}
	return plaintext, nil
}

// Destroy wipes all key material. Later calls fail with ErrServiceDestroyed.
// It is safe to call more than once.
func (s *StaticService) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, key := range s.keys {
		memguard.WipeBytes(key)
		delete(s.keys, id)
	}
	s.destroyed = true
}

// Compile-time interface check.
var _ Service = (*StaticService)(nil)
