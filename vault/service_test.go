package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/vault/api"
	paserk "github.com/rbaliyan/paserk-kms"
)

type entry struct {
	keyName   string
	plaintext []byte
	aad       []byte
}

type mockClient struct {
	mu      sync.Mutex
	entries map[string]entry
	failOn  string
}

func newMockClient() *mockClient {
	return &mockClient{entries: make(map[string]entry)}
}

func (m *mockClient) TransitEncrypt(ctx context.Context, keyName string, plaintext, aad []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if keyName == m.failOn {
		return "", &api.ResponseError{StatusCode: 403, Errors: []string{"permission denied"}}
	}
	ct := fmt.Sprintf("vault:v1:%d", len(m.entries))
	m.entries[ct] = entry{keyName: keyName, plaintext: bytes.Clone(plaintext), aad: bytes.Clone(aad)}
	return ct, nil
}

func (m *mockClient) TransitDecrypt(ctx context.Context, keyName string, ciphertext string, aad []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[ciphertext]
	if !ok || e.keyName != keyName || !bytes.Equal(e.aad, aad) {
		return nil, &api.ResponseError{StatusCode: 400, Errors: []string{"cipher: message authentication failed"}}
	}
	return bytes.Clone(e.plaintext), nil
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	ctx := context.Background()
	w, err := New(newMockClient(), paserk.V4, "paserk")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	key, err := paserk.GenerateSymmetricKey(paserk.V4)
	if err != nil {
		t.Fatal(err)
	}
	token, err := w.LocalWrap(ctx, key)
	if err != nil {
		t.Fatalf("LocalWrap: %v", err)
	}
	if !strings.HasPrefix(token, "v4.local-wrap.vault-transit.") {
		t.Errorf("unexpected token %q", token)
	}
	got, err := w.LocalUnwrap(ctx, token)
	if err != nil {
		t.Fatalf("LocalUnwrap: %v", err)
	}
	if !bytes.Equal(got.Raw(), key.Raw()) {
		t.Error("different key returned from unwrapping")
	}
}

func TestContextChangeFailsDecrypt(t *testing.T) {
	ctx := context.Background()
	w, err := New(newMockClient(), paserk.V4, "paserk", paserk.WithEncryptionContext(map[string]string{"tenant": "a"}))
	if err != nil {
		t.Fatal(err)
	}
	key, err := paserk.GenerateSymmetricKey(paserk.V4)
	if err != nil {
		t.Fatal(err)
	}
	token, err := w.LocalWrap(ctx, key)
	if err != nil {
		t.Fatal(err)
	}

	w.SetEncryptionContext(map[string]string{"tenant": "b"})
	_, err = w.UnwrapKey(ctx, token)
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != 400 {
		t.Errorf("expected Vault 400, got %v", err)
	}
}

func TestVaultErrorPassthrough(t *testing.T) {
	client := newMockClient()
	client.failOn = "denied"
	w, err := New(client, paserk.V4, "denied")
	if err != nil {
		t.Fatal(err)
	}
	key, err := paserk.GenerateSymmetricKey(paserk.V4)
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.LocalWrap(context.Background(), key)
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != 403 {
		t.Errorf("expected Vault 403, got %v", err)
	}
}

func TestNewNilClient(t *testing.T) {
	if _, err := New(nil, paserk.V4, "paserk"); !paserk.IsInvalidConfig(err) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}
