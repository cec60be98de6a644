package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/hashicorp/vault/api"
	paserk "github.com/rbaliyan/paserk-kms"
)

// fakeTransit serves the Transit encrypt and decrypt endpoints.
type fakeTransit struct {
	mu       sync.Mutex
	token    string
	sealed   map[string][2]string // ciphertext -> plaintext, associated_data
	lastNS   string
	lastPath string
}

func (f *fakeTransit) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastNS = r.Header.Get("X-Vault-Namespace")
	f.lastPath = r.URL.Path

	if r.Header.Get("X-Vault-Token") != f.token {
		writeErrors(w, http.StatusForbidden, "permission denied")
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/"), "/")
	if (r.Method != http.MethodPut && r.Method != http.MethodPost) || len(parts) != 3 || parts[0] != "transit" {
		writeErrors(w, http.StatusNotFound, "no handler for route")
		return
	}

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrors(w, http.StatusBadRequest, err.Error())
		return
	}

	switch parts[1] {
	case "encrypt":
		ct := fmt.Sprintf("vault:v1:%s:%d", parts[2], len(f.sealed))
		f.sealed[ct] = [2]string{req["plaintext"], req["associated_data"]}
		writeData(w, map[string]any{"ciphertext": ct, "key_version": 1})
	case "decrypt":
		s, ok := f.sealed[req["ciphertext"]]
		if !ok || s[1] != req["associated_data"] || !strings.HasPrefix(req["ciphertext"], "vault:v1:"+parts[2]+":") {
			writeErrors(w, http.StatusBadRequest, "cipher: message authentication failed")
			return
		}
		writeData(w, map[string]any{"plaintext": s[0]})
	default:
		writeErrors(w, http.StatusNotFound, "no handler for route")
	}
}

func (f *fakeTransit) last() (namespace, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastNS, f.lastPath
}

func writeData(w http.ResponseWriter, data map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func writeErrors(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"errors": []string{msg}})
}

func newFakeVault(t *testing.T) (*fakeTransit, *httptest.Server) {
	t.Helper()
	f := &fakeTransit{token: "hvs.test", sealed: make(map[string][2]string)}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(t *testing.T, srv *httptest.Server, token string, opts ...ClientOption) *HTTPClient {
	t.Helper()
	opts = append([]ClientOption{WithHTTPClient(srv.Client()), WithMaxRetries(0)}, opts...)
	client, err := NewClient(srv.URL, token, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestHTTPClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeVault(t)
	client := newTestClient(t, srv, "hvs.test", WithNamespace("team-a"))

	ct, err := client.TransitEncrypt(ctx, "paserk", []byte("secret bytes"), []byte("aad"))
	if err != nil {
		t.Fatalf("TransitEncrypt: %v", err)
	}
	if !strings.HasPrefix(ct, "vault:v1:") {
		t.Errorf("unexpected ciphertext %q", ct)
	}
	ns, path := fake.last()
	if ns != "team-a" {
		t.Errorf("namespace header: got %q", ns)
	}
	if path != "/v1/transit/encrypt/paserk" {
		t.Errorf("request path: got %q", path)
	}

	pt, err := client.TransitDecrypt(ctx, "paserk", ct, []byte("aad"))
	if err != nil {
		t.Fatalf("TransitDecrypt: %v", err)
	}
	if !bytes.Equal(pt, []byte("secret bytes")) {
		t.Errorf("plaintext: got %q", pt)
	}

	_, err = client.TransitDecrypt(ctx, "paserk", ct, []byte("other"))
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 ResponseError, got %v", err)
	}
	if len(respErr.Errors) != 1 || !strings.Contains(respErr.Errors[0], "authentication failed") {
		t.Errorf("unexpected errors %q", respErr.Errors)
	}
}

func TestHTTPClientBadToken(t *testing.T) {
	_, srv := newFakeVault(t)
	client := newTestClient(t, srv, "wrong")

	_, err := client.TransitEncrypt(context.Background(), "paserk", []byte("x"), nil)
	var respErr *api.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 ResponseError, got %v", err)
	}
}

func TestHTTPClientCustomMount(t *testing.T) {
	fake, srv := newFakeVault(t)
	client := newTestClient(t, srv, "hvs.test", WithMount("/kms/transit/"))

	if _, err := client.TransitEncrypt(context.Background(), "paserk", []byte("x"), nil); err == nil {
		t.Fatal("expected error for unknown route")
	}
	if _, path := fake.last(); path != "/v1/kms/transit/encrypt/paserk" {
		t.Errorf("request path: got %q", path)
	}
}

func TestNewClientFromAPI(t *testing.T) {
	_, srv := newFakeVault(t)
	cfg := api.DefaultConfig()
	cfg.Address = srv.URL
	cfg.HttpClient = srv.Client()
	apiClient, err := api.NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}
	apiClient.SetToken("hvs.test")

	client := NewClientFromAPI(apiClient, "")
	ct, err := client.TransitEncrypt(context.Background(), "paserk", []byte("x"), nil)
	if err != nil {
		t.Fatalf("TransitEncrypt: %v", err)
	}
	if _, err := client.TransitDecrypt(context.Background(), "paserk", ct, nil); err != nil {
		t.Errorf("TransitDecrypt: %v", err)
	}
}

func TestWrapperOverHTTP(t *testing.T) {
	ctx := context.Background()
	fake, srv := newFakeVault(t)
	w, err := New(newTestClient(t, srv, "hvs.test"), paserk.V3, "paserk")
	if err != nil {
		t.Fatal(err)
	}

	key, err := paserk.NewAsymmetricSecretKey(bytes.Repeat([]byte{0x07}, 48), paserk.V3)
	if err != nil {
		t.Fatal(err)
	}
	token, err := w.SecretWrap(ctx, key)
	if err != nil {
		t.Fatalf("SecretWrap: %v", err)
	}
	if _, path := fake.last(); path != "/v1/transit/encrypt/paserk" {
		t.Errorf("request path: got %q", path)
	}
	got, err := w.SecretUnwrap(ctx, token)
	if err != nil {
		t.Fatalf("SecretUnwrap: %v", err)
	}
	if !bytes.Equal(got.Raw(), key.Raw()) {
		t.Error("different key returned from unwrapping")
	}

	tampered := strings.Replace(token, "secret-wrap", "local-wrap", 1)
	var respErr *api.ResponseError
	if _, err := w.UnwrapKey(ctx, tampered); !errors.As(err, &respErr) {
		t.Errorf("expected ResponseError for tampered header, got %v", err)
	}
}
