package vault

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/hashicorp/vault/api"
)

// DefaultMount is the default mount path of the Transit secrets engine.
const DefaultMount = "transit"

// HTTPClient implements Client with the official Vault API client.
// Vault errors are returned as *api.ResponseError.
type HTTPClient struct {
	client *api.Client
	mount  string
}

// ClientOption configures an HTTPClient.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	namespace  string
	mount      string
	maxRetries *int
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = c
	}
}

// WithNamespace sets the Vault Enterprise namespace.
func WithNamespace(ns string) ClientOption {
	return func(o *clientOptions) {
		o.namespace = ns
	}
}

// WithMount sets the Transit mount path. Defaults to DefaultMount.
func WithMount(mount string) ClientOption {
	return func(o *clientOptions) {
		o.mount = mount
	}
}

// WithMaxRetries sets how often the API client retries 5xx responses.
func WithMaxRetries(n int) ClientOption {
	return func(o *clientOptions) {
		o.maxRetries = &n
	}
}

// NewClient creates an HTTPClient for the Vault server at addr, authenticating with token.
// Other settings (TLS, timeouts) come from the standard VAULT_* environment variables.
func NewClient(addr, token string, opts ...ClientOption) (*HTTPClient, error) {
	o := clientOptions{mount: DefaultMount}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("vault: %w", cfg.Error)
	}
	cfg.Address = addr
	if o.httpClient != nil {
		cfg.HttpClient = o.httpClient
	}
	if o.maxRetries != nil {
		cfg.MaxRetries = *o.maxRetries
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	client.SetToken(token)
	if o.namespace != "" {
		client.SetNamespace(o.namespace)
	}
	return NewClientFromAPI(client, o.mount), nil
}

// NewClientFromAPI wraps an already configured Vault API client.
// An empty mount selects DefaultMount.
func NewClientFromAPI(client *api.Client, mount string) *HTTPClient {
	mount = strings.Trim(mount, "/")
	if mount == "" {
		mount = DefaultMount
	}
	return &HTTPClient{client: client, mount: mount}
}

// TransitEncrypt implements Client.
func (h *HTTPClient) TransitEncrypt(ctx context.Context, keyName string, plaintext, aad []byte) (string, error) {
	secret, err := h.client.Logical().WriteWithContext(ctx, h.path("encrypt", keyName), map[string]any{
		"plaintext":       base64.StdEncoding.EncodeToString(plaintext),
		"associated_data": base64.StdEncoding.EncodeToString(aad),
	})
	if err != nil {
		return "", err
	}
	ct, err := dataString(secret, "ciphertext")
	if err != nil {
		return "", err
	}
	return ct, nil
}

// TransitDecrypt implements Client.
func (h *HTTPClient) TransitDecrypt(ctx context.Context, keyName string, ciphertext string, aad []byte) ([]byte, error) {
	secret, err := h.client.Logical().WriteWithContext(ctx, h.path("decrypt", keyName), map[string]any{
		"ciphertext":      ciphertext,
		"associated_data": base64.StdEncoding.EncodeToString(aad),
	})
	if err != nil {
		return nil, err
	}
	encoded, err := dataString(secret, "plaintext")
	if err != nil {
		return nil, err
	}
	plaintext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("vault: decrypt response plaintext: %w", err)
	}
	return plaintext, nil
}

func (h *HTTPClient) path(op, keyName string) string {
	return h.mount + "/" + op + "/" + keyName
}

// dataString reads a string field from a Transit response.
func dataString(secret *api.Secret, field string) (string, error) {
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault: empty response")
	}
	v, ok := secret.Data[field].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("vault: response has no %s", field)
	}
	return v, nil
}
