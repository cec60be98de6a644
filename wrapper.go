package paserk

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/awnumar/memguard"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Service is an envelope-encryption service, such as a cloud KMS.
//
// Decrypt must fail unless encCtx exactly matches the context given to Encrypt.
// Implementations must be safe for concurrent use. Retries and timeouts are the
// implementation's concern; Wrapper never retries.
type Service interface {
	// Encrypt encrypts plaintext under keyID, authenticating encCtx.
	Encrypt(ctx context.Context, keyID string, plaintext []byte, encCtx map[string]string) ([]byte, error)

	// Decrypt decrypts ciphertext under keyID, verifying encCtx.
	Decrypt(ctx context.Context, keyID string, ciphertext []byte, encCtx map[string]string) ([]byte, error)
}

// Wrapper wraps and unwraps PASERK keys using a Service.
//
// Every token header is bound into the encryption context under HeaderContextKey,
// and every unwrap re-checks the version and wrap method before calling the service.
//
// WrapKey and UnwrapKey are safe for concurrent use if the Service is.
// SetEncryptionContext is synchronized, but replacing the context while calls are
// in flight means those calls may use either the old or the new context; callers
// should treat it as single-writer configuration.
type Wrapper struct {
	service  Service
	version  Version
	keyID    string
	methodID string

	mu     sync.RWMutex
	encCtx map[string]string

	logger logr.Logger
	tel    *telemetry
}

// Option configures a Wrapper.
type Option func(*options)

type options struct {
	encCtx         map[string]string
	logger         logr.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// WithEncryptionContext sets the default encryption context sent with every call.
// The PaserkHeader entry is always overridden by the token header.
func WithEncryptionContext(encCtx map[string]string) Option {
	return func(o *options) {
		o.encCtx = maps.Clone(encCtx)
	}
}

// WithLogger sets the logger. Wrap and unwrap outcomes are logged at V(1).
// Key material and ciphertext are never logged.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// New creates a Wrapper that expects tokens for version, produced by the wrap
// method methodID, and encrypts under the service key keyID.
func New(service Service, version Version, keyID, methodID string, opts ...Option) (*Wrapper, error) {
	if service == nil {
		return nil, fmt.Errorf("%w: service is nil", ErrInvalidConfig)
	}
	if version.IsZero() {
		return nil, fmt.Errorf("%w: version is not set", ErrInvalidConfig)
	}
	if keyID == "" {
		return nil, fmt.Errorf("%w: key ID must not be empty", ErrInvalidConfig)
	}
	if methodID == "" || strings.Contains(methodID, tokenSeparator) {
		return nil, fmt.Errorf("%w: invalid wrap method %q", ErrInvalidConfig, methodID)
	}

	o := options{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	tel, err := newTelemetry(o.tracerProvider, o.meterProvider)
	if err != nil {
		return nil, err
	}

	encCtx := o.encCtx
	if encCtx == nil {
		encCtx = map[string]string{}
	}

	return &Wrapper{
		service:  service,
		version:  version,
		keyID:    keyID,
		methodID: methodID,
		encCtx:   encCtx,
		logger:   o.logger.WithValues("method", methodID, "version", version.Header()),
		tel:      tel,
	}, nil
}

// Version returns the protocol version this wrapper expects.
func (w *Wrapper) Version() Version {
	return w.version
}

// MethodID returns the wrap method identifier written into every token.
func (w *Wrapper) MethodID() string {
	return w.methodID
}

// KeyID returns the service key identifier.
func (w *Wrapper) KeyID() string {
	return w.keyID
}

// EncryptionContext returns a copy of the default encryption context.
func (w *Wrapper) EncryptionContext() map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return maps.Clone(w.encCtx)
}

// SetEncryptionContext replaces the default encryption context. It does not merge.
// A nil map clears it.
func (w *Wrapper) SetEncryptionContext(encCtx map[string]string) *Wrapper {
	replacement := maps.Clone(encCtx)
	if replacement == nil {
		replacement = map[string]string{}
	}
	w.mu.Lock()
	w.encCtx = replacement
	w.mu.Unlock()
	return w
}

// contextFor binds header into a fresh copy of the default context.
func (w *Wrapper) contextFor(header string) map[string]string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return bindContext(header, w.encCtx)
}

// WrapKey encrypts the key with the service, binding header into the encryption
// context, and returns header followed by the base64url ciphertext.
//
// The header must name this wrapper's version and wrap method and the key's
// purpose, so that the resulting token can be unwrapped by the same wrapper.
//
// Most callers want LocalWrap or SecretWrap, which build the header.
func (w *Wrapper) WrapKey(ctx context.Context, header string, key Key) (token string, err error) {
	ctx, done := w.tel.start(ctx, opWrap)
	defer func() { done(err) }()

	if isNilKey(key) {
		return "", fmt.Errorf("%w: key is nil", ErrInvalidKey)
	}
	if err := w.checkHeader(header, key); err != nil {
		return "", err
	}

	plaintext := key.Raw()
	defer memguard.WipeBytes(plaintext)

	ciphertext, err := w.service.Encrypt(ctx, w.keyID, plaintext, w.contextFor(header))
	if err != nil {
		w.logger.Error(err, "encrypt failed")
		return "", err
	}

	w.logger.V(1).Info("wrapped key", "purpose", key.Purpose())
	return header + encodePayload(ciphertext), nil
}

// checkHeader rejects a header that would produce a token this wrapper cannot unwrap.
func (w *Wrapper) checkHeader(header string, key Key) error {
	parts, err := parseToken(header)
	if err != nil {
		return err
	}
	if parts.payload != "" {
		return fmt.Errorf("%w: header must end with %q", ErrMalformedToken, tokenSeparator)
	}
	version, err := ParseVersion(parts.version)
	if err != nil {
		return err
	}
	if !w.version.Equal(version) {
		return fmt.Errorf("%w: header is %q, wrapper expects %q", ErrVersionMismatch, version, w.version)
	}
	if !w.version.Equal(key.Version()) {
		return fmt.Errorf("%w: key is %q, wrapper expects %q", ErrVersionMismatch, key.Version(), w.version)
	}
	if !constantTimeEqual(parts.method, w.methodID) {
		return fmt.Errorf("%w: header names %q, expected %q", ErrWrongWrapMethod, parts.method, w.methodID)
	}
	if !constantTimeEqual(parts.purpose, key.Purpose().Tag()) {
		return fmt.Errorf("%w: header purpose %q does not match %s key", ErrUnknownWrapPurpose, parts.purpose, key.Purpose())
	}
	return nil
}

// UnwrapKey validates a wrapped token and decrypts it with the service.
//
// The version and wrap method are checked in constant time before the service is
// called. The header is then re-bound into the encryption context, so a token
// whose header was altered after wrapping fails decryption. The purpose field
// selects the returned key type.
func (w *Wrapper) UnwrapKey(ctx context.Context, token string) (key Key, err error) {
	ctx, done := w.tel.start(ctx, opUnwrap)
	defer func() { done(err) }()

	parts, err := parseToken(token)
	if err != nil {
		return nil, err
	}

	version, err := ParseVersion(parts.version)
	if err != nil {
		return nil, err
	}
	if !w.version.Equal(version) {
		return nil, fmt.Errorf("%w: token is %q, wrapper expects %q", ErrVersionMismatch, version, w.version)
	}
	if !constantTimeEqual(parts.method, w.methodID) {
		return nil, fmt.Errorf("%w: expected %q", ErrWrongWrapMethod, w.methodID)
	}

	header := parts.header()
	ciphertext, err := parts.ciphertext()
	if err != nil {
		return nil, err
	}

	plaintext, err := w.service.Decrypt(ctx, w.keyID, ciphertext, w.contextFor(header))
	if err != nil {
		w.logger.Error(err, "decrypt failed")
		return nil, err
	}
	defer memguard.WipeBytes(plaintext)

	// Local is checked first; the tags are disjoint so the order carries no meaning.
	switch {
	case constantTimeEqual(parts.purpose, PurposeLocal.Tag()):
		key, err = NewSymmetricKey(plaintext, version)
	case constantTimeEqual(parts.purpose, PurposeSecret.Tag()):
		key, err = NewAsymmetricSecretKey(plaintext, version)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownWrapPurpose, parts.purpose)
	}
	if err != nil {
		return nil, err
	}

	w.logger.V(1).Info("unwrapped key", "purpose", key.Purpose())
	return key, nil
}
