package paserk

import (
	"context"
	"fmt"
)

// discard wipes an unwrapped key that is not returned to the caller.
var discard = func(key Key) {
	key.Wipe()
}

// LocalWrap wraps a symmetric key, producing a "<version>.local-wrap.<method>." token.
func (w *Wrapper) LocalWrap(ctx context.Context, key *SymmetricKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: key is nil", ErrInvalidKey)
	}
	return w.WrapKey(ctx, BuildHeader(key.Version(), PurposeLocal, w.methodID), key)
}

// SecretWrap wraps an asymmetric secret key, producing a "<version>.secret-wrap.<method>." token.
func (w *Wrapper) SecretWrap(ctx context.Context, key *AsymmetricSecretKey) (string, error) {
	if key == nil {
		return "", fmt.Errorf("%w: key is nil", ErrInvalidKey)
	}
	return w.WrapKey(ctx, BuildHeader(key.Version(), PurposeSecret, w.methodID), key)
}

// LocalUnwrap unwraps a token that must hold a symmetric key.
func (w *Wrapper) LocalUnwrap(ctx context.Context, token string) (*SymmetricKey, error) {
	key, err := w.UnwrapKey(ctx, token)
	if err != nil {
		return nil, err
	}
	sk, ok := key.(*SymmetricKey)
	if !ok {
		discard(key)
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnknownWrapPurpose, PurposeLocal.Tag(), key.Purpose().Tag())
	}
	return sk, nil
}

// SecretUnwrap unwraps a token that must hold an asymmetric secret key.
func (w *Wrapper) SecretUnwrap(ctx context.Context, token string) (*AsymmetricSecretKey, error) {
	key, err := w.UnwrapKey(ctx, token)
	if err != nil {
		return nil, err
	}
	ak, ok := key.(*AsymmetricSecretKey)
	if !ok {
		discard(key)
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnknownWrapPurpose, PurposeSecret.Tag(), key.Purpose().Tag())
	}
	return ak, nil
}

// Wrap wraps any key, choosing the purpose from its type.
func (w *Wrapper) Wrap(ctx context.Context, key Key) (string, error) {
	switch k := key.(type) {
	case *SymmetricKey:
		return w.LocalWrap(ctx, k)
	case *AsymmetricSecretKey:
		return w.SecretWrap(ctx, k)
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidKey, key)
	}
}
