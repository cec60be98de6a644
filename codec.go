package paserk

import (
	"context"
	"fmt"

	"github.com/rbaliyan/config/codec"
)

// KeyCodec stores keys in a config store as wrapped tokens.
// On Encode, a Key is wrapped with the Wrapper and the token is returned.
// On Decode, the token is unwrapped and the key is stored into v.
//
// KeyCodec is safe for concurrent use if the Wrapper's Service is.
type KeyCodec struct {
	wrapper *Wrapper
	name    string
}

// Compile-time interface check.
var _ codec.Codec = (*KeyCodec)(nil)

// NewKeyCodec creates a codec named "paserk:<method>", e.g. "paserk:aws-kms".
// Returns an error if wrapper is nil.
func NewKeyCodec(wrapper *Wrapper) (*KeyCodec, error) {
	if wrapper == nil {
		return nil, fmt.Errorf("%w: NewKeyCodec wrapper is nil", ErrInvalidConfig)
	}
	return &KeyCodec{
		wrapper: wrapper,
		name:    "paserk:" + wrapper.MethodID(),
	}, nil
}

// Name returns the codec name.
func (c *KeyCodec) Name() string {
	return c.name
}

// Encode wraps v, which must be a *SymmetricKey or *AsymmetricSecretKey.
func (c *KeyCodec) Encode(v any) ([]byte, error) {
	key, ok := v.(Key)
	if !ok {
		return nil, fmt.Errorf("%w: cannot encode %T", ErrUnsupportedValue, v)
	}
	token, err := c.wrapper.Wrap(context.Background(), key)
	if err != nil {
		return nil, err
	}
	return []byte(token), nil
}

// Decode unwraps data into v, which must be a *Key, **SymmetricKey or **AsymmetricSecretKey.
func (c *KeyCodec) Decode(data []byte, v any) error {
	ctx := context.Background()
	switch dst := v.(type) {
	case *Key:
		key, err := c.wrapper.UnwrapKey(ctx, string(data))
		if err != nil {
			return err
		}
		*dst = key
	case **SymmetricKey:
		key, err := c.wrapper.LocalUnwrap(ctx, string(data))
		if err != nil {
			return err
		}
		*dst = key
	case **AsymmetricSecretKey:
		key, err := c.wrapper.SecretUnwrap(ctx, string(data))
		if err != nil {
			return err
		}
		*dst = key
	default:
		return fmt.Errorf("%w: cannot decode into %T", ErrUnsupportedValue, v)
	}
	return nil
}
