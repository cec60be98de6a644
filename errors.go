package paserk

import "errors"

var (
	// ErrMalformedToken is returned when a wrapped token does not have exactly four dot-separated fields.
	ErrMalformedToken = errors.New("paserk: malformed wrapped token")

	// ErrInvalidEncoding is returned when the token payload is not unpadded base64url.
	ErrInvalidEncoding = errors.New("paserk: invalid base64url payload")

	// ErrUnknownVersion is returned when a version header is not recognized.
	ErrUnknownVersion = errors.New("paserk: unknown protocol version")

	// ErrVersionMismatch is returned when a token or key belongs to a different protocol
	// version than the wrapper is configured for.
	ErrVersionMismatch = errors.New("paserk: protocol version mismatch")

	// ErrWrongWrapMethod is returned when a token was not produced by this wrapping method.
	ErrWrongWrapMethod = errors.New("paserk: key is not wrapped with this wrapping method")

	// ErrUnknownWrapPurpose is returned when the purpose field is not local-wrap or secret-wrap,
	// or does not match the key type the caller asked for.
	ErrUnknownWrapPurpose = errors.New("paserk: unknown wrapping type")

	// ErrInvalidKey is returned when raw key material has the wrong size or structure for its version.
	ErrInvalidKey = errors.New("paserk: invalid key material")

	// ErrInvalidConfig is returned when a wrapper or service is constructed with invalid settings.
	ErrInvalidConfig = errors.New("paserk: invalid configuration")

	// ErrUnsupportedValue is returned by KeyCodec for values that are not keys.
	ErrUnsupportedValue = errors.New("paserk: unsupported value type")

	// ErrKeyNotFound is returned by StaticService when a key ID is not known.
	ErrKeyNotFound = errors.New("paserk: key not found")

	// ErrDecryptionFailed is returned by StaticService when decryption fails
	// (wrong key, tampered ciphertext or mismatched encryption context).
	ErrDecryptionFailed = errors.New("paserk: decryption failed")

	// ErrServiceDestroyed is returned by StaticService after Destroy.
	ErrServiceDestroyed = errors.New("paserk: service destroyed")
)

// IsMalformedToken returns true if the error is or wraps ErrMalformedToken.
func IsMalformedToken(err error) bool {
	return errors.Is(err, ErrMalformedToken)
}

// IsInvalidEncoding returns true if the error is or wraps ErrInvalidEncoding.
func IsInvalidEncoding(err error) bool {
	return errors.Is(err, ErrInvalidEncoding)
}

// IsUnknownVersion returns true if the error is or wraps ErrUnknownVersion.
func IsUnknownVersion(err error) bool {
	return errors.Is(err, ErrUnknownVersion)
}

// IsVersionMismatch returns true if the error is or wraps ErrVersionMismatch.
func IsVersionMismatch(err error) bool {
	return errors.Is(err, ErrVersionMismatch)
}

// IsWrongWrapMethod returns true if the error is or wraps ErrWrongWrapMethod.
func IsWrongWrapMethod(err error) bool {
	return errors.Is(err, ErrWrongWrapMethod)
}

// IsUnknownWrapPurpose returns true if the error is or wraps ErrUnknownWrapPurpose.
func IsUnknownWrapPurpose(err error) bool {
	return errors.Is(err, ErrUnknownWrapPurpose)
}

// IsInvalidKey returns true if the error is or wraps ErrInvalidKey.
func IsInvalidKey(err error) bool {
	return errors.Is(err, ErrInvalidKey)
}

// IsInvalidConfig returns true if the error is or wraps ErrInvalidConfig.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig)
}

// IsKeyNotFound returns true if the error is or wraps ErrKeyNotFound.
func IsKeyNotFound(err error) bool {
	return errors.Is(err, ErrKeyNotFound)
}

// IsDecryptionFailed returns true if the error is or wraps ErrDecryptionFailed.
func IsDecryptionFailed(err error) bool {
	return errors.Is(err, ErrDecryptionFailed)
}

// IsServiceDestroyed returns true if the error is or wraps ErrServiceDestroyed.
func IsServiceDestroyed(err error) bool {
	return errors.Is(err, ErrServiceDestroyed)
}

// IsLucidityViolation returns true if the error is a version or wrap method mismatch.
func IsLucidityViolation(err error) bool {
	return errors.Is(err, ErrVersionMismatch) || errors.Is(err, ErrWrongWrapMethod)
}
