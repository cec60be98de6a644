// Package paserk wraps and unwraps PASERK keys with an envelope-encryption service.
//
// A wrapped token has four dot-separated fields:
//
//	v4.local-wrap.aws-kms.<base64url ciphertext>
//
// The first three fields and a trailing dot form the header. The header is sent
// to the service in the encryption context under "PaserkHeader", so the service
// itself refuses to decrypt a token whose header was changed after wrapping.
// Unwrap additionally checks, in constant time, that the token's version and wrap
// method are the ones the Wrapper was configured for before calling the service.
//
// Usage:
//
//	w, err := paserk.New(service, paserk.V4, keyID, "aws-kms")
//	token, err := w.LocalWrap(ctx, key)
//	key, err := w.LocalUnwrap(ctx, token)
//
// Backends for AWS KMS, Google Cloud KMS, Azure Key Vault, Vault Transit and Tink
// live in their own modules. StaticService is an in-memory service for tests.
package paserk
