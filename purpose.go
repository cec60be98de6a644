package paserk

// Purpose is the wrapping purpose carried in the second token field.
type Purpose string

const (
	// PurposeLocal wraps symmetric keys.
	PurposeLocal Purpose = "local"

	// PurposeSecret wraps asymmetric secret keys.
	PurposeSecret Purpose = "secret"
)

// Tag returns the token field for this purpose, e.g. "local-wrap".
func (p Purpose) Tag() string {
	return string(p) + "-wrap"
}

// PurposeOf returns the wrapping purpose for key, or "" for nil.
func PurposeOf(key Key) Purpose {
	if isNilKey(key) {
		return ""
	}
	return key.Purpose()
}
