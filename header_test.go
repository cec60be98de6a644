package paserk

import (
	"bytes"
	"testing"
)

func TestBuildHeader(t *testing.T) {
	tests := []struct {
		version Version
		purpose Purpose
		method  string
		want    string
	}{
		{V4, PurposeLocal, "pie", "v4.local-wrap.pie."},
		{V4, PurposeSecret, "aws-kms", "v4.secret-wrap.aws-kms."},
		{V3, PurposeLocal, "aws-kms", "v3.local-wrap.aws-kms."},
	}
	for _, tt := range tests {
		if got := BuildHeader(tt.version, tt.purpose, tt.method); got != tt.want {
			t.Errorf("BuildHeader(%s, %s, %s): got %q, want %q", tt.version, tt.purpose, tt.method, got, tt.want)
		}
	}
}

func TestParseToken(t *testing.T) {
	parts, err := parseToken("v4.local-wrap.pie.AAEC")
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if parts.version != "v4" || parts.purpose != "local-wrap" || parts.method != "pie" || parts.payload != "AAEC" {
		t.Errorf("unexpected parts: %+v", parts)
	}
	if got := parts.header(); got != "v4.local-wrap.pie." {
		t.Errorf("header(): got %q", got)
	}
	ct, err := parts.ciphertext()
	if err != nil {
		t.Fatalf("ciphertext: %v", err)
	}
	if !bytes.Equal(ct, []byte{0, 1, 2}) {
		t.Errorf("ciphertext: got %v", ct)
	}
}

func TestParseTokenDoesNotValidateFields(t *testing.T) {
	parts, err := parseToken("zz.nope.xyz.!!!")
	if err != nil {
		t.Fatalf("parseToken: %v", err)
	}
	if parts.header() != "zz.nope.xyz." {
		t.Errorf("header(): got %q", parts.header())
	}
}

func TestParseTokenWrongFieldCount(t *testing.T) {
	for _, token := range []string{
		"",
		"v4",
		"v4.local-wrap",
		"v4.local-wrap.pie",
		"v4.local-wrap.pie.AAAA.extra",
	} {
		if _, err := parseToken(token); !IsMalformedToken(err) {
			t.Errorf("parseToken(%q): expected ErrMalformedToken, got %v", token, err)
		}
	}
}

func TestCiphertextInvalidEncoding(t *testing.T) {
	for _, payload := range []string{"AAEC==", "a+b/", "A"} {
		parts := tokenParts{payload: payload}
		if _, err := parts.ciphertext(); !IsInvalidEncoding(err) {
			t.Errorf("ciphertext(%q): expected ErrInvalidEncoding, got %v", payload, err)
		}
	}
}

func TestEncodePayloadNoSeparator(t *testing.T) {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	enc := encodePayload(data)
	if bytes.ContainsAny([]byte(enc), ".=+/") {
		t.Errorf("payload contains reserved characters: %q", enc)
	}
}

func TestBindContextHeaderWins(t *testing.T) {
	defaults := map[string]string{HeaderContextKey: "forged", "app": "billing"}
	got := bindContext("v4.local-wrap.pie.", defaults)
	if got[HeaderContextKey] != "v4.local-wrap.pie." {
		t.Errorf("header entry: got %q", got[HeaderContextKey])
	}
	if got["app"] != "billing" {
		t.Errorf("default entry lost: %v", got)
	}
	if defaults[HeaderContextKey] != "forged" {
		t.Error("bindContext mutated the defaults")
	}
}

func TestCanonicalContext(t *testing.T) {
	a := CanonicalContext(map[string]string{"a": "1", "b": "2"})
	b := CanonicalContext(map[string]string{"b": "2", "a": "1"})
	if !bytes.Equal(a, b) {
		t.Error("encoding depends on map order")
	}

	// Boundaries are length-prefixed, so moving bytes between key and value changes the encoding.
	c := CanonicalContext(map[string]string{"ab": "c"})
	d := CanonicalContext(map[string]string{"a": "bc"})
	if bytes.Equal(c, d) {
		t.Error("distinct contexts share an encoding")
	}

	if !bytes.Equal(CanonicalContext(nil), CanonicalContext(map[string]string{})) {
		t.Error("nil and empty contexts differ")
	}
}
