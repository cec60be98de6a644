package paserk

import (
	"context"
	"testing"
)

func benchmarkWrapper(b *testing.B) *Wrapper {
	b.Helper()
	return testWrapper(b, testService(b), V4, "bench")
}

func BenchmarkLocalWrap(b *testing.B) {
	w := benchmarkWrapper(b)
	ctx := context.Background()
	key, err := NewSymmetricKey(makeKey(32), V4)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := w.LocalWrap(ctx, key); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnwrapKey(b *testing.B) {
	w := benchmarkWrapper(b)
	ctx := context.Background()
	key, err := NewSymmetricKey(makeKey(32), V4)
	if err != nil {
		b.Fatal(err)
	}
	token, err := w.LocalWrap(ctx, key)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := w.UnwrapKey(ctx, token); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnwrapKeyWrongMethod(b *testing.B) {
	w := benchmarkWrapper(b)
	ctx := context.Background()
	token := "v4.local-wrap.other." + encodePayload(makeKey(64))

	b.ResetTimer()
	b.ReportAllocs()
	for b.Loop() {
		if _, err := w.UnwrapKey(ctx, token); err == nil {
			b.Fatal("expected error")
		}
	}
}

func BenchmarkCanonicalContext(b *testing.B) {
	encCtx := map[string]string{
		HeaderContextKey: "v4.local-wrap.bench.",
		"app":            "billing",
		"tenant":         "acme",
	}

	b.ReportAllocs()
	for b.Loop() {
		CanonicalContext(encCtx)
	}
}
