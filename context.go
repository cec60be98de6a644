package paserk

import (
	"encoding/binary"
	"maps"
	"slices"
)

// bindContext returns a fresh encryption context made of the defaults with the
// header inserted last, so the header entry always wins on collision.
func bindContext(header string, defaults map[string]string) map[string]string {
	ctx := make(map[string]string, len(defaults)+1)
	maps.Copy(ctx, defaults)
	ctx[HeaderContextKey] = header
	return ctx
}

// CanonicalContext encodes an encryption context as deterministic bytes, for
// services that authenticate associated data rather than a key/value map.
//
// Entries are sorted by key. Each key and value is written as a 4-byte big-endian
// length followed by its bytes, so distinct maps never share an encoding.
func CanonicalContext(encCtx map[string]string) []byte {
	keys := slices.Sorted(maps.Keys(encCtx))

	size := 4
	for _, k := range keys {
		size += 8 + len(k) + len(encCtx[k])
	}

	buf := make([]byte, 0, size)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(keys)))
	for _, k := range keys {
		v := encCtx[k]
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(k)))
		buf = append(buf, k...)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(v)))
		buf = append(buf, v...)
	}
	return buf
}
