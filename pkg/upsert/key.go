// Package upsert implements the per-row ingest path: parse, roll-up,
// dictionary-encode, cardinality-guard, then upsert-or-insert into the
// table's store.
package upsert

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/viyadb/viyadb/pkg/coltype"
)

// tupleKey hashes an encoded dimension tuple with xxhash. Because a
// 64-bit hash can collide, tupleOffsets resolves collisions by keeping a
// small bucket of exact-match candidates per hash rather than trusting
// the hash alone.
type tupleKey uint64

// encodeTuple serializes a dimension tuple into its tagless bit-pattern
// representation for hashing and exact comparison.
func encodeTuple(buf []byte, dims []coltype.AnyNum) []byte {
	need := len(dims) * 8
	if cap(buf) < need {
		buf = make([]byte, need)
	} else {
		buf = buf[:need]
	}
	for i, d := range dims {
		binary.LittleEndian.PutUint64(buf[i*8:], d.Uint64())
	}
	return buf
}

// hashTuple returns the xxhash digest of an encoded tuple.
func hashTuple(buf []byte) tupleKey {
	return tupleKey(xxhash.Sum64(buf))
}

// tuplesEqual compares two dimension tuples for exact equality.
func tuplesEqual(a, b []coltype.AnyNum) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Uint64() != b[i].Uint64() {
			return false
		}
	}
	return true
}
