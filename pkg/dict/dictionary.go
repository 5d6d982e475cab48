// Package dict implements the per-string-dimension dictionary: an
// append-only bidirectional mapping between string values and small
// integer codes.
package dict

import "sync"

// ExceededCode is the sentinel code 0, pre-seeded in every dictionary. It
// stands for both "dictionary at capacity" and "cardinality guard
// exceeded" — callers cannot tell the two apart from the code alone.
const ExceededCode uint64 = 0

const exceededValue = "__exceeded"

// Dictionary is a shared/exclusive-locked code<->value table for one
// string dimension. Code 0 is reserved for the sentinel; real codes start
// at 1.
type Dictionary struct {
	mu  sync.RWMutex
	c2v []string
	v2c map[string]uint64

	// cardinality bounds the total number of codes, the sentinel
	// included, so at most cardinality-1 real codes are handed out. 0
	// means unbounded.
	cardinality uint64
}

// New creates a dictionary with the sentinel code pre-seeded.
func New(cardinality uint64) *Dictionary {
	return &Dictionary{
		c2v:         []string{exceededValue},
		v2c:         map[string]uint64{exceededValue: ExceededCode},
		cardinality: cardinality,
	}
}

// Encode returns the existing code for value if present; otherwise it
// appends a fresh code and returns it, unless the dictionary is at
// capacity, in which case it returns the sentinel code 0.
// Cardinality overflow is a data outcome, not an error.
func (d *Dictionary) Encode(value string) uint64 {
	d.mu.RLock()
	if code, ok := d.v2c[value]; ok {
		d.mu.RUnlock()
		return code
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Re-check: another writer may have appended this value while we
	// waited for the exclusive lock.
	if code, ok := d.v2c[value]; ok {
		return code
	}

	if d.cardinality > 0 && uint64(len(d.c2v)) >= d.cardinality {
		return ExceededCode
	}

	code := uint64(len(d.c2v))
	d.c2v = append(d.c2v, value)
	d.v2c[value] = code
	return code
}

// Lookup returns the code for value without appending, and whether it
// was found. Used by filter planning, which must not mutate the
// dictionary.
func (d *Dictionary) Lookup(value string) (uint64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	code, ok := d.v2c[value]
	return code, ok
}

// Decode returns the value for code in O(1). Out-of-range codes return
// the sentinel value.
func (d *Dictionary) Decode(code uint64) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if code >= uint64(len(d.c2v)) {
		return exceededValue
	}
	return d.c2v[code]
}

// Size returns the number of codes assigned, including the sentinel.
func (d *Dictionary) Size() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return uint64(len(d.c2v))
}
