package upsert

import (
	"hash/crc32"
)

// PartitionFilter implements the ingest-time partition predicate:
// CRC32(concat(key_cols)) mod N in accepted_set. Key-column input
// strings are concatenated without a delimiter; this is kept as-is for
// compatibility with the cluster partitioner.
type PartitionFilter struct {
	KeyColumns      []int // indices into the fields passed to Accepts, in declared order
	TotalPartitions uint32
	Accepted        map[uint32]struct{}
}

// Accepts reports whether the row whose fields are given belongs to one
// of this filter's accepted partitions. The loader passes a load's raw
// source fields; Context.ProcessRow passes the row's schema-order
// dimension fields.
func (f *PartitionFilter) Accepts(fields []string) bool {
	if f == nil {
		return true
	}
	h := crc32.NewIEEE()
	for _, idx := range f.KeyColumns {
		if idx < len(fields) {
			_, _ = h.Write([]byte(fields[idx]))
		}
	}
	part := h.Sum32() % f.TotalPartitions
	_, ok := f.Accepted[part]
	return ok
}
