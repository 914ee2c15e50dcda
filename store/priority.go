package store

import "slices"

// Priority orders flushes. Lower priorities flush first; the ordering is the
// integer ordering, so 2 always flushes before 10.
type Priority int

const (
	// DefaultPriority is used by Handle.Subscribe.
	DefaultPriority Priority = 0
)

// insertPriority keeps q sorted and free of duplicates.
func insertPriority(q []Priority, p Priority) []Priority {
	idx, found := slices.BinarySearch(q, p)
	if found {
		return q
	}
	return slices.Insert(q, idx, p)
}

func removePriority(q []Priority, p Priority) []Priority {
	idx, found := slices.BinarySearch(q, p)
	if !found {
		return q
	}
	return slices.Delete(q, idx, idx+1)
}
