package store

import (
	"maps"
	"slices"
	"strconv"
)

type subsKind uint8

const (
	subsNone subsKind = iota
	subsKeyed
	subsIndexed
	subsSingle
)

func (k subsKind) String() string {
	switch k {
	case subsKeyed:
		return "keyed"
	case subsIndexed:
		return "indexed"
	case subsSingle:
		return "single"
	default:
		return "none"
	}
}

// rootKey is the child key used by Single.
const rootKey = "\x00root"

// Subs is the child structure a store declares on each render. Each entry is
// either an Element, which becomes a child store, or a plain value that is
// copied into the output as is.
type Subs struct {
	kind    subsKind
	keyed   map[string]any
	indexed []any
	single  any
}

// Keyed declares named children. The output of the children is a
// map[string]any with the same keys.
func Keyed(children map[string]any) Subs {
	return Subs{kind: subsKeyed, keyed: children}
}

// Indexed declares positional children. Their output is a []any.
func Indexed(children ...any) Subs {
	return Subs{kind: subsIndexed, indexed: children}
}

// Single declares one unnamed child whose output is used directly.
func Single(child any) Subs {
	return Subs{kind: subsSingle, single: child}
}

// entries returns the declared children in a deterministic order.
func (s Subs) entries() (keys []string, values []any) {
	switch s.kind {
	case subsKeyed:
		keys = slices.Sorted(maps.Keys(s.keyed))
		values = make([]any, len(keys))
		for i, k := range keys {
			values[i] = s.keyed[k]
		}
	case subsIndexed:
		keys = make([]string, len(s.indexed))
		for i := range s.indexed {
			keys[i] = strconv.Itoa(i)
		}
		values = s.indexed
	case subsSingle:
		keys = []string{rootKey}
		values = []any{s.single}
	}
	return keys, values
}
