package store

import "github.com/cespare/xxhash/v2"

// Type identifies what an Element instantiates.
type Type interface {
	TypeName() string
	// TypeID is a stable hash of the type name.
	TypeID() uint64
}

// storeType is a Type that instantiates a live store.
type storeType interface {
	Type
	bind(impl *Implementation) behavior
}

// Element is an immutable description of a child: what to instantiate, its
// props and an optional reconciliation key.
type Element struct {
	Type  Type
	Props any
	Key   string
}

// WithKey returns a copy of e with the given key.
func (e Element) WithKey(key string) Element {
	e.Key = key
	return e
}

type constantType struct{}

func (constantType) TypeName() string { return "constant" }
func (constantType) TypeID() uint64   { return constantTypeID }

type subscribeType struct{}

func (subscribeType) TypeName() string { return "subscribe" }
func (subscribeType) TypeID() uint64   { return subscribeTypeID }

var (
	constantTypeID  = xxhash.Sum64String("constant")
	subscribeTypeID = xxhash.Sum64String("subscribe")

	// ConstantType elements are adopted as plain values without creating a store.
	ConstantType Type = constantType{}
	// SubscribeType elements adopt an existing store instead of creating one.
	SubscribeType Type = subscribeType{}
)

// Constant describes a child whose output is v.
func Constant(v any) Element {
	return Element{Type: ConstantType, Props: v}
}

// Subscribe describes a child that follows the output of an existing store,
// possibly one owned by another tree.
func Subscribe(h *Handle) Element {
	return Element{Type: SubscribeType, Props: h}
}
