package store

import "fmt"

// Handle is the external view of a live store.
type Handle struct {
	impl *Implementation
}

// Instantiate mounts a root store described by el on d. Mounting is
// synchronous: the returned handle already carries the initial output, or the
// mount error if the store failed.
func Instantiate(d *Dispatcher, el Element) *Handle {
	st, ok := el.Type.(storeType)
	if !ok {
		panic(violation("store.Instantiate", ErrInvalidElement, ""))
	}
	impl := newImplementation(d.resolve(), el, st)
	impl.dispatcher().log.Debug("instantiate", "dispatcher", impl.dispatcher().id, "store", impl.name)
	return impl.handle
}

// Name returns the component name of the store.
func (h *Handle) Name() string {
	return h.impl.name
}

// Value returns the last published output.
func (h *Handle) Value() any {
	return h.impl.emitter.Value()
}

// Err returns the error the store failed with, if any.
func (h *Handle) Err() error {
	return h.impl.emitter.Err()
}

// Destroyed reports whether the store has been disposed.
func (h *Handle) Destroyed() bool {
	return h.impl.phase == phaseDestroyed
}

// SetProps replaces the store's props. Outside a dispatch it starts one.
func (h *Handle) SetProps(props any) {
	h.impl.setProps(props)
}

// Dispose destroys the store and its subtree. Inside a dispatch the
// destruction is deferred until the dispatch ends. Disposing twice is a no-op.
func (h *Handle) Dispose() {
	h.impl.dispose()
}

// Subscribe registers o at DefaultPriority.
func (h *Handle) Subscribe(o Observer) Subscription {
	return h.SubscribeAt(DefaultPriority, o)
}

// SubscribeAt registers t to receive the store's output during the flush of
// priority p. Values arrive once per dispatch, bracketed by TransactionStart
// and TransactionEnd.
func (h *Handle) SubscribeAt(p Priority, t Target) Subscription {
	return h.impl.emitter.SubscribeFlushTarget(t, p)
}

// Dispatcher returns the dispatcher currently scheduling the store.
func (h *Handle) Dispatcher() *Dispatcher {
	return h.impl.dispatcher()
}

// Emitter exposes the store's emitter.
func (h *Handle) Emitter() *Emitter {
	return h.impl.emitter
}

// Node is one entry of a store tree, as seen by Walk.
type Node struct {
	// Key is the child key in its parent, empty for the root.
	Key    string
	Type   string
	TypeID uint64
	Depth  int
	Value  any
	// Adopted is set for children that follow a store owned elsewhere.
	Adopted bool
	// Store is nil for plain and constant children.
	Store *Handle
}

// Walk visits the store and its children depth-first, in child order. Adopted
// stores are visited but not descended into. Returning false from visit skips
// the node's children.
func (h *Handle) Walk(visit func(Node) bool) {
	root := Node{
		Type:   h.impl.name,
		TypeID: h.impl.element.Type.TypeID(),
		Value:  h.Value(),
		Store:  h,
	}
	if visit(root) {
		h.impl.walkChildren(1, visit)
	}
}

func (i *Implementation) walkChildren(depth int, visit func(Node) bool) {
	for _, key := range i.order {
		c := i.children[key]
		n := Node{
			Key:   displayKey(key),
			Depth: depth,
			Value: c.value,
		}
		el, isElement := c.desc.(Element)
		switch {
		case !isElement:
			n.Type = fmt.Sprintf("%T", c.desc)
		default:
			n.Type = el.Type.TypeName()
			n.TypeID = el.Type.TypeID()
		}
		switch {
		case c.impl != nil:
			n.Store = c.impl.handle
		case c.source != nil:
			n.Store = c.source
			n.Adopted = true
			n.Type = c.source.impl.name
			n.TypeID = c.source.impl.element.Type.TypeID()
		}
		if visit(n) && c.impl != nil {
			c.impl.walkChildren(depth+1, visit)
		}
	}
}

func displayKey(key string) string {
	if key == rootKey {
		return "."
	}
	return key
}

// ValueOf returns h's output as a T, or the zero T if it has another type.
func ValueOf[T any](h *Handle) T {
	v, _ := h.Value().(T)
	return v
}
