package store

import (
	"maps"

	"github.com/cespare/xxhash/v2"
)

// Component describes a kind of store. Every hook is optional.
//
// P is the props type and S the state type. A store without Publish publishes
// the output of its children; a store without Subs has no children.
type Component[P, S any] struct {
	Name string

	// InitialState computes the state on mount.
	InitialState func(props P) S
	// WillReceiveProps runs before new props are applied and may call SetState.
	WillReceiveProps func(self *Self[P, S], next P) error
	// Subs declares the children for the current props and state.
	Subs func(self *Self[P, S]) (Subs, error)
	// Publish computes the output from props, state and children output.
	Publish func(self *Self[P, S]) (any, error)
	// ShouldPublish can veto publishing even though something changed.
	ShouldPublish func(self *Self[P, S], prev Snapshot[P, S]) bool
	// DidPublish runs in the dispatcher's post phase, after children's.
	DidPublish func(self *Self[P, S], prev Snapshot[P, S])
	// WillDispose runs before the store's emitter completes.
	WillDispose func(self *Self[P, S])
}

// Snapshot is the props, state and children output of a previous render.
type Snapshot[P, S any] struct {
	Props P
	State S
	Subs  any
}

func (c *Component[P, S]) TypeName() string {
	return c.Name
}

func (c *Component[P, S]) TypeID() uint64 {
	return xxhash.Sum64String(c.Name)
}

// Element describes a store of this component with the given props.
func (c *Component[P, S]) Element(props P) Element {
	return Element{Type: c, Props: props}
}

func (c *Component[P, S]) bind(impl *Implementation) behavior {
	return &binding[P, S]{
		c:    c,
		self: &Self[P, S]{impl: impl},
	}
}

// Self is the view of a live store handed to its component's hooks.
type Self[P, S any] struct {
	impl *Implementation
}

func (s *Self[P, S]) Props() P {
	return as[P](s.impl.props)
}

func (s *Self[P, S]) State() S {
	return as[S](s.impl.state)
}

// Subs returns the current output of the children: a map[string]any for Keyed,
// a []any for Indexed, the child's value for Single and nil without children.
func (s *Self[P, S]) Subs() any {
	return s.impl.subsValue()
}

// SetState replaces the state with next. When both states are
// map[string]any, next is merged into the previous state key by key.
// callback runs after the dispatch that applies the change has settled.
func (s *Self[P, S]) SetState(next S, callback func()) {
	s.impl.setState("store.SetState", func(prev, _ any) any {
		return mergeState(prev, next)
	}, callback)
}

// UpdateState computes the next state from the previous state and props.
func (s *Self[P, S]) UpdateState(update func(prev S, props P) S, callback func()) {
	s.impl.setState("store.UpdateState", func(prev, props any) any {
		return update(as[S](prev), as[P](props))
	}, callback)
}

// Dispatch queues action on the store's dispatcher.
func (s *Self[P, S]) Dispatch(action func()) {
	s.impl.dispatcher().Enqueue(action)
}

// Handle returns a handle to this store.
func (s *Self[P, S]) Handle() *Handle {
	return s.impl.handle
}

// SelfOf returns the typed view of the store behind h. It reports false when
// the store is not an instance of a Component[P, S].
func SelfOf[P, S any](h *Handle) (*Self[P, S], bool) {
	b, ok := h.impl.behavior.(*binding[P, S])
	if !ok {
		return nil, false
	}
	return b.self, true
}

func mergeState(prev, next any) any {
	pm, ok := prev.(map[string]any)
	if !ok {
		return next
	}
	nm, ok := next.(map[string]any)
	if !ok {
		return next
	}
	merged := make(map[string]any, len(pm)+len(nm))
	maps.Copy(merged, pm)
	maps.Copy(merged, nm)
	return merged
}

func as[T any](v any) T {
	if v == nil {
		var zero T
		return zero
	}
	return v.(T)
}

type snapshot struct {
	props any
	state any
	subs  any
}

// behavior is the type-erased lifecycle of a Component.
type behavior interface {
	initialState(props any) (any, error)
	willReceiveProps(next any) error
	subs() (Subs, error)
	publish() (any, error)
	shouldPublish(prev snapshot) (bool, error)
	hasDidPublish() bool
	didPublish(prev snapshot) error
	willDispose() error
}

type binding[P, S any] struct {
	c    *Component[P, S]
	self *Self[P, S]
}

func (b *binding[P, S]) name() string {
	return b.c.Name
}

func (b *binding[P, S]) typed(s snapshot) Snapshot[P, S] {
	return Snapshot[P, S]{
		Props: as[P](s.props),
		State: as[S](s.state),
		Subs:  s.subs,
	}
}

func (b *binding[P, S]) initialState(props any) (state any, err error) {
	if b.c.InitialState == nil {
		var zero S
		return zero, nil
	}
	err = guardHook(b.name(), "InitialState", func() error {
		state = b.c.InitialState(as[P](props))
		return nil
	})
	return state, err
}

func (b *binding[P, S]) willReceiveProps(next any) error {
	if b.c.WillReceiveProps == nil {
		return nil
	}
	return guardHook(b.name(), "WillReceiveProps", func() error {
		return b.c.WillReceiveProps(b.self, as[P](next))
	})
}

func (b *binding[P, S]) subs() (subs Subs, err error) {
	if b.c.Subs == nil {
		return Subs{}, nil
	}
	err = guardHook(b.name(), "Subs", func() error {
		var hookErr error
		subs, hookErr = b.c.Subs(b.self)
		return hookErr
	})
	return subs, err
}

func (b *binding[P, S]) publish() (out any, err error) {
	if b.c.Publish == nil {
		return b.self.Subs(), nil
	}
	err = guardHook(b.name(), "Publish", func() error {
		var hookErr error
		out, hookErr = b.c.Publish(b.self)
		return hookErr
	})
	return out, err
}

func (b *binding[P, S]) shouldPublish(prev snapshot) (ok bool, err error) {
	if b.c.ShouldPublish == nil {
		return true, nil
	}
	err = guardHook(b.name(), "ShouldPublish", func() error {
		ok = b.c.ShouldPublish(b.self, b.typed(prev))
		return nil
	})
	return ok, err
}

func (b *binding[P, S]) hasDidPublish() bool {
	return b.c.DidPublish != nil
}

func (b *binding[P, S]) didPublish(prev snapshot) error {
	return guardHook(b.name(), "DidPublish", func() error {
		b.c.DidPublish(b.self, b.typed(prev))
		return nil
	})
}

func (b *binding[P, S]) willDispose() error {
	if b.c.WillDispose == nil {
		return nil
	}
	return guardHook(b.name(), "WillDispose", func() error {
		b.c.WillDispose(b.self)
		return nil
	})
}
