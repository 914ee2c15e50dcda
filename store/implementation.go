package store

import (
	"maps"
	"slices"
)

type phase uint8

const (
	phaseUninitialized phase = iota
	phaseMounted
	phaseDestroyed
)

type child struct {
	key   string
	desc  any
	value any
	sub   Subscription
	// impl is set when the child store is owned by this store.
	impl *Implementation
	// source is set when the child adopts an existing store.
	source *Handle
}

// Implementation is one live store: it holds props, state and output, owns
// its children and drives its Emitter.
type Implementation struct {
	disp     *Dispatcher
	name     string
	element  Element
	behavior behavior
	emitter  *Emitter
	handle   *Handle

	phase phase
	props any
	state any

	// level counts open transactions on this store.
	level int
	// dirty means props or state changed and Subs must run again.
	dirty bool
	// stale means a child's output changed and the output must be republished.
	stale     bool
	rendering bool
	failed    bool
	// detached stores were removed from their parent and await disposal.
	detached      bool
	disposeQueued bool

	pendingProps *any
	last         snapshot

	subsKind subsKind
	children map[string]*child
	order    []string
}

func newImplementation(d *Dispatcher, el Element, st storeType) *Implementation {
	i := &Implementation{
		disp:     d,
		name:     st.TypeName(),
		element:  el,
		props:    el.Props,
		children: make(map[string]*child),
	}
	i.handle = &Handle{impl: i}
	i.behavior = st.bind(i)
	i.emitter = NewEmitter(d, i.name, nil)
	i.mount()
	return i
}

func (i *Implementation) dispatcher() *Dispatcher {
	root := i.disp.resolve()
	i.disp = root
	return root
}

func (i *Implementation) mount() {
	state, err := i.behavior.initialState(i.props)
	if err != nil {
		i.mountFailed(err)
		return
	}
	i.state = state

	i.rendering = true
	subs, err := i.behavior.subs()
	if err == nil {
		i.reconcile(subs)
	}
	i.rendering = false
	if err != nil {
		i.mountFailed(err)
		return
	}
	if i.failed {
		i.phase = phaseMounted
		return
	}

	out, err := i.behavior.publish()
	if err != nil {
		i.mountFailed(err)
		return
	}
	i.emitter.value = out
	i.phase = phaseMounted
	i.last = i.snapshot()
}

func (i *Implementation) mountFailed(err error) {
	i.fail(err)
	i.phase = phaseMounted
}

func (i *Implementation) live() bool {
	return i.phase != phaseDestroyed && !i.failed
}

func (i *Implementation) mustBeLive(op string) {
	switch {
	case i.phase == phaseDestroyed:
		panic(violation(op, ErrDestroyed, i.name))
	case i.failed:
		panic(violation(op, ErrFailed, i.name))
	}
}

// txGuard closes the transaction opened by begin exactly once.
type txGuard struct {
	impl     *Implementation
	released bool
}

// begin opens a transaction on the store. Use as defer i.begin().end().
func (i *Implementation) begin() *txGuard {
	i.level++
	return &txGuard{impl: i}
}

func (g *txGuard) end() {
	if g.released {
		return
	}
	g.released = true

	i := g.impl
	i.level--
	if i.level < 0 {
		i.level = 0
		panic(violation("store.transactionEnd", ErrNegativeLevel, i.name))
	}
	if i.level == 0 && (i.dirty || i.stale) && i.phase == phaseMounted && !i.failed && !i.detached {
		i.dispatcher().enqueueReaction(i)
	}
}

func (i *Implementation) setProps(next any) {
	i.mustBeLive("store.setProps")
	d := i.dispatcher()
	if !d.dispatching {
		d.Enqueue(func() {
			if i.live() {
				i.setPropsNow(next)
			}
		})
		return
	}
	i.setPropsNow(next)
}

func (i *Implementation) setPropsNow(next any) {
	if i.rendering {
		// Coalesced: the latest props are applied once the render finishes.
		i.pendingProps = &next
		return
	}
	defer i.begin().end()

	if err := i.behavior.willReceiveProps(next); err != nil {
		i.fail(err)
		return
	}
	i.props = next
	i.dirty = true
}

func (i *Implementation) setState(op string, update func(prev, props any) any, callback func()) {
	i.mustBeLive(op)
	if i.rendering {
		panic(violation(op, ErrRenderMutation, i.name))
	}
	d := i.dispatcher()
	if !d.dispatching {
		d.Enqueue(func() {
			if i.live() {
				i.setStateNow(update, callback)
			}
		})
		return
	}
	i.setStateNow(update, callback)
}

func (i *Implementation) setStateNow(update func(prev, props any) any, callback func()) {
	defer i.begin().end()

	i.state = update(i.state, i.props)
	i.dirty = true
	if callback != nil {
		i.dispatcher().enqueuePost(i, callback)
	}
}

// react is the store's reaction: render and reconcile if props or state
// changed, settle children first, then publish.
func (i *Implementation) react() {
	if i.phase != phaseMounted || i.failed || i.detached {
		return
	}
	d := i.dispatcher()
	prev := i.last

	i.rendering = true
	func() {
		defer func() { i.rendering = false }()

		if i.dirty {
			i.dirty = false
			subs, err := i.behavior.subs()
			if err != nil {
				i.fail(err)
				return
			}
			i.reconcile(subs)
		}
		for _, r := range i.childReactors() {
			d.settle(r)
		}
	}()
	if !i.live() {
		return
	}

	if i.pendingProps != nil {
		next := *i.pendingProps
		i.pendingProps = nil
		i.setPropsNow(next)
		if !i.live() || i.dirty {
			return
		}
	}

	i.stale = false
	i.last = i.snapshot()
	ok, err := i.behavior.shouldPublish(prev)
	if err != nil {
		i.fail(err)
		return
	}
	if !ok {
		return
	}

	out, err := i.behavior.publish()
	if err != nil {
		i.fail(err)
		return
	}
	i.emitter.Publish(out)

	if i.behavior.hasDidPublish() {
		d.enqueuePost(i, func() {
			if !i.live() {
				return
			}
			if err := i.behavior.didPublish(prev); err != nil {
				i.fail(err)
			}
		})
	}
}

func (i *Implementation) childReactors() []reactor {
	var out []reactor
	for _, key := range i.order {
		c := i.children[key]
		switch {
		case c.impl != nil:
			out = append(out, c.impl)
		case c.source != nil:
			out = append(out, c.source.impl)
		}
	}
	return out
}

func (i *Implementation) postChildren() []any {
	var out []any
	for _, key := range i.order {
		if c := i.children[key]; c.impl != nil {
			out = append(out, c.impl)
		}
	}
	return out
}

func (i *Implementation) snapshot() snapshot {
	return snapshot{
		props: i.props,
		state: i.state,
		subs:  i.subsValue(),
	}
}

func (i *Implementation) subsValue() any {
	switch i.subsKind {
	case subsKeyed:
		out := make(map[string]any, len(i.order))
		for _, key := range i.order {
			out[key] = i.children[key].value
		}
		return out
	case subsIndexed:
		out := make([]any, len(i.order))
		for idx, key := range i.order {
			out[idx] = i.children[key].value
		}
		return out
	case subsSingle:
		if c, ok := i.children[rootKey]; ok {
			return c.value
		}
	}
	return nil
}

// reconcile diffs the declared children against the live ones.
func (i *Implementation) reconcile(next Subs) {
	if next.kind != i.subsKind {
		i.removeAll()
		i.subsKind = next.kind
	}

	keys, values := next.entries()
	wanted := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		wanted[key] = struct{}{}
	}
	for _, key := range slices.Clone(i.order) {
		if _, ok := wanted[key]; !ok {
			i.removeChild(i.children[key])
		}
	}

	order := make([]string, 0, len(keys))
	for idx, key := range keys {
		if i.failed {
			// Children not reached yet stay live until the store is disposed.
			for _, rest := range keys[idx:] {
				if _, ok := i.children[rest]; ok {
					order = append(order, rest)
				}
			}
			break
		}
		i.reconcileChild(key, values[idx])
		order = append(order, key)
	}
	i.order = order
}

// childKeys returns every live child key: the declared order first, then any
// child missing from it in key order.
func (i *Implementation) childKeys() []string {
	keys := slices.Clone(i.order)
	if len(keys) == len(i.children) {
		return keys
	}
	listed := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		listed[key] = struct{}{}
	}
	for _, key := range slices.Sorted(maps.Keys(i.children)) {
		if _, ok := listed[key]; !ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func (i *Implementation) reconcileChild(key string, next any) {
	prev, ok := i.children[key]
	if ok && Reconcile(prev.desc, next) == Reuse {
		prev.desc = next
		el, isElement := next.(Element)
		switch {
		case !isElement:
			prev.value = next
		case el.Type == ConstantType:
			prev.value = el.Props
		case el.Type == SubscribeType:
			// Only the source's identity matters; props are never pushed.
		case prev.impl != nil:
			prev.impl.setPropsNow(el.Props)
		}
		return
	}
	if ok {
		i.removeChild(prev)
	}
	i.children[key] = i.createChild(key, next)
}

func (i *Implementation) createChild(key string, desc any) *child {
	c := &child{key: key, desc: desc}
	el, ok := desc.(Element)
	if !ok {
		c.value = desc
		return c
	}

	switch t := el.Type.(type) {
	case constantType:
		c.value = el.Props
	case subscribeType:
		h, ok := el.Props.(*Handle)
		if !ok || h == nil {
			panic(violation("store.subscribe", ErrInvalidElement, i.name))
		}
		merge(i.dispatcher(), h.impl.dispatcher())
		c.source = h
		c.value = h.impl.emitter.value
		c.sub = h.impl.emitter.SubscribePublishTarget(i.childTarget(c))
	case storeType:
		impl := newImplementation(i.dispatcher(), el, t)
		c.impl = impl
		c.value = impl.emitter.value
		c.sub = impl.emitter.SubscribePublishTarget(i.childTarget(c))
	default:
		panic(violation("store.createChild", ErrInvalidElement, i.name))
	}
	return c
}

func (i *Implementation) childTarget(c *child) Target {
	return Observer{
		OnNext: func(value any, _ DispatchFunc) {
			i.childChanged(c, value)
		},
		OnError: func(err error) {
			i.fail(err)
		},
		OnComplete: func() {
			c.sub = nil
		},
	}
}

// childChanged applies a child's new output. While rendering, or inside an
// open transaction, it goes straight into the pending output; otherwise a
// transaction is opened for this single change.
func (i *Implementation) childChanged(c *child, value any) {
	if !i.live() || i.children[c.key] != c {
		return
	}
	c.value = value
	i.stale = true
	if i.rendering || i.level > 0 {
		return
	}
	i.begin().end()
}

func (i *Implementation) removeAll() {
	for _, key := range slices.Clone(i.order) {
		i.removeChild(i.children[key])
	}
	i.order = nil
}

func (i *Implementation) removeChild(c *child) {
	if c == nil {
		return
	}
	delete(i.children, c.key)
	i.order = slices.DeleteFunc(i.order, func(k string) bool {
		return k == c.key
	})
	if c.sub != nil {
		c.sub.Cancel()
		c.sub = nil
	}
	if c.impl != nil {
		c.impl.detach()
		c.impl.dispose()
	}
}

// detach stops a removed subtree from scheduling further work.
func (i *Implementation) detach() {
	if i.detached {
		return
	}
	i.detached = true
	i.dispatcher().cancelReaction(i)
	for _, key := range i.childKeys() {
		if c := i.children[key]; c.impl != nil {
			c.impl.detach()
		}
	}
}

// fail terminates the store with err. Errors raised while mounting are
// recorded and delivered to whoever subscribes next.
func (i *Implementation) fail(err error) {
	if i.failed || i.phase == phaseDestroyed {
		return
	}
	i.failed = true
	i.dispatcher().cancelReaction(i)
	if i.phase == phaseUninitialized {
		i.emitter.recordError(err)
		return
	}
	i.emitter.Error(err)
}

// dispose destroys the store, deferring until the running dispatch finishes.
func (i *Implementation) dispose() {
	if i.phase == phaseDestroyed || i.disposeQueued {
		return
	}
	d := i.dispatcher()
	if d.dispatching {
		i.disposeQueued = true
		d.log.Debug("dispose deferred", "dispatcher", d.id, "store", i.name)
		d.deferDispose(i.destroy)
		return
	}
	i.destroy()
}

// destroy disposes children depth-first, then the store itself.
func (i *Implementation) destroy() {
	if i.phase == phaseDestroyed {
		return
	}
	for _, key := range i.childKeys() {
		c := i.children[key]
		if c.sub != nil {
			c.sub.Cancel()
			c.sub = nil
		}
		if c.impl != nil {
			c.impl.destroy()
		}
	}
	clear(i.children)
	i.order = nil

	if err := i.behavior.willDispose(); err != nil {
		i.dispatcher().log.Warn("WillDispose failed", "store", i.name, "err", err)
	}
	i.phase = phaseDestroyed
	i.dispatcher().cancelReaction(i)
	i.emitter.Complete()
}
