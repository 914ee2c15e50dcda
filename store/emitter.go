package store

import "slices"

type flushEntry struct {
	target   Target
	priority Priority
	sub      *subscription
	// started is the transaction whose start this target has seen, 0 if none.
	started TransactionID
}

type publishEntry struct {
	target Target
	sub    *subscription
}

// Emitter holds a store's current output and distributes it to subscribers.
//
// Flush targets receive values during the dispatcher's flush phase, at their
// priority, bracketed by transaction boundaries. Publish targets receive every
// published value synchronously and never see transaction boundaries.
type Emitter struct {
	disp *Dispatcher
	name string

	value any

	flushTargets   []*flushEntry
	publishTargets []*publishEntry

	stopped   bool
	completed bool
	err       error
}

// NewEmitter creates an emitter scheduled by d.
func NewEmitter(d *Dispatcher, name string, initial any) *Emitter {
	return &Emitter{
		disp:  d,
		name:  name,
		value: initial,
	}
}

func (e *Emitter) dispatcher() *Dispatcher {
	root := e.disp.resolve()
	e.disp = root
	return root
}

// Value returns the last published value.
func (e *Emitter) Value() any {
	return e.value
}

// Stopped reports whether the emitter has errored or completed.
func (e *Emitter) Stopped() bool {
	return e.stopped
}

// Err returns the terminal error, if any.
func (e *Emitter) Err() error {
	return e.err
}

// Dispatching reports whether the emitter's dispatcher is mid-dispatch.
func (e *Emitter) Dispatching() bool {
	return e.dispatcher().dispatching
}

// Dispatcher returns the dispatcher currently scheduling this emitter.
func (e *Emitter) Dispatcher() *Dispatcher {
	return e.dispatcher()
}

// SubscribeFlushTarget registers t to receive values at priority p.
func (e *Emitter) SubscribeFlushTarget(t Target, p Priority) Subscription {
	if e.stopped {
		return e.replayTerminal(t)
	}

	entry := &flushEntry{target: t, priority: p}
	entry.sub = newSubscription(func() {
		e.removeFlushTarget(entry)
	})
	e.flushTargets = append(e.flushTargets, entry)

	d := e.dispatcher()
	d.registerPriority(e, p)

	t.Start(entry.sub)
	if d.dispatching && !entry.sub.closed {
		entry.started = d.txID
		t.TransactionStart(d.txID)
	}
	return entry.sub
}

// SubscribePublishTarget registers t on the direct, non-batched channel.
func (e *Emitter) SubscribePublishTarget(t Target) Subscription {
	if e.stopped {
		return e.replayTerminal(t)
	}

	entry := &publishEntry{target: t}
	entry.sub = newSubscription(func() {
		e.publishTargets = slices.DeleteFunc(e.publishTargets, func(p *publishEntry) bool {
			return p == entry
		})
	})
	e.publishTargets = append(e.publishTargets, entry)
	t.Start(entry.sub)
	return entry.sub
}

func (e *Emitter) replayTerminal(t Target) Subscription {
	sub := closedSubscription()
	t.Start(sub)
	if e.err != nil {
		t.Error(e.err)
	} else {
		t.Complete()
	}
	return sub
}

func (e *Emitter) removeFlushTarget(entry *flushEntry) {
	e.flushTargets = slices.DeleteFunc(e.flushTargets, func(f *flushEntry) bool {
		return f == entry
	})
	if !e.stopped {
		e.dispatcher().deregisterPriority(e, entry.priority)
	}
}

// Publish stores value, arms a flush for the flush targets and fans the value
// out to the publish targets immediately.
func (e *Emitter) Publish(value any) {
	if e.stopped {
		panic(violation("emitter.Publish", ErrDestroyed, e.name))
	}
	e.value = value
	e.dispatcher().registerPublish(e)

	for _, p := range slices.Clone(e.publishTargets) {
		if p.sub.closed {
			continue
		}
		p.target.Next(value, nil)
	}
}

func (e *Emitter) flush(p Priority) {
	d := e.dispatcher()
	for _, f := range slices.Clone(e.flushTargets) {
		if f.priority != p || f.sub.closed {
			continue
		}
		if d.dispatching && f.started != d.txID {
			f.started = d.txID
			f.target.TransactionStart(d.txID)
		}
		f.target.Next(e.value, d.Enqueue)
	}
}

func (e *Emitter) transactionStart(id TransactionID) {
	for _, f := range slices.Clone(e.flushTargets) {
		if f.sub.closed || f.started == id {
			continue
		}
		f.started = id
		f.target.TransactionStart(id)
	}
}

func (e *Emitter) transactionEnd(id TransactionID) {
	for _, f := range slices.Clone(e.flushTargets) {
		if f.sub.closed || f.started != id {
			continue
		}
		f.started = 0
		f.target.TransactionEnd(id)
	}
}

// recordError marks the emitter as errored without delivering anything. It is
// used while a store is still mounting, before anyone could subscribe; later
// subscribers receive the error immediately.
func (e *Emitter) recordError(err error) {
	if e.stopped {
		return
	}
	e.stopped = true
	e.err = err
}

// Error terminates the emitter and delivers err to every target. If no target
// handles errors the error is re-panicked so it is not lost.
func (e *Emitter) Error(err error) {
	if e.stopped {
		return
	}
	e.stopped = true
	e.err = err

	flushTargets, publishTargets := e.detachTargets()

	handled := false
	for _, p := range publishTargets {
		if handlesErrors(p.target) {
			handled = true
		}
		p.target.Error(err)
	}
	for _, f := range flushTargets {
		if handlesErrors(f.target) {
			handled = true
		}
		f.target.Error(err)
	}
	if !handled {
		panic(err)
	}
}

// Complete terminates the emitter. It must not be called mid-dispatch.
func (e *Emitter) Complete() {
	if e.stopped {
		return
	}
	if e.dispatcher().dispatching {
		panic(violation("emitter.Complete", ErrInTransaction, e.name))
	}
	e.stopped = true
	e.completed = true

	flushTargets, publishTargets := e.detachTargets()
	for _, p := range publishTargets {
		p.target.Complete()
	}
	for _, f := range flushTargets {
		f.target.Complete()
	}
}

// detachTargets closes every live subscription and releases the dispatcher's
// bookkeeping for this emitter.
func (e *Emitter) detachTargets() ([]*flushEntry, []*publishEntry) {
	var (
		flushTargets   []*flushEntry
		publishTargets []*publishEntry
	)
	for _, f := range e.flushTargets {
		if !f.sub.closed {
			f.sub.closed = true
			flushTargets = append(flushTargets, f)
		}
	}
	for _, p := range e.publishTargets {
		if !p.sub.closed {
			p.sub.closed = true
			publishTargets = append(publishTargets, p)
		}
	}
	e.flushTargets = nil
	e.publishTargets = nil
	e.dispatcher().disposeEmitter(e)
	return flushTargets, publishTargets
}
