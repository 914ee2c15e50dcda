package store

import "slices"

// merge joins the dispatchers of two trees that have become connected and
// returns the survivor. A dispatching dispatcher always survives; otherwise the
// one with more registered emitters does. Merging two dispatchers that are both
// mid-dispatch is not supported.
func merge(a, b *Dispatcher) *Dispatcher {
	a, b = a.resolve(), b.resolve()
	if a == b {
		return a
	}
	if a.dispatching && b.dispatching {
		panic(violation("dispatcher.merge", ErrMergeConflict, ""))
	}

	survivor, absorbed := a, b
	if b.dispatching || (!a.dispatching && len(b.registered) > len(a.registered)) {
		survivor, absorbed = b, a
	}
	survivor.absorb(absorbed)
	return survivor
}

func (d *Dispatcher) absorb(o *Dispatcher) {
	d.log.Debug("merge", "survivor", d.id, "absorbed", o.id, "emitters", len(o.registered))

	d.actionQueue = append(d.actionQueue, o.actionQueue...)
	for _, r := range o.reactionQueue {
		if !d.reactionSet.Contains(r) {
			d.reactionSet.Add(r)
			d.reactionQueue = append(d.reactionQueue, r)
		}
	}

	moved := slices.Clone(o.registered)
	for _, e := range moved {
		e.disp = d
		set := o.emitterPriorities[e]
		priorities := set.ToSlice()
		slices.Sort(priorities)
		for _, p := range priorities {
			for range o.priorityCounts[p][e] {
				d.registerPriority(e, p)
			}
		}
	}

	for _, item := range o.flushQueue {
		existing, ok := d.flushIndex[item.emitter]
		if !ok {
			d.flushIndex[item.emitter] = item
			d.flushQueue = append(d.flushQueue, item)
			continue
		}
		for _, p := range item.pending.ToSlice() {
			existing.pending.Add(p)
		}
	}

	d.postQueue = append(d.postQueue, o.postQueue...)
	d.disposeQueue = append(d.disposeQueue, o.disposeQueue...)

	o.actionQueue = nil
	o.reactionQueue = nil
	o.reactionSet.Clear()
	o.priorityQueue = nil
	clear(o.priorityCounts)
	clear(o.emitterPriorities)
	o.registered = nil
	o.flushQueue = nil
	clear(o.flushIndex)
	o.postQueue = nil
	o.disposeQueue = nil
	o.parent = d

	// Subscribers joining a running dispatch must see its start before any
	// value, and will see its end with everyone else.
	if d.dispatching {
		for _, e := range moved {
			e.transactionStart(d.txID)
		}
	}
}
