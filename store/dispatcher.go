package store

import (
	"log/slog"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/petermattis/goid"
)

// DefaultLoopSlack bounds the dispatch and flush loops. A store whose flush
// always re-arms itself trips the guard instead of hanging.
const DefaultLoopSlack = 1000

type reactor interface {
	react()
}

// postOwner is implemented by post owners whose children's post work must run
// before their own.
type postOwner interface {
	postChildren() []any
}

type postEntry struct {
	owner any
	fn    func()
}

type flushItem struct {
	emitter *Emitter
	pending mapset.Set[Priority]
}

// Dispatcher is the single scheduling authority for one tree of stores, or for
// several trees once they have been merged.
//
// One dispatch cycle runs queued actions (each followed by the reactions it
// caused), flushes emitters by ascending priority, runs post work deepest
// first, and repeats until nothing is left to do.
type Dispatcher struct {
	id  string
	log *slog.Logger

	// parent is set once this dispatcher has been absorbed by a merge.
	parent *Dispatcher

	dispatching bool
	gid         int64
	txID        TransactionID
	seq         TransactionID
	loopSlack   int

	actionQueue   []func()
	reactionQueue []reactor
	reactionSet   mapset.Set[reactor]

	priorityQueue     []Priority
	priorityCounts    map[Priority]map[*Emitter]int
	emitterPriorities map[*Emitter]mapset.Set[Priority]
	registered        []*Emitter

	flushQueue []*flushItem
	flushIndex map[*Emitter]*flushItem

	postQueue    []postEntry
	disposeQueue []func()
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dispatch tracing.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithLoopSlack sets the loop guard bound.
//
// Default: 1000 iterations (DefaultLoopSlack).
func WithLoopSlack(n int) Option {
	return func(d *Dispatcher) {
		d.loopSlack = n
	}
}

// WithID overrides the generated dispatcher id.
func WithID(id string) Option {
	return func(d *Dispatcher) {
		d.id = id
	}
}

// NewDispatcher creates an idle dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		id:                uuid.NewString(),
		log:               slog.New(slog.DiscardHandler),
		loopSlack:         DefaultLoopSlack,
		reactionSet:       mapset.NewThreadUnsafeSet[reactor](),
		priorityCounts:    make(map[Priority]map[*Emitter]int),
		emitterPriorities: make(map[*Emitter]mapset.Set[Priority]),
		flushIndex:        make(map[*Emitter]*flushItem),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// resolve returns the surviving dispatcher this one forwards to.
func (d *Dispatcher) resolve() *Dispatcher {
	root := d
	for root.parent != nil {
		root = root.parent
	}
	for d != root {
		next := d.parent
		d.parent = root
		d = next
	}
	return root
}

// ID returns the id of the dispatcher that currently schedules for d.
func (d *Dispatcher) ID() string {
	return d.resolve().id
}

// Dispatching reports whether a dispatch cycle is running.
func (d *Dispatcher) Dispatching() bool {
	return d.resolve().dispatching
}

// Transaction returns the id of the running dispatch, 0 when idle.
func (d *Dispatcher) Transaction() TransactionID {
	return d.resolve().txID
}

// Priorities returns the sorted set of priorities that have subscribers.
func (d *Dispatcher) Priorities() []Priority {
	return slices.Clone(d.resolve().priorityQueue)
}

// Enqueue queues action. When idle it starts a dispatch and returns once the
// dispatch has settled; mid-dispatch the action joins the running cycle.
func (d *Dispatcher) Enqueue(action func()) {
	if root := d.resolve(); root != d {
		root.Enqueue(action)
		return
	}
	if d.dispatching {
		if goid.Get() != d.gid {
			panic(violation("dispatcher.Enqueue", ErrForeignGoroutine, ""))
		}
		d.actionQueue = append(d.actionQueue, action)
		return
	}
	d.actionQueue = append(d.actionQueue, action)
	d.dispatch()
}

func (d *Dispatcher) dispatch() {
	if d.dispatching {
		panic(violation("dispatcher.dispatch", ErrNestedDispatch, ""))
	}
	d.dispatching = true
	d.gid = goid.Get()
	d.seq++
	d.txID = d.seq
	id := d.txID
	d.log.Debug("dispatch start", "dispatcher", d.id, "tx", id)

	settled := false
	defer func() {
		if !settled {
			d.abort()
		}
	}()

	for _, e := range slices.Clone(d.registered) {
		e.transactionStart(id)
	}
	d.cycle()

	// A dispatching dispatcher always survives a merge, so d is still the root.
	for _, e := range slices.Clone(d.registered) {
		e.transactionEnd(id)
	}
	d.dispatching = false
	d.txID = 0
	settled = true
	d.log.Debug("dispatch end", "dispatcher", d.id, "tx", id)

	disposals := d.disposeQueue
	d.disposeQueue = nil
	for _, dispose := range disposals {
		dispose()
	}

	if len(d.actionQueue) > 0 || len(d.reactionQueue) > 0 || len(d.flushQueue) > 0 {
		d.dispatch()
	}
}

// abort resets the dispatcher after a panic escaped a dispatch cycle. Open
// transactions are closed first so subscribers stay balanced.
func (d *Dispatcher) abort() {
	d.log.Error("dispatch aborted", "dispatcher", d.id, "tx", d.txID)
	for _, e := range slices.Clone(d.registered) {
		e.transactionEnd(d.txID)
	}
	d.dispatching = false
	d.txID = 0
	d.actionQueue = nil
	d.reactionQueue = nil
	d.reactionSet.Clear()
	d.flushQueue = nil
	clear(d.flushIndex)
	d.postQueue = nil
	d.disposeQueue = nil
}

func (d *Dispatcher) idle() bool {
	return len(d.actionQueue) == 0 &&
		len(d.reactionQueue) == 0 &&
		len(d.flushQueue) == 0 &&
		len(d.postQueue) == 0
}

func (d *Dispatcher) cycle() {
	for i := 0; ; i++ {
		if i > d.loopSlack {
			panic(violation("dispatcher.cycle", ErrLoopGuard, ""))
		}
		d.act()
		d.flush()
		d.post()
		if d.idle() {
			return
		}
	}
}

// act drains the action queue, running the reactions caused by each action
// before the next action starts.
func (d *Dispatcher) act() {
	d.runReactions()
	for len(d.actionQueue) > 0 {
		action := d.actionQueue[0]
		d.actionQueue[0] = nil
		d.actionQueue = d.actionQueue[1:]
		action()
		d.runReactions()
	}
}

func (d *Dispatcher) enqueueReaction(r reactor) {
	if d.reactionSet.Contains(r) {
		return
	}
	d.reactionSet.Add(r)
	d.reactionQueue = append(d.reactionQueue, r)
	if !d.dispatching {
		d.dispatch()
	}
}

func (d *Dispatcher) cancelReaction(r reactor) {
	if !d.reactionSet.Contains(r) {
		return
	}
	d.reactionSet.Remove(r)
	d.reactionQueue = slices.DeleteFunc(d.reactionQueue, func(q reactor) bool {
		return q == r
	})
}

// moveReactionToFront moves r to the head of the reaction queue. It reports
// false if r has no pending reaction.
func (d *Dispatcher) moveReactionToFront(r reactor) bool {
	if !d.reactionSet.Contains(r) {
		return false
	}
	idx := slices.Index(d.reactionQueue, r)
	if idx > 0 {
		d.reactionQueue = slices.Delete(d.reactionQueue, idx, idx+1)
		d.reactionQueue = slices.Insert(d.reactionQueue, 0, r)
	}
	return true
}

func (d *Dispatcher) runReactions() {
	for len(d.reactionQueue) > 0 {
		d.runFrontReaction()
	}
}

func (d *Dispatcher) runFrontReaction() {
	r := d.reactionQueue[0]
	d.reactionQueue[0] = nil
	d.reactionQueue = d.reactionQueue[1:]
	d.reactionSet.Remove(r)
	r.react()
}

// settle runs r's pending reaction now, ahead of everything queued before it.
func (d *Dispatcher) settle(r reactor) {
	if d.moveReactionToFront(r) {
		d.runFrontReaction()
	}
}

func (d *Dispatcher) registerPriority(e *Emitter, p Priority) {
	counts := d.priorityCounts[p]
	if counts == nil {
		counts = make(map[*Emitter]int)
		d.priorityCounts[p] = counts
		d.priorityQueue = insertPriority(d.priorityQueue, p)
	}
	counts[e]++

	set, ok := d.emitterPriorities[e]
	if !ok {
		set = mapset.NewThreadUnsafeSet[Priority]()
		d.emitterPriorities[e] = set
		d.registered = append(d.registered, e)
	}
	set.Add(p)
}

func (d *Dispatcher) deregisterPriority(e *Emitter, p Priority) {
	counts := d.priorityCounts[p]
	if counts == nil {
		return
	}
	counts[e]--
	if counts[e] <= 0 {
		delete(counts, e)
		if set, ok := d.emitterPriorities[e]; ok {
			set.Remove(p)
			if set.Cardinality() == 0 {
				d.forgetEmitter(e)
			}
		}
		if item, ok := d.flushIndex[e]; ok {
			item.pending.Remove(p)
			if item.pending.Cardinality() == 0 {
				d.dropFlush(e)
			}
		}
	}
	if len(counts) == 0 {
		delete(d.priorityCounts, p)
		d.priorityQueue = removePriority(d.priorityQueue, p)
	}
}

func (d *Dispatcher) forgetEmitter(e *Emitter) {
	delete(d.emitterPriorities, e)
	d.registered = slices.DeleteFunc(d.registered, func(r *Emitter) bool {
		return r == e
	})
}

// registerPublish arms a flush of e for every priority it has subscribers at.
func (d *Dispatcher) registerPublish(e *Emitter) {
	set, ok := d.emitterPriorities[e]
	if !ok || set.Cardinality() == 0 {
		return
	}
	item, ok := d.flushIndex[e]
	if !ok {
		item = &flushItem{
			emitter: e,
			pending: mapset.NewThreadUnsafeSet[Priority](),
		}
		d.flushIndex[e] = item
		d.flushQueue = append(d.flushQueue, item)
	}
	for _, p := range set.ToSlice() {
		item.pending.Add(p)
	}
	if !d.dispatching {
		d.dispatch()
	}
}

func (d *Dispatcher) dropFlush(e *Emitter) {
	if _, ok := d.flushIndex[e]; !ok {
		return
	}
	delete(d.flushIndex, e)
	d.flushQueue = slices.DeleteFunc(d.flushQueue, func(item *flushItem) bool {
		return item.emitter == e
	})
}

// disposeEmitter releases every registration held for e.
func (d *Dispatcher) disposeEmitter(e *Emitter) {
	if set, ok := d.emitterPriorities[e]; ok {
		for _, p := range set.ToSlice() {
			counts := d.priorityCounts[p]
			delete(counts, e)
			if len(counts) == 0 {
				delete(d.priorityCounts, p)
				d.priorityQueue = removePriority(d.priorityQueue, p)
			}
		}
		d.forgetEmitter(e)
	}
	d.dropFlush(e)
}

// nextPriority returns the lowest priority that has a pending flush.
func (d *Dispatcher) nextPriority() (Priority, bool) {
	for _, p := range d.priorityQueue {
		for _, item := range d.flushQueue {
			if item.pending.Contains(p) {
				return p, true
			}
		}
	}
	return 0, false
}

func (d *Dispatcher) flush() {
	for i := 0; len(d.flushQueue) > 0; i++ {
		if i > d.loopSlack {
			panic(violation("dispatcher.flush", ErrLoopGuard, ""))
		}
		p, ok := d.nextPriority()
		if !ok {
			d.flushQueue = nil
			clear(d.flushIndex)
			return
		}

		var batch []*Emitter
		for _, item := range d.flushQueue {
			if item.pending.Contains(p) {
				item.pending.Remove(p)
				batch = append(batch, item.emitter)
			}
		}
		d.flushQueue = slices.DeleteFunc(d.flushQueue, func(item *flushItem) bool {
			if item.pending.Cardinality() == 0 {
				delete(d.flushIndex, item.emitter)
				return true
			}
			return false
		})

		for _, e := range batch {
			e.flush(p)
		}
		d.act()
	}
}

func (d *Dispatcher) enqueuePost(owner any, fn func()) {
	d.postQueue = append(d.postQueue, postEntry{owner: owner, fn: fn})
}

// movePostToFront moves owner's entries to the end of the post queue, which is
// where the posting pass takes work from, keeping their relative order. It
// returns the number of entries moved.
func (d *Dispatcher) movePostToFront(owner any) int {
	var moved []postEntry
	d.postQueue = slices.DeleteFunc(d.postQueue, func(p postEntry) bool {
		if p.owner == owner {
			moved = append(moved, p)
			return true
		}
		return false
	})
	d.postQueue = append(d.postQueue, moved...)
	return len(moved)
}

// post processes owners last-registered first. Children's post work runs
// before their parent's.
func (d *Dispatcher) post() {
	for len(d.postQueue) > 0 {
		d.runPostsFor(d.postQueue[len(d.postQueue)-1].owner)
	}
}

func (d *Dispatcher) runPostsFor(owner any) {
	if o, ok := owner.(postOwner); ok {
		for _, c := range o.postChildren() {
			d.runPostsFor(c)
		}
	}
	n := d.movePostToFront(owner)
	if n == 0 {
		return
	}
	entries := slices.Clone(d.postQueue[len(d.postQueue)-n:])
	d.postQueue = d.postQueue[:len(d.postQueue)-n]
	for _, entry := range entries {
		entry.fn()
		d.runReactions()
	}
}

// deferDispose runs fn once the current dispatch has finished.
func (d *Dispatcher) deferDispose(fn func()) {
	d.disposeQueue = append(d.disposeQueue, fn)
}
