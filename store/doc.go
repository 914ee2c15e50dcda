// Package store implements a tree of reactive stores scheduled by a
// Dispatcher.
//
// A store is an instance of a Component. It holds props and state, declares
// its children with Subs and publishes an output derived from both. Changes
// made inside one dispatch are batched: every store renders at most once per
// change, children before parents, and external subscribers see one value per
// dispatch, flushed in ascending Priority order.
//
//	counter := &store.Component[int, int]{
//		Name:         "counter",
//		InitialState: func(start int) int { return start },
//		Publish: func(self *store.Self[int, int]) (any, error) {
//			return self.State(), nil
//		},
//	}
//	h := store.Instantiate(store.NewDispatcher(), counter.Element(0))
package store
