package store_test

import (
	"testing"

	"github.com/delaneyj/storeparty/store"
	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	counter := newCounter()
	other := &store.Component[int, int]{Name: "other"}
	h1, h2 := &store.Handle{}, &store.Handle{}
	shared := map[string]int{"a": 1}

	type point struct{ X, Y int }

	cases := []struct {
		name       string
		prev, next any
		want       store.Decision
	}{
		{"both absent", nil, nil, store.Reuse},
		{"added", nil, 1, store.Replace},
		{"removed", 1, nil, store.Replace},
		{"same number", 1, 1, store.Reuse},
		{"different number", 1, 2, store.Replace},
		{"same string", "a", "a", store.Reuse},
		{"different kinds", 1, "1", store.Replace},
		{"same map", shared, shared, store.Reuse},
		{"maps", map[string]int{"a": 1}, map[string]int{"b": 2}, store.Reuse},
		{"slices", []int{1}, []int{2, 3}, store.Reuse},
		{"structs", point{1, 2}, point{3, 4}, store.Reuse},
		{"map and slice", map[string]int{}, []int{}, store.Reuse},
		{"element props change", counter.Element(1), counter.Element(2), store.Reuse},
		{"element key change", counter.Element(1).WithKey("a"), counter.Element(1).WithKey("b"), store.Replace},
		{"element type change", counter.Element(1), other.Element(1), store.Replace},
		{"element and value", counter.Element(1), 1, store.Replace},
		{"value and element", 1, counter.Element(1), store.Replace},
		{"constants", store.Constant(1), store.Constant(2), store.Reuse},
		{"constant and component", store.Constant(1), counter.Element(1), store.Replace},
		{"same source", store.Subscribe(h1), store.Subscribe(h1), store.Reuse},
		{"other source", store.Subscribe(h1), store.Subscribe(h2), store.Replace},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, store.Reconcile(tc.prev, tc.next))
		})
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "reuse", store.Reuse.String())
	assert.Equal(t, "replace", store.Replace.String())
}

func TestTypeIdentity(t *testing.T) {
	counter := newCounter()
	assert.Equal(t, "counter", counter.TypeName())
	assert.Equal(t, newCounter().TypeID(), counter.TypeID())
	assert.NotEqual(t, store.ConstantType.TypeID(), store.SubscribeType.TypeID())
	assert.Equal(t, "constant", store.ConstantType.TypeName())

	el := counter.Element(3).WithKey("k")
	assert.Equal(t, "k", el.Key)
	assert.Equal(t, 3, el.Props)
}

func TestSubscriptionCancelIsIdempotent(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	calls := 0
	sub := e.SubscribePublishTarget(store.Observer{
		OnNext: func(any, store.DispatchFunc) { calls++ },
	})
	e.Publish(1)
	sub.Cancel()
	sub.Cancel()
	e.Publish(2)

	assert.True(t, sub.Closed())
	assert.Equal(t, 1, calls)
}
