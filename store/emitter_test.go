package store_test

import (
	"testing"

	"github.com/delaneyj/storeparty/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterBatchesWithinDispatch(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	rec := &recorder{}
	e.SubscribeFlushTarget(rec.observer(), store.DefaultPriority)

	d.Enqueue(func() {
		e.Publish(1)
		e.Publish(2)
	})
	assert.Equal(t, []string{"start 1", "next 2", "end 1"}, rec.events)

	e.Publish(3)
	assert.Equal(t, []string{"start 1", "next 2", "end 1", "start 2", "next 3", "end 2"}, rec.events)
}

func TestEmitterPublishTargetsAreSynchronous(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	rec := &recorder{}
	e.SubscribePublishTarget(rec.observer())

	d.Enqueue(func() {
		e.Publish(1)
		assert.Equal(t, []any{1}, rec.values)
		e.Publish(2)
	})
	assert.Equal(t, []string{"next 1", "next 2"}, rec.events)
}

func TestEmitterSubscribeMidDispatchStartsTransaction(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	rec := &recorder{}
	d.Enqueue(func() {
		e.SubscribeFlushTarget(rec.observer(), 1)
		assert.Equal(t, []string{"start 1"}, rec.events)
		e.Publish(4)
	})
	assert.Equal(t, []string{"start 1", "next 4", "end 1"}, rec.events)
}

func TestEmitterFlushDispatchReentersQueue(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	var tx []store.TransactionID
	e.SubscribeFlushTarget(store.Observer{
		OnNext: func(v any, dispatch store.DispatchFunc) {
			tx = append(tx, d.Transaction())
			if v.(int) < 3 {
				dispatch(func() { e.Publish(v.(int) + 1) })
			}
		},
	}, 0)

	e.Publish(1)
	assert.Equal(t, 3, e.Value())
	assert.Equal(t, []store.TransactionID{1, 1, 1}, tx)
}

func TestEmitterCompleteInsideDispatchPanics(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	err := recoverErr(func() {
		d.Enqueue(func() { e.Complete() })
	})
	assert.ErrorIs(t, err, store.ErrInTransaction)
	assert.False(t, e.Stopped())

	e.Complete()
	assert.True(t, e.Stopped())
}

func TestEmitterTerminalReplay(t *testing.T) {
	t.Run("error", func(t *testing.T) {
		e := store.NewEmitter(store.NewDispatcher(), "e", 0)
		first := &recorder{}
		e.SubscribePublishTarget(first.observer())
		e.Error(errBoom)

		late := &recorder{}
		sub := e.SubscribeFlushTarget(late.observer(), 0)
		assert.True(t, sub.Closed())
		require.Len(t, late.errs, 1)
		assert.ErrorIs(t, late.errs[0], errBoom)
		assert.ErrorIs(t, e.Err(), errBoom)
		assert.Equal(t, []string{"error"}, first.events)
	})

	t.Run("complete", func(t *testing.T) {
		e := store.NewEmitter(store.NewDispatcher(), "e", 0)
		e.Complete()
		e.Complete()

		late := &recorder{}
		sub := e.SubscribePublishTarget(late.observer())
		assert.True(t, sub.Closed())
		assert.Equal(t, []string{"complete"}, late.events)
	})

	t.Run("publish after stop", func(t *testing.T) {
		e := store.NewEmitter(store.NewDispatcher(), "e", 0)
		e.Complete()
		err := recoverErr(func() { e.Publish(1) })
		assert.ErrorIs(t, err, store.ErrDestroyed)
	})
}

func TestEmitterUnhandledError(t *testing.T) {
	e := store.NewEmitter(store.NewDispatcher(), "e", 0)
	e.SubscribeFlushTarget(store.Observer{}, 0)

	assert.PanicsWithError(t, "boom", func() {
		e.Error(errBoom)
	})
}

func TestEmitterCancelledTargetGetsNothing(t *testing.T) {
	d := store.NewDispatcher()
	e := store.NewEmitter(d, "e", 0)

	rec := &recorder{}
	sub := e.SubscribeFlushTarget(rec.observer(), 0)
	sub.Cancel()
	assert.True(t, sub.Closed())

	e.Publish(1)
	assert.Empty(t, rec.events)
	assert.Empty(t, d.Priorities())
}
