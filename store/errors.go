package store

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Sentinel errors for protocol violations. A *ProtocolError matches its sentinel
// with errors.Is.
var (
	ErrDestroyed        = errors.New("store is destroyed")
	ErrFailed           = errors.New("store has failed")
	ErrInTransaction    = errors.New("in transaction")
	ErrNestedDispatch   = errors.New("nested dispatch")
	ErrLoopGuard        = errors.New("dispatch loop guard exceeded")
	ErrForeignGoroutine = errors.New("dispatcher used from a foreign goroutine")
	ErrMergeConflict    = errors.New("cannot merge two dispatching dispatchers")
	ErrRenderMutation   = errors.New("state mutated during render")
	ErrNegativeLevel    = errors.New("transaction level below zero")
	ErrInvalidElement   = errors.New("invalid element")
)

// ProtocolError reports a programmer error. The engine panics with it rather
// than returning it; it is never delivered through a store's error channel.
type ProtocolError struct {
	// Op is the operation that was attempted, e.g. "store.setState".
	Op string
	// Err is one of the sentinel errors above.
	Err error
	// Store names the store involved, if any.
	Store string
}

func (e *ProtocolError) Error() string {
	if e.Store != "" {
		return fmt.Sprintf("%s [%s]: %v", e.Op, e.Store, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func violation(op string, err error, store string) *ProtocolError {
	return &ProtocolError{Op: op, Err: err, Store: store}
}

// HookPanicError wraps a panic recovered while running a component hook.
type HookPanicError struct {
	Store      string
	Hook       string
	Recovered  any
	StackTrace string
}

func (e *HookPanicError) Error() string {
	return fmt.Sprintf("panic in %s.%s: %v", e.Store, e.Hook, e.Recovered)
}

// Unwrap exposes the recovered value when it was itself an error.
func (e *HookPanicError) Unwrap() error {
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}

// guardHook runs fn, converting a panic into a *HookPanicError. Protocol
// errors are re-panicked untouched.
func guardHook(store, hook string, fn func() error) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if pe, ok := r.(*ProtocolError); ok {
			panic(pe)
		}
		err = &HookPanicError{
			Store:      store,
			Hook:       hook,
			Recovered:  r,
			StackTrace: string(debug.Stack()),
		}
	}()
	return fn()
}
