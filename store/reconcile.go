package store

import "reflect"

// Decision is the outcome of comparing a previous child description with the
// next one.
type Decision uint8

const (
	// Reuse keeps the existing child; only its props or slot are updated.
	Reuse Decision = iota
	// Replace destroys the existing child and creates the next one.
	Replace
)

func (d Decision) String() string {
	if d == Reuse {
		return "reuse"
	}
	return "replace"
}

// Reconcile decides whether the child described by prev survives being
// re-declared as next. nil means absent. It is an identity test, never a value
// equality test, and has no side effects.
func Reconcile(prev, next any) Decision {
	if prev == nil && next == nil {
		return Reuse
	}
	if prev == nil || next == nil {
		return Replace
	}

	pe, prevIsElement := prev.(Element)
	ne, nextIsElement := next.(Element)
	switch {
	case prevIsElement && nextIsElement:
		return reconcileElements(pe, ne)
	case prevIsElement || nextIsElement:
		return Replace
	}

	if identical(prev, next) {
		return Reuse
	}
	if isAggregate(prev) && isAggregate(next) {
		return Reuse
	}
	return Replace
}

func reconcileElements(prev, next Element) Decision {
	if prev.Type != next.Type || prev.Key != next.Key {
		return Replace
	}
	if next.Type == SubscribeType {
		ph, _ := prev.Props.(*Handle)
		nh, _ := next.Props.(*Handle)
		if ph != nh {
			return Replace
		}
	}
	return Reuse
}

func isAggregate(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	}
	return false
}

// identical reports reference identity for reference kinds and == for
// comparable values.
func identical(a, b any) (same bool) {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return false
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	if !va.Type().Comparable() {
		return false
	}
	// Structs holding interfaces can still panic on ==.
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
