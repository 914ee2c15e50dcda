package store

// TransactionID identifies one dispatch cycle of a Dispatcher.
type TransactionID uint64

// DispatchFunc queues an action on the dispatcher that delivered a value.
type DispatchFunc func(action func())

// Target is the sink a subscriber implements to receive events from an Emitter.
type Target interface {
	Start(sub Subscription)
	Next(value any, dispatch DispatchFunc)
	Error(err error)
	Complete()
	TransactionStart(id TransactionID)
	TransactionEnd(id TransactionID)
}

// Observer adapts a set of optional callbacks to the Target interface.
type Observer struct {
	OnStart            func(sub Subscription)
	OnNext             func(value any, dispatch DispatchFunc)
	OnError            func(err error)
	OnComplete         func()
	OnTransactionStart func(id TransactionID)
	OnTransactionEnd   func(id TransactionID)
}

var _ Target = Observer{}

func (o Observer) Start(sub Subscription) {
	if o.OnStart != nil {
		o.OnStart(sub)
	}
}

func (o Observer) Next(value any, dispatch DispatchFunc) {
	if o.OnNext != nil {
		o.OnNext(value, dispatch)
	}
}

func (o Observer) Error(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}

func (o Observer) Complete() {
	if o.OnComplete != nil {
		o.OnComplete()
	}
}

func (o Observer) TransactionStart(id TransactionID) {
	if o.OnTransactionStart != nil {
		o.OnTransactionStart(id)
	}
}

func (o Observer) TransactionEnd(id TransactionID) {
	if o.OnTransactionEnd != nil {
		o.OnTransactionEnd(id)
	}
}

// HandlesErrors reports whether the observer registered an error callback.
func (o Observer) HandlesErrors() bool {
	return o.OnError != nil
}

// handlesErrors treats any Target as an error handler unless it says otherwise.
func handlesErrors(t Target) bool {
	if h, ok := t.(interface{ HandlesErrors() bool }); ok {
		return h.HandlesErrors()
	}
	return true
}
