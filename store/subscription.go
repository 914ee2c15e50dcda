package store

// Subscription is returned by every subscribe call.
type Subscription interface {
	Closed() bool
	// Cancel detaches the subscriber. Calling it more than once is a no-op.
	Cancel()
}

type subscription struct {
	closed   bool
	teardown func()
}

func newSubscription(teardown func()) *subscription {
	return &subscription{teardown: teardown}
}

func closedSubscription() *subscription {
	return &subscription{closed: true}
}

func (s *subscription) Closed() bool {
	return s.closed
}

func (s *subscription) Cancel() {
	if s.closed {
		return
	}
	s.closed = true
	teardown := s.teardown
	s.teardown = nil
	if teardown != nil {
		teardown()
	}
}
