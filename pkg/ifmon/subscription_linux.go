package ifmon

import "sync"

// Subscription delivers raw rtnetlink messages to a consumer. Updates closes
// when the subscription ends; Errors carries at most one transport failure.
type Subscription struct {
	Updates <-chan Message
	Errors  <-chan error

	cancel    func()
	closeOnce sync.Once
}

// Close terminates the subscription and releases its socket. It is safe to
// call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}

	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}
