package controller

import (
	"sync"

	"ytsummarizer/internal/domain"
)

// Subscription delivers published states on C in order. Publishing never
// blocks on a slow reader: states queue up until they are received.
// C is closed after Close.
type Subscription struct {
	C <-chan domain.RequestState

	owner     *Controller
	out       chan domain.RequestState
	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	queue []domain.RequestState
}

func newSubscription(owner *Controller) *Subscription {
	out := make(chan domain.RequestState)

	return &Subscription{
		C:      out,
		owner:  owner,
		out:    out,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.owner.unsubscribe(s)
		close(s.done)
	})
}

func (s *Subscription) push(state domain.RequestState) {
	s.mu.Lock()
	s.queue = append(s.queue, state)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Subscription) pop() (domain.RequestState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return domain.RequestState{}, false
	}

	state := s.queue[0]
	s.queue[0] = domain.RequestState{}
	s.queue = s.queue[1:]

	return state, true
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
		}

		for {
			state, ok := s.pop()
			if !ok {
				break
			}

			select {
			case s.out <- state:
			case <-s.done:
				return
			}
		}
	}
}
