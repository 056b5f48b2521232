package chat

import (
	"sync"

	"github.com/sakif/chat-auth/internal/model"
)

// subscriber is a one-slot mailbox. offer replaces whatever the reader has
// not picked up yet, so posters never wait on a slow reader.
type subscriber struct {
	mu     sync.Mutex
	ch     chan []model.Message
	last   int // length of the last list offered
	closed bool
}

func newSubscriber() *subscriber {
	return &subscriber{ch: make(chan []model.Message, 1)}
}

// offer queues list unless it is not longer than the last one queued.
// Lists can arrive out of order when two posts publish concurrently.
func (s *subscriber) offer(list []model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(list) <= s.last {
		return
	}
	s.last = len(list)

	select {
	case <-s.ch:
	default:
	}
	s.ch <- list
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
