package chat

import (
	"context"
	"strconv"
	"sync"

	"github.com/sakif/chat-auth/internal/model"
)

// MemoryStore keeps the list in process memory. It is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []model.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: []model.Message{}}
}

func (s *MemoryStore) Append(_ context.Context, in model.PostMessage) (model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := model.Message{
		ID:       strconv.Itoa(len(s.messages)),
		User:     in.User,
		Nickname: in.Nickname,
		Content:  in.Content,
	}
	s.messages = append(s.messages, msg)
	return msg, nil
}

// List returns a copy, so callers may hold it while others append.
func (s *MemoryStore) List(_ context.Context) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// MemoryBroker delivers lists to subscribers in this process.
type MemoryBroker struct {
	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*subscriber]struct{})}
}

func (b *MemoryBroker) Publish(_ context.Context, messages []model.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs {
		sub.offer(messages)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context) (<-chan []model.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := newSubscriber()
	b.subs[sub] = struct{}{}

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, sub)
		b.mu.Unlock()
		sub.close()
	}()

	return sub.ch, nil
}

// Close closes every subscriber channel. Later Subscribe calls fail.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		sub.close()
		delete(b.subs, sub)
	}
	return nil
}
