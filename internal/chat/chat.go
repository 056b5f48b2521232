// Package chat holds the message list and the fan-out of list updates to
// live subscribers.
//
// TWO PIECES, TWO BACKENDS:
//
//	Store  → the append-only message list (memory slice or a Redis list)
//	Broker → pushes the full list to every subscriber after a post
//	         (in-process channels or Redis PUBLISH/SUBSCRIBE)
//
// The memory pair is enough for a single process. The Redis pair lets
// several server processes share one chat: every process reads the same
// list, and a post on any of them reaches subscribers on all of them.
//
// Message IDs are positions. The first message is "0", the next "1", and so
// on. Nothing is ever removed, so an ID never changes.
package chat

import (
	"context"
	"errors"

	"github.com/sakif/chat-auth/internal/model"
)

// ErrBrokerClosed is returned by Subscribe after Close.
var ErrBrokerClosed = errors.New("chat: broker closed")

// Store is the append-only message list.
type Store interface {
	// Append adds a message and returns it with its assigned ID.
	Append(ctx context.Context, in model.PostMessage) (model.Message, error)
	// List returns every message in append order.
	List(ctx context.Context) ([]model.Message, error)
}

// Broker fans full message lists out to subscribers.
type Broker interface {
	Publish(ctx context.Context, messages []model.Message) error
	// Subscribe returns a channel of lists. The channel is closed when ctx
	// is done or the broker is closed. A slow reader only ever sees the
	// latest list, and never a list shorter than one it already received.
	Subscribe(ctx context.Context) (<-chan []model.Message, error)
	Close() error
}
