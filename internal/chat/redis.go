package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sakif/chat-auth/internal/model"
)

const (
	// DefaultListKey is the Redis list holding the messages.
	DefaultListKey = "chat:messages"
	// DefaultChannel is the pub/sub channel carrying full lists.
	DefaultChannel = "chat:updates"

	pingTimeout = 2 * time.Second
)

// RedisOptions are the connection settings for NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings. Unlike a cache, the chat cannot run
// without its backend, so a failed ping is an error rather than a nil client.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("chat: pinging redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// entry is the stored form of a message. The ID is not stored; it is the
// element's index in the list.
type entry struct {
	User     string `json:"user"`
	Nickname string `json:"nickname"`
	Content  string `json:"content"`
}

// RedisStore keeps the list in a Redis list. RPUSH returns the new length
// atomically, so concurrent posters from any process get distinct IDs.
type RedisStore struct {
	rdb *redis.Client
	key string
}

func NewRedisStore(rdb *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultListKey
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Append(ctx context.Context, in model.PostMessage) (model.Message, error) {
	payload, err := json.Marshal(entry{User: in.User, Nickname: in.Nickname, Content: in.Content})
	if err != nil {
		return model.Message{}, fmt.Errorf("chat: encoding message: %w", err)
	}

	n, err := s.rdb.RPush(ctx, s.key, payload).Result()
	if err != nil {
		return model.Message{}, fmt.Errorf("chat: appending message: %w", err)
	}

	return model.Message{
		ID:       strconv.FormatInt(n-1, 10),
		User:     in.User,
		Nickname: in.Nickname,
		Content:  in.Content,
	}, nil
}

func (s *RedisStore) List(ctx context.Context) ([]model.Message, error) {
	raw, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: listing messages: %w", err)
	}

	out := make([]model.Message, 0, len(raw))
	for i, r := range raw {
		var e entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, fmt.Errorf("chat: decoding message %d: %w", i, err)
		}
		out = append(out, model.Message{
			ID:       strconv.Itoa(i),
			User:     e.User,
			Nickname: e.Nickname,
			Content:  e.Content,
		})
	}
	return out, nil
}

// RedisBroker publishes full lists on a Redis channel. Each Subscribe opens
// its own pub/sub connection.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

func NewRedisBroker(rdb *redis.Client, channel string, logger *slog.Logger) *RedisBroker {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBroker{
		rdb:     rdb,
		channel: channel,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, messages []model.Message) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("chat: encoding list: %w", err)
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("chat: publishing list: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan []model.Message, error) {
	select {
	case <-b.done:
		return nil, ErrBrokerClosed
	default:
	}

	ps := b.rdb.Subscribe(ctx, b.channel)
	// Wait for the subscription to be confirmed so a publish right after
	// Subscribe returns is not missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("chat: subscribing to %s: %w", b.channel, err)
	}

	sub := newSubscriber()
	go func() {
		defer sub.close()
		defer ps.Close()

		updates := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.done:
				return
			case m, ok := <-updates:
				if !ok {
					return
				}
				var list []model.Message
				if err := json.Unmarshal([]byte(m.Payload), &list); err != nil {
					b.logger.Warn("dropping undecodable chat update",
						slog.String("channel", m.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				sub.offer(list)
			}
		}
	}()

	return sub.ch, nil
}

// Close ends every subscription. The Redis client itself is owned by the
// caller and stays open.
func (b *RedisBroker) Close() error {
	b.closeOnce.Do(func() { close(b.done) })
	return nil
}
