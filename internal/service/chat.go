package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/chat-auth/internal/apperror"
	"github.com/sakif/chat-auth/internal/chat"
	"github.com/sakif/chat-auth/internal/model"
)

// messageRule is one check on one PostMessage field. Every rule runs, so a
// field can report several failures at once (too long AND not an email).
type messageRule struct {
	field   string
	value   func(model.PostMessage) string
	tag     string
	message string
}

var messageRules = []messageRule{
	{"user", func(m model.PostMessage) string { return m.User }, "email", "Username must be a valid email address"},
	{"user", func(m model.PostMessage) string { return m.User }, "max=50", "Username must be at most 50 characters"},
	{"nickname", func(m model.PostMessage) string { return m.Nickname }, "min=2", "Nickname must be at least 2 characters"},
	{"nickname", func(m model.PostMessage) string { return m.Nickname }, "max=30", "Nickname must be at most 30 characters"},
	{"content", func(m model.PostMessage) string { return m.Content }, "min=1", "Message cannot be empty"},
	{"content", func(m model.PostMessage) string { return m.Content }, "max=1000", "Message must be at most 1000 characters"},
}

// ChatService validates posts, stores them and fans the list out.
type ChatService struct {
	store    chat.Store
	broker   chat.Broker
	validate *validator.Validate
	logger   *slog.Logger
}

func NewChatService(store chat.Store, broker chat.Broker, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:    store,
		broker:   broker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// List returns every message in post order.
func (s *ChatService) List(ctx context.Context) ([]model.Message, error) {
	messages, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/chat: listing messages: %w", err)
	}
	return messages, nil
}

// Post validates and stores a message, then publishes the full list to
// every subscriber. It returns the new message's ID.
//
// A publish failure is logged, not returned: the message is stored and
// will be in the next list anyone receives.
func (s *ChatService) Post(ctx context.Context, in model.PostMessage) (string, error) {
	if err := s.check(in); err != nil {
		return "", err
	}

	msg, err := s.store.Append(ctx, in)
	if err != nil {
		return "", fmt.Errorf("service/chat: storing message: %w", err)
	}

	list, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("failed to load messages for publish",
			slog.String("id", msg.ID),
			slog.String("error", err.Error()),
		)
		return msg.ID, nil
	}
	if err := s.broker.Publish(ctx, list); err != nil {
		s.logger.Error("failed to publish messages",
			slog.String("id", msg.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Debug("message posted",
		slog.String("id", msg.ID),
		slog.String("nickname", msg.Nickname),
	)
	return msg.ID, nil
}

// Subscribe returns a channel that yields the current list right away and
// then the full list after every post. Lists only ever grow on the channel.
// It is closed when ctx is done.
func (s *ChatService) Subscribe(ctx context.Context) (<-chan []model.Message, error) {
	subCtx, cancel := context.WithCancel(ctx)

	// Subscribe before taking the snapshot so a post landing in between is
	// delivered rather than lost.
	updates, err := s.broker.Subscribe(subCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("service/chat: subscribing: %w", err)
	}

	snapshot, err := s.store.List(subCtx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("service/chat: loading snapshot: %w", err)
	}

	out := make(chan []model.Message)
	go func() {
		defer close(out)
		defer cancel()

		send := func(list []model.Message) bool {
			select {
			case out <- list:
				return true
			case <-subCtx.Done():
				return false
			}
		}

		if !send(snapshot) {
			return
		}
		last := len(snapshot)
		for list := range updates {
			if len(list) <= last {
				continue
			}
			last = len(list)
			if !send(list) {
				return
			}
		}
	}()

	return out, nil
}

// check runs every rule and joins the failures as
// "Validation failed: field: message; field: message".
func (s *ChatService) check(in model.PostMessage) error {
	fields := apperror.NewFields("user", "nickname", "content")
	var issues []string

	for _, r := range messageRules {
		if err := s.validate.Var(r.value(in), r.tag); err != nil {
			fields.Add(r.field, r.message)
			issues = append(issues, r.field+": "+r.message)
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return apperror.Validation("Validation failed: "+strings.Join(issues, "; "), fields)
}
