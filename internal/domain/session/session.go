// Package session holds the conversation memory of one chat session.
// A Session is created explicitly at startup and handed to the chat
// usecase on every call; there is no package-level state.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

// DefaultMaxMessages is the default retention: the last 50 exchanges.
const DefaultMaxMessages = 100

// ErrOddCapacity is returned when a capacity cannot hold whole exchanges.
var ErrOddCapacity = errors.New("max messages must be an even number")

// Session is an append-only, ordered record of conversation turns.
// MaxMessages bounds retention; when exceeded the oldest user/assistant
// pair is evicted. Zero means unbounded.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.RWMutex
	maxMessages int
	messages    []entities.ChatMessage
	evicted     int
}

// New creates a session with a fresh ID.
func New(maxMessages int) (*Session, error) {
	if maxMessages < 0 {
		return nil, errors.New("max messages cannot be negative")
	}
	if maxMessages%2 != 0 {
		return nil, ErrOddCapacity
	}
	return &Session{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		maxMessages: maxMessages,
	}, nil
}

// AppendExchange records one user turn followed by the assistant reply.
func (s *Session) AppendExchange(userMessage, assistantMessage string) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = append(s.messages,
		entities.ChatMessage{Role: entities.RoleUser, Content: userMessage, CreatedAt: now},
		entities.ChatMessage{Role: entities.RoleAssistant, Content: assistantMessage, CreatedAt: now},
	)
	if s.maxMessages > 0 && len(s.messages) > s.maxMessages {
		drop := len(s.messages) - s.maxMessages
		s.messages = append([]entities.ChatMessage(nil), s.messages[drop:]...)
		s.evicted += drop
	}
}

// Messages returns a copy of the retained turns in chronological order.
func (s *Session) Messages() []entities.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Len returns the number of retained turns.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Evicted returns how many turns the capacity policy has dropped so far.
func (s *Session) Evicted() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evicted
}

// MaxMessages returns the retention limit, zero when unbounded.
func (s *Session) MaxMessages() int {
	return s.maxMessages
}
