package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/0xcro3dile/docchat-go/internal/domain/entities"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		wantErr bool
	}{
		{"unbounded", 0, false},
		{"default", DefaultMaxMessages, false},
		{"odd capacity", 3, true},
		{"negative capacity", -2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.max)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New(%d) error = %v, wantErr %v", tt.max, err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if s.ID == "" {
				t.Error("ID should be generated")
			}
			if s.CreatedAt.IsZero() {
				t.Error("CreatedAt should be set")
			}
		})
	}
}

func TestNew_OddCapacityError(t *testing.T) {
	_, err := New(5)
	if !errors.Is(err, ErrOddCapacity) {
		t.Errorf("error = %v, want ErrOddCapacity", err)
	}
}

func TestSession_AppendExchange_Order(t *testing.T) {
	s, _ := New(0)

	const n = 5
	for i := 0; i < n; i++ {
		s.AppendExchange(fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	msgs := s.Messages()
	if len(msgs) != 2*n {
		t.Fatalf("Len = %d, want %d", len(msgs), 2*n)
	}
	for i := 0; i < n; i++ {
		u, a := msgs[2*i], msgs[2*i+1]
		if u.Role != entities.RoleUser || u.Content != fmt.Sprintf("q%d", i) {
			t.Errorf("msgs[%d] = %+v, want user q%d", 2*i, u, i)
		}
		if a.Role != entities.RoleAssistant || a.Content != fmt.Sprintf("a%d", i) {
			t.Errorf("msgs[%d] = %+v, want assistant a%d", 2*i+1, a, i)
		}
	}
}

func TestSession_CapacityEvictsOldestPair(t *testing.T) {
	s, _ := New(4)

	s.AppendExchange("q0", "a0")
	s.AppendExchange("q1", "a1")
	s.AppendExchange("q2", "a2")

	msgs := s.Messages()
	if len(msgs) != 4 {
		t.Fatalf("Len = %d, want 4", len(msgs))
	}
	if msgs[0].Content != "q1" || msgs[0].Role != entities.RoleUser {
		t.Errorf("oldest retained = %+v, want user q1", msgs[0])
	}
	if s.Evicted() != 2 {
		t.Errorf("Evicted = %d, want 2", s.Evicted())
	}
}

func TestSession_MessagesReturnsCopy(t *testing.T) {
	s, _ := New(0)
	s.AppendExchange("q", "a")

	msgs := s.Messages()
	msgs[0].Content = "mutated"

	if s.Messages()[0].Content != "q" {
		t.Error("Messages should return a copy")
	}
}

func TestSession_EmptyInputKept(t *testing.T) {
	s, _ := New(0)
	s.AppendExchange("", "please ask a question")

	if s.Len() != 2 {
		t.Errorf("Len = %d, want 2", s.Len())
	}
	if s.Messages()[0].Content != "" {
		t.Error("empty user input should be stored unchanged")
	}
}
