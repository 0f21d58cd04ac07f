package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

// echoChat answers with the input prefixed by "re:".
func echoChat(seen *[]string) ChatFunc {
	return func(ctx context.Context, line string) (string, error) {
		*seen = append(*seen, line)
		return "re:" + line, nil
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestREPL_EndOfInput(t *testing.T) {
	var out bytes.Buffer
	var seen []string

	r := New(strings.NewReader("first\nsecond\n"), &out, "I am your Hurricane Milton assistant.", echoChat(&seen))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v, want nil", err)
	}

	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Errorf("chat saw %v", seen)
	}

	got := out.String()
	for _, want := range []string{
		"I am your Hurricane Milton assistant.",
		"USER:",
		"ASSISTANT: re:first",
		"ASSISTANT: re:second",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Count(got, "I am your Hurricane Milton assistant.") != 1 {
		t.Error("greeting should be printed once")
	}
	if strings.Index(got, "re:first") > strings.Index(got, "re:second") {
		t.Error("answers out of order")
	}
}

func TestREPL_EmptyLinePassedThrough(t *testing.T) {
	var out bytes.Buffer
	var seen []string

	r := New(strings.NewReader("\n"), &out, "hi", echoChat(&seen))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if len(seen) != 1 || seen[0] != "" {
		t.Errorf("expected one empty utterance, got %q", seen)
	}
}

func TestREPL_NoInput(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	chat := func(ctx context.Context, line string) (string, error) {
		calls++
		return "", nil
	}

	if err := New(strings.NewReader(""), &out, "hello", chat).Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if calls != 0 {
		t.Errorf("chat called %d times on empty input", calls)
	}
	if !strings.Contains(out.String(), "hello") {
		t.Error("greeting should still be printed")
	}
}

func TestREPL_ChatErrorEndsLoop(t *testing.T) {
	var out bytes.Buffer
	calls := 0
	chat := func(ctx context.Context, line string) (string, error) {
		calls++
		return "", errors.New("backend unavailable")
	}

	err := New(strings.NewReader("a\nb\n"), &out, "hi", chat).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "backend unavailable") {
		t.Fatalf("expected backend error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("loop should stop after the first failure, got %d calls", calls)
	}
}

func TestREPL_BeforeTurnHook(t *testing.T) {
	var out bytes.Buffer
	var seen []string
	var events []string

	hook := func(ctx context.Context) { events = append(events, "hook") }
	chat := func(ctx context.Context, line string) (string, error) {
		events = append(events, "chat:"+line)
		return echoChat(&seen)(ctx, line)
	}

	r := New(strings.NewReader("x\ny\n"), &out, "hi", chat, WithBeforeTurn(hook))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}

	want := []string{"hook", "chat:x", "hook", "chat:y", "hook"}
	if strings.Join(events, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestREPL_ClosesInput(t *testing.T) {
	in := &closeTracker{Reader: strings.NewReader("q\n")}
	var seen []string

	if err := New(in, io.Discard, "hi", echoChat(&seen)).Run(context.Background()); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	if !in.closed {
		t.Error("input should be closed on exit")
	}
}

func TestREPL_CancelWhileWaiting(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var seen []string

	go func() {
		done <- New(pr, io.Discard, "hi", echoChat(&seen)).Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("cancellation should exit cleanly, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestREPL_CancelDuringChat(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chat := func(ctx context.Context, line string) (string, error) {
		cancel()
		return "", ctx.Err()
	}

	if err := New(strings.NewReader("q\n"), io.Discard, "hi", chat).Run(ctx); err != nil {
		t.Errorf("cancelled turn should exit cleanly, got %v", err)
	}
}
