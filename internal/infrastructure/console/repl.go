// Package console provides the line-oriented interactive loop.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// ChatFunc answers one line of user input.
type ChatFunc func(ctx context.Context, line string) (string, error)

// HookFunc runs on the loop goroutine before each prompt.
type HookFunc func(ctx context.Context)

// maxLineSize bounds a single input line.
const maxLineSize = 1024 * 1024

// REPL reads one utterance per line and prints each answer.
type REPL struct {
	in         io.Reader
	out        io.Writer
	greeting   string
	chat       ChatFunc
	beforeTurn HookFunc

	userLabel      string
	assistantLabel string
}

// Option configures a REPL.
type Option func(*REPL)

// WithBeforeTurn registers a hook run between turns.
func WithBeforeTurn(h HookFunc) Option {
	return func(r *REPL) { r.beforeTurn = h }
}

// New creates a REPL. Labels are styled for out; writers that are not
// terminals get plain text.
func New(in io.Reader, out io.Writer, greeting string, chat ChatFunc, opts ...Option) *REPL {
	renderer := lipgloss.NewRenderer(out)
	r := &REPL{
		in:             in,
		out:            out,
		greeting:       greeting,
		chat:           chat,
		userLabel:      renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Render("USER:"),
		assistantLabel: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Render("ASSISTANT:"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run prints the greeting and serves turns until input ends or ctx is
// cancelled, both of which return nil. A chat error ends the loop and is
// returned. The input is closed on return when it is an io.Closer.
func (r *REPL) Run(ctx context.Context) error {
	if c, ok := r.in.(io.Closer); ok {
		defer c.Close()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, readErr := r.readLines(ctx)

	fmt.Fprintf(r.out, "\n%s\n\n", r.greeting)

	for {
		if r.beforeTurn != nil {
			r.beforeTurn(ctx)
		}

		fmt.Fprintf(r.out, "\n%s ", r.userLabel)

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-readErr
			}
			line = l
		}

		answer, err := r.chat(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		fmt.Fprintf(r.out, "\n%s %s\n", r.assistantLabel, answer)
	}
}

// readLines forwards input lines until EOF, a read error or cancellation.
// After lines is closed, readErr yields the read error or nil.
func (r *REPL) readLines(ctx context.Context) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r.in)
		scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				readErr <- nil
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- fmt.Errorf("reading input: %w", err)
			return
		}
		readErr <- nil
	}()

	return lines, readErr
}
