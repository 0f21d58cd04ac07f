// Package commands holds the docchat command line.
package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/0xcro3dile/docchat-go/internal/app"
	"github.com/0xcro3dile/docchat-go/internal/config"
)

type rootOptions struct {
	configPath  string
	document    string
	watch       bool
	metricsAddr string
	verbose     bool
}

// Execute runs the root command until it finishes or the process is
// interrupted. Variables from a .env file in the working directory are
// loaded first; a missing file is not an error.
func Execute() error {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCmd().ExecuteContext(ctx)
}

// NewRootCmd creates the docchat command. Without a subcommand it indexes
// the configured document and starts the chat loop.
func NewRootCmd() *cobra.Command {
	var opts rootOptions

	cmd := &cobra.Command{
		Use:   "docchat",
		Short: "Chat with a document from the terminal",
		Long: `docchat indexes one document (PDF or text) at startup and answers questions
about it, one line of input per question. Answers are grounded in the most
similar passages of the document and in the conversation so far.

The document path comes from --document, the config file or DOCCHAT_DOCUMENT
and is resolved against the working directory. The default,
docs/hurricane-milton.txt, ships with the repository, so run docchat from the
repository root or point --document at your own file. PDF (.pdf) and text
(.txt, .md, .markdown) files are supported; form feeds split text pages.

End the session with Ctrl-D or Ctrl-C.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "path to the YAML config file")
	flags.StringVarP(&opts.document, "document", "d", "", "document to chat about (overrides config)")
	flags.BoolVarP(&opts.watch, "watch", "w", false, "re-index the document when it changes")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func runChat(cmd *cobra.Command, opts rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}

// loadConfig reads the config file and applies command line overrides.
// An explicitly named config file must exist.
func loadConfig(cmd *cobra.Command, opts rootOptions) (*config.Config, error) {
	flags := cmd.Flags()
	if flags.Changed("config") {
		if _, err := os.Stat(opts.configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	if flags.Changed("document") {
		cfg.Document = opts.document
	}
	if flags.Changed("watch") {
		cfg.Watch = opts.watch
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}
	return cfg, cfg.Validate()
}

// newLogger writes to w; [DEBUG] lines are dropped unless verbose.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	if !verbose {
		w = levelFilter{w: w}
	}
	return log.New(w, "", log.LstdFlags)
}

var debugTag = []byte("[DEBUG]")

type levelFilter struct {
	w io.Writer
}

func (f levelFilter) Write(p []byte) (int, error) {
	if bytes.Contains(p, debugTag) {
		return len(p), nil
	}
	return f.w.Write(p)
}
