package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/regform/internal/inputfile"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/pubsub"
	"github.com/zjrosen/regform/internal/registration"
	"github.com/zjrosen/regform/internal/scheduler"
	"github.com/zjrosen/regform/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Validate a YAML input file every time it changes",
	Long: `Load username, password and password_again from FILE and print each change
of the form state. Edits to the file are fed into the same session, so the
configured quiet periods apply.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var (
	watchOutput  string
	watchVerbose bool
)

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOutput, "output", "o", outputJSON, "output format: yaml or json")
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "stream log entries to stderr")
}

// watchEvent is printed for every output change.
type watchEvent struct {
	Output registration.Output    `yaml:"output,omitempty" json:"output,omitempty"`
	State  registration.FormState `yaml:"state" json:"state"`
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(watchOutput); err != nil {
		return err
	}

	rt, err := newRuntime("regform-watch")
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logs <-chan log.LogEvent
	if watchVerbose {
		if !log.Initialized() {
			cleanup := log.InitWriter(io.Discard)
			defer cleanup()
			log.SetMinLevel(log.LevelInfo)
		}
		logs = log.Subscribe(ctx)
	}

	return watchFile(ctx, args[0], cmd.OutOrStdout(), watchOutput, logs, cmd.ErrOrStderr(),
		cfg.Debounce.Registration(), rt.sessionOptions()...)
}

// watchFile runs until ctx is done, printing a document per output change.
// Entries received on logs are copied to logOut; a nil logs disables that.
func watchFile(
	ctx context.Context,
	path string,
	out io.Writer,
	format string,
	logs <-chan log.LogEvent,
	logOut io.Writer,
	debounce registration.Config,
	opts ...registration.Option,
) error {
	fields, err := inputfile.Load(path)
	if err != nil {
		return err
	}

	w, err := watcher.New(watcher.DefaultConfig(path))
	if err != nil {
		return err
	}
	onChange, err := w.Start()
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	loop := scheduler.NewLoop()
	defer loop.Close()

	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := registration.New(loop, fields, debounce, opts...)
	defer s.Close()
	changes := s.Subscribe(subCtx)

	// Wait for the session to start, then print the state reached so far
	loop.Do(func() {})
	if err := writeDocument(out, format, watchEvent{State: s.State()}); err != nil {
		return err
	}

	log.Info(log.CatWatcher, "watching input file", "path", path, "id", s.ID())

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-onChange:
			updated, err := inputfile.Load(path)
			if err != nil {
				log.ErrorErr(log.CatWatcher, "reloading input file", err, "path", path)
				_, _ = fmt.Fprintf(os.Stderr, "regform: %v\n", err)
				continue
			}
			s.SetFields(updated)

		case ev, ok := <-logs:
			if !ok {
				logs = nil
				continue
			}
			_, _ = io.WriteString(logOut, ev.Payload)

		case ev, ok := <-changes:
			if !ok {
				return nil
			}
			if ev.Type != pubsub.UpdatedEvent {
				continue
			}
			if err := writeDocument(out, format, watchEvent{Output: ev.Payload.Output, State: ev.Payload.State}); err != nil {
				return err
			}
		}
	}
}
