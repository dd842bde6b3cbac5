package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/briefs/internal/lifecycle"
	"github.com/roach88/briefs/internal/store"
)

// transitionOptions holds flags for the transition command.
type transitionOptions struct {
	briefOptions
	List    bool
	History bool
}

// NewTransitionCommand creates the transition command.
func NewTransitionCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &transitionOptions{briefOptions: briefOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "transition <brief-id> [event]",
		Short: "Apply a lifecycle event to a brief",
		Long: `Apply a lifecycle event to a brief, acting as the given identity.

Events: send_to_client, recall, client_submit, save_progress, lock,
send_back, unlock, generate_matches, shortlist, select, start_execution,
complete.

Without an event, --list shows the events the identity may trigger and
--history shows the recorded status changes.

Example:
  briefs transition B1 send_to_client --as adv-1 --role advisor --workspaces w1
  briefs transition B1 shortlist --as matcher --role system
  briefs transition B1 --list --as adv-1 --role advisor --workspaces w1
  briefs transition B1 --history`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			event := ""
			if len(args) == 2 {
				event = args[1]
			}
			return runTransition(opts, args[0], event, cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().BoolVar(&opts.List, "list", false, "list available events instead of applying one")
	cmd.Flags().BoolVar(&opts.History, "history", false, "show the status history instead of applying an event")
	return cmd
}

func runTransition(opts *transitionOptions, briefID, event string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
	modes := 0
	for _, set := range []bool{event != "", opts.List, opts.History} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return NewExitError(ExitCommandError, "give exactly one of an event, --list or --history")
	}

	var ev lifecycle.Event
	if event != "" {
		parsed, err := lifecycle.ParseEvent(event)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid event", err)
		}
		ev = parsed
	}
	id, err := opts.identity()
	if err != nil {
		return err
	}
	e, err := openEnv(opts.RootOptions, opts.Database, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	defer e.Close(ctx)

	switch {
	case opts.List:
		events, err := e.svc.Available(ctx, id, briefID)
		if err != nil {
			return out.Fail(err)
		}
		if events == nil {
			events = []lifecycle.Event{}
		}
		return out.Success(map[string]any{"available": events}, func(w io.Writer) {
			if len(events) == 0 {
				fmt.Fprintln(w, "No events available.")
				return
			}
			names := make([]string, len(events))
			for i, ev := range events {
				names[i] = string(ev)
			}
			fmt.Fprintln(w, strings.Join(names, "\n"))
		})
	case opts.History:
		history, err := e.svc.StatusHistory(ctx, id, briefID)
		if err != nil {
			return out.Fail(err)
		}
		if history == nil {
			history = []store.StatusChange{}
		}
		return out.Success(map[string]any{"history": history}, func(w io.Writer) {
			for _, change := range history {
				fmt.Fprintf(w, "%s  %-16s %s -> %s (%s %s)\n",
					change.At.UTC().Format(time.RFC3339), change.Event, change.From, change.To, change.ActorRole, change.ActorID)
			}
		})
	}

	before, err := e.svc.Get(ctx, id, briefID)
	if err != nil {
		return out.Fail(err)
	}
	after, err := e.svc.Transition(ctx, id, briefID, ev)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(after, func(w io.Writer) {
		fmt.Fprintf(w, "%s: %s -> %s\n", after.ID, before.Status, after.Status)
	})
}
