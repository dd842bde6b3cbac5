package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/briefs/internal/audit"
	"github.com/roach88/briefs/internal/brief"
	"github.com/roach88/briefs/internal/completion"
	"github.com/roach88/briefs/internal/ledger"
)

// briefOptions holds the flags shared by the single-brief commands.
type briefOptions struct {
	*RootOptions
	Database string
	identityFlags
}

func (o *briefOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Database, "db", "", "path to SQLite database (overrides config)")
	o.identityFlags.bind(cmd)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &briefOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a brief document",
		Long: `Import a brief from a JSON or YAML record document.

Documents without field_sources are stored as legacy briefs: their ledger
is inferred when read and materialized on the first change.

Example:
  briefs import --db ./briefs.db ./b1.yaml
  briefs import ./legacy.json --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runImport(opts *briefOptions, path string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
	id, err := opts.identity()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read brief", err)
	}
	b, err := brief.Decode(data)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to decode brief", err)
	}
	out.VerboseLog("Importing %s as %s", path, id.ID)

	e, err := openEnv(opts.RootOptions, opts.Database, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	defer e.Close(ctx)

	stored, err := e.svc.ImportBrief(ctx, id, b)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(stored, func(w io.Writer) {
		fmt.Fprintf(w, "Imported %s (%s, ledger %s, version %d)\n",
			stored.ID, stored.Status, ledger.Load(stored).Variant(), stored.CurrentVersion)
	})
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &briefOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "show <brief-id>",
		Short:         "Show a brief",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runShow(opts *briefOptions, briefID string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
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

	b, err := e.svc.Get(ctx, id, briefID)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(b, func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "ID:\t%s\n", b.ID)
		fmt.Fprintf(tw, "Workspace:\t%s\n", b.WorkspaceID)
		fmt.Fprintf(tw, "Project type:\t%s\n", b.ProjectType)
		fmt.Fprintf(tw, "Status:\t%s\n", b.Status)
		fmt.Fprintf(tw, "Version:\t%d\n", b.CurrentVersion)
		fmt.Fprintf(tw, "Ledger:\t%s\n", ledger.Load(b).Variant())
		if b.LockedBy != nil {
			fmt.Fprintf(tw, "Locked by:\t%s\n", *b.LockedBy)
		}
		tw.Flush()
	})
}

// auditOptions holds flags for the audit command.
type auditOptions struct {
	briefOptions
	Mode string
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &auditOptions{briefOptions: briefOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "audit <brief-id>",
		Short: "Show the field-provenance audit of a brief",
		Long: `Show who supplied each tracked field of a brief and whether the client
confirmed it.

Mode "client" lists only client-sourced fields and fields carrying a client
note; the counters always cover every tracked field.

Example:
  briefs audit B1
  briefs audit B1 --mode client --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringVar(&opts.Mode, "mode", string(audit.ModeAll), "rows to show (all|client)")
	return cmd
}

func runAudit(opts *auditOptions, briefID string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
	mode, err := audit.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid mode", err)
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

	view, err := e.svc.Audit(ctx, id, briefID, mode)
	if err != nil {
		return out.Fail(err)
	}
	return out.Success(view, func(w io.Writer) { renderAudit(w, view) })
}

func renderAudit(w io.Writer, view audit.View) {
	fmt.Fprintf(w, "%s (%s, ledger %s)\n\n", view.BriefID, view.Status, view.Ledger)
	if len(view.Rows) == 0 {
		fmt.Fprintln(w, "No tracked fields.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FIELD\tSOURCE\tCONFIRMED\tPENDING\tVALUE\tNOTE")
		for _, r := range view.Rows {
			source := string(r.Source)
			if r.Inferred {
				source += "*"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
				r.Label, source, yesNo(r.ConfirmedByClient), yesNo(r.PendingInput), r.Value, r.Note)
		}
		tw.Flush()
	}
	c := view.Counters
	fmt.Fprintf(w, "\n%d of %d confirmed by client, %d client-sourced, %d pending input\n",
		c.ConfirmedByClient, c.Total, c.ClientSourced, c.PendingInput)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &briefOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <brief-id>",
		Short: "Check whether a brief is complete enough to submit",
		Long: `Evaluate each section of a brief and list what is missing.

Exit codes:
  0 - Brief is submittable
  1 - One or more sections are incomplete
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runCheck(opts *briefOptions, briefID string, cmd *cobra.Command) error {
	out := formatter(opts.RootOptions, cmd)
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

	report, err := e.svc.Evaluate(ctx, id, briefID)
	if err != nil {
		return out.Fail(err)
	}
	if err := out.Success(report, func(w io.Writer) { renderReport(w, report) }); err != nil {
		return err
	}
	if !report.Submittable {
		return NewExitError(ExitFailure, fmt.Sprintf("%s is not submittable", briefID))
	}
	return nil
}

func renderReport(w io.Writer, report completion.Report) {
	for _, sr := range report.Sections {
		if sr.Complete {
			fmt.Fprintf(w, "✓ %s\n", sr.Section)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Section)
		for _, issue := range sr.Issues {
			fmt.Fprintf(w, "  %s\n", issue)
		}
	}
	if report.Submittable {
		fmt.Fprintln(w, "\nReady to submit")
	}
}
