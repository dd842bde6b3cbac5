package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/roach88/briefs/internal/access"
	"github.com/roach88/briefs/internal/catalog"
	"github.com/roach88/briefs/internal/config"
	"github.com/roach88/briefs/internal/store"
	"github.com/roach88/briefs/internal/workflow"
)

// env is the wiring shared by every command that opens the database.
type env struct {
	cfg    *config.Config
	store  *store.Store
	svc    *workflow.Service
	logger *slog.Logger
}

// openEnv loads configuration, applies the --db override and opens the
// store and service. Logs go to logOut.
func openEnv(opts *RootOptions, database string, logOut io.Writer, extra ...workflow.Option) (*env, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if database != "" {
		cfg.Database = database
	}

	// Configure logging based on verbose flag
	level := cfg.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	svcOpts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithAutosaveInterval(cfg.AutosaveInterval),
	}
	if cfg.CatalogDir != "" {
		cat, err := catalog.LoadDir(cfg.CatalogDir)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		svcOpts = append(svcOpts, workflow.WithCatalog(cat))
	}
	svcOpts = append(svcOpts, extra...)

	logger.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	return &env{
		cfg:    cfg,
		store:  st,
		svc:    workflow.New(st, svcOpts...),
		logger: logger,
	}, nil
}

// Close flushes open review sessions and closes the database.
func (e *env) Close(ctx context.Context) {
	e.svc.Shutdown(ctx)
	if err := e.store.Close(); err != nil {
		e.logger.Error("error closing database", "error", err)
	}
}

// identityFlags selects the caller a command acts as. The default is an
// administrator, which bypasses workspace membership.
type identityFlags struct {
	ID         string
	Role       string
	Workspaces []string
}

func (f *identityFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.ID, "as", "cli", "identity to act as")
	cmd.Flags().StringVar(&f.Role, "role", string(access.RoleAdmin), "role of the identity (advisor|client|admin|system)")
	cmd.Flags().StringSliceVar(&f.Workspaces, "workspaces", nil, "workspaces the identity belongs to")
}

var identityValidator = validator.New(validator.WithRequiredStructEnabled())

func (f *identityFlags) identity() (access.Identity, error) {
	id := access.Identity{
		ID:         strings.TrimSpace(f.ID),
		Role:       access.Role(strings.ToLower(strings.TrimSpace(f.Role))),
		Workspaces: f.Workspaces,
	}
	if err := identityValidator.Struct(id); err != nil {
		return access.Identity{}, WrapExitError(ExitCommandError, "invalid identity", fmt.Errorf("%s/%s: %w", id.ID, id.Role, err))
	}
	return id, nil
}

// formatter builds the output formatter for cmd.
func formatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// commandContext returns cmd's context, or Background when run outside
// Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
