package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/briefs/internal/api"
	"github.com/roach88/briefs/internal/workflow"
)

// shutdownTimeout bounds how long in-flight requests and review flushes
// may take once a stop signal arrives.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database         string
	Addr             string
	AutosaveInterval time.Duration

	// Listener overrides Addr (for testing).
	Listener net.Listener
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the briefs HTTP API.

The database is created if it doesn't exist. Callers identify themselves
with the X-Identity, X-Role and X-Workspaces headers. Prometheus metrics
are served at /metrics.

Open guided review sessions are flushed with a silent save on shutdown.

Example:
  briefs serve --db ./briefs.db --addr :8080
  BRIEFS_LOG_LEVEL=debug briefs serve --config ./briefs.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().DurationVar(&opts.AutosaveInterval, "autosave-interval", 0, "guided review autosave period (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	var extra []workflow.Option
	if opts.AutosaveInterval < 0 {
		return NewExitError(ExitCommandError, "autosave-interval must be positive")
	}
	if opts.AutosaveInterval > 0 {
		extra = append(extra, workflow.WithAutosaveInterval(opts.AutosaveInterval))
	}

	e, err := openEnv(opts.RootOptions, opts.Database, cmd.ErrOrStderr(), extra...)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := e.store.Close(); closeErr != nil {
			e.logger.Error("error closing database", "error", closeErr)
		}
	}()

	if opts.AutosaveInterval > 0 {
		e.cfg.AutosaveInterval = opts.AutosaveInterval
	}
	addr := e.cfg.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(e.svc, e.logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			e.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if opts.Listener != nil {
			err = server.Serve(opts.Listener)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer done()
		err := server.Shutdown(shutdownCtx)
		e.svc.Shutdown(shutdownCtx)
		return err
	})

	listen := addr
	if opts.Listener != nil {
		listen = opts.Listener.Addr().String()
	}
	e.logger.Info("server starting", "addr", listen, "db", e.cfg.Database, "autosave", e.cfg.AutosaveInterval)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s. Press Ctrl-C to stop.\n", listen)

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	e.logger.Info("server stopped gracefully")
	return nil
}
