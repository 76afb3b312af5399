package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/maruel/csvdb/internal/server"
	"github.com/spf13/cobra"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	// ready, when set, receives the listening address. Used by tests.
	ready func(addr string)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the table over an HTTP JSON API",
		Long: `Serve the table over an HTTP JSON API until interrupted.

Writes require a bearer token signed with server.jwt_secret when it is set.
With --watch, changes made to the file by other programs are picked up.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.String("addr", "localhost:8080", "address to listen on")
	f.Bool("watch", false, "reload the table when the file changes")
	bindFlags(rootOpts.v, f, map[string]string{"addr": "server.addr", "watch": "server.watch"})
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	ctx := cmd.Context()
	table, err := opts.openTable(cmd)
	if err != nil {
		return err
	}
	cfg := &opts.Config.Server
	if cfg.Watch {
		err := table.Watch(ctx, func(err error) {
			if err == nil {
				slog.InfoContext(ctx, "Reloaded table", "rows", table.Len())
			}
		})
		if err != nil {
			return err
		}
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	httpServer := &http.Server{
		Handler:           server.NewRouter(table, cfg),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", ln.Addr().String(), "file", table.Path())
		serverErr <- httpServer.Serve(ln)
	}()
	if opts.ready != nil {
		opts.ready(ln.Addr().String())
	}

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.Info("Server stopped")
	}
	return nil
}
