package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/livetemplate/newyear/internal/server"
	"github.com/livetemplate/newyear/internal/store"
)

type serveOptions struct {
	port  int
	host  string
	watch bool
	debug bool
}

func newServeCommand(flags *globalFlags) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the wish API and game server",
		Example: `  newyear serve                  # Serve with newyear.yaml from the current directory
  newyear serve --port 3000      # Override the port
  newyear serve --watch          # Reload prizes when newyear.yaml changes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags, opts)
		},
	}
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "port to listen on (overrides config)")
	cmd.Flags().StringVar(&opts.host, "host", "", "host to bind (overrides config)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "reload the prize wheel when the config file changes")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "allow jumping to locked steps")
	return cmd
}

func runServe(cmd *cobra.Command, flags *globalFlags, opts *serveOptions) error {
	absDir, err := filepath.Abs(flags.dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absDir); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", absDir)
	}

	cfg, path, err := flags.load()
	if err != nil {
		return err
	}

	// CLI flags override config
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.watch {
		cfg.Server.Watch = true
	}
	if opts.debug {
		cfg.Server.Debug = true
	}

	st, err := store.Open(cfg.Store, absDir)
	if err != nil {
		return fmt.Errorf("failed to open wish store: %w", err)
	}
	defer st.Close()

	srv, err := server.New(cfg, path, st)
	if err != nil {
		return err
	}
	defer srv.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🧧 %s\n\n", cfg.Title)
	fmt.Fprintf(out, "Store: %s\n", cfg.Store.GetType())

	if cfg.Server.Watch {
		if err := srv.EnableWatch(cfg.Server.Debug); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Fprintf(out, "👀 Watching %s\n", path)
	}
	if cfg.Server.Debug {
		fmt.Fprintf(out, "🐞 Debug step jumps enabled\n")
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Fprintf(out, "\n🌐 Server running at http://%s\n", addr)
	fmt.Fprintf(out, "   POST /wish, GET /wish?name=, /ws, /api/steps\n")
	fmt.Fprintf(out, "Press Ctrl+C to stop\n\n")

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	fmt.Fprintln(out, "Bye, 新年快乐!")
	return nil
}
