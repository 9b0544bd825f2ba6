package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ghostwriter/internal/logger"
	"ghostwriter/internal/server"

	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command for the local preview server
func NewServeCmd() *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Preview saved articles in a browser",
		Long: `Start a local, read-only preview server.

Routes:
  /                       saved article list
  /articles/{id}/         rendered article page
  /articles/{id}/markdown raw markdown
  /api/articles           article list as JSON
  /healthz                health check

Examples:
  ghostwriter serve
  ghostwriter serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), host, port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP server port (default from config: 8080)")
	cmd.Flags().StringVar(&host, "host", "", "HTTP server host (default from config: 127.0.0.1)")
	return cmd
}

func runServe(ctx context.Context, host string, port int) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer ws.Close()

	serverCfg := ws.cfg.Server
	if port != 0 {
		serverCfg.Port = port
	}
	if host != "" {
		serverCfg.Host = host
	}

	srv := server.New(ws.library, serverCfg)
	fmt.Printf("🌐 Preview available at http://%s/\n", srv.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logger.Info("Preview server stopped")
	return nil
}
