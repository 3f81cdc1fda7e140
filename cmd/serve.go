package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/quill/internal/config"
	"github.com/conneroisu/quill/internal/server"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"s"},
	Short:   "Serve the blog with live reload",
	Long: `Serve the blog over HTTP. Posts are indexed at startup and, unless
--watch=false is given, re-indexed as files in the data directory change.

Examples:
  quill serve                      # Serve ./Data on localhost:5000
  quill serve -p 8080 --host 0.0.0.0
  quill serve -d ./posts --watch=false`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "Port to serve on")
	serveCmd.Flags().String("host", config.DefaultHost, "Host to bind to")
	serveCmd.Flags().Bool("watch", true, "Re-index posts when files change")
	serveCmd.Flags().Int("cache-max-age", config.DefaultCacheMaxAge, "Default Cache-Control max-age in seconds")

	AddFlagValidation(serveCmd, "port", ValidatePort)

	SetViperBindings(serveCmd, map[string]string{
		"server.port":        "port",
		"server.host":        "host",
		"blog.watch":         "watch",
		"blog.cache_max_age": "cache-max-age",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, nil, logger)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s at http://%s\n", cfg.Blog.DataPath, cfg.Server.Addr())

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
