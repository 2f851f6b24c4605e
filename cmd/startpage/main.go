package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kapu/kfp-startpage/internal/app"
	"github.com/kapu/kfp-startpage/internal/config"
	"github.com/kapu/kfp-startpage/internal/constants"
	"github.com/kapu/kfp-startpage/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set during build with -ldflags
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "startpage",
	Short: "Kubeflow Pipelines Getting Started page",
	Long: `Serves the Kubeflow Pipelines "Getting Started" page. Links to the sample
pipelines are resolved against the Pipelines API by exact name and fall back
to the pipeline list when a sample is missing or ambiguous.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Getting Started page over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		return serve(cfg, logger)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the sample pipeline links once and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		container, err := app.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		snap := container.Page.Refresh(cmd.Context())
		for i, name := range container.Catalog.Names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, snap.Links[i])
		}
		return nil
	},
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Resolve the links and print the page document",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		container, err := app.Build(cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		snap := container.Page.Refresh(cmd.Context())

		asHTML, _ := cmd.Flags().GetBool("html")
		render := container.Page.Markdown
		if asHTML {
			render = container.Page.HTML
		}
		out, err := render(snap)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "startpage version %s\n", version)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides STARTPAGE_ADDR)")
	renderCmd.Flags().Bool("html", false, "print rendered HTML instead of markdown")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func serve(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Getting Started page starting...",
		zap.String("version", version),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("api", cfg.Pipeline.BaseURL),
	)

	container, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container.Start(ctx)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      container.Server,
		ReadTimeout:  constants.ServerConfig.ReadTimeout,
		WriteTimeout: constants.ServerConfig.WriteTimeout,
		IdleTimeout:  constants.ServerConfig.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err = <-errCh:
		logger.Error("Server error", zap.Error(err))
	}

	logger.Info("Shutting down gracefully...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ServerConfig.ShutdownTimeout)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("Error during shutdown", zap.Error(shutdownErr))
	}
	container.Close()

	logger.Info("Shutdown complete")
	return err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
