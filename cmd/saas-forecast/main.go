package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/internal/forecast"
	"github.com/iwvelando/saas-forecast/internal/optimizer"
	"github.com/iwvelando/saas-forecast/internal/server"
	"github.com/iwvelando/saas-forecast/internal/store"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/iwvelando/saas-forecast/pkg/output"
	"github.com/iwvelando/saas-forecast/pkg/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:          "saas-forecast",
		Short:        "Project SaaS users, revenue, costs and cash month by month",
		Version:      version,
		SilenceUsage: true,
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(
		newProjectCommand(&logLevel),
		newValidateCommand(),
		newServeCommand(&logLevel),
	)
	return root
}

func newProjectCommand(logLevel *string) *cobra.Command {
	var (
		configLocation string
		outputFormat   string
	)

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Run a projection and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.LoadConfiguration(configLocation)
			if err != nil {
				return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
			}

			logger, err := initializeLogger(conf.Logging, *logLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			// CLI override takes precedence over config
			format := conf.Output.Format
			if outputFormat != "" {
				format = outputFormat
			}
			if format == "" {
				format = constants.OutputFormatPretty
			}
			if err := validation.ValidateOutputFormat(format); err != nil {
				return err
			}

			result, err := project(logger, conf)
			if err != nil {
				return err
			}
			return output.Write(cmd.OutOrStdout(), format, result)
		},
	}

	cmd.Flags().StringVar(&configLocation, "config", constants.DefaultConfigFile, "path to configuration file")
	cmd.Flags().StringVar(&outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	return cmd
}

// project fills the start date, applies an optimizer directive when present
// and runs the projection.
func project(logger *zap.Logger, conf *config.Configuration) (*forecast.Result, error) {
	for _, warning := range conf.Warnings() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.project"),
		)
	}

	if err := conf.ParseStartDate(); err != nil {
		return nil, err
	}

	runner, err := optimizer.NewRunner(logger, conf)
	if err != nil {
		return nil, err
	}
	summary, err := runner.Run()
	if err != nil {
		return nil, fmt.Errorf("optimizer execution failed: %w", err)
	}

	result, err := forecast.GetForecast(logger, *conf)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		result.Optimizations = append(result.Optimizations, *summary)
	}

	if forecast.HasErrors(result.Findings) {
		logger.Warn("projection failed self-test checks",
			zap.String("op", "main.project"),
			zap.Int("findings", len(result.Findings)),
		)
	}
	return result, nil
}

func newValidateCommand() *cobra.Command {
	var configLocation string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration without running a projection",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.LoadConfiguration(configLocation)
			if err != nil {
				return fmt.Errorf("failed to load configuration at %s: %w", configLocation, err)
			}

			out := cmd.OutOrStdout()
			for _, warning := range conf.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			problems := conf.Validate()
			for _, problem := range problems {
				fmt.Fprintf(out, "error: %s\n", problem)
			}
			if len(problems) > 0 {
				return fmt.Errorf("configuration has %d problem(s)", len(problems))
			}
			fmt.Fprintln(out, "configuration is valid")
			return nil
		},
	}

	cmd.Flags().StringVar(&configLocation, "config", constants.DefaultConfigFile, "path to configuration file")
	return cmd
}

func newServeCommand(logLevel *string) *cobra.Command {
	var (
		serverConfig string
		envFile      string
		overrides    server.Overrides
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the projection HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("failed to load %s: %w", envFile, err)
			}

			cfg, err := server.LoadConfig(serverConfig)
			if err != nil {
				return err
			}
			if err := cfg.Apply(overrides); err != nil {
				return err
			}

			logger, err := initializeLogger(cfg.Logging, *logLevel)
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, logger, cfg)
		},
	}

	cmd.Flags().StringVar(&serverConfig, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file loaded before configuration")
	cmd.Flags().StringVar(&overrides.Address, "address", "", "listen address, overriding the server configuration")
	cmd.Flags().StringVar(&overrides.MaxUploadSize, "max-upload-size", "", "upload limit such as 512K or 2M, overriding the server configuration")
	cmd.Flags().StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL URL for saved configurations, overriding DATABASE_URL")
	return cmd
}

func serve(ctx context.Context, logger *zap.Logger, cfg *server.Config) error {
	var configs store.ConfigStore = store.NewMemoryStore()
	if cfg.Store() == server.StorePostgres {
		pool, err := store.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		pgStore := store.NewPgStore(pool, logger)
		if err := pgStore.Migrate(ctx); err != nil {
			return err
		}
		configs = pgStore
	}

	serverVersion := cfg.Version
	if serverVersion == "" {
		serverVersion = version
	}

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           server.NewHandler(logger, cfg.UploadSizeBytes(), serverVersion, configs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("op", "main.serve"),
			zap.String("address", cfg.Address),
			zap.String("store", cfg.Store()),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down", zap.String("op", "main.serve"))
	return srv.Shutdown(shutdownCtx)
}
