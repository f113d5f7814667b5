package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/LJTian/DevPulse/internal/app"
	"github.com/LJTian/DevPulse/internal/config"
	"github.com/LJTian/DevPulse/internal/logger"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:          "devpulse",
		Short:        "Aggregate recent AI development news",
		Long:         "DevPulse fetches recent AI development news from Hacker News, NewsAPI or GNews and falls back to local demo data when the provider is unavailable.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(newFetchCmd(&logLevel))
	rootCmd.AddCommand(newServeCmd(&logLevel))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// setup 读取配置并按命令行参数覆盖，返回组装好的 App
func setup(logLevel string, forceMock bool, launchURL string) (*app.App, error) {
	cfg := config.Load()
	cfg.ApplyLaunchOverride(forceMock, launchURL)
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return app.New(cfg, log), nil
}

func newFetchCmd(logLevel *string) *cobra.Command {
	var (
		query     string
		forceMock bool
		launchURL string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run the pipeline once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*logLevel, forceMock, launchURL)
			if err != nil {
				return err
			}
			defer func() { _ = a.Log.Sync() }()

			res, err := a.Pipeline.FetchDevelopments(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("fetch developments: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			renderResult(out, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "only keep items whose title contains this text")
	cmd.Flags().BoolVar(&forceMock, "mock", false, "force local demo data")
	cmd.Flags().StringVar(&launchURL, "launch-url", "", "launch URL; a mock query parameter or fragment forces demo data")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func newServeCmd(logLevel *string) *cobra.Command {
	var (
		forceMock bool
		launchURL string
		port      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*logLevel, forceMock, launchURL)
			if err != nil {
				return err
			}
			defer func() { _ = a.Log.Sync() }()
			if port != "" {
				a.Config.AppPort = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Serve(ctx)
		},
	}

	cmd.Flags().BoolVar(&forceMock, "mock", false, "force local demo data")
	cmd.Flags().StringVar(&launchURL, "launch-url", "", "launch URL; a mock query parameter or fragment forces demo data")
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides APP_PORT)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "devpulse version %s\n", version)
		},
	}
}

