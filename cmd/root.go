// Package cmd defines and implements the CLI commands for the atcoder-search executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/atcoder-search/internal/app"
	"github.com/JakeFAU/atcoder-search/internal/config"
	"github.com/JakeFAU/atcoder-search/internal/logging"
	"github.com/JakeFAU/atcoder-search/internal/metrics"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// newApp is the application factory. It's a variable so tests can replace
// it.
var newApp = app.NewApp

// loadConfig is replaceable for the same reason.
var loadConfig = config.Load

// session owns the App built for one invocation so it can be closed after
// the command returns, whether or not RunE failed.
type session struct {
	app *app.App
}

func (s *session) close() {
	if s.app == nil {
		return
	}
	logger := s.app.Logger()
	if err := s.app.Close(); err != nil {
		logger.Warn("failed to close application services", zap.Error(err))
	}
	_ = logger.Sync()
	s.app = nil
}

// newRootCmd creates and configures the root command. The App built in
// PersistentPreRunE is recorded in s.
func newRootCmd(s *session) *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "atcoder-search",
		Short: "Crawls the contest site and feeds the search index.",
		Long: `atcoder-search keeps a relational copy of contests, problems, difficulties,
users and submissions fresh, and turns those rows into search documents.

  crawl   fetch remote data into the database
  update  build documents from the database and publish or stage them
  upload  post a previously staged run to the search engine`,
		SilenceUsage: true,

		// Builds and injects the application before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			metrics.Init()

			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			s.app = appInstance

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			if cfg.Metrics.Addr != "" {
				go func() {
					if err := metrics.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
						logger.Warn("metrics listener stopped", zap.Error(err))
					}
				}()
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, toml or json)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newUpdateCmd())
	cmd.AddCommand(newUploadCmd())

	return cmd
}

// run executes args and always closes the App, including after a failed
// command.
func run(ctx context.Context, args []string) error {
	s := &session{}
	defer s.close()
	root := newRootCmd(s)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the command
// context, which every crawler and pipeline observes between units of work.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:])
	stop()
	if err != nil {
		logger, lerr := logging.New(false, "info")
		if lerr != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger.Fatal("Command execution failed", zap.Error(err))
	}
}
