package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
	"github.com/Samicowest/bag-bot/internal/config"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

var rootCmd = &cobra.Command{
	Use:   "bagctl",
	Short: "Operator tool for the bag accumulation bot",
	Long: `bagctl manages the bot database without the HTTP server.

It can:
  - Apply database migrations
  - Create and activate an exchange configuration interactively
  - Import credentials from MEXC_API_KEY / MEXC_API_SECRET
  - Open a trading session
  - Show the active configuration, session and risk assessment
  - Run a single strategy cycle`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	envFile  string
	logLevel string

	cfg *config.Config
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "path to .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFrom(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	utils.InitGlobalLogger(utils.LogConfig{
		Level:  logLevel,
		Format: "text",
		Output: cfg.Logging.Output,
	})
	return nil
}

// withApp открывает БД и фабрику клиентов на время fn
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		a.Close()
		utils.L().Sync()
	}()
	return fn(a)
}
