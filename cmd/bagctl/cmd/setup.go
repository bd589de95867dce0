package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/service"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create and activate a bot configuration interactively",
	Long: `Prompt for MEXC credentials and strategy parameters, check the
credentials against the exchange and save the configuration as active.

Example:
  bagctl setup --name main`,
	RunE: runSetup,
}

var setupName string

func init() {
	rootCmd.AddCommand(setupCmd)

	setupCmd.Flags().StringVar(&setupName, "name", "Default", "default configuration name")
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		if err := a.Migrate(ctx); err != nil {
			return err
		}

		req, err := PromptForConfig(cfg.TradingDefaults(setupName))
		if err != nil {
			return err
		}

		if valid, message := checkCredentials(ctx, a.Factory, req.APIKey, req.APISecret); valid {
			printSuccess(message)
		} else {
			save, err := ConfirmSave(message)
			if err != nil {
				return err
			}
			if !save {
				printWarning("Configuration not saved")
				return nil
			}
		}

		configs := service.NewConfigService(a.Store.Configs, a.Factory, cfg)
		created, err := configs.Create(ctx, req)
		if err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println(renderPanel("Active configuration", configRows(created)))
		printSuccess(fmt.Sprintf("Configuration %q saved and activated", created.Name))
		return nil
	})
}

// checkCredentials проверяет ключи до сохранения; отказ биржи - не ошибка команды
func checkCredentials(ctx context.Context, factory exchange.Factory, key, secret string) (bool, string) {
	client, err := factory(exchange.Credentials{APIKey: key, APISecret: secret})
	if err != nil {
		return false, err.Error()
	}
	if closer, ok := client.(interface{ Close() }); ok {
		defer closer.Close()
	}
	if err := client.ValidateCredentials(ctx); err != nil {
		return false, err.Error()
	}
	return true, "API credentials are valid"
}
