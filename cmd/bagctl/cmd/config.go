package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
	"github.com/Samicowest/bag-bot/internal/service"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage bot configurations",
}

var configFromEnvCmd = &cobra.Command{
	Use:   "from-env",
	Short: "Save MEXC_API_KEY / MEXC_API_SECRET as the active configuration",
	Long: `Create or update a configuration from the environment (or --env-file),
activate it and check the credentials against the exchange.

Strategy parameters come from the DEFAULT_* variables.`,
	RunE: runConfigFromEnv,
}

var fromEnvName string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configFromEnvCmd)

	configFromEnvCmd.Flags().StringVar(&fromEnvName, "name", service.DefaultEnvConfigName, "configuration name")
}

func runConfigFromEnv(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		if err := a.Migrate(ctx); err != nil {
			return err
		}

		configs := service.NewConfigService(a.Store.Configs, a.Factory, cfg)
		result, err := configs.CreateFromEnv(ctx, fromEnvName)
		if err != nil {
			return err
		}

		fmt.Println(renderPanel("Active configuration", configRows(result.Config)))
		if result.Created {
			printSuccess(fmt.Sprintf("Configuration %q created", result.Config.Name))
		} else {
			printSuccess(fmt.Sprintf("Configuration %q updated", result.Config.Name))
		}
		if result.APIValidation.Valid {
			printSuccess(result.APIValidation.Message)
		} else {
			printWarning("Credentials check failed: " + result.APIValidation.Message)
		}
		return nil
	})
}
