package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/repository"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active configuration, session and risk assessment",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		var active *models.BotConfig
		c, err := a.Store.Configs.GetActive(ctx)
		switch {
		case err == nil:
			active = c.Masked()
		case !errors.Is(err, repository.ErrConfigNotFound):
			return fmt.Errorf("load active config: %w", err)
		}

		session, err := a.Store.Sessions.GetActive(ctx)
		if err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			return fmt.Errorf("load active session: %w", err)
		}

		fmt.Println(renderPanel("Configuration", configRows(active)))
		fmt.Println(renderPanel("Session", sessionRows(session)))

		if active == nil || session == nil {
			return nil
		}

		assessment, err := a.NewScheduler(nil).RiskAssessment(ctx)
		if err != nil {
			printWarning("Risk assessment unavailable: " + err.Error())
			return nil
		}
		fmt.Println(renderPanel("Risk", riskRows(assessment)))
		return nil
	})
}
