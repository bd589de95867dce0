package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/service"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage trading sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a new trading session",
	Long: `Open an active trading session. Fails if another session is active.

Example:
  bagctl session create --name june --capital 500 --days 30`,
	RunE: runSessionCreate,
}

var (
	sessionName    string
	sessionCapital float64
	sessionDays    int
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd)

	sessionCreateCmd.Flags().StringVar(&sessionName, "name", "", "session name (default \"Session YYYY-MM-DD\")")
	sessionCreateCmd.Flags().Float64Var(&sessionCapital, "capital", 0, "initial capital in quote currency (required)")
	sessionCreateCmd.Flags().IntVar(&sessionDays, "days", models.DefaultCycleDurationDays, "cycle duration in days")
	sessionCreateCmd.MarkFlagRequired("capital")
}

func runSessionCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		if err := a.Migrate(ctx); err != nil {
			return err
		}

		// без контроллера: сессия только создаётся, движок подхватит её сам
		sessions := service.NewSessionService(a.Store.Sessions, a.Store.Trades, nil)
		session, err := sessions.Create(ctx, &service.CreateSessionRequest{
			Name:              sessionName,
			InitialCapital:    sessionCapital,
			CycleDurationDays: sessionDays,
		})
		if err != nil {
			return err
		}

		fmt.Println(renderPanel("Active session", sessionRows(session)))
		printSuccess(fmt.Sprintf("Session %q created (id %d)", session.Name, session.ID))
		return nil
	})
}
