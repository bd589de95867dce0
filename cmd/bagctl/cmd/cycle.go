package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Samicowest/bag-bot/internal/app"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one strategy cycle for the active session",
	Long: `Analyze the market, generate a signal and execute it for the active
session, exactly like one scheduled cycle of the running bot.

Do not run it while the server is trading the same session.`,
	RunE: runCycle,
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withApp(ctx, func(a *app.App) error {
		result, err := a.NewScheduler(nil).ForceCycle(ctx)
		if err != nil {
			return err
		}

		fmt.Println(renderPanel("Cycle", cycleRows(result)))
		if result.Session != nil {
			fmt.Println(renderPanel("Session", sessionRows(result.Session)))
		}
		return nil
	})
}
