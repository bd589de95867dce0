package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			MarginTop(1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280")).
			Width(22)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// row - строка таблицы "метка: значение"
type row struct {
	label string
	value string
}

// renderPanel рисует заголовок и таблицу в рамке
func renderPanel(title string, rows []row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r.label), r.value))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		panelStyle.Render(strings.Join(lines, "\n")),
	)
}

func configRows(c *models.BotConfig) []row {
	if c == nil {
		return []row{{"Config", warningStyle.Render("no active configuration")}}
	}
	return []row{
		{"Name", c.Name},
		{"Symbol", c.Symbol},
		{"Order size", fmt.Sprintf("%s .. %s %s", formatFloat(c.MinOrderSize), formatFloat(c.MaxOrderSize), c.QuoteAsset())},
		{"Profit threshold", formatPercent(c.ProfitThreshold)},
		{"Stop loss", formatPercent(c.StopLossThreshold)},
		{"Interval", fmt.Sprintf("%d min", c.TradingIntervalMinutes)},
		{"API key", c.APIKey},
	}
}

func sessionRows(s *models.TradingSession) []row {
	if s == nil {
		return []row{{"Session", warningStyle.Render("no active session")}}
	}
	return []row{
		{"Name", s.Name},
		{"Status", statusText(s.Status)},
		{"Initial capital", formatFloat(s.InitialCapital)},
		{"Current capital", formatFloat(s.CurrentCapital)},
		{"Accumulated tokens", formatFloat(s.AccumulatedTokens)},
		{"Started", s.StartDate.Format(time.RFC3339)},
		{"Duration", fmt.Sprintf("%d days", s.CycleDurationDays)},
	}
}

func riskRows(a *bot.RiskAssessment) []row {
	if a == nil {
		return nil
	}
	rows := make([]row, 0, 8)
	if a.Risk != nil {
		rows = append(rows,
			row{"Risk level", riskLevelText(a.Risk.RiskLevel)},
			row{"Risk score", fmt.Sprintf("%.1f", a.Risk.RiskScore)},
			row{"Drawdown", fmt.Sprintf("%.2f%%", a.Risk.DrawdownPercent)},
			row{"Trades", fmt.Sprintf("%d (%.2f/day)", a.Risk.TotalTrades, a.Risk.TradeFrequency)},
			row{"Win rate", fmt.Sprintf("%.1f%%", a.Risk.WinRatePercent)},
		)
	}
	if a.Emergency.Stop {
		rows = append(rows, row{"Emergency stop", errorStyle.Render(a.Emergency.Reason)})
	}
	for i, rec := range a.Recommendations {
		label := ""
		if i == 0 {
			label = "Recommendations"
		}
		rows = append(rows, row{label, "- " + rec})
	}
	if a.Error != "" {
		rows = append(rows, row{"Error", errorStyle.Render(a.Error)})
	}
	return rows
}

func cycleRows(r *bot.CycleResult) []row {
	rows := []row{
		{"Time", r.Timestamp.Format(time.RFC3339)},
		{"Action", string(r.Signal.Action())},
		{"Reason", r.Signal.Why()},
	}
	if r.Market != nil {
		rows = append(rows,
			row{"Price", formatFloat(r.Market.CurrentPrice)},
			row{"Sentiment", string(r.Market.Sentiment)},
		)
	}
	if r.RiskReason != "" {
		rows = append(rows, row{"Blocked", warningStyle.Render(r.RiskReason)})
	}
	if r.Trade != nil {
		rows = append(rows, row{"Order", fmt.Sprintf("%s %s %s", r.Trade.Side, formatFloat(r.Trade.Quantity), r.Trade.OrderID)})
	}
	if r.CycleComplete {
		rows = append(rows, row{"Session", successStyle.Render("completed")})
	}
	return rows
}

func statusText(status string) string {
	switch status {
	case models.SessionStatusActive:
		return successStyle.Render(status)
	case models.SessionStatusPaused:
		return warningStyle.Render(status)
	}
	return status
}

func riskLevelText(level string) string {
	switch level {
	case bot.RiskLevelLow:
		return successStyle.Render(level)
	case bot.RiskLevelModerate:
		return warningStyle.Render(level)
	}
	return errorStyle.Render(level)
}

func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.2f%%", fraction*100)
}

func printSuccess(msg string) {
	fmt.Println(successStyle.Render("✓ " + msg))
}

func printWarning(msg string) {
	fmt.Println(warningStyle.Render("! " + msg))
}
