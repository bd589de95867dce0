package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/service"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// setupAnswers - ответы мастера setup в сыром виде
type setupAnswers struct {
	Name         string `survey:"name"`
	APIKey       string `survey:"api_key"`
	APISecret    string `survey:"api_secret"`
	Symbol       string `survey:"symbol"`
	MinOrderSize string `survey:"min_order_size"`
	MaxOrderSize string `survey:"max_order_size"`
	Interval     string `survey:"interval"`
}

// PromptForConfig опрашивает оператора; defaults подставляются в поля ввода
func PromptForConfig(defaults *models.BotConfig) (*service.CreateConfigRequest, error) {
	questions := []*survey.Question{
		{
			Name:     "name",
			Prompt:   &survey.Input{Message: "Configuration name:", Default: defaults.Name},
			Validate: survey.Required,
		},
		{
			Name:     "api_key",
			Prompt:   &survey.Input{Message: "MEXC API key:", Default: defaults.APIKey},
			Validate: stringValidator(utils.ValidateAPIKey),
		},
		{
			Name:     "api_secret",
			Prompt:   &survey.Password{Message: "MEXC API secret:"},
			Validate: stringValidator(utils.ValidateAPISecret),
		},
		{
			Name: "symbol",
			Prompt: &survey.Input{
				Message: "Trading pair:",
				Default: defaults.Symbol,
				Help:    "Exchange format without separators, e.g. BSTUSDT",
			},
			Validate:  stringValidator(func(s string) error { return utils.ValidateSymbol(utils.NormalizeSymbol(s)) }),
			Transform: survey.TransformString(utils.NormalizeSymbol),
		},
		{
			Name:     "min_order_size",
			Prompt:   &survey.Input{Message: "Min order size (quote):", Default: formatFloat(defaults.MinOrderSize)},
			Validate: positiveFloat,
		},
		{
			Name:     "max_order_size",
			Prompt:   &survey.Input{Message: "Max order size (quote):", Default: formatFloat(defaults.MaxOrderSize)},
			Validate: positiveFloat,
		},
		{
			Name:     "interval",
			Prompt:   &survey.Input{Message: "Trading interval (minutes):", Default: strconv.Itoa(defaults.TradingIntervalMinutes)},
			Validate: intervalValidator,
		},
	}

	var answers setupAnswers
	if err := survey.Ask(questions, &answers); err != nil {
		return nil, err
	}
	return answers.request()
}

// request собирает запрос на создание активной конфигурации
func (a setupAnswers) request() (*service.CreateConfigRequest, error) {
	minSize, err := parseFloat(a.MinOrderSize)
	if err != nil {
		return nil, fmt.Errorf("min order size: %w", err)
	}
	maxSize, err := parseFloat(a.MaxOrderSize)
	if err != nil {
		return nil, fmt.Errorf("max order size: %w", err)
	}
	if err := utils.ValidateOrderSizes(minSize, maxSize); err != nil {
		return nil, err
	}
	interval, err := strconv.Atoi(strings.TrimSpace(a.Interval))
	if err != nil {
		return nil, fmt.Errorf("interval: %w", err)
	}

	return &service.CreateConfigRequest{
		Name:                   strings.TrimSpace(a.Name),
		APIKey:                 strings.TrimSpace(a.APIKey),
		APISecret:              strings.TrimSpace(a.APISecret),
		Symbol:                 utils.NormalizeSymbol(a.Symbol),
		MinOrderSize:           &minSize,
		MaxOrderSize:           &maxSize,
		TradingIntervalMinutes: &interval,
		Activate:               true,
	}, nil
}

// ConfirmSave спрашивает, сохранять ли конфигурацию с непрошедшими проверку ключами
func ConfirmSave(message string) (bool, error) {
	save := false
	prompt := &survey.Confirm{
		Message: fmt.Sprintf("Credentials check failed (%s). Save anyway?", message),
		Default: false,
	}
	if err := survey.AskOne(prompt, &save); err != nil {
		return false, err
	}
	return save, nil
}

func stringValidator(fn func(string) error) survey.Validator {
	return func(val interface{}) error {
		s, ok := val.(string)
		if !ok {
			return fmt.Errorf("unexpected answer type %T", val)
		}
		return fn(strings.TrimSpace(s))
	}
}

func positiveFloat(val interface{}) error {
	return stringValidator(func(s string) error {
		v, err := parseFloat(s)
		if err != nil {
			return err
		}
		if v <= 0 {
			return fmt.Errorf("must be positive")
		}
		return nil
	})(val)
}

func intervalValidator(val interface{}) error {
	return stringValidator(func(s string) error {
		minutes, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("must be a whole number of minutes")
		}
		return utils.ValidateInterval(minutes)
	})(val)
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
