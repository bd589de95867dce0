package models

import (
	"time"

	"github.com/Samicowest/bag-bot/pkg/crypto"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// Значения конфигурации по умолчанию
const (
	DefaultSymbol                 = "BSTUSDT"
	DefaultMinOrderSize           = 10.0
	DefaultMaxOrderSize           = 100.0
	DefaultProfitThreshold        = 0.02
	DefaultStopLossThreshold      = 0.05
	DefaultTradingIntervalMinutes = 15
)

// BotConfig - настройки бота и учётные данные биржи.
// APIKey и APISecret хранятся в БД в зашифрованном виде.
type BotConfig struct {
	ID                     int64     `json:"id" db:"id"`
	Name                   string    `json:"name" db:"name"`
	APIKey                 string    `json:"api_key,omitempty" db:"api_key"`
	APISecret              string    `json:"api_secret,omitempty" db:"api_secret"`
	Symbol                 string    `json:"symbol" db:"symbol"`
	MinOrderSize           float64   `json:"min_order_size" db:"min_order_size"`
	MaxOrderSize           float64   `json:"max_order_size" db:"max_order_size"`
	ProfitThreshold        float64   `json:"profit_threshold" db:"profit_threshold"`
	StopLossThreshold      float64   `json:"stop_loss_threshold" db:"stop_loss_threshold"`
	TradingIntervalMinutes int       `json:"trading_interval_minutes" db:"trading_interval"`
	IsActive               bool      `json:"is_active" db:"is_active"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time `json:"updated_at" db:"updated_at"`
}

// NewBotConfig создаёт конфигурацию со значениями по умолчанию
func NewBotConfig(name, apiKey, apiSecret string) *BotConfig {
	return &BotConfig{
		Name:                   name,
		APIKey:                 apiKey,
		APISecret:              apiSecret,
		Symbol:                 DefaultSymbol,
		MinOrderSize:           DefaultMinOrderSize,
		MaxOrderSize:           DefaultMaxOrderSize,
		ProfitThreshold:        DefaultProfitThreshold,
		StopLossThreshold:      DefaultStopLossThreshold,
		TradingIntervalMinutes: DefaultTradingIntervalMinutes,
	}
}

// BaseAsset - базовый актив символа (BSTUSDT → BST)
func (c *BotConfig) BaseAsset() string {
	return utils.ExtractBaseCurrency(c.Symbol)
}

// QuoteAsset - котируемый актив символа (BSTUSDT → USDT)
func (c *BotConfig) QuoteAsset() string {
	return utils.ExtractQuoteCurrency(c.Symbol)
}

// Interval - интервал между циклами стратегии
func (c *BotConfig) Interval() time.Duration {
	return time.Duration(c.TradingIntervalMinutes) * time.Minute
}

// Validate проверяет все поля и возвращает набор ошибок
func (c *BotConfig) Validate() error {
	var errs utils.ValidationErrors

	if c.Name == "" {
		errs.Add("name", "is required")
	}
	errs.AddError("api_key", utils.ValidateAPIKey(c.APIKey))
	errs.AddError("api_secret", utils.ValidateAPISecret(c.APISecret))
	if err := utils.ValidateSymbol(c.Symbol); err != nil {
		errs.AddError("symbol", err)
	} else if c.QuoteAsset() == "" {
		errs.Add("symbol", "unknown quote currency")
	}
	errs.AddError("order_size", utils.ValidateOrderSizes(c.MinOrderSize, c.MaxOrderSize))
	errs.AddError("profit_threshold", utils.ValidateFraction(c.ProfitThreshold))
	errs.AddError("stop_loss_threshold", utils.ValidateFraction(c.StopLossThreshold))
	errs.AddError("trading_interval_minutes", utils.ValidateInterval(c.TradingIntervalMinutes))

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Masked возвращает копию с замаскированными ключами для ответа API
func (c *BotConfig) Masked() *BotConfig {
	m := *c
	m.APIKey = crypto.Mask(c.APIKey)
	m.APISecret = crypto.Mask(c.APISecret)
	return &m
}
