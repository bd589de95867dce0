package exchange

import (
	"fmt"
	"strings"
	"time"
)

// SupportedExchanges - список поддерживаемых бирж
var SupportedExchanges = []string{
	"mexc",
}

// Credentials - ключи доступа к бирже
type Credentials struct {
	APIKey    string
	APISecret string
}

// Factory создаёт клиента биржи по ключам активной конфигурации
type Factory func(creds Credentials) (Client, error)

// FactoryOptions - общие параметры всех создаваемых клиентов
type FactoryOptions struct {
	BaseURL    string
	RateLimit  float64
	RecvWindow time.Duration
	Timeout    time.Duration
	HTTPClient *HTTPClient // общий пул соединений
}

// NewFactory возвращает фабрику клиентов MEXC
func NewFactory(opts FactoryOptions) Factory {
	return func(creds Credentials) (Client, error) {
		return NewExchange("mexc", creds, opts)
	}
}

// NewExchange создает новый экземпляр биржи по имени
func NewExchange(name string, creds Credentials, opts FactoryOptions) (Client, error) {
	name = strings.ToLower(name)

	switch name {
	case "mexc":
		return NewMEXC(MEXCConfig{
			APIKey:     creds.APIKey,
			APISecret:  creds.APISecret,
			BaseURL:    opts.BaseURL,
			RateLimit:  opts.RateLimit,
			RecvWindow: opts.RecvWindow,
			Timeout:    opts.Timeout,
			HTTPClient: opts.HTTPClient,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported exchange: %s", name)
	}
}

// IsSupported проверяет, поддерживается ли биржа
func IsSupported(name string) bool {
	name = strings.ToLower(name)
	for _, supported := range SupportedExchanges {
		if name == supported {
			return true
		}
	}
	return false
}
