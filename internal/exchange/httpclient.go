// Package exchange содержит клиент спотовой биржи MEXC для стратегии накопления.
package exchange

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// HTTPClientConfig содержит настройки транспорта для REST запросов к бирже
type HTTPClientConfig struct {
	// Таймауты соединения
	ConnectTimeout time.Duration // таймаут установки TCP соединения (default: 5s)
	ReadTimeout    time.Duration // таймаут ожидания заголовков ответа (default: 10s)
	TotalTimeout   time.Duration // общий таймаут запроса (default: 30s)

	// Connection pooling
	MaxIdleConns        int           // максимум idle соединений (default: 20)
	MaxIdleConnsPerHost int           // максимум idle соединений на хост (default: 5)
	MaxConnsPerHost     int           // максимум соединений на хост (default: 10)
	IdleConnTimeout     time.Duration // таймаут простоя соединения (default: 90s)

	TLSHandshakeTimeout time.Duration // таймаут TLS handshake (default: 5s)
	KeepAliveInterval   time.Duration // интервал Keep-Alive (default: 30s)
}

// DefaultHTTPClientConfig возвращает конфигурацию по умолчанию.
// Бот делает несколько запросов раз в интервал, поэтому пул небольшой.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    10 * time.Second,
		TotalTimeout:   30 * time.Second,

		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 5,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout: 5 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// HTTPClient - http.Client с пулом соединений и детальными таймаутами
type HTTPClient struct {
	client *http.Client
	config HTTPClientConfig
}

// NewHTTPClient создаёт новый HTTP клиент с заданной конфигурацией
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: config.KeepAliveInterval,
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			// короткий deadline контекста важнее ConnectTimeout
			if deadline, ok := ctx.Deadline(); ok {
				if timeout := time.Until(deadline); timeout < config.ConnectTimeout {
					d := &net.Dialer{Timeout: timeout, KeepAlive: config.KeepAliveInterval}
					return d.DialContext(ctx, network, addr)
				}
			}
			return dialer.DialContext(ctx, network, addr)
		},

		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		MaxConnsPerHost:     config.MaxConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,

		TLSHandshakeTimeout: config.TLSHandshakeTimeout,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},

		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: config.ReadTimeout,
	}

	return &HTTPClient{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.TotalTimeout,
		},
		config: config,
	}
}

// GetClient возвращает базовый http.Client
func (hc *HTTPClient) GetClient() *http.Client {
	return hc.client
}

// GetConfig возвращает текущую конфигурацию клиента
func (hc *HTTPClient) GetConfig() HTTPClientConfig {
	return hc.config
}

// Close закрывает все idle соединения.
// Вызывается при graceful shutdown.
func (hc *HTTPClient) Close() {
	hc.client.CloseIdleConnections()
}
