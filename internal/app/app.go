// Package app собирает инфраструктуру, общую для сервера и bagctl:
// подключение к БД, шифрование ключей, репозитории и фабрику клиентов MEXC.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/config"
	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/repository"
	"github.com/Samicowest/bag-bot/pkg/crypto"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// App - открытые ресурсы процесса
type App struct {
	Config  *config.Config
	DB      *sql.DB
	Store   *repository.Store
	Factory exchange.Factory

	httpClient *exchange.HTTPClient
	logger     *utils.Logger
}

// New подключается к БД и создаёт репозитории и фабрику клиентов биржи.
// Миграции не применяются, см. Migrate.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := utils.L().WithComponent("app")

	db, err := OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Info("Connected to database",
		utils.String("driver", cfg.Database.Driver),
		utils.String("dsn", cfg.Database.DSNWithoutPassword()),
	)

	box, err := crypto.NewBox([]byte(cfg.Security.EncryptionKey))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init encryption: %w", err)
	}

	httpClient := exchange.NewHTTPClient(exchange.DefaultHTTPClientConfig())
	factory := exchange.NewFactory(exchange.FactoryOptions{
		BaseURL:    cfg.Exchange.BaseURL,
		RateLimit:  cfg.Exchange.RateLimit,
		RecvWindow: cfg.Exchange.RecvWindow,
		Timeout:    cfg.Exchange.Timeout,
		HTTPClient: httpClient,
	})

	return &App{
		Config:     cfg,
		DB:         db,
		Store:      repository.NewStore(db, box),
		Factory:    factory,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// OpenDatabase открывает пул соединений и проверяет подключение
func OpenDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Driver == "sqlite3" {
		// SQLite допускает одного писателя
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Migrate создаёт недостающие таблицы
func (a *App) Migrate(ctx context.Context) error {
	if err := repository.Migrate(ctx, a.DB, a.Config.Database.Driver); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.logger.Info("Database schema is up to date")
	return nil
}

// SchedulerConfig - параметры планировщика из конфигурации окружения
func (a *App) SchedulerConfig() bot.SchedulerConfig {
	sc := bot.DefaultSchedulerConfig()
	if a.Config.Bot.ErrorBackoff > 0 {
		sc.ErrorBackoff = a.Config.Bot.ErrorBackoff
	}
	if a.Config.Bot.StopTimeout > 0 {
		sc.StopTimeout = a.Config.Bot.StopTimeout
	}
	return sc
}

// NewScheduler создаёт планировщик поверх хранилища процесса
func (a *App) NewScheduler(hub bot.Broadcaster) *bot.Scheduler {
	return bot.NewScheduler(a.Store, a.Factory, hub, a.SchedulerConfig())
}

// Close освобождает пул HTTP соединений и закрывает БД
func (a *App) Close() error {
	a.httpClient.Close()
	return a.DB.Close()
}
