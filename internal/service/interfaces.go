package service

import (
	"context"
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/repository"
)

// SessionRepositoryInterface определяет интерфейс репозитория торговых сессий
type SessionRepositoryInterface interface {
	Create(ctx context.Context, s *models.TradingSession) error
	GetByID(ctx context.Context, id int64) (*models.TradingSession, error)
	GetActive(ctx context.Context) (*models.TradingSession, error)
	List(ctx context.Context, limit, offset int) ([]*models.TradingSession, error)
	Update(ctx context.Context, s *models.TradingSession) error
	UpdateStatus(ctx context.Context, id int64, status string, endDate *time.Time) error
	CountActive(ctx context.Context) (int, error)
}

// TradeRepositoryInterface определяет интерфейс репозитория сделок
type TradeRepositoryInterface interface {
	GetBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error)
	CountBySession(ctx context.Context, sessionID int64) (int, error)
}

// ConfigRepositoryInterface определяет интерфейс репозитория конфигураций бота
type ConfigRepositoryInterface interface {
	Create(ctx context.Context, c *models.BotConfig) error
	GetByID(ctx context.Context, id int64) (*models.BotConfig, error)
	GetByName(ctx context.Context, name string) (*models.BotConfig, error)
	GetActive(ctx context.Context) (*models.BotConfig, error)
	List(ctx context.Context) ([]*models.BotConfig, error)
	Update(ctx context.Context, c *models.BotConfig) error
	Delete(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) error
}

// NotificationRepositoryInterface определяет интерфейс репозитория уведомлений
type NotificationRepositoryInterface interface {
	GetRecent(ctx context.Context, limit int) ([]*models.Notification, error)
	GetByTypes(ctx context.Context, types []string, limit int) ([]*models.Notification, error)
	DeleteAll(ctx context.Context) error
	DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ SessionRepositoryInterface = (*repository.SessionRepository)(nil)
var _ TradeRepositoryInterface = (*repository.TradeRepository)(nil)
var _ ConfigRepositoryInterface = (*repository.ConfigRepository)(nil)
var _ NotificationRepositoryInterface = (*repository.NotificationRepository)(nil)

// BotController - управление планировщиком бота, нужное сервисам и API
type BotController interface {
	Start(ctx context.Context) error
	Stop() error
	Status() bot.Status
	ForceCycle(ctx context.Context) (*bot.CycleResult, error)
	Preview(ctx context.Context) (*bot.MarketData, bot.Signal, error)
	MarketData(ctx context.Context) (*bot.MarketData, error)
	RiskAssessment(ctx context.Context) (*bot.RiskAssessment, error)
	Balances(ctx context.Context) (*bot.Balances, error)
	CompleteSession(ctx context.Context) (*bot.CycleReport, error)
	ReleaseSession(sessionID int64, persist func() error) error
}

var _ BotController = (*bot.Scheduler)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// ConfigServiceInterface определяет интерфейс сервиса конфигураций
type ConfigServiceInterface interface {
	List(ctx context.Context) ([]*models.BotConfig, error)
	Get(ctx context.Context, id int64) (*models.BotConfig, error)
	Create(ctx context.Context, req *CreateConfigRequest) (*models.BotConfig, error)
	Update(ctx context.Context, id int64, req *UpdateConfigRequest) (*models.BotConfig, error)
	Delete(ctx context.Context, id int64) error
	Activate(ctx context.Context, id int64) (*models.BotConfig, error)
	CreateFromEnv(ctx context.Context, name string) (*FromEnvResult, error)
	ValidateCredentials(ctx context.Context, id int64) (*CredentialsCheck, error)
}

// SessionServiceInterface определяет интерфейс сервиса торговых сессий
type SessionServiceInterface interface {
	List(ctx context.Context, limit, offset int) ([]*models.TradingSession, error)
	Get(ctx context.Context, id int64) (*SessionDetails, error)
	Create(ctx context.Context, req *CreateSessionRequest) (*models.TradingSession, error)
	Update(ctx context.Context, id int64, req *UpdateSessionRequest) (*models.TradingSession, error)
	Complete(ctx context.Context, id int64) (*bot.CycleReport, error)
}

// NotificationServiceInterface определяет интерфейс сервиса уведомлений
type NotificationServiceInterface interface {
	GetNotifications(ctx context.Context, types []string, limit int) ([]*models.Notification, error)
	ClearNotifications(ctx context.Context) error
	CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ ConfigServiceInterface = (*ConfigService)(nil)
var _ SessionServiceInterface = (*SessionService)(nil)
var _ NotificationServiceInterface = (*NotificationService)(nil)
