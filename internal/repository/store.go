package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/crypto"
)

// Store объединяет репозитории и реализует хранилище, нужное торговому ядру
type Store struct {
	Sessions      *SessionRepository
	Trades        *TradeRepository
	Configs       *ConfigRepository
	Notifications *NotificationRepository
}

// NewStore создает все репозитории поверх одного пула соединений
func NewStore(db *sql.DB, box *crypto.Box) *Store {
	return &Store{
		Sessions:      NewSessionRepository(db),
		Trades:        NewTradeRepository(db),
		Configs:       NewConfigRepository(db, box),
		Notifications: NewNotificationRepository(db),
	}
}

// GetActiveSession возвращает активную сессию или nil, если её нет
func (s *Store) GetActiveSession(ctx context.Context) (*models.TradingSession, error) {
	session, err := s.Sessions.GetActive(ctx)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	return session, err
}

// GetActiveConfig возвращает активную конфигурацию или nil, если её нет
func (s *Store) GetActiveConfig(ctx context.Context) (*models.BotConfig, error) {
	cfg, err := s.Configs.GetActive(ctx)
	if errors.Is(err, ErrConfigNotFound) {
		return nil, nil
	}
	return cfg, err
}

// CreateTrade сохраняет сделку (идемпотентно по order_id)
func (s *Store) CreateTrade(ctx context.Context, t *models.Trade) error {
	return s.Trades.Create(ctx, t)
}

// GetTradesBySession возвращает сделки сессии
func (s *Store) GetTradesBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error) {
	return s.Trades.GetBySession(ctx, sessionID)
}

// UpdateSession сохраняет метрики и статус сессии
func (s *Store) UpdateSession(ctx context.Context, session *models.TradingSession) error {
	return s.Sessions.Update(ctx, session)
}

// CreateNotification записывает событие в журнал
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.Notifications.Create(ctx, n)
}
