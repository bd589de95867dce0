package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/repository"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// Ошибки сервиса сессий
var (
	ErrInvalidTransition    = errors.New("invalid session status transition")
	ErrControllerNotDefined = errors.New("bot controller is not configured")
)

// Ограничения параметров сессии
const (
	MaxCycleDurationDays = 365
	defaultSessionsLimit = 50
	maxSessionsLimit     = 500
)

// CreateSessionRequest - запрос на создание торговой сессии
type CreateSessionRequest struct {
	Name              string  `json:"session_name"`
	InitialCapital    float64 `json:"initial_capital"`
	CycleDurationDays int     `json:"cycle_duration_days,omitempty"`
}

// UpdateSessionRequest - частичное обновление сессии.
// Status принимает только active и paused, завершение идёт через Complete.
type UpdateSessionRequest struct {
	Name              *string `json:"session_name,omitempty"`
	Status            *string `json:"status,omitempty"`
	CycleDurationDays *int    `json:"cycle_duration_days,omitempty"`
}

// SessionDetails - сессия вместе с её сделками
type SessionDetails struct {
	*models.TradingSession
	Trades []*models.Trade `json:"trades"`
}

// SessionService предоставляет бизнес-логику для управления торговыми сессиями.
//
// Отвечает за:
// - Создание сессии (одновременно активна не более одной)
// - Переименование, паузу и возобновление по правилам переходов статусов
// - Завершение активной сессии с итоговым отчётом
//
// Изменения активной сессии записываются под мьютексом сессии через
// BotController.ReleaseSession: цикл стратегии не перезапишет их своим снимком.
type SessionService struct {
	sessionRepo SessionRepositoryInterface
	tradeRepo   TradeRepositoryInterface
	controller  BotController
	logger      *utils.Logger
	now         func() time.Time
}

// NewSessionService создает новый экземпляр SessionService.
// controller может быть nil (CLI), тогда Complete недоступен.
func NewSessionService(sessionRepo SessionRepositoryInterface, tradeRepo TradeRepositoryInterface, controller BotController) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		tradeRepo:   tradeRepo,
		controller:  controller,
		logger:      utils.L().WithComponent("session-service"),
		now:         time.Now,
	}
}

// List возвращает сессии от новых к старым (по умолчанию 50, максимум 500)
func (s *SessionService) List(ctx context.Context, limit, offset int) ([]*models.TradingSession, error) {
	if limit <= 0 {
		limit = defaultSessionsLimit
	}
	if limit > maxSessionsLimit {
		limit = maxSessionsLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.sessionRepo.List(ctx, limit, offset)
}

// Get возвращает сессию со всеми её сделками
func (s *SessionService) Get(ctx context.Context, id int64) (*SessionDetails, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	trades, err := s.tradeRepo.GetBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}
	if trades == nil {
		trades = []*models.Trade{}
	}
	return &SessionDetails{TradingSession: session, Trades: trades}, nil
}

// Create создает активную сессию.
//
// Правила валидации:
// - initial_capital > 0
// - cycle_duration_days: 1..365, 0 означает 30 дней
// - пустое имя заменяется на "Session YYYY-MM-DD"
//
// Если активная сессия уже есть - repository.ErrActiveSessionExists.
func (s *SessionService) Create(ctx context.Context, req *CreateSessionRequest) (*models.TradingSession, error) {
	var errs utils.ValidationErrors
	if req.InitialCapital <= 0 {
		errs.Add("initial_capital", "must be positive")
	}
	if req.CycleDurationDays < 0 || req.CycleDurationDays > MaxCycleDurationDays {
		errs.Add("cycle_duration_days", fmt.Sprintf("must be 1..%d", MaxCycleDurationDays))
	}
	if errs.HasErrors() {
		return nil, errs
	}

	if _, err := s.sessionRepo.GetActive(ctx); err == nil {
		return nil, repository.ErrActiveSessionExists
	} else if !errors.Is(err, repository.ErrSessionNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Session " + now.Format("2006-01-02")
	}

	session := models.NewTradingSession(name, req.InitialCapital, req.CycleDurationDays, now)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Session created",
		utils.SessionID(session.ID),
		utils.Amount(session.InitialCapital),
		utils.Int("cycle_duration_days", session.CycleDurationDays),
	)
	return session, nil
}

// Update переименовывает сессию, меняет длительность или статус.
//
// Переходы статусов:
// - active → paused: сессия отвязывается от движка
// - paused → active: только если другой активной сессии нет
// - completed: изменения статуса запрещены
func (s *SessionService) Update(ctx context.Context, id int64, req *UpdateSessionRequest) (*models.TradingSession, error) {
	current, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		errs   utils.ValidationErrors
		name   string
		status string
	)
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			errs.Add("session_name", "must not be empty")
		}
	}
	if req.CycleDurationDays != nil {
		if *req.CycleDurationDays < 1 || *req.CycleDurationDays > MaxCycleDurationDays {
			errs.Add("cycle_duration_days", fmt.Sprintf("must be 1..%d", MaxCycleDurationDays))
		}
	}
	if req.Status != nil {
		status = strings.ToLower(strings.TrimSpace(*req.Status))
		if status != models.SessionStatusActive && status != models.SessionStatusPaused {
			errs.Add("status", "must be active or paused")
		}
	}
	if errs.HasErrors() {
		return nil, errs
	}

	// Строка перечитывается под блокировкой сессии: пока запрос ждал,
	// цикл мог обновить капитал или завершить сессию.
	var updated *models.TradingSession
	persist := func() error {
		session, err := s.sessionRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Status != nil && status != session.Status {
			if !bot.CanTransition(session.Status, status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, session.Status, status)
			}
			if status == models.SessionStatusActive {
				if err := s.ensureNoOtherActive(ctx, id); err != nil {
					return err
				}
			}
			session.Status = status
		}
		if req.Name != nil {
			session.Name = name
		}
		if req.CycleDurationDays != nil {
			session.CycleDurationDays = *req.CycleDurationDays
		}
		session.UpdatedAt = s.now().UTC()

		if err := s.sessionRepo.Update(ctx, session); err != nil {
			return err
		}
		updated = session
		return nil
	}

	if current.IsActive() && s.controller != nil {
		err = s.controller.ReleaseSession(id, persist)
	} else {
		err = persist()
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session updated", utils.SessionID(id), utils.State(updated.Status))
	return updated, nil
}

// Complete завершает активную сессию и возвращает итоговый отчёт.
// Приостановленную или завершённую сессию завершить нельзя (bot.ErrSessionNotActive).
func (s *SessionService) Complete(ctx context.Context, id int64) (*bot.CycleReport, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, bot.ErrSessionNotActive
	}
	if s.controller == nil {
		return nil, ErrControllerNotDefined
	}
	return s.controller.CompleteSession(ctx)
}

func (s *SessionService) ensureNoOtherActive(ctx context.Context, id int64) error {
	active, err := s.sessionRepo.GetActive(ctx)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if active.ID != id {
		return repository.ErrActiveSessionExists
	}
	return nil
}
