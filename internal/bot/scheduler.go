package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// SchedulerConfig - тайминги планировщика
type SchedulerConfig struct {
	// Ожидание после ошибки в цикле вместо обычного интервала
	ErrorBackoff time.Duration

	// Сколько Stop ждёт завершения цикла
	StopTimeout time.Duration

	// Лимиты риск-менеджера
	Risk RiskConfig
}

// DefaultSchedulerConfig возвращает конфигурацию по умолчанию
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ErrorBackoff: 60 * time.Second,
		StopTimeout:  10 * time.Second,
		Risk:         DefaultRiskConfig(),
	}
}

// Status - диагностический снимок планировщика
type Status struct {
	Running         bool       `json:"is_running"`
	HasSession      bool       `json:"has_active_session"`
	HasConfig       bool       `json:"config_active"`
	LoopAlive       bool       `json:"loop_alive"`
	SessionID       *int64     `json:"session_id,omitempty"`
	Symbol          string     `json:"symbol,omitempty"`
	IntervalMinutes int        `json:"interval_minutes,omitempty"`
	LastCycleAt     *time.Time `json:"last_cycle_at,omitempty"`
	LastError       string     `json:"last_error,omitempty"`
}

// Scheduler управляет жизненным циклом бота: запуск, остановка, циклы по интервалу,
// аварийная остановка сессии и принудительный цикл.
//
// Создаётся в cmd/server и передаётся в API, глобального экземпляра нет.
type Scheduler struct {
	store   Store
	factory exchange.Factory
	hub     Broadcaster
	config  SchedulerConfig
	locks   *SessionLocks
	logger  *utils.Logger

	mu        sync.Mutex
	running   bool
	botConfig *models.BotConfig
	engine    *Engine
	stopCh    chan struct{}
	done      chan struct{}
	lastCycle time.Time
	lastErr   string
}

// NewScheduler создает планировщик. hub может быть nil.
func NewScheduler(store Store, factory exchange.Factory, hub Broadcaster, config SchedulerConfig) *Scheduler {
	def := DefaultSchedulerConfig()
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = def.ErrorBackoff
	}
	if config.StopTimeout <= 0 {
		config.StopTimeout = def.StopTimeout
	}
	if config.Risk == (RiskConfig{}) {
		config.Risk = def.Risk
	}

	return &Scheduler{
		store:   store,
		factory: factory,
		hub:     hub,
		config:  config,
		locks:   NewSessionLocks(),
		logger:  utils.L().WithComponent("scheduler"),
	}
}

// ============================================================
// Запуск и остановка
// ============================================================

// Start загружает активную конфигурацию, создаёт клиента биржи и движок
// и запускает цикл в отдельной горутине. Отсутствие активной сессии не ошибка:
// цикл будет ждать её появления.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	engine, cfg, err := s.buildEngine(ctx)
	if err != nil {
		return err
	}

	if session, err := engine.LoadActiveSession(ctx); err != nil {
		s.logger.Warn("Failed to load active session", utils.Err(err))
	} else if session == nil {
		s.logger.Warn("No active session found, bot will wait for session creation")
	}

	s.botConfig = cfg
	s.engine = engine
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	s.lastErr = ""

	// цикл не должен завершаться вместе с контекстом HTTP запроса
	go s.loop(context.WithoutCancel(ctx), engine, cfg.Interval(), s.stopCh, s.done)

	UpdateSchedulerState(true)
	s.logger.Info("Bot scheduler started",
		utils.Symbol(cfg.Symbol),
		utils.Int("interval_minutes", cfg.TradingIntervalMinutes),
	)
	return nil
}

// Stop сигнализирует циклу остановиться и ждёт его не дольше StopTimeout.
// Цикл, который уже выполняется, не прерывается.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	close(s.stopCh)
	done := s.done
	s.running = false
	s.mu.Unlock()

	UpdateSchedulerState(false)

	timer := time.NewTimer(s.config.StopTimeout)
	defer timer.Stop()

	select {
	case <-done:
		s.logger.Info("Bot scheduler stopped")
		return nil
	case <-timer.C:
		s.logger.Warn("Bot scheduler loop did not exit in time", utils.Dur("timeout", s.config.StopTimeout))
		return ErrStopTimeout
	}
}

// buildEngine создаёт движок по активной конфигурации
func (s *Scheduler) buildEngine(ctx context.Context) (*Engine, *models.BotConfig, error) {
	cfg, err := s.store.GetActiveConfig(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load active config: %w", err)
	}
	if cfg == nil {
		return nil, nil, ErrNoActiveConfig
	}

	client, err := s.factory(exchange.Credentials{APIKey: cfg.APIKey, APISecret: cfg.APISecret})
	if err != nil {
		return nil, nil, fmt.Errorf("create exchange client: %w", err)
	}

	engine := NewEngine(cfg, client, s.store, EngineOptions{
		Locks:       s.locks,
		Broadcaster: s.hub,
		Risk:        s.config.Risk,
	})
	return engine, cfg, nil
}

// ============================================================
// Цикл
// ============================================================

// loop выполняет проходы до сигнала остановки. После ошибки ждёт ErrorBackoff.
func (s *Scheduler) loop(ctx context.Context, engine *Engine, interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer engine.Close()
	s.logger.Info("Bot scheduler loop started")

	for {
		select {
		case <-stop:
			return
		default:
		}

		wait := interval
		if err := s.pass(ctx, engine); err != nil {
			s.logger.Error("Error in scheduler loop", utils.Err(err), utils.Dur("backoff", s.config.ErrorBackoff))
			s.recordError(ctx, engine, err)
			wait = s.config.ErrorBackoff
		}

		timer := time.NewTimer(wait)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pass - один проход цикла: сессия → цикл стратегии → завершение → аварийная остановка
func (s *Scheduler) pass(ctx context.Context, engine *Engine) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in strategy cycle: %v", r)
		}
	}()

	if engine.Session() == nil {
		session, err := engine.LoadActiveSession(ctx)
		if err != nil {
			return err
		}
		if session == nil {
			s.logger.Debug("No active session found, waiting")
			return nil
		}
	}

	result, err := engine.RunStrategyCycle(ctx)
	if err != nil {
		if errors.Is(err, ErrNoActiveSession) || errors.Is(err, ErrSessionNotActive) {
			// сессию завершили или остановили через API
			engine.UnbindSession()
			return nil
		}
		return err
	}
	s.afterCycle(result)

	if result.CycleComplete {
		report, err := engine.CompleteTradingCycle(ctx)
		if err != nil {
			return fmt.Errorf("complete trading cycle: %w", err)
		}
		s.logger.Info("Trading cycle completed",
			utils.SessionID(report.SessionID),
			utils.Float64("total_value", report.TotalValue),
			utils.Bool("capital_preserved", report.CapitalPreserved),
		)
		engine.UnbindSession()
	}

	if engine.Session() != nil {
		decision := engine.CheckEmergencyStop(ctx)
		if decision.Stop {
			if err := engine.EmergencyPause(ctx, decision.Reason); err != nil {
				return err
			}
			engine.UnbindSession()
		}
	}
	return nil
}

// afterCycle логирует и рассылает результат цикла
func (s *Scheduler) afterCycle(result *CycleResult) {
	s.mu.Lock()
	s.lastCycle = result.Timestamp
	s.lastErr = ""
	s.mu.Unlock()

	fields := []utils.Field{
		utils.Action(string(result.Signal.Action())),
		utils.Reason(result.Signal.Why()),
		utils.Sentiment(string(result.Market.Sentiment)),
	}
	if result.Trade != nil {
		fields = append(fields, utils.OrderID(result.Trade.OrderID))
	}
	s.logger.Info("Strategy cycle completed", fields...)

	if s.hub != nil {
		s.hub.BroadcastCycleResult(result)
	}
}

func (s *Scheduler) recordError(ctx context.Context, engine *Engine, cycleErr error) {
	s.mu.Lock()
	s.lastErr = cycleErr.Error()
	s.mu.Unlock()

	var sessionID *int64
	if session := engine.Session(); session != nil {
		sessionID = &session.ID
	}
	n := models.NewNotification(models.NotificationTypeError, models.SeverityError, sessionID, cycleErr.Error(), nil)
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Warn("Failed to record notification", utils.Err(err))
	}
	if s.hub != nil {
		s.hub.BroadcastNotification(n)
	}
}

// ============================================================
// Статус и ручное управление
// ============================================================

// Status возвращает снимок состояния без побочных эффектов
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:   s.running,
		HasConfig: s.botConfig != nil,
		LastError: s.lastErr,
	}
	if s.botConfig != nil {
		st.Symbol = s.botConfig.Symbol
		st.IntervalMinutes = s.botConfig.TradingIntervalMinutes
	}
	if s.engine != nil {
		if session := s.engine.Session(); session != nil {
			st.HasSession = true
			st.SessionID = &session.ID
		}
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			st.LoopAlive = true
		}
	}
	if !s.lastCycle.IsZero() {
		t := s.lastCycle
		st.LastCycleAt = &t
	}
	return st
}

// ForceCycle синхронно выполняет один цикл в горутине вызывающего.
// С циклом по расписанию сериализуется мьютексом сессии.
func (s *Scheduler) ForceCycle(ctx context.Context) (*CycleResult, error) {
	var result *CycleResult
	err := s.withEngine(ctx, true, func(engine *Engine) error {
		var err error
		result, err = engine.RunStrategyCycle(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterCycle(result)
	return result, nil
}

// Preview - рынок и сигнал без исполнения
func (s *Scheduler) Preview(ctx context.Context) (*MarketData, Signal, error) {
	var (
		md  *MarketData
		sig Signal
	)
	err := s.withEngine(ctx, true, func(engine *Engine) error {
		var err error
		md, sig, err = engine.Preview(ctx)
		return err
	})
	return md, sig, err
}

// MarketData возвращает текущий анализ рынка
func (s *Scheduler) MarketData(ctx context.Context) (*MarketData, error) {
	var md *MarketData
	err := s.withEngine(ctx, true, func(engine *Engine) error {
		var err error
		md, err = engine.AnalyzeMarketConditions(ctx)
		return err
	})
	return md, err
}

// RiskAssessment возвращает оценку риска активной сессии
func (s *Scheduler) RiskAssessment(ctx context.Context) (*RiskAssessment, error) {
	var a *RiskAssessment
	err := s.withEngine(ctx, true, func(engine *Engine) error {
		var err error
		a, err = engine.Assess(ctx)
		return err
	})
	return a, err
}

// Balances возвращает балансы пары по активной конфигурации
func (s *Scheduler) Balances(ctx context.Context) (*Balances, error) {
	var b *Balances
	err := s.withEngine(ctx, false, func(engine *Engine) error {
		var err error
		b, err = engine.Balances(ctx)
		return err
	})
	return b, err
}

// CompleteSession завершает активную сессию и отвязывает её от движка
func (s *Scheduler) CompleteSession(ctx context.Context) (*CycleReport, error) {
	var report *CycleReport
	err := s.withEngine(ctx, true, func(engine *Engine) error {
		var err error
		report, err = engine.CompleteTradingCycle(ctx)
		if err == nil {
			engine.UnbindSession()
		}
		return err
	})
	return report, err
}

// ReleaseSession под мьютексом сессии выполняет persist (например, запись
// статуса paused оператором) и отвязывает сессию от работающего движка.
// Цикл, начатый до вызова, успевает завершиться и не перезапишет статус.
func (s *Scheduler) ReleaseSession(sessionID int64, persist func() error) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if persist != nil {
		if err := persist(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	engine := s.engine
	running := s.running
	s.mu.Unlock()

	if running && engine != nil {
		if current := engine.Session(); current != nil && current.ID == sessionID {
			engine.UnbindSession()
			s.logger.Info("Session released", utils.SessionID(sessionID))
		}
	}
	return nil
}

// withEngine выполняет fn на движке работающего планировщика или,
// если планировщик остановлен, на разовом движке по активной конфигурации.
// needSession требует привязанную активную сессию.
func (s *Scheduler) withEngine(ctx context.Context, needSession bool, fn func(engine *Engine) error) error {
	s.mu.Lock()
	engine := s.engine
	if !s.running {
		engine = nil
	}
	s.mu.Unlock()

	if engine == nil {
		var err error
		engine, _, err = s.buildEngine(ctx)
		if err != nil {
			return err
		}
		defer engine.Close()
	}

	if needSession {
		session, err := engine.LoadActiveSession(ctx)
		if err != nil {
			return err
		}
		if session == nil {
			return ErrNoActiveSession
		}
	}
	return fn(engine)
}
