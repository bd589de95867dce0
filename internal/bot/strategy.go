package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/retry"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// Store - хранилище, нужное торговому ядру.
// Реализуется repository.Store; отсутствие активной записи - (nil, nil).
type Store interface {
	GetActiveSession(ctx context.Context) (*models.TradingSession, error)
	GetActiveConfig(ctx context.Context) (*models.BotConfig, error)
	CreateTrade(ctx context.Context, trade *models.Trade) error
	GetTradesBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error)
	UpdateSession(ctx context.Context, session *models.TradingSession) error
	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Broadcaster - рассылка событий клиентам.
// Реализуется пакетом internal/websocket/Hub.
type Broadcaster interface {
	// BroadcastCycleResult отправляет результат цикла стратегии
	BroadcastCycleResult(result *CycleResult)

	// BroadcastNotification отправляет событие журнала
	BroadcastNotification(n *models.Notification)
}

// Параметры стратегии накопления
const (
	buyQuoteShareThreshold   = 0.8 // покупаем, когда в котируемой валюте больше 80%
	buyQuoteFraction         = 0.2 // на покупку уходит 20% котируемой валюты
	sellQuoteShareThreshold  = 0.3 // фиксируем прибыль, когда котируемой валюты меньше 30%
	minBaseValueShare        = 0.1 // базового актива минимум на 10% начального капитала
	rebalanceSellFraction    = 0.3
	bullishProfitThreshold   = 0.1
	bullishSellFraction      = 0.2
	capitalPreservationRatio = 0.95
)

const riskBlockedReason = "Trade blocked by risk management"

// CycleResult - результат одного цикла стратегии
type CycleResult struct {
	Timestamp     time.Time              `json:"timestamp"`
	Market        *MarketData            `json:"market_data"`
	Signal        Signal                 `json:"signal"`
	Trade         *models.Trade          `json:"trade,omitempty"`
	CycleComplete bool                   `json:"cycle_complete"`
	Session       *models.TradingSession `json:"session"`
	RiskReason    string                 `json:"risk_reason,omitempty"`
}

// CycleReport - итоговый отчёт завершённой сессии
type CycleReport struct {
	SessionID         int64     `json:"session_id"`
	SessionName       string    `json:"session_name"`
	InitialCapital    float64   `json:"initial_capital"`
	FinalQuote        float64   `json:"final_quote"`
	FinalBase         float64   `json:"final_base"`
	BaseValue         float64   `json:"base_value"`
	TotalValue        float64   `json:"total_value"`
	CapitalPreserved  bool      `json:"capital_preserved"`
	ProfitLoss        float64   `json:"profit_loss"`
	ProfitLossPercent float64   `json:"profit_loss_percent"`
	DurationDays      int       `json:"duration_days"`
	TotalTrades       int       `json:"total_trades"`
	CompletedAt       time.Time `json:"completed_at"`
}

// Balances - балансы торговой пары
type Balances struct {
	Quote *exchange.Balance `json:"quote"`
	Base  *exchange.Balance `json:"base"`
}

// ============================================================
// SessionLocks - single-flight по сессии
// ============================================================

// SessionLocks - таблица мьютексов по ID сессии.
// Общая для всех движков планировщика, поэтому цикл по расписанию
// и принудительный цикл одной сессии выполняются строго по очереди.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[int64]*sync.Mutex)}
}

// Lock захватывает мьютекс сессии и возвращает функцию освобождения
func (l *SessionLocks) Lock(sessionID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ============================================================
// Engine
// ============================================================

// EngineOptions - зависимости движка, общие для планировщика
type EngineOptions struct {
	Locks       *SessionLocks
	Broadcaster Broadcaster
	Risk        RiskConfig   // нулевое значение = DefaultRiskConfig()
	Persist     retry.Config // нулевое значение = retry.PersistenceConfig()
}

// Engine - движок стратегии накопления для одной конфигурации.
//
// Цикл: рынок → сигнал → проверка риска → ордер → запись сделки → метрики сессии → проверка завершения.
// Поля сессии изменяются только под мьютексом сессии из SessionLocks.
type Engine struct {
	cfg     *models.BotConfig
	client  exchange.Client
	store   Store
	risk    *RiskManager
	locks   *SessionLocks
	hub     Broadcaster
	persist retry.Config
	now     func() time.Time
	logger  *utils.Logger

	mu       sync.RWMutex
	session  *models.TradingSession
	snapshot *models.TradingSession // копия для чтения без мьютекса сессии
}

// NewEngine создает движок для конфигурации и клиента биржи
func NewEngine(cfg *models.BotConfig, client exchange.Client, store Store, opts EngineOptions) *Engine {
	if opts.Locks == nil {
		opts.Locks = NewSessionLocks()
	}
	if opts.Risk == (RiskConfig{}) {
		opts.Risk = DefaultRiskConfig()
	}
	if opts.Persist.MaxAttempts == 0 {
		opts.Persist = retry.PersistenceConfig()
	}

	return &Engine{
		cfg:     cfg,
		client:  client,
		store:   store,
		risk:    NewRiskManager(store, opts.Risk),
		locks:   opts.Locks,
		hub:     opts.Broadcaster,
		persist: opts.Persist,
		now:     time.Now,
		logger:  utils.L().WithComponent("strategy").WithSymbol(cfg.Symbol),
	}
}

// Config возвращает конфигурацию движка
func (e *Engine) Config() *models.BotConfig {
	return e.cfg
}

// Close освобождает ресурсы клиента биржи, если они есть
func (e *Engine) Close() {
	if closer, ok := e.client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Risk возвращает риск-менеджер движка
func (e *Engine) Risk() *RiskManager {
	return e.risk
}

// ============ Привязка сессии ============

// LoadActiveSession привязывает активную сессию из хранилища.
// Уже привязанная сессия не перечитывается. Отсутствие сессии - (nil, nil).
func (e *Engine) LoadActiveSession(ctx context.Context) (*models.TradingSession, error) {
	if s := e.current(); s != nil {
		return s.Clone(), nil
	}

	session, err := e.store.GetActiveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		e.session = session
		e.snapshot = session.Clone()
		e.logger.Info("Loaded active session", utils.SessionID(session.ID), utils.String("name", session.Name))
	}
	return e.snapshot.Clone(), nil
}

// BindSession привязывает сессию к движку
func (e *Engine) BindSession(session *models.TradingSession) {
	e.mu.Lock()
	e.session = session
	e.snapshot = session.Clone()
	e.mu.Unlock()
}

// UnbindSession отвязывает сессию (после завершения или аварийной паузы)
func (e *Engine) UnbindSession() {
	e.mu.Lock()
	e.session = nil
	e.snapshot = nil
	e.mu.Unlock()
}

// Session возвращает копию привязанной сессии или nil
func (e *Engine) Session() *models.TradingSession {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot.Clone()
}

func (e *Engine) current() *models.TradingSession {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session
}

// publish обновляет снимок сессии, вызывается под мьютексом сессии
func (e *Engine) publish(session *models.TradingSession) {
	e.mu.Lock()
	if e.session == session {
		e.snapshot = session.Clone()
	}
	e.mu.Unlock()
}

// withSession выполняет fn под мьютексом привязанной сессии.
// Если сессию отвязали, пока ждали мьютекс, возвращает ErrNoActiveSession.
func (e *Engine) withSession(fn func(session *models.TradingSession) error) error {
	session := e.current()
	if session == nil {
		return ErrNoActiveSession
	}

	unlock := e.locks.Lock(session.ID)
	defer unlock()

	if e.current() != session {
		return ErrNoActiveSession
	}
	return fn(session)
}

// ============ Анализ рынка ============

// AnalyzeMarketConditions получает тикер за 24ч и стакан, считает спред и настроение рынка
func (e *Engine) AnalyzeMarketConditions(ctx context.Context) (*MarketData, error) {
	if e.current() == nil {
		return nil, ErrNoActiveSession
	}
	return e.analyze(ctx)
}

func (e *Engine) analyze(ctx context.Context) (*MarketData, error) {
	ticker, err := e.client.Get24hTicker(ctx, e.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("get 24h ticker: %w", err)
	}
	book, err := e.client.GetOrderBook(ctx, e.cfg.Symbol, orderBookDepth)
	if err != nil {
		return nil, fmt.Errorf("get order book: %w", err)
	}

	bid, _ := book.BestBid()
	ask, _ := book.BestAsk()
	spread := utils.SpreadPercent(bid, ask)

	return &MarketData{
		Symbol:             e.cfg.Symbol,
		CurrentPrice:       ticker.LastPrice,
		PriceChangePercent: ticker.PriceChangePercent,
		Volume:             ticker.Volume,
		BestBid:            bid,
		BestAsk:            ask,
		SpreadPercent:      spread,
		Sentiment:          ClassifySentiment(ticker.PriceChangePercent, ticker.Volume, spread),
		Timestamp:          e.now().UTC(),
	}, nil
}

// ============ Сигнал ============

// GenerateTradingSignal получает балансы и применяет правила стратегии накопления
func (e *Engine) GenerateTradingSignal(ctx context.Context, md *MarketData) (Signal, error) {
	session := e.current()
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return e.generateSignal(ctx, session, md)
}

func (e *Engine) generateSignal(ctx context.Context, session *models.TradingSession, md *MarketData) (Signal, error) {
	balances, err := e.balances(ctx)
	if err != nil {
		return nil, err
	}

	sig := decideSignal(portfolio{
		Quote:          balances.Quote.Total,
		Base:           balances.Base.Total,
		Price:          md.CurrentPrice,
		InitialCapital: session.InitialCapital,
		Sentiment:      md.Sentiment,
	}, e.cfg)

	RecordSignal(sig.Action(), md.Sentiment)
	return sig, nil
}

// portfolio - входные данные правил стратегии
type portfolio struct {
	Quote          float64
	Base           float64
	Price          float64
	InitialCapital float64
	Sentiment      Sentiment
}

// decideSignal - правила стратегии накопления, порядок проверок важен:
// покупка проверяется раньше фиксации прибыли, и если условие покупки
// выполнено, но сумма меньше минимальной, результат - Hold.
func decideSignal(p portfolio, cfg *models.BotConfig) Signal {
	quoteAsset, baseAsset := cfg.QuoteAsset(), cfg.BaseAsset()

	baseValue := p.Base * p.Price
	total := p.Quote + baseValue
	quoteShare := utils.Ratio(p.Quote, total)
	baseShare := utils.Ratio(baseValue, total)

	switch {
	case quoteShare > buyQuoteShareThreshold && p.Sentiment.allowsAccumulation():
		amount := utils.Min(p.Quote*buyQuoteFraction, cfg.MaxOrderSize)
		if amount >= cfg.MinOrderSize {
			return Buy{
				QuoteAmount: amount,
				Reason: fmt.Sprintf("Bagging opportunity: %s market, %s allocation: %.1f%%",
					p.Sentiment, quoteAsset, quoteShare*100),
			}
		}

	case quoteShare < sellQuoteShareThreshold && p.Base > 0:
		if baseValue > p.InitialCapital*minBaseValueShare {
			return Sell{
				BaseAmount: p.Base * rebalanceSellFraction,
				Reason: fmt.Sprintf("Profit taking: Low %s allocation (%.1f%%), %s value: $%.2f",
					quoteAsset, quoteShare*100, baseAsset, baseValue),
			}
		}

	case p.Sentiment == SentimentStrongBullish && p.Base > 0:
		profit := utils.Ratio(total-p.InitialCapital, p.InitialCapital)
		if profit > bullishProfitThreshold {
			return Sell{
				BaseAmount: p.Base * bullishSellFraction,
				Reason:     fmt.Sprintf("Strong bullish market profit taking: %.1f%% profit", profit*100),
			}
		}
	}

	return Hold{
		Reason: fmt.Sprintf("No trading signal: %s %.1f%%, %s %.1f%%, Sentiment: %s",
			quoteAsset, quoteShare*100, baseAsset, baseShare*100, p.Sentiment),
	}
}

// ============ Исполнение ============

// ExecuteTrade исполняет сигнал рыночным ордером и сохраняет сделку.
// Hold - (nil, nil).
func (e *Engine) ExecuteTrade(ctx context.Context, signal Signal) (*models.Trade, error) {
	var trade *models.Trade
	err := e.withSession(func(session *models.TradingSession) error {
		var err error
		trade, err = e.executeTrade(ctx, session, signal)
		return err
	})
	return trade, err
}

func (e *Engine) executeTrade(ctx context.Context, session *models.TradingSession, signal Signal) (*models.Trade, error) {
	switch s := signal.(type) {
	case nil, Hold:
		return nil, nil
	case Buy:
		qty, err := e.client.CalculateOrderSize(ctx, e.cfg.Symbol, s.QuoteAmount)
		if err != nil {
			return nil, fmt.Errorf("calculate order size: %w", err)
		}
		return e.placeOrder(ctx, session, exchange.SideBuy, qty)
	case Sell:
		return e.placeOrder(ctx, session, exchange.SideSell, s.BaseAmount)
	default:
		return nil, fmt.Errorf("unknown signal %T", signal)
	}
}

// placeOrder округляет количество вниз до шага лота, проверяет минимум,
// размещает рыночный ордер и сохраняет сделку с повторами.
// Ордер на бирже - основной побочный эффект; запись идемпотентна по order_id.
func (e *Engine) placeOrder(ctx context.Context, session *models.TradingSession, side string, qty float64) (*models.Trade, error) {
	limits, err := e.client.GetMinimumOrderSize(ctx, e.cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("get minimum order size: %w", err)
	}

	qty = utils.RoundToLotSize(qty, limits.QtyStep)
	if qty <= 0 || qty < limits.MinOrderQty {
		return nil, &OrderSizeError{Quantity: qty, MinQty: limits.MinOrderQty}
	}

	req := exchange.OrderRequest{
		Symbol:        e.cfg.Symbol,
		Side:          side,
		Type:          exchange.OrderTypeMarket,
		Quantity:      qty,
		ClientOrderID: exchange.NewClientOrderID(),
	}

	start := time.Now()
	order, err := e.client.PlaceOrder(ctx, req)
	RecordOrderLatency(e.client.GetName(), side, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		RecordTrade(e.cfg.Symbol, side, "failed")
		return nil, fmt.Errorf("place %s order: %w", side, err)
	}

	trade := e.tradeFromOrder(session, req, order)

	err = retry.Do(ctx, func() error {
		return e.store.CreateTrade(ctx, trade)
	}, e.persist)
	if err != nil {
		RecordTrade(e.cfg.Symbol, side, "unpersisted")
		e.logger.Error("Order placed but trade record not saved",
			utils.OrderID(order.OrderID),
			utils.Side(side),
			utils.Quantity(qty),
			utils.Err(err),
		)
		return trade, fmt.Errorf("order %s placed but not persisted: %w", order.OrderID, err)
	}

	RecordTrade(e.cfg.Symbol, side, "success")
	e.logger.Info("Order executed",
		utils.SessionID(session.ID),
		utils.OrderID(trade.OrderID),
		utils.Side(side),
		utils.Quantity(qty),
		utils.String("status", trade.Status),
	)
	e.notify(ctx, models.NotificationTypeTrade, models.SeverityInfo, session.ID,
		fmt.Sprintf("%s %s %s", side, utils.FormatDecimal(qty), e.cfg.Symbol),
		map[string]interface{}{
			"order_id": trade.OrderID,
			"side":     side,
			"quantity": qty,
			"status":   trade.Status,
		})

	return trade, nil
}

func (e *Engine) tradeFromOrder(session *models.TradingSession, req exchange.OrderRequest, order *exchange.Order) *models.Trade {
	trade := &models.Trade{
		SessionID:        session.ID,
		OrderID:          order.OrderID,
		ClientOrderID:    req.ClientOrderID,
		Symbol:           req.Symbol,
		Side:             req.Side,
		OrderType:        models.OrderTypeMarket,
		Quantity:         req.Quantity,
		Price:            order.Price,
		ExecutedQuantity: order.ExecutedQty,
		Status:           order.Status,
		Timestamp:        e.now().UTC(),
	}
	if order.ClientOrderID != "" {
		trade.ClientOrderID = order.ClientOrderID
	}
	if trade.Status == "" {
		trade.Status = models.TradeStatusNew
	}
	if trade.Status == models.TradeStatusFilled && order.Price > 0 {
		price := order.Price
		trade.ExecutedPrice = &price
	}
	if !order.TransactTime.IsZero() {
		ts := order.TransactTime
		trade.ExchangeTimestamp = &ts
	}
	return trade
}

// ============ Метрики сессии ============

// UpdateSessionMetrics обновляет капитал и накопленные токены сессии по балансам биржи.
// Без сессии ничего не делает.
func (e *Engine) UpdateSessionMetrics(ctx context.Context) error {
	err := e.withSession(func(session *models.TradingSession) error {
		return e.updateMetrics(ctx, session)
	})
	if errors.Is(err, ErrNoActiveSession) {
		return nil
	}
	return err
}

func (e *Engine) updateMetrics(ctx context.Context, session *models.TradingSession) error {
	balances, err := e.balances(ctx)
	if err != nil {
		return err
	}

	session.CurrentCapital = balances.Quote.Total
	session.AccumulatedTokens = balances.Base.Total
	session.UpdatedAt = e.now().UTC()

	if err := e.store.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("update session metrics: %w", err)
	}
	e.publish(session)
	UpdateSessionHoldings(session.CurrentCapital, session.AccumulatedTokens)
	return nil
}

// Balances возвращает балансы котируемого и базового актива
func (e *Engine) Balances(ctx context.Context) (*Balances, error) {
	return e.balances(ctx)
}

func (e *Engine) balances(ctx context.Context) (*Balances, error) {
	quote, err := e.client.GetBalance(ctx, e.cfg.QuoteAsset())
	if err != nil {
		return nil, fmt.Errorf("get %s balance: %w", e.cfg.QuoteAsset(), err)
	}
	base, err := e.client.GetBalance(ctx, e.cfg.BaseAsset())
	if err != nil {
		return nil, fmt.Errorf("get %s balance: %w", e.cfg.BaseAsset(), err)
	}
	return &Balances{Quote: quote, Base: base}, nil
}

// ============ Завершение сессии ============

// CheckCycleCompletion - истекла длительность сессии или котируемый капитал
// не ниже 95% начального. Без сессии - false.
func (e *Engine) CheckCycleCompletion() bool {
	complete := false
	_ = e.withSession(func(session *models.TradingSession) error {
		complete = e.checkCompletion(session)
		return nil
	})
	return complete
}

func (e *Engine) checkCompletion(session *models.TradingSession) bool {
	if !e.now().Before(session.PlannedEnd()) {
		return true
	}
	return session.CurrentCapital >= session.InitialCapital*capitalPreservationRatio
}

// CompleteTradingCycle обновляет метрики, завершает сессию и возвращает отчёт.
// Повторное завершение возвращает ErrSessionNotActive.
func (e *Engine) CompleteTradingCycle(ctx context.Context) (*CycleReport, error) {
	var report *CycleReport
	err := e.withSession(func(session *models.TradingSession) error {
		if !CanTransition(session.Status, models.SessionStatusCompleted) {
			return ErrSessionNotActive
		}

		if err := e.updateMetrics(ctx, session); err != nil {
			return err
		}
		price, err := e.client.GetTickerPrice(ctx, e.cfg.Symbol)
		if err != nil {
			return fmt.Errorf("get ticker price: %w", err)
		}
		trades, err := e.store.GetTradesBySession(ctx, session.ID)
		if err != nil {
			return fmt.Errorf("load trades: %w", err)
		}

		now := e.now().UTC()
		prevStatus := session.Status
		session.Status = models.SessionStatusCompleted
		session.EndDate = &now
		session.UpdatedAt = now
		if err := e.store.UpdateSession(ctx, session); err != nil {
			session.Status = prevStatus
			session.EndDate = nil
			return fmt.Errorf("complete session: %w", err)
		}
		e.publish(session)

		baseValue := session.AccumulatedTokens * price
		total := session.CurrentCapital + baseValue
		report = &CycleReport{
			SessionID:         session.ID,
			SessionName:       session.Name,
			InitialCapital:    session.InitialCapital,
			FinalQuote:        session.CurrentCapital,
			FinalBase:         session.AccumulatedTokens,
			BaseValue:         baseValue,
			TotalValue:        total,
			CapitalPreserved:  session.CurrentCapital >= session.InitialCapital*capitalPreservationRatio,
			ProfitLoss:        total - session.InitialCapital,
			ProfitLossPercent: utils.Ratio(total-session.InitialCapital, session.InitialCapital) * 100,
			DurationDays:      utils.WholeDaysBetween(session.StartDate, now),
			TotalTrades:       len(trades),
			CompletedAt:       now,
		}

		e.logger.Info("Trading session completed",
			utils.SessionID(session.ID),
			utils.Float64("total_value", total),
			utils.Float64("profit_loss", report.ProfitLoss),
			utils.Int("total_trades", report.TotalTrades),
		)
		e.notify(ctx, models.NotificationTypeSessionCompleted, models.SeverityInfo, session.ID,
			fmt.Sprintf("Session %q completed: total value %.2f, P/L %.2f%%", session.Name, total, report.ProfitLossPercent),
			map[string]interface{}{
				"total_value":       total,
				"profit_loss":       report.ProfitLoss,
				"capital_preserved": report.CapitalPreserved,
				"total_trades":      report.TotalTrades,
			})
		return nil
	})
	return report, err
}

// ============ Риск ============

// CheckEmergencyStop оценивает привязанную сессию. Без сессии - остановка не нужна.
func (e *Engine) CheckEmergencyStop(ctx context.Context) EmergencyDecision {
	var decision EmergencyDecision
	_ = e.withSession(func(session *models.TradingSession) error {
		decision = e.risk.ShouldEmergencyStop(ctx, session)
		return nil
	})
	return decision
}

// EmergencyPause ставит привязанную сессию на паузу и записывает событие
func (e *Engine) EmergencyPause(ctx context.Context, reason string) error {
	return e.withSession(func(session *models.TradingSession) error {
		if !CanTransition(session.Status, models.SessionStatusPaused) {
			return ErrSessionNotActive
		}

		prevStatus := session.Status
		session.Status = models.SessionStatusPaused
		session.UpdatedAt = e.now().UTC()
		if err := e.store.UpdateSession(ctx, session); err != nil {
			session.Status = prevStatus
			return fmt.Errorf("pause session: %w", err)
		}
		e.publish(session)
		EmergencyStops.Inc()

		e.logger.Error("Emergency stop triggered", utils.SessionID(session.ID), utils.Reason(reason))
		e.notify(ctx, models.NotificationTypeEmergencyStop, models.SeverityError, session.ID, reason,
			map[string]interface{}{
				"current_capital": session.CurrentCapital,
				"initial_capital": session.InitialCapital,
			})
		return nil
	})
}

// Assess возвращает оценку риска привязанной сессии
func (e *Engine) Assess(ctx context.Context) (*RiskAssessment, error) {
	var assessment *RiskAssessment
	err := e.withSession(func(session *models.TradingSession) error {
		var err error
		assessment, err = e.risk.Assess(ctx, session)
		return err
	})
	return assessment, err
}

// ============ Цикл ============

// Preview - анализ рынка и сигнал без исполнения
func (e *Engine) Preview(ctx context.Context) (*MarketData, Signal, error) {
	md, err := e.AnalyzeMarketConditions(ctx)
	if err != nil {
		return nil, nil, err
	}
	sig, err := e.GenerateTradingSignal(ctx, md)
	if err != nil {
		return md, nil, err
	}
	return md, sig, nil
}

// RunStrategyCycle выполняет один цикл под мьютексом сессии
func (e *Engine) RunStrategyCycle(ctx context.Context) (*CycleResult, error) {
	var result *CycleResult
	start := time.Now()

	err := e.withSession(func(session *models.TradingSession) error {
		if !session.IsActive() {
			return ErrSessionNotActive
		}
		var err error
		result, err = e.runCycle(ctx, session)
		return err
	})

	RecordCycle(time.Since(start).Seconds(), err)
	return result, err
}

func (e *Engine) runCycle(ctx context.Context, session *models.TradingSession) (*CycleResult, error) {
	md, err := e.analyze(ctx)
	if err != nil {
		return nil, err
	}
	sig, err := e.generateSignal(ctx, session, md)
	if err != nil {
		return nil, err
	}

	result := &CycleResult{Market: md}

	if !IsHold(sig) {
		decision := e.risk.ValidateTrade(ctx, e.cfg, sig, session)
		if !decision.Approved {
			RecordRiskRejection(decision.Reason)
			result.RiskReason = decision.Reason
			e.notify(ctx, models.NotificationTypeRiskBlock, models.SeverityWarn, session.ID, decision.Reason,
				map[string]interface{}{
					"action": string(sig.Action()),
					"reason": sig.Why(),
				})
			sig = Hold{Reason: riskBlockedReason}
		}
	}
	result.Signal = sig

	trade, err := e.executeTrade(ctx, session, sig)
	if err != nil {
		return nil, fmt.Errorf("execute trade: %w", err)
	}
	result.Trade = trade

	if err := e.updateMetrics(ctx, session); err != nil {
		return nil, err
	}

	result.CycleComplete = e.checkCompletion(session)
	result.Session = session.Clone()
	result.Timestamp = e.now().UTC()
	return result, nil
}

// notify записывает событие в журнал и рассылает его клиентам.
// Ошибка записи журнала не прерывает цикл.
func (e *Engine) notify(ctx context.Context, typ, severity string, sessionID int64, message string, meta map[string]interface{}) {
	id := sessionID
	n := models.NewNotification(typ, severity, &id, message, meta)
	n.Timestamp = e.now().UTC()

	if err := e.store.CreateNotification(ctx, n); err != nil {
		e.logger.Warn("Failed to record notification", utils.String("type", typ), utils.Err(err))
	}
	if e.hub != nil {
		e.hub.BroadcastNotification(n)
	}
}
