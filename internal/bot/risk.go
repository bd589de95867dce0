package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// TradeLister - история сделок сессии, нужная риск-менеджеру
type TradeLister interface {
	GetTradesBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error)
}

// RiskManager - политика риска для стратегии накопления
//
// Функции:
// - Проверка сигнала перед исполнением (лимит сделок за день, размер позиции, просадка, размер ордера)
// - Метрики риска сессии и рекомендации
// - Решение об аварийной остановке сессии
//
// Отказ в сделке и аварийная остановка возвращаются значениями, а не ошибками.
// Внутренние ошибки (БД) приводят к отказу / остановке.
type RiskManager struct {
	trades TradeLister
	config RiskConfig
	now    func() time.Time
	logger *utils.Logger
}

// RiskConfig - фиксированные лимиты риск-менеджера
type RiskConfig struct {
	// Максимум сделок за календарный день UTC
	MaxDailyTrades int

	// Максимальная покупка в долях начального капитала
	MaxPositionPct float64

	// Максимальная просадка в долях начального капитала
	MaxDrawdownPct float64

	// Ориентировочная цена базового актива для проверки размера продажи
	SellReferencePrice float64

	// Порог количества сделок для правила "много сделок без результата"
	MaxTradesBeforeReview int

	// Во сколько раз сессия может превысить плановую длительность
	DurationOverrunFactor float64
}

// DefaultRiskConfig возвращает конфигурацию по умолчанию
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxDailyTrades:        10,
		MaxPositionPct:        0.30,
		MaxDrawdownPct:        0.15,
		SellReferencePrice:    0.08,
		MaxTradesBeforeReview: 50,
		DurationOverrunFactor: 1.5,
	}
}

// Причины отказа в сделке
const (
	RejectTradingDisabled  = "Trading is disabled in configuration"
	RejectDailyLimit       = "Daily trade limit exceeded"
	RejectPositionSize     = "Position size limit exceeded"
	RejectDrawdown         = "Maximum drawdown limit exceeded"
	RejectBelowMinimum     = "Order size below minimum threshold"
	RejectAboveMaximum     = "Order size above maximum threshold"
	RejectNoSession        = "No active session"
	RejectInvalidCapital   = "Initial capital must be positive"
	recommendationFallback = "Error generating recommendations - manual review required"
)

// Уровни риска
const (
	RiskLevelLow      = "LOW"
	RiskLevelModerate = "MODERATE"
	RiskLevelHigh     = "HIGH"
	RiskLevelCritical = "CRITICAL"
)

// RiskDecision - результат проверки сигнала
type RiskDecision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// EmergencyDecision - решение об аварийной остановке
type EmergencyDecision struct {
	Stop   bool   `json:"stop"`
	Reason string `json:"reason,omitempty"`
}

// PositionRisk - метрики риска сессии
type PositionRisk struct {
	DrawdownPercent float64 `json:"drawdown_percent"`
	TradeFrequency  float64 `json:"trade_frequency"` // сделок в день
	WinRatePercent  float64 `json:"win_rate_percent"`
	TotalTrades     int     `json:"total_trades"`
	RiskScore       float64 `json:"risk_score"` // 0-100
	RiskLevel       string  `json:"risk_level"`
}

// RiskAssessment - сводная оценка для API и CLI
type RiskAssessment struct {
	SessionID       int64             `json:"session_id"`
	Risk            *PositionRisk     `json:"risk_metrics,omitempty"`
	Recommendations []string          `json:"recommendations"`
	Emergency       EmergencyDecision `json:"emergency_stop"`
	Error           string            `json:"error,omitempty"`
}

// NewRiskManager создает новый RiskManager
func NewRiskManager(trades TradeLister, config RiskConfig) *RiskManager {
	return &RiskManager{
		trades: trades,
		config: config,
		now:    time.Now,
		logger: utils.L().WithComponent("risk"),
	}
}

// Config возвращает лимиты риск-менеджера
func (rm *RiskManager) Config() RiskConfig {
	return rm.config
}

// ============================================================
// Проверка сигнала
// ============================================================

// ValidateTrade проверяет сигнал перед исполнением. Hold всегда одобряется.
func (rm *RiskManager) ValidateTrade(ctx context.Context, cfg *models.BotConfig, signal Signal, session *models.TradingSession) RiskDecision {
	if IsHold(signal) {
		return RiskDecision{Approved: true}
	}
	if session == nil {
		return rm.reject(RejectNoSession)
	}
	if cfg == nil || !cfg.IsActive {
		return rm.reject(RejectTradingDisabled)
	}

	todayTrades, err := rm.countTodayTrades(ctx, session.ID)
	if err != nil {
		return rm.reject(fmt.Sprintf("Risk validation failed: %v", err))
	}
	if todayTrades >= rm.config.MaxDailyTrades {
		return rm.reject(RejectDailyLimit)
	}

	if session.InitialCapital <= 0 {
		return rm.reject(RejectInvalidCapital)
	}

	// Продажа уменьшает риск, лимит позиции только для покупки
	if buy, ok := signal.(Buy); ok && buy.QuoteAmount > session.InitialCapital*rm.config.MaxPositionPct {
		return rm.reject(RejectPositionSize)
	}

	drawdown := (session.InitialCapital - session.CurrentCapital) / session.InitialCapital
	if drawdown > rm.config.MaxDrawdownPct {
		return rm.reject(RejectDrawdown)
	}

	amount := rm.quoteValue(signal)
	if amount < cfg.MinOrderSize {
		return rm.reject(RejectBelowMinimum)
	}
	if amount > cfg.MaxOrderSize {
		return rm.reject(RejectAboveMaximum)
	}

	return RiskDecision{Approved: true}
}

func (rm *RiskManager) reject(reason string) RiskDecision {
	rm.logger.Warn("Trade rejected by risk management", utils.Reason(reason))
	return RiskDecision{Approved: false, Reason: reason}
}

// quoteValue - сумма сигнала в котируемой валюте.
// Продажа оценивается по фиксированной ориентировочной цене.
func (rm *RiskManager) quoteValue(signal Signal) float64 {
	switch s := signal.(type) {
	case Buy:
		return s.QuoteAmount
	case Sell:
		return s.BaseAmount * rm.config.SellReferencePrice
	default:
		return 0
	}
}

func (rm *RiskManager) countTodayTrades(ctx context.Context, sessionID int64) (int, error) {
	trades, err := rm.trades.GetTradesBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	now := rm.now()
	count := 0
	for _, t := range trades {
		if utils.SameDay(t.Timestamp, now) {
			count++
		}
	}
	return count, nil
}

// ============================================================
// Метрики риска
// ============================================================

// CalculatePositionRisk считает просадку, частоту сделок, win rate и итоговую оценку.
//
// Win rate приближённый: любая исполненная продажа считается прибыльной,
// сравнения с ценой покупки нет.
func (rm *RiskManager) CalculatePositionRisk(ctx context.Context, session *models.TradingSession) (*PositionRisk, error) {
	if session == nil {
		return nil, ErrNoActiveSession
	}
	trades, err := rm.trades.GetTradesBySession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load trades: %w", err)
	}

	drawdown := session.Drawdown()

	days := utils.WholeDaysBetween(session.StartDate, rm.now())
	if days < 1 {
		days = 1
	}
	frequency := float64(len(trades)) / float64(days)

	var filled, sells int
	for _, t := range trades {
		if t.IsFilled() && t.ExecutedPrice != nil && *t.ExecutedPrice != 0 {
			filled++
			if !t.IsBuy() {
				sells++
			}
		}
	}
	winRate := utils.Ratio(float64(sells), float64(filled))

	score := ComputeRiskScore(drawdown, frequency, winRate)

	return &PositionRisk{
		DrawdownPercent: drawdown * 100,
		TradeFrequency:  frequency,
		WinRatePercent:  winRate * 100,
		TotalTrades:     len(trades),
		RiskScore:       score,
		RiskLevel:       RiskLevel(score),
	}, nil
}

// ComputeRiskScore - взвешенная оценка риска в диапазоне [0, 100]:
// просадка 40, частота сделок 30 (насыщение на 5 в день), низкий win rate 30
func ComputeRiskScore(drawdown, frequency, winRate float64) float64 {
	score := drawdown*40 + utils.Min(frequency/5, 1)*30 + (1-winRate)*30
	return utils.Clamp(score, 0, 100)
}

// RiskLevel переводит оценку в уровень
func RiskLevel(score float64) string {
	switch {
	case score < 20:
		return RiskLevelLow
	case score < 40:
		return RiskLevelModerate
	case score < 60:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// GetRiskRecommendations возвращает текстовые рекомендации, на поведение бота не влияют
func (rm *RiskManager) GetRiskRecommendations(ctx context.Context, session *models.TradingSession) ([]string, error) {
	risk, err := rm.CalculatePositionRisk(ctx, session)
	if err != nil {
		return []string{recommendationFallback}, err
	}
	return recommendationsFor(session, risk), nil
}

func recommendationsFor(session *models.TradingSession, risk *PositionRisk) []string {
	recommendations := make([]string, 0, 5)
	if risk.DrawdownPercent > 10 {
		recommendations = append(recommendations, "Consider reducing position sizes due to high drawdown")
	}
	if risk.TradeFrequency > 3 {
		recommendations = append(recommendations, "High trade frequency detected - consider longer intervals")
	}
	if risk.WinRatePercent < 40 {
		recommendations = append(recommendations, "Low win rate - review strategy parameters")
	}
	if risk.RiskScore > 60 {
		recommendations = append(recommendations, "CRITICAL: Consider pausing trading and reviewing strategy")
	} else if risk.RiskScore > 40 {
		recommendations = append(recommendations, "HIGH RISK: Reduce position sizes and increase monitoring")
	}
	if session.CurrentCapital < session.InitialCapital*0.9 {
		recommendations = append(recommendations, "Capital below 90% - focus on capital preservation")
	}
	return recommendations
}

// ============================================================
// Аварийная остановка
// ============================================================

// ShouldEmergencyStop решает, нужно ли поставить сессию на паузу.
// Ошибка загрузки сделок приводит к остановке.
func (rm *RiskManager) ShouldEmergencyStop(ctx context.Context, session *models.TradingSession) EmergencyDecision {
	if session == nil {
		return EmergencyDecision{}
	}

	if session.CurrentCapital < session.InitialCapital*(1-rm.config.MaxDrawdownPct) {
		return EmergencyDecision{
			Stop:   true,
			Reason: fmt.Sprintf("Emergency stop: Drawdown exceeded %g%%", rm.config.MaxDrawdownPct*100),
		}
	}

	days := utils.WholeDaysBetween(session.StartDate, rm.now())
	if float64(days) > float64(session.CycleDurationDays)*rm.config.DurationOverrunFactor {
		return EmergencyDecision{Stop: true, Reason: "Emergency stop: Session duration exceeded planned cycle"}
	}

	trades, err := rm.trades.GetTradesBySession(ctx, session.ID)
	if err != nil {
		return EmergencyDecision{Stop: true, Reason: fmt.Sprintf("Emergency stop: Error in risk assessment - %v", err)}
	}
	if len(trades) > rm.config.MaxTradesBeforeReview && session.CurrentCapital < session.InitialCapital*0.95 {
		return EmergencyDecision{Stop: true, Reason: "Emergency stop: Excessive trading with poor results"}
	}

	return EmergencyDecision{}
}

// Assess собирает метрики, рекомендации и решение об остановке
func (rm *RiskManager) Assess(ctx context.Context, session *models.TradingSession) (*RiskAssessment, error) {
	if session == nil {
		return nil, ErrNoActiveSession
	}

	a := &RiskAssessment{SessionID: session.ID}

	risk, err := rm.CalculatePositionRisk(ctx, session)
	if err != nil {
		a.Error = err.Error()
		a.Recommendations = []string{recommendationFallback}
	} else {
		a.Risk = risk
		RiskScore.Set(risk.RiskScore)
		a.Recommendations = recommendationsFor(session, risk)
	}

	a.Emergency = rm.ShouldEmergencyStop(ctx, session)
	return a, nil
}
