package handlers

import (
	"net/http"
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/service"
)

// StrategyHandler отдаёт рыночные данные, сигналы и оценку риска
//
// Endpoints:
// - GET /api/v1/market-data - снимок рынка по символу активной конфигурации
// - GET /api/v1/strategy/analyze - рынок и сигнал без исполнения
// - POST /api/v1/strategy/execute - один цикл стратегии с исполнением
// - GET /api/v1/risk/assessment - метрики риска активной сессии
// - GET /api/v1/balances - балансы базовой и котируемой валют
//
// Все запросы идут через BotController и работают независимо от того,
// запущен ли цикл по расписанию.
type StrategyHandler struct {
	bot service.BotController
}

// NewStrategyHandler создает новый StrategyHandler с внедрением зависимости
func NewStrategyHandler(controller service.BotController) *StrategyHandler {
	return &StrategyHandler{
		bot: controller,
	}
}

// AnalyzeResponse - результат анализа без исполнения
type AnalyzeResponse struct {
	MarketData *bot.MarketData `json:"market_data"`
	Signal     bot.Signal      `json:"signal"`
	Timestamp  time.Time       `json:"timestamp"`
}

// GetMarketData возвращает снимок рынка
//
// GET /api/v1/market-data
//
// HTTP коды:
// - 200 OK: MarketData
// - 409 Conflict: нет активной конфигурации
// - 502 Bad Gateway: ошибка биржи
func (h *StrategyHandler) GetMarketData(w http.ResponseWriter, r *http.Request) {
	md, err := h.bot.MarketData(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, md)
}

// Analyze вычисляет сигнал текущего цикла, ордер не выставляется
//
// GET /api/v1/strategy/analyze
//
// HTTP коды:
// - 200 OK: рынок и сигнал
// - 404 Not Found: нет активной сессии
// - 409 Conflict: нет активной конфигурации
// - 502 Bad Gateway: ошибка биржи
func (h *StrategyHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	md, signal, err := h.bot.Preview(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, AnalyzeResponse{
		MarketData: md,
		Signal:     signal,
		Timestamp:  time.Now(),
	})
}

// Execute выполняет один цикл стратегии вне расписания
//
// POST /api/v1/strategy/execute
//
// Цикл сериализуется с циклом по расписанию той же сессии.
//
// HTTP коды:
// - 200 OK: CycleResult
// - 400 Bad Request: размер ордера ниже минимума биржи
// - 404 Not Found: нет активной сессии
// - 409 Conflict: нет активной конфигурации
// - 502 Bad Gateway: ошибка биржи
func (h *StrategyHandler) Execute(w http.ResponseWriter, r *http.Request) {
	result, err := h.bot.ForceCycle(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// GetRiskAssessment возвращает оценку риска активной сессии
//
// GET /api/v1/risk/assessment
//
// HTTP коды:
// - 200 OK: RiskAssessment (ошибка расчёта метрик приходит в поле error)
// - 404 Not Found: нет активной сессии
// - 409 Conflict: нет активной конфигурации
func (h *StrategyHandler) GetRiskAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.bot.RiskAssessment(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, assessment)
}

// GetBalances возвращает балансы торговой пары
//
// GET /api/v1/balances
//
// HTTP коды:
// - 200 OK: {"quote": {...}, "base": {...}}
// - 409 Conflict: нет активной конфигурации
// - 502 Bad Gateway: ошибка биржи
func (h *StrategyHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.bot.Balances(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, balances)
}
