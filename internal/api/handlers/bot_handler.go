package handlers

import (
	"net/http"

	"github.com/Samicowest/bag-bot/internal/service"
)

// BotHandler управляет циклом по расписанию
//
// Endpoints:
// - POST /api/v1/bot/start - запуск
// - POST /api/v1/bot/stop - остановка
// - GET /api/v1/bot/status - состояние
// - POST /api/v1/bot/force-cycle - внеочередной цикл
type BotHandler struct {
	bot service.BotController
}

// NewBotHandler создает новый BotHandler с внедрением зависимости
func NewBotHandler(controller service.BotController) *BotHandler {
	return &BotHandler{
		bot: controller,
	}
}

// Start запускает бота
//
// POST /api/v1/bot/start
//
// Без активной сессии бот запускается и ждёт её создания.
//
// HTTP коды:
// - 200 OK: запущен, в data текущий статус
// - 409 Conflict: уже запущен или нет активной конфигурации
func (h *BotHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.Start(r.Context()); err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Bot started",
		Data:    h.bot.Status(),
	})
}

// Stop останавливает бота, выполняющийся цикл не прерывается
//
// POST /api/v1/bot/stop
//
// HTTP коды:
// - 200 OK: остановлен
// - 409 Conflict: не запущен
// - 503 Service Unavailable: цикл не завершился за STOP_TIMEOUT
func (h *BotHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if err := h.bot.Stop(); err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, SuccessResponse{
		Message: "Bot stopped",
		Data:    h.bot.Status(),
	})
}

// GetStatus возвращает состояние бота
//
// GET /api/v1/bot/status
//
// HTTP коды:
// - 200 OK: Status
func (h *BotHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.bot.Status())
}

// ForceCycle выполняет цикл стратегии немедленно
//
// POST /api/v1/bot/force-cycle
//
// HTTP коды:
// - 200 OK: CycleResult
// - 404 Not Found: нет активной сессии
// - 409 Conflict: нет активной конфигурации
// - 502 Bad Gateway: ошибка биржи
func (h *BotHandler) ForceCycle(w http.ResponseWriter, r *http.Request) {
	result, err := h.bot.ForceCycle(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
