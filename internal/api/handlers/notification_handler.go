package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Samicowest/bag-bot/internal/service"
)

// NotificationHandler отвечает за журнал событий бота
//
// Endpoints:
// - GET /api/v1/notifications - получение списка уведомлений
// - GET /api/v1/notifications?types=trade,error - с фильтрацией по типам
// - GET /api/v1/notifications?limit=50 - с ограничением количества
// - DELETE /api/v1/notifications - очистка журнала
// - DELETE /api/v1/notifications?older_than=168h - удаление старых записей
type NotificationHandler struct {
	notificationService service.NotificationServiceInterface
}

// NewNotificationHandler создает новый NotificationHandler с внедрением зависимости
func NewNotificationHandler(notificationService service.NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []NotificationDTO `json:"notifications"`
	Total         int               `json:"total"`
}

// NotificationDTO представляет уведомление в API
type NotificationDTO struct {
	ID        int64                  `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Type      string                 `json:"type"`
	Severity  string                 `json:"severity"`
	SessionID *int64                 `json:"session_id,omitempty"`
	Message   string                 `json:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// GetNotifications возвращает список уведомлений с фильтрацией
//
// GET /api/v1/notifications
//
// Query параметры:
// - types (string): фильтр по типам через запятую
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// Типы уведомлений:
// - CYCLE: завершён цикл стратегии
// - TRADE: выставлен ордер
// - RISK_BLOCK: сигнал отклонён риск-менеджером
// - EMERGENCY_STOP: аварийная пауза сессии
// - SESSION_COMPLETED: сессия завершена
// - ERROR: ошибка API или цикла
//
// HTTP коды:
// - 200 OK: успешно, возвращает массив уведомлений
// - 500 Internal Server Error: ошибка сервера
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	var types []string
	if typesParam := r.URL.Query().Get("types"); typesParam != "" {
		types = strings.Split(typesParam, ",")
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	notifications, err := h.notificationService.GetNotifications(r.Context(), types, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to get notifications", err.Error())
		return
	}

	dtos := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		dtos = append(dtos, NotificationDTO{
			ID:        n.ID,
			Timestamp: n.Timestamp.Format(time.RFC3339),
			Type:      n.Type,
			Severity:  n.Severity,
			SessionID: n.SessionID,
			Message:   n.Message,
			Meta:      n.Meta,
		})
	}

	respondWithJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: dtos,
		Total:         len(dtos),
	})
}

// ClearNotificationsResponse представляет ответ очистки уведомлений
type ClearNotificationsResponse struct {
	Message string `json:"message"`
	Deleted *int64 `json:"deleted,omitempty"`
}

// ClearNotifications очищает журнал уведомлений
//
// DELETE /api/v1/notifications
//
// Query параметры:
// - older_than (duration, например 72h): удалить только записи старше
//
// HTTP коды:
// - 200 OK: журнал очищен
// - 400 Bad Request: невалидный older_than
// - 500 Internal Server Error: ошибка при очистке
func (h *NotificationHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		age, err := time.ParseDuration(raw)
		if err != nil || age <= 0 {
			respondWithError(w, http.StatusBadRequest, "invalid_older_than", "older_than must be a positive duration", raw)
			return
		}

		deleted, err := h.notificationService.CleanupOlderThan(r.Context(), age)
		if err != nil {
			respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to clean up notifications", err.Error())
			return
		}
		respondWithJSON(w, http.StatusOK, ClearNotificationsResponse{
			Message: "Old notifications deleted",
			Deleted: &deleted,
		})
		return
	}

	if err := h.notificationService.ClearNotifications(r.Context()); err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to clear notifications", err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, ClearNotificationsResponse{
		Message: "Notifications cleared successfully",
	})
}
