package handlers

import (
	"net/http"
	"strconv"

	"github.com/Samicowest/bag-bot/internal/service"
)

// SessionHandler отвечает за торговые сессии
//
// Endpoints:
// - GET /api/v1/sessions - список сессий (?limit=&offset=)
// - POST /api/v1/sessions - создание сессии
// - GET /api/v1/sessions/{id} - сессия вместе со сделками
// - PATCH /api/v1/sessions/{id} - переименование, пауза, возобновление
// - POST /api/v1/sessions/{id}/complete - завершение с итоговым отчётом
//
// Одновременно активна не более одной сессии.
type SessionHandler struct {
	sessionService service.SessionServiceInterface
}

// NewSessionHandler создает новый SessionHandler с внедрением зависимости
func NewSessionHandler(sessionService service.SessionServiceInterface) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// ListSessions возвращает сессии, новые сверху
//
// GET /api/v1/sessions
//
// Query параметры:
// - limit (int): по умолчанию 50, максимум 500
// - offset (int): смещение
//
// HTTP коды:
// - 200 OK: массив сессий
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	sessions, err := h.sessionService.List(r.Context(), limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, sessions)
}

// CreateSession создает торговую сессию
//
// POST /api/v1/sessions
//
// Body: {"session_name": "...", "initial_capital": 100, "cycle_duration_days": 30}
//
// HTTP коды:
// - 201 Created: сессия создана
// - 400 Bad Request: невалидный JSON или параметры
// - 409 Conflict: уже есть активная сессия
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	session, err := h.sessionService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, session)
}

// GetSession возвращает сессию и её сделки
//
// GET /api/v1/sessions/{id}
//
// HTTP коды:
// - 200 OK: сессия с полем trades
// - 400 Bad Request: невалидный ID
// - 404 Not Found: сессия не найдена
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid session ID", "")
		return
	}

	details, err := h.sessionService.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, details)
}

// UpdateSession частично обновляет сессию
//
// PATCH /api/v1/sessions/{id}
//
// Body: {"session_name"?, "status"?: "active"|"paused", "cycle_duration_days"?}
//
// HTTP коды:
// - 200 OK: обновлённая сессия
// - 400 Bad Request: невалидный ID, JSON или параметры
// - 404 Not Found: сессия не найдена
// - 409 Conflict: недопустимый переход статуса или уже есть другая активная сессия
func (h *SessionHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid session ID", "")
		return
	}

	var req service.UpdateSessionRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	session, err := h.sessionService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, session)
}

// CompleteSession завершает активную сессию
//
// POST /api/v1/sessions/{id}/complete
//
// Балансы запрашиваются с биржи, поэтому нужна активная конфигурация.
//
// HTTP коды:
// - 200 OK: итоговый отчёт
// - 404 Not Found: сессия не найдена
// - 409 Conflict: сессия не активна или нет активной конфигурации
// - 502 Bad Gateway: ошибка биржи
func (h *SessionHandler) CompleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid session ID", "")
		return
	}

	report, err := h.sessionService.Complete(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, report)
}
