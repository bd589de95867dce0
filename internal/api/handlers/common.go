package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/repository"
	"github.com/Samicowest/bag-bot/internal/service"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string             `json:"error"`
	Code    string             `json:"code,omitempty"`
	Details string             `json:"details,omitempty"`
	Fields  []utils.FieldError `json:"fields,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// respondWithJSON отправляет JSON ответ
func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondWithError отправляет JSON ответ с ошибкой
func respondWithError(w http.ResponseWriter, statusCode int, code, message, details string) {
	respondWithJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	})
}

// parseID извлекает числовой {id} из пути
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeJSON разбирает тело запроса, пустое тело допустимо при allowEmpty
func decodeJSON(r *http.Request, dst interface{}, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return io.EOF
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if allowEmpty && errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// handleServiceError переводит ошибку сервиса или торгового ядра в HTTP статус
//
// Соответствие:
// - 400: ошибки валидации, размер ордера ниже минимума биржи, нет ключей
// - 404: сессия или конфигурация не найдены, нет активной сессии
// - 409: нарушение предусловий (нет активной конфигурации, уже есть активная сессия,
// недопустимый переход статуса, бот уже запущен / не запущен)
// - 502: ошибка запроса к бирже
// - 503: бот не остановился вовремя
// - 500: всё остальное
func handleServiceError(w http.ResponseWriter, err error) {
	var validation utils.ValidationErrors
	var orderSize *bot.OrderSizeError
	var exchangeErr *exchange.ExchangeError

	switch {
	case errors.As(err, &validation):
		respondWithJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "validation_error",
			Details: validation.Error(),
			Fields:  validation,
		})

	case errors.As(err, &orderSize):
		respondWithError(w, http.StatusBadRequest, "order_too_small", "Order size below exchange minimum", err.Error())

	case errors.Is(err, service.ErrConfigNameRequired):
		respondWithError(w, http.StatusBadRequest, "name_required", "Config name is required", "")

	case errors.Is(err, service.ErrEnvCredentialsMissing):
		respondWithError(w, http.StatusBadRequest, "env_credentials_missing", "API credentials not found in environment variables", "Set MEXC_API_KEY and MEXC_API_SECRET")

	case errors.Is(err, service.ErrCredentialsNotSet):
		respondWithError(w, http.StatusBadRequest, "credentials_not_set", "API credentials not configured", "")

	case errors.Is(err, repository.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, "session_not_found", "Session not found", "")

	case errors.Is(err, repository.ErrConfigNotFound):
		respondWithError(w, http.StatusNotFound, "config_not_found", "Config not found", "")

	case errors.Is(err, bot.ErrNoActiveSession):
		respondWithError(w, http.StatusNotFound, "no_active_session", "No active session found", "Create a trading session first")

	case errors.Is(err, bot.ErrNoActiveConfig):
		respondWithError(w, http.StatusConflict, "no_active_config", "No active configuration found", "Create and activate a bot configuration first")

	case errors.Is(err, repository.ErrActiveSessionExists):
		respondWithError(w, http.StatusConflict, "active_session_exists", "An active session already exists", "Complete or pause it first")

	case errors.Is(err, repository.ErrConfigExists):
		respondWithError(w, http.StatusConflict, "config_exists", "Config with this name already exists", "")

	case errors.Is(err, service.ErrConfigActive):
		respondWithError(w, http.StatusConflict, "config_active", "Cannot delete the active configuration", "")

	case errors.Is(err, service.ErrInvalidTransition):
		respondWithError(w, http.StatusConflict, "invalid_transition", "Invalid session status transition", err.Error())

	case errors.Is(err, bot.ErrSessionNotActive):
		respondWithError(w, http.StatusConflict, "session_not_active", "Only active sessions can be completed", "")

	case errors.Is(err, bot.ErrAlreadyRunning):
		respondWithError(w, http.StatusConflict, "already_running", "Bot is already running", "")

	case errors.Is(err, bot.ErrNotRunning):
		respondWithError(w, http.StatusConflict, "not_running", "Bot is not running", "")

	case errors.As(err, &exchangeErr):
		respondWithError(w, http.StatusBadGateway, "exchange_error", "Exchange request failed", err.Error())

	case errors.Is(err, bot.ErrStopTimeout):
		respondWithError(w, http.StatusServiceUnavailable, "stop_timeout", "Bot did not stop in time", "")

	case errors.Is(err, service.ErrControllerNotDefined):
		respondWithError(w, http.StatusServiceUnavailable, "bot_unavailable", "Bot controller is not configured", "")

	default:
		utils.L().WithComponent("http").Error("Request failed", utils.Err(err))
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Internal server error", "")
	}
}
