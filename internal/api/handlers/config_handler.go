package handlers

import (
	"net/http"

	"github.com/Samicowest/bag-bot/internal/service"
)

// ConfigHandler отвечает за управление конфигурациями бота
//
// Endpoints:
// - GET /api/v1/config - список конфигураций
// - POST /api/v1/config - создание конфигурации
// - GET /api/v1/config/{id} - получение конфигурации
// - PUT /api/v1/config/{id} - обновление конфигурации
// - DELETE /api/v1/config/{id} - удаление конфигурации
// - POST /api/v1/config/{id}/activate - активация конфигурации
// - POST /api/v1/config/from-env - конфигурация из MEXC_API_KEY / MEXC_API_SECRET
// - POST /api/v1/config/{id}/validate - проверка ключей на бирже
//
// API ключи в ответах всегда замаскированы.
type ConfigHandler struct {
	configService service.ConfigServiceInterface
}

// NewConfigHandler создает новый ConfigHandler с внедрением зависимости
func NewConfigHandler(configService service.ConfigServiceInterface) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
	}
}

// FromEnvRequest - необязательное тело POST /config/from-env
type FromEnvRequest struct {
	Name string `json:"name,omitempty"`
}

// ListConfigs возвращает все конфигурации
//
// GET /api/v1/config
//
// HTTP коды:
// - 200 OK: массив конфигураций
// - 500 Internal Server Error: ошибка сервера
func (h *ConfigHandler) ListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.configService.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, configs)
}

// CreateConfig создает конфигурацию
//
// POST /api/v1/config
//
// Body: CreateConfigRequest. Незаданные параметры стратегии берутся
// из значений по умолчанию (DEFAULT_*), "activate": true сразу активирует.
//
// HTTP коды:
// - 201 Created: конфигурация создана
// - 400 Bad Request: невалидный JSON или параметры
// - 409 Conflict: имя уже занято
func (h *ConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req service.CreateConfigRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	cfg, err := h.configService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, cfg)
}

// GetConfig возвращает конфигурацию по ID
//
// GET /api/v1/config/{id}
//
// HTTP коды:
// - 200 OK: конфигурация
// - 400 Bad Request: невалидный ID
// - 404 Not Found: конфигурация не найдена
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid config ID", "")
		return
	}

	cfg, err := h.configService.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

// UpdateConfig частично обновляет конфигурацию
//
// PUT /api/v1/config/{id}
//
// Пустые api_key / api_secret оставляют сохранённые ключи.
// Изменения вступают в силу для работающего бота после перезапуска.
//
// HTTP коды:
// - 200 OK: обновлённая конфигурация
// - 400 Bad Request: невалидный ID, JSON или параметры
// - 404 Not Found: конфигурация не найдена
// - 409 Conflict: имя уже занято
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid config ID", "")
		return
	}

	var req service.UpdateConfigRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	cfg, err := h.configService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

// DeleteConfig удаляет конфигурацию
//
// DELETE /api/v1/config/{id}
//
// HTTP коды:
// - 204 No Content: удалена
// - 404 Not Found: конфигурация не найдена
// - 409 Conflict: конфигурация активна
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid config ID", "")
		return
	}

	if err := h.configService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ActivateConfig делает конфигурацию единственной активной
//
// POST /api/v1/config/{id}/activate
//
// HTTP коды:
// - 200 OK: активированная конфигурация
// - 404 Not Found: конфигурация не найдена
func (h *ConfigHandler) ActivateConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid config ID", "")
		return
	}

	cfg, err := h.configService.Activate(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, cfg)
}

// CreateFromEnv создает или обновляет конфигурацию из переменных окружения
//
// POST /api/v1/config/from-env
//
// Body (необязательно): {"name": "..."}, по умолчанию "Environment Config".
// Конфигурация активируется, ключи проверяются на бирже; результат
// проверки возвращается в api_validation и не влияет на код ответа.
//
// HTTP коды:
// - 201 Created: конфигурация создана
// - 200 OK: существующая конфигурация обновлена
// - 400 Bad Request: MEXC_API_KEY / MEXC_API_SECRET не заданы
func (h *ConfigHandler) CreateFromEnv(w http.ResponseWriter, r *http.Request) {
	var req FromEnvRequest
	if err := decodeJSON(r, &req, true); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body", err.Error())
		return
	}

	result, err := h.configService.CreateFromEnv(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	respondWithJSON(w, status, result)
}

// ValidateCredentials проверяет ключи конфигурации на бирже
//
// POST /api/v1/config/{id}/validate
//
// HTTP коды:
// - 200 OK: {"valid": bool, "message": "..."}
// - 400 Bad Request: ключи не заданы
// - 404 Not Found: конфигурация не найдена
func (h *ConfigHandler) ValidateCredentials(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid_id", "Invalid config ID", "")
		return
	}

	check, err := h.configService.ValidateCredentials(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, check)
}
