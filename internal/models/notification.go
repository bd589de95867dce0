package models

import "time"

// Notification - запись журнала событий бота
type Notification struct {
	ID        int64                  `json:"id" db:"id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	Type      string                 `json:"type" db:"type"`         // CYCLE, TRADE, RISK_BLOCK, EMERGENCY_STOP, SESSION_COMPLETED, ERROR
	Severity  string                 `json:"severity" db:"severity"` // info, warn, error
	SessionID *int64                 `json:"session_id,omitempty" db:"session_id"`
	Message   string                 `json:"message" db:"message"`
	Meta      map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы уведомлений
const (
	NotificationTypeCycle            = "CYCLE"             // завершён цикл стратегии
	NotificationTypeTrade            = "TRADE"             // выставлен ордер
	NotificationTypeRiskBlock        = "RISK_BLOCK"        // сигнал отклонён риск-менеджером
	NotificationTypeEmergencyStop    = "EMERGENCY_STOP"    // аварийная пауза сессии
	NotificationTypeSessionCompleted = "SESSION_COMPLETED" // сессия завершена
	NotificationTypeError            = "ERROR"             // ошибка API/цикла
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)

// NewNotification заполняет Timestamp текущим временем
func NewNotification(typ, severity string, sessionID *int64, message string, meta map[string]interface{}) *Notification {
	return &Notification{
		Timestamp: time.Now(),
		Type:      typ,
		Severity:  severity,
		SessionID: sessionID,
		Message:   message,
		Meta:      meta,
	}
}
