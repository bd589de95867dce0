package websocket

import (
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeCycleResult - результат цикла стратегии
	// Отправляется после каждого цикла (по расписанию и принудительного)
	MessageTypeCycleResult MessageType = "cycleResult"

	// MessageTypeNotification - новая запись журнала
	// Отправляется при событиях: сделка, блокировка риском, аварийная пауза, ошибка
	MessageTypeNotification MessageType = "notification"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// CycleResultMessage - сообщение о завершённом цикле
//
// Содержит сжатую сводку цикла:
// - Рынок (цена, настроение)
// - Решение стратегии и причину
// - Выставленный ордер, если был
// - Метрики сессии после цикла
type CycleResultMessage struct {
	BaseMessage
	Data *CycleResultData `json:"data"`
}

// CycleResultData - данные цикла для frontend
type CycleResultData struct {
	Symbol    string  `json:"symbol,omitempty"`
	Price     float64 `json:"price"`
	Sentiment string  `json:"sentiment,omitempty"`

	// Решение стратегии (hold, buy, sell)
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`

	// Причина отказа риск-менеджера
	RiskReason string `json:"risk_reason,omitempty"`

	// Ордер (если был выставлен)
	OrderID  string  `json:"order_id,omitempty"`
	Side     string  `json:"side,omitempty"`
	Quantity float64 `json:"quantity,omitempty"`

	// Состояние сессии после цикла
	SessionID         int64   `json:"session_id,omitempty"`
	SessionStatus     string  `json:"session_status,omitempty"`
	CurrentCapital    float64 `json:"current_capital"`
	AccumulatedTokens float64 `json:"accumulated_tokens"`

	CycleComplete bool `json:"cycle_complete"`
}

// NotificationMessage - сообщение о новой записи журнала
type NotificationMessage struct {
	BaseMessage
	Data *NotificationData `json:"data"`
}

// NotificationData - данные уведомления
type NotificationData struct {
	// ID уведомления в БД
	ID int64 `json:"id"`

	// Тип (CYCLE, TRADE, RISK_BLOCK, EMERGENCY_STOP, SESSION_COMPLETED, ERROR)
	Type string `json:"type"`

	// Уровень важности (info, warn, error)
	Severity string `json:"severity"`

	// ID сессии (если применимо)
	SessionID *int64 `json:"session_id,omitempty"`

	Message string                 `json:"message"`
	Meta    map[string]interface{} `json:"meta,omitempty"`

	// Время создания уведомления
	Timestamp time.Time `json:"timestamp"`
}

// ============ Фабричные функции для создания сообщений ============

// NewCycleResultMessage создает сообщение о цикле стратегии
func NewCycleResultMessage(result *bot.CycleResult) *CycleResultMessage {
	data := &CycleResultData{
		Action:        string(bot.ActionHold),
		RiskReason:    result.RiskReason,
		CycleComplete: result.CycleComplete,
	}

	if md := result.Market; md != nil {
		data.Symbol = md.Symbol
		data.Price = md.CurrentPrice
		data.Sentiment = string(md.Sentiment)
	}
	if result.Signal != nil {
		data.Action = string(result.Signal.Action())
		data.Reason = result.Signal.Why()
	}
	if trade := result.Trade; trade != nil {
		data.OrderID = trade.OrderID
		data.Side = trade.Side
		data.Quantity = trade.Quantity
	}
	if s := result.Session; s != nil {
		data.SessionID = s.ID
		data.SessionStatus = s.Status
		data.CurrentCapital = s.CurrentCapital
		data.AccumulatedTokens = s.AccumulatedTokens
	}

	ts := result.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return &CycleResultMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeCycleResult,
			Timestamp: ts,
		},
		Data: data,
	}
}

// NewNotificationMessage создает сообщение уведомления
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: &NotificationData{
			ID:        notif.ID,
			Type:      notif.Type,
			Severity:  notif.Severity,
			SessionID: notif.SessionID,
			Message:   notif.Message,
			Meta:      notif.Meta,
			Timestamp: notif.Timestamp,
		},
	}
}
