package models

import "time"

// Стороны сделки
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Тип ордера: бот выставляет только рыночные ордера
const OrderTypeMarket = "MARKET"

// Статусы ордера на бирже
const (
	TradeStatusNew             = "NEW"
	TradeStatusFilled          = "FILLED"
	TradeStatusPartiallyFilled = "PARTIALLY_FILLED"
	TradeStatusCanceled        = "CANCELED"
)

// Trade - исполненная или отправленная сделка сессии.
// После создания не изменяется.
type Trade struct {
	ID                int64      `json:"id" db:"id"`
	SessionID         int64      `json:"session_id" db:"session_id"`
	OrderID           string     `json:"order_id" db:"order_id"`
	ClientOrderID     string     `json:"client_order_id,omitempty" db:"client_order_id"`
	Symbol            string     `json:"symbol" db:"symbol"`
	Side              string     `json:"side" db:"side"`             // BUY, SELL
	OrderType         string     `json:"order_type" db:"order_type"` // MARKET
	Quantity          float64    `json:"quantity" db:"quantity"`
	Price             float64    `json:"price" db:"price"`
	ExecutedQuantity  float64    `json:"executed_quantity" db:"executed_quantity"`
	ExecutedPrice     *float64   `json:"executed_price,omitempty" db:"executed_price"`
	Status            string     `json:"status" db:"status"`
	Timestamp         time.Time  `json:"timestamp" db:"timestamp"`
	ExchangeTimestamp *time.Time `json:"exchange_timestamp,omitempty" db:"exchange_timestamp"`
	Commission        float64    `json:"commission" db:"commission"`
	CommissionAsset   string     `json:"commission_asset,omitempty" db:"commission_asset"`
}

// IsFilled возвращает true для полностью исполненного ордера
func (t *Trade) IsFilled() bool {
	return t.Status == TradeStatusFilled
}

// IsBuy возвращает true для покупки
func (t *Trade) IsBuy() bool {
	return t.Side == TradeSideBuy
}
