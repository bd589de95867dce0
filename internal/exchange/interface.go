package exchange

import (
	"context"
	"fmt"
	"time"
)

// Client определяет синхронный интерфейс спотовой биржи, нужный стратегии.
// Один вызов = один запрос, повторов внутри нет.
type Client interface {
	// GetName возвращает имя биржи
	GetName() string

	// Get24hTicker получает статистику за 24 часа
	Get24hTicker(ctx context.Context, symbol string) (*Ticker24h, error)

	// GetOrderBook получает стакан ордеров с заданной глубиной
	GetOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error)

	// GetTickerPrice получает последнюю цену
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)

	// GetBalance получает баланс актива (free + locked)
	GetBalance(ctx context.Context, asset string) (*Balance, error)

	// CalculateOrderSize переводит сумму в котируемой валюте в количество базового актива
	CalculateOrderSize(ctx context.Context, symbol string, quoteAmount float64) (float64, error)

	// GetMinimumOrderSize получает торговые ограничения символа
	GetMinimumOrderSize(ctx context.Context, symbol string) (*Limits, error)

	// PlaceOrder размещает ордер
	PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error)

	// ValidateCredentials проверяет ключи запросом к аккаунту
	ValidateCredentials(ctx context.Context) error
}

// Ticker24h содержит статистику за последние 24 часа
type Ticker24h struct {
	Symbol             string    `json:"symbol"`
	LastPrice          float64   `json:"last_price"`
	PriceChangePercent float64   `json:"price_change_percent"` // в процентах: 2.5 = +2.5%
	Volume             float64   `json:"volume"`               // объём в базовом активе
	QuoteVolume        float64   `json:"quote_volume"`
	HighPrice          float64   `json:"high_price"`
	LowPrice           float64   `json:"low_price"`
	Timestamp          time.Time `json:"timestamp"`
}

// OrderBook представляет стакан ордеров
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"` // заявки на покупку, по убыванию цены
	Asks      []PriceLevel `json:"asks"` // заявки на продажу, по возрастанию цены
	Timestamp time.Time    `json:"timestamp"`
}

// PriceLevel представляет уровень цены в стакане
type PriceLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// BestBid возвращает лучшую цену покупки, false если стакан пуст
func (ob *OrderBook) BestBid() (float64, bool) {
	if len(ob.Bids) == 0 {
		return 0, false
	}
	return ob.Bids[0].Price, true
}

// BestAsk возвращает лучшую цену продажи, false если стакан пуст
func (ob *OrderBook) BestAsk() (float64, bool) {
	if len(ob.Asks) == 0 {
		return 0, false
	}
	return ob.Asks[0].Price, true
}

// Balance - баланс одного актива
type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
	Total  float64 `json:"total"`
}

// Limits содержит торговые ограничения биржи (LOT_SIZE, MIN_NOTIONAL)
type Limits struct {
	Symbol      string  `json:"symbol"`
	MinOrderQty float64 `json:"min_order_qty"` // минимальный размер ордера
	QtyStep     float64 `json:"qty_step"`      // шаг изменения количества (lot size)
	MinNotional float64 `json:"min_notional"`  // минимальная сумма сделки в котируемой валюте
	Status      string  `json:"status,omitempty"`
	BaseAsset   string  `json:"base_asset,omitempty"`
	QuoteAsset  string  `json:"quote_asset,omitempty"`
}

// OrderRequest - параметры нового ордера
type OrderRequest struct {
	Symbol        string
	Side          string // BUY, SELL
	Type          string // MARKET, LIMIT
	Quantity      float64
	Price         float64 // только для LIMIT
	ClientOrderID string  // пусто - будет сгенерирован
}

// Order представляет ответ биржи на размещение ордера
type Order struct {
	OrderID       string    `json:"order_id"`
	ClientOrderID string    `json:"client_order_id"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Type          string    `json:"type"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	ExecutedQty   float64   `json:"executed_qty"`
	Status        string    `json:"status"`
	TransactTime  time.Time `json:"transact_time"`
}

// ExchangeError представляет ошибку от биржи
type ExchangeError struct {
	Exchange   string
	Code       string
	Message    string
	HTTPStatus int
	Original   error
}

func (e *ExchangeError) Error() string {
	if e.HTTPStatus != 0 {
		return fmt.Sprintf("%s: %s (http %d, code %s)", e.Exchange, e.Message, e.HTTPStatus, e.Code)
	}
	return e.Exchange + ": " + e.Message
}

// Unwrap возвращает оригинальную ошибку для поддержки errors.Is() и errors.As()
func (e *ExchangeError) Unwrap() error {
	return e.Original
}

// Стороны ордера
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Типы ордера
const (
	OrderTypeMarket = "MARKET"
	OrderTypeLimit  = "LIMIT"
)

// Статусы ордера
const (
	OrderStatusNew             = "NEW"
	OrderStatusFilled          = "FILLED"
	OrderStatusPartiallyFilled = "PARTIALLY_FILLED"
	OrderStatusCanceled        = "CANCELED"
)
