package bot

import (
	jsoniter "github.com/json-iterator/go"
)

// Action - действие торгового сигнала
type Action string

const (
	ActionHold Action = "hold"
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Signal - решение стратегии на один цикл: Hold, Buy или Sell.
// Других реализаций нет, интерфейс закрыт неэкспортируемым методом.
type Signal interface {
	Action() Action
	Why() string
	isSignal()
}

// Hold - ничего не делать
type Hold struct {
	Reason string
}

// Buy - купить базовый актив на QuoteAmount котируемой валюты
type Buy struct {
	QuoteAmount float64
	Reason      string
}

// Sell - продать BaseAmount базового актива
type Sell struct {
	BaseAmount float64
	Reason     string
}

func (Hold) Action() Action { return ActionHold }
func (Buy) Action() Action  { return ActionBuy }
func (Sell) Action() Action { return ActionSell }

func (h Hold) Why() string { return h.Reason }
func (b Buy) Why() string  { return b.Reason }
func (s Sell) Why() string { return s.Reason }

func (Hold) isSignal() {}
func (Buy) isSignal()  {}
func (Sell) isSignal() {}

// signalView - представление сигнала в JSON (API и WebSocket)
type signalView struct {
	Action      Action   `json:"action"`
	QuoteAmount *float64 `json:"amount_quote,omitempty"`
	BaseAmount  *float64 `json:"amount_base,omitempty"`
	Reason      string   `json:"reason"`
}

func (h Hold) MarshalJSON() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(signalView{Action: ActionHold, Reason: h.Reason})
}

func (b Buy) MarshalJSON() ([]byte, error) {
	amount := b.QuoteAmount
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(signalView{Action: ActionBuy, QuoteAmount: &amount, Reason: b.Reason})
}

func (s Sell) MarshalJSON() ([]byte, error) {
	amount := s.BaseAmount
	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(signalView{Action: ActionSell, BaseAmount: &amount, Reason: s.Reason})
}

// IsHold - true для Hold и для nil
func IsHold(s Signal) bool {
	return s == nil || s.Action() == ActionHold
}
