package bot

import (
	"errors"
	"fmt"
)

// Ошибки предусловий планировщика и движка
var (
	ErrAlreadyRunning   = errors.New("bot scheduler is already running")
	ErrNotRunning       = errors.New("bot scheduler is not running")
	ErrNoActiveConfig   = errors.New("no active configuration found")
	ErrNoActiveSession  = errors.New("no active session found")
	ErrSessionNotActive = errors.New("session is not active")
	ErrStopTimeout      = errors.New("bot scheduler did not stop in time")
)

// OrderSizeError - количество после округления до шага лота меньше минимума биржи
type OrderSizeError struct {
	Quantity float64
	MinQty   float64
}

func (e *OrderSizeError) Error() string {
	return fmt.Sprintf("order quantity %v below minimum %v", e.Quantity, e.MinQty)
}
