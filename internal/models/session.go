package models

import "time"

// Статусы торговой сессии
const (
	SessionStatusActive    = "active"
	SessionStatusPaused    = "paused"
	SessionStatusCompleted = "completed"
)

// DefaultCycleDurationDays - длительность сессии по умолчанию
const DefaultCycleDurationDays = 30

// TradingSession - ограниченная по времени сессия накопления
//
// Метрики CurrentCapital (баланс quote) и AccumulatedTokens (баланс base)
// обновляются после каждого цикла стратегии.
type TradingSession struct {
	ID                int64      `json:"id" db:"id"`
	Name              string     `json:"session_name" db:"session_name"`
	InitialCapital    float64    `json:"initial_capital" db:"initial_capital"`
	CurrentCapital    float64    `json:"current_capital" db:"current_capital"`
	AccumulatedTokens float64    `json:"accumulated_tokens" db:"accumulated_tokens"`
	Status            string     `json:"status" db:"status"` // active, paused, completed
	StartDate         time.Time  `json:"start_date" db:"start_date"`
	EndDate           *time.Time `json:"end_date,omitempty" db:"end_date"`
	CycleDurationDays int        `json:"cycle_duration_days" db:"cycle_duration_days"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

// NewTradingSession создаёт активную сессию с CurrentCapital = InitialCapital
func NewTradingSession(name string, initialCapital float64, durationDays int, now time.Time) *TradingSession {
	if durationDays <= 0 {
		durationDays = DefaultCycleDurationDays
	}
	return &TradingSession{
		Name:              name,
		InitialCapital:    initialCapital,
		CurrentCapital:    initialCapital,
		Status:            SessionStatusActive,
		StartDate:         now,
		CycleDurationDays: durationDays,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// IsActive возвращает true для активной сессии
func (s *TradingSession) IsActive() bool {
	return s.Status == SessionStatusActive
}

// PlannedEnd - плановая дата окончания (StartDate + CycleDurationDays)
func (s *TradingSession) PlannedEnd() time.Time {
	return s.StartDate.AddDate(0, 0, s.CycleDurationDays)
}

// Drawdown - просадка капитала относительно начального, не меньше 0
func (s *TradingSession) Drawdown() float64 {
	if s.InitialCapital <= 0 {
		return 0
	}
	d := (s.InitialCapital - s.CurrentCapital) / s.InitialCapital
	if d < 0 {
		return 0
	}
	return d
}

// Clone возвращает независимую копию (снимок для CycleResult и WebSocket)
func (s *TradingSession) Clone() *TradingSession {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndDate != nil {
		end := *s.EndDate
		c.EndDate = &end
	}
	return &c
}
