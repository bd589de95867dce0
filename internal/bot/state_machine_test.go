package bot

import (
	"testing"

	"github.com/Samicowest/bag-bot/internal/models"
)

// TestCanTransition проверяет все пары статусов сессии
func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from string
		to   string
		want bool
	}{
		// ACTIVE
		{"active → paused (emergency stop)", models.SessionStatusActive, models.SessionStatusPaused, true},
		{"active → completed", models.SessionStatusActive, models.SessionStatusCompleted, true},
		{"active → active", models.SessionStatusActive, models.SessionStatusActive, false},

		// PAUSED
		{"paused → active (operator resume)", models.SessionStatusPaused, models.SessionStatusActive, true},
		{"paused → completed", models.SessionStatusPaused, models.SessionStatusCompleted, true},
		{"paused → paused", models.SessionStatusPaused, models.SessionStatusPaused, false},

		// COMPLETED - терминальный
		{"completed → active", models.SessionStatusCompleted, models.SessionStatusActive, false},
		{"completed → paused", models.SessionStatusCompleted, models.SessionStatusPaused, false},
		{"completed → completed", models.SessionStatusCompleted, models.SessionStatusCompleted, false},

		// Неизвестный статус
		{"unknown → active", "archived", models.SessionStatusActive, false},
		{"active → unknown", models.SessionStatusActive, "archived", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{models.SessionStatusActive, false},
		{models.SessionStatusPaused, false},
		{models.SessionStatusCompleted, true},
		{"archived", false},
	}

	for _, tt := range tests {
		if got := IsTerminal(tt.status); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestStatusInfo(t *testing.T) {
	for status := range ValidTransitions {
		if info := StatusInfo(status); info == "" || info == StatusInfo("archived") {
			t.Errorf("StatusInfo(%s) should describe a known status, got %q", status, info)
		}
	}
}

// TestValidTransitions_AllTargetsKnown - каждый целевой статус сам описан в таблице
func TestValidTransitions_AllTargetsKnown(t *testing.T) {
	for from, targets := range ValidTransitions {
		for _, to := range targets {
			if _, ok := ValidTransitions[to]; !ok {
				t.Errorf("transition %s → %s targets unknown status", from, to)
			}
		}
	}
}
