package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/service"
)

// ============ SessionHandler Tests ============

func TestSessionHandler_ListSessions(t *testing.T) {
	mockSvc := NewMockSessionService()
	mockSvc.add("first", models.SessionStatusCompleted)
	mockSvc.add("second", models.SessionStatusActive)
	handler := NewSessionHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=10&offset=5", nil)
	w := httptest.NewRecorder()

	handler.ListSessions(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if mockSvc.lastLimit != 10 || mockSvc.lastOffset != 5 {
		t.Errorf("expected limit 10 offset 5, got %d/%d", mockSvc.lastLimit, mockSvc.lastOffset)
	}

	var sessions []models.TradingSession
	if err := json.NewDecoder(w.Body).Decode(&sessions); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(sessions) != 2 || sessions[0].Name != "second" {
		t.Errorf("unexpected sessions: %+v", sessions)
	}
}

func TestSessionHandler_CreateSession(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		mockSvc := NewMockSessionService()
		handler := NewSessionHandler(mockSvc)

		body := `{"session_name":"June","initial_capital":250,"cycle_duration_days":14}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString(body))
		w := httptest.NewRecorder()

		handler.CreateSession(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
		}

		var got models.TradingSession
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.Name != "June" || got.InitialCapital != 250 || got.Status != models.SessionStatusActive {
			t.Errorf("unexpected session: %+v", got)
		}
	})

	t.Run("conflict when active session exists", func(t *testing.T) {
		mockSvc := NewMockSessionService()
		mockSvc.add("running", models.SessionStatusActive)
		handler := NewSessionHandler(mockSvc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString(`{"initial_capital":100}`))
		w := httptest.NewRecorder()

		handler.CreateSession(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}

		var resp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Code != "active_session_exists" {
			t.Errorf("expected code active_session_exists, got %q", resp.Code)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		handler := NewSessionHandler(NewMockSessionService())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
		w := httptest.NewRecorder()

		handler.CreateSession(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestSessionHandler_GetSession(t *testing.T) {
	mockSvc := NewMockSessionService()
	s := mockSvc.add("with trades", models.SessionStatusActive)
	mockSvc.trades[s.ID] = []*models.Trade{{ID: 1, SessionID: s.ID, OrderID: "C02__1", Side: "BUY"}}
	handler := NewSessionHandler(mockSvc)

	t.Run("includes trades", func(t *testing.T) {
		req := withID(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/1", nil), "1")
		w := httptest.NewRecorder()

		handler.GetSession(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var got struct {
			ID     int64           `json:"id"`
			Name   string          `json:"session_name"`
			Trades []*models.Trade `json:"trades"`
		}
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.ID != 1 || got.Name != "with trades" {
			t.Errorf("unexpected session: %+v", got)
		}
		if len(got.Trades) != 1 || got.Trades[0].OrderID != "C02__1" {
			t.Errorf("unexpected trades: %+v", got.Trades)
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := withID(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/9", nil), "9")
		w := httptest.NewRecorder()

		handler.GetSession(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

func TestSessionHandler_UpdateSession(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		body       string
		wantStatus int
		wantState  string
	}{
		{"pause active", models.SessionStatusActive, `{"status":"paused"}`, http.StatusOK, models.SessionStatusPaused},
		{"resume paused", models.SessionStatusPaused, `{"status":"active"}`, http.StatusOK, models.SessionStatusActive},
		{"rename", models.SessionStatusActive, `{"session_name":"Renamed"}`, http.StatusOK, models.SessionStatusActive},
		{"reopen completed", models.SessionStatusCompleted, `{"status":"active"}`, http.StatusConflict, models.SessionStatusCompleted},
		{"invalid json", models.SessionStatusActive, `{"status":`, http.StatusBadRequest, models.SessionStatusActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := NewMockSessionService()
			s := mockSvc.add("session", tt.status)
			handler := NewSessionHandler(mockSvc)

			req := withID(httptest.NewRequest(http.MethodPatch, "/api/v1/sessions/1", bytes.NewBufferString(tt.body)), "1")
			w := httptest.NewRecorder()

			handler.UpdateSession(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if s.Status != tt.wantState {
				t.Errorf("expected state %s, got %s", tt.wantState, s.Status)
			}
		})
	}
}

func TestSessionHandler_CompleteSession(t *testing.T) {
	t.Run("returns report", func(t *testing.T) {
		mockSvc := NewMockSessionService()
		mockSvc.add("June", models.SessionStatusActive)
		mockSvc.report = &bot.CycleReport{SessionID: 1, SessionName: "June", TotalValue: 102.5, CapitalPreserved: true}
		handler := NewSessionHandler(mockSvc)

		req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/1/complete", nil), "1")
		w := httptest.NewRecorder()

		handler.CompleteSession(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		var got bot.CycleReport
		if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if got.TotalValue != 102.5 || !got.CapitalPreserved {
			t.Errorf("unexpected report: %+v", got)
		}
	})

	t.Run("paused session cannot be completed", func(t *testing.T) {
		mockSvc := NewMockSessionService()
		mockSvc.add("paused", models.SessionStatusPaused)
		handler := NewSessionHandler(mockSvc)

		req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/1/complete", nil), "1")
		w := httptest.NewRecorder()

		handler.CompleteSession(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})

	t.Run("no active config", func(t *testing.T) {
		mockSvc := NewMockSessionService()
		mockSvc.add("June", models.SessionStatusActive)
		mockSvc.err = bot.ErrNoActiveConfig
		handler := NewSessionHandler(mockSvc)

		req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/1/complete", nil), "1")
		w := httptest.NewRecorder()

		handler.CompleteSession(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})

	t.Run("controller missing", func(t *testing.T) {
		mockSvc := NewMockSessionService()
		mockSvc.err = service.ErrControllerNotDefined
		handler := NewSessionHandler(mockSvc)

		req := withID(httptest.NewRequest(http.MethodPost, "/api/v1/sessions/1/complete", nil), "1")
		w := httptest.NewRecorder()

		handler.CompleteSession(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
		}
	})
}
