package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/exchange"
)

// ============ BotHandler Tests ============

func TestBotHandler_StartStop(t *testing.T) {
	ctrl := NewMockBotController()
	handler := NewBotHandler(ctrl)

	steps := []struct {
		name       string
		call       func(w http.ResponseWriter, r *http.Request)
		wantStatus int
	}{
		{"start", handler.Start, http.StatusOK},
		{"start twice", handler.Start, http.StatusConflict},
		{"stop", handler.Stop, http.StatusOK},
		{"stop twice", handler.Stop, http.StatusConflict},
	}

	for _, step := range steps {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bot", nil)
		w := httptest.NewRecorder()

		step.call(w, req)

		if w.Code != step.wantStatus {
			t.Errorf("%s: expected status %d, got %d", step.name, step.wantStatus, w.Code)
		}
	}
}

func TestBotHandler_StartWithoutConfig(t *testing.T) {
	ctrl := NewMockBotController()
	ctrl.startErr = bot.ErrNoActiveConfig
	handler := NewBotHandler(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/start", nil)
	w := httptest.NewRecorder()

	handler.Start(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != "no_active_config" {
		t.Errorf("expected code no_active_config, got %q", resp.Code)
	}
}

func TestBotHandler_StopTimeout(t *testing.T) {
	ctrl := NewMockBotController()
	ctrl.stopErr = bot.ErrStopTimeout
	handler := NewBotHandler(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/stop", nil)
	w := httptest.NewRecorder()

	handler.Stop(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
	}
}

func TestBotHandler_GetStatus(t *testing.T) {
	sessionID := int64(7)
	ctrl := NewMockBotController()
	ctrl.running = true
	ctrl.status = bot.Status{HasSession: true, HasConfig: true, SessionID: &sessionID, Symbol: "BSTUSDT", IntervalMinutes: 15}
	handler := NewBotHandler(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bot/status", nil)
	w := httptest.NewRecorder()

	handler.GetStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{`"is_running":true`, `"has_active_session":true`, `"session_id":7`, `"symbol":"BSTUSDT"`} {
		if !strings.Contains(body, want) {
			t.Errorf("response %s does not contain %s", body, want)
		}
	}
}

func TestBotHandler_ForceCycle(t *testing.T) {
	t.Run("returns cycle result", func(t *testing.T) {
		ctrl := NewMockBotController()
		ctrl.result = &bot.CycleResult{
			Timestamp: time.Now(),
			Market:    &bot.MarketData{Symbol: "BSTUSDT", CurrentPrice: 0.5},
			Signal:    bot.Buy{QuoteAmount: 20, Reason: "accumulate"},
		}
		handler := NewBotHandler(ctrl)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/force-cycle", nil)
		w := httptest.NewRecorder()

		handler.ForceCycle(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
		}
		if ctrl.cycles != 1 {
			t.Errorf("expected 1 cycle, got %d", ctrl.cycles)
		}
		if !strings.Contains(w.Body.String(), `"action":"buy"`) {
			t.Errorf("signal not serialized: %s", w.Body.String())
		}
	})

	t.Run("no active session", func(t *testing.T) {
		ctrl := NewMockBotController()
		ctrl.err = bot.ErrNoActiveSession
		handler := NewBotHandler(ctrl)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/bot/force-cycle", nil)
		w := httptest.NewRecorder()

		handler.ForceCycle(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}
	})
}

// ============ StrategyHandler Tests ============

func TestStrategyHandler_Analyze(t *testing.T) {
	ctrl := NewMockBotController()
	ctrl.market = &bot.MarketData{Symbol: "BSTUSDT", CurrentPrice: 0.5, Sentiment: bot.SentimentNeutral}
	ctrl.signal = bot.Hold{Reason: "Quote balance 10.00 below minimum order size 15.00"}
	handler := NewStrategyHandler(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/strategy/analyze", nil)
	w := httptest.NewRecorder()

	handler.Analyze(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ctrl.cycles != 0 {
		t.Error("analyze must not execute a cycle")
	}

	var got struct {
		MarketData bot.MarketData `json:"market_data"`
		Signal     struct {
			Action string `json:"action"`
			Reason string `json:"reason"`
		} `json:"signal"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.MarketData.Symbol != "BSTUSDT" || got.Signal.Action != "hold" {
		t.Errorf("unexpected response: %+v", got)
	}
}

func TestStrategyHandler_Execute(t *testing.T) {
	ctrl := NewMockBotController()
	ctrl.result = &bot.CycleResult{Signal: bot.Hold{Reason: "wait"}}
	handler := NewStrategyHandler(ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/strategy/execute", nil)
	w := httptest.NewRecorder()

	handler.Execute(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ctrl.cycles != 1 {
		t.Errorf("expected 1 cycle, got %d", ctrl.cycles)
	}
}

func TestStrategyHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"exchange error", &exchange.ExchangeError{Exchange: "mexc", Code: "700002", Message: "signature invalid", HTTPStatus: 400}, http.StatusBadGateway},
		{"order too small", &bot.OrderSizeError{Quantity: 0.5, MinQty: 1}, http.StatusBadRequest},
		{"no config", bot.ErrNoActiveConfig, http.StatusConflict},
		{"no session", bot.ErrNoActiveSession, http.StatusNotFound},
		{"unexpected", ErrMockDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewMockBotController()
			ctrl.err = tt.err
			handler := NewStrategyHandler(ctrl)

			endpoints := map[string]func(http.ResponseWriter, *http.Request){
				"market-data": handler.GetMarketData,
				"analyze":     handler.Analyze,
				"execute":     handler.Execute,
				"risk":        handler.GetRiskAssessment,
				"balances":    handler.GetBalances,
			}
			for name, call := range endpoints {
				w := httptest.NewRecorder()
				call(w, httptest.NewRequest(http.MethodGet, "/api/v1/"+name, nil))

				if w.Code != tt.wantStatus {
					t.Errorf("%s: expected status %d, got %d", name, tt.wantStatus, w.Code)
				}
			}
		})
	}
}

func TestStrategyHandler_Balances(t *testing.T) {
	ctrl := NewMockBotController()
	ctrl.balances = &bot.Balances{
		Quote: &exchange.Balance{Asset: "USDT", Free: 80, Locked: 0, Total: 80},
		Base:  &exchange.Balance{Asset: "BST", Free: 40, Locked: 0, Total: 40},
	}
	handler := NewStrategyHandler(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/balances", nil)
	w := httptest.NewRecorder()

	handler.GetBalances(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var got bot.Balances
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Quote == nil || got.Quote.Free != 80 || got.Base == nil || got.Base.Total != 40 {
		t.Errorf("unexpected balances: %+v", got)
	}
}

func TestStrategyHandler_RiskAssessment(t *testing.T) {
	ctrl := NewMockBotController()
	ctrl.assessment = &bot.RiskAssessment{
		SessionID:       1,
		Risk:            &bot.PositionRisk{RiskScore: 31, RiskLevel: "MODERATE"},
		Recommendations: []string{},
	}
	handler := NewStrategyHandler(ctrl)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/risk/assessment", nil)
	w := httptest.NewRecorder()

	handler.GetRiskAssessment(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), `"risk_level":"MODERATE"`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}
