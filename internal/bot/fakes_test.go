package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/retry"
)

// ============================================================
// fakeExchange - биржа в памяти
// ============================================================

type fakeExchange struct {
	mu sync.Mutex

	ticker   exchange.Ticker24h
	book     exchange.OrderBook
	price    float64
	balances map[string]float64
	limits   exchange.Limits

	tickerErr  error
	balanceErr error
	placeErr   error

	// tickerGate блокирует Get24hTicker до закрытия канала
	tickerGate   chan struct{}
	tickerCalled chan struct{}

	// onPlace изменяет балансы после исполнения ордера
	onPlace    func(f *fakeExchange, req exchange.OrderRequest)
	placeDelay time.Duration

	orders      []exchange.OrderRequest
	inFlight    int
	maxInFlight int
	nextID      int
}

func newFakeExchange(quote, base, price float64) *fakeExchange {
	return &fakeExchange{
		ticker: exchange.Ticker24h{Symbol: "BSTUSDT", LastPrice: price, PriceChangePercent: 0, Volume: 50000},
		book: exchange.OrderBook{
			Symbol: "BSTUSDT",
			Bids:   []exchange.PriceLevel{{Price: price, Volume: 1000}},
			Asks:   []exchange.PriceLevel{{Price: price * 1.001, Volume: 1000}},
		},
		price:    price,
		balances: map[string]float64{"USDT": quote, "BST": base},
		limits:   exchange.Limits{Symbol: "BSTUSDT", MinOrderQty: 1, QtyStep: 0.01, MinNotional: 1},
	}
}

func (f *fakeExchange) GetName() string { return "fake" }

func (f *fakeExchange) Get24hTicker(ctx context.Context, symbol string) (*exchange.Ticker24h, error) {
	f.mu.Lock()
	gate, called := f.tickerGate, f.tickerCalled
	f.mu.Unlock()

	if called != nil {
		select {
		case called <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tickerErr != nil {
		return nil, f.tickerErr
	}
	t := f.ticker
	return &t, nil
}

func (f *fakeExchange) GetOrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.book
	return &b, nil
}

func (f *fakeExchange) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, nil
}

func (f *fakeExchange) GetBalance(ctx context.Context, asset string) (*exchange.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	v := f.balances[asset]
	return &exchange.Balance{Asset: asset, Free: v, Total: v}, nil
}

func (f *fakeExchange) CalculateOrderSize(ctx context.Context, symbol string, quoteAmount float64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.price <= 0 {
		return 0, errors.New("invalid price")
	}
	return quoteAmount / f.price, nil
}

func (f *fakeExchange) GetMinimumOrderSize(ctx context.Context, symbol string) (*exchange.Limits, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.limits
	return &l, nil
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.placeDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--

	if f.placeErr != nil {
		return nil, f.placeErr
	}

	f.orders = append(f.orders, req)
	if f.onPlace != nil {
		f.onPlace(f, req)
	} else if req.Side == exchange.SideBuy {
		f.balances["USDT"] -= req.Quantity * f.price
		f.balances["BST"] += req.Quantity
	} else {
		f.balances["USDT"] += req.Quantity * f.price
		f.balances["BST"] -= req.Quantity
	}

	f.nextID++
	return &exchange.Order{
		OrderID:       fmt.Sprintf("order-%d", f.nextID),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         f.price,
		ExecutedQty:   req.Quantity,
		Status:        exchange.OrderStatusFilled,
		TransactTime:  time.Now(),
	}, nil
}

func (f *fakeExchange) ValidateCredentials(ctx context.Context) error { return nil }

func (f *fakeExchange) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

func (f *fakeExchange) setTickerChange(changePct, volume float64) {
	f.mu.Lock()
	f.ticker.PriceChangePercent = changePct
	f.ticker.Volume = volume
	f.mu.Unlock()
}

// ============================================================
// fakeStore - хранилище в памяти
// ============================================================

type fakeStore struct {
	mu sync.Mutex

	session       *models.TradingSession
	config        *models.BotConfig
	trades        []*models.Trade
	notifications []*models.Notification

	createTradeFailures int
	tradesErr           error
	updateErr           error
	configErr           error
}

func newFakeStore(session *models.TradingSession, cfg *models.BotConfig) *fakeStore {
	return &fakeStore{session: session, config: cfg}
}

func (s *fakeStore) GetActiveSession(ctx context.Context) (*models.TradingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || !s.session.IsActive() {
		return nil, nil
	}
	return s.session.Clone(), nil
}

func (s *fakeStore) GetActiveConfig(ctx context.Context) (*models.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.configErr != nil {
		return nil, s.configErr
	}
	if s.config == nil || !s.config.IsActive {
		return nil, nil
	}
	c := *s.config
	return &c, nil
}

func (s *fakeStore) CreateTrade(ctx context.Context, trade *models.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createTradeFailures > 0 {
		s.createTradeFailures--
		return errors.New("connection reset")
	}
	for _, t := range s.trades {
		if t.OrderID == trade.OrderID {
			trade.ID = t.ID
			return nil
		}
	}
	trade.ID = int64(len(s.trades) + 1)
	c := *trade
	s.trades = append(s.trades, &c)
	return nil
}

func (s *fakeStore) GetTradesBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tradesErr != nil {
		return nil, s.tradesErr
	}
	var result []*models.Trade
	for _, t := range s.trades {
		if t.SessionID == sessionID {
			c := *t
			result = append(result, &c)
		}
	}
	return result, nil
}

func (s *fakeStore) UpdateSession(ctx context.Context, session *models.TradingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.session = session.Clone()
	return nil
}

func (s *fakeStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = int64(len(s.notifications) + 1)
	s.notifications = append(s.notifications, n)
	return nil
}

func (s *fakeStore) storedSession() *models.TradingSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

func (s *fakeStore) notificationTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, 0, len(s.notifications))
	for _, n := range s.notifications {
		types = append(types, n.Type)
	}
	return types
}

func (s *fakeStore) addTrades(sessionID int64, n int, ts time.Time, side, status string, price *float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.trades = append(s.trades, &models.Trade{
			ID:            int64(len(s.trades) + 1),
			SessionID:     sessionID,
			OrderID:       fmt.Sprintf("seed-%d", len(s.trades)+1),
			Side:          side,
			Status:        status,
			Quantity:      1,
			Timestamp:     ts,
			ExecutedPrice: price,
		})
	}
}

// ============================================================
// fakeHub
// ============================================================

type fakeHub struct {
	mu            sync.Mutex
	results       []*CycleResult
	notifications []*models.Notification
}

func (h *fakeHub) BroadcastCycleResult(result *CycleResult) {
	h.mu.Lock()
	h.results = append(h.results, result)
	h.mu.Unlock()
}

func (h *fakeHub) BroadcastNotification(n *models.Notification) {
	h.mu.Lock()
	h.notifications = append(h.notifications, n)
	h.mu.Unlock()
}

func (h *fakeHub) resultCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.results)
}

// ============================================================
// Фикстуры
// ============================================================

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testConfig() *models.BotConfig {
	cfg := models.NewBotConfig("test", "mx0vglm9obNeHebaD7", "7b209e8796bf44dc969148f609844e9d")
	cfg.ID = 1
	cfg.IsActive = true
	cfg.MinOrderSize = 15
	cfg.MaxOrderSize = 75
	return cfg
}

func testSession(initial float64) *models.TradingSession {
	s := models.NewTradingSession("bag", initial, 30, testNow.Add(-48*time.Hour))
	s.ID = 1
	return s
}

func fastPersist() retry.Config {
	return retry.Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

// newTestEngine создаёт движок с фиксированным временем и привязанной сессией
func newTestEngine(ex *fakeExchange, st *fakeStore, hub Broadcaster) *Engine {
	cfg := testConfig()
	e := NewEngine(cfg, ex, st, EngineOptions{Broadcaster: hub, Persist: fastPersist()})
	e.now = func() time.Time { return testNow }
	e.risk.now = e.now
	if st.session != nil {
		e.BindSession(st.session.Clone())
	}
	return e
}
