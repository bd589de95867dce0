package service

import (
	"context"
	"sort"
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/repository"
)

// ============ Mock SessionRepository ============

type MockSessionRepository struct {
	sessions  map[int64]*models.TradingSession
	createErr error
	getErr    error
	updateErr error
	nextID    int64
	updates   int
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[int64]*models.TradingSession),
		nextID:   1,
	}
}

func (m *MockSessionRepository) add(s *models.TradingSession) *models.TradingSession {
	if s.ID == 0 {
		s.ID = m.nextID
	}
	if s.ID >= m.nextID {
		m.nextID = s.ID + 1
	}
	m.sessions[s.ID] = s.Clone()
	return s
}

func (m *MockSessionRepository) Create(ctx context.Context, s *models.TradingSession) error {
	if m.createErr != nil {
		return m.createErr
	}
	if s.IsActive() {
		for _, existing := range m.sessions {
			if existing.IsActive() {
				return repository.ErrActiveSessionExists
			}
		}
	}
	s.ID = m.nextID
	m.nextID++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MockSessionRepository) GetByID(ctx context.Context, id int64) (*models.TradingSession, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MockSessionRepository) GetActive(ctx context.Context) (*models.TradingSession, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, s := range m.sessions {
		if s.IsActive() {
			return s.Clone(), nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m *MockSessionRepository) List(ctx context.Context, limit, offset int) ([]*models.TradingSession, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	ids := make([]int64, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	result := []*models.TradingSession{}
	for i, id := range ids {
		if i < offset {
			continue
		}
		if len(result) >= limit {
			break
		}
		result = append(result, m.sessions[id].Clone())
	}
	return result, nil
}

func (m *MockSessionRepository) Update(ctx context.Context, s *models.TradingSession) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.sessions[s.ID]; !ok {
		return repository.ErrSessionNotFound
	}
	m.updates++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, id int64, status string, endDate *time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	m.updates++
	s.Status = status
	s.EndDate = endDate
	return nil
}

func (m *MockSessionRepository) CountActive(ctx context.Context) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	count := 0
	for _, s := range m.sessions {
		if s.IsActive() {
			count++
		}
	}
	return count, nil
}

// ============ Mock TradeRepository ============

type MockTradeRepository struct {
	trades map[int64][]*models.Trade
	getErr error
}

func NewMockTradeRepository() *MockTradeRepository {
	return &MockTradeRepository{trades: make(map[int64][]*models.Trade)}
}

func (m *MockTradeRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.trades[sessionID], nil
}

func (m *MockTradeRepository) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.trades[sessionID]), nil
}

// ============ Mock ConfigRepository ============

type MockConfigRepository struct {
	configs     map[int64]*models.BotConfig
	createErr   error
	getErr      error
	updateErr   error
	deleteErr   error
	activateErr error
	nextID      int64
}

func NewMockConfigRepository() *MockConfigRepository {
	return &MockConfigRepository{
		configs: make(map[int64]*models.BotConfig),
		nextID:  1,
	}
}

func (m *MockConfigRepository) add(c *models.BotConfig) *models.BotConfig {
	c.ID = m.nextID
	m.nextID++
	cp := *c
	m.configs[c.ID] = &cp
	return c
}

func (m *MockConfigRepository) Create(ctx context.Context, c *models.BotConfig) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.configs {
		if existing.Name == c.Name {
			return repository.ErrConfigExists
		}
	}
	c.IsActive = false
	m.add(c)
	return nil
}

func (m *MockConfigRepository) GetByID(ctx context.Context, id int64) (*models.BotConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.configs[id]
	if !ok {
		return nil, repository.ErrConfigNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockConfigRepository) GetByName(ctx context.Context, name string) (*models.BotConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, c := range m.configs {
		if c.Name == name {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrConfigNotFound
}

func (m *MockConfigRepository) GetActive(ctx context.Context) (*models.BotConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, c := range m.configs {
		if c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrConfigNotFound
}

func (m *MockConfigRepository) List(ctx context.Context) ([]*models.BotConfig, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	result := make([]*models.BotConfig, 0, len(m.configs))
	for id := int64(1); id < m.nextID; id++ {
		if c, ok := m.configs[id]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockConfigRepository) Update(ctx context.Context, c *models.BotConfig) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	existing, ok := m.configs[c.ID]
	if !ok {
		return repository.ErrConfigNotFound
	}
	cp := *c
	cp.IsActive = existing.IsActive
	m.configs[c.ID] = &cp
	return nil
}

func (m *MockConfigRepository) Delete(ctx context.Context, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.configs[id]; !ok {
		return repository.ErrConfigNotFound
	}
	delete(m.configs, id)
	return nil
}

func (m *MockConfigRepository) Activate(ctx context.Context, id int64) error {
	if m.activateErr != nil {
		return m.activateErr
	}
	if _, ok := m.configs[id]; !ok {
		return repository.ErrConfigNotFound
	}
	for _, c := range m.configs {
		c.IsActive = c.ID == id
	}
	return nil
}

func (m *MockConfigRepository) activeCount() int {
	count := 0
	for _, c := range m.configs {
		if c.IsActive {
			count++
		}
	}
	return count
}

// ============ Mock NotificationRepository ============

type MockNotificationRepository struct {
	notifications []*models.Notification
	getErr        error
	deleteErr     error
	lastTypes     []string
	lastLimit     int
	lastThreshold time.Time
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.lastLimit = limit
	m.lastTypes = nil
	if len(m.notifications) > limit {
		return m.notifications[:limit], nil
	}
	return m.notifications, nil
}

func (m *MockNotificationRepository) GetByTypes(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.lastLimit = limit
	m.lastTypes = types

	wanted := make(map[string]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}
	var result []*models.Notification
	for _, n := range m.notifications {
		if wanted[n.Type] && len(result) < limit {
			result = append(result, n)
		}
	}
	return result, nil
}

func (m *MockNotificationRepository) DeleteAll(ctx context.Context) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.notifications = nil
	return nil
}

func (m *MockNotificationRepository) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.lastThreshold = threshold
	var kept []*models.Notification
	var deleted int64
	for _, n := range m.notifications {
		if n.Timestamp.Before(threshold) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	m.notifications = kept
	return deleted, nil
}

// ============ Mock BotController ============

type MockBotController struct {
	report      *bot.CycleReport
	completeErr error
	releaseErr  error
	// beforePersist выполняется под блокировкой сессии до записи
	beforePersist func(sessionID int64)

	completeCalls int
	released      []int64
}

func (m *MockBotController) Start(ctx context.Context) error { return nil }
func (m *MockBotController) Stop() error                     { return nil }
func (m *MockBotController) Status() bot.Status              { return bot.Status{} }

func (m *MockBotController) ForceCycle(ctx context.Context) (*bot.CycleResult, error) {
	return &bot.CycleResult{}, nil
}

func (m *MockBotController) Preview(ctx context.Context) (*bot.MarketData, bot.Signal, error) {
	return &bot.MarketData{}, bot.Hold{}, nil
}

func (m *MockBotController) MarketData(ctx context.Context) (*bot.MarketData, error) {
	return &bot.MarketData{}, nil
}

func (m *MockBotController) RiskAssessment(ctx context.Context) (*bot.RiskAssessment, error) {
	return &bot.RiskAssessment{}, nil
}

func (m *MockBotController) Balances(ctx context.Context) (*bot.Balances, error) {
	return &bot.Balances{}, nil
}

func (m *MockBotController) CompleteSession(ctx context.Context) (*bot.CycleReport, error) {
	m.completeCalls++
	if m.completeErr != nil {
		return nil, m.completeErr
	}
	return m.report, nil
}

func (m *MockBotController) ReleaseSession(sessionID int64, persist func() error) error {
	if m.releaseErr != nil {
		return m.releaseErr
	}
	if m.beforePersist != nil {
		m.beforePersist(sessionID)
	}
	if err := persist(); err != nil {
		return err
	}
	m.released = append(m.released, sessionID)
	return nil
}

// ============ Mock exchange.Client ============

type mockExchangeClient struct {
	validateErr error
	closed      bool
}

func (m *mockExchangeClient) GetName() string { return "mexc" }

func (m *mockExchangeClient) Get24hTicker(ctx context.Context, symbol string) (*exchange.Ticker24h, error) {
	return &exchange.Ticker24h{Symbol: symbol}, nil
}

func (m *mockExchangeClient) GetOrderBook(ctx context.Context, symbol string, depth int) (*exchange.OrderBook, error) {
	return &exchange.OrderBook{Symbol: symbol}, nil
}

func (m *mockExchangeClient) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

func (m *mockExchangeClient) GetBalance(ctx context.Context, asset string) (*exchange.Balance, error) {
	return &exchange.Balance{Asset: asset}, nil
}

func (m *mockExchangeClient) CalculateOrderSize(ctx context.Context, symbol string, quoteAmount float64) (float64, error) {
	return 0, nil
}

func (m *mockExchangeClient) GetMinimumOrderSize(ctx context.Context, symbol string) (*exchange.Limits, error) {
	return &exchange.Limits{Symbol: symbol}, nil
}

func (m *mockExchangeClient) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.Order, error) {
	return &exchange.Order{}, nil
}

func (m *mockExchangeClient) ValidateCredentials(ctx context.Context) error {
	return m.validateErr
}

func (m *mockExchangeClient) Close() { m.closed = true }

// mockFactory запоминает ключи, с которыми создавался клиент
func mockFactory(client *mockExchangeClient, seen *[]exchange.Credentials) exchange.Factory {
	return func(creds exchange.Credentials) (exchange.Client, error) {
		if seen != nil {
			*seen = append(*seen, creds)
		}
		return client, nil
	}
}
