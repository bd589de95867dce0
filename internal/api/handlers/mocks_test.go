package handlers

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Samicowest/bag-bot/internal/bot"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/repository"
	"github.com/Samicowest/bag-bot/internal/service"
)

// ErrMockDatabase ошибка для тестов
var ErrMockDatabase = errors.New("mock database error")

// ============ Mock Config Service ============

// MockConfigService мок для ConfigServiceInterface
type MockConfigService struct {
	configs     map[int64]*models.BotConfig
	nextID      int64
	err         error
	fromEnv     *service.FromEnvResult
	check       *service.CredentialsCheck
	lastCreate  *service.CreateConfigRequest
	lastUpdate  *service.UpdateConfigRequest
	lastEnvName string
	mu          sync.Mutex
}

// NewMockConfigService создает новый мок сервиса конфигураций
func NewMockConfigService() *MockConfigService {
	return &MockConfigService{
		configs: make(map[int64]*models.BotConfig),
		nextID:  1,
	}
}

func (m *MockConfigService) add(name string) *models.BotConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := models.NewBotConfig(name, "mx0v****1234", "****")
	c.ID = m.nextID
	m.nextID++
	m.configs[c.ID] = c
	return c
}

func (m *MockConfigService) List(ctx context.Context) ([]*models.BotConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make([]*models.BotConfig, 0, len(m.configs))
	for _, c := range m.configs {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockConfigService) Get(ctx context.Context, id int64) (*models.BotConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.configs[id]
	if !ok {
		return nil, repository.ErrConfigNotFound
	}
	return c, nil
}

func (m *MockConfigService) Create(ctx context.Context, req *service.CreateConfigRequest) (*models.BotConfig, error) {
	m.lastCreate = req
	if m.err != nil {
		return nil, m.err
	}
	c := m.add(req.Name)
	if req.Symbol != "" {
		c.Symbol = req.Symbol
	}
	c.IsActive = req.Activate
	return c, nil
}

func (m *MockConfigService) Update(ctx context.Context, id int64, req *service.UpdateConfigRequest) (*models.BotConfig, error) {
	m.lastUpdate = req
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.MaxOrderSize != nil {
		c.MaxOrderSize = *req.MaxOrderSize
	}
	return c, nil
}

func (m *MockConfigService) Delete(ctx context.Context, id int64) error {
	c, err := m.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.IsActive {
		return service.ErrConfigActive
	}
	m.mu.Lock()
	delete(m.configs, id)
	m.mu.Unlock()
	return nil
}

func (m *MockConfigService) Activate(ctx context.Context, id int64) (*models.BotConfig, error) {
	c, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	for _, other := range m.configs {
		other.IsActive = false
	}
	c.IsActive = true
	m.mu.Unlock()
	return c, nil
}

func (m *MockConfigService) CreateFromEnv(ctx context.Context, name string) (*service.FromEnvResult, error) {
	m.lastEnvName = name
	if m.err != nil {
		return nil, m.err
	}
	return m.fromEnv, nil
}

func (m *MockConfigService) ValidateCredentials(ctx context.Context, id int64) (*service.CredentialsCheck, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return m.check, nil
}

// ============ Mock Session Service ============

// MockSessionService мок для SessionServiceInterface
type MockSessionService struct {
	sessions   map[int64]*models.TradingSession
	trades     map[int64][]*models.Trade
	nextID     int64
	err        error
	report     *bot.CycleReport
	lastLimit  int
	lastOffset int
	mu         sync.Mutex
}

// NewMockSessionService создает новый мок сервиса сессий
func NewMockSessionService() *MockSessionService {
	return &MockSessionService{
		sessions: make(map[int64]*models.TradingSession),
		trades:   make(map[int64][]*models.Trade),
		nextID:   1,
	}
}

func (m *MockSessionService) add(name, status string) *models.TradingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := models.NewTradingSession(name, 100, 30, time.Now())
	s.ID = m.nextID
	s.Status = status
	m.nextID++
	m.sessions[s.ID] = s
	return s
}

func (m *MockSessionService) hasActive() bool {
	for _, s := range m.sessions {
		if s.IsActive() {
			return true
		}
	}
	return false
}

func (m *MockSessionService) List(ctx context.Context, limit, offset int) ([]*models.TradingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit, m.lastOffset = limit, offset
	if m.err != nil {
		return nil, m.err
	}
	result := make([]*models.TradingSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *MockSessionService) Get(ctx context.Context, id int64) (*service.SessionDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	trades := m.trades[id]
	if trades == nil {
		trades = []*models.Trade{}
	}
	return &service.SessionDetails{TradingSession: s, Trades: trades}, nil
}

func (m *MockSessionService) Create(ctx context.Context, req *service.CreateSessionRequest) (*models.TradingSession, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	active := m.hasActive()
	m.mu.Unlock()
	if active {
		return nil, repository.ErrActiveSessionExists
	}
	s := m.add(req.Name, models.SessionStatusActive)
	s.InitialCapital = req.InitialCapital
	s.CurrentCapital = req.InitialCapital
	return s, nil
}

func (m *MockSessionService) Update(ctx context.Context, id int64, req *service.UpdateSessionRequest) (*models.TradingSession, error) {
	details, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s := details.TradingSession
	if req.Status != nil {
		if !bot.CanTransition(s.Status, *req.Status) {
			return nil, service.ErrInvalidTransition
		}
		s.Status = *req.Status
	}
	if req.Name != nil {
		s.Name = strings.TrimSpace(*req.Name)
	}
	return s, nil
}

func (m *MockSessionService) Complete(ctx context.Context, id int64) (*bot.CycleReport, error) {
	details, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !details.IsActive() {
		return nil, bot.ErrSessionNotActive
	}
	details.Status = models.SessionStatusCompleted
	return m.report, nil
}

// ============ Mock Notification Service ============

// MockNotificationService мок для NotificationServiceInterface
type MockNotificationService struct {
	notifications []*models.Notification
	getErr        error
	clearErr      error
	lastTypes     []string
	lastLimit     int
	lastAge       time.Duration
	nextID        int64
	mu            sync.Mutex
}

// NewMockNotificationService создает новый мок сервиса уведомлений
func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{nextID: 1}
}

// AddNotification добавляет уведомление в мок
func (m *MockNotificationService) AddNotification(typ, severity, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, &models.Notification{
		ID:        m.nextID,
		Timestamp: time.Now(),
		Type:      typ,
		Severity:  severity,
		Message:   message,
	})
	m.nextID++
}

func (m *MockNotificationService) GetNotifications(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastTypes, m.lastLimit = types, limit
	if m.getErr != nil {
		return nil, m.getErr
	}
	if limit <= 0 {
		limit = 100
	}

	allowed := make(map[string]bool)
	for _, t := range types {
		allowed[strings.ToUpper(strings.TrimSpace(t))] = true
	}

	result := make([]*models.Notification, 0)
	for _, n := range m.notifications {
		if len(allowed) > 0 && !allowed[n.Type] {
			continue
		}
		result = append(result, n)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *MockNotificationService) ClearNotifications(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clearErr != nil {
		return m.clearErr
	}
	m.notifications = nil
	return nil
}

func (m *MockNotificationService) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastAge = age
	if m.clearErr != nil {
		return 0, m.clearErr
	}
	threshold := time.Now().Add(-age)
	kept := m.notifications[:0]
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

// ============ Mock Bot Controller ============

// MockBotController мок для service.BotController
type MockBotController struct {
	running    bool
	status     bot.Status
	startErr   error
	stopErr    error
	err        error
	market     *bot.MarketData
	signal     bot.Signal
	result     *bot.CycleResult
	assessment *bot.RiskAssessment
	balances   *bot.Balances
	cycles     int
	mu         sync.Mutex
}

// NewMockBotController создает новый мок контроллера бота
func NewMockBotController() *MockBotController {
	return &MockBotController{}
}

func (m *MockBotController) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return m.startErr
	}
	if m.running {
		return bot.ErrAlreadyRunning
	}
	m.running = true
	return nil
}

func (m *MockBotController) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	if !m.running {
		return bot.ErrNotRunning
	}
	m.running = false
	return nil
}

func (m *MockBotController) Status() bot.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.status
	st.Running = m.running
	return st
}

func (m *MockBotController) ForceCycle(ctx context.Context) (*bot.CycleResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.cycles++
	return m.result, nil
}

func (m *MockBotController) Preview(ctx context.Context) (*bot.MarketData, bot.Signal, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.market, m.signal, nil
}

func (m *MockBotController) MarketData(ctx context.Context) (*bot.MarketData, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.market, nil
}

func (m *MockBotController) RiskAssessment(ctx context.Context) (*bot.RiskAssessment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.assessment, nil
}

func (m *MockBotController) Balances(ctx context.Context) (*bot.Balances, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.balances, nil
}

func (m *MockBotController) CompleteSession(ctx context.Context) (*bot.CycleReport, error) {
	return nil, m.err
}

func (m *MockBotController) ReleaseSession(sessionID int64, persist func() error) error {
	if persist != nil {
		return persist()
	}
	return nil
}

var (
	_ service.ConfigServiceInterface       = (*MockConfigService)(nil)
	_ service.SessionServiceInterface      = (*MockSessionService)(nil)
	_ service.NotificationServiceInterface = (*MockNotificationService)(nil)
	_ service.BotController                = (*MockBotController)(nil)
)
