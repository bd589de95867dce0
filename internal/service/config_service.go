package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Samicowest/bag-bot/internal/config"
	"github.com/Samicowest/bag-bot/internal/exchange"
	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/internal/repository"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

// Ошибки сервиса конфигураций
var (
	ErrConfigActive          = errors.New("cannot delete the active configuration")
	ErrEnvCredentialsMissing = errors.New("API credentials not found in environment variables")
	ErrCredentialsNotSet     = errors.New("API credentials not configured")
	ErrConfigNameRequired    = errors.New("config name is required")
)

// DefaultEnvConfigName - имя конфигурации, создаваемой из переменных окружения
const DefaultEnvConfigName = "Environment Config"

// CreateConfigRequest - запрос на создание конфигурации.
// Незаданные параметры стратегии берутся из значений по умолчанию окружения.
type CreateConfigRequest struct {
	Name                   string   `json:"name"`
	APIKey                 string   `json:"api_key"`
	APISecret              string   `json:"api_secret"`
	Symbol                 string   `json:"symbol,omitempty"`
	MinOrderSize           *float64 `json:"min_order_size,omitempty"`
	MaxOrderSize           *float64 `json:"max_order_size,omitempty"`
	ProfitThreshold        *float64 `json:"profit_threshold,omitempty"`
	StopLossThreshold      *float64 `json:"stop_loss_threshold,omitempty"`
	TradingIntervalMinutes *int     `json:"trading_interval_minutes,omitempty"`
	Activate               bool     `json:"activate,omitempty"`
}

// UpdateConfigRequest - частичное обновление конфигурации.
// Пустые api_key/api_secret оставляют сохранённые ключи.
type UpdateConfigRequest struct {
	Name                   *string  `json:"name,omitempty"`
	APIKey                 *string  `json:"api_key,omitempty"`
	APISecret              *string  `json:"api_secret,omitempty"`
	Symbol                 *string  `json:"symbol,omitempty"`
	MinOrderSize           *float64 `json:"min_order_size,omitempty"`
	MaxOrderSize           *float64 `json:"max_order_size,omitempty"`
	ProfitThreshold        *float64 `json:"profit_threshold,omitempty"`
	StopLossThreshold      *float64 `json:"stop_loss_threshold,omitempty"`
	TradingIntervalMinutes *int     `json:"trading_interval_minutes,omitempty"`
	IsActive               *bool    `json:"is_active,omitempty"`
}

// CredentialsCheck - результат проверки ключей на бирже
type CredentialsCheck struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// FromEnvResult - конфигурация из окружения и результат проверки её ключей
type FromEnvResult struct {
	Config        *models.BotConfig `json:"config"`
	Created       bool              `json:"created"`
	APIValidation *CredentialsCheck `json:"api_validation"`
}

// ConfigService предоставляет бизнес-логику для управления конфигурациями бота.
//
// Отвечает за:
// - CRUD конфигураций с валидацией параметров стратегии
// - Активацию (активна ровно одна конфигурация)
// - Создание конфигурации из MEXC_API_KEY / MEXC_API_SECRET
// - Проверку ключей через клиент биржи
//
// Наружу конфигурации отдаются с замаскированными ключами.
type ConfigService struct {
	configRepo ConfigRepositoryInterface
	factory    exchange.Factory
	appConfig  *config.Config
	logger     *utils.Logger
}

// NewConfigService создает новый экземпляр ConfigService.
func NewConfigService(configRepo ConfigRepositoryInterface, factory exchange.Factory, appConfig *config.Config) *ConfigService {
	if appConfig == nil {
		appConfig = config.Defaults()
	}
	return &ConfigService{
		configRepo: configRepo,
		factory:    factory,
		appConfig:  appConfig,
		logger:     utils.L().WithComponent("config-service"),
	}
}

// List возвращает все конфигурации
func (s *ConfigService) List(ctx context.Context) ([]*models.BotConfig, error) {
	configs, err := s.configRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	masked := make([]*models.BotConfig, 0, len(configs))
	for _, c := range configs {
		masked = append(masked, c.Masked())
	}
	return masked, nil
}

// Get возвращает конфигурацию по ID
func (s *ConfigService) Get(ctx context.Context, id int64) (*models.BotConfig, error) {
	c, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Masked(), nil
}

// Create создает конфигурацию.
//
// Правила:
// - name обязателен и уникален (repository.ErrConfigExists)
// - параметры проходят BotConfig.Validate (utils.ValidationErrors)
// - при Activate конфигурация сразу становится единственной активной
func (s *ConfigService) Create(ctx context.Context, req *CreateConfigRequest) (*models.BotConfig, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrConfigNameRequired
	}

	c := s.appConfig.TradingDefaults(name)
	c.APIKey = strings.TrimSpace(req.APIKey)
	c.APISecret = strings.TrimSpace(req.APISecret)
	if req.Symbol != "" {
		c.Symbol = utils.NormalizeSymbol(req.Symbol)
	}
	if req.MinOrderSize != nil {
		c.MinOrderSize = *req.MinOrderSize
	}
	if req.MaxOrderSize != nil {
		c.MaxOrderSize = *req.MaxOrderSize
	}
	if req.ProfitThreshold != nil {
		c.ProfitThreshold = *req.ProfitThreshold
	}
	if req.StopLossThreshold != nil {
		c.StopLossThreshold = *req.StopLossThreshold
	}
	if req.TradingIntervalMinutes != nil {
		c.TradingIntervalMinutes = *req.TradingIntervalMinutes
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := s.configRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info("Config created", utils.Symbol(c.Symbol), utils.Action("create"))

	if req.Activate {
		if err := s.configRepo.Activate(ctx, c.ID); err != nil {
			return nil, err
		}
		c.IsActive = true
	}

	return c.Masked(), nil
}

// Update применяет частичное обновление и повторно валидирует конфигурацию.
// is_active=true активирует конфигурацию, is_active=false игнорируется:
// снять активность можно только активировав другую.
func (s *ConfigService) Update(ctx context.Context, id int64, req *UpdateConfigRequest) (*models.BotConfig, error) {
	c, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrConfigNameRequired
		}
		c.Name = name
	}
	if req.APIKey != nil && strings.TrimSpace(*req.APIKey) != "" {
		c.APIKey = strings.TrimSpace(*req.APIKey)
	}
	if req.APISecret != nil && strings.TrimSpace(*req.APISecret) != "" {
		c.APISecret = strings.TrimSpace(*req.APISecret)
	}
	if req.Symbol != nil {
		c.Symbol = utils.NormalizeSymbol(*req.Symbol)
	}
	if req.MinOrderSize != nil {
		c.MinOrderSize = *req.MinOrderSize
	}
	if req.MaxOrderSize != nil {
		c.MaxOrderSize = *req.MaxOrderSize
	}
	if req.ProfitThreshold != nil {
		c.ProfitThreshold = *req.ProfitThreshold
	}
	if req.StopLossThreshold != nil {
		c.StopLossThreshold = *req.StopLossThreshold
	}
	if req.TradingIntervalMinutes != nil {
		c.TradingIntervalMinutes = *req.TradingIntervalMinutes
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.configRepo.Update(ctx, c); err != nil {
		return nil, err
	}

	if req.IsActive != nil && *req.IsActive && !c.IsActive {
		if err := s.configRepo.Activate(ctx, c.ID); err != nil {
			return nil, err
		}
		c.IsActive = true
	}

	return c.Masked(), nil
}

// Delete удаляет неактивную конфигурацию
func (s *ConfigService) Delete(ctx context.Context, id int64) error {
	c, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.IsActive {
		return ErrConfigActive
	}
	return s.configRepo.Delete(ctx, id)
}

// Activate делает конфигурацию единственной активной.
// Работающий планировщик подхватит её после перезапуска.
func (s *ConfigService) Activate(ctx context.Context, id int64) (*models.BotConfig, error) {
	if err := s.configRepo.Activate(ctx, id); err != nil {
		return nil, err
	}
	c, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Config activated", configID(id))
	return c.Masked(), nil
}

// CreateFromEnv создает или обновляет конфигурацию по ключам из окружения,
// активирует её и проверяет ключи на бирже.
//
// Параметры стратегии берутся из DEFAULT_* переменных окружения.
// Ошибка проверки ключей не отменяет сохранение: результат в APIValidation.
func (s *ConfigService) CreateFromEnv(ctx context.Context, name string) (*FromEnvResult, error) {
	if !s.appConfig.HasExchangeCredentials() {
		return nil, ErrEnvCredentialsMissing
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultEnvConfigName
	}

	fresh := s.appConfig.TradingDefaults(name)
	if err := fresh.Validate(); err != nil {
		return nil, err
	}

	result := &FromEnvResult{}
	existing, err := s.configRepo.GetByName(ctx, name)
	switch {
	case err == nil:
		fresh.ID = existing.ID
		fresh.CreatedAt = existing.CreatedAt
		if err := s.configRepo.Update(ctx, fresh); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrConfigNotFound):
		if err := s.configRepo.Create(ctx, fresh); err != nil {
			return nil, err
		}
		result.Created = true
	default:
		return nil, err
	}

	if err := s.configRepo.Activate(ctx, fresh.ID); err != nil {
		return nil, err
	}
	fresh.IsActive = true

	check, err := s.checkCredentials(ctx, fresh)
	if err != nil {
		return nil, err
	}

	result.Config = fresh.Masked()
	result.APIValidation = check
	s.logger.Info("Config saved from environment",
		configID(fresh.ID),
		utils.Symbol(fresh.Symbol),
		utils.State(fmt.Sprintf("valid=%t", check.Valid)),
	)
	return result, nil
}

// ValidateCredentials проверяет сохранённые ключи конфигурации на бирже
func (s *ConfigService) ValidateCredentials(ctx context.Context, id int64) (*CredentialsCheck, error) {
	c, err := s.configRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.APIKey == "" || c.APISecret == "" {
		return nil, ErrCredentialsNotSet
	}
	return s.checkCredentials(ctx, c)
}

// checkCredentials: отказ биржи - это результат проверки, а не ошибка сервиса
func (s *ConfigService) checkCredentials(ctx context.Context, c *models.BotConfig) (*CredentialsCheck, error) {
	client, err := s.factory(exchange.Credentials{APIKey: c.APIKey, APISecret: c.APISecret})
	if err != nil {
		return nil, fmt.Errorf("create exchange client: %w", err)
	}
	if closer, ok := client.(interface{ Close() }); ok {
		defer closer.Close()
	}

	if err := client.ValidateCredentials(ctx); err != nil {
		s.logger.Warn("Credentials rejected", configID(c.ID), utils.Reason(err.Error()))
		return &CredentialsCheck{Valid: false, Message: err.Error()}, nil
	}
	return &CredentialsCheck{Valid: true, Message: "API credentials are valid"}, nil
}

func configID(id int64) utils.Field {
	return utils.Int64("config_id", id)
}
