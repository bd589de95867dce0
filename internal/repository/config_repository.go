package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Samicowest/bag-bot/internal/models"
	"github.com/Samicowest/bag-bot/pkg/crypto"
)

// Ошибки репозитория конфигураций
var (
	ErrConfigNotFound = errors.New("bot config not found")
	ErrConfigExists   = errors.New("bot config with this name already exists")
)

const configColumns = `id, name, api_key, api_secret, symbol, min_order_size, max_order_size,
		profit_threshold, stop_loss_threshold, trading_interval, is_active, created_at, updated_at`

// ConfigRepository - работа с таблицей bot_configs.
// API ключи шифруются при записи и расшифровываются при чтении.
type ConfigRepository struct {
	db  *sql.DB
	box *crypto.Box
}

// NewConfigRepository создает репозиторий. box == nil - ключи хранятся открыто (только для тестов).
func NewConfigRepository(db *sql.DB, box *crypto.Box) *ConfigRepository {
	return &ConfigRepository{db: db, box: box}
}

func (r *ConfigRepository) seal(v string) (string, error) {
	if r.box == nil {
		return v, nil
	}
	return r.box.Seal(v)
}

func (r *ConfigRepository) open(v string) (string, error) {
	if r.box == nil {
		return v, nil
	}
	return r.box.Open(v)
}

func (r *ConfigRepository) scanConfig(row rowScanner) (*models.BotConfig, error) {
	c := &models.BotConfig{}
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.APIKey,
		&c.APISecret,
		&c.Symbol,
		&c.MinOrderSize,
		&c.MaxOrderSize,
		&c.ProfitThreshold,
		&c.StopLossThreshold,
		&c.TradingIntervalMinutes,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if c.APIKey, err = r.open(c.APIKey); err != nil {
		return nil, fmt.Errorf("decrypt api key of config %d: %w", c.ID, err)
	}
	if c.APISecret, err = r.open(c.APISecret); err != nil {
		return nil, fmt.Errorf("decrypt api secret of config %d: %w", c.ID, err)
	}
	return c, nil
}

// Create создает новую конфигурацию
func (r *ConfigRepository) Create(ctx context.Context, c *models.BotConfig) error {
	query := `
		INSERT INTO bot_configs (name, api_key, api_secret, symbol, min_order_size, max_order_size,
			profit_threshold, stop_loss_threshold, trading_interval, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`

	key, err := r.seal(c.APIKey)
	if err != nil {
		return err
	}
	secret, err := r.seal(c.APISecret)
	if err != nil {
		return err
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	err = r.db.QueryRowContext(ctx,
		query,
		c.Name,
		key,
		secret,
		c.Symbol,
		c.MinOrderSize,
		c.MaxOrderSize,
		c.ProfitThreshold,
		c.StopLossThreshold,
		c.TradingIntervalMinutes,
		false, // активация только через Activate
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrConfigExists
		}
		return err
	}

	c.IsActive = false
	return nil
}

// GetByID возвращает конфигурацию по ID
func (r *ConfigRepository) GetByID(ctx context.Context, id int64) (*models.BotConfig, error) {
	return r.getOne(ctx, `SELECT `+configColumns+` FROM bot_configs WHERE id = $1`, id)
}

// GetByName возвращает конфигурацию по имени
func (r *ConfigRepository) GetByName(ctx context.Context, name string) (*models.BotConfig, error) {
	return r.getOne(ctx, `SELECT `+configColumns+` FROM bot_configs WHERE name = $1`, name)
}

// GetActive возвращает активную конфигурацию
func (r *ConfigRepository) GetActive(ctx context.Context) (*models.BotConfig, error) {
	return r.getOne(ctx, `SELECT `+configColumns+` FROM bot_configs WHERE is_active = $1 LIMIT 1`, true)
}

func (r *ConfigRepository) getOne(ctx context.Context, query string, arg interface{}) (*models.BotConfig, error) {
	c, err := r.scanConfig(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return c, nil
}

// List возвращает все конфигурации
func (r *ConfigRepository) List(ctx context.Context) ([]*models.BotConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+configColumns+` FROM bot_configs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.BotConfig
	for rows.Next() {
		c, err := r.scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return configs, nil
}

// Update сохраняет параметры конфигурации. Флаг is_active не меняется.
func (r *ConfigRepository) Update(ctx context.Context, c *models.BotConfig) error {
	query := `
		UPDATE bot_configs
		SET name = $1, api_key = $2, api_secret = $3, symbol = $4, min_order_size = $5, max_order_size = $6,
			profit_threshold = $7, stop_loss_threshold = $8, trading_interval = $9, updated_at = $10
		WHERE id = $11`

	key, err := r.seal(c.APIKey)
	if err != nil {
		return err
	}
	secret, err := r.seal(c.APISecret)
	if err != nil {
		return err
	}
	c.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx,
		query,
		c.Name,
		key,
		secret,
		c.Symbol,
		c.MinOrderSize,
		c.MaxOrderSize,
		c.ProfitThreshold,
		c.StopLossThreshold,
		c.TradingIntervalMinutes,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConfigExists
		}
		return err
	}

	return checkAffected(result, ErrConfigNotFound)
}

// Delete удаляет конфигурацию
func (r *ConfigRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bot_configs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result, ErrConfigNotFound)
}

// Activate делает конфигурацию единственной активной в одной транзакции
func (r *ConfigRepository) Activate(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `UPDATE bot_configs SET is_active = $1, updated_at = $2 WHERE is_active = $3`, false, now, true); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `UPDATE bot_configs SET is_active = $1, updated_at = $2 WHERE id = $3`, true, now, id)
	if err != nil {
		return err
	}
	if err := checkAffected(result, ErrConfigNotFound); err != nil {
		return err
	}

	return tx.Commit()
}
