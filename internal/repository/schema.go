package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Поддерживаемые драйверы БД
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Схема общая для обоих драйверов, различаются только автоинкремент и типы JSON/времени.
// Плейсхолдеры {{id}}, {{json}}, {{now}} заменяются в migrationsFor.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS bot_configs (
		id {{id}},
		name VARCHAR(100) UNIQUE NOT NULL,
		api_key TEXT NOT NULL,
		api_secret TEXT NOT NULL,
		symbol VARCHAR(30) NOT NULL DEFAULT 'BSTUSDT',
		min_order_size DECIMAL(20, 8) NOT NULL DEFAULT 10,
		max_order_size DECIMAL(20, 8) NOT NULL DEFAULT 100,
		profit_threshold DECIMAL(10, 6) NOT NULL DEFAULT 0.02,
		stop_loss_threshold DECIMAL(10, 6) NOT NULL DEFAULT 0.05,
		trading_interval INT NOT NULL DEFAULT 15,
		is_active BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL DEFAULT {{now}},
		updated_at TIMESTAMP NOT NULL DEFAULT {{now}}
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_bot_configs_single_active ON bot_configs (is_active) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS trading_sessions (
		id {{id}},
		session_name VARCHAR(100) NOT NULL,
		initial_capital DECIMAL(20, 8) NOT NULL CHECK (initial_capital >= 0),
		current_capital DECIMAL(20, 8) NOT NULL DEFAULT 0 CHECK (current_capital >= 0),
		accumulated_tokens DECIMAL(30, 8) NOT NULL DEFAULT 0 CHECK (accumulated_tokens >= 0),
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		start_date TIMESTAMP NOT NULL DEFAULT {{now}},
		end_date TIMESTAMP,
		cycle_duration_days INT NOT NULL DEFAULT 30,
		created_at TIMESTAMP NOT NULL DEFAULT {{now}},
		updated_at TIMESTAMP NOT NULL DEFAULT {{now}}
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_trading_sessions_single_active ON trading_sessions (status) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS trades (
		id {{id}},
		session_id BIGINT NOT NULL REFERENCES trading_sessions(id) ON DELETE CASCADE,
		order_id VARCHAR(100) UNIQUE NOT NULL,
		client_order_id VARCHAR(64) NOT NULL DEFAULT '',
		symbol VARCHAR(30) NOT NULL,
		side VARCHAR(10) NOT NULL,
		order_type VARCHAR(20) NOT NULL DEFAULT 'MARKET',
		quantity DECIMAL(30, 8) NOT NULL CHECK (quantity > 0),
		price DECIMAL(20, 8) NOT NULL DEFAULT 0,
		executed_quantity DECIMAL(30, 8) NOT NULL DEFAULT 0,
		executed_price DECIMAL(20, 8),
		status VARCHAR(20) NOT NULL,
		timestamp TIMESTAMP NOT NULL DEFAULT {{now}},
		exchange_timestamp TIMESTAMP,
		commission DECIMAL(20, 8) NOT NULL DEFAULT 0,
		commission_asset VARCHAR(20) NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_session_time ON trades (session_id, timestamp)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id {{id}},
		timestamp TIMESTAMP NOT NULL DEFAULT {{now}},
		type VARCHAR(50) NOT NULL,
		severity VARCHAR(10) NOT NULL DEFAULT 'info',
		session_id BIGINT,
		message TEXT NOT NULL,
		meta {{json}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_timestamp ON notifications (timestamp)`,
}

// migrationsFor подставляет диалектные типы в общую схему
func migrationsFor(driver string) ([]string, error) {
	var r *strings.Replacer
	switch driver {
	case DriverPostgres:
		r = strings.NewReplacer("{{id}}", "BIGSERIAL PRIMARY KEY", "{{json}}", "JSONB", "{{now}}", "NOW()")
	case DriverSQLite:
		r = strings.NewReplacer("{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{json}}", "TEXT", "{{now}}", "CURRENT_TIMESTAMP")
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	stmts := make([]string, len(migrations))
	for i, m := range migrations {
		stmts[i] = r.Replace(m)
	}
	return stmts, nil
}

// Migrate создаёт таблицы и индексы, если их ещё нет. Повторный вызов безопасен.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	stmts, err := migrationsFor(driver)
	if err != nil {
		return err
	}

	if driver == DriverSQLite {
		// внешние ключи в SQLite выключены по умолчанию
		if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
			return fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}

// isUniqueViolation распознаёт нарушение уникальности для postgres (23505) и sqlite
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "23505") ||
		strings.Contains(errStr, "UNIQUE constraint failed")
}
