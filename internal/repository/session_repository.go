package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Samicowest/bag-bot/internal/models"
)

// Ошибки репозитория сессий
var (
	ErrSessionNotFound     = errors.New("trading session not found")
	ErrActiveSessionExists = errors.New("active trading session already exists")
)

const sessionColumns = `id, session_name, initial_capital, current_capital, accumulated_tokens, status,
		start_date, end_date, cycle_duration_days, created_at, updated_at`

// SessionRepository - работа с таблицей trading_sessions
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository создает новый экземпляр репозитория
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.TradingSession, error) {
	s := &models.TradingSession{}
	var endDate sql.NullTime
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.InitialCapital,
		&s.CurrentCapital,
		&s.AccumulatedTokens,
		&s.Status,
		&s.StartDate,
		&endDate,
		&s.CycleDurationDays,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if endDate.Valid {
		end := endDate.Time
		s.EndDate = &end
	}
	return s, nil
}

// Create создает новую сессию. Вторая активная сессия отклоняется индексом БД.
func (r *SessionRepository) Create(ctx context.Context, s *models.TradingSession) error {
	query := `
		INSERT INTO trading_sessions (session_name, initial_capital, current_capital, accumulated_tokens, status,
			start_date, end_date, cycle_duration_days, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	now := time.Now()
	if s.StartDate.IsZero() {
		s.StartDate = now
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	if s.Status == "" {
		s.Status = models.SessionStatusActive
	}
	if s.CycleDurationDays == 0 {
		s.CycleDurationDays = models.DefaultCycleDurationDays
	}

	err := r.db.QueryRowContext(ctx,
		query,
		s.Name,
		s.InitialCapital,
		s.CurrentCapital,
		s.AccumulatedTokens,
		s.Status,
		s.StartDate,
		s.EndDate,
		s.CycleDurationDays,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveSessionExists
		}
		return err
	}

	return nil
}

// GetByID возвращает сессию по ID
func (r *SessionRepository) GetByID(ctx context.Context, id int64) (*models.TradingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM trading_sessions WHERE id = $1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// GetActive возвращает активную сессию (последнюю созданную, если индекс не защищает)
func (r *SessionRepository) GetActive(ctx context.Context) (*models.TradingSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM trading_sessions WHERE status = $1 ORDER BY created_at DESC LIMIT 1`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, models.SessionStatusActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

// List возвращает сессии от новых к старым
func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]*models.TradingSession, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + sessionColumns + ` FROM trading_sessions ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.TradingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Update сохраняет изменяемые поля сессии (метрики, статус, дату окончания)
func (r *SessionRepository) Update(ctx context.Context, s *models.TradingSession) error {
	query := `
		UPDATE trading_sessions
		SET session_name = $1, current_capital = $2, accumulated_tokens = $3, status = $4,
			end_date = $5, cycle_duration_days = $6, updated_at = $7
		WHERE id = $8`

	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx,
		query,
		s.Name,
		s.CurrentCapital,
		s.AccumulatedTokens,
		s.Status,
		s.EndDate,
		s.CycleDurationDays,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveSessionExists
		}
		return err
	}

	return checkAffected(result, ErrSessionNotFound)
}

// UpdateStatus меняет только статус и дату окончания
func (r *SessionRepository) UpdateStatus(ctx context.Context, id int64, status string, endDate *time.Time) error {
	query := `UPDATE trading_sessions SET status = $1, end_date = $2, updated_at = $3 WHERE id = $4`

	result, err := r.db.ExecContext(ctx, query, status, endDate, time.Now(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrActiveSessionExists
		}
		return err
	}

	return checkAffected(result, ErrSessionNotFound)
}

// CountActive возвращает количество активных сессий
func (r *SessionRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trading_sessions WHERE status = $1`, models.SessionStatusActive).Scan(&count)
	return count, err
}

// checkAffected возвращает notFound, если запрос не изменил ни одной строки
func checkAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
