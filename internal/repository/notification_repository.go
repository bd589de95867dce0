package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Samicowest/bag-bot/internal/models"
)

// ErrNotificationNotFound - уведомление не найдено
var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `id, timestamp, type, severity, session_id, message, meta`

// NotificationRepository - работа с таблицей notifications (журнал событий бота)
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func scanNotification(row rowScanner) (*models.Notification, error) {
	n := &models.Notification{}
	var (
		sessionID sql.NullInt64
		meta      []byte
	)
	if err := row.Scan(&n.ID, &n.Timestamp, &n.Type, &n.Severity, &sessionID, &n.Message, &meta); err != nil {
		return nil, err
	}
	if sessionID.Valid {
		id := sessionID.Int64
		n.SessionID = &id
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Meta); err != nil {
			return nil, fmt.Errorf("decode notification meta: %w", err)
		}
	}
	return n, nil
}

// Create сохраняет уведомление. Meta пишется как JSON строка (JSONB в postgres, TEXT в sqlite).
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (timestamp, type, severity, session_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	var meta sql.NullString
	if len(n.Meta) > 0 {
		data, err := json.Marshal(n.Meta)
		if err != nil {
			return fmt.Errorf("encode notification meta: %w", err)
		}
		meta = sql.NullString{String: string(data), Valid: true}
	}

	return r.db.QueryRowContext(ctx, query, n.Timestamp, n.Type, n.Severity, n.SessionID, n.Message, meta).Scan(&n.ID)
}

// GetByID возвращает уведомление по ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// GetRecent возвращает последние limit уведомлений
func (r *NotificationRepository) GetRecent(ctx context.Context, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications ORDER BY timestamp DESC LIMIT $1`
	return r.query(ctx, query, normalizeLimit(limit))
}

// GetByTypes возвращает последние уведомления указанных типов.
// Пустой список типов эквивалентен GetRecent.
func (r *NotificationRepository) GetByTypes(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	if len(types) == 0 {
		return r.GetRecent(ctx, limit)
	}

	placeholders := make([]string, len(types))
	args := make([]interface{}, 0, len(types)+1)
	for i, t := range types {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, t)
	}
	args = append(args, normalizeLimit(limit))

	query := fmt.Sprintf(`SELECT %s FROM notifications WHERE type IN (%s) ORDER BY timestamp DESC LIMIT $%d`,
		notificationColumns, strings.Join(placeholders, ", "), len(types)+1)
	return r.query(ctx, query, args...)
}

// GetBySession возвращает уведомления сессии
func (r *NotificationRepository) GetBySession(ctx context.Context, sessionID int64, limit int) ([]*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE session_id = $1 ORDER BY timestamp DESC LIMIT $2`
	return r.query(ctx, query, sessionID, normalizeLimit(limit))
}

// DeleteAll очищает журнал уведомлений
func (r *NotificationRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM notifications`)
	return err
}

// DeleteOlderThan удаляет уведомления старше threshold и возвращает их количество
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE timestamp < $1`, threshold)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *NotificationRepository) query(ctx context.Context, query string, args ...interface{}) ([]*models.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// normalizeLimit ограничивает выборку журнала: по умолчанию 100, максимум 1000
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
