package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Samicowest/bag-bot/internal/models"
)

// ErrTradeNotFound - сделка не найдена
var ErrTradeNotFound = errors.New("trade not found")

const tradeColumns = `id, session_id, order_id, client_order_id, symbol, side, order_type, quantity, price,
		executed_quantity, executed_price, status, timestamp, exchange_timestamp, commission, commission_asset`

// TradeRepository - работа с таблицей trades
type TradeRepository struct {
	db *sql.DB
}

// NewTradeRepository создает новый экземпляр репозитория
func NewTradeRepository(db *sql.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	t := &models.Trade{}
	var (
		executedPrice sql.NullFloat64
		exchangeTime  sql.NullTime
	)
	err := row.Scan(
		&t.ID,
		&t.SessionID,
		&t.OrderID,
		&t.ClientOrderID,
		&t.Symbol,
		&t.Side,
		&t.OrderType,
		&t.Quantity,
		&t.Price,
		&t.ExecutedQuantity,
		&executedPrice,
		&t.Status,
		&t.Timestamp,
		&exchangeTime,
		&t.Commission,
		&t.CommissionAsset,
	)
	if err != nil {
		return nil, err
	}
	if executedPrice.Valid {
		p := executedPrice.Float64
		t.ExecutedPrice = &p
	}
	if exchangeTime.Valid {
		ts := exchangeTime.Time
		t.ExchangeTimestamp = &ts
	}
	return t, nil
}

// Create сохраняет сделку. Повторная запись с тем же order_id не создаёт дубликат,
// в t.ID возвращается ID существующей записи.
func (r *TradeRepository) Create(ctx context.Context, t *models.Trade) error {
	query := `
		INSERT INTO trades (session_id, order_id, client_order_id, symbol, side, order_type, quantity, price,
			executed_quantity, executed_price, status, timestamp, exchange_timestamp, commission, commission_asset)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (order_id) DO NOTHING
		RETURNING id`

	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	if t.OrderType == "" {
		t.OrderType = models.OrderTypeMarket
	}

	err := r.db.QueryRowContext(ctx,
		query,
		t.SessionID,
		t.OrderID,
		t.ClientOrderID,
		t.Symbol,
		t.Side,
		t.OrderType,
		t.Quantity,
		t.Price,
		t.ExecutedQuantity,
		t.ExecutedPrice,
		t.Status,
		t.Timestamp,
		t.ExchangeTimestamp,
		t.Commission,
		t.CommissionAsset,
	).Scan(&t.ID)

	if errors.Is(err, sql.ErrNoRows) {
		// конфликт по order_id: запись уже есть
		return r.db.QueryRowContext(ctx, `SELECT id FROM trades WHERE order_id = $1`, t.OrderID).Scan(&t.ID)
	}
	return err
}

// GetByOrderID возвращает сделку по ID ордера биржи
func (r *TradeRepository) GetByOrderID(ctx context.Context, orderID string) (*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE order_id = $1`

	t, err := scanTrade(r.db.QueryRowContext(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTradeNotFound
		}
		return nil, err
	}
	return t, nil
}

// GetBySession возвращает все сделки сессии в хронологическом порядке
func (r *TradeRepository) GetBySession(ctx context.Context, sessionID int64) ([]*models.Trade, error) {
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE session_id = $1 ORDER BY timestamp ASC, id ASC`
	return r.queryTrades(ctx, query, sessionID)
}

// GetRecentBySession возвращает последние limit сделок сессии, новые первыми
func (r *TradeRepository) GetRecentBySession(ctx context.Context, sessionID int64, limit int) ([]*models.Trade, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + tradeColumns + ` FROM trades WHERE session_id = $1 ORDER BY timestamp DESC, id DESC LIMIT $2`
	return r.queryTrades(ctx, query, sessionID, limit)
}

// CountBySession возвращает количество сделок сессии
func (r *TradeRepository) CountBySession(ctx context.Context, sessionID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE session_id = $1`, sessionID).Scan(&count)
	return count, err
}

func (r *TradeRepository) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*models.Trade, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return trades, nil
}
