package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	cryptorand "crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/oklog/ulid/v2"

	"github.com/Samicowest/bag-bot/pkg/ratelimit"
	"github.com/Samicowest/bag-bot/pkg/utils"
)

const (
	mexcName           = "mexc"
	mexcBaseURL        = "https://api.mexc.com"
	mexcAPIKeyHeader   = "X-MEXC-APIKEY"
	mexcDefaultRecvWin = 5 * time.Second
)

// категории лимитов запросов
const (
	limitMarket  = "market"
	limitAccount = "account"
	limitOrder   = "order"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MEXCConfig - параметры клиента MEXC
type MEXCConfig struct {
	APIKey     string
	APISecret  string
	BaseURL    string        // по умолчанию https://api.mexc.com
	RateLimit  float64       // запросов в секунду на категорию
	RecvWindow time.Duration // окно приёма подписанного запроса
	Timeout    time.Duration // общий таймаут, если HTTPClient не задан
	HTTPClient *HTTPClient   // nil - создаётся с DefaultHTTPClientConfig
}

// MEXC реализует Client для спота MEXC (REST API v3)
type MEXC struct {
	apiKey     string
	secretKey  string
	recvWindow time.Duration

	rest    *resty.Client
	http    *HTTPClient
	limiter *ratelimit.MultiLimiter
	log     *utils.Logger
	now     func() time.Time
}

// NewMEXC создаёт клиент MEXC поверх общего HTTP транспорта
func NewMEXC(cfg MEXCConfig) *MEXC {
	if cfg.BaseURL == "" {
		cfg.BaseURL = mexcBaseURL
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = mexcDefaultRecvWin
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hcfg := DefaultHTTPClientConfig()
		if cfg.Timeout > 0 {
			hcfg.TotalTimeout = cfg.Timeout
		}
		hc = NewHTTPClient(hcfg)
	}

	rest := resty.NewWithClient(hc.GetClient()).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)

	limiter := ratelimit.NewMultiLimiter()
	limiter.Add(limitMarket, cfg.RateLimit, cfg.RateLimit*2)
	limiter.Add(limitAccount, cfg.RateLimit, cfg.RateLimit)
	// ордера реже и строже
	limiter.Add(limitOrder, cfg.RateLimit/2, cfg.RateLimit/2)

	return &MEXC{
		apiKey:     cfg.APIKey,
		secretKey:  cfg.APISecret,
		recvWindow: cfg.RecvWindow,
		rest:       rest,
		http:       hc,
		limiter:    limiter,
		log:        utils.L().WithComponent("mexc"),
		now:        time.Now,
	}
}

// GetName возвращает имя биржи
func (m *MEXC) GetName() string {
	return mexcName
}

// Close освобождает соединения транспорта
func (m *MEXC) Close() {
	m.http.Close()
}

// sign создаёт подпись HMAC-SHA256 строки запроса
func (m *MEXC) sign(query string) string {
	h := hmac.New(sha256.New, []byte(m.secretKey))
	h.Write([]byte(query))
	return hex.EncodeToString(h.Sum(nil))
}

// apiError - тело ошибки MEXC
type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// doRequest выполняет запрос и разбирает JSON ответ в result.
// Подписанные запросы передают все параметры в query string, подпись последней.
func (m *MEXC) doRequest(ctx context.Context, method, endpoint string, params url.Values, signed bool, category string, result interface{}) error {
	if err := m.limiter.Wait(ctx, category); err != nil {
		return err
	}
	if params == nil {
		params = url.Values{}
	}

	path := endpoint
	req := m.rest.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(result).
		SetError(&apiError{})

	if signed {
		params.Set("timestamp", strconv.FormatInt(m.now().UnixMilli(), 10))
		params.Set("recvWindow", strconv.FormatInt(m.recvWindow.Milliseconds(), 10))
		query := params.Encode()
		path = endpoint + "?" + query + "&signature=" + m.sign(query)
		req.SetHeader(mexcAPIKeyHeader, m.apiKey)
	} else if len(params) > 0 {
		path = endpoint + "?" + params.Encode()
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		return &ExchangeError{
			Exchange: mexcName,
			Message:  fmt.Sprintf("%s %s failed", method, endpoint),
			Original: err,
		}
	}

	m.log.Debug("mexc request",
		utils.String("method", method),
		utils.String("endpoint", endpoint),
		utils.Int("status", resp.StatusCode()),
		utils.Latency(float64(time.Since(start).Microseconds())/1000),
	)

	if resp.IsError() {
		exErr := &ExchangeError{
			Exchange:   mexcName,
			HTTPStatus: resp.StatusCode(),
			Message:    strings.TrimSpace(resp.String()),
		}
		if apiErr, ok := resp.Error().(*apiError); ok && apiErr.Msg != "" {
			exErr.Code = strconv.Itoa(apiErr.Code)
			exErr.Message = apiErr.Msg
		}
		return exErr
	}
	return nil
}

// ============================================================
// Market data
// ============================================================

type ticker24hResponse struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
	CloseTime          int64  `json:"closeTime"`
}

// Get24hTicker получает статистику за 24 часа (/api/v3/ticker/24hr)
func (m *MEXC) Get24hTicker(ctx context.Context, symbol string) (*Ticker24h, error) {
	var raw ticker24hResponse
	params := url.Values{"symbol": {symbol}}
	if err := m.doRequest(ctx, "GET", "/api/v3/ticker/24hr", params, false, limitMarket, &raw); err != nil {
		return nil, err
	}

	t := &Ticker24h{Symbol: raw.Symbol, Timestamp: m.now()}
	if raw.CloseTime > 0 {
		t.Timestamp = utils.FromUnixMillis(raw.CloseTime)
	}
	fields := []struct {
		dst *float64
		src string
	}{
		{&t.LastPrice, raw.LastPrice},
		{&t.PriceChangePercent, raw.PriceChangePercent},
		{&t.Volume, raw.Volume},
		{&t.QuoteVolume, raw.QuoteVolume},
		{&t.HighPrice, raw.HighPrice},
		{&t.LowPrice, raw.LowPrice},
	}
	for _, f := range fields {
		v, err := utils.ParseDecimal(f.src)
		if err != nil {
			return nil, m.parseError("ticker/24hr", err)
		}
		*f.dst = v
	}
	return t, nil
}

type depthResponse struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
}

// GetOrderBook получает стакан (/api/v3/depth)
func (m *MEXC) GetOrderBook(ctx context.Context, symbol string, depth int) (*OrderBook, error) {
	if depth <= 0 {
		depth = 100
	}
	var raw depthResponse
	params := url.Values{"symbol": {symbol}, "limit": {strconv.Itoa(depth)}}
	if err := m.doRequest(ctx, "GET", "/api/v3/depth", params, false, limitMarket, &raw); err != nil {
		return nil, err
	}

	bids, err := parseLevels(raw.Bids)
	if err != nil {
		return nil, m.parseError("depth", err)
	}
	asks, err := parseLevels(raw.Asks)
	if err != nil {
		return nil, m.parseError("depth", err)
	}
	return &OrderBook{Symbol: symbol, Bids: bids, Asks: asks, Timestamp: m.now()}, nil
}

func parseLevels(raw [][]string) ([]PriceLevel, error) {
	levels := make([]PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		if len(lvl) < 2 {
			return nil, fmt.Errorf("malformed price level %v", lvl)
		}
		price, err := utils.ParseDecimal(lvl[0])
		if err != nil {
			return nil, err
		}
		volume, err := utils.ParseDecimal(lvl[1])
		if err != nil {
			return nil, err
		}
		levels = append(levels, PriceLevel{Price: price, Volume: volume})
	}
	return levels, nil
}

type tickerPriceResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetTickerPrice получает последнюю цену (/api/v3/ticker/price)
func (m *MEXC) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	var raw tickerPriceResponse
	params := url.Values{"symbol": {symbol}}
	if err := m.doRequest(ctx, "GET", "/api/v3/ticker/price", params, false, limitMarket, &raw); err != nil {
		return 0, err
	}
	price, err := utils.ParseDecimal(raw.Price)
	if err != nil {
		return 0, m.parseError("ticker/price", err)
	}
	return price, nil
}

// CalculateOrderSize переводит сумму в котируемой валюте в количество по текущей цене
func (m *MEXC) CalculateOrderSize(ctx context.Context, symbol string, quoteAmount float64) (float64, error) {
	price, err := m.GetTickerPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, &ExchangeError{Exchange: mexcName, Message: fmt.Sprintf("invalid price %v for %s", price, symbol)}
	}
	return quoteAmount / price, nil
}

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol            string `json:"symbol"`
		Status            string `json:"status"`
		BaseAsset         string `json:"baseAsset"`
		QuoteAsset        string `json:"quoteAsset"`
		BaseSizePrecision string `json:"baseSizePrecision"`
		Filters           []struct {
			FilterType  string `json:"filterType"`
			MinQty      string `json:"minQty"`
			StepSize    string `json:"stepSize"`
			MinNotional string `json:"minNotional"`
		} `json:"filters"`
	} `json:"symbols"`
}

// GetMinimumOrderSize получает LOT_SIZE и MIN_NOTIONAL символа (/api/v3/exchangeInfo)
func (m *MEXC) GetMinimumOrderSize(ctx context.Context, symbol string) (*Limits, error) {
	var raw exchangeInfoResponse
	params := url.Values{"symbol": {symbol}}
	if err := m.doRequest(ctx, "GET", "/api/v3/exchangeInfo", params, false, limitMarket, &raw); err != nil {
		return nil, err
	}

	for _, s := range raw.Symbols {
		if s.Symbol != symbol {
			continue
		}
		limits := &Limits{
			Symbol:     s.Symbol,
			Status:     s.Status,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
		}
		hasLot := false
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				hasLot = true
				limits.MinOrderQty, _ = utils.ParseDecimal(f.MinQty)
				limits.QtyStep, _ = utils.ParseDecimal(f.StepSize)
			case "MIN_NOTIONAL":
				limits.MinNotional, _ = utils.ParseDecimal(f.MinNotional)
			}
		}
		// без LOT_SIZE MEXC отдаёт точность базового актива
		if !hasLot && s.BaseSizePrecision != "" {
			step, _ := utils.ParseDecimal(s.BaseSizePrecision)
			limits.MinOrderQty = step
			limits.QtyStep = step
		}
		return limits, nil
	}

	return nil, &ExchangeError{Exchange: mexcName, Code: "symbol_not_found", Message: fmt.Sprintf("symbol %s not found in exchange info", symbol)}
}

// ============================================================
// Account
// ============================================================

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

func (m *MEXC) account(ctx context.Context) (*accountResponse, error) {
	var raw accountResponse
	if err := m.doRequest(ctx, "GET", "/api/v3/account", nil, true, limitAccount, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// GetBalance получает баланс актива. Отсутствующий актив - нулевой баланс.
func (m *MEXC) GetBalance(ctx context.Context, asset string) (*Balance, error) {
	acc, err := m.account(ctx)
	if err != nil {
		return nil, err
	}
	asset = strings.ToUpper(asset)
	for _, b := range acc.Balances {
		if b.Asset != asset {
			continue
		}
		free, err := utils.ParseDecimal(b.Free)
		if err != nil {
			return nil, m.parseError("account", err)
		}
		locked, err := utils.ParseDecimal(b.Locked)
		if err != nil {
			return nil, m.parseError("account", err)
		}
		return &Balance{Asset: asset, Free: free, Locked: locked, Total: free + locked}, nil
	}
	return &Balance{Asset: asset}, nil
}

// ValidateCredentials проверяет ключи запросом /api/v3/account
func (m *MEXC) ValidateCredentials(ctx context.Context) error {
	if m.apiKey == "" || m.secretKey == "" {
		return &ExchangeError{Exchange: mexcName, Message: "API key and secret are required"}
	}
	acc, err := m.account(ctx)
	if err != nil {
		return err
	}
	if acc.Balances == nil {
		return &ExchangeError{Exchange: mexcName, Message: "invalid API response format"}
	}
	return nil
}

// ============================================================
// Orders
// ============================================================

type orderResponse struct {
	Symbol        string `json:"symbol"`
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Type          string `json:"type"`
	Side          string `json:"side"`
	Status        string `json:"status"`
	TransactTime  int64  `json:"transactTime"`
}

// PlaceOrder размещает ордер (/api/v3/order)
func (m *MEXC) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.Quantity <= 0 {
		return nil, &ExchangeError{Exchange: mexcName, Message: fmt.Sprintf("invalid quantity %v", req.Quantity)}
	}
	if req.Type == "" {
		req.Type = OrderTypeMarket
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = newClientOrderID()
	}

	params := url.Values{
		"symbol":           {req.Symbol},
		"side":             {strings.ToUpper(req.Side)},
		"type":             {strings.ToUpper(req.Type)},
		"quantity":         {utils.FormatDecimal(req.Quantity)},
		"newClientOrderId": {req.ClientOrderID},
	}
	if req.Type == OrderTypeLimit && req.Price > 0 {
		params.Set("price", utils.FormatDecimal(req.Price))
		params.Set("timeInForce", "GTC")
	}

	var raw orderResponse
	if err := m.doRequest(ctx, "POST", "/api/v3/order", params, true, limitOrder, &raw); err != nil {
		return nil, err
	}

	order := &Order{
		OrderID:       raw.OrderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Status:        raw.Status,
		TransactTime:  m.now(),
	}
	if raw.ClientOrderID != "" {
		order.ClientOrderID = raw.ClientOrderID
	}
	if order.Status == "" {
		// MEXC не возвращает статус в ответе на создание
		order.Status = OrderStatusNew
	}
	if raw.TransactTime > 0 {
		order.TransactTime = utils.FromUnixMillis(raw.TransactTime)
	}
	order.Price, _ = utils.ParseDecimal(raw.Price)
	order.ExecutedQty, _ = utils.ParseDecimal(raw.ExecutedQty)
	if order.OrderID == "" {
		return nil, &ExchangeError{Exchange: mexcName, Message: "order response without orderId"}
	}

	m.log.Info("order placed",
		utils.Symbol(req.Symbol),
		utils.Side(req.Side),
		utils.Quantity(req.Quantity),
		utils.OrderID(order.OrderID),
	)
	return order, nil
}

func (m *MEXC) parseError(endpoint string, err error) error {
	return &ExchangeError{
		Exchange: mexcName,
		Code:     "parse_error",
		Message:  fmt.Sprintf("failed to parse %s response", endpoint),
		Original: err,
	}
}

// IsExchangeError проверяет, что ошибка пришла от биржи
func IsExchangeError(err error) bool {
	var exErr *ExchangeError
	return errors.As(err, &exErr)
}

// ============================================================
// Client order id
// ============================================================

var (
	idMu      sync.Mutex
	idEntropy io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic сохраняет порядок ID внутри одной миллисекунды
	idEntropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// newClientOrderID возвращает ULID для newClientOrderId
func newClientOrderID() string {
	idMu.Lock()
	defer idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), idEntropy).String()
}

// NewClientOrderID - экспортируемая обёртка для вызывающих, которые сохраняют ID до отправки ордера
func NewClientOrderID() string {
	return newClientOrderID()
}
