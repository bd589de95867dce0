package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных конфигурации бота
//
// Возвращает error с описанием проблемы или nil.
// ValidationErrors собирает несколько ошибок по полям для ответа API.

var (
	ErrInvalidSymbol    = errors.New("invalid symbol format")
	ErrInvalidAPIKey    = errors.New("invalid API key")
	ErrInvalidAPISecret = errors.New("invalid API secret")
	ErrInvalidOrderSize = errors.New("invalid order size")
	ErrInvalidInterval  = errors.New("invalid trading interval")
	ErrInvalidPercent   = errors.New("value must be between 0 and 1")
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9]+([-_/][A-Za-z0-9]+)?$`)

// knownQuotes - котируемые валюты, порядок важен: длинные раньше коротких
var knownQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD", "TUSD", "BTC", "ETH", "EUR"}

// ValidateSymbol проверяет формат символа (BSTUSDT, BST_USDT, BST/USDT)
func ValidateSymbol(symbol string) error {
	if len(symbol) < 2 || len(symbol) > 30 {
		return fmt.Errorf("%w: length must be 2..30, got %d", ErrInvalidSymbol, len(symbol))
	}
	if !symbolPattern.MatchString(symbol) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}

// IsValidSymbol - булева версия ValidateSymbol
func IsValidSymbol(symbol string) bool {
	return ValidateSymbol(symbol) == nil
}

// NormalizeSymbol приводит символ к формату биржи: верхний регистр без разделителей
func NormalizeSymbol(symbol string) string {
	r := strings.NewReplacer("-", "", "_", "", "/", "")
	return strings.ToUpper(r.Replace(strings.TrimSpace(symbol)))
}

// splitSymbol делит символ на base и quote.
// С разделителем используется он, иначе ищется известная котируемая валюта в конце.
func splitSymbol(symbol string) (base, quote string) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	for _, sep := range []string{"/", "_", "-"} {
		if i := strings.Index(s, sep); i > 0 {
			return s[:i], s[i+1:]
		}
	}
	for _, q := range knownQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	return s, ""
}

// ExtractBaseCurrency возвращает базовый актив (BSTUSDT → BST)
func ExtractBaseCurrency(symbol string) string {
	base, _ := splitSymbol(symbol)
	return base
}

// ExtractQuoteCurrency возвращает котируемый актив (BSTUSDT → USDT)
func ExtractQuoteCurrency(symbol string) string {
	_, quote := splitSymbol(symbol)
	return quote
}

// ValidateAPIKey - базовая проверка ключа API (длина и отсутствие пробелов)
func ValidateAPIKey(key string) error {
	if len(key) < 8 || len(key) > 256 {
		return fmt.Errorf("%w: length must be 8..256", ErrInvalidAPIKey)
	}
	if strings.ContainsAny(key, " \t\n") {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidAPIKey)
	}
	return nil
}

// ValidateAPISecret - базовая проверка секрета API
func ValidateAPISecret(secret string) error {
	if len(secret) < 16 || len(secret) > 256 {
		return fmt.Errorf("%w: length must be 16..256", ErrInvalidAPISecret)
	}
	if strings.ContainsAny(secret, " \t\n") {
		return fmt.Errorf("%w: contains whitespace", ErrInvalidAPISecret)
	}
	return nil
}

// ValidateOrderSizes проверяет границы размера ордера в котируемой валюте
func ValidateOrderSizes(min, max float64) error {
	if min <= 0 {
		return fmt.Errorf("%w: min must be positive, got %v", ErrInvalidOrderSize, min)
	}
	if max < min {
		return fmt.Errorf("%w: max %v is below min %v", ErrInvalidOrderSize, max, min)
	}
	return nil
}

// ValidateInterval проверяет интервал цикла в минутах (1 минута .. 1 сутки)
func ValidateInterval(minutes int) error {
	if minutes < 1 || minutes > 1440 {
		return fmt.Errorf("%w: must be 1..1440 minutes, got %d", ErrInvalidInterval, minutes)
	}
	return nil
}

// ValidateFraction проверяет долю в диапазоне [0, 1]
func ValidateFraction(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidPercent, v)
	}
	return nil
}

// ============================================================
// ValidationErrors
// ============================================================

// FieldError - ошибка конкретного поля
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors - набор ошибок валидации
type ValidationErrors []FieldError

// Add добавляет ошибку поля
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// AddError добавляет ошибку поля, nil игнорируется
func (v *ValidationErrors) AddError(field string, err error) {
	if err == nil {
		return
	}
	v.Add(field, err.Error())
}

// HasErrors возвращает true, если есть хотя бы одна ошибка
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}
