package utils

import (
	"github.com/shopspring/decimal"
)

// math.go - математические утилиты для торговых расчётов
//
// Все функции чистые. Округление к шагу лота выполняется в decimal,
// чтобы 0.3/0.1 не превращалось в 2.9999999.

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления количества перед рыночным ордером:
// округление вниз не даёт превысить доступный баланс.
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
//   - RoundToLotSize(100.5, 1.0) = 100.0
//
// Если lotSize <= 0, возвращает исходное значение.
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	v := decimal.NewFromFloat(value)
	step := decimal.NewFromFloat(lotSize)
	steps := v.Div(step).Floor()
	f, _ := steps.Mul(step).Float64()
	return f
}

// SpreadPercent - спред между лучшими ценами в процентах от bid.
// Без bid возвращает 0.
func SpreadPercent(bid, ask float64) float64 {
	if bid <= 0 {
		return 0
	}
	return (ask - bid) / bid * 100
}

// Ratio - безопасное деление, при нулевом знаменателе возвращает 0
func Ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

// Min возвращает меньшее из двух значений
func Min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// Clamp ограничивает значение диапазоном [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ParseDecimal разбирает строковое число биржи ("0.00012300") в float64.
// Пустая строка даёт 0.
func ParseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

// FormatDecimal форматирует количество для запроса к бирже без экспоненты и хвостовых нулей
func FormatDecimal(v float64) string {
	return decimal.NewFromFloat(v).String()
}
