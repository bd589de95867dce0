package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Используется риск-менеджером (сделки за календарный день UTC),
// стратегией (длительность сессии в днях) и MEXC клиентом (timestamp в мс).

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
//
// Пример:
//
//	start := GetDayStartFrom(time.Date(2024, 1, 15, 14, 30, 45, 0, time.UTC))
//	// start: 2024-01-15 00:00:00 UTC
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay проверяет, что два момента приходятся на один календарный день UTC
func SameDay(a, b time.Time) bool {
	return GetDayStartFrom(a).Equal(GetDayStartFrom(b))
}

// WholeDaysBetween возвращает количество полных суток между from и to.
// Отрицательный интервал даёт 0.
func WholeDaysBetween(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// ============================================================
// Утилиты для timestamp
// ============================================================

// FromUnixMillis конвертирует миллисекунды Unix в time.Time
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
