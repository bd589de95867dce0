package bot

import "github.com/Samicowest/bag-bot/internal/models"

// ValidTransitions определяет допустимые переходы статусов торговой сессии
var ValidTransitions = map[string][]string{
	models.SessionStatusActive:    {models.SessionStatusPaused, models.SessionStatusCompleted},
	models.SessionStatusPaused:    {models.SessionStatusActive, models.SessionStatusCompleted}, // Active только оператором
	models.SessionStatusCompleted: {},                                                           // Терминальный
}

// CanTransition проверяет допустимость перехода
func CanTransition(from, to string) bool {
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// StatusInfo возвращает описание статуса для UI и CLI
func StatusInfo(s string) string {
	switch s {
	case models.SessionStatusActive:
		return "Сессия активна, бот торгует по расписанию"
	case models.SessionStatusPaused:
		return "Сессия приостановлена (аварийная остановка или оператор)"
	case models.SessionStatusCompleted:
		return "Сессия завершена"
	default:
		return "Неизвестный статус"
	}
}

// IsTerminal возвращает true, если из статуса нет переходов
func IsTerminal(s string) bool {
	allowed, ok := ValidTransitions[s]
	return ok && len(allowed) == 0
}
