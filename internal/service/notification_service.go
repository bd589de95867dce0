package service

import (
	"context"
	"strings"
	"time"

	"github.com/Samicowest/bag-bot/internal/models"
)

// Лимиты выборки журнала
const (
	defaultNotificationsLimit = 100
	maxNotificationsLimit     = 500
)

// NotificationService предоставляет чтение и очистку журнала событий бота.
//
// Записи создаёт торговое ядро (bot.Store.CreateNotification) и рассылает
// через WebSocket hub, сервис отвечает только за выдачу и очистку.
//
// Типы уведомлений:
// - CYCLE: завершён цикл стратегии
// - TRADE: выставлен ордер
// - RISK_BLOCK: сигнал отклонён риск-менеджером
// - EMERGENCY_STOP: аварийная пауза сессии
// - SESSION_COMPLETED: сессия завершена
// - ERROR: ошибка API или цикла
type NotificationService struct {
	notificationRepo NotificationRepositoryInterface
	now              func() time.Time
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(notificationRepo NotificationRepositoryInterface) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		now:              time.Now,
	}
}

// GetNotifications возвращает список уведомлений с фильтрацией.
//
// Параметры:
//   - types: список типов для фильтрации (например: ["TRADE", "ERROR"]),
//     неизвестные типы отбрасываются, пустой список - все типы
//   - limit: максимальное количество записей (по умолчанию 100, максимум 500)
//
// Возвращает уведомления отсортированные по времени (новые сверху).
func (s *NotificationService) GetNotifications(ctx context.Context, types []string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationsLimit
	}
	if limit > maxNotificationsLimit {
		limit = maxNotificationsLimit
	}

	normalizedTypes := make([]string, 0, len(types))
	for _, t := range types {
		normalized := strings.ToUpper(strings.TrimSpace(t))
		if normalized != "" && isValidNotificationType(normalized) {
			normalizedTypes = append(normalizedTypes, normalized)
		}
	}

	if len(normalizedTypes) > 0 {
		return s.notificationRepo.GetByTypes(ctx, normalizedTypes, limit)
	}

	// Фильтр задан, но ни один тип не распознан: пустой результат, а не весь журнал
	if hasNonEmpty(types) {
		return []*models.Notification{}, nil
	}

	return s.notificationRepo.GetRecent(ctx, limit)
}

// ClearNotifications удаляет все уведомления
func (s *NotificationService) ClearNotifications(ctx context.Context) error {
	return s.notificationRepo.DeleteAll(ctx)
}

// CleanupOlderThan удаляет уведомления старше age и возвращает число удалённых
func (s *NotificationService) CleanupOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, nil
	}
	return s.notificationRepo.DeleteOlderThan(ctx, s.now().Add(-age))
}

// isValidNotificationType проверяет, является ли тип допустимым.
func isValidNotificationType(notifType string) bool {
	switch notifType {
	case models.NotificationTypeCycle,
		models.NotificationTypeTrade,
		models.NotificationTypeRiskBlock,
		models.NotificationTypeEmergencyStop,
		models.NotificationTypeSessionCompleted,
		models.NotificationTypeError:
		return true
	}
	return false
}

func hasNonEmpty(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}
