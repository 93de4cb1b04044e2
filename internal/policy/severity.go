// Package policy содержит чистую логику принятия решений по снимку подписки:
// классификацию срочности, выбор причины уведомления и обнаружение продления.
package policy

import "github.com/mmeshcher/e5watcher/internal/model"

// SeverityConfig задаёт пороги классификации оставшихся дней.
type SeverityConfig struct {
	CriticalDays int
	UrgentDays   int
	WarningDays  int
}

// DefaultSeverityConfig возвращает пороги по умолчанию.
func DefaultSeverityConfig() SeverityConfig {
	return SeverityConfig{
		CriticalDays: 0,
		UrgentDays:   5,
		WarningDays:  15,
	}
}

// Classify возвращает уровень срочности и текстовую метку состояния
// по количеству оставшихся дней. nil означает отсутствие данных.
// Функция тотальна: любой вход даёт результат, ошибок не бывает.
func Classify(cfg SeverityConfig, daysLeft *int) (model.SeverityTier, string) {
	if daysLeft == nil {
		return model.SeverityUnknown, "unknown"
	}

	d := *daysLeft
	switch {
	case d <= cfg.CriticalDays:
		return model.SeverityCritical, "expired"
	case d <= cfg.UrgentDays:
		return model.SeverityCritical, "expiring imminently"
	case d <= cfg.WarningDays:
		return model.SeverityWarning, "expiring soon"
	default:
		return model.SeverityNormal, "normal"
	}
}
