package policy

import "github.com/mmeshcher/e5watcher/internal/model"

// NotifyConfig задаёт контрольные отметки оставшихся дней для напоминаний.
type NotifyConfig struct {
	MilestoneDays []int
}

// DefaultNotifyConfig возвращает отметки по умолчанию.
func DefaultNotifyConfig() NotifyConfig {
	return NotifyConfig{
		MilestoneDays: []int{15, 10, 5, 1},
	}
}

// Decide решает, требуется ли уведомление по текущему снимку, и с какой причиной.
// Правила проверяются по порядку, срабатывает первое.
//
// Отметки сравниваются на точное равенство: если в день отметки проверка не
// выполнялась, это напоминание пропускается. Поведение принято осознанно —
// точное равенство не даёт повторных напоминаний при ежедневных запусках.
func Decide(cfg NotifyConfig, snap *model.Snapshot) (bool, model.ReasonTag) {
	if snap.Status != model.StatusActive {
		return true, model.ReasonStatusAnomaly
	}

	d, ok := snap.DaysLeft()
	if !ok {
		return false, ""
	}

	if d <= 0 {
		return true, model.ReasonExpired
	}

	for _, m := range cfg.MilestoneDays {
		if d == m {
			return true, model.MilestoneReason(m)
		}
	}

	return false, ""
}
