package policy

import (
	"fmt"

	"github.com/mmeshcher/e5watcher/internal/model"
)

// RenewalConfig задаёт пороги эвристики обнаружения продления.
// Graph не сообщает о продлении явно, поэтому оно выводится из формы
// изменения счётчика дней. Значения по умолчанию унаследованы от прежней
// версии и остаются открытым вопросом калибровки: продление, добавившее
// меньше JumpDays дней при базе от NearExpiryDays, останется незамеченным.
type RenewalConfig struct {
	NearExpiryDays int
	JumpDays       int
}

// DefaultRenewalConfig возвращает пороги эвристики по умолчанию.
func DefaultRenewalConfig() RenewalConfig {
	return RenewalConfig{
		NearExpiryDays: 30,
		JumpDays:       20,
	}
}

// DetectRenewal сравнивает текущий снимок с предыдущим и решает,
// было ли продление подписки.
func DetectRenewal(cfg RenewalConfig, prev, cur *model.Snapshot) (bool, string) {
	if prev == nil {
		return false, "no prior data"
	}

	p, ok := prev.DaysLeft()
	if !ok {
		return false, "previous expiry data unavailable"
	}
	c, ok := cur.DaysLeft()
	if !ok {
		return false, "current expiry data unavailable"
	}

	if p <= 0 && c > 0 {
		return true, fmt.Sprintf("recovered from expiration: %d -> %d days", p, c)
	}

	if p < cfg.NearExpiryDays && c > p+cfg.JumpDays {
		return true, fmt.Sprintf("days left jumped near expiry: %d -> %d days", p, c)
	}

	return false, fmt.Sprintf("days left changed from %d to %d", p, c)
}
