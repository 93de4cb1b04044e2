// Package model содержит доменные сущности наблюдателя подписки E5.
package model

import (
	"fmt"
	"time"
)

// SubscriptionStatus описывает состояние подписки по данным Microsoft Graph.
type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusAnomalous SubscriptionStatus = "anomalous"
)

// ExpiryInfo содержит сведения о сроке действия подписки.
// Отсутствие структуры (nil) означает, что источник не смог предоставить данные.
type ExpiryInfo struct {
	ExpiryDate string `json:"expiry_date"`
	DaysLeft   int    `json:"days_left"`
	Status     string `json:"status"`
}

// Snapshot представляет один снимок состояния подписки на момент проверки.
// Снимок никогда не изменяется после создания, только замещается следующим.
type Snapshot struct {
	SkuName       string             `json:"sku_name"`
	Status        SubscriptionStatus `json:"status"`
	ConsumedUnits int                `json:"consumed_units"`
	TotalUnits    int                `json:"total_units"`
	CheckTime     time.Time          `json:"check_time"`
	ExpiryInfo    *ExpiryInfo        `json:"expiry_info,omitempty"`
}

// DaysLeft возвращает количество оставшихся дней и признак наличия данных.
func (s *Snapshot) DaysLeft() (int, bool) {
	if s == nil || s.ExpiryInfo == nil {
		return 0, false
	}
	return s.ExpiryInfo.DaysLeft, true
}

// UsagePercent возвращает процент использованных лицензий.
func (s *Snapshot) UsagePercent() int {
	if s == nil || s.TotalUnits <= 0 {
		return 0
	}
	return s.ConsumedUnits * 100 / s.TotalUnits
}

// Recipient описывает получателя уведомлений.
// Имена JSON-полей фиксированы форматом файла recipients.json.
type Recipient struct {
	URL           string `json:"url"`
	DisplayName   string `json:"username"`
	ResourceEmail string `json:"ms_e5_email"`
	DeliveryEmail string `json:"real_email"`
}

// SeverityTier описывает уровень срочности по оставшимся дням.
// Порядок значений: Unknown < Normal < Warning < Urgent < Critical.
type SeverityTier int

const (
	SeverityUnknown SeverityTier = iota
	SeverityNormal
	SeverityWarning
	SeverityUrgent
	SeverityCritical
)

// String возвращает строковое представление уровня срочности.
func (t SeverityTier) String() string {
	switch t {
	case SeverityNormal:
		return "normal"
	case SeverityWarning:
		return "warning"
	case SeverityUrgent:
		return "urgent"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ReasonTag описывает причину отправки уведомления.
// Набор значений закрыт: произвольные строки в журнал не попадают.
type ReasonTag string

const (
	ReasonStatusAnomaly ReasonTag = "status_anomaly"
	ReasonExpired       ReasonTag = "expired"
	ReasonRenewal       ReasonTag = "renewal"
)

// MilestoneReason возвращает тег причины для контрольной отметки оставшихся дней.
func MilestoneReason(days int) ReasonTag {
	return ReasonTag(fmt.Sprintf("milestone_%d", days))
}

// Valid сообщает, принадлежит ли тег закрытому набору причин.
func (r ReasonTag) Valid() bool {
	switch r {
	case ReasonStatusAnomaly, ReasonExpired, ReasonRenewal:
		return true
	}
	var days int
	if _, err := fmt.Sscanf(string(r), "milestone_%d", &days); err == nil {
		return days > 0
	}
	return false
}
