package model

// LedgerDateLayout задаёт формат даты в журнале отправленных уведомлений.
const LedgerDateLayout = "2006-01-02"

// Ledger хранит отметки об отправленных уведомлениях: email получателя →
// календарная дата → список причин. Наличие причины за сегодняшнюю дату —
// единственный признак того, что повторная отправка не требуется.
type Ledger map[string]map[string][]ReasonTag

// IsEligible сообщает, можно ли отправить получателю уведомление
// с указанной причиной в указанную дату.
func (l Ledger) IsEligible(email, date string, reason ReasonTag) bool {
	days, ok := l[email]
	if !ok {
		return true
	}
	for _, r := range days[date] {
		if r == reason {
			return false
		}
	}
	return true
}

// RecordSent идемпотентно отмечает факт отправки уведомления.
// Записи никогда не удаляются.
func (l Ledger) RecordSent(email, date string, reason ReasonTag) {
	days, ok := l[email]
	if !ok {
		days = make(map[string][]ReasonTag)
		l[email] = days
	}
	for _, r := range days[date] {
		if r == reason {
			return
		}
	}
	days[date] = append(days[date], reason)
}
