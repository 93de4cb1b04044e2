// Package mailer отвечает за формирование и доставку почтовых уведомлений.
package mailer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/mmeshcher/e5watcher/internal/model"
)

// Message описывает готовое к отправке письмо.
type Message struct {
	Subject string
	Body    string
}

var bodyTemplate = template.Must(template.New("body").Parse(`Hello {{.DisplayName}},

{{.Headline}}

Subscription: {{.SkuName}} ({{.ResourceEmail}})
Status:       {{.Status}}
Licenses:     {{.ConsumedUnits}}/{{.TotalUnits}} used ({{.UsagePercent}}%)
Days left:    {{.DaysLeft}}
Expiry date:  {{.ExpiryDate}}
Severity:     {{.Severity}}
Checked at:   {{.CheckTime}}

Dashboard: {{.URL}}

-- e5watcher
`))

type templateData struct {
	DisplayName   string
	ResourceEmail string
	URL           string
	Headline      string
	SkuName       string
	Status        string
	ConsumedUnits int
	TotalUnits    int
	UsagePercent  int
	DaysLeft      string
	ExpiryDate    string
	Severity      string
	CheckTime     string
}

// Render формирует письмо для получателя по причине уведомления и снимку.
func Render(reason model.ReasonTag, rcpt model.Recipient, snap *model.Snapshot, severityLabel string) (Message, error) {
	subject, headline := subjectAndHeadline(reason, snap)

	data := templateData{
		DisplayName:   rcpt.DisplayName,
		ResourceEmail: rcpt.ResourceEmail,
		URL:           rcpt.URL,
		Headline:      headline,
		SkuName:       snap.SkuName,
		Status:        string(snap.Status),
		ConsumedUnits: snap.ConsumedUnits,
		TotalUnits:    snap.TotalUnits,
		UsagePercent:  snap.UsagePercent(),
		DaysLeft:      "unknown",
		ExpiryDate:    "unknown",
		Severity:      severityLabel,
		CheckTime:     snap.CheckTime.Format("2006-01-02 15:04:05"),
	}
	if d, ok := snap.DaysLeft(); ok {
		data.DaysLeft = fmt.Sprintf("%d", d)
		data.ExpiryDate = snap.ExpiryInfo.ExpiryDate
	}

	var body strings.Builder
	if err := bodyTemplate.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}

	return Message{Subject: subject, Body: body.String()}, nil
}

func subjectAndHeadline(reason model.ReasonTag, snap *model.Snapshot) (string, string) {
	switch reason {
	case model.ReasonStatusAnomaly:
		return "[E5 Watcher] subscription status anomaly",
			"The subscription status is no longer reported as active. Please check the admin center."
	case model.ReasonExpired:
		return "[E5 Watcher] subscription has expired",
			"The subscription has expired. Back up your data as soon as possible."
	case model.ReasonRenewal:
		return "[E5 Watcher] subscription renewed",
			"The subscription validity period was extended since the last check."
	}

	if d, ok := snap.DaysLeft(); ok {
		return fmt.Sprintf("[E5 Watcher] subscription expires in %d days", d),
			fmt.Sprintf("The subscription will expire in %d days. Consider renewing it.", d)
	}

	return "[E5 Watcher] subscription notice", "The subscription requires attention."
}
