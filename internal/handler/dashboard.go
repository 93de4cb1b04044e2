package handler

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/e5watcher/internal/model"
	"github.com/mmeshcher/e5watcher/internal/policy"
)

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>E5 Subscription Watcher</title>
<style>
body { font-family: sans-serif; max-width: 720px; margin: 40px auto; padding: 0 16px; color: #323130; }
.card { border: 1px solid #ddd; border-radius: 8px; padding: 16px 20px; margin-bottom: 16px; }
.card h2 { margin-top: 0; font-size: 1rem; color: #666; }
.value { font-size: 1.4rem; font-weight: 600; }
.normal { color: #107c10; }
.warning { color: #ff8c00; }
.urgent, .critical { color: #d13438; }
.unknown { color: #888; }
.bar { background: #eee; border-radius: 5px; height: 10px; margin-top: 10px; }
.bar div { background: #0078d4; border-radius: 5px; height: 10px; }
.note { color: #888; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>E5 Subscription Watcher</h1>
{{if .Snapshot}}
<div class="card">
<h2>Subscription</h2>
<div class="value">{{.Snapshot.SkuName}}</div>
<div class="value {{if .StatusOK}}normal{{else}}critical{{end}}">{{.Snapshot.Status}}</div>
<div class="note">last check: {{.CheckTime}}</div>
</div>
<div class="card">
<h2>License usage</h2>
<div class="value">{{.Snapshot.ConsumedUnits}} / {{.Snapshot.TotalUnits}} ({{.UsagePercent}}%)</div>
<div class="bar"><div style="width: {{.UsagePercent}}%"></div></div>
</div>
<div class="card">
<h2>Expiry</h2>
{{if .Snapshot.ExpiryInfo}}
<div class="value {{.SeverityClass}}">{{.Snapshot.ExpiryInfo.DaysLeft}} days left</div>
<div>expires {{.Snapshot.ExpiryInfo.ExpiryDate}} ({{.Snapshot.ExpiryInfo.Status}})</div>
{{else}}
<div class="value unknown">unknown</div>
<div class="note">expiry data was not available at the last check</div>
{{end}}
</div>
{{else}}
<div class="card">
<h2>No data</h2>
<div class="note">{{.Error}}</div>
</div>
{{end}}
<p class="note">Data refreshes every two hours. Raw data: <a href="/api/status">/api/status</a></p>
</body>
</html>
`))

type dashboardData struct {
	Snapshot      *model.Snapshot
	CheckTime     string
	UsagePercent  int
	StatusOK      bool
	SeverityClass string
	Error         string
}

// Dashboard отдаёт HTML-страницу с состоянием подписки.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := dashboardData{
		Error: "no snapshot yet, the first check has not completed",
	}

	snap, err := h.snapshots.LoadPrevious()
	if err == nil {
		var daysLeft *int
		if d, ok := snap.DaysLeft(); ok {
			daysLeft = &d
		}
		tier, _ := policy.Classify(h.severity, daysLeft)

		data = dashboardData{
			Snapshot:      snap,
			CheckTime:     snap.CheckTime.Format("2006-01-02 15:04:05"),
			UsagePercent:  snap.UsagePercent(),
			StatusOK:      snap.Status == model.StatusActive,
			SeverityClass: tier.String(),
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil {
		h.logger.Error("render dashboard error", zap.Error(err))
	}
}
