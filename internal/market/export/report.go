package export

import (
	"html/template"
	"strings"
	"time"

	"github.com/fanmetrics/fanmetrics/internal/market/ui"
	"github.com/fanmetrics/fanmetrics/internal/view"
)

// DashboardPayload is the dashboard state printed into the PDF report.
type DashboardPayload struct {
	GeneratedAt time.Time
	KPIs        []ui.KPICard
	Platforms   []ui.PlatformRow
	TopEarners  []ui.CreatorRow
	Sections    []ui.Section
}

const reportCSS = `body{font-family:sans-serif;margin:24px;color:#0f172a}
h1{font-size:20px}h2{font-size:16px;margin-top:24px}
table{width:100%;border-collapse:collapse;margin-bottom:16px}
th,td{border:1px solid #ddd;padding:6px;text-align:right;font-size:12px}
th{background:#f5f5f5}th:first-child,.label{text-align:left}
.charts{display:flex;flex-wrap:wrap;gap:12px}
.chart{width:48%;page-break-inside:avoid}svg{width:100%;height:auto}`

var reportTemplate = template.Must(template.New("report").Funcs(view.FuncMap()).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><style>{{.CSS}}</style></head><body>
<h1>Creator platform market report, {{.GeneratedAt.UTC.Format "02 Jan 2006 15:04 MST"}}</h1>
<section><h2>Overview</h2><table><tbody>
{{- range .KPIs}}
<tr><td class="label">{{.Label}}</td><td>{{formatCompact .Value}}{{with .Unit}} {{.}}{{end}}</td></tr>
{{- end}}
</tbody></table></section>
{{- with .Platforms}}
<section><h2>Platforms</h2><table>
<thead><tr><th>Platform</th><th>Founded</th><th>Fee</th><th>Users</th><th>Creators</th><th>Revenue (M$)</th><th>Share</th><th>Avg earnings</th></tr></thead><tbody>
{{- range .}}
<tr><td class="label">{{.Name}}</td><td>{{.Founded}}</td><td>{{formatPercent .FeePercent}}</td><td>{{formatCompact .MonthlyUsers}}</td><td>{{formatCompact .CreatorsCount}}</td><td>{{printf "%.2f" .RevenueMillions}}</td><td>{{formatPercent .MarketShare}}</td><td>{{formatMoney .AvgCreatorEarnings}}</td></tr>
{{- end}}
</tbody></table></section>
{{- end}}
{{- with .TopEarners}}
<section><h2>Top earners</h2><table>
<thead><tr><th>Creator</th><th>Platform</th><th>Category</th><th>Country</th><th>Monthly earnings</th><th>Followers</th></tr></thead><tbody>
{{- range .}}
<tr><td class="label">{{.Username}}</td><td class="label">{{.Platform}}</td><td class="label">{{.Category}}</td><td class="label">{{.Country}}</td><td>{{formatMoney .MonthlyEarnings}}</td><td>{{formatNumber .Followers}}</td></tr>
{{- end}}
</tbody></table></section>
{{- end}}
{{- range .Sections}}{{if .Charts}}
<section><h2>{{.Title}}</h2><div class="charts">
{{- range .Charts}}<div class="chart"><h3>{{.Title}}</h3>{{.SVG}}</div>{{end}}
</div></section>
{{- end}}{{end}}
</body></html>`))

// BuildHTML renders the standalone report document. Chart SVGs are
// embedded as-is; every other field is escaped.
func BuildHTML(payload DashboardPayload) string {
	var b strings.Builder
	data := struct {
		DashboardPayload
		CSS template.CSS
	}{payload, template.CSS(reportCSS)}
	if err := reportTemplate.Execute(&b, data); err != nil {
		return "<html><body><p>report unavailable</p></body></html>"
	}
	return b.String()
}
