package export

import (
	"bytes"
	"html/template"
	"time"

	"github.com/cfornesa/ethics-risk-audit-assistant/internal/errors"
)

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Format(time.RFC1123) },
	"deref": func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	},
	"derefInt": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
}).Parse(reportHTML))

const reportHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ethics Audit Report: {{.Project.Name}}</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; color: #1a1a1a; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
.risk-critical { color: #b00020; font-weight: bold; }
.risk-high { color: #d2691e; font-weight: bold; }
.risk-medium { color: #9f7b00; }
.risk-low { color: #2e7d32; }
.review { background: #fff3cd; padding: 0.2rem 0.5rem; border-radius: 3px; }
.item { border-top: 1px solid #ddd; padding-top: 1rem; margin-top: 1rem; }
</style>
</head>
<body>
<h1>Ethics Audit Report: {{.Project.Name}}</h1>
{{if .Project.Description}}<p>{{.Project.Description}}</p>{{end}}
<p>Generated: {{formatTime .GeneratedAt}}</p>

<h2>Summary</h2>
<table>
<tr><th>Metric</th><th>Count</th></tr>
<tr><td>Total items</td><td>{{.Statistics.Total}}</td></tr>
<tr><td>Critical risk</td><td>{{.Statistics.Critical}}</td></tr>
<tr><td>High risk</td><td>{{.Statistics.High}}</td></tr>
<tr><td>Medium risk</td><td>{{.Statistics.Medium}}</td></tr>
<tr><td>Low risk</td><td>{{.Statistics.Low}}</td></tr>
<tr><td>Pending audit</td><td>{{.Statistics.Pending}}</td></tr>
<tr><td>Failed audit</td><td>{{.Statistics.Failed}}</td></tr>
<tr><td>Requires human review</td><td>{{.Statistics.RequiresReview}}</td></tr>
</table>

<h2>Items</h2>
{{if not .Items}}<p>No items.</p>{{end}}
{{range .Items}}
<div class="item">
<h3>{{.Title}}</h3>
<p>Status: {{.Status}}
{{if .RiskLevel}} &mdash; Risk: <span class="risk-{{deref .RiskLevel}}">{{deref .RiskLevel}} ({{derefInt .RiskScore}}/100)</span>{{end}}
{{if .RequiresHumanReview}} <span class="review">Requires human review</span>{{end}}
</p>
{{if .RiskSummary}}<p>{{deref .RiskSummary}}</p>{{end}}
{{if .RiskBreakdown}}
<table>
<tr><th>Category</th><th>Score</th><th>Issues</th></tr>
{{range $name, $cs := .RiskBreakdown}}
<tr><td>{{$name}}</td><td>{{$cs.Score}}</td><td>{{range $cs.Issues}}{{.}}<br>{{end}}</td></tr>
{{end}}
</table>
{{end}}
{{if .MitigationSuggestions}}
<p>Suggested mitigations:</p>
<ul>{{range .MitigationSuggestions}}<li>{{.}}</li>{{end}}</ul>
{{end}}
</div>
{{end}}
</body>
</html>
`

// HTML renders the report as a standalone HTML page. Template execution
// escapes all item content, so hostile content cannot inject markup into
// the report.
func (s *Service) HTML(projectID uint) ([]byte, error) {
	report, err := s.BuildReport(projectID)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return nil, errors.New(err).
			Component("export").
			Category(errors.CategoryGeneric).
			Context("project_id", projectID).
			Build()
	}

	s.logger.Info("html report generated",
		"project_id", projectID,
		"items", len(report.Items))
	return buf.Bytes(), nil
}
