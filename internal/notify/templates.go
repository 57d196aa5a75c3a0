package notify

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// AlertData renders the immediate notification for a single detection.
type AlertData struct {
	DetectionID string
	AbuseType   string
	Severity    string
	UserID      uint64
	PromptID    uint64
	IPAddress   string
	Reason      string
	RiskScore   float64
	DetectedAt  time.Time
}

// EscalationData renders a correlation escalation (coordinated attack,
// systematic pattern, system overload, detection spike).
type EscalationData struct {
	Title    string
	Headline string
	Details  map[string]string
}

// DigestData renders the daily summary report.
type DigestData struct {
	Date              time.Time
	LookbackHours     int
	TotalDetections   int
	BySeverity        []LabelCount
	ByType            []LabelCount
	TopOffenders      []OffenderRow
	FalsePositiveRate float64
	AvgResolutionTime float64
	Recommendations   []string
}

// LabelCount is one row of a breakdown table.
type LabelCount struct {
	Label string
	Count int
}

// OffenderRow is one row of the top offenders table.
type OffenderRow struct {
	Name       string
	Email      string
	Detections int
}

var alertTemplate = template.Must(template.New("alert").Parse(`<html><body>
<h2>Vote abuse detected: {{.AbuseType}}</h2>
<p><strong>Severity:</strong> {{.Severity}}</p>
<p><strong>Reason:</strong> {{.Reason}}</p>
<table>
<tr><td>Detection</td><td>{{.DetectionID}}</td></tr>
<tr><td>User</td><td>{{.UserID}}</td></tr>
<tr><td>Prompt</td><td>{{.PromptID}}</td></tr>
<tr><td>IP address</td><td>{{.IPAddress}}</td></tr>
<tr><td>Risk score</td><td>{{printf "%.1f" .RiskScore}}</td></tr>
<tr><td>Detected at</td><td>{{.DetectedAt.UTC.Format "2006-01-02 15:04:05"}} UTC</td></tr>
</table>
</body></html>`))

var escalationTemplate = template.Must(template.New("escalation").Parse(`<html><body>
<h2>{{.Title}}</h2>
<p>{{.Headline}}</p>
<table>
{{range $key, $value := .Details}}<tr><td>{{$key}}</td><td>{{$value}}</td></tr>
{{end}}</table>
</body></html>`))

var digestTemplate = template.Must(template.New("digest").Parse(`<html><body>
<h2>Daily abuse summary for {{.Date.Format "2006-01-02"}}</h2>
<p>{{.TotalDetections}} detections in the last {{.LookbackHours}} hours.</p>
<h3>By severity</h3>
<table>
{{range .BySeverity}}<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
<h3>By type</h3>
<table>
{{range .ByType}}<tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
{{if .TopOffenders}}<h3>Top offenders</h3>
<table>
{{range .TopOffenders}}<tr><td>{{.Name}}</td><td>{{.Email}}</td><td>{{.Detections}}</td></tr>
{{end}}</table>
{{end}}<p>False positive rate: {{printf "%.1f" .FalsePositiveRate}}%. Average resolution time: {{printf "%.1f" .AvgResolutionTime}} hours.</p>
{{if .Recommendations}}<h3>Recommendations</h3>
<ul>
{{range .Recommendations}}<li>{{.}}</li>
{{end}}</ul>
{{end}}</body></html>`))

// RenderAlert produces the subject and HTML body for an immediate detection
// notification.
func RenderAlert(data *AlertData) (string, string, error) {
	var body strings.Builder
	if err := alertTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render alert: %w", err)
	}

	subject := fmt.Sprintf("[VoteGuard] %s abuse alert: %s", data.Severity, data.AbuseType)

	return subject, body.String(), nil
}

// RenderEscalation produces the subject and HTML body for a correlation
// escalation.
func RenderEscalation(data *EscalationData) (string, string, error) {
	var body strings.Builder
	if err := escalationTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render escalation: %w", err)
	}

	subject := "[VoteGuard] " + data.Title

	return subject, body.String(), nil
}

// RenderDigest produces the subject and HTML body for the daily summary.
func RenderDigest(data *DigestData) (string, string, error) {
	var body strings.Builder
	if err := digestTemplate.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("failed to render digest: %w", err)
	}

	subject := fmt.Sprintf("[VoteGuard] Daily abuse summary %s", data.Date.Format("2006-01-02"))

	return subject, body.String(), nil
}
