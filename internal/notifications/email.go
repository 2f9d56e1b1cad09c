package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/mhosigiri/FeedbackAI/internal/models"
)

var emailFuncs = template.FuncMap{
	"title":    titleCase,
	"truncate": func(length int, s string) string { return truncate(s, length) },
	"counts":   sortedCounts,
}

var reportTemplate = template.Must(template.New("report").Funcs(emailFuncs).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Feedback Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #E20074; color: white; padding: 20px; border-radius: 5px; }
        .summary { background-color: #f5f5f5; padding: 15px; margin: 20px 0; border-radius: 5px; }
        .item { border-left: 4px solid #605e5c; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .item-meta { color: #666; font-size: 0.9em; }
        .positive { border-left-color: #107c10; }
        .negative { border-left-color: #d13438; }
        .neutral { border-left-color: #605e5c; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Feedback Digest</h1>
        <p>{{.Period | title}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    <div class="summary">
        <h2>CSI {{printf "%.0f" .CSIScore}} ({{.Band}})</h2>
        <p>{{.Summary}}</p>
        <p><strong>Signals:</strong> {{.TotalSignals}}</p>
        {{range $sentiment, $count := .SentimentBreakdown}}
            <p><strong>{{$sentiment | printf "%s" | title}}:</strong> {{$count}}</p>
        {{end}}
    </div>

    {{with counts .IssueCounts}}
    <h2>Issue Categories</h2>
    <ul>
    {{range .}}<li>{{.Category}}: {{.Count}}</li>{{end}}
    </ul>
    {{end}}

    {{if .Highlights}}
    <h2>Highlights</h2>
    {{range .Highlights}}
        <div class="item {{.Sentiment}}">
            <p>{{if .Post.Permalink}}<a href="{{.Post.Permalink}}" target="_blank">{{truncate 200 .Post.Text}}</a>{{else}}{{truncate 200 .Post.Text}}{{end}}</p>
            <div class="item-meta">{{.Post.Source}} | {{.Category}} | {{.Rating}}/5</div>
        </div>
    {{end}}
    {{end}}

    {{if .Unresolved}}
    <h2>Unresolved Cases</h2>
    {{range .Unresolved}}
        <div class="item negative">
            <p><strong>{{.Routing.Priority}}</strong> {{.Intake.Classification}}: {{truncate 200 .Intake.Summary}}</p>
            <div class="item-meta">{{.Name}} | {{.Routing.Team}} | {{.FeedbackID}}</div>
        </div>
    {{end}}
    {{end}}

    {{if .Warnings}}
    <h2>Warnings</h2>
    <ul>{{range .Warnings}}<li>{{.}}</li>{{end}}</ul>
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by FeedbackAI.</small></p>
</body>
</html>
`))

var alertTemplate = template.Must(template.New("alert").Funcs(emailFuncs).Parse(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #d13438; color: white; padding: 20px; border-radius: 5px; }
        .item-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>{{.Title}}</h1>
        <p>{{.CreatedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>
    <p>{{.Message}}</p>
    {{with .Case}}
    <p>{{truncate 500 .Problem}}</p>
    <div class="item-meta">
        {{.Name}} | {{.Intake.Classification}} | {{.Routing.Priority}} | {{.Routing.Team}} | {{.FeedbackID}}
    </div>
    {{if .Routing.Actions}}
    <h2>Next Steps</h2>
    <ol>{{range .Routing.Actions}}<li>{{.Step}}{{if .Owner}} ({{.Owner}}){{end}}</li>{{end}}</ol>
    {{end}}
    {{end}}
</body>
</html>
`))

func buildReportHTML(report *models.Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildAlertHTML(alert *models.Alert) (string, error) {
	var buf bytes.Buffer
	if err := alertTemplate.Execute(&buf, alert); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildReportText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("Feedback Digest - %s\n", titleCase(report.Period)))
	text.WriteString(fmt.Sprintf("Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))

	text.WriteString("SUMMARY\n")
	text.WriteString("=======\n")
	text.WriteString(fmt.Sprintf("CSI: %.0f (%s)\n", report.CSIScore, report.Band))
	text.WriteString(fmt.Sprintf("Signals: %d\n", report.TotalSignals))
	for _, s := range []models.Sentiment{models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative} {
		text.WriteString(fmt.Sprintf("%s: %d\n", titleCase(string(s)), report.SentimentBreakdown[s]))
	}
	if report.Summary != "" {
		text.WriteString(fmt.Sprintf("\n%s\n", report.Summary))
	}

	if categories := sortedCounts(report.IssueCounts); len(categories) > 0 {
		text.WriteString("\nISSUE CATEGORIES\n")
		text.WriteString("================\n")
		for _, c := range categories {
			text.WriteString(fmt.Sprintf("%s: %d\n", c.Category, c.Count))
		}
	}

	if len(report.Highlights) > 0 {
		text.WriteString("\nHIGHLIGHTS\n")
		text.WriteString("==========\n")
		for i, h := range report.Highlights {
			text.WriteString(fmt.Sprintf("\n%d. %s\n", i+1, truncate(h.Post.Text, 200)))
			text.WriteString(fmt.Sprintf("   Source: %s | Category: %s | Rating: %d/5\n", h.Post.Source, h.Category, h.Rating))
			if h.Post.Permalink != "" {
				text.WriteString(fmt.Sprintf("   URL: %s\n", h.Post.Permalink))
			}
		}
	}

	if len(report.Unresolved) > 0 {
		text.WriteString("\nUNRESOLVED CASES\n")
		text.WriteString("================\n")
		for i, c := range report.Unresolved {
			text.WriteString(fmt.Sprintf("\n%d. [%s] %s: %s\n", i+1, c.Routing.Priority, c.Intake.Classification, truncate(c.Intake.Summary, 200)))
			text.WriteString(fmt.Sprintf("   Customer: %s | Team: %s | Case: %s\n", c.Name, c.Routing.Team, c.FeedbackID))
		}
	}

	for _, w := range report.Warnings {
		text.WriteString(fmt.Sprintf("\nWarning: %s", w))
	}

	text.WriteString("\n---\nThis digest was generated automatically by FeedbackAI.\n")

	return text.String()
}

func buildAlertText(alert *models.Alert) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("%s\n", alert.Title))
	text.WriteString(fmt.Sprintf("Raised: %s\n\n", alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")))
	text.WriteString(alert.Message + "\n")

	if c := alert.Case; c != nil {
		text.WriteString(fmt.Sprintf("\nCase: %s\nCustomer: %s\nCategory: %s\nPriority: %s\nTeam: %s\n",
			c.FeedbackID, c.Name, c.Intake.Classification, c.Routing.Priority, c.Routing.Team))
		text.WriteString(fmt.Sprintf("\n%s\n", truncate(c.Problem, 500)))
		for i, a := range c.Routing.Actions {
			text.WriteString(fmt.Sprintf("%d. %s\n", i+1, a.Step))
		}
	}

	return text.String()
}
