package email

import (
	"bytes"
	"fmt"
	"html/template"
)

var runTemplate = template.Must(template.New("run").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>{{.Subject}}</title></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.5; color: #333; max-width: 640px; margin: 0 auto; padding: 20px;">
  <div style="background: {{.Color}}; padding: 20px; border-radius: 8px 8px 0 0;">
    <h1 style="color: white; margin: 0; font-size: 20px;">{{.Heading}}</h1>
  </div>
  <div style="padding: 20px; border: 1px solid #e0e0e0; border-top: none; border-radius: 0 0 8px 8px;">
    <p><strong>Run:</strong> {{.Data.RunID}}<br><strong>Storefront:</strong> {{.Data.BaseURL}}</p>
    <p>{{.Data.Summary}}</p>
    {{if .Data.Faults}}<h2 style="font-size: 16px;">Faults</h2>
    <ul>{{range .Data.Faults}}<li><code>{{.}}</code></li>{{end}}</ul>
    {{if .Data.MoreFaults}}<p>and {{.Data.MoreFaults}} more in the full report.</p>{{end}}{{end}}
    {{if .Data.ReportURL}}<p><a href="{{.Data.ReportURL}}">Full report</a></p>{{end}}
    {{if .Data.Screenshots}}<p>Screenshots:</p><ul>{{range .Data.Screenshots}}<li><a href="{{.}}">{{.}}</a></li>{{end}}</ul>{{end}}
    <p style="color: #999; font-size: 12px;">Sent by labcheck.</p>
  </div>
</body>
</html>`))

type runView struct {
	Subject string
	Heading string
	Color   string
	Data    RunData
}

// Render returns the subject and HTML body for a template.
func Render(templateName string, data any) (subject, html string, err error) {
	var view runView
	switch templateName {
	case TemplateRunFailed:
		d, ok := data.(RunData)
		if !ok {
			return "", "", fmt.Errorf("email: %s expects RunData, got %T", templateName, data)
		}
		view = runView{Subject: "Lab tests storefront check FAILED (" + d.RunID + ")", Heading: "Storefront check failed", Color: "#d64545", Data: d}
	case TemplateRunPassed:
		d, ok := data.(RunData)
		if !ok {
			return "", "", fmt.Errorf("email: %s expects RunData, got %T", templateName, data)
		}
		view = runView{Subject: "Lab tests storefront check passed (" + d.RunID + ")", Heading: "Storefront check passed", Color: "#2f8132", Data: d}
	default:
		subject = "Message from labcheck"
		html = "<p>" + template.HTMLEscapeString(fmt.Sprintf("%+v", data)) + "</p>"
		return subject, html, nil
	}

	var buf bytes.Buffer
	if err := runTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("email: render %s: %w", templateName, err)
	}
	return view.Subject, buf.String(), nil
}
