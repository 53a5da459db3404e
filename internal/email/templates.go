package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type notificationEmailData struct {
	baseEmailData
	RecipientName string
	Lines         []string
	Warning       bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// RenderNotification renders the HTML body for msg. Multi-line bodies such as
// the daily summary become one paragraph per line.
func RenderNotification(msg Message) (string, error) {
	subject := SubjectFor(msg.Category)
	lines := make([]string, 0, 4)
	for _, line := range strings.Split(msg.Body, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return renderEmailTemplate("notification.html", notificationEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: subject,
		},
		RecipientName: strings.TrimSpace(msg.ToName),
		Lines:         lines,
		Warning:       msg.Category == "warning",
	})
}
