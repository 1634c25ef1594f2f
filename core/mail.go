package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"
)

// Email template names
const (
	TmplPasswordReset      = "password_reset"
	TmplDegreeIssued       = "degree_issued"
	TmplEquivalenceDecided = "equivalence_decided"
)

var (
	tmplInit sync.Once
	textTmpl *texttmpl.Template
	htmlTmpl *htmltmpl.Template

	tmplSources = map[string]string{
		TmplPasswordReset: `Hello {{.Data.Name}},
You requested a password reset for your {{.AppName}} account.
Open {{.FrontendBaseURL}}/password-reset/{{.Data.UID}}/{{.Data.Token}} to choose a new password.
If you did not request it, ignore this email.`,
		TmplDegreeIssued: `Hello {{.Data.StudentName}},
Your degree {{.Data.DegreeIndex}} was issued on {{.Data.IssueDate}}.
Token: {{.Data.NftTokenId}}
Verification: {{.FrontendBaseURL}}/degrees/{{.Data.DegreeIndex}}`,
		TmplEquivalenceDecided: `Hello {{.Data.StudentName}},
Your equivalence request {{.Data.Index}} is now "{{.Data.Status}}" (score {{.Data.Score}}, {{.Data.Type}}).
Details: {{.FrontendBaseURL}}/equivalences/{{.Data.Index}}`,
	}
)

type (
	EmailMessage struct {
		To      []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

func parseTemplates() {
	textTmpl = texttmpl.New("text")
	htmlTmpl = htmltmpl.New("html")
	for name, src := range tmplSources {
		texttmpl.Must(textTmpl.New(name).Parse(src))
		htmltmpl.Must(htmlTmpl.New(name).Parse("<pre>" + src + "</pre>"))
	}
}

// Render fills TextContent and HTMLContent from BodyStr or the named template.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		m.HTMLContent = htmltmpl.HTMLEscapeString(m.BodyStr)
		return nil
	}
	if m.TemplateName == "" {
		return nil
	}
	tmplInit.Do(parseTemplates)

	data := ContextData{AppName: conf.AppName, FrontendBaseURL: conf.FrontendBaseURL, Data: m.TemplateData}
	var txt, html bytes.Buffer
	if err := textTmpl.ExecuteTemplate(&txt, m.TemplateName, data); err != nil {
		return errors.Wrapf(err, "rendering %s.txt", m.TemplateName)
	}
	if err := htmlTmpl.ExecuteTemplate(&html, m.TemplateName, data); err != nil {
		return errors.Wrapf(err, "rendering %s.html", m.TemplateName)
	}
	m.TextContent = txt.String()
	m.HTMLContent = html.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool {
	return len(m.To) > 0
}

func (m *EmailMessage) HasContent() bool {
	return m.TextContent != "" || m.HTMLContent != ""
}
