package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

type DutyReminderData struct {
	MemberName  string
	ServiceName string
	DutyName    string
	Date        string
	Time        string
	DaysUntil   int
	Link        string
}

type FollowupOverdueData struct {
	NewcomerName string
	DaysOverdue  int
	Link         string
}

type FollowupReminderData struct {
	NewcomerName string
	Note         string
	Link         string
}

type template struct {
	subject *texttemplate.Template
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

func mustTemplate(name, subject, html, text string) template {
	return template{
		subject: texttemplate.Must(texttemplate.New(name + ".subject").Parse(subject)),
		html:    htmltemplate.Must(htmltemplate.New(name + ".html").Parse(html)),
		text:    texttemplate.Must(texttemplate.New(name + ".text").Parse(text)),
	}
}

func (t template) render(to string, data interface{}) (Message, error) {
	var subject, html, text bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("failed to render subject: %w", err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("failed to render html body: %w", err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("failed to render text body: %w", err)
	}
	return Message{To: to, Subject: subject.String(), HTML: html.String(), Text: text.String()}, nil
}

var (
	dutyReminderTemplate = mustTemplate("duty_reminder",
		`Reminder: {{.DutyName}} for {{.ServiceName}} in {{.DaysUntil}} days`,
		`<p>Hi {{.MemberName}},</p>
<p>You are serving as <strong>{{.DutyName}}</strong> at <strong>{{.ServiceName}}</strong> on {{.Date}} at {{.Time}}.</p>
<p><a href="{{.Link}}">View my duties</a></p>`,
		`Hi {{.MemberName}},

You are serving as {{.DutyName}} at {{.ServiceName}} on {{.Date}} at {{.Time}}.

View my duties: {{.Link}}
`)

	followupOverdueTemplate = mustTemplate("followup_overdue",
		`Follow-up overdue: {{.NewcomerName}}`,
		`<p>Your follow-up with <strong>{{.NewcomerName}}</strong> is {{.DaysOverdue}} days overdue.</p>
<p><a href="{{.Link}}">Open newcomer follow-ups</a></p>`,
		`Your follow-up with {{.NewcomerName}} is {{.DaysOverdue}} days overdue.

Open newcomer follow-ups: {{.Link}}
`)

	followupReminderTemplate = mustTemplate("followup_reminder",
		`Follow-up reminder: {{.NewcomerName}}`,
		`<p>You asked to be reminded to follow up with <strong>{{.NewcomerName}}</strong> today.</p>
{{if .Note}}<p>Note: {{.Note}}</p>{{end}}
<p><a href="{{.Link}}">Open newcomer follow-ups</a></p>`,
		`You asked to be reminded to follow up with {{.NewcomerName}} today.
{{if .Note}}
Note: {{.Note}}
{{end}}
Open newcomer follow-ups: {{.Link}}
`)
)

func DutyReminder(to string, data DutyReminderData) (Message, error) {
	return dutyReminderTemplate.render(to, data)
}

func FollowupOverdue(to string, data FollowupOverdueData) (Message, error) {
	return followupOverdueTemplate.render(to, data)
}

func FollowupReminder(to string, data FollowupReminderData) (Message, error) {
	return followupReminderTemplate.render(to, data)
}
