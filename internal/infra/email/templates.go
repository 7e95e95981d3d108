package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"campusmarket/internal/app/policies"
)

type message struct {
	subject *texttemplate.Template
	body    *htmltemplate.Template
}

var messages = map[string]message{
	policies.TemplateNewMessage: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`{{.SenderName}} sent you a message about {{.ListingTitle}}`)),
		body: htmltemplate.Must(htmltemplate.New("body").Parse(`<p>Hi {{.RecipientName}},</p>
<p>{{.SenderName}} wrote about <strong>{{.ListingTitle}}</strong>:</p>
<blockquote>{{.Preview}}</blockquote>
<p><a href="{{.ConversationURL}}">Reply on Campus Market</a></p>`)),
	},
	policies.TemplateReportSubmitted: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`New report on {{.ListingTitle}}`)),
		body: htmltemplate.Must(htmltemplate.New("body").Parse(`<p>Listing <strong>{{.ListingTitle}}</strong> ({{.ListingID}}) was reported.</p>
<p>Reason: {{.Reason}}</p>
<p>Report {{.ReportID}}. <a href="{{.ReviewURL}}">Review pending reports</a></p>`)),
	},
	policies.TemplateReportResolved: {
		subject: texttemplate.Must(texttemplate.New("subject").Parse(`Your report on {{.ListingTitle}} was {{.Status}}`)),
		body: htmltemplate.Must(htmltemplate.New("body").Parse(`<p>Hi {{.RecipientName}},</p>
<p>Your report on <strong>{{.ListingTitle}}</strong> was {{.Status}}.</p>
{{if .Resolution}}<p>Moderator note: {{.Resolution}}</p>{{end}}
<p>Thanks for keeping Campus Market safe.</p>`)),
	},
}

// Render produces the subject line and HTML body for template.
func Render(template string, data any) (string, string, error) {
	msg, ok := messages[template]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	var subject, body bytes.Buffer
	if err := msg.subject.Execute(&subject, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", template, err)
	}
	if err := msg.body.Execute(&body, data); err != nil {
		return "", "", fmt.Errorf("render %s body: %w", template, err)
	}
	return subject.String(), body.String(), nil
}
