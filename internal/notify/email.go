// Package notify renders and delivers the emails sent after a contact
// submission: one to the site owner and an acknowledgement to the sender.
package notify

import (
	"bytes"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"portfolio-backend/internal/contacts"
)

// Email is one rendered message.
type Email struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	HTML    string
	Text    string
}

// Kinds label emails in logs and metrics.
const (
	KindAdmin     = "admin"
	KindAutoReply = "auto_reply"
)

const notProvided = "Not provided"

type view struct {
	contacts.Contact
	Lines       []string
	BudgetText  string
	SubmittedAt string
	Signature   string
}

func newView(c contacts.Contact, signature string) view {
	v := view{
		Contact:     c,
		Lines:       strings.Split(strings.ReplaceAll(c.Message, "\r\n", "\n"), "\n"),
		BudgetText:  notProvided,
		SubmittedAt: c.CreatedAt.UTC().Format(time.RFC1123),
		Signature:   signature,
	}
	if c.Budget != nil {
		v.BudgetText = strconv.FormatFloat(*c.Budget, 'f', -1, 64) + " " + c.Currency
	}
	if v.Phone == "" {
		v.Phone = notProvided
	}
	if v.Company == "" {
		v.Company = notProvided
	}
	return v
}

var funcs = map[string]any{
	"orSignature": func(s string) string {
		if s == "" {
			return "Best regards"
		}
		return "Best regards,\n" + s
	},
}

var (
	adminHTML = htmltemplate.Must(htmltemplate.New("admin").Parse(`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Company:</strong> {{.Company}}</p>
<p><strong>Project Type:</strong> {{.ProjectType}}</p>
<p><strong>Budget:</strong> {{.BudgetText}}</p>
<p><strong>Timeline:</strong> {{.Timeline}}</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong></p>
<p>{{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
<hr>
<p><small>Submitted at: {{.SubmittedAt}}</small></p>
`))

	adminText = texttemplate.Must(texttemplate.New("admin").Parse(`New Contact Form Submission

Name: {{.Name}}
Email: {{.Email}}
Phone: {{.Phone}}
Company: {{.Company}}
Project Type: {{.ProjectType}}
Budget: {{.BudgetText}}
Timeline: {{.Timeline}}
Subject: {{.Subject}}

{{.Message}}

Submitted at: {{.SubmittedAt}}
`))

	replyHTML = htmltemplate.Must(htmltemplate.New("reply").Parse(`<h2>Thank you for reaching out, {{.Name}}!</h2>
<p>I've received your message and will get back to you within 24-48 hours.</p>
<p>Here's a copy of your message:</p>
<blockquote>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong> {{range $i, $line := .Lines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</p>
</blockquote>
<p>Best regards{{if .Signature}},<br>{{.Signature}}{{end}}</p>
`))

	replyText = texttemplate.Must(texttemplate.New("reply").Funcs(funcs).Parse(`Thank you for reaching out, {{.Name}}!

I've received your message and will get back to you within 24-48 hours.

Here's a copy of your message:

Subject: {{.Subject}}
{{.Message}}

{{orSignature .Signature}}
`))
)

// Composer renders the two notification emails for a contact.
type Composer struct {
	From      string
	Admin     string
	Signature string
}

// AdminEmail renders the owner notification. The sender is set as Reply-To.
func (c Composer) AdminEmail(contact contacts.Contact) (Email, error) {
	v := newView(contact, c.Signature)
	html, text, err := render(adminHTML, adminText, v)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      c.Admin,
		From:    c.From,
		ReplyTo: contact.Email,
		Subject: "New Contact Form Submission: " + oneLine(contact.Subject),
		HTML:    html,
		Text:    text,
	}, nil
}

// AutoReply renders the acknowledgement sent to the submitter.
func (c Composer) AutoReply(contact contacts.Contact) (Email, error) {
	v := newView(contact, c.Signature)
	html, text, err := render(replyHTML, replyText, v)
	if err != nil {
		return Email{}, err
	}
	return Email{
		To:      contact.Email,
		From:    c.From,
		ReplyTo: c.Admin,
		Subject: "Thank you for contacting me!",
		HTML:    html,
		Text:    text,
	}, nil
}

func render(h *htmltemplate.Template, t *texttemplate.Template, v view) (string, string, error) {
	var hb, tb bytes.Buffer
	if err := h.Execute(&hb, v); err != nil {
		return "", "", err
	}
	if err := t.Execute(&tb, v); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}

// oneLine keeps user input from adding header lines through the subject.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
