package notify

import (
	_ "embed"
	"fmt"
	"html"
	"strings"

	"github.com/noah-isme/my-mailer/internal/submission"
)

//go:embed templates/contact_form.html
var contactFormTemplate string

// ContactFormTemplate returns the raw HTML notification template.
func ContactFormTemplate() string { return contactFormTemplate }

// placeholder pairs a literal template token with the value substituted for it.
type placeholder struct {
	token string
	value string
}

func placeholders(rec submission.Record, escape func(string) string) []placeholder {
	return []placeholder{
		{token: "{name}", value: escape(orDefault(rec.Name, "Unknown"))},
		{token: "{email}", value: escape(orDefault(rec.Email, "Unknown"))},
		{token: "{subject}", value: escape(orDefault(rec.Subject, "No Subject"))},
		{token: "{message}", value: escape(orDefault(rec.Message, "No message provided"))},
		{token: "{timestamp}", value: escape(submission.DisplayTime(orDefault(rec.Timestamp, "Unknown")))},
		{token: "{ip_address}", value: escape(orDefault(rec.IPAddress, submission.UnknownOrigin))},
	}
}

// substitute replaces each exact token in tmpl with its value in a single
// pass. Text produced by a substitution is never rescanned and any other
// brace-delimited text is left as is.
func substitute(tmpl string, pairs []placeholder) string {
	oldnew := make([]string, 0, len(pairs)*2)
	for _, p := range pairs {
		oldnew = append(oldnew, p.token, p.value)
	}
	return strings.NewReplacer(oldnew...).Replace(tmpl)
}

// RenderHTML fills the embedded HTML template with the record's fields.
func RenderHTML(rec submission.Record) string {
	return RenderHTMLTemplate(contactFormTemplate, rec)
}

// RenderHTMLTemplate fills an arbitrary template using the notification placeholders.
func RenderHTMLTemplate(tmpl string, rec submission.Record) string {
	return substitute(tmpl, placeholders(rec, html.EscapeString))
}

// RenderText builds the plain-text alternative.
func RenderText(rec submission.Record) string {
	return fmt.Sprintf(`
New Contact Form Submission

From: %s
Email: %s
Subject: %s

Message:
%s

---
Submitted: %s
IP Address: %s
`,
		orDefault(rec.Name, "Unknown"),
		orDefault(rec.Email, "Unknown"),
		orDefault(rec.Subject, "No Subject"),
		orDefault(rec.Message, "No message provided"),
		submission.DisplayTime(orDefault(rec.Timestamp, "Unknown")),
		orDefault(rec.IPAddress, submission.UnknownOrigin),
	)
}

// SubjectLine is the notification subject for a record.
func SubjectLine(rec submission.Record) string {
	return "New Contact Form: " + orDefault(rec.Subject, "No Subject")
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
