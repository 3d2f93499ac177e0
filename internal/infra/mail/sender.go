package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"gopkg.in/gomail.v2"
)

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

var relinkTemplate = template.Must(template.New("relink").Parse(`<p>The CRM connection for location <b>{{.LocationID}}</b> could not be refreshed and must be re-linked.</p>
{{if .Detail}}<p>Provider response:</p>
<pre>{{.Detail}}</pre>{{end}}
{{if .ConnectURL}}<p><a href="{{.ConnectURL}}">Re-link</a></p>{{end}}
`))

// NewEmailSender sends operator alerts to `to` through an SMTP relay.
func NewEmailSender(host string, port int, user, password, to, connectURL string) *EmailSender {
	return &EmailSender{
		Host:       host,
		Port:       port,
		User:       user,
		Password:   password,
		From:       user,
		To:         to,
		ConnectURL: connectURL,
		dialer:     gomail.NewDialer(host, port, user, password),
	}
}

// NotifyRelink mails the operator that locationID needs a new OAuth grant.
func (s *EmailSender) NotifyRelink(_ context.Context, locationID, detail string) error {
	data := RelinkEmailData{
		LocationID: locationID,
		Detail:     detail,
		ConnectURL: s.ConnectURL,
	}

	body, err := renderRelink(data)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("CRM connection for %s needs to be re-linked", locationID))
	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send relink email: %w", err)
	}
	return nil
}

// renderRelink escapes the provider's response, which is untrusted text.
func renderRelink(data RelinkEmailData) (string, error) {
	var body bytes.Buffer
	if err := relinkTemplate.Execute(&body, data); err != nil {
		return "", fmt.Errorf("render relink email: %w", err)
	}
	return body.String(), nil
}
