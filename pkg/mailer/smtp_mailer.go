package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"

	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the connection settings for the outbound mail server
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends HTML emails over plain SMTP with AUTH
type SMTPMailer struct {
	config SMTPConfig
	logger *logrus.Logger
}

// NewSMTPMailer creates an SMTP-backed mailer
func NewSMTPMailer(config SMTPConfig, logger *logrus.Logger) *SMTPMailer {
	return &SMTPMailer{config: config, logger: logger}
}

func (m *SMTPMailer) SendWelcome(toEmail, name string) error {
	body, err := render(welcomeTemplate, map[string]interface{}{"Name": name})
	if err != nil {
		return err
	}
	return m.send(toEmail, "Benvenuto su FestaLaurea", body)
}

func (m *SMTPMailer) SendBookingConfirmation(b BookingEmail) error {
	body, err := render(bookingConfirmationTemplate, b)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Prenotazione ricevuta - %s", b.ConfirmationCode)
	return m.send(b.UserEmail, subject, body)
}

func (m *SMTPMailer) SendVenueNotification(b BookingEmail) error {
	if b.VenueEmail == "" {
		m.logger.WithField("venue", b.VenueName).Warn("venue has no email, skipping notification")
		return nil
	}
	body, err := render(venueNotificationTemplate, b)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Nuova prenotazione - %s", b.EventDate)
	return m.send(b.VenueEmail, subject, body)
}

func (m *SMTPMailer) SendBookingCancelled(b BookingEmail, reason string) error {
	body, err := render(bookingCancelledTemplate, struct {
		BookingEmail
		Reason string
	}{b, reason})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Prenotazione annullata - %s", b.ConfirmationCode)
	return m.send(b.UserEmail, subject, body)
}

func (m *SMTPMailer) SendReviewPosted(r ReviewEmail) error {
	if r.VenueEmail == "" {
		return nil
	}
	body, err := render(reviewPostedTemplate, r)
	if err != nil {
		return err
	}
	return m.send(r.VenueEmail, "Nuova recensione ricevuta", body)
}

// send delivers one HTML message
func (m *SMTPMailer) send(to, subject, htmlBody string) error {
	from := fmt.Sprintf("%s <%s>", m.config.FromName, m.config.From)

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := m.config.Host + ":" + m.config.Port
	auth := smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg.Bytes()); err != nil {
		m.logger.WithFields(logrus.Fields{
			"to":      to,
			"subject": subject,
		}).WithError(err).Error("failed to send email")
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render email template: %w", err)
	}
	return buf.String(), nil
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #7c3aed;">Benvenuto su FestaLaurea, {{.Name}}!</h2>
  <p>Il tuo account &egrave; stato creato. Ora puoi cercare il locale perfetto per la tua festa di laurea.</p>
  <p>A presto,<br>Il team FestaLaurea</p>
</div>
`))

var bookingConfirmationTemplate = template.Must(template.New("booking_confirmation").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #7c3aed;">Prenotazione ricevuta!</h2>
  <p>Ciao {{.UserName}},</p>
  <p>abbiamo ricevuto la tua richiesta di prenotazione presso <strong>{{.VenueName}}</strong>.</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr><td style="padding: 6px 0;">Codice prenotazione</td><td><strong>{{.ConfirmationCode}}</strong></td></tr>
    <tr><td style="padding: 6px 0;">Data</td><td>{{.EventDate}}</td></tr>
    <tr><td style="padding: 6px 0;">Ora</td><td>{{.EventTime}}</td></tr>
    <tr><td style="padding: 6px 0;">Ospiti</td><td>{{.Guests}}</td></tr>
    <tr><td style="padding: 6px 0;">Totale</td><td>&euro; {{printf "%.2f" .TotalAmount}}</td></tr>
  </table>
  <p>Riceverai una conferma non appena il locale avr&agrave; accettato la prenotazione.</p>
</div>
`))

var venueNotificationTemplate = template.Must(template.New("venue_notification").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #7c3aed;">Nuova prenotazione</h2>
  <p>Hai ricevuto una nuova richiesta di prenotazione.</p>
  <table style="width: 100%; border-collapse: collapse;">
    <tr><td style="padding: 6px 0;">Cliente</td><td>{{.UserName}}</td></tr>
    <tr><td style="padding: 6px 0;">Data</td><td>{{.EventDate}} {{.EventTime}}</td></tr>
    <tr><td style="padding: 6px 0;">Ospiti</td><td>{{.Guests}}</td></tr>
    <tr><td style="padding: 6px 0;">Codice</td><td>{{.ConfirmationCode}}</td></tr>
  </table>
  <p>Accedi alla dashboard per confermare o rifiutare.</p>
</div>
`))

var bookingCancelledTemplate = template.Must(template.New("booking_cancelled").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #dc2626;">Prenotazione annullata</h2>
  <p>Ciao {{.UserName}},</p>
  <p>la prenotazione <strong>{{.ConfirmationCode}}</strong> presso {{.VenueName}} &egrave; stata annullata.</p>
  {{if .Reason}}<p>Motivo: {{.Reason}}</p>{{end}}
</div>
`))

var reviewPostedTemplate = template.Must(template.New("review_posted").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #7c3aed;">Nuova recensione</h2>
  <p>{{.UserName}} ha lasciato una recensione per {{.VenueName}}:</p>
  <p><strong>{{.Rating}}/5</strong>{{if .Title}} &mdash; {{.Title}}{{end}}</p>
  {{if .Comment}}<blockquote style="border-left: 3px solid #7c3aed; padding-left: 12px; color: #555;">{{.Comment}}</blockquote>{{end}}
</div>
`))
