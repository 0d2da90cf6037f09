// Package email delivers notifications by SMTP.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/evcraddock/estate-bids/internal/notify"
	"github.com/evcraddock/estate-bids/internal/profile"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// IsConfigured returns true if SMTP settings are present.
func (c SMTPConfig) IsConfigured() bool {
	return c.Host != "" && c.From != ""
}

// Profiles resolves a recipient's address.
type Profiles interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
}

// SendFunc sends one message. Send is the SMTP implementation.
type SendFunc func(cfg SMTPConfig, to []string, subject, body string) error

// Mailer is a notify.Dispatcher that emails the recipient.
type Mailer struct {
	cfg      SMTPConfig
	profiles Profiles
	send     SendFunc
}

// NewMailer creates a mailer. A nil send uses SMTP.
func NewMailer(cfg SMTPConfig, profiles Profiles, send SendFunc) *Mailer {
	if send == nil {
		send = Send
	}
	return &Mailer{cfg: cfg, profiles: profiles, send: send}
}

// Notify emails n to its recipient.
func (m *Mailer) Notify(ctx context.Context, n notify.Notification) error {
	p, err := m.profiles.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("resolving recipient: %w", err)
	}
	if p.Email == "" {
		return fmt.Errorf("profile %s has no email address", p.ID)
	}

	subject, body := Format(n, p.Name)
	if err := m.send(m.cfg, []string{p.Email}, subject, body); err != nil {
		return fmt.Errorf("mailing %s: %w", n.Kind, err)
	}
	return nil
}

var subjects = map[notify.Kind]string{
	notify.BidSubmitted:         "New bid received",
	notify.BidManagerApproved:   "Bid awaiting your approval",
	notify.BidAccepted:          "Bid accepted",
	notify.BidRejected:          "Bid rejected",
	notify.BidWithdrawn:         "Bid withdrawn",
	notify.OwnershipTransferred: "Property ownership transferred",
}

// Format builds the subject and plain-text body for a notification.
func Format(n notify.Notification, name string) (subject, body string) {
	subject = subjects[n.Kind]
	if subject == "" {
		subject = "Notification"
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", name)
	} else {
		b.WriteString("Hi,\n\n")
	}
	b.WriteString(n.Message)
	b.WriteString("\n\n")
	if n.PropertyID != "" {
		fmt.Fprintf(&b, "Property: %s\n", n.PropertyID)
	}
	if n.BidID != "" {
		fmt.Fprintf(&b, "Bid: %s\n", n.BidID)
	}
	return subject, b.String()
}

// Send sends an email via SMTP.
// Supports both port 465 (implicit TLS) and port 587 (STARTTLS).
func Send(cfg SMTPConfig, to []string, subject, body string) error {
	if !cfg.IsConfigured() {
		return fmt.Errorf("SMTP not configured")
	}

	msg := buildMessage(cfg.From, to, subject, body)
	addr := cfg.Host + ":" + cfg.Port

	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if cfg.Port == "465" {
		return sendImplicitTLS(cfg, addr, auth, to, msg)
	}
	if err := smtp.SendMail(addr, auth, cfg.From, to, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, body string) []byte {
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from,
		strings.Join(to, ", "),
		subject,
		body,
	))
}

// sendImplicitTLS connects over TLS directly (port 465/SMTPS).
func sendImplicitTLS(cfg SMTPConfig, addr string, auth smtp.Auth, to []string, msg []byte) (err error) {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: cfg.Host})
	if err != nil {
		return fmt.Errorf("TLS dial: %w", err)
	}

	c, err := smtp.NewClient(conn, cfg.Host)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil && err == nil {
			err = fmt.Errorf("quit: %w", quitErr)
		}
	}()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("mail from: %w", err)
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return nil
}
