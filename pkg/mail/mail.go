package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
)

// Sender delivers transactional mail. Delivery is best-effort everywhere it
// is used; callers log failures and move on.
type Sender interface {
	Send(to, subject, body string) error
}

// SMTP sends through a plain SMTP relay configured from env:
// SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS, SMTP_FROM.
type SMTP struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// FromEnv builds a sender from env vars. Returns nil when SMTP_HOST is not
// set, meaning mail is disabled.
func FromEnv() *SMTP {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}
	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "no-reply@personagrid.local"
	}
	return &SMTP{
		Host: host,
		Port: port,
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: from,
	}
}

func (s *SMTP) Send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", s.From, to, subject, body)
	addr := s.Host + ":" + s.Port
	var auth smtp.Auth
	if s.User != "" {
		auth = smtp.PlainAuth("", s.User, s.Pass, s.Host)
	}
	if err := smtp.SendMail(addr, auth, s.From, []string{to}, []byte(msg)); err != nil {
		log.Printf("smtp send to %s failed: %v", to, err)
		return err
	}
	return nil
}

// ResetPasswordBody renders the password-reset email body.
func ResetPasswordBody(token string) string {
	base := os.Getenv("APP_BASE_URL")
	if base == "" {
		base = "http://localhost:5173"
	}
	return fmt.Sprintf("You requested a password reset.\n\nOpen %s/reset-password?token=%s to choose a new password.\n\nThe link expires in one hour. If you did not request this, ignore this email.", base, token)
}
