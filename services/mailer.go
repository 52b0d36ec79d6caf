package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/satis-shop/satis-api/config"
	"go.uber.org/zap"
)

// Email is a single outgoing message with a plain-text and an HTML body
type Email struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer defines the interface for sending emails
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// NewMailer returns an SMTP mailer, or a logging mailer when no host is configured
func NewMailer(cfg config.EmailConfig, logger *zap.Logger) Mailer {
	if cfg.Host == "" {
		return &ConsoleMailer{from: cfg.From, logger: logger}
	}
	return &SMTPMailer{cfg: cfg}
}

// SMTPMailer delivers mail through an SMTP relay with PLAIN auth
type SMTPMailer struct {
	cfg config.EmailConfig
}

// defaultSMTPTimeout bounds a whole delivery when EmailConfig.Timeout is unset
const defaultSMTPTimeout = 10 * time.Second

// Send sends msg as a multipart/alternative message. The dial and every
// SMTP exchange share one deadline of cfg.Timeout, cut short by ctx.
func (m *SMTPMailer) Send(ctx context.Context, msg Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("email %q has no recipients", msg.Subject)
	}

	timeout := m.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSMTPTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if err := m.deliver(conn, msg); err != nil {
		return fmt.Errorf("failed to send email via %s: %w", addr, err)
	}
	return nil
}

func (m *SMTPMailer) deliver(conn net.Conn, msg Email) error {
	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
			return err
		}
	}
	if m.cfg.User != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)); err != nil {
				return err
			}
		}
	}

	if err := c.Mail(m.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range msg.To {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMIME(m.cfg.From, msg)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

const mimeBoundary = "satis-alternative-boundary"

func buildMIME(from string, msg Email) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/alternative; boundary=" + mimeBoundary + "\r\n\r\n")

	b.WriteString("--" + mimeBoundary + "\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Text + "\r\n")
	if msg.HTML != "" {
		b.WriteString("--" + mimeBoundary + "\r\n")
		b.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		b.WriteString(msg.HTML + "\r\n")
	}
	b.WriteString("--" + mimeBoundary + "--\r\n")
	return []byte(b.String())
}

// ConsoleMailer logs messages instead of sending them (development)
type ConsoleMailer struct {
	from   string
	logger *zap.Logger
}

func (m *ConsoleMailer) Send(_ context.Context, msg Email) error {
	m.logger.Info("email",
		zap.String("from", m.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text),
	)
	return nil
}

// MockMailer records sent messages for testing
type MockMailer struct {
	mu   sync.Mutex
	sent []Email
	Err  error // returned from Send when set
}

// NewMockMailer creates a new mock mailer
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// Send records msg, or fails with Err
func (m *MockMailer) Send(_ context.Context, msg Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of all recorded messages
func (m *MockMailer) Sent() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.sent))
	copy(out, m.sent)
	return out
}

// Subjects returns the subjects of all recorded messages in send order
func (m *MockMailer) Subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	subjects := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		subjects = append(subjects, msg.Subject)
	}
	return subjects
}

// Reset clears recorded messages
func (m *MockMailer) Reset() {
	m.mu.Lock()
	m.sent = nil
	m.mu.Unlock()
}
