package services

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/satis-shop/satis-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMailer(t *testing.T) {
	assert.IsType(t, &ConsoleMailer{}, NewMailer(config.EmailConfig{}, zap.NewNop()))
	assert.IsType(t, &SMTPMailer{}, NewMailer(config.EmailConfig{Host: "smtp.example.com", Port: 587}, zap.NewNop()))
}

func TestConsoleMailerNeverFails(t *testing.T) {
	m := NewMailer(config.EmailConfig{From: "no-reply@satis.local"}, zap.NewNop())
	assert.NoError(t, m.Send(context.Background(), Email{To: []string{"a@example.com"}, Subject: "Merhaba"}))
}

func TestSMTPMailerRequiresRecipients(t *testing.T) {
	m := &SMTPMailer{cfg: config.EmailConfig{Host: "127.0.0.1", Port: 1}}
	assert.Error(t, m.Send(context.Background(), Email{Subject: "Boş"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Send(ctx, Email{To: []string{"a@example.com"}}), context.Canceled)
}

func TestSMTPMailerTimesOutOnSilentRelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept the connection but never send the SMTP greeting.
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(5 * time.Second)
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	m := &SMTPMailer{cfg: config.EmailConfig{
		Host:    "127.0.0.1",
		Port:    addr.Port,
		From:    "no-reply@satis.local",
		Timeout: 200 * time.Millisecond,
	}}

	start := time.Now()
	err = m.Send(context.Background(), Email{To: []string{"a@example.com"}, Subject: "Merhaba"})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPMailerHonoursContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(5 * time.Second)
		}
	}()

	m := &SMTPMailer{cfg: config.EmailConfig{
		Host:    "127.0.0.1",
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Timeout: time.Minute,
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	assert.Error(t, m.Send(ctx, Email{To: []string{"a@example.com"}}))
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME("no-reply@satis.local", Email{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Sipariş Onayı",
		Text:    "düz metin",
		HTML:    "<p>html</p>",
	}))

	assert.Contains(t, raw, "From: no-reply@satis.local\r\n")
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8")
	assert.Contains(t, raw, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, raw, "<p>html</p>")
	assert.Contains(t, raw, "--"+mimeBoundary+"--")
}

func TestMockMailer(t *testing.T) {
	m := NewMockMailer()
	assert.NoError(t, m.Send(context.Background(), Email{Subject: "1"}))
	assert.NoError(t, m.Send(context.Background(), Email{Subject: "2"}))
	assert.Equal(t, []string{"1", "2"}, m.Subjects())

	m.Reset()
	assert.Empty(t, m.Sent())
}
