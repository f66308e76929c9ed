package tools

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"

	"github.com/plugkit/plugkit/llm"
)

// SendEmailInput defines the input for the send_email tool.
type SendEmailInput struct {
	To      []string `json:"to" jsonschema:"required,description=Recipient addresses"`
	Subject string   `json:"subject" jsonschema:"required,description=Message subject"`
	Body    string   `json:"body" jsonschema:"required,description=Plain-text message body"`
}

// SendEmailOutput defines the output of the send_email tool.
type SendEmailOutput struct {
	Accepted int    `json:"accepted"`
	Server   string `json:"server"`
}

// SMTPConfig holds SMTP submission settings.
type SMTPConfig struct {
	Addr     string // host:port
	From     string
	Username string
	Password string
}

// SMTPConfigFromEnv reads SMTP settings from SMTP_ADDR, SMTP_FROM,
// SMTP_USERNAME and SMTP_PASSWORD.
func SMTPConfigFromEnv() SMTPConfig {
	return SMTPConfig{
		Addr:     os.Getenv("SMTP_ADDR"),
		From:     os.Getenv("SMTP_FROM"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
	}
}

// SendEmailTool returns the send_email tool bound to the given SMTP
// configuration. STARTTLS is negotiated when the server offers it.
func SendEmailTool(cfg SMTPConfig) (llm.Tool, error) {
	return llm.NewTool(
		"send_email",
		"Send a plain-text email to one or more recipients.",
		func(ctx context.Context, input SendEmailInput) (SendEmailOutput, error) {
			return sendEmail(cfg, input)
		},
	)
}

// MustSendEmail returns the send_email tool, panicking on error.
func MustSendEmail(cfg SMTPConfig) llm.Tool {
	tool, err := SendEmailTool(cfg)
	if err != nil {
		panic(err)
	}
	return tool
}

func sendEmail(cfg SMTPConfig, input SendEmailInput) (SendEmailOutput, error) {
	if cfg.Addr == "" || cfg.From == "" {
		return SendEmailOutput{}, fmt.Errorf("SMTP not configured: set SMTP_ADDR and SMTP_FROM")
	}
	if len(input.To) == 0 {
		return SendEmailOutput{}, fmt.Errorf("at least one recipient is required")
	}

	msg := buildMessage(cfg.From, input)

	var auth smtp.Auth
	if cfg.Username != "" {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			return SendEmailOutput{}, fmt.Errorf("invalid SMTP address %q: %w", cfg.Addr, err)
		}
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}

	if err := smtp.SendMail(cfg.Addr, auth, cfg.From, input.To, msg); err != nil {
		return SendEmailOutput{}, fmt.Errorf("sending mail: %w", err)
	}

	return SendEmailOutput{Accepted: len(input.To), Server: cfg.Addr}, nil
}

func buildMessage(from string, input SendEmailInput) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(input.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", input.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(input.Body)
	return []byte(b.String())
}
