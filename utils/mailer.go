package utils

import (
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/quickclicks/board/config"
)

// SendMail delivers an email using SMTP settings from config. When html is
// non-empty a multipart/alternative message is produced so plain-text clients
// still render the text part. Callers treat failures as non-fatal.
func SendMail(to []string, subject, text, html string) error {
	cfg := config.Get()
	if cfg.SMTPHost == "" || cfg.SMTPFrom == "" {
		return fmt.Errorf("smtp not configured")
	}
	if len(to) == 0 {
		return fmt.Errorf("no recipients")
	}
	addr := net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort))
	auth := smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)

	fromName := cfg.SMTPFromName
	if fromName == "" {
		fromName = "Board"
	}

	msg := buildMessage(fromName, cfg.SMTPFrom, to, subject, text, html)

	if cfg.SMTPTLS {
		return sendWithStartTLS(addr, auth, cfg.SMTPFrom, to, msg, cfg.SMTPUsername != "")
	}
	return smtp.SendMail(addr, auth, cfg.SMTPFrom, to, msg)
}

func buildMessage(fromName, from string, to []string, subject, text, html string) []byte {
	var msg strings.Builder
	write := func(k, v string) { msg.WriteString(k + ": " + v + "\r\n") }

	write("From", fmt.Sprintf("%s <%s>", encodeRFC2047(fromName), from))
	write("To", strings.Join(to, ", "))
	write("Subject", encodeRFC2047(subject))
	write("MIME-Version", "1.0")

	if html == "" {
		write("Content-Type", "text/plain; charset=UTF-8")
		msg.WriteString("\r\n")
		msg.WriteString(text)
		return []byte(msg.String())
	}

	const boundary = "qcb-alt-boundary"
	write("Content-Type", "multipart/alternative; boundary="+boundary)
	msg.WriteString("\r\n")
	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", text},
		{"text/html; charset=UTF-8", html},
	} {
		msg.WriteString("--" + boundary + "\r\n")
		msg.WriteString("Content-Type: " + part.ctype + "\r\n\r\n")
		msg.WriteString(part.body + "\r\n")
	}
	msg.WriteString("--" + boundary + "--\r\n")
	return []byte(msg.String())
}

func sendWithStartTLS(addr string, auth smtp.Auth, from string, to []string, msg []byte, doAuth bool) error {
	d := net.Dialer{Timeout: 5 * time.Second}
	conn, err := d.Dial("tcp", addr)
	if err != nil {
		return err
	}
	_ = conn.SetDeadline(time.Now().Add(15 * time.Second))
	host, _, _ := net.SplitHostPort(addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()
	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return err
		}
	}
	if doAuth {
		if err := c.Auth(auth); err != nil {
			return err
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(msg); err != nil {
		_ = wc.Close()
		return err
	}
	return wc.Close()
}

// encodeRFC2047 encodes a string for non-ASCII mail headers.
func encodeRFC2047(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] >= 128 {
			return fmt.Sprintf("=?UTF-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(s)))
		}
	}
	return s
}
