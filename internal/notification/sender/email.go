package sender

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"os"
	"path/filepath"
	"strings"
	texttemplate "text/template"

	"order-service/config"

	gopkgmail "gopkg.in/gomail.v2"
)

type EmailNotification struct {
	To       string
	Subject  string
	Template string         // имя шаблона без расширения, например "order_confirmation"
	Data     map[string]any // данные для шаблона
}

// Mailer: *gomail.Dialer; в тестах подменяется.
type Mailer interface {
	DialAndSend(m ...*gopkgmail.Message) error
}

type EmailSender struct {
	cfg    *config.NotifierConfig
	mailer Mailer
}

func NewEmailSender(cfg *config.NotifierConfig) *EmailSender {
	d := gopkgmail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	d.SSL = cfg.SMTPSSL
	return NewEmailSenderWithMailer(cfg, d)
}

func NewEmailSenderWithMailer(cfg *config.NotifierConfig, mailer Mailer) *EmailSender {
	return &EmailSender{cfg: cfg, mailer: mailer}
}

func (s *EmailSender) SendEmail(n EmailNotification) error {
	m, err := s.Build(n)
	if err != nil {
		return err
	}
	return s.mailer.DialAndSend(m)
}

// Build собирает письмо: text/plain + text/html альтернатива.
func (s *EmailSender) Build(n EmailNotification) (*gopkgmail.Message, error) {
	htmlBody, err := s.renderHTML(n.Template, n.Data)
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	plainBody, err := s.renderPlain(n.Template, n.Data)
	if err != nil {
		return nil, fmt.Errorf("render plain: %w", err)
	}

	m := gopkgmail.NewMessage()
	m.SetHeader("From", s.cfg.SMTPFrom)
	m.SetHeader("To", n.To)
	m.SetHeader("Subject", n.Subject)
	m.SetBody("text/plain", plainBody)
	m.AddAlternative("text/html", htmlBody)

	if strings.Contains(htmlBody, "cid:logo") {
		iconPath := filepath.Join(s.cfg.TMPLDir, "icon.png")
		if _, errStat := os.Stat(iconPath); errStat == nil {
			m.Embed(iconPath, gopkgmail.SetHeader(map[string][]string{"Content-ID": {"<logo>"}}))
		}
	}
	return m, nil
}

func (s *EmailSender) renderHTML(tmplName string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.cfg.TMPLDir, tmplName+".html"))
	if err != nil {
		return "", err
	}
	tmpl, err := htmltemplate.New(tmplName).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// plain-версия не экранируется как HTML
func (s *EmailSender) renderPlain(tmplName string, data map[string]any) (string, error) {
	content, err := os.ReadFile(filepath.Join(s.cfg.TMPLDir, tmplName+".txt"))
	if err != nil {
		return "", err
	}
	tmpl, err := texttemplate.New(tmplName).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
