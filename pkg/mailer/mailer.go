package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/wneessen/go-mail"

	"github.com/Notifuse/designer/pkg/logger"
)

//go:generate mockgen -destination=../mocks/mock_mailer.go -package=pkgmocks github.com/Notifuse/designer/pkg/mailer Mailer

// ErrNoRecipients is returned when a message has no To address
var ErrNoRecipients = errors.New("message has no recipients")

// Message is a rendered email ready to send
type Message struct {
	To      []string
	Subject string
	HTML    string
	// Text is derived from HTML when empty
	Text string
}

// Mailer sends rendered emails
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds the SMTP settings for the mailer
type Config struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
	FromName  string
	Timeout   time.Duration
}

// SMTPMailer sends through an SMTP server with go-mail
type SMTPMailer struct {
	config *Config
}

// NewSMTPMailer creates a new SMTP mailer
func NewSMTPMailer(config *Config) *SMTPMailer {
	return &SMTPMailer{config: config}
}

// Send builds a multipart/alternative message and delivers it
func (m *SMTPMailer) Send(ctx context.Context, message Message) error {
	msg, err := m.buildMessage(message)
	if err != nil {
		return err
	}

	client, err := m.createSMTPClient()
	if err != nil {
		return err
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func (m *SMTPMailer) buildMessage(message Message) (*mail.Msg, error) {
	if len(message.To) == 0 {
		return nil, ErrNoRecipients
	}

	msg := mail.NewMsg(mail.WithNoDefaultUserAgent())
	if err := msg.FromFormat(m.config.FromName, m.config.FromEmail); err != nil {
		return nil, fmt.Errorf("failed to set email from address: %w", err)
	}
	if err := msg.To(message.To...); err != nil {
		return nil, fmt.Errorf("failed to set email recipient: %w", err)
	}
	msg.Subject(message.Subject)

	text := message.Text
	if text == "" {
		text = PlainText(message.HTML)
	}
	msg.SetBodyString(mail.TypeTextPlain, text)
	msg.AddAlternativeString(mail.TypeTextHTML, message.HTML)
	return msg, nil
}

func (m *SMTPMailer) createSMTPClient() (*mail.Client, error) {
	timeout := m.config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	opts := []mail.Option{
		mail.WithPort(m.config.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(timeout),
	}

	// unauthenticated relays such as the dev inbox take no credentials
	if m.config.Username != "" && m.config.Password != "" {
		opts = append(opts,
			mail.WithUsername(m.config.Username),
			mail.WithPassword(m.config.Password),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
		)
	}

	client, err := mail.NewClient(m.config.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	return client, nil
}

var whitespace = regexp.MustCompile(`[ \t]+`)
var blankLines = regexp.MustCompile(`\n{3,}`)

// PlainText returns a readable text rendition of an HTML email
func PlainText(source string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return ""
	}
	doc.Find("style, script, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, h1, h2, h3, h4, h5, h6, li, tr, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href != "" && href != "#" && strings.TrimSpace(s.Text()) != href {
			s.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})

	lines := strings.Split(doc.Text(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespace.ReplaceAllString(line, " "))
	}
	text := strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}

// ConsoleMailer logs messages instead of sending them
type ConsoleMailer struct {
	logger logger.Logger
}

// NewConsoleMailer creates a mailer for setups without SMTP
func NewConsoleMailer(log logger.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: log}
}

func (m *ConsoleMailer) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	m.logger.WithFields(map[string]interface{}{
		"to":        msg.To,
		"subject":   msg.Subject,
		"html_size": len(msg.HTML),
	}).Info("Test email not sent, SMTP is not configured")
	return nil
}
