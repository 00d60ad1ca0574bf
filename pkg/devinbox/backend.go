package devinbox

import (
	"bytes"
	"errors"
	"io"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/google/uuid"

	"github.com/Notifuse/designer/pkg/crypto"
	"github.com/Notifuse/designer/pkg/logger"
)

var errInvalidCredentials = errors.New("invalid credentials")

// Backend implements smtp.Backend and stores every accepted message in an Inbox
type Backend struct {
	inbox        *Inbox
	username     string
	passwordHash string
	logger       logger.Logger
	now          func() time.Time
}

// NewBackend creates a backend. An empty passwordHash accepts unauthenticated mail.
func NewBackend(inbox *Inbox, username, passwordHash string, log logger.Logger) *Backend {
	return &Backend{
		inbox:        inbox,
		username:     username,
		passwordHash: passwordHash,
		logger:       log,
		now:          time.Now,
	}
}

func (b *Backend) requiresAuth() bool {
	return b.passwordHash != ""
}

// NewSession is called for each client connection
func (b *Backend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &Session{backend: b, authenticated: !b.requiresAuth()}, nil
}

// Session is one SMTP conversation
type Session struct {
	backend       *Backend
	authenticated bool
	from          string
	to            []string
}

// AuthMechanisms advertises PLAIN when credentials are configured
func (s *Session) AuthMechanisms() []string {
	if !s.backend.requiresAuth() {
		return nil
	}
	return []string{sasl.Plain}
}

// Auth returns the PLAIN server checking the bcrypt credentials
func (s *Session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, smtp.ErrAuthUnknownMechanism
	}
	return sasl.NewPlainServer(func(identity, username, password string) error {
		if username != s.backend.username || !crypto.CheckPasswordHash(password, s.backend.passwordHash) {
			s.backend.logger.WithField("username", username).Warn("Dev inbox: authentication failed")
			return errInvalidCredentials
		}
		s.authenticated = true
		return nil
	}), nil
}

func (s *Session) Mail(from string, _ *smtp.MailOptions) error {
	if !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.from = from
	return nil
}

func (s *Session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if !s.authenticated {
		return smtp.ErrAuthRequired
	}
	s.to = append(s.to, to)
	return nil
}

func (s *Session) Data(r io.Reader) error {
	if !s.authenticated {
		return smtp.ErrAuthRequired
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return errors.New("failed to read message")
	}

	msg := Message{
		ID:         uuid.NewString(),
		From:       s.from,
		To:         append([]string(nil), s.to...),
		Size:       len(raw),
		ReceivedAt: s.backend.now().UTC(),
	}

	parsed, err := parseMessage(bytes.NewReader(raw))
	if err != nil {
		s.backend.logger.WithField("error", err.Error()).Warn("Dev inbox: storing unparsed message")
		msg.Text = string(raw)
	} else {
		msg.Subject = parsed.subject
		msg.HTML = parsed.html
		msg.Text = parsed.text
	}

	s.backend.inbox.Add(msg)
	s.backend.logger.WithFields(map[string]interface{}{
		"id":      msg.ID,
		"to":      msg.To,
		"subject": msg.Subject,
		"size":    msg.Size,
	}).Info("Dev inbox: message captured")
	return nil
}

func (s *Session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *Session) Logout() error {
	return nil
}
