package devinbox

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Notifuse/designer/pkg/logger"
)

const multipartEmail = "From: Designer <designer@example.com>\r\n" +
	"To: qa@example.com\r\n" +
	"Subject: =?UTF-8?q?Preview_=E2=9C=93?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=UTF-8\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"SGVsbG8gdGhl\r\ncmU=\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=UTF-8\r\n" +
	"Content-Transfer-Encoding: quoted-printable\r\n" +
	"\r\n" +
	"<p style=3D\"color: red\">Hello there</p>\r\n" +
	"--b1--\r\n"

func TestInbox_CapacityAndOrder(t *testing.T) {
	inbox := NewInbox(2)
	inbox.Add(Message{ID: "1"})
	inbox.Add(Message{ID: "2"})
	inbox.Add(Message{ID: "3"})

	list := inbox.List()
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].ID)
	assert.Equal(t, "2", list[1].ID)

	_, ok := inbox.Get("1")
	assert.False(t, ok)
	msg, ok := inbox.Get("2")
	assert.True(t, ok)
	assert.Equal(t, "2", msg.ID)

	assert.Equal(t, 2, inbox.Clear())
	assert.Equal(t, 0, inbox.Len())
	assert.Empty(t, inbox.List())
}

func TestNewInbox_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewInbox(0).capacity)
}

func TestParseMessage_Multipart(t *testing.T) {
	parsed, err := parseMessage(strings.NewReader(multipartEmail))
	require.NoError(t, err)

	assert.Equal(t, "Preview ✓", parsed.subject)
	assert.Equal(t, "Hello there", parsed.text)
	assert.Equal(t, "<p style=\"color: red\">Hello there</p>", parsed.html)
}

func TestParseMessage_SinglePart(t *testing.T) {
	raw := "Subject: Plain\r\nContent-Type: text/html\r\n\r\n<b>hi</b>"
	parsed, err := parseMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "Plain", parsed.subject)
	assert.Equal(t, "<b>hi</b>", parsed.html)

	parsed, err = parseMessage(strings.NewReader("Subject: Bare\r\n\r\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "body", parsed.text)
}

func TestParseMessage_Invalid(t *testing.T) {
	_, err := parseMessage(strings.NewReader("Content-Type: ;;;\r\n\r\nx"))
	assert.Error(t, err)
}

func startServer(t *testing.T, username, password string) (*Server, *Inbox) {
	t.Helper()

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(h)
	}

	inbox := NewInbox(10)
	srv := NewServer(ServerConfig{
		Host:         "127.0.0.1",
		Username:     username,
		PasswordHash: hash,
		Logger:       logger.NewTestLogger(t),
	}, inbox)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = srv.Serve(l) }()

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	require.Eventually(t, func() bool { return srv.Addr() == l.Addr().String() }, time.Second, 10*time.Millisecond)
	return srv, inbox
}

func TestServer_AuthenticatedDelivery(t *testing.T) {
	srv, inbox := startServer(t, "designer", "s3cret")

	auth := sasl.NewPlainClient("", "designer", "s3cret")
	err := smtp.SendMail(srv.Addr(), auth, "designer@example.com", []string{"qa@example.com"}, strings.NewReader(multipartEmail))
	require.NoError(t, err)

	require.Equal(t, 1, inbox.Len())
	msg := inbox.List()[0]
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "designer@example.com", msg.From)
	assert.Equal(t, []string{"qa@example.com"}, msg.To)
	assert.Equal(t, "Preview ✓", msg.Subject)
	assert.Contains(t, msg.HTML, "Hello there")
	assert.Positive(t, msg.Size)
}

func TestServer_RejectsBadCredentials(t *testing.T) {
	srv, inbox := startServer(t, "designer", "s3cret")

	auth := sasl.NewPlainClient("", "designer", "wrong")
	err := smtp.SendMail(srv.Addr(), auth, "designer@example.com", []string{"qa@example.com"}, strings.NewReader(multipartEmail))
	require.Error(t, err)
	assert.Equal(t, 0, inbox.Len())
}

func TestServer_RequiresAuthWhenConfigured(t *testing.T) {
	srv, inbox := startServer(t, "designer", "s3cret")

	err := smtp.SendMail(srv.Addr(), nil, "designer@example.com", []string{"qa@example.com"}, strings.NewReader(multipartEmail))
	require.Error(t, err)
	assert.Equal(t, 0, inbox.Len())
}

func TestServer_OpenInbox(t *testing.T) {
	srv, inbox := startServer(t, "", "")

	for i := 0; i < 3; i++ {
		body := fmt.Sprintf("Subject: Test %d\r\n\r\nbody", i)
		require.NoError(t, smtp.SendMail(srv.Addr(), nil, "a@example.com", []string{"b@example.com"}, strings.NewReader(body)))
	}

	list := inbox.List()
	require.Len(t, list, 3)
	assert.Equal(t, "Test 2", list[0].Subject)
}
