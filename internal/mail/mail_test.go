package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct{ msgs []Message }

func (c *captureSender) Send(_ context.Context, m Message) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func TestNotifierRendersLocalizedEmails(t *testing.T) {
	c := &captureSender{}
	n := NewNotifier(c, "https://survey.example.com/")
	ctx := context.Background()

	require.NoError(t, n.Invitation(ctx, "a@x.io", "Platform", "abc123", "de-DE"))
	require.NoError(t, n.Reminder(ctx, "a@x.io", "Platform", "abc123", 4, "en"))
	require.NoError(t, n.MagicLink(ctx, "a@x.io", "jwt.token", "/en/survey/abc123", ""))
	require.NoError(t, n.ResultsReleased(ctx, "boss@x.io", "Platform", "t1", "fr"))
	require.Len(t, c.msgs, 4)

	assert.Equal(t, "Einladung zur Team-Umfrage Platform", c.msgs[0].Subject)
	assert.Contains(t, c.msgs[0].Body, "https://survey.example.com/de/survey/abc123")

	assert.Contains(t, c.msgs[1].Body, "open for 4 more day(s)")

	assert.Contains(t, c.msgs[2].Body, "https://survey.example.com/auth/verify?")
	assert.Contains(t, c.msgs[2].Body, "redirect=%2Fen%2Fsurvey%2Fabc123")

	assert.Equal(t, "Team Survey Results Available - Platform", c.msgs[3].Subject)
	assert.Contains(t, c.msgs[3].Body, "https://survey.example.com/en/team/t1")
}

func TestSMTPSenderFormatsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "survey@example.com"})
	s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		assert.NotNil(t, a)
		return nil
	}

	err := s.Send(context.Background(), Message{To: "a@x.io", Subject: "Erinnerung für Sie", Body: "line1\nline2"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "survey@example.com", gotFrom)
	assert.Equal(t, []string{"a@x.io"}, gotTo)
	raw := string(gotMsg)
	assert.Contains(t, raw, "Subject: =?utf-8?q?")
	assert.True(t, strings.HasSuffix(raw, "line1\r\nline2"))
}

func TestSMTPSenderWrapsErrors(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 25})
	s.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 busy") }
	err := s.Send(context.Background(), Message{To: "a@x.io"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a@x.io")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, Message{To: "a@x.io"}), context.Canceled)
}

func TestFormatMessageHeaders(t *testing.T) {
	raw := string(formatMessage("from@x.io", Message{To: "to@x.io", Subject: "Hi", Body: "b"}, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Contains(t, raw, "Subject: Hi\r\n")
	assert.Contains(t, raw, "Date: Thu, 02 Jan 2025 03:04:05 +0000\r\n")
}
