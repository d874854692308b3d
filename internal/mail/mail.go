// Package mail renders and delivers the emails the survey workflows send.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/smtp"
	"net/url"
	"strings"
	"text/template"
	"time"

	"github.com/casanoova/compass/internal/utils"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers one rendered message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of delivering them. Used in
// development and whenever SMTP is not configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.Default().InfoContext(ctx, "email not delivered (log sender)",
		"module", "mail",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Body,
	)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPSender struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, formatMessage(s.cfg.From, msg, time.Now())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func formatMessage(from string, msg Message, at time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", at.UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.Bytes()
}

// Notifier implements services.Notifier by rendering utils strings into
// messages with links back into the web app.
type Notifier struct {
	sender  Sender
	baseURL string
}

func NewNotifier(sender Sender, baseURL string) *Notifier {
	return &Notifier{sender: sender, baseURL: strings.TrimRight(baseURL, "/")}
}

type emailData struct {
	TeamName      string
	Link          string
	DaysRemaining int
}

func (n *Notifier) render(locale, kind string, data emailData) (string, string, error) {
	locale = utils.DetermineLocale(locale, "", utils.Locales, "en")
	subject, err := execute(utils.T(locale, "email."+kind+".subject"), data)
	if err != nil {
		return "", "", err
	}
	body, err := execute(utils.T(locale, "email."+kind+".body"), data)
	if err != nil {
		return "", "", err
	}
	return subject, body, nil
}

func execute(src string, data emailData) (string, error) {
	tpl, err := template.New("email").Option("missingkey=error").Parse(src)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (n *Notifier) deliver(ctx context.Context, to, locale, kind string, data emailData) error {
	subject, body, err := n.render(locale, kind, data)
	if err != nil {
		return fmt.Errorf("render %s email: %w", kind, err)
	}
	return n.sender.Send(ctx, Message{To: to, Subject: subject, Body: body})
}

func (n *Notifier) surveyLink(locale, token string) string {
	return fmt.Sprintf("%s/%s/survey/%s", n.baseURL, utils.DetermineLocale(locale, "", utils.Locales, "en"), url.PathEscape(token))
}

func (n *Notifier) Invitation(ctx context.Context, to, teamName, inviteToken, locale string) error {
	return n.deliver(ctx, to, locale, "invite", emailData{TeamName: teamName, Link: n.surveyLink(locale, inviteToken)})
}

func (n *Notifier) Reminder(ctx context.Context, to, teamName, inviteToken string, daysRemaining int, locale string) error {
	return n.deliver(ctx, to, locale, "reminder", emailData{
		TeamName:      teamName,
		Link:          n.surveyLink(locale, inviteToken),
		DaysRemaining: daysRemaining,
	})
}

func (n *Notifier) MagicLink(ctx context.Context, to, loginToken, redirect, locale string) error {
	q := url.Values{"token": {loginToken}}
	if redirect != "" {
		q.Set("redirect", redirect)
	}
	link := n.baseURL + "/auth/verify?" + q.Encode()
	return n.deliver(ctx, to, locale, "magic", emailData{Link: link})
}

func (n *Notifier) ResultsReleased(ctx context.Context, to, teamName, teamID, locale string) error {
	link := fmt.Sprintf("%s/%s/team/%s", n.baseURL, utils.DetermineLocale(locale, "", utils.Locales, "en"), url.PathEscape(teamID))
	return n.deliver(ctx, to, locale, "released", emailData{TeamName: teamName, Link: link})
}
