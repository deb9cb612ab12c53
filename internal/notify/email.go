package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

var (
	host     = "https://api.sendgrid.com"
	endpoint = "/v3/mail/send"
)

// Message is a plain-text email.
type Message struct {
	To      []mail.Address
	Subject string
	Text    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
	log        logrus.FieldLogger
}

func NewSendgridSender(key, fromName, fromEmail string, log logrus.FieldLogger) Sender {
	return &sendgridSender{
		key:        key,
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: "[" + fromName + "] ",
		log:        log,
	}
}

func (s *sendgridSender) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	for _, to := range msg.To {
		p.AddTos(sgmail.NewEmail(to.Name, to.Address))
	}

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return m
}

func (s *sendgridSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	// The SendGrid client takes no context, so a cancelled caller is honoured
	// only up to the request.
	if err := ctx.Err(); err != nil {
		return err
	}
	req := sendgrid.GetRequest(s.key, endpoint, host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.log.WithField("status", res.StatusCode).WithField("body", res.Body).Error("sendgrid rejected email")
		return fmt.Errorf("sending email: status %d", res.StatusCode)
	}
	return nil
}

// consoleSender prints messages instead of delivering them. It is used when no
// SendGrid key is configured.
type consoleSender struct {
	out  io.Writer
	from string
}

func NewConsoleSender(out io.Writer, from string) Sender {
	return &consoleSender{out: out, from: from}
}

func (s *consoleSender) Send(_ context.Context, msg Message) error {
	to := make([]string, len(msg.To))
	for i, addr := range msg.To {
		to[i] = addr.String()
	}
	var sb strings.Builder
	sb.WriteString("---------- email ----------\n")
	fmt.Fprintf(&sb, "From: %s\n", s.from)
	fmt.Fprintf(&sb, "To: %s\n", strings.Join(to, ", "))
	fmt.Fprintf(&sb, "Subject: %s\n\n", msg.Subject)
	sb.WriteString(msg.Text)
	sb.WriteString("\n---------------------------\n")
	_, err := io.WriteString(s.out, sb.String())
	return err
}
