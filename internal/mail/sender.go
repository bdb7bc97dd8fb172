package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"math/rand/v2"
	"net/smtp"
	"os"
	"strings"
	"time"

	"atomkit/internal/telemetry"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/mail")

const report_sender_send = "sender.send"

type SenderOptions struct {
	Host string
	Port int
	Usr  string
	Pwd  string
	// SSL connects with implicit tls, otherwise STARTTLS is used when the
	// server offers it.
	SSL       bool
	TLSConfig *tls.Config
	Telemetry telemetry.API
}

type Message struct {
	Plain       string
	HTML        string
	Subject     string
	FromName    string
	FromAddress string
	To          []string
	// Attachments are file paths.
	Attachments []string
	// IDSeed is embedded in the Message-ID.
	IDSeed string
}

// Sender sends mail through an smtp server.
type Sender struct {
	opts SenderOptions
	tel  telemetry.API
}

func NewSender(opts SenderOptions) *Sender {
	if opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{ServerName: opts.Host}
	}
	return &Sender{
		opts: opts,
		tel:  telemetry.NewScopedAPI("mail", opts.Telemetry),
	}
}

func (s *Sender) addr() string {
	return fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
}

// MessageID returns a new Message-ID on the sender's host containing seed.
func (s *Sender) MessageID(seed string) string {
	id := fmt.Sprintf("%d.%d.%d", time.Now().UnixNano()/int64(time.Millisecond*10), os.Getpid(), rand.Uint64())
	if seed != "" {
		id += "." + seed
	}
	return fmt.Sprintf("<%s@%s>", id, s.opts.Host)
}

// Build returns the email of msg with a fresh Message-ID.
func (s *Sender) Build(msg Message) (*email.Email, error) {
	mail := email.NewEmail()
	mail.From = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromAddress)
	if msg.FromName == "" {
		mail.From = msg.FromAddress
	}
	mail.To = msg.To
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Plain)
	if msg.HTML != "" {
		mail.HTML = []byte(msg.HTML)
	}
	for _, file := range msg.Attachments {
		_, err := mail.AttachFile(file)
		if err != nil {
			return nil, fmt.Errorf("build: %w", err)
		}
	}
	mail.Headers.Set("Message-Id", s.MessageID(msg.IDSeed))
	return mail, nil
}

func (s *Sender) auth() smtp.Auth {
	if s.opts.Usr == "" {
		return nil
	}
	return smtp.PlainAuth("", s.opts.Usr, s.opts.Pwd, s.opts.Host)
}

func (s *Sender) deliver(mail *email.Email) error {
	if s.opts.SSL {
		return mail.SendWithTLS(s.addr(), s.auth(), s.opts.TLSConfig)
	}
	return mail.SendWithStartTLS(s.addr(), s.auth(), s.opts.TLSConfig)
}

// Send delivers msg and returns its Message-ID.
func (s *Sender) Send(ctx context.Context, msg Message) (string, error) {
	ctx, span := tracer.Start(ctx, "sender:Send")
	defer span.End()

	err := ctx.Err()
	if err != nil {
		return "", err
	}
	mail, err := s.Build(msg)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	id := mail.Headers.Get("Message-Id")
	span.SetAttributes(attribute.String("message_id", id))

	err = s.deliver(mail)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		s.tel.ReportBroken(report_sender_send, err, strings.Join(msg.To, ","))
		return "", fmt.Errorf("send: %w", err)
	}
	return id, nil
}

// SendAll sends msg to every recipient separately and returns the
// Message-IDs in order.
func (s *Sender) SendAll(ctx context.Context, msg Message, recipients []string) ([]string, error) {
	ids := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		msg.To = []string{recipient}
		id, err := s.Send(ctx, msg)
		if err != nil {
			return ids, err
		}
		s.tel.ReportDebug("sent mail", "to", recipient, "id", id)
		ids = append(ids, id)
	}
	return ids, nil
}
