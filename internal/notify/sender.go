package notify

import (
	"context"
	"fmt"

	"atomkit/internal/mail"
	"atomkit/internal/sms"
	"atomkit/internal/telemetry"
)

const (
	report_sender_send = "sender.send"
	report_sender_save = "sender.save"
)

// Sender delivers notices to a single recipient.
type Sender interface {
	Name() string
	NewNotice(title, content string, files []string, urgency int) *Notice
	// Send delivers notice to to and fills in its SenderID, the notice is
	// saved to the backup directory even when delivery fails.
	Send(ctx context.Context, notice *Notice, to string) error
}

type base struct {
	name string
	dir  string
	tel  telemetry.API
}

func (b base) Name() string {
	return b.name
}

func (b base) NewNotice(title, content string, files []string, urgency int) *Notice {
	return NewNotice(b.name, title, content, files, urgency)
}

func (b base) save(notice *Notice) {
	if b.dir == "" {
		return
	}
	_, err := Save(b.dir, notice)
	if err != nil {
		b.tel.ReportWarning(report_sender_save, err, notice.ID)
	}
}

type PostfixOptions struct {
	Host string
	Port int
	Usr  string
	Pwd  string
	SSL  bool
	// Dir is the backup directory notices are saved to, empty disables
	// saving.
	Dir       string
	Telemetry telemetry.API
}

// PostfixSender sends notices as mail from notify@<host>.
type PostfixSender struct {
	base
	host   string
	client *mail.Sender
}

func NewPostfixSender(opts PostfixOptions) *PostfixSender {
	tel := telemetry.NewScopedAPI("notify", opts.Telemetry)
	return &PostfixSender{
		base: base{
			name: fmt.Sprintf("Postfix.Sender <%s>", opts.Host),
			dir:  opts.Dir,
			tel:  tel,
		},
		host: opts.Host,
		client: mail.NewSender(mail.SenderOptions{
			Host:      opts.Host,
			Port:      opts.Port,
			Usr:       opts.Usr,
			Pwd:       opts.Pwd,
			SSL:       opts.SSL,
			Telemetry: opts.Telemetry,
		}),
	}
}

func (s *PostfixSender) Send(ctx context.Context, notice *Notice, to string) error {
	msg := mail.Message{
		Plain:       notice.Body(),
		Subject:     notice.Subject(),
		FromName:    "Notify",
		FromAddress: "notify@" + s.host,
		To:          []string{to},
		Attachments: notice.Files,
		IDSeed:      notice.ID,
	}
	if len(notice.Files) > 0 {
		msg.HTML = notice.HTML()
	}

	id, err := s.client.Send(ctx, msg)
	if err != nil {
		s.tel.ReportBroken(report_sender_send, err, notice.ID)
	} else {
		notice.SenderID = id
	}
	s.save(notice)
	return err
}

type TwilioOptions struct {
	Sid    string
	Token  string
	Number string
	// BaseURL overrides the twilio api root.
	BaseURL   string
	Dir       string
	Telemetry telemetry.API
}

// TwilioSender sends notices as sms, recipients are phone numbers like
// +1 23456789.
type TwilioSender struct {
	base
	client *sms.Twilio
}

func NewTwilioSender(opts TwilioOptions) (*TwilioSender, error) {
	client, err := sms.NewTwilio(sms.Options{
		Sid:       opts.Sid,
		Token:     opts.Token,
		Number:    opts.Number,
		BaseURL:   opts.BaseURL,
		Telemetry: opts.Telemetry,
	})
	if err != nil {
		return nil, err
	}
	return &TwilioSender{
		base: base{
			name: fmt.Sprintf("Twilio.Sender <%s>", opts.Number),
			dir:  opts.Dir,
			tel:  telemetry.NewScopedAPI("notify", opts.Telemetry),
		},
		client: client,
	}, nil
}

func (s *TwilioSender) Send(ctx context.Context, notice *Notice, to string) error {
	sid, err := s.client.Send(ctx, to, notice.Body())
	if err != nil {
		s.tel.ReportBroken(report_sender_send, err, notice.ID)
	} else {
		notice.SenderID = sid
		s.tel.ReportDebug("twilio sent", sid, notice.ID)
	}
	s.save(notice)
	return err
}
