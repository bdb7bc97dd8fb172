package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strings"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/htmlutil"
	"atomkit/lib/proxy"
	"atomkit/lib/sliceutil"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	gomail "github.com/emersion/go-message/mail"
	"go.opentelemetry.io/otel/codes"
	netproxy "golang.org/x/net/proxy"
)

var ErrNotConnected = errors.New("imap: not logged in")

const DefaultFolder = "INBOX"

const (
	report_reader_login = "reader.login"
	report_reader_fetch = "reader.fetch"
)

type ReaderOptions struct {
	Host string
	Port int
	Usr  string
	Pwd  string
	SSL  bool
	// Proxy is a socks5 proxy string accepted by proxy.Parse.
	Proxy     string
	TLSConfig *tls.Config
	// Debug mirrors the imap conversation.
	Debug     io.Writer
	Telemetry telemetry.API
}

type Mail struct {
	UID     uint32
	Date    time.Time
	From    string
	To      string
	Subject string
	Body    string
	// HTML is set when the body came from a text/html part.
	HTML bool
}

// Text returns the body as plain text with scripts and styles dropped.
func (m Mail) Text() string {
	if !m.HTML {
		return strings.TrimSpace(m.Body)
	}
	doc, err := htmlutil.ParseString(m.Body)
	if err != nil {
		return strings.TrimSpace(m.Body)
	}
	htmlutil.RemoveChild(doc.Selection, "script, style, head")
	return htmlutil.CleanText(doc.Text())
}

// Links returns the anchors of an html body, plain bodies have none.
func (m Mail) Links(ctx context.Context) []htmlutil.Anchor {
	if !m.HTML {
		return nil
	}
	doc, err := htmlutil.ParseString(m.Body)
	if err != nil {
		return nil
	}
	return htmlutil.GetAnchors(ctx, doc.Find("a[href]"), nil)
}

// Criteria narrows a search, empty fields match everything.
type Criteria struct {
	From    string
	To      string
	Subject string
	Since   time.Time
	Text    []string
}

func (c Criteria) imap() *imap.SearchCriteria {
	criteria := imap.NewSearchCriteria()
	if c.From != "" {
		criteria.Header.Add("From", c.From)
	}
	if c.To != "" {
		criteria.Header.Add("To", c.To)
	}
	if c.Subject != "" {
		criteria.Header.Add("Subject", c.Subject)
	}
	if !c.Since.IsZero() {
		criteria.Since = c.Since
	}
	criteria.Text = c.Text
	return criteria
}

// Reader reads mail from an imap server.
type Reader struct {
	opts   ReaderOptions
	dialer netproxy.Dialer
	client *client.Client
	tel    telemetry.API
}

func NewReader(opts ReaderOptions) (*Reader, error) {
	if opts.TLSConfig == nil {
		opts.TLSConfig = &tls.Config{ServerName: opts.Host}
	}

	var dialer netproxy.Dialer
	if opts.Proxy != "" {
		p, err := proxy.Parse(opts.Proxy)
		if err != nil {
			return nil, err
		}
		if p.Type() != proxy.TypeSocks5 {
			return nil, fmt.Errorf("imap: only socks5 proxies are supported, got %s", p.Scheme)
		}
		var auth *netproxy.Auth
		if p.HasAuth() {
			auth = &netproxy.Auth{User: p.Usr, Password: p.Pwd}
		}
		dialer, err = netproxy.SOCKS5("tcp", p.Host(), auth, netproxy.Direct)
		if err != nil {
			return nil, err
		}
	}

	return &Reader{
		opts:   opts,
		dialer: dialer,
		tel:    telemetry.NewScopedAPI("mail", opts.Telemetry),
	}, nil
}

func (r *Reader) dial() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", r.opts.Host, r.opts.Port)
	switch {
	case r.dialer != nil && r.opts.SSL:
		return client.DialWithDialerTLS(r.dialer, addr, r.opts.TLSConfig)
	case r.dialer != nil:
		return client.DialWithDialer(r.dialer, addr)
	case r.opts.SSL:
		return client.DialTLS(addr, r.opts.TLSConfig)
	}
	return client.Dial(addr)
}

// Login connects and authenticates, an existing connection is logged out
// first.
func (r *Reader) Login(ctx context.Context) error {
	_, span := tracer.Start(ctx, "reader:Login")
	defer span.End()

	if r.client != nil {
		r.Logout()
	}
	err := ctx.Err()
	if err != nil {
		return err
	}

	c, err := r.dial()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		r.tel.ReportBroken(report_reader_login, err, r.opts.Host)
		return fmt.Errorf("login: %w", err)
	}
	if r.opts.Debug != nil {
		c.SetDebug(r.opts.Debug)
	}
	err = c.Login(r.opts.Usr, r.opts.Pwd)
	if err != nil {
		c.Logout()
		span.SetStatus(codes.Error, err.Error())
		r.tel.ReportBroken(report_reader_login, err, r.opts.Host)
		return fmt.Errorf("login: %w", err)
	}
	r.client = c
	return nil
}

func (r *Reader) Logout() error {
	if r.client == nil {
		return nil
	}
	err := r.client.Logout()
	r.client = nil
	return err
}

// Select opens folder, INBOX when empty.
func (r *Reader) Select(folder string) error {
	if r.client == nil {
		return ErrNotConnected
	}
	if folder == "" {
		folder = DefaultFolder
	}
	_, err := r.client.Select(folder, true)
	if err != nil {
		return fmt.Errorf("select %s: %w", folder, err)
	}
	return nil
}

// Search returns the uids of the messages in the selected folder matching
// criteria, oldest first.
func (r *Reader) Search(criteria Criteria) ([]uint32, error) {
	if r.client == nil {
		return nil, ErrNotConnected
	}
	uids, err := r.client.UidSearch(criteria.imap())
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	slices.Sort(uids)
	return uids, nil
}

// Fetch downloads and parses the message with uid.
func (r *Reader) Fetch(uid uint32) (Mail, error) {
	if r.client == nil {
		return Mail{}, ErrNotConnected
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- r.client.UidFetch(seqset, items, messages)
	}()

	var msg *imap.Message
	for m := range messages {
		msg = m
	}
	err := <-done
	if err != nil {
		return Mail{}, fmt.Errorf("fetch %d: %w", uid, err)
	}
	if msg == nil {
		return Mail{}, fmt.Errorf("fetch %d: no such message", uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return Mail{}, fmt.Errorf("fetch %d: server returned no body", uid)
	}
	return ParseMail(uid, body)
}

// ParseMail reads an rfc 5322 message, the body is the first text part
// decoded to utf-8, plain text preferred over html.
func ParseMail(uid uint32, raw io.Reader) (Mail, error) {
	reader, err := gomail.CreateReader(raw)
	if err != nil && !message.IsUnknownCharset(err) {
		return Mail{}, fmt.Errorf("parse mail: %w", err)
	}
	defer reader.Close()

	mail := Mail{UID: uid}
	mail.Date, _ = reader.Header.Date()
	mail.Subject, _ = reader.Header.Subject()
	from, _ := reader.Header.AddressList("From")
	if len(from) > 0 {
		mail.From = from[0].Address
	}
	to, _ := reader.Header.AddressList("To")
	if len(to) > 0 {
		mail.To = to[0].Address
	}

	html := ""
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return mail, fmt.Errorf("parse mail: %w", err)
		}
		header, ok := part.Header.(*gomail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		if contentType != "text/plain" && contentType != "text/html" && contentType != "" {
			continue
		}
		data, err := io.ReadAll(part.Body)
		if err != nil {
			return mail, fmt.Errorf("parse mail: %w", err)
		}
		if contentType == "text/html" {
			if html == "" {
				html = string(data)
			}
			continue
		}
		mail.Body = string(data)
		return mail, nil
	}
	mail.Body = html
	mail.HTML = html != ""
	return mail, nil
}

// Filter keeps the mails sent at or after since.
func Filter(mails []Mail, since time.Time) []Mail {
	var out []Mail
	for _, mail := range mails {
		if !since.IsZero() && mail.Date.Before(since) {
			continue
		}
		out = append(out, mail)
	}
	return out
}

// Lookup returns the distinct matches of pattern in the bodies of mails in
// order of appearance. With a capture group only the first group is
// returned.
func Lookup(mails []Mail, pattern *regexp.Regexp) []string {
	var out []string
	for _, mail := range mails {
		for _, match := range pattern.FindAllStringSubmatch(mail.Body, -1) {
			value := match[0]
			if len(match) > 1 {
				value = match[1]
			}
			out = append(out, value)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return sliceutil.Dedup(out)
}

// Collect fetches the mails of folder matching criteria, newest first.
// Messages that fail to parse are reported and skipped.
func (r *Reader) Collect(ctx context.Context, folder string, criteria Criteria) ([]Mail, error) {
	ctx, span := tracer.Start(ctx, "reader:Collect")
	defer span.End()

	err := r.Select(folder)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	uids, err := r.Search(criteria)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var mails []Mail
	for i := len(uids) - 1; i >= 0; i-- {
		err := ctx.Err()
		if err != nil {
			return mails, err
		}
		mail, err := r.Fetch(uids[i])
		if err != nil {
			r.tel.ReportWarning(report_reader_fetch, err, uids[i])
			continue
		}
		mails = append(mails, mail)
	}
	return mails, nil
}
