package mail

import (
	"context"
	"regexp"
	"time"

	"atomkit/lib/timer"
)

const (
	DefaultSearchRetry    = 6
	DefaultSearchInterval = time.Minute
)

const report_postfix_search = "postfix.search"

// PostfixReader searches a postfix mailbox for mails that may not have
// arrived yet.
type PostfixReader struct {
	*Reader
	Folders []string
}

func NewPostfixReader(opts ReaderOptions) (*PostfixReader, error) {
	reader, err := NewReader(opts)
	if err != nil {
		return nil, err
	}
	return &PostfixReader{Reader: reader, Folders: []string{DefaultFolder}}, nil
}

type SearchOptions struct {
	From    string
	To      string
	Subject string
	Pattern *regexp.Regexp
	// Since defaults to one day ago.
	Since    time.Time
	Retry    int
	Interval time.Duration
}

// Search logs in, looks up the matches of Pattern in the mails matching
// the filters and retries every Interval until something matches.
func (p *PostfixReader) Search(ctx context.Context, opts SearchOptions) ([]string, error) {
	ctx, span := tracer.Start(ctx, "postfix:Search")
	defer span.End()

	if opts.Retry <= 0 {
		opts.Retry = DefaultSearchRetry
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultSearchInterval
	}
	if opts.Since.IsZero() {
		opts.Since = time.Now().AddDate(0, 0, -1)
	}
	criteria := Criteria{
		From:    opts.From,
		To:      opts.To,
		Subject: opts.Subject,
		Since:   opts.Since,
	}

	var lastErr error
	for attempt := range opts.Retry {
		if attempt > 0 {
			err := timer.Sleep(ctx, opts.Interval)
			if err != nil {
				return nil, err
			}
		}

		results, err := p.lookup(ctx, criteria, opts)
		if err != nil {
			lastErr = err
			p.tel.ReportWarning(report_postfix_search, err, attempt)
			continue
		}
		if len(results) > 0 {
			return results, nil
		}
	}
	return nil, lastErr
}

func (p *PostfixReader) lookup(ctx context.Context, criteria Criteria, opts SearchOptions) ([]string, error) {
	err := p.Login(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Logout()

	var mails []Mail
	for _, folder := range p.Folders {
		found, err := p.Collect(ctx, folder, criteria)
		if err != nil {
			return nil, err
		}
		mails = append(mails, found...)
	}
	mails = Filter(mails, opts.Since)
	if opts.Pattern == nil {
		return nil, nil
	}
	return Lookup(mails, opts.Pattern), nil
}
