package domdetailer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/apis/domdetailer")

const DefaultBaseURL = "http://domdetailer.com/api"

const (
	report_client_balance = "client.balance"
	report_client_check   = "client.check"
)

// Mode picks which host the majestic stats are computed for.
type Mode string

const (
	// http://domain.com
	ModeURL Mode = "url"
	// domain.com
	ModeRoot Mode = "root"
	// www.domain.com
	ModeSubdomain Mode = "subdomain"
	// the domain exactly as sent
	ModeAsIs Mode = "asis"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeURL, ModeRoot, ModeSubdomain, ModeAsIs:
		return true
	}
	return false
}

type Options struct {
	App       string
	Key       string
	BaseURL   string
	Telemetry telemetry.API
	Debug     httpclient.DebugOutput
}

type Client struct {
	app  string
	key  string
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	tel := telemetry.NewScopedAPI("domdetailer", opts.Telemetry)
	client, err := httpclient.New(httpclient.Options{
		BaseURL:    opts.BaseURL,
		TracerName: "atomkit/apis/domdetailer/http",
		Telemetry:  tel,
		Debug:      opts.Debug,
	})
	if err != nil {
		return nil, err
	}
	return &Client{app: opts.App, key: opts.Key, http: client, tel: tel}, nil
}

func (c *Client) params() map[string]string {
	return map[string]string{
		"apikey": c.key,
		"app":    c.app,
	}
}

// Balance returns the units left on the account.
func (c *Client) Balance(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "client:Balance")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(c.params()).
		Post("/checkBalance.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch balance")
		c.tel.ReportBroken(report_client_balance, err)
		return 0, fmt.Errorf("balance: %w", err)
	}
	if !strings.Contains(res.String(), "UnitsLeft") {
		span.SetStatus(codes.Error, "unexpected balance response")
		return 0, fmt.Errorf("balance: unexpected response '%s'", res.String())
	}

	var data []any
	err = json.Unmarshal(res.Body(), &data)
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("balance: unexpected response '%s'", res.String())
	}
	units, ok := number(data[1])
	if !ok {
		return 0, fmt.Errorf("balance: units is not a number: %v", data[1])
	}
	return int(units), nil
}

// Check returns the moz and majestic metrics of domain.
func (c *Client) Check(ctx context.Context, domain string, mode Mode) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "client:Check")
	defer span.End()

	if mode == "" {
		mode = ModeRoot
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("check: invalid mode '%s'", mode)
	}

	params := c.params()
	params["domain"] = domain
	params["majesticChoice"] = string(mode)
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetFormData(params).
		Post("/checkDomain.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to check domain")
		c.tel.ReportBroken(report_client_check, err, domain)
		return nil, fmt.Errorf("check: %w", err)
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, res.Status())
		return nil, fmt.Errorf("check: %s", res.Status())
	}

	var data map[string]any
	err = json.Unmarshal(res.Body(), &data)
	if err != nil || data == nil {
		span.SetStatus(codes.Error, "failed to decode metrics")
		c.tel.ReportWarning(report_client_check, fmt.Errorf("response is not an object"), res.String())
		return nil, fmt.Errorf("check: response is not an object")
	}
	return data, nil
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}
