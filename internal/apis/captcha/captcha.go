package captcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"
	"atomkit/lib/timer"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/apis/captcha")

var ErrUnsolvable = errors.New("ERROR_CAPTCHA_UNSOLVABLE")
var ErrNotSolved = errors.New("captcha was not solved in time")

const (
	DefaultBaseURL      = "http://2captcha.com"
	DefaultPollInterval = time.Second * 10
	DefaultPollCount    = 12
	DefaultRetry        = 3
)

const (
	report_client_balance = "client.balance"
	report_client_solve   = "client.solve"
)

type Options struct {
	Key          string
	BaseURL      string
	PollInterval time.Duration
	PollCount    int
	Retry        int
	Telemetry    telemetry.API
	Debug        httpclient.DebugOutput
}

// Client talks to the 2captcha.com api.
type Client struct {
	key          string
	pollInterval time.Duration
	pollCount    int
	retry        int
	http         *resty.Client
	tel          telemetry.API
}

func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollCount <= 0 {
		opts.PollCount = DefaultPollCount
	}
	if opts.Retry <= 0 {
		opts.Retry = DefaultRetry
	}
	tel := telemetry.NewScopedAPI("captcha", opts.Telemetry)

	client, err := httpclient.New(httpclient.Options{
		BaseURL:    opts.BaseURL,
		TracerName: "atomkit/apis/captcha/http",
		Telemetry:  tel,
		Debug:      opts.Debug,
	})
	if err != nil {
		return nil, err
	}
	return &Client{
		key:          opts.Key,
		pollInterval: opts.PollInterval,
		pollCount:    opts.PollCount,
		retry:        opts.Retry,
		http:         client,
		tel:          tel,
	}, nil
}

type balanceResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// Balance returns the account balance, -1 when it cannot be read.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	ctx, span := tracer.Start(ctx, "client:Balance")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":    c.key,
			"action": "getbalance",
			"json":   "1",
		}).
		Get("/res.php")
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch balance")
		c.tel.ReportBroken(report_client_balance, err)
		return -1, fmt.Errorf("balance: %w", err)
	}

	var body balanceResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode balance")
		return -1, fmt.Errorf("balance: %w", err)
	}
	if body.Status != 1 {
		span.SetStatus(codes.Error, "balance request rejected")
		return -1, fmt.Errorf("balance: %s", body.Request)
	}
	balance, err := strconv.ParseFloat(body.Request, 64)
	if err != nil {
		return -1, fmt.Errorf("balance: %w", err)
	}
	return balance, nil
}

// SolveRecaptcha returns the g-recaptcha-response token for a google
// recaptcha site key on pageURL.
func (c *Client) SolveRecaptcha(ctx context.Context, googleKey, pageURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:SolveRecaptcha")
	defer span.End()

	answer, err := c.solve(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":       c.key,
				"method":    "userrecaptcha",
				"googlekey": googleKey,
				"pageurl":   pageURL,
			}).
			Get("/in.php")
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("solve recaptcha: %w", err)
	}
	return answer, nil
}

// SolveNormal returns the text of an image captcha.
func (c *Client) SolveNormal(ctx context.Context, image []byte) (string, error) {
	ctx, span := tracer.Start(ctx, "client:SolveNormal")
	defer span.End()

	body := base64.StdEncoding.EncodeToString(image)
	answer, err := c.solve(ctx, func(ctx context.Context) (*resty.Response, error) {
		return c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"key":    c.key,
				"method": "base64",
				"body":   body,
			}).
			Post("/in.php")
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("solve normal: %w", err)
	}
	return answer, nil
}

func (c *Client) solve(ctx context.Context, submit func(ctx context.Context) (*resty.Response, error)) (string, error) {
	var lastErr error
	for i := 0; i < c.retry; i++ {
		answer, err := c.attempt(ctx, submit)
		if err == nil {
			return answer, nil
		}
		if errors.Is(err, ErrUnsolvable) || ctx.Err() != nil {
			return "", err
		}
		c.tel.ReportWarning(report_client_solve, err, i)
		lastErr = err
	}
	return "", lastErr
}

func (c *Client) attempt(ctx context.Context, submit func(ctx context.Context) (*resty.Response, error)) (string, error) {
	res, err := submit(ctx)
	if err != nil {
		return "", err
	}
	id, ok := strings.CutPrefix(res.String(), "OK|")
	if !ok {
		return "", fmt.Errorf("submit rejected: %s", res.String())
	}

	for j := 0; j < c.pollCount; j++ {
		answer, err := c.result(ctx, id)
		if err != nil {
			return "", err
		}
		switch {
		case strings.HasPrefix(answer, "OK|"):
			return strings.TrimPrefix(answer, "OK|"), nil
		case strings.Contains(answer, "ERROR_CAPTCHA_UNSOLVABLE"):
			c.tel.ReportWarning(report_client_solve, ErrUnsolvable, id)
			return "", ErrUnsolvable
		case strings.Contains(answer, "CAPCHA_NOT_READY"):
			c.tel.ReportDebug("captcha not ready", "id", id, "poll", j)
			err = timer.Sleep(ctx, c.pollInterval)
			if err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("unexpected answer: %s", answer)
		}
	}
	return "", ErrNotSolved
}

func (c *Client) result(ctx context.Context, id string) (string, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":    c.key,
			"action": "get",
			"id":     id,
		}).
		Get("/res.php")
	if err != nil {
		return "", err
	}
	return res.String(), nil
}
