package smartproxy

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"regexp"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/chars"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/apis/smartproxy")

const (
	DefaultAPI         = "gate.smartproxy.com:7000"
	DefaultIfConfigURL = "https://ifconfig.co/json"
	DefaultTeohURL     = "https://ip.teoh.io/api/vpn/"
	DefaultIPHubURL    = "https://v2.api.iphub.info/guest/ip/"
	DefaultRetry       = 100
	DefaultHeartbeat   = time.Second * 30

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:77.0) Gecko/20100101 Firefox/77.0"
)

const (
	report_client_check     = "client.check"
	report_client_lookup    = "client.lookup"
	report_client_get_proxy = "client.get-proxy"
	report_heartbeat        = "heartbeat"
)

type Options struct {
	Usr      string
	Pwd      string
	CheckURL string
	// API is the gateway address, defaults to DefaultAPI
	API         string
	IfConfigURL string
	TeohURL     string
	IPHubURL    string
	Timeout     time.Duration
	Telemetry   telemetry.API
}

// Client builds smartproxy.com gateway proxies and checks the exit ip
// they give.
type Client struct {
	opts Options
	tel  telemetry.API
}

func NewClient(opts Options) *Client {
	if opts.API == "" {
		opts.API = DefaultAPI
	}
	if opts.IfConfigURL == "" {
		opts.IfConfigURL = DefaultIfConfigURL
	}
	if opts.TeohURL == "" {
		opts.TeohURL = DefaultTeohURL
	}
	if opts.IPHubURL == "" {
		opts.IPHubURL = DefaultIPHubURL
	}
	return &Client{
		opts: opts,
		tel:  telemetry.NewScopedAPI("smartproxy", opts.Telemetry),
	}
}

// RandomProxy returns a gateway proxy that rotates the exit ip on every
// request.
func (c *Client) RandomProxy(country string) string {
	return fmt.Sprintf("http://user-%s-country-%s:%s@%s", c.opts.Usr, country, c.opts.Pwd, c.opts.API)
}

// StickyProxy returns a gateway proxy that keeps its exit ip for a random
// session id, city is optional.
func (c *Client) StickyProxy(country, city string) string {
	prefix := fmt.Sprintf("user-%s-country-%s", c.opts.Usr, country)
	if city != "" {
		prefix = fmt.Sprintf("%s-city-%s", prefix, city)
	}
	session := chars.MustRandomString(6, chars.Lower)
	return fmt.Sprintf("http://%s-session-%s:%s@%s", prefix, session, c.opts.Pwd, c.opts.API)
}

func (c *Client) session(proxyURL string) (*resty.Client, error) {
	return httpclient.New(httpclient.Options{
		UserAgent:  userAgent,
		ProxyURL:   proxyURL,
		Timeout:    c.opts.Timeout,
		TracerName: "atomkit/apis/smartproxy/http",
		Telemetry:  c.tel,
	})
}

func (c *Client) get(ctx context.Context, proxyURL, url string) (*resty.Response, error) {
	client, err := c.session(proxyURL)
	if err != nil {
		return nil, err
	}
	res, err := client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, err
	}
	c.tel.ReportDebug("get", "status", res.StatusCode(), "length", len(res.Body()), "url", url)
	return res, nil
}

var ipv4 = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// Check requests the check url through proxyURL and returns the first
// ipv4 address in the response.
func (c *Client) Check(ctx context.Context, proxyURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:Check")
	defer span.End()

	res, err := c.get(ctx, proxyURL, c.opts.CheckURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to request check url")
		c.tel.ReportWarning(report_client_check, err)
		return "", fmt.Errorf("check proxy: %w", err)
	}
	addr := ipv4.FindString(res.String())
	if addr == "" {
		span.SetStatus(codes.Error, "no ip in response")
		return "", fmt.Errorf("check proxy: no ip address in response")
	}
	return addr, nil
}

func (c *Client) lookup(ctx context.Context, proxyURL, url string) (map[string]any, error) {
	res, err := c.get(ctx, proxyURL, url)
	if err != nil {
		c.tel.ReportWarning(report_client_lookup, err, url)
		return nil, err
	}
	var data map[string]any
	err = json.Unmarshal(res.Body(), &data)
	if err != nil {
		c.tel.ReportWarning(report_client_lookup, err, url)
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("response is not an object")
	}
	return data, nil
}

// IfConfig returns the ifconfig.co view of the exit ip: ip, country,
// time_zone, asn, city and so on.
func (c *Client) IfConfig(ctx context.Context, proxyURL string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "client:IfConfig")
	defer span.End()

	data, err := c.lookup(ctx, proxyURL, c.opts.IfConfigURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("ifconfig: %w", err)
	}
	return data, nil
}

// Teoh returns the ip.teoh.io risk data of addr.
func (c *Client) Teoh(ctx context.Context, proxyURL, addr string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "client:Teoh")
	defer span.End()

	if !Valid(addr) {
		return nil, fmt.Errorf("teoh: invalid ip address '%s'", addr)
	}
	data, err := c.lookup(ctx, proxyURL, c.opts.TeohURL+addr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("teoh: %w", err)
	}
	return data, nil
}

// IPHub returns the iphub.info data of addr, its `block` field is
// 0 for residential, 1 for hosting and 2 for mixed ips.
func (c *Client) IPHub(ctx context.Context, proxyURL, addr string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "client:IPHub")
	defer span.End()

	if !Valid(addr) {
		return nil, fmt.Errorf("iphub: invalid ip address '%s'", addr)
	}
	data, err := c.lookup(ctx, proxyURL, c.opts.IPHubURL+addr)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iphub: %w", err)
	}
	return data, nil
}

func Valid(addr string) bool {
	return net.ParseIP(addr) != nil
}

// GetProxy tries up to retry sticky proxies and returns the first whose
// exit ip iphub does not block.
func (c *Client) GetProxy(ctx context.Context, country string, retry int) (string, error) {
	ctx, span := tracer.Start(ctx, "client:GetProxy")
	defer span.End()

	if country == "" {
		country = "us"
	}
	if retry <= 0 {
		retry = DefaultRetry
	}

	for i := 0; i < retry; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		proxyURL := c.StickyProxy(country, "")
		addr, err := c.Check(ctx, proxyURL)
		if err != nil {
			continue
		}
		data, err := c.IPHub(ctx, proxyURL, addr)
		if err != nil {
			continue
		}
		block, ok := data["block"].(float64)
		if ok && (block == 0 || block == 2) {
			c.tel.ReportDebug("good proxy", "block", block, "addr", addr)
			return proxyURL, nil
		}
		c.tel.ReportDebug("bad proxy", "block", data["block"], "addr", addr)
	}

	span.SetStatus(codes.Error, "no usable proxy")
	c.tel.ReportWarning(report_client_get_proxy, fmt.Errorf("no usable proxy"), country, retry)
	return "", fmt.Errorf("get proxy: no usable proxy after %d tries", retry)
}
