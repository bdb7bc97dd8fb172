package httpclient

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/proxy"
	otel "atomkit/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	DefaultTimeout   = time.Second * 30
)

type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Proxy is a proxy string accepted by proxy.Parse.
	Proxy string
	// ProxyURL is handed to the transport as is, it is used for gateway
	// proxies addressed by hostname.
	ProxyURL string
	// RedirectDomain restricts redirects to the given hostnames.
	RedirectDomain []string
	// BypassCloudflare wraps the transport so requests pass cloudflare's
	// browser checks.
	BypassCloudflare bool
	// TracerName defaults to "atomkit/http".
	TracerName string
	Telemetry  telemetry.API
	Debug      DebugOutput
}

// New returns a resty client with a cookie jar, a user agent and a
// timeout set, every request is traced and reported.
func New(opts Options) (*resty.Client, error) {
	client := resty.New()
	if opts.BaseURL != "" {
		client.SetBaseURL(opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)

	if opts.Proxy != "" {
		p, err := proxy.Parse(opts.Proxy)
		if err != nil {
			return nil, err
		}
		if p.Type() == proxy.TypeSocks4 {
			return nil, fmt.Errorf("http client: socks4 proxies are not supported")
		}
		client.SetProxy(p.String())
	} else if opts.ProxyURL != "" {
		client.SetProxy(opts.ProxyURL)
	}

	if opts.BypassCloudflare {
		transport := client.GetClient().Transport
		if transport == nil {
			transport = http.DefaultTransport
		}
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(transport)
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	client.SetHeader("user-agent", ua)

	if len(opts.RedirectDomain) > 0 {
		client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(opts.RedirectDomain...))
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client.SetTimeout(timeout)

	tracerName := opts.TracerName
	if tracerName == "" {
		tracerName = "atomkit/http"
	}
	otel.InstrumentResty(client, tracerName)

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.SlogAPI{}
	}
	telemetry.InstrumentResty(client, tel)

	if opts.Debug != nil {
		InstrumentDebug(client, opts.Debug)
	}

	return client, nil
}

// DefaultHeaders returns the headers a desktop browser sends with a
// page request.
func DefaultHeaders(ua string) map[string]string {
	if ua == "" {
		ua = DefaultUserAgent
	}
	return map[string]string{
		"User-Agent":      ua,
		"Accept":          "*/*",
		"Accept-Encoding": "gzip, deflate, br",
		"Accept-Language": "en-US,en;q=0.5",
	}
}

// MergeHeaders returns a copy of base with extra applied over it, an empty
// value in extra removes the key.
func MergeHeaders(base, extra map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
