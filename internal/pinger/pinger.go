package pinger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"slices"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"
	"atomkit/lib/proxy"

	"github.com/kolo/xmlrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("atomkit/pinger")

const DefaultTimeout = time.Second * 30

const (
	report_pinger_ping    = "pinger.ping"
	report_pinger_pinging = "pinger.pinging"
	report_pinger_check   = "pinger.check"
)

const (
	methodPing         = "weblogUpdates.ping"
	methodExtendedPing = "weblogUpdates.extendedPing"
)

// the site CheckService pings with
const (
	checkSite = "Github"
	checkHome = "https://github.com/"
	checkPost = "https://github.com/about"
)

var ErrNoAlive = errors.New("pinger: no alive service")

// Reply is the struct weblogUpdates methods respond with.
type Reply struct {
	FlError *bool  `xmlrpc:"flerror"`
	Message string `xmlrpc:"message"`
}

// OK is true only when the service explicitly reported no error.
func (r Reply) OK() bool {
	return r.FlError != nil && !*r.FlError
}

func (r Reply) String() string {
	flerror := "<nil>"
	if r.FlError != nil {
		flerror = fmt.Sprint(*r.FlError)
	}
	return fmt.Sprintf("{flerror: %s, message: %s}", flerror, r.Message)
}

type Options struct {
	// UserAgents and Proxies are picked at random for every request.
	UserAgents []string
	Proxies    []string
	// File is the json file services are loaded from and saved to.
	File      string
	Timeout   time.Duration
	Telemetry telemetry.API
}

type Pinger struct {
	opts     Options
	services map[string]*Service
	tel      telemetry.API
}

func New(opts Options) (*Pinger, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	services := map[string]*Service{}
	if opts.File != "" {
		var err error
		services, err = LoadServices(opts.File)
		if err != nil {
			return nil, err
		}
	}
	return &Pinger{
		opts:     opts,
		services: services,
		tel:      telemetry.NewScopedAPI("pinger", opts.Telemetry),
	}, nil
}

// Services returns a copy of the known services sorted by url.
func (p *Pinger) Services() []Service {
	out := make([]Service, 0, len(p.services))
	for _, service := range p.services {
		out = append(out, *service)
	}
	slices.SortFunc(out, func(a, b Service) int {
		if a.URL < b.URL {
			return -1
		}
		if a.URL > b.URL {
			return 1
		}
		return 0
	})
	return out
}

func (p *Pinger) userAgent() string {
	if len(p.opts.UserAgents) == 0 {
		return httpclient.DefaultUserAgent
	}
	return p.opts.UserAgents[rand.IntN(len(p.opts.UserAgents))]
}

func (p *Pinger) proxy() string {
	if len(p.opts.Proxies) == 0 {
		return ""
	}
	return p.opts.Proxies[rand.IntN(len(p.opts.Proxies))]
}

type roundTripper struct {
	ctx  context.Context
	ua   string
	base http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(rt.ctx)
	req.Header.Set("User-Agent", rt.ua)
	return rt.base.RoundTrip(req)
}

// transport tunnels through a random proxy when there are any, the proxy
// credentials are sent in Proxy-Authorization.
func (p *Pinger) transport(ctx context.Context) (http.RoundTripper, error) {
	base := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: p.opts.Timeout}).DialContext,
		TLSHandshakeTimeout:   p.opts.Timeout,
		ResponseHeaderTimeout: p.opts.Timeout,
		DisableKeepAlives:     true,
	}
	if raw := p.proxy(); raw != "" {
		px, err := proxy.Parse(raw)
		if err != nil {
			return nil, err
		}
		base.Proxy = http.ProxyURL(px.URL())
		base.ProxyConnectHeader = px.Header()
	}
	return roundTripper{ctx: ctx, ua: p.userAgent(), base: base}, nil
}

func call(ctx context.Context, client *xmlrpc.Client, method string, args []any) (Reply, error) {
	var reply Reply
	pending := client.Go(method, args, &reply, nil)
	select {
	case <-pending.Done:
		return reply, pending.Error
	case <-ctx.Done():
		return reply, ctx.Err()
	}
}

// Ping sends weblogUpdates.extendedPing to the service and falls back to
// weblogUpdates.ping when that fails. It returns whether the service
// accepted the ping and its last response.
func (p *Pinger) Ping(ctx context.Context, serviceURL, site, home, post string) (bool, string) {
	ctx, span := tracer.Start(ctx, "pinger:Ping")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	transport, err := p.transport(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err.Error()
	}
	client, err := xmlrpc.NewClient(serviceURL, transport)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return false, err.Error()
	}
	defer client.Close()

	reply, err := call(ctx, client, methodExtendedPing, []any{site, home, post})
	if err == nil && reply.OK() {
		return true, reply.String()
	}
	if err != nil {
		p.tel.ReportDebug("extended ping failed", serviceURL, err)
	}

	reply, err = call(ctx, client, methodPing, []any{site, home})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		p.tel.ReportWarning(report_pinger_ping, err, serviceURL)
		return false, err.Error()
	}
	if !reply.OK() {
		span.SetStatus(codes.Error, reply.Message)
		p.tel.ReportWarning(report_pinger_ping, reply.String(), serviceURL)
		return false, reply.String()
	}
	return true, reply.String()
}

// Pinging pings every alive service and returns whether it succeeded with
// the ratio of services that accepted the ping. Without strict one
// accepting service is a success, with strict all of them must accept.
func (p *Pinger) Pinging(ctx context.Context, site, home, post string, strict bool) (bool, float64) {
	ctx, span := tracer.Start(ctx, "pinger:Pinging")
	defer span.End()

	alive, good := 0, 0
	for _, service := range p.Services() {
		if !service.Alive {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		alive++
		ok, _ := p.Ping(ctx, service.URL, site, home, post)
		if ok {
			good++
		}
	}
	if alive == 0 {
		span.SetStatus(codes.Error, ErrNoAlive.Error())
		p.tel.ReportWarning(report_pinger_pinging, ErrNoAlive)
		return false, 0
	}

	success := good > 0
	if strict {
		success = good == alive
	}
	return success, float64(good) / float64(alive)
}

func (p *Pinger) CheckService(ctx context.Context, serviceURL string) (bool, string) {
	return p.Ping(ctx, serviceURL, checkSite, checkHome, checkPost)
}

// CheckServices checks every url, including the known services when
// includingExist is set, and saves the results to the services file. With
// saveOnlySuccess dead services are dropped. It returns the number of
// urls checked and how many of them are alive.
func (p *Pinger) CheckServices(ctx context.Context, urls []string, includingExist, saveOnlySuccess bool) (int, int, error) {
	ctx, span := tracer.Start(ctx, "pinger:CheckServices")
	defer span.End()

	candidates := slices.Clone(urls)
	if includingExist {
		for u := range p.services {
			candidates = append(candidates, u)
		}
	}
	candidates = normalizeAll(candidates)
	p.tel.ReportDebug("checking services", len(candidates))

	good := 0
	for i, u := range candidates {
		err := ctx.Err()
		if err != nil {
			return i, good, err
		}

		service, ok := p.services[u]
		if !ok {
			service = &Service{
				URL:       u,
				Geo:       Geo(u),
				Timestamp: time.Now().Unix(),
			}
		}
		alive, response := p.CheckService(ctx, u)
		if alive {
			good++
		}
		p.tel.ReportDebug("service checked", i, alive, u, response)

		service.Alive = alive
		service.Err = response
		p.services[u] = service
	}

	if saveOnlySuccess {
		for u, service := range p.services {
			if !service.Alive {
				delete(p.services, u)
			}
		}
	}

	if p.opts.File != "" {
		err := SaveServices(p.opts.File, p.services)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			p.tel.ReportBroken(report_pinger_check, err, p.opts.File)
			return len(candidates), good, err
		}
	}
	return len(candidates), good, nil
}
