package proxy

import (
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidFormat = fmt.Errorf("bad proxy format")

type Type int

const (
	TypeSocks4 Type = 1
	TypeSocks5 Type = 2
	TypeHttp   Type = 3
)

// Proxy describes an http or socks proxy parsed from
// `[scheme://][usr:pwd@]addr:port`.
type Proxy struct {
	Scheme string
	Addr   string
	Port   int
	Usr    string
	Pwd    string
	// resolve hostnames on the proxy side (socks)
	Rdns bool
}

var schemeTypes = map[string]Type{
	"http":   TypeHttp,
	"https":  TypeHttp,
	"socks4": TypeSocks4,
	"socks5": TypeSocks5,
}

var proxyRegex = regexp.MustCompile(`^(?:([a-z0-9]+)://)?(?:([^:@/\s]*):([^@/\s]*)@)?([^:@/\s]+):(\d{1,5})/?$`)

func wrapParse(raw string) error {
	return fmt.Errorf("%w: '%s'", ErrInvalidFormat, raw)
}

func Parse(raw string) (Proxy, error) {
	matches := proxyRegex.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return Proxy{}, wrapParse(raw)
	}

	scheme := strings.ToLower(matches[1])
	if scheme == "" {
		scheme = "http"
	}
	if _, ok := schemeTypes[scheme]; !ok {
		return Proxy{}, wrapParse(raw)
	}

	usr, pwd := matches[2], matches[3]
	if (usr == "") != (pwd == "") {
		return Proxy{}, fmt.Errorf("%w: proxy auth must have both user and password", ErrInvalidFormat)
	}

	addr := matches[4]
	if net.ParseIP(addr) == nil {
		return Proxy{}, wrapParse(raw)
	}

	port, err := strconv.Atoi(matches[5])
	if err != nil || port < 1 || port > 65535 {
		return Proxy{}, wrapParse(raw)
	}

	return Proxy{
		Scheme: scheme,
		Addr:   addr,
		Port:   port,
		Usr:    usr,
		Pwd:    pwd,
		Rdns:   true,
	}, nil
}

func MustParse(raw string) Proxy {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Proxy) Type() Type {
	return schemeTypes[p.Scheme]
}

func (p Proxy) HasAuth() bool {
	return p.Usr != "" && p.Pwd != ""
}

// Host returns `addr:port`.
func (p Proxy) Host() string {
	return net.JoinHostPort(p.Addr, strconv.Itoa(p.Port))
}

func (p Proxy) URL() *url.URL {
	u := &url.URL{
		Scheme: p.Scheme,
		Host:   p.Host(),
	}
	if p.HasAuth() {
		u.User = url.UserPassword(p.Usr, p.Pwd)
	}
	return u
}

func (p Proxy) String() string {
	return p.URL().String()
}

// Authorization returns the value of the Proxy-Authorization header, it is
// empty when the proxy has no credentials.
func (p Proxy) Authorization() string {
	if !p.HasAuth() {
		return ""
	}
	token := base64.StdEncoding.EncodeToString([]byte(p.Usr + ":" + p.Pwd))
	return "Basic " + token
}

// Header returns the headers that authenticate against the proxy.
func (p Proxy) Header() http.Header {
	header := http.Header{}
	if auth := p.Authorization(); auth != "" {
		header.Set("Proxy-Authorization", auth)
	}
	return header
}
