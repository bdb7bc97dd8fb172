package pinger

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"atomkit/internal/telemetry"

	"github.com/stretchr/testify/require"
)

const replyOK = `<?xml version="1.0"?><methodResponse><params><param><value><struct>` +
	`<member><name>flerror</name><value><boolean>0</boolean></value></member>` +
	`<member><name>message</name><value><string>Thanks for the ping.</string></value></member>` +
	`</struct></value></param></params></methodResponse>`

const replyError = `<?xml version="1.0"?><methodResponse><params><param><value><struct>` +
	`<member><name>flerror</name><value><boolean>1</boolean></value></member>` +
	`<member><name>message</name><value><string>rejected</string></value></member>` +
	`</struct></value></param></params></methodResponse>`

const replyFault = `<?xml version="1.0"?><methodResponse><fault><value><struct>` +
	`<member><name>faultCode</name><value><int>-32601</int></value></member>` +
	`<member><name>faultString</name><value><string>method not found</string></value></member>` +
	`</struct></value></fault></methodResponse>`

// pingServer answers extendedPing with extended and ping with basic.
func pingServer(t *testing.T, extended, basic string) (*httptest.Server, *atomic.Int32) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "text/xml")
		switch {
		case strings.Contains(string(body), "<methodName>weblogUpdates.extendedPing</methodName>"):
			fmt.Fprint(w, extended)
		case strings.Contains(string(body), "<methodName>weblogUpdates.ping</methodName>"):
			fmt.Fprint(w, basic)
		default:
			fmt.Fprint(w, replyFault)
		}
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"http://rpc.pingomatic.com/", "http://rpc.pingomatic.com"},
		{"https://rpc.twingly.com", "https://rpc.twingly.com"},
		{"http://www.blogdigger.com/RPC2", "http://www.blogdigger.com/RPC2"},
		{"ftp://example.com/", ""},
		{"not a url", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, Normalize(c.in), c.in)
	}

	require.Equal(t,
		[]string{"http://a.com", "https://b.co.uk/RPC2"},
		normalizeAll([]string{"https://b.co.uk/RPC2", "http://a.com/", "http://a.com", "mailto:x@y.z"}),
	)
}

func TestGeo(t *testing.T) {
	require.Equal(t, "com", Geo("http://rpc.pingomatic.com"))
	require.Equal(t, "co.uk", Geo("https://ping.example.co.uk/RPC2"))
}

func TestPing(t *testing.T) {
	ctx := context.Background()
	pinger, err := New(Options{Telemetry: &telemetry.Recorder{}})
	require.NoError(t, err)

	extended, calls := pingServer(t, replyOK, replyFault)
	ok, response := pinger.Ping(ctx, extended.URL, "site", "http://site.com", "http://site.com/post")
	require.True(t, ok)
	require.Contains(t, response, "Thanks for the ping.")
	require.EqualValues(t, 1, calls.Load())

	fallback, calls := pingServer(t, replyFault, replyOK)
	ok, _ = pinger.Ping(ctx, fallback.URL, "site", "http://site.com", "")
	require.True(t, ok)
	require.EqualValues(t, 2, calls.Load())

	rejected, _ := pingServer(t, replyError, replyError)
	ok, response = pinger.Ping(ctx, rejected.URL, "site", "http://site.com", "")
	require.False(t, ok)
	require.Contains(t, response, "rejected")

	faulty, _ := pingServer(t, replyFault, replyFault)
	ok, response = pinger.Ping(ctx, faulty.URL, "site", "http://site.com", "")
	require.False(t, ok)
	require.Contains(t, response, "method not found")
}

func TestPingThroughProxy(t *testing.T) {
	var auth, host, ua atomic.Value
	proxyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Proxy-Authorization"))
		host.Store(r.Host)
		ua.Store(r.UserAgent())
		fmt.Fprint(w, replyOK)
	}))
	defer proxyServer.Close()

	pinger, err := New(Options{
		UserAgents: []string{"pinger-test"},
		Proxies:    []string{"http://usr:pwd@" + strings.TrimPrefix(proxyServer.URL, "http://")},
		Telemetry:  &telemetry.Recorder{},
	})
	require.NoError(t, err)

	ok, _ := pinger.Ping(context.Background(), "http://rpc.example.com/RPC2", "site", "http://site.com", "")
	require.True(t, ok)
	require.Equal(t, "Basic dXNyOnB3ZA==", auth.Load())
	require.Equal(t, "rpc.example.com", host.Load())
	require.Equal(t, "pinger-test", ua.Load())
}

func TestCheckServicesAndPinging(t *testing.T) {
	ctx := context.Background()
	alive, _ := pingServer(t, replyOK, replyOK)
	dead, _ := pingServer(t, replyError, replyError)

	file := filepath.Join(t.TempDir(), "services.json")
	rec := &telemetry.Recorder{}
	pinger, err := New(Options{File: file, Telemetry: rec})
	require.NoError(t, err)

	ok, ratio := pinger.Pinging(ctx, "site", "http://site.com", "", false)
	require.False(t, ok)
	require.Zero(t, ratio)
	require.Len(t, rec.Reports("warning"), 1)

	checked, good, err := pinger.CheckServices(ctx, []string{alive.URL + "/", dead.URL, "ftp://nowhere"}, false, false)
	require.NoError(t, err)
	require.Equal(t, 2, checked)
	require.Equal(t, 1, good)

	reloaded, err := New(Options{File: file})
	require.NoError(t, err)
	services := reloaded.Services()
	require.Len(t, services, 2)
	for _, service := range services {
		require.Equal(t, service.URL == alive.URL, service.Alive, service.URL)
		require.NotZero(t, service.Timestamp)
	}

	ok, ratio = pinger.Pinging(ctx, "site", "http://site.com", "", false)
	require.True(t, ok)
	require.Equal(t, 1.0, ratio)

	_, _, err = pinger.CheckServices(ctx, nil, true, true)
	require.NoError(t, err)
	reloaded, err = New(Options{File: file})
	require.NoError(t, err)
	require.Len(t, reloaded.Services(), 1)
	require.Equal(t, alive.URL, reloaded.Services()[0].URL)
}

func TestPingingStrict(t *testing.T) {
	ctx := context.Background()
	alive, _ := pingServer(t, replyOK, replyOK)
	flaky, _ := pingServer(t, replyError, replyError)

	pinger, err := New(Options{Telemetry: &telemetry.Recorder{}})
	require.NoError(t, err)
	pinger.services[alive.URL] = &Service{URL: alive.URL, Alive: true}
	pinger.services[flaky.URL] = &Service{URL: flaky.URL, Alive: true}

	ok, ratio := pinger.Pinging(ctx, "site", "http://site.com", "", false)
	require.True(t, ok)
	require.Equal(t, 0.5, ratio)

	ok, _ = pinger.Pinging(ctx, "site", "http://site.com", "", true)
	require.False(t, ok)
}
