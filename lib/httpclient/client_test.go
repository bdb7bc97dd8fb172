package httpclient

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"atomkit/internal/telemetry"
	"atomkit/lib/proxy"

	"github.com/stretchr/testify/require"
)

type memoryOutput struct {
	mutex    sync.Mutex
	messages map[string]string
}

func (m *memoryOutput) Write(id string, contents string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.messages[id] = contents
}

func TestClientDefaults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
		fmt.Fprint(w, r.Header.Get("user-agent"))
	}))
	defer server.Close()

	recorder := &telemetry.Recorder{}
	output := &memoryOutput{messages: map[string]string{}}
	client, err := New(Options{
		BaseURL:   server.URL,
		Telemetry: recorder,
		Debug:     output,
	})
	require.NoError(t, err)

	res, err := client.R().SetBody("ping").Post("/hello")
	require.NoError(t, err)
	require.Equal(t, DefaultUserAgent, res.String())
	require.Equal(t, DefaultTimeout, client.GetClient().Timeout)

	require.Len(t, recorder.Reports("debug"), 2)
	require.Contains(t, output.messages, "1")
	dump := output.messages["1"]
	require.True(t, strings.HasPrefix(dump, "---- REQUEST ----\n\nPOST "+server.URL+"/hello"), dump)
	require.Contains(t, dump, "ping")
	require.Contains(t, dump, "---- RESPONSE ----\n\n200 ")

	file := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, SaveCookies(client, server.URL, file))

	other, err := New(Options{UserAgent: "custom"})
	require.NoError(t, err)
	require.NoError(t, LoadCookies(other, server.URL, file))
	cookies := other.GetClient().Jar.Cookies(mustURL(t, server.URL))
	require.Len(t, cookies, 1)
	require.Equal(t, "abc", cookies[0].Value)

	require.NoError(t, LoadCookies(other, server.URL, filepath.Join(t.TempDir(), "missing.json")))
}

func TestClientProxy(t *testing.T) {
	_, err := New(Options{Proxy: "garbage"})
	require.ErrorIs(t, err, proxy.ErrInvalidFormat)

	_, err = New(Options{Proxy: "socks4://1.2.3.4:1080"})
	require.Error(t, err)

	client, err := New(Options{Proxy: "usr:pwd@1.2.3.4:8080", BypassCloudflare: true})
	require.NoError(t, err)
	require.True(t, client.IsProxySet())
}

func TestHeaders(t *testing.T) {
	headers := DefaultHeaders("")
	require.Equal(t, DefaultUserAgent, headers["User-Agent"])

	merged := MergeHeaders(headers, map[string]string{
		"Accept":  "",
		"Referer": "https://example.com",
	})
	require.NotContains(t, merged, "Accept")
	require.Equal(t, "https://example.com", merged["Referer"])
	require.Contains(t, headers, "Accept")
}
