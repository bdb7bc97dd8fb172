package chrome

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"atomkit/internal/telemetry"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// fakeDevtools answers a handful of protocol methods the way chrome does.
func fakeDevtools(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		host := strings.TrimPrefix(srv.URL, "http://")
		fmt.Fprintf(w, `[{"id":"T1","type":"page","title":"blank","url":"about:blank","webSocketDebuggerUrl":"ws://%s/devtools/page/T1"}]`, host)
	})
	mux.HandleFunc("/devtools/page/T1", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			var msg call
			err := wsjson.Read(ctx, conn, &msg)
			if err != nil {
				return
			}

			var replies []any
			switch msg.Method {
			case "Page.navigate":
				replies = []any{
					map[string]any{"method": "Page.frameStartedLoading", "params": map[string]any{"frameId": "F"}},
					map[string]any{"id": msg.ID, "result": map[string]any{"frameId": "F"}},
				}
			case "Page.enable":
				replies = []any{
					map[string]any{"id": msg.ID, "result": map[string]any{}},
					map[string]any{"method": "Page.loadEventFired", "params": map[string]any{"timestamp": 1.5}},
				}
			case "Page.silent":
			default:
				replies = []any{
					map[string]any{"id": msg.ID, "error": map[string]any{
						"code":    -32601,
						"message": fmt.Sprintf("'%s' wasn't found", msg.Method),
					}},
				}
			}
			for _, reply := range replies {
				err := wsjson.Write(ctx, conn, reply)
				if err != nil {
					return
				}
			}
		}
	})

	srv = httptest.NewServer(mux)
	return srv
}

func newTestDev(t *testing.T, srv *httptest.Server) *Dev {
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	dev, err := NewDev(DevOptions{
		Host:      host,
		Port:      port,
		Timeout:   time.Millisecond * 200,
		Telemetry: &telemetry.Recorder{},
	})
	require.NoError(t, err)
	return dev
}

func TestDevTabs(t *testing.T) {
	testCases := []struct {
		name        string
		contentType string
	}{
		{name: "json", contentType: "application/json; charset=UTF-8"},
		{name: "no content type"},
		{name: "plain text", contentType: "text/plain"},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if test.contentType != "" {
					w.Header().Set("Content-Type", test.contentType)
				}
				fmt.Fprint(w, `[{"id":"T1","type":"page","url":"about:blank"},{"id":"T2","type":"page","url":"https://example.com"}]`)
			}))
			defer srv.Close()

			tabs, err := newTestDev(t, srv).Tabs(context.Background())
			require.NoError(t, err)
			require.Len(t, tabs, 2)
			require.Equal(t, "T2", tabs[1].ID)
			require.Equal(t, "https://example.com", tabs[1].URL)
		})
	}
}

func TestDevTabsBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>not devtools</html>")
	}))
	defer srv.Close()

	_, err := newTestDev(t, srv).Tabs(context.Background())
	require.Error(t, err)
}

func TestDevCall(t *testing.T) {
	srv := fakeDevtools(t)
	defer srv.Close()
	dev := newTestDev(t, srv)
	defer dev.Close()

	ctx := context.Background()
	_, err := dev.WaitMessage(ctx, 0)
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, dev.Connect(ctx, 0, true))

	result, messages, err := dev.Domain("Page").Call(ctx, "navigate", map[string]any{"url": "about:blank"})
	require.NoError(t, err)
	require.Equal(t, "F", result.Result["frameId"])
	require.Len(t, messages, 2)
	require.Equal(t, "Page.frameStartedLoading", messages[0].Method)
	require.Equal(t, result.ID, messages[1].ID)

	_, _, err = dev.Call(ctx, "Runtime.fail", nil)
	var protocolErr *ProtocolError
	require.True(t, errors.As(err, &protocolErr))
	require.Equal(t, -32601, protocolErr.Code)

	_, _, err = dev.Call(ctx, "Page.silent", nil)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestDevWaitEvent(t *testing.T) {
	srv := fakeDevtools(t)
	defer srv.Close()
	dev := newTestDev(t, srv)
	defer dev.Close()

	ctx := context.Background()
	require.NoError(t, dev.Connect(ctx, 0, true))

	_, _, err := dev.Domain("Page").Call(ctx, "enable", nil)
	require.NoError(t, err)

	event, messages, err := dev.WaitEvent(ctx, "Page.loadEventFired", 0)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, 1.5, event.Params["timestamp"])
	require.Len(t, messages, 1)

	event, messages, err = dev.WaitEvent(ctx, "Page.loadEventFired", time.Millisecond*50)
	require.NoError(t, err)
	require.Nil(t, event)
	require.Empty(t, messages)

	msg, err := dev.WaitMessage(ctx, time.Millisecond*50)
	require.NoError(t, err)
	require.Nil(t, msg)

	pending, err := dev.PopMessages()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestDevConnectTarget(t *testing.T) {
	srv := fakeDevtools(t)
	defer srv.Close()
	dev := newTestDev(t, srv)
	defer dev.Close()

	ctx := context.Background()
	tabs, err := dev.Tabs(ctx)
	require.NoError(t, err)
	require.Len(t, tabs, 1)
	require.Equal(t, "T1", tabs[0].ID)

	ok, err := dev.ConnectTarget(ctx, "T1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = dev.ConnectTarget(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	_, _, err = dev.Domain("Page").Call(ctx, "navigate", map[string]any{"url": "about:blank"})
	require.NoError(t, err)

	require.Error(t, dev.Connect(ctx, 3, false))
}
