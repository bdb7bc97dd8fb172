package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var tracer = otel.Tracer("atomkit/chrome")

var ErrNotConnected = errors.New("devtools: not connected")
var ErrTimeout = errors.New("devtools: timed out waiting for message")

const (
	DefaultDevPort    = 9222
	DefaultDevTimeout = time.Second
	messageBuffer     = 1024
)

const (
	report_dev_connect = "dev.connect"
	report_dev_call    = "dev.call"
)

type Tab struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("devtools: %s (%d)", e.Message, e.Code)
}

// Message is a devtools protocol message, a result when ID is set and an
// event when Method is set.
type Message struct {
	ID        int64          `json:"id,omitempty"`
	Method    string         `json:"method,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Error     *ProtocolError `json:"error,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

type call struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// session is one websocket connection and the goroutine reading from it.
type session struct {
	conn     *websocket.Conn
	messages chan Message
	stop     chan struct{}
	done     chan struct{}
	err      error
}

func newSession(conn *websocket.Conn) *session {
	conn.SetReadLimit(-1)
	s := &session{
		conn:     conn,
		messages: make(chan Message, messageBuffer),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.listen()
	return s
}

func (s *session) listen() {
	defer close(s.done)
	for {
		var msg Message
		err := wsjson.Read(context.Background(), s.conn, &msg)
		if err != nil {
			s.err = err
			return
		}
		select {
		case s.messages <- msg:
		case <-s.stop:
			return
		}
	}
}

// close drops the connection without a close handshake, the reading
// goroutine holds the read lock the handshake needs.
func (s *session) close() error {
	close(s.stop)
	return s.conn.CloseNow()
}

// next returns the next message, ErrTimeout once deadline fires.
func (s *session) next(ctx context.Context, deadline <-chan time.Time) (Message, error) {
	select {
	case msg := <-s.messages:
		return msg, nil
	default:
	}

	select {
	case msg := <-s.messages:
		return msg, nil
	case <-deadline:
		return Message{}, ErrTimeout
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-s.done:
		select {
		case msg := <-s.messages:
			return msg, nil
		default:
		}
		return Message{}, fmt.Errorf("devtools: connection closed: %w", s.err)
	}
}

type DevOptions struct {
	Host string
	Port int
	// Timeout is the default time the Wait methods block for.
	Timeout   time.Duration
	Telemetry telemetry.API
}

// Dev is a client of the chrome devtools protocol.
type Dev struct {
	host    string
	port    int
	timeout time.Duration
	http    *resty.Client
	tel     telemetry.API
	counter atomic.Int64

	mutex   sync.Mutex
	tabs    []Tab
	current *session
}

func NewDev(opts DevOptions) (*Dev, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port <= 0 {
		opts.Port = DefaultDevPort
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultDevTimeout
	}
	tel := telemetry.NewScopedAPI("chrome", opts.Telemetry)
	client, err := httpclient.New(httpclient.Options{
		BaseURL:    fmt.Sprintf("http://%s:%d", opts.Host, opts.Port),
		TracerName: "atomkit/chrome/http",
		Telemetry:  tel,
	})
	if err != nil {
		return nil, err
	}
	return &Dev{
		host:    opts.Host,
		port:    opts.Port,
		timeout: opts.Timeout,
		http:    client,
		tel:     tel,
	}, nil
}

// Tabs refreshes and returns the open targets.
func (d *Dev) Tabs(ctx context.Context) ([]Tab, error) {
	res, err := d.http.R().
		SetContext(ctx).
		Get("/json")
	if err != nil {
		return nil, fmt.Errorf("tabs: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("tabs: %s", res.Status())
	}
	// decoded by hand, SetResult skips bodies without a json content type
	var tabs []Tab
	err = json.Unmarshal(res.Body(), &tabs)
	if err != nil {
		return nil, fmt.Errorf("tabs: %w", err)
	}

	d.mutex.Lock()
	d.tabs = tabs
	d.mutex.Unlock()
	return tabs, nil
}

func (d *Dev) dial(ctx context.Context, url string) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}

	d.mutex.Lock()
	previous := d.current
	d.current = newSession(conn)
	d.mutex.Unlock()

	if previous != nil {
		previous.close()
	}
	return nil
}

// Connect attaches to the tab at index, the tab list is refreshed first
// when update is set or no tabs are known.
func (d *Dev) Connect(ctx context.Context, index int, update bool) error {
	ctx, span := tracer.Start(ctx, "dev:Connect")
	defer span.End()

	d.mutex.Lock()
	tabs := d.tabs
	d.mutex.Unlock()

	if update || len(tabs) == 0 {
		var err error
		tabs, err = d.Tabs(ctx)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			d.tel.ReportBroken(report_dev_connect, err)
			return err
		}
	}
	if index < 0 || index >= len(tabs) {
		return fmt.Errorf("connect: tab %d out of range (%d tabs)", index, len(tabs))
	}

	err := d.dial(ctx, tabs[index].WebSocketDebuggerURL)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_dev_connect, err)
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// ConnectTarget attaches to the page with the given target id. When that
// fails it falls back to the first known tab and returns false.
func (d *Dev) ConnectTarget(ctx context.Context, targetID string) (bool, error) {
	url := fmt.Sprintf("ws://%s:%d/devtools/page/%s", d.host, d.port, targetID)
	err := d.dial(ctx, url)
	if err == nil {
		return true, nil
	}
	d.tel.ReportWarning(report_dev_connect, err, targetID)

	d.mutex.Lock()
	tabs := d.tabs
	d.mutex.Unlock()
	if len(tabs) == 0 {
		return false, fmt.Errorf("connect target: %w", err)
	}
	err = d.dial(ctx, tabs[0].WebSocketDebuggerURL)
	if err != nil {
		return false, fmt.Errorf("connect target: %w", err)
	}
	return false, nil
}

func (d *Dev) Close() error {
	d.mutex.Lock()
	current := d.current
	d.current = nil
	d.mutex.Unlock()
	if current == nil {
		return nil
	}
	return current.close()
}

func (d *Dev) session() (*session, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.current == nil {
		return nil, ErrNotConnected
	}
	return d.current, nil
}

func (d *Dev) deadline(timeout time.Duration) *time.Timer {
	if timeout <= 0 {
		timeout = d.timeout
	}
	return time.NewTimer(timeout)
}

// WaitMessage returns the next message, nil when none arrives in time.
func (d *Dev) WaitMessage(ctx context.Context, timeout time.Duration) (*Message, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	deadline := d.deadline(timeout)
	defer deadline.Stop()

	msg, err := s.next(ctx, deadline.C)
	if errors.Is(err, ErrTimeout) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// waitFor reads messages until match accepts one or the timeout passes,
// every message read is returned.
func (d *Dev) waitFor(ctx context.Context, timeout time.Duration, match func(Message) bool) (*Message, []Message, error) {
	s, err := d.session()
	if err != nil {
		return nil, nil, err
	}
	deadline := d.deadline(timeout)
	defer deadline.Stop()

	var messages []Message
	for {
		msg, err := s.next(ctx, deadline.C)
		if errors.Is(err, ErrTimeout) {
			return nil, messages, nil
		}
		if err != nil {
			return nil, messages, err
		}
		messages = append(messages, msg)
		if match(msg) {
			return &msg, messages, nil
		}
	}
}

// WaitEvent waits for an event of method, the match is nil on timeout.
func (d *Dev) WaitEvent(ctx context.Context, method string, timeout time.Duration) (*Message, []Message, error) {
	return d.waitFor(ctx, timeout, func(msg Message) bool {
		return msg.Method == method
	})
}

// WaitResult waits for the response to the call with id, the match is nil
// on timeout.
func (d *Dev) WaitResult(ctx context.Context, id int64, timeout time.Duration) (*Message, []Message, error) {
	return d.waitFor(ctx, timeout, func(msg Message) bool {
		return msg.ID == id && (msg.Result != nil || msg.Error != nil)
	})
}

// PopMessages drains the messages received so far without blocking.
func (d *Dev) PopMessages() ([]Message, error) {
	s, err := d.session()
	if err != nil {
		return nil, err
	}
	var messages []Message
	for {
		select {
		case msg := <-s.messages:
			messages = append(messages, msg)
		default:
			return messages, nil
		}
	}
}

// Call sends method with params and waits for its result. Pending
// messages are discarded first so the returned messages are the ones
// received while waiting.
func (d *Dev) Call(ctx context.Context, method string, params any) (*Message, []Message, error) {
	ctx, span := tracer.Start(ctx, "dev:Call")
	defer span.End()

	s, err := d.session()
	if err != nil {
		return nil, nil, err
	}
	_, err = d.PopMessages()
	if err != nil {
		return nil, nil, err
	}

	id := d.counter.Add(1)
	err = wsjson.Write(ctx, s.conn, call{ID: id, Method: method, Params: params})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		d.tel.ReportBroken(report_dev_call, err, method)
		return nil, nil, fmt.Errorf("call %s: %w", method, err)
	}

	result, messages, err := d.WaitResult(ctx, id, 0)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, messages, fmt.Errorf("call %s: %w", method, err)
	}
	if result == nil {
		span.SetStatus(codes.Error, "timeout")
		return nil, messages, fmt.Errorf("call %s: %w", method, ErrTimeout)
	}
	if result.Error != nil {
		span.SetStatus(codes.Error, result.Error.Message)
		return result, messages, fmt.Errorf("call %s: %w", method, result.Error)
	}
	return result, messages, nil
}

// Domain groups the methods of one protocol domain.
type Domain struct {
	dev  *Dev
	name string
}

// Domain returns a handle calling methods of the domain name, as in
// dev.Domain("Page").Call(ctx, "navigate", params).
func (d *Dev) Domain(name string) Domain {
	return Domain{dev: d, name: name}
}

func (d Domain) Call(ctx context.Context, method string, params any) (*Message, []Message, error) {
	return d.dev.Call(ctx, d.name+"."+method, params)
}
