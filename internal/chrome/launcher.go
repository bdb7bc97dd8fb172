package chrome

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"atomkit/internal/telemetry"
	"atomkit/lib/fileio"
	"atomkit/lib/httpclient"
	"atomkit/lib/proxy"
	"atomkit/lib/timer"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v4/process"
)

var ErrNotReady = errors.New("chrome did not become reachable")
var ErrStillRunning = errors.New("chrome is still running")

const (
	DefaultHost               = "127.0.0.1"
	DefaultMaxConnectionCheck = 15
	DefaultCheckInterval      = time.Millisecond * 500
	DefaultCheckTimeout       = time.Second * 3
	DefaultKillRetry          = 3
)

const (
	report_launcher_start = "launcher.start"
	report_launcher_kill  = "launcher.kill"
)

var DefaultExtraArgs = []string{"--no-first-run", "--no-sandbox"}

var DefaultArgs = []string{
	"--disable-background-networking",
	"--disable-background-timer-throttling",
	"--disable-breakpad",
	"--disable-browser-side-navigation",
	"--disable-client-side-phishing-detection",
	"--disable-default-apps",
	"--disable-dev-shm-usage",
	"--disable-extensions",
	"--disable-features=site-per-process",
	"--disable-hang-monitor",
	"--disable-popup-blocking",
	"--disable-prompt-on-repost",
	"--disable-sync",
	"--disable-translate",
	"--metrics-recording-only",
	"--safebrowsing-disable-auto-update",
	"--enable-automation",
	"--password-store=basic",
	"--use-mock-keychain",
	"--disable-client-side-phishing-detection",
	"--disable-component-extensions-with-background-pages",
	"--no-default-browser-check",
	"--use-fake-device-for-media-stream",
	"--single-process",
	"--disable-login-animations",
	"--disable-notifications",
	"--disable-print-preview",
	"--disable-system-font-check",
	"--aggressive-cache-discard",
	"--aggressive-tab-discard",
	"--disable-domain-reliability",
	"--disable-component-update",
	"--disable-device-discovery-notifications",
	"--no-service-autorun",
	"--password-store=basic",
}

type LauncherOptions struct {
	Executable string
	Host       string
	Port       int
	// UserDataDir defaults to a fresh profile directory under the os temp
	// directory.
	UserDataDir string

	Headless  bool
	Devtools  bool
	Incognito bool
	UserAgent string
	// Proxy is a proxy string accepted by proxy.Parse, credentials are not
	// passed to chrome.
	Proxy        string
	DisableImage bool
	// ExtraArgs defaults to DefaultExtraArgs when nil.
	ExtraArgs         []string
	IgnoreDefaultArgs bool
	StartURL          string
	Viewport          Viewport

	// Output receives the stdout and stderr of the chrome process.
	Output             io.Writer
	CheckTimeout       time.Duration
	CheckInterval      time.Duration
	MaxConnectionCheck int
	Telemetry          telemetry.API
}

// Launcher runs a chrome process with remote debugging enabled.
type Launcher struct {
	opts  LauncherOptions
	proxy *proxy.Proxy
	url   string
	http  *resty.Client
	tel   telemetry.API

	mutex   sync.Mutex
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func NewLauncher(opts LauncherOptions) (*Launcher, error) {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port <= 0 {
		port, err := FreePort()
		if err != nil {
			return nil, err
		}
		opts.Port = port
	}
	if opts.UserDataDir == "" {
		opts.UserDataDir = filepath.Join(os.TempDir(), "atomkit-chrome-"+uuid.NewString())
	}
	if opts.ExtraArgs == nil {
		opts.ExtraArgs = DefaultExtraArgs
	}
	if opts.StartURL == "" {
		opts.StartURL = "about:blank"
	}
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = DefaultViewport
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = DefaultCheckTimeout
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = DefaultCheckInterval
	}
	if opts.MaxConnectionCheck <= 0 {
		opts.MaxConnectionCheck = DefaultMaxConnectionCheck
	}

	var p *proxy.Proxy
	if opts.Proxy != "" {
		parsed, err := proxy.Parse(opts.Proxy)
		if err != nil {
			return nil, err
		}
		p = &parsed
	}

	err := fileio.DirCreate(opts.UserDataDir)
	if err != nil {
		return nil, err
	}

	tel := telemetry.NewScopedAPI("chrome", opts.Telemetry)
	client, err := httpclient.New(httpclient.Options{
		Timeout:    opts.CheckTimeout,
		TracerName: "atomkit/chrome/http",
		Telemetry:  tel,
	})
	if err != nil {
		return nil, err
	}

	return &Launcher{
		opts:  opts,
		proxy: p,
		url:   fmt.Sprintf("http://%s:%d", opts.Host, opts.Port),
		http:  client,
		tel:   tel,
	}, nil
}

func (l *Launcher) URL() string {
	return l.url
}

func (l *Launcher) Host() string {
	return l.opts.Host
}

func (l *Launcher) Port() int {
	return l.opts.Port
}

func (l *Launcher) UserDataDir() string {
	return l.opts.UserDataDir
}

// Args returns the command line chrome is started with, the executable
// comes first.
func (l *Launcher) Args() []string {
	opts := l.opts
	args := []string{
		opts.Executable,
		fmt.Sprintf("--remote-debugging-address=%s", opts.Host),
		fmt.Sprintf("--remote-debugging-port=%d", opts.Port),
		fmt.Sprintf("--user-data-dir=%s", opts.UserDataDir),
	}

	if opts.Devtools {
		args = append(args, "--auto-open-devtools-for-tabs")
	}
	if opts.Headless {
		args = append(args, "--headless", "--hide-scrollbars", "--mute-audio")
	}
	if opts.UserAgent != "" {
		args = append(args, fmt.Sprintf("--user-agent=%s", opts.UserAgent))
	}
	if l.proxy != nil {
		args = append(args, fmt.Sprintf("--proxy-server=%s://%s", l.proxy.Scheme, l.proxy.Host()))
	}
	if opts.DisableImage {
		args = append(args, "--blink-settings=imagesEnabled=false")
	}
	args = append(args, opts.ExtraArgs...)
	if opts.Incognito {
		args = append(args, "--incognito")
	}
	if !opts.IgnoreDefaultArgs {
		args = append(args, DefaultArgs...)
	}

	args = append(args, fmt.Sprintf("--window-size=%d,%d", opts.Viewport.Width, opts.Viewport.Height))
	args = append(args, opts.StartURL)
	return args
}

func (l *Launcher) running() bool {
	l.mutex.Lock()
	done := l.done
	l.mutex.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

func (l *Launcher) reachable(ctx context.Context) bool {
	res, err := l.http.R().SetContext(ctx).Get(l.url + "/json/version")
	return err == nil && res.IsSuccess()
}

// Start runs chrome and waits until its debugging endpoint answers, the
// process is killed if it never does.
func (l *Launcher) Start(ctx context.Context) error {
	args := l.Args()
	cmd := exec.Command(args[0], args[1:]...)
	if l.opts.Output != nil {
		cmd.Stdout = l.opts.Output
		cmd.Stderr = l.opts.Output
	}
	err := cmd.Start()
	if err != nil {
		l.tel.ReportBroken(report_launcher_start, err, l.opts.Port)
		return fmt.Errorf("start: %w", err)
	}

	done := make(chan struct{})
	l.mutex.Lock()
	l.cmd = cmd
	l.done = done
	l.mutex.Unlock()
	go func() {
		err := cmd.Wait()
		l.mutex.Lock()
		l.waitErr = err
		l.mutex.Unlock()
		close(done)
	}()

	for range l.opts.MaxConnectionCheck {
		if !l.running() {
			l.mutex.Lock()
			err := l.waitErr
			l.mutex.Unlock()
			l.tel.ReportBroken(report_launcher_start, err, l.opts.Port)
			return fmt.Errorf("start: chrome exited early: %v", err)
		}
		if l.reachable(ctx) {
			l.tel.ReportDebug("chrome started", "url", l.url, "pid", cmd.Process.Pid)
			return nil
		}
		err = timer.Sleep(ctx, l.opts.CheckInterval)
		if err != nil {
			break
		}
	}

	l.tel.ReportBroken(report_launcher_start, ErrNotReady, l.opts.Port)
	killErr := l.Kill(context.Background(), DefaultKillRetry)
	if killErr != nil {
		l.tel.ReportWarning(report_launcher_kill, killErr)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrNotReady
}

// Kill stops chrome together with its child processes. The first attempt
// asks the process to terminate, later attempts kill it.
func (l *Launcher) Kill(ctx context.Context, retry int) error {
	l.mutex.Lock()
	cmd := l.cmd
	done := l.done
	l.mutex.Unlock()
	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if retry <= 0 {
		retry = DefaultKillRetry
	}

	proc, err := process.NewProcessWithContext(ctx, int32(cmd.Process.Pid))
	if err != nil {
		select {
		case <-done:
			return nil
		case <-time.After(l.opts.CheckInterval):
			return fmt.Errorf("kill: %w", err)
		}
	}
	children, err := proc.ChildrenWithContext(ctx)
	if err == nil {
		for _, child := range children {
			err := child.KillWithContext(ctx)
			if err != nil {
				l.tel.ReportWarning(report_launcher_kill, err, child.Pid)
			}
		}
	}

	for attempt := range retry {
		select {
		case <-done:
			return nil
		default:
		}

		if attempt == 0 {
			err = proc.TerminateWithContext(ctx)
		} else {
			err = proc.KillWithContext(ctx)
		}
		if err != nil {
			l.tel.ReportWarning(report_launcher_kill, err, attempt)
		}

		select {
		case <-done:
			return nil
		case <-time.After(l.opts.CheckInterval):
		}
	}
	return ErrStillRunning
}

// CleanupDataDir empties the profile directory.
func (l *Launcher) CleanupDataDir() error {
	return fileio.DirClear(l.opts.UserDataDir, true)
}
