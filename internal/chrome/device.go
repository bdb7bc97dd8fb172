package chrome

import (
	"fmt"
	"net"
	"regexp"
)

type Kind string

const (
	Desktop Kind = "desktop"
	Tablet  Kind = "tablet"
	Mobile  Kind = "mobile"
)

type Viewport struct {
	Width  int
	Height int
}

var DefaultViewport = Viewport{Width: 800, Height: 600}

// Device is the browser fingerprint a chrome session presents.
type Device struct {
	ID   string
	Kind Kind

	UserAgent string
	Proxy     string
	IP        string
	Incognito bool

	OSCPU       string
	OSName      string
	OSVersion   string
	Concurrency int

	Fonts     []string
	Languages []string
	Plugins   []string

	ColorDepth   int
	ScreenWidth  int
	ScreenHeight int

	SessionStorage bool
	LocalStorage   bool
	IndexedDB      bool

	DeviceMemory float64

	// mobile only
	FlightMode bool
	Battery    float64
}

var browserRegex = regexp.MustCompile(`(Edg|OPR|Chrome|Firefox|Version)/([\d.]+)`)

var browserNames = map[string]string{
	"Edg":     "Edge",
	"OPR":     "Opera",
	"Chrome":  "Chrome",
	"Firefox": "Firefox",
	"Version": "Safari",
}

func (d Device) browser() (string, string) {
	matches := browserRegex.FindAllStringSubmatch(d.UserAgent, -1)
	if len(matches) == 0 {
		return "", ""
	}
	// the most specific token comes last, Edge and Opera also claim Chrome
	last := matches[len(matches)-1]
	return browserNames[last[1]], last[2]
}

// Browser returns the browser name of the user agent.
func (d Device) Browser() string {
	name, _ := d.browser()
	return name
}

func (d Device) BrowserVersion() string {
	_, version := d.browser()
	return version
}

// Viewport returns the screen size, the default viewport when unset.
func (d Device) Viewport() Viewport {
	if d.ScreenWidth <= 0 || d.ScreenHeight <= 0 {
		return DefaultViewport
	}
	return Viewport{Width: d.ScreenWidth, Height: d.ScreenHeight}
}

// FreePort returns a tcp port on the loopback interface that nothing
// listens on.
func FreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("free port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
