package chrome

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceBrowser(t *testing.T) {
	testCases := []struct {
		ua      string
		name    string
		version string
	}{
		{
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
			name:    "Chrome",
			version: "123.0.0.0",
		},
		{
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36 Edg/123.0.2420.65",
			name:    "Edge",
			version: "123.0.2420.65",
		},
		{
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:77.0) Gecko/20100101 Firefox/77.0",
			name:    "Firefox",
			version: "77.0",
		},
		{ua: "curl/8.0"},
	}

	for _, tc := range testCases {
		device := Device{UserAgent: tc.ua}
		require.Equal(t, tc.name, device.Browser(), tc.ua)
		require.Equal(t, tc.version, device.BrowserVersion(), tc.ua)
	}
}

func TestDeviceViewport(t *testing.T) {
	require.Equal(t, DefaultViewport, Device{}.Viewport())
	require.Equal(t, Viewport{Width: 390, Height: 844}, Device{Kind: Mobile, ScreenWidth: 390, ScreenHeight: 844}.Viewport())
}

func TestFreePort(t *testing.T) {
	port, err := FreePort()
	require.NoError(t, err)
	require.Greater(t, port, 0)
}
