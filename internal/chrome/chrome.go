package chrome

import (
	"context"
	"errors"
	"io"
	"time"

	"atomkit/internal/telemetry"
)

type Options struct {
	Device      Device
	Executable  string
	UserDataDir string
	Headless    bool
	Output      io.Writer
	Timeout     time.Duration
	Telemetry   telemetry.API
}

// Chrome is a launched browser with a devtools connection to its first tab.
type Chrome struct {
	Device   Device
	Launcher *Launcher
	Dev      *Dev
}

// Open launches chrome on a free port with the fingerprint of the device
// and connects to its first tab.
func Open(ctx context.Context, opts Options) (*Chrome, error) {
	launcher, err := NewLauncher(LauncherOptions{
		Executable:  opts.Executable,
		UserDataDir: opts.UserDataDir,
		Headless:    opts.Headless,
		Incognito:   opts.Device.Incognito,
		UserAgent:   opts.Device.UserAgent,
		Proxy:       opts.Device.Proxy,
		Viewport:    opts.Device.Viewport(),
		Output:      opts.Output,
		Telemetry:   opts.Telemetry,
	})
	if err != nil {
		return nil, err
	}
	err = launcher.Start(ctx)
	if err != nil {
		return nil, err
	}

	dev, err := NewDev(DevOptions{
		Host:      launcher.Host(),
		Port:      launcher.Port(),
		Timeout:   opts.Timeout,
		Telemetry: opts.Telemetry,
	})
	if err == nil {
		err = dev.Connect(ctx, 0, true)
	}
	if err != nil {
		return nil, errors.Join(err, launcher.Kill(context.Background(), DefaultKillRetry))
	}

	return &Chrome{
		Device:   opts.Device,
		Launcher: launcher,
		Dev:      dev,
	}, nil
}

// Close disconnects and kills the browser.
func (c *Chrome) Close(ctx context.Context) error {
	return errors.Join(
		c.Dev.Close(),
		c.Launcher.Kill(ctx, DefaultKillRetry),
	)
}
