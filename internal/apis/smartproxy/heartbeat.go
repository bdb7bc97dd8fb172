package smartproxy

import (
	"context"
	"time"
)

// Heartbeat keeps a sticky session alive by requesting the check url
// through it on an interval.
type Heartbeat struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Heartbeat starts beating until Stop is called or ctx is done, interval
// <= 0 means DefaultHeartbeat.
func (c *Client) Heartbeat(ctx context.Context, proxyURL string, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		interval = DefaultHeartbeat
	}
	ctx, cancel := context.WithCancel(ctx)
	h := &Heartbeat{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := c.get(ctx, proxyURL, c.opts.CheckURL)
				if err != nil {
					if ctx.Err() == nil {
						c.tel.ReportWarning(report_heartbeat, err)
					}
					continue
				}
				c.tel.ReportDebug("heartbeat", "status", res.StatusCode(), "url", c.opts.CheckURL)
			}
		}
	}()

	return h
}

// Stop ends the heartbeat and waits for it to exit.
func (h *Heartbeat) Stop() {
	h.cancel()
	<-h.done
}
