package timer

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

const DefaultLayout = "2006-01-02 15:04:05"

// Jitter returns a duration picked uniformly from [0.8d, 1.2d].
func Jitter(d time.Duration) time.Duration {
	low := float64(d) * 0.8
	high := float64(d) * 1.2
	return time.Duration(low + rand.Float64()*(high-low))
}

// SmartDelay sleeps for a jittered duration around d, it returns early
// with the context error if ctx is done first.
func SmartDelay(ctx context.Context, d time.Duration) (time.Duration, error) {
	pause := Jitter(d)
	t := time.NewTimer(pause)
	defer t.Stop()
	select {
	case <-t.C:
		return pause, nil
	case <-ctx.Done():
		return pause, ctx.Err()
	}
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type API interface {
	Now() time.Time
	Location() *time.Location
}

// Timer formats and converts times in a fixed offset from UTC.
type Timer struct {
	location *time.Location
	now      func() time.Time
}

func New(tzOffset int) Timer {
	return Timer{
		location: time.FixedZone(fmt.Sprintf("UTC%+d", tzOffset), tzOffset*3600),
		now:      time.Now,
	}
}

func (t Timer) Now() time.Time {
	return t.now().In(t.location)
}

func (t Timer) Location() *time.Location {
	return t.location
}

// Format renders tm (or now when tm is zero) with layout, an empty layout
// means DefaultLayout.
func (t Timer) Format(tm time.Time, layout string) string {
	if layout == "" {
		layout = DefaultLayout
	}
	if tm.IsZero() {
		tm = t.Now()
	}
	return tm.In(t.location).Format(layout)
}

func (t Timer) Timestamp() int64 {
	return t.Now().Unix()
}

func (t Timer) TS2Str(ts int64, layout string) string {
	return t.Format(time.Unix(ts, 0), layout)
}

func (t Timer) Str2TS(value, layout string) (int64, error) {
	if layout == "" {
		layout = DefaultLayout
	}
	tm, err := time.ParseInLocation(layout, value, t.location)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

// ISOWeek returns the iso week of now shifted by offset weeks, like `2020W36`.
func (t Timer) ISOWeek(offset int) string {
	year, week := t.Now().AddDate(0, 0, 7*offset).ISOWeek()
	return fmt.Sprintf("%dW%d", year, week)
}
