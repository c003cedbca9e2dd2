package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/backend"
	"github.com/terradetect/terradetect/internal/config"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
)

// Ticket identifies a sensor trigger. A reading is fresh when it was
// written after the trigger.
type Ticket struct {
	At      time.Time
	EntryID int
}

// NewTicket builds a ticket from a trigger answer. The gateway reports the
// channel entry written by the trigger; it is zero when unknown.
func NewTicket(at time.Time, resp *backend.TriggerResponse) Ticket {
	t := Ticket{At: at}
	if resp != nil {
		if id, err := strconv.Atoi(strings.TrimSpace(resp.Response)); err == nil {
			t.EntryID = id
		}
	}
	return t
}

// Fresh reports whether resp was written after the trigger. Entry IDs are
// compared when both sides have one, timestamps otherwise. A response with
// neither is accepted.
func (t Ticket) Fresh(resp *backend.SensorResponse) bool {
	if resp == nil {
		return false
	}
	if t.EntryID > 0 && resp.EntryID > 0 {
		return resp.EntryID > t.EntryID
	}
	if !resp.Timestamp.IsZero() && !t.At.IsZero() {
		return resp.Timestamp.After(t.At)
	}
	return true
}

// FetchFunc reads the current sensor state from the gateway.
type FetchFunc func(ctx context.Context) (*backend.SensorResponse, error)

// ProgressFunc receives status messages while waiting. It may be nil.
type ProgressFunc func(msg string)

func (p ProgressFunc) report(msg string) {
	if p != nil {
		p(msg)
	}
}

// Waiter decides when a triggered sensor reading is ready and returns it.
// Every implementation stops as soon as ctx is done.
type Waiter interface {
	Wait(ctx context.Context, t Ticket, fetch FetchFunc, progress ProgressFunc) (*backend.SensorResponse, error)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FixedDelay waits a fixed time and then fetches once.
type FixedDelay struct {
	Delay time.Duration
}

func (w FixedDelay) Wait(ctx context.Context, _ Ticket, fetch FetchFunc, progress ProgressFunc) (*backend.SensorResponse, error) {
	progress.report(fmt.Sprintf("Waiting %d seconds while sensor collects data...", int(w.Delay.Seconds())))
	if err := sleep(ctx, w.Delay); err != nil {
		return nil, err
	}
	progress.report("")
	return fetch(ctx)
}

// Poll fetches every Interval until a fresh reading arrives or MaxAttempts
// fetches have been made. Retryable failures count as an attempt; others
// end the wait.
type Poll struct {
	Interval    time.Duration
	MaxAttempts int
}

func (w Poll) Wait(ctx context.Context, t Ticket, fetch FetchFunc, progress ProgressFunc) (*backend.SensorResponse, error) {
	attempts := w.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		progress.report(fmt.Sprintf("Waiting for sensor data (check %d of %d)...", i, attempts))
		if err := sleep(ctx, w.Interval); err != nil {
			return nil, err
		}

		resp, err := fetch(ctx)
		switch {
		case err == nil && t.Fresh(resp):
			progress.report("")
			return resp, nil
		case err == nil:
			logging.Debug("Sensor reading not updated yet",
				zap.Int("attempt", i),
				zap.Int("entry_id", resp.EntryID),
				zap.Int("trigger_entry_id", t.EntryID),
			)
			lastErr = nil
		case backend.IsRetryable(err):
			logging.Debug("Sensor fetch failed, will retry", zap.Int("attempt", i), zap.Error(err))
			lastErr = err
		default:
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("no new reading after %d checks", attempts)
}

// DefaultPushTimeout bounds a push wait when Push.Timeout is unset. It
// matches the gateway's own watch window.
const DefaultPushTimeout = 3 * time.Minute

// Push subscribes to the gateway's reading stream and fetches once a
// fresh reading is announced. When the stream cannot be opened it hands
// over to Fallback, if set. If nothing is announced within Timeout it
// fetches once more and fails unless that reading is fresh.
type Push struct {
	URL      string
	Timeout  time.Duration
	Fallback Waiter
}

func (w Push) Wait(ctx context.Context, t Ticket, fetch FetchFunc, progress ProgressFunc) (*backend.SensorResponse, error) {
	sub, err := sensor.Subscribe(ctx, w.URL)
	if err != nil {
		if w.Fallback == nil {
			return nil, err
		}
		logging.Warn("Reading stream unavailable, falling back", zap.String("url", w.URL), zap.Error(err))
		return w.Fallback.Wait(ctx, t, fetch, progress)
	}
	defer sub.Close()

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	progress.report("Waiting for the sensor to report...")
	for {
		rec, err := sub.Next(waitCtx)
		if err != nil {
			if ctx.Err() != nil || waitCtx.Err() == nil {
				return nil, err
			}
			return w.lastChance(ctx, t, fetch, timeout)
		}
		if !t.At.IsZero() && !rec.Timestamp.After(t.At) {
			logging.Debug("Ignoring stale pushed reading", zap.Time("timestamp", rec.Timestamp))
			continue
		}
		progress.report("")
		return fetch(ctx)
	}
}

func (w Push) lastChance(ctx context.Context, t Ticket, fetch FetchFunc, timeout time.Duration) (*backend.SensorResponse, error) {
	logging.Debug("No reading announced, checking once more", zap.Duration("timeout", timeout))
	resp, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if !t.Fresh(resp) {
		return nil, fmt.Errorf("no new reading within %s", timeout)
	}
	return resp, nil
}

// NewWaiter builds the waiter selected in the client settings. streamURL
// is the gateway's websocket endpoint, used by the push strategy.
func NewWaiter(s *config.SensorSettings, streamURL string) Waiter {
	poll := Poll{Interval: s.PollInterval, MaxAttempts: s.MaxAttempts}
	switch s.Wait {
	case config.WaitFixed:
		return FixedDelay{Delay: s.FixedDelay}
	case config.WaitPush:
		return Push{URL: streamURL, Timeout: s.PollInterval * time.Duration(s.MaxAttempts), Fallback: poll}
	default:
		return poll
	}
}
