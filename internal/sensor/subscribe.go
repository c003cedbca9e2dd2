package sensor

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/terradetect/terradetect/internal/version"
)

// Subscription receives push events from a gateway.
type Subscription struct {
	conn *websocket.Conn
}

// Subscribe dials the gateway's stream endpoint (ws:// or wss:// URL).
func Subscribe(ctx context.Context, url string) (*Subscription, error) {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("subscribe %s: HTTP %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("subscribe %s: %w", url, err)
	}
	return &Subscription{conn: conn}, nil
}

// Next blocks until the next reading event or until ctx is done.
func (s *Subscription) Next(ctx context.Context) (Record, error) {
	type result struct {
		rec Record
		err error
	}
	ch := make(chan result, 1)

	go func() {
		for {
			var ev Event
			if err := s.conn.ReadJSON(&ev); err != nil {
				ch <- result{err: err}
				return
			}
			if ev.Type == EventReading {
				ch <- result{rec: ev.Record}
				return
			}
		}
	}()

	select {
	case r := <-ch:
		return r.rec, r.err
	case <-ctx.Done():
		// Unblocks the reader goroutine.
		_ = s.conn.Close()
		return Record{}, ctx.Err()
	}
}

// Close ends the subscription.
func (s *Subscription) Close() error {
	_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return s.conn.Close()
}
