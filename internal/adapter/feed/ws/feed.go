// Package ws is a position feed that reads fixes from a WebSocket endpoint.
//
// Each text frame is a JSON object, either {"lat":..,"lng":..} for a fix
// or {"error":".."} when the device cannot produce one.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"cachequest/internal/app/ports"
	"cachequest/internal/domain/grid"
)

var (
	ErrMissingURL = errors.New("websocket feed url is required")
	ErrBadFrame   = errors.New("malformed position frame")
	ErrDevice     = errors.New("position unavailable")
)

const defaultHandshakeTimeout = 5 * time.Second

type Feed struct {
	URL    string
	Header http.Header
	Dialer *websocket.Dialer
}

type frame struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

func (f Feed) Subscribe(ctx context.Context) (ports.Subscription, error) {
	if f.URL == "" {
		return nil, ErrMissingURL
	}
	dialer := f.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		}
	}
	conn, resp, err := dialer.DialContext(ctx, f.URL, f.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial position feed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &subscription{
		conn:   conn,
		events: make(chan ports.PositionEvent),
		cancel: cancel,
	}
	go s.read(ctx)
	go func() {
		<-ctx.Done()
		s.shutdown()
	}()
	return s, nil
}

type subscription struct {
	conn   *websocket.Conn
	events chan ports.PositionEvent
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Events() <-chan ports.PositionEvent { return s.events }

func (s *subscription) Close() error {
	s.cancel()
	return nil
}

func (s *subscription) shutdown() {
	s.once.Do(func() {
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
}

func (s *subscription) read(ctx context.Context) {
	defer close(s.events)
	defer s.cancel()
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			s.send(ctx, ports.PositionEvent{Err: fmt.Errorf("read position feed: %w", err)})
			return
		}
		if !s.send(ctx, decodeFrame(payload)) {
			return
		}
	}
}

func (s *subscription) send(ctx context.Context, ev ports.PositionEvent) bool {
	select {
	case <-ctx.Done():
		return false
	case s.events <- ev:
		return true
	}
}

func decodeFrame(payload []byte) ports.PositionEvent {
	var fr frame
	if err := json.Unmarshal(payload, &fr); err != nil {
		return ports.PositionEvent{Err: fmt.Errorf("%w: %v", ErrBadFrame, err)}
	}
	if fr.Error != "" {
		return ports.PositionEvent{Err: fmt.Errorf("%w: %s", ErrDevice, fr.Error)}
	}
	if fr.Lat == nil || fr.Lng == nil {
		return ports.PositionEvent{Err: ErrBadFrame}
	}
	return ports.PositionEvent{Position: grid.Position{Lat: *fr.Lat, Lng: *fr.Lng}}
}
