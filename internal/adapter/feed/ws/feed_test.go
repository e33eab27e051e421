package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cachequest/internal/app/ports"
	"cachequest/internal/domain/grid"
)

// serveFrames upgrades each connection, writes frames, then waits for the
// client to hang up.
func serveFrames(t *testing.T, frames []string, closeAfter bool) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if closeAfter {
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func nextEvent(t *testing.T, sub ports.Subscription) ports.PositionEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		if !ok {
			t.Fatalf("expected event, stream closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for event")
	}
	return ports.PositionEvent{}
}

func TestFeed_DeliversFixesAndErrorsInOrder(t *testing.T) {
	url := serveFrames(t, []string{
		`{"lat":36.9895,"lng":-122.0628}`,
		`{"error":"permission denied"}`,
		`not json`,
		`{"lat":1}`,
		`{"lat":36.9896,"lng":-122.0627}`,
	}, false)

	sub, err := Feed{URL: url}.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Close()

	if ev := nextEvent(t, sub); ev.Err != nil || ev.Position != (grid.Position{Lat: 36.9895, Lng: -122.0628}) {
		t.Fatalf("unexpected first event %+v", ev)
	}
	if ev := nextEvent(t, sub); !errors.Is(ev.Err, ErrDevice) || !strings.Contains(ev.Err.Error(), "permission denied") {
		t.Fatalf("expected device error, got %v", ev.Err)
	}
	if ev := nextEvent(t, sub); !errors.Is(ev.Err, ErrBadFrame) {
		t.Fatalf("expected bad frame for invalid json, got %v", ev.Err)
	}
	if ev := nextEvent(t, sub); !errors.Is(ev.Err, ErrBadFrame) {
		t.Fatalf("expected bad frame for missing lng, got %v", ev.Err)
	}
	if ev := nextEvent(t, sub); ev.Err != nil || ev.Position.Lng != -122.0627 {
		t.Fatalf("unexpected last event %+v", ev)
	}
}

func TestFeed_ServerCloseEndsStream(t *testing.T) {
	url := serveFrames(t, []string{`{"lat":1,"lng":2}`}, true)
	sub, err := Feed{URL: url}.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	defer sub.Close()

	nextEvent(t, sub)
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatalf("expected stream to close after normal closure")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for close")
	}
}

func TestFeed_CloseEndsStream(t *testing.T) {
	url := serveFrames(t, nil, false)
	sub, err := Feed{URL: url}.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe error: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatalf("expected no events after close")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for close")
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}

func TestFeed_SubscribeErrors(t *testing.T) {
	if _, err := (Feed{}).Subscribe(context.Background()); !errors.Is(err, ErrMissingURL) {
		t.Fatalf("expected ErrMissingURL, got %v", err)
	}
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	if _, err := (Feed{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}).Subscribe(context.Background()); err == nil {
		t.Fatalf("expected dial error for non-websocket endpoint")
	}
}
