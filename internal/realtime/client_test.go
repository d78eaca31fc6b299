package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func wsServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(h, conn, r.URL.Query().Get("user"), testLockConfig()).Serve(context.Background())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func recv(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func TestClient_EndToEnd(t *testing.T) {
	h := startHub(t, testLockConfig())
	srv := wsServer(t, h)

	alice := dial(t, srv, "user=alice")
	anon := dial(t, srv, "")

	send(t, alice, `{"type":"join","data":{"event_id":7}}`)
	if env := recv(t, alice); env.Type != TypeLockedSeats {
		t.Fatalf("alice: expected snapshot, got %s", env.Type)
	}
	send(t, anon, `{"type":"join","data":{"event_id":7}}`)
	recv(t, anon)

	// authenticated connections cannot claim another holder id
	send(t, alice, `{"type":"lockSeat","data":{"event_id":7,"seat_index":3,"holder_id":"mallory"}}`)
	for _, conn := range []*websocket.Conn{alice, anon} {
		env := recv(t, conn)
		if env.Type != TypeSeatLocked || dataAs[SeatLocked](t, env).HolderID != "alice" {
			t.Fatalf("expected seatLocked by alice, got %s %s", env.Type, env.Data)
		}
	}

	send(t, anon, `{"type":"lockSeat","data":{"event_id":7,"seat_index":3}}`)
	if env := recv(t, anon); env.Type != TypeLockRejected {
		t.Fatalf("anon: expected rejection, got %s", env.Type)
	}

	// strict unlock by a stranger is ignored; the next frame anon sees is
	// the error for the bad frame that follows
	send(t, anon, `{"type":"unlockSeat","data":{"event_id":7,"seat_index":3}}`)
	send(t, anon, `not json`)
	env := recv(t, anon)
	if env.Type != TypeError || dataAs[ErrorMessage](t, env).Code != CodeBadFrame {
		t.Fatalf("anon: expected bad_frame error, got %s %s", env.Type, env.Data)
	}

	// alice drops; her lock is released to the remaining subscriber
	alice.Close()
	env = recv(t, anon)
	if env.Type != TypeSeatUnlocked || dataAs[SeatUnlocked](t, env).SeatIndex != 3 {
		t.Fatalf("anon: expected release of seat 3, got %s %s", env.Type, env.Data)
	}
}

func TestClient_InvalidFrames(t *testing.T) {
	h := startHub(t, testLockConfig())
	srv := wsServer(t, h)
	conn := dial(t, srv, "")

	cases := []struct {
		frame string
		code  string
	}{
		{`{"data":{}}`, CodeBadFrame},
		{`{"type":"dance"}`, CodeUnknownType},
		{`{"type":"join","data":{}}`, CodeInvalid},
		{`{"type":"lockSeat","data":{"event_id":7}}`, CodeInvalid},
		{`{"type":"lockSeat","data":{"event_id":7,"seat_index":-2}}`, CodeInvalid},
		{`{"type":"unlockSeat","data":"x"}`, CodeInvalid},
		{`{"type":"lockSeat","data":{"event_id":7,"seat_index":1}}`, CodeNotJoined},
	}
	for _, tc := range cases {
		send(t, conn, tc.frame)
		env := recv(t, conn)
		if env.Type != TypeError {
			t.Fatalf("%s: got %s", tc.frame, env.Type)
		}
		if got := dataAs[ErrorMessage](t, env).Code; got != tc.code {
			t.Fatalf("%s: code %s, want %s", tc.frame, got, tc.code)
		}
	}
	snap, err := h.Snapshot(context.Background(), 7)
	if err != nil || len(snap) != 0 {
		t.Fatalf("state touched by invalid frames: %v %v", snap, err)
	}
}
