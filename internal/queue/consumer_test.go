package queue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iliyamo/event-ticket-booking/internal/config"
)

func TestHandleMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "booking.log")
	c := NewConsumer(config.QueueConfig{LogPath: path}, nil)

	body := `{"booking_id":9,"user_id":4,"event_id":2,"event_title":"Jazz Night","location":"Hall A",
		"starts_at":"2026-11-01T19:00:00Z","seats":[1,2],"quantity":2,"total_amount_cents":5000,
		"confirmed_at":"2026-10-14T10:00:00Z"}`
	if err := c.handleMessage([]byte(body)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := c.handleMessage([]byte(strings.Replace(body, `"booking_id":9`, `"booking_id":10`, 1))); err != nil {
		t.Fatalf("handle second: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 appended lines, got %d: %q", len(lines), raw)
	}
	for _, want := range []string{"booking_id=9", `event="Jazz Night"`, "quantity=2", "total=5000 cents", "seats=[1,2]"} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("line %q missing %q", lines[0], want)
		}
	}
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "booking.log")
	c := NewConsumer(config.QueueConfig{LogPath: path}, nil)

	for _, body := range []string{`not json`, `{"user_id":1}`} {
		if err := c.handleMessage([]byte(body)); err == nil {
			t.Fatalf("expected error for %q", body)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("log file written for rejected payloads")
	}
}

func TestFormatLineNoSeats(t *testing.T) {
	t.Parallel()

	line := formatLine(BookingConfirmedEvent{BookingID: 1, Quantity: 3})
	if !strings.Contains(line, "seats=[]") || !strings.HasSuffix(line, "\n") {
		t.Fatalf("unexpected line %q", line)
	}
}
