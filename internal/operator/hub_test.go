package operator_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/attendd/attendd/internal/operator"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newHubServer(t *testing.T) (*operator.Hub, string) {
	t.Helper()
	hub := operator.NewHub(quietLogger())
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func waitSubscribers(t *testing.T, hub *operator.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.SubscriberCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", hub.SubscriberCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBroadcastReachesEveryConsole(t *testing.T) {
	hub, url := newHubServer(t)

	a := dial(t, url)
	b := dial(t, url)
	waitSubscribers(t, hub, 2)

	hub.Broadcast("ATTENDANCE APPROVED: A B UID=10019 day1 (Lab A)")

	for _, conn := range []*websocket.Conn{a, b} {
		if got := readText(t, conn); got != "ATTENDANCE APPROVED: A B UID=10019 day1 (Lab A)" {
			t.Fatalf("got %q", got)
		}
	}
}

func TestBroadcastJSONDeliversEnvelope(t *testing.T) {
	hub, url := newHubServer(t)

	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	hub.BroadcastJSON(map[string]any{"type": "decision_request", "decision_id": "10019_1700000000"})

	var msg map[string]any
	if err := json.Unmarshal([]byte(readText(t, conn)), &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg["type"] != "decision_request" || msg["decision_id"] != "10019_1700000000" {
		t.Fatalf("msg = %v", msg)
	}
}

func TestDecisionResponseRoutedToResolver(t *testing.T) {
	hub, url := newHubServer(t)

	hub.OnDecision(func(_ context.Context, decisionID, decision string) any {
		return map[string]any{"success": true, "decision_id": decisionID, "decision": decision}
	})

	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	err := conn.WriteJSON(map[string]string{
		"type":        "decision_response",
		"decision_id": "10019_1700000000",
		"decision":    "approve",
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	var reply map[string]any
	if err := json.Unmarshal([]byte(readText(t, conn)), &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply["success"] != true || reply["decision_id"] != "10019_1700000000" || reply["decision"] != "approve" {
		t.Fatalf("reply = %v", reply)
	}
}

func TestDecisionResponseMissingFields(t *testing.T) {
	hub, url := newHubServer(t)
	hub.OnDecision(func(context.Context, string, string) any {
		t.Fatal("resolver called for malformed message")
		return nil
	})

	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	if err := conn.WriteJSON(map[string]string{"type": "decision_response"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var reply map[string]any
	if err := json.Unmarshal([]byte(readText(t, conn)), &reply); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if reply["error"] == nil {
		t.Fatalf("reply = %v, want error", reply)
	}
}

func TestPlainMessageAcknowledged(t *testing.T) {
	hub, url := newHubServer(t)

	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping from console")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := readText(t, conn); got != "Message received: ping from console" {
		t.Fatalf("got %q", got)
	}
}

func TestSubscriberLifecycle(t *testing.T) {
	hub, url := newHubServer(t)

	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	conn.Close()
	waitSubscribers(t, hub, 0)
}

func TestShutdownClosesConsoles(t *testing.T) {
	hub, url := newHubServer(t)

	conn := dial(t, url)
	waitSubscribers(t, hub, 1)

	hub.Shutdown()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Fatalf("err = %v, want going-away close", err)
	}
	if hub.SubscriberCount() != 0 {
		t.Fatalf("subscribers = %d after shutdown", hub.SubscriberCount())
	}
}
