package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/sx-tools/siriusx-to-mqtt/pkg/daq"
)

func TestPublishBroadcastsFrames(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	out := NewWS("", logger)
	defer out.Close()

	srv := httptest.NewServer(out)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// the handshake completes before the server registers the subscriber
	deadline := time.Now().Add(2 * time.Second)
	for {
		out.mu.Lock()
		n := len(out.clients)
		out.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	frames := []daq.Frame{{
		Channel:   0,
		Unit:      "g",
		Samples:   []float64{1.0, 2.0},
		Timestamp: time.Date(2026, 8, 28, 10, 15, 0, 0, time.UTC),
	}}
	if err := out.Publish(frames); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got []daq.Frame
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Channel != 0 || got[0].Unit != "g" || len(got[0].Samples) != 2 {
		t.Fatalf("broadcast frame mismatch: %+v", got)
	}
}

func TestPublishWithoutClients(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	out := NewWS("", logger)
	defer out.Close()

	if err := out.Publish([]daq.Frame{{Channel: 1, Samples: []float64{0.5}}}); err != nil {
		t.Fatalf("Publish with no clients: %v", err)
	}
}
