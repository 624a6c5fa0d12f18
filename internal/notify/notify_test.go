package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"

	"github.com/gonglijing/alertfi/internal/models"
)

func testAlert() models.Alert {
	return models.Alert{
		DetectorID:   3,
		DetectorName: "Kitchen <1>",
		Location:     "Kitchen",
		UserID:       1,
		UserName:     "Ana",
		UserEmail:    "ana@example.com",
		Notify:       true,
		Tier:         "Danger",
		PPM:          2500,
		Timestamp:    "2025-05-27T09:00:00Z",
		Message:      "PPM: 2500",
	}
}

type recordingNotifier struct {
	name   string
	err    error
	alerts []models.Alert
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(ctx context.Context, a models.Alert) error {
	r.alerts = append(r.alerts, a)
	return r.err
}

// ==================== Dispatcher ====================

func TestDispatcher_ContinuesAfterFailure(t *testing.T) {
	failing := &recordingNotifier{name: "bad", err: errors.New("down")}
	ok := &recordingNotifier{name: "ok"}
	d := NewDispatcher(failing, nil, ok)

	if d.Len() != 2 {
		t.Fatalf("Len = %d, want 2", d.Len())
	}
	err := d.Notify(context.Background(), testAlert())
	if err == nil || !strings.Contains(err.Error(), "bad: down") {
		t.Fatalf("err = %v", err)
	}
	if len(ok.alerts) != 1 {
		t.Fatalf("second notifier not called")
	}
}

func TestDispatcher_Empty(t *testing.T) {
	if err := NewDispatcher().Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("err = %v", err)
	}
}

// ==================== WebSocket ====================

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Clients() != 1 {
		t.Fatalf("clients = %d, want 1", hub.Clients())
	}

	if err := hub.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["tier"] != "Danger" || got["detector_name"] != "Kitchen <1>" {
		t.Fatalf("payload = %v", got)
	}
	if _, leaked := got["UserEmail"]; leaked {
		t.Fatalf("owner e-mail must not be broadcast")
	}
}

// ==================== 邮件 ====================

func TestEmailNotifier(t *testing.T) {
	var received emailPayload
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailConfig{APIURL: srv.URL, APIKey: "k"}, srv.Client())
	if err := n.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if apiKey != "k" {
		t.Fatalf("api-key header = %q", apiKey)
	}
	if len(received.To) != 1 || received.To[0].Email != "ana@example.com" {
		t.Fatalf("recipients = %+v", received.To)
	}
	if received.Sender.Name != "AlertFi" || received.Sender.Email != "no-reply@alertfi.com" {
		t.Fatalf("sender = %+v", received.Sender)
	}
	if !strings.Contains(received.HTMLContent, "Kitchen &lt;1&gt;") {
		t.Fatalf("html not escaped: %s", received.HTMLContent)
	}
}

func TestEmailNotifier_SkipsWhenDisabled(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailConfig{APIURL: srv.URL, APIKey: "k"}, srv.Client())
	a := testAlert()
	a.Notify = false
	if err := n.Notify(context.Background(), a); err != nil {
		t.Fatalf("notify: %v", err)
	}
	a = testAlert()
	a.UserEmail = ""
	_ = n.Notify(context.Background(), a)
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}

	if NewEmailNotifier(EmailConfig{}, nil) != nil {
		t.Fatal("notifier without api key should be nil")
	}
}

func TestEmailNotifier_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewEmailNotifier(EmailConfig{APIURL: srv.URL, APIKey: "k"}, srv.Client())
	err := n.Notify(context.Background(), testAlert())
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
}

// ==================== Kafka ====================

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink(t *testing.T) {
	if NewKafkaSink(nil, "alerts") != nil {
		t.Fatal("sink without brokers should be nil")
	}

	w := &fakeWriter{}
	sink := &KafkaSink{topic: "alertfi.alerts", writer: w}
	if err := sink.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "3" {
		t.Fatalf("key = %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "Danger" {
		t.Fatalf("headers = %+v", msg.Headers)
	}
	var decoded models.Alert
	if err := json.Unmarshal(msg.Value, &decoded); err != nil || decoded.PPM != 2500 {
		t.Fatalf("value = %s, %v", msg.Value, err)
	}
	_ = sink.Close()
	if !w.closed {
		t.Fatal("writer not closed")
	}
}
