package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

// collect reads up to n messages, giving up after timeout.
func collect(ch chan []byte, n int, timeout time.Duration) []string {
	var out []string
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-deadline:
			return out
		}
	}
	return out
}

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: RootChanged, Data: map[string]string{"dir": "/data"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: root.changed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"dir":"/data"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishChange_ArchiveChangedThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(PairCreated, "a.md")
	b.PublishChange(ThreadsUpdated, "")
	b.PublishChange("bogus", "x")

	msgs := collect(ch, 3, time.Second)
	time.Sleep(50 * time.Millisecond)
	msgs = append(msgs, drain(ch)...)
	changed, other := 0, 0
	for _, s := range msgs {
		if strings.Contains(s, "event: archive.changed") {
			changed++
		} else {
			other++
		}
	}
	if other != 2 {
		t.Errorf("change events = %d, want 2", other)
	}
	if changed != 1 {
		t.Errorf("archive.changed events = %d, want 1 (throttled)", changed)
	}
}

func TestPublishChange_Payload(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange(PairDeleted, "20260101_0900_00_web_x.md")
	msgs := collect(ch, 1, time.Second)
	if len(msgs) == 0 {
		t.Fatal("no events")
	}
	want := "event: pair.deleted\ndata: {\"file\":\"20260101_0900_00_web_x.md\"}\n\n"
	if msgs[0] != want {
		t.Errorf("first event = %q, want %q", msgs[0], want)
	}
}

// flushRecorder guards the recorder body for concurrent reads.
type flushRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (r *flushRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *flushRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Body.String()
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events", nil).WithContext(ctx)
	w := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b.PublishChange(PairUpdated, "x.md")
	deadline = time.Now().Add(time.Second)
	for !strings.Contains(w.body(), "event: pair.updated") {
		if time.Now().After(deadline) {
			t.Fatalf("handler output missing event: %q", w.body())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	deadline = time.Now().Add(time.Second)
	for b.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not cleaned up after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// The client buffer holds 64; extra messages are dropped, not blocked on.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]int{"i": i}})
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(drain(ch)); n > 64 {
		t.Errorf("delivered = %d, want at most 64", n)
	}
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	b.Publish(Event{Type: PairUpdated, Data: map[string]string{"file": "x.md"}})
	b.PublishChange(PairUpdated, "x.md")
}
