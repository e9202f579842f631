package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/worklog/internal/models"
)

// drain collects every message already queued on ch.
func drain(ch chan []byte) []string {
	var out []string
	for {
		select {
		case msg := <-ch:
			out = append(out, string(msg))
		case <-time.After(50 * time.Millisecond):
			return out
		}
	}
}

func TestBroker_ClientCount(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	a, c := b.Subscribe(), b.Subscribe()
	if n := b.ClientCount(); n != 2 {
		t.Fatalf("ClientCount = %d, want 2", n)
	}
	b.Unsubscribe(a)
	b.Unsubscribe(a)
	if n := b.ClientCount(); n != 1 {
		t.Fatalf("ClientCount = %d, want 1", n)
	}
	b.Unsubscribe(c)
}

func TestBroker_NotifyFrame(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Notify(models.Notification{Title: "工作日志缺失提醒", Body: "20260128", Silent: false})

	msgs := drain(ch)
	if len(msgs) != 1 {
		t.Fatalf("messages = %q", msgs)
	}
	m := msgs[0]
	for _, want := range []string{"id: 1\n", "event: notification\n", `"title":"工作日志缺失提醒"`, `"silent":false`} {
		if !strings.Contains(m, want) {
			t.Errorf("frame %q missing %q", m, want)
		}
	}
}

func TestBroker_DraftEventsAndThrottledSummary(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishDraftEvent("created", "daily/2026-01-27.md")
	b.PublishDraftEvent("updated", "daily/2026-01-28.md")
	b.PublishDraftEvent("chmod", "daily/2026-01-29.md")

	var drafts, summaries int
	for _, m := range drain(ch) {
		switch {
		case strings.Contains(m, "event: drafts.updated"):
			summaries++
		case strings.Contains(m, "event: draft."):
			drafts++
		}
		if strings.Contains(m, "2026-01-29") {
			t.Errorf("unknown kind was broadcast: %q", m)
		}
	}
	if drafts != 2 || summaries != 1 {
		t.Errorf("drafts = %d summaries = %d, want 2 and 1", drafts, summaries)
	}
}

func TestBroker_ReplayAfterLastEventID(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()

	probe := b.Subscribe()
	b.Notify(models.Notification{Title: "one"})
	b.Notify(models.Notification{Title: "two"})
	b.Notify(models.Notification{Title: "three"})
	if got := drain(probe); len(got) != 3 {
		t.Fatalf("probe = %q", got)
	}

	if got := drain(b.Subscribe()); len(got) != 0 {
		t.Errorf("plain subscribe replayed %q", got)
	}

	got := drain(b.subscribeAfter(1))
	if len(got) != 2 || !strings.Contains(got[0], `"two"`) || !strings.Contains(got[1], `"three"`) {
		t.Errorf("replay = %q", got)
	}
}

type flushRecorder struct {
	mu sync.Mutex
	*httptest.ResponseRecorder
}

func (f *flushRecorder) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ResponseRecorder.Write(p)
}

func (f *flushRecorder) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Body.String()
}

func TestBroker_ServeHTTP(t *testing.T) {
	b := NewBroker(time.Hour, WithHeartbeat(20*time.Millisecond))
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for b.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	b.PublishDraftEvent("deleted", "daily/2026-01-28.md")
	time.Sleep(80 * time.Millisecond)
	cancel()
	<-done

	body := w.body()
	if !strings.Contains(body, "event: draft.deleted") {
		t.Errorf("missing draft event in %q", body)
	}
	if !strings.Contains(body, ": ping") {
		t.Errorf("missing heartbeat in %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	deadline = time.Now().Add(time.Second)
	for b.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("client not removed after disconnect: %d", n)
	}
}

func TestBroker_SlowClientDoesNotBlock(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < clientBuffer+10; i++ {
		b.Notify(models.Notification{Title: "x"})
	}
	if n := b.ClientCount(); n != 1 {
		t.Errorf("ClientCount = %d", n)
	}
}

func TestBroker_Close(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	b.Close()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("subscriber channel still open")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed")
	}
	if n := b.ClientCount(); n != 0 {
		t.Errorf("ClientCount after Close = %d", n)
	}
	b.Notify(models.Notification{Title: "late"})
	b.PublishDraftEvent("updated", "daily/2026-01-28.md")
	if _, ok := <-b.Subscribe(); ok {
		t.Error("Subscribe after Close must return a closed channel")
	}
}
