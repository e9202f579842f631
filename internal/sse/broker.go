// Package sse streams notifications and draft changes to browsers over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/starford/worklog/internal/models"
)

const (
	clientBuffer   = 64
	backlogSize    = 32
	eventDrafts    = "drafts.updated"
	eventNotice    = "notification"
	draftPrefix    = "draft."
)

// Event is one message for every connected client.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type frame struct {
	id  uint64
	raw []byte
}

type subscribeReq struct {
	ch    chan []byte
	after uint64 // replay backlog frames with a larger id; 0 means none
}

type draftChange struct {
	kind string
	path string
}

// Broker fans events out to SSE clients. Its event loop owns the client
// set, the id sequence, a short replay backlog and the drafts.updated
// throttle; the exported methods only send to it.
type Broker struct {
	listEvery time.Duration
	heartbeat time.Duration

	subscribe   chan subscribeReq
	unsubscribe chan chan []byte
	events      chan Event
	drafts      chan draftChange
	count       chan chan int

	stop    chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// Option tunes a Broker.
type Option func(*Broker)

// WithHeartbeat sets how often idle streams receive a keep-alive comment.
// Zero disables heartbeats.
func WithHeartbeat(d time.Duration) Option {
	return func(b *Broker) { b.heartbeat = d }
}

// NewBroker starts a broker. listThrottle bounds how often the
// drafts.updated summary fires.
func NewBroker(listThrottle time.Duration, opts ...Option) *Broker {
	if listThrottle <= 0 {
		listThrottle = 2 * time.Second
	}
	b := &Broker{
		listEvery:   listThrottle,
		heartbeat:   25 * time.Second,
		subscribe:   make(chan subscribeReq),
		unsubscribe: make(chan chan []byte),
		events:      make(chan Event, 256),
		drafts:      make(chan draftChange, 256),
		count:       make(chan chan int),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	for _, o := range opts {
		o(b)
	}
	go b.loop()
	return b
}

// hub is the state owned by the event loop.
type hub struct {
	clients  map[chan []byte]struct{}
	seq      uint64
	backlog  []frame
	lastList time.Time
}

func (h *hub) send(ev Event) {
	payload, err := json.Marshal(ev.Data)
	if err != nil {
		return
	}
	h.seq++
	f := frame{
		id:  h.seq,
		raw: []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", h.seq, ev.Type, payload)),
	}
	h.backlog = append(h.backlog, f)
	if len(h.backlog) > backlogSize {
		h.backlog = h.backlog[len(h.backlog)-backlogSize:]
	}
	for ch := range h.clients {
		select {
		case ch <- f.raw:
		default: // slow client
		}
	}
}

func (h *hub) join(req subscribeReq) {
	h.clients[req.ch] = struct{}{}
	if req.after == 0 {
		return
	}
	for _, f := range h.backlog {
		if f.id <= req.after {
			continue
		}
		select {
		case req.ch <- f.raw:
		default:
		}
	}
}

func (b *Broker) loop() {
	defer close(b.stopped)
	h := &hub{clients: make(map[chan []byte]struct{})}

	for {
		select {
		case <-b.stop:
			for ch := range h.clients {
				close(ch)
			}
			return
		case req := <-b.subscribe:
			h.join(req)
		case ch := <-b.unsubscribe:
			if _, ok := h.clients[ch]; ok {
				delete(h.clients, ch)
				close(ch)
			}
		case ev := <-b.events:
			h.send(ev)
		case c := <-b.drafts:
			switch c.kind {
			case "created", "updated", "deleted":
			default:
				continue
			}
			h.send(Event{Type: draftPrefix + c.kind, Data: map[string]string{"path": c.path}})
			if now := time.Now(); now.Sub(h.lastList) >= b.listEvery {
				h.lastList = now
				h.send(Event{Type: eventDrafts, Data: map[string]string{}})
			}
		case resp := <-b.count:
			resp <- len(h.clients)
		}
	}
}

// Close stops the event loop and closes every client channel. It is safe
// to call more than once.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stop)
	}
	<-b.stopped
}

// Subscribe registers a client that receives events from now on.
func (b *Broker) Subscribe() chan []byte { return b.subscribeAfter(0) }

func (b *Broker) subscribeAfter(lastID uint64) chan []byte {
	ch := make(chan []byte, clientBuffer)
	if b.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case b.subscribe <- subscribeReq{ch: ch, after: lastID}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribe <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}
	resp := make(chan int, 1)
	select {
	case b.count <- resp:
	case <-b.stopped:
		return 0
	}
	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish queues ev for every client. It is a no-op after Close.
func (b *Broker) Publish(ev Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.events <- ev:
	case <-b.stopped:
	}
}

// Notify broadcasts n as a "notification" event.
func (b *Broker) Notify(n models.Notification) {
	b.Publish(Event{Type: eventNotice, Data: n})
}

// PublishDraftEvent reports a change to a stored draft. kind is created,
// updated or deleted; anything else is ignored.
func (b *Broker) PublishDraftEvent(kind, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.drafts <- draftChange{kind: kind, path: path}:
	case <-b.stopped:
	}
}

// ServeHTTP streams events to one client. A reconnecting EventSource sends
// Last-Event-ID and gets the backlog it missed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	lastID, _ := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.subscribeAfter(lastID)
	defer b.Unsubscribe(ch)

	var tick <-chan time.Time
	if b.heartbeat > 0 {
		t := time.NewTicker(b.heartbeat)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
