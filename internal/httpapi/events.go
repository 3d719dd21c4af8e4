package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/set-night/crazegpt/internal/domain"
)

const (
	eventSessionUpdate = "session_update"
	heartbeatInterval  = 15 * time.Second
	subscriberBuffer   = 8
)

// Broadcaster fans session updates out to every connected event stream.
// Slow subscribers miss events rather than block the chat.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan domain.ChatSession]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan domain.ChatSession]struct{})}
}

func (b *Broadcaster) Subscribe() (<-chan domain.ChatSession, func()) {
	ch := make(chan domain.ChatSession, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}
}

func (b *Broadcaster) Publish(session domain.ChatSession) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- session:
		default:
			slog.Warn("event subscriber lagging, dropping update", "session", session.ID)
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func sendSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	updates, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	slog.Debug("event stream opened", "remote", r.RemoteAddr)
	for {
		select {
		case <-ctx.Done():
			slog.Debug("event stream closed", "remote", r.RemoteAddr)
			return
		case session := <-updates:
			if err := sendSSE(w, flusher, eventSessionUpdate, session); err != nil {
				slog.Warn("write event", "error", err)
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
