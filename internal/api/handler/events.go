package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/regexrelay/internal/api/response"
	"github.com/kiranshivaraju/regexrelay/internal/notify"
)

// heartbeatInterval is how often an SSE comment is written to keep idle
// connections from being reaped by intermediaries.
const heartbeatInterval = 30 * time.Second

// NewJobEventsHandler returns an http.HandlerFunc for GET /api/v1/jobs/events.
// It streams job snapshots as server-sent events for as long as the client
// stays connected. Observers only see events published after they connect;
// there is no replay.
func NewJobEventsHandler(b *notify.Broadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED",
				"Response writer does not support streaming", nil)
			return
		}

		// Subscribe before the headers go out so an event published the
		// moment the client sees 200 is not missed.
		sub := b.Subscribe()
		defer b.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case job, open := <-sub.Events():
				if !open {
					return
				}
				data, err := json.Marshal(job)
				if err != nil {
					slog.Error("marshal job event", "job_id", job.ID, "error", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: job\ndata: %s\n\n", data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}
