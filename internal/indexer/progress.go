package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// EventType enumerates the stages of a streamed search.
type EventType string

const (
	EventSearchStarted  EventType = "search_started"
	EventIndexerPending EventType = "indexer_pending"
	EventIndexerResult  EventType = "indexer_result"
	EventIndexerFailed  EventType = "indexer_failed"
	EventSearchComplete EventType = "search_complete"
)

// ProgressEvent is one step of a fanned-out search, emitted on the channel
// SearchReleases returns. Consumers pull until EventSearchComplete.
type ProgressEvent struct {
	Type       EventType      `json:"type"`
	IndexerID  int64          `json:"indexerId,omitempty"`
	IndexerName string        `json:"indexerName,omitempty"`
	Results    []SearchResult `json:"results,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// SearchReleases fans a search out across every enabled indexer and streams
// progress events back on a bounded channel. The channel is closed once
// every indexer has reported in (success or failure) or ctx is cancelled.
// Results are deduplicated and blocklist-filtered before the caller sees
// the event carrying them.
func (m *Manager) SearchReleases(ctx context.Context, params SearchParams, blocked func(title string) bool) <-chan ProgressEvent {
	events := make(chan ProgressEvent, 32)

	m.mu.RLock()
	if blocked == nil {
		blocked = m.Blocklisted
	}
	type job struct {
		id     int64
		client Client
		config *IndexerConfig
	}
	var jobs []job
	for id, client := range m.indexers {
		cfg := m.configs[id]
		if cfg.Enabled {
			jobs = append(jobs, job{id, client, cfg})
		}
	}
	m.mu.RUnlock()

	go func() {
		defer close(events)

		send := func(e ProgressEvent) {
			e.Timestamp = time.Now()
			select {
			case events <- e:
			case <-ctx.Done():
			}
		}

		send(ProgressEvent{Type: EventSearchStarted})

		var wg sync.WaitGroup
		var mu sync.Mutex
		var all []SearchResult

		for _, j := range jobs {
			wg.Add(1)
			go func(j job) {
				defer wg.Done()
				send(ProgressEvent{Type: EventIndexerPending, IndexerID: j.id, IndexerName: j.config.Name})

				results, err := j.client.Search(params)
				if err != nil {
					send(ProgressEvent{Type: EventIndexerFailed, IndexerID: j.id, IndexerName: j.config.Name, Error: err.Error()})
					return
				}

				for i := range results {
					results[i].IndexerID = j.id
					results[i].IndexerName = j.config.Name
					results[i].IndexerType = j.config.Type
				}

				if blocked != nil {
					filtered := results[:0]
					for _, r := range results {
						if !blocked(r.Title) {
							filtered = append(filtered, r)
						}
					}
					results = filtered
				}

				mu.Lock()
				all = append(all, results...)
				mu.Unlock()

				send(ProgressEvent{Type: EventIndexerResult, IndexerID: j.id, IndexerName: j.config.Name, Results: results})
			}(j)
		}

		wg.Wait()

		mu.Lock()
		deduped := Dedupe(all)
		mu.Unlock()

		send(ProgressEvent{Type: EventSearchComplete, Results: deduped})
	}()

	return events
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProgressHub upgrades HTTP requests to websocket connections and relays
// ProgressEvents from a search to whichever client is subscribed.
type ProgressHub struct {
	log zerolog.Logger
}

// NewProgressHub creates a hub that writes JSON-encoded ProgressEvents to
// the upgraded connection.
func NewProgressHub(logger zerolog.Logger) *ProgressHub {
	return &ProgressHub{log: logger}
}

// Serve upgrades the request and streams events until the channel closes or
// the client disconnects.
func (h *ProgressHub) Serve(w http.ResponseWriter, r *http.Request, events <-chan ProgressEvent) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			continue
		}
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
		if event.Type == EventSearchComplete {
			return
		}
	}
}
