package history

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/tripsense/internal/metrics"
	"github.com/khanglvm/tripsense/internal/storage"
)

const (
	// eventQueueSize is the buffer size for the event queue.
	// If full, events are dropped (non-blocking).
	eventQueueSize = 1000

	// batchFlushSize is the number of events that triggers an immediate flush.
	batchFlushSize = 10

	// flushInterval is how often pending events are flushed.
	flushInterval = 50 * time.Millisecond
)

// Recorder is the subset of storage the tracker writes to.
type Recorder interface {
	Init() error
	RecordSearch(search storage.SearchRecord) error
}

// Tracker records search events in the background with non-blocking writes.
type Tracker struct {
	store      Recorder
	eventQueue chan SearchEvent
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
	enabled    bool
	mu         sync.RWMutex
	logger     zerolog.Logger
}

// NewTracker initializes store and starts the background flusher.
// If store cannot be initialized the tracker is disabled.
func NewTracker(store Recorder, logger zerolog.Logger) *Tracker {
	t := &Tracker{
		store:      store,
		eventQueue: make(chan SearchEvent, eventQueueSize),
		stopChan:   make(chan struct{}),
		enabled:    true,
		logger:     logger.With().Str("component", "history").Logger(),
	}

	if store == nil {
		t.enabled = false
	} else if err := store.Init(); err != nil {
		t.logger.Warn().Err(err).Msg("history storage initialization failed, tracking disabled")
		t.enabled = false
	}

	t.wg.Add(1)
	go t.processEvents()

	return t
}

// Track queues an event. It never blocks; a full queue drops the event.
func (t *Tracker) Track(event SearchEvent) {
	if !t.IsEnabled() {
		return
	}

	select {
	case t.eventQueue <- event:
	default:
		metrics.HistoryDropped.Inc()
		t.logger.Warn().Str("search_id", event.SearchID).Msg("history queue full, dropping event")
	}
}

// Stop flushes queued events and stops the background goroutine.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopChan)
		t.wg.Wait()
	})
}

// Disable makes Track a no-op.
func (t *Tracker) Disable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
}

// Enable re-enables tracking.
func (t *Tracker) Enable() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = t.store != nil
}

// IsEnabled returns whether tracking is enabled.
func (t *Tracker) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// QueueSize returns the number of events waiting to be flushed.
func (t *Tracker) QueueSize() int {
	return len(t.eventQueue)
}

func (t *Tracker) processEvents() {
	defer t.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]SearchEvent, 0, batchFlushSize)

	for {
		select {
		case event := <-t.eventQueue:
			batch = append(batch, event)
			if len(batch) >= batchFlushSize {
				t.flush(batch)
				batch = make([]SearchEvent, 0, batchFlushSize)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				t.flush(batch)
				batch = make([]SearchEvent, 0, batchFlushSize)
			}

		case <-t.stopChan:
			for {
				select {
				case event := <-t.eventQueue:
					batch = append(batch, event)
				default:
					t.flush(batch)
					return
				}
			}
		}
	}
}

func (t *Tracker) flush(events []SearchEvent) {
	for _, event := range events {
		if err := t.store.RecordSearch(event.ToStorage()); err != nil {
			t.logger.Warn().Err(err).Msg("failed to record search")
		}
	}
}
