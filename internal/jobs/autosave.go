package jobs

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/karloscodes/cartridge"

	"insights/internal/analyses"
	"insights/internal/funnel"
	"insights/internal/metrics"
)

var ErrQueueClosed = errors.New("autosave queue is stopped")

type pendingDraft struct {
	name  string
	input funnel.Input
	timer *time.Timer
	seq   uint64
}

// AutosaveQueue debounces draft writes per owner. Each Submit replaces the
// owner's pending snapshot and restarts its timer, so only the last
// snapshot of a burst is written.
type AutosaveQueue struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	delay     time.Duration

	mu       sync.Mutex
	pending  map[string]*pendingDraft
	seq      uint64
	closed   bool
	inflight sync.WaitGroup
}

func NewAutosaveQueue(dbManager cartridge.DBManager, logger *slog.Logger, delay time.Duration) *AutosaveQueue {
	return &AutosaveQueue{
		dbManager: dbManager,
		logger:    logger,
		delay:     delay,
		pending:   make(map[string]*pendingDraft),
	}
}

// Submit validates in and schedules it as the owner's draft.
func (q *AutosaveQueue) Submit(ownerID, name string, in funnel.Input) error {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return analyses.ErrOwnerRequired
	}
	if err := in.Validate(); err != nil {
		return err
	}
	in = in.Normalize()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}

	if q.delay <= 0 {
		q.inflight.Add(1)
		q.mu.Unlock()
		defer q.inflight.Done()
		q.write(ownerID, name, in)
		return nil
	}

	q.seq++
	seq := q.seq
	if p, ok := q.pending[ownerID]; ok {
		p.timer.Stop()
	}
	q.pending[ownerID] = &pendingDraft{
		name:  name,
		input: in,
		seq:   seq,
		timer: time.AfterFunc(q.delay, func() { q.fire(ownerID, seq) }),
	}
	q.mu.Unlock()
	return nil
}

func (q *AutosaveQueue) fire(ownerID string, seq uint64) {
	q.mu.Lock()
	p, ok := q.pending[ownerID]
	if !ok || p.seq != seq {
		q.mu.Unlock()
		return
	}
	delete(q.pending, ownerID)
	q.inflight.Add(1)
	q.mu.Unlock()

	defer q.inflight.Done()
	q.write(ownerID, p.name, p.input)
}

func (q *AutosaveQueue) write(ownerID, name string, in funnel.Input) {
	_, err := analyses.SaveDraft(q.dbManager.GetConnection(), q.logger, ownerID, name, in)
	if err != nil {
		metrics.ObserveAutosave(metrics.AutosaveFailed)
		q.logger.Error("Failed to autosave draft", slog.String("owner", ownerID), slog.Any("error", err))
		return
	}
	metrics.ObserveAutosave(metrics.AutosaveOK)
	q.logger.Debug("Autosaved draft", slog.String("owner", ownerID))
}

// Pending returns the number of owners with an unwritten snapshot.
func (q *AutosaveQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush writes every pending snapshot now.
func (q *AutosaveQueue) Flush() {
	q.mu.Lock()
	drafts := q.pending
	q.pending = make(map[string]*pendingDraft)
	for _, p := range drafts {
		p.timer.Stop()
	}
	q.mu.Unlock()

	for ownerID, p := range drafts {
		q.write(ownerID, p.name, p.input)
	}
	q.inflight.Wait()
}

// Start implements cartridge.BackgroundWorker.
func (q *AutosaveQueue) Start() error {
	q.logger.Info("Autosave queue started", slog.Duration("delay", q.delay))
	return nil
}

// Stop rejects new submissions and flushes what is pending.
// Implements cartridge.BackgroundWorker interface.
func (q *AutosaveQueue) Stop() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.Flush()
	q.logger.Info("Autosave queue stopped")
}
