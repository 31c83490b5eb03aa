package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedEntries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "bdivp_audit_dropped_entries_total",
	Help: "Audit entries dropped because the inbox was full.",
})

// Store persists entries. Append must be safe for concurrent use.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, q Query) ([]Entry, error)
	Count(ctx context.Context, q Query) (int, error)
}

// Sink receives a best-effort copy of every entry, e.g. a Kafka mirror. A
// failing sink never affects persistence.
type Sink interface {
	Publish(ctx context.Context, e Entry)
}

const defaultInboxSize = 1024

// Recorder accepts entries from request handlers and hands them to a
// background worker. Record never blocks and never returns an error: a
// request must not fail because its audit trail could not be written.
type Recorder struct {
	inbox  chan Entry
	logger *slog.Logger
}

func NewRecorder(logger *slog.Logger, inboxSize int) *Recorder {
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}
	return &Recorder{
		inbox:  make(chan Entry, inboxSize),
		logger: logger,
	}
}

// Record enqueues an entry, stamping ID and CreatedAt when unset. When the
// inbox is full the entry is dropped and counted; the caller proceeds
// regardless.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	select {
	case r.inbox <- e:
	default:
		droppedEntries.Inc()
		r.logger.ErrorContext(ctx, "audit inbox full, entry dropped",
			"endpoint", e.Endpoint,
			"partner_id", e.PartnerID,
		)
	}
}

// Worker drains the recorder's inbox into the store, mirroring each entry to
// the optional sink. Store failures are logged and the entry is lost; the
// worker keeps running.
type Worker struct {
	recorder *Recorder
	store    Store
	sink     Sink
	logger   *slog.Logger
}

func NewWorker(recorder *Recorder, store Store, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{recorder: recorder, store: store, sink: sink, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case e := <-w.recorder.inbox:
			w.persist(ctx, e)
		}
	}
}

// drain gives queued entries one last write on shutdown, detached from the
// canceled request context.
func (w *Worker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case e := <-w.recorder.inbox:
			w.persist(ctx, e)
		default:
			return
		}
	}
}

func (w *Worker) persist(ctx context.Context, e Entry) {
	if err := w.store.Append(ctx, e); err != nil {
		w.logger.ErrorContext(ctx, "failed to persist audit entry",
			"error", err,
			"endpoint", e.Endpoint,
			"partner_id", e.PartnerID,
		)
	}
	if w.sink != nil {
		w.sink.Publish(ctx, e)
	}
}
