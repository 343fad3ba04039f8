package extraction

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Handler processes one queued candidate id. It must absorb its own failures.
type Handler func(ctx context.Context, id string)

// Queue is an unbounded FIFO drained by a single worker, so at most one
// document is being extracted at any time.
type Queue struct {
	handle Handler
	log    *slog.Logger

	mu       sync.Mutex
	items    []string
	inFlight bool
	timeout  time.Duration
	wake     chan struct{}
	idle     chan struct{}
}

// NewQueue creates a queue that passes ids to handle in enqueue order.
func NewQueue(handle Handler, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Queue{
		handle: handle,
		log:    logger,
		wake:   make(chan struct{}, 1),
		idle:   make(chan struct{}, 1),
	}
}

// SetTimeout bounds a single handler call. Zero means no bound.
func (q *Queue) SetTimeout(d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if d >= 0 {
		q.timeout = d
	}
}

// Enqueue appends ids to the back of the queue. It never blocks.
func (q *Queue) Enqueue(ids ...string) {
	if len(ids) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, ids...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len returns the number of ids waiting or being processed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	if q.inFlight {
		n++
	}
	return n
}

// Idle is signalled each time the queue runs dry.
func (q *Queue) Idle() <-chan struct{} {
	return q.idle
}

// Run processes queued ids one at a time until ctx is cancelled.
// A handler call already in progress is allowed to finish.
func (q *Queue) Run(ctx context.Context) {
	q.log.Info("extraction worker started")
	defer q.log.Info("extraction worker stopped")

	for {
		id, ok := q.next()
		if !ok {
			select {
			case q.idle <- struct{}{}:
			default:
			}
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
				continue
			}
		}

		q.process(ctx, id)

		if ctx.Err() != nil {
			return
		}
	}
}

func (q *Queue) next() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return "", false
	}
	id := q.items[0]
	q.items = q.items[1:]
	q.inFlight = true
	return id, true
}

func (q *Queue) process(ctx context.Context, id string) {
	q.mu.Lock()
	timeout := q.timeout
	q.mu.Unlock()

	start := time.Now()
	runCtx := context.WithoutCancel(ctx)
	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}

	q.handle(runCtx, id)

	q.mu.Lock()
	q.inFlight = false
	remaining := len(q.items)
	q.mu.Unlock()

	q.log.Debug("extraction finished",
		slog.String("id", id),
		slog.Duration("took", time.Since(start)),
		slog.Int("remaining", remaining),
	)
}
