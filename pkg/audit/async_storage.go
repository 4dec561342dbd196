package audit

import (
	"context"
	"sync"
	"time"
)

const (
	defaultBufferSize     = 1000
	defaultBatchSize      = 100
	defaultBatchTimeout   = 100 * time.Millisecond
	defaultStorageTimeout = 5 * time.Second
)

// AsyncOptions configures batching and buffering. Zero fields take defaults.
type AsyncOptions struct {
	BufferSize     int           // events queued before falling back to direct writes
	BatchSize      int           // events per StoreBatch call
	BatchTimeout   time.Duration // max wait for a partial batch
	StorageTimeout time.Duration // per-batch write timeout

	// Detached makes Store return as soon as the event is queued. Write
	// failures then go to OnError instead of the caller.
	Detached bool
	OnError  func(err error, events []Event)
}

func (o AsyncOptions) withDefaults() AsyncOptions {
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = defaultBatchTimeout
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = defaultStorageTimeout
	}
	return o
}

// AsyncWriter groups events into batches on a background goroutine so the
// commit path of a transition never waits on one insert per event.
type AsyncWriter struct {
	bw      BatchWriter
	opts    AsyncOptions
	queue   chan queued
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type queued struct {
	event  Event
	result chan error // nil when detached
}

// NewAsyncWriter starts the batching goroutine. The returned function
// flushes what is queued and stops it.
func NewAsyncWriter(bw BatchWriter, opts AsyncOptions) (*AsyncWriter, func(context.Context) error) {
	if bw == nil {
		panic("audit: batch writer cannot be nil")
	}
	opts = opts.withDefaults()

	aw := &AsyncWriter{
		bw:      bw,
		opts:    opts,
		queue:   make(chan queued, opts.BufferSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go aw.run()

	return aw, aw.Close
}

// Store queues the event. Unless the writer is detached it waits for the
// batch holding the event to be written and returns that write's error.
func (aw *AsyncWriter) Store(ctx context.Context, event Event) error {
	select {
	case <-aw.done:
		return ErrStorageNotAvailable
	default:
	}

	item := queued{event: event}
	if !aw.opts.Detached {
		item.result = make(chan error, 1)
	}

	select {
	case aw.queue <- item:
	case <-ctx.Done():
		return ctx.Err()
	case <-aw.done:
		return ErrStorageNotAvailable
	default:
		// Buffer full: write directly rather than drop the event.
		return aw.bw.StoreBatch(ctx, []Event{event})
	}

	if item.result == nil {
		return nil
	}
	select {
	case err := <-item.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (aw *AsyncWriter) run() {
	defer close(aw.stopped)

	ticker := time.NewTicker(aw.opts.BatchTimeout)
	defer ticker.Stop()

	batch := make([]queued, 0, aw.opts.BatchSize)
	for {
		select {
		case item := <-aw.queue:
			batch = append(batch, item)
			if len(batch) >= aw.opts.BatchSize {
				batch = aw.flush(batch)
			}
		case <-ticker.C:
			batch = aw.flush(batch)
		case <-aw.done:
			// The queue stays open so a racing Store cannot panic on send.
			for {
				select {
				case item := <-aw.queue:
					batch = append(batch, item)
				default:
					aw.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes the batch on a detached context, so one caller's deadline
// cannot fail events queued by others, and returns the emptied slice.
func (aw *AsyncWriter) flush(batch []queued) []queued {
	if len(batch) == 0 {
		return batch
	}

	events := make([]Event, len(batch))
	for i, item := range batch {
		events[i] = item.event
	}

	ctx, cancel := context.WithTimeout(context.Background(), aw.opts.StorageTimeout)
	err := aw.bw.StoreBatch(ctx, events)
	cancel()

	if err != nil && aw.opts.OnError != nil {
		aw.opts.OnError(err, events)
	}
	for _, item := range batch {
		if item.result != nil {
			item.result <- err
		}
	}

	clear(batch)
	return batch[:0]
}

// Close flushes queued events and stops the worker. Events still queued when
// ctx expires may be lost. Calling Close more than once is safe.
func (aw *AsyncWriter) Close(ctx context.Context) error {
	aw.once.Do(func() { close(aw.done) })

	select {
	case <-aw.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
