// internal/historian/historian.go
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/taboo/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns (nil, nil) when nothing
// arrived within timeout.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*models.ActionRecord, error)
}

// Requeuer is implemented by sources that can take records back, so a failed
// shutdown flush hands them to the next historian instead of dropping them.
type Requeuer interface {
	Requeue(ctx context.Context, recs []models.ActionRecord) error
}

// Sink persists a batch of records.
type Sink interface {
	InsertActions(ctx context.Context, recs []models.ActionRecord) error
}

// Options tune batching. Zero values take the defaults.
type Options struct {
	BatchSize  int
	FlushDelay time.Duration
	PopTimeout time.Duration
	// MaxPending caps records held in memory across failed flushes. The
	// oldest are dropped first.
	MaxPending int
}

// Service drains a Source into a Sink in batches. A batch is flushed when it
// reaches BatchSize or when FlushDelay passes, whichever comes first.
type Service struct {
	source Source
	sink   Sink
	opts   Options
	logger *logrus.Logger

	batchMu sync.Mutex
	batch   []models.ActionRecord
}

// New builds a Service.
func New(source Source, sink Sink, opts Options, logger *logrus.Logger) *Service {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 20
	}
	if opts.FlushDelay <= 0 {
		opts.FlushDelay = 500 * time.Millisecond
	}
	if opts.PopTimeout <= 0 {
		opts.PopTimeout = 3 * time.Second
	}
	if opts.MaxPending <= 0 {
		opts.MaxPending = 50 * opts.BatchSize
	}
	if opts.MaxPending < opts.BatchSize {
		opts.MaxPending = opts.BatchSize
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source: source,
		sink:   sink,
		opts:   opts,
		logger: logger,
		batch:  make([]models.ActionRecord, 0, opts.BatchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("taboo-historian started")
	defer s.logger.Info("taboo-historian stopped")

	go s.flushLoop(ctx)

	for {
		if ctx.Err() != nil {
			break
		}
		rec, err := s.source.Pop(ctx, s.opts.PopTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Errorf("pop: %v", err)
			// Back off so a dead Redis does not spin the loop.
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if rec == nil {
			continue
		}
		s.append(ctx, *rec)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Flush(flushCtx); err != nil {
		s.requeue(flushCtx)
	}
}

// requeue hands unflushed records back to the source when it supports it.
func (s *Service) requeue(ctx context.Context) {
	rq, ok := s.source.(Requeuer)
	if !ok {
		s.logger.Warnf("dropping %d unflushed actions", s.Pending())
		return
	}
	s.batchMu.Lock()
	pending := s.batch
	s.batch = nil
	s.batchMu.Unlock()
	if len(pending) == 0 {
		return
	}
	if err := rq.Requeue(ctx, pending); err != nil {
		s.logger.Errorf("requeue %d actions: %v", len(pending), err)
		return
	}
	s.logger.WithField("count", len(pending)).Info("requeued unflushed actions")
}

func (s *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Flush(ctx)
		}
	}
}

// append adds a record to the in-memory batch and flushes if the threshold is reached.
func (s *Service) append(ctx context.Context, rec models.ActionRecord) {
	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.opts.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the pending batch. On failure the records are put back at the
// front of the batch for the next attempt, trimmed to MaxPending.
func (s *Service) Flush(ctx context.Context) error {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return nil
	}
	pending := s.batch
	s.batch = make([]models.ActionRecord, 0, s.opts.BatchSize)
	s.batchMu.Unlock()

	if err := s.sink.InsertActions(ctx, pending); err != nil {
		s.logger.Errorf("flush %d actions: %v", len(pending), err)
		s.batchMu.Lock()
		s.batch = append(pending, s.batch...)
		if over := len(s.batch) - s.opts.MaxPending; over > 0 {
			s.logger.Warnf("dropping %d oldest actions over the pending cap", over)
			s.batch = append([]models.ActionRecord(nil), s.batch[over:]...)
		}
		s.batchMu.Unlock()
		return err
	}
	s.logger.WithField("count", len(pending)).Debug("flushed actions")
	return nil
}

// Pending returns the number of records waiting to be flushed.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
