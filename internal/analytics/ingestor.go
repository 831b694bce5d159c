package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oryx-ai/conductor/internal/store"
	"github.com/oryx-ai/conductor/internal/store/model"
)

// Ingestor decorates a store.UsageRepository with asynchronous, batched
// writes. Log never blocks the routing hot path; reads pass straight
// through to the underlying repository.
type Ingestor struct {
	logger    *zap.Logger
	next      store.UsageRepository
	logChan   chan *model.UsageLog
	done      chan struct{}
	batchSize int
	flushTime time.Duration
}

var _ store.UsageRepository = (*Ingestor)(nil)

func NewIngestor(next store.UsageRepository, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		logger:    logger,
		next:      next,
		logChan:   make(chan *model.UsageLog, 10000),
		done:      make(chan struct{}),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

// Log buffers the record for the flush worker. When the buffer is full the
// record is dropped rather than stalling a route.
func (i *Ingestor) Log(_ context.Context, rec *model.UsageLog) error {
	select {
	case i.logChan <- rec:
	default:
		i.logger.Warn("usage buffer full, dropping record",
			zap.String("request_id", rec.RequestID))
	}
	return nil
}

func (i *Ingestor) GetRecent(ctx context.Context, limit int) ([]model.UsageLog, error) {
	return i.next.GetRecent(ctx, limit)
}

func (i *Ingestor) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	return i.next.GetDailyStats(ctx, days)
}

func (i *Ingestor) Start() {
	go i.worker()
}

// Stop closes the intake channel and waits for the final flush.
func (i *Ingestor) Stop() {
	close(i.logChan)
	<-i.done
}

func (i *Ingestor) worker() {
	defer close(i.done)

	batch := make([]*model.UsageLog, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		for _, rec := range batch {
			if err := i.next.Log(ctx, rec); err != nil {
				i.logger.Error("failed to persist usage record",
					zap.String("request_id", rec.RequestID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec, ok := <-i.logChan:
			if !ok {
				flush()
				return
			}
			batch = append(batch, rec)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
