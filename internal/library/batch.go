package library

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mediavault/internal/catalog"
	"mediavault/internal/logging"
	"mediavault/internal/notifications"
	"mediavault/internal/services"
	"mediavault/internal/transfer"
)

// ItemEmitter receives the status sequence of one item in a batch. Calls for
// different items may interleave but each item's statuses arrive in order.
type ItemEmitter func(id int64, status transfer.Status)

// BatchResult summarizes a batch download.
type BatchResult struct {
	Succeeded []int64
	Failed    map[int64]transfer.Status
	Skipped   int
	Duration  time.Duration
}

// DownloadAll downloads every item matching filter that is not yet
// downloaded, running at most pipeline.max_parallel downloads at once. One
// item failing does not stop the others; canceling ctx stops items that have
// not started.
func (m *Manager) DownloadAll(ctx context.Context, filter catalog.Filter, emit ItemEmitter) (BatchResult, error) {
	filter.DownloadedOnly = false
	records, err := m.store.List(ctx, filter)
	if err != nil {
		return BatchResult{}, err
	}

	start := time.Now()
	result := BatchResult{Failed: make(map[int64]transfer.Status)}
	var (
		mu      sync.Mutex
		pending []*catalog.Record
	)
	for _, rec := range records {
		if rec.Downloaded {
			result.Skipped++
			continue
		}
		pending = append(pending, rec)
	}

	limit := m.cfg.Pipeline.MaxParallel
	if limit <= 0 {
		limit = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)

	m.logger.Info("batch download started",
		logging.Int("items", len(pending)),
		logging.Int("parallel", limit),
		logging.String(logging.FieldEventType, "batch_started"),
	)

	for _, rec := range pending {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var itemEmit transfer.Emitter
			if emit != nil {
				itemEmit = func(status transfer.Status) { emit(rec.ID, status) }
			}
			var status transfer.Status
			if ctx.Err() != nil {
				err := services.Wrap(services.ErrCanceled, "library", "download all", "batch canceled", ctx.Err())
				status = transfer.Failure(err.Error(), err)
				emitTerminal(itemEmit, status)
			} else {
				status = m.download(ctx, rec, itemEmit)
			}
			mu.Lock()
			defer mu.Unlock()
			if status.Kind == transfer.StatusSuccess {
				result.Succeeded = append(result.Succeeded, rec.ID)
			} else {
				result.Failed[rec.ID] = status
			}
			return nil
		})
	}
	_ = g.Wait()
	slices.Sort(result.Succeeded)
	result.Duration = time.Since(start)

	m.logger.Info("batch download finished",
		logging.Int("succeeded", len(result.Succeeded)),
		logging.Int("failed", len(result.Failed)),
		logging.Int("skipped", result.Skipped),
		logging.Duration("duration", result.Duration),
		logging.String(logging.FieldEventType, "batch_completed"),
	)
	if len(pending) > 0 {
		m.publish(ctx, notifications.EventBatchCompleted, notifications.Payload{
			"succeeded": len(result.Succeeded),
			"failed":    len(result.Failed),
			"duration":  result.Duration,
		}, m.logger)
	}
	if ctx.Err() != nil {
		return result, services.Wrap(services.ErrCanceled, "library", "download all", "batch canceled", ctx.Err())
	}
	return result, nil
}
