package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
	"github.com/ajitpratap0/nebula-ingest/pkg/observability"
	"github.com/ajitpratap0/nebula-ingest/pkg/reader"
)

// Controller bounds how many paths are ingested at once.
type Controller struct {
	concurrency int
	reader      reader.Reader
	results     *Registry
	destination string
	logger      *zap.Logger
}

// NewController creates a Controller admitting at most concurrency tasks.
// destination labels metrics and spans.
func NewController(concurrency int, rd reader.Reader, results *Registry, destination string) *Controller {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Controller{
		concurrency: concurrency,
		reader:      rd,
		results:     results,
		destination: destination,
		logger:      logger.With(zap.String("component", "controller"), zap.String("destination", destination)),
	}
}

// Run ingests every path into adapter and waits for all admitted tasks. Each
// admitted path is recorded exactly once. After a strict-mode failure no new
// path starts, tasks already running finish, and Run returns ErrStrictHalt.
// When ctx is cancelled admission stops the same way and Run returns the
// cancellation cause.
func (c *Controller) Run(ctx context.Context, paths []string, adapter core.Adapter) error {
	pool, err := ants.NewPool(c.concurrency)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to create worker pool")
	}
	defer pool.Release()

	var (
		wg     sync.WaitGroup
		halted atomic.Bool
	)

	c.logger.Info("starting ingestion", zap.Int("paths", len(paths)), zap.Int("concurrency", c.concurrency))

	for _, path := range paths {
		if halted.Load() || ctx.Err() != nil {
			break
		}

		wg.Add(1)
		// Submit blocks while every worker is busy.
		err := pool.Submit(func() {
			defer wg.Done()
			// A halt may have happened while this task waited for a slot.
			if halted.Load() {
				return
			}
			if errors.Is(c.runTask(ctx, path, adapter), ErrStrictHalt) {
				halted.Store(true)
			}
		})
		if err != nil {
			wg.Done()
			if errors.Is(c.fail(path, errors.Wrap(err, errors.ErrorTypeInternal, "failed to schedule task")), ErrStrictHalt) {
				halted.Store(true)
			}
		}
	}

	wg.Wait()

	if halted.Load() {
		return ErrStrictHalt
	}
	// Paths after the cancellation point were never admitted or recorded.
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "ingestion interrupted")
	}
	return nil
}

// runTask reads and ingests one path and records the outcome. It returns the
// Registry's verdict on a failure.
func (c *Controller) runTask(ctx context.Context, path string, adapter core.Adapter) (verdict error) {
	metrics.InFlight.Inc()
	defer metrics.InFlight.Dec()

	ctx = context.WithValue(ctx, logger.PathKey, path)
	ctx = context.WithValue(ctx, logger.DestinationKey, c.destination)
	ctx, span := observability.StartTask(ctx, path, c.destination)

	var taskErr error
	defer func() {
		if r := recover(); r != nil {
			taskErr = errors.Newf(errors.ErrorTypeInternal, "task panicked: %v", r)
		}
		elapsed := span.End(taskErr)
		metrics.IngestDuration.WithLabelValues(c.destination).Observe(elapsed.Seconds())

		if taskErr != nil {
			verdict = c.fail(path, taskErr)
			return
		}
		metrics.UnitsTotal.WithLabelValues(c.destination, "success").Inc()
		c.results.RecordSuccess()
		logger.WithContext(ctx).Debug("ingested", zap.Duration("elapsed", elapsed))
	}()

	unit, err := c.reader.Read(ctx, path)
	if err != nil {
		taskErr = err
		return nil
	}
	span.SetAttribute("ingest.unit_kind", unit.Kind())
	taskErr = adapter.Ingest(ctx, unit)
	return nil
}

func (c *Controller) fail(path string, err error) error {
	metrics.UnitsTotal.WithLabelValues(c.destination, "failure").Inc()
	return c.results.RecordError(path, fmt.Sprint(err))
}
