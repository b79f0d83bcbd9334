package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/metrics"
	"github.com/ajitpratap0/nebula-ingest/pkg/reader"
)

// Runner wires one run together: adapter construction, path expansion, the
// controller, adapter shutdown and the report.
type Runner struct {
	Run      config.RunConfig
	Ingestor *config.IngestorConfig
	// Reader defaults to reader.New().
	Reader reader.Reader
	// Create defaults to registry.Create.
	Create core.Factory
}

// Execute performs the run. A non-nil error means the run is fatal: a strict
// halt, or a failure outside per-path ingestion. Per-path failures in
// non-strict mode only show up in the report.
func (r *Runner) Execute(ctx context.Context) (Report, error) {
	run := r.Run
	run.ApplyDefaults()
	if err := run.Validate(); err != nil {
		return Report{}, err
	}

	rd := r.Reader
	if rd == nil {
		rd = reader.New()
	}
	create := r.Create
	if create == nil {
		create = func(ctx context.Context, cfg *config.IngestorConfig) (core.Adapter, error) {
			return registry.Create(ctx, run.Destination, cfg)
		}
	}

	reportPath := ""
	if run.Report {
		reportPath = run.ReportPath
	}
	results := NewRegistry(run.Strict, reportPath)
	ctx = context.WithValue(ctx, logger.RunIDKey, uuid.NewString())
	log := logger.WithContext(ctx).With(zap.String("destination", run.Destination), zap.String("path", run.Path))
	start := time.Now()

	runErr := r.execute(ctx, run, rd, create, results, log)

	report := results.Snapshot()
	log.Info("ingestion finished",
		zap.Int("total_files", report.TotalFiles),
		zap.Int("success_count", report.SuccessCount),
		zap.Int("failure_count", report.FailureCount),
		zap.Duration("elapsed", time.Since(start)))

	if err := results.SaveReport(); err != nil {
		log.Error("failed to save report", zap.Error(err))
		if runErr == nil {
			runErr = err
		}
	}
	if run.MetricsFile != "" {
		if err := metrics.WriteTextfile(run.MetricsFile); err != nil {
			log.Warn("failed to write metrics", zap.String("metrics_file", run.MetricsFile), zap.Error(err))
		}
	}
	return report, runErr
}

func (r *Runner) execute(ctx context.Context, run config.RunConfig, rd reader.Reader, create core.Factory, results *Registry, log *zap.Logger) error {
	if r.Ingestor == nil {
		return errors.New(errors.ErrorTypeConfig, "ingestor configuration is required")
	}

	adapter, err := create(ctx, r.Ingestor)
	if err != nil {
		log.Error("failed to initialize destination", zap.Error(err))
		return results.RecordError(run.Path, fmt.Sprintf("initialization failed: %v", err))
	}
	defer func() {
		if err := adapter.Close(context.Background()); err != nil {
			log.Warn("failed to close destination", zap.Error(err))
		}
	}()

	paths, err := reader.Expand(run.Path)
	if err != nil {
		return results.RecordError(run.Path, err.Error())
	}

	ctrl := NewController(run.Concurrency, rd, results, run.Destination)
	return ctrl.Run(ctx, paths, adapter)
}
