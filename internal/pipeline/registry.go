// Package pipeline runs an ingestion: it admits source paths through a bounded
// worker pool, hands each unit to the destination adapter and records every
// outcome in a Registry that produces the run report.
package pipeline

import (
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/json"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
)

// ErrStrictHalt is returned once a failure has been recorded in strict mode.
var ErrStrictHalt = errors.New(errors.ErrorTypeIngestion, "strict mode: halting after first failure")

// FileError is one failed path in a Report.
type FileError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// Report summarizes a run. TotalFiles always equals SuccessCount + FailureCount.
type Report struct {
	TotalFiles   int         `json:"total_files"`
	SuccessCount int         `json:"success_count"`
	FailureCount int         `json:"failure_count"`
	Errors       []FileError `json:"errors"`
}

// Registry collects task outcomes. It is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	success int
	errs    []FileError

	strict     bool
	reportPath string
	logger     *zap.Logger
}

// NewRegistry creates a Registry. An empty reportPath disables SaveReport.
func NewRegistry(strict bool, reportPath string) *Registry {
	return &Registry{
		strict:     strict,
		reportPath: reportPath,
		logger:     logger.With(zap.String("component", "results")),
	}
}

// RecordSuccess counts one successfully ingested path.
func (r *Registry) RecordSuccess() {
	r.mu.Lock()
	r.success++
	r.mu.Unlock()
}

// RecordError counts one failed path. In strict mode it returns ErrStrictHalt
// so the caller stops admitting work.
func (r *Registry) RecordError(path, msg string) error {
	r.mu.Lock()
	r.errs = append(r.errs, FileError{Path: path, Error: msg})
	r.mu.Unlock()

	r.logger.Error("ingestion failed", zap.String("path", path), zap.String("error", msg))
	if r.strict {
		return ErrStrictHalt
	}
	return nil
}

// Failed reports whether any failure was recorded.
func (r *Registry) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs) > 0
}

// Snapshot returns a copy of the current counters.
func (r *Registry) Snapshot() Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := make([]FileError, len(r.errs))
	copy(errs, r.errs)
	return Report{
		TotalFiles:   r.success + len(errs),
		SuccessCount: r.success,
		FailureCount: len(errs),
		Errors:       errs,
	}
}

// SaveReport writes the snapshot as JSON. It does nothing when reporting is off.
func (r *Registry) SaveReport() error {
	if r.reportPath == "" {
		return nil
	}

	data, err := json.Marshal(r.Snapshot())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode report")
	}
	if err := os.WriteFile(r.reportPath, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write report").WithDetail("path", r.reportPath)
	}
	r.logger.Info("report saved", zap.String("path", r.reportPath))
	return nil
}
