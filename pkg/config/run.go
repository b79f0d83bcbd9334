package config

import (
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

// RunConfig controls a whole ingestion run.
type RunConfig struct {
	Destination string `yaml:"destination"`
	Path        string `yaml:"path"`
	Concurrency int    `yaml:"concurrency"`
	Strict      bool   `yaml:"strict"`
	Report      bool   `yaml:"report"`
	ReportPath  string `yaml:"report_path"`
	MetricsFile string `yaml:"metrics_file"`
	TraceFile   string `yaml:"trace_file"`
}

// Profile is the on-disk form of a run: run settings plus the adapter config.
type Profile struct {
	RunConfig `yaml:",inline"`
	LogLevel  string         `yaml:"log_level"`
	Ingestor  IngestorConfig `yaml:"ingestor"`
}

// ApplyDefaults fills unset fields.
func (r *RunConfig) ApplyDefaults() {
	if r.Concurrency == 0 {
		r.Concurrency = DefaultConcurrency
	}
	if r.ReportPath == "" {
		r.ReportPath = DefaultReportPath
	}
}

// Validate checks the run settings.
func (r *RunConfig) Validate() error {
	if r.Path == "" {
		return errors.New(errors.ErrorTypeConfig, "input path is required")
	}
	if r.Concurrency < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "concurrency must be at least 1, got %d", r.Concurrency)
	}
	return nil
}
