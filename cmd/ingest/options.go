package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
)

// Viper keys shared by every destination command.
const (
	keyAddress        = "address"
	keyPath           = "path"
	keyConcurrency    = "concurrency"
	keyStrict         = "strict"
	keyReport         = "report"
	keyReportPath     = "report-path"
	keyCollectionName = "collection-name"
	keyVectorSize     = "vector-size"
	keyMap            = "map"
	keyOpenAIKey      = "openai-api-key"
	keyEmbedField     = "embed-field"
	keyRelationships  = "relationships"
	keyDatabase       = "database"
	keyConfig         = "config"
	keyLogLevel       = "log-level"
	keyLogFile        = "log-file"
	keyMetricsFile    = "metrics-file"
	keyTraceFile      = "trace-file"
)

// settings is everything a destination command needs to start a run.
type settings struct {
	run      config.RunConfig
	ingestor *config.IngestorConfig
	logLevel string
	logFile  string
}

// addressFlag names the destination address flag for kind.
func addressFlag(kind string) string {
	if kind == core.KindSQLite {
		return "db-path"
	}
	return "uri"
}

// bindFlags declares the run flags on cmd and binds them, and their
// environment fallbacks, into v.
func bindFlags(cmd *cobra.Command, v *viper.Viper, kind, addressEnv string) {
	f := cmd.Flags()
	f.String(addressFlag(kind), "", "Destination address (env "+addressEnv+")")
	f.StringP(keyPath, "p", "", "File or directory to ingest (required)")
	f.IntP(keyConcurrency, "c", config.DefaultConcurrency, "Maximum number of files ingested at once")
	f.Bool(keyStrict, false, "Stop admitting files after the first failure and exit non-zero")
	f.Bool(keyReport, false, "Write a JSON report of the run")
	f.String(keyReportPath, config.DefaultReportPath, "Report file written with --report")
	f.String(keyCollectionName, "", "Collection, table or graph label to write to")
	f.Uint64(keyVectorSize, config.DefaultVectorSize, "Vector dimension for new vector collections")
	f.StringSlice(keyMap, nil, "Column renames as src:dst pairs, comma separated")
	f.String(keyOpenAIKey, "", "OpenAI API key used to embed --embed-field (env OPENAI_API_KEY)")
	f.String(keyEmbedField, "", "Record field whose text is embedded")
	f.String(keyRelationships, "", "Graph relationship rules as a JSON array")
	f.String(keyDatabase, config.DefaultDatabase, "Document database name")
	f.String(keyConfig, "", "YAML run profile")
	f.String(keyLogLevel, "info", "Log level: debug, info, warn, error (env INGEST_LOG_LEVEL)")
	f.String(keyLogFile, config.DefaultLogFile, "Log file written in addition to stderr")
	f.String(keyMetricsFile, "", "Write Prometheus metrics in text format to this file when the run ends")
	f.String(keyTraceFile, "", "Write OpenTelemetry spans to this file")

	_ = v.BindPFlag(keyAddress, f.Lookup(addressFlag(kind)))
	for _, key := range []string{
		keyPath, keyConcurrency, keyStrict, keyReport, keyReportPath, keyCollectionName,
		keyVectorSize, keyMap, keyOpenAIKey, keyEmbedField, keyRelationships, keyDatabase,
		keyConfig, keyLogLevel, keyLogFile, keyMetricsFile, keyTraceFile,
	} {
		_ = v.BindPFlag(key, f.Lookup(key))
	}

	_ = v.BindEnv(keyAddress, addressEnv)
	_ = v.BindEnv(keyOpenAIKey, "OPENAI_API_KEY")
	_ = v.BindEnv(keyLogLevel, "INGEST_LOG_LEVEL")
}

// loadProfile reads the --config profile, if any, into v's config layer so
// that flags and environment variables still take precedence over it.
func loadProfile(v *viper.Viper, kind string) (*config.Profile, error) {
	path := v.GetString(keyConfig)
	if path == "" {
		return nil, nil
	}

	var p config.Profile
	if err := config.Load(path, &p); err != nil {
		return nil, err
	}
	if p.Destination != "" && p.Destination != kind {
		return nil, errors.Newf(errors.ErrorTypeConfig, "profile is for destination %q, not %q", p.Destination, kind)
	}

	layer := map[string]any{}
	set := func(key string, val any, ok bool) {
		if ok {
			layer[key] = val
		}
	}
	set(keyAddress, p.Ingestor.DatabaseURL, p.Ingestor.DatabaseURL != "")
	set(keyPath, p.Path, p.Path != "")
	set(keyConcurrency, p.Concurrency, p.Concurrency != 0)
	set(keyStrict, p.Strict, p.Strict)
	set(keyReport, p.Report, p.Report)
	set(keyReportPath, p.ReportPath, p.ReportPath != "")
	set(keyCollectionName, p.Ingestor.CollectionName, p.Ingestor.CollectionName != "")
	set(keyVectorSize, p.Ingestor.VectorSize, p.Ingestor.VectorSize != 0)
	set(keyOpenAIKey, p.Ingestor.EmbeddingAPIKey, p.Ingestor.EmbeddingAPIKey != "")
	set(keyEmbedField, p.Ingestor.EmbedField, p.Ingestor.EmbedField != "")
	set(keyDatabase, p.Ingestor.Database, p.Ingestor.Database != "")
	set(keyLogLevel, p.LogLevel, p.LogLevel != "")
	set(keyMetricsFile, p.MetricsFile, p.MetricsFile != "")
	set(keyTraceFile, p.TraceFile, p.TraceFile != "")

	if err := v.MergeConfigMap(layer); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to apply profile")
	}
	return &p, nil
}

// resolve combines flags, environment and profile into run settings.
func resolve(v *viper.Viper, kind string) (*settings, error) {
	profile, err := loadProfile(v, kind)
	if err != nil {
		return nil, err
	}

	mappings := map[string]string{}
	var rules []config.RelationshipRule
	if profile != nil {
		for src, dst := range profile.Ingestor.Mappings {
			mappings[src] = dst
		}
		rules = profile.Ingestor.Relationships
	}

	flagMappings, err := config.ParseMappings(v.GetStringSlice(keyMap))
	if err != nil {
		return nil, err
	}
	for src, dst := range flagMappings {
		mappings[src] = dst
	}
	if err := config.ValidateMappings(mappings); err != nil {
		return nil, err
	}
	if len(mappings) == 0 {
		mappings = nil
	}

	if raw := v.GetString(keyRelationships); strings.TrimSpace(raw) != "" {
		rules = config.ParseRelationships(raw)
	}

	s := &settings{
		run: config.RunConfig{
			Destination: kind,
			Path:        v.GetString(keyPath),
			Concurrency: v.GetInt(keyConcurrency),
			Strict:      v.GetBool(keyStrict),
			Report:      v.GetBool(keyReport),
			ReportPath:  v.GetString(keyReportPath),
			MetricsFile: v.GetString(keyMetricsFile),
			TraceFile:   v.GetString(keyTraceFile),
		},
		ingestor: &config.IngestorConfig{
			DatabaseURL:     v.GetString(keyAddress),
			CollectionName:  v.GetString(keyCollectionName),
			VectorSize:      v.GetUint64(keyVectorSize),
			Mappings:        mappings,
			EmbeddingAPIKey: v.GetString(keyOpenAIKey),
			EmbedField:      v.GetString(keyEmbedField),
			Relationships:   rules,
			Database:        v.GetString(keyDatabase),
		},
		logLevel: v.GetString(keyLogLevel),
		logFile:  v.GetString(keyLogFile),
	}
	s.run.ApplyDefaults()

	if err := s.run.Validate(); err != nil {
		return nil, err
	}
	if s.ingestor.DatabaseURL == "" {
		return nil, errors.Newf(errors.ErrorTypeConfig, "destination address is required: use --%s or set %s",
			addressFlag(kind), envFor(kind))
	}
	return s, nil
}
