// Command ingest loads files into one of the supported destination stores.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/internal/pipeline"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
	"github.com/ajitpratap0/nebula-ingest/pkg/observability"

	// Register every destination adapter.
	_ "github.com/ajitpratap0/nebula-ingest/pkg/connector/destinations"
)

var version = "0.1.0"

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest files into PostgreSQL, MongoDB, Neo4j, Qdrant or SQLite",
		Long: `ingest reads CSV, TSV, JSON Lines, JSON and text files and writes them to a
destination store. Each file is one unit of work; files are ingested concurrently.

Example:
  ingest postgres --uri postgres://localhost/app -p ./data --report`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ingest v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available destinations",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available destinations:")
			for _, kind := range registry.List() {
				info, _ := registry.GetRegistry().Info(kind)
				fmt.Fprintf(out, "  - %-9s %s (address env %s)\n", kind, info.Description, info.AddressEnv)
			}
		},
	})

	for _, kind := range registry.List() {
		root.AddCommand(newDestinationCmd(kind))
	}
	return root
}

func envFor(kind string) string {
	if info, ok := registry.GetRegistry().Info(kind); ok {
		return info.AddressEnv
	}
	return ""
}

func newDestinationCmd(kind string) *cobra.Command {
	v := viper.New()
	info, _ := registry.GetRegistry().Info(kind)

	cmd := &cobra.Command{
		Use:   kind,
		Short: info.Description,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := resolve(v, kind)
			if err != nil {
				return err
			}
			return execute(cmd.Context(), s)
		},
	}
	bindFlags(cmd, v, kind, envFor(kind))
	return cmd
}

// execute runs one ingestion. It returns an error only for a fatal outcome.
func execute(ctx context.Context, s *settings) error {
	if err := logger.Init(logger.Config{
		Level:       s.logLevel,
		Encoding:    "console",
		OutputPaths: []string{"stderr", s.logFile},
	}); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	tcfg := observability.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.TraceFile = s.run.TraceFile
	shutdown, err := observability.Initialize(tcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Get().Warn("failed to flush traces", zap.Error(err))
		}
	}()

	runner := &pipeline.Runner{Run: s.run, Ingestor: s.ingestor}
	report, err := runner.Execute(ctx)
	if err != nil {
		return err
	}
	logger.Get().Info("done",
		zap.Int("success_count", report.SuccessCount),
		zap.Int("failure_count", report.FailureCount))
	return nil
}
