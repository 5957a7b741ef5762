// Command fichegen generates Fiche de Contrôle workbooks from OCR-exported
// technical-drawing workbooks.
//
// It loads a pipeline config, validates it, wires the optional metrics and
// run-ledger backends, and processes each source file as an independent unit
// of work: one bad export never blocks the rest of the batch.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fichegen/internal/config"
	"fichegen/internal/fiche"
	"fichegen/internal/metrics"
	"fichegen/internal/metrics/datadog"
	"fichegen/internal/record"
	"fichegen/internal/runner"
	"fichegen/internal/source/xlsx"
	"fichegen/internal/storage"
	"fichegen/internal/workbook"

	// register all ledger backends with the storage factory.
	// config selects which to use but the binary supports all of them.
	_ "fichegen/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		verbose bool
	)

	root := &cobra.Command{
		Use:           "fichegen",
		Short:         "Generate Fiche de Contrôle workbooks from OCR exports",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "configs/pipeline.json", "pipeline config JSON path")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	root.AddCommand(
		newGenerateCmd(&cfgPath, &verbose),
		newValidateCmd(&cfgPath),
		newLedgerCmd(&cfgPath),
	)
	return root
}

// loadValidated loads the config and prints every validation issue; it
// returns an error when any issue is SeverityError.
func loadValidated(cfgPath string) (config.Pipeline, error) {
	p, err := config.Load(cfgPath)
	if err != nil {
		return config.Pipeline{}, err
	}

	issues := config.Validate(p)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasError(issues) {
		return config.Pipeline{}, fmt.Errorf("configuration is invalid: %s", cfgPath)
	}
	return p, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newValidateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the pipeline configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := loadValidated(*cfgPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %s\n", *cfgPath)
			return nil
		},
	}
}

func newGenerateCmd(cfgPath *string, verbose *bool) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "generate [files or directories...]",
		Short: "Generate one control sheet per OCR source workbook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadValidated(*cfgPath)
			if err != nil {
				return err
			}
			if outDir != "" {
				cfg.Output.Dir = outDir
			}

			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync()

			return runGenerate(cmd.Context(), cfg, args, log, cmd)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides output.dir)")
	return cmd
}

func runGenerate(ctx context.Context, cfg config.Pipeline, args []string, log *zap.Logger, cmd *cobra.Command) error {
	inputs, err := expandInputs(args)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no .xlsx source files found in %s", strings.Join(args, ", "))
	}

	placement, err := loadPlacement(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	backend, err := newMetricsBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	var ledger storage.Ledger
	if cfg.Storage.Kind != "" {
		ledger, err = storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: os.ExpandEnv(cfg.Storage.DSN)})
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer ledger.Close()
		if err := ledger.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ledger schema: %w", err)
		}
	}

	r := &runner.Runner{
		ReadSet: func(path string) (*record.Set, error) {
			return xlsx.ReadRecordSet(path)
		},
		OpenDocument: func() (runner.OutputDocument, error) {
			return workbook.Open(cfg.Template.Path, placement.Sheet)
		},
		Placement: placement,
		OutDir:    cfg.Output.Dir,
		Workers:   cfg.Runtime.Workers,
		Log:       log,
		Metrics:   backend,
		Ledger:    ledger,
	}

	results := r.Run(ctx, inputs)

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "FAILED  %s: %v\n", res.Source, res.Err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK      %s -> %s\n", res.Source, res.OutputPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func newLedgerCmd(cfgPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recent generation runs from the configured ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidated(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Kind == "" {
				return fmt.Errorf("no ledger configured (storage.kind is empty)")
			}

			ctx := cmd.Context()
			l, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: os.ExpandEnv(cfg.Storage.DSN)})
			if err != nil {
				return fmt.Errorf("open ledger: %w", err)
			}
			defer l.Close()
			if err := l.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("ledger schema: %w", err)
			}

			runs, err := l.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			for _, run := range runs {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  OF=%-12s  slots=%d cells=%d  %s\n",
					run.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
					run.WorkOrder, run.SlotsFilled, run.CellsWritten, run.OutputName)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

// loadPlacement resolves the effective layout: defaults, an optional JSON
// override file, then the config's sheet override.
func loadPlacement(cfg config.Pipeline) (*fiche.Placement, error) {
	placement := fiche.DefaultPlacement()
	if cfg.Placement.Path != "" {
		p, err := fiche.LoadPlacement(cfg.Placement.Path)
		if err != nil {
			return nil, err
		}
		placement = p
	}
	if cfg.Template.Sheet != "" {
		placement.Sheet = cfg.Template.Sheet
	}
	return placement, nil
}

// newMetricsBackend picks the metrics backend from config: flag-free on
// purpose, the config file is the single source of truth for observability.
func newMetricsBackend(ctx context.Context, cfg config.Pipeline) (metrics.Backend, error) {
	switch cfg.Metrics.Backend {
	case "", "none":
		return metrics.Noop{}, nil
	case "datadog":
		job := cfg.Job
		if job == "" {
			job = "fichegen"
		}
		return datadog.NewBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       cfg.Metrics.Tags,
			FlushEvery: time.Duration(cfg.Metrics.FlushSeconds) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.Metrics.Backend)
	}
}

// expandInputs resolves files and directories to a flat list of xlsx
// sources. Directories are scanned one level deep; OCR exports land flat in
// a drop folder, so no recursion.
func expandInputs(args []string) ([]string, error) {
	var inputs []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			inputs = append(inputs, a)
			continue
		}
		entries, err := os.ReadDir(a)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || strings.HasPrefix(name, "~$") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
				continue
			}
			inputs = append(inputs, filepath.Join(a, name))
		}
	}
	return inputs, nil
}
