// Package runner executes batch fiche generation: many OCR source files in,
// one control-sheet workbook out per file, with per-file failure isolation.
package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"fichegen/internal/fiche"
	"fichegen/internal/metrics"
	"fichegen/internal/record"
	"fichegen/internal/storage"
)

// OutputDocument is a writable template copy that can serialize itself.
type OutputDocument interface {
	fiche.Document
	Bytes() ([]byte, error)
	Close() error
}

// Result is the outcome for one source file. Err is nil on success; a
// failed file never affects any other Result.
type Result struct {
	Source     string
	OutputPath string
	Report     fiche.Report
	Err        error
}

// Runner generates fiches for batches of source files.
//
// Collaborators are injected as factory seams so tests can run without xlsx
// files, a database, or a metrics intake. Each worker obtains its own fresh
// OutputDocument per file: populate calls never share a document.
type Runner struct {
	// ReadSet loads one source file into a record set.
	ReadSet func(path string) (*record.Set, error)

	// OpenDocument returns a fresh, privately owned copy of the template.
	OpenDocument func() (OutputDocument, error)

	// NewID mints ledger run ids. Defaults to UUIDs.
	NewID func() string

	Placement *fiche.Placement
	OutDir    string

	// Workers caps the number of files processed concurrently. <= 0 means 1.
	Workers int

	Log     *zap.Logger
	Metrics metrics.Backend
	// Ledger may be nil when no run log is configured.
	Ledger storage.Ledger

	// now is a clock seam for tests.
	now func() time.Time
}

func (r *Runner) defaults() {
	if r.NewID == nil {
		r.NewID = func() string { return uuid.NewString() }
	}
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	if r.Metrics == nil {
		r.Metrics = metrics.Noop{}
	}
	if r.now == nil {
		r.now = time.Now
	}
}

// Run processes inputs and returns one Result per input, in input order.
//
// Isolation contract: any failure (unreadable source, empty general sheet,
// template problems, ledger errors) is confined to its own Result. The
// batch always runs to completion unless ctx is canceled, in which case
// unstarted files report ctx.Err().
func (r *Runner) Run(ctx context.Context, inputs []string) []Result {
	r.defaults()

	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(inputs) {
		workers = len(inputs)
	}

	results := make([]Result, len(inputs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = r.processOne(ctx, inputs[i])
			}
		}()
	}

	for i := range inputs {
		if err := ctx.Err(); err != nil {
			results[i] = Result{Source: inputs[i], Err: err}
			continue
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			results[i] = Result{Source: inputs[i], Err: ctx.Err()}
		}
	}
	close(jobs)
	wg.Wait()

	return results
}

// diskName makes a display name safe to use as a file name under OutDir.
// Work-order numbers like "12/2026" are ordinary French formats, so the
// identifier can carry path separators; Report.FileName keeps them for
// display, the on-disk name must not. The result is always a single path
// element relative to OutDir.
func diskName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	for strings.Contains(name, "..") {
		name = strings.ReplaceAll(name, "..", ".")
	}
	return name
}

func (r *Runner) processOne(ctx context.Context, source string) Result {
	res := Result{Source: source}

	fail := func(err error) Result {
		res.Err = err
		r.Metrics.IncCounter(metrics.MetricFilesTotal, 1, metrics.Labels{"status": "failed"})
		r.Log.Warn("fiche generation failed",
			zap.String("source", source),
			zap.Error(err))
		return res
	}

	set, err := r.ReadSet(source)
	if err != nil {
		return fail(err)
	}

	doc, err := r.OpenDocument()
	if err != nil {
		return fail(err)
	}
	defer doc.Close()

	start := r.now()
	rep, err := fiche.Populate(set, r.Placement, doc)
	if err != nil {
		return fail(err)
	}
	res.Report = rep
	r.Metrics.ObserveHistogram(metrics.MetricPopulateMS, float64(r.now().Sub(start).Milliseconds()), nil)

	data, err := doc.Bytes()
	if err != nil {
		return fail(err)
	}
	res.OutputPath = filepath.Join(r.OutDir, diskName(rep.FileName))
	if err := os.WriteFile(res.OutputPath, data, 0o644); err != nil {
		return fail(err)
	}

	r.Metrics.IncCounter(metrics.MetricFilesTotal, 1, metrics.Labels{"status": "ok"})
	r.Metrics.IncCounter(metrics.MetricCellsWritten, float64(rep.CellsWritten), nil)
	r.Metrics.IncCounter(metrics.MetricSlotsFilled, float64(rep.SlotsFilled), nil)

	if r.Ledger != nil {
		run := storage.Run{
			ID:           r.NewID(),
			SourceFile:   source,
			OutputName:   rep.FileName,
			WorkOrder:    rep.Identifier,
			SlotsFilled:  rep.SlotsFilled,
			CellsWritten: rep.CellsWritten,
			GeneratedAt:  r.now().UTC(),
		}
		if err := r.Ledger.RecordRun(ctx, run); err != nil {
			// The workbook is already on disk; a ledger hiccup should not
			// fail the file. Log and move on.
			r.Log.Warn("ledger write failed",
				zap.String("source", source),
				zap.Error(err))
		}
	}

	r.Log.Info("fiche generated",
		zap.String("source", source),
		zap.String("output", res.OutputPath),
		zap.String("work_order", rep.Identifier),
		zap.Int("cells_written", rep.CellsWritten),
		zap.Int("slots_filled", rep.SlotsFilled))

	return res
}
