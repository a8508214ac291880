package formd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/model"
)

// Period is one reporting window's source: a directory of TSVs or a ZIP
// archive of them.
type Period struct {
	Name    string
	Path    string
	Archive bool
}

// DiscoverPeriods lists the periods under dataDir, sorted by name.
// Subdirectories whose name contains a Q (either case) count, as do .zip
// archives. An archive whose stem matches a directory is ignored in favor
// of the extracted copy. If dataDir itself holds the required files it is
// returned as the only period.
func DiscoverPeriods(dataDir string) ([]Period, error) {
	if len(MissingFiles(dataDir)) == 0 {
		abs, err := filepath.Abs(dataDir)
		if err != nil {
			return nil, eris.Wrap(err, "formd: resolve data dir")
		}
		return []Period{{Name: filepath.Base(abs), Path: dataDir}}, nil
	}

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, eris.Wrapf(err, "formd: list %s", dataDir)
	}

	var periods []Period
	dirs := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() && strings.ContainsAny(e.Name(), "Qq") {
			periods = append(periods, Period{Name: e.Name(), Path: filepath.Join(dataDir, e.Name())})
			dirs[strings.ToLower(e.Name())] = true
		}
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".zip") {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if dirs[strings.ToLower(stem)] {
			continue
		}
		periods = append(periods, Period{Name: stem, Path: filepath.Join(dataDir, e.Name()), Archive: true})
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].Name < periods[j].Name })
	return periods, nil
}

// OutputFile returns the per-period output file name.
func OutputFile(outputDir, period string) string {
	return filepath.Join(outputDir, "companies_sec_"+period+".json")
}

// Status is the outcome of processing one period.
type Status string

// Period outcomes.
const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// PeriodResult describes one processed, skipped or failed period.
type PeriodResult struct {
	Period               Period
	Status               Status
	OutputPath           string
	Companies            int
	Executives           int
	DroppedWithoutIssuer int
	Err                  error
}

// Summary collects per-period results in discovery order.
type Summary struct {
	Results []PeriodResult
}

// Count returns the number of periods with the given status.
func (s *Summary) Count(st Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == st {
			n++
		}
	}
	return n
}

// Names returns the names of periods with the given status.
func (s *Summary) Names(st Status) []string {
	var out []string
	for _, r := range s.Results {
		if r.Status == st {
			out = append(out, r.Period.Name)
		}
	}
	return out
}

// Processor builds and writes per-period outputs.
type Processor struct {
	OutputDir   string
	TempDir     string // extraction scratch space for archives; "" = os.TempDir
	Concurrency int
	Reference   time.Time
	Now         func() time.Time
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ProcessPeriod loads, builds and writes one period. Missing inputs yield
// an error wrapping ErrPeriodSkipped.
func (p *Processor) ProcessPeriod(ctx context.Context, period Period) (*PeriodResult, error) {
	dir := period.Path
	if period.Archive {
		found, err := fetcher.ZIPContains(period.Path, RequiredFiles...)
		if err != nil {
			return nil, eris.Wrapf(err, "formd: inspect %s", period.Name)
		}
		var missing []string
		for _, name := range RequiredFiles {
			if !found[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return nil, eris.Wrapf(ErrPeriodSkipped, "missing files: %s", strings.Join(missing, ", "))
		}

		tmp, err := os.MkdirTemp(p.TempDir, "formd-"+period.Name+"-")
		if err != nil {
			return nil, eris.Wrap(err, "formd: create extraction dir")
		}
		defer os.RemoveAll(tmp) //nolint:errcheck

		if _, err := fetcher.ExtractZIP(period.Path, tmp); err != nil {
			return nil, eris.Wrapf(err, "formd: extract %s", period.Name)
		}
		dir = tmp
	}

	src, err := LoadPeriod(ctx, dir)
	if err != nil {
		return nil, err
	}

	now := p.now()
	b := &Builder{Quarter: period.Name, Reference: p.Reference, ProcessedAt: now}
	built := b.Build(src)

	doc := model.NewDocument(built.Records)
	doc.Metadata = map[string]any{
		"quarter":                period.Name,
		"generated_at":           now,
		"reference_date":         p.Reference.Format(time.DateOnly),
		"total_companies":        len(built.Records),
		"total_executives":       model.TotalExecutives(built.Records),
		"dropped_without_issuer": built.DroppedWithoutIssuer,
	}

	out := OutputFile(p.OutputDir, period.Name)
	if err := document.Write(out, doc); err != nil {
		return nil, eris.Wrapf(err, "formd: write %s", period.Name)
	}

	return &PeriodResult{
		Period:               period,
		Status:               StatusProcessed,
		OutputPath:           out,
		Companies:            len(built.Records),
		Executives:           model.TotalExecutives(built.Records),
		DroppedWithoutIssuer: built.DroppedWithoutIssuer,
	}, nil
}

// ProcessAll runs every period with at most Concurrency in flight. A
// skipped or failed period is recorded and never stops the others; only
// context cancellation aborts the run.
func (p *Processor) ProcessAll(ctx context.Context, periods []Period) (*Summary, error) {
	results := make([]PeriodResult, len(periods))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Concurrency))

	for i, period := range periods {
		g.Go(func() error {
			log := zap.L().With(zap.String("period", period.Name))

			res, err := p.ProcessPeriod(gctx, period)
			switch {
			case err == nil:
				results[i] = *res
				log.Info("period processed",
					zap.Int("companies", res.Companies),
					zap.Int("executives", res.Executives),
					zap.Int("dropped_without_issuer", res.DroppedWithoutIssuer),
					zap.String("output", res.OutputPath),
				)
			case errors.Is(err, ErrPeriodSkipped):
				results[i] = PeriodResult{Period: period, Status: StatusSkipped, Err: err}
				log.Warn("period skipped", zap.Error(err))
			case gctx.Err() != nil:
				return err
			default:
				results[i] = PeriodResult{Period: period, Status: StatusFailed, Err: err}
				log.Error("period failed", zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "formd: process periods")
	}
	return &Summary{Results: results}, nil
}
