package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/model"
)

// DefaultCheckpointInterval is the number of records between checkpoints.
const DefaultCheckpointInterval = 1000

// Cursor records how far an interrupted run got. It is stored next to the
// output file and removed once the run completes.
type Cursor struct {
	LastCompletedIndex int       `json:"last_completed_index"`
	Processed          int       `json:"processed"`
	Total              int       `json:"total"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CursorPath returns the cursor file for output.
func CursorPath(output string) string {
	return output + ".progress.json"
}

// OutputPath inserts "_urls" before the extension of input.
func OutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_urls" + ext
}

// ReadCursor loads the cursor for output. A missing file returns nil.
func ReadCursor(output string) (*Cursor, error) {
	data, err := os.ReadFile(CursorPath(output))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "enrich: read cursor")
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrap(err, "enrich: decode cursor")
	}
	return &c, nil
}

func writeCursor(output string, c Cursor) error {
	return document.WriteAtomic(CursorPath(output), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	})
}

// Summary describes one enrichment run.
type Summary struct {
	Total          int
	ResumedFrom    int
	Processed      int
	Skipped        int
	WithDomains    int
	WithoutDomains int
}

// SuccessRate is the share of records with at least one candidate.
func (s *Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.WithDomains) / float64(s.Total)
}

// Enricher runs domain inference over a document, checkpointing to its
// output so an interrupted run can resume. Only one Enricher may write a
// given output at a time.
type Enricher struct {
	Inferrer   *Inferrer
	Checkpoint int
	Now        func() time.Time
}

func (e *Enricher) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Enricher) interval() int {
	if e.Checkpoint > 0 {
		return e.Checkpoint
	}
	return DefaultCheckpointInterval
}

// resume decides the working document and start index. A prior output is
// reused only when it holds the same number of records as the input.
func (e *Enricher) resume(in *model.Document, output string) (*model.Document, int) {
	log := zap.L().With(zap.String("output", output))

	prev, err := document.Read(output)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("enrich: ignoring unreadable prior output", zap.Error(err))
		}
		return in, 0
	}
	if len(prev.Companies) != len(in.Companies) {
		log.Warn("enrich: prior output does not match input, starting fresh",
			zap.Int("prior", len(prev.Companies)),
			zap.Int("input", len(in.Companies)),
		)
		return in, 0
	}

	cur, err := ReadCursor(output)
	if err != nil {
		log.Warn("enrich: ignoring cursor", zap.Error(err))
	}
	if cur != nil && cur.Total == len(in.Companies) && cur.LastCompletedIndex >= -1 {
		return prev, min(cur.LastCompletedIndex+1, len(in.Companies))
	}

	for i := len(prev.Companies) - 1; i >= 0; i-- {
		if prev.Companies[i].InferredDomains != nil {
			return prev, i + 1
		}
	}
	return in, 0
}

// Run enriches in and writes the result to output. Cancelling ctx stops
// the run after the current record; progress up to the last checkpoint is
// kept on disk.
func (e *Enricher) Run(ctx context.Context, in *model.Document, output string) (*Summary, error) {
	doc, start := e.resume(in, output)
	companies := doc.Companies
	total := len(companies)
	sum := &Summary{Total: total, ResumedFrom: start}

	log := zap.L().With(zap.String("output", output))
	if start > 0 {
		log.Info("enrich: resuming", zap.Int("index", start), zap.Int("total", total))
	}

	interval := e.interval()
	for i := start; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return sum, eris.Wrap(err, "enrich: interrupted")
		}

		r := &companies[i]
		if r.InferredDomains != nil {
			sum.Skipped++
		} else {
			r.InferredDomains = &model.Enrichment{
				Domains:    e.Inferrer.Infer(model.Str(r.Company.Name)),
				InferredAt: e.now(),
			}
			sum.Processed++
		}

		if (i+1)%interval == 0 && i+1 < total {
			if err := e.checkpoint(doc, output, i, total); err != nil {
				return sum, err
			}
			log.Info("enrich: checkpoint", zap.Int("processed", i+1), zap.Int("total", total))
		}
	}

	for i := range companies {
		if d := companies[i].InferredDomains; d != nil && len(d.Domains) > 0 {
			sum.WithDomains++
		}
	}
	sum.WithoutDomains = total - sum.WithDomains

	doc.Metadata = cloneMetadata(doc.Metadata)
	doc.Metadata["domain_inference"] = map[string]any{
		"completed_at":    e.now().Format(time.RFC3339),
		"total_processed": total,
		"with_domains":    sum.WithDomains,
		"without_domains": sum.WithoutDomains,
		"patterns_tried":  e.Inferrer.PatternsTried(),
		"success_rate":    sum.SuccessRate(),
	}
	if err := document.Write(output, doc); err != nil {
		return sum, err
	}
	if err := os.Remove(CursorPath(output)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return sum, eris.Wrap(err, "enrich: remove cursor")
	}
	return sum, nil
}

func (e *Enricher) checkpoint(doc *model.Document, output string, last, total int) error {
	withDomains := 0
	for i := 0; i <= last; i++ {
		if d := doc.Companies[i].InferredDomains; d != nil && len(d.Domains) > 0 {
			withDomains++
		}
	}
	now := e.now()

	doc.Metadata = cloneMetadata(doc.Metadata)
	doc.Metadata["domain_inference"] = map[string]any{
		"processed":       last + 1,
		"total":           total,
		"with_domains":    withDomains,
		"last_checkpoint": now.Format(time.RFC3339),
	}
	if err := document.Write(output, doc); err != nil {
		return eris.Wrap(err, "enrich: write checkpoint")
	}
	return writeCursor(output, Cursor{
		LastCompletedIndex: last,
		Processed:          last + 1,
		Total:              total,
		UpdatedAt:          now,
	})
}

func cloneMetadata(md map[string]any) map[string]any {
	out := make(map[string]any, len(md)+1)
	for k, v := range md {
		out[k] = v
	}
	return out
}
