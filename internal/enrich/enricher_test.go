package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testNow = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func sampleDoc(n int) *model.Document {
	recs := make([]model.Record, n)
	for i := range recs {
		recs[i] = model.Record{
			AccessionNumber: fmt.Sprintf("%04d", i),
			RelatedPersons:  []model.RelatedPerson{},
		}
		if i%4 != 3 {
			recs[i].Company.Name = model.StrPtr(fmt.Sprintf("Company %d Labs, Inc.", i))
		}
	}
	doc := model.NewDocument(recs)
	doc.Metadata["total_companies"] = n
	return doc
}

func newEnricher(t *testing.T, checkpoint int, now func() time.Time) *Enricher {
	t.Helper()
	inf, err := NewInferrer(DefaultRules(), DefaultMaxPatterns)
	require.NoError(t, err)
	return &Enricher{Inferrer: inf, Checkpoint: checkpoint, Now: now}
}

func TestEnricher_Run(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "targets_urls.json")
	sum, err := newEnricher(t, 3, fixedClock).Run(context.Background(), sampleDoc(8), out)
	require.NoError(t, err)

	assert.Equal(t, &Summary{Total: 8, Processed: 8, WithDomains: 6, WithoutDomains: 2}, sum)
	assert.NoFileExists(t, CursorPath(out))

	doc, err := document.Read(out)
	require.NoError(t, err)
	require.Len(t, doc.Companies, 8)

	first := doc.Companies[0].InferredDomains
	require.NotNil(t, first)
	assert.Equal(t, "company-0-labs.com", first.Domains[0])
	assert.Equal(t, "company0labs.com", first.Domains[1])
	assert.Equal(t, model.VerificationUnknown, first.Status())
	assert.False(t, first.Checked)
	assert.True(t, testNow.Equal(first.InferredAt))
	assert.Empty(t, doc.Companies[3].InferredDomains.Domains)

	di := doc.Metadata["domain_inference"].(map[string]any)
	assert.Equal(t, float64(8), di["total_processed"])
	assert.Equal(t, float64(6), di["with_domains"])
	assert.Equal(t, float64(2), di["without_domains"])
	assert.Equal(t, float64(5), di["patterns_tried"])
	assert.Equal(t, 0.75, di["success_rate"])
	assert.Equal(t, "2025-06-01T09:30:00Z", di["completed_at"])
	assert.Equal(t, float64(8), doc.Metadata["total_companies"])
}

// interruptingClock cancels the run on its nth call.
func interruptingClock(cancel context.CancelFunc, n int) func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		if calls == n {
			cancel()
		}
		return testNow
	}
}

func TestEnricher_ResumeMatchesUninterrupted(t *testing.T) {
	t.Parallel()

	for _, dropCursor := range []bool{false, true} {
		t.Run(fmt.Sprintf("drop_cursor=%v", dropCursor), func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()

			want := filepath.Join(dir, "straight.json")
			_, err := newEnricher(t, 3, fixedClock).Run(context.Background(), sampleDoc(10), want)
			require.NoError(t, err)

			got := filepath.Join(dir, "resumed.json")
			ctx, cancel := context.WithCancel(context.Background())
			// Calls: three records, then the checkpoint after index 2.
			_, err = newEnricher(t, 3, interruptingClock(cancel, 4)).Run(ctx, sampleDoc(10), got)
			require.ErrorIs(t, err, context.Canceled)
			cancel()

			cur, err := ReadCursor(got)
			require.NoError(t, err)
			require.NotNil(t, cur)
			assert.Equal(t, 2, cur.LastCompletedIndex)
			assert.Equal(t, 3, cur.Processed)
			assert.Equal(t, 10, cur.Total)

			if dropCursor {
				require.NoError(t, os.Remove(CursorPath(got)))
			}

			sum, err := newEnricher(t, 3, fixedClock).Run(context.Background(), sampleDoc(10), got)
			require.NoError(t, err)
			assert.Equal(t, 3, sum.ResumedFrom)
			assert.Equal(t, 7, sum.Processed)

			wantBytes, err := os.ReadFile(want)
			require.NoError(t, err)
			gotBytes, err := os.ReadFile(got)
			require.NoError(t, err)
			assert.Equal(t, string(wantBytes), string(gotBytes))
		})
	}
}

func TestEnricher_Idempotent(t *testing.T) {
	t.Parallel()

	doc := sampleDoc(4)
	doc.Companies[1].InferredDomains = &model.Enrichment{Domains: []string{"kept.example"}, InferredAt: testNow}

	out := filepath.Join(t.TempDir(), "out.json")
	sum, err := newEnricher(t, 0, fixedClock).Run(context.Background(), doc, out)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 3, sum.Processed)

	again, err := document.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.example"}, again.Companies[1].InferredDomains.Domains)

	sum, err = newEnricher(t, 0, fixedClock).Run(context.Background(), again, filepath.Join(t.TempDir(), "second.json"))
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Skipped)
	assert.Zero(t, sum.Processed)
}

func TestEnricher_MismatchedPriorOutputStartsFresh(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.json")
	prior := sampleDoc(2)
	prior.Companies[0].InferredDomains = &model.Enrichment{Domains: []string{"stale.com"}}
	require.NoError(t, document.Write(out, prior))

	sum, err := newEnricher(t, 0, fixedClock).Run(context.Background(), sampleDoc(5), out)
	require.NoError(t, err)
	assert.Zero(t, sum.ResumedFrom)
	assert.Equal(t, 5, sum.Processed)
}

func TestEnricher_CorruptCursorIgnored(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.json")
	prior := sampleDoc(4)
	for i := range 2 {
		prior.Companies[i].InferredDomains = &model.Enrichment{Domains: []string{"done.com"}}
	}
	require.NoError(t, document.Write(out, prior))
	require.NoError(t, writeCursor(out, Cursor{LastCompletedIndex: -7, Total: 4}))

	sum, err := newEnricher(t, 0, fixedClock).Run(context.Background(), sampleDoc(4), out)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.ResumedFrom)
	assert.Equal(t, 2, sum.Processed)

	doc, err := document.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"done.com"}, doc.Companies[0].InferredDomains.Domains)
}

func TestEnricher_EmptyDocument(t *testing.T) {
	t.Parallel()

	out := filepath.Join(t.TempDir(), "out.json")
	sum, err := newEnricher(t, 0, fixedClock).Run(context.Background(), model.NewDocument(nil), out)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.SuccessRate())
}

func TestOutputPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "sec_companies_targets_unique_urls.json", OutputPath("sec_companies_targets_unique.json"))
	assert.Equal(t, "x_urls.json.progress.json", CursorPath("x_urls.json"))
}
