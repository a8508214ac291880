package formd

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/formd-cli/internal/document"
)

func fixedNow() time.Time { return testProcessed }

func writeZIPPeriod(t *testing.T, path, prefix string) {
	t.Helper()
	src := t.TempDir()
	writePeriod(t, src)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for _, name := range RequiredFiles {
		data, err := os.ReadFile(filepath.Join(src, name))
		require.NoError(t, err)
		fw, err := w.Create(prefix + name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestDiscoverPeriods(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"2024Q2_d", "2023q4_d", "processed", "2024Q1_d"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "2022q1_d.zip"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024q1_d.zip"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	periods, err := DiscoverPeriods(root)
	require.NoError(t, err)

	var names []string
	for _, p := range periods {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"2022q1_d", "2023q4_d", "2024Q1_d", "2024Q2_d"}, names)
	assert.True(t, periods[0].Archive)
	assert.False(t, periods[2].Archive, "extracted directory preferred over archive")
}

func TestDiscoverPeriods_SingleDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "latest")
	writePeriod(t, dir)

	periods, err := DiscoverPeriods(dir)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "latest", periods[0].Name)
}

func TestDiscoverPeriods_MissingDir(t *testing.T) {
	_, err := DiscoverPeriods(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestProcessPeriod_WritesDocument(t *testing.T) {
	root := t.TempDir()
	writePeriod(t, filepath.Join(root, "2024Q1_d"))
	out := filepath.Join(root, "processed")

	p := &Processor{OutputDir: out, Reference: testRef, Now: fixedNow}
	res, err := p.ProcessPeriod(context.Background(), Period{Name: "2024Q1_d", Path: filepath.Join(root, "2024Q1_d")})
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, res.Status)
	assert.Equal(t, filepath.Join(out, "companies_sec_2024Q1_d.json"), res.OutputPath)
	assert.Equal(t, 3, res.Companies)
	assert.Equal(t, 4, res.Executives)
	assert.Equal(t, 1, res.DroppedWithoutIssuer)

	doc, err := document.Read(res.OutputPath)
	require.NoError(t, err)
	assert.Len(t, doc.Companies, 3)
	assert.Equal(t, "2024Q1_d", doc.Metadata["quarter"])
	assert.Equal(t, "2025-01-15", doc.Metadata["reference_date"])
	assert.InDelta(t, 4, doc.Metadata["total_executives"], 0.001)
	assert.InDelta(t, 1, doc.Metadata["dropped_without_issuer"], 0.001)
}

func TestProcessPeriod_ArchiveMatchesDirectory(t *testing.T) {
	root := t.TempDir()
	writePeriod(t, filepath.Join(root, "dir", "2024Q1_d"))
	zipPath := filepath.Join(root, "2024Q1_d.zip")
	writeZIPPeriod(t, zipPath, "2024Q1_d/")

	p := &Processor{OutputDir: filepath.Join(root, "a"), TempDir: t.TempDir(), Reference: testRef, Now: fixedNow}
	_, err := p.ProcessPeriod(context.Background(), Period{Name: "2024Q1_d", Path: filepath.Join(root, "dir", "2024Q1_d")})
	require.NoError(t, err)

	p.OutputDir = filepath.Join(root, "b")
	_, err = p.ProcessPeriod(context.Background(), Period{Name: "2024Q1_d", Path: zipPath, Archive: true})
	require.NoError(t, err)

	fromDir, err := document.Read(OutputFile(filepath.Join(root, "a"), "2024Q1_d"))
	require.NoError(t, err)
	fromZip, err := document.Read(OutputFile(filepath.Join(root, "b"), "2024Q1_d"))
	require.NoError(t, err)
	if diff := cmp.Diff(fromDir, fromZip); diff != "" {
		t.Errorf("archive output differs (-dir +zip):\n%s", diff)
	}
}

func TestProcessPeriod_ArchiveMissingFileSkips(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "2024Q3_d.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(f)
	_, err = w.Create(FileIssuers)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	p := &Processor{OutputDir: t.TempDir(), Reference: testRef}
	_, err = p.ProcessPeriod(context.Background(), Period{Name: "2024Q3_d", Path: zipPath, Archive: true})
	require.ErrorIs(t, err, ErrPeriodSkipped)
}

func TestProcessAll_SkipDoesNotStopOthers(t *testing.T) {
	root := t.TempDir()
	writePeriod(t, filepath.Join(root, "2024Q1_d"))
	writePeriod(t, filepath.Join(root, "2024Q2_d"), FileSubmission)
	writePeriod(t, filepath.Join(root, "2024Q3_d"))
	// Unreadable issuers table: present but malformed header.
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024Q3_d", FileIssuers), []byte("NOPE\n1\n"), 0o644))
	writePeriod(t, filepath.Join(root, "2024Q4_d"))

	periods, err := DiscoverPeriods(root)
	require.NoError(t, err)
	require.Len(t, periods, 4)

	for _, conc := range []int{0, 1, 3} {
		out := filepath.Join(root, "out", fmt.Sprint(conc))
		p := &Processor{OutputDir: out, Concurrency: conc, Reference: testRef, Now: fixedNow}
		sum, err := p.ProcessAll(context.Background(), periods)
		require.NoError(t, err)

		assert.Equal(t, 2, sum.Count(StatusProcessed))
		assert.Equal(t, []string{"2024Q2_d"}, sum.Names(StatusSkipped))
		assert.Equal(t, []string{"2024Q3_d"}, sum.Names(StatusFailed))
		assert.Equal(t, "2024Q1_d", sum.Results[0].Period.Name, "results keep discovery order")

		_, err = os.Stat(OutputFile(out, "2024Q4_d"))
		assert.NoError(t, err)
		_, err = os.Stat(OutputFile(out, "2024Q2_d"))
		assert.True(t, os.IsNotExist(err))
	}
}

func TestProcessAll_ContextCancelled(t *testing.T) {
	root := t.TempDir()
	writePeriod(t, filepath.Join(root, "2024Q1_d"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &Processor{OutputDir: filepath.Join(root, "out"), Reference: testRef}
	_, err := p.ProcessAll(ctx, []Period{{Name: "2024Q1_d", Path: filepath.Join(root, "2024Q1_d")}})
	require.Error(t, err)
}
