package formd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/fetcher"
)

var periodLabelRe = regexp.MustCompile(`^(\d{4})[qQ]([1-4])(?:_d)?$`)

// PeriodLabel identifies a calendar quarter.
type PeriodLabel struct {
	Year    int
	Quarter int
}

// ParsePeriodLabel accepts labels like 2024q1, 2024Q1 or 2024q1_d.
func ParsePeriodLabel(s string) (PeriodLabel, error) {
	m := periodLabelRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return PeriodLabel{}, eris.Errorf("formd: invalid period %q (want YYYYqN)", s)
	}
	year, _ := strconv.Atoi(m[1])
	q, _ := strconv.Atoi(m[2])
	return PeriodLabel{Year: year, Quarter: q}, nil
}

// ArchiveName is the file name SEC publishes the quarter under.
func (l PeriodLabel) ArchiveName() string {
	return fmt.Sprintf("%dq%d_d.zip", l.Year, l.Quarter)
}

// DirName is the directory the quarter is extracted into.
func (l PeriodLabel) DirName() string {
	return fmt.Sprintf("%dQ%d_d", l.Year, l.Quarter)
}

// URL joins the archive name onto baseURL.
func (l PeriodLabel) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + l.ArchiveName()
}

const etagFile = ".etag"

// Downloader fetches quarterly archives and extracts them under DataDir.
type Downloader struct {
	Fetcher fetcher.Fetcher
	BaseURL string
	DataDir string
	// Force re-downloads even when the stored ETag matches.
	Force bool
}

// FetchResult describes one fetched period.
type FetchResult struct {
	Label   PeriodLabel
	Dir     string
	Bytes   int64
	Files   int
	Skipped bool // up to date; nothing downloaded
}

// Fetch downloads and extracts one quarter. When the period directory
// already carries the archive's current ETag the download is skipped.
func (d *Downloader) Fetch(ctx context.Context, label PeriodLabel) (*FetchResult, error) {
	url := label.URL(d.BaseURL)
	dir := filepath.Join(d.DataDir, label.DirName())
	log := zap.L().With(zap.String("period", label.DirName()), zap.String("url", url))

	etag, err := d.Fetcher.HeadETag(ctx, url)
	if err != nil {
		return nil, eris.Wrapf(err, "formd: head %s", label.ArchiveName())
	}

	if !d.Force && etag != "" {
		if prev, err := os.ReadFile(filepath.Join(dir, etagFile)); err == nil && strings.TrimSpace(string(prev)) == etag {
			log.Info("period up to date", zap.String("etag", etag))
			return &FetchResult{Label: label, Dir: dir, Skipped: true}, nil
		}
	}

	if err := os.MkdirAll(d.DataDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "formd: create data dir")
	}
	zipPath := filepath.Join(d.DataDir, label.ArchiveName())
	n, err := d.Fetcher.DownloadToFile(ctx, url, zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "formd: download %s", label.ArchiveName())
	}
	defer os.Remove(zipPath) //nolint:errcheck

	files, err := fetcher.ExtractZIP(zipPath, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "formd: extract %s", label.ArchiveName())
	}
	if etag != "" {
		if err := os.WriteFile(filepath.Join(dir, etagFile), []byte(etag), 0o644); err != nil {
			return nil, eris.Wrap(err, "formd: write etag")
		}
	}

	log.Info("period fetched", zap.Int64("bytes", n), zap.Int("files", len(files)))
	return &FetchResult{Label: label, Dir: dir, Bytes: n, Files: len(files)}, nil
}
