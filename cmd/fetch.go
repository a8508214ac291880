package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/fetcher"
	"github.com/sells-group/formd-cli/internal/formd"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <period>...",
	Short: "Download quarterly Form D data sets from SEC",
	Long: "Downloads and extracts the archive for each period (for example 2024Q1) into the " +
		"data directory. Periods whose archive is unchanged since the last fetch are skipped.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		labels := make([]formd.PeriodLabel, 0, len(args))
		for _, a := range args {
			l, err := formd.ParsePeriodLabel(a)
			if err != nil {
				return err
			}
			labels = append(labels, l)
		}
		f := cmd.Flags()
		if f.Changed("data-dir") {
			cfg.Build.DataDir, _ = f.GetString("data-dir")
		}
		force, _ := f.GetBool("force")
		return runFetch(cmd.Context(), labels, force)
	},
}

func newDownloader(force bool) *formd.Downloader {
	return &formd.Downloader{
		Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.EDGARUserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
			Limiters:   fetcher.SECLimiters(),
		}),
		BaseURL: cfg.Fetch.BaseURL,
		DataDir: cfg.Build.DataDir,
		Force:   force,
	}
}

func runFetch(ctx context.Context, labels []formd.PeriodLabel, force bool) (err error) {
	st, err := beginStage(ctx, "fetch", cfg.Fetch.BaseURL)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = cfg.Build.DataDir

	d := newDownloader(force)
	var fetched int
	for _, l := range labels {
		res, err := d.Fetch(ctx, l)
		if err != nil {
			return err
		}
		if !res.Skipped {
			fetched++
		}
		zap.L().Info("fetch: period ready",
			zap.String("period", l.DirName()),
			zap.String("dir", res.Dir),
			zap.Bool("skipped", res.Skipped),
			zap.Int64("bytes", res.Bytes),
			zap.Int("files", res.Files),
		)
	}
	st.records(len(labels), fetched)
	return nil
}

func init() {
	fetchCmd.Flags().String("data-dir", ".", "directory to extract periods into")
	fetchCmd.Flags().Bool("force", false, "download even when the archive is unchanged")
	rootCmd.AddCommand(fetchCmd)
}
