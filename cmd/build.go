package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/formd"
)

var buildCmd = &cobra.Command{
	Use:   "build [data-dir]",
	Short: "Build per-period company files from Form D data sets",
	Long: "Discovers quarterly data set directories and ZIP archives under data-dir, joins each " +
		"period's submission, issuer, offering and related person tables, and writes one " +
		"companies_sec_<period>.json per period.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyBuildFlags(cmd, args)
		if err := cfg.Validate("build"); err != nil {
			return err
		}
		return runBuild(cmd.Context())
	},
}

func applyBuildFlags(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		cfg.Build.DataDir = args[0]
	}
	f := cmd.Flags()
	if f.Changed("output-dir") {
		cfg.Build.OutputDir, _ = f.GetString("output-dir")
	}
	if f.Changed("temp-dir") {
		cfg.Build.TempDir, _ = f.GetString("temp-dir")
	}
	if f.Changed("concurrency") {
		cfg.Build.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("reference-date") {
		cfg.Build.ReferenceDate, _ = f.GetString("reference-date")
	}
}

func runBuild(ctx context.Context) (err error) {
	st, err := beginStage(ctx, "build", cfg.Build.DataDir)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = cfg.Build.OutputDir

	ref, err := cfg.ReferenceTime(time.Now())
	if err != nil {
		return err
	}

	periods, err := formd.DiscoverPeriods(cfg.Build.DataDir)
	if err != nil {
		return err
	}
	if len(periods) == 0 {
		return eris.Errorf("build: no periods found in %s", cfg.Build.DataDir)
	}
	zap.L().Info("build: periods discovered", zap.Int("count", len(periods)))

	p := &formd.Processor{
		OutputDir:   cfg.Build.OutputDir,
		TempDir:     cfg.Build.TempDir,
		Concurrency: cfg.Build.Concurrency,
		Reference:   ref,
	}
	sum, err := p.ProcessAll(ctx, periods)
	if err != nil {
		return err
	}

	var companies, executives, dropped int
	for _, r := range sum.Results {
		companies += r.Companies
		executives += r.Executives
		dropped += r.DroppedWithoutIssuer
	}
	st.records(companies+dropped, companies)
	st.metrics.Rejected("build", "no_issuer", dropped)

	zap.L().Info("build: summary",
		zap.Int("processed", sum.Count(formd.StatusProcessed)),
		zap.Strings("skipped", sum.Names(formd.StatusSkipped)),
		zap.Strings("failed", sum.Names(formd.StatusFailed)),
		zap.Int("companies", companies),
		zap.Int("executives", executives),
	)

	if failed := sum.Names(formd.StatusFailed); len(failed) > 0 {
		return eris.Errorf("build: %d period(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return nil
}

func init() {
	buildCmd.Flags().String("output-dir", "processed", "directory for per-period JSON files")
	buildCmd.Flags().String("temp-dir", "", "scratch directory for archive extraction (default: system temp)")
	buildCmd.Flags().Int("concurrency", 1, "periods processed in parallel")
	buildCmd.Flags().String("reference-date", "", "date used for company age fields, YYYY-MM-DD (default: today)")
	rootCmd.AddCommand(buildCmd)
}
