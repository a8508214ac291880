package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/combine"
	"github.com/sells-group/formd-cli/internal/document"
)

var combineCmd = &cobra.Command{
	Use:   "combine [input-dir]",
	Short: "Merge per-period files into the master file",
	Long: "Reads every companies_sec_*.json in input-dir, keeps the most recent filing per " +
		"accession number and writes the master file plus a statistics CSV.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyCombineFlags(cmd, args)
		return runCombine(cmd.Context())
	},
}

func applyCombineFlags(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		cfg.Combine.InputDir = args[0]
	}
	f := cmd.Flags()
	if f.Changed("output") {
		cfg.Combine.Output, _ = f.GetString("output")
	}
	if f.Changed("stats") {
		cfg.Combine.StatsFile, _ = f.GetString("stats")
	}
}

func runCombine(ctx context.Context) (err error) {
	st, err := beginStage(ctx, "combine", cfg.Combine.InputDir)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = cfg.Combine.Output

	sources, err := combine.LoadDir(cfg.Combine.InputDir)
	if err != nil {
		return err
	}

	res := combine.Merge(sources)
	if err := document.Write(cfg.Combine.Output, res.Document(time.Now())); err != nil {
		return err
	}
	st.records(res.TotalBefore, len(res.Records))
	st.metrics.Rejected("combine", "duplicate", res.TotalBefore-len(res.Records))

	if cfg.Combine.StatsFile != "" {
		if err := combine.WriteStats(cfg.Combine.StatsFile, combine.Statistics(res.Records)); err != nil {
			return err
		}
	}

	zap.L().Info("combine: master written",
		zap.String("output", cfg.Combine.Output),
		zap.Int("periods", len(sources)),
		zap.Int("records_before", res.TotalBefore),
		zap.Int("companies", len(res.Records)),
		zap.Int("replaced", res.Replaced),
	)
	return nil
}

func init() {
	combineCmd.Flags().String("output", "sec_companies_master.json", "master file path")
	combineCmd.Flags().String("stats", "sec_companies_stats.csv", "statistics CSV path (empty to skip)")
	rootCmd.AddCommand(combineCmd)
}
