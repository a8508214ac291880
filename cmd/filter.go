package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/filter"
	"github.com/sells-group/formd-cli/internal/model"
)

const (
	defaultMasterFile  = "sec_companies_master.json"
	defaultTargetsFile = "sec_companies_targets.json"
)

var filterCmd = &cobra.Command{
	Use:   "filter [input] [output]",
	Short: "Select target companies from the master file",
	Long: "Keeps companies with a valid two-letter state, funding at or above the minimum, " +
		"a target state and an industry outside the excluded list.",
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFilterFlags(cmd)
		if err := cfg.Validate("filter"); err != nil {
			return err
		}
		input, output := defaultMasterFile, defaultTargetsFile
		if len(args) > 0 {
			input = args[0]
		}
		if len(args) > 1 {
			output = args[1]
		}
		return runFilter(cmd.Context(), input, output)
	},
}

func applyFilterFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("min-funding") {
		cfg.Filter.MinFunding, _ = f.GetFloat64("min-funding")
	}
	if f.Changed("states") {
		cfg.Filter.States, _ = f.GetStringSlice("states")
	}
}

func criteriaFromConfig() filter.Criteria {
	c := filter.DefaultCriteria()
	c.MinFunding = cfg.Filter.MinFunding
	if len(cfg.Filter.States) > 0 {
		c.States = cfg.Filter.States
	}
	if len(cfg.Filter.ExcludedPlaceholders) > 0 {
		c.ExcludedPlaceholders = cfg.Filter.ExcludedPlaceholders
	}
	if len(cfg.Filter.ExcludedIndustries) > 0 {
		c.ExcludedIndustries = cfg.Filter.ExcludedIndustries
	}
	return c
}

func runFilter(ctx context.Context, input, output string) (err error) {
	st, err := beginStage(ctx, "filter", input)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = output

	doc, err := document.Read(input)
	if err != nil {
		return err
	}

	f := filter.New(criteriaFromConfig())
	kept, stats := f.Apply(doc.Companies)
	out := &model.Document{Metadata: f.Metadata(doc.Metadata, input, stats), Companies: kept}
	if err := document.Write(output, out); err != nil {
		return err
	}

	st.records(stats.Initial, stats.Final)
	for _, reason := range filter.Reasons {
		st.metrics.Rejected("filter", string(reason), stats.Removed[reason])
	}

	fields := []zap.Field{
		zap.String("output", output),
		zap.Int("initial", stats.Initial),
		zap.Int("final", stats.Final),
		zap.Any("by_state", stats.ByState),
		zap.Any("by_funding_range", stats.ByFundingRange),
		zap.Any("top_industries", stats.TopIndustries(10)),
	}
	for _, reason := range filter.Reasons {
		fields = append(fields, zap.Int("removed_"+string(reason), stats.Removed[reason]))
	}
	zap.L().Info("filter: targets written", fields...)
	return nil
}

func init() {
	filterCmd.Flags().Float64("min-funding", 1_000_000, "minimum funding amount in dollars")
	filterCmd.Flags().StringSlice("states", nil, "target state codes (default from config)")
	rootCmd.AddCommand(filterCmd)
}
