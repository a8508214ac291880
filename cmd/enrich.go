package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/enrich"
)

const defaultUniqueFile = "sec_companies_targets_unique.json"

var enrichCmd = &cobra.Command{
	Use:   "enrich [input]",
	Short: "Infer candidate website domains for each company",
	Long: "Cleans each company name and attaches ranked candidate domains. Progress is " +
		"checkpointed to the output; an interrupted run resumes where it stopped.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyEnrichFlags(cmd)
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}
		input := defaultUniqueFile
		if len(args) > 0 {
			input = args[0]
		}
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = enrich.OutputPath(input)
		}
		return runEnrich(cmd.Context(), input, output)
	},
}

func applyEnrichFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("max-patterns") {
		cfg.Enrich.MaxPatterns, _ = f.GetInt("max-patterns")
	}
	if f.Changed("checkpoint") {
		cfg.Enrich.CheckpointInterval, _ = f.GetInt("checkpoint")
	}
	if f.Changed("rules") {
		cfg.Enrich.RulesFile, _ = f.GetString("rules")
	}
}

func runEnrich(ctx context.Context, input, output string) (err error) {
	st, err := beginStage(ctx, "enrich", input)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = output

	rules, err := enrich.LoadRules(cfg.Enrich.RulesFile)
	if err != nil {
		return err
	}
	inf, err := enrich.NewInferrer(rules, cfg.Enrich.MaxPatterns)
	if err != nil {
		return err
	}

	doc, err := document.Read(input)
	if err != nil {
		return err
	}

	e := &enrich.Enricher{Inferrer: inf, Checkpoint: cfg.Enrich.CheckpointInterval}
	sum, err := e.Run(ctx, doc, output)
	if sum != nil {
		st.records(sum.Total, sum.WithDomains)
		st.metrics.Rejected("enrich", "no_domains", sum.WithoutDomains)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			zap.L().Warn("enrich: interrupted, run again to resume", zap.String("output", output))
		}
		return err
	}

	zap.L().Info("enrich: written",
		zap.String("output", output),
		zap.Int("total", sum.Total),
		zap.Int("resumed_from", sum.ResumedFrom),
		zap.Int("processed", sum.Processed),
		zap.Int("skipped", sum.Skipped),
		zap.Int("with_domains", sum.WithDomains),
		zap.Int("without_domains", sum.WithoutDomains),
		zap.Float64("success_rate", sum.SuccessRate()),
	)
	return nil
}

func init() {
	enrichCmd.Flags().String("output", "", "output path (default: <input>_urls.json)")
	enrichCmd.Flags().Int("max-patterns", enrich.DefaultMaxPatterns, "maximum TLD patterns per company")
	enrichCmd.Flags().Int("checkpoint", enrich.DefaultCheckpointInterval, "records between checkpoints")
	enrichCmd.Flags().String("rules", "", "YAML file overriding suffix and TLD rules")
	rootCmd.AddCommand(enrichCmd)
}
