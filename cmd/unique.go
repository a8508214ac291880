package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/dedupe"
	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/model"
)

var uniqueCmd = &cobra.Command{
	Use:   "unique [input]",
	Short: "Drop companies repeated under another filing",
	Long: "Collapses records with the same normalized name, phone and address, keeping the " +
		"first occurrence. Writes <input>_unique.json next to the input unless --output is set.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := defaultTargetsFile
		if len(args) > 0 {
			input = args[0]
		}
		output, _ := cmd.Flags().GetString("output")
		if output == "" {
			output = dedupe.OutputPath(input)
		}
		return runUnique(cmd.Context(), input, output)
	},
}

func runUnique(ctx context.Context, input, output string) (err error) {
	st, err := beginStage(ctx, "unique", input)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = output

	doc, err := document.Read(input)
	if err != nil {
		return err
	}

	res := dedupe.Unique(doc.Companies)
	out := &model.Document{Metadata: res.Metadata(doc.Metadata, time.Now()), Companies: res.Records}
	if err := document.Write(output, out); err != nil {
		return err
	}

	st.records(len(doc.Companies), len(res.Records))
	st.metrics.Rejected("unique", "duplicate", res.Duplicates)

	log := zap.L().With(zap.String("output", output))
	for _, ex := range res.Examples {
		log.Info("unique: duplicate",
			zap.String("name", ex.Name),
			zap.Int("original_index", ex.OriginalIndex),
			zap.Int("duplicate_index", ex.DuplicateIndex),
		)
	}
	log.Info("unique: written",
		zap.Int("input", len(doc.Companies)),
		zap.Int("unique", len(res.Records)),
		zap.Int("duplicates", res.Duplicates),
	)
	return nil
}

func init() {
	uniqueCmd.Flags().String("output", "", "output path (default: <input>_unique.json)")
	rootCmd.AddCommand(uniqueCmd)
}
