package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
)

var loadCmd = &cobra.Command{
	Use:   "load [input]",
	Short: "Upsert a stage output into the configured database",
	Long: "Reads a company document and upserts every record into the formd_records table " +
		"keyed by accession number. Requires store.driver and store.database_url.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("store"); err != nil {
			return err
		}
		input := defaultMasterFile
		if len(args) > 0 {
			input = args[0]
		}
		return runLoad(cmd.Context(), input)
	},
}

func runLoad(ctx context.Context, input string) (err error) {
	st, err := beginStage(ctx, "load", input)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = cfg.Store.Driver

	doc, err := document.Read(input)
	if err != nil {
		return err
	}

	n, err := st.store.UpsertRecords(ctx, doc.Companies)
	if err != nil {
		return err
	}
	st.records(len(doc.Companies), int(n))

	total, err := st.store.CountRecords(ctx)
	if err != nil {
		return err
	}
	zap.L().Info("load: records upserted",
		zap.String("driver", cfg.Store.Driver),
		zap.Int64("upserted", n),
		zap.Int64("table_total", total),
	)
	return nil
}

func init() {
	rootCmd.AddCommand(loadCmd)
}
