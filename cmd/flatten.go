package main

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/formd-cli/internal/document"
	"github.com/sells-group/formd-cli/internal/flatten"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [input] [output] [top-n]",
	Short: "Export the top funded companies as a table",
	Long: "Ranks companies by funding amount and writes the top N as CSV or XLSX. " +
		"A top-n of 0 exports every company.",
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyFlattenFlags(cmd, args); err != nil {
			return err
		}
		if err := cfg.Validate("flatten"); err != nil {
			return err
		}
		format, err := flatten.ParseFormat(cfg.Flatten.Format)
		if err != nil {
			return err
		}
		input := defaultTargetsFile
		if len(args) > 0 {
			input = args[0]
		}
		output := "sec_companies_top100." + string(format)
		if len(args) > 1 {
			output = args[1]
		}
		return runFlatten(cmd.Context(), input, output, format)
	},
}

func applyFlattenFlags(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()
	if f.Changed("top") {
		cfg.Flatten.TopN, _ = f.GetInt("top")
	}
	if f.Changed("format") {
		cfg.Flatten.Format, _ = f.GetString("format")
	}
	if len(args) > 2 {
		n, err := strconv.Atoi(args[2])
		if err != nil {
			return eris.Wrapf(err, "flatten: invalid top-n %q", args[2])
		}
		cfg.Flatten.TopN = n
	}
	return nil
}

func runFlatten(ctx context.Context, input, output string, format flatten.Format) (err error) {
	st, err := beginStage(ctx, "flatten", input)
	if err != nil {
		return err
	}
	defer func() { err = st.finish(ctx, err) }()
	st.result.Output = output

	doc, err := document.Read(input)
	if err != nil {
		return err
	}

	rows := flatten.Rank(doc.Companies, cfg.Flatten.TopN)
	if err := flatten.Write(output, rows, format); err != nil {
		return err
	}
	st.records(len(doc.Companies), len(rows))

	flatten.LogSummary(rows)
	zap.L().Info("flatten: written",
		zap.String("output", output),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
	)
	return nil
}

func init() {
	flattenCmd.Flags().Int("top", flatten.DefaultTopN, "number of companies to export (0 = all)")
	flattenCmd.Flags().String("format", "csv", "output format: csv or xlsx")
	rootCmd.AddCommand(flattenCmd)
}
