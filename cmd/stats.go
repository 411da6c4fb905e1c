package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/sheet"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Count generated and failed rows in a spreadsheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		input, _ := cmd.Flags().GetString("input")

		ds, err := sheet.ReadFile(input)
		if err != nil {
			return err
		}
		formatDatasetStats(cmd.OutOrStdout(), model.ComputeStats(ds))
		return nil
	},
}

func init() {
	statsCmd.Flags().String("input", "", "spreadsheet to inspect (.csv or .xlsx)")
	_ = statsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(statsCmd)
}

func formatDatasetStats(out io.Writer, s model.Stats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", s.TotalRows)
	_, _ = fmt.Fprintf(w, "Generated:\t%d\n", s.Generated)
	_, _ = fmt.Fprintf(w, "Errors:\t%d\n", s.Errors)
	_, _ = fmt.Fprintf(w, "Processed:\t%d\n", s.TotalProcessed)
	_, _ = fmt.Fprintf(w, "Remaining:\t%d\n", s.TotalRows-s.TotalProcessed)
	_ = w.Flush()
}
