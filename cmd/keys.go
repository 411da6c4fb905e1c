package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Inspect configured API credentials",
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credential labels with masked values",
	RunE: func(cmd *cobra.Command, _ []string) error {
		creds := config.MergeCredentials(cfg.Credentials, nil)
		if len(creds) == 0 {
			fmt.Fprintln(os.Stderr, "No credentials configured.")
			return nil
		}
		formatCredentials(cmd.OutOrStdout(), creds)
		return nil
	},
}

func init() {
	keysCmd.AddCommand(keysListCmd)
	rootCmd.AddCommand(keysCmd)
}

func formatCredentials(out io.Writer, creds config.Credentials) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LABEL\tKEY")
	for _, label := range creds.Labels() {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", label, config.Mask(creds[label]))
	}
	_ = w.Flush()
}
