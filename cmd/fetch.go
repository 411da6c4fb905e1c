package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Print the website text that would be sent to the model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := args[0]
		if !pipeline.ValidWebsite(url) {
			return eris.Errorf("fetch: %q is not an http(s) URL", url)
		}

		fetcher, err := newFetcher(cfg)
		if err != nil {
			return err
		}
		text, err := fetcher.FetchText(cmd.Context(), url)
		if err != nil {
			return eris.Wrap(err, "fetch")
		}

		_, _ = fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
