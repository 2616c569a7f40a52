package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ferro-labs/dockerhub-mcp/internal/journal"
	"github.com/spf13/cobra"
)

func newHistoryCmd(flags *rootFlags) *cobra.Command {
	var (
		limit   int
		tool    string
		outcome string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent tool calls from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags.configPath)
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return fmt.Errorf("the journal is disabled; set journal.enabled in the config")
			}
			store, err := journal.Open(cfg.Journal.Driver, cfg.Journal.DSN)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			res, err := store.List(cmd.Context(), journal.Query{Limit: limit, Tool: tool, Outcome: outcome})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(res.Data) == 0 {
				_, _ = fmt.Fprintln(out, "No tool calls recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TIME\tTOOL\tOUTCOME\tDURATION\tARGUMENTS")
			for _, e := range res.Data {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n",
					e.CreatedAt.UTC().Format(time.RFC3339), e.Tool, e.Outcome, e.DurationMS, e.Arguments)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "%d of %d entries\n", len(res.Data), res.Total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show")
	cmd.Flags().StringVar(&tool, "tool", "", "only show calls to this tool")
	cmd.Flags().StringVar(&outcome, "outcome", "", "only show calls with this outcome")
	return cmd
}
