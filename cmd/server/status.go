package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/warp/loyalty-engine/loyalty"
)

// NewNormalizeCommand creates the normalize command. It needs no database.
func NewNormalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <id>...",
		Short: "Show how national IDs are stored",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, raw := range args {
				fmt.Fprintf(out, "%s -> %s\n", raw, loyalty.NormalizeID(raw))
			}
			return nil
		},
	}
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print each campaign's lifecycle status today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := rootOpts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			campaigns, err := rt.handler.Campaigns.List(cmd.Context())
			if err != nil {
				return err
			}

			today := loyalty.Today(rt.clock)
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tWINDOW")
			for _, c := range campaigns {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					c.ID, c.Name, c.Type.Effective().Label(),
					loyalty.EvaluateLifecycle(c, today), window(c))
			}
			return tw.Flush()
		},
	}
}

func window(c loyalty.Campaign) string {
	if c.OpenEnded {
		return "open-ended"
	}
	start, end := c.StartDate.String(), c.EndDate.String()
	if start == "" {
		start = "…"
	}
	if end == "" {
		end = "…"
	}
	return start + " – " + end
}
