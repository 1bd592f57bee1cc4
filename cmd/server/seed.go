package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp/loyalty-engine/factory"
	"go.uber.org/zap"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var scenario string

	cmd := &cobra.Command{
		Use:   "seed [catalog.yaml]",
		Short: "Load a campaign catalog or a demo scenario",
		Long: `Load campaigns from a YAML catalog into the database. Campaigns with an
existing id are updated in place; their type may not change.

With --scenario the database is reset and filled with a demo dataset.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenario == "" && len(args) == 0 {
				return fmt.Errorf("either a catalog file or --scenario is required")
			}
			rt, err := rootOpts.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if scenario != "" {
				if err := rt.handler.LoadScenarioByID(ctx, scenario); err != nil {
					return err
				}
				fmt.Fprintf(out, "Loaded scenario %s\n", scenario)
			}
			if len(args) == 0 {
				return nil
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read catalog: %w", err)
			}
			campaigns, err := factory.ParseCatalogYAML(data)
			if err != nil {
				return err
			}
			for _, c := range campaigns {
				if err := rt.handler.Campaigns.Save(ctx, c); err != nil {
					return fmt.Errorf("campaign %s: %w", c.ID, err)
				}
				rt.log.Debug("campaign seeded", zap.String("campaign_id", string(c.ID)))
			}
			fmt.Fprintf(out, "Seeded %d campaign(s) from %s\n", len(campaigns), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "demo scenario id (stamp-card, full-catalog, lifecycle)")

	return cmd
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the campaign catalog as YAML",
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
			data, err := factory.MarshalCatalogYAML(campaigns)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
