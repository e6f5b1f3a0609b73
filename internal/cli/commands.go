package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sommarioni/sommarioni/internal/dataset"
	serrors "github.com/sommarioni/sommarioni/internal/errors"
	"github.com/sommarioni/sommarioni/internal/export"
	"github.com/sommarioni/sommarioni/internal/index"
	"github.com/sommarioni/sommarioni/internal/logging"
	"github.com/sommarioni/sommarioni/internal/views"
	"github.com/sommarioni/sommarioni/internal/walkability"
	"github.com/sommarioni/sommarioni/pkg/types"
)

func newEnrichCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "enrich <view>",
		Short:     "Build a view and write its enriched feature collection",
		Long:      "Build a view and write its feature collection as GeoJSON, to stdout or to --out.\nA .sz suffix on --out writes a snappy-framed file.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: views.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			v, err := cc.App.BuildView(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cc.Logger.Info("view built",
				logging.String("view", v.Name),
				logging.Int("kept", v.Counts.Kept),
				logging.Int("dropped", v.Counts.Dropped))

			if out == "" {
				return dataset.EncodeFeatures(cmd.OutOrStdout(), v.Collection)
			}
			return dataset.WriteFeatureFile(out, v.Collection)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newTablesCmd() *cobra.Command {
	var xlsx string
	cmd := &cobra.Command{
		Use:       "tables <view>",
		Short:     "Print the aggregate tables of a view",
		Args:      cobra.ExactArgs(1),
		ValidArgs: views.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			v, err := cc.App.BuildView(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if xlsx != "" {
				if err := export.WriteFile(xlsx, v.Sheets()); err != nil {
					return err
				}
				cc.Logger.Info("workbook written", logging.String("path", xlsx))
				return nil
			}
			return printJSON(cmd.OutOrStdout(), struct {
				View         string               `json:"view"`
				Counts       views.Counts         `json:"counts"`
				Tables       []types.Table        `json:"tables"`
				Institutions []types.QualityCount `json:"institutions,omitempty"`
			}{v.Name, v.Counts, v.Tables, v.Institutions})
		},
	}
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "write the tables to an XLSX workbook instead")
	return cmd
}

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the persisted registry index",
	}

	build := &cobra.Command{
		Use:   "build",
		Short: "Index the registry and publish it as a snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			ws, err := cc.App.Load(cmd.Context())
			if err != nil {
				return err
			}
			info, err := cc.App.PublishIndex(cmd.Context(), ws.Index)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), info)
		},
	}

	lookup := &cobra.Command{
		Use:   "lookup <geometry-id>",
		Short: "Print the registry records of a geometry from the snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			snap, err := cc.App.OpenSnapshot(cmd.Context())
			if err != nil {
				return err
			}
			defer snap.Close()

			records, err := snap.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return serrors.NewIndexError(serrors.CodeGeometryNotFound, "no records for geometry "+args[0], nil)
			}
			return printJSON(cmd.OutOrStdout(), index.DescribeAll(records, cc.Config.Views.PopupExclude))
		},
	}

	cmd.AddCommand(build, lookup)
	return cmd
}

func newWalkabilityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "walkability",
		Short: "Inspect the walkability layer",
	}

	var indicator string
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the walkability layer or one of its indicators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			fc, err := cc.App.LoadWalkability(cmd.Context())
			if err != nil {
				return err
			}

			if indicator == "" {
				return printJSON(cmd.OutOrStdout(), walkability.Overview(fc))
			}
			summary, err := walkability.IndicatorStats(fc, indicator)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), summary)
		},
	}
	stats.Flags().StringVar(&indicator, "indicator", "", fmt.Sprintf("indicator to summarise, one of %v", walkability.Indicators()))

	cmd.AddCommand(stats)
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the views and registry lookups over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := FromCommand(cmd)
			if err != nil {
				return err
			}
			if err := cc.App.Start(cmd.Context()); err != nil {
				return err
			}
			return cc.App.Wait(cmd.Context())
		},
	}
}
