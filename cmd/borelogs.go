package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"

	"github.com/stratabase/borecore/internal/model"
	"github.com/stratabase/borecore/internal/query"
)

var borelogsCmd = &cobra.Command{
	Use:   "borelogs",
	Short: "Inspect borelogs and their joined hierarchy",
}

var borelogsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List borelogs joined against their structures and workflow state",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		store, err := initBlob(ctx)
		if err != nil {
			return err
		}

		opts := query.BorelogOptions{}
		opts.ProjectID, _ = cmd.Flags().GetString("project")
		status, _ := cmd.Flags().GetString("status")
		opts.Status = model.WorkflowStatus(strings.ToUpper(status))
		opts.StructureType, _ = cmd.Flags().GetString("structure-type")
		opts.SubstructureType, _ = cmd.Flags().GetString("substructure-type")
		opts.Number, _ = cmd.Flags().GetString("number")
		opts.Offset, _ = cmd.Flags().GetInt("offset")
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		bbox, _ := cmd.Flags().GetString("bbox")
		if bbox != "" {
			bounds, err := parseBounds(bbox)
			if err != nil {
				return err
			}
			opts.Bounds = bounds
		}

		page, err := query.New(store).ListBorelogs(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "borelogs list")
		}
		return emitStdout(cmd, page)
	},
}

// parseBounds reads a "minLng,minLat,maxLng,maxLat" box.
func parseBounds(s string) (*geom.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox must be minLng,minLat,maxLng,maxLat, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bbox component %q: %w", p, err)
		}
		vals[i] = v
	}
	return geom.NewBounds(geom.XY).Set(vals[0], vals[1], vals[2], vals[3]), nil
}

func init() {
	borelogsListCmd.Flags().String("project", "", "filter by project id")
	borelogsListCmd.Flags().String("status", "", "filter by workflow status (draft, submitted, approved, rejected, returned_for_revision)")
	borelogsListCmd.Flags().String("structure-type", "", "substring filter on structure type")
	borelogsListCmd.Flags().String("substructure-type", "", "substring filter on substructure type")
	borelogsListCmd.Flags().String("number", "", "substring filter on borelog number")
	borelogsListCmd.Flags().String("bbox", "", "bounding box filter: minLng,minLat,maxLng,maxLat")
	borelogsListCmd.Flags().Int("offset", 0, "pagination offset")
	borelogsListCmd.Flags().Int("limit", 50, "max rows to return (0 = all)")

	borelogsCmd.AddCommand(borelogsListCmd)
	rootCmd.AddCommand(borelogsCmd)
}
