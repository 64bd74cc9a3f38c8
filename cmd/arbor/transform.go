package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/arbor/pkg/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform [file]",
	Short: "Reproject a GeoJSON FeatureCollection",
	Long: `Reads a GeoJSON FeatureCollection from a file (or stdin) and writes it to stdout
with every geometry converted between projections. Defaults come from the configuration:
data projection to view projection.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		precision, _ := cmd.Flags().GetInt("precision")
		from = proj.Resolve(from, cfg.DataProjection)
		to = proj.Resolve(to, cfg.ViewProjection)
		if precision <= 0 {
			precision = cfg.Precision
		}

		in := cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		return transform(in, cmd.OutOrStdout(), from, to, precision)
	},
}

func init() {
	rootCmd.AddCommand(transformCmd)
	transformCmd.Flags().String("from", "", "Source projection (default: data_projection)")
	transformCmd.Flags().String("to", "", "Target projection (default: view_projection)")
	transformCmd.Flags().Int("precision", 0, "Decimals kept (default: precision)")
}

func transform(r io.Reader, w io.Writer, from, to string, precision int) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return fmt.Errorf("read feature collection: %w", err)
	}
	if err := reproject(fc, from, to, precision); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(fc)
}

func reproject(fc *geojson.FeatureCollection, from, to string, precision int) error {
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		g, err := proj.TransformGeometry(f.Geometry, from, to, precision)
		if err != nil {
			return fmt.Errorf("feature %d: %w", i, err)
		}
		f.Geometry = g
		if len(f.BBox) > 0 {
			f.BBox = geojson.NewBBox(g.Bound())
		}
	}
	if len(fc.BBox) == 0 {
		return nil
	}
	var (
		bound orb.Bound
		seen  bool
	)
	for _, f := range fc.Features {
		switch {
		case f.Geometry == nil:
		case seen:
			bound = bound.Union(f.Geometry.Bound())
		default:
			bound, seen = f.Geometry.Bound(), true
		}
	}
	fc.BBox = nil
	if seen {
		fc.BBox = geojson.NewBBox(bound)
	}
	return nil
}
