package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/region"
)

var (
	segmentsName   string
	segmentsCenter string
	segmentsOut    string
	segmentsFormat string
)

// Segment export formats.
const (
	formatGeoJSON   = "geojson"
	formatShapefile = "shp"
)

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Export a region's streets and sample points as GeoJSON or shapefiles",
	Long:  "Computes ring destinations, routes and segments without querying Street View, and writes them as a GeoJSON FeatureCollection or as segment and point shapefiles.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("segments"); err != nil {
			return err
		}
		t, err := parseTarget(segmentsName, segmentsCenter)
		if err != nil {
			return err
		}
		if err := checkSegmentsFormat(segmentsFormat, segmentsOut); err != nil {
			return err
		}
		rc, err := cfg.RegionConfig()
		if err != nil {
			return err
		}

		router := newDirections()
		defer router.Close() //nolint:errcheck

		r, err := region.NewGenerator(router, nil, rc).Walk(ctx, t.Name, t.Center)
		if err != nil {
			return err
		}

		if segmentsFormat == formatShapefile {
			return writeRegionShapefiles(cmd.OutOrStdout(), r, segmentsOut)
		}

		out := cmd.OutOrStdout()
		if segmentsOut != "" && segmentsOut != "-" {
			f, err := os.Create(segmentsOut)
			if err != nil {
				return eris.Wrap(err, "segments: create output")
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		return writeRegionGeoJSON(out, r)
	},
}

func checkSegmentsFormat(format, out string) error {
	switch format {
	case formatGeoJSON:
		return nil
	case formatShapefile:
		if out == "" || out == "-" {
			return eris.New("segments: --out is required for shp format")
		}
		return nil
	default:
		return eris.Errorf("segments: unknown format %q", format)
	}
}

func writeRegionShapefiles(w io.Writer, r *region.Region, path string) error {
	if err := r.WriteShapefiles(path); err != nil {
		return err
	}
	segPath, ptPath := region.ShapefilePaths(path)
	fmt.Fprintf(w, "wrote %d segments to %s and %d points to %s\n", len(r.Segments), segPath, len(r.Points), ptPath)
	return nil
}

func writeRegionGeoJSON(w io.Writer, r *region.Region) error {
	data, err := geo.EncodeFeatures(r.Features())
	if err != nil {
		return err
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return eris.Wrap(err, "segments: write geojson")
	}
	return nil
}

func init() {
	segmentsCmd.Flags().StringVar(&segmentsName, "name", "", "region name")
	segmentsCmd.Flags().StringVar(&segmentsCenter, "center", "", "center coordinate as lat,lng")
	segmentsCmd.Flags().StringVarP(&segmentsOut, "out", "o", "", "output file (default stdout; required for shp)")
	segmentsCmd.Flags().StringVar(&segmentsFormat, "format", formatGeoJSON, "output format: geojson or shp")
	_ = segmentsCmd.MarkFlagRequired("name")
	_ = segmentsCmd.MarkFlagRequired("center")
	rootCmd.AddCommand(segmentsCmd)
}
