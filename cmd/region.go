package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/store"
)

var (
	regionName   string
	regionCenter string
)

var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Walk one region and record its panoramas",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("region"); err != nil {
			return err
		}
		t, err := parseTarget(regionName, regionCenter)
		if err != nil {
			return err
		}
		rc, err := cfg.RegionConfig()
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		router := newDirections()
		defer router.Close() //nolint:errcheck
		sv := newStreetView()
		defer sv.Close() //nolint:errcheck

		run, err := generateRegion(ctx, st, router, newImagery(sv), rc, t)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records (run %s)\n", run.Region, run.Records, run.ID)
		return nil
	},
}

// parseTarget validates a region name and "lat,lng" center.
func parseTarget(name, center string) (target, error) {
	if err := store.CheckRegionName(name); err != nil {
		return target{}, err
	}
	c, err := geo.ParseCoordinate(center)
	if err != nil {
		return target{}, eris.Wrapf(err, "region %s", name)
	}
	return target{Name: name, Center: c}, nil
}

func init() {
	regionCmd.Flags().StringVar(&regionName, "name", "", "region name, used for output files")
	regionCmd.Flags().StringVar(&regionCenter, "center", "", "center coordinate as lat,lng")
	_ = regionCmd.MarkFlagRequired("name")
	_ = regionCmd.MarkFlagRequired("center")
	rootCmd.AddCommand(regionCmd)
}
