package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/panowalk/internal/model"
	"github.com/sells-group/panowalk/internal/region"
	"github.com/sells-group/panowalk/internal/store"
)

var batchRegionsFile string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Walk every region listed in a regions file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}
		targets, err := loadRegionsFile(batchRegionsFile)
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

		return processBatch(ctx, cmd.OutOrStdout(), st, router, newImagery(sv), rc, targets)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchRegionsFile, "regions", "regions.yaml", "YAML file listing region names and centers")
	rootCmd.AddCommand(batchCmd)
}

// regionsFile is the on-disk batch format:
//
//	regions:
//	  - name: Downtown LA
//	    center: 34.041842,-118.244583
type regionsFile struct {
	Regions []struct {
		Name   string `yaml:"name"`
		Center string `yaml:"center"`
	} `yaml:"regions"`
}

// loadRegionsFile reads and validates a batch file. Names must be unique.
func loadRegionsFile(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read regions file %s", path)
	}

	var f regionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "batch: parse regions file")
	}
	if len(f.Regions) == 0 {
		return nil, eris.Errorf("batch: %s lists no regions", path)
	}

	seen := make(map[string]struct{}, len(f.Regions))
	targets := make([]target, 0, len(f.Regions))
	for i, r := range f.Regions {
		t, err := parseTarget(r.Name, r.Center)
		if err != nil {
			return nil, eris.Wrapf(err, "batch: region %d", i)
		}
		if _, ok := seen[t.Name]; ok {
			return nil, eris.Errorf("batch: duplicate region %q", t.Name)
		}
		seen[t.Name] = struct{}{}
		targets = append(targets, t)
	}
	return targets, nil
}

// processBatch runs targets one after another. A failed region is logged and
// the batch moves on; cancellation stops it.
func processBatch(ctx context.Context, out io.Writer, st store.Store, router region.Router, imagery region.Imagery, rc region.Config, targets []target) error {
	zap.L().Info("processing batch", zap.Int("regions", len(targets)))

	var failed int
	for _, t := range targets {
		run, err := generateRegion(ctx, st, router, imagery, rc, t)
		if err != nil {
			if ctx.Err() != nil {
				return eris.Wrap(ctx.Err(), "batch: cancelled")
			}
			failed++
			zap.L().Error("region failed", zap.String("region", t.Name), zap.Error(err))
			fmt.Fprintf(out, "%s: %s\n", t.Name, model.RunStatusFailed)
			continue
		}
		fmt.Fprintf(out, "%s: %d records (run %s)\n", run.Region, run.Records, run.ID)
	}

	zap.L().Info("batch complete",
		zap.Int("regions", len(targets)),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return eris.Errorf("batch: %d of %d regions failed", failed, len(targets))
	}
	return nil
}
