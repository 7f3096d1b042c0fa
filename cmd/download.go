package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/panowalk/internal/panorama"
	"github.com/sells-group/panowalk/internal/store"
)

var (
	downloadRegions     []string
	downloadDir         string
	downloadConcurrency int
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download left and right Street View images for stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("download"); err != nil {
			return err
		}
		for _, name := range downloadRegions {
			if err := store.CheckRegionName(name); err != nil {
				return err
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sv := newStreetView()
		defer sv.Close() //nolint:errcheck

		dir := downloadDir
		if dir == "" {
			dir = cfg.Download.ImagesDir
		}
		d := panorama.NewDownloader(sv, dir, cfg.Imagery.Retry())

		return downloadRegionImages(ctx, cmd.OutOrStdout(), st, d, downloadRegions, downloadConcurrency)
	},
}

func init() {
	downloadCmd.Flags().StringSliceVar(&downloadRegions, "region", nil, "region to download (repeatable)")
	downloadCmd.Flags().StringVar(&downloadDir, "dir", "", "image directory (default from config)")
	downloadCmd.Flags().IntVar(&downloadConcurrency, "concurrency", 1, "regions downloaded in parallel")
	_ = downloadCmd.MarkFlagRequired("region")
	rootCmd.AddCommand(downloadCmd)
}

// downloadRegionImages reads each region's records from st and saves their
// views. The first failing region cancels the rest.
func downloadRegionImages(ctx context.Context, out io.Writer, st store.Store, d *panorama.Downloader, regions []string, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	for _, name := range regions {
		g.Go(func() error {
			records, err := st.ListRecords(gctx, name)
			if err != nil {
				return eris.Wrapf(err, "download: list records for %s", name)
			}
			if len(records) == 0 {
				zap.L().Warn("no records stored for region", zap.String("region", name))
				return nil
			}

			stats, err := d.Download(gctx, name, records)
			if err != nil {
				return eris.Wrapf(err, "download: region %s", name)
			}

			mu.Lock()
			fmt.Fprintf(out, "%s: %d written, %d skipped, %d without imagery\n",
				name, stats.Written, stats.Skipped, stats.Missing)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}
