package panorama

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/panowalk/internal/model"
	"github.com/sells-group/panowalk/internal/resilience"
	"github.com/sells-group/panowalk/internal/store"
	"github.com/sells-group/panowalk/pkg/google"
)

// viewOffsets are the headings, relative to the street direction, of the
// side views saved for each panorama.
var viewOffsets = []int{90, 270}

// ImageSource opens one Street View image.
type ImageSource interface {
	Image(ctx context.Context, req google.ImageRequest) (io.ReadCloser, error)
}

// DownloadStats summarizes a download pass.
type DownloadStats struct {
	Written int `json:"written"`
	Skipped int `json:"skipped"`
	Missing int `json:"missing"`
}

// Downloader saves side views of each record's panorama under
// <dir>/<region-slug>/<panoID>-<offset>.jpg.
type Downloader struct {
	src   ImageSource
	dir   string
	retry resilience.RetryConfig
}

// NewDownloader creates a Downloader writing below dir.
func NewDownloader(src ImageSource, dir string, retry resilience.RetryConfig) *Downloader {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("streetview", "image")
	}
	return &Downloader{src: src, dir: dir, retry: retry}
}

// ViewHeading returns the absolute heading of a side view.
func ViewHeading(direction float64, offset int) float64 {
	return math.Mod(direction+float64(offset), 360)
}

// Path returns the file a view of panoID is saved to.
func (d *Downloader) Path(region, panoID string, offset int) string {
	return filepath.Join(d.dir, store.Slug(region), fmt.Sprintf("%s-%d.jpg", panoID, offset))
}

// Download fetches both side views for every record with a panorama. Views
// already on disk are skipped. The first failed fetch aborts the pass.
func (d *Downloader) Download(ctx context.Context, region string, records []model.Record) (DownloadStats, error) {
	var stats DownloadStats
	if err := os.MkdirAll(filepath.Join(d.dir, store.Slug(region)), 0o755); err != nil {
		return stats, eris.Wrap(err, "panorama: create image dir")
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if !rec.HasPanorama() {
			stats.Missing++
			continue
		}
		if _, ok := seen[rec.PanoramaID]; ok {
			continue
		}
		seen[rec.PanoramaID] = struct{}{}

		for _, offset := range viewOffsets {
			path := d.Path(region, rec.PanoramaID, offset)
			if _, err := os.Stat(path); err == nil {
				stats.Skipped++
				continue
			}

			req := google.ImageRequest{
				PanoramaID: rec.PanoramaID,
				Location:   rec.PanoramaLocation(),
				Heading:    ViewHeading(rec.Direction, offset),
			}
			if err := d.save(ctx, req, path); err != nil {
				return stats, eris.Wrapf(err, "panorama: download %s", filepath.Base(path))
			}
			stats.Written++
		}
	}

	zap.L().Info("downloaded panorama views",
		zap.String("region", region),
		zap.Int("written", stats.Written),
		zap.Int("skipped", stats.Skipped),
		zap.Int("missing", stats.Missing),
	)
	return stats, nil
}

func (d *Downloader) save(ctx context.Context, req google.ImageRequest, path string) error {
	return resilience.Do(ctx, d.retry, func(ctx context.Context) error {
		body, err := d.src.Image(ctx, req)
		if err != nil {
			return err
		}
		defer body.Close() //nolint:errcheck

		tmp, err := os.CreateTemp(filepath.Dir(path), ".view-*.jpg")
		if err != nil {
			return eris.Wrap(err, "create temp file")
		}
		defer os.Remove(tmp.Name()) //nolint:errcheck

		if _, err := io.Copy(tmp, body); err != nil {
			_ = tmp.Close()
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return resilience.NewTransientError(eris.Wrap(err, "copy image"), 0)
			}
			return eris.Wrap(err, "copy image")
		}
		if err := tmp.Close(); err != nil {
			return eris.Wrap(err, "close temp file")
		}
		return eris.Wrap(os.Rename(tmp.Name(), path), "rename image")
	})
}
