package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
	"github.com/sells-group/panowalk/internal/panorama"
	"github.com/sells-group/panowalk/internal/region"
	"github.com/sells-group/panowalk/internal/store"
	"github.com/sells-group/panowalk/pkg/google"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Options())
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func newDirections() *google.DirectionsClient {
	return google.NewDirectionsClient(cfg.Google.APIKey, cfg.Google.TravelMode,
		google.WithBaseURL(cfg.Google.DirectionsBaseURL),
		google.WithTimeout(cfg.Google.Timeout()),
		google.WithRateLimit(cfg.Google.DirectionsRPS),
		google.WithRetry(cfg.Routing.Retry()),
	)
}

func newStreetView() *google.StreetViewClient {
	return google.NewStreetViewClient(cfg.Google.APIKey, cfg.Imagery.ImageSize, cfg.Imagery.FOV,
		google.WithBaseURL(cfg.Google.StreetViewBaseURL),
		google.WithTimeout(cfg.Google.Timeout()),
		google.WithRateLimit(cfg.Google.StreetViewRPS),
	)
}

// target is one named region center.
type target struct {
	Name   string
	Center geo.Coordinate
}

// generateRegion runs one region through the generator and persists the
// result. The run row tracks each phase and ends complete or failed.
func generateRegion(ctx context.Context, st store.Store, router region.Router, imagery region.Imagery, rc region.Config, t target) (*model.Run, error) {
	log := zap.L().With(zap.String("region", t.Name))

	run, err := st.CreateRun(ctx, t.Name, t.Center)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}

	gen := region.NewGenerator(router, imagery, rc, region.WithProgress(func(s model.RunStatus) {
		if err := st.UpdateRunStatus(ctx, run.ID, s); err != nil {
			log.Warn("failed to update run status", zap.String("status", string(s)), zap.Error(err))
		}
	}))

	fail := func(err error) (*model.Run, error) {
		// The run row is updated even after a signal cancelled ctx.
		if uerr := st.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, model.RunStatusFailed); uerr != nil {
			log.Warn("failed to mark run failed", zap.Error(uerr))
		}
		run.Status = model.RunStatusFailed
		return run, err
	}

	r, err := gen.Generate(ctx, t.Name, t.Center)
	if err != nil {
		return fail(eris.Wrapf(err, "generate region %s", t.Name))
	}

	if err := st.SaveRecords(ctx, run.ID, r.Records); err != nil {
		return fail(eris.Wrapf(err, "save records for %s", t.Name))
	}
	if err := st.CompleteRun(ctx, run.ID, len(r.Records)); err != nil {
		return fail(eris.Wrapf(err, "complete run for %s", t.Name))
	}

	run.Status = model.RunStatusComplete
	run.Records = len(r.Records)
	log.Info("region complete",
		zap.String("run_id", run.ID),
		zap.Int("segments", len(r.Segments)),
		zap.Int("points", len(r.Points)),
		zap.Int("records", len(r.Records)),
	)
	return run, nil
}

// newImagery wraps the Street View client in the configured retry policy.
func newImagery(sv panorama.Lookup) *panorama.Enricher {
	return panorama.NewEnricher(sv, cfg.Imagery.Retry())
}
