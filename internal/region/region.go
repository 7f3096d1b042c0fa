// Package region walks the streets around a center coordinate and turns them
// into one record per unique panorama.
package region

import (
	"context"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
	"github.com/sells-group/panowalk/internal/street"
)

// Router returns the waypoint trace from one coordinate to another. The
// handle is opened before a run and closed after it.
type Router interface {
	Route(ctx context.Context, from, to geo.Coordinate) ([]geo.Coordinate, error)
	io.Closer
}

// Imagery returns the panorama nearest a location, or nil when none exists.
type Imagery interface {
	Metadata(ctx context.Context, loc geo.Coordinate, heading float64) (*model.Panorama, error)
}

// MissingPolicy decides what happens to a sample point without imagery.
type MissingPolicy string

const (
	// MissingKeep records the point with empty panorama fields.
	MissingKeep MissingPolicy = "keep"
	// MissingSkip drops the point.
	MissingSkip MissingPolicy = "skip"
)

// ParseMissingPolicy validates a configured policy name. Empty selects
// MissingKeep.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch p := MissingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MissingKeep, nil
	case MissingKeep, MissingSkip:
		return p, nil
	default:
		return "", eris.Errorf("region: unknown missing imagery policy %q", s)
	}
}

// Config controls ring geometry and enrichment.
type Config struct {
	RadiiMiles    []float64
	Bearings      int
	StepDegrees   float64
	MissingPolicy MissingPolicy
}

// DefaultConfig is a single quarter-mile ring of 90 destinations 4 degrees
// apart.
func DefaultConfig() Config {
	return Config{
		RadiiMiles:    []float64{0.25},
		Bearings:      90,
		StepDegrees:   4,
		MissingPolicy: MissingKeep,
	}
}

// Region is the result of one generation run.
type Region struct {
	Name         string               `json:"name"`
	Center       geo.Coordinate       `json:"center"`
	Destinations []geo.Coordinate     `json:"destinations"`
	Segments     []street.Segment     `json:"segments"`
	Points       []street.SamplePoint `json:"points"`
	Records      []model.Record       `json:"records"`
}

// Destinations returns the ring points for center, ring by ring and in
// bearing order within a ring.
func Destinations(center geo.Coordinate, cfg Config) []geo.Coordinate {
	out := make([]geo.Coordinate, 0, len(cfg.RadiiMiles)*cfg.Bearings)
	for _, mi := range cfg.RadiiMiles {
		km := geo.MilesToKm(mi)
		for i := 0; i < cfg.Bearings; i++ {
			out = append(out, geo.RadialDestination(center, float64(i)*cfg.StepDegrees, km))
		}
	}
	return out
}

// Option configures a Generator.
type Option func(*Generator)

// WithProgress registers a callback invoked as the run enters each phase.
func WithProgress(fn func(model.RunStatus)) Option {
	return func(g *Generator) {
		g.progress = fn
	}
}

// Generator runs the walk for one region at a time. Calls are sequential.
type Generator struct {
	router   Router
	imagery  Imagery
	cfg      Config
	progress func(model.RunStatus)
}

// NewGenerator creates a Generator. The caller owns router and closes it
// after the last run.
func NewGenerator(router Router, imagery Imagery, cfg Config, opts ...Option) *Generator {
	if cfg.MissingPolicy == "" {
		cfg.MissingPolicy = MissingKeep
	}
	g := &Generator{router: router, imagery: imagery, cfg: cfg}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate walks the region and enriches every sample point. A permanent
// imagery error or context cancellation aborts the run.
func (g *Generator) Generate(ctx context.Context, name string, center geo.Coordinate) (*Region, error) {
	r, err := g.Walk(ctx, name, center)
	if err != nil {
		return nil, err
	}
	if err := g.enrich(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Walk computes destinations, segments and sample points without querying
// imagery.
func (g *Generator) Walk(ctx context.Context, name string, center geo.Coordinate) (*Region, error) {
	log := zap.L().With(zap.String("region", name))
	r := &Region{
		Name:         name,
		Center:       center,
		Destinations: Destinations(center, g.cfg),
	}

	g.report(model.RunStatusRouting)
	var segments []street.Segment
	for i, dest := range r.Destinations {
		trace, err := g.router.Route(ctx, center, dest)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "region: route collection")
			}
			log.Warn("route failed, skipping destination",
				zap.Int("destination", i),
				zap.String("to", dest.String()),
				zap.Error(err),
			)
			continue
		}
		segments = append(segments, street.ExtractSegments(trace)...)
	}

	g.report(model.RunStatusSampling)
	r.Segments, r.Points = street.SampleAll(street.Dedupe(segments))

	log.Info("walked region",
		zap.Int("destinations", len(r.Destinations)),
		zap.Int("segments", len(r.Segments)),
		zap.Int("points", len(r.Points)),
	)
	return r, nil
}

func (g *Generator) enrich(ctx context.Context, r *Region) error {
	g.report(model.RunStatusEnriching)

	seen := make(map[geo.Coordinate]struct{}, len(r.Points))
	var missing, duplicates int
	for _, pt := range r.Points {
		pano, err := g.imagery.Metadata(ctx, pt.Coordinate, pt.Bearing)
		if err != nil {
			return eris.Wrapf(err, "region: imagery metadata at %s", pt.Coordinate)
		}

		rec := model.Record{
			PointID:   len(r.Records),
			Region:    r.Name,
			StreetID:  pt.SegmentID,
			Lat:       pt.Lat,
			Lng:       pt.Lng,
			Direction: pt.Bearing,
		}

		if pano == nil {
			missing++
			if g.cfg.MissingPolicy == MissingSkip {
				continue
			}
			r.Records = append(r.Records, rec)
			continue
		}

		if _, ok := seen[pano.Location]; ok {
			duplicates++
			continue
		}
		seen[pano.Location] = struct{}{}

		rec.PanoramaID = pano.ID
		rec.PanoramaDate = pano.Date
		rec.PanoramaLat = pano.Location.Lat
		rec.PanoramaLng = pano.Location.Lng
		r.Records = append(r.Records, rec)
	}

	zap.L().Info("enriched region",
		zap.String("region", r.Name),
		zap.Int("records", len(r.Records)),
		zap.Int("duplicates", duplicates),
		zap.Int("missing", missing),
	)
	return nil
}

func (g *Generator) report(status model.RunStatus) {
	if g.progress != nil {
		g.progress(status)
	}
}
