package region

import (
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
)

// Feature kinds set on the "kind" property.
const (
	KindCenter      = "center"
	KindDestination = "destination"
	KindSegment     = "segment"
	KindSample      = "sample"
	KindRecord      = "record"
)

// Features renders the walked region as GeoJSON features: the center, ring
// destinations, segments and sample points, in that order.
func (r *Region) Features() []*geojson.Feature {
	out := make([]*geojson.Feature, 0, 1+len(r.Destinations)+len(r.Segments)+len(r.Points))
	out = append(out, geo.PointFeature(r.Center, map[string]any{
		"kind":   KindCenter,
		"region": r.Name,
	}))
	for i, d := range r.Destinations {
		out = append(out, geo.PointFeature(d, map[string]any{
			"kind":  KindDestination,
			"index": i,
		}))
	}
	for _, s := range r.Segments {
		out = append(out, geo.LineFeature(s.A, s.B, map[string]any{
			"kind":      KindSegment,
			"street_id": s.ID,
			"bearing":   s.Bearing,
		}))
	}
	for _, p := range r.Points {
		out = append(out, geo.PointFeature(p.Coordinate, map[string]any{
			"kind":      KindSample,
			"street_id": p.SegmentID,
			"bearing":   p.Bearing,
		}))
	}
	return out
}

// RecordFeatures renders records as points at their sample location.
func RecordFeatures(records []model.Record) []*geojson.Feature {
	out := make([]*geojson.Feature, 0, len(records))
	for _, rec := range records {
		props := map[string]any{
			"kind":      KindRecord,
			"region":    rec.Region,
			"street_id": rec.StreetID,
			"direction": rec.Direction,
		}
		if rec.HasPanorama() {
			props["panorama_id"] = rec.PanoramaID
			props["panorama_date"] = rec.PanoramaDate
		}
		out = append(out, geo.PointFeature(rec.Location(), props))
	}
	return out
}
