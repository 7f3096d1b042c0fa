package street

import (
	"github.com/sells-group/panowalk/internal/geo"
)

// SamplePoint is a coordinate on a segment, tagged with the segment's id and
// bearing.
type SamplePoint struct {
	geo.Coordinate
	SegmentID int     `json:"street_id"`
	Bearing   float64 `json:"bearing"`
}

// Sample computes the segment bearing and the points spaced every
// geo.SampleSpacingMeters from A toward B. Segments shorter than one spacing
// produce no points.
func Sample(seg Segment) (Segment, []SamplePoint) {
	seg.Bearing = geo.Bearing(seg.A, seg.B)

	coords := geo.Interpolate(seg.A, seg.B)
	points := make([]SamplePoint, 0, len(coords))
	for _, c := range coords {
		points = append(points, SamplePoint{
			Coordinate: c,
			SegmentID:  seg.ID,
			Bearing:    seg.Bearing,
		})
	}
	return seg, points
}

// SampleAll samples every segment in order. The returned segments carry their
// bearings; points are ordered by segment id, then by distance from A.
func SampleAll(segments []Segment) ([]Segment, []SamplePoint) {
	out := make([]Segment, 0, len(segments))
	var points []SamplePoint
	for _, s := range segments {
		s, pts := Sample(s)
		out = append(out, s)
		points = append(points, pts...)
	}
	return out, points
}
