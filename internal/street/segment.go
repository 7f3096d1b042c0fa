// Package street recovers street segments from routed waypoint traces and
// samples evenly spaced points along them.
package street

import (
	"github.com/sells-group/panowalk/internal/geo"
)

const (
	// vertexPrecision is the rounding applied before comparing trace entries.
	vertexPrecision = 6

	// originPrecision is the looser rounding used to find repeated route
	// origins, tolerating small rendering drift.
	originPrecision = 3
)

// Segment is one traversable street section from A to B. ID is assigned by
// Dedupe; Bearing is filled by Sample.
type Segment struct {
	ID      int            `json:"street_id"`
	A       geo.Coordinate `json:"a"`
	B       geo.Coordinate `json:"b"`
	Bearing float64        `json:"bearing"`
}

// key identifies a segment by its endpoint pair.
type key struct {
	a, b geo.Coordinate
}

// ExtractSegments reduces a waypoint trace to its intersection segments.
//
// Routers render an intersection vertex twice in a row; single entries are
// curve points and are ignored. The first intersection is the route origin,
// and every later vertex that matches it to three decimals starts a new run.
// Segments join consecutive vertices within a run; degenerate segments are
// dropped. An empty or intersection-free trace yields no segments.
func ExtractSegments(trace []geo.Coordinate) []Segment {
	vertices := intersections(trace)
	if len(vertices) == 0 {
		return nil
	}

	var segments []Segment
	for _, run := range splitRuns(vertices) {
		for i := 0; i+1 < len(run); i++ {
			if run[i] == run[i+1] {
				continue
			}
			segments = append(segments, Segment{A: run[i], B: run[i+1]})
		}
	}
	return segments
}

// intersections returns one vertex per adjacent duplicate pair, in order.
func intersections(trace []geo.Coordinate) []geo.Coordinate {
	var out []geo.Coordinate
	for i := 0; i+1 < len(trace); i++ {
		cur := trace[i].Round(vertexPrecision)
		if cur == trace[i+1].Round(vertexPrecision) {
			out = append(out, cur)
		}
	}
	return out
}

// splitRuns partitions vertices at every index that matches the origin.
func splitRuns(vertices []geo.Coordinate) [][]geo.Coordinate {
	origin := vertices[0].Round(originPrecision)

	var starts []int
	for i, v := range vertices {
		if v.Round(originPrecision) == origin {
			starts = append(starts, i)
		}
	}
	starts = append(starts, len(vertices))

	runs := make([][]geo.Coordinate, 0, len(starts)-1)
	for i := 0; i+1 < len(starts); i++ {
		runs = append(runs, vertices[starts[i]:starts[i+1]])
	}
	return runs
}

// Dedupe removes segments with an identical endpoint pair, keeping first-seen
// order, and assigns sequential street ids starting at zero.
func Dedupe(segments []Segment) []Segment {
	seen := make(map[key]struct{}, len(segments))
	out := make([]Segment, 0, len(segments))
	for _, s := range segments {
		k := key{a: s.A, b: s.B}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		s.ID = len(out)
		out = append(out, s)
	}
	return out
}
