package region

import (
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/panowalk/internal/geo"
)

// Shapefile attribute columns. DBF names are limited to 10 characters.
const (
	fieldStreetID = "STREET_ID"
	fieldBearing  = "BEARING"
	fieldLengthM  = "LENGTH_M"
)

// ShapefilePaths returns the segment and sample point shapefiles written for
// path. Any extension on path is replaced with .shp.
func ShapefilePaths(path string) (segments, points string) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ".shp", base + "-points.shp"
}

// WriteShapefiles writes the segments as a polyline shapefile and the sample
// points as a point shapefile. Each gets its .shx index and .dbf table.
func (r *Region) WriteShapefiles(path string) error {
	segPath, ptPath := ShapefilePaths(path)
	if err := r.writeSegmentShapes(segPath); err != nil {
		return err
	}
	return r.writePointShapes(ptPath)
}

func (r *Region) writeSegmentShapes(path string) error {
	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return eris.Wrapf(err, "region: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{
		shp.NumberField(fieldStreetID, 10),
		shp.FloatField(fieldBearing, 12, 4),
		shp.FloatField(fieldLengthM, 12, 2),
	}); err != nil {
		return eris.Wrapf(err, "region: set fields %s", path)
	}

	for _, s := range r.Segments {
		line := shp.NewPolyLine([][]shp.Point{{shpPoint(s.A), shpPoint(s.B)}})
		row := int(w.Write(line))
		attrs := []any{s.ID, s.Bearing, geo.DistanceKm(s.A, s.B) * 1000}
		for i, v := range attrs {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return eris.Wrapf(err, "region: write segment %d attributes", s.ID)
			}
		}
	}
	return nil
}

func (r *Region) writePointShapes(path string) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "region: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{
		shp.NumberField(fieldStreetID, 10),
		shp.FloatField(fieldBearing, 12, 4),
	}); err != nil {
		return eris.Wrapf(err, "region: set fields %s", path)
	}

	for i, p := range r.Points {
		pt := shpPoint(p.Coordinate)
		row := int(w.Write(&pt))
		if err := w.WriteAttribute(row, 0, p.SegmentID); err != nil {
			return eris.Wrapf(err, "region: write point %d attributes", i)
		}
		if err := w.WriteAttribute(row, 1, p.Bearing); err != nil {
			return eris.Wrapf(err, "region: write point %d attributes", i)
		}
	}
	return nil
}

func shpPoint(c geo.Coordinate) shp.Point {
	return shp.Point{X: c.Lng, Y: c.Lat}
}
