package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// LineFeature builds a two-point LineString feature from a to b.
func LineFeature(a, b Coordinate, props map[string]any) *geojson.Feature {
	return &geojson.Feature{
		Geometry:   geom.NewLineStringFlat(geom.XY, []float64{a.Lng, a.Lat, b.Lng, b.Lat}),
		Properties: props,
	}
}

// PointFeature builds a Point feature at c.
func PointFeature(c Coordinate, props map[string]any) *geojson.Feature {
	return &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{c.Lng, c.Lat}),
		Properties: props,
	}
}

// EncodeFeatures marshals features as a GeoJSON FeatureCollection.
func EncodeFeatures(features []*geojson.Feature) ([]byte, error) {
	if features == nil {
		features = []*geojson.Feature{}
	}
	data, err := json.Marshal(&geojson.FeatureCollection{Features: features})
	if err != nil {
		return nil, eris.Wrap(err, "geo: encode feature collection")
	}
	return data, nil
}
