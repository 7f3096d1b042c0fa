// Package model defines the records produced by walking a region.
package model

import (
	"github.com/sells-group/panowalk/internal/geo"
)

// Panorama is the imagery identity returned for a queried location.
type Panorama struct {
	ID       string         `json:"pano_id"`
	Date     string         `json:"date"`
	Location geo.Coordinate `json:"location"`
}

// Record is one sample point that resolved to a unique panorama. Field order
// matches the persisted points file: region, streetID, lat, lng, direction,
// panoramaID, panorama_date, panorama_lat, panorama_lng.
type Record struct {
	PointID      int     `json:"point_id" csv:"-"`
	Region       string  `json:"region" csv:"region"`
	StreetID     int     `json:"street_id" csv:"streetID"`
	Lat          float64 `json:"lat" csv:"lat"`
	Lng          float64 `json:"lng" csv:"lng"`
	Direction    float64 `json:"direction" csv:"direction"`
	PanoramaID   string  `json:"panorama_id" csv:"panoramaID"`
	PanoramaDate string  `json:"panorama_date" csv:"panorama_date"`
	PanoramaLat  float64 `json:"panorama_lat" csv:"panorama_lat"`
	PanoramaLng  float64 `json:"panorama_lng" csv:"panorama_lng"`
}

// RecordColumns lists the persisted column names in file order.
var RecordColumns = []string{
	"region", "streetID", "lat", "lng", "direction",
	"panoramaID", "panorama_date", "panorama_lat", "panorama_lng",
}

// Location returns the sampled coordinate.
func (r Record) Location() geo.Coordinate {
	return geo.Coordinate{Lat: r.Lat, Lng: r.Lng}
}

// PanoramaLocation returns the panorama's own coordinate.
func (r Record) PanoramaLocation() geo.Coordinate {
	return geo.Coordinate{Lat: r.PanoramaLat, Lng: r.PanoramaLng}
}

// HasPanorama reports whether imagery was found for the record.
func (r Record) HasPanorama() bool {
	return r.PanoramaID != ""
}
