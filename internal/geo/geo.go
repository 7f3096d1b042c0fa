// Package geo provides spherical-earth coordinate math used to walk a region:
// distance, bearing, linear interpolation between nearby points and radial
// projection from a center.
package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

const (
	// EarthRadiusKM is the mean Earth radius used by every formula in this package.
	EarthRadiusKM = 6371.01

	// SampleSpacingMeters is the linear distance between interpolated points.
	SampleSpacingMeters = 15.0

	// poleEpsilon is the cos(latitude) threshold below which a projected point
	// is treated as a pole and its longitude is left unchanged.
	poleEpsilon = 1e-6

	kmPerMile = 1.609344
)

// Coordinate is a latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate lies within [-90,90] x [-180,180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Round returns the coordinate rounded to the given number of decimal places.
func (c Coordinate) Round(places int) Coordinate {
	return Coordinate{Lat: roundTo(c.Lat, places), Lng: roundTo(c.Lng, places)}
}

// String formats the coordinate as "lat,lng", the form map APIs accept.
func (c Coordinate) String() string {
	return strconv.FormatFloat(c.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(c.Lng, 'f', -1, 64)
}

// ParseCoordinate parses "lat,lng" and rejects out-of-range values.
func ParseCoordinate(s string) (Coordinate, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return Coordinate{}, eris.Errorf("geo: coordinate %q must be lat,lng", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return Coordinate{}, eris.Wrapf(err, "geo: parse latitude %q", latStr)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return Coordinate{}, eris.Wrapf(err, "geo: parse longitude %q", lngStr)
	}
	c := Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return Coordinate{}, eris.Errorf("geo: coordinate %s out of range", c)
	}
	return c, nil
}

// MilesToKm converts statute miles to kilometers.
func MilesToKm(mi float64) float64 {
	return mi * kmPerMile
}

// Bearing returns the initial compass bearing in [0,360) along the great
// circle from a to b.
func Bearing(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLng := radians(b.Lng - a.Lng)

	x := math.Sin(dLng) * math.Cos(lat2)
	y := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	initial := degrees(math.Atan2(x, y))
	return math.Mod(initial+360, 360)
}

// DistanceKm returns the haversine great-circle distance between a and b in
// kilometers.
func DistanceKm(a, b Coordinate) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLng/2), 2)
	c := 2 * math.Asin(math.Sqrt(math.Min(1, h)))
	return c * EarthRadiusKM
}

// Interpolate returns floor(distance/15m) points between a and b, spaced
// evenly by linear interpolation in latitude/longitude space. The first point
// is a; b itself is never included. Only valid for short segments where
// linear and geodesic interpolation agree.
func Interpolate(a, b Coordinate) []Coordinate {
	split := int(DistanceKm(a, b) * 1000 / SampleSpacingMeters)
	if split <= 0 {
		return nil
	}

	points := make([]Coordinate, 0, split)
	for i := range split {
		f := float64(i) / float64(split)
		points = append(points, Coordinate{
			Lat: a.Lat + (b.Lat-a.Lat)*f,
			Lng: a.Lng + (b.Lng-a.Lng)*f,
		})
	}
	return points
}

// RadialDestination projects a point distanceKm away from origin along the
// given bearing. If the destination falls on a pole its longitude is held at
// the origin's longitude. The resulting longitude is wrapped into [-180,180).
func RadialDestination(origin Coordinate, bearing, distanceKm float64) Coordinate {
	lat1 := radians(origin.Lat)
	lng1 := radians(origin.Lng)
	brg := radians(bearing)
	d := distanceKm / EarthRadiusKM

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))

	lng2 := lng1
	if math.Abs(math.Cos(lat2)) >= poleEpsilon {
		lng2 = lng1 + math.Atan2(
			math.Sin(brg)*math.Sin(d)*math.Cos(lat1),
			math.Cos(d)-math.Sin(lat1)*math.Sin(lat2),
		)
		lng2 = math.Mod(lng2+3*math.Pi, 2*math.Pi) - math.Pi
	}

	return Coordinate{Lat: degrees(lat2), Lng: degrees(lng2)}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
