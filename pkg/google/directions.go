package google

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-polyline"
	"go.uber.org/zap"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/resilience"
)

const directionsPath = "/maps/api/directions/json"

// DefaultTravelMode is the Directions travel mode used when none is set.
const DefaultTravelMode = "walking"

// Directions produces waypoint traces between two coordinates.
type Directions interface {
	Route(ctx context.Context, from, to geo.Coordinate) ([]geo.Coordinate, error)
	Close() error
}

// DirectionsClient produces waypoint traces from the Google Directions API.
type DirectionsClient struct {
	*baseClient
	mode string
}

// NewDirectionsClient creates a Directions client. An empty mode selects
// DefaultTravelMode.
func NewDirectionsClient(apiKey, mode string, opts ...Option) *DirectionsClient {
	if mode == "" {
		mode = DefaultTravelMode
	}
	return &DirectionsClient{
		baseClient: newBaseClient(apiKey, opts),
		mode:       mode,
	}
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: l.Lat, Lng: l.Lng}
}

type directionsStep struct {
	StartLocation latLng `json:"start_location"`
	EndLocation   latLng `json:"end_location"`
	Polyline      struct {
		Points string `json:"points"`
	} `json:"polyline"`
}

type directionsLeg struct {
	Steps       []directionsStep `json:"steps"`
	EndLocation latLng           `json:"end_location"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []directionsLeg `json:"legs"`
	} `json:"routes"`
}

// Route returns the waypoint trace of the first route from one coordinate to
// another. Each step start and the final destination appear twice in a row;
// interior polyline points appear once. No route yields an empty trace.
func (c *DirectionsClient) Route(ctx context.Context, from, to geo.Coordinate) ([]geo.Coordinate, error) {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("directions", "route")
	}

	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*directionsResponse, error) {
		return c.fetch(ctx, from, to)
	})
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		zap.L().Debug("no route found",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.String("status", resp.Status),
		)
		return nil, nil
	default:
		return nil, statusError("directions", resp.Status, resp.ErrorMessage)
	}

	if len(resp.Routes) == 0 {
		return nil, nil
	}
	return buildTrace(resp.Routes[0].Legs)
}

func (c *DirectionsClient) fetch(ctx context.Context, from, to geo.Coordinate) (*directionsResponse, error) {
	params := url.Values{}
	params.Set("origin", from.String())
	params.Set("destination", to.String())
	params.Set("mode", c.mode)

	resp, err := c.get(ctx, directionsPath, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var result directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal directions response")
	}
	if resilience.IsTransientAPIStatus(result.Status) {
		return nil, statusError("directions", result.Status, result.ErrorMessage)
	}
	return &result, nil
}

// Close releases idle connections held by the client.
func (c *DirectionsClient) Close() error {
	c.closeIdle()
	return nil
}

func buildTrace(legs []directionsLeg) ([]geo.Coordinate, error) {
	var trace []geo.Coordinate
	for _, leg := range legs {
		for _, step := range leg.Steps {
			start := step.StartLocation.coordinate()
			trace = append(trace, start, start)

			if step.Polyline.Points == "" {
				continue
			}
			coords, _, err := polyline.DecodeCoords([]byte(step.Polyline.Points))
			if err != nil {
				return nil, eris.Wrap(err, "google: decode step polyline")
			}
			// The first and last points repeat the step's endpoints.
			for i := 1; i < len(coords)-1; i++ {
				trace = append(trace, geo.Coordinate{Lat: coords[i][0], Lng: coords[i][1]})
			}
		}
	}
	if len(legs) > 0 && len(trace) > 0 {
		end := legs[len(legs)-1].EndLocation.coordinate()
		trace = append(trace, end, end)
	}
	return trace, nil
}
