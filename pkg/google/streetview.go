package google

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
	"github.com/sells-group/panowalk/internal/resilience"
)

const (
	streetViewMetadataPath = "/maps/api/streetview/metadata"
	streetViewImagePath    = "/maps/api/streetview"

	// DefaultImageSize is the requested image size in pixels.
	DefaultImageSize = "1200x800"
	// DefaultFOV is the requested horizontal field of view in degrees.
	DefaultFOV = 80
)

// StreetView looks up panoramas and fetches their imagery.
type StreetView interface {
	Metadata(ctx context.Context, loc geo.Coordinate, heading float64) (*model.Panorama, error)
	Image(ctx context.Context, req ImageRequest) (io.ReadCloser, error)
}

// ImageRequest identifies one view to fetch. PanoramaID is preferred over
// Location when set.
type ImageRequest struct {
	PanoramaID string
	Location   geo.Coordinate
	Heading    float64
}

// StreetViewClient talks to the Street View Static API.
type StreetViewClient struct {
	*baseClient
	size string
	fov  int
}

// NewStreetViewClient creates a Street View client. An empty size or zero fov
// selects the defaults.
func NewStreetViewClient(apiKey, size string, fov int, opts ...Option) *StreetViewClient {
	if size == "" {
		size = DefaultImageSize
	}
	if fov <= 0 {
		fov = DefaultFOV
	}
	return &StreetViewClient{
		baseClient: newBaseClient(apiKey, opts),
		size:       size,
		fov:        fov,
	}
}

type metadataResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	PanoID       string `json:"pano_id"`
	Date         string `json:"date"`
	Location     latLng `json:"location"`
}

// Metadata returns the panorama nearest loc, or nil when no imagery exists.
// Errors worth retrying are returned as *resilience.TransientError.
func (c *StreetViewClient) Metadata(ctx context.Context, loc geo.Coordinate, heading float64) (*model.Panorama, error) {
	params := c.viewParams(heading)
	params.Set("location", loc.String())

	resp, err := c.get(ctx, streetViewMetadataPath, params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	var result metadataResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "google: unmarshal metadata response"), resp.StatusCode)
	}

	switch result.Status {
	case "OK":
		if result.Date == "" {
			return nil, nil
		}
		return &model.Panorama{
			ID:       result.PanoID,
			Date:     result.Date,
			Location: result.Location.coordinate(),
		}, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		return nil, statusError("streetview metadata", result.Status, result.ErrorMessage)
	}
}

// Image opens the JPEG for one view. The caller closes the returned body.
func (c *StreetViewClient) Image(ctx context.Context, req ImageRequest) (io.ReadCloser, error) {
	params := c.viewParams(req.Heading)
	if req.PanoramaID != "" {
		params.Set("pano", req.PanoramaID)
	} else {
		params.Set("location", req.Location.String())
	}

	resp, err := c.get(ctx, streetViewImagePath, params)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Close releases idle connections held by the client.
func (c *StreetViewClient) Close() error {
	c.closeIdle()
	return nil
}

func (c *StreetViewClient) viewParams(heading float64) url.Values {
	params := url.Values{}
	params.Set("size", c.size)
	params.Set("fov", strconv.Itoa(c.fov))
	params.Set("heading", strconv.FormatFloat(heading, 'f', -1, 64))
	return params
}
