package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/resilience"
)

func metadataServer(t *testing.T, status int, body metadataResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMetadata_Found(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, streetViewMetadataPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "1200x800", q.Get("size"))
		assert.Equal(t, "80", q.Get("fov"))
		assert.Equal(t, "87.5", q.Get("heading"))
		assert.Equal(t, "34.041842,-118.244583", q.Get("location"))

		_ = json.NewEncoder(w).Encode(metadataResponse{
			Status:   "OK",
			PanoID:   "CAoSLEFGMVFpcE",
			Date:     "2019-05",
			Location: latLng{Lat: 34.0418501, Lng: -118.2445912},
		})
	}))
	defer srv.Close()

	client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))
	pano, err := client.Metadata(context.Background(), origin, 87.5)
	require.NoError(t, err)
	require.NotNil(t, pano)
	assert.Equal(t, "CAoSLEFGMVFpcE", pano.ID)
	assert.Equal(t, "2019-05", pano.Date)
	assert.Equal(t, geo.Coordinate{Lat: 34.0418501, Lng: -118.2445912}, pano.Location)
}

func TestMetadata_NotFound(t *testing.T) {
	tests := []struct {
		name string
		body metadataResponse
	}{
		{"zero results", metadataResponse{Status: "ZERO_RESULTS"}},
		{"not found", metadataResponse{Status: "NOT_FOUND"}},
		{"ok without date", metadataResponse{Status: "OK", PanoID: "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := metadataServer(t, http.StatusOK, tt.body)
			client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))

			pano, err := client.Metadata(context.Background(), origin, 0)
			require.NoError(t, err)
			assert.Nil(t, pano)
		})
	}
}

func TestMetadata_TransientStatus(t *testing.T) {
	for _, status := range []string{"OVER_QUERY_LIMIT", "UNKNOWN_ERROR"} {
		t.Run(status, func(t *testing.T) {
			srv := metadataServer(t, http.StatusOK, metadataResponse{Status: status})
			client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))

			pano, err := client.Metadata(context.Background(), origin, 0)
			require.Error(t, err)
			assert.Nil(t, pano)
			assert.True(t, resilience.IsTransient(err))
		})
	}
}

func TestMetadata_PermanentStatus(t *testing.T) {
	for _, status := range []string{"REQUEST_DENIED", "INVALID_REQUEST"} {
		t.Run(status, func(t *testing.T) {
			srv := metadataServer(t, http.StatusOK, metadataResponse{Status: status, ErrorMessage: "denied"})
			client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))

			_, err := client.Metadata(context.Background(), origin, 0)
			require.Error(t, err)
			assert.False(t, resilience.IsTransient(err))
			assert.Contains(t, err.Error(), status)
		})
	}
}

func TestMetadata_HTTPStatus(t *testing.T) {
	srv := metadataServer(t, http.StatusInternalServerError, metadataResponse{})
	client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))

	_, err := client.Metadata(context.Background(), origin, 0)
	require.Error(t, err)
	var te *resilience.TransientError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)

	srv = metadataServer(t, http.StatusForbidden, metadataResponse{})
	client = NewStreetViewClient("bad-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))

	_, err = client.Metadata(context.Background(), origin, 0)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "403")
}

func TestImage_ByPanoramaID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, streetViewImagePath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "pano-1", q.Get("pano"))
		assert.Empty(t, q.Get("location"))
		assert.Equal(t, "300", q.Get("heading"))
		assert.Equal(t, "640x480", q.Get("size"))
		assert.Equal(t, "90", q.Get("fov"))

		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	}))
	defer srv.Close()

	client := NewStreetViewClient("test-key", "640x480", 90, WithBaseURL(srv.URL), WithRateLimit(0))
	body, err := client.Image(context.Background(), ImageRequest{PanoramaID: "pano-1", Location: origin, Heading: 300})
	require.NoError(t, err)
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(data))
}

func TestImage_ByLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Empty(t, q.Get("pano"))
		assert.Equal(t, "34.041842,-118.244583", q.Get("location"))
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))
	body, err := client.Image(context.Background(), ImageRequest{Location: origin, Heading: 90})
	require.NoError(t, err)
	require.NoError(t, body.Close())
}

func TestImage_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewStreetViewClient("test-key", "", 0, WithBaseURL(srv.URL), WithRateLimit(0))
	body, err := client.Image(context.Background(), ImageRequest{PanoramaID: "p"})
	require.Error(t, err)
	assert.Nil(t, body)
	assert.True(t, resilience.IsTransient(err))
}

func TestOptions(t *testing.T) {
	c := newBaseClient("k", []Option{WithRateLimit(0.5), WithTimeout(0)})
	require.NotNil(t, c.limiter)
	assert.Equal(t, 1, c.limiter.Burst())
	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.NotZero(t, c.http.Timeout)

	c = newBaseClient("k", []Option{WithRateLimit(-1)})
	assert.Nil(t, c.limiter)

	hc := &http.Client{}
	c = newBaseClient("k", []Option{WithHTTPClient(hc)})
	assert.Same(t, hc, c.http)

	sv := NewStreetViewClient("k", "", 0)
	assert.Equal(t, DefaultImageSize, sv.size)
	assert.Equal(t, DefaultFOV, sv.fov)
	assert.NoError(t, sv.Close())
}
