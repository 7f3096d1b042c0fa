// Package panorama wraps the Street View collaborator with the retry policy
// used during enrichment and downloads left and right views for records.
package panorama

import (
	"context"
	"time"

	"github.com/sells-group/panowalk/internal/geo"
	"github.com/sells-group/panowalk/internal/model"
	"github.com/sells-group/panowalk/internal/resilience"
)

// DefaultRetryInterval is the fixed delay between metadata attempts.
const DefaultRetryInterval = 5 * time.Second

// Lookup resolves the panorama nearest a location.
type Lookup interface {
	Metadata(ctx context.Context, loc geo.Coordinate, heading float64) (*model.Panorama, error)
}

// Enricher retries transient metadata failures until the lookup succeeds,
// fails permanently, or the context ends.
type Enricher struct {
	lookup Lookup
	retry  resilience.RetryConfig
}

// DefaultRetry retries forever on a fixed five second interval.
func DefaultRetry() resilience.RetryConfig {
	return resilience.FixedRetryConfig(DefaultRetryInterval, resilience.UnlimitedAttempts)
}

// NewEnricher wraps lookup with the given retry policy.
func NewEnricher(lookup Lookup, retry resilience.RetryConfig) *Enricher {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("streetview", "metadata")
	}
	return &Enricher{lookup: lookup, retry: retry}
}

// Metadata returns the panorama for loc, or nil when none exists.
func (e *Enricher) Metadata(ctx context.Context, loc geo.Coordinate, heading float64) (*model.Panorama, error) {
	return resilience.DoVal(ctx, e.retry, func(ctx context.Context) (*model.Panorama, error) {
		return e.lookup.Metadata(ctx, loc, heading)
	})
}
