package model

import (
	"time"

	"github.com/sells-group/panowalk/internal/geo"
)

// RunStatus represents the current state of a region generation run.
type RunStatus string

const (
	RunStatusRouting   RunStatus = "routing"
	RunStatusSampling  RunStatus = "sampling"
	RunStatusEnriching RunStatus = "enriching"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run tracks one generation run for a named region.
type Run struct {
	ID        string         `json:"id"`
	Region    string         `json:"region"`
	Center    geo.Coordinate `json:"center"`
	Status    RunStatus      `json:"status"`
	Records   int            `json:"records"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
