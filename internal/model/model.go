// Package model defines the core domain types shared across the pipeline.
package model

import "time"

// Mode is a transport-mode costing model understood by the routing engine.
type Mode string

// Costing models supported by the routing engine.
const (
	ModeAuto       Mode = "auto"
	ModeBicycle    Mode = "bicycle"
	ModePedestrian Mode = "pedestrian"
)

// AllModes returns the modes requested for every customer, in a stable order.
func AllModes() []Mode {
	return []Mode{ModeAuto, ModeBicycle, ModePedestrian}
}

// Location is a WGS84 point in the lat/lon order the routing engine expects.
type Location struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Customer is a single modeled pharmacy customer. PharmacyID is set exactly
// once by the assignment selector and never changes afterwards.
type Customer struct {
	ID         int64    `json:"id"`
	Location   Location `json:"location"`
	PharmacyID string   `json:"pharmacy_id,omitempty"`
}

// Pharmacy is a registered pharmacy location.
type Pharmacy struct {
	ID       string   `json:"id"`
	Location Location `json:"location"`
}

// TripSummary is the engine's per-trip summary. Length is in kilometers,
// Time in seconds.
type TripSummary struct {
	LengthKM            float64 `json:"length"`
	TimeSecs            float64 `json:"time"`
	HasToll             bool    `json:"has_toll"`
	HasHighway          bool    `json:"has_highway"`
	HasFerry            bool    `json:"has_ferry"`
	HasTimeRestrictions bool    `json:"has_time_restrictions"`
}

// ChosenTrip is the single trip kept for a customer after mode inference.
type ChosenTrip struct {
	CustomerID int64       `json:"customer_id"`
	PharmacyID string      `json:"pharmacy_id"`
	Locations  [3]Location `json:"locations"`
	Mode       Mode        `json:"mot"`
	Legs       int         `json:"legs"`
	Summary    TripSummary `json:"summary"`
}

// AggregatedTrip is one flattened output row. Road-attribute flags from the
// engine summary are intentionally not carried here.
type AggregatedTrip struct {
	CustomerID int64       `json:"customer_id"`
	PharmacyID string      `json:"pharmacy_id"`
	Locations  [3]Location `json:"locations"`
	Mode       Mode        `json:"mot"`
	Legs       int         `json:"legs"`
	LengthKM   float64     `json:"length"`
	TimeHours  float64     `json:"time"`
}

// ModeTotals is the batch-level sum per chosen mode, consumed by downstream
// VRP input generation.
type ModeTotals struct {
	TimeHours float64 `json:"time_hours"`
	LengthKM  float64 `json:"length"`
}

// RunStatus tracks the lifecycle of a batch run record.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one batch execution.
type Run struct {
	ID         string     `json:"id"`
	Area       string     `json:"area"`
	Customers  int        `json:"customers"`
	Succeeded  int        `json:"succeeded"`
	Failed     int        `json:"failed"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
