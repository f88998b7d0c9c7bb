package bwp

import "time"

// Driver is a tracked license holder. Points and Clearances are loaded
// alongside the driver for list views.
type Driver struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	Points     []Point
	Clearances []Clearance
}

// Point is one penalty-point assignment on a driver's license.
type Point struct {
	ID        string
	DriverID  string
	Points    int
	IssuedOn  time.Time
	ExpiresOn time.Time
}

// PenaltyRule defines a threshold at which a sanction applies.
type PenaltyRule struct {
	ID        string
	Threshold int
	Label     string
	SortOrder int
}

// Clearance marks a penalty rule as served by a driver.
type Clearance struct {
	ID            string
	DriverID      string
	PenaltyRuleID string
	ClearedAt     time.Time
}
