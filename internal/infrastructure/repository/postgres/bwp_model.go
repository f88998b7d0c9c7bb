package postgres

import "time"

type driverTableModel struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

type pointTableModel struct {
	ID        string    `db:"id"`
	DriverID  string    `db:"driver_id"`
	Points    int       `db:"points"`
	IssuedOn  time.Time `db:"issued_on"`
	ExpiresOn time.Time `db:"expires_on"`
}

type penaltyRuleTableModel struct {
	ID        string `db:"id"`
	Threshold int    `db:"threshold"`
	Label     string `db:"label"`
	SortOrder int    `db:"sort_order"`
}

type clearanceTableModel struct {
	ID            string    `db:"id"`
	DriverID      string    `db:"driver_id"`
	PenaltyRuleID string    `db:"penalty_rule_id"`
	ClearedAt     time.Time `db:"cleared_at"`
}
