package bwp

import "context"

type Repository interface {
	ListDrivers(ctx context.Context) ([]Driver, error)
	GetDriverByName(ctx context.Context, name string) (Driver, bool, error)
	GetDriverByID(ctx context.Context, driverID string) (Driver, bool, error)
	CreateDriver(ctx context.Context, driver Driver) error
	DeleteDriver(ctx context.Context, driverID string) (bool, error)

	AddPoint(ctx context.Context, point Point) error
	DeletePoint(ctx context.Context, pointID string) (bool, error)

	ListPenaltyRules(ctx context.Context) ([]PenaltyRule, error)
	GetPenaltyRule(ctx context.Context, ruleID string) (PenaltyRule, bool, error)
	CreatePenaltyRule(ctx context.Context, rule PenaltyRule) error
	UpdatePenaltyRule(ctx context.Context, rule PenaltyRule) (bool, error)
	DeletePenaltyRule(ctx context.Context, ruleID string) (bool, error)
	MaxPenaltyRuleSortOrder(ctx context.Context) (int, error)

	GetClearance(ctx context.Context, driverID, ruleID string) (Clearance, bool, error)
	SetClearance(ctx context.Context, clearance Clearance) error
	DeleteClearance(ctx context.Context, driverID, ruleID string) (bool, error)
}
