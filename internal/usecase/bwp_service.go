package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antonahmetgaliev/skf/internal/domain/bwp"
	"github.com/antonahmetgaliev/skf/internal/platform/id"
)

const defaultPointValidity = 365 * 24 * time.Hour

// BWPService manages the penalty-point bookkeeping: drivers, their license
// points, the penalty rule ladder, and per-driver clearances.
type BWPService struct {
	repo          bwp.Repository
	idGen         id.Generator
	pointValidity time.Duration
	now           func() time.Time
}

func NewBWPService(repo bwp.Repository, idGen id.Generator, pointValidity time.Duration) *BWPService {
	if pointValidity <= 0 {
		pointValidity = defaultPointValidity
	}
	return &BWPService{
		repo:          repo,
		idGen:         idGen,
		pointValidity: pointValidity,
		now:           time.Now,
	}
}

func (s *BWPService) ListDrivers(ctx context.Context) ([]bwp.Driver, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.ListDrivers")
	defer span.End()

	items, err := s.repo.ListDrivers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	return items, nil
}

func (s *BWPService) CreateDriver(ctx context.Context, name string) (bwp.Driver, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.CreateDriver")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return bwp.Driver{}, fmt.Errorf("%w: driver name is required", ErrInvalidInput)
	}

	_, exists, err := s.repo.GetDriverByName(ctx, name)
	if err != nil {
		return bwp.Driver{}, fmt.Errorf("check driver name: %w", err)
	}
	if exists {
		return bwp.Driver{}, fmt.Errorf("%w: driver %q already exists", ErrConflict, name)
	}

	driverID, err := s.idGen.NewID()
	if err != nil {
		return bwp.Driver{}, fmt.Errorf("generate driver id: %w", err)
	}

	driver := bwp.Driver{
		ID:        driverID,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateDriver(ctx, driver); err != nil {
		return bwp.Driver{}, fmt.Errorf("create driver: %w", err)
	}

	return driver, nil
}

func (s *BWPService) DeleteDriver(ctx context.Context, driverID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.DeleteDriver")
	defer span.End()

	driverID = strings.TrimSpace(driverID)
	if driverID == "" {
		return fmt.Errorf("%w: driver id is required", ErrInvalidInput)
	}

	deleted, err := s.repo.DeleteDriver(ctx, driverID)
	if err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: driver=%s", ErrNotFound, driverID)
	}
	return nil
}

type AddPointInput struct {
	DriverID string
	Points   int
	IssuedOn time.Time
}

func (s *BWPService) AddPoint(ctx context.Context, input AddPointInput) (bwp.Point, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.AddPoint")
	defer span.End()

	input.DriverID = strings.TrimSpace(input.DriverID)
	if input.DriverID == "" {
		return bwp.Point{}, fmt.Errorf("%w: driver id is required", ErrInvalidInput)
	}
	if input.Points <= 0 {
		return bwp.Point{}, fmt.Errorf("%w: points must be positive", ErrInvalidInput)
	}
	if input.IssuedOn.IsZero() {
		input.IssuedOn = s.now().UTC()
	}

	_, exists, err := s.repo.GetDriverByID(ctx, input.DriverID)
	if err != nil {
		return bwp.Point{}, fmt.Errorf("get driver: %w", err)
	}
	if !exists {
		return bwp.Point{}, fmt.Errorf("%w: driver=%s", ErrNotFound, input.DriverID)
	}

	pointID, err := s.idGen.NewID()
	if err != nil {
		return bwp.Point{}, fmt.Errorf("generate point id: %w", err)
	}

	point := bwp.Point{
		ID:        pointID,
		DriverID:  input.DriverID,
		Points:    input.Points,
		IssuedOn:  input.IssuedOn,
		ExpiresOn: input.IssuedOn.Add(s.pointValidity),
	}
	if err := s.repo.AddPoint(ctx, point); err != nil {
		return bwp.Point{}, fmt.Errorf("add point: %w", err)
	}

	return point, nil
}

func (s *BWPService) DeletePoint(ctx context.Context, pointID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.DeletePoint")
	defer span.End()

	pointID = strings.TrimSpace(pointID)
	if pointID == "" {
		return fmt.Errorf("%w: point id is required", ErrInvalidInput)
	}

	deleted, err := s.repo.DeletePoint(ctx, pointID)
	if err != nil {
		return fmt.Errorf("delete point: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: point=%s", ErrNotFound, pointID)
	}
	return nil
}

func (s *BWPService) ListPenaltyRules(ctx context.Context) ([]bwp.PenaltyRule, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.ListPenaltyRules")
	defer span.End()

	items, err := s.repo.ListPenaltyRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list penalty rules: %w", err)
	}
	return items, nil
}

type PenaltyRuleInput struct {
	Threshold int
	Label     string
}

func (s *BWPService) CreatePenaltyRule(ctx context.Context, input PenaltyRuleInput) (bwp.PenaltyRule, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.CreatePenaltyRule")
	defer span.End()

	input.Label = strings.TrimSpace(input.Label)
	if input.Threshold <= 0 {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidInput)
	}
	if input.Label == "" {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}

	maxOrder, err := s.repo.MaxPenaltyRuleSortOrder(ctx)
	if err != nil {
		return bwp.PenaltyRule{}, fmt.Errorf("resolve sort order: %w", err)
	}

	ruleID, err := s.idGen.NewID()
	if err != nil {
		return bwp.PenaltyRule{}, fmt.Errorf("generate rule id: %w", err)
	}

	rule := bwp.PenaltyRule{
		ID:        ruleID,
		Threshold: input.Threshold,
		Label:     input.Label,
		SortOrder: maxOrder + 1,
	}
	if err := s.repo.CreatePenaltyRule(ctx, rule); err != nil {
		return bwp.PenaltyRule{}, fmt.Errorf("create penalty rule: %w", err)
	}

	return rule, nil
}

func (s *BWPService) UpdatePenaltyRule(ctx context.Context, ruleID string, input PenaltyRuleInput) (bwp.PenaltyRule, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.UpdatePenaltyRule")
	defer span.End()

	ruleID = strings.TrimSpace(ruleID)
	input.Label = strings.TrimSpace(input.Label)
	if ruleID == "" {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}
	if input.Threshold <= 0 {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: threshold must be positive", ErrInvalidInput)
	}
	if input.Label == "" {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: label is required", ErrInvalidInput)
	}

	current, exists, err := s.repo.GetPenaltyRule(ctx, ruleID)
	if err != nil {
		return bwp.PenaltyRule{}, fmt.Errorf("get penalty rule: %w", err)
	}
	if !exists {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: rule=%s", ErrNotFound, ruleID)
	}

	current.Threshold = input.Threshold
	current.Label = input.Label
	updated, err := s.repo.UpdatePenaltyRule(ctx, current)
	if err != nil {
		return bwp.PenaltyRule{}, fmt.Errorf("update penalty rule: %w", err)
	}
	if !updated {
		return bwp.PenaltyRule{}, fmt.Errorf("%w: rule=%s", ErrNotFound, ruleID)
	}

	return current, nil
}

func (s *BWPService) DeletePenaltyRule(ctx context.Context, ruleID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.DeletePenaltyRule")
	defer span.End()

	ruleID = strings.TrimSpace(ruleID)
	if ruleID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	deleted, err := s.repo.DeletePenaltyRule(ctx, ruleID)
	if err != nil {
		return fmt.Errorf("delete penalty rule: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: rule=%s", ErrNotFound, ruleID)
	}
	return nil
}

// SetClearance marks a penalty rule as served by a driver. Calling it again
// for the same pair returns the existing clearance unchanged.
func (s *BWPService) SetClearance(ctx context.Context, driverID, ruleID string) (bwp.Clearance, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.SetClearance")
	defer span.End()

	driverID = strings.TrimSpace(driverID)
	ruleID = strings.TrimSpace(ruleID)
	if driverID == "" || ruleID == "" {
		return bwp.Clearance{}, fmt.Errorf("%w: driver id and rule id are required", ErrInvalidInput)
	}

	if _, exists, err := s.repo.GetDriverByID(ctx, driverID); err != nil {
		return bwp.Clearance{}, fmt.Errorf("get driver: %w", err)
	} else if !exists {
		return bwp.Clearance{}, fmt.Errorf("%w: driver=%s", ErrNotFound, driverID)
	}
	if _, exists, err := s.repo.GetPenaltyRule(ctx, ruleID); err != nil {
		return bwp.Clearance{}, fmt.Errorf("get penalty rule: %w", err)
	} else if !exists {
		return bwp.Clearance{}, fmt.Errorf("%w: rule=%s", ErrNotFound, ruleID)
	}

	if existing, ok, err := s.repo.GetClearance(ctx, driverID, ruleID); err != nil {
		return bwp.Clearance{}, fmt.Errorf("get clearance: %w", err)
	} else if ok {
		return existing, nil
	}

	clearanceID, err := s.idGen.NewID()
	if err != nil {
		return bwp.Clearance{}, fmt.Errorf("generate clearance id: %w", err)
	}

	clearance := bwp.Clearance{
		ID:            clearanceID,
		DriverID:      driverID,
		PenaltyRuleID: ruleID,
		ClearedAt:     s.now().UTC(),
	}
	if err := s.repo.SetClearance(ctx, clearance); err != nil {
		return bwp.Clearance{}, fmt.Errorf("set clearance: %w", err)
	}

	return clearance, nil
}

func (s *BWPService) DeleteClearance(ctx context.Context, driverID, ruleID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.BWPService.DeleteClearance")
	defer span.End()

	driverID = strings.TrimSpace(driverID)
	ruleID = strings.TrimSpace(ruleID)
	if driverID == "" || ruleID == "" {
		return fmt.Errorf("%w: driver id and rule id are required", ErrInvalidInput)
	}

	deleted, err := s.repo.DeleteClearance(ctx, driverID, ruleID)
	if err != nil {
		return fmt.Errorf("delete clearance: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: clearance driver=%s rule=%s", ErrNotFound, driverID, ruleID)
	}
	return nil
}
