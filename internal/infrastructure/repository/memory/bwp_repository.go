package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/antonahmetgaliev/skf/internal/domain/bwp"
)

// BWPRepository keeps penalty bookkeeping data in process memory. Used when
// no database is configured and in tests.
type BWPRepository struct {
	mu         sync.RWMutex
	drivers    map[string]bwp.Driver
	points     map[string]bwp.Point
	rules      map[string]bwp.PenaltyRule
	clearances map[string]bwp.Clearance
}

func NewBWPRepository() *BWPRepository {
	return &BWPRepository{
		drivers:    map[string]bwp.Driver{},
		points:     map[string]bwp.Point{},
		rules:      map[string]bwp.PenaltyRule{},
		clearances: map[string]bwp.Clearance{},
	}
}

func (r *BWPRepository) ListDrivers(_ context.Context) ([]bwp.Driver, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bwp.Driver, 0, len(r.drivers))
	for _, driver := range r.drivers {
		driver.Points = r.pointsOf(driver.ID)
		driver.Clearances = r.clearancesOf(driver.ID)
		out = append(out, driver)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out, nil
}

func (r *BWPRepository) GetDriverByName(_ context.Context, name string) (bwp.Driver, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, driver := range r.drivers {
		if strings.EqualFold(driver.Name, name) {
			return driver, true, nil
		}
	}
	return bwp.Driver{}, false, nil
}

func (r *BWPRepository) GetDriverByID(_ context.Context, driverID string) (bwp.Driver, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	driver, ok := r.drivers[driverID]
	return driver, ok, nil
}

func (r *BWPRepository) CreateDriver(_ context.Context, driver bwp.Driver) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drivers[driver.ID] = driver
	return nil
}

func (r *BWPRepository) DeleteDriver(_ context.Context, driverID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drivers[driverID]; !ok {
		return false, nil
	}
	delete(r.drivers, driverID)

	for id, point := range r.points {
		if point.DriverID == driverID {
			delete(r.points, id)
		}
	}
	for key, clearance := range r.clearances {
		if clearance.DriverID == driverID {
			delete(r.clearances, key)
		}
	}

	return true, nil
}

func (r *BWPRepository) AddPoint(_ context.Context, point bwp.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points[point.ID] = point
	return nil
}

func (r *BWPRepository) DeletePoint(_ context.Context, pointID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.points[pointID]; !ok {
		return false, nil
	}
	delete(r.points, pointID)
	return true, nil
}

func (r *BWPRepository) ListPenaltyRules(_ context.Context) ([]bwp.PenaltyRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]bwp.PenaltyRule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Threshold < out[j].Threshold
	})

	return out, nil
}

func (r *BWPRepository) GetPenaltyRule(_ context.Context, ruleID string) (bwp.PenaltyRule, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.rules[ruleID]
	return rule, ok, nil
}

func (r *BWPRepository) CreatePenaltyRule(_ context.Context, rule bwp.PenaltyRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rules[rule.ID] = rule
	return nil
}

func (r *BWPRepository) UpdatePenaltyRule(_ context.Context, rule bwp.PenaltyRule) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID]; !ok {
		return false, nil
	}
	r.rules[rule.ID] = rule
	return true, nil
}

func (r *BWPRepository) DeletePenaltyRule(_ context.Context, ruleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[ruleID]; !ok {
		return false, nil
	}
	delete(r.rules, ruleID)

	for key, clearance := range r.clearances {
		if clearance.PenaltyRuleID == ruleID {
			delete(r.clearances, key)
		}
	}

	return true, nil
}

func (r *BWPRepository) MaxPenaltyRuleSortOrder(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	max := 0
	for _, rule := range r.rules {
		if rule.SortOrder > max {
			max = rule.SortOrder
		}
	}
	return max, nil
}

func (r *BWPRepository) GetClearance(_ context.Context, driverID, ruleID string) (bwp.Clearance, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clearance, ok := r.clearances[clearanceKey(driverID, ruleID)]
	return clearance, ok, nil
}

func (r *BWPRepository) SetClearance(_ context.Context, clearance bwp.Clearance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := clearanceKey(clearance.DriverID, clearance.PenaltyRuleID)
	if _, ok := r.clearances[key]; ok {
		return nil
	}
	r.clearances[key] = clearance
	return nil
}

func (r *BWPRepository) DeleteClearance(_ context.Context, driverID, ruleID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := clearanceKey(driverID, ruleID)
	if _, ok := r.clearances[key]; !ok {
		return false, nil
	}
	delete(r.clearances, key)
	return true, nil
}

func (r *BWPRepository) pointsOf(driverID string) []bwp.Point {
	out := make([]bwp.Point, 0)
	for _, point := range r.points {
		if point.DriverID == driverID {
			out = append(out, point)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedOn.Equal(out[j].IssuedOn) {
			return out[i].IssuedOn.Before(out[j].IssuedOn)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *BWPRepository) clearancesOf(driverID string) []bwp.Clearance {
	out := make([]bwp.Clearance, 0)
	for _, clearance := range r.clearances {
		if clearance.DriverID == driverID {
			out = append(out, clearance)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClearedAt.Equal(out[j].ClearedAt) {
			return out[i].ClearedAt.Before(out[j].ClearedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func clearanceKey(driverID, ruleID string) string {
	return driverID + "/" + ruleID
}
