package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/antonahmetgaliev/skf/internal/domain/bwp"
)

// BWPRepository persists penalty bookkeeping data in postgres.
type BWPRepository struct {
	db *sqlx.DB
}

func NewBWPRepository(db *sqlx.DB) *BWPRepository {
	return &BWPRepository{db: db}
}

func (r *BWPRepository) ListDrivers(ctx context.Context) ([]bwp.Driver, error) {
	var rows []driverTableModel
	query := `SELECT id, name, created_at FROM bwp_drivers ORDER BY name`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select drivers: %w", err)
	}

	out := make([]bwp.Driver, 0, len(rows))
	for _, row := range rows {
		driver := driverFromRow(row)

		points, err := r.listPointsByDriver(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		driver.Points = points

		clearances, err := r.listClearancesByDriver(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		driver.Clearances = clearances

		out = append(out, driver)
	}

	return out, nil
}

func (r *BWPRepository) GetDriverByName(ctx context.Context, name string) (bwp.Driver, bool, error) {
	var row driverTableModel
	query := `SELECT id, name, created_at FROM bwp_drivers WHERE LOWER(name) = LOWER($1)`
	if err := r.db.GetContext(ctx, &row, query, name); err != nil {
		if isNotFound(err) {
			return bwp.Driver{}, false, nil
		}
		return bwp.Driver{}, false, fmt.Errorf("get driver by name: %w", err)
	}
	return driverFromRow(row), true, nil
}

func (r *BWPRepository) GetDriverByID(ctx context.Context, driverID string) (bwp.Driver, bool, error) {
	var row driverTableModel
	query := `SELECT id, name, created_at FROM bwp_drivers WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, driverID); err != nil {
		if isNotFound(err) {
			return bwp.Driver{}, false, nil
		}
		return bwp.Driver{}, false, fmt.Errorf("get driver by id: %w", err)
	}
	return driverFromRow(row), true, nil
}

func (r *BWPRepository) CreateDriver(ctx context.Context, driver bwp.Driver) error {
	query := `INSERT INTO bwp_drivers (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := r.db.ExecContext(ctx, query, driver.ID, driver.Name, driver.CreatedAt); err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

func (r *BWPRepository) DeleteDriver(ctx context.Context, driverID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bwp_drivers WHERE id = $1`, driverID)
	if err != nil {
		return false, fmt.Errorf("delete driver: %w", err)
	}
	return rowsAffected(res)
}

func (r *BWPRepository) AddPoint(ctx context.Context, point bwp.Point) error {
	query := `INSERT INTO bwp_points (id, driver_id, points, issued_on, expires_on)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, point.ID, point.DriverID, point.Points, point.IssuedOn, point.ExpiresOn); err != nil {
		return fmt.Errorf("insert point: %w", err)
	}
	return nil
}

func (r *BWPRepository) DeletePoint(ctx context.Context, pointID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bwp_points WHERE id = $1`, pointID)
	if err != nil {
		return false, fmt.Errorf("delete point: %w", err)
	}
	return rowsAffected(res)
}

func (r *BWPRepository) ListPenaltyRules(ctx context.Context) ([]bwp.PenaltyRule, error) {
	var rows []penaltyRuleTableModel
	query := `SELECT id, threshold, label, sort_order FROM bwp_penalty_rules ORDER BY sort_order, threshold`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("select penalty rules: %w", err)
	}

	out := make([]bwp.PenaltyRule, 0, len(rows))
	for _, row := range rows {
		out = append(out, penaltyRuleFromRow(row))
	}
	return out, nil
}

func (r *BWPRepository) GetPenaltyRule(ctx context.Context, ruleID string) (bwp.PenaltyRule, bool, error) {
	var row penaltyRuleTableModel
	query := `SELECT id, threshold, label, sort_order FROM bwp_penalty_rules WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, ruleID); err != nil {
		if isNotFound(err) {
			return bwp.PenaltyRule{}, false, nil
		}
		return bwp.PenaltyRule{}, false, fmt.Errorf("get penalty rule: %w", err)
	}
	return penaltyRuleFromRow(row), true, nil
}

func (r *BWPRepository) CreatePenaltyRule(ctx context.Context, rule bwp.PenaltyRule) error {
	query := `INSERT INTO bwp_penalty_rules (id, threshold, label, sort_order)
		VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, rule.ID, rule.Threshold, rule.Label, rule.SortOrder); err != nil {
		return fmt.Errorf("insert penalty rule: %w", err)
	}
	return nil
}

func (r *BWPRepository) UpdatePenaltyRule(ctx context.Context, rule bwp.PenaltyRule) (bool, error) {
	query := `UPDATE bwp_penalty_rules SET threshold = $2, label = $3, sort_order = $4 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, rule.ID, rule.Threshold, rule.Label, rule.SortOrder)
	if err != nil {
		return false, fmt.Errorf("update penalty rule: %w", err)
	}
	return rowsAffected(res)
}

func (r *BWPRepository) DeletePenaltyRule(ctx context.Context, ruleID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bwp_penalty_rules WHERE id = $1`, ruleID)
	if err != nil {
		return false, fmt.Errorf("delete penalty rule: %w", err)
	}
	return rowsAffected(res)
}

func (r *BWPRepository) MaxPenaltyRuleSortOrder(ctx context.Context) (int, error) {
	var max int
	query := `SELECT COALESCE(MAX(sort_order), 0) FROM bwp_penalty_rules`
	if err := r.db.GetContext(ctx, &max, query); err != nil {
		return 0, fmt.Errorf("max penalty rule sort order: %w", err)
	}
	return max, nil
}

func (r *BWPRepository) GetClearance(ctx context.Context, driverID, ruleID string) (bwp.Clearance, bool, error) {
	var row clearanceTableModel
	query := `SELECT id, driver_id, penalty_rule_id, cleared_at FROM bwp_clearances
		WHERE driver_id = $1 AND penalty_rule_id = $2`
	if err := r.db.GetContext(ctx, &row, query, driverID, ruleID); err != nil {
		if isNotFound(err) {
			return bwp.Clearance{}, false, nil
		}
		return bwp.Clearance{}, false, fmt.Errorf("get clearance: %w", err)
	}
	return clearanceFromRow(row), true, nil
}

func (r *BWPRepository) SetClearance(ctx context.Context, clearance bwp.Clearance) error {
	query := `INSERT INTO bwp_clearances (id, driver_id, penalty_rule_id, cleared_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (driver_id, penalty_rule_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, clearance.ID, clearance.DriverID, clearance.PenaltyRuleID, clearance.ClearedAt); err != nil {
		return fmt.Errorf("insert clearance: %w", err)
	}
	return nil
}

func (r *BWPRepository) DeleteClearance(ctx context.Context, driverID, ruleID string) (bool, error) {
	query := `DELETE FROM bwp_clearances WHERE driver_id = $1 AND penalty_rule_id = $2`
	res, err := r.db.ExecContext(ctx, query, driverID, ruleID)
	if err != nil {
		return false, fmt.Errorf("delete clearance: %w", err)
	}
	return rowsAffected(res)
}

func (r *BWPRepository) listPointsByDriver(ctx context.Context, driverID string) ([]bwp.Point, error) {
	var rows []pointTableModel
	query := `SELECT id, driver_id, points, issued_on, expires_on FROM bwp_points
		WHERE driver_id = $1 ORDER BY issued_on, id`
	if err := r.db.SelectContext(ctx, &rows, query, driverID); err != nil {
		return nil, fmt.Errorf("select points for driver %s: %w", driverID, err)
	}

	out := make([]bwp.Point, 0, len(rows))
	for _, row := range rows {
		out = append(out, bwp.Point{
			ID:        row.ID,
			DriverID:  row.DriverID,
			Points:    row.Points,
			IssuedOn:  row.IssuedOn,
			ExpiresOn: row.ExpiresOn,
		})
	}
	return out, nil
}

func (r *BWPRepository) listClearancesByDriver(ctx context.Context, driverID string) ([]bwp.Clearance, error) {
	var rows []clearanceTableModel
	query := `SELECT id, driver_id, penalty_rule_id, cleared_at FROM bwp_clearances
		WHERE driver_id = $1 ORDER BY cleared_at, id`
	if err := r.db.SelectContext(ctx, &rows, query, driverID); err != nil {
		return nil, fmt.Errorf("select clearances for driver %s: %w", driverID, err)
	}

	out := make([]bwp.Clearance, 0, len(rows))
	for _, row := range rows {
		out = append(out, clearanceFromRow(row))
	}
	return out, nil
}

func driverFromRow(row driverTableModel) bwp.Driver {
	return bwp.Driver{
		ID:        row.ID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt,
	}
}

func penaltyRuleFromRow(row penaltyRuleTableModel) bwp.PenaltyRule {
	return bwp.PenaltyRule{
		ID:        row.ID,
		Threshold: row.Threshold,
		Label:     row.Label,
		SortOrder: row.SortOrder,
	}
}

func clearanceFromRow(row clearanceTableModel) bwp.Clearance {
	return bwp.Clearance{
		ID:            row.ID,
		DriverID:      row.DriverID,
		PenaltyRuleID: row.PenaltyRuleID,
		ClearedAt:     row.ClearedAt,
	}
}
