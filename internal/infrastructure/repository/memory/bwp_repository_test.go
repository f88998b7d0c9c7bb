package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/antonahmetgaliev/skf/internal/domain/bwp"
)

func TestBWPRepository_DriverLifecycle(t *testing.T) {
	t.Parallel()

	repo := NewBWPRepository()
	ctx := context.Background()
	created := time.Date(2026, 4, 12, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateDriver(ctx, bwp.Driver{ID: "d1", Name: "Miko Laine", CreatedAt: created}))
	require.NoError(t, repo.CreateDriver(ctx, bwp.Driver{ID: "d2", Name: "anton virtanen", CreatedAt: created}))

	driver, found, err := repo.GetDriverByName(ctx, "MIKO LAINE")
	require.NoError(t, err)
	require.True(t, found, "name lookup is case-insensitive")
	require.Equal(t, "d1", driver.ID)

	drivers, err := repo.ListDrivers(ctx)
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	require.Equal(t, "anton virtanen", drivers[0].Name, "drivers sort by lowercased name")

	deleted, err := repo.DeleteDriver(ctx, "d1")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.DeleteDriver(ctx, "d1")
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestBWPRepository_DeleteDriverCascades(t *testing.T) {
	t.Parallel()

	repo := NewBWPRepository()
	ctx := context.Background()
	issued := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateDriver(ctx, bwp.Driver{ID: "d1", Name: "Miko Laine"}))
	require.NoError(t, repo.CreatePenaltyRule(ctx, bwp.PenaltyRule{ID: "r1", Threshold: 6, Label: "one race ban", SortOrder: 1}))
	require.NoError(t, repo.AddPoint(ctx, bwp.Point{ID: "p1", DriverID: "d1", Points: 3, IssuedOn: issued, ExpiresOn: issued.AddDate(1, 0, 0)}))
	require.NoError(t, repo.SetClearance(ctx, bwp.Clearance{ID: "c1", DriverID: "d1", PenaltyRuleID: "r1", ClearedAt: issued}))

	deleted, err := repo.DeleteDriver(ctx, "d1")
	require.NoError(t, err)
	require.True(t, deleted)

	removed, err := repo.DeletePoint(ctx, "p1")
	require.NoError(t, err)
	require.False(t, removed, "points cascade with the driver")

	_, found, err := repo.GetClearance(ctx, "d1", "r1")
	require.NoError(t, err)
	require.False(t, found, "clearances cascade with the driver")
}

func TestBWPRepository_PenaltyRules(t *testing.T) {
	t.Parallel()

	repo := NewBWPRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreatePenaltyRule(ctx, bwp.PenaltyRule{ID: "r2", Threshold: 12, Label: "season ban", SortOrder: 2}))
	require.NoError(t, repo.CreatePenaltyRule(ctx, bwp.PenaltyRule{ID: "r1", Threshold: 6, Label: "one race ban", SortOrder: 1}))

	maxOrder, err := repo.MaxPenaltyRuleSortOrder(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, maxOrder)

	rules, err := repo.ListPenaltyRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "r1", rules[0].ID, "rules sort by sort order")

	updated, err := repo.UpdatePenaltyRule(ctx, bwp.PenaltyRule{ID: "r1", Threshold: 8, Label: "one race ban", SortOrder: 1})
	require.NoError(t, err)
	require.True(t, updated)

	updated, err = repo.UpdatePenaltyRule(ctx, bwp.PenaltyRule{ID: "missing", Threshold: 1, Label: "x"})
	require.NoError(t, err)
	require.False(t, updated)

	deleted, err := repo.DeletePenaltyRule(ctx, "r2")
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestBWPRepository_ClearanceIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := NewBWPRepository()
	ctx := context.Background()
	first := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SetClearance(ctx, bwp.Clearance{ID: "c1", DriverID: "d1", PenaltyRuleID: "r1", ClearedAt: first}))
	require.NoError(t, repo.SetClearance(ctx, bwp.Clearance{ID: "c2", DriverID: "d1", PenaltyRuleID: "r1", ClearedAt: first.Add(time.Hour)}))

	clearance, found, err := repo.GetClearance(ctx, "d1", "r1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "c1", clearance.ID, "first clearance wins")

	removed, err := repo.DeleteClearance(ctx, "d1", "r1")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = repo.DeleteClearance(ctx, "d1", "r1")
	require.NoError(t, err)
	require.False(t, removed)
}
