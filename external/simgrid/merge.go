package simgrid

import (
	"fmt"
	"sort"

	"github.com/antonahmetgaliev/skf/internal/domain/standings"
)

// mergeHTMLRacePositions fills per-race finishing positions scraped from the
// standings page into entries the API left without them. The input data is
// never mutated; merged entries are fresh copies. RaceIndex stays the join
// key throughout: scraped race ids do not have to match upstream ids, so an
// id-based join would silently mispair columns.
func mergeHTMLRacePositions(data standings.Data, snapshot *htmlSnapshot) standings.Data {
	if snapshot == nil || len(snapshot.raceColumns) == 0 || len(snapshot.rows) == 0 {
		return data
	}

	races := make([]standings.StandingRace, len(data.Races))
	copy(races, data.Races)
	// The page can reveal race columns the API does not know about yet;
	// append synthetic records for those. Existing races are never removed
	// or reordered.
	for idx, column := range snapshot.raceColumns {
		if idx < len(races) {
			continue
		}
		id := column.raceID
		if id == 0 {
			id = -int64(idx + 1)
		}
		races = append(races, standings.StandingRace{
			ID:          id,
			DisplayName: fmt.Sprintf("Race %d", idx+1),
		})
	}

	used := make(map[int]struct{}, len(snapshot.rows))
	entries := make([]standings.StandingEntry, 0, len(data.Entries))
	for entryIdx, entry := range data.Entries {
		rowIdx := findHTMLRow(entry, entryIdx, snapshot.rows, used)
		if rowIdx < 0 {
			entries = append(entries, entry)
			continue
		}
		used[rowIdx] = struct{}{}
		row := snapshot.rows[rowIdx]

		merged := entry
		merged.RaceResults = mergeRaceResults(entry.RaceResults, row.raceCells, races)
		if row.dsq {
			merged.DSQ = true
		}
		entries = append(entries, merged)
	}

	return standings.Data{Entries: entries, Races: races}
}

// findHTMLRow matches an entry to an unused scraped row: exact normalized
// name first, then overall position, then the row at the entry's own index.
// Returns -1 when nothing matches; the entry then passes through unmodified.
func findHTMLRow(entry standings.StandingEntry, entryIdx int, rows []htmlRow, used map[int]struct{}) int {
	name := normalizeName(entry.DisplayName)
	for i, row := range rows {
		if _, taken := used[i]; taken {
			continue
		}
		if row.normalizedName == name {
			return i
		}
	}

	if entry.Position != nil {
		for i, row := range rows {
			if _, taken := used[i]; taken {
				continue
			}
			if row.position != nil && *row.position == *entry.Position {
				return i
			}
		}
	}

	if entryIdx < len(rows) {
		if _, taken := used[entryIdx]; !taken {
			return entryIdx
		}
	}
	return -1
}

// mergeRaceResults merges scraped race cells into an entry's result list,
// keyed by raceIndex. Existing non-null values always win over scraped ones;
// a scraped cell only creates a new result when it carries data.
func mergeRaceResults(
	current []standings.DriverRaceResult,
	cells []htmlRaceCell,
	races []standings.StandingRace,
) []standings.DriverRaceResult {
	byIndex := make(map[int]standings.DriverRaceResult, len(current)+len(cells))
	for _, result := range current {
		byIndex[result.RaceIndex] = result
	}

	for raceIdx, cell := range cells {
		existing, ok := byIndex[raceIdx]
		if ok {
			if existing.RaceID == nil {
				existing.RaceID = raceIDByIndex(races, raceIdx)
			}
			if existing.Position == nil {
				existing.Position = cell.position
			}
			existing.DNS = existing.DNS || cell.dns
			byIndex[raceIdx] = existing
			continue
		}
		if cell.position == nil && !cell.dns {
			continue
		}
		byIndex[raceIdx] = standings.DriverRaceResult{
			RaceID:    raceIDByIndex(races, raceIdx),
			RaceIndex: raceIdx,
			Position:  cell.position,
			DNS:       cell.dns,
		}
	}

	out := make([]standings.DriverRaceResult, 0, len(byIndex))
	for _, result := range byIndex {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RaceIndex < out[j].RaceIndex })
	return out
}
