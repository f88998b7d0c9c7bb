package simgrid

import "testing"

const standingsPageFixture = `
<html><body>
<table class="table-results table-v2">
  <thead>
    <tr>
      <th>Pos</th>
      <th>Driver</th>
      <th><a href="/championships/4087/results?race_id=901">R1</a><a href="/championships/4087/results?race_id=901">R1</a></th>
      <th><a href="/championships/4087/results?race_id=902">R2</a></th>
    </tr>
  </thead>
  <tbody>
    <tr>
      <td class="result-position"><strong>1</strong></td>
      <td><a class="entrant-name" href="/drivers/11">Jos&eacute; Ru&iacute;z</a></td>
      <td><span class="show_positions">2 · 1</span></td>
      <td><span class="show_positions">—</span></td>
    </tr>
    <tr>
      <td class="result-position"><strong>2</strong></td>
      <td><a class="entrant-name" href="/drivers/12">Anton Virtanen</a> <span title="Disqualified">DSQ</span></td>
      <td><span class="show_positions">DNS</span></td>
      <td><span class="show_positions">4 · 3</span></td>
    </tr>
  </tbody>
</table>
</body></html>`

func TestExtractHTMLSnapshot(t *testing.T) {
	t.Parallel()

	snapshot := extractHTMLSnapshot(standingsPageFixture)
	if snapshot == nil {
		t.Fatalf("expected snapshot, got nil")
	}

	if len(snapshot.raceColumns) != 2 {
		t.Fatalf("expected 2 race columns, got %d", len(snapshot.raceColumns))
	}
	// Repeated race_id tokens collapse into one column, first occurrence wins.
	if snapshot.raceColumns[0].raceID != 901 || snapshot.raceColumns[1].raceID != 902 {
		t.Fatalf("unexpected column ids: %+v", snapshot.raceColumns)
	}

	if len(snapshot.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(snapshot.rows))
	}

	first := snapshot.rows[0]
	if first.normalizedName != "jose ruiz" {
		t.Fatalf("unexpected normalized name: %q", first.normalizedName)
	}
	if first.position == nil || *first.position != 1 {
		t.Fatalf("unexpected overall position: %v", first.position)
	}
	if first.dsq {
		t.Fatalf("unexpected dsq flag on first row")
	}
	if got := first.raceCells[0]; got.position == nil || *got.position != 1 || got.dns {
		t.Fatalf("unexpected first race cell: %+v", got)
	}
	// An em-dash cell is "did not enter": no position, no DNS.
	if got := first.raceCells[1]; got.position != nil || got.dns {
		t.Fatalf("unexpected em-dash cell: %+v", got)
	}

	second := snapshot.rows[1]
	if !second.dsq {
		t.Fatalf("expected dsq flag on second row")
	}
	if got := second.raceCells[0]; got.position != nil || !got.dns {
		t.Fatalf("unexpected DNS cell: %+v", got)
	}
	if got := second.raceCells[1]; got.position == nil || *got.position != 3 {
		t.Fatalf("unexpected quali-race cell: %+v", got)
	}
}

func TestExtractHTMLSnapshot_MissingTable(t *testing.T) {
	t.Parallel()

	if snapshot := extractHTMLSnapshot("<html><body><p>profile page</p></body></html>"); snapshot != nil {
		t.Fatalf("expected nil snapshot without results table, got %+v", snapshot)
	}

	bare := `<table class="table-results table-v2"><tr><th>empty</th></tr></table>`
	if snapshot := extractHTMLSnapshot(bare); snapshot != nil {
		t.Fatalf("expected nil snapshot without driver rows, got %+v", snapshot)
	}
}
