package simgrid

import (
	"testing"

	"github.com/bytedance/sonic"

	"github.com/antonahmetgaliev/skf/internal/domain/standings"
)

func decodePayload(t *testing.T, raw string) any {
	t.Helper()
	var payload any
	if err := sonic.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

func TestParseStandingsPayload_NonTupleYieldsEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{"entries": []}`, `"nope"`, `42`, `null`} {
		data := parseStandingsPayload(decodePayload(t, raw))
		if data.Entries == nil || len(data.Entries) != 0 {
			t.Fatalf("payload %s: expected empty entries, got %#v", raw, data.Entries)
		}
		if data.Races == nil || len(data.Races) != 0 {
			t.Fatalf("payload %s: expected empty races, got %#v", raw, data.Races)
		}
	}
}

func TestParseStandingsPayload_BareNumberRaceResult(t *testing.T) {
	t.Parallel()

	raw := `[
		[
			{
				"id": 11,
				"display_name": "Anton Virtanen",
				"position_cache": 1,
				"championship_score": 50,
				"partial_standings": [{"race_id": 901, "position": 2, "points": 25}, null, 5]
			}
		],
		[
			{"id": 901, "display_name": "Round 1"},
			{"id": 902, "display_name": "Round 2"},
			{"id": 903, "display_name": "Round 3"}
		]
	]`

	data := parseStandingsPayload(decodePayload(t, raw))
	if len(data.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(data.Entries))
	}

	results := data.Entries[0].RaceResults
	if len(results) != 3 {
		t.Fatalf("expected 3 race results, got %d", len(results))
	}

	// A bare number at index 2 is a finishing position; the race resolves by
	// sequence order and no points are recorded.
	last := results[2]
	if last.RaceIndex != 2 {
		t.Fatalf("unexpected race index: %d", last.RaceIndex)
	}
	if last.Position == nil || *last.Position != 5 {
		t.Fatalf("unexpected position: %v", last.Position)
	}
	if last.Points != nil {
		t.Fatalf("expected nil points for bare-number result, got %v", *last.Points)
	}
	if last.RaceID == nil || *last.RaceID != 903 {
		t.Fatalf("expected race id 903 resolved by index, got %v", last.RaceID)
	}

	// null at index 1 keeps its slot but carries no data.
	if results[1].Position != nil || results[1].RaceID != nil {
		t.Fatalf("expected empty result at index 1, got %#v", results[1])
	}
}

func TestParseStandingsPayload_PartialStandingsPrecedence(t *testing.T) {
	t.Parallel()

	raw := `[
		[
			{
				"id": 1,
				"display_name": "A",
				"partial_standings": [],
				"overall_partial_standings": [{"race_id": 7, "position": 4, "championship_points": 12}]
			}
		],
		[{"id": 7, "display_name": "Round 1"}]
	]`

	data := parseStandingsPayload(decodePayload(t, raw))
	results := data.Entries[0].RaceResults
	if len(results) != 1 {
		t.Fatalf("expected fallback to overall_partial_standings, got %d results", len(results))
	}
	if results[0].Points == nil || *results[0].Points != 12 {
		t.Fatalf("expected championship_points fallback, got %v", results[0].Points)
	}
}

func TestSortEntries_Ordering(t *testing.T) {
	t.Parallel()

	pos := func(v int64) *int64 { return &v }
	entries := []standings.StandingEntry{
		{DisplayName: "no rank high score", Position: nil, Score: 99},
		{DisplayName: "bravo", Position: pos(2), Score: 40},
		{DisplayName: "alpha", Position: pos(2), Score: 40},
		{DisplayName: "leader", Position: pos(1), Score: 50},
		{DisplayName: "tied high", Position: pos(2), Score: 45},
	}

	sortEntries(entries)

	want := []string{"leader", "tied high", "alpha", "bravo", "no rank high score"}
	for i, name := range want {
		if entries[i].DisplayName != name {
			t.Fatalf("position %d: got %q, want %q", i, entries[i].DisplayName, name)
		}
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"José Ruíz":        "jose ruiz",
		"  JOSE   ruiz  ":  "jose ruiz",
		"Käri-Pekka Öberg": "kari pekka oberg",
		"driver#42":        "driver 42",
		"":                 "",
	}
	for in, want := range cases {
		if got := normalizeName(in); got != want {
			t.Fatalf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}

	// The key is a fixed point: normalizing twice changes nothing.
	for in := range cases {
		once := normalizeName(in)
		if twice := normalizeName(once); twice != once {
			t.Fatalf("normalizeName not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestParseHTMLRacePosition(t *testing.T) {
	t.Parallel()

	t.Run("dash means no entry", func(t *testing.T) {
		for _, cell := range []string{"-", "—", "  ", ""} {
			position, dns := parseHTMLRacePosition(cell)
			if position != nil || dns {
				t.Fatalf("cell %q: expected nil/no-dns, got %v/%t", cell, position, dns)
			}
		}
	})

	t.Run("quali race pair keeps race part", func(t *testing.T) {
		position, dns := parseHTMLRacePosition("3 · 7")
		if position == nil || *position != 7 {
			t.Fatalf("expected race position 7, got %v", position)
		}
		if dns {
			t.Fatalf("unexpected dns flag")
		}
	})

	t.Run("dns token", func(t *testing.T) {
		position, dns := parseHTMLRacePosition("5 · DNS")
		if position != nil {
			t.Fatalf("expected nil position for DNS, got %d", *position)
		}
		if !dns {
			t.Fatalf("expected dns flag")
		}
	})

	t.Run("plain number", func(t *testing.T) {
		position, dns := parseHTMLRacePosition("12")
		if position == nil || *position != 12 || dns {
			t.Fatalf("unexpected parse: %v %t", position, dns)
		}
	})

	t.Run("invisible characters are stripped", func(t *testing.T) {
		position, dns := parseHTMLRacePosition("\u200b12")
		if position == nil || *position != 12 || dns {
			t.Fatalf("unexpected parse: %v %t", position, dns)
		}

		position, dns = parseHTMLRacePosition("\ufeff3 · \u200e7")
		if position == nil || *position != 7 || dns {
			t.Fatalf("unexpected parse: %v %t", position, dns)
		}

		position, dns = parseHTMLRacePosition("\u200e—")
		if position != nil || dns {
			t.Fatalf("expected nil/no-dns for invisible dash cell, got %v/%t", position, dns)
		}
	})
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	truthyValues := []any{true, float64(1), int64(-1), "yes", "true-ish", map[string]any{}}
	for _, v := range truthyValues {
		if !truthy(v) {
			t.Fatalf("expected truthy(%#v) = true", v)
		}
	}

	falsyValues := []any{false, float64(0), int64(0), "", "false", "0", "null", nil}
	for _, v := range falsyValues {
		if truthy(v) {
			t.Fatalf("expected truthy(%#v) = false", v)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	t.Parallel()

	if v, ok := coerceNumber(" 42.5 "); !ok || v != 42.5 {
		t.Fatalf("unexpected string coercion: %v %t", v, ok)
	}
	if _, ok := coerceNumber("12 pts"); ok {
		t.Fatalf("expected mixed text to fail coercion")
	}
	if _, ok := coerceNumber(nil); ok {
		t.Fatalf("expected nil to fail coercion")
	}
	if v := toNumber("garbage"); v != 0 {
		t.Fatalf("expected 0 fallback, got %v", v)
	}
	if v := toNullableNumber("garbage"); v != nil {
		t.Fatalf("expected nil fallback, got %v", *v)
	}
}

func TestStripHTML(t *testing.T) {
	t.Parallel()

	got := stripHTML("<td>\n  Max &amp; <b>Verstappen</b>  </td>")
	if got != "Max & Verstappen" {
		t.Fatalf("unexpected stripped text: %q", got)
	}
}
