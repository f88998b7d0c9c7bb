package simgrid

import (
	"html"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/antonahmetgaliev/skf/internal/domain/standings"
	"golang.org/x/text/unicode/norm"
)

const (
	unknownDriverName = "Unknown driver"
	defaultRaceName   = "Race"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
	integerRegex    = regexp.MustCompile(`-?\d+`)
	invisibleRegex  = regexp.MustCompile("[\u200b-\u200f\ufeff]")
	dnsTokenRegex   = regexp.MustCompile(`(?i)\bDNS\b`)
	cellSplitRegex  = regexp.MustCompile(`\s*·\s*`)
)

// toNumber coerces an untyped JSON scalar to a float64, returning 0 for
// anything that is not a finite number. Used where downstream code requires a
// non-null value (points, penalties, score).
func toNumber(value any) float64 {
	if v, ok := coerceNumber(value); ok {
		return v
	}
	return 0
}

// toNullableNumber is toNumber with nil instead of 0, so "unknown" stays
// distinguishable from an actual zero.
func toNullableNumber(value any) *float64 {
	if v, ok := coerceNumber(value); ok {
		return &v
	}
	return nil
}

func toInteger(value any) int64 {
	if v, ok := coerceNumber(value); ok {
		return int64(v)
	}
	return 0
}

func toNullableInteger(value any) *int64 {
	if v, ok := coerceNumber(value); ok {
		parsed := int64(v)
		return &parsed
	}
	return nil
}

func coerceNumber(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return 0, false
		}
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func toText(value any, fallback string) string {
	if typed, ok := value.(string); ok && strings.TrimSpace(typed) != "" {
		return typed
	}
	return fallback
}

func toNullableText(value any) *string {
	if typed, ok := value.(string); ok && strings.TrimSpace(typed) != "" {
		return &typed
	}
	return nil
}

// truthy mirrors the loose boolean coercion of the upstream payload: flags
// arrive as true/false, 1/0 or "true" depending on the endpoint version.
func truthy(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case float64:
		return typed != 0
	case int64:
		return typed != 0
	case string:
		v := strings.ToLower(strings.TrimSpace(typed))
		return v != "" && v != "false" && v != "0" && v != "null"
	default:
		return value != nil
	}
}

// stripHTML removes tags, unescapes entities and collapses whitespace runs.
func stripHTML(value string) string {
	text := htmlTagRegex.ReplaceAllString(value, " ")
	text = html.UnescapeString(text)
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

// normalizeName builds the fuzzy join key used to match scraped rows against
// API entries: Unicode-decomposed, diacritics dropped, lowercased, with every
// non-alphanumeric run collapsed to a single space. Deterministic and
// locale-independent.
func normalizeName(value string) string {
	decomposed := norm.NFKD.String(value)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastSpace := true
	for _, r := range decomposed {
		switch {
		case unicode.Is(unicode.Mn, r):
			// combining mark from the NFKD decomposition
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// parseHTMLNumeric extracts the first signed integer token from free text.
func parseHTMLNumeric(value string) *int64 {
	token := integerRegex.FindString(value)
	if token == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// parseHTMLRacePosition reads one scraped race cell. Cells show
// "quali · race" pairs; only the race part counts. A bare dash or em-dash
// means the driver did not enter (nil, no DNS); a DNS token in the race part
// flags a non-start.
func parseHTMLRacePosition(value string) (*int64, bool) {
	cleaned := strings.TrimSpace(invisibleRegex.ReplaceAllString(value, ""))
	if cleaned == "" || cleaned == "-" || cleaned == "—" {
		return nil, false
	}

	racePart := cleaned
	if parts := cellSplitRegex.Split(cleaned, -1); len(parts) >= 2 {
		racePart = strings.TrimSpace(parts[len(parts)-1])
	}

	dns := dnsTokenRegex.MatchString(racePart)
	tokens := integerRegex.FindAllString(racePart, -1)
	var position *int64
	if len(tokens) > 0 {
		if parsed, err := strconv.ParseInt(tokens[len(tokens)-1], 10, 64); err == nil {
			position = &parsed
		}
	}
	if position == nil && !dns {
		dns = dnsTokenRegex.MatchString(cleaned)
	}
	return position, dns
}

// parseStandingsPayload turns the raw upstream standings payload, a loose
// two-element tuple of [entries, races], into the typed domain view. Any
// deviation from the expected top-level shape yields an empty result instead
// of an error: the payload shape is not contractually guaranteed.
func parseStandingsPayload(payload any) standings.Data {
	tuple, ok := payload.([]any)
	if !ok {
		return standings.Data{Entries: []standings.StandingEntry{}, Races: []standings.StandingRace{}}
	}

	var races []standings.StandingRace
	if len(tuple) > 1 {
		races = parseRaces(tuple[1])
	}
	if races == nil {
		races = []standings.StandingRace{}
	}

	entries := make([]standings.StandingEntry, 0)
	if len(tuple) > 0 {
		if rawEntries, ok := tuple[0].([]any); ok {
			for _, item := range rawEntries {
				raw, ok := item.(map[string]any)
				if !ok {
					continue
				}
				entries = append(entries, parseEntry(raw, races))
			}
		}
	}

	sortEntries(entries)
	return standings.Data{Entries: entries, Races: races}
}

func parseRaces(value any) []standings.StandingRace {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]standings.StandingRace, 0, len(items))
	for _, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := toText(raw["display_name"], "")
		if name == "" {
			name = toText(raw["race_name"], defaultRaceName)
		}
		out = append(out, standings.StandingRace{
			ID:               toInteger(raw["id"]),
			DisplayName:      name,
			StartsAt:         toNullableText(raw["starts_at"]),
			ResultsAvailable: truthy(raw["results_available"]),
			Ended:            truthy(raw["ended"]),
		})
	}
	return out
}

func parseEntry(raw map[string]any, races []standings.StandingRace) standings.StandingEntry {
	// The filtered per-registration result set wins over the unfiltered one
	// whenever it is present and non-empty.
	resultsRaw := raw["partial_standings"]
	if list, ok := resultsRaw.([]any); !ok || len(list) == 0 {
		resultsRaw = raw["overall_partial_standings"]
	}

	participant, _ := raw["participant"].(map[string]any)

	return standings.StandingEntry{
		ID:          toInteger(raw["id"]),
		Position:    toNullableInteger(raw["position_cache"]),
		DisplayName: toText(raw["display_name"], unknownDriverName),
		CountryCode: toText(participant["country_code"], ""),
		Car:         toText(raw["car"], ""),
		Points:      toNumber(raw["championship_points"]),
		Penalties:   toNumber(raw["championship_penalties"]),
		Score:       toNumber(raw["championship_score"]),
		RaceResults: parseRaceResults(resultsRaw, races),
	}
}

func parseRaceResults(value any, races []standings.StandingRace) []standings.DriverRaceResult {
	items, ok := value.([]any)
	if !ok {
		return []standings.DriverRaceResult{}
	}

	out := make([]standings.DriverRaceResult, 0, len(items))
	for idx, item := range items {
		raw, ok := item.(map[string]any)
		if !ok {
			// Legacy encoding: a bare number is the finishing position, with
			// the race resolved by sequence order and no points recorded.
			result := standings.DriverRaceResult{RaceIndex: idx}
			if position := toNullableInteger(item); position != nil {
				result.Position = position
				result.RaceID = raceIDByIndex(races, idx)
			}
			out = append(out, result)
			continue
		}

		raceID := firstInteger(raw, "race_id", "raceId", "id")
		if raceID == nil {
			raceID = raceIDByIndex(races, idx)
		}

		out = append(out, standings.DriverRaceResult{
			RaceID:    raceID,
			RaceIndex: idx,
			Points:    firstNumber(raw, "points", "championship_points", "score", "championship_score"),
			Position:  firstInteger(raw, "position", "position_cache", "rank"),
		})
	}
	return out
}

// firstNumber resolves a value from an ordered list of candidate keys, an
// explicit precedence contract rather than an ad hoc conditional chain.
func firstNumber(raw map[string]any, keys ...string) *float64 {
	for _, key := range keys {
		if v := toNullableNumber(raw[key]); v != nil {
			return v
		}
	}
	return nil
}

func firstInteger(raw map[string]any, keys ...string) *int64 {
	for _, key := range keys {
		if v := toNullableInteger(raw[key]); v != nil {
			return v
		}
	}
	return nil
}

func raceIDByIndex(races []standings.StandingRace, idx int) *int64 {
	if idx < 0 || idx >= len(races) {
		return nil
	}
	id := races[idx].ID
	return &id
}

// sortEntries applies the standings order: ascending position with unknown
// ranks last, then descending score, then display name. Stable and total.
func sortEntries(entries []standings.StandingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		pi := effectivePosition(entries[i].Position)
		pj := effectivePosition(entries[j].Position)
		if pi != pj {
			return pi < pj
		}
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})
}

func effectivePosition(position *int64) float64 {
	if position == nil {
		return math.Inf(1)
	}
	return float64(*position)
}

// hasRacePositions reports whether any entry already carries a known per-race
// finishing position, which makes the HTML fallback unnecessary.
func hasRacePositions(data standings.Data) bool {
	for _, entry := range data.Entries {
		for _, result := range entry.RaceResults {
			if result.Position != nil {
				return true
			}
		}
	}
	return false
}
