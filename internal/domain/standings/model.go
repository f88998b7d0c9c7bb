package standings

// ChampionshipSummary is one row of the championship list proxy.
type ChampionshipSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ChampionshipDetails carries the upstream championship metadata verbatim.
type ChampionshipDetails struct {
	ID                     int64   `json:"id"`
	Name                   string  `json:"name"`
	StartDate              *string `json:"startDate,omitempty"`
	EndDate                *string `json:"endDate,omitempty"`
	Capacity               *int64  `json:"capacity,omitempty"`
	SpotsTaken             *int64  `json:"spotsTaken,omitempty"`
	AcceptingRegistrations bool    `json:"acceptingRegistrations"`
	HostName               string  `json:"hostName"`
	GameName               string  `json:"gameName"`
	URL                    string  `json:"url"`
}

// DriverRaceResult is one driver's outcome in a single race. RaceIndex is the
// stable join key; RaceID is best-effort because the upstream payload does not
// always carry one. A nil Position means "unknown", which is distinct from a
// DNS (driver entered but did not start).
type DriverRaceResult struct {
	RaceID    *int64   `json:"raceId"`
	RaceIndex int      `json:"raceIndex"`
	Points    *float64 `json:"points"`
	Position  *int64   `json:"position"`
	DNS       bool     `json:"dns"`
}

// StandingEntry is one driver's aggregate championship standing.
type StandingEntry struct {
	ID          int64              `json:"id"`
	Position    *int64             `json:"position"`
	DisplayName string             `json:"displayName"`
	CountryCode string             `json:"countryCode"`
	Car         string             `json:"car"`
	Points      float64            `json:"points"`
	Penalties   float64            `json:"penalties"`
	Score       float64            `json:"score"`
	DSQ         bool               `json:"dsq"`
	RaceResults []DriverRaceResult `json:"raceResults"`
}

// StandingRace is one race of the championship. Races discovered only through
// the HTML fallback get a synthesized negative ID.
type StandingRace struct {
	ID               int64   `json:"id"`
	DisplayName      string  `json:"displayName"`
	StartsAt         *string `json:"startsAt"`
	ResultsAvailable bool    `json:"resultsAvailable"`
	Ended            bool    `json:"ended"`
}

// Data is the resolved standings view for one championship. The order of
// Races defines RaceIndex semantics for every entry's RaceResults.
type Data struct {
	Entries []StandingEntry `json:"entries"`
	Races   []StandingRace  `json:"races"`
}
