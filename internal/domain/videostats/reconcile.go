package videostats

// StatsSource reports which side of the reconciliation produced matchStats.
type StatsSource string

const (
	// SourceDeclared means the backend sent at least one nonzero value.
	SourceDeclared StatsSource = "declared"
	// SourceDeclaredEmpty means everything was zero and there was nothing to count.
	SourceDeclaredEmpty StatsSource = "declared_empty"
	// SourceComputed means the totals were rebuilt from the events.
	SourceComputed StatsSource = "computed"
)

// ParseMatchStats reads the fifteen counters, defaulting each to zero.
func ParseMatchStats(raw any) MatchStats {
	src := record(lift(raw))
	return MatchStats{
		Passes: parseMetricTotal(lookup(src, "passes")),
		Shots:  parseMetricTotal(lookup(src, "shots")),
		Goals:  parseMetricTotal(lookup(src, "goals")),
		Fouls:  parseMetricTotal(lookup(src, "fouls")),
		Others: parseMetricTotal(lookup(src, "others")),
	}
}

func parseMetricTotal(raw any) MetricTotal {
	src := record(raw)
	return MetricTotal{
		Total: numberOr(lookup(src, "total"), 0),
		TeamA: numberOr(lookup(src, "teamA"), 0),
		TeamB: numberOr(lookup(src, "teamB"), 0),
	}
}

// Reconcile trusts the declared statistics when any counter is nonzero or
// when there are no events to count. Otherwise it aggregates the events.
func Reconcile(declared MatchStats, events []ManualEvent) (MatchStats, StatsSource) {
	if !declared.IsZero() {
		return declared, SourceDeclared
	}
	if len(events) == 0 {
		return declared, SourceDeclaredEmpty
	}
	return Aggregate(events), SourceComputed
}

// ResolveTeamNames prefers the names on source, then the first two team
// entries, then the defaults.
func ResolveTeamNames(source map[string]any, teams []TeamStats) (string, string) {
	var fromTeamA, fromTeamB string
	if len(teams) > 0 {
		fromTeamA = teams[0].TeamName
	}
	if len(teams) > 1 {
		fromTeamB = teams[1].TeamName
	}

	teamA := firstNonBlank(lookup(source, "teamAName"), fromTeamA)
	if teamA == "" {
		teamA = DefaultTeamAName
	}
	teamB := firstNonBlank(lookup(source, "teamBName"), fromTeamB)
	if teamB == "" {
		teamB = DefaultTeamBName
	}
	return teamA, teamB
}

// ParseSportType matches the known sports exactly, like event types.
func ParseSportType(raw any) SportType {
	text, ok := raw.(string)
	if !ok {
		return SportOther
	}
	sport := SportType(text)
	if _, known := knownSports[sport]; known {
		return sport
	}
	return SportOther
}

// SanitizeTeams keeps object entries only. Metric values that are not
// numbers become zero while the metric order of the input is kept.
func SanitizeTeams(raw any) []TeamStats {
	items, ok := list(lift(raw))
	if !ok {
		return []TeamStats{}
	}

	out := make([]TeamStats, 0, len(items))
	for _, item := range items {
		src := record(item)
		if src == nil {
			continue
		}
		out = append(out, TeamStats{
			TeamName: stringOr(src["teamName"], ""),
			Stats:    statLineFrom(src["stats"]),
			ID:       nonBlankOr(src["_id"], ""),
		})
	}
	return out
}
