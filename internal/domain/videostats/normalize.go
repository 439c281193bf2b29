package videostats

import (
	jsoniter "github.com/json-iterator/go"
)

// Normalization reports the canonical record together with how its
// matchStats were obtained.
type Normalization struct {
	Stats  VideoStats
	Source StatsSource
	Shape  ShapeVersion
}

// Normalize converts any backend response into the canonical record. It is
// total and does not modify raw.
func Normalize(raw any) VideoStats {
	return Inspect(raw).Stats
}

// NormalizeJSON decodes body keeping object key order and normalizes it.
// A body that is not valid JSON normalizes like a missing response.
func NormalizeJSON(body []byte) VideoStats {
	return InspectJSON(body).Stats
}

func InspectJSON(body []byte) Normalization {
	decoded, err := decodeOrdered(body)
	if err != nil {
		decoded = nil
	}
	return Inspect(decoded)
}

func Inspect(raw any) Normalization {
	shape := DetectShape(raw)
	stats, source := ToCanonical(shape)
	return Normalization{Stats: stats, Source: source, Shape: shape.Version}
}

// ToCanonical upgrades a detected shape to the current record layout.
func ToCanonical(shape Shape) (VideoStats, StatsSource) {
	root, source := shape.Root, shape.StatsSource

	events := SanitizeEvents(source["events"])
	matchStats, statsSource := Reconcile(ParseMatchStats(source["matchStats"]), events)
	teams := SanitizeTeams(shape.TeamsRaw)
	teamA, teamB := ResolveTeamNames(source, teams)

	sportRaw, ok := source["sportType"]
	if !ok {
		sportRaw = root["sportType"]
	}

	out := VideoStats{
		Summary:          firstString(source["summary"], root["summary"]),
		ID:               firstNonBlank(root["_id"], source["_id"]),
		VideoID:          firstNonBlank(root["videoId"], source["videoId"]),
		SportType:        ParseSportType(sportRaw),
		TeamAName:        teamA,
		TeamBName:        teamB,
		Events:           events,
		MatchStats:       matchStats,
		Teams:            teams,
		GeneratedByModel: firstString(root["generatedByModel"], source["generatedByModel"]),
		CreatedAt:        firstString(root["createdAt"], source["createdAt"]),
		UpdatedAt:        firstString(root["updatedAt"], source["updatedAt"]),
	}

	if shape.Version == ShapeNested {
		nestedTeams := teams
		if rawTeams, ok := list(shape.Nested["teams"]); ok {
			nestedTeams = SanitizeTeams(rawTeams)
		}
		out.Statistics = &Statistics{
			Summary:    out.Summary,
			SportType:  out.SportType,
			TeamAName:  out.TeamAName,
			TeamBName:  out.TeamBName,
			Events:     append([]ManualEvent{}, events...),
			Teams:      nestedTeams,
			MatchStats: matchStats,
		}
	}

	return out, statsSource
}

func firstString(values ...any) string {
	for _, value := range values {
		if text, ok := value.(string); ok {
			return text
		}
	}
	return ""
}

// lift brings typed Go values (for example a VideoStats) into the generic
// JSON form the normalizer reads. Values that cannot be encoded become nil.
func lift(raw any) any {
	switch typed := raw.(type) {
	case nil, bool, string, map[string]any, OrderedObject, *OrderedObject, []any, []map[string]any, []OrderedObject:
		return raw
	case []byte:
		decoded, err := decodeOrdered(typed)
		if err != nil {
			return nil
		}
		return decoded
	case jsoniter.RawMessage:
		return lift([]byte(typed))
	}
	if _, ok := number(raw); ok {
		return raw
	}

	encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(raw)
	if err != nil {
		return nil
	}
	decoded, err := decodeOrdered(encoded)
	if err != nil {
		return nil
	}
	return decoded
}
