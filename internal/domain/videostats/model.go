package videostats

import "strings"

type SportType string

const (
	SportFootball   SportType = "football"
	SportPadel      SportType = "padel"
	SportTennis     SportType = "tennis"
	SportBasketball SportType = "basketball"
	SportOther      SportType = "other"
)

var knownSports = map[SportType]struct{}{
	SportFootball:   {},
	SportPadel:      {},
	SportTennis:     {},
	SportBasketball: {},
	SportOther:      {},
}

type EventType string

const (
	EventPass  EventType = "pass"
	EventShot  EventType = "shot"
	EventGoal  EventType = "goal"
	EventFoul  EventType = "foul"
	EventOther EventType = "other"
)

var knownEventTypes = map[EventType]struct{}{
	EventPass:  {},
	EventShot:  {},
	EventGoal:  {},
	EventFoul:  {},
	EventOther: {},
}

// Side identifies one of the two match participants.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

const (
	DefaultTeamAName = "Team A"
	DefaultTeamBName = "Team B"
	ManualModel      = "manual"
	maxNoteRunes     = 500
)

// ManualEvent is one user-recorded in-match occurrence.
type ManualEvent struct {
	ID   string    `json:"id"`
	Time float64   `json:"time"`
	Type EventType `json:"type"`
	Team Side      `json:"team"`
	Note string    `json:"note,omitempty"`
}

// MetricTotal counts one statistic overall and per side.
type MetricTotal struct {
	Total float64 `json:"total"`
	TeamA float64 `json:"teamA"`
	TeamB float64 `json:"teamB"`
}

func (m MetricTotal) IsZero() bool {
	return m.Total == 0 && m.TeamA == 0 && m.TeamB == 0
}

func (m *MetricTotal) add(side Side) {
	m.Total++
	if side == SideA {
		m.TeamA++
		return
	}
	m.TeamB++
}

type MatchStats struct {
	Passes MetricTotal `json:"passes"`
	Shots  MetricTotal `json:"shots"`
	Goals  MetricTotal `json:"goals"`
	Fouls  MetricTotal `json:"fouls"`
	Others MetricTotal `json:"others"`
}

func (s MatchStats) IsZero() bool {
	return s.Passes.IsZero() && s.Shots.IsZero() && s.Goals.IsZero() && s.Fouls.IsZero() && s.Others.IsZero()
}

// TeamStats is the open-ended per-team metric bag produced by model analysis.
type TeamStats struct {
	TeamName string   `json:"teamName"`
	Stats    StatLine `json:"stats"`
	ID       string   `json:"_id,omitempty"`
}

// Statistics mirrors the nested payload older consumers still read.
type Statistics struct {
	Summary    string        `json:"summary,omitempty"`
	SportType  SportType     `json:"sportType"`
	TeamAName  string        `json:"teamAName"`
	TeamBName  string        `json:"teamBName"`
	Events     []ManualEvent `json:"events"`
	Teams      []TeamStats   `json:"teams"`
	MatchStats MatchStats    `json:"matchStats"`
}

// VideoStats is the canonical record handed to every consumer.
type VideoStats struct {
	Summary          string        `json:"summary,omitempty"`
	ID               string        `json:"_id,omitempty"`
	VideoID          string        `json:"videoId"`
	SportType        SportType     `json:"sportType"`
	TeamAName        string        `json:"teamAName"`
	TeamBName        string        `json:"teamBName"`
	Events           []ManualEvent `json:"events"`
	MatchStats       MatchStats    `json:"matchStats"`
	Teams            []TeamStats   `json:"teams"`
	GeneratedByModel string        `json:"generatedByModel"`
	CreatedAt        string        `json:"createdAt,omitempty"`
	UpdatedAt        string        `json:"updatedAt,omitempty"`
	Statistics       *Statistics   `json:"statistics,omitempty"`
}

// NewManual returns the record used to start manual scoring for a video.
func NewManual(videoID string, sport SportType) VideoStats {
	if _, ok := knownSports[sport]; !ok {
		sport = SportOther
	}
	return VideoStats{
		VideoID:   strings.TrimSpace(videoID),
		SportType: sport,
		TeamAName: DefaultTeamAName,
		TeamBName: DefaultTeamBName,
		Events:    []ManualEvent{},
		Teams: []TeamStats{
			{TeamName: DefaultTeamAName, Stats: StatLine{}},
			{TeamName: DefaultTeamBName, Stats: StatLine{}},
		},
		GeneratedByModel: ManualModel,
	}
}

// WithMirroredStatistics copies the flat fields into the nested statistics
// object so that create and update payloads satisfy both reader generations.
func (v VideoStats) WithMirroredStatistics() VideoStats {
	out := v
	out.Events = append([]ManualEvent{}, v.Events...)
	out.Teams = append([]TeamStats{}, v.Teams...)
	out.Statistics = &Statistics{
		Summary:    v.Summary,
		SportType:  v.SportType,
		TeamAName:  v.TeamAName,
		TeamBName:  v.TeamBName,
		Events:     append([]ManualEvent{}, v.Events...),
		Teams:      append([]TeamStats{}, v.Teams...),
		MatchStats: v.MatchStats,
	}
	return out
}

// AppendEvents adds newly recorded events, canonicalizes the combined list and
// recomputes the match statistics from it.
func (v VideoStats) AppendEvents(events ...ManualEvent) VideoStats {
	combined := make([]ManualEvent, 0, len(v.Events)+len(events))
	combined = append(combined, v.Events...)
	combined = append(combined, events...)

	out := v
	out.Events = CanonicalizeEvents(combined)
	out.MatchStats = Aggregate(out.Events)
	if out.Teams == nil {
		out.Teams = []TeamStats{}
	}
	return out.WithMirroredStatistics()
}
