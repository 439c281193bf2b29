package videostats

import (
	"math"
	"strconv"
	"strings"
)

// SanitizeEvents turns an arbitrary events value into well-formed events.
// Falsy entries are dropped before ids are assigned, so synthesized ids are
// "evt-<n>" where n is the position among the kept entries.
func SanitizeEvents(raw any) []ManualEvent {
	items, ok := list(lift(raw))
	if !ok {
		return []ManualEvent{}
	}

	out := make([]ManualEvent, 0, len(items))
	for _, item := range items {
		if falsy(item) {
			continue
		}
		out = append(out, sanitizeEvent(record(item), len(out)))
	}
	return out
}

func sanitizeEvent(src map[string]any, index int) ManualEvent {
	event := ManualEvent{
		ID:   nonBlankOr(lookup(src, "id"), syntheticEventID(index)),
		Time: clampTime(numberOr(lookup(src, "time"), 0)),
		Type: ParseEventType(lookup(src, "type")),
		Team: ParseSide(lookup(src, "team")),
	}
	if note, ok := lookup(src, "note").(string); ok {
		event.Note = truncateRunes(note, maxNoteRunes)
	}
	return event
}

// CanonicalizeEvents applies the sanitizer rules to already typed events.
func CanonicalizeEvents(events []ManualEvent) []ManualEvent {
	out := make([]ManualEvent, 0, len(events))
	for idx, event := range events {
		if strings.TrimSpace(event.ID) == "" {
			event.ID = syntheticEventID(idx)
		}
		event.Time = clampTime(event.Time)
		event.Type = ParseEventType(string(event.Type))
		event.Team = ParseSide(string(event.Team))
		event.Note = truncateRunes(event.Note, maxNoteRunes)
		out = append(out, event)
	}
	return out
}

func ParseEventType(raw any) EventType {
	text, ok := raw.(string)
	if !ok {
		return EventOther
	}
	if _, known := knownEventTypes[EventType(text)]; known {
		return EventType(text)
	}
	return EventOther
}

func ParseSide(raw any) Side {
	if text, ok := raw.(string); ok && Side(text) == SideB {
		return SideB
	}
	return SideA
}

func syntheticEventID(index int) string {
	return "evt-" + strconv.Itoa(index)
}

func clampTime(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return 0
	}
	return value
}
