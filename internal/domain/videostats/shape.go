package videostats

// ShapeVersion discriminates the response layouts the backend has produced.
type ShapeVersion string

const (
	// ShapeUnknown is any input that is not a JSON object.
	ShapeUnknown ShapeVersion = "unknown"
	// ShapeFlat carries every statistics field at the top level.
	ShapeFlat ShapeVersion = "v1_flat"
	// ShapeNested carries statistics inside a non-empty "statistics" object.
	ShapeNested ShapeVersion = "v2_nested"
)

// Shape is the result of locating statistics inside a raw response.
type Shape struct {
	Version ShapeVersion
	// Root is the top-level object, empty when the input was not an object.
	Root map[string]any
	// Nested is the "statistics" object, empty when absent.
	Nested map[string]any
	// StatsSource is Nested when it has at least one key, otherwise Root.
	StatsSource map[string]any
	// TeamsRaw prefers top-level teams over nested teams.
	TeamsRaw []any
}

// DetectShape never fails; unusable input yields an empty flat shape.
func DetectShape(raw any) Shape {
	raw = lift(raw)

	root := record(raw)
	version := ShapeFlat
	if root == nil {
		root = map[string]any{}
		version = ShapeUnknown
	}

	nested := record(root["statistics"])
	if nested == nil {
		nested = map[string]any{}
	}

	source := root
	if len(nested) > 0 {
		source = nested
		version = ShapeNested
	}

	teams, ok := list(root["teams"])
	if !ok {
		teams, ok = list(nested["teams"])
	}
	if !ok {
		teams = []any{}
	}

	return Shape{
		Version:     version,
		Root:        root,
		Nested:      nested,
		StatsSource: source,
		TeamsRaw:    teams,
	}
}
