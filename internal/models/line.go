package models

// EventMarker names a point of interest at a fractional position along a
// segment or within a timed step.
type EventMarker struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Position float64 `json:"position"` // 0..1 along the segment
}

// Line is a single path segment. Its start point is implicit: the previous
// line's end point, or the path's start point for the first line.
type Line struct {
	ID            string        `json:"id"`
	EndPoint      Point         `json:"endPoint"`
	ControlPoints []Point       `json:"controlPoints,omitempty"`
	Color         string        `json:"color,omitempty"`
	Name          string        `json:"name,omitempty"`
	EventMarkers  []EventMarker `json:"eventMarkers,omitempty"`

	IsMacroElement bool   `json:"isMacroElement,omitempty"`
	MacroID        string `json:"macroId,omitempty"`
	Locked         bool   `json:"locked,omitempty"`
	// OriginalID is the macro-internal line id before instance namespacing.
	OriginalID string `json:"originalId,omitempty"`
}

// Clone returns a deep copy of the line.
func (l Line) Clone() Line {
	out := l
	if l.ControlPoints != nil {
		out.ControlPoints = make([]Point, len(l.ControlPoints))
		copy(out.ControlPoints, l.ControlPoints)
	}
	if l.EventMarkers != nil {
		out.EventMarkers = make([]EventMarker, len(l.EventMarkers))
		copy(out.EventMarkers, l.EventMarkers)
	}
	return out
}
