// Package models contains domain types for the Pedro Path Visualizer backend.
package models

// HeadingMode selects how a point's heading is interpreted.
type HeadingMode string

const (
	// HeadingConstant holds a fixed heading across the segment.
	HeadingConstant HeadingMode = "constant"
	// HeadingLinear interpolates from StartDeg to EndDeg across the segment.
	HeadingLinear HeadingMode = "linear"
	// HeadingTangential follows the path's direction of travel.
	HeadingTangential HeadingMode = "tangential"
)

// Vec2 is a plain field coordinate in inches.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point is a 2-D position plus a heading specification.
type Point struct {
	X       float64     `json:"x"`
	Y       float64     `json:"y"`
	Heading HeadingMode `json:"heading"`

	// Degrees is the fixed heading when Heading is constant.
	Degrees float64 `json:"degrees,omitempty"`
	// StartDeg and EndDeg bound the interpolation when Heading is linear.
	StartDeg float64 `json:"startDeg,omitempty"`
	EndDeg   float64 `json:"endDeg,omitempty"`
	// Reverse flips a tangential heading 180 degrees.
	Reverse bool `json:"reverse,omitempty"`

	// Provenance. Set only on expansion-generated content, never on
	// user-authored points.
	IsMacroElement bool   `json:"isMacroElement,omitempty"`
	MacroID        string `json:"macroId,omitempty"`
	Locked         bool   `json:"locked,omitempty"`
}

// Vec returns the point's coordinate without heading information.
func (p Point) Vec() Vec2 {
	return Vec2{X: p.X, Y: p.Y}
}
