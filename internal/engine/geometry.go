// Package engine expands macro path references into flat, concrete geometry:
// lines plus an ordered execution sequence. It is purely synchronous and owns
// no I/O; the macro library is supplied fully materialized on every call.
package engine

import (
	"math"

	"github.com/pedro-visualizer/backend/internal/models"
)

const (
	// BridgeEpsilon is the gap (in field units) below which no bridge line
	// is generated between the running position and a macro's start point.
	BridgeEpsilon = 0.1

	// HeadingEpsilon is the heading mismatch (degrees) below which no
	// alignment rotation is inserted before a path step.
	HeadingEpsilon = 0.1
)

// Library maps a macro's file-path identifier to its loaded path data.
// Population and invalidation are the caller's responsibility.
type Library map[string]models.PathData

func distance(a, b models.Vec2) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func headingBetween(from, to models.Vec2) float64 {
	return math.Atan2(to.Y-from.Y, to.X-from.X) * 180 / math.Pi
}

// UnwrapDeg returns the representation of deg nearest ref, so that turns are
// never computed as spurious near-360 degree rotations. Headings are not
// otherwise renormalized to a canonical range.
func UnwrapDeg(deg, ref float64) float64 {
	d := math.Mod(deg-ref, 360)
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	return ref + d
}

// startTangentDeg is the direction the line's geometry leaves its start point,
// which is the previous position `from`. With control points the tangent runs
// toward the first control point, otherwise toward the end point.
func startTangentDeg(l *models.Line, from models.Vec2) float64 {
	target := l.EndPoint.Vec()
	if len(l.ControlPoints) > 0 {
		cp := l.ControlPoints[0].Vec()
		if distance(from, cp) > 1e-9 {
			target = cp
		}
	}
	return headingBetween(from, target)
}

// endTangentDeg is the direction the line's geometry arrives at its end point.
func endTangentDeg(l *models.Line, from models.Vec2) float64 {
	source := from
	if len(l.ControlPoints) > 0 {
		cp := l.ControlPoints[len(l.ControlPoints)-1].Vec()
		if distance(cp, l.EndPoint.Vec()) > 1e-9 {
			source = cp
		}
	}
	return headingBetween(source, l.EndPoint.Vec())
}

// entryHeadingDeg is the heading the line requires at entry, unwrapped against
// the running heading ref.
func entryHeadingDeg(l *models.Line, from models.Vec2, ref float64) float64 {
	switch l.EndPoint.Heading {
	case models.HeadingLinear:
		return UnwrapDeg(l.EndPoint.StartDeg, ref)
	case models.HeadingTangential:
		t := startTangentDeg(l, from)
		if l.EndPoint.Reverse {
			t += 180
		}
		return UnwrapDeg(t, ref)
	default: // constant
		return UnwrapDeg(l.EndPoint.Degrees, ref)
	}
}

// exitHeadingDeg is the running heading after driving the line. Tangential
// headings are geometry-derived and unwrapped against the current heading;
// constant and linear end values are taken as written.
func exitHeadingDeg(l *models.Line, from models.Vec2, cur float64) float64 {
	switch l.EndPoint.Heading {
	case models.HeadingLinear:
		return l.EndPoint.EndDeg
	case models.HeadingTangential:
		t := endTangentDeg(l, from)
		if l.EndPoint.Reverse {
			t += 180
		}
		return UnwrapDeg(t, cur)
	default: // constant
		return l.EndPoint.Degrees
	}
}
