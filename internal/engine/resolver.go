package engine

import (
	"math"

	"github.com/pedro-visualizer/backend/internal/models"
)

// Resolver applies an ordered list of geometric transforms to a macro's path
// data. The field origin used by "origin" pivots is a property of the
// competition field, so it is configuration, not a literal.
type Resolver struct {
	origin models.Vec2
}

// NewResolver returns a resolver whose "origin" pivot resolves to origin.
func NewResolver(origin models.Vec2) *Resolver {
	return &Resolver{origin: origin}
}

// Resolve applies transforms in order to a deep copy of data and returns the
// transformed copy together with the transform list rewritten with explicit
// pivot coordinates, for propagation to nested macros. An empty transform
// list returns the input unchanged.
func (r *Resolver) Resolve(data models.PathData, transforms models.Transforms) (models.PathData, models.Transforms) {
	if len(transforms) == 0 {
		return data, nil
	}

	out := data.Clone()
	resolved := make(models.Transforms, 0, len(transforms))
	for _, tr := range transforms {
		switch t := tr.(type) {
		case models.TranslateTransform:
			forEachPoint(&out, func(p *models.Point) {
				p.X += t.Dx
				p.Y += t.Dy
			})
			resolved = append(resolved, t)

		case models.RotateTransform:
			// Pivots resolve against the geometry as it stands at this
			// step, not the original shape.
			pivot := r.resolvePivot(t.Pivot, &out)
			sin, cos := math.Sincos(t.Degrees * math.Pi / 180)
			forEachPoint(&out, func(p *models.Point) {
				dx, dy := p.X-pivot.X, p.Y-pivot.Y
				p.X = pivot.X + dx*cos - dy*sin
				p.Y = pivot.Y + dx*sin + dy*cos
				shiftHeading(p, t.Degrees)
			})
			forEachRotateItem(out.Sequence, func(it *models.RotateItem) {
				it.Degrees += t.Degrees
			})
			resolved = append(resolved, models.RotateTransform{Degrees: t.Degrees, Pivot: models.PivotAt(pivot)})

		case models.FlipTransform:
			pivot := r.resolvePivot(t.Pivot, &out)
			if t.Axis == models.FlipVertical {
				forEachPoint(&out, func(p *models.Point) {
					p.Y = 2*pivot.Y - p.Y
					mapHeading(p, func(d float64) float64 { return -d })
				})
				forEachRotateItem(out.Sequence, func(it *models.RotateItem) {
					it.Degrees = -it.Degrees
				})
			} else {
				forEachPoint(&out, func(p *models.Point) {
					p.X = 2*pivot.X - p.X
					mapHeading(p, func(d float64) float64 { return 180 - d })
				})
				forEachRotateItem(out.Sequence, func(it *models.RotateItem) {
					it.Degrees = 180 - it.Degrees
				})
			}
			resolved = append(resolved, models.FlipTransform{Axis: t.Axis, Pivot: models.PivotAt(pivot)})
		}
	}
	return out, resolved
}

func (r *Resolver) resolvePivot(p models.Pivot, d *models.PathData) models.Vec2 {
	switch p.Kind {
	case models.PivotCenter:
		return boundingCenter(d)
	case models.PivotPoint:
		return p.At
	default:
		return r.origin
	}
}

// boundingCenter is the midpoint of the axis-aligned bounding box of the
// current geometry: start point, end points, and control points.
func boundingCenter(d *models.PathData) models.Vec2 {
	minX, minY := d.StartPoint.X, d.StartPoint.Y
	maxX, maxY := minX, minY
	grow := func(x, y float64) {
		minX = math.Min(minX, x)
		minY = math.Min(minY, y)
		maxX = math.Max(maxX, x)
		maxY = math.Max(maxY, y)
	}
	for i := range d.Lines {
		l := &d.Lines[i]
		grow(l.EndPoint.X, l.EndPoint.Y)
		for j := range l.ControlPoints {
			grow(l.ControlPoints[j].X, l.ControlPoints[j].Y)
		}
	}
	return models.Vec2{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
}

func forEachPoint(d *models.PathData, fn func(*models.Point)) {
	fn(&d.StartPoint)
	for i := range d.Lines {
		fn(&d.Lines[i].EndPoint)
		for j := range d.Lines[i].ControlPoints {
			fn(&d.Lines[i].ControlPoints[j])
		}
	}
}

func forEachRotateItem(seq models.Sequence, fn func(*models.RotateItem)) {
	for _, it := range seq {
		if rot, ok := it.(*models.RotateItem); ok {
			fn(rot)
		}
	}
}

// shiftHeading adds deg to the heading-bearing fields of constant and linear
// points. Tangential headings are geometry-derived and are never rewritten;
// the reverse flag is preserved unchanged across all transforms.
func shiftHeading(p *models.Point, deg float64) {
	mapHeading(p, func(d float64) float64 { return d + deg })
}

func mapHeading(p *models.Point, fn func(float64) float64) {
	switch p.Heading {
	case models.HeadingConstant:
		p.Degrees = fn(p.Degrees)
	case models.HeadingLinear:
		p.StartDeg = fn(p.StartDeg)
		p.EndDeg = fn(p.EndDeg)
	}
}
