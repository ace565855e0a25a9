package models

import (
	"encoding/json"
	"fmt"
)

// TransformKind discriminates transformation variants on the wire.
type TransformKind string

const (
	TransformTranslate TransformKind = "translate"
	TransformRotate    TransformKind = "rotate"
	TransformFlip      TransformKind = "flip"
)

// FlipAxis selects which axis a flip mirrors.
type FlipAxis string

const (
	FlipHorizontal FlipAxis = "horizontal"
	FlipVertical   FlipAxis = "vertical"
)

// PivotKind discriminates pivot forms.
type PivotKind string

const (
	// PivotOrigin resolves to the field's physical origin constant.
	PivotOrigin PivotKind = "origin"
	// PivotCenter resolves to the center of the macro's current bounding box.
	PivotCenter PivotKind = "center"
	// PivotPoint is an explicit coordinate.
	PivotPoint PivotKind = "point"
)

// Pivot is the point a rotate or flip transform is applied about. The JSON
// forms are the strings "origin" and "center", or an explicit {x,y} object.
type Pivot struct {
	Kind PivotKind
	At   Vec2 // valid when Kind is PivotPoint
}

// PivotAt returns an explicit-coordinate pivot.
func PivotAt(v Vec2) Pivot {
	return Pivot{Kind: PivotPoint, At: v}
}

func (p Pivot) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PivotCenter:
		return json.Marshal(string(PivotCenter))
	case PivotPoint:
		return json.Marshal(p.At)
	default:
		return json.Marshal(string(PivotOrigin))
	}
}

func (p *Pivot) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch PivotKind(s) {
		case PivotOrigin, PivotCenter:
			p.Kind = PivotKind(s)
			return nil
		default:
			return fmt.Errorf("unknown pivot %q", s)
		}
	}
	var v Vec2
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("pivot must be \"origin\", \"center\" or {x,y}: %w", err)
	}
	p.Kind = PivotPoint
	p.At = v
	return nil
}

// Transformation is one geometric transform of a macro instance. Concrete
// variants are TranslateTransform, RotateTransform and FlipTransform. The
// list order matters: transforms are not commutative.
type Transformation interface {
	TransformKind() TransformKind
}

// TranslateTransform shifts the macro by (Dx, Dy).
type TranslateTransform struct {
	Dx float64 `json:"dx"`
	Dy float64 `json:"dy"`
}

func (TranslateTransform) TransformKind() TransformKind { return TransformTranslate }

// RotateTransform rotates the macro by Degrees about Pivot.
type RotateTransform struct {
	Degrees float64 `json:"degrees"`
	Pivot   Pivot   `json:"pivot"`
}

func (RotateTransform) TransformKind() TransformKind { return TransformRotate }

// FlipTransform mirrors the macro across one axis through Pivot.
type FlipTransform struct {
	Axis  FlipAxis `json:"axis"`
	Pivot Pivot    `json:"pivot"`
}

func (FlipTransform) TransformKind() TransformKind { return TransformFlip }

// Transforms is an ordered transformation list. It owns the type-dispatched
// JSON encoding of the Transformation union.
type Transforms []Transformation

// Clone returns a copy of the list. Variants are immutable values, so a
// shallow element copy is a deep copy.
func (ts Transforms) Clone() Transforms {
	if ts == nil {
		return nil
	}
	out := make(Transforms, len(ts))
	copy(out, ts)
	return out
}

func (t TranslateTransform) MarshalJSON() ([]byte, error) {
	type alias TranslateTransform
	return json.Marshal(struct {
		Type TransformKind `json:"type"`
		alias
	}{TransformTranslate, alias(t)})
}

func (t RotateTransform) MarshalJSON() ([]byte, error) {
	type alias RotateTransform
	return json.Marshal(struct {
		Type TransformKind `json:"type"`
		alias
	}{TransformRotate, alias(t)})
}

func (t FlipTransform) MarshalJSON() ([]byte, error) {
	type alias FlipTransform
	return json.Marshal(struct {
		Type TransformKind `json:"type"`
		alias
	}{TransformFlip, alias(t)})
}

// UnmarshalJSON dispatches on the "type" discriminator of each element.
func (ts *Transforms) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return err
	}
	out := make(Transforms, 0, len(raws))
	for i, raw := range raws {
		var probe struct {
			Type TransformKind `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return fmt.Errorf("transformation %d: %w", i, err)
		}
		var (
			tr  Transformation
			err error
		)
		switch probe.Type {
		case TransformTranslate:
			var v TranslateTransform
			err = json.Unmarshal(raw, &v)
			tr = v
		case TransformRotate:
			var v RotateTransform
			err = json.Unmarshal(raw, &v)
			tr = v
		case TransformFlip:
			var v FlipTransform
			err = json.Unmarshal(raw, &v)
			tr = v
		default:
			return fmt.Errorf("transformation %d: unknown type %q", i, probe.Type)
		}
		if err != nil {
			return fmt.Errorf("transformation %d (%s): %w", i, probe.Type, err)
		}
		out = append(out, tr)
	}
	*ts = out
	return nil
}
