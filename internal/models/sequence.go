package models

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ItemKind discriminates sequence item variants on the wire.
type ItemKind string

const (
	KindPath   ItemKind = "path"
	KindWait   ItemKind = "wait"
	KindRotate ItemKind = "rotate"
	KindMacro  ItemKind = "macro"
)

// SequenceItem is one step of a path's execution order. Concrete variants are
// PathItem, WaitItem, RotateItem and MacroItem.
type SequenceItem interface {
	Kind() ItemKind
	ItemID() string
	CloneItem() SequenceItem
}

// PathItem drives along a line, referenced by id.
type PathItem struct {
	ID     string `json:"id,omitempty"`
	LineID string `json:"lineId"`
	Locked bool   `json:"locked,omitempty"`
}

func (it *PathItem) Kind() ItemKind { return KindPath }
func (it *PathItem) ItemID() string { return it.ID }
func (it *PathItem) CloneItem() SequenceItem {
	c := *it
	return &c
}

// WaitItem is a named pause of fixed duration.
type WaitItem struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name,omitempty"`
	DurationMs   float64       `json:"durationMs"`
	EventMarkers []EventMarker `json:"eventMarkers,omitempty"`
	Locked       bool          `json:"locked,omitempty"`
}

func (it *WaitItem) Kind() ItemKind { return KindWait }
func (it *WaitItem) ItemID() string { return it.ID }
func (it *WaitItem) CloneItem() SequenceItem {
	c := *it
	if it.EventMarkers != nil {
		c.EventMarkers = make([]EventMarker, len(it.EventMarkers))
		copy(c.EventMarkers, it.EventMarkers)
	}
	return &c
}

// RotateItem is a named in-place turn to an absolute heading.
type RotateItem struct {
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Degrees      float64       `json:"degrees"`
	EventMarkers []EventMarker `json:"eventMarkers,omitempty"`
	Locked       bool          `json:"locked,omitempty"`
}

func (it *RotateItem) Kind() ItemKind { return KindRotate }
func (it *RotateItem) ItemID() string { return it.ID }
func (it *RotateItem) CloneItem() SequenceItem {
	c := *it
	if it.EventMarkers != nil {
		c.EventMarkers = make([]EventMarker, len(it.EventMarkers))
		copy(c.EventMarkers, it.EventMarkers)
	}
	return &c
}

// MacroItem places a macro file at this position in the surrounding path.
// Once expanded, Sequence holds the flattened children.
type MacroItem struct {
	ID              string     `json:"id"`
	FilePath        string     `json:"filePath"`
	Transformations Transforms `json:"transformations,omitempty"`
	Sequence        Sequence   `json:"sequence,omitempty"`
	Locked          bool       `json:"locked,omitempty"`
}

func (it *MacroItem) Kind() ItemKind { return KindMacro }
func (it *MacroItem) ItemID() string { return it.ID }
func (it *MacroItem) CloneItem() SequenceItem {
	c := *it
	c.Transformations = it.Transformations.Clone()
	c.Sequence = it.Sequence.Clone()
	return &c
}

// Sequence is an ordered list of sequence items. It owns the kind-dispatched
// JSON encoding of the SequenceItem union.
type Sequence []SequenceItem

// Clone returns a deep copy of the sequence.
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	for i, it := range s {
		out[i] = it.CloneItem()
	}
	return out
}

func (it PathItem) MarshalJSON() ([]byte, error) {
	type alias PathItem
	return json.Marshal(struct {
		Kind ItemKind `json:"kind"`
		alias
	}{KindPath, alias(it)})
}

func (it WaitItem) MarshalJSON() ([]byte, error) {
	type alias WaitItem
	return json.Marshal(struct {
		Kind ItemKind `json:"kind"`
		alias
	}{KindWait, alias(it)})
}

func (it RotateItem) MarshalJSON() ([]byte, error) {
	type alias RotateItem
	return json.Marshal(struct {
		Kind ItemKind `json:"kind"`
		alias
	}{KindRotate, alias(it)})
}

func (it MacroItem) MarshalJSON() ([]byte, error) {
	type alias MacroItem
	return json.Marshal(struct {
		Kind ItemKind `json:"kind"`
		alias
	}{KindMacro, alias(it)})
}

// UnmarshalJSON dispatches on the "kind" discriminator of each element.
func (s *Sequence) UnmarshalJSON(b []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(b, &raws); err != nil {
		return err
	}
	out := make(Sequence, 0, len(raws))
	for i, raw := range raws {
		var probe struct {
			Kind ItemKind `json:"kind"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return fmt.Errorf("sequence item %d: %w", i, err)
		}
		var (
			it  SequenceItem
			err error
		)
		switch probe.Kind {
		case KindPath:
			v := &PathItem{}
			err = json.Unmarshal(raw, v)
			it = v
		case KindWait:
			v := &WaitItem{}
			err = json.Unmarshal(raw, v)
			it = v
		case KindRotate:
			v := &RotateItem{}
			err = json.Unmarshal(raw, v)
			it = v
		case KindMacro:
			v := &MacroItem{}
			err = json.Unmarshal(raw, v)
			it = v
		default:
			return fmt.Errorf("sequence item %d: unknown kind %q", i, probe.Kind)
		}
		if err != nil {
			return fmt.Errorf("sequence item %d (%s): %w", i, probe.Kind, err)
		}
		out = append(out, it)
	}
	*s = out
	return nil
}

// EncodeMsgpack encodes the sequence as its JSON object form so consumers see
// the same shape in both wire formats.
func (s Sequence) EncodeMsgpack(enc *msgpack.Encoder) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	var generic []interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	return enc.Encode(generic)
}

// DecodeMsgpack is the inverse of EncodeMsgpack.
func (s *Sequence) DecodeMsgpack(dec *msgpack.Decoder) error {
	var generic []interface{}
	if err := dec.Decode(&generic); err != nil {
		return err
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return err
	}
	return s.UnmarshalJSON(raw)
}
