package models

// PathData is the source-of-truth shape for any path file, macro or
// top-level: a start point, the line segments, and the execution sequence.
type PathData struct {
	StartPoint Point    `json:"startPoint"`
	Lines      []Line   `json:"lines"`
	Sequence   Sequence `json:"sequence,omitempty"`
}

// EnsureSequence returns the explicit sequence, or the line-order-implied one
// when the file carries none.
func (d PathData) EnsureSequence() Sequence {
	if len(d.Sequence) > 0 {
		return d.Sequence
	}
	seq := make(Sequence, 0, len(d.Lines))
	for _, l := range d.Lines {
		seq = append(seq, &PathItem{ID: l.ID, LineID: l.ID})
	}
	return seq
}

// Clone returns a deep copy of the path data.
func (d PathData) Clone() PathData {
	out := d
	if d.Lines != nil {
		out.Lines = make([]Line, len(d.Lines))
		for i, l := range d.Lines {
			out.Lines[i] = l.Clone()
		}
	}
	out.Sequence = d.Sequence.Clone()
	return out
}
