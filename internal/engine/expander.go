package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pedro-visualizer/backend/internal/models"
)

// BridgeColor visually de-emphasizes auto-generated connecting segments.
const BridgeColor = "#9E9E9E"

// Expansion is the flattened result of expanding one macro placement. The end
// state seeds the next sequence item's expansion.
type Expansion struct {
	Lines      []models.Line   `json:"lines"`
	Sequence   models.Sequence `json:"sequence"`
	EndPoint   models.Point    `json:"endPoint"`
	EndHeading float64         `json:"endHeading"`
}

// Expander flattens one macro reference into concrete lines and sequence
// steps, recursing into nested references.
type Expander struct {
	resolver *Resolver
}

// NewExpander returns an expander using res for geometric transforms.
func NewExpander(res *Resolver) *Expander {
	return &Expander{resolver: res}
}

// Expand expands ref, placed after prev at running heading prevHeading, using
// macroData as the macro's source and lib to resolve nested references.
// visiting holds the file paths on the active expansion branch, in expansion
// order; Expand never mutates it, so sibling branches are unaffected.
func (e *Expander) Expand(ref *models.MacroItem, prev models.Point, prevHeading float64, macroData models.PathData, lib Library, visiting []string) (*Expansion, error) {
	for _, fp := range visiting {
		if fp == ref.FilePath {
			chain := make([]string, 0, len(visiting)+1)
			chain = append(chain, visiting...)
			chain = append(chain, ref.FilePath)
			return nil, &RecursionError{FilePath: ref.FilePath, Chain: chain}
		}
	}
	branch := make([]string, 0, len(visiting)+1)
	branch = append(branch, visiting...)
	branch = append(branch, ref.FilePath)

	transformed, resolved := e.resolver.Resolve(macroData, ref.Transformations)

	out := &Expansion{}
	heading := prevHeading
	cur := prev

	start := transformed.StartPoint
	if distance(cur.Vec(), start.Vec()) > BridgeEpsilon {
		bridge := e.bridgeLine(ref, cur, start)
		out.Lines = append(out.Lines, bridge)
		out.Sequence = append(out.Sequence, &models.PathItem{ID: bridge.ID, LineID: bridge.ID, Locked: true})
		heading = exitHeadingDeg(&bridge, cur.Vec(), heading)
		cur = bridge.EndPoint
	} else {
		// Within epsilon: no degenerate zero-length segment, the macro
		// start becomes the current position directly.
		cur = start
	}

	// Namespace every macro-internal line to this instance. The remap lets
	// the macro's sequence be re-expressed against the new ids; an id-less
	// source line gets a generated id so the line-order-implied sequence can
	// still reference it.
	remap := make(map[string]string, len(transformed.Lines))
	byID := make(map[string]*models.Line, len(transformed.Lines))
	origIDs := make([]string, 0, len(transformed.Lines))
	for i := range transformed.Lines {
		line := transformed.Lines[i].Clone()
		orig := line.ID
		if orig == "" {
			orig = uuid.NewString()
		}
		nid := fmt.Sprintf("macro-%s-%s", ref.ID, orig)
		remap[orig] = nid
		origIDs = append(origIDs, orig)
		line.ID = nid
		line.OriginalID = orig
		markLine(&line, ref.ID)
		out.Lines = append(out.Lines, line)
		byID[nid] = &out.Lines[len(out.Lines)-1]
	}

	srcSeq := transformed.Sequence
	if len(srcSeq) == 0 {
		srcSeq = make(models.Sequence, 0, len(origIDs))
		for _, id := range origIDs {
			srcSeq = append(srcSeq, &models.PathItem{ID: id, LineID: id})
		}
	}

	for _, item := range srcSeq {
		switch it := item.(type) {
		case *models.PathItem:
			nid, ok := remap[it.LineID]
			if !ok {
				// Dangling reference in the macro source. Dropping it
				// here keeps the output well-formed.
				fmt.Printf("[Expand %s] dropping path step for unknown line %q in %s\n", ref.ID, it.LineID, ref.FilePath)
				continue
			}
			line := byID[nid]
			required := entryHeadingDeg(line, cur.Vec(), heading)
			if diff := required - heading; diff > HeadingEpsilon || diff < -HeadingEpsilon {
				out.Sequence = append(out.Sequence, &models.RotateItem{
					ID:      nid + "-align",
					Name:    "Align Rotation",
					Degrees: required,
					Locked:  true,
				})
				heading = required
			}
			out.Sequence = append(out.Sequence, &models.PathItem{ID: nid, LineID: nid, Locked: true})
			heading = exitHeadingDeg(line, cur.Vec(), heading)
			cur = line.EndPoint

		case *models.WaitItem:
			w := it.CloneItem().(*models.WaitItem)
			w.ID = namespaceID(ref.ID, w.ID)
			w.Locked = true
			out.Sequence = append(out.Sequence, w)

		case *models.RotateItem:
			rot := it.CloneItem().(*models.RotateItem)
			rot.ID = namespaceID(ref.ID, rot.ID)
			rot.Locked = true
			out.Sequence = append(out.Sequence, rot)
			heading = rot.Degrees

		case *models.MacroItem:
			nestedData, ok := lib[it.FilePath]
			if !ok {
				// Data not loaded yet. Keep the reference as an
				// unexpanded placeholder; a later pass completes it.
				out.Sequence = append(out.Sequence, it.CloneItem())
				continue
			}
			// Child-local transforms resolve first, then the parent
			// frame applies on top.
			nestedRef := it.CloneItem().(*models.MacroItem)
			nestedRef.Transformations = append(nestedRef.Transformations, resolved...)
			rec, err := e.Expand(nestedRef, cur, heading, nestedData, lib, branch)
			if err != nil {
				return nil, err
			}
			out.Lines = append(out.Lines, rec.Lines...)
			out.Sequence = append(out.Sequence, &models.MacroItem{
				ID:              it.ID,
				FilePath:        it.FilePath,
				Transformations: it.Transformations.Clone(),
				Sequence:        rec.Sequence,
				Locked:          true,
			})
			cur = rec.EndPoint
			heading = rec.EndHeading
		}
	}

	out.EndPoint = cur
	out.EndHeading = heading
	return out, nil
}

// bridgeLine synthesizes the connecting segment from the running position to
// the macro's start point. Its end point mirrors the start point's heading
// mode so the entry heading of the macro's first step is unaffected.
func (e *Expander) bridgeLine(ref *models.MacroItem, from, start models.Point) models.Line {
	end := start
	end.IsMacroElement = true
	end.MacroID = ref.ID
	end.Locked = true
	return models.Line{
		ID:             "bridge-" + ref.ID,
		EndPoint:       end,
		Color:          BridgeColor,
		Name:           "Bridge",
		IsMacroElement: true,
		MacroID:        ref.ID,
		Locked:         true,
	}
}

func markLine(l *models.Line, macroID string) {
	l.IsMacroElement = true
	l.MacroID = macroID
	l.Locked = true
	l.EndPoint.IsMacroElement = true
	l.EndPoint.MacroID = macroID
	l.EndPoint.Locked = true
	for i := range l.ControlPoints {
		l.ControlPoints[i].IsMacroElement = true
		l.ControlPoints[i].MacroID = macroID
		l.ControlPoints[i].Locked = true
	}
}

func namespaceID(instanceID, id string) string {
	if id == "" {
		id = uuid.NewString()
	}
	return fmt.Sprintf("macro-%s-%s", instanceID, id)
}

