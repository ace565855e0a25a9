package engine

import (
	"fmt"
	"strings"

	"github.com/pedro-visualizer/backend/internal/models"
)

// Result is a fully reconciled project: the flattened line list (user lines
// plus freshly generated or salvaged macro lines) and the top-level sequence.
type Result struct {
	Lines    []models.Line   `json:"lines"`
	Sequence models.Sequence `json:"sequence"`
}

// Reconciler re-derives a project's complete flattened geometry after an
// edit. User-authored lines survive untouched; macro-originated geometry is
// always regenerated, never carried over by reference.
type Reconciler struct {
	expander *Expander
}

// NewReconciler returns a reconciler that regenerates macro content with exp.
func NewReconciler(exp *Expander) *Reconciler {
	return &Reconciler{expander: exp}
}

// Reconcile rebuilds the project from the user's start point, current
// flattened line list, and top-level sequence. lines is the previous
// flattened output: its macro-generated entries are the salvage source when a
// macro's data is missing from lib.
func (r *Reconciler) Reconcile(start models.Point, lines []models.Line, seq models.Sequence, lib Library) (*Result, error) {
	var userLines, prevGenerated []models.Line
	for _, l := range lines {
		if l.IsMacroElement {
			prevGenerated = append(prevGenerated, l)
		} else {
			userLines = append(userLines, l)
		}
	}

	out := &Result{Lines: make([]models.Line, 0, len(lines))}
	byID := make(map[string]*models.Line, len(lines))
	adopt := func(l models.Line) {
		out.Lines = append(out.Lines, l)
		byID[l.ID] = &out.Lines[len(out.Lines)-1]
	}
	for _, l := range userLines {
		adopt(l)
	}

	heading := initialHeading(start, seq, lines)
	cur := start

	out.Sequence = make(models.Sequence, 0, len(seq))
	for _, item := range seq {
		switch it := item.(type) {
		case *models.PathItem:
			line, ok := byID[it.LineID]
			if !ok {
				// The reconciler never propagates dangling references.
				fmt.Printf("[Reconcile] dropping path step for unknown line %q\n", it.LineID)
				continue
			}
			from := cur.Vec()
			heading = exitHeadingDeg(line, from, heading)
			cur = line.EndPoint
			out.Sequence = append(out.Sequence, it.CloneItem())

		case *models.WaitItem:
			out.Sequence = append(out.Sequence, it.CloneItem())

		case *models.RotateItem:
			heading = it.Degrees
			out.Sequence = append(out.Sequence, it.CloneItem())

		case *models.MacroItem:
			data, ok := lib[it.FilePath]
			if !ok {
				next, endPoint, endHeading := salvage(it, prevGenerated, cur, heading, adopt)
				out.Sequence = append(out.Sequence, next)
				cur, heading = endPoint, endHeading
				continue
			}
			// Recursion scope is per top-level macro item: the same
			// macro may appear in sibling placements.
			exp, err := r.expander.Expand(it, cur, heading, data, lib, nil)
			if err != nil {
				return nil, err
			}
			for _, l := range exp.Lines {
				adopt(l)
			}
			out.Sequence = append(out.Sequence, &models.MacroItem{
				ID:              it.ID,
				FilePath:        it.FilePath,
				Transformations: it.Transformations.Clone(),
				Sequence:        exp.Sequence,
				Locked:          it.Locked,
			})
			cur = exp.EndPoint
			heading = exp.EndHeading
		}
	}
	return out, nil
}

// salvage re-adopts previously generated geometry for a macro whose source
// data is unavailable, matching on the instance's namespace prefixes, so a
// transient data-loading failure does not visually delete a placed macro.
func salvage(it *models.MacroItem, prevGenerated []models.Line, cur models.Point, heading float64, adopt func(models.Line)) (models.SequenceItem, models.Point, float64) {
	prefix := "macro-" + it.ID + "-"
	bridgeID := "bridge-" + it.ID

	var salvaged []models.Line
	for _, l := range prevGenerated {
		if l.ID == bridgeID || strings.HasPrefix(l.ID, prefix) {
			salvaged = append(salvaged, l)
		}
	}

	next := it.CloneItem().(*models.MacroItem)
	if len(salvaged) == 0 {
		return next, cur, heading
	}

	fmt.Printf("[Reconcile] macro data %q unavailable, salvaging %d line(s) for instance %s\n", it.FilePath, len(salvaged), it.ID)
	for _, l := range salvaged {
		adopt(l)
	}
	if len(next.Sequence) == 0 {
		// Reconstruct a minimal sequence so the salvaged lines stay
		// executable.
		next.Sequence = make(models.Sequence, 0, len(salvaged))
		for _, l := range salvaged {
			next.Sequence = append(next.Sequence, &models.PathItem{ID: l.ID, LineID: l.ID, Locked: true})
		}
	}

	// Best-effort end state from the last salvaged line.
	last := salvaged[len(salvaged)-1]
	heading = exitHeadingDeg(&last, cur.Vec(), heading)
	return next, last.EndPoint, heading
}

// initialHeading resolves the running heading at the start point. A
// tangential start looks ahead to the first path step's line direction,
// falling back to 0 when none exists.
func initialHeading(start models.Point, seq models.Sequence, lines []models.Line) float64 {
	switch start.Heading {
	case models.HeadingConstant:
		return start.Degrees
	case models.HeadingLinear:
		return start.StartDeg
	}

	byID := make(map[string]*models.Line, len(lines))
	for i := range lines {
		byID[lines[i].ID] = &lines[i]
	}
	for _, item := range seq {
		pi, ok := item.(*models.PathItem)
		if !ok {
			continue
		}
		line, ok := byID[pi.LineID]
		if !ok {
			continue
		}
		t := startTangentDeg(line, start.Vec())
		if start.Reverse {
			t += 180
		}
		return t
	}
	return 0
}
