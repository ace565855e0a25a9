package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pedro-visualizer/backend/internal/models"
)

func newTestExpander() *Expander {
	return NewExpander(fieldResolver())
}

func constantPoint(x, y, deg float64) models.Point {
	return models.Point{X: x, Y: y, Heading: models.HeadingConstant, Degrees: deg}
}

func TestBridgeCreation(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(50, 50, 90),
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(exp.Lines) != 1 {
		t.Fatalf("expected exactly one bridge line, got %d", len(exp.Lines))
	}
	bridge := exp.Lines[0]
	if bridge.ID != "bridge-m1" {
		t.Errorf("bridge id = %q, want bridge-m1", bridge.ID)
	}
	end := bridge.EndPoint
	if end.X != 50 || end.Y != 50 || end.Heading != models.HeadingConstant || end.Degrees != 90 {
		t.Errorf("bridge end = %+v, want (50,50) constant 90", end)
	}
	if !bridge.IsMacroElement || !end.IsMacroElement {
		t.Error("bridge not tagged as macro element")
	}
	if !bridge.Locked || bridge.MacroID != "m1" {
		t.Errorf("bridge provenance wrong: locked=%v macroId=%q", bridge.Locked, bridge.MacroID)
	}

	if len(exp.Sequence) != 1 {
		t.Fatalf("expected one sequence item, got %d", len(exp.Sequence))
	}
	pi, ok := exp.Sequence[0].(*models.PathItem)
	if !ok || pi.LineID != "bridge-m1" {
		t.Errorf("sequence item = %+v, want path step over bridge-m1", exp.Sequence[0])
	}
	if exp.EndHeading != 90 {
		t.Errorf("end heading = %v, want 90", exp.EndHeading)
	}
}

func TestBridgeSuppression(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(50, 50, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(60, 50, 0)},
		},
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(50.05, 50, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(exp.Lines) != 1 {
		t.Fatalf("expected only the macro's line, got %d lines", len(exp.Lines))
	}
	if exp.Lines[0].ID != "macro-m1-l1" {
		t.Errorf("first generated line = %q, want macro-m1-l1", exp.Lines[0].ID)
	}
}

func TestInstanceNamespacing(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{
				ID:            "l1",
				EndPoint:      constantPoint(10, 0, 0),
				ControlPoints: []models.Point{constantPoint(5, 1, 0)},
			},
		},
		Sequence: models.Sequence{
			&models.PathItem{ID: "l1", LineID: "l1"},
			&models.WaitItem{ID: "w1", Name: "Drop", DurationMs: 500},
		},
	}
	ref := &models.MacroItem{ID: "inst", FilePath: "A.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	line := exp.Lines[0]
	if line.ID != "macro-inst-l1" || line.OriginalID != "l1" {
		t.Errorf("line id/originalId = %q/%q", line.ID, line.OriginalID)
	}
	if !line.Locked || !line.IsMacroElement || line.MacroID != "inst" {
		t.Errorf("line provenance wrong: %+v", line)
	}
	if !line.EndPoint.Locked || !line.ControlPoints[0].Locked {
		t.Error("line points not locked")
	}

	var wait *models.WaitItem
	for _, it := range exp.Sequence {
		if w, ok := it.(*models.WaitItem); ok {
			wait = w
		}
	}
	if wait == nil {
		t.Fatal("wait item missing from expanded sequence")
	}
	if wait.ID != "macro-inst-w1" || !wait.Locked {
		t.Errorf("wait item = %+v", wait)
	}
	if wait.DurationMs != 500 || wait.Name != "Drop" {
		t.Errorf("wait item content changed: %+v", wait)
	}
}

func TestIDLessLinesAreStillDriven(t *testing.T) {
	// No line ids and no sequence: ids are generated and the line-order
	// implied sequence is re-expressed against them.
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{EndPoint: constantPoint(10, 0, 0)},
			{EndPoint: constantPoint(20, 0, 0)},
		},
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	if len(exp.Lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(exp.Lines))
	}
	var steps []*models.PathItem
	for _, it := range exp.Sequence {
		if pi, ok := it.(*models.PathItem); ok {
			steps = append(steps, pi)
		}
	}
	if len(steps) != 2 {
		t.Fatalf("got %d path steps over the id-less lines, want 2", len(steps))
	}
	for i, pi := range steps {
		if pi.LineID != exp.Lines[i].ID {
			t.Errorf("step %d drives %q, want %q", i, pi.LineID, exp.Lines[i].ID)
		}
		if !strings.HasPrefix(pi.LineID, "macro-m1-") {
			t.Errorf("step %d line id %q not namespaced", i, pi.LineID)
		}
		if exp.Lines[i].OriginalID == "" {
			t.Errorf("line %d has no generated original id", i)
		}
	}
	if exp.EndPoint.X != 20 || exp.EndPoint.Y != 0 {
		t.Errorf("end point = (%v,%v), want (20,0)", exp.EndPoint.X, exp.EndPoint.Y)
	}
}

func TestAlignRotationInsertion(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(10, 10, 45)},
		},
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	// Running heading 0, required entry heading 45: one alignment rotation.
	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(exp.Sequence) != 2 {
		t.Fatalf("expected [rotate, path], got %d items", len(exp.Sequence))
	}
	rot, ok := exp.Sequence[0].(*models.RotateItem)
	if !ok {
		t.Fatalf("first item is %T, want rotate", exp.Sequence[0])
	}
	if rot.Degrees != 45 || rot.Name != "Align Rotation" || !rot.Locked {
		t.Errorf("alignment rotation = %+v", rot)
	}
	if _, ok := exp.Sequence[1].(*models.PathItem); !ok {
		t.Errorf("second item is %T, want path", exp.Sequence[1])
	}

	// Running heading already within epsilon: no insertion.
	exp, err = newTestExpander().Expand(ref, constantPoint(0, 0, 45), 45, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(exp.Sequence) != 1 {
		t.Fatalf("expected [path] only, got %d items", len(exp.Sequence))
	}
}

func TestAlignRotationUnwrapsSpuriousTurns(t *testing.T) {
	// Entry requires 350 with the running heading at 0. Unwrapped, that is
	// a -10 degree turn, not a 350 degree one.
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(10, 0, 350)},
		},
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	rot, ok := exp.Sequence[0].(*models.RotateItem)
	if !ok {
		t.Fatalf("first item is %T, want rotate", exp.Sequence[0])
	}
	if rot.Degrees != -10 {
		t.Errorf("alignment degrees = %v, want -10", rot.Degrees)
	}
}

func TestCycleDetectionSelf(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Sequence: models.Sequence{
			&models.MacroItem{ID: "n1", FilePath: "A.pp"},
		},
	}
	lib := Library{"A.pp": macro}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	_, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, lib, nil)
	var recErr *RecursionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecursionError, got %v", err)
	}
	if recErr.FilePath != "A.pp" {
		t.Errorf("recursion file = %q, want A.pp", recErr.FilePath)
	}
	if !reflect.DeepEqual(recErr.Chain, []string{"A.pp", "A.pp"}) {
		t.Errorf("chain = %v, want [A.pp A.pp]", recErr.Chain)
	}
}

func TestCycleDetectionMutual(t *testing.T) {
	a := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Sequence:   models.Sequence{&models.MacroItem{ID: "nb", FilePath: "B.pp"}},
	}
	b := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Sequence:   models.Sequence{&models.MacroItem{ID: "na", FilePath: "A.pp"}},
	}
	lib := Library{"A.pp": a, "B.pp": b}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	_, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, a, lib, nil)
	var recErr *RecursionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecursionError, got %v", err)
	}
	// The chain reports the branch in expansion order, not sorted.
	if !reflect.DeepEqual(recErr.Chain, []string{"A.pp", "B.pp", "A.pp"}) {
		t.Errorf("chain = %v, want [A.pp B.pp A.pp]", recErr.Chain)
	}
}

func TestSiblingPlacementsAreNotACycle(t *testing.T) {
	leaf := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(1, 0, 0)},
		},
	}
	parent := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Sequence: models.Sequence{
			&models.MacroItem{ID: "c1", FilePath: "A.pp"},
			&models.MacroItem{ID: "c2", FilePath: "A.pp"},
		},
	}
	lib := Library{"A.pp": leaf, "P.pp": parent}
	ref := &models.MacroItem{ID: "p", FilePath: "P.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, parent, lib, nil)
	if err != nil {
		t.Fatalf("sibling placements raised: %v", err)
	}

	var nested int
	for _, it := range exp.Sequence {
		if mi, ok := it.(*models.MacroItem); ok {
			nested++
			if len(mi.Sequence) == 0 {
				t.Errorf("sibling %s not expanded", mi.ID)
			}
			if !mi.Locked {
				t.Errorf("expanded nested item %s not locked", mi.ID)
			}
		}
	}
	if nested != 2 {
		t.Errorf("expected 2 nested macro items, got %d", nested)
	}
}

func TestNestedTransformsChildFirstParentAfter(t *testing.T) {
	// Child translates itself by (1,0); the parent frame shifts everything
	// by (0,10). The nested start must land at (1,10).
	leaf := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(1, 0, 0)},
		},
	}
	parent := models.PathData{
		StartPoint: constantPoint(0, 10, 0),
		Sequence: models.Sequence{
			&models.MacroItem{
				ID:       "c1",
				FilePath: "A.pp",
				Transformations: models.Transforms{
					models.TranslateTransform{Dx: 1, Dy: 0},
				},
			},
		},
	}
	lib := Library{"A.pp": leaf}
	ref := &models.MacroItem{
		ID:       "p",
		FilePath: "P.pp",
		Transformations: models.Transforms{
			models.TranslateTransform{Dx: 0, Dy: 10},
		},
	}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 10, 0), 0, parent, lib, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	var nestedLine *models.Line
	for i := range exp.Lines {
		if exp.Lines[i].MacroID == "c1" && exp.Lines[i].OriginalID == "l1" {
			nestedLine = &exp.Lines[i]
		}
	}
	if nestedLine == nil {
		t.Fatal("nested macro line missing")
	}
	if nestedLine.EndPoint.X != 2 || nestedLine.EndPoint.Y != 10 {
		t.Errorf("nested end = (%v,%v), want (2,10)", nestedLine.EndPoint.X, nestedLine.EndPoint.Y)
	}
}

func TestNestedMissingDataKeptAsPlaceholder(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Sequence: models.Sequence{
			&models.MacroItem{ID: "n1", FilePath: "missing.pp"},
		},
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	exp, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	if len(exp.Lines) != 0 {
		t.Errorf("placeholder fabricated %d line(s)", len(exp.Lines))
	}
	mi, ok := exp.Sequence[0].(*models.MacroItem)
	if !ok || mi.FilePath != "missing.pp" {
		t.Fatalf("placeholder missing: %+v", exp.Sequence[0])
	}
	if len(mi.Sequence) != 0 {
		t.Errorf("placeholder gained generated children: %d", len(mi.Sequence))
	}
}

func TestExpansionIsDeterministicForNamedLines(t *testing.T) {
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(10, 0, 0)},
			{ID: "l2", EndPoint: constantPoint(20, 0, 0)},
		},
	}
	ref := &models.MacroItem{ID: "m1", FilePath: "A.pp"}

	first, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	second, err := newTestExpander().Expand(ref, constantPoint(0, 0, 0), 0, macro, Library{}, nil)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}

	for i := range first.Lines {
		if first.Lines[i].ID != second.Lines[i].ID {
			t.Errorf("line %d id differs across runs: %q vs %q", i, first.Lines[i].ID, second.Lines[i].ID)
		}
		if !strings.HasPrefix(first.Lines[i].ID, "macro-m1-") {
			t.Errorf("line id %q not namespaced", first.Lines[i].ID)
		}
	}
}
