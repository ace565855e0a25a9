package engine

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/pedro-visualizer/backend/internal/models"
)

func newTestReconciler() *Reconciler {
	return NewReconciler(newTestExpander())
}

func TestUserLinesSurviveUntouched(t *testing.T) {
	user := models.Line{
		ID:       "u1",
		Name:     "Approach",
		Color:    "#FF0000",
		EndPoint: constantPoint(10, 0, 0),
		EventMarkers: []models.EventMarker{
			{Name: "drop", Position: 0.5},
		},
	}
	macro := models.PathData{
		StartPoint: constantPoint(10, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(20, 0, 0)},
		},
	}
	lib := Library{"A.pp": macro}

	seq := models.Sequence{
		&models.PathItem{ID: "u1", LineID: "u1"},
		&models.MacroItem{ID: "m1", FilePath: "A.pp"},
	}

	res, err := newTestReconciler().Reconcile(constantPoint(0, 0, 0), []models.Line{user}, seq, lib)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var found *models.Line
	for i := range res.Lines {
		if res.Lines[i].ID == "u1" {
			found = &res.Lines[i]
		}
	}
	if found == nil {
		t.Fatal("user line dropped")
	}
	if !reflect.DeepEqual(*found, user) {
		t.Errorf("user line changed:\n got %+v\nwant %+v", *found, user)
	}
}

func TestMacroGeometryIsRegeneratedNotCarried(t *testing.T) {
	stale := models.Line{
		ID:             "macro-m1-l1",
		EndPoint:       constantPoint(999, 999, 0),
		IsMacroElement: true,
		MacroID:        "m1",
		Locked:         true,
	}
	macro := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(20, 0, 0)},
		},
	}
	lib := Library{"A.pp": macro}
	seq := models.Sequence{
		&models.MacroItem{ID: "m1", FilePath: "A.pp"},
	}

	res, err := newTestReconciler().Reconcile(constantPoint(0, 0, 0), []models.Line{stale}, seq, lib)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	var count int
	for _, l := range res.Lines {
		if l.ID == "macro-m1-l1" {
			count++
			if l.EndPoint.X == 999 {
				t.Error("stale macro line carried over instead of regenerated")
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one regenerated line, got %d", count)
	}
}

func TestSalvageOnMissingData(t *testing.T) {
	prev := []models.Line{
		{ID: "u1", EndPoint: constantPoint(5, 0, 0)},
		{ID: "bridge-m1", EndPoint: constantPoint(10, 0, 0), IsMacroElement: true, MacroID: "m1", Locked: true},
		{ID: "macro-m1-l1", EndPoint: constantPoint(20, 0, 0), IsMacroElement: true, MacroID: "m1", Locked: true},
		{ID: "macro-other-l1", EndPoint: constantPoint(30, 0, 0), IsMacroElement: true, MacroID: "other", Locked: true},
	}
	seq := models.Sequence{
		&models.PathItem{ID: "u1", LineID: "u1"},
		&models.MacroItem{ID: "m1", FilePath: "gone.pp"},
	}

	res, err := newTestReconciler().Reconcile(constantPoint(0, 0, 0), prev, seq, Library{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	ids := make(map[string]models.Line, len(res.Lines))
	for _, l := range res.Lines {
		ids[l.ID] = l
	}
	if _, ok := ids["bridge-m1"]; !ok {
		t.Error("bridge line not salvaged")
	}
	got, ok := ids["macro-m1-l1"]
	if !ok {
		t.Fatal("macro line not salvaged")
	}
	if got.EndPoint.X != 20 {
		t.Errorf("salvaged line changed: %+v", got)
	}
	if _, ok := ids["macro-other-l1"]; ok {
		t.Error("salvage adopted a line from an unrelated instance")
	}

	mi, ok := res.Sequence[1].(*models.MacroItem)
	if !ok {
		t.Fatalf("macro item missing from sequence: %+v", res.Sequence[1])
	}
	if len(mi.Sequence) != 2 {
		t.Fatalf("reconstructed sequence has %d items, want 2", len(mi.Sequence))
	}
	for i, want := range []string{"bridge-m1", "macro-m1-l1"} {
		pi, ok := mi.Sequence[i].(*models.PathItem)
		if !ok || pi.LineID != want {
			t.Errorf("reconstructed step %d = %+v, want path over %s", i, mi.Sequence[i], want)
		}
	}
}

func TestSalvageKeepsExistingGeneratedSequence(t *testing.T) {
	prev := []models.Line{
		{ID: "macro-m1-l1", EndPoint: constantPoint(20, 0, 0), IsMacroElement: true, MacroID: "m1", Locked: true},
	}
	existing := models.Sequence{
		&models.PathItem{ID: "macro-m1-l1", LineID: "macro-m1-l1", Locked: true},
	}
	seq := models.Sequence{
		&models.MacroItem{ID: "m1", FilePath: "gone.pp", Sequence: existing},
	}

	res, err := newTestReconciler().Reconcile(constantPoint(0, 0, 0), prev, seq, Library{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	mi := res.Sequence[0].(*models.MacroItem)
	if len(mi.Sequence) != 1 {
		t.Errorf("existing generated sequence replaced: %d items", len(mi.Sequence))
	}
}

func TestDanglingPathReferencesAreDropped(t *testing.T) {
	seq := models.Sequence{
		&models.PathItem{ID: "p1", LineID: "no-such-line"},
		&models.WaitItem{ID: "w1", DurationMs: 100},
	}

	res, err := newTestReconciler().Reconcile(constantPoint(0, 0, 0), nil, seq, Library{})
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(res.Sequence) != 1 {
		t.Fatalf("sequence has %d items, want 1", len(res.Sequence))
	}
	if _, ok := res.Sequence[0].(*models.WaitItem); !ok {
		t.Errorf("surviving item is %T, want wait", res.Sequence[0])
	}
}

func TestTangentialStartLooksAheadToFirstPathStep(t *testing.T) {
	// The first path step heads along +x, so the initial heading resolves
	// to 0 and the macro's 0-degree entry needs no alignment. A rotate item
	// would appear if the look-ahead failed and defaulted elsewhere.
	user := models.Line{ID: "u1", EndPoint: models.Point{X: 10, Y: 0, Heading: models.HeadingTangential}}
	macro := models.PathData{
		StartPoint: constantPoint(10, 0, 0),
		Lines: []models.Line{
			{ID: "l1", EndPoint: constantPoint(20, 0, 0)},
		},
	}
	lib := Library{"A.pp": macro}
	start := models.Point{X: 0, Y: 0, Heading: models.HeadingTangential}
	seq := models.Sequence{
		&models.PathItem{ID: "u1", LineID: "u1"},
		&models.MacroItem{ID: "m1", FilePath: "A.pp"},
	}

	res, err := newTestReconciler().Reconcile(start, []models.Line{user}, seq, lib)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	mi := res.Sequence[1].(*models.MacroItem)
	for _, it := range mi.Sequence {
		if rot, ok := it.(*models.RotateItem); ok && strings.Contains(rot.Name, "Align") {
			t.Errorf("unexpected alignment rotation %+v; initial heading did not resolve to 0", rot)
		}
	}
}

func TestRecursionAbortsWholeReconciliation(t *testing.T) {
	a := models.PathData{
		StartPoint: constantPoint(0, 0, 0),
		Sequence:   models.Sequence{&models.MacroItem{ID: "n1", FilePath: "A.pp"}},
	}
	lib := Library{"A.pp": a}
	seq := models.Sequence{
		&models.MacroItem{ID: "m1", FilePath: "A.pp"},
	}

	res, err := newTestReconciler().Reconcile(constantPoint(0, 0, 0), nil, seq, lib)
	var recErr *RecursionError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected RecursionError, got %v", err)
	}
	if res != nil {
		t.Error("partial output returned alongside recursion error")
	}
}
