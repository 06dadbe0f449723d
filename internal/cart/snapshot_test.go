package cart

import (
	"testing"
	"time"
)

func TestSnapshotFromRemoteMergesDuplicates(t *testing.T) {
	t.Parallel()

	snap := snapshotFromRemote([]RemoteLine{
		{ID: "a", ProductID: 1, Quantity: 1, UnitPrice: money("2"), Available: true},
		{ID: "b", ProductID: 1, Quantity: 2, UnitPrice: money("2"), Available: true},
		{ProductID: 2, Quantity: 1, UnitPrice: money("3"), Available: false},
	}, time.Now())

	if len(snap.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(snap.Lines))
	}
	if snap.Lines[0].Quantity != 3 || snap.Lines[0].ID != "a" {
		t.Fatalf("expected merged first line, got %+v", snap.Lines[0])
	}
	if snap.Lines[1].ID != "product-2" {
		t.Fatalf("expected synthesized id, got %q", snap.Lines[1].ID)
	}
	if !snap.SelectAll {
		t.Fatal("expected server lines to start selected")
	}
	assertInvariants(t, snap)
}

func TestSnapshotEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	in := Snapshot{Lines: []Line{
		{ID: "local-1", ProductID: 4, Quantity: 2, UnitPrice: money("0"), Available: true, Selected: true, Local: true},
		{ID: "9", ProductID: 5, Quantity: 1, UnitPrice: money("12.34"), Available: true, Selected: false},
	}}
	in.recompute()

	raw, err := encodeSnapshot(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(out.Lines))
	}
	for i := range in.Lines {
		a, b := in.Lines[i], out.Lines[i]
		if a.ID != b.ID || a.ProductID != b.ProductID || a.Quantity != b.Quantity ||
			!a.UnitPrice.Equal(b.UnitPrice) || a.Selected != b.Selected || a.Local != b.Local {
			t.Fatalf("line %d changed: %+v vs %+v", i, a, b)
		}
	}
	assertInvariants(t, out)
}

func TestDecodeSnapshotRepairsInvariants(t *testing.T) {
	t.Parallel()

	raw := `{"lines":[
		{"id":"x","productId":1,"quantity":1,"unitPrice":"2","subtotal":"999","available":true,"selected":true},
		{"id":"y","productId":1,"quantity":2,"unitPrice":"2","subtotal":"0","available":true,"selected":true},
		{"id":"z","productId":3,"quantity":0,"unitPrice":"2","available":true,"selected":true}
	],"selectAll":false}`

	snap, err := decodeSnapshot(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Lines) != 1 || snap.Lines[0].Quantity != 3 {
		t.Fatalf("expected one merged line of quantity 3, got %+v", snap.Lines)
	}
	if !snap.Lines[0].Subtotal.Equal(money("6")) {
		t.Fatalf("expected recomputed subtotal 6, got %s", snap.Lines[0].Subtotal)
	}
	assertInvariants(t, snap)
}

func TestDecodeSnapshotRejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := decodeSnapshot("{not json"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	t.Parallel()

	in := Snapshot{Lines: []Line{{ProductID: 1, Quantity: 1, UnitPrice: money("1"), Selected: true}}}
	out := in.Clone()
	out.Lines[0].Quantity = 5
	if in.Lines[0].Quantity != 1 {
		t.Fatal("clone shares line storage with the original")
	}
	if empty := (Snapshot{}).Clone(); empty.Lines == nil {
		t.Fatal("expected non-nil lines on cloned empty snapshot")
	}
}

func TestPlanReconcile(t *testing.T) {
	t.Parallel()

	local := []Line{{ProductID: 1}, {ProductID: 2}, {ProductID: 3}}
	remote := []RemoteLine{{ProductID: 2}, {ProductID: 4}, {ProductID: 4}, {ProductID: 5}}

	plan := planReconcile(local, remote)
	if ids := lineIDs(plan.toPush); len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("unexpected push set %v", ids)
	}
	if len(plan.toPull) != 2 || plan.toPull[0].ProductID != 4 || plan.toPull[1].ProductID != 5 {
		t.Fatalf("unexpected pull set %+v", plan.toPull)
	}
	if len(plan.confirmed) != 1 || plan.confirmed[0].ProductID != 2 {
		t.Fatalf("unexpected confirmed set %+v", plan.confirmed)
	}
}

func TestMergeReconciledKeepsLocalForm(t *testing.T) {
	t.Parallel()

	current := Snapshot{Lines: []Line{
		{ProductID: 1, Quantity: 2, UnitPrice: money("0"), Selected: false, Local: true},
		{ProductID: 2, Quantity: 1, UnitPrice: money("4"), Selected: true, Local: true},
	}}
	accepted := map[int64]struct{}{1: {}}
	pulled := []RemoteLine{{ProductID: 2, Quantity: 9}, {ProductID: 3, Quantity: 1, UnitPrice: money("1"), Available: true}}

	merged, added := mergeReconciled(current, accepted, pulled)
	if added != 1 || len(merged.Lines) != 3 {
		t.Fatalf("expected one pulled line, got added=%d lines=%d", added, len(merged.Lines))
	}
	if merged.Lines[0].Local || merged.Lines[0].Quantity != 2 || merged.Lines[0].Selected {
		t.Fatalf("expected accepted line in local form with Local cleared, got %+v", merged.Lines[0])
	}
	if !merged.Lines[1].Local || merged.Lines[1].Quantity != 1 {
		t.Fatalf("expected unaccepted line untouched, got %+v", merged.Lines[1])
	}
	assertInvariants(t, merged)
}

func lineIDs(lines []Line) []int64 {
	out := make([]int64, 0, len(lines))
	for _, l := range lines {
		out = append(out, l.ProductID)
	}
	return out
}
