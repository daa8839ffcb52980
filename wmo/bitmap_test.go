package wmo

import "testing"

func TestBuildBitmapTargets(t *testing.T) {
	eligible := []int{2, 4, 6, 8, 10}
	raw := []byte{'+', '-', '+', '+', '-'}
	bm := buildBitmap(raw, eligible)

	want := []int{2, 6, 8}
	if len(bm.Targets) != len(want) {
		t.Fatalf("got %d targets, want %d", len(bm.Targets), len(want))
	}
	for i := range want {
		if bm.Targets[i] != want[i] {
			t.Errorf("target %d: got %d, want %d", i, bm.Targets[i], want[i])
		}
	}
}

func TestBitmapCursor(t *testing.T) {
	bm := buildBitmap([]byte{'+', '+'}, []int{0, 1})
	if bm.Done() {
		t.Fatalf("bitmap reported done before any Next")
	}
	if pos := bm.Next(); pos != 0 {
		t.Errorf("first Next() = %d, want 0", pos)
	}
	if bm.Done() {
		t.Fatalf("bitmap reported done after only one Next")
	}
	if pos := bm.Next(); pos != 1 {
		t.Errorf("second Next() = %d, want 1", pos)
	}
	if !bm.Done() {
		t.Errorf("bitmap not done after consuming all targets")
	}
}

func TestBitmapCursorPastEndPanics(t *testing.T) {
	bm := buildBitmap([]byte{'+'}, []int{0})
	bm.Next()
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic advancing cursor past end")
		}
	}()
	bm.Next()
}

func TestBuildBitmapTooManyEntriesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic when bitmap exceeds eligible count")
		}
	}()
	buildBitmap([]byte{'+', '+', '+'}, []int{0, 1})
}
