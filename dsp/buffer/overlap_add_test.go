package buffer

import (
	"errors"
	"testing"

	"github.com/cwbudde/voxshift/dsp/core"
)

func TestOverlapAddAccumulates(t *testing.T) {
	o, err := NewOverlapAdd(4)
	if err != nil {
		t.Fatal(err)
	}

	if err := o.Add([]float64{1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}

	out := make([]float64, 2)
	if err := o.Pop(out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 1 || out[1] != 1 {
		t.Fatalf("first pop = %v, want [1 1]", out)
	}

	// Second frame overlaps the remaining half of the first one.
	if err := o.Add([]float64{2, 2, 2, 2}); err != nil {
		t.Fatal(err)
	}
	if err := o.Pop(out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 3 || out[1] != 3 {
		t.Fatalf("second pop = %v, want [3 3]", out)
	}
	if err := o.Pop(out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 2 || out[1] != 2 {
		t.Fatalf("third pop = %v, want [2 2]", out)
	}
	if err := o.Pop(out); err != nil {
		t.Fatal(err)
	}
	if out[0] != 0 || out[1] != 0 {
		t.Fatalf("drained pop = %v, want zeros", out)
	}
}

func TestOverlapAddCapacity(t *testing.T) {
	if _, err := NewOverlapAdd(0); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("NewOverlapAdd(0) error = %v", err)
	}

	o, err := NewOverlapAdd(2)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Add(make([]float64, 3)); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("Add error = %v, want ErrInvalidParameter", err)
	}
	if err := o.Pop(make([]float64, 3)); !errors.Is(err, core.ErrInvalidParameter) {
		t.Fatalf("Pop error = %v, want ErrInvalidParameter", err)
	}
}
