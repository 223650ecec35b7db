package geom

import (
	"errors"
	"math"
	"testing"
)

func TestNewPointArrayValidation(t *testing.T) {
	_, err := NewPointArray([]float64{1, 2}, []float64{1}, []float64{1, 2})
	if !errors.Is(err, ErrMismatchedSizes) {
		t.Errorf("mismatched sizes: got %v, want ErrMismatchedSizes", err)
	}

	_, err = NewPointArray(nil, nil, nil)
	if !errors.Is(err, ErrEmptyPointCloud) {
		t.Errorf("empty cloud: got %v, want ErrEmptyPointCloud", err)
	}

	_, err = NewPointArray([]float64{0}, []float64{0}, []float64{1})
	if !errors.Is(err, ErrRangesXyZero) {
		t.Errorf("zero xy range: got %v, want ErrRangesXyZero", err)
	}
}

func TestNewPointArrayPolarFields(t *testing.T) {
	// A point at (3, 4, 12): rangeXy = 5, range = 13.
	p, err := NewPointArray([]float64{3}, []float64{4}, []float64{12})
	if err != nil {
		t.Fatalf("NewPointArray: %v", err)
	}

	if math.Abs(p.RangeXy[0]-5) > 1e-12 {
		t.Errorf("rangeXy = %v, want 5", p.RangeXy[0])
	}
	if math.Abs(p.Range[0]-13) > 1e-12 {
		t.Errorf("range = %v, want 13", p.Range[0])
	}
	if math.Abs(p.Phi[0]-math.Asin(12.0/13.0)) > 1e-12 {
		t.Errorf("phi = %v, want asin(12/13)", p.Phi[0])
	}
	if math.Abs(p.Theta[0]-math.Atan2(4, 3)) > 1e-12 {
		t.Errorf("theta = %v, want atan2(4,3)", p.Theta[0])
	}
	if math.Abs(p.InvRange[0]*13-1) > 1e-12 {
		t.Errorf("invRange = %v, want 1/13", p.InvRange[0])
	}
	if p.MinRange != 13 || p.MaxRange != 13 {
		t.Errorf("min/max range = %v/%v, want 13/13", p.MinRange, p.MaxRange)
	}
}

func TestCoordsEpsQuantized(t *testing.T) {
	// Coordinates on a 0.01 grid: the inferred quantization must not exceed
	// the grid pitch and must stay above the hard floor.
	x := []float64{1.00, 1.02, 1.05}
	y := []float64{2.00, 2.01, 2.03}
	z := []float64{0.10, 0.12, 0.17}

	p, err := NewPointArray(x, y, z)
	if err != nil {
		t.Fatalf("NewPointArray: %v", err)
	}

	if p.CoordsEps > 0.011 {
		t.Errorf("coordsEps = %v, want <= grid pitch 0.01", p.CoordsEps)
	}
	if p.CoordsEps < 1e-6 {
		t.Errorf("coordsEps = %v, below floor", p.CoordsEps)
	}
}

func TestCoordsEpsFloor(t *testing.T) {
	// Identical coordinates leave no positive difference; the floor applies.
	p, err := NewPointArray([]float64{1, 1}, []float64{1, 1}, []float64{1, 1})
	if err != nil {
		t.Fatalf("NewPointArray: %v", err)
	}
	if p.CoordsEps != 1e-6 {
		t.Errorf("coordsEps = %v, want floor 1e-6", p.CoordsEps)
	}
}
