package vertical

import (
	"math"
	"math/rand"
	"testing"

	"github.com/banshee-data/lri/internal/geom"
	"github.com/banshee-data/lri/internal/monitoring"
	"github.com/google/go-cmp/cmp"
)

func init() {
	monitoring.SetLogger(nil)
}

// testConfig keeps the accumulator small enough for unit tests; the
// properties under test do not depend on the production step sizes.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.OffsetStep = 5e-3
	cfg.AngleStep = 1e-3
	return cfg
}

// coordGrid is the Cartesian quantization of the synthetic clouds. The
// error-bound machinery derives its per-point envelopes from this grid, so
// the fixtures mimic a real sensor: coordinates quantized, elevation noise
// well inside the quantization.
const coordGrid = 5e-3

func quantize(v float64) float64 {
	return math.Round(v/coordGrid) * coordGrid
}

// appendCone adds n points of the cone phi = angle + asin(offset/r) with
// Gaussian elevation noise of the given sigma, coordinates snapped to the
// sensor grid.
func appendCone(x, y, z []float64, rng *rand.Rand, offset, angle float64, n int, sigma float64) ([]float64, []float64, []float64) {
	for i := 0; i < n; i++ {
		r := 5.0 + 10.0*rng.Float64()
		theta := 2 * math.Pi * rng.Float64()
		phi := angle + math.Asin(offset/r) + sigma*rng.NormFloat64()
		rXy := r * math.Cos(phi)
		x = append(x, quantize(rXy*math.Cos(theta)))
		y = append(y, quantize(rXy*math.Sin(theta)))
		z = append(z, quantize(r*math.Sin(phi)))
	}
	return x, y, z
}

func mustPoints(t *testing.T, x, y, z []float64) *geom.PointArray {
	t.Helper()
	p, err := geom.NewPointArray(x, y, z)
	if err != nil {
		t.Fatalf("NewPointArray: %v", err)
	}
	return p
}

// checkInvariants asserts the structural properties every estimation result
// must satisfy: completeness, dense sorted ids, CI monotonicity.
func checkInvariants(t *testing.T, res Result) {
	t.Helper()

	counts := make(map[int]int)
	unassigned := 0
	for _, id := range res.PointScanlineIDs {
		if id < 0 {
			unassigned++
			continue
		}
		if id >= len(res.Scanlines) {
			t.Fatalf("assignment id %d out of range (%d scanlines)", id, len(res.Scanlines))
		}
		counts[id]++
	}

	if unassigned != res.UnassignedPoints {
		t.Errorf("unassigned count = %d, result says %d", unassigned, res.UnassignedPoints)
	}

	total := unassigned
	for _, c := range counts {
		total += c
	}
	if total != res.PointsCount {
		t.Errorf("assignment completeness: %d accounted, %d points", total, res.PointsCount)
	}

	for i, s := range res.Scanlines {
		if s.ID != i {
			t.Errorf("scanline %d has id %d, want dense ids", i, s.ID)
		}
		if i > 0 && res.Scanlines[i-1].Angle.Value > s.Angle.Value {
			t.Errorf("scanlines not sorted by angle at index %d", i)
		}
		if !s.Heuristic {
			if !(s.Offset.CI.Lower <= s.Offset.Value && s.Offset.Value <= s.Offset.CI.Upper) {
				t.Errorf("scanline %d offset CI %+v does not contain value %v", i, s.Offset.CI, s.Offset.Value)
			}
			if !(s.Angle.CI.Lower <= s.Angle.Value && s.Angle.Value <= s.Angle.CI.Upper) {
				t.Errorf("scanline %d angle CI %+v does not contain value %v", i, s.Angle.CI, s.Angle.Value)
			}
		}
		if s.PointsCount != counts[i] {
			t.Errorf("scanline %d records %d points, assignments say %d", i, s.PointsCount, counts[i])
		}
	}
}

func TestEstimateSingleScanline(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	x, y, z := appendCone(nil, nil, nil, rng, 0, -0.1, 1024, 1e-4)
	points := mustPoints(t, x, y, z)

	res := Estimate(points, testConfig())
	checkInvariants(t, res)

	if len(res.Scanlines) != 1 {
		t.Fatalf("scanlines = %d, want 1", len(res.Scanlines))
	}
	if res.EndReason != AllAssigned {
		t.Errorf("end reason = %v, want AllAssigned", res.EndReason)
	}

	s := res.Scanlines[0]
	if math.Abs(s.Angle.Value+0.1) > 1e-3 {
		t.Errorf("angle = %v, want ~-0.1", s.Angle.Value)
	}
	if s.Offset.CI.Lower > 1e-3 || s.Offset.CI.Upper < -1e-3 {
		t.Errorf("offset CI %+v should bracket the true offset 0", s.Offset.CI)
	}
}

func TestEstimateTwoScanlines(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x, y, z := appendCone(nil, nil, nil, rng, 0, 0.1, 512, 1e-4)
	x, y, z = appendCone(x, y, z, rng, 0, -0.1, 512, 1e-4)
	points := mustPoints(t, x, y, z)

	res := Estimate(points, testConfig())
	checkInvariants(t, res)

	if len(res.Scanlines) != 2 {
		t.Fatalf("scanlines = %d, want 2", len(res.Scanlines))
	}
	if math.Abs(res.Scanlines[0].Angle.Value+0.1) > 1e-3 {
		t.Errorf("first angle = %v, want ~-0.1 (sorted ascending)", res.Scanlines[0].Angle.Value)
	}
	if math.Abs(res.Scanlines[1].Angle.Value-0.1) > 1e-3 {
		t.Errorf("second angle = %v, want ~0.1", res.Scanlines[1].Angle.Value)
	}
}

func TestEstimateOverlappingScanlinesStayDisjoint(t *testing.T) {
	// Two closely spaced lines plus a weak scattering of points between
	// them. Whatever the resolver decides, no two scanlines may share a
	// point and every accepted scanline keeps a monotone CI.
	rng := rand.New(rand.NewSource(3))
	x, y, z := appendCone(nil, nil, nil, rng, 0, 0.00, 400, 1e-4)
	x, y, z = appendCone(x, y, z, rng, 0, 0.02, 400, 1e-4)
	x, y, z = appendCone(x, y, z, rng, 0, 0.01, 40, 2e-3)
	points := mustPoints(t, x, y, z)

	res := Estimate(points, testConfig())
	checkInvariants(t, res)

	if len(res.Scanlines) < 2 {
		t.Errorf("scanlines = %d, want at least the two strong lines", len(res.Scanlines))
	}
}

func TestEstimateDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x, y, z := appendCone(nil, nil, nil, rng, 0.05, 0.05, 300, 1e-4)
	x, y, z = appendCone(x, y, z, rng, -0.05, -0.05, 300, 1e-4)
	points := mustPoints(t, x, y, z)

	first := Estimate(points, testConfig())
	second := Estimate(points, testConfig())

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("estimation not deterministic (-first +second):\n%s", diff)
	}
}

func TestEndReasonString(t *testing.T) {
	if AllAssigned.String() == "" || MaxIterations.String() == "" || NoMorePeaks.String() == "" {
		t.Error("end reasons must have string forms")
	}
}
