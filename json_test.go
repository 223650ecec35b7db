package lri

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sampleIntrinsics() Intrinsics {
	return Intrinsics{Scanlines: []Scanline{
		{VerticalOffset: 0.0379166529343233, VerticalAngle: -0.453785605430002, HorizontalOffset: 0.0253, AzimuthalOffset: 0.00030679615757712823, Resolution: 2048},
		{VerticalOffset: -0.0379166529, VerticalAngle: 0.1234567890123456789, HorizontalOffset: -0.0253, AzimuthalOffset: 0.0006135923151542565, Resolution: 1024},
		{VerticalOffset: 1e-17, VerticalAngle: math.Pi / 7, HorizontalOffset: 0, AzimuthalOffset: 0, Resolution: 0},
	}}
}

func TestIntrinsicsJSONRoundTrip(t *testing.T) {
	original := sampleIntrinsics()

	for _, indent := range []int{-1, 0, 2, 4} {
		s, err := IntrinsicsToJSONString(original, indent)
		if err != nil {
			t.Fatalf("to json (indent %d): %v", indent, err)
		}

		parsed, err := IntrinsicsFromJSONString(s)
		if err != nil {
			t.Fatalf("from json (indent %d): %v", indent, err)
		}

		if diff := cmp.Diff(original, parsed); diff != "" {
			t.Errorf("round trip (indent %d) not bit-exact (-original +parsed):\n%s", indent, diff)
		}
	}
}

func TestIntrinsicsJSONSchema(t *testing.T) {
	s, err := IntrinsicsToJSONString(sampleIntrinsics(), -1)
	if err != nil {
		t.Fatalf("to json: %v", err)
	}

	for _, key := range []string{`"scanlines"`, `"verticalOffset"`, `"verticalAngle"`, `"horizontalOffset"`, `"azimuthalOffset"`, `"resolution"`} {
		if !strings.Contains(s, key) {
			t.Errorf("serialized intrinsics missing key %s", key)
		}
	}
}

func TestIntrinsicsJSONCompactVsIndented(t *testing.T) {
	compact, err := IntrinsicsToJSONString(sampleIntrinsics(), -1)
	if err != nil {
		t.Fatalf("compact: %v", err)
	}
	if strings.Contains(compact, "\n") {
		t.Error("compact output should not contain newlines")
	}

	indented, err := IntrinsicsToJSONString(sampleIntrinsics(), 4)
	if err != nil {
		t.Fatalf("indented: %v", err)
	}
	if !strings.Contains(indented, "\n    ") {
		t.Error("indented output should contain 4-space indentation")
	}
}

func TestIntrinsicsJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intrinsics.json")
	original := sampleIntrinsics()

	if err := IntrinsicsToJSONFile(original, path, 2); err != nil {
		t.Fatalf("to file: %v", err)
	}

	parsed, err := IntrinsicsFromJSONFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}

	if diff := cmp.Diff(original, parsed); diff != "" {
		t.Errorf("file round trip not bit-exact (-original +parsed):\n%s", diff)
	}
}

func TestIntrinsicsFromJSONStringInvalid(t *testing.T) {
	if _, err := IntrinsicsFromJSONString("{not json"); err == nil {
		t.Error("invalid JSON should fail")
	}
	if _, err := IntrinsicsFromJSONFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLoadParamsPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	if err := os.WriteFile(path, []byte(`{"hough_offset_step": 0.01, "max_resolution": 4096}`), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	params, err := LoadParams(path)
	if err != nil {
		t.Fatalf("LoadParams: %v", err)
	}

	if params.HoughOffsetStep != 0.01 {
		t.Errorf("HoughOffsetStep = %v, want 0.01", params.HoughOffsetStep)
	}
	if params.MaxResolution != 4096 {
		t.Errorf("MaxResolution = %v, want 4096", params.MaxResolution)
	}

	defaults := DefaultParams()
	if params.VerticalMaxIterations != defaults.VerticalMaxIterations {
		t.Errorf("VerticalMaxIterations = %v, want default %v", params.VerticalMaxIterations, defaults.VerticalMaxIterations)
	}
	if params.HoughAngleStep != defaults.HoughAngleStep {
		t.Errorf("HoughAngleStep = %v, want default %v", params.HoughAngleStep, defaults.HoughAngleStep)
	}
}

func TestLoadParamsRejectsNonJSON(t *testing.T) {
	if _, err := LoadParams("params.yaml"); err == nil {
		t.Error("non-json extension should fail")
	}
}
