package lri

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/lri/internal/horizontal"
	"github.com/banshee-data/lri/internal/vertical"
)

// Params are the tunable parameters of the estimation. The defaults
// reproduce the behavior the estimator was validated with; the accumulator
// step sizes are the main memory lever (the grid costs 16 bytes per cell
// over roughly (2·MaxOffset/HoughOffsetStep) x (π/HoughAngleStep) cells,
// about half a gigabyte at the defaults).
type Params struct {
	VerticalMaxIterations  int     `json:"vertical_max_iterations"`
	VerticalMaxFitAttempts int     `json:"vertical_max_fit_attempts"`
	MaxOffset              float64 `json:"max_offset"`
	HoughOffsetStep        float64 `json:"hough_offset_step"`
	HoughAngleStep         float64 `json:"hough_angle_step"`
	HorizontalMinPoints    int     `json:"horizontal_min_points"`
	MaxResolution          int     `json:"max_resolution"`
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		VerticalMaxIterations:  vertical.DefaultMaxIterations,
		VerticalMaxFitAttempts: vertical.DefaultMaxFitAttempts,
		MaxOffset:              vertical.DefaultMaxOffset,
		HoughOffsetStep:        vertical.DefaultOffsetStep,
		HoughAngleStep:         vertical.DefaultAngleStep,
		HorizontalMinPoints:    horizontal.DefaultMinPointsPerScanline,
		MaxResolution:          horizontal.DefaultMaxResolution,
	}
}

func (p Params) verticalConfig() vertical.Config {
	return vertical.Config{
		MaxIterations:  p.VerticalMaxIterations,
		MaxFitAttempts: p.VerticalMaxFitAttempts,
		MaxOffset:      p.MaxOffset,
		OffsetStep:     p.HoughOffsetStep,
		AngleStep:      p.HoughAngleStep,
	}
}

func (p Params) horizontalConfig() horizontal.Config {
	return horizontal.Config{
		MinPointsPerScanline: p.HorizontalMinPoints,
		MaxResolution:        p.MaxResolution,
		MaxOffset:            p.MaxOffset,
	}
}

// paramsFile mirrors Params with pointer fields so a partial JSON config
// overrides only the values it names.
type paramsFile struct {
	VerticalMaxIterations  *int     `json:"vertical_max_iterations,omitempty"`
	VerticalMaxFitAttempts *int     `json:"vertical_max_fit_attempts,omitempty"`
	MaxOffset              *float64 `json:"max_offset,omitempty"`
	HoughOffsetStep        *float64 `json:"hough_offset_step,omitempty"`
	HoughAngleStep         *float64 `json:"hough_angle_step,omitempty"`
	HorizontalMinPoints    *int     `json:"horizontal_min_points,omitempty"`
	MaxResolution          *int     `json:"max_resolution,omitempty"`
}

// LoadParams reads a JSON parameter file and applies it over the defaults.
// Fields omitted from the file keep their default values, so partial
// configs are safe.
func LoadParams(path string) (Params, error) {
	params := DefaultParams()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return params, fmt.Errorf("params file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return params, fmt.Errorf("read params file: %w", err)
	}

	var file paramsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return params, fmt.Errorf("parse params file: %w", err)
	}

	if file.VerticalMaxIterations != nil {
		params.VerticalMaxIterations = *file.VerticalMaxIterations
	}
	if file.VerticalMaxFitAttempts != nil {
		params.VerticalMaxFitAttempts = *file.VerticalMaxFitAttempts
	}
	if file.MaxOffset != nil {
		params.MaxOffset = *file.MaxOffset
	}
	if file.HoughOffsetStep != nil {
		params.HoughOffsetStep = *file.HoughOffsetStep
	}
	if file.HoughAngleStep != nil {
		params.HoughAngleStep = *file.HoughAngleStep
	}
	if file.HorizontalMinPoints != nil {
		params.HorizontalMinPoints = *file.HorizontalMinPoints
	}
	if file.MaxResolution != nil {
		params.MaxResolution = *file.MaxResolution
	}

	return params, nil
}
