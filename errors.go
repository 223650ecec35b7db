package lri

import (
	"errors"

	"github.com/banshee-data/lri/internal/geom"
)

// Input validation failures. Compare with errors.Is.
var (
	// ErrMismatchedSizes means the x, y, z arrays differ in length.
	ErrMismatchedSizes = geom.ErrMismatchedSizes
	// ErrEmptyPointCloud means the cloud has no points.
	ErrEmptyPointCloud = geom.ErrEmptyPointCloud
	// ErrRangesXyZero means some point sits on the sensor axis (x²+y² = 0).
	ErrRangesXyZero = geom.ErrRangesXyZero
)

// ErrInternal wraps a lower-level invariant violation caught at the public
// boundary; the wrapped message carries the underlying fault.
var ErrInternal = errors.New("internal error")
