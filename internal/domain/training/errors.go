package training

import "errors"

// Sentinel errors. Configuration and data errors are fatal: they abort
// the run before training, with no retries.
var (
	// ErrBadDimensions indicates a grid with fewer than 2 rows or columns.
	ErrBadDimensions = errors.New("grid must have at least 2 rows and 2 columns")

	// ErrDataFormat indicates a truncated, mis-sized or otherwise
	// malformed candidate stream or weight file.
	ErrDataFormat = errors.New("malformed data")

	// ErrWeightCountMismatch indicates a weight vector whose length does
	// not match the required weight count.
	ErrWeightCountMismatch = errors.New("weight count mismatch")

	// ErrPoolStart indicates a worker failed to start.
	ErrPoolStart = errors.New("worker pool failed to start")
)
