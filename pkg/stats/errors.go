package stats

import "errors"

var (
	// ErrInsufficientData is returned when a test has too few observations
	ErrInsufficientData = errors.New("insufficient data")

	// ErrDegenerateSeries is returned when a series has zero variance
	ErrDegenerateSeries = errors.New("degenerate series")

	// ErrNonFinite is returned when an input contains NaN or Inf
	ErrNonFinite = errors.New("non-finite value")

	// ErrSingularMatrix is returned when a regression design matrix is rank deficient
	ErrSingularMatrix = errors.New("singular design matrix")
)
