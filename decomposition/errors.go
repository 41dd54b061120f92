package decomposition

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMethod is returned for an unrecognized algorithm name.
	ErrInvalidMethod = errors.New("invalid decomposition method")
	// ErrInvalidModeCount is returned when the mode count cannot be honored.
	ErrInvalidModeCount = errors.New("invalid mode count")
	// ErrNumericalFailure is returned when a factorization fails or the
	// data is degenerate (e.g. all zero).
	ErrNumericalFailure = errors.New("numerical failure")
	// ErrInvalidTimeStep is returned for a non-positive DMD sampling interval.
	ErrInvalidTimeStep = errors.New("invalid time step")
	// ErrIndexRange is returned for out of range snapshot, mode or energy indices.
	ErrIndexRange = errors.New("index out of range")
	// ErrInvalidBand is returned when a frequency band has f1 > f2.
	ErrInvalidBand = errors.New("invalid frequency band")
)

// Method selects the algorithm variant used to compute a decomposition.
type Method string

const (
	// MethodSnapshot works on the snapshots × snapshots correlation matrix.
	// Cheaper when elements ≫ snapshots².
	MethodSnapshot Method = "snap"
	// MethodDirect works on the elements × elements covariance (POD) or
	// directly on the snapshot matrix through an SVD (DMD).
	MethodDirect Method = "direct"
)

// ParseMethod converts a method name into a Method. The empty string
// selects MethodSnapshot.
func ParseMethod(s string) (Method, error) {
	m := Method(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m.orDefault(), nil
}

// Validate reports ErrInvalidMethod for anything other than "snap",
// "direct" or the empty default.
func (m Method) Validate() error {
	switch m {
	case "", MethodSnapshot, MethodDirect:
		return nil
	}
	return fmt.Errorf("%q is not valid, use %q or %q: %w",
		string(m), MethodSnapshot, MethodDirect, ErrInvalidMethod)
}

func (m Method) orDefault() Method {
	if m == "" {
		return MethodSnapshot
	}
	return m
}
