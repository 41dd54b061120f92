package decomposition

import (
	"fmt"
	"math"

	"github.com/notargets/flowmodes/logging"
	"gonum.org/v1/gonum/mat"
)

// PODOptions configures DecomposePOD.
type PODOptions struct {
	ModeCount    int
	Method       Method
	SubtractMean bool
}

// PODResult is an immutable Proper Orthogonal Decomposition of a
// snapshot matrix. It is safe for concurrent readers.
type PODResult struct {
	ModeCount      int
	SnapshotCount  int
	ElementCount   int
	Method         Method
	SubtractedMean bool

	modes        *mat.Dense // elements × ModeCount, orthonormal columns
	eigenvalues  []float64  // full ranked spectrum, len = min(snapshots, elements)
	coefficients *mat.Dense // snapshots × ModeCount
}

// DecomposePOD computes ModeCount energy-ranked orthonormal modes of the
// elements × snapshots matrix m. The matrix is copied; NaN/Inf entries
// are zeroed and, if requested, the temporal mean of every element is
// removed before the basis is computed.
func DecomposePOD(m mat.Matrix, opts PODOptions) (*PODResult, error) {
	if err := opts.Method.Validate(); err != nil {
		return nil, err
	}
	method := opts.Method.orDefault()
	nElem, nSnap := m.Dims()
	if opts.ModeCount < 1 || opts.ModeCount > nSnap {
		return nil, fmt.Errorf("requested %d modes from %d snapshots: %w",
			opts.ModeCount, nSnap, ErrInvalidModeCount)
	}
	if opts.ModeCount > nElem {
		return nil, fmt.Errorf("requested %d modes from %d elements: %w",
			opts.ModeCount, nElem, ErrInvalidModeCount)
	}

	X, nonZero := prepare(m, opts.SubtractMean)
	if !nonZero {
		return nil, fmt.Errorf("snapshot matrix is all zero: %w", ErrNumericalFailure)
	}

	var (
		vals  []float64
		modes *mat.Dense
		err   error
	)
	switch method {
	case MethodSnapshot:
		vals, modes, err = podSnapshot(X, opts.ModeCount)
	case MethodDirect:
		vals, modes, err = podDirect(X, opts.ModeCount)
	}
	if err != nil {
		return nil, err
	}
	normalizeSigns(modes)

	var coeffs mat.Dense
	coeffs.Mul(X.T(), modes)

	res := &PODResult{
		ModeCount:      opts.ModeCount,
		SnapshotCount:  nSnap,
		ElementCount:   nElem,
		Method:         method,
		SubtractedMean: opts.SubtractMean,
		modes:          modes,
		eigenvalues:    vals,
		coefficients:   &coeffs,
	}
	logging.Debugw("pod decomposition complete",
		"method", string(method),
		"modes", res.ModeCount,
		"snapshots", nSnap,
		"elements", nElem,
		"leadingEigenvalue", vals[0])
	return res, nil
}

// podSnapshot eigendecomposes the snapshots × snapshots correlation and
// lifts the eigenvectors to element space: φ_i = X v_i / √λ_i.
func podSnapshot(X *mat.Dense, nMode int) ([]float64, *mat.Dense, error) {
	nElem, nSnap := X.Dims()
	vals, vecs, err := eigSymDescending(gramMatrix(X))
	if err != nil {
		return nil, nil, err
	}
	if err = checkModeEnergy(vals, nMode); err != nil {
		return nil, nil, err
	}
	scaled := mat.NewDense(nSnap, nMode, nil)
	for k := 0; k < nMode; k++ {
		inv := 1. / math.Sqrt(vals[k])
		for i := 0; i < nSnap; i++ {
			scaled.Set(i, k, vecs.At(i, k)*inv)
		}
	}
	modes := mat.NewDense(nElem, nMode, nil)
	modes.Mul(X, scaled)
	return spectrum(vals, nElem, nSnap), modes, nil
}

// podDirect eigendecomposes the elements × elements covariance; its
// leading eigenvectors are the modes.
func podDirect(X *mat.Dense, nMode int) ([]float64, *mat.Dense, error) {
	nElem, nSnap := X.Dims()
	vals, vecs, err := eigSymDescending(covarianceMatrix(X))
	if err != nil {
		return nil, nil, err
	}
	if err = checkModeEnergy(vals, nMode); err != nil {
		return nil, nil, err
	}
	modes := mat.DenseCopyOf(vecs.Slice(0, nElem, 0, nMode))
	return spectrum(vals, nElem, nSnap), modes, nil
}

func checkModeEnergy(vals []float64, nMode int) error {
	rank := numericalRank(vals)
	if rank == 0 {
		return fmt.Errorf("snapshot matrix carries no energy: %w", ErrNumericalFailure)
	}
	if nMode > rank {
		return fmt.Errorf("requested %d modes but the data has rank %d: %w",
			nMode, rank, ErrNumericalFailure)
	}
	return nil
}

// spectrum keeps the min(elements, snapshots) meaningful eigenvalues,
// clipping negative round-off to zero.
func spectrum(vals []float64, nElem, nSnap int) []float64 {
	n := min(nElem, nSnap, len(vals))
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Max(vals[i], 0)
	}
	return out
}

// Modes returns a copy of the elements × ModeCount mode matrix.
func (r *PODResult) Modes() *mat.Dense {
	return mat.DenseCopyOf(r.modes)
}

// Mode returns a copy of mode i.
func (r *PODResult) Mode(i int) ([]float64, error) {
	if err := checkIndices([]int{i}, r.ModeCount, "mode"); err != nil {
		return nil, err
	}
	return mat.Col(nil, i, r.modes), nil
}

// Eigenvalues returns the eigenvalues of the ModeCount retained modes,
// in non-increasing order.
func (r *PODResult) Eigenvalues() []float64 {
	return append([]float64(nil), r.eigenvalues[:r.ModeCount]...)
}

// Spectrum returns the full ranked eigenvalue spectrum used for energy accounting.
func (r *PODResult) Spectrum() []float64 {
	return append([]float64(nil), r.eigenvalues...)
}

// Coefficients returns a copy of the snapshots × ModeCount projection coefficients.
func (r *PODResult) Coefficients() *mat.Dense {
	return mat.DenseCopyOf(r.coefficients)
}

// Coefficient returns the projection of snapshot t onto mode i.
func (r *PODResult) Coefficient(t, i int) float64 {
	return r.coefficients.At(t, i)
}

// Project returns the inner products of a flat snapshot with each mode.
func (r *PODResult) Project(x []float64) ([]float64, error) {
	if len(x) != r.ElementCount {
		return nil, fmt.Errorf("vector has %d elements, expected %d: %w",
			len(x), r.ElementCount, ErrIndexRange)
	}
	var a mat.VecDense
	a.MulVec(r.modes.T(), mat.NewVecDense(len(x), append([]float64(nil), x...)))
	return a.RawVector().Data, nil
}

func (r *PODResult) energyRange(start, end int) error {
	n := len(r.eigenvalues)
	if start < 0 || end > n || start > end {
		return fmt.Errorf("energy range [%d:%d) outside spectrum of %d: %w", start, end, n, ErrIndexRange)
	}
	return nil
}

// EnergyFraction returns λ_i / Σ λ[start:] for i in [start, end).
func (r *PODResult) EnergyFraction(start, end int) ([]float64, error) {
	if err := r.energyRange(start, end); err != nil {
		return nil, err
	}
	var total float64
	for _, v := range r.eigenvalues[start:] {
		total += v
	}
	frac := make([]float64, end-start)
	if total == 0 {
		return frac, nil
	}
	for i := range frac {
		frac[i] = r.eigenvalues[start+i] / total
	}
	return frac, nil
}

// CumulativeEnergy returns the running sum of EnergyFraction(start, end).
func (r *PODResult) CumulativeEnergy(start, end int) ([]float64, error) {
	frac, err := r.EnergyFraction(start, end)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(frac); i++ {
		frac[i] += frac[i-1]
	}
	return frac, nil
}

// ModesForEnergy returns the smallest mode count whose cumulative energy
// fraction reaches target (0 < target ≤ 1).
func (r *PODResult) ModesForEnergy(target float64) (int, error) {
	if target <= 0 || target > 1 {
		return 0, fmt.Errorf("energy target %g outside (0,1]: %w", target, ErrIndexRange)
	}
	cum, err := r.CumulativeEnergy(0, len(r.eigenvalues))
	if err != nil {
		return 0, err
	}
	for i, c := range cum {
		if c >= target-1.e-12 {
			return i + 1, nil
		}
	}
	return len(cum), nil
}

// Reconstruct rebuilds snapshot t as Σ a[t,i] φ_i over the given modes.
func (r *PODResult) Reconstruct(t int, modeIdx []int) ([]float64, error) {
	if err := checkIndices([]int{t}, r.SnapshotCount, "snapshot"); err != nil {
		return nil, err
	}
	if err := checkIndices(modeIdx, r.ModeCount, "mode"); err != nil {
		return nil, err
	}
	out := make([]float64, r.ElementCount)
	r.accumulate(out, t, modeIdx)
	return out, nil
}

// ReconstructBatch rebuilds several snapshots at once; column j of the
// result holds snapshot snaps[j].
func (r *PODResult) ReconstructBatch(snaps, modeIdx []int) (*mat.Dense, error) {
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshots requested: %w", ErrIndexRange)
	}
	if err := checkIndices(snaps, r.SnapshotCount, "snapshot"); err != nil {
		return nil, err
	}
	if err := checkIndices(modeIdx, r.ModeCount, "mode"); err != nil {
		return nil, err
	}
	out := mat.NewDense(r.ElementCount, len(snaps), nil)
	col := make([]float64, r.ElementCount)
	for j, t := range snaps {
		for i := range col {
			col[i] = 0
		}
		r.accumulate(col, t, modeIdx)
		out.SetCol(j, col)
	}
	return out, nil
}

func (r *PODResult) accumulate(dst []float64, t int, modeIdx []int) {
	for _, k := range modeIdx {
		a := r.coefficients.At(t, k)
		for e := range dst {
			dst[e] += a * r.modes.At(e, k)
		}
	}
}
