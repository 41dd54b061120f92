package decomposition

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/notargets/flowmodes/logging"
	"gonum.org/v1/gonum/mat"
)

// DMDOptions configures DecomposeDMD. A ModeCount of zero requests the
// largest admissible count.
type DMDOptions struct {
	DT           float64
	ModeCount    int
	Method       Method
	SubtractMean bool
}

// DMDResult is an immutable Dynamic Mode Decomposition of a time-ordered
// snapshot matrix. It is safe for concurrent readers.
type DMDResult struct {
	ModeCount      int
	SnapshotCount  int
	ElementCount   int
	DT             float64
	Method         Method
	SubtractedMean bool

	modes     *mat.CDense  // elements × ModeCount
	ritz      []complex128 // ModeCount
	modeNorms []float64    // ModeCount, ‖φ_i‖²
	coeffs    *mat.CDense  // snapshots × ModeCount, ritz_i^t
	snapshots *mat.Dense   // sanitized input, kept for residuals
}

// ResolveDMDModeCount applies the DMD mode-count policy: zero or more
// than nSnap-1 becomes nSnap-1, then anything above nElem becomes nElem.
func ResolveDMDModeCount(requested, nSnap, nElem int) (int, error) {
	n := requested
	if n == 0 || n > nSnap-1 {
		n = nSnap - 1
	}
	if n > nElem {
		n = nElem
	}
	if n < 1 {
		return 0, fmt.Errorf("cannot fit %d modes to %d snapshots of %d elements: %w",
			requested, nSnap, nElem, ErrInvalidModeCount)
	}
	return n, nil
}

// lowRank is the reduced operator shared by both DMD variants.
type lowRank struct {
	U      *mat.Dense // elements × r POD basis of X0
	Atilde *mat.Dense // r × r projected propagator
	b      []float64  // Uᵀ x0
}

// DecomposeDMD fits the best linear operator advancing each snapshot of
// m (elements × snapshots, sampled every DT) to the next, and returns its
// ritz values and spatial modes. Modes are scaled so that their sum is
// the first snapshot, so Σ ritz_i^k φ_i approximates snapshot k.
func DecomposeDMD(m mat.Matrix, opts DMDOptions) (*DMDResult, error) {
	if err := opts.Method.Validate(); err != nil {
		return nil, err
	}
	method := opts.Method.orDefault()
	if !(opts.DT > 0) || math.IsInf(opts.DT, 1) {
		return nil, fmt.Errorf("dt=%g: %w", opts.DT, ErrInvalidTimeStep)
	}
	nElem, nSnap := m.Dims()
	nMode, err := ResolveDMDModeCount(opts.ModeCount, nSnap, nElem)
	if err != nil {
		return nil, err
	}

	X, nonZero := prepare(m, opts.SubtractMean)
	if !nonZero {
		return nil, fmt.Errorf("snapshot matrix is all zero: %w", ErrNumericalFailure)
	}
	X0 := X.Slice(0, nElem, 0, nSnap-1)
	X1 := X.Slice(0, nElem, 1, nSnap)

	var lr *lowRank
	switch method {
	case MethodSnapshot:
		lr, err = dmdSnapshot(X0, X1, nMode)
	case MethodDirect:
		lr, err = dmdDirect(X0, X1, nMode)
	}
	if err != nil {
		return nil, err
	}
	_, r := lr.U.Dims()
	if r < nMode {
		logging.Warnw("dmd mode count limited by numerical rank",
			"requested", nMode, "rank", r)
	}

	var eig mat.Eigen
	if ok := eig.Factorize(lr.Atilde, mat.EigenRight); !ok {
		return nil, fmt.Errorf("eigendecomposition of the reduced operator failed: %w", ErrNumericalFailure)
	}
	ritz := eig.Values(nil)
	var W mat.CDense
	eig.VectorsTo(&W)

	alpha, err := solveComplex(&W, lr.b)
	if err != nil {
		return nil, err
	}

	modes := mat.NewCDense(nElem, r, nil)
	norms := make([]float64, r)
	for i := 0; i < r; i++ {
		for e := 0; e < nElem; e++ {
			var v complex128
			for k := 0; k < r; k++ {
				v += complex(lr.U.At(e, k), 0) * W.At(k, i)
			}
			v *= alpha[i]
			modes.Set(e, i, v)
			norms[i] += real(v)*real(v) + imag(v)*imag(v)
		}
	}

	coeffs := mat.NewCDense(nSnap, r, nil)
	for i, lam := range ritz {
		p := complex(1, 0)
		for t := 0; t < nSnap; t++ {
			coeffs.Set(t, i, p)
			p *= lam
		}
	}

	res := &DMDResult{
		ModeCount:      r,
		SnapshotCount:  nSnap,
		ElementCount:   nElem,
		DT:             opts.DT,
		Method:         method,
		SubtractedMean: opts.SubtractMean,
		modes:          modes,
		ritz:           ritz,
		modeNorms:      norms,
		coeffs:         coeffs,
		snapshots:      X,
	}
	logging.Debugw("dmd decomposition complete",
		"method", string(method),
		"modes", r,
		"snapshots", nSnap,
		"elements", nElem,
		"dt", opts.DT)
	return res, nil
}

// dmdSnapshot builds the reduced operator from the (N-1) × (N-1)
// correlation of X0: Ã = Σ^-½ Vᵀ (X0ᵀX1) V Σ^-½.
func dmdSnapshot(X0, X1 mat.Matrix, nMode int) (*lowRank, error) {
	G := gramMatrix(X0)
	vals, V, err := eigSymDescending(G)
	if err != nil {
		return nil, err
	}
	r := min(nMode, numericalRank(vals))
	if r == 0 {
		return nil, fmt.Errorf("snapshot matrix carries no energy: %w", ErrNumericalFailure)
	}
	n, _ := V.Dims()
	Vs := mat.NewDense(n, r, nil) // V Σ^-½
	for k := 0; k < r; k++ {
		inv := 1. / math.Sqrt(vals[k])
		for i := 0; i < n; i++ {
			Vs.Set(i, k, V.At(i, k)*inv)
		}
	}
	C := crossProduct(X0, X1)

	var tmp, Atilde mat.Dense
	tmp.Mul(C, Vs)
	Atilde.Mul(Vs.T(), &tmp)

	nElem, _ := X0.Dims()
	U := mat.NewDense(nElem, r, nil)
	U.Mul(X0, Vs)

	var bv mat.VecDense
	bv.MulVec(Vs.T(), mat.NewVecDense(n, mat.Col(nil, 0, G)))
	return &lowRank{U: U, Atilde: &Atilde, b: bv.RawVector().Data}, nil
}

// dmdDirect builds the reduced operator from a thin SVD of X0:
// Ã = Uᵀ X1 V Σ^-1.
func dmdDirect(X0, X1 mat.Matrix, nMode int) (*lowRank, error) {
	var svd mat.SVD
	if ok := svd.Factorize(X0, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd of the snapshot matrix did not converge: %w", ErrNumericalFailure)
	}
	s := svd.Values(nil)
	sq := make([]float64, len(s))
	for i, v := range s {
		sq[i] = v * v
	}
	r := min(nMode, numericalRank(sq))
	if r == 0 {
		return nil, fmt.Errorf("snapshot matrix carries no energy: %w", ErrNumericalFailure)
	}
	var Uf, Vf mat.Dense
	svd.UTo(&Uf)
	svd.VTo(&Vf)
	nElem, _ := Uf.Dims()
	n, _ := Vf.Dims()
	U := mat.DenseCopyOf(Uf.Slice(0, nElem, 0, r))
	Vs := mat.NewDense(n, r, nil) // V Σ^-1
	for k := 0; k < r; k++ {
		for i := 0; i < n; i++ {
			Vs.Set(i, k, Vf.At(i, k)/s[k])
		}
	}

	var tmp, Atilde mat.Dense
	tmp.Mul(X1, Vs)
	Atilde.Mul(U.T(), &tmp)

	var bv mat.VecDense
	bv.MulVec(U.T(), mat.NewVecDense(nElem, mat.Col(nil, 0, X0)))
	return &lowRank{U: U, Atilde: &Atilde, b: bv.RawVector().Data}, nil
}

// Ritz returns a copy of the ritz values.
func (r *DMDResult) Ritz() []complex128 {
	return append([]complex128(nil), r.ritz...)
}

func (r *DMDResult) mapRitz(f func(complex128) float64) []float64 {
	out := make([]float64, len(r.ritz))
	for i, z := range r.ritz {
		out[i] = f(z)
	}
	return out
}

// RitzReal returns the real part of each ritz value.
func (r *DMDResult) RitzReal() []float64 { return r.mapRitz(func(z complex128) float64 { return real(z) }) }

// RitzImag returns the imaginary part of each ritz value.
func (r *DMDResult) RitzImag() []float64 { return r.mapRitz(func(z complex128) float64 { return imag(z) }) }

// RitzAbs returns the magnitude (growth rate per step) of each ritz value.
func (r *DMDResult) RitzAbs() []float64 { return r.mapRitz(cmplx.Abs) }

// RitzAngle returns the phase angle of each ritz value.
func (r *DMDResult) RitzAngle() []float64 { return r.mapRitz(cmplx.Phase) }

// ModeNorms returns the squared 2-norm of every mode.
func (r *DMDResult) ModeNorms() []float64 {
	return append([]float64(nil), r.modeNorms...)
}

// Mode returns a copy of mode i.
func (r *DMDResult) Mode(i int) ([]complex128, error) {
	if err := checkIndices([]int{i}, r.ModeCount, "mode"); err != nil {
		return nil, err
	}
	out := make([]complex128, r.ElementCount)
	for e := range out {
		out[e] = r.modes.At(e, i)
	}
	return out, nil
}

// Coefficient returns ritz_i^t, the model time evolution of mode i.
func (r *DMDResult) Coefficient(t, i int) complex128 {
	return r.coeffs.At(t, i)
}

// Coefficients returns a copy of the snapshots × ModeCount coefficient matrix.
func (r *DMDResult) Coefficients() *mat.CDense {
	out := mat.NewCDense(r.SnapshotCount, r.ModeCount, nil)
	for t := 0; t < r.SnapshotCount; t++ {
		for i := 0; i < r.ModeCount; i++ {
			out.Set(t, i, r.coeffs.At(t, i))
		}
	}
	return out
}

// Frequency returns angle(ritz_i) / (DT·2π); conjugate partners carry
// the negative frequency.
func (r *DMDResult) Frequency(i int) float64 {
	return cmplx.Phase(r.ritz[i]) / r.DT / (2 * math.Pi)
}

// Frequencies returns the frequency of every mode.
func (r *DMDResult) Frequencies() []float64 {
	return r.FrequencyList(nil)
}

// FrequencyList returns the frequencies of the given modes; nil selects all.
func (r *DMDResult) FrequencyList(idx []int) []float64 {
	if idx == nil {
		idx = allIndices(r.ModeCount)
	}
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = r.Frequency(i)
	}
	return out
}

// FrequencyString formats the frequency of mode i, e.g. "12.50 Hz".
func (r *DMDResult) FrequencyString(i, digits int) string {
	return fmt.Sprintf("%.*f Hz", digits, r.Frequency(i))
}

// Reconstruct returns Σ ritz_i^k φ_i over the selected modes as a flat
// complex vector; nil selects every mode.
func (r *DMDResult) Reconstruct(k int, modeIdx []int) ([]complex128, error) {
	if k < 0 {
		return nil, fmt.Errorf("time index %d: %w", k, ErrIndexRange)
	}
	if modeIdx == nil {
		modeIdx = allIndices(r.ModeCount)
	}
	if err := checkIndices(modeIdx, r.ModeCount, "mode"); err != nil {
		return nil, err
	}
	out := make([]complex128, r.ElementCount)
	for _, i := range modeIdx {
		p := ipow(r.ritz[i], k)
		for e := range out {
			out[e] += p * r.modes.At(e, i)
		}
	}
	return out, nil
}

// ReconstructReal returns the real part of Reconstruct.
func (r *DMDResult) ReconstructReal(k int, modeIdx []int) ([]float64, error) {
	c, err := r.Reconstruct(k, modeIdx)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out, nil
}

// ResidualVector returns x_m − Σ ritz_i^m φ_i for m = ModeCount, a
// self-consistency diagnostic of the fit.
func (r *DMDResult) ResidualVector() []complex128 {
	m := r.ModeCount
	rec, _ := r.Reconstruct(m, nil)
	out := make([]complex128, r.ElementCount)
	for e := range out {
		out[e] = complex(r.snapshots.At(e, m), 0) - rec[e]
	}
	return out
}

// Residual returns the 2-norm of ResidualVector.
func (r *DMDResult) Residual() float64 {
	var sum float64
	for _, v := range r.ResidualVector() {
		sum += real(v)*real(v) + imag(v)*imag(v)
	}
	return math.Sqrt(sum)
}
