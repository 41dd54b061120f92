package decomposition

import (
	"errors"
	"fmt"
	"math"

	"github.com/notargets/gocfd/utils"
	"gonum.org/v1/gonum/mat"
)

// relEigTol is the relative cutoff below which a correlation eigenvalue
// (a squared singular value) is treated as zero.
const relEigTol = 1.e-12

// prepare copies the caller's matrix, zeroes NaN/Inf entries and
// optionally removes the per-element temporal mean.
func prepare(m mat.Matrix, subtractMean bool) (X *mat.Dense, nonZero bool) {
	X = mat.DenseCopyOf(m)
	nr, nc := X.Dims()
	raw := X.RawMatrix()
	for i := 0; i < nr; i++ {
		row := raw.Data[i*raw.Stride : i*raw.Stride+nc]
		for j, v := range row {
			if v != 0 && !math.IsNaN(v) {
				nonZero = true
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row[j] = 0
			}
		}
	}
	if subtractMean {
		for i := 0; i < nr; i++ {
			row := raw.Data[i*raw.Stride : i*raw.Stride+nc]
			var mean float64
			for _, v := range row {
				mean += v
			}
			mean /= float64(nc)
			for j := range row {
				row[j] -= mean
			}
		}
	}
	return
}

func toGocfd(A mat.Matrix) utils.Matrix {
	nr, nc := A.Dims()
	R := utils.NewMatrix(nr, nc)
	for i := 0; i < nr; i++ {
		for j := 0; j < nc; j++ {
			R.Set(i, j, A.At(i, j))
		}
	}
	return R
}

// crossProduct returns Aᵀ B.
func crossProduct(A, B mat.Matrix) *mat.Dense {
	_, nca := A.Dims()
	_, ncb := B.Dims()
	P := toGocfd(A).Transpose().Mul(toGocfd(B))
	C := mat.NewDense(nca, ncb, nil)
	for i := 0; i < nca; i++ {
		for j := 0; j < ncb; j++ {
			C.Set(i, j, P.At(i, j))
		}
	}
	return C
}

// symmetrize returns the symmetric part of a square product matrix,
// discarding round-off asymmetry.
func symmetrize(P utils.Matrix, n int) *mat.SymDense {
	S := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			S.SetSym(i, j, 0.5*(P.At(i, j)+P.At(j, i)))
		}
	}
	return S
}

// gramMatrix returns the snapshots × snapshots correlation XᵀX.
func gramMatrix(X mat.Matrix) *mat.SymDense {
	_, nc := X.Dims()
	A := toGocfd(X)
	return symmetrize(A.Transpose().Mul(A), nc)
}

// covarianceMatrix returns the elements × elements covariance XXᵀ.
func covarianceMatrix(X mat.Matrix) *mat.SymDense {
	nr, _ := X.Dims()
	A := toGocfd(X)
	return symmetrize(A.Mul(A.Transpose()), nr)
}

// eigSymDescending factorizes a symmetric matrix and returns its
// eigenpairs ordered by decreasing eigenvalue.
func eigSymDescending(S mat.Symmetric) (vals []float64, vecs *mat.Dense, err error) {
	var es mat.EigenSym
	if ok := es.Factorize(S, true); !ok {
		return nil, nil, fmt.Errorf("symmetric eigendecomposition did not converge: %w", ErrNumericalFailure)
	}
	asc := es.Values(nil)
	var ev mat.Dense
	es.VectorsTo(&ev)

	n := len(asc)
	vals = make([]float64, n)
	vecs = mat.NewDense(n, n, nil)
	col := make([]float64, n)
	for k := 0; k < n; k++ {
		src := n - 1 - k
		vals[k] = asc[src]
		mat.Col(col, src, &ev)
		vecs.SetCol(k, col)
	}
	return vals, vecs, nil
}

// numericalRank counts eigenvalues above the relative tolerance.
func numericalRank(vals []float64) int {
	if len(vals) == 0 || vals[0] <= 0 {
		return 0
	}
	cut := vals[0] * relEigTol
	var r int
	for _, v := range vals {
		if v > cut {
			r++
		}
	}
	return r
}

// normalizeSigns flips each column so its largest-magnitude entry is
// positive, making mode signs independent of the eigen-solver.
func normalizeSigns(M *mat.Dense) {
	nr, nc := M.Dims()
	for j := 0; j < nc; j++ {
		var (
			best    float64
			bestIdx int
		)
		for i := 0; i < nr; i++ {
			if a := math.Abs(M.At(i, j)); a > best {
				best, bestIdx = a, i
			}
		}
		if M.At(bestIdx, j) < 0 {
			for i := 0; i < nr; i++ {
				M.Set(i, j, -M.At(i, j))
			}
		}
	}
}

// solveComplex solves W α = b for square complex W and real b through the
// equivalent real block system [Re W, -Im W; Im W, Re W].
func solveComplex(W *mat.CDense, b []float64) ([]complex128, error) {
	n, _ := W.Dims()
	A := mat.NewDense(2*n, 2*n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			w := W.At(i, j)
			A.Set(i, j, real(w))
			A.Set(i, j+n, -imag(w))
			A.Set(i+n, j, imag(w))
			A.Set(i+n, j+n, real(w))
		}
	}
	rhs := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		rhs.SetVec(i, b[i])
	}
	var x mat.VecDense
	if err := x.SolveVec(A, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("ritz vectors are singular: %v: %w", err, ErrNumericalFailure)
		}
	}
	alpha := make([]complex128, n)
	for i := range alpha {
		alpha[i] = complex(x.AtVec(i), x.AtVec(i+n))
	}
	return alpha, nil
}

// ipow raises z to a non-negative integer power by repeated squaring.
func ipow(z complex128, k int) complex128 {
	result := complex(1, 0)
	for k > 0 {
		if k&1 == 1 {
			result *= z
		}
		z *= z
		k >>= 1
	}
	return result
}

func checkIndices(idx []int, n int, what string) error {
	for _, i := range idx {
		if i < 0 || i >= n {
			return fmt.Errorf("%s index %d outside [0,%d): %w", what, i, n, ErrIndexRange)
		}
	}
	return nil
}

func allIndices(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
