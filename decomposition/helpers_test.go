package decomposition

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

func randomSnapshots(nElem, nSnap int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(nElem, nSnap, nil)
	for i := 0; i < nElem; i++ {
		for j := 0; j < nSnap; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}
	return X
}

// wave is one travelling component sin(k e − 2πf t dt)·exp(−σ t dt).
type wave struct {
	amp, k, freq, decay float64
}

func travellingWaves(nElem, nSnap int, dt float64, waves ...wave) *mat.Dense {
	X := mat.NewDense(nElem, nSnap, nil)
	for e := 0; e < nElem; e++ {
		for t := 0; t < nSnap; t++ {
			var v float64
			tt := float64(t) * dt
			for _, w := range waves {
				v += w.amp * math.Exp(-w.decay*tt) * math.Sin(w.k*float64(e)-2*math.Pi*w.freq*tt)
			}
			X.Set(e, t, v)
		}
	}
	return X
}

func columnMeanRemoved(X mat.Matrix) *mat.Dense {
	nr, nc := X.Dims()
	Y := mat.DenseCopyOf(X)
	for i := 0; i < nr; i++ {
		var mean float64
		for j := 0; j < nc; j++ {
			mean += Y.At(i, j)
		}
		mean /= float64(nc)
		for j := 0; j < nc; j++ {
			Y.Set(i, j, Y.At(i, j)-mean)
		}
	}
	return Y
}
