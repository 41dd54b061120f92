package fieldmodes

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/flowmodes/decomposition"
	"github.com/notargets/flowmodes/field"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func randomSurface(rng *rand.Rand, nx, ny int) *mat.Dense {
	m := mat.NewDense(nx, ny, nil)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			m.Set(i, j, rng.NormFloat64())
		}
	}
	return m
}

// vortexStreet returns Ux, Uy, Uz surfaces of a convected periodic
// pattern at time t.
func vortexStreet(nx, ny int, f, t float64) field.VectorSurface {
	ux := mat.NewDense(nx, ny, nil)
	uy := mat.NewDense(nx, ny, nil)
	uz := mat.NewDense(nx, ny, nil)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			phase := 2*math.Pi*float64(i)/float64(nx) - 2*math.Pi*f*t
			y := float64(j) / float64(ny)
			ux.Set(i, j, math.Sin(phase)*math.Sin(math.Pi*y))
			uy.Set(i, j, math.Cos(phase)*math.Sin(2*math.Pi*y))
			uz.Set(i, j, 0.1*math.Sin(phase))
		}
	}
	return field.VectorSurface{Ux: ux, Uy: uy, Uz: uz}
}

func TestPODVectorModesHaveInputLayout(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	nx, ny, N := 4, 5, 6
	ss := make([]field.VectorSurface, N)
	for n := range ss {
		ss[n] = field.VectorSurface{
			Ux: randomSurface(rng, nx, ny),
			Uy: randomSurface(rng, nx, ny),
			Uz: randomSurface(rng, nx, ny),
		}
	}
	pm, err := DecomposePODVector(ss, decomposition.PODOptions{ModeCount: N})
	require.NoError(t, err)
	assert.Equal(t, field.Shape{N, 3, nx, ny}, pm.InputShape)

	modes := pm.Modes()
	require.Len(t, modes, N)
	for _, m := range modes {
		assert.Equal(t, []int{3, nx, ny}, m.Shape)
	}

	all := []int{0, 1, 2, 3, 4, 5}
	frame, err := pm.ReconstructFrame(2, all)
	require.NoError(t, err)
	uy, err := frame.Component(1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, ss[2].Uy.(*mat.Dense).RawMatrix().Data, uy.RawMatrix().Data, 1.e-8)

	frames, err := pm.ReconstructFrames([]int{4, 1}, all)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	ux, err := frames[0].Component(0)
	require.NoError(t, err)
	assert.InDeltaSlice(t, ss[4].Ux.(*mat.Dense).RawMatrix().Data, ux.RawMatrix().Data, 1.e-8)
}

func TestPODScalar(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	ms := make([]mat.Matrix, 5)
	for n := range ms {
		ms[n] = randomSurface(rng, 6, 3)
	}
	pm, err := DecomposePODScalar(ms, decomposition.PODOptions{ModeCount: 2, Method: decomposition.MethodDirect})
	require.NoError(t, err)
	m0, err := pm.Mode(0)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 3}, m0.Shape)
	_, err = m0.Matrix()
	assert.NoError(t, err)
}

func TestDMDVectorRecoversSheddingFrequency(t *testing.T) {
	nx, ny, N := 16, 6, 30
	f, dt := 2.5, 0.02
	ss := make([]field.VectorSurface, N)
	for n := range ss {
		ss[n] = vortexStreet(nx, ny, f, float64(n)*dt)
	}
	dm, err := DecomposeDMDVector(ss, decomposition.DMDOptions{DT: dt})
	require.NoError(t, err)
	assert.Equal(t, field.Shape{N, 3, nx, ny}, dm.InputShape)

	idx := dm.NearestFrequencyIndex(f)
	assert.InDelta(t, f, dm.Frequency(idx), 1.e-6)

	mode, err := dm.Mode(idx)
	require.NoError(t, err)
	assert.Equal(t, []int{3, nx, ny}, mode.Shape)
	assert.Len(t, dm.Modes(), dm.ModeCount)

	rec, err := dm.ReconstructField(7, nil)
	require.NoError(t, err)
	want, err := field.NewVectorField(ss[7])
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data, rec.Data, 1.e-8)

	res, err := dm.ResidualField()
	require.NoError(t, err)
	assert.Equal(t, []int{3, nx, ny}, res.Shape)
}

func TestDMDScalarRejectsMismatchedSurfaces(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	ms := []mat.Matrix{randomSurface(rng, 4, 4), randomSurface(rng, 4, 5)}
	_, err := DecomposeDMDScalar(ms, decomposition.DMDOptions{DT: 1})
	assert.True(t, errors.Is(err, field.ErrShapeMismatch))

	ms[1] = randomSurface(rng, 4, 4)
	_, err = DecomposeDMDScalar(ms, decomposition.DMDOptions{DT: 1, Method: "bogus"})
	assert.True(t, errors.Is(err, decomposition.ErrInvalidMethod))
}
