package ensemble

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/notargets/flowmodes/decomposition"
	"github.com/notargets/flowmodes/partitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func snapshots(nElem, nSnap int, seed int64) *mat.Dense {
	rng := rand.New(rand.NewSource(seed))
	X := mat.NewDense(nElem, nSnap, nil)
	for i := 0; i < nElem; i++ {
		for j := 0; j < nSnap; j++ {
			X.Set(i, j, rng.NormFloat64())
		}
	}
	return X
}

func TestRunMixedEnsemble(t *testing.T) {
	X := snapshots(20, 8, 31)
	fixed := uuid.New()
	jobs := []Job{
		{ID: fixed, Name: "pod-snap", Kind: KindPOD, Matrix: X, POD: decomposition.PODOptions{ModeCount: 3}},
		{Name: "pod-direct", Kind: KindPOD, Matrix: X, POD: decomposition.PODOptions{ModeCount: 3, Method: decomposition.MethodDirect}},
		{Name: "dmd-snap", Kind: KindDMD, Matrix: X, DMD: decomposition.DMDOptions{DT: 0.1}},
		{Name: "dmd-direct", Kind: KindDMD, Matrix: X, DMD: decomposition.DMDOptions{DT: 0.1, Method: decomposition.MethodDirect}},
		{Name: "bad", Kind: KindPOD, Matrix: X, POD: decomposition.PODOptions{ModeCount: 3, Method: "bogus"}},
	}
	for _, strategy := range []partitions.PartitionStrategy{partitions.BlockPartition, partitions.RoundRobin, partitions.CostBalanced} {
		outcomes, err := Run(context.Background(), jobs, Config{Workers: 2, Strategy: strategy})
		require.NoError(t, err)
		require.Len(t, outcomes, len(jobs))

		assert.Equal(t, fixed, outcomes[0].JobID)
		for i, o := range outcomes {
			assert.Equal(t, jobs[i].Name, o.Name)
			assert.NotEqual(t, uuid.Nil, o.JobID)
		}
		require.NoError(t, outcomes[0].Err)
		require.NoError(t, outcomes[1].Err)
		assert.InDeltaSlice(t, outcomes[0].POD.Eigenvalues(), outcomes[1].POD.Eigenvalues(), 1.e-8)
		require.NoError(t, outcomes[2].Err)
		require.NoError(t, outcomes[3].Err)
		assert.Equal(t, 7, outcomes[2].DMD.ModeCount)
		assert.True(t, errors.Is(outcomes[4].Err, decomposition.ErrInvalidMethod))
		assert.Nil(t, outcomes[4].POD)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	jobs := []Job{
		{Kind: KindPOD, Matrix: snapshots(5, 3, 32), POD: decomposition.PODOptions{ModeCount: 1}},
		{Kind: KindDMD, Matrix: snapshots(5, 3, 33), DMD: decomposition.DMDOptions{DT: 1}},
	}
	outcomes, err := Run(ctx, jobs, Config{Workers: 1})
	require.NoError(t, err)
	for _, o := range outcomes {
		assert.True(t, errors.Is(o.Err, context.Canceled))
	}
}

func TestRunRejectsUnknownKindAndMissingMatrix(t *testing.T) {
	jobs := []Job{
		{Kind: "spod", Matrix: snapshots(4, 3, 34)},
		{Kind: KindPOD},
	}
	outcomes, err := Run(context.Background(), jobs, Config{Workers: 4})
	require.NoError(t, err)
	assert.Error(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
}

func TestSharedResultConcurrentReaders(t *testing.T) {
	dt := 0.01
	X := mat.NewDense(32, 20, nil)
	for e := 0; e < 32; e++ {
		for s := 0; s < 20; s++ {
			X.Set(e, s, math.Sin(2*math.Pi*float64(e)/8-2*math.Pi*4*float64(s)*dt))
		}
	}
	res, err := decomposition.DecomposeDMD(X, decomposition.DMDOptions{DT: dt})
	require.NoError(t, err)

	want, err := res.FrequencyBandIndices(1, 10)
	require.NoError(t, err)
	done := make(chan []int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			band, _ := res.FrequencyBandIndices(1, 10)
			done <- band
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}
