package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/notargets/flowmodes/archive"
	"github.com/notargets/flowmodes/config"
	"github.com/notargets/flowmodes/ensemble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeWaveCase writes nSnap scalar foamFile tables sampling a travelling
// wave at freq Hz and a job file describing them.
func writeWaveCase(t *testing.T, dir, kind string, nPts, nSnap int, freq, dt float64) string {
	t.Helper()
	inputs := make([]string, nSnap)
	for s := 0; s < nSnap; s++ {
		var b strings.Builder
		fmt.Fprintf(&b, "// p sampled at t=%g\n%d\n(\n", float64(s)*dt, nPts)
		for p := 0; p < nPts; p++ {
			v := math.Sin(2 * math.Pi * (float64(p)/float64(nPts) - freq*float64(s)*dt))
			fmt.Fprintf(&b, "%.15e\n", v)
		}
		b.WriteString(")\n")
		inputs[s] = fmt.Sprintf("p_%03d.raw", s)
		require.NoError(t, os.WriteFile(filepath.Join(dir, inputs[s]), []byte(b.String()), 0o644))
	}
	job := fmt.Sprintf(`name: wave-%[1]s
kind: %[1]s
modes: 2
dt: %[2]g
grid: [4, %[3]d]
inputs: [%[4]s]
output: wave_%[1]s.msgpack
workers: 2
`, kind, dt, nPts/4, strings.Join(inputs, ", "))
	path := filepath.Join(dir, kind+".yaml")
	require.NoError(t, os.WriteFile(path, []byte(job), 0o644))
	return path
}

func TestDecomposeAndSpectrum(t *testing.T) {
	dir := t.TempDir()
	dt := 0.02
	configPaths = []string{writeWaveCase(t, dir, "dmd", 16, 12, 3, dt)}
	numWorkers, strategy = 0, "cost"

	var out bytes.Buffer
	require.NoError(t, runDecompose(context.Background(), ensemble.KindDMD, &out))
	assert.Contains(t, out.String(), "wave-dmd")

	rec, err := archive.LoadFile(filepath.Join(dir, "wave_dmd.msgpack"))
	require.NoError(t, err)
	assert.Equal(t, "wave-dmd", rec.Name)
	assert.Equal(t, []int{4, 4}, rec.InputShape)
	for _, row := range rec.Spectrum() {
		assert.InDelta(t, 3, math.Abs(row.Frequency), 1.e-6)
	}

	archivePath = filepath.Join(dir, "wave_dmd.msgpack")
	band = "2,4"
	out.Reset()
	require.NoError(t, runSpectrum(&out))
	assert.Equal(t, 2, strings.Count(out.String(), " Hz"))

	band = "4,2"
	assert.Error(t, runSpectrum(&out))
	band = "4"
	assert.Error(t, runSpectrum(&out))
	band = ""
}

func TestDecomposePODEnsemble(t *testing.T) {
	dir := t.TempDir()
	first := writeWaveCase(t, dir, "pod", 16, 8, 1, 0.1)
	otherDir := t.TempDir()
	second := writeWaveCase(t, otherDir, "pod", 16, 6, 2, 0.1)
	configPaths = []string{first, second}
	numWorkers, strategy = 2, "roundrobin"

	var out bytes.Buffer
	require.NoError(t, runDecompose(context.Background(), ensemble.KindPOD, &out))
	for _, d := range []string{dir, otherDir} {
		rec, err := archive.LoadFile(filepath.Join(d, "wave_pod.msgpack"))
		require.NoError(t, err)
		assert.Equal(t, archive.KindPOD, rec.Kind)
		assert.Equal(t, 2, rec.ModeCount)
	}

	archivePath = filepath.Join(dir, "wave_pod.msgpack")
	out.Reset()
	require.NoError(t, runSpectrum(&out))
	assert.Contains(t, out.String(), "EIGENVALUE")
}

func TestDecomposeRejectsKindMismatch(t *testing.T) {
	configPaths = []string{writeWaveCase(t, t.TempDir(), "pod", 8, 4, 1, 0.1)}
	numWorkers, strategy = 1, "block"
	err := runDecompose(context.Background(), ensemble.KindDMD, &bytes.Buffer{})
	assert.True(t, errors.Is(err, config.ErrInvalidJob))

	strategy = "metis"
	assert.Error(t, runDecompose(context.Background(), ensemble.KindPOD, &bytes.Buffer{}))
}
