// Package config loads YAML decomposition job descriptions.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/notargets/flowmodes/decomposition"
	"github.com/notargets/flowmodes/field"
	"github.com/notargets/flowmodes/foam"
	"gopkg.in/yaml.v3"
	"gonum.org/v1/gonum/mat"
)

var ErrInvalidJob = errors.New("invalid job configuration")

// Job describes one decomposition of a series of sampled snapshots.
type Job struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Method       string   `yaml:"method"`
	Modes        int      `yaml:"modes"`
	DT           float64  `yaml:"dt"`
	SubtractMean bool     `yaml:"subtract_mean"`
	Inputs       []string `yaml:"inputs"`
	Columns      int      `yaml:"columns"`
	Grid         []int    `yaml:"grid"`
	Output       string   `yaml:"output"`
	Workers      int      `yaml:"workers"`

	dir string
}

// Load reads and validates the job file at path. Relative input and
// output paths are resolved against the directory of the file.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	job, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	job.dir = filepath.Dir(path)
	return job, nil
}

// Parse decodes and validates a job from YAML, applying defaults.
func Parse(data []byte) (*Job, error) {
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if job.Method == "" {
		job.Method = string(decomposition.MethodSnapshot)
	}
	if job.Columns == 0 {
		job.Columns = 1
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	return &job, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidJob)
}

// Validate checks the job for consistency.
func (j *Job) Validate() error {
	switch j.Kind {
	case "pod":
		if j.Modes < 1 {
			return invalid("pod job needs modes >= 1, got %d", j.Modes)
		}
	case "dmd":
		if j.Modes < 0 {
			return invalid("negative mode count %d", j.Modes)
		}
		if j.DT <= 0 {
			return invalid("dmd job needs dt > 0, got %g", j.DT)
		}
		if len(j.Inputs) == 1 {
			return invalid("dmd job needs at least two snapshots")
		}
	default:
		return invalid("unknown kind %q", j.Kind)
	}
	if _, err := decomposition.ParseMethod(j.Method); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	if len(j.Inputs) == 0 {
		return invalid("no input files")
	}
	if j.Columns != 1 && j.Columns != 3 {
		return invalid("columns must be 1 or 3, got %d", j.Columns)
	}
	if len(j.Grid) != 0 && (len(j.Grid) != 2 || j.Grid[0] < 1 || j.Grid[1] < 1) {
		return invalid("grid must be [nx, ny] with positive sizes, got %v", j.Grid)
	}
	if j.Workers < 0 {
		return invalid("negative worker count %d", j.Workers)
	}
	return nil
}

func (j *Job) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || j.dir == "" {
		return p
	}
	return filepath.Join(j.dir, p)
}

// OutputPath is the archive path, resolved like the inputs.
func (j *Job) OutputPath() string {
	return j.resolve(j.Output)
}

// PODOptions converts the job to decomposition options.
func (j *Job) PODOptions() decomposition.PODOptions {
	return decomposition.PODOptions{
		ModeCount:    j.Modes,
		Method:       decomposition.Method(j.Method),
		SubtractMean: j.SubtractMean,
	}
}

// DMDOptions converts the job to decomposition options.
func (j *Job) DMDOptions() decomposition.DMDOptions {
	return decomposition.DMDOptions{
		DT:           j.DT,
		ModeCount:    j.Modes,
		Method:       decomposition.Method(j.Method),
		SubtractMean: j.SubtractMean,
	}
}

// Snapshots reads every input file as one time step. A table with one
// column is a scalar field, three columns are the Ux, Uy, Uz components.
// Points are laid out on the grid row-major, or as an npoints × 1 grid
// when no grid is given.
func (j *Job) Snapshots() ([]field.Field, error) {
	snaps := make([]field.Field, 0, len(j.Inputs))
	for _, in := range j.Inputs {
		tab, err := foam.ReadFile(j.resolve(in))
		if err != nil {
			return nil, err
		}
		f, err := j.tableField(tab)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", in, err)
		}
		snaps = append(snaps, f)
	}
	return snaps, nil
}

func (j *Job) tableField(tab *mat.Dense) (field.Field, error) {
	nPts, nc := tab.Dims()
	if nc != j.Columns {
		return field.Field{}, fmt.Errorf("table has %d columns, expected %d: %w",
			nc, j.Columns, field.ErrShapeMismatch)
	}
	nx, ny := nPts, 1
	if len(j.Grid) == 2 {
		nx, ny = j.Grid[0], j.Grid[1]
		if nx*ny != nPts {
			return field.Field{}, fmt.Errorf("table has %d points, grid %dx%d needs %d: %w",
				nPts, nx, ny, nx*ny, field.ErrShapeMismatch)
		}
	}
	comp := func(c int) *mat.Dense {
		return mat.NewDense(nx, ny, mat.Col(nil, c, tab))
	}
	if j.Columns == 1 {
		return field.NewScalarField(comp(0)), nil
	}
	return field.NewVectorField(field.VectorSurface{Ux: comp(0), Uy: comp(1), Uz: comp(2)})
}
