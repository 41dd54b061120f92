// Package fieldmodes adapts the generic decomposition engine to series of
// scalar surfaces and 3-component vector surfaces: it flattens the
// inputs, decomposes, and reshapes modes and reconstructions back into
// the spatial layout of the snapshots.
package fieldmodes

import (
	"fmt"

	"github.com/notargets/flowmodes/decomposition"
	"github.com/notargets/flowmodes/field"
	"gonum.org/v1/gonum/mat"
)

// PODModes is a POD result with its input layout attached.
type PODModes struct {
	*decomposition.PODResult
	InputShape field.Shape
}

// DMDModes is a DMD result with its input layout attached.
type DMDModes struct {
	*decomposition.DMDResult
	InputShape field.Shape
}

// DecomposePODFields runs POD over same-shaped fields of any rank.
func DecomposePODFields(fs []field.Field, opts decomposition.PODOptions) (*PODModes, error) {
	X, shape, err := field.Flatten(fs)
	if err != nil {
		return nil, err
	}
	res, err := decomposition.DecomposePOD(X, opts)
	if err != nil {
		return nil, err
	}
	return &PODModes{PODResult: res, InputShape: shape}, nil
}

// DecomposePODVector runs POD over a series of (Ux, Uy, Uz) surfaces.
func DecomposePODVector(ss []field.VectorSurface, opts decomposition.PODOptions) (*PODModes, error) {
	fs, err := field.VectorSeries(ss)
	if err != nil {
		return nil, err
	}
	return DecomposePODFields(fs, opts)
}

// DecomposePODScalar runs POD over a series of scalar surfaces.
func DecomposePODScalar(ms []mat.Matrix, opts decomposition.PODOptions) (*PODModes, error) {
	return DecomposePODFields(field.ScalarSeries(ms), opts)
}

// DecomposeDMDFields runs DMD over same-shaped fields of any rank.
func DecomposeDMDFields(fs []field.Field, opts decomposition.DMDOptions) (*DMDModes, error) {
	X, shape, err := field.Flatten(fs)
	if err != nil {
		return nil, err
	}
	res, err := decomposition.DecomposeDMD(X, opts)
	if err != nil {
		return nil, err
	}
	return &DMDModes{DMDResult: res, InputShape: shape}, nil
}

// DecomposeDMDVector runs DMD over a series of (Ux, Uy, Uz) surfaces.
func DecomposeDMDVector(ss []field.VectorSurface, opts decomposition.DMDOptions) (*DMDModes, error) {
	fs, err := field.VectorSeries(ss)
	if err != nil {
		return nil, err
	}
	return DecomposeDMDFields(fs, opts)
}

// DecomposeDMDScalar runs DMD over a series of scalar surfaces.
func DecomposeDMDScalar(ms []mat.Matrix, opts decomposition.DMDOptions) (*DMDModes, error) {
	return DecomposeDMDFields(field.ScalarSeries(ms), opts)
}

// Mode returns POD mode i in the spatial layout of the inputs.
func (p *PODModes) Mode(i int) (field.Field, error) {
	flat, err := p.PODResult.Mode(i)
	if err != nil {
		return field.Field{}, err
	}
	return field.Reshape(flat, p.InputShape.Spatial())
}

// Modes returns every POD mode reshaped.
func (p *PODModes) Modes() []field.Field {
	out := make([]field.Field, p.ModeCount)
	for i := range out {
		out[i], _ = p.Mode(i)
	}
	return out
}

// ReconstructFrame rebuilds snapshot frame from the given modes.
func (p *PODModes) ReconstructFrame(frame int, modeIdx []int) (field.Field, error) {
	flat, err := p.Reconstruct(frame, modeIdx)
	if err != nil {
		return field.Field{}, err
	}
	return field.Reshape(flat, p.InputShape.Spatial())
}

// ReconstructFrames rebuilds several snapshots; entry j holds frames[j].
func (p *PODModes) ReconstructFrames(frames, modeIdx []int) ([]field.Field, error) {
	batch, err := p.ReconstructBatch(frames, modeIdx)
	if err != nil {
		return nil, err
	}
	shape := append(field.Shape{len(frames)}, p.InputShape.Spatial()...)
	return field.Unflatten(batch, shape)
}

// Mode returns DMD mode i in the spatial layout of the inputs.
func (d *DMDModes) Mode(i int) (field.ComplexField, error) {
	flat, err := d.DMDResult.Mode(i)
	if err != nil {
		return field.ComplexField{}, err
	}
	return field.ReshapeComplex(flat, d.InputShape.Spatial())
}

// Modes returns every DMD mode reshaped.
func (d *DMDModes) Modes() []field.ComplexField {
	out := make([]field.ComplexField, d.ModeCount)
	for i := range out {
		out[i], _ = d.Mode(i)
	}
	return out
}

// ReconstructField returns the real part of Σ ritz_i^k φ_i over the
// selected modes (nil selects all) in the spatial layout of the inputs.
func (d *DMDModes) ReconstructField(k int, modeIdx []int) (field.Field, error) {
	flat, err := d.ReconstructReal(k, modeIdx)
	if err != nil {
		return field.Field{}, err
	}
	return field.Reshape(flat, d.InputShape.Spatial())
}

// ResidualField returns the residual vector of the fit, reshaped.
func (d *DMDModes) ResidualField() (field.ComplexField, error) {
	cf, err := field.ReshapeComplex(d.ResidualVector(), d.InputShape.Spatial())
	if err != nil {
		return field.ComplexField{}, fmt.Errorf("residual: %w", err)
	}
	return cf, nil
}
