// Package archive persists decomposition results as MessagePack records.
package archive

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/notargets/flowmodes/decomposition"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	KindPOD = "pod"
	KindDMD = "dmd"
)

// Record is the stored form of one POD or DMD run. Matrices are kept
// row-major; complex values are split into real and imaginary slices.
type Record struct {
	RunID      string    `msgpack:"run_id"`
	Name       string    `msgpack:"name,omitempty"`
	Kind       string    `msgpack:"kind"`
	Method     string    `msgpack:"method"`
	Created    time.Time `msgpack:"created"`
	InputShape []int     `msgpack:"input_shape,omitempty"`

	ModeCount     int     `msgpack:"mode_count"`
	SnapshotCount int     `msgpack:"snapshot_count"`
	ElementCount  int     `msgpack:"element_count"`
	SubtractMean  bool    `msgpack:"subtract_mean"`
	DT            float64 `msgpack:"dt,omitempty"`

	// POD payload
	Eigenvalues  []float64 `msgpack:"eigenvalues,omitempty"`
	Modes        []float64 `msgpack:"modes,omitempty"`        // elements × ModeCount
	Coefficients []float64 `msgpack:"coefficients,omitempty"` // snapshots × ModeCount

	// DMD payload
	RitzReal  []float64 `msgpack:"ritz_re,omitempty"`
	RitzImag  []float64 `msgpack:"ritz_im,omitempty"`
	ModeNorms []float64 `msgpack:"mode_norms,omitempty"`
	ModesReal []float64 `msgpack:"modes_re,omitempty"`
	ModesImag []float64 `msgpack:"modes_im,omitempty"`
	Residual  float64   `msgpack:"residual,omitempty"`
}

// SpectrumRow is one line of a spectrum listing. For POD records
// Value is the eigenvalue and Energy its share of the total; for DMD
// records Value is |ritz| and Energy the squared mode norm.
type SpectrumRow struct {
	Index     int
	Frequency float64
	Value     float64
	Energy    float64
}

func newRecord(kind string, shape []int) Record {
	return Record{
		RunID:      uuid.NewString(),
		Kind:       kind,
		Created:    time.Now().UTC(),
		InputShape: append([]int(nil), shape...),
	}
}

// FromPOD captures a POD result. shape is the spatial shape of one
// snapshot, or nil for a flat point list.
func FromPOD(res *decomposition.PODResult, shape []int) Record {
	rec := newRecord(KindPOD, shape)
	rec.Method = string(res.Method)
	rec.ModeCount = res.ModeCount
	rec.SnapshotCount = res.SnapshotCount
	rec.ElementCount = res.ElementCount
	rec.SubtractMean = res.SubtractedMean
	rec.Eigenvalues = res.Spectrum()
	rec.Modes = res.Modes().RawMatrix().Data
	rec.Coefficients = res.Coefficients().RawMatrix().Data
	return rec
}

// FromDMD captures a DMD result.
func FromDMD(res *decomposition.DMDResult, shape []int) Record {
	rec := newRecord(KindDMD, shape)
	rec.Method = string(res.Method)
	rec.ModeCount = res.ModeCount
	rec.SnapshotCount = res.SnapshotCount
	rec.ElementCount = res.ElementCount
	rec.SubtractMean = res.SubtractedMean
	rec.DT = res.DT
	rec.RitzReal = res.RitzReal()
	rec.RitzImag = res.RitzImag()
	rec.ModeNorms = res.ModeNorms()
	rec.ModesReal = make([]float64, 0, res.ElementCount*res.ModeCount)
	rec.ModesImag = make([]float64, 0, res.ElementCount*res.ModeCount)
	modes := make([][]complex128, res.ModeCount)
	for i := range modes {
		modes[i], _ = res.Mode(i)
	}
	for e := 0; e < res.ElementCount; e++ {
		for i := 0; i < res.ModeCount; i++ {
			rec.ModesReal = append(rec.ModesReal, real(modes[i][e]))
			rec.ModesImag = append(rec.ModesImag, imag(modes[i][e]))
		}
	}
	rec.Residual = res.Residual()
	return rec
}

// ID parses the run identifier.
func (r *Record) ID() (uuid.UUID, error) {
	return uuid.Parse(r.RunID)
}

// Ritz reassembles the complex ritz values of a DMD record.
func (r *Record) Ritz() []complex128 {
	z := make([]complex128, len(r.RitzReal))
	for i := range z {
		z[i] = complex(r.RitzReal[i], r.RitzImag[i])
	}
	return z
}

// Spectrum lists the modes of the record in storage order.
func (r *Record) Spectrum() []SpectrumRow {
	switch r.Kind {
	case KindPOD:
		var total float64
		for _, v := range r.Eigenvalues {
			total += v
		}
		rows := make([]SpectrumRow, r.ModeCount)
		for i := range rows {
			rows[i] = SpectrumRow{Index: i, Value: r.Eigenvalues[i]}
			if total > 0 {
				rows[i].Energy = r.Eigenvalues[i] / total
			}
		}
		return rows
	case KindDMD:
		ritz := r.Ritz()
		rows := make([]SpectrumRow, len(ritz))
		for i, z := range ritz {
			rows[i] = SpectrumRow{
				Index:     i,
				Frequency: cmplx.Phase(z) / (2 * math.Pi * r.DT),
				Value:     cmplx.Abs(z),
				Energy:    r.ModeNorms[i],
			}
		}
		return rows
	}
	return nil
}

// Band keeps the DMD spectrum rows with f1 <= |frequency| <= f2, so
// both members of a conjugate pair are listed.
func (r *Record) Band(f1, f2 float64) ([]SpectrumRow, error) {
	if f1 > f2 {
		return nil, fmt.Errorf("f1=%g > f2=%g: %w", f1, f2, decomposition.ErrInvalidBand)
	}
	if r.Kind != KindDMD {
		return nil, fmt.Errorf("record %s is %s, frequency bands need a dmd record", r.RunID, r.Kind)
	}
	rows := make([]SpectrumRow, 0)
	for _, row := range r.Spectrum() {
		if f := math.Abs(row.Frequency); f >= f1 && f <= f2 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// Validate checks that the payload lengths agree with the counts.
func (r *Record) Validate() error {
	if _, err := r.ID(); err != nil {
		return fmt.Errorf("record run id: %w", err)
	}
	switch r.Kind {
	case KindPOD:
		if len(r.Eigenvalues) < r.ModeCount ||
			len(r.Modes) != r.ElementCount*r.ModeCount ||
			len(r.Coefficients) != r.SnapshotCount*r.ModeCount {
			return fmt.Errorf("pod record %s: payload does not match %d modes", r.RunID, r.ModeCount)
		}
	case KindDMD:
		if len(r.RitzReal) != r.ModeCount || len(r.RitzImag) != r.ModeCount ||
			len(r.ModeNorms) != r.ModeCount ||
			len(r.ModesReal) != r.ElementCount*r.ModeCount ||
			len(r.ModesImag) != r.ElementCount*r.ModeCount {
			return fmt.Errorf("dmd record %s: payload does not match %d modes", r.RunID, r.ModeCount)
		}
		if r.DT <= 0 {
			return fmt.Errorf("dmd record %s: non-positive dt %g", r.RunID, r.DT)
		}
	default:
		return fmt.Errorf("record %s: unknown kind %q", r.RunID, r.Kind)
	}
	return nil
}

// Save encodes rec onto w.
func Save(w io.Writer, rec Record) error {
	return msgpack.NewEncoder(w).Encode(&rec)
}

// Load decodes and validates one record from r.
func Load(r io.Reader) (*Record, error) {
	var rec Record
	if err := msgpack.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveFile writes rec to path, replacing any existing file.
func SaveFile(path string, rec Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err = Save(w, rec); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err = w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a record written by SaveFile.
func LoadFile(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rec, err := Load(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}
