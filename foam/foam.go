// Package foam reads the numeric tables written by the OpenFOAM sample
// utility ("foamFile" format) into snapshot columns.
//
// The reader is deliberately primitive: no FoamFile header dictionary is
// understood. Everything before the first line holding exactly one number
// (the entry count) is skipped; after it every line holding numbers is a
// table row. Lines starting with // are comments.
package foam

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrRaggedTable = errors.New("foam table rows differ in length")
	ErrEmptyTable  = errors.New("foam table has no data rows")
)

var number = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// Parse reads a foamFile table, one matrix row per data line.
func Parse(r io.Reader) (*mat.Dense, error) {
	var (
		rows       [][]float64
		haveHeader bool
		lineNo     int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "//") {
			continue
		}
		fields := number.FindAllString(line, -1)
		if !haveHeader {
			haveHeader = len(fields) == 1
			continue
		}
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, s := range fields {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			row[i] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("line %d has %d values, expected %d: %w",
				lineNo, len(row), len(rows[0]), ErrRaggedTable)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}

	nc := len(rows[0])
	data := make([]float64, 0, len(rows)*nc)
	for _, row := range rows {
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), nc, data), nil
}

// ReadFile parses the foamFile at path.
func ReadFile(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
