package decomposition

import (
	"fmt"
	"math"
	"math/cmplx"
	"sort"
)

func argsortStable(vals []float64) []int {
	idx := allIndices(len(vals))
	sort.SliceStable(idx, func(a, b int) bool {
		return vals[idx[a]] < vals[idx[b]]
	})
	return idx
}

// FrequencySortedIndices splits the modes into strictly positive and
// strictly negative frequencies, each ordered by increasing |frequency|.
// Zero-frequency modes belong to neither group. When the groups differ
// in length both are truncated to the shorter one so conjugate pairs
// stay aligned. posFreqs holds the frequencies of pos.
func (r *DMDResult) FrequencySortedIndices() (pos, neg []int, posFreqs []float64) {
	angles := r.RitzAngle()
	order := argsortStable(angles)
	for _, i := range order {
		if angles[i] > 0 {
			pos = append(pos, i)
		}
	}
	for k := len(order) - 1; k >= 0; k-- {
		if i := order[k]; angles[i] < 0 {
			neg = append(neg, i)
		}
	}
	if len(pos) != len(neg) {
		l := min(len(pos), len(neg))
		pos, neg = pos[:l], neg[:l]
	}
	return pos, neg, r.FrequencyList(pos)
}

// NormSortedIndices orders the modes by increasing norm.
func (r *DMDResult) NormSortedIndices() []int {
	return argsortStable(r.modeNorms)
}

// GrowthSortedIndices orders the modes by increasing |ritz|.
func (r *DMDResult) GrowthSortedIndices() []int {
	return argsortStable(r.mapRitz(cmplx.Abs))
}

// NearestIndex returns the position in freqs closest to f. Ties resolve
// to the first position.
func NearestIndex(freqs []float64, f float64) (int, error) {
	if len(freqs) == 0 {
		return 0, fmt.Errorf("no frequencies to search: %w", ErrIndexRange)
	}
	best, bestDiff := 0, math.Inf(1)
	for i, v := range freqs {
		if d := math.Abs(v - f); d < bestDiff {
			best, bestDiff = i, d
		}
	}
	return best, nil
}

// NearestFrequencyIndex returns the mode whose frequency is closest to f.
func (r *DMDResult) NearestFrequencyIndex(f float64) int {
	idx, _ := NearestIndex(r.Frequencies(), f)
	return idx
}

// FrequencyBandIndices returns the sorted, duplicate-free modes of both
// frequency signs whose position in the frequency-sorted lists falls
// between the closest matches of f1 and f2.
func (r *DMDResult) FrequencyBandIndices(f1, f2 float64) ([]int, error) {
	if f1 > f2 {
		return nil, fmt.Errorf("f1=%g > f2=%g: %w", f1, f2, ErrInvalidBand)
	}
	pos, neg, freqs := r.FrequencySortedIndices()
	if len(freqs) == 0 {
		return []int{}, nil
	}
	i1, _ := NearestIndex(freqs, f1)
	i2, _ := NearestIndex(freqs, f2)

	seen := make(map[int]bool)
	res := make([]int, 0, 2*(i2-i1+1))
	for _, group := range [][]int{pos, neg} {
		for _, i := range group[i1:min(i2+1, len(group))] {
			if !seen[i] {
				seen[i] = true
				res = append(res, i)
			}
		}
	}
	sort.Ints(res)
	return res, nil
}
