/*
 * trjstat.go, part of mdtrj.
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

// Package trjstat contains statistics for the per-frame series produced by mdtrj,
// such as the radius of gyration along a trajectory. Frames where a descriptor is
// undefined (NaN or Inf) are skipped or replaced, as indicated by each function.
package trjstat

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrNoData         = errors.New("trjstat: no finite values in series")
	ErrConstantSeries = errors.New("trjstat: series has zero variance")
	ErrNoFullCycle    = errors.New("trjstat: series has no complete peak or valley")
)

// Summary contains basic statistics of a series.
type Summary struct {
	N       int //finite values used
	Skipped int //NaN or Inf values
	Mean    float64
	StdDev  float64 //sample standard deviation, 0 if N is 1
	Min     float64
	Max     float64
}

func (S Summary) String() string {
	return fmt.Sprintf("n=%d skipped=%d mean=%.4f sd=%.4f min=%.4f max=%.4f", S.N, S.Skipped, S.Mean, S.StdDev, S.Min, S.Max)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finite(series []float64) []float64 {
	ret := make([]float64, 0, len(series))
	for _, v := range series {
		if isFinite(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// Summarize returns the statistics of the finite values in series.
func Summarize(series []float64) (Summary, error) {
	f := finite(series)
	S := Summary{N: len(f), Skipped: len(series) - len(f)}
	if len(f) == 0 {
		return S, ErrNoData
	}
	S.Min = floats.Min(f)
	S.Max = floats.Max(f)
	if len(f) == 1 {
		S.Mean = f[0]
		return S, nil
	}
	S.Mean, S.StdDev = stat.MeanStdDev(f, nil)
	return S, nil
}

// Histogram counts the finite values of series in the bins defined by dividers,
// which must be sorted and have at least 2 elements. Values outside the
// dividers are ignored, the last divider is inclusive.
func Histogram(series, dividers []float64) ([]float64, error) {
	if len(dividers) < 2 || !sort.Float64sAreSorted(dividers) {
		return nil, fmt.Errorf("trjstat: need at least 2 sorted dividers, got %v", dividers)
	}
	f := finite(series)
	in := f[:0]
	for _, v := range f {
		if v >= dividers[0] && v <= dividers[len(dividers)-1] {
			in = append(in, v)
		}
	}
	sort.Float64s(in)
	//stat.Histogram panics for values equal to the last divider.
	last := make([]float64, len(dividers))
	copy(last, dividers)
	last[len(last)-1] = math.Nextafter(last[len(last)-1], math.Inf(1))
	return stat.Histogram(nil, last, in, nil), nil
}

func cmplxMulConj(dst, b []complex128) {
	if len(dst) != len(b) {
		panic(fmt.Sprintf("complex conjugate multiplication of slices: Both slices should have the same len %d, %d", len(dst), len(b)))
	}
	for i, v := range b {
		dst[i] *= cmplx.Conj(v)
	}
}

// fillMean returns a copy of series where non-finite values are replaced by the mean of the finite ones.
func fillMean(series []float64) ([]float64, error) {
	f := finite(series)
	if len(f) == 0 {
		return nil, ErrNoData
	}
	mean := stat.Mean(f, nil)
	ret := make([]float64, len(series))
	for i, v := range series {
		if isFinite(v) {
			ret[i] = v
		} else {
			ret[i] = mean
		}
	}
	return ret, nil
}

// CrossCorrelation returns the normalized cross-correlation of the series c1 and c2, which must have the
// same length, for the lags 0..len(c1)-1. ret[k] = sum_t (c1[t]-m1)(c2[t+k]-m2) / (n s1 s2), where
// m and s are the mean and population standard deviation of each series. It is calculated with a
// zero-padded FFT. Non-finite values are replaced by the mean of the series.
func CrossCorrelation(c1, c2 []float64) ([]float64, error) {
	if len(c1) != len(c2) {
		return nil, fmt.Errorf("trjstat: series of different lengths %d and %d", len(c1), len(c2))
	}
	c1, err := fillMean(c1)
	if err != nil {
		return nil, err
	}
	c2, err = fillMean(c2)
	if err != nil {
		return nil, err
	}
	n := len(c1)
	m1, v1 := stat.PopMeanVariance(c1, nil)
	m2, v2 := stat.PopMeanVariance(c2, nil)
	if v1 == 0 || v2 == 0 {
		return nil, ErrConstantSeries
	}
	c1pad := make([]complex128, 2*n)
	c2pad := make([]complex128, 2*n)
	for i := range c1 {
		c1pad[i] = complex(c1[i]-m1, 0)
		c2pad[i] = complex(c2[i]-m2, 0)
	}
	f := fourier.NewCmplxFFT(len(c1pad))
	f.Coefficients(c1pad, c1pad)
	f.Coefficients(c2pad, c2pad)
	//conj(F1)*F2 is the transform of the correlation at positive lags of c2 with respect to c1.
	cmplxMulConj(c2pad, c1pad)
	f.Sequence(c2pad, c2pad)
	norm := float64(len(c2pad)) * float64(n) * math.Sqrt(v1*v2) //the FFT is not normalized
	ret := make([]float64, n)
	for i := range ret {
		ret[i] = real(c2pad[i]) / norm
	}
	return ret, nil
}

// Autocorrelation returns the normalized autocorrelation function of series for the lags
// 0..len(series)-1, so ret[0] is 1. See CrossCorrelation.
func Autocorrelation(series []float64) ([]float64, error) {
	return CrossCorrelation(series, series)
}

// SquareWaveRuns splits series, a square wave where 1 is a peak and any other value a valley,
// into runs of equal state, and returns the lengths of the peak runs and of the valley runs,
// in order. The last run is still open at the end of the series and it is not included.
func SquareWaveRuns(series []float64) (peaks, valleys []int) {
	if len(series) == 0 {
		return nil, nil
	}
	start := 0
	peak := series[0] == 1
	for i, v := range series {
		if (v == 1) == peak {
			continue
		}
		if peak {
			peaks = append(peaks, i-start)
		} else {
			valleys = append(valleys, i-start)
		}
		start = i
		peak = !peak
	}
	return peaks, valleys
}

// filterRuns drops the runs not longer than half the mean run, and then the first and
// last runs, if at least 5 remain.
func filterRuns(runs []int) []float64 {
	if len(runs) == 0 {
		return nil
	}
	f := make([]float64, len(runs))
	for i, v := range runs {
		f[i] = float64(v)
	}
	half := stat.Mean(f, nil) / 2
	ret := f[:0]
	for _, v := range f {
		if v > half {
			ret = append(ret, v)
		}
	}
	if len(ret) >= 5 {
		ret = ret[1 : len(ret)-1]
	}
	return ret
}

// SquareWavePeriod estimates the period, in frames, of the square wave series (see SquareWaveRuns)
// as twice the mean length of its runs. Runs not longer than half the mean length of the runs of
// the same state are considered noise and ignored, and so are the first and the last runs of a
// state with at least 5 of them. If the series doesn't contain a single complete run, the period
// can't be estimated, and the length of the series is returned, with ErrNoFullCycle.
func SquareWavePeriod(series []float64) (float64, error) {
	peaks, valleys := SquareWaveRuns(series)
	runs := append(filterRuns(peaks), filterRuns(valleys)...)
	if len(runs) == 0 {
		return float64(len(series)), ErrNoFullCycle
	}
	return 2 * stat.Mean(runs, nil), nil
}

// Contacts returns a series that is 1 where the finite values of distances are below cutoff,
// and 0 elsewhere, suitable for SquareWavePeriod.
func Contacts(distances []float64, cutoff float64) []float64 {
	ret := make([]float64, len(distances))
	for i, d := range distances {
		if isFinite(d) && d < cutoff {
			ret[i] = 1
		}
	}
	return ret
}
