package trjstat

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func naiveCorr(a, b []float64) []float64 {
	n := len(a)
	var ma, mb float64
	for i := range a {
		ma += a[i]
		mb += b[i]
	}
	ma /= float64(n)
	mb /= float64(n)
	var va, vb float64
	for i := range a {
		va += (a[i] - ma) * (a[i] - ma)
		vb += (b[i] - mb) * (b[i] - mb)
	}
	va /= float64(n)
	vb /= float64(n)
	ret := make([]float64, n)
	for k := range ret {
		for t := 0; t+k < n; t++ {
			ret[k] += (a[t] - ma) * (b[t+k] - mb)
		}
		ret[k] /= float64(n) * math.Sqrt(va*vb)
	}
	return ret
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{1, math.NaN(), 3, math.Inf(1), 5})
	require.NoError(t, err)
	assert.Equal(t, 3, s.N)
	assert.Equal(t, 2, s.Skipped)
	assert.InDelta(t, 3, s.Mean, 1e-12)
	assert.InDelta(t, 2, s.StdDev, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)

	s, err = Summarize([]float64{4})
	require.NoError(t, err)
	assert.Equal(t, 4.0, s.Mean)
	assert.Equal(t, 0.0, s.StdDev)

	_, err = Summarize([]float64{math.NaN()})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestHistogram(t *testing.T) {
	h, err := Histogram([]float64{0.5, 1.5, 1.7, 2, math.NaN(), 7, -1}, []float64{0, 1, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, h)

	_, err = Histogram([]float64{1}, []float64{2, 1})
	assert.Error(t, err)
}

func TestAutocorrelation(t *testing.T) {
	series := make([]float64, 64)
	for i := range series {
		series[i] = math.Sin(float64(i)*0.3) + 0.1*float64(i%5)
	}
	acf, err := Autocorrelation(series)
	require.NoError(t, err)
	require.Len(t, acf, len(series))
	assert.InDelta(t, 1, acf[0], 1e-12)
	expected := naiveCorr(series, series)
	assert.InDeltaSlice(t, expected, acf, 1e-9)
}

func TestCrossCorrelation(t *testing.T) {
	n := 40
	a := make([]float64, n)
	b := make([]float64, n)
	for i := range a {
		a[i] = math.Cos(float64(i) * 0.5)
		b[i] = math.Cos(float64(i-3)*0.5) + 0.01*float64(i)
	}
	cc, err := CrossCorrelation(a, b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, naiveCorr(a, b), cc, 1e-9)

	_, err = CrossCorrelation(a, b[1:])
	assert.Error(t, err)
	_, err = Autocorrelation([]float64{2, 2, 2})
	assert.ErrorIs(t, err, ErrConstantSeries)
}

func TestAutocorrelationNonFinite(t *testing.T) {
	series := []float64{1, 2, math.NaN(), 4, 5, math.Inf(-1)}
	filled := []float64{1, 2, 3, 4, 5, 3}
	acf, err := Autocorrelation(series)
	require.NoError(t, err)
	assert.InDeltaSlice(t, naiveCorr(filled, filled), acf, 1e-9)
}

func TestSquareWaveRuns(t *testing.T) {
	peaks, valleys := SquareWaveRuns([]float64{0, 0, 1, 1, 1, 0, 1})
	assert.Equal(t, []int{3}, peaks)
	assert.Equal(t, []int{2, 1}, valleys)
	peaks, valleys = SquareWaveRuns([]float64{1, 2, 0, 1})
	assert.Equal(t, []int{1}, peaks)
	assert.Equal(t, []int{2}, valleys)
	peaks, valleys = SquareWaveRuns(nil)
	assert.Empty(t, peaks)
	assert.Empty(t, valleys)
}

func TestSquareWavePeriod(t *testing.T) {
	series := make([]float64, 60)
	for i := range series {
		if i%10 < 5 {
			series[i] = 1
		}
	}
	T, err := SquareWavePeriod(series)
	require.NoError(t, err)
	assert.InDelta(t, 10, T, 1e-12)

	//a one-frame glitch splits a peak into two short ones and adds a short valley
	series[22] = 0
	T, err = SquareWavePeriod(series)
	require.NoError(t, err)
	assert.InDelta(t, 10, T, 1e-12)

	T, err = SquareWavePeriod([]float64{1, 1, 1})
	assert.ErrorIs(t, err, ErrNoFullCycle)
	assert.Equal(t, 3.0, T)
	_, err = SquareWavePeriod(nil)
	assert.ErrorIs(t, err, ErrNoFullCycle)
}

func TestContacts(t *testing.T) {
	c := Contacts([]float64{0.5, 2, math.NaN(), 0.9, 1}, 1)
	assert.Equal(t, []float64{1, 0, 0, 1, 0}, c)
}
