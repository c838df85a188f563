package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/mdtrj"
	v3 "github.com/rmera/mdtrj/v3"
)

func testSeries(t *testing.T) *mdtrj.GyrationSeries {
	t.Helper()
	var frames []*v3.Matrix
	for _, data := range [][]float64{
		{0, 0, 0, 2, 0, 0, 0, 3, 0},
		{0, 0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 0, 0, 4, 1, 2, 0},
	} {
		f, err := v3.NewMatrix(data)
		require.NoError(t, err)
		frames = append(frames, f)
	}
	series, err := mdtrj.GyrationTraj(frames, mdtrj.NoMass(), nil)
	require.NoError(t, err)
	return series
}

func TestSaveLoadGyration(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	series := testSeries(t)
	id, err := db.SaveGyration("traj.stf", series)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	rows, err := db.LoadGyration(id)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i, r.Frame)
		assert.Equal(t, 3, r.Atoms)
		assert.InDelta(t, series.Rg()[i], r.Rg, 1e-12)
	}
	assert.InDelta(t, series.Anisotropy()[0], rows[0].Anisotropy, 1e-12)
	assert.Empty(t, rows[0].Error)

	//frame 1 collapsed to a point (the three atoms are the same).
	assert.True(t, math.IsNaN(rows[1].Anisotropy))
	assert.True(t, math.IsNaN(rows[1].Tan2XG[0]))
	assert.Equal(t, series.Shape(1).Degenerate, rows[1].Degenerate)
	assert.NotEmpty(t, rows[1].Error)

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "traj.stf", runs[0].Source)
	assert.Equal(t, 3, runs[0].Frames)
	assert.Equal(t, 0, runs[0].Failed)
}

func TestEmptySelectionRun(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	f, err := v3.NewMatrix([]float64{0, 0, 0, 1, 1, 1})
	require.NoError(t, err)
	series, err := mdtrj.GyrationTraj([]*v3.Matrix{f, f}, mdtrj.NoMass(), []mdtrj.Selection{mdtrj.FirstAtoms(0)})
	require.NoError(t, err)
	id, err := db.SaveGyration("empty", series)
	require.NoError(t, err)
	rows, err := db.LoadGyration(id)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, 0, r.Atoms)
		assert.True(t, math.IsNaN(r.Rg))
		assert.Contains(t, r.Error, "no atoms selected")
	}
}

func TestLoadUnknownRun(t *testing.T) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()
	_, err = db.LoadGyration(uuid.New())
	assert.Error(t, err)
	_, err = db.SaveGyration("nil", nil)
	assert.Error(t, err)
}
