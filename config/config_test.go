package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/mdtrj"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const yamlJob = `
trajectory: prod.stf
database: runs.db
topology:
  atoms: 4
  bonds: [[0, 1], [1, 2], [2, 3]]
  box: [30, 30, 40]
  mass: 12
unwrap:
  enabled: true
  method: sorted
  center: true
selection:
  count: 3
pairs: [[0, 3]]
cpus: 2
`

const tomlJob = `
trajectory = "prod.stf"
trajectories = ["run1.stf", "run2.stz"]
log_level = "debug"

[frames]
start = 10
skip = 5

[topology]
file = "top.toml"

[unwrap]
enabled = false
method = "bfs"

[selection]
ids = [3, 1]
`

const tomlTopology = `
atoms = 4
bonds = [[0, 1], [2, 3]]
box = [10.0, 20.0, 30.0]
masses = [1.0, 12.0, 16.0, 1.0]
`

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "job.yaml", yamlJob)
	job, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "prod.stf", job.Trajectory)
	assert.Equal(t, "runs.db", job.Database)
	assert.Equal(t, DefaultLogLevel, job.LogLevel)
	assert.Equal(t, mdtrj.Sorted, job.Unwrap.Method)
	assert.Equal(t, []string{"prod.stf"}, job.TrajectoryFiles())
	assert.Equal(t, FramesConfig{End: -1, Skip: 1}, job.Frames)

	top, err := job.BuildTopology()
	require.NoError(t, err)
	assert.Equal(t, 4, top.Atoms)
	assert.Equal(t, mdtrj.Box{30, 30, 40}, top.Box)
	assert.Equal(t, 12.0, top.Masses.Mass(3))
	if diff := cmp.Diff([]mdtrj.Bond{{0, 1}, {1, 2}, {2, 3}}, top.Bonds); diff != "" {
		t.Errorf("bonds mismatch (-want +got):\n%s", diff)
	}

	ids, err := job.AtomSelection().Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)
	assert.Equal(t, [][2]int{{0, 3}}, job.AtomPairs())

	o := job.Options()
	assert.Equal(t, 2, o.Cpus())
	assert.Equal(t, mdtrj.Sorted, o.Method())
	assert.True(t, o.Center())
}

func TestLoadTOMLWithTopologyFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "top.toml", tomlTopology)
	path := writeFile(t, dir, "job.toml", tomlJob)
	job, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", job.LogLevel)
	assert.False(t, job.Unwrap.Enabled)
	assert.Equal(t, []string{"run1.stf", "run2.stz"}, job.TrajectoryFiles())
	assert.Equal(t, FramesConfig{Start: 10, End: -1, Skip: 5}, job.Frames)

	top, err := job.BuildTopology()
	require.NoError(t, err)
	assert.Equal(t, mdtrj.Box{10, 20, 30}, top.Box)
	assert.Equal(t, 16.0, top.Masses.Mass(2))
	assert.Len(t, top.Bonds, 2)

	ids, err := job.AtomSelection().Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, ids)
}

func TestSelectionDefaults(t *testing.T) {
	job := DefaultJob()
	ids, err := job.AtomSelection().Resolve(3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids)

	zero := 0
	job.Selection.Count = &zero
	_, err = job.AtomSelection().Resolve(3)
	assert.True(t, errors.Is(err, mdtrj.ErrEmptySelection))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(writeFile(t, dir, "job.json", `{}`))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "bad.yaml", "unwrap:\n  method: spiral\n"))
	assert.ErrorContains(t, err, "unknown unwrap method")

	_, err = Load(writeFile(t, dir, "pairs.yaml", "pairs: [[0, 1, 2]]\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "frames.yaml", "frames:\n  skip: 0\n"))
	assert.ErrorContains(t, err, "invalid range")
	_, err = Load(writeFile(t, dir, "range.yaml", "frames:\n  start: 5\n  end: 2\n"))
	assert.ErrorContains(t, err, "invalid range")

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	job := DefaultJob()
	job.Topology = TopologyConfig{Atoms: 2, Bonds: [][]int{{0, 2}}, Box: []float64{10, 10, 10}}
	_, err = job.BuildTopology()
	assert.ErrorIs(t, err, mdtrj.ErrShapeMismatch)

	job.Topology = TopologyConfig{Atoms: 2, Box: []float64{10, 10}}
	_, err = job.BuildTopology()
	assert.ErrorIs(t, err, mdtrj.ErrShapeMismatch)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"job.yaml", "job.toml"} {
		job := DefaultJob()
		job.Trajectory = "a.stf"
		job.Topology = TopologyConfig{Atoms: 2, Bonds: [][]int{{0, 1}}, Box: []float64{5, 5, 5}}
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, job))
		loaded, err := Load(path)
		require.NoError(t, err)
		if diff := cmp.Diff(job, loaded); diff != "" {
			t.Errorf("%s: job mismatch (-want +got):\n%s", name, diff)
		}
	}
}
