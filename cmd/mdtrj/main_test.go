package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmera/mdtrj"
	"github.com/rmera/mdtrj/traj/stf"
	v3 "github.com/rmera/mdtrj/v3"
)

// writeBrokenDimer writes a trajectory of a bonded pair of atoms split by
// the x boundary of a 10x10x10 box.
func writeBrokenDimer(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "dimer.stf")
	w, err := stf.NewWriter(path, 2, map[string]string{"source": "test"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		f := v3.Zeros(2)
		f.SetVec(0, [3]float64{1, 5, float64(i)})
		f.SetVec(1, [3]float64{9, 5, float64(i)})
		require.NoError(t, w.WNextBox(f, mdtrj.Box{10, 10, 10}))
	}
	require.NoError(t, w.Close())
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, logs bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&logs)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestUnwrapCommand(t *testing.T) {
	dir := t.TempDir()
	traj := writeBrokenDimer(t, dir)
	job := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(job, []byte("topology:\n  bonds: [[0, 1]]\n"), 0644))
	output := filepath.Join(dir, "whole.stz")

	out, err := run(t, "unwrap", traj, "--config", job, "-o", output)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 3 unwrapped frames")

	frames, boxes, header, err := stf.ReadFile(output)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, mdtrj.BFS, header["unwrapped"])
	assert.Equal(t, "test", header["source"])
	assert.Equal(t, mdtrj.Box{10, 10, 10}, boxes[2])
	assert.InDelta(t, -1.0, frames[1].At(1, 0), 0.005)
}

func TestGyrationCommand(t *testing.T) {
	dir := t.TempDir()
	traj := writeBrokenDimer(t, dir)
	job := filepath.Join(dir, "job.toml")
	require.NoError(t, os.WriteFile(job, []byte("[topology]\nbonds = [[0, 1]]\n"), 0644))
	db := filepath.Join(dir, "runs.db")

	out, err := run(t, "gyration", traj, "--config", job, "--stats", "--db", db, "--cpus", "2")
	require.NoError(t, err)
	lines := strings.Split(out, "\n")
	require.Greater(t, len(lines), 4)
	assert.True(t, strings.HasPrefix(lines[0], "FRAME"))
	assert.Contains(t, lines[1], "1.0000")
	assert.Contains(t, out, "DESCRIPTOR")
	assert.Contains(t, out, "stored run")

	out, err = run(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, traj)

	//without unwrapping, the atoms are 8 apart.
	out, err = run(t, "gyration", traj, "--unwrap=false")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(out, "\n")[1], "4.0000")
}

func TestDistanceCommand(t *testing.T) {
	traj := writeBrokenDimer(t, t.TempDir())
	out, err := run(t, "distance", traj, "--pair", "0,1")
	require.NoError(t, err)
	assert.Contains(t, out, "0-1")
	assert.Contains(t, out, "8.0000")

	//the pairs given as flags replace the ones of the job
	job := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(job, []byte("pairs: [[0, 0], [1, 1]]\n"), 0644))
	out, err = run(t, "distance", traj, "--config", job, "--pair", "0,1")
	require.NoError(t, err)
	assert.Equal(t, []string{"FRAME", "0-1"}, strings.Fields(strings.Split(out, "\n")[0]))

	_, err = run(t, "distance", traj)
	assert.Error(t, err)
	_, err = run(t, "distance", traj, "--pair", "0-1")
	assert.Error(t, err)
}

func TestRcmAndAreaCommands(t *testing.T) {
	traj := writeBrokenDimer(t, t.TempDir())
	out, err := run(t, "rcm", traj)
	require.NoError(t, err)
	assert.Contains(t, out, "5.0000")

	out, err = run(t, "area", traj)
	require.NoError(t, err)
	assert.Contains(t, out, "AREA")
	assert.Contains(t, out, "NaN")
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "gyration")
	assert.ErrorContains(t, err, "no trajectory")
	_, err = run(t, "rcm", "missing.stf")
	assert.Error(t, err)
	_, err = run(t, "rcm", "missing.stf", "--log-level", "loud")
	assert.Error(t, err)
	_, err = run(t, "runs")
	assert.Error(t, err)
}

func TestFrameRange(t *testing.T) {
	traj := writeBrokenDimer(t, t.TempDir())
	out, err := run(t, "rcm", traj, "--start", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"0", "5.0000", "5.0000", "1.0000"}, strings.Fields(lines[1]))

	out, err = run(t, "rcm", traj, "--skip", "2")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2.0000", strings.Fields(lines[2])[3])

	out, err = run(t, "rcm", traj, "--start", "1", "--end", "2")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)

	_, err = run(t, "rcm", traj, "--skip", "0")
	assert.ErrorContains(t, err, "invalid range")
	_, err = run(t, "rcm", traj, "--start", "5")
	assert.ErrorContains(t, err, "no frames")
}

func TestSeveralTrajectories(t *testing.T) {
	first := writeBrokenDimer(t, t.TempDir())
	second := writeBrokenDimer(t, t.TempDir())
	out, err := run(t, "rcm", first, second)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "trajectory: "))
	assert.Contains(t, out, "trajectory: "+second)

	dir := t.TempDir()
	job := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(job, []byte("topology:\n  bonds: [[0, 1]]\n"), 0644))
	db := filepath.Join(dir, "runs.db")
	out, err = run(t, "gyration", first, second, "--config", job, "--db", db)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "stored run"))
	out, err = run(t, "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, first)
	assert.Contains(t, out, second)

	_, err = run(t, "unwrap", first, second, "-o", filepath.Join(dir, "out.stf"))
	assert.Error(t, err)
}

func TestContactPeriod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contact.stf")
	w, err := stf.NewWriter(path, 2, nil)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		f := v3.Zeros(2)
		d := 5.0
		if i%4 < 2 {
			d = 1
		}
		f.SetVec(1, [3]float64{d, 0, 0})
		require.NoError(t, w.WNext(f))
	}
	require.NoError(t, w.Close())

	out, err := run(t, "distance", path, "--pair", "0,1", "--contact", "2")
	require.NoError(t, err)
	require.Contains(t, out, "CONTACT_PERIOD")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"0-1", "4.0000"}, strings.Fields(lines[len(lines)-1]))

	//the atoms are never in contact
	out, err = run(t, "distance", path, "--pair", "0,1", "--contact", "0.5")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, []string{"0-1", "-"}, strings.Fields(lines[len(lines)-1]))

	_, err = run(t, "distance", path, "--pair", "0,1", "--contact", "-1")
	assert.Error(t, err)
}
