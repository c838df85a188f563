// Package config reads the description of an analysis job from a YAML or TOML file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/rmera/mdtrj"
)

const (
	DefaultMethod   = mdtrj.BFS
	DefaultLogLevel = "info"
)

// Job describes one analysis of a trajectory.
type Job struct {
	Trajectory   string          `yaml:"trajectory" toml:"trajectory"`
	Trajectories []string        `yaml:"trajectories,omitempty" toml:"trajectories,omitempty"`
	Frames       FramesConfig    `yaml:"frames" toml:"frames"`
	Output       string          `yaml:"output,omitempty" toml:"output,omitempty"`
	Database     string          `yaml:"database,omitempty" toml:"database,omitempty"`
	Topology     TopologyConfig  `yaml:"topology" toml:"topology"`
	Unwrap       UnwrapConfig    `yaml:"unwrap" toml:"unwrap"`
	Selection    SelectionConfig `yaml:"selection" toml:"selection"`
	Pairs        [][]int         `yaml:"pairs,omitempty" toml:"pairs,omitempty"`
	Cpus         int             `yaml:"cpus,omitempty" toml:"cpus,omitempty"`
	LogLevel     string          `yaml:"log_level" toml:"log_level"`
}

// FramesConfig selects the frames Start, Start+Skip... before End. A negative End
// reads to the end of the trajectory.
type FramesConfig struct {
	Start int `yaml:"start" toml:"start"`
	End   int `yaml:"end" toml:"end"`
	Skip  int `yaml:"skip" toml:"skip"`
}

// TopologyConfig gives the topology inline, or the path of a file (YAML or TOML) containing it.
type TopologyConfig struct {
	File   string    `yaml:"file,omitempty" toml:"file,omitempty"`
	Atoms  int       `yaml:"atoms" toml:"atoms"`
	Bonds  [][]int   `yaml:"bonds" toml:"bonds"`
	Box    []float64 `yaml:"box" toml:"box"`
	Mass   float64   `yaml:"mass,omitempty" toml:"mass,omitempty"`
	Masses []float64 `yaml:"masses,omitempty" toml:"masses,omitempty"`
}

type UnwrapConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Method  string `yaml:"method" toml:"method"`
	Center  bool   `yaml:"center" toml:"center"`
}

// SelectionConfig selects the first Count atoms, if Count is given, or
// the atoms in IDs. If neither is given, all atoms are selected.
type SelectionConfig struct {
	Count *int  `yaml:"count,omitempty" toml:"count,omitempty"`
	IDs   []int `yaml:"ids,omitempty" toml:"ids,omitempty"`
}

// DefaultJob returns a Job with the default values.
func DefaultJob() *Job {
	return &Job{
		Frames:   FramesConfig{End: -1, Skip: 1},
		Unwrap:   UnwrapConfig{Enabled: true, Method: DefaultMethod},
		LogLevel: DefaultLogLevel,
	}
}

// TrajectoryFiles returns the trajectories of the job: the list in Trajectories,
// or else the single Trajectory, if any.
func (J *Job) TrajectoryFiles() []string {
	if len(J.Trajectories) > 0 {
		return J.Trajectories
	}
	if J.Trajectory != "" {
		return []string{J.Trajectory}
	}
	return nil
}

func decode(path string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	case ".toml":
		_, err := toml.Decode(string(data), v)
		return err
	default:
		return fmt.Errorf("unknown configuration format %q, use .yaml, .yml or .toml", filepath.Ext(path))
	}
}

// Load reads the job in path, which may be a YAML (.yaml, .yml) or TOML (.toml) file.
// Values not given in the file keep their defaults. A topology file is resolved
// relative to the directory of path.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	job := DefaultJob()
	if err := decode(path, data, job); err != nil {
		return nil, fmt.Errorf("load job %s: %w", path, err)
	}
	if f := job.Topology.File; f != "" {
		if !filepath.IsAbs(f) {
			f = filepath.Join(filepath.Dir(path), f)
		}
		if job.Topology, err = LoadTopology(f); err != nil {
			return nil, err
		}
	}
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("load job %s: %w", path, err)
	}
	return job, nil
}

// LoadTopology reads a YAML or TOML file containing only a topology.
func LoadTopology(path string) (TopologyConfig, error) {
	var top TopologyConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return top, fmt.Errorf("load topology: %w", err)
	}
	if err := decode(path, data, &top); err != nil {
		return top, fmt.Errorf("load topology %s: %w", path, err)
	}
	top.File = path
	return top, nil
}

// Save writes the job to path, as YAML or TOML depending on the extension.
func Save(path string, job *Job) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(job)
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(job)
		data = buf.Bytes()
	default:
		err = fmt.Errorf("unknown configuration format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the values that don't depend on the trajectory.
func (J *Job) Validate() error {
	if m := J.Unwrap.Method; m != mdtrj.BFS && m != mdtrj.Sorted {
		return fmt.Errorf("unknown unwrap method %q", m)
	}
	if J.Cpus < 0 {
		return fmt.Errorf("cpus must not be negative, got %d", J.Cpus)
	}
	if f := J.Frames; f.Start < 0 || f.Skip < 1 || (f.End >= 0 && f.End < f.Start) {
		return fmt.Errorf("frames: invalid range start=%d end=%d skip=%d", f.Start, f.End, f.Skip)
	}
	for i, p := range J.Pairs {
		if len(p) != 2 {
			return fmt.Errorf("pair %d must have 2 atoms, got %v", i, p)
		}
	}
	if J.Selection.Count != nil && len(J.Selection.IDs) > 0 {
		return fmt.Errorf("selection: give either count or ids, not both")
	}
	return nil
}

// BuildTopology returns the validated topology of the job.
func (J *Job) BuildTopology() (*mdtrj.Topology, error) {
	c := J.Topology
	top := &mdtrj.Topology{Atoms: c.Atoms}
	for i, b := range c.Bonds {
		if len(b) != 2 {
			return nil, fmt.Errorf("bond %d must have 2 atoms, got %v", i, b)
		}
		top.Bonds = append(top.Bonds, mdtrj.Bond{b[0], b[1]})
	}
	box, err := mdtrj.NewBox(c.Box)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	top.Box = box
	top.Masses = J.MassProfile()
	if err := top.Validate(); err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	return top, nil
}

// MassProfile returns the per-atom masses of the topology, if given, then the
// uniform mass, and NoMass if neither is.
func (J *Job) MassProfile() mdtrj.MassProfile {
	c := J.Topology
	switch {
	case len(c.Masses) > 0:
		return mdtrj.PerAtomMass(c.Masses)
	case c.Mass > 0:
		return mdtrj.UniformMass(c.Mass)
	default:
		return mdtrj.NoMass()
	}
}

// AtomSelection returns the selection of the job.
func (J *Job) AtomSelection() mdtrj.Selection {
	s := J.Selection
	if s.Count != nil {
		return mdtrj.FirstAtoms(*s.Count)
	}
	return mdtrj.AtomIDs(s.IDs...)
}

// AtomPairs returns the pairs of the job as arrays.
func (J *Job) AtomPairs() [][2]int {
	ret := make([][2]int, 0, len(J.Pairs))
	for _, p := range J.Pairs {
		ret = append(ret, [2]int{p[0], p[1]})
	}
	return ret
}

// Options returns the mdtrj options for the job.
func (J *Job) Options() *mdtrj.Options {
	o := mdtrj.DefaultOptions()
	o.Cpus(J.Cpus)
	o.Method(J.Unwrap.Method)
	o.Center(J.Unwrap.Center)
	return o
}
