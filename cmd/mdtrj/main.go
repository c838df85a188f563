// Command mdtrj runs the trajectory analyses of the mdtrj library on STF trajectories.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rmera/mdtrj"
	"github.com/rmera/mdtrj/config"
	"github.com/rmera/mdtrj/internal/logging"
	"github.com/rmera/mdtrj/traj/stf"
	v3 "github.com/rmera/mdtrj/v3"
)

// app holds the persistent flags and the job shared by all the subcommands.
type app struct {
	configFile string
	cpus       int
	logLevel   string
	frames     config.FramesConfig
	job        *config.Job
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := new(app)
	root := &cobra.Command{
		Use:               "mdtrj",
		Short:             "analysis of molecular dynamics trajectories",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "job file (yaml or toml)")
	pf.IntVar(&a.cpus, "cpus", 0, "frames processed concurrently (default: the job's value, or one per CPU)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.IntVar(&a.frames.Start, "start", 0, "first frame to read (default: the job's value)")
	pf.IntVar(&a.frames.End, "end", -1, "read the frames before this one, -1 for all (default: the job's value)")
	pf.IntVar(&a.frames.Skip, "skip", 1, "read one frame out of this many (default: the job's value)")

	root.AddCommand(
		a.unwrapCmd(),
		a.gyrationCmd(),
		a.distanceCmd(),
		a.rcmCmd(),
		a.areaCmd(),
		a.runsCmd(),
	)
	return root
}

// setup loads the job, if one is given, applies the flags that override it and sets up logging.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	job := config.DefaultJob()
	if a.configFile != "" {
		var err error
		if job, err = config.Load(a.configFile); err != nil {
			return err
		}
	}
	if a.cpus != 0 {
		job.Cpus = a.cpus
	}
	if a.logLevel != "" {
		job.LogLevel = a.logLevel
	}
	flags := cmd.Flags()
	if flags.Changed("start") {
		job.Frames.Start = a.frames.Start
	}
	if flags.Changed("end") {
		job.Frames.End = a.frames.End
	}
	if flags.Changed("skip") {
		job.Frames.Skip = a.frames.Skip
	}
	if err := job.Validate(); err != nil {
		return err
	}
	if _, err := logging.InitTo(cmd.ErrOrStderr(), "mdtrj", job.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	a.job = job
	return nil
}

type trajectory struct {
	name   string
	frames []*v3.Matrix
	boxes  []mdtrj.Box
	header map[string]string
}

// files returns the trajectories given as arguments or, if there are none, the ones in the job.
func (a *app) files(args []string) ([]string, error) {
	if len(args) == 0 {
		args = a.job.TrajectoryFiles()
	}
	if len(args) == 0 {
		return nil, errors.New("no trajectory given")
	}
	return args, nil
}

// read reads the frames of the trajectory name selected in the job.
func (a *app) read(name string) (*trajectory, error) {
	r := a.job.Frames
	frames, boxes, header, err := stf.ReadFileRange(name, r.Start, r.End, r.Skip)
	if err != nil {
		return nil, fmt.Errorf("read trajectory: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("trajectory %s has no frames in the range start=%d end=%d skip=%d", name, r.Start, r.End, r.Skip)
	}
	log.Info().Str("trajectory", name).Int("frames", len(frames)).Int("atoms", frames[0].NVecs()).Msg("read trajectory")
	return &trajectory{name: name, frames: frames, boxes: boxes, header: header}, nil
}

// load reads the only trajectory given as argument or in the job.
func (a *app) load(args []string) (*trajectory, error) {
	names, err := a.files(args)
	if err != nil {
		return nil, err
	}
	if len(names) > 1 {
		return nil, fmt.Errorf("one trajectory expected, got %d", len(names))
	}
	return a.read(names[0])
}

// loadAll reads all the trajectories given as arguments or in the job, in order.
func (a *app) loadAll(args []string) ([]*trajectory, error) {
	names, err := a.files(args)
	if err != nil {
		return nil, err
	}
	ret := make([]*trajectory, 0, len(names))
	for _, name := range names {
		t, err := a.read(name)
		if err != nil {
			return nil, err
		}
		ret = append(ret, t)
	}
	return ret, nil
}

// hasBox tells whether a box is available, either from the job or from the first frame of t.
func (a *app) hasBox(t *trajectory) bool {
	if len(a.job.Topology.Box) > 0 {
		return true
	}
	return len(t.boxes) > 0 && t.boxes[0] != (mdtrj.Box{})
}

// topology builds the topology of the job for t. The atom number and the box default
// to the ones of the trajectory.
func (a *app) topology(t *trajectory) (*mdtrj.Topology, error) {
	job := *a.job
	if job.Topology.Atoms == 0 {
		job.Topology.Atoms = t.frames[0].NVecs()
	}
	if len(job.Topology.Box) == 0 && len(t.boxes) > 0 {
		b := t.boxes[0]
		job.Topology.Box = b[:]
		log.Debug().Floats64("box", job.Topology.Box).Msg("using the box of the first frame")
	}
	return job.BuildTopology()
}

// unwrapped returns the frames of t made whole, or an error if any frame fails.
func (a *app) unwrapped(t *trajectory, opts *mdtrj.Options) ([]*v3.Matrix, *mdtrj.Topology, error) {
	top, err := a.topology(t)
	if err != nil {
		return nil, nil, err
	}
	series, err := mdtrj.UnwrapTraj(t.frames, top, opts)
	if err != nil {
		return nil, nil, err
	}
	if errs := series.Errors(); len(errs) > 0 {
		return nil, nil, fmt.Errorf("unwrap: %w", errs[0])
	}
	return series.Frames(), top, nil
}
