/*
 * batch.go, part of mdtrj.
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

package mdtrj

import (
	"fmt"
	"math"
	"runtime"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	v3 "github.com/rmera/mdtrj/v3"
)

// Options contains the options for the functions that process whole trajectories.
type Options struct {
	cpus   int
	method string
	center bool
}

// DefaultOptions returns an Options with the default values: one gorutine per
// logical CPU, BFS unwrapping and no recentering.
func DefaultOptions() *Options {
	ret := new(Options)
	ret.cpus = runtime.NumCPU()
	ret.method = BFS
	ret.center = false
	return ret
}

// Cpus returns the number of frames to be processed concurrently, and sets it
// to a new value, if a valid one is given.
func (O *Options) Cpus(cpus ...int) int {
	ret := O.cpus
	if len(cpus) > 0 && cpus[0] > 0 {
		O.cpus = cpus[0]
	}
	return ret
}

// Method returns the unwrapping method (BFS or Sorted) and sets it, if
// a valid one is given.
func (O *Options) Method(method ...string) string {
	ret := O.method
	if len(method) > 0 && (method[0] == BFS || method[0] == Sorted) {
		O.method = method[0]
	}
	return ret
}

// Center returns whether unwrapped frames are recentered at the origin, and sets
// the value to the one given, if any.
func (O *Options) Center(center ...bool) bool {
	ret := O.center
	if len(center) > 0 {
		O.center = center[0]
	}
	return ret
}

func getOptions(opts []*Options) *Options {
	if len(opts) > 0 && opts[0] != nil {
		return opts[0]
	}
	return DefaultOptions()
}

type frameResult[T any] struct {
	val T
	err error
}

// concFrames runs task for the frames 0..n-1, cpus frames at the time. Each
// task sends its result to the channel of its frame, and the channels are drained
// in frame order, so the results never depend on the order in which tasks finish.
// A panic in a task becomes the error of that frame.
func concFrames[T any](n, cpus int, task func(i int) (T, error)) ([]T, []error) {
	if cpus < 1 {
		cpus = 1
	}
	vals := make([]T, n)
	errs := make([]error, n)
	for start := 0; start < n; start += cpus {
		end := min(start+cpus, n)
		results := make([]chan frameResult[T], end-start)
		for i := range results {
			results[i] = make(chan frameResult[T], 1)
			go func(frame int, out chan<- frameResult[T]) {
				var r frameResult[T]
				defer func() {
					if p := recover(); p != nil {
						r = frameResult[T]{err: newError(ErrInvalidInput, true, "concFrames", "frame task failed: %v", p)}
					}
					out <- r
				}()
				r.val, r.err = task(frame)
			}(start+i, results[i])
		}
		for i, c := range results {
			r := <-c
			vals[start+i] = r.val
			errs[start+i] = r.err
		}
	}
	return vals, errs
}

// splitErrors sorts per-frame errors into critical errors and warnings.
func splitErrors(errs []error) (errors, warnings []FrameError) {
	for i, err := range errs {
		if err == nil {
			continue
		}
		fe := FrameError{Frame: i, Err: err}
		if IsCritical(err) {
			errors = append(errors, fe)
		} else {
			warnings = append(warnings, fe)
		}
	}
	return errors, warnings
}

// checkFrames returns the common number of atoms of frames, or a critical
// ShapeMismatch if some frame is nil or has a different number of atoms.
func checkFrames(frames []*v3.Matrix, caller string) (int, error) {
	natoms := -1
	for i, f := range frames {
		if f == nil {
			return 0, newError(ErrShapeMismatch, true, caller, "frame %d is nil", i)
		}
		if natoms < 0 {
			natoms = f.NVecs()
		}
		if f.NVecs() != natoms {
			return 0, newError(ErrShapeMismatch, true, caller, "frame %d has %d atoms, frame 0 has %d", i, f.NVecs(), natoms)
		}
	}
	return natoms, nil
}

// GyrationSeries contains the result of GyrationTraj. It is not modified after GyrationTraj returns.
type GyrationSeries struct {
	shapes   []*Shape
	errors   []FrameError
	warnings []FrameError
}

// Len returns the number of frames in the series.
func (G *GyrationSeries) Len() int {
	return len(G.shapes)
}

// Shape returns the shape descriptors for the frame i, or nil if the frame
// failed or had no atoms selected.
func (G *GyrationSeries) Shape(i int) *Shape {
	return G.shapes[i]
}

// Errors returns the critical errors, each with the index of the frame that produced it.
// The remaining frames are not affected by them.
func (G *GyrationSeries) Errors() []FrameError {
	return append([]FrameError(nil), G.errors...)
}

// Warnings returns the non-critical errors (empty selections, degenerate descriptors)
// with the index of the frame that produced them.
func (G *GyrationSeries) Warnings() []FrameError {
	return append([]FrameError(nil), G.warnings...)
}

func (G *GyrationSeries) scalar(f func(*Shape) float64) []float64 {
	ret := make([]float64, len(G.shapes))
	for i, s := range G.shapes {
		if s == nil {
			ret[i] = math.NaN()
			continue
		}
		ret[i] = f(s)
	}
	return ret
}

// Rg returns the radius of gyration for each frame, NaN for frames without a result.
func (G *GyrationSeries) Rg() []float64 {
	return G.scalar(func(s *Shape) float64 { return s.Rg })
}

// Asphericity returns the asphericity for each frame, NaN for frames without a result.
func (G *GyrationSeries) Asphericity() []float64 {
	return G.scalar(func(s *Shape) float64 { return s.Asphericity })
}

// Acylindricity returns the acylindricity for each frame, NaN for frames without a result.
func (G *GyrationSeries) Acylindricity() []float64 {
	return G.scalar(func(s *Shape) float64 { return s.Acylindricity })
}

// Anisotropy returns the relative shape anisotropy for each frame, NaN for frames without a result.
func (G *GyrationSeries) Anisotropy() []float64 {
	return G.scalar(func(s *Shape) float64 { return s.Anisotropy })
}

// Tan2XG returns, for each frame, tan(2X) in the xy, xz and yz planes.
func (G *GyrationSeries) Tan2XG() [][3]float64 {
	ret := make([][3]float64, len(G.shapes))
	for i, s := range G.shapes {
		if s == nil {
			ret[i] = [3]float64{math.NaN(), math.NaN(), math.NaN()}
			continue
		}
		ret[i] = s.Tan2XG
	}
	return ret
}

// Tensors returns the gyration tensor of each frame, nil for frames without a result.
func (G *GyrationSeries) Tensors() []*mat.SymDense {
	ret := make([]*mat.SymDense, len(G.shapes))
	for i, s := range G.shapes {
		if s != nil {
			ret[i] = s.Tensor
		}
	}
	return ret
}

// DegenerateFrames returns the indexes of the frames with at least one degenerate descriptor.
func (G *GyrationSeries) DegenerateFrames() []int {
	var ret []int
	for i, s := range G.shapes {
		if s != nil && s.Degenerate.Any() {
			ret = append(ret, i)
		}
	}
	return ret
}

// checkGyration validates the input of GyrationTraj, and returns the selections
// to be used, which are never empty for a non-empty trajectory.
func checkGyration(frames []*v3.Matrix, masses MassProfile, sels []Selection, caller string) ([]Selection, error) {
	natoms, err := checkFrames(frames, caller)
	if err != nil || len(frames) == 0 {
		return sels, err
	}
	if err := masses.check(natoms, caller); err != nil {
		return nil, err
	}
	switch len(sels) {
	case 0:
		sels = []Selection{AllAtoms()}
	case 1, len(frames):
	default:
		return nil, newError(ErrShapeMismatch, true, caller, "%d selections given for %d frames", len(sels), len(frames))
	}
	for i, s := range sels {
		ids, err := s.Resolve(natoms)
		if IsCritical(err) {
			return nil, newError(ErrShapeMismatch, true, caller, "selection %d: %s", i, err.Error())
		}
		if _, err := masses.Weights(ids); err != nil {
			return nil, newError(ErrInvalidInput, true, caller, "selection %d: %s", i, err.Error())
		}
	}
	return sels, nil
}

// GyrationTraj computes the gyration tensor and shape descriptors for every frame.
// sels can be empty (all atoms), contain one selection, used for all frames, or
// one selection per frame. All frames must have the same number of atoms.
// Malformed input (frames of different sizes, wrong number of masses or selections,
// atoms out of range) is detected before any frame is processed, and returned as the error.
// Otherwise, failures are kept per frame in the returned series, and don't affect other frames.
func GyrationTraj(frames []*v3.Matrix, masses MassProfile, sels []Selection, opts ...*Options) (*GyrationSeries, error) {
	o := getOptions(opts)
	sels, err := checkGyration(frames, masses, sels, "GyrationTraj")
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return &GyrationSeries{}, nil
	}
	selFor := func(i int) Selection {
		if len(sels) == 1 {
			return sels[0]
		}
		return sels[i]
	}
	shapes, errs := concFrames(len(frames), o.Cpus(), func(i int) (*Shape, error) {
		s, err := Gyration(frames[i], masses, selFor(i))
		if err != nil {
			return s, err
		}
		return s, s.Err()
	})
	ret := &GyrationSeries{shapes: shapes}
	ret.errors, ret.warnings = splitErrors(errs)
	if d := ret.DegenerateFrames(); len(d) > 0 {
		log.Debug().Int("frames", len(d)).Ints("degenerate", d).Msg("some shape descriptors are undefined")
	}
	if len(ret.errors) > 0 {
		log.Warn().Int("failed", len(ret.errors)).Int("frames", len(frames)).Msg("gyration failed for some frames")
	}
	return ret, nil
}

// GyrationTrajs runs GyrationTraj on each of the trajectories trajs. masses and sels can
// be empty (no masses, all atoms), contain one element, shared by all the trajectories,
// or one element per trajectory. The selection for a trajectory is used for all its frames.
// Every trajectory is checked before any of them is processed, and a malformed one
// makes the whole call fail, with the index of the trajectory in the error.
func GyrationTrajs(trajs [][]*v3.Matrix, masses []MassProfile, sels []Selection, opts ...*Options) ([]*GyrationSeries, error) {
	if (len(masses) > 1 && len(masses) != len(trajs)) || (len(sels) > 1 && len(sels) != len(trajs)) {
		return nil, newError(ErrShapeMismatch, true, "GyrationTrajs", "%d mass profiles and %d selections given for %d trajectories", len(masses), len(sels), len(trajs))
	}
	massFor := func(i int) MassProfile {
		switch len(masses) {
		case 0:
			return NoMass()
		case 1:
			return masses[0]
		}
		return masses[i]
	}
	selFor := func(i int) []Selection {
		switch len(sels) {
		case 0:
			return nil
		case 1:
			return sels
		}
		return sels[i : i+1]
	}
	for i, frames := range trajs {
		if _, err := checkGyration(frames, massFor(i), selFor(i), "GyrationTrajs"); err != nil {
			return nil, fmt.Errorf("trajectory %d: %w", i, err)
		}
	}
	ret := make([]*GyrationSeries, len(trajs))
	for i, frames := range trajs {
		var err error
		ret[i], err = GyrationTraj(frames, massFor(i), selFor(i), opts...)
		if err != nil {
			return nil, fmt.Errorf("trajectory %d: %w", i, err)
		}
	}
	return ret, nil
}

// UnwrapSeries contains the result of UnwrapTraj.
type UnwrapSeries struct {
	frames   []*v3.Matrix
	reports  []*UnwrapReport
	errors   []FrameError
	warnings []FrameError
}

// Len returns the number of frames in the series.
func (U *UnwrapSeries) Len() int {
	return len(U.frames)
}

// Frame returns the unwrapped frame i, or nil if it failed.
func (U *UnwrapSeries) Frame(i int) *v3.Matrix {
	return U.frames[i]
}

// Frames returns all unwrapped frames, in order. Failed frames are nil.
func (U *UnwrapSeries) Frames() []*v3.Matrix {
	return append([]*v3.Matrix(nil), U.frames...)
}

// Report returns the unwrap report for frame i, or nil if it failed.
func (U *UnwrapSeries) Report(i int) *UnwrapReport {
	return U.reports[i]
}

// Errors returns the critical per-frame errors.
func (U *UnwrapSeries) Errors() []FrameError {
	return append([]FrameError(nil), U.errors...)
}

// Warnings returns the per-frame DisconnectedTopology warnings.
func (U *UnwrapSeries) Warnings() []FrameError {
	return append([]FrameError(nil), U.warnings...)
}

type unwrapped struct {
	frame  *v3.Matrix
	report *UnwrapReport
}

// UnwrapTraj unwraps every frame with the bonds and box of top, using the method
// given in the options, and recentering the frames if requested. The topology and
// the frame sizes are checked before any frame is processed.
func UnwrapTraj(frames []*v3.Matrix, top *Topology, opts ...*Options) (*UnwrapSeries, error) {
	o := getOptions(opts)
	if top == nil {
		return nil, newError(ErrInvalidInput, true, "UnwrapTraj", "nil topology")
	}
	if err := top.Validate(); err != nil {
		return nil, err
	}
	natoms, err := checkFrames(frames, "UnwrapTraj")
	if err != nil {
		return nil, err
	}
	if len(frames) > 0 && natoms != top.Atoms {
		return nil, newError(ErrShapeMismatch, true, "UnwrapTraj", "frames have %d atoms, topology has %d", natoms, top.Atoms)
	}
	unwrap := Unwrap
	if o.Method() == Sorted {
		unwrap = UnwrapSorted
	}
	center := o.Center()
	res, errs := concFrames(len(frames), o.Cpus(), func(i int) (unwrapped, error) {
		f, rep, err := unwrap(frames[i], top.Bonds, top.Box)
		if err != nil {
			return unwrapped{}, err
		}
		if center {
			f = Recenter(f)
		}
		return unwrapped{frame: f, report: rep}, rep.Warning
	})
	ret := &UnwrapSeries{frames: make([]*v3.Matrix, len(res)), reports: make([]*UnwrapReport, len(res))}
	for i, r := range res {
		ret.frames[i] = r.frame
		ret.reports[i] = r.report
	}
	ret.errors, ret.warnings = splitErrors(errs)
	if len(ret.warnings) > 0 {
		log.Warn().Int("frames", len(ret.warnings)).Str("method", o.Method()).Err(ret.warnings[0].Err).Msg("the bond graph is not a single molecule, some atoms were not unwrapped")
	}
	if len(ret.errors) > 0 {
		log.Warn().Int("failed", len(ret.errors)).Int("frames", len(frames)).Msg("unwrapping failed for some frames")
	}
	return ret, nil
}
