/*
 * geometric.go, part of mdtrj.
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
	"math"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"

	v3 "github.com/rmera/mdtrj/v3"
)

// CenterOfMass returns the center of mass of frame. With NoMass or UniformMass
// it is the centroid.
func CenterOfMass(frame *v3.Matrix, masses MassProfile) ([3]float64, error) {
	var c [3]float64
	if frame == nil {
		return c, newError(ErrShapeMismatch, true, "CenterOfMass", "nil frame")
	}
	n := frame.NVecs()
	if err := masses.check(n, "CenterOfMass"); err != nil {
		return c, err
	}
	ids, _ := AllAtoms().Resolve(n)
	w, err := masses.Weights(ids)
	if err != nil {
		return c, err
	}
	for i := 0; i < n; i++ {
		floats.AddScaled(c[:], w[i], frame.RawRowView(i))
	}
	return c, nil
}

// CentersOfMass returns the center of mass of each frame, in order.
func CentersOfMass(frames []*v3.Matrix, masses MassProfile) ([][3]float64, error) {
	natoms, err := checkFrames(frames, "CentersOfMass")
	if err != nil {
		return nil, err
	}
	if len(frames) > 0 {
		if err := masses.check(natoms, "CentersOfMass"); err != nil {
			return nil, err
		}
		ids, _ := AllAtoms().Resolve(natoms)
		if _, err := masses.Weights(ids); err != nil {
			return nil, err
		}
	}
	ret := make([][3]float64, len(frames))
	for i, f := range frames {
		ret[i], err = CenterOfMass(f, masses)
		if err != nil {
			return nil, FrameError{Frame: i, Err: err}
		}
	}
	return ret, nil
}

// Distance returns the distance between atoms a and b of frame.
func Distance(frame *v3.Matrix, a, b int) float64 {
	return floats.Distance(frame.RawRowView(a), frame.RawRowView(b), 2)
}

// Distances returns, for each pair of atoms, the series of their distances
// along the frames. ret[p][f] is the distance for pairs[p] in frames[f].
// The atom ids are checked against the frames before anything is computed.
func Distances(frames []*v3.Matrix, pairs [][2]int) ([][]float64, error) {
	natoms, err := checkFrames(frames, "Distances")
	if err != nil {
		return nil, err
	}
	for i, p := range pairs {
		for _, id := range p {
			if id < 0 || (len(frames) > 0 && id >= natoms) {
				return nil, newError(ErrShapeMismatch, true, "Distances", "pair %d references atom %d, but the frames have %d atoms", i, id, natoms)
			}
		}
	}
	ret := make([][]float64, len(pairs))
	for i, p := range pairs {
		ret[i] = make([]float64, len(frames))
		for j, f := range frames {
			ret[i][j] = Distance(f, p[0], p[1])
		}
	}
	return ret, nil
}

// Surface describes the closed curve that passes through a set of atoms.
type Surface struct {
	//Unit vector normal to the surface enclosed by the curve.
	Normal [3]float64
	//Areas of the projections of the surface on the yz, zx and xy planes
	//(the components of the vector area).
	Projections [3]float64
	//Area of the surface (norm of the vector area).
	Area float64
}

// ClosedCurve takes the selected atoms, in the order given, as the vertices of a closed
// polygon, and returns the normal and area of the surface it encloses, from the
// vector area 1/2 sum_i (r_i - c) x (r_{i+1} - c), where c is the centroid of the vertices.
// A curve with zero area has a NaN normal, and is returned with a non-critical
// ErrDegenerateGeometry error. An empty selection gives a nil Surface and a non-critical
// ErrEmptySelection error.
func ClosedCurve(frame *v3.Matrix, sel Selection) (*Surface, error) {
	if frame == nil {
		return nil, newError(ErrShapeMismatch, true, "ClosedCurve", "nil frame")
	}
	ids, err := sel.Resolve(frame.NVecs())
	if err != nil {
		if !IsCritical(err) {
			log.Warn().Int("atoms", frame.NVecs()).Msg("no atoms selected, no surface will be computed")
		}
		return nil, err
	}
	verts := v3.Zeros(len(ids))
	verts.SomeVecs(frame, ids)
	c := Centroid(verts)
	cm, _ := v3.NewMatrix(c[:])
	verts.SubVec(verts, cm)
	var area [3]float64
	for i := range ids {
		cr := v3.Cross(verts.Vec(i), verts.Vec((i+1)%len(ids)))
		floats.AddScaled(area[:], 0.5, cr[:])
	}
	S := &Surface{Projections: area, Area: floats.Norm(area[:], 2)}
	for i := range area {
		S.Normal[i] = area[i] / S.Area
	}
	if S.Area == 0 {
		for i := range S.Normal {
			S.Normal[i] = math.NaN()
		}
		return S, newError(ErrDegenerateGeometry, false, "ClosedCurve", "the %d atoms enclose no area", len(ids))
	}
	return S, nil
}

// ClosedCurves applies ClosedCurve to each frame. Non-critical problems
// are returned in the FrameError slice. A critical error in any frame is
// returned as the error.
func ClosedCurves(frames []*v3.Matrix, sel Selection) ([]*Surface, []FrameError, error) {
	natoms, err := checkFrames(frames, "ClosedCurves")
	if err != nil {
		return nil, nil, err
	}
	if len(frames) > 0 {
		if _, err := sel.Resolve(natoms); IsCritical(err) {
			return nil, nil, err
		}
	}
	ret := make([]*Surface, len(frames))
	var warnings []FrameError
	for i, f := range frames {
		ret[i], err = ClosedCurve(f, sel)
		if IsCritical(err) {
			return nil, nil, FrameError{Frame: i, Err: err}
		}
		if err != nil {
			warnings = append(warnings, FrameError{Frame: i, Err: err})
		}
	}
	return ret, warnings, nil
}
