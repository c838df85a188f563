/*
 * pbc.go, part of mdtrj.
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
	"sort"

	"github.com/rmera/mdtrj/bondgraph"
	v3 "github.com/rmera/mdtrj/v3"
)

// Names of the unwrapping methods.
const (
	BFS    = "bfs"
	Sorted = "sorted"
)

// UnwrapReport contains the diagnostics of unwrapping one frame.
type UnwrapReport struct {
	Method string

	//First atom of each bonded component, from which the component was
	//unwrapped (BFS only).
	Roots []int

	//Atoms without bonds. They are left where they were.
	Isolated []int

	//Positions, in the sorted bond list, of the bonds processed before their
	//first atom was resolved (Sorted only). The corresponding atoms may be
	//left broken across the boundary.
	Violations []int

	//A non-critical ErrDisconnectedTopology error, or nil if the bond graph
	//forms a single molecule that contains every atom.
	Warning error
}

// Connected returns true if the frame was unwrapped as a single bonded component
// containing all atoms.
func (R *UnwrapReport) Connected() bool {
	return R.Warning == nil
}

func checkUnwrapInput(frame *v3.Matrix, bonds []Bond, box Box, caller string) error {
	if frame == nil {
		return newError(ErrShapeMismatch, true, caller, "nil frame")
	}
	if err := checkBonds(bonds, frame.NVecs(), caller); err != nil {
		return err
	}
	return box.check(caller)
}

// isolatedAtoms returns the ids of the atoms that are in no bond, the
// complement of BondedAtoms.
func isolatedAtoms(natoms int, bonds []Bond) []int {
	top := &Topology{Atoms: natoms, Bonds: bonds}
	bonded := top.BondedAtoms()
	var ret []int
	next := 0
	for i := 0; i < natoms; i++ {
		if next < len(bonded) && bonded[next] == i {
			next++
			continue
		}
		ret = append(ret, i)
	}
	return ret
}

// foldOnce moves p by one box length along each axis where its
// displacement from ref is larger than half the box.
func foldOnce(ref, p [3]float64, box Box) [3]float64 {
	for i := 0; i < 3; i++ {
		d := p[i] - ref[i]
		if d == 0 {
			continue
		}
		if math.Abs(d) > box[i]/2 {
			p[i] -= math.Copysign(box[i], d)
		}
	}
	return p
}

// minimumImage moves p to the periodic image closest to ref.
func minimumImage(ref, p [3]float64, box Box) [3]float64 {
	for i := 0; i < 3; i++ {
		d := p[i] - ref[i]
		if math.Abs(d) > box[i]/2 {
			p[i] -= box[i] * math.Round(d/box[i])
		}
	}
	return p
}

// UnwrapSorted rebuilds the molecule broken by the periodic boundary conditions by
// walking the bonds once, sorted by their first atom.
// Atom 0 is taken as resolved. For each bond a-b, if b is not yet resolved it is moved by one box length
// along each axis where it is more than half a box away from a, and marked as resolved.
// The result is only correct if, in the sorted list, the first atom of every bond has
// already been resolved, which holds for chains numbered from atom 0. Bonds that
// break this are listed in the returned report, but are still processed.
// Use Unwrap unless the exact behavior of this procedure is needed.
// The given frame is not modified.
func UnwrapSorted(frame *v3.Matrix, bonds []Bond, box Box) (*v3.Matrix, *UnwrapReport, error) {
	if err := checkUnwrapInput(frame, bonds, box, "UnwrapSorted"); err != nil {
		return nil, nil, err
	}
	n := frame.NVecs()
	ret := v3.CopyOf(frame)
	rep := &UnwrapReport{Method: Sorted, Isolated: isolatedAtoms(n, bonds)}
	sorted := make([]Bond, len(bonds))
	copy(sorted, bonds)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i][0] < sorted[j][0] })
	resolved := make([]bool, n)
	if n > 0 {
		resolved[0] = true
	}
	for i, b := range sorted {
		if !resolved[b[0]] {
			rep.Violations = append(rep.Violations, i)
		}
		if resolved[b[1]] {
			continue //first resolution wins
		}
		ret.SetVec(b[1], foldOnce(ret.Vec(b[0]), ret.Vec(b[1]), box))
		resolved[b[1]] = true
	}
	if len(rep.Violations) > 0 || len(rep.Isolated) > 0 {
		rep.Warning = newError(ErrDisconnectedTopology, false, "UnwrapSorted", "%d bonds processed before their first atom was resolved, %d atoms without bonds", len(rep.Violations), len(rep.Isolated))
	}
	return ret, rep, nil
}

// Unwrap rebuilds the molecules broken by the periodic boundary conditions.
// Each connected component of the bond graph is traversed breadth-first from its lowest atom id, and every atom is placed at
// the periodic image closest to the atom from which it was reached. The result does not depend on the order of the bonds.
// Atoms without bonds are left where they were, and listed in the report. If there is more than one
// bonded component, or isolated atoms, the report's Warning is set. The given frame is not modified.
func Unwrap(frame *v3.Matrix, bonds []Bond, box Box) (*v3.Matrix, *UnwrapReport, error) {
	if err := checkUnwrapInput(frame, bonds, box, "Unwrap"); err != nil {
		return nil, nil, err
	}
	n := frame.NVecs()
	ret := v3.CopyOf(frame)
	rep := &UnwrapReport{Method: BFS}
	g := bondgraph.New(n)
	for _, b := range bonds {
		if err := g.AddBond(b[0], b[1]); err != nil {
			return nil, nil, newError(ErrShapeMismatch, true, "Unwrap", "%s", err.Error())
		}
	}
	for _, comp := range g.Components() {
		root := comp[0]
		if len(comp) == 1 && g.Degree(root) == 0 {
			rep.Isolated = append(rep.Isolated, root)
			continue
		}
		rep.Roots = append(rep.Roots, root)
		g.Walk(root, func(parent, child int) {
			if parent < 0 {
				return
			}
			ret.SetVec(child, minimumImage(ret.Vec(parent), ret.Vec(child), box))
		})
	}
	if len(rep.Roots) > 1 || len(rep.Isolated) > 0 {
		rep.Warning = newError(ErrDisconnectedTopology, false, "Unwrap", "%d bonded components, %d atoms without bonds", len(rep.Roots), len(rep.Isolated))
	}
	return ret, rep, nil
}

// Centroid returns the geometric center (unweighted mean) of the vectors in frame.
func Centroid(frame *v3.Matrix) [3]float64 {
	var c [3]float64
	n := frame.NVecs()
	if n == 0 {
		return c
	}
	for i := 0; i < n; i++ {
		row := frame.RawRowView(i)
		for j := range c {
			c[j] += row[j]
		}
	}
	for j := range c {
		c[j] /= float64(n)
	}
	return c
}

// Recenter returns a copy of frame with its geometric center (not the center of mass) at the origin.
func Recenter(frame *v3.Matrix) *v3.Matrix {
	ret := v3.CopyOf(frame)
	c := Centroid(frame)
	cm, _ := v3.NewMatrix(c[:])
	ret.SubVec(ret, cm)
	return ret
}
