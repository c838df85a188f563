/*
 * topology.go, part of mdtrj.
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
	"sort"
)

// Bond is an unordered pair of atom ids.
type Bond [2]int

// Box contains the edge lengths of an orthorhombic periodic cell.
type Box [3]float64

// NewBox returns a Box from the first 3 values in edges. Extra values
// (e.g. the tilt factors of a triclinic box) are ignored.
func NewBox(edges []float64) (Box, error) {
	var b Box
	if len(edges) < 3 {
		return b, newError(ErrShapeMismatch, true, "NewBox", "a box needs 3 edge lengths, got %d", len(edges))
	}
	copy(b[:], edges[:3])
	return b, b.check("NewBox")
}

func (B Box) check(caller string) error {
	for i, v := range B {
		if !(v > 0) {
			return newError(ErrInvalidInput, true, caller, "box edge %d must be positive, got %g", i, v)
		}
	}
	return nil
}

// Topology groups the per-trajectory information needed for the analyses:
// number of atoms, bonds, periodic box and masses.
type Topology struct {
	Atoms  int
	Bonds  []Bond
	Box    Box
	Masses MassProfile
}

// Validate checks that the bonds and masses are consistent with the number of atoms,
// and that the box is usable.
func (T *Topology) Validate() error {
	if T.Atoms <= 0 {
		return newError(ErrShapeMismatch, true, "Validate", "topology has %d atoms", T.Atoms)
	}
	if err := checkBonds(T.Bonds, T.Atoms, "Validate"); err != nil {
		return err
	}
	if err := T.Masses.check(T.Atoms, "Validate"); err != nil {
		return err
	}
	return T.Box.check("Validate")
}

// BondedAtoms returns the sorted ids of all atoms that take part in at least one bond.
func (T *Topology) BondedAtoms() []int {
	seen := make(map[int]bool)
	for _, b := range T.Bonds {
		seen[b[0]] = true
		seen[b[1]] = true
	}
	ret := make([]int, 0, len(seen))
	for k := range seen {
		ret = append(ret, k)
	}
	sort.Ints(ret)
	return ret
}

func checkBonds(bonds []Bond, natoms int, caller string) error {
	for i, b := range bonds {
		if b[0] == b[1] {
			return newError(ErrShapeMismatch, true, caller, "bond %d joins atom %d to itself", i, b[0])
		}
		for _, id := range b {
			if id < 0 || id >= natoms {
				return newError(ErrShapeMismatch, true, caller, "bond %d references atom %d, but the frame has %d atoms", i, id, natoms)
			}
		}
	}
	return nil
}
