/*
 * selection.go, part of mdtrj.
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

type selKind int

const (
	allAtoms selKind = iota
	firstAtoms
	explicitIDs
)

// Selection is a set of atom ids. The zero value selects all atoms.
type Selection struct {
	kind  selKind
	count int
	ids   []int
}

// AllAtoms selects every atom of the frame.
func AllAtoms() Selection {
	return Selection{}
}

// FirstAtoms selects the atoms 0..k-1. FirstAtoms(0) is an empty selection.
func FirstAtoms(k int) Selection {
	return Selection{kind: firstAtoms, count: k}
}

// AtomIDs selects the given atoms, in the given order. With no ids it
// selects all atoms. The slice is not copied.
func AtomIDs(ids ...int) Selection {
	if len(ids) == 0 {
		return AllAtoms()
	}
	return Selection{kind: explicitIDs, ids: ids}
}

// Resolve returns the atom ids selected in a frame with natoms atoms.
// An empty selection gives a non-critical ErrEmptySelection error and an empty slice.
func (S Selection) Resolve(natoms int) ([]int, error) {
	var ret []int
	switch S.kind {
	case firstAtoms:
		if S.count < 0 || S.count > natoms {
			return nil, newError(ErrShapeMismatch, true, "Resolve", "%d atoms selected from a frame with %d atoms", S.count, natoms)
		}
		ret = make([]int, S.count)
		for i := range ret {
			ret[i] = i
		}
	case explicitIDs:
		for _, v := range S.ids {
			if v < 0 || v >= natoms {
				return nil, newError(ErrShapeMismatch, true, "Resolve", "atom %d selected from a frame with %d atoms", v, natoms)
			}
		}
		ret = S.ids
	default:
		ret = make([]int, natoms)
		for i := range ret {
			ret[i] = i
		}
	}
	if len(ret) == 0 {
		return ret, newError(ErrEmptySelection, false, "Resolve", "no atoms selected")
	}
	return ret, nil
}
