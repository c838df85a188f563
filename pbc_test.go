/*
 * pbc_test.go, part of mdtrj.
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
	"errors"
	"fmt"
	"math"
	"testing"

	v3 "github.com/rmera/mdtrj/v3"
)

func frameOf(Te *testing.T, data ...float64) *v3.Matrix {
	Te.Helper()
	f, err := v3.NewMatrix(data)
	if err != nil {
		Te.Fatal(err)
	}
	return f
}

func sameFrame(a, b *v3.Matrix, tol float64) bool {
	if a.NVecs() != b.NVecs() {
		return false
	}
	for i := 0; i < a.NVecs(); i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > tol {
				return false
			}
		}
	}
	return true
}

var box10 = Box{10, 10, 10}

func TestUnwrapNoBonds(Te *testing.T) {
	f := frameOf(Te, 1, 2, 3, 9.5, 0.2, 7, -3, 12, 4)
	for _, unwrap := range []func(*v3.Matrix, []Bond, Box) (*v3.Matrix, *UnwrapReport, error){Unwrap, UnwrapSorted} {
		u, rep, err := unwrap(f, nil, box10)
		if err != nil {
			Te.Fatal(err)
		}
		if !sameFrame(f, u, 0) {
			Te.Errorf("%s: frame without bonds changed:\n%s", rep.Method, u)
		}
		if len(rep.Isolated) != 3 {
			Te.Errorf("%s: expected 3 isolated atoms, got %v", rep.Method, rep.Isolated)
		}
		if !errors.Is(rep.Warning, ErrDisconnectedTopology) || IsCritical(rep.Warning) {
			Te.Errorf("%s: expected a non-critical disconnected topology warning, got %v", rep.Method, rep.Warning)
		}
	}
}

func TestUnwrapTwoAtoms(Te *testing.T) {
	f := frameOf(Te, 1, 1, 1, 9, 1, 1)
	expected := frameOf(Te, 1, 1, 1, -1, 1, 1)
	for _, unwrap := range []func(*v3.Matrix, []Bond, Box) (*v3.Matrix, *UnwrapReport, error){Unwrap, UnwrapSorted} {
		u, rep, err := unwrap(f, []Bond{{0, 1}}, box10)
		if err != nil {
			Te.Fatal(err)
		}
		if !sameFrame(expected, u, 1e-12) {
			Te.Errorf("%s: wrong unwrapping:\n%s", rep.Method, u)
		}
		if !rep.Connected() {
			Te.Errorf("%s: unexpected warning %v", rep.Method, rep.Warning)
		}
		if f.At(1, 0) != 9 {
			Te.Errorf("%s: the input frame was modified", rep.Method)
		}
	}
}

// A chain crossing the box boundary twice: 0-1-2-3 along x.
func TestUnwrapBondOrder(Te *testing.T) {
	f := frameOf(Te, 8, 5, 5, 1, 5, 5, 4, 5, 5, 7, 5, 5)
	expected := frameOf(Te, 8, 5, 5, 11, 5, 5, 14, 5, 5, 17, 5, 5)
	orders := [][]Bond{
		{{0, 1}, {1, 2}, {2, 3}},
		{{2, 3}, {1, 2}, {0, 1}},
		{{3, 2}, {2, 1}, {1, 0}},
		{{1, 2}, {3, 2}, {0, 1}},
	}
	for i, bonds := range orders {
		u, rep, err := Unwrap(f, bonds, box10)
		if err != nil {
			Te.Fatal(err)
		}
		if !sameFrame(expected, u, 1e-12) {
			Te.Errorf("bond order %d: wrong unwrapping:\n%s", i, u)
		}
		if !rep.Connected() || len(rep.Roots) != 1 || rep.Roots[0] != 0 {
			Te.Errorf("bond order %d: wrong report %+v", i, rep)
		}
	}
}

func TestUnwrapSortedViolation(Te *testing.T) {
	//Atom 2 is only bonded to 1, and the bond is written 2-1, so
	//it is processed before atom 2 is resolved.
	f := frameOf(Te, 1, 5, 5, 9, 5, 5, 7, 5, 5)
	bonds := []Bond{{2, 1}, {0, 1}}
	u, rep, err := UnwrapSorted(f, bonds, box10)
	if err != nil {
		Te.Fatal(err)
	}
	if len(rep.Violations) != 1 || rep.Violations[0] != 1 {
		Te.Errorf("expected a violation in the second sorted bond, got %v", rep.Violations)
	}
	if !errors.Is(rep.Warning, ErrDisconnectedTopology) || IsCritical(rep.Warning) {
		Te.Errorf("expected a non-critical warning, got %v", rep.Warning)
	}
	legacy := frameOf(Te, 1, 5, 5, -1, 5, 5, 7, 5, 5)
	if !sameFrame(legacy, u, 1e-12) {
		Te.Errorf("wrong sorted unwrapping:\n%s", u)
	}
	u, rep, err = Unwrap(f, bonds, box10)
	if err != nil {
		Te.Fatal(err)
	}
	fixed := frameOf(Te, 1, 5, 5, -1, 5, 5, -3, 5, 5)
	if !sameFrame(fixed, u, 1e-12) || !rep.Connected() {
		Te.Errorf("wrong BFS unwrapping:\n%s %v", u, rep.Warning)
	}
	fmt.Println("Sorted vs BFS report:", rep.Method, rep.Roots)
}

func TestUnwrapBranched(Te *testing.T) {
	//    3
	//    |
	//0 - 1 - 2
	//    |
	//    4
	f := frameOf(Te,
		5, 5, 5,
		5, 5, 6,
		5, 5, 7,
		5, 9, 6,
		5, 1, 6)
	bonds := []Bond{{4, 1}, {1, 3}, {2, 1}, {1, 0}}
	f.Set(2, 2, 7-10)
	f.Set(3, 1, 9-10)
	f.Set(4, 1, 1+10)
	u, rep, err := Unwrap(f, bonds, box10)
	if err != nil {
		Te.Fatal(err)
	}
	expected := frameOf(Te,
		5, 5, 5,
		5, 5, 6,
		5, 5, 7,
		5, 9, 6,
		5, 1, 6)
	if !sameFrame(expected, u, 1e-12) || !rep.Connected() {
		Te.Errorf("wrong unwrapping of a branched molecule:\n%s", u)
	}
}

func TestUnwrapComponents(Te *testing.T) {
	//two molecules 0-1-2 and 3-4, and an isolated atom 5
	f := frameOf(Te,
		1, 1, 1,
		9, 1, 1,
		7, 1, 1,
		5, 1, 1,
		5, 9, 1,
		5, 5, 9.9)
	bonds := []Bond{{1, 2}, {4, 3}, {0, 1}}
	u, rep, err := Unwrap(f, bonds, box10)
	if err != nil {
		Te.Fatal(err)
	}
	expected := frameOf(Te,
		1, 1, 1,
		-1, 1, 1,
		-3, 1, 1,
		5, 1, 1,
		5, -1, 1,
		5, 5, 9.9)
	if !sameFrame(expected, u, 1e-12) {
		Te.Errorf("wrong unwrapping of several molecules:\n%s", u)
	}
	if len(rep.Roots) != 2 || rep.Roots[0] != 0 || rep.Roots[1] != 3 {
		Te.Errorf("wrong roots %v", rep.Roots)
	}
	if len(rep.Isolated) != 1 || rep.Isolated[0] != 5 {
		Te.Errorf("wrong isolated atoms %v", rep.Isolated)
	}
	if rep.Connected() || IsCritical(rep.Warning) {
		Te.Errorf("expected a non-critical warning, got %v", rep.Warning)
	}
}

// Atoms more than 1.5 boxes away from their neighbors are brought to the closest image
// by Unwrap, but moved only one box length by UnwrapSorted.
func TestUnwrapFarImage(Te *testing.T) {
	f := frameOf(Te, 0, 0, 0, 16, 0, 0)
	u, _, err := Unwrap(f, []Bond{{0, 1}}, box10)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(u.At(1, 0)-(-4)) > 1e-12 {
		Te.Errorf("expected x=-4, got %g", u.At(1, 0))
	}
	u, _, err = UnwrapSorted(f, []Bond{{0, 1}}, box10)
	if err != nil {
		Te.Fatal(err)
	}
	if math.Abs(u.At(1, 0)-6) > 1e-12 {
		Te.Errorf("expected x=6, got %g", u.At(1, 0))
	}
}

func TestUnwrapErrors(Te *testing.T) {
	f := frameOf(Te, 1, 1, 1, 9, 1, 1)
	cases := []struct {
		name  string
		bonds []Bond
		box   Box
		kind  error
	}{
		{"out of range", []Bond{{0, 2}}, box10, ErrShapeMismatch},
		{"negative id", []Bond{{-1, 0}}, box10, ErrShapeMismatch},
		{"self bond", []Bond{{1, 1}}, box10, ErrShapeMismatch},
		{"zero box", []Bond{{0, 1}}, Box{10, 0, 10}, ErrInvalidInput},
	}
	for _, c := range cases {
		for _, unwrap := range []func(*v3.Matrix, []Bond, Box) (*v3.Matrix, *UnwrapReport, error){Unwrap, UnwrapSorted} {
			u, rep, err := unwrap(f, c.bonds, c.box)
			if !errors.Is(err, c.kind) || !IsCritical(err) {
				Te.Errorf("%s: expected a critical %v, got %v", c.name, c.kind, err)
			}
			if u != nil || rep != nil {
				Te.Errorf("%s: no result expected on error", c.name)
			}
		}
	}
}

func TestNewBox(Te *testing.T) {
	b, err := NewBox([]float64{10, 20, 30, 0, 0, 0})
	if err != nil {
		Te.Fatal(err)
	}
	if b != (Box{10, 20, 30}) {
		Te.Errorf("wrong box %v", b)
	}
	if _, err := NewBox([]float64{10, 20}); !errors.Is(err, ErrShapeMismatch) {
		Te.Errorf("expected a shape mismatch, got %v", err)
	}
	if _, err := NewBox([]float64{10, -1, 3}); !errors.Is(err, ErrInvalidInput) {
		Te.Errorf("expected an invalid input, got %v", err)
	}
}

func TestBondedAtoms(Te *testing.T) {
	bonds := []Bond{{3, 1}, {1, 0}, {5, 3}, {0, 1}}
	top := &Topology{Atoms: 7, Bonds: bonds, Box: box10}
	bonded := top.BondedAtoms()
	if fmt.Sprint(bonded) != "[0 1 3 5]" {
		Te.Errorf("expected bonded atoms [0 1 3 5], got %v", bonded)
	}
	isolated := isolatedAtoms(7, bonds)
	if fmt.Sprint(isolated) != "[2 4 6]" {
		Te.Errorf("expected isolated atoms [2 4 6], got %v", isolated)
	}
	if iso := isolatedAtoms(3, []Bond{{0, 1}, {1, 2}}); len(iso) != 0 {
		Te.Errorf("a chain has no isolated atoms, got %v", iso)
	}
}

func TestRecenter(Te *testing.T) {
	f := frameOf(Te, 1, 2, 3, 3, 4, 5)
	r := Recenter(f)
	expected := frameOf(Te, -1, -1, -1, 1, 1, 1)
	if !sameFrame(expected, r, 1e-12) {
		Te.Errorf("wrong recentering:\n%s", r)
	}
	if f.At(0, 0) != 1 {
		Te.Error("the input frame was modified")
	}
}
