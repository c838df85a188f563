/*
 * mass.go, part of mdtrj.
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

import "math"

type massKind int

const (
	noMass massKind = iota
	uniformMass
	perAtomMass
)

// MassProfile gives the mass of each atom. The zero value is NoMass,
// which means that all averages are unweighted.
type MassProfile struct {
	kind    massKind
	uniform float64
	masses  []float64
}

// NoMass returns a profile for unweighted averages.
func NoMass() MassProfile {
	return MassProfile{}
}

// UniformMass returns a profile where every atom has mass m.
func UniformMass(m float64) MassProfile {
	return MassProfile{kind: uniformMass, uniform: m}
}

// PerAtomMass returns a profile with one mass per atom, indexed by atom id.
// The slice is not copied.
func PerAtomMass(masses []float64) MassProfile {
	return MassProfile{kind: perAtomMass, masses: masses}
}

// Mass returns the mass of atom i. It is 1 for NoMass.
func (M MassProfile) Mass(i int) float64 {
	switch M.kind {
	case uniformMass:
		return M.uniform
	case perAtomMass:
		return M.masses[i]
	default:
		return 1
	}
}

func (M MassProfile) check(natoms int, caller string) error {
	switch M.kind {
	case uniformMass:
		if !(M.uniform > 0) || math.IsInf(M.uniform, 0) {
			return newError(ErrInvalidInput, true, caller, "uniform mass must be positive and finite, got %g", M.uniform)
		}
	case perAtomMass:
		if len(M.masses) != natoms {
			return newError(ErrShapeMismatch, true, caller, "%d masses given for %d atoms", len(M.masses), natoms)
		}
		for i, v := range M.masses {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return newError(ErrInvalidInput, true, caller, "atom %d has mass %g, masses must be finite and not negative", i, v)
			}
		}
	}
	return nil
}

// Weights returns the normalized weights (mass over total mass) of the atoms
// in ids. They are 1/len(ids) for NoMass and UniformMass.
func (M MassProfile) Weights(ids []int) ([]float64, error) {
	w := make([]float64, len(ids))
	if len(ids) == 0 {
		return w, nil
	}
	if M.kind != perAtomMass {
		f := 1 / float64(len(ids))
		for i := range w {
			w[i] = f
		}
		return w, nil
	}
	var total float64
	for i, id := range ids {
		w[i] = M.masses[id]
		total += w[i]
	}
	if total <= 0 {
		return nil, newError(ErrInvalidInput, true, "Weights", "total mass of the %d selected atoms is %g", len(ids), total)
	}
	for i := range w {
		w[i] /= total
	}
	return w, nil
}
