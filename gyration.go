/*
 * gyration.go, part of mdtrj.
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
	"strings"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	v3 "github.com/rmera/mdtrj/v3"
)

// DegenerateFlags marks the shape descriptors of a frame that came out of a
// division by zero, and are thus NaN or +-Inf.
type DegenerateFlags uint8

const (
	DegenerateTanXY DegenerateFlags = 1 << iota //gxx == gyy
	DegenerateTanXZ                             //gxx == gzz
	DegenerateTanYZ                             //gyy == gzz
	DegenerateAnisotropy                        //Rg == 0
)

// Any returns true if any descriptor is degenerate.
func (D DegenerateFlags) Any() bool {
	return D != 0
}

func (D DegenerateFlags) String() string {
	if D == 0 {
		return "none"
	}
	names := []string{"tan2xy", "tan2xz", "tan2yz", "anisotropy"}
	ret := make([]string, 0, len(names))
	for i, v := range names {
		if D&(1<<i) != 0 {
			ret = append(ret, v)
		}
	}
	return strings.Join(ret, ",")
}

// Shape contains the gyration tensor of one frame and the shape descriptors derived from it.
type Shape struct {
	//Number of atoms used.
	Atoms int

	//The (mass-weighted, if masses were given) gyration tensor.
	Tensor *mat.SymDense

	//Eigenvalues of the tensor in ascending order, and the corresponding
	//eigenvectors (principal axes) as the rows of a matrix.
	Eigenvalues   [3]float64
	PrincipalAxes *v3.Matrix

	//Radius of gyration
	Rg float64

	//tan(2X) for the alignment angle X of the tensor in the xy, xz and yz planes.
	Tan2XG [3]float64

	Asphericity   float64
	Acylindricity float64

	//Relative shape anisotropy, between 0 and 1 except for numerical noise.
	Anisotropy float64

	//Descriptors that are NaN or +-Inf because of a zero denominator.
	Degenerate DegenerateFlags
}

// Err returns a non-critical ErrDegenerateGeometry error if some descriptor is degenerate, nil otherwise.
func (S *Shape) Err() error {
	if !S.Degenerate.Any() {
		return nil
	}
	return newError(ErrDegenerateGeometry, false, "Shape", "undefined descriptors: %s", S.Degenerate)
}

// GyrationTensor returns the gyration tensor of the selected atoms in frame,
// G[i][j] = sum_k w_k d_k[i] d_k[j], where d_k is the displacement of atom k from the center
// of mass and w_k its normalized mass (1/N if masses is NoMass).
// The second value returned is the number of atoms used.
// If the selection is empty, a nil tensor and a non-critical ErrEmptySelection are returned.
func GyrationTensor(frame *v3.Matrix, masses MassProfile, sel Selection) (*mat.SymDense, int, error) {
	if frame == nil {
		return nil, 0, newError(ErrShapeMismatch, true, "GyrationTensor", "nil frame")
	}
	n := frame.NVecs()
	if err := masses.check(n, "GyrationTensor"); err != nil {
		return nil, 0, err
	}
	ids, err := sel.Resolve(n)
	if err != nil {
		if !IsCritical(err) {
			log.Warn().Int("atoms", n).Msg("no atoms selected, no gyration tensor will be computed")
		}
		return nil, 0, err
	}
	w, err := masses.Weights(ids)
	if err != nil {
		return nil, 0, err
	}
	sel3 := v3.Zeros(len(ids))
	sel3.SomeVecs(frame, ids)
	rcm := make([]float64, 3)
	for k := range ids {
		floats.AddScaled(rcm, w[k], sel3.RawRowView(k))
	}
	com, _ := v3.NewMatrix(rcm)
	sel3.SubVec(sel3, com)
	var g [3][3]float64
	for k := range ids {
		d := sel3.RawRowView(k)
		//only the upper triangle, the tensor is symmetric
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				g[i][j] += w[k] * d[i] * d[j]
			}
		}
	}
	t := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			t.SetSym(i, j, g[i][j])
		}
	}
	return t, len(ids), nil
}

// ShapeFromTensor obtains the shape descriptors from a gyration tensor.
// Descriptors with a zero denominator are left as the NaN or +-Inf that
// the division produces, and flagged in the Degenerate field of the returned Shape.
func ShapeFromTensor(t *mat.SymDense) (*Shape, error) {
	S := &Shape{Tensor: t}
	gxx, gyy, gzz := t.At(0, 0), t.At(1, 1), t.At(2, 2)
	gxy, gxz, gyz := t.At(0, 1), t.At(0, 2), t.At(1, 2)
	dens := [3]float64{gxx - gyy, gxx - gzz, gyy - gzz}
	nums := [3]float64{gxy, gxz, gyz}
	for i, den := range dens {
		if den == 0 {
			S.Degenerate |= DegenerateTanXY << i
		}
		S.Tan2XG[i] = 2 * nums[i] / den
	}
	evecs, evals, err := v3.EigenWrap(t)
	if err != nil {
		return nil, newError(ErrDegenerateGeometry, true, "ShapeFromTensor", "%s", err.Error())
	}
	S.PrincipalAxes = evecs
	copy(S.Eigenvalues[:], evals)
	ex, ey, ez := evals[0], evals[1], evals[2]
	rgsq := ex + ey + ez
	if rgsq <= 0 {
		rgsq = 0 //negative values can only be numerical noise.
		S.Degenerate |= DegenerateAnisotropy
	}
	S.Rg = math.Sqrt(rgsq)
	S.Asphericity = ez - (ex+ey)/2
	S.Acylindricity = ey - ex
	b, c := S.Asphericity, S.Acylindricity
	S.Anisotropy = (b*b + 0.75*c*c) / (rgsq * rgsq)
	return S, nil
}

// Gyration computes the gyration tensor of the selected atoms in frame, and the shape
// descriptors derived from it. frame should be already unwrapped (see Unwrap).
// An empty selection returns a nil Shape and a non-critical ErrEmptySelection error.
// Degenerate descriptors are not an error, see Shape.Degenerate.
func Gyration(frame *v3.Matrix, masses MassProfile, sel Selection) (*Shape, error) {
	t, n, err := GyrationTensor(frame, masses, sel)
	if err != nil {
		return nil, err
	}
	S, err := ShapeFromTensor(t)
	if err != nil {
		return nil, err
	}
	S.Atoms = n
	return S, nil
}
