/*
 * vecs.go, part of mdtrj.
 *
 * Copyright 2012 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package v3

import (
	"fmt"
	"strings"
)

//METHODS

//NVecs returns the number of vecs in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

//Vec returns a copy of the ith vector as an array.
func (F *Matrix) Vec(i int) [3]float64 {
	row := F.RawRowView(i)
	return [3]float64{row[0], row[1], row[2]}
}

//SetVec sets the ith vector of F to v.
func (F *Matrix) SetVec(i int, v [3]float64) {
	row := F.RawRowView(i)
	copy(row, v[:])
}

//SwapVecs swaps the vectors i and j of F.
func (F *Matrix) SwapVecs(i, j int) {
	if i >= F.NVecs() || j >= F.NVecs() {
		panic(ErrIndexOutOfRange)
	}
	rowi := F.RawRowView(i)
	rowj := F.RawRowView(j)
	for k := 0; k < 3; k++ {
		rowi[k], rowj[k] = rowj[k], rowi[k]
	}
}

//SubVec subtracts the vector vec from each vector of the matrix A, putting
//the result on the receiver. Panics if matrices are mismatched.
func (F *Matrix) SubVec(A, vec *Matrix) {
	ar, ac := A.Dims()
	rr, rc := vec.Dims()
	fr, fc := F.Dims()
	if ac != rc || rr != 1 || ac != fc || ar != fr {
		panic(ErrShape)
	}
	v := vec.Vec(0)
	for i := 0; i < ar; i++ {
		a := A.RawRowView(i)
		f := F.RawRowView(i)
		for j := 0; j < 3; j++ {
			f[j] = a[j] - v[j]
		}
	}
}

//SomeVecs puts in the receiver all the ith vectors of matrix A,
//where i are the numbers in clist. The vectors are in the same order
//than the clist.
func (F *Matrix) SomeVecs(A *Matrix, clist []int) {
	ar, ac := A.Dims()
	fr, fc := F.Dims()
	if ac != fc || fr != len(clist) {
		panic(ErrShape)
	}
	for key, val := range clist {
		if val < 0 || val >= ar {
			panic(ErrIndexOutOfRange)
		}
		copy(F.RawRowView(key), A.RawRowView(val))
	}
}

//Cross returns the cross product of a and b.
func Cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

//String returns a neat string representation of a Matrix
func (F *Matrix) String() string {
	r, _ := F.Dims()
	v := make([]string, r+2)
	v[0] = "\n["
	v[len(v)-1] = " ]"
	for i := 0; i < r; i++ {
		row := F.RawRowView(i)
		if i == 0 {
			v[i+1] = fmt.Sprintf("%6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
			continue
		} else if i == r-1 {
			v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f", row[0], row[1], row[2])
			continue
		} else {
			v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
		}
	}
	v[len(v)-2] = strings.Replace(v[len(v)-2], "\n", "", 1)
	return strings.Join(v, "")
}
