/*
 * matrix.go, part of mdtrj.
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
	"sort"

	"gonum.org/v1/gonum/mat"
)

//Matrix is a set of vectors in 3D space. The underlying implementation is a
//gonum Dense. Within the package it is understood that a "vector" is a row vector, i.e. the
//cartesian coordinates of a point in 3D space.
type Matrix struct {
	*mat.Dense
}

//NewMatrix generates and returns a Matrix with 3 columns from data.
//The data slice is used as backing storage, not copied.
func NewMatrix(data []float64) (*Matrix, error) {
	const cols int = 3
	l := len(data)
	rows := l / cols
	if l%cols != 0 || l == 0 {
		return nil, Error{fmt.Sprintf("Input slice lenght %d not divisible by %d, or empty", l, cols), []string{"NewMatrix"}, true}
	}
	r := mat.NewDense(rows, cols, data)
	return &Matrix{r}, nil
}

//Zeros returns a zero-filled Matrix with vecs vectors and 3 in the other dimension.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

//Copy of A in a freshly allocated Matrix.
func CopyOf(A *Matrix) *Matrix {
	F := Zeros(A.NVecs())
	F.Copy(A.Dense)
	return F
}

//eigenpair sorts eigenvector/eigenvalue pairs.
//It satisfies the sort.Interface interface.
type eigenpair struct {
	//evecs must have as many rows as evals has elements.
	evecs *Matrix
	evals sort.Float64Slice
}

func (E eigenpair) Less(i, j int) bool {
	return E.evals[i] < E.evals[j]
}
func (E eigenpair) Swap(i, j int) {
	E.evals.Swap(i, j)
	E.evecs.SwapVecs(i, j)
}
func (E eigenpair) Len() int {
	return len(E.evals)
}

//EigenWrap diagonalizes the symmetric 3x3 matrix in and returns its eigenvectors, as the rows of
//a Matrix, and eigenvalues, both sorted by ascending eigenvalue. The eigenvector matrix
//is made right-handed.
func EigenWrap(in mat.Symmetric) (*Matrix, []float64, error) {
	if in.SymmetricDim() != 3 {
		return nil, nil, Error{string(ErrShape), []string{"EigenWrap"}, true}
	}
	var es mat.EigenSym
	if ok := es.Factorize(in, true); !ok {
		return nil, nil, Error{string(ErrEigen), []string{"EigenWrap"}, true}
	}
	evals := es.Values(nil)
	cols := mat.NewDense(3, 3, nil)
	es.VectorsTo(cols)
	evecs := Zeros(3)
	evecs.Dense.Copy(cols.T()) //gonum gives the vectors as columns.
	eig := eigenpair{evecs, evals}
	sort.Sort(eig)
	if det(eig.evecs) < 0 {
		eig.evecs.Scale(-1, eig.evecs.Dense)
	}
	return eig.evecs, eig.evals, nil
}

//det returns the determinant of a 3x3 matrix. Panics if the matrix is not 3x3.
func det(A mat.Matrix) float64 {
	r, c := A.Dims()
	if r != 3 || c != 3 {
		panic(ErrDeterminant)
	}
	return (A.At(0, 0)*(A.At(1, 1)*A.At(2, 2)-A.At(2, 1)*A.At(1, 2)) - A.At(1, 0)*(A.At(0, 1)*A.At(2, 2)-A.At(2, 1)*A.At(0, 2)) + A.At(2, 0)*(A.At(0, 1)*A.At(1, 2)-A.At(1, 1)*A.At(0, 2)))
}

//Errors

//Error is the error type of the package. It satisfies the mdtrj.Error interface
//(defined in the parent package, which v3 can't import).
type Error struct {
	message  string
	deco     []string
	critical bool
}

//Error returns a string with an error message.
func (err Error) Error() string {
	return err.message
}

//Decorate returns the decoration slice of the error with dec appended.
//The receiver is not modified.
func (err Error) Decorate(dec string) []string {
	ret := append([]string(nil), err.deco...)
	if dec != "" {
		ret = append(ret, dec)
	}
	return ret
}

//Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

//PanicMsg is a message used for panics, even though it does satisfy the error interface.
//for errors use Error.
type PanicMsg string

func (v PanicMsg) Error() string { return string(v) }

const (
	ErrNotXx3Matrix    = PanicMsg("mdtrj/v3: A Matrix should have 3 columns")
	ErrEigen           = PanicMsg("mdtrj/v3: Can't obtain eigenvectors/eigenvalues of given matrix")
	ErrDeterminant     = PanicMsg("mdtrj/v3: Determinants are only available for 3x3 matrices")
	ErrShape           = PanicMsg("mdtrj/v3: Dimension mismatch")
	ErrIndexOutOfRange = PanicMsg("mdtrj/v3: index out of range")
)
