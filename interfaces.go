/*
 * interfaces.go, part of mdtrj.
 *
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

package mdtrj

import v3 "github.com/rmera/mdtrj/v3"

// Traj is a trajectory that can be read frame by frame.
type Traj interface {
	//Readable tells whether Next can still be called.
	Readable() bool

	//Next reads the next frame into output, or skips it if output is nil.
	//If a box slice with at least 9 elements is given, it is filled with the
	//box vectors of the frame, when the file has them.
	Next(output *v3.Matrix, box ...[]float64) error

	//Len returns the number of atoms in each frame.
	Len() int
}

// ConcTraj is a trajectory that can hand several frames at once to concurrent consumers.
type ConcTraj interface {
	Readable() bool

	//NextConc reads up to len(frames) frames into the given matrices (a nil matrix
	//skips its frame), and returns one channel per frame read, in order. Each channel
	//delivers its frame once.
	NextConc(frames []*v3.Matrix) ([]chan *v3.Matrix, error)

	Len() int
}

//Errors

// ErrorDecorator is implemented by the errors of every package in the module.
// Decorate returns the names of the callers recorded in the error with the given one
// appended. Value errors are not modified by it, see the Decorate function.
// An empty string only returns the recorded names.
type ErrorDecorator interface {
	Error() string
	Decorate(string) []string
	Critical() bool
}

// TrajError is an error in reading or writing a trajectory file.
type TrajError interface {
	ErrorDecorator
	FileName() string
	Format() string
}

// LastFrameError is returned when a trajectory ends normally. It can be told apart from
// other TrajErrors with a type switch or assertion.
type LastFrameError interface {
	TrajError
	NormalLastFrameTermination()
}
