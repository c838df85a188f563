/*
 * doc.go, part of mdtrj.
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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

/*
Package mdtrj post-processes molecular dynamics trajectories. Each frame is a
v3.Matrix with the coordinates of the N atoms of the system, which are
described by a Topology (bonds, orthorhombic periodic box and masses).


	**mdtrj Capabilities**


    Rebuilds molecules broken across the periodic boundaries, following the
	bond graph breadth-first (Unwrap), or with the single sorted pass over
	the bonds (UnwrapSorted).

    Calculates the gyration tensor of a frame, or of a selection of its atoms,
	with or without mass weights, and the shape descriptors derived from its
	eigenvalues: radius of gyration, asphericity, acylindricity, relative shape
	anisotropy and the alignment angles of the tensor.

    Processes whole trajectories concurrently (GyrationTraj, UnwrapTraj),
	keeping the results in frame order and the failures of each frame
	separated from the rest.

    Calculates interatomic distances, centers of mass and the normal and area
	of the surface enclosed by a closed curve of atoms.

Descriptors that are undefined for a frame (for instance, the anisotropy of
a frame collapsed to a single point) are returned as the NaN or Inf produced
by the division, and flagged in the Shape.

Errors returned by the package are of type Error, and can be matched against
ErrShapeMismatch, ErrInvalidInput, ErrDegenerateGeometry, ErrDisconnectedTopology
and ErrEmptySelection with errors.Is. Non-critical errors are warnings: the result
that comes with them can be used.
*/
package mdtrj
