/*
 * errors.go, part of mdtrj.
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
	"strings"
)

// The kinds of errors returned by the package. Any error returned by
// a function in mdtrj can be tested against these with errors.Is.
var (
	//The atom count of a frame doesn't agree with the topology, masses, bonds or selections.
	ErrShapeMismatch = errors.New("shape mismatch")
	//A malformed input that is not a dimension problem, e.g. a non-positive box edge.
	ErrInvalidInput = errors.New("invalid input")
	//A zero denominator in a shape descriptor. Never returned as a failure, see Shape.Degenerate.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	//The bond graph could not be unwrapped as a single chain.
	ErrDisconnectedTopology = errors.New("disconnected topology")
	//A selection resolved to zero atoms.
	ErrEmptySelection = errors.New("empty selection")
)

// Error is the error type of the package. It fullfills the Error interface.
type Error struct {
	message  string
	kind     error
	deco     []string
	critical bool
}

func (err Error) Error() string {
	msg := err.message
	if len(err.deco) > 0 {
		msg = strings.Join(err.deco, ": ") + ": " + msg
	}
	if err.kind != nil {
		return err.kind.Error() + ": " + msg
	}
	return msg
}

// Decorate returns the decorations of the error with deco appended.
// The receiver is not modified, use the package function Decorate
// to obtain a decorated copy of an error.
func (err Error) Decorate(deco string) []string {
	ret := make([]string, len(err.deco), len(err.deco)+1)
	copy(ret, err.deco)
	if deco != "" {
		ret = append(ret, deco)
	}
	return ret
}

// Decorate returns err with caller added to its decorations. An Error is
// copied, so the original is left unchanged. Other ErrorDecorators are
// decorated in place.
func Decorate(err error, caller string) error {
	switch e := err.(type) {
	case nil:
		return nil
	case Error:
		e.deco = e.Decorate(caller)
		return e
	case ErrorDecorator:
		e.Decorate(caller)
		return e
	}
	return err
}

// Critical returns true if the error is critical, false otherwise.
// Non-critical errors are warnings, the accompanying result is usable.
func (err Error) Critical() bool { return err.critical }

// Unwrap returns the kind of the error.
func (err Error) Unwrap() error { return err.kind }

func newError(kind error, critical bool, caller string, format string, args ...any) Error {
	return Error{message: fmt.Sprintf(format, args...), kind: kind, deco: []string{caller}, critical: critical}
}

// IsCritical returns false if err is nil or a non-critical Error (a warning).
// Any other error is critical.
func IsCritical(err error) bool {
	if err == nil {
		return false
	}
	var e Error
	if errors.As(err, &e) {
		return e.Critical()
	}
	return true
}

// FrameError associates an error or warning to the index of the frame that produced it.
type FrameError struct {
	Frame int
	Err   error
}

func (F FrameError) Error() string {
	return fmt.Sprintf("frame %d: %s", F.Frame, F.Err.Error())
}

func (F FrameError) Unwrap() error { return F.Err }
