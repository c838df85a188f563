/*
 * stf.go, part of mdtrj.
 *
 * Copyright 2021 Raul Mera <rauldotmeraatusachdotcl>
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

package stf

import (
	"bufio"
	"compress/flate"
	"compress/gzip"
	"compress/lzw"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/rmera/mdtrj"
	v3 "github.com/rmera/mdtrj/v3"
)

const (
	lzwLitwidth int = 8
	defaultPrec int = 2
)

func precision(header map[string]string, filename string) int {
	p, ok := header["prec"]
	if !ok {
		return defaultPrec
	}
	prec, err := strconv.Atoi(p)
	if err != nil || prec < 1 {
		log.Warn().Str("file", filename).Str("prec", p).Msg("invalid precision in trajectory, will use the default")
		return defaultPrec
	}
	return prec
}

// StfW is a writer for STF trajectories.
type StfW struct {
	f         *os.File
	h         io.WriteCloser
	w         *bufio.Writer
	natoms    int
	filename  string
	writeable bool
	prec      int
	mult      float64
}

// Close flushes and closes the trajectory. It can not be written after this call.
func (S *StfW) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.w.Flush()
	if err2 := S.h.Close(); err == nil {
		err = err2
	}
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	if err != nil {
		return Error{err.Error(), S.filename, []string{"Close"}, true}
	}
	return nil
}

// Len returns the number of atoms per frame.
func (S *StfW) Len() int {
	return S.natoms
}

func coordsEncode(f [3]float64, mult float64) string {
	var temp [3]int
	for i, v := range f {
		temp[i] = int(math.RoundToEven(v * mult))
	}
	return fmt.Sprintf("%d %d %d\n", temp[0], temp[1], temp[2])
}

// WNext writes coord as the next frame of the trajectory. If box is given, and it contains
// at least 9 values, they are written as the box vectors of the frame.
func (S *StfW) WNext(coord *v3.Matrix, box ...[]float64) error {
	if !S.writeable {
		return Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil {
		return Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	v := coord.NVecs()
	if v != S.natoms {
		return Error{fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	for i := 0; i < v; i++ {
		if _, err := S.w.WriteString(coordsEncode(coord.Vec(i), S.mult)); err != nil {
			return Error{err.Error(), S.filename, []string{"WNext"}, true}
		}
	}
	term := "*\n"
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		term = fmt.Sprintf("* %.4f %.4f %.4f %.4f %.4f %.4f %.4f %.4f %.4f\n", b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
	}
	if _, err := S.w.WriteString(term); err != nil {
		return Error{err.Error(), S.filename, []string{"WNext"}, true}
	}
	return nil
}

// WNextBox writes coord as the next frame, with the orthorhombic box b.
func (S *StfW) WNextBox(coord *v3.Matrix, b mdtrj.Box) error {
	vecs := []float64{b[0], 0, 0, 0, b[1], 0, 0, 0, b[2]}
	if err := S.WNext(coord, vecs); err != nil {
		return errDecorate(err, "WNextBox")
	}
	return nil
}

func anyWriter(name string, level int) func(io.Writer) (io.WriteCloser, error) {
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Writer) (io.WriteCloser, error) { return lzw.NewWriter(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Writer) (io.WriteCloser, error) { return gzip.NewWriterLevel(a, level) }
	case 'r':
		return func(a io.Writer) (io.WriteCloser, error) { return flate.NewWriter(a, level) }
	default:
		return func(a io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(a, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		}
	}
}

// NewWriter creates the STF file name, for frames with natoms atoms, and writes the header to it.
// The compression is chosen from the last letter of the name. compressionLevel
// is only used for gzip and deflate.
func NewWriter(name string, natoms int, header map[string]string, compressionLevel ...int) (*StfW, error) {
	level := flate.BestCompression
	if len(compressionLevel) > 0 {
		level = compressionLevel[0]
	}
	if name == "" {
		return nil, Error{UnableToOpen, name, []string{"NewWriter"}, true}
	}
	S := &StfW{natoms: natoms, filename: name}
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S.h, err = anyWriter(name, level)(S.f)
	if err != nil {
		S.f.Close()
		return nil, Error{"Can't write header " + err.Error(), name, []string{"NewWriter"}, true}
	}
	S.w = bufio.NewWriter(S.h)
	S.writeable = true
	S.prec = precision(header, name)
	S.mult = math.Pow(10, float64(S.prec))
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(S.w, "%s=%s\n", k, header[k])
	}
	fmt.Fprintf(S.w, "** %d\n", S.natoms)
	return S, nil
}

// StfR is a reader for STF trajectories. It implements mdtrj.Traj and mdtrj.ConcTraj.
type StfR struct {
	f        *os.File
	dec      io.ReadCloser
	h        *bufio.Reader
	natoms   int
	filename string
	prec     int
	mult     float64
	readable bool
}

// zstd.Decoder's Close doesn't return an error, so it is not an io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (s zstdReadCloser) Close() error {
	s.Decoder.Close()
	return nil
}

func anyReader(name string) func(io.Reader) (io.ReadCloser, error) {
	switch strings.ToLower(name)[len(name)-1] {
	case 'l':
		return func(a io.Reader) (io.ReadCloser, error) { return lzw.NewReader(a, lzw.MSB, lzwLitwidth), nil }
	case 'z':
		return func(a io.Reader) (io.ReadCloser, error) { return gzip.NewReader(a) }
	case 'r':
		return func(a io.Reader) (io.ReadCloser, error) { return flate.NewReader(a), nil }
	default:
		return func(a io.Reader) (io.ReadCloser, error) {
			r, err := zstd.NewReader(a)
			if err != nil {
				return nil, err
			}
			return zstdReadCloser{r}, nil
		}
	}
}

// New opens a STF trajectory for reading, and returns a pointer
// to the handle, a map with the metadata (empty, if no metadata is found)
// and error or nil.
func New(name string) (*StfR, map[string]string, error) {
	if name == "" {
		return nil, nil, Error{UnableToOpen, name, []string{"New"}, true}
	}
	S := &StfR{natoms: -1, filename: name}
	var err error
	S.f, err = os.Open(name)
	if err != nil {
		return nil, nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"New"}, true}
	}
	S.dec, err = anyReader(name)(bufio.NewReader(S.f))
	if err != nil {
		S.f.Close()
		return nil, nil, Error{"Can't read header " + err.Error(), name, []string{"New"}, true}
	}
	S.h = bufio.NewReader(S.dec)
	m := make(map[string]string)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.closeFiles()
			return nil, nil, Error{"Can't read header " + err.Error(), name, []string{"New"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.closeFiles()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", str), name, []string{"New"}, true}
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil || S.natoms < 1 {
				S.closeFiles()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from '%s'", nat[1]), name, []string{"New"}, true}
			}
			break
		}
		k, v, ok := strings.Cut(str, "=")
		if !ok {
			S.closeFiles()
			return nil, nil, Error{"Malformed header line: " + str, name, []string{"New"}, true}
		}
		m[k] = v
	}
	S.prec = precision(m, name)
	S.mult = math.Pow(10, float64(S.prec))
	S.readable = true
	return S, m, nil
}

// Readable returns true if the handle is readable (if it is possible to call Next on it)
func (S *StfR) Readable() bool {
	return S.readable
}

func coordsDecode(str string, temp *[3]float64, mult float64) error {
	s := strings.Fields(str)
	if len(s) < 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: Too few fields: %s", str)
	}
	if len(s) > 3 {
		return fmt.Errorf("Ill formated coordinates line in stf: Too many fields: %s", str)
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s). Error: %s", i, v, err.Error())
		}
		temp[i] = float64(f) / mult
	}
	return nil
}

// Next puts in the given matrix (c) the coordinates for the next frame of the trajectory
// and, if given, and the information is present, puts the box vector information in box.
// If c is nil, the frame is read and checked, but discarded.
// At the end of the trajectory, it returns an error that implements mdtrj.LastFrameError,
// and closes the trajectory.
func (S *StfR) Next(c *v3.Matrix, box ...[]float64) error {
	if !S.readable {
		return Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	if c != nil && c.NVecs() != S.natoms {
		return Error{fmt.Sprintf("%d coordinates requested, but the frames have %d", c.NVecs(), S.natoms), S.filename, []string{"Next"}, true}
	}
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadString('\n')
		if err != nil {
			// EOF should only happen when reading the first atom
			if errors.Is(err, io.EOF) && i == 0 && b == "" {
				S.Close()
				return newlastFrameError(S.filename, "Next")
			}
			return Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
		if strings.HasPrefix(b, "*") {
			return Error{fmt.Sprintf("%s: frame ended after %d atoms", WrongFormat, i), S.filename, []string{"Next"}, true}
		}
		if err = coordsDecode(strings.TrimSuffix(b, "\n"), &temp, S.mult); err != nil {
			return Error{err.Error(), S.filename, []string{"Next"}, true}
		}
		if c == nil {
			continue
		}
		c.SetVec(i, temp)
	}
	s, err := S.h.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return Error{"Can't read the frame termination mark: " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if !strings.HasPrefix(s, "*") {
		return Error{WrongFormat + ": wrong number of atoms in frame", S.filename, []string{"Next"}, true}
	}
	if len(box) == 0 || len(box[0]) < 9 {
		return nil
	}
	fields := strings.Fields(s)
	if len(fields) < 10 { // The "*" and the 9 numbers
		log.Debug().Str("file", S.filename).Msg("frame without box information")
		return nil
	}
	for j, v := range fields[1:10] {
		var errbox error
		box[0][j], errbox = strconv.ParseFloat(v, 64)
		//If we got an error reading any of the values, we just set the whole thing to zero
		//and log, no error returned.
		if errbox != nil {
			log.Warn().Str("file", S.filename).Err(errbox).Msg("failed to read the box of a frame")
			for i := range box[0] {
				box[0][i] = 0.0
			}
			break
		}
	}
	return nil
}

func (S *StfR) closeFiles() {
	S.dec.Close()
	S.f.Close()
}

// Close closes the object, and marks it as unreadable
func (S *StfR) Close() {
	if !S.readable {
		return
	}
	S.closeFiles()
	S.readable = false
}

// Len returns the number of atoms in each frame of the trajectory.
func (S *StfR) Len() int {
	return S.natoms
}

// NextConc reads as many frames as elements frames has from the trajectory.
// A frame is discarded if the corresponding element of the slice is nil.
// The function returns a slice of channels, through each of which one of the
// frames will be transmited. If the trajectory ends, the channels for the
// frames already read are returned, together with an mdtrj.LastFrameError.
func (S *StfR) NextConc(frames []*v3.Matrix) ([]chan *v3.Matrix, error) {
	if !S.Readable() {
		return nil, Error{TrajUnIniRead, S.filename, []string{"NextConc"}, true}
	}
	framechans := make([]chan *v3.Matrix, 0, len(frames))
	for _, v := range frames {
		if err := S.Next(v); err != nil {
			if _, ok := err.(mdtrj.LastFrameError); ok && len(framechans) > 0 {
				return framechans, err
			}
			return nil, errDecorate(err, "NextConc")
		}
		c := make(chan *v3.Matrix, 1)
		c <- v
		framechans = append(framechans, c)
	}
	return framechans, nil
}

// ReadAll reads every remaining frame of the trajectory, and the orthorhombic box of each of them
// (a zero Box for frames without box information), and closes it.
func (S *StfR) ReadAll() ([]*v3.Matrix, []mdtrj.Box, error) {
	frames, boxes, err := S.ReadRange(0, -1, 1)
	return frames, boxes, errDecorate(err, "ReadAll")
}

// ReadRange reads the frames start, start+skip, start+2*skip... up to, but not including,
// the frame end, counting from the current position of the trajectory. A negative end
// reads to the end of the trajectory. The frames in between are checked and discarded.
// The trajectory is closed afterwards.
func (S *StfR) ReadRange(start, end, skip int) ([]*v3.Matrix, []mdtrj.Box, error) {
	if start < 0 || skip < 1 || (end >= 0 && end < start) {
		return nil, nil, Error{fmt.Sprintf("invalid frame range start=%d end=%d skip=%d", start, end, skip), S.filename, []string{"ReadRange"}, true}
	}
	defer S.Close()
	var frames []*v3.Matrix
	var boxes []mdtrj.Box
	vecs := make([]float64, 9)
	for i := 0; end < 0 || i < end; i++ {
		var err error
		var f *v3.Matrix
		if i >= start && (i-start)%skip == 0 {
			f = v3.Zeros(S.natoms)
			for j := range vecs {
				vecs[j] = 0
			}
			err = S.Next(f, vecs)
		} else {
			err = S.Next(nil)
		}
		if err != nil {
			if _, ok := err.(mdtrj.LastFrameError); ok {
				return frames, boxes, nil
			}
			return nil, nil, errDecorate(err, "ReadRange")
		}
		if f != nil {
			frames = append(frames, f)
			boxes = append(boxes, BoxDiagonal(vecs))
		}
	}
	return frames, boxes, nil
}

// ReadFile opens the STF file name and reads all its frames. It returns them,
// with the box of each frame and the header of the file.
func ReadFile(name string) ([]*v3.Matrix, []mdtrj.Box, map[string]string, error) {
	return ReadFileRange(name, 0, -1, 1)
}

// ReadFileRange is like ReadFile, but only reads the frames selected by start, end
// and skip, as StfR.ReadRange does.
func ReadFileRange(name string, start, end, skip int) ([]*v3.Matrix, []mdtrj.Box, map[string]string, error) {
	S, header, err := New(name)
	if err != nil {
		return nil, nil, nil, err
	}
	defer S.Close()
	frames, boxes, err := S.ReadRange(start, end, skip)
	if err != nil {
		return nil, nil, nil, errDecorate(err, "ReadFileRange")
	}
	return frames, boxes, header, nil
}

// BoxDiagonal returns the orthorhombic box (the diagonal) of the 9 box vector components in vecs.
func BoxDiagonal(vecs []float64) mdtrj.Box {
	var b mdtrj.Box
	if len(vecs) < 9 {
		return b
	}
	b[0], b[1], b[2] = vecs[0], vecs[4], vecs[8]
	return b
}

//Errors

// errDecorate returns err decorated with the caller's name, if err is an
// mdtrj.ErrorDecorator.
func errDecorate(err error, caller string) error {
	switch e := err.(type) {
	case Error:
		e.deco = e.Decorate(caller)
		return e
	}
	return mdtrj.Decorate(err, caller)
}

// Error is the general structure for STF trajectory errors. It fullfills mdtrj.ErrorDecorator and mdtrj.TrajError
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("stf file %s error: %s", err.filename, err.message)
}

// Decorate returns the decorations of the error with deco appended,
// leaving the receiver unchanged.
func (E Error) Decorate(deco string) []string {
	ret := append([]string(nil), E.deco...)
	if deco != "" {
		ret = append(ret, deco)
	}
	return ret
}

// FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

// Format returns the format of the file (always "stf") associated to the error
func (err Error) Format() string { return "stf" }

// Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilCoordinates = "Given nil coordinates"
	WrongFormat    = "Wrong format in the STF file or frame"
)

// lastFrameError implements mdtrj.LastFrameError
type lastFrameError struct {
	deco     []string
	fileName string
}

// NormalLastFrameTermination does nothing
func (E *lastFrameError) NormalLastFrameTermination() {}

func (E *lastFrameError) FileName() string { return E.fileName }

func (E *lastFrameError) Error() string { return "EOF" }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) Format() string { return "stf" }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	e := new(lastFrameError)
	e.fileName = filename
	e.deco = []string{caller}
	return e
}
