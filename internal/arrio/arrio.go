// --------------------------------------------------------------------------------
// Author: Thomas F McGeehan V
//
// This file is part of a software project developed by Thomas F McGeehan V.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//
// For more information about the MIT License, please visit:
// https://opensource.org/licenses/MIT
//
// Acknowledgment appreciated but not required.
// --------------------------------------------------------------------------------

// Package arrio exposes functions to manipulate records, exposing and using
// interfaces not unlike the ones defined in the stdlib io package.
package arrio

import (
	"errors"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
)

// Reader is the interface that wraps the Read method.
type Reader interface {
	// Read reads the current record from the underlying stream and an error, if any.
	// When the Reader reaches the end of the underlying stream, it returns (nil, io.EOF).
	Read() (arrow.Record, error)
}

// Writer is the interface that wraps the Write method.
type Writer interface {
	Write(rec arrow.Record) error
}

// Copy copies all the records available from src to dst.
// Copy returns the number of records copied and the first error
// encountered while copying, if any.
//
// A successful Copy returns err == nil, not err == EOF. Because Copy is
// defined to read from src until EOF, it does not treat an EOF from Read as an
// error to be reported.
func Copy(dst Writer, src Reader) (n int64, err error) {
	for {
		rec, err := src.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		err = dst.Write(rec)
		if err != nil {
			return n, err
		}
		n++
	}
}

// CopyRows copies the first n rows available from src to dst, slicing the
// last record when it straddles the limit. It returns the number of rows
// copied. Records read from src are owned by CopyRows and released once
// written, so src must hand out retained records.
//
// Reaching EOF before n rows is not an error.
func CopyRows(dst Writer, src Reader, n int64) (written int64, err error) {
	for written < n {
		rec, err := src.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return written, nil
			}
			return written, err
		}
		if left := n - written; rec.NumRows() > left {
			slice := rec.NewSlice(0, left)
			rec.Release()
			rec = slice
		}
		rows := rec.NumRows()
		err = dst.Write(rec)
		rec.Release()
		if err != nil {
			return written, err
		}
		written += rows
	}
	return written, nil
}

// SliceReader reads records from an in-memory slice. Records are returned
// without an additional reference; the owner of the slice releases them.
type SliceReader struct {
	recs []arrow.Record
	cur  int
}

func NewSliceReader(recs []arrow.Record) *SliceReader {
	return &SliceReader{recs: recs}
}

func (r *SliceReader) Read() (arrow.Record, error) {
	if r.cur >= len(r.recs) {
		return nil, io.EOF
	}
	rec := r.recs[r.cur]
	r.cur++
	return rec, nil
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(rec arrow.Record) error

func (f WriterFunc) Write(rec arrow.Record) error {
	return f(rec)
}
