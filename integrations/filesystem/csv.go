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

package filesystem

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/csv"
	"github.com/apache/arrow/go/v17/arrow/memory"
)

// CSVReadOptions configures a CSVRecordReader.
type CSVReadOptions struct {
	HasHeader        bool
	ChunkSize        int
	Delimiter        rune
	NullValues       []string
	StringsCanBeNull bool
	Allocator        memory.Allocator
}

// NewDefaultCSVReadOptions reads headerless, comma separated rows one chunk
// of 64k rows at a time.
func NewDefaultCSVReadOptions() *CSVReadOptions {
	return &CSVReadOptions{
		ChunkSize: 64 * 1024,
		Delimiter: ',',
	}
}

// CSVRecordReader implements arrio.Reader for reading records from CSV with a
// fixed schema.
type CSVRecordReader struct {
	reader *csv.Reader
}

// NewCSVRecordReader creates a reader decoding r into records of schema.
func NewCSVRecordReader(r io.Reader, schema *arrow.Schema, opts *CSVReadOptions) *CSVRecordReader {
	if opts == nil {
		opts = NewDefaultCSVReadOptions()
	}
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = ','
	}

	options := []csv.Option{
		csv.WithChunk(opts.ChunkSize),
		csv.WithComma(delimiter),
		csv.WithHeader(opts.HasHeader),
		csv.WithNullReader(opts.StringsCanBeNull, opts.NullValues...),
	}
	if opts.Allocator != nil {
		options = append(options, csv.WithAllocator(opts.Allocator))
	}

	return &CSVRecordReader{reader: csv.NewReader(r, schema, options...)}
}

// Read returns the next chunk. The caller owns the record and must release
// it. A chunk cut short by a malformed row is returned before the error.
func (r *CSVRecordReader) Read() (arrow.Record, error) {
	if !r.reader.Next() {
		if err := r.reader.Err(); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading CSV record: %w", err)
		}
		return nil, io.EOF
	}

	record := r.reader.Record()
	if record == nil {
		return nil, io.EOF
	}

	record.Retain()
	return record, nil
}

func (r *CSVRecordReader) Schema() *arrow.Schema {
	return r.reader.Schema()
}

// Close releases resources associated with the CSV reader.
func (r *CSVRecordReader) Close() error {
	if r.reader != nil {
		r.reader.Release()
		r.reader = nil
	}
	return nil
}

// CSVRecordWriter implements arrio.Writer for writing records as CSV.
type CSVRecordWriter struct {
	writer *csv.Writer
}

// NewCSVRecordWriter creates a writer emitting records to w. Nulls are
// written as nullValue.
func NewCSVRecordWriter(w io.Writer, schema *arrow.Schema, includeHeader bool, nullValue string) *CSVRecordWriter {
	writer := csv.NewWriter(w, schema,
		csv.WithComma(','),
		csv.WithHeader(includeHeader),
		csv.WithNullWriter(nullValue),
	)
	return &CSVRecordWriter{writer: writer}
}

// Write writes a record.
func (w *CSVRecordWriter) Write(record arrow.Record) error {
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record to CSV: %w", err)
	}
	return nil
}

// Close flushes buffered rows.
func (w *CSVRecordWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer encountered an error: %w", err)
	}
	return nil
}
