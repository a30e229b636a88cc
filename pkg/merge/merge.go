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

// Package merge parses one year of GHCNd observations and left-joins it
// against the station table.
package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/internal/arrio"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
	"github.com/arrowarc/ghcnd/pkg/stations"
)

// Policy decides what happens to an observation whose station is not in the
// station table.
type Policy string

const (
	// PolicyNull keeps the row with null station fields and null geometry.
	PolicyNull Policy = "null"
	// PolicyDrop removes the row.
	PolicyDrop Policy = "drop"
	// PolicyFail aborts the merge with a ParseError.
	PolicyFail Policy = "fail"
)

// ErrUnknownStation is wrapped by the ParseError returned under PolicyFail.
var ErrUnknownStation = errors.New("unknown station")

// ParsePolicy validates a policy name. The empty string selects PolicyNull.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case "":
		return PolicyNull, nil
	case PolicyNull, PolicyDrop, PolicyFail:
		return p, nil
	}
	return "", fmt.Errorf("unknown unmatched station policy %q", s)
}

const DefaultBatchRows = 64 * 1024

const numDataColumns = 8

type Merger struct {
	table     *stations.Table
	batchRows int
	alloc     memory.Allocator
	policy    Policy
	logger    log.Logger
}

type Option func(*Merger)

// WithBatchRows caps the number of rows per output record.
func WithBatchRows(n int) Option {
	return func(m *Merger) {
		if n > 0 {
			m.batchRows = n
		}
	}
}

func WithAllocator(alloc memory.Allocator) Option {
	return func(m *Merger) { m.alloc = alloc }
}

func WithPolicy(p Policy) Option {
	return func(m *Merger) { m.policy = p }
}

func WithLogger(logger log.Logger) Option {
	return func(m *Merger) { m.logger = logger }
}

func NewMerger(table *stations.Table, opts ...Option) *Merger {
	m := &Merger{
		table:     table,
		batchRows: DefaultBatchRows,
		alloc:     memory.DefaultAllocator,
		policy:    PolicyNull,
		logger:    log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MergeYear parses the decompressed CSV at path and joins it.
func (m *Merger) MergeYear(ctx context.Context, path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open year file: %w", err)
	}
	defer f.Close()

	b, err := m.merge(ctx, f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	level.Debug(m.logger).Log("msg", "merged year file", "path", path, "rows", b.NumRows(), "records", len(b.records), "unmatched", b.Unmatched())
	return b, nil
}

// MergeReader joins a headerless observation CSV read from r.
func (m *Merger) MergeReader(ctx context.Context, r io.Reader) (*Batch, error) {
	return m.merge(ctx, r, "stream")
}

func (m *Merger) merge(ctx context.Context, r io.Reader, source string) (*Batch, error) {
	br := bufio.NewReader(r)
	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, &ghcnd.ParseError{Source: source, Line: 1, Details: err}
	}
	// A short first row would desynchronize the column builders of the CSV
	// reader, so its width is checked up front.
	if row := strings.TrimRight(first, "\r\n"); row != "" {
		if n := strings.Count(row, ",") + 1; n != numDataColumns {
			return nil, &ghcnd.ParseError{Source: source, Line: 1, Details: fmt.Errorf("expected %d fields, got %d", numDataColumns, n)}
		}
	}

	reader := filesystem.NewCSVRecordReader(io.MultiReader(strings.NewReader(first), br), ObservationSchema, &filesystem.CSVReadOptions{
		ChunkSize:        m.batchRows,
		NullValues:       []string{""},
		StringsCanBeNull: true,
		Allocator:        m.alloc,
	})
	defer reader.Close()

	batch := &Batch{}
	bldr := array.NewRecordBuilder(m.alloc, Schema)
	defer bldr.Release()

	fail := func(err error) (*Batch, error) {
		batch.Release()
		return nil, err
	}

	lines := 0
	for {
		obs, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(&ghcnd.ParseError{Source: source, Line: lines + 1, Details: err})
		}

		err = m.join(bldr, obs, batch, source, lines)
		lines += int(obs.NumRows())
		obs.Release()
		if err != nil {
			return fail(err)
		}

		rec := bldr.NewRecord()
		if rec.NumRows() == 0 {
			rec.Release()
		} else {
			batch.records = append(batch.records, rec)
		}

		if err := ctx.Err(); err != nil {
			return fail(err)
		}
	}

	return batch, nil
}

// join appends every row of obs, with its station fields, to bldr. offset is
// the number of lines consumed before obs.
func (m *Merger) join(bldr *array.RecordBuilder, obs arrow.Record, batch *Batch, source string, offset int) error {
	ids := obs.Column(0).(*array.String)
	values := obs.Column(3).(*array.Int64)

	for i := 0; i < int(obs.NumRows()); i++ {
		line := offset + i + 1
		for _, col := range []int{0, 1, 2} {
			if obs.Column(col).IsNull(i) {
				return &ghcnd.ParseError{Source: source, Line: line, Details: fmt.Errorf("column %s: missing value", obs.ColumnName(col))}
			}
		}
		if values.IsNull(i) {
			return &ghcnd.ParseError{Source: source, Line: line, Details: fmt.Errorf("column %s: missing or non-integer value", ghcnd.ColValue)}
		}

		id := ids.Value(i)
		st, ok := m.table.Lookup(id)
		if !ok {
			batch.unmatched++
			switch m.policy {
			case PolicyDrop:
				continue
			case PolicyFail:
				return &ghcnd.ParseError{Source: source, Line: line, Details: fmt.Errorf("%w %q", ErrUnknownStation, id)}
			}
		}

		appendObservation(bldr, obs, i)
		appendStation(bldr, st, ok)
		batch.rows++
	}
	return nil
}

func appendObservation(bldr *array.RecordBuilder, obs arrow.Record, row int) {
	for col := 0; col < numDataColumns; col++ {
		src := obs.Column(col)
		if src.IsNull(row) {
			bldr.Field(col).AppendNull()
			continue
		}
		switch src := src.(type) {
		case *array.String:
			bldr.Field(col).(*array.StringBuilder).Append(src.Value(row))
		case *array.Int64:
			bldr.Field(col).(*array.Int64Builder).Append(src.Value(row))
		}
	}
}

func appendStation(bldr *array.RecordBuilder, st stations.Station, matched bool) {
	if !matched {
		for i := numDataColumns; i < len(Schema.Fields()); i++ {
			bldr.Field(i).AppendNull()
		}
		return
	}

	bldr.Field(8).(*array.Float64Builder).Append(st.Latitude)
	bldr.Field(9).(*array.Float64Builder).Append(st.Longitude)
	bldr.Field(10).(*array.Float64Builder).Append(st.Elevation)
	appendString(bldr.Field(11), st.State)
	appendString(bldr.Field(12), st.Name)
	appendString(bldr.Field(13), st.GSNFlag)
	appendString(bldr.Field(14), st.HCNCRNFlag)
	appendString(bldr.Field(15), st.WMOID)
	bldr.Field(16).(*array.StringBuilder).Append(PointWKT(st.Longitude, st.Latitude))
}

// appendString stores a blank station field as null.
func appendString(b array.Builder, v string) {
	if v == "" {
		b.AppendNull()
		return
	}
	b.(*array.StringBuilder).Append(v)
}

// Batch holds the joined records of one year.
type Batch struct {
	records   []arrow.Record
	rows      int64
	unmatched int64
}

func (b *Batch) Records() []arrow.Record {
	return b.records
}

func (b *Batch) NumRows() int64 {
	return b.rows
}

// Unmatched counts observations whose station was not found, including
// dropped ones.
func (b *Batch) Unmatched() int64 {
	return b.unmatched
}

// Reader streams the records in order. The batch keeps ownership.
func (b *Batch) Reader() arrio.Reader {
	return arrio.NewSliceReader(b.records)
}

func (b *Batch) Release() {
	for _, rec := range b.records {
		rec.Release()
	}
	b.records = nil
}
