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
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"

	pool "github.com/arrowarc/ghcnd/internal/memory"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

// ErrWriterClosed is returned by Write after Close.
var ErrWriterClosed = errors.New("asset writer is closed")

// ParquetReader reads Parquet files and implements the arrio.Reader interface.
type ParquetReader struct {
	recordReader pqarrow.RecordReader
	fileReader   *file.Reader
	schema       *arrow.Schema
	alloc        memory.Allocator
}

// ParquetReadOptions defines options for reading Parquet files.
type ParquetReadOptions struct {
	MemoryMap     bool
	ColumnIndices []int
	RowGroups     []int
	Parallel      bool
	BatchSize     int64
}

func (o *ParquetReadOptions) toArrowReadProperties() pqarrow.ArrowReadProperties {
	props := pqarrow.ArrowReadProperties{
		Parallel:  o.Parallel,
		BatchSize: o.BatchSize,
	}
	if props.BatchSize <= 0 {
		props.BatchSize = 64 * 1024
	}
	return props
}

// ParquetWriteOptions controls how the data asset is encoded.
type ParquetWriteOptions struct {
	// Compression is one of snappy, zstd, gzip or none. Empty means snappy.
	Compression       string
	MaxRowGroupLength int64
	CreatedBy         string
}

// NewDefaultParquetWriteOptions returns snappy compression with 1M row groups.
func NewDefaultParquetWriteOptions() *ParquetWriteOptions {
	return &ParquetWriteOptions{
		Compression:       "snappy",
		MaxRowGroupLength: 1024 * 1024,
		CreatedBy:         "ghcnd",
	}
}

// ParseCompression maps a codec name onto a Parquet compression codec.
func ParseCompression(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	}
	return compress.Codecs.Uncompressed, fmt.Errorf("unsupported compression %q", name)
}

func (o *ParquetWriteOptions) writerProperties(alloc memory.Allocator) (*parquet.WriterProperties, error) {
	codec, err := ParseCompression(o.Compression)
	if err != nil {
		return nil, err
	}
	opts := []parquet.WriterProperty{
		parquet.WithCompression(codec),
		parquet.WithAllocator(alloc),
		parquet.WithVersion(parquet.V2_LATEST),
		parquet.WithDataPageSize(1024 * 1024),
	}
	if o.MaxRowGroupLength > 0 {
		opts = append(opts, parquet.WithMaxRowGroupLength(o.MaxRowGroupLength))
	}
	if o.CreatedBy != "" {
		opts = append(opts, parquet.WithCreatedBy(o.CreatedBy))
	}
	return parquet.NewWriterProperties(opts...), nil
}

// NewParquetReader creates a new Parquet file reader.
func NewParquetReader(ctx context.Context, filePath string, opts *ParquetReadOptions) (*ParquetReader, error) {
	if opts == nil {
		opts = &ParquetReadOptions{}
	}
	alloc := pool.GetAllocator()

	rdr, err := file.OpenParquetFile(filePath, opts.MemoryMap)
	if err != nil {
		pool.PutAllocator(alloc)
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}

	fileReader, err := pqarrow.NewFileReader(rdr, opts.toArrowReadProperties(), alloc)
	if err != nil {
		pool.PutAllocator(alloc)
		rdr.Close()
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}

	recordReader, err := fileReader.GetRecordReader(ctx, opts.ColumnIndices, opts.RowGroups)
	if err != nil {
		pool.PutAllocator(alloc)
		rdr.Close()
		return nil, fmt.Errorf("failed to create record reader: %w", err)
	}

	return &ParquetReader{
		recordReader: recordReader,
		fileReader:   rdr,
		schema:       recordReader.Schema(),
		alloc:        alloc,
	}, nil
}

// Read returns the next record. The caller must release it.
func (p *ParquetReader) Read() (arrow.Record, error) {
	if p.recordReader.Next() {
		record := p.recordReader.Record()
		record.Retain()
		return record, nil
	}
	if err := p.recordReader.Err(); err != nil && err != io.EOF {
		return nil, err
	}
	return nil, io.EOF
}

func (p *ParquetReader) Close() error {
	defer pool.PutAllocator(p.alloc)
	p.recordReader.Release()
	return p.fileReader.Close()
}

func (p *ParquetReader) Schema() *arrow.Schema {
	return p.schema
}

// AssetWriter writes the consolidated data asset. It starts Unopened: no
// file exists until the first Write, which fixes the schema. Every later
// record must carry an equal schema.
type AssetWriter struct {
	path  string
	opts  *ParquetWriteOptions
	alloc memory.Allocator

	schema *arrow.Schema
	file   *os.File
	writer *pqarrow.FileWriter

	metaKeys []string
	meta     map[string]string
	rows     int64
	closed   bool
}

// NewAssetWriter prepares a writer for path. Nothing is created on disk.
func NewAssetWriter(path string, opts *ParquetWriteOptions) (*AssetWriter, error) {
	if opts == nil {
		opts = NewDefaultParquetWriteOptions()
	}
	if _, err := ParseCompression(opts.Compression); err != nil {
		return nil, err
	}
	return &AssetWriter{
		path: path,
		opts: opts,
		meta: make(map[string]string),
	}, nil
}

// Opened reports whether the output file has been created.
func (w *AssetWriter) Opened() bool {
	return w.writer != nil
}

// Schema returns the fixed schema, or nil while Unopened.
func (w *AssetWriter) Schema() *arrow.Schema {
	return w.schema
}

// NumRows is the number of rows accepted so far.
func (w *AssetWriter) NumRows() int64 {
	return w.rows
}

func (w *AssetWriter) Path() string {
	return w.path
}

func (w *AssetWriter) open(schema *arrow.Schema) error {
	alloc := pool.GetAllocator()
	props, err := w.opts.writerProperties(alloc)
	if err != nil {
		pool.PutAllocator(alloc)
		return err
	}

	f, err := os.Create(w.path)
	if err != nil {
		pool.PutAllocator(alloc)
		return fmt.Errorf("failed to create file: %w", err)
	}

	writer, err := pqarrow.NewFileWriter(schema, f, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		f.Close()
		os.Remove(w.path)
		pool.PutAllocator(alloc)
		return fmt.Errorf("failed to create Parquet writer: %w", err)
	}

	w.alloc = alloc
	w.file = f
	w.writer = writer
	w.schema = schema
	return nil
}

// Open creates the file with schema. Opening an already open writer only
// checks that the schemas agree.
func (w *AssetWriter) Open(schema *arrow.Schema) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.writer != nil {
		if !schema.Equal(w.schema) {
			return &ghcnd.SchemaMismatchError{
				Expected: fieldNames(w.schema),
				Actual:   fieldNames(schema),
			}
		}
		return nil
	}
	return w.open(schema)
}

// Write appends record. The first call opens the file with the record's
// schema.
func (w *AssetWriter) Write(record arrow.Record) error {
	if w.closed {
		return ErrWriterClosed
	}
	if w.writer == nil {
		if err := w.open(record.Schema()); err != nil {
			return err
		}
	} else if !record.Schema().Equal(w.schema) {
		return &ghcnd.SchemaMismatchError{
			Expected: fieldNames(w.schema),
			Actual:   fieldNames(record.Schema()),
		}
	}

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	w.rows += record.NumRows()
	return nil
}

// SetMetadata records a footer key/value pair. Setting a key again replaces
// the earlier value. Pairs are written on Close.
func (w *AssetWriter) SetMetadata(key, value string) {
	if _, ok := w.meta[key]; !ok {
		w.metaKeys = append(w.metaKeys, key)
	}
	w.meta[key] = value
}

// Close finalizes the file. It is safe to call more than once; closing an
// Unopened writer creates nothing.
func (w *AssetWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.writer == nil {
		return nil
	}
	defer pool.PutAllocator(w.alloc)

	for _, k := range w.metaKeys {
		if err := w.writer.AppendKeyValueMetadata(k, w.meta[k]); err != nil {
			w.writer.Close()
			w.file.Close()
			return fmt.Errorf("failed to set metadata %q: %w", k, err)
		}
	}
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close Parquet writer: %w", err)
	}
	if err := w.file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("failed to close file: %w", err)
	}
	return nil
}

func fieldNames(schema *arrow.Schema) []string {
	names := make([]string, schema.NumFields())
	for i, f := range schema.Fields() {
		names[i] = f.Name + " " + f.Type.String()
	}
	return names
}

// AssetSummary describes a written data asset from its footer.
type AssetSummary struct {
	Path         string
	Size         int64
	NumRows      int64
	NumRowGroups int
	CreatedBy    string
	Schema       *arrow.Schema
	Metadata     map[string]string
}

// Complete reports whether every requested year was written.
func (s *AssetSummary) Complete() bool {
	return s.Metadata[ghcnd.MetaComplete] == "true"
}

// ReadAssetSummary reads the footer of the Parquet file at path.
func ReadAssetSummary(path string) (*AssetSummary, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat asset: %w", err)
	}

	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer rdr.Close()

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, fmt.Errorf("failed to create Arrow file reader: %w", err)
	}
	schema, err := fr.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema: %w", err)
	}

	md := rdr.MetaData()
	summary := &AssetSummary{
		Path:         path,
		Size:         info.Size(),
		NumRows:      rdr.NumRows(),
		NumRowGroups: rdr.NumRowGroups(),
		CreatedBy:    md.GetCreatedBy(),
		Schema:       schema,
		Metadata:     make(map[string]string),
	}
	kv := md.KeyValueMetadata()
	keys, values := kv.Keys(), kv.Values()
	for i, k := range keys {
		if strings.HasPrefix(k, "ARROW:") {
			continue
		}
		summary.Metadata[k] = values[i]
	}
	return summary, nil
}

// ReadAssetTable loads the whole asset into memory.
func ReadAssetTable(ctx context.Context, path string, mem memory.Allocator) (arrow.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}
	defer f.Close()

	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return tbl, nil
}
