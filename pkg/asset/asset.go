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

// Package asset builds the consolidated GHCNd data asset: the station table
// is loaded once, then each year in range is fetched, decompressed, joined
// and appended to a single Parquet file in ascending order.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/internal/arrio"
	"github.com/arrowarc/ghcnd/internal/observability"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
	"github.com/arrowarc/ghcnd/pkg/merge"
	"github.com/arrowarc/ghcnd/pkg/stations"
)

// ErrInvalidRange is returned for a year range outside the archive.
var ErrInvalidRange = errors.New("invalid year range")

// State is the position of a build in its lifecycle.
type State int

const (
	StateInit State = iota
	StateStationsLoaded
	StatePerYear
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateStationsLoaded:
		return "StationsLoaded"
	case StatePerYear:
		return "PerYear"
	case StateFinalized:
		return "Finalized"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Fetcher retrieves and unpacks year archives.
type Fetcher interface {
	Download(ctx context.Context, source string) (string, error)
	Decompress(path string) (string, error)
}

// StationLoader provides the station table.
type StationLoader interface {
	Load(ctx context.Context) (*stations.Table, error)
}

// Options configures a build.
type Options struct {
	OutputPath   string
	YearsURL     string
	Write        *filesystem.ParquetWriteOptions
	BatchRows    int
	Policy       merge.Policy
	KeepUnzipped bool
}

// YearResult is reported to the year hook after a year is appended.
type YearResult struct {
	Year      int
	Rows      int64
	Unmatched int64
	Duration  time.Duration
}

// Result summarizes a build. EndYear is the last year fully written.
type Result struct {
	Path           string
	RunID          string
	StartYear      int
	EndYear        int
	YearsProcessed int
	RowsWritten    int64
	Unmatched      int64
	StationsHash   uint64
	Complete       bool
}

// assetWriter is the subset of filesystem.AssetWriter a build drives.
type assetWriter interface {
	arrio.Writer
	Open(schema *arrow.Schema) error
	Opened() bool
	SetMetadata(key, value string)
	Close() error
}

func newParquetWriter(path string, opts *filesystem.ParquetWriteOptions) (assetWriter, error) {
	return filesystem.NewAssetWriter(path, opts)
}

type Builder struct {
	opts      Options
	newWriter func(path string, opts *filesystem.ParquetWriteOptions) (assetWriter, error)

	fetcher Fetcher
	loader  StationLoader
	logger  log.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	hook    func(YearResult)

	state State
	year  int
}

type Option func(*Builder)

func WithLogger(logger log.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

func WithClock(c clockwork.Clock) Option {
	return func(b *Builder) { b.clock = c }
}

// WithYearHook registers fn to observe every appended year, in order.
func WithYearHook(fn func(YearResult)) Option {
	return func(b *Builder) { b.hook = fn }
}

func New(opts Options, fetcher Fetcher, loader StationLoader, options ...Option) *Builder {
	if opts.YearsURL == "" {
		opts.YearsURL = ghcnd.YearsURL
	}
	if opts.Policy == "" {
		opts.Policy = merge.PolicyNull
	}
	b := &Builder{
		opts:      opts,
		newWriter: newParquetWriter,
		fetcher:   fetcher,
		loader:    loader,
		logger:    log.NewNopLogger(),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range options {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = observability.NewMetrics()
	}
	return b
}

// State reports the current lifecycle state.
func (b *Builder) State() State {
	return b.state
}

// Year is the year being processed while in StatePerYear.
func (b *Builder) Year() int {
	return b.year
}

// ValidateRange checks that start..end lies within the archive.
func ValidateRange(start, end, currentYear int) error {
	switch {
	case start > end:
		return fmt.Errorf("%w: start year %d is after end year %d", ErrInvalidRange, start, end)
	case start < ghcnd.FirstYear:
		return fmt.Errorf("%w: start year %d precedes %d", ErrInvalidRange, start, ghcnd.FirstYear)
	case end > currentYear:
		return fmt.Errorf("%w: end year %d is in the future", ErrInvalidRange, end)
	}
	return nil
}

// Build writes the years start through end, inclusive, to the output path.
// Any file already at the path is removed first, so the output either holds
// a prefix of the range or does not exist. The file is finalized on every
// exit path. On error the returned Result describes the years written
// before the failure.
func (b *Builder) Build(ctx context.Context, start, end int) (res *Result, err error) {
	if err := ValidateRange(start, end, b.clock.Now().Year()); err != nil {
		return nil, err
	}

	b.state = StateInit
	res = &Result{
		Path:      b.opts.OutputPath,
		RunID:     uuid.NewString(),
		StartYear: start,
	}
	logger := log.With(b.logger, "run_id", res.RunID)

	if err := os.Remove(b.opts.OutputPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("failed to remove previous data asset: %w", err)
	}

	table, err := b.loader.Load(ctx)
	if err != nil {
		return res, err
	}
	res.StationsHash = table.Fingerprint()
	b.state = StateStationsLoaded
	level.Info(logger).Log("msg", "building data asset", "start", start, "end", end, "output", b.opts.OutputPath, "stations", table.Len())

	w, err := b.newWriter(b.opts.OutputPath, b.opts.Write)
	if err != nil {
		return res, err
	}
	w.SetMetadata(ghcnd.MetaComplete, "false")
	w.SetMetadata(ghcnd.MetaStartYear, strconv.Itoa(start))
	w.SetMetadata(ghcnd.MetaRunID, res.RunID)
	w.SetMetadata(ghcnd.MetaStationsHash, fmt.Sprintf("%016x", res.StationsHash))

	defer func() {
		if res.YearsProcessed > 0 {
			w.SetMetadata(ghcnd.MetaEndYear, strconv.Itoa(res.EndYear))
		}
		w.SetMetadata(ghcnd.MetaCreated, b.clock.Now().UTC().Format(time.RFC3339))
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
		b.state = StateFinalized
		if err != nil {
			level.Error(logger).Log("msg", "data asset build failed", "years", res.YearsProcessed, "err", err)
			return
		}
		res.Complete = true
		b.metrics.LastSuccess.Set(float64(b.clock.Now().Unix()))
		level.Info(logger).Log("msg", "data asset complete", "years", res.YearsProcessed, "rows", res.RowsWritten, "unmatched", res.Unmatched)
	}()

	merger := merge.NewMerger(table,
		merge.WithBatchRows(b.opts.BatchRows),
		merge.WithPolicy(b.opts.Policy),
		merge.WithLogger(logger),
	)

	for year := start; year <= end; year++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		b.state = StatePerYear
		b.year = year

		yr, err := b.processYear(ctx, logger, merger, w, year)
		if err != nil {
			return res, fmt.Errorf("year %d: %w", year, err)
		}

		res.EndYear = year
		res.YearsProcessed++
		res.RowsWritten += yr.Rows
		res.Unmatched += yr.Unmatched
		if b.hook != nil {
			b.hook(yr)
		}
	}

	// Years without a single row still produce a readable, empty asset.
	if !w.Opened() {
		if err := w.Open(merge.Schema); err != nil {
			return res, err
		}
	}
	w.SetMetadata(ghcnd.MetaComplete, "true")
	return res, nil
}

func (b *Builder) processYear(ctx context.Context, logger log.Logger, merger *merge.Merger, w assetWriter, year int) (YearResult, error) {
	started := b.clock.Now()
	level.Info(logger).Log("msg", "processing year", "year", year)

	archive, err := b.fetcher.Download(ctx, ghcnd.YearURL(b.opts.YearsURL, year))
	if err != nil {
		return YearResult{}, err
	}
	csvPath, err := b.fetcher.Decompress(archive)
	if err != nil {
		return YearResult{}, err
	}

	batch, err := merger.MergeYear(ctx, csvPath)
	if err != nil {
		return YearResult{}, err
	}
	defer batch.Release()

	if _, err := arrio.Copy(w, batch.Reader()); err != nil {
		return YearResult{}, err
	}

	if !b.opts.KeepUnzipped {
		if err := os.Remove(csvPath); err != nil {
			level.Warn(logger).Log("msg", "failed to remove decompressed file", "path", csvPath, "err", err)
		}
	}

	yr := YearResult{
		Year:      year,
		Rows:      batch.NumRows(),
		Unmatched: batch.Unmatched(),
		Duration:  b.clock.Since(started),
	}
	b.metrics.YearsProcessed.Inc()
	b.metrics.RowsWritten.Add(float64(yr.Rows))
	b.metrics.UnmatchedRows.Add(float64(yr.Unmatched))
	b.metrics.YearDuration.Observe(yr.Duration.Seconds())
	level.Info(logger).Log("msg", "year complete", "year", year, "rows", yr.Rows, "unmatched", yr.Unmatched, "duration", yr.Duration)
	return yr, nil
}
