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

package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/jonboulle/clockwork"
	"github.com/klauspost/compress/gzip"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/internal/observability"
	"github.com/arrowarc/ghcnd/pkg/fetch"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
	"github.com/arrowarc/ghcnd/pkg/merge"
	"github.com/arrowarc/ghcnd/pkg/stations"
)

var testStations = []stations.Station{
	{ID: "USW00094728", Latitude: 40.77, Longitude: -73.9, Elevation: 39.6, State: "NY", Name: "NEW YORK CNTRL PK TWR", HCNCRNFlag: "HCN", WMOID: "72506"},
	{ID: "ACW00011604", Latitude: 17.1167, Longitude: -61.7833, Elevation: 10.1, Name: "ST JOHNS COKER FLD"},
}

func yearRows(year int) string {
	return fmt.Sprintf("USW00094728,%d0101,TMAX,-33,,,C,\n"+
		"ACW00011604,%d0101,PRCP,0,T,,E,0700\n"+
		"XXX00000000,%d0102,TMIN,-100,,,E,\n", year, year, year)
}

func gzipString(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type archive struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []string
}

func (a *archive) record(path string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, path)
}

// newArchive serves a station table and gzip year files. Years listed in
// missing answer 404.
func newArchive(t *testing.T, files map[int]string, missing ...int) *archive {
	t.Helper()
	var table strings.Builder
	for _, s := range testStations {
		table.WriteString(stations.Format(s) + "\n")
	}

	a := &archive{}
	mux := http.NewServeMux()
	mux.HandleFunc("/ghcnd-stations.txt", func(w http.ResponseWriter, r *http.Request) {
		a.record(r.URL.Path)
		_, _ = w.Write([]byte(table.String()))
	})
	mux.HandleFunc("/by_year/", func(w http.ResponseWriter, r *http.Request) {
		a.record(r.URL.Path)
		var year int
		if _, err := fmt.Sscanf(filepath.Base(r.URL.Path), "%d.csv.gz", &year); err != nil {
			http.NotFound(w, r)
			return
		}
		for _, m := range missing {
			if m == year {
				http.NotFound(w, r)
				return
			}
		}
		body, ok := files[year]
		if !ok {
			body = yearRows(year)
		}
		_, _ = w.Write(gzipString(t, body))
	})
	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

type fixture struct {
	builder *Builder
	fetcher *fetch.Fetcher
	metrics *observability.Metrics
	output  string
	years   []int
}

func newFixture(t *testing.T, a *archive, opts Options) *fixture {
	t.Helper()
	root := t.TempDir()
	f, err := fetch.New(filepath.Join(root, "downloads"), filepath.Join(root, "unzipped"))
	require.NoError(t, err)

	fx := &fixture{
		fetcher: f,
		metrics: observability.NewMetrics(),
		output:  filepath.Join(root, "ghcnd.parquet"),
	}
	opts.OutputPath = fx.output
	opts.YearsURL = a.srv.URL + "/by_year/"

	loader := stations.NewLoader(f, a.srv.URL+"/ghcnd-stations.txt")
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	fx.builder = New(opts, f, loader,
		WithMetrics(fx.metrics),
		WithClock(clock),
		WithYearHook(func(yr YearResult) { fx.years = append(fx.years, yr.Year) }),
	)
	return fx
}

func TestBuild_TwoYears(t *testing.T) {
	a := newArchive(t, nil)
	fx := newFixture(t, a, Options{KeepUnzipped: true})
	assert.Equal(t, StateInit, fx.builder.State())

	res, err := fx.builder.Build(context.Background(), 1900, 1901)
	require.NoError(t, err)

	assert.Equal(t, StateFinalized, fx.builder.State())
	assert.Equal(t, []int{1900, 1901}, fx.years)
	assert.True(t, res.Complete)
	assert.Equal(t, 1901, res.EndYear)
	assert.Equal(t, 2, res.YearsProcessed)
	assert.EqualValues(t, 6, res.RowsWritten)
	assert.EqualValues(t, 2, res.Unmatched)
	assert.NotEmpty(t, res.RunID)

	summary, err := filesystem.ReadAssetSummary(fx.output)
	require.NoError(t, err)
	assert.EqualValues(t, 6, summary.NumRows)
	var names []string
	for _, f := range summary.Schema.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{
		"ID", "YEAR/MONTH/DAY", "ELEMENT", "DATA VALUE", "M-FLAG", "Q-FLAG", "S-FLAG", "OBS-TIME",
		"LATITUDE", "LONGITUDE", "ELEVATION", "STATE", "NAME", "GSN FLAG", "HCN/CRN FLAG", "WMO ID",
		"geometry",
	}, names)
	assert.True(t, summary.Complete())
	assert.Equal(t, "1900", summary.Metadata[ghcnd.MetaStartYear])
	assert.Equal(t, "1901", summary.Metadata[ghcnd.MetaEndYear])
	assert.Equal(t, res.RunID, summary.Metadata[ghcnd.MetaRunID])
	assert.Equal(t, fmt.Sprintf("%016x", res.StationsHash), summary.Metadata[ghcnd.MetaStationsHash])
	assert.Equal(t, "2024-06-01T00:00:00Z", summary.Metadata[ghcnd.MetaCreated])

	assert.Equal(t, 2.0, promtest.ToFloat64(fx.metrics.YearsProcessed))
	assert.Equal(t, 6.0, promtest.ToFloat64(fx.metrics.RowsWritten))
	assert.Equal(t, 2.0, promtest.ToFloat64(fx.metrics.UnmatchedRows))

	for _, year := range []string{"1900.csv", "1901.csv"} {
		_, err := os.Stat(filepath.Join(filepath.Dir(fx.output), "unzipped", year))
		assert.NoError(t, err, "decompressed files are kept")
	}
}

func TestBuild_RowsInYearOrder(t *testing.T) {
	a := newArchive(t, nil)
	fx := newFixture(t, a, Options{BatchRows: 2})

	_, err := fx.builder.Build(context.Background(), 1900, 1902)
	require.NoError(t, err)

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	tbl, err := filesystem.ReadAssetTable(context.Background(), fx.output, mem)
	require.NoError(t, err)
	defer tbl.Release()

	var dates []string
	for _, chunk := range tbl.Column(1).Data().Chunks() {
		col := chunk.(*array.String)
		for i := 0; i < col.Len(); i++ {
			dates = append(dates, col.Value(i))
		}
	}
	require.Len(t, dates, 9)
	for i := 1; i < len(dates); i++ {
		assert.LessOrEqual(t, dates[i-1], dates[i])
	}

	geom := tbl.Column(16).Data().Chunk(0).(*array.String)
	assert.Equal(t, "POINT (-73.9 40.77)", geom.Value(0))

	for _, year := range []string{"1900.csv", "1901.csv", "1902.csv"} {
		_, err := os.Stat(filepath.Join(filepath.Dir(fx.output), "unzipped", year))
		assert.True(t, os.IsNotExist(err), "decompressed files are removed")
	}
}

func TestBuild_TransferFailureKeepsCompletedYears(t *testing.T) {
	a := newArchive(t, nil, 1901)
	fx := newFixture(t, a, Options{})

	res, err := fx.builder.Build(context.Background(), 1900, 1902)
	var te *ghcnd.TransferError
	require.True(t, errors.As(err, &te), "got %v", err)
	assert.Equal(t, http.StatusNotFound, te.StatusCode)

	assert.Equal(t, StateFinalized, fx.builder.State())
	assert.Equal(t, []int{1900}, fx.years)
	assert.False(t, res.Complete)
	assert.Equal(t, 1900, res.EndYear)
	assert.NotContains(t, a.requests, "/by_year/1902.csv.gz", "no year after a failure is attempted")

	summary, err := filesystem.ReadAssetSummary(fx.output)
	require.NoError(t, err)
	assert.EqualValues(t, 3, summary.NumRows)
	assert.False(t, summary.Complete())
	assert.Equal(t, "1900", summary.Metadata[ghcnd.MetaEndYear])
}

func TestBuild_ParseFailureInFirstYearCreatesNoFile(t *testing.T) {
	a := newArchive(t, map[int]string{1900: "USW00094728,19000101,TMAX\n"})
	fx := newFixture(t, a, Options{})

	_, err := fx.builder.Build(context.Background(), 1900, 1901)
	var pe *ghcnd.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, 1, pe.Line)

	_, err = os.Stat(fx.output)
	assert.True(t, os.IsNotExist(err))
}

func TestBuild_EmptyYearsWriteEmptyAsset(t *testing.T) {
	a := newArchive(t, map[int]string{1900: "", 1901: ""})
	fx := newFixture(t, a, Options{})

	res, err := fx.builder.Build(context.Background(), 1900, 1901)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.Zero(t, res.RowsWritten)

	summary, err := filesystem.ReadAssetSummary(fx.output)
	require.NoError(t, err)
	assert.Zero(t, summary.NumRows)
	assert.Equal(t, merge.Schema.NumFields(), summary.Schema.NumFields())
	assert.True(t, summary.Complete())
	assert.Equal(t, "1901", summary.Metadata[ghcnd.MetaEndYear])
}

func TestBuild_EveryRowDropped(t *testing.T) {
	a := newArchive(t, map[int]string{1900: "XXX00000000,19000101,TMAX,1,,,C,\n"})
	fx := newFixture(t, a, Options{Policy: merge.PolicyDrop})

	res, err := fx.builder.Build(context.Background(), 1900, 1900)
	require.NoError(t, err)
	assert.True(t, res.Complete)
	assert.EqualValues(t, 1, res.Unmatched)

	summary, err := filesystem.ReadAssetSummary(fx.output)
	require.NoError(t, err)
	assert.Zero(t, summary.NumRows)
	assert.True(t, summary.Complete())
}

func TestBuild_FirstYearFailureRemovesPreviousAsset(t *testing.T) {
	a := newArchive(t, nil, 1905)
	fx := newFixture(t, a, Options{})

	_, err := fx.builder.Build(context.Background(), 1900, 1901)
	require.NoError(t, err)
	summary, err := filesystem.ReadAssetSummary(fx.output)
	require.NoError(t, err)
	require.True(t, summary.Complete())

	res, err := fx.builder.Build(context.Background(), 1905, 1906)
	require.Error(t, err)
	assert.False(t, res.Complete)

	_, err = os.Stat(fx.output)
	assert.True(t, os.IsNotExist(err), "no artifact from an earlier run survives")
}

type failingCloseWriter struct {
	assetWriter
}

func (w failingCloseWriter) Close() error {
	if err := w.assetWriter.Close(); err != nil {
		return err
	}
	return errors.New("disk full")
}

func TestBuild_CloseFailureIsNotComplete(t *testing.T) {
	a := newArchive(t, nil)
	fx := newFixture(t, a, Options{})
	fx.builder.newWriter = func(path string, opts *filesystem.ParquetWriteOptions) (assetWriter, error) {
		w, err := newParquetWriter(path, opts)
		if err != nil {
			return nil, err
		}
		return failingCloseWriter{w}, nil
	}

	res, err := fx.builder.Build(context.Background(), 1900, 1900)
	assert.EqualError(t, err, "disk full")
	assert.False(t, res.Complete)
	assert.Equal(t, 1, res.YearsProcessed)
	assert.Zero(t, promtest.ToFloat64(fx.metrics.LastSuccess))
}

func TestBuild_FailPolicy(t *testing.T) {
	a := newArchive(t, nil)
	fx := newFixture(t, a, Options{Policy: merge.PolicyFail})

	_, err := fx.builder.Build(context.Background(), 1900, 1900)
	assert.ErrorIs(t, err, merge.ErrUnknownStation)
}

func TestBuild_StationTableFetchedOnce(t *testing.T) {
	a := newArchive(t, nil)
	fx := newFixture(t, a, Options{})

	_, err := fx.builder.Build(context.Background(), 1900, 1900)
	require.NoError(t, err)
	_, err = fx.builder.Build(context.Background(), 1901, 1901)
	require.NoError(t, err)

	n := 0
	for _, r := range a.requests {
		if r == "/ghcnd-stations.txt" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestBuild_InvalidRange(t *testing.T) {
	a := newArchive(t, nil)
	tests := []struct {
		name       string
		start, end int
	}{
		{"reversed", 1901, 1900},
		{"before archive", 1700, 1900},
		{"future", 2000, 2030},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, a, Options{})
			_, err := fx.builder.Build(context.Background(), tt.start, tt.end)
			assert.ErrorIs(t, err, ErrInvalidRange)
			assert.Equal(t, StateInit, fx.builder.State())
			assert.Empty(t, fx.years)
		})
	}
	assert.Empty(t, a.requests)
}

func TestBuild_Canceled(t *testing.T) {
	a := newArchive(t, nil)
	fx := newFixture(t, a, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	fx.builder.hook = func(YearResult) { cancel() }

	res, err := fx.builder.Build(ctx, 1900, 1905)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.YearsProcessed)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "StationsLoaded", StateStationsLoaded.String())
	assert.Equal(t, "State(9)", State(9).String())
}
