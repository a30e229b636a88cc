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

package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

func newTestFetcher(t *testing.T, opts ...Option) *Fetcher {
	t.Helper()
	root := t.TempDir()
	f, err := New(filepath.Join(root, "downloads"), filepath.Join(root, "unzipped"), opts...)
	require.NoError(t, err)
	return f
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestNew_CreatesDirectories(t *testing.T) {
	f := newTestFetcher(t)
	for _, dir := range []string{f.downloadDir, f.unzipDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDownload_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/by_year/1900.csv.gz", r.URL.Path)
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	var counted int64
	f := newTestFetcher(t, WithByteCounter(func(n int64) { counted += n }))

	path, err := f.Download(context.Background(), srv.URL+"/by_year/1900.csv.gz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.downloadDir, "1900.csv.gz"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int64(len("payload")), counted)
}

func TestDownload_Overwrites(t *testing.T) {
	body := "first"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Download(context.Background(), srv.URL+"/ghcnd-stations.txt")
	require.NoError(t, err)

	body = "second"
	path, err := f.Download(context.Background(), srv.URL+"/ghcnd-stations.txt")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(f.downloadDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should be left behind")
}

func TestDownload_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such year", http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Download(context.Background(), srv.URL+"/1700.csv.gz")
	require.Error(t, err)

	var te *ghcnd.TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)
	assert.NoFileExists(t, filepath.Join(f.downloadDir, "1700.csv.gz"))
}

func TestDownload_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	f := newTestFetcher(t)
	_, err := f.Download(context.Background(), addr+"/1900.csv.gz")

	var te *ghcnd.TransferError
	require.True(t, errors.As(err, &te))
	assert.Zero(t, te.StatusCode)
}

func TestDownload_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := newTestFetcher(t, WithTimeout(50*time.Millisecond))
	_, err := f.Download(context.Background(), srv.URL+"/1900.csv.gz")

	var te *ghcnd.TransferError
	assert.True(t, errors.As(err, &te))
}

func TestTimeoutKeepsCustomClient(t *testing.T) {
	transport := &http.Transport{}
	custom := &http.Client{Transport: transport}

	for name, opts := range map[string][]Option{
		"client first":  {WithHTTPClient(custom), WithTimeout(time.Second)},
		"timeout first": {WithTimeout(time.Second), WithHTTPClient(custom)},
	} {
		t.Run(name, func(t *testing.T) {
			f := newTestFetcher(t, opts...)
			assert.Same(t, transport, f.client.Transport)
			assert.Equal(t, time.Second, f.client.Timeout)
		})
	}
	assert.Zero(t, custom.Timeout, "caller's client is not mutated")
}

func TestDecompress(t *testing.T) {
	f := newTestFetcher(t)
	archive := filepath.Join(f.downloadDir, "1900.csv.gz")
	require.NoError(t, os.WriteFile(archive, gzipBytes(t, []byte("a,b,c\n")), 0o644))

	path, err := f.Decompress(archive)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.unzipDir, "1900.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b,c\n", string(data))
}

func TestDecompress_Malformed(t *testing.T) {
	f := newTestFetcher(t)
	archive := filepath.Join(f.downloadDir, "1901.csv.gz")
	require.NoError(t, os.WriteFile(archive, []byte("definitely not gzip"), 0o644))

	_, err := f.Decompress(archive)
	var de *ghcnd.DecompressionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, archive, de.Path)
}

func TestDecompress_Truncated(t *testing.T) {
	f := newTestFetcher(t)
	full := gzipBytes(t, bytes.Repeat([]byte("USW00094728,19000101,TMAX,-11,,,6,\n"), 100))
	archive := filepath.Join(f.downloadDir, "1902.csv.gz")
	require.NoError(t, os.WriteFile(archive, full[:len(full)/2], 0o644))

	_, err := f.Decompress(archive)
	var de *ghcnd.DecompressionError
	require.True(t, errors.As(err, &de))
	assert.NoFileExists(t, filepath.Join(f.unzipDir, "1902.csv"))
}
