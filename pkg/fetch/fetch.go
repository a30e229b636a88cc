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

// Package fetch retrieves archive files into a local download cache and
// decompresses them into a sibling directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/klauspost/compress/gzip"

	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

// Fetcher downloads remote files and decompresses gzip archives.
type Fetcher struct {
	downloadDir string
	unzipDir    string
	client      *http.Client
	timeout     time.Duration
	logger      log.Logger
	onBytes     func(n int64)
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout bounds every request. Zero keeps the client's own timeout.
// It applies on top of WithHTTPClient whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

func WithLogger(l log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithByteCounter is called with the size of every completed download.
func WithByteCounter(fn func(n int64)) Option {
	return func(f *Fetcher) { f.onBytes = fn }
}

// New creates a Fetcher and the download and unzip directories if absent.
func New(downloadDir, unzipDir string, opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		downloadDir: downloadDir,
		unzipDir:    unzipDir,
		client:      &http.Client{},
		logger:      log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.timeout > 0 {
		c := *f.client
		c.Timeout = f.timeout
		f.client = &c
	}

	for _, dir := range []string{downloadDir, unzipDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return f, nil
}

// CachedPath is where Download stores the file for source.
func (f *Fetcher) CachedPath(source string) string {
	return filepath.Join(f.downloadDir, baseName(source))
}

// Download streams source into the download directory, replacing any file of
// the same name, and returns the local path.
func (f *Fetcher) Download(ctx context.Context, source string) (string, error) {
	dest := f.CachedPath(source)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return "", &ghcnd.TransferError{URL: source, Details: fmt.Errorf("create request: %w", err)}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &ghcnd.TransferError{URL: source, Details: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ghcnd.TransferError{
			URL:        source,
			StatusCode: resp.StatusCode,
			Details:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	tmp, err := os.CreateTemp(f.downloadDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()
		return "", &ghcnd.TransferError{URL: source, Details: fmt.Errorf("read body: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	if f.onBytes != nil {
		f.onBytes(n)
	}
	level.Debug(f.logger).Log("msg", "downloaded", "url", source, "path", dest, "bytes", n)
	return dest, nil
}

// Decompress inflates a single-member gzip file into the unzip directory,
// naming the output after the source without its .gz suffix.
func (f *Fetcher) Decompress(source string) (string, error) {
	dest := filepath.Join(f.unzipDir, strings.TrimSuffix(filepath.Base(source), ".gz"))

	in, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return "", &ghcnd.DecompressionError{Path: source, Details: err}
	}
	defer zr.Close()
	zr.Multistream(false)

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		os.Remove(dest)
		return "", &ghcnd.DecompressionError{Path: source, Details: err}
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", dest, err)
	}

	level.Debug(f.logger).Log("msg", "decompressed", "archive", source, "path", dest)
	return dest, nil
}

func baseName(source string) string {
	if u, err := url.Parse(source); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(source)
}
