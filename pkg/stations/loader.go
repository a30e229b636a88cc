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

package stations

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jonboulle/clockwork"
)

// Downloader is the part of fetch.Fetcher the loader needs.
type Downloader interface {
	Download(ctx context.Context, source string) (string, error)
	CachedPath(source string) string
}

// Loader returns the station table, fetching it only when no usable cached
// copy exists in the download directory.
type Loader struct {
	downloader Downloader
	url        string
	maxAge     time.Duration
	clock      clockwork.Clock
	logger     log.Logger
}

type LoaderOption func(*Loader)

// WithMaxAge makes cached copies older than d be fetched again. Zero, the
// default, trusts any cached copy regardless of age.
func WithMaxAge(d time.Duration) LoaderOption {
	return func(l *Loader) { l.maxAge = d }
}

func WithClock(c clockwork.Clock) LoaderOption {
	return func(l *Loader) { l.clock = c }
}

func WithLogger(logger log.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

func NewLoader(d Downloader, url string, opts ...LoaderOption) *Loader {
	l := &Loader{
		downloader: d,
		url:        url,
		clock:      clockwork.NewRealClock(),
		logger:     log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load parses the cached station file, downloading it first when absent or
// stale.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	path := l.downloader.CachedPath(l.url)

	fresh, err := l.cached(path)
	if err != nil {
		return nil, err
	}
	if !fresh {
		level.Info(l.logger).Log("msg", "fetching station table", "url", l.url)
		if path, err = l.downloader.Download(ctx, l.url); err != nil {
			return nil, err
		}
	} else {
		level.Debug(l.logger).Log("msg", "using cached station table", "path", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open station table: %w", err)
	}
	defer f.Close()

	t, err := parse(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	level.Info(l.logger).Log("msg", "station table loaded", "stations", t.Len(), "xxh64", fmt.Sprintf("%016x", t.Fingerprint()))
	return t, nil
}

func (l *Loader) cached(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat station table: %w", err)
	}
	if l.maxAge > 0 && l.clock.Since(info.ModTime()) > l.maxAge {
		level.Info(l.logger).Log("msg", "cached station table is stale", "modified", info.ModTime(), "max_age", l.maxAge)
		return false, nil
	}
	return true, nil
}
