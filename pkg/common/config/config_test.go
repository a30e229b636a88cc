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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

func writeWorkflow(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseConfig_Defaults(t *testing.T) {
	cfg, err := ParseConfig("")
	require.NoError(t, err)

	s := cfg.GHCNd
	assert.Equal(t, ghcnd.FirstYear, s.StartYear)
	assert.Equal(t, 2021, s.EndYear)
	assert.Equal(t, ghcnd.StationsURL, s.StationsURL)
	assert.Equal(t, ghcnd.YearsURL, s.YearsURL)
	assert.Equal(t, "null", s.UnmatchedStations)
	assert.Equal(t, "snappy", s.Compression)
	assert.Equal(t, time.Duration(0), s.StationMaxAge)
	assert.True(t, s.KeepUnzipped)
	require.NoError(t, cfg.Validate(2024))
}

func TestParseConfig_File(t *testing.T) {
	path := writeWorkflow(t, `
ghcnd:
  downloads: /tmp/dl
  unzipped: /tmp/uz
  output: /tmp/out.parquet
  start_year: 1900
  end_year: 1901
  http_timeout: 30s
  station_max_age: 720h
  unmatched_stations: drop
  compression: zstd
  publish:
    bucket: my-bucket
    object: ghcnd/ghcnd.parquet
  log:
    level: debug
    format: json
`)
	cfg, err := ParseConfig(path)
	require.NoError(t, err)

	s := cfg.GHCNd
	assert.Equal(t, "/tmp/dl", s.Downloads)
	assert.Equal(t, 1900, s.StartYear)
	assert.Equal(t, 1901, s.EndYear)
	assert.Equal(t, 30*time.Second, s.HTTPTimeout)
	assert.Equal(t, 720*time.Hour, s.StationMaxAge)
	assert.Equal(t, "drop", s.UnmatchedStations)
	assert.Equal(t, "zstd", s.Compression)
	assert.Equal(t, "my-bucket", s.Publish.Bucket)
	assert.Equal(t, "debug", s.Log.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, ghcnd.YearsURL, s.YearsURL)
	require.NoError(t, cfg.Validate(2024))
}

func TestParseConfig_UnknownKey(t *testing.T) {
	path := writeWorkflow(t, "ghcnd:\n  not_a_key: 1\n")
	_, err := ParseConfig(path)
	require.Error(t, err)
}

func TestParseConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GHCND_YEARS_URL", "http://localhost:8080/by_year/")
	t.Setenv("GHCND_HTTP_TIMEOUT", "5s")
	t.Setenv("GHCND_LOG_LEVEL", "warn")

	cfg, err := ParseConfig("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/by_year/", cfg.GHCNd.YearsURL)
	assert.Equal(t, 5*time.Second, cfg.GHCNd.HTTPTimeout)
	assert.Equal(t, "warn", cfg.GHCNd.Log.Level)
}

func TestParseConfig_InvalidEnvDuration(t *testing.T) {
	t.Setenv("GHCND_HTTP_TIMEOUT", "soon")
	_, err := ParseConfig("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHCND_HTTP_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"start before archive", func(s *Settings) { s.StartYear = 1700 }},
		{"end before start", func(s *Settings) { s.StartYear, s.EndYear = 1901, 1900 }},
		{"end in the future", func(s *Settings) { s.EndYear = 2999 }},
		{"bad policy", func(s *Settings) { s.UnmatchedStations = "ignore" }},
		{"bad compression", func(s *Settings) { s.Compression = "lz77" }},
		{"object without bucket is fine but bucket without object is not", func(s *Settings) { s.Publish.Bucket = "b" }},
		{"empty output", func(s *Settings) { s.Output = "" }},
		{"zero batch", func(s *Settings) { s.BatchRows = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg.GHCNd)
			assert.Error(t, cfg.Validate(2024))
		})
	}
}

func TestParseConfig_Sample(t *testing.T) {
	cfg, err := ParseConfig(filepath.Join("..", "..", "..", "config", "ghcnd.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(2024))

	assert.Equal(t, 10*time.Minute, cfg.GHCNd.HTTPTimeout)
	assert.Equal(t, "zstd", cfg.GHCNd.Compression)
	assert.False(t, cfg.GHCNd.KeepUnzipped)
}
