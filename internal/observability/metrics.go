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

package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the counters and histograms of one data-asset build.
type Metrics struct {
	registry *prometheus.Registry

	YearsProcessed  prometheus.Counter
	RowsWritten     prometheus.Counter
	UnmatchedRows   prometheus.Counter
	BytesDownloaded prometheus.Counter
	YearDuration    prometheus.Histogram
	LastSuccess     prometheus.Gauge
}

// NewMetrics creates the build metrics on a private registry. A batch job
// pushes its registry once at the end instead of being scraped.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		YearsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ghcnd",
			Name:      "years_processed_total",
			Help:      "Years fetched, merged and appended to the data asset.",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ghcnd",
			Name:      "rows_written_total",
			Help:      "Joined rows appended to the data asset.",
		}),
		UnmatchedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ghcnd",
			Name:      "unmatched_rows_total",
			Help:      "Observation rows whose station is absent from the station table.",
		}),
		BytesDownloaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ghcnd",
			Name:      "downloaded_bytes_total",
			Help:      "Bytes transferred from the archive.",
		}),
		YearDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ghcnd",
			Name:      "year_duration_seconds",
			Help:      "Duration of one fetch-decompress-merge-append cycle.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ghcnd",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last finalized data asset.",
		}),
	}

	m.registry.MustRegister(
		m.YearsProcessed,
		m.RowsWritten,
		m.UnmatchedRows,
		m.BytesDownloaded,
		m.YearDuration,
		m.LastSuccess,
	)
	return m
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the collected metrics to a Pushgateway under job.
func (m *Metrics) Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
