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

// Package config provides configuration utilities.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

// Config is the root of a ghcnd workflow file.
type Config struct {
	GHCNd Settings `yaml:"ghcnd"`
}

type Settings struct {
	Downloads string `yaml:"downloads"`
	Unzipped  string `yaml:"unzipped"`
	Output    string `yaml:"output"`
	StartYear int    `yaml:"start_year" validate:"gte=1763"`
	EndYear   int    `yaml:"end_year" validate:"gtefield=StartYear"`

	StationsURL string `yaml:"stations_url" validate:"required,url"`
	YearsURL    string `yaml:"years_url" validate:"required,url"`

	HTTPTimeout       time.Duration `yaml:"http_timeout" validate:"gte=0"`
	StationMaxAge     time.Duration `yaml:"station_max_age" validate:"gte=0"`
	UnmatchedStations string        `yaml:"unmatched_stations" validate:"oneof=null drop fail"`
	BatchRows         int           `yaml:"batch_rows" validate:"gt=0"`
	Compression       string        `yaml:"compression" validate:"oneof=snappy zstd gzip none"`
	KeepUnzipped      bool          `yaml:"keep_unzipped"`

	Publish Publish `yaml:"publish"`
	Metrics Metrics `yaml:"metrics"`
	Log     Log     `yaml:"log"`
}

// Publish configures the optional upload of the finished asset.
type Publish struct {
	Bucket          string `yaml:"bucket"`
	Object          string `yaml:"object" validate:"required_with=Bucket"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Metrics configures the Pushgateway that receives run metrics.
type Metrics struct {
	PushgatewayURL string `yaml:"pushgateway_url" validate:"omitempty,url"`
	Job            string `yaml:"job"`
}

type Log struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=logfmt json"`
}

// Default returns the settings used when no workflow file is given.
func Default() *Config {
	return &Config{GHCNd: Settings{
		Downloads:         "downloads",
		Unzipped:          "unzipped",
		Output:            "ghcnd.parquet",
		StartYear:         ghcnd.FirstYear,
		EndYear:           2021,
		StationsURL:       ghcnd.StationsURL,
		YearsURL:          ghcnd.YearsURL,
		UnmatchedStations: "null",
		BatchRows:         64 * 1024,
		Compression:       "snappy",
		KeepUnzipped:      true,
		Metrics:           Metrics{Job: "ghcnd"},
		Log:               Log{Level: "info", Format: "logfmt"},
	}}
}

// ParseConfig reads a workflow file on top of the defaults. An empty path
// yields the defaults. Environment overrides, including those from a .env
// file in the working directory, are applied last.
func ParseConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		configFile, err := os.Open(configPath)
		if err != nil {
			return nil, err
		}
		defer configFile.Close()

		decoder := yaml.NewDecoder(configFile)
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", configPath, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() error {
	s := &c.GHCNd
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("GHCND_STATIONS_URL", &s.StationsURL)
	setString("GHCND_YEARS_URL", &s.YearsURL)
	setString("GHCND_LOG_LEVEL", &s.Log.Level)
	setString("GHCND_LOG_FORMAT", &s.Log.Format)
	setString("GHCND_PUSHGATEWAY_URL", &s.Metrics.PushgatewayURL)
	setString("GHCND_PUBLISH_BUCKET", &s.Publish.Bucket)
	setString("GOOGLE_APPLICATION_CREDENTIALS", &s.Publish.CredentialsFile)

	if v := os.Getenv("GHCND_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GHCND_HTTP_TIMEOUT: %w", err)
		}
		s.HTTPTimeout = d
	}
	if v := os.Getenv("GHCND_STATION_MAX_AGE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GHCND_STATION_MAX_AGE: %w", err)
		}
		s.StationMaxAge = d
	}
	if v := os.Getenv("GHCND_BATCH_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GHCND_BATCH_ROWS: %w", err)
		}
		s.BatchRows = n
	}
	return nil
}

// Validate checks field constraints and the year range against the clock year.
func (c *Config) Validate(currentYear int) error {
	v := validator.New()
	if err := v.Struct(c.GHCNd); err != nil {
		return err
	}
	if c.GHCNd.EndYear > currentYear {
		return fmt.Errorf("end_year %d is after the current year %d", c.GHCNd.EndYear, currentYear)
	}
	return c.validatePaths()
}

func (c *Config) validatePaths() error {
	if c.GHCNd.Downloads == "" {
		return fmt.Errorf("downloads directory cannot be empty")
	}
	if c.GHCNd.Unzipped == "" {
		return fmt.Errorf("unzipped directory cannot be empty")
	}
	if c.GHCNd.Output == "" {
		return fmt.Errorf("output path cannot be empty")
	}
	return nil
}
