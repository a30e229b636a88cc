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

// Package cli implements the ghcnd command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-kit/log/level"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/integrations/gcs"
	"github.com/arrowarc/ghcnd/internal/observability"
	"github.com/arrowarc/ghcnd/internal/ui"
	"github.com/arrowarc/ghcnd/pkg/asset"
	"github.com/arrowarc/ghcnd/pkg/common/config"
	"github.com/arrowarc/ghcnd/pkg/fetch"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
	"github.com/arrowarc/ghcnd/pkg/merge"
	"github.com/arrowarc/ghcnd/pkg/stac"
	"github.com/arrowarc/ghcnd/pkg/stations"
)

// Clock is used for catalog extents and year range checks.
var Clock clockwork.Clock = clockwork.NewRealClock()

// NewRootCmd returns the ghcnd command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ghcnd",
		Short:         "Commands for working with the Global Historical Climatology Network daily",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		CreateCollectionCmd(),
		CreateItemCmd(),
		PopulateCollectionCmd(),
		CreateDataAssetCmd(),
		CreateAssetItemCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.WarningMark+"Error: "+err.Error())
		stop()
		os.Exit(1)
	}
}

func done(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, ui.CheckMark+fmt.Sprintf(format, args...))
}

func CreateCollectionCmd() *cobra.Command {
	var destination string
	cmd := &cobra.Command{
		Use:   "create-collection",
		Short: "Creates a STAC collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			collection := stac.CreateCollection(Clock)
			if err := collection.NormalizeHrefs(destination); err != nil {
				return err
			}
			if err := collection.Save(destination); err != nil {
				return err
			}
			if err := collection.Validate(); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "Wrote %s", filepath.Join(destination, stac.CollectionFile))
			return nil
		},
	}
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "The output location for the STAC Collection.")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func CreateItemCmd() *cobra.Command {
	var source, destination string
	cmd := &cobra.Command{
		Use:   "create-item",
		Short: "Create a STAC item",
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := stac.CreateItem(source)
			if err != nil {
				return err
			}
			if err := item.Save(destination); err != nil {
				return err
			}
			if err := item.Validate(); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "Wrote item %s to %s", item.ID, destination)
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "HREF of the Asset associated with the Item.")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "The output path for the STAC Item.")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

func PopulateCollectionCmd() *cobra.Command {
	var (
		source, destination string
		start, end          int
	)
	cmd := &cobra.Command{
		Use:   "populate-collection",
		Short: "Populate the GHCNd STAC Collection with all items",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := asset.ValidateRange(start, end, Clock.Now().Year()); err != nil {
				return err
			}
			collection, err := stac.PopulateCollection(Clock, source, start, end)
			if err != nil {
				return err
			}
			if err := collection.NormalizeHrefs(destination); err != nil {
				return err
			}
			if err := collection.Save(destination); err != nil {
				return err
			}
			if err := collection.Validate(); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "Wrote collection with %d items to %s", len(collection.Items()), destination)
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", ghcnd.YearsURL, "Base HREF of the yearly data files.")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "The output directory for the STAC Collection.")
	cmd.Flags().IntVar(&start, "start", ghcnd.FirstYear, "First year to catalog.")
	cmd.Flags().IntVarP(&end, "end", "e", 2021, "Last year to catalog.")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}

type dataAssetFlags struct {
	configPath    string
	downloads     string
	unzipped      string
	output        string
	startYear     int
	endYear       int
	stationsURL   string
	yearsURL      string
	unmatched     string
	compression   string
	keepUnzipped  bool
	stationMaxAge time.Duration
}

// apply overrides cfg with the flags set on the command line.
func (f *dataAssetFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	s := &cfg.GHCNd
	changed := cmd.Flags().Changed
	if changed("downloads") {
		s.Downloads = f.downloads
	}
	if changed("unzipped") {
		s.Unzipped = f.unzipped
	}
	if changed("output_path") {
		s.Output = f.output
	}
	if changed("start_year") {
		s.StartYear = f.startYear
	}
	if changed("end_year") {
		s.EndYear = f.endYear
	}
	if changed("stations-url") {
		s.StationsURL = f.stationsURL
	}
	if changed("years-url") {
		s.YearsURL = f.yearsURL
	}
	if changed("unmatched") {
		s.UnmatchedStations = f.unmatched
	}
	if changed("compression") {
		s.Compression = f.compression
	}
	if changed("keep-unzipped") {
		s.KeepUnzipped = f.keepUnzipped
	}
	if changed("station-max-age") {
		s.StationMaxAge = f.stationMaxAge
	}
}

func CreateDataAssetCmd() *cobra.Command {
	f := &dataAssetFlags{}
	cmd := &cobra.Command{
		Use:   "create-data-asset",
		Short: "Download and process the source data into the data asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ParseConfig(f.configPath)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(Clock.Now().Year()); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runDataAsset(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.configPath, "config", "", "YAML configuration file.")
	flags.StringVarP(&f.downloads, "downloads", "d", "", "Directory to hold downloads.")
	flags.StringVarP(&f.unzipped, "unzipped", "u", "", "Directory to hold unzipped files.")
	flags.StringVarP(&f.output, "output_path", "o", "", "Path for output file (Parquet format).")
	flags.IntVarP(&f.startYear, "start_year", "s", ghcnd.FirstYear, "Starting year to process (min: 1763, max: current year).")
	flags.IntVarP(&f.endYear, "end_year", "e", 2021, "Final year to process (min: 1763, max: current year).")
	flags.StringVar(&f.stationsURL, "stations-url", ghcnd.StationsURL, "Location of ghcnd-stations.txt.")
	flags.StringVar(&f.yearsURL, "years-url", ghcnd.YearsURL, "Base location of the by_year archive.")
	flags.StringVar(&f.unmatched, "unmatched", "null", "Unmatched station policy: null, drop or fail.")
	flags.StringVar(&f.compression, "compression", "snappy", "Parquet compression: snappy, zstd, gzip or none.")
	flags.BoolVar(&f.keepUnzipped, "keep-unzipped", true, "Keep decompressed year files after merging.")
	flags.DurationVar(&f.stationMaxAge, "station-max-age", 0, "Fetch the station table again when the cached copy is older than this. Zero never refetches.")
	return cmd
}

func runDataAsset(ctx context.Context, out, errOut io.Writer, cfg *config.Config) error {
	s := cfg.GHCNd
	logger := observability.NewLogger(errOut, s.Log.Level, s.Log.Format)
	metrics := observability.NewMetrics()

	policy, err := merge.ParsePolicy(s.UnmatchedStations)
	if err != nil {
		return err
	}

	fetcher, err := fetch.New(s.Downloads, s.Unzipped,
		fetch.WithTimeout(s.HTTPTimeout),
		fetch.WithLogger(logger),
		fetch.WithByteCounter(func(n int64) { metrics.BytesDownloaded.Add(float64(n)) }),
	)
	if err != nil {
		return err
	}
	loader := stations.NewLoader(fetcher, s.StationsURL,
		stations.WithMaxAge(s.StationMaxAge),
		stations.WithClock(Clock),
		stations.WithLogger(logger),
	)

	writeOpts := filesystem.NewDefaultParquetWriteOptions()
	writeOpts.Compression = s.Compression

	builder := asset.New(asset.Options{
		OutputPath:   s.Output,
		YearsURL:     s.YearsURL,
		Write:        writeOpts,
		BatchRows:    s.BatchRows,
		Policy:       policy,
		KeepUnzipped: s.KeepUnzipped,
	}, fetcher, loader,
		asset.WithLogger(logger),
		asset.WithMetrics(metrics),
		asset.WithClock(Clock),
	)

	res, buildErr := builder.Build(ctx, s.StartYear, s.EndYear)
	if err := metrics.Push(s.Metrics.PushgatewayURL, s.Metrics.Job); err != nil {
		level.Warn(logger).Log("msg", "failed to push metrics", "err", err)
	}
	if buildErr != nil {
		return buildErr
	}

	rows := [][2]string{
		{"output", res.Path},
		{"years", fmt.Sprintf("%d-%d", res.StartYear, res.EndYear)},
		{"rows", strconv.FormatInt(res.RowsWritten, 10)},
		{"unmatched rows", strconv.FormatInt(res.Unmatched, 10)},
		{"run id", res.RunID},
	}

	if s.Publish.Bucket != "" {
		url, err := publish(ctx, cfg, res.Path)
		if err != nil {
			return err
		}
		rows = append(rows, [2]string{"published", url})
	}

	fmt.Fprintln(out, ui.KeyValues("GHCNd data asset", rows))
	return nil
}

func publish(ctx context.Context, cfg *config.Config, path string) (string, error) {
	p := cfg.GHCNd.Publish
	summary, err := filesystem.ReadAssetSummary(path)
	if err != nil {
		return "", err
	}
	publisher, err := gcs.NewPublisher(ctx, p.Bucket, p.CredentialsFile)
	if err != nil {
		return "", err
	}
	defer publisher.Close()
	return publisher.Upload(ctx, path, p.Object, summary.Metadata)
}

func CreateAssetItemCmd() *cobra.Command {
	var source, destination, href string
	cmd := &cobra.Command{
		Use:   "create-asset-item",
		Short: "Create a STAC item for a consolidated data asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := filesystem.ReadAssetSummary(source)
			if err != nil {
				return err
			}
			start, err := strconv.Atoi(summary.Metadata[ghcnd.MetaStartYear])
			if err != nil {
				return fmt.Errorf("asset %s has no start year: %w", source, err)
			}
			end, err := strconv.Atoi(summary.Metadata[ghcnd.MetaEndYear])
			if err != nil {
				return fmt.Errorf("asset %s has no end year: %w", source, err)
			}
			if !summary.Complete() {
				fmt.Fprintln(cmd.ErrOrStderr(), ui.WarningMark+"asset is incomplete; the item covers "+strconv.Itoa(start)+"-"+strconv.Itoa(end))
			}

			if href == "" {
				href = source
			}
			item, err := stac.CreateAssetItem(href, summary, start, end)
			if err != nil {
				return err
			}
			if err := item.Save(destination); err != nil {
				return err
			}
			if err := item.Validate(); err != nil {
				return err
			}
			done(cmd.OutOrStdout(), "Wrote item %s to %s", item.ID, destination)
			return nil
		},
	}
	cmd.Flags().StringVarP(&source, "source", "s", "", "Path of the Parquet data asset.")
	cmd.Flags().StringVarP(&destination, "destination", "d", "", "The output path for the STAC Item.")
	cmd.Flags().StringVar(&href, "href", "", "HREF recorded for the data asset. Defaults to the source path.")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("destination")
	return cmd
}
