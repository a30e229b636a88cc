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

// Package ghcnd holds the fixed facts about the Global Historical Climatology
// Network daily archive: where it lives, how its files are laid out, and how
// it is described in catalog metadata.
package ghcnd

import "fmt"

const (
	ID          = "ghcnd"
	EPSG        = 4326
	Title       = "Global Historical Climatology Network daily"
	Description = "The Global Historical Climatology Network daily (GHCNd) is an integrated database of daily climate summaries from land surface stations across the globe. GHCNd is made up of daily climate records from numerous sources that have been integrated and subjected to a common suite of quality assurance reviews."

	License      = "CC-BY-4.0"
	LicenseURL   = "https://creativecommons.org/licenses/by/4.0/"
	LicenseTitle = "Attribution 4.0 International (CC BY 4.0)"

	HomepageURL           = "https://www.ncei.noaa.gov/metadata/geoportal/rest/metadata/item/gov.noaa.ncdc:C00861/html"
	MetadataURL           = "https://www1.ncdc.noaa.gov/pub/data/ghcn/daily/readme.txt"
	AdditionalMetadataURL = "https://www1.ncdc.noaa.gov/pub/data/ghcn/daily/by_year/readme-by_year.txt"
	StationsURL           = "https://www1.ncdc.noaa.gov/pub/data/ghcn/daily/ghcnd-stations.txt"
	YearsURL              = "https://www1.ncdc.noaa.gov/pub/data/ghcn/daily/by_year/"
	ThumbnailURL          = "https://www1.ncdc.noaa.gov/pub/data/metadata/images/C00861_GHCN-D_stations.png"

	Citation = "Menne, Matthew J., Imke Durre, Bryant Korzeniewski, Shelley McNeal, Kristy Thomas, Xungang Yin, Steven Anthony, Ron Ray, Russell S. Vose, Byron E.Gleason, and Tamara G. Houston (2012): Global Historical Climatology Network - Daily (GHCN-Daily), Version 3. NOAA National Climatic Data Center. doi:10.7289/V5D21VHZ"
	DOI      = "10.7289/V5D21VHZ"

	// FirstYear is the earliest year published in the by_year archive.
	FirstYear = 1763

	// MissingElevation is the sentinel used by the station table.
	MissingElevation = -999.9

	TemporalStart = "1763-01-01T00:00:00Z"
)

// SpatialExtent is the catalog bounding box (west, south, east, north).
var SpatialExtent = [4]float64{-180.0, -90.0, 180.0, 85.0}

var Keywords = []string{"NOAA", "ghcnd", "GHCNd", "GHCN-Daily"}

// YearURL returns the location of the gzip CSV for year under base.
func YearURL(base string, year int) string {
	return fmt.Sprintf("%s%d.csv.gz", base, year)
}

// Footer metadata keys of the data asset.
const (
	MetaComplete     = "ghcnd:complete"
	MetaStartYear    = "ghcnd:start_year"
	MetaEndYear      = "ghcnd:end_year"
	MetaRunID        = "ghcnd:run_id"
	MetaStationsHash = "ghcnd:stations_xxh64"
	MetaCreated      = "ghcnd:created"
)
