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

package stac

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

var testClock = clockwork.NewFakeClockAt(time.Date(2024, time.March, 5, 17, 30, 0, 0, time.UTC))

func TestCreateCollection(t *testing.T) {
	c := CreateCollection(testClock)

	assert.Equal(t, ghcnd.ID, c.ID)
	assert.Equal(t, ghcnd.License, c.License)
	assert.Equal(t, ghcnd.DOI, c.SciDOI)
	assert.Len(t, c.ItemAssets, 3)
	assert.Len(t, c.Assets, 2)
	require.Len(t, c.Extent.Temporal.Interval, 1)
	assert.Equal(t, "1763-01-01T00:00:00Z", *c.Extent.Temporal.Interval[0][0])
	assert.Equal(t, "2024-03-05T00:00:00Z", *c.Extent.Temporal.Interval[0][1])
	assert.Equal(t, []float64{-180, -90, 180, 85}, c.Extent.Spatial.Bbox[0])

	require.NoError(t, c.Validate())
}

func TestCreateItem(t *testing.T) {
	item, err := CreateItem("path/to/files/1900.csv.gz")
	require.NoError(t, err)

	assert.Equal(t, "GHCNd_1900", item.ID)
	assert.Equal(t, ghcnd.DOI, item.Properties["sci:doi"])
	assert.Equal(t, ghcnd.EPSG, item.Properties["proj:epsg"])
	assert.Equal(t, "1900-01-01T00:00:00Z", item.Properties["start_datetime"])
	assert.Equal(t, "1901-01-01T00:00:00Z", item.Properties["end_datetime"])
	assert.Equal(t, "GHCNd 1900", item.Properties["title"])
	assert.Len(t, item.Assets, 3)
	assert.Equal(t, "path/to/files/1900.csv.gz", item.Assets["data"].Href)

	ring := item.Geometry.Coordinates[0]
	assert.Equal(t, [][2]float64{{180, -90}, {180, 85}, {-180, 85}, {-180, -90}, {180, -90}}, ring)

	require.NoError(t, item.Validate())
}

func TestCreateItem_NoYear(t *testing.T) {
	for _, href := range []string{"path/to/files/stations.txt", "x.gz", ""} {
		_, err := CreateItem(href)
		assert.Error(t, err, href)
	}
}

func TestCreateAssetItem(t *testing.T) {
	summary := &filesystem.AssetSummary{
		NumRows: 6,
		Size:    2048,
		Schema: arrow.NewSchema([]arrow.Field{
			{Name: ghcnd.ColID, Type: arrow.BinaryTypes.String},
			{Name: ghcnd.ColElement, Type: arrow.BinaryTypes.String},
			{Name: ghcnd.ColValue, Type: arrow.PrimitiveTypes.Int64},
			{Name: ghcnd.ColGeometry, Type: arrow.BinaryTypes.String, Nullable: true},
		}, nil),
	}

	item, err := CreateAssetItem("gs://bucket/ghcnd.parquet", summary, 1900, 1901)
	require.NoError(t, err)

	assert.Equal(t, "GHCNd_1900-1901", item.ID)
	assert.Equal(t, "1902-01-01T00:00:00Z", item.Properties["end_datetime"])
	assert.EqualValues(t, 6, item.Properties["table:row_count"])
	assert.Equal(t, ghcnd.ColGeometry, item.Properties["table:primary_geometry"])

	cols := item.Properties["table:columns"].([]TableColumn)
	require.Len(t, cols, 4)
	assert.Equal(t, TableColumn{Name: ghcnd.ColValue, Type: "int64", Description: "5 character data value for ELEMENT."}, cols[2])
	assert.Contains(t, cols[1].Description, "PRCP = Precipitation (tenths of mm)")
	assert.Contains(t, cols[1].Description, "TMIN = Minimum temperature")

	assert.Equal(t, ghcnd.ThumbnailURL, item.Assets["thumbnail"].Href)
	assert.Equal(t, MediaTypePNG, item.Assets["thumbnail"].Type)
	var described []string
	for _, l := range item.Links {
		if l.Rel == RelDescribedBy {
			described = append(described, l.Href)
		}
	}
	assert.Equal(t, []string{ghcnd.AdditionalMetadataURL}, described)

	data := item.Assets["data"]
	assert.Equal(t, MediaTypeParquet, data.Type)
	assert.EqualValues(t, 2048, data.FileSize)
	assert.Contains(t, item.StacExtensions, ExtTable)
	require.NoError(t, item.Validate())

	_, err = CreateAssetItem("x", &filesystem.AssetSummary{}, 1900, 1901)
	assert.Error(t, err)
	_, err = CreateAssetItem("x", summary, 1902, 1901)
	assert.Error(t, err)
}

func TestPopulateCollection_Save(t *testing.T) {
	dir := t.TempDir()
	c, err := PopulateCollection(testClock, "https://example.com/by_year", 1900, 1910)
	require.NoError(t, err)
	require.Len(t, c.Items(), 11)
	assert.Equal(t, "https://example.com/by_year/1905.csv.gz", c.Items()[5].Assets["data"].Href)

	require.NoError(t, c.NormalizeHrefs(dir))
	require.NoError(t, c.Save(dir))
	require.NoError(t, c.Validate())

	var jsons []string
	require.NoError(t, filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && strings.HasSuffix(path, ".json") {
			jsons = append(jsons, path)
		}
		return err
	}))
	assert.Len(t, jsons, 12)

	saved, err := ReadCollection(filepath.Join(dir, CollectionFile))
	require.NoError(t, err)
	assert.Equal(t, ghcnd.ID, saved.ID)
	assert.Len(t, saved.ItemAssets, 3)

	item, err := ReadItem(filepath.Join(dir, "GHCNd_1900", "GHCNd_1900.json"))
	require.NoError(t, err)
	assert.Equal(t, ghcnd.ID, item.Collection)
	assert.Equal(t, float64(ghcnd.EPSG), item.Properties["proj:epsg"])
	require.NoError(t, item.Validate())

	var rels []string
	for _, l := range item.Links {
		rels = append(rels, l.Rel)
	}
	assert.ElementsMatch(t, []string{RelRoot, RelParent, RelCollection}, rels)

	var self []string
	for _, l := range saved.Links {
		if l.Rel == RelSelf {
			self = append(self, l.Href)
		}
	}
	require.Len(t, self, 1)
	assert.True(t, filepath.IsAbs(filepath.FromSlash(self[0])), "collection self link %q", self[0])
}

func TestNormalizeHrefs_Idempotent(t *testing.T) {
	dir := t.TempDir()
	c, err := PopulateCollection(testClock, "https://example.com/by_year/", 1900, 1901)
	require.NoError(t, err)

	require.NoError(t, c.NormalizeHrefs(dir))
	n := len(c.Links)
	require.NoError(t, c.NormalizeHrefs(dir))
	assert.Len(t, c.Links, n)
}

func TestValidate_Errors(t *testing.T) {
	c := CreateCollection(testClock)
	c.License = ""
	c.Links = append(c.Links, Link{Rel: "alternate"})
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "license")
	assert.Contains(t, err.Error(), "href")

	item, err := CreateItem("1900.csv.gz")
	require.NoError(t, err)
	item.Properties["end_datetime"] = "1899-01-01T00:00:00Z"
	assert.Error(t, item.Validate())

	item.Properties["end_datetime"] = "1901-01-01T00:00:00Z"
	item.Geometry.Coordinates[0] = item.Geometry.Coordinates[0][:3]
	assert.Error(t, item.Validate())
}
