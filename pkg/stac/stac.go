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
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/pkg/common/utils"
	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

// CollectionFile is the name of the saved collection document.
const CollectionFile = "collection.json"

func stationsAsset() Asset {
	return Asset{
		Href:  ghcnd.StationsURL,
		Type:  MediaTypeText,
		Title: "GHCNd Stations",
		Roles: []string{"metadata"},
	}
}

func metadataAsset(title string) Asset {
	return Asset{
		Href:  ghcnd.MetadataURL,
		Type:  MediaTypeText,
		Title: title,
		Roles: []string{"metadata"},
	}
}

func stringPtr(s string) *string { return &s }

// CreateCollection returns the GHCNd collection. The temporal extent ends at
// midnight UTC of the clock's current day.
func CreateCollection(clock clockwork.Clock) *Collection {
	today := clock.Now().UTC().Format("2006-01-02") + "T00:00:00Z"
	bbox := ghcnd.SpatialExtent

	return &Collection{
		Type:        "Collection",
		StacVersion: Version,
		StacExtensions: []string{
			ExtItemAssets,
			ExtProjection,
			ExtScientific,
		},
		ID:          ghcnd.ID,
		Title:       ghcnd.Title,
		Description: ghcnd.Description,
		Keywords:    ghcnd.Keywords,
		License:     ghcnd.License,
		Providers: []Provider{{
			Name:  "NOAA",
			Roles: []string{"host", "licensor", "processor", "producer"},
			URL:   ghcnd.HomepageURL,
		}},
		Extent: Extent{
			Spatial:  SpatialExtent{Bbox: [][]float64{bbox[:]}},
			Temporal: TemporalExtent{Interval: [][]*string{{stringPtr(ghcnd.TemporalStart), stringPtr(today)}}},
		},
		Summaries: map[string]interface{}{
			"proj:epsg": []int{ghcnd.EPSG},
		},
		Assets: map[string]Asset{
			"GHCNd Stations": stationsAsset(),
			"Metadata":       metadataAsset("Metadata"),
		},
		ItemAssets: map[string]AssetDefinition{
			"GHCNd": {
				Types:    []string{MediaTypeZip},
				Roles:    []string{"data"},
				Title:    "GHCNd Data",
				ProjEPSG: ghcnd.EPSG,
			},
			"Stations": {
				Types:    []string{MediaTypeText},
				Roles:    []string{"metadata"},
				Title:    "GHCNd Stations",
				ProjEPSG: ghcnd.EPSG,
			},
			"Metadata": {
				Types: []string{MediaTypeText},
				Roles: []string{"metadata"},
				Title: "Metadata",
			},
		},
		SciDOI:      ghcnd.DOI,
		SciCitation: ghcnd.Citation,
		Links: []Link{
			{Rel: RelLicense, Href: ghcnd.LicenseURL, Title: ghcnd.LicenseTitle},
			{Rel: RelVia, Href: ghcnd.HomepageURL, Title: "Homepage"},
			{Rel: RelDescribedBy, Href: ghcnd.MetadataURL, Type: MediaTypeText, Title: "Readme"},
		},
	}
}

// extentPolygon is the counter-clockwise ring around the spatial extent.
func extentPolygon() Geometry {
	w, s, e, n := ghcnd.SpatialExtent[0], ghcnd.SpatialExtent[1], ghcnd.SpatialExtent[2], ghcnd.SpatialExtent[3]
	return Geometry{
		Type: "Polygon",
		Coordinates: [][][2]float64{{
			{e, s}, {e, n}, {w, n}, {w, s}, {e, s},
		}},
	}
}

func yearStart(year int) string {
	return fmt.Sprintf("%04d-01-01T00:00:00Z", year)
}

// YearFromHref reads the year from the first four characters of the file
// name at the end of href.
func YearFromHref(href string) (int, error) {
	base := path.Base(filepath.ToSlash(href))
	if len(base) < 4 {
		return 0, fmt.Errorf("asset href %q does not start with a year", href)
	}
	year, err := strconv.Atoi(base[:4])
	if err != nil {
		return 0, fmt.Errorf("asset href %q does not start with a year", href)
	}
	return year, nil
}

func newItem(id string, start, end int) *Item {
	bbox := ghcnd.SpatialExtent
	return &Item{
		Type:        "Feature",
		StacVersion: Version,
		StacExtensions: []string{
			ExtProjection,
			ExtScientific,
		},
		ID:       id,
		Geometry: extentPolygon(),
		Bbox:     append([]float64(nil), bbox[:]...),
		Properties: map[string]interface{}{
			"datetime":       yearStart(start),
			"start_datetime": yearStart(start),
			"end_datetime":   yearStart(end + 1),
			"sci:doi":        ghcnd.DOI,
			"sci:citation":   ghcnd.Citation,
			"proj:epsg":      ghcnd.EPSG,
		},
		Links:  []Link{},
		Assets: map[string]Asset{},
	}
}

// CreateItem returns the item of one by_year archive file. The year is taken
// from the file name, as in 1900.csv.gz.
func CreateItem(href string) (*Item, error) {
	year, err := YearFromHref(href)
	if err != nil {
		return nil, err
	}

	item := newItem(fmt.Sprintf("GHCNd_%d", year), year, year)
	item.Properties["title"] = fmt.Sprintf("GHCNd %d", year)
	item.Properties["description"] = fmt.Sprintf("Global Historical Climate Network-daily for the year %d", year)
	item.Assets["data"] = Asset{
		Href:  href,
		Type:  MediaTypeZip,
		Title: fmt.Sprintf("GHCNd %d", year),
		Roles: []string{"data"},
	}
	item.Assets["GHCNd Stations"] = stationsAsset()
	item.Assets["Metadata"] = metadataAsset("GHCNd Metadata")
	return item, nil
}

// CreateAssetItem returns the item of a consolidated Parquet data asset
// covering start through end.
func CreateAssetItem(href string, summary *filesystem.AssetSummary, start, end int) (*Item, error) {
	if summary == nil || summary.Schema == nil {
		return nil, errors.New("asset summary has no schema")
	}
	if start > end {
		return nil, fmt.Errorf("start year %d is after end year %d", start, end)
	}

	item := newItem(fmt.Sprintf("GHCNd_%d-%d", start, end), start, end)
	item.StacExtensions = append(item.StacExtensions, ExtTable, ExtFile)

	columns := make([]TableColumn, 0, summary.Schema.NumFields())
	for _, c := range utils.DescribeSchema(summary.Schema) {
		col := TableColumn{Name: c.Name, Type: c.Type}
		if d, ok := ghcnd.DescribeColumn(c.Name); ok {
			col.Description = d.Description
		}
		if c.Name == ghcnd.ColElement {
			col.Description += " " + coreElementSummary()
		}
		columns = append(columns, col)
	}

	item.Properties["title"] = fmt.Sprintf("GHCNd %d-%d", start, end)
	item.Properties["description"] = fmt.Sprintf("Global Historical Climate Network-daily for the years %d to %d, joined with station metadata", start, end)
	item.Properties["table:columns"] = columns
	item.Properties["table:row_count"] = summary.NumRows
	item.Properties["table:primary_geometry"] = ghcnd.ColGeometry
	item.Assets["data"] = Asset{
		Href:     href,
		Type:     MediaTypeParquet,
		Title:    item.Properties["title"].(string),
		Roles:    []string{"data"},
		FileSize: summary.Size,
	}
	item.Assets["GHCNd Stations"] = stationsAsset()
	item.Assets["Metadata"] = metadataAsset("GHCNd Metadata")
	item.Assets["thumbnail"] = Asset{
		Href:  ghcnd.ThumbnailURL,
		Type:  MediaTypePNG,
		Title: "GHCNd station map",
		Roles: []string{"thumbnail"},
	}
	item.Links = append(item.Links, Link{Rel: RelDescribedBy, Href: ghcnd.AdditionalMetadataURL, Type: MediaTypeText, Title: "By-year file format"})
	return item, nil
}

func coreElementSummary() string {
	parts := make([]string, 0, len(ghcnd.CoreElements))
	for _, code := range ghcnd.CoreElements {
		d, _ := ghcnd.DescribeElement(code)
		parts = append(parts, code+" = "+d)
	}
	return "Core elements: " + strings.Join(parts, "; ") + "."
}

// AddItem attaches item to the collection.
func (c *Collection) AddItem(item *Item) {
	item.Collection = c.ID
	c.items = append(c.items, item)
}

func (c *Collection) Items() []*Item {
	return c.items
}

func itemPath(root, id string) string {
	return filepath.Join(root, id, id+".json")
}

func setLink(links []Link, l Link) []Link {
	for i := range links {
		if links[i].Rel == l.Rel {
			links[i] = l
			return links
		}
	}
	return append(links, l)
}

func withoutRel(links []Link, rel string) []Link {
	out := links[:0]
	for _, l := range links {
		if l.Rel != rel {
			out = append(out, l)
		}
	}
	return out
}

// NormalizeHrefs lays the collection out under root: the collection at
// root/collection.json and each item at root/<id>/<id>.json. Only the
// collection carries a self link, and it is absolute. Every other structural
// link is relative.
func (c *Collection) NormalizeHrefs(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", root, err)
	}

	c.Links = withoutRel(c.Links, RelItem)
	c.Links = setLink(c.Links, Link{Rel: RelRoot, Href: "./" + CollectionFile, Type: MediaTypeJSON, Title: c.Title})
	c.Links = setLink(c.Links, Link{Rel: RelSelf, Href: filepath.ToSlash(filepath.Join(abs, CollectionFile)), Type: MediaTypeJSON})

	parent := "../" + CollectionFile
	for _, it := range c.items {
		c.Links = append(c.Links, Link{Rel: RelItem, Href: "./" + it.ID + "/" + it.ID + ".json", Type: MediaTypeJSON})
		it.Links = setLink(it.Links, Link{Rel: RelRoot, Href: parent, Type: MediaTypeJSON, Title: c.Title})
		it.Links = setLink(it.Links, Link{Rel: RelParent, Href: parent, Type: MediaTypeJSON, Title: c.Title})
		it.Links = setLink(it.Links, Link{Rel: RelCollection, Href: parent, Type: MediaTypeJSON, Title: c.Title})
		it.Links = withoutRel(it.Links, RelSelf)
	}
	return nil
}

// Save writes the collection and its items under dir.
func (c *Collection) Save(dir string) error {
	if err := writeJSON(filepath.Join(dir, CollectionFile), c); err != nil {
		return err
	}
	for _, it := range c.items {
		if err := writeJSON(itemPath(dir, it.ID), it); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the item alone to path.
func (it *Item) Save(path string) error {
	return writeJSON(path, it)
}

func validateLinks(links []Link) error {
	for i, l := range links {
		if l.Rel == "" || l.Href == "" {
			return fmt.Errorf("link %d: rel and href are required", i)
		}
	}
	return nil
}

func validateAssets(assets map[string]Asset) error {
	for k, a := range assets {
		if a.Href == "" {
			return fmt.Errorf("asset %q: href is required", k)
		}
	}
	return nil
}

func validateBbox(b []float64) error {
	if len(b) != 4 {
		return fmt.Errorf("bbox must have 4 values, got %d", len(b))
	}
	if b[0] < -180 || b[2] > 180 || b[1] < -90 || b[3] > 90 || b[1] > b[3] {
		return fmt.Errorf("bbox %v is out of range", b)
	}
	return nil
}

func parseInstant(field string, v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s must be a string", field)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// Validate checks the collection and its items for the fields and shapes
// required by STAC.
func (c *Collection) Validate() error {
	var errs []string
	check := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	if c.Type != "Collection" {
		check(fmt.Errorf("type must be Collection, got %q", c.Type))
	}
	if c.ID == "" || c.Description == "" || c.License == "" {
		check(errors.New("id, description and license are required"))
	}
	if len(c.Extent.Spatial.Bbox) == 0 {
		check(errors.New("spatial extent is required"))
	}
	for _, b := range c.Extent.Spatial.Bbox {
		check(validateBbox(b))
	}
	for _, iv := range c.Extent.Temporal.Interval {
		if len(iv) != 2 {
			check(fmt.Errorf("temporal interval must have 2 values, got %d", len(iv)))
			continue
		}
		if iv[0] != nil && iv[1] != nil {
			from, err1 := parseInstant("interval start", *iv[0])
			to, err2 := parseInstant("interval end", *iv[1])
			check(err1)
			check(err2)
			if err1 == nil && err2 == nil && to.Before(from) {
				check(errors.New("temporal interval ends before it starts"))
			}
		}
	}
	check(validateLinks(c.Links))
	check(validateAssets(c.Assets))
	for _, it := range c.items {
		if err := it.Validate(); err != nil {
			check(fmt.Errorf("item %s: %w", it.ID, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid collection %q: %s", c.ID, strings.Join(errs, "; "))
	}
	return nil
}

func (it *Item) Validate() error {
	if it.Type != "Feature" {
		return fmt.Errorf("type must be Feature, got %q", it.Type)
	}
	if it.ID == "" {
		return errors.New("id is required")
	}
	if err := validateBbox(it.Bbox); err != nil {
		return err
	}
	if it.Geometry.Type != "Polygon" || len(it.Geometry.Coordinates) == 0 {
		return errors.New("geometry must be a polygon")
	}
	ring := it.Geometry.Coordinates[0]
	if len(ring) < 4 || ring[0] != ring[len(ring)-1] {
		return errors.New("polygon ring must be closed")
	}

	if _, ok := it.Properties["datetime"]; !ok {
		return errors.New("datetime is required")
	}
	if _, err := parseInstant("datetime", it.Properties["datetime"]); err != nil {
		return err
	}
	start, err := parseInstant("start_datetime", it.Properties["start_datetime"])
	if err != nil {
		return err
	}
	end, err := parseInstant("end_datetime", it.Properties["end_datetime"])
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errors.New("end_datetime is before start_datetime")
	}

	if err := validateLinks(it.Links); err != nil {
		return err
	}
	return validateAssets(it.Assets)
}

// PopulateCollection returns the collection with one item per year from
// start through end. Item data assets point at <base>/<year>.csv.gz.
func PopulateCollection(clock clockwork.Clock, base string, start, end int) (*Collection, error) {
	if start > end {
		return nil, fmt.Errorf("start year %d is after end year %d", start, end)
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	c := CreateCollection(clock)
	for year := start; year <= end; year++ {
		item, err := CreateItem(ghcnd.YearURL(base, year))
		if err != nil {
			return nil, err
		}
		c.AddItem(item)
	}
	return c, nil
}
