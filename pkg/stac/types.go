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

// Package stac describes the GHCNd archive and its data asset as a STAC
// collection with one item per year.
package stac

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arrowarc/ghcnd/internal/json"
)

const (
	Version = "1.0.0"

	MediaTypeText    = "text/plain"
	MediaTypeJSON    = "application/json"
	MediaTypeZip     = "application/zip"
	MediaTypeParquet = "application/x-parquet"
	MediaTypePNG     = "image/png"
)

// Extension schema URIs.
const (
	ExtItemAssets = "https://stac-extensions.github.io/item-assets/v1.0.0/schema.json"
	ExtProjection = "https://stac-extensions.github.io/projection/v1.0.0/schema.json"
	ExtScientific = "https://stac-extensions.github.io/scientific/v1.0.0/schema.json"
	ExtTable      = "https://stac-extensions.github.io/table/v1.2.0/schema.json"
	ExtFile       = "https://stac-extensions.github.io/file/v2.1.0/schema.json"
)

// Link relation types.
const (
	RelSelf        = "self"
	RelRoot        = "root"
	RelParent      = "parent"
	RelChild       = "child"
	RelItem        = "item"
	RelCollection  = "collection"
	RelLicense     = "license"
	RelVia         = "via"
	RelDescribedBy = "describedby"
)

type Link struct {
	Rel   string `json:"rel"`
	Href  string `json:"href"`
	Type  string `json:"type,omitempty"`
	Title string `json:"title,omitempty"`
}

type Asset struct {
	Href        string   `json:"href"`
	Type        string   `json:"type,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	FileSize    int64    `json:"file:size,omitempty"`
	ProjEPSG    int      `json:"proj:epsg,omitempty"`
}

// AssetDefinition is an item-assets entry of a collection.
type AssetDefinition struct {
	Types    []string `json:"types"`
	Roles    []string `json:"roles"`
	Title    string   `json:"title"`
	ProjEPSG int      `json:"proj:epsg,omitempty"`
}

type Provider struct {
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
	URL   string   `json:"url,omitempty"`
}

type SpatialExtent struct {
	Bbox [][]float64 `json:"bbox"`
}

// TemporalExtent intervals hold RFC 3339 instants; nil is open ended.
type TemporalExtent struct {
	Interval [][]*string `json:"interval"`
}

type Extent struct {
	Spatial  SpatialExtent  `json:"spatial"`
	Temporal TemporalExtent `json:"temporal"`
}

type Geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// TableColumn is one entry of table:columns.
type TableColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

type Collection struct {
	Type           string                     `json:"type"`
	StacVersion    string                     `json:"stac_version"`
	StacExtensions []string                   `json:"stac_extensions"`
	ID             string                     `json:"id"`
	Title          string                     `json:"title"`
	Description    string                     `json:"description"`
	Keywords       []string                   `json:"keywords,omitempty"`
	License        string                     `json:"license"`
	Providers      []Provider                 `json:"providers,omitempty"`
	Extent         Extent                     `json:"extent"`
	Summaries      map[string]interface{}     `json:"summaries,omitempty"`
	Assets         map[string]Asset           `json:"assets,omitempty"`
	ItemAssets     map[string]AssetDefinition `json:"item_assets,omitempty"`
	SciDOI         string                     `json:"sci:doi,omitempty"`
	SciCitation    string                     `json:"sci:citation,omitempty"`
	Links          []Link                     `json:"links"`

	items []*Item
}

type Item struct {
	Type           string                 `json:"type"`
	StacVersion    string                 `json:"stac_version"`
	StacExtensions []string               `json:"stac_extensions"`
	ID             string                 `json:"id"`
	Geometry       Geometry               `json:"geometry"`
	Bbox           []float64              `json:"bbox"`
	Properties     map[string]interface{} `json:"properties"`
	Links          []Link                 `json:"links"`
	Assets         map[string]Asset       `json:"assets"`
	Collection     string                 `json:"collection,omitempty"`
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// ReadCollection loads a collection document. Items are not followed.
func ReadCollection(path string) (*Collection, error) {
	var c Collection
	if err := readJSON(path, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func ReadItem(path string) (*Item, error) {
	var it Item
	if err := readJSON(path, &it); err != nil {
		return nil, err
	}
	return &it, nil
}
