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

// Package stations loads the GHCNd station reference table.
//
// ghcnd-stations.txt is fixed width. Columns are 1-based and inclusive:
//
//	ID            1-11   Character
//	LATITUDE     13-20   Real
//	LONGITUDE    22-30   Real
//	ELEVATION    32-37   Real
//	STATE        39-40   Character
//	NAME         42-71   Character
//	GSN FLAG     73-75   Character
//	HCN/CRN FLAG 77-79   Character
//	WMO ID       81-85   Character
package stations

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

// Station is one row of the station reference table.
type Station struct {
	ID         string
	Latitude   float64
	Longitude  float64
	Elevation  float64
	State      string
	Name       string
	GSNFlag    string
	HCNCRNFlag string
	WMOID      string
}

type span struct{ start, end int }

// Zero-based half-open byte ranges of each field.
var (
	idSpan        = span{0, 11}
	latitudeSpan  = span{12, 20}
	longitudeSpan = span{21, 30}
	elevationSpan = span{31, 37}
	stateSpan     = span{38, 40}
	nameSpan      = span{41, 71}
	gsnSpan       = span{72, 75}
	hcnSpan       = span{76, 79}
	wmoSpan       = span{80, 85}
)

func (s span) field(line string) string {
	if s.start >= len(line) {
		return ""
	}
	end := s.end
	if end > len(line) {
		end = len(line)
	}
	return strings.TrimSpace(line[s.start:end])
}

// Table is an immutable, ID-indexed station table.
type Table struct {
	stations    []Station
	index       map[string]int
	fingerprint uint64
}

// NewTable indexes stations by ID. Later duplicates replace earlier ones.
func NewTable(stations []Station) *Table {
	t := &Table{
		stations: stations,
		index:    make(map[string]int, len(stations)),
	}
	for i, s := range stations {
		t.index[s.ID] = i
	}
	return t
}

func (t *Table) Len() int {
	return len(t.stations)
}

// Lookup returns the station with the given identifier.
func (t *Table) Lookup(id string) (Station, bool) {
	i, ok := t.index[id]
	if !ok {
		return Station{}, false
	}
	return t.stations[i], true
}

// Stations returns the rows in file order.
func (t *Table) Stations() []Station {
	return t.stations
}

// Fingerprint is the xxhash64 of the bytes the table was parsed from.
func (t *Table) Fingerprint() uint64 {
	return t.fingerprint
}

// Parse reads a fixed-width station file. Blank lines are skipped; missing
// trailing fields are empty.
func Parse(r io.Reader) (*Table, error) {
	return parse(r, "ghcnd-stations.txt")
}

func parse(r io.Reader, source string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read station table: %w", err)
	}

	var stations []Station
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		s, err := parseLine(line)
		if err != nil {
			return nil, &ghcnd.ParseError{Source: source, Line: lineNo, Details: err}
		}
		stations = append(stations, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ghcnd.ParseError{Source: source, Details: err}
	}

	t := NewTable(stations)
	t.fingerprint = xxhash.Sum64(data)
	return t, nil
}

func parseLine(line string) (Station, error) {
	s := Station{
		// The identifier stays a string even when it looks numeric.
		ID:         idSpan.field(line),
		State:      stateSpan.field(line),
		Name:       nameSpan.field(line),
		GSNFlag:    gsnSpan.field(line),
		HCNCRNFlag: hcnSpan.field(line),
		WMOID:      wmoSpan.field(line),
	}
	if s.ID == "" {
		return Station{}, fmt.Errorf("missing station identifier")
	}

	var err error
	if s.Latitude, err = parseFloat(ghcnd.ColLatitude, latitudeSpan.field(line)); err != nil {
		return Station{}, err
	}
	if s.Longitude, err = parseFloat(ghcnd.ColLongitude, longitudeSpan.field(line)); err != nil {
		return Station{}, err
	}
	if s.Elevation, err = parseFloat(ghcnd.ColElevation, elevationSpan.field(line)); err != nil {
		return Station{}, err
	}
	return s, nil
}

func parseFloat(column, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: invalid number %q", column, value)
	}
	return v, nil
}

// Format renders s as one fixed-width line, the inverse of Parse.
func Format(s Station) string {
	return fmt.Sprintf("%-11s %8.4f %9.4f %6.1f %-2s %-30s %-3s %-3s %-5s",
		s.ID, s.Latitude, s.Longitude, s.Elevation, s.State, truncate(s.Name, 30), s.GSNFlag, s.HCNCRNFlag, s.WMOID)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
