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

package merge

import (
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/arrowarc/ghcnd/pkg/ghcnd"
)

// Columns that every observation carries; the rest are nullable.
var required = map[string]bool{
	ghcnd.ColID:      true,
	ghcnd.ColDate:    true,
	ghcnd.ColElement: true,
	ghcnd.ColValue:   true,
}

// Schema is the fixed layout of every record produced by a Merger.
var Schema = newSchema()

// ObservationSchema is how a by_year CSV file is decoded. Every column is
// nullable so that empty cells arrive as nulls.
var ObservationSchema = newObservationSchema()

func newObservationSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(ghcnd.DataColumns))
	for i, c := range ghcnd.DataColumns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func newSchema() *arrow.Schema {
	cols := ghcnd.AssetColumns()
	fields := make([]arrow.Field, len(cols))
	for i, c := range cols {
		fields[i] = arrow.Field{
			Name:     c.Name,
			Type:     arrowType(c.Type),
			Nullable: !required[c.Name],
		}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(kind string) arrow.DataType {
	switch kind {
	case "int":
		return arrow.PrimitiveTypes.Int64
	case "float":
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

// PointWKT renders a longitude/latitude pair as a WKT point using the
// shortest decimal representation that round-trips.
func PointWKT(lon, lat float64) string {
	return "POINT (" + strconv.FormatFloat(lon, 'f', -1, 64) + " " + strconv.FormatFloat(lat, 'f', -1, 64) + ")"
}
