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

// Package utils holds small helpers for describing Arrow data.
package utils

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// ColumnInfo is a flattened view of one schema field.
type ColumnInfo struct {
	Name     string
	Type     string
	Nullable bool
}

// DescribeSchema lists the fields of schema in order, with catalog type names.
func DescribeSchema(schema *arrow.Schema) []ColumnInfo {
	cols := make([]ColumnInfo, schema.NumFields())
	for i, f := range schema.Fields() {
		cols[i] = ColumnInfo{Name: f.Name, Type: TableType(f.Type), Nullable: f.Nullable}
	}
	return cols
}

// TableType maps an Arrow type onto the type names used by catalog column
// listings.
func TableType(dt arrow.DataType) string {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return "string"
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64:
		return "int64"
	case arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return "uint64"
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return "float64"
	case arrow.BOOL:
		return "boolean"
	case arrow.DATE32, arrow.DATE64:
		return "date"
	case arrow.TIMESTAMP:
		return "timestamp"
	}
	return dt.String()
}

// PrintSchema writes a bordered column listing of schema to w.
func PrintSchema(w io.Writer, schema *arrow.Schema) error {
	if schema == nil {
		return errors.New("schema cannot be nil")
	}

	cols := DescribeSchema(schema)
	rows := make([][]string, len(cols))
	for i, c := range cols {
		rows[i] = []string{strconv.Itoa(i), c.Name, c.Type, strconv.FormatBool(c.Nullable)}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "COLUMN", "TYPE", "NULLABLE").
		Rows(rows...).
		StyleFunc(func(_, _ int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
