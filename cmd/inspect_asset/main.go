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

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/docopt/docopt-go"

	"github.com/arrowarc/ghcnd/integrations/filesystem"
	"github.com/arrowarc/ghcnd/internal/arrio"
	"github.com/arrowarc/ghcnd/internal/ui"
	"github.com/arrowarc/ghcnd/pkg/common/utils"
)

func main() {
	usage := `GHCNd data asset inspector.

Usage:
  inspect_asset --parquet=<parquet_file> [--head=<rows>] [--null=<value>] [--columns=<names>] [--row-groups=<ids>] [--parallel] [--mmap]
  inspect_asset -h | --help

Options:
  -h --help                   Show this screen.
  --parquet=<parquet_file>    Path to the data asset.
  --head=<rows>               Print the first rows as CSV [default: 0].
  --null=<value>              String representing null values in printed rows [default: NULL].
  --columns=<names>           Comma separated columns to print.
  --row-groups=<ids>          Comma separated row groups to read rows from.
  --parallel                  Decode columns in parallel.
  --mmap                      Memory map the file.
`

	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("Error parsing arguments: %v", err)
	}

	parquetPath, _ := arguments.String("--parquet")
	head, _ := arguments.Int("--head")
	nullValue, _ := arguments.String("--null")
	columns, _ := arguments.String("--columns")
	rowGroups, _ := arguments.String("--row-groups")
	parallel, _ := arguments.Bool("--parallel")
	mmap, _ := arguments.Bool("--mmap")

	summary, err := filesystem.ReadAssetSummary(parquetPath)
	if err != nil {
		log.Fatalf("Error reading asset: %v", err)
	}

	rows := [][2]string{
		{"path", summary.Path},
		{"size", strconv.FormatInt(summary.Size, 10) + " bytes"},
		{"rows", strconv.FormatInt(summary.NumRows, 10)},
		{"row groups", strconv.Itoa(summary.NumRowGroups)},
		{"created by", summary.CreatedBy},
		{"complete", strconv.FormatBool(summary.Complete())},
	}
	keys := make([]string, 0, len(summary.Metadata))
	for k := range summary.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{k, summary.Metadata[k]})
	}
	fmt.Println(ui.KeyValues("GHCNd data asset", rows))
	fmt.Println()
	if err := utils.PrintSchema(os.Stdout, summary.Schema); err != nil {
		log.Fatalf("Error printing schema: %v", err)
	}

	if head <= 0 {
		return
	}
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	opts := &filesystem.ParquetReadOptions{
		MemoryMap: mmap,
		Parallel:  parallel,
		BatchSize: int64(head),
	}
	if opts.ColumnIndices, err = columnIndices(summary.Schema, columns); err != nil {
		log.Fatalf("Error selecting columns: %v", err)
	}
	if opts.RowGroups, err = parseRowGroups(rowGroups, summary.NumRowGroups); err != nil {
		log.Fatalf("Error selecting row groups: %v", err)
	}

	if err := printHead(ctx, parquetPath, opts, int64(head), nullValue); err != nil {
		log.Fatalf("Error printing rows: %v", err)
	}
}

func printHead(ctx context.Context, path string, opts *filesystem.ParquetReadOptions, n int64, nullValue string) error {
	reader, err := filesystem.NewParquetReader(ctx, path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	writer := filesystem.NewCSVRecordWriter(os.Stdout, reader.Schema(), true, nullValue)
	if _, err := arrio.CopyRows(writer, reader, n); err != nil {
		return err
	}
	return writer.Close()
}

// columnIndices resolves a comma separated list of column names. An empty
// list selects every column.
func columnIndices(schema *arrow.Schema, names string) ([]int, error) {
	if strings.TrimSpace(names) == "" {
		return nil, nil
	}
	var indices []int
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		idx := schema.FieldIndices(name)
		if len(idx) == 0 {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		indices = append(indices, idx[0])
	}
	return indices, nil
}

// parseRowGroups parses a comma separated list of row group ids below n.
func parseRowGroups(ids string, n int) ([]int, error) {
	if strings.TrimSpace(ids) == "" {
		return nil, nil
	}
	var groups []int
	for _, id := range strings.Split(ids, ",") {
		g, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, fmt.Errorf("invalid row group %q", id)
		}
		if g < 0 || g >= n {
			return nil, fmt.Errorf("row group %d out of range [0, %d)", g, n)
		}
		groups = append(groups, g)
	}
	return groups, nil
}
