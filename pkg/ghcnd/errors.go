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

package ghcnd

import (
	"fmt"
	"strings"
)

// TransferError reports a failed retrieval of a remote resource.
type TransferError struct {
	URL        string
	StatusCode int
	Details    error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transfer of %q failed: status %d: %v", e.URL, e.StatusCode, e.Details)
	}
	return fmt.Sprintf("transfer of %q failed: %v", e.URL, e.Details)
}

func (e *TransferError) Unwrap() error {
	return e.Details
}

// DecompressionError reports a corrupt or truncated gzip archive.
type DecompressionError struct {
	Path    string
	Details error
}

func (e *DecompressionError) Error() string {
	return fmt.Sprintf("decompression of %q failed: %v", e.Path, e.Details)
}

func (e *DecompressionError) Unwrap() error {
	return e.Details
}

// ParseError reports a row that violates the fixed column layout of a source
// file. Line is 1-based; zero means the position is unknown.
type ParseError struct {
	Source  string
	Line    int
	Details error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse error in %q: %v", e.Source, e.Details)
	}
	return fmt.Sprintf("parse error in %q at line %d: %v", e.Source, e.Line, e.Details)
}

func (e *ParseError) Unwrap() error {
	return e.Details
}

// SchemaMismatchError reports a batch whose columns disagree with the schema
// fixed by the first write to the output asset.
type SchemaMismatchError struct {
	Expected []string
	Actual   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: expected columns [%s], got [%s]",
		strings.Join(e.Expected, ", "), strings.Join(e.Actual, ", "))
}
