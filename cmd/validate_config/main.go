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
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/arrowarc/ghcnd/pkg/common/config"
)

func main() {
	usage := `GHCNd Configuration Validator.

Usage:
  validate_config [--config=<config_file>]
  validate_config -h | --help

Options:
  -h --help                          Show this screen.
  --config=<config_file>             Path to the ghcnd configuration file. [default: config/ghcnd.yaml]
`

	arguments, err := docopt.ParseDoc(usage)
	if err != nil {
		log.Fatalf("Error parsing arguments: %v", err)
	}

	configPath, _ := arguments.String("--config")
	if _, err := os.Stat(configPath); err != nil {
		log.Fatalf("Configuration file %s not found. Use --config=<config_file>", configPath)
	}

	cfg, err := config.ParseConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}

	if err := cfg.Validate(time.Now().Year()); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	s := cfg.GHCNd
	fmt.Printf("Configuration is valid: years %d-%d into %s (%s).\n", s.StartYear, s.EndYear, s.Output, s.Compression)
}
