// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Command gen-schema writes the JSON Schema of every API request body to
// schemas/<name>.schema.json.
package main

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/holomush/authcore/internal/api"
)

func main() {
	if err := run("schemas"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schemas: %v\n", err)
		os.Exit(1)
	}
}

func run(dir string) error {
	schemas, err := api.GenerateSchemas()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	for _, name := range slices.Sorted(maps.Keys(schemas)) {
		outPath := filepath.Join(dir, name+".schema.json")
		if err := os.WriteFile(outPath, append(schemas[name], '\n'), 0o600); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		fmt.Printf("Generated %s\n", outPath)
	}
	return nil
}
