// Package definition loads YAML journey definitions, validates them, and
// provides a fast-lookup registry with atomic pointer swap.
package definition

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rulesascode/journey/model"
)

// Loader scans directories for YAML journey definition files, parses them,
// and computes SHA-256 checksums.
type Loader struct{}

// NewLoader creates a new definition Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// LoadAll recursively scans directories for *.yaml and *.yml files and
// parses each into a JourneyDefinition.
func (l *Loader) LoadAll(directories []string) ([]model.JourneyDefinition, error) {
	var defs []model.JourneyDefinition

	for _, dir := range directories {
		err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}

			def, err := l.LoadFile(path)
			if err != nil {
				return fmt.Errorf("loading %s: %w", path, err)
			}
			defs = append(defs, def)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning directory %s: %w", dir, err)
		}
	}

	return defs, nil
}

// LoadFile loads and parses a single YAML journey definition file. It
// expands comma-separated key lists, computes the SHA-256 checksum and
// records the source file path.
func (l *Loader) LoadFile(path string) (model.JourneyDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.JourneyDefinition{}, fmt.Errorf("reading %s: %w", path, err)
	}

	var def model.JourneyDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return model.JourneyDefinition{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	def.ResultKeys = ExpandCSV(def.ResultKeys)
	def.ImmediateExitKeys = ExpandCSV(def.ImmediateExitKeys)
	def.Checksum = fmt.Sprintf("%x", sha256.Sum256(data))
	def.SourceFile = path

	return def, nil
}

// ExpandCSV splits any comma-separated entries into individual keys,
// trimming whitespace and dropping empties. Definitions written by hand
// often carry "a.b.c, a.b.d" style lists.
func ExpandCSV(keys []string) []string {
	var out []string
	for _, entry := range keys {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
