/*
DESCRIPTION
  data.go provides the learned dataset for one output and its YAML
  persistence.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package predictor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is one learned data point: the brightness the user chose under a
// given ambient light bucket and screen lightness.
type Entry struct {
	Lux        string `yaml:"lux"`
	Luma       uint8  `yaml:"luma"`
	Brightness uint64 `yaml:"brightness"`
}

// Data is the ordered collection of learned entries for one output.
type Data struct {
	OutputName string  `yaml:"output_name"`
	Entries    []Entry `yaml:"entries"`
}

// sort orders the entries by (lux, luma), the canonical on-disk and
// in-memory order.
func (d *Data) sort() {
	sort.Slice(d.Entries, func(i, j int) bool {
		if d.Entries[i].Lux != d.Entries[j].Lux {
			return d.Entries[i].Lux < d.Entries[j].Lux
		}
		return d.Entries[i].Luma < d.Entries[j].Luma
	})
}

// Store persists per-output datasets as YAML files under a single directory,
// one file per output named after the output.
type Store struct {
	dir string
}

// NewStore returns a store rooted at the user's data directory.
func NewStore() (*Store, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine data directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	return NewStoreAt(filepath.Join(base, "lumen")), nil
}

// NewStoreAt returns a store rooted at the given directory.
func NewStoreAt(dir string) *Store { return &Store{dir: dir} }

// Load reads the dataset for the named output. A missing file yields an
// empty dataset.
func (s *Store) Load(output string) (Data, error) {
	d := Data{OutputName: output}
	raw, err := os.ReadFile(s.path(output))
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return d, fmt.Errorf("could not read dataset: %w", err)
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{OutputName: output}, fmt.Errorf("could not decode dataset: %w", err)
	}
	d.OutputName = output
	return d, nil
}

// Save rewrites the dataset for its output. The file is truncated and
// rewritten in place; there is a single writer per output so no locking is
// needed, and the dataset reconverges quickly if a write is lost.
func (s *Store) Save(d Data) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("could not create data directory: %w", err)
	}
	raw, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Errorf("could not encode dataset: %w", err)
	}
	if err := os.WriteFile(s.path(d.OutputName), raw, 0o644); err != nil {
		return fmt.Errorf("could not write dataset: %w", err)
	}
	return nil
}

func (s *Store) path(output string) string {
	return filepath.Join(s.dir, sanitize(output)+".yaml")
}

// sanitize maps an output name to a safe file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, name)
}
