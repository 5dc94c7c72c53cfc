// Package ingest loads CSV extracts from object storage into the warehouse
// and records a lineage edge for every file it loads.
package ingest

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Family describes a set of extract files sharing one column layout.
type Family struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Suffix selects files by name, e.g. "_SEC.csv".
	Suffix string `yaml:"suffix" mapstructure:"suffix"`
	// Schema is the warehouse dataset the tables live in.
	Schema string `yaml:"schema" mapstructure:"schema"`
	// Table is the fixed target table. Empty derives it from the file name
	// without its extension, so FINWIRE1967Q1_SEC.csv loads FINWIRE1967Q1_SEC.
	Table     string   `yaml:"table" mapstructure:"table"`
	Columns   []string `yaml:"columns" mapstructure:"columns"`
	Delimiter string   `yaml:"delimiter" mapstructure:"delimiter"`
	HasHeader bool     `yaml:"has_header" mapstructure:"has_header"`
	// Origin is the provenance tag of the lineage process, e.g. "load_finwire.py".
	Origin string `yaml:"origin" mapstructure:"origin"`
}

// Validate checks that the family can drive a load.
func (f Family) Validate() error {
	switch {
	case f.Name == "":
		return eris.New("ingest: family name is required")
	case f.Suffix == "":
		return eris.Errorf("ingest: family %s: suffix is required", f.Name)
	case f.Schema == "":
		return eris.Errorf("ingest: family %s: schema is required", f.Name)
	case len(f.Columns) == 0:
		return eris.Errorf("ingest: family %s: columns are required", f.Name)
	case f.Delimiter != "" && utf8.RuneCountInString(f.Delimiter) != 1:
		return eris.Errorf("ingest: family %s: delimiter must be a single character", f.Name)
	}
	return nil
}

// Matches reports whether the object key belongs to this family.
func (f Family) Matches(key string) bool {
	return strings.HasSuffix(path.Base(key), f.Suffix)
}

// TableFor returns the target table for the object key.
func (f Family) TableFor(key string) string {
	if f.Table != "" {
		return f.Table
	}
	name := path.Base(key)
	return strings.TrimSuffix(name, path.Ext(name))
}

func (f Family) delimiter() rune {
	if f.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(f.Delimiter)
	return r
}

// Match returns the first family matching key.
func Match(families []Family, key string) (Family, bool) {
	for _, f := range families {
		if f.Matches(key) {
			return f, true
		}
	}
	return Family{}, false
}
