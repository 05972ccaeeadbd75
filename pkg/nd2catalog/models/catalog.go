package models

import (
	"fmt"
	"sort"
)

// Schema selects the column layout of a catalog.
type Schema string

const (
	// SchemaWaves is the layout for wave-experiment analysis.
	SchemaWaves Schema = "waves"
	// SchemaDLD is the layout for DNA deterministic lateral displacement devices.
	SchemaDLD Schema = "dld"
	// SchemaPlain carries the metadata columns only.
	SchemaPlain Schema = "plain"
)

// ParseSchema converts a configuration string into a Schema.
func ParseSchema(s string) (Schema, error) {
	switch Schema(s) {
	case SchemaWaves, SchemaDLD, SchemaPlain:
		return Schema(s), nil
	case "":
		return SchemaWaves, nil
	default:
		return "", fmt.Errorf("invalid schema: %s (must be waves, dld, or plain)", s)
	}
}

// Catalog represents all scanned files of one experiment directory.
type Catalog struct {
	// Dir is the scanned experiment directory.
	Dir string `json:"dir"`
	// Schema is the column layout the catalog was built with.
	Schema Schema `json:"schema"`
	// Columns is the column order of the persisted spreadsheet.
	Columns []string `json:"columns"`
	// Records holds one entry per file, sorted by recording start time.
	Records []FileRecord `json:"records"`
}

// SortByTimeStart orders records by recording start time. Records without
// a start time go last; ties keep their scan order.
func (c *Catalog) SortByTimeStart() {
	sort.SliceStable(c.Records, func(i, j int) bool {
		ti, okI := c.Records[i].TimeStart.Get()
		tj, okJ := c.Records[j].TimeStart.Get()
		switch {
		case okI && okJ:
			return ti.Before(tj)
		case okI:
			return true
		default:
			return false
		}
	})
}

// FindByFileNbr returns the records whose file number equals fileNbr.
func (c *Catalog) FindByFileNbr(fileNbr string) []FileRecord {
	var out []FileRecord
	for _, r := range c.Records {
		if n, ok := r.FileNbr.Get(); ok && n == fileNbr {
			out = append(out, r)
		}
	}
	return out
}
