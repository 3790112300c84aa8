// Package refdata loads the static reference files: the region code table
// and the administrative boundary GeoJSON. Both are read once at startup and
// treated as immutable for the process lifetime.
package refdata

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

// LoadRegionTable reads the region code CSV. The file has a header row and
// at least two columns: region code, region name. Extra columns are ignored.
func LoadRegionTable(path string) (*domain.RegionTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read region csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("region csv %s has no data rows", path)
	}

	entries := make([]domain.RegionEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 2 {
			return nil, fmt.Errorf("region csv row %d: want at least 2 columns, got %d", i+2, len(row))
		}
		code := strings.TrimSpace(row[0])
		name := strings.TrimSpace(row[1])
		if code == "" {
			continue
		}
		entries = append(entries, domain.RegionEntry{
			Code: domain.RegionCode(code),
			Name: domain.RegionName(name),
		})
	}

	table := domain.NewRegionTable(entries)
	if table.Len() == 0 {
		return nil, fmt.Errorf("region csv %s contains no regions", path)
	}
	return table, nil
}
