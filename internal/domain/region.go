package domain

// RegionCode is the opaque identifier the statistics API uses for an
// administrative region (CLS_ID).
type RegionCode string

// RegionName is the human-readable administrative name for a region,
// e.g. "서울특별시 강남구".
type RegionName string

// RegionEntry pairs a code with its name, in source-table order.
type RegionEntry struct {
	Code RegionCode
	Name RegionName
}

// RegionTable is the immutable code-to-name lookup loaded once at startup.
// The source table is injective (one name per code); duplicate codes in the
// input keep the first entry. Code order is preserved so downstream output
// is deterministic.
type RegionTable struct {
	codes []RegionCode
	names map[RegionCode]RegionName
}

// NewRegionTable builds a RegionTable from ordered entries.
func NewRegionTable(entries []RegionEntry) *RegionTable {
	t := &RegionTable{
		codes: make([]RegionCode, 0, len(entries)),
		names: make(map[RegionCode]RegionName, len(entries)),
	}
	for _, e := range entries {
		if e.Code == "" {
			continue
		}
		if _, ok := t.names[e.Code]; ok {
			continue
		}
		t.codes = append(t.codes, e.Code)
		t.names[e.Code] = e.Name
	}
	return t
}

// Codes returns the region codes in source order. The slice is a copy.
func (t *RegionTable) Codes() []RegionCode {
	out := make([]RegionCode, len(t.codes))
	copy(out, t.codes)
	return out
}

// Name returns the name for a code and whether the code is known.
func (t *RegionTable) Name(code RegionCode) (RegionName, bool) {
	name, ok := t.names[code]
	return name, ok
}

// Len reports the number of regions in the table.
func (t *RegionTable) Len() int {
	return len(t.codes)
}
