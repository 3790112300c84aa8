// Command validate performs offline integrity checks on the reference data
// the dashboard depends on: the region code CSV and the boundary GeoJSON.
// It verifies both files load, reports duplicate codes and names, and
// measures how well region names join against feature names under the
// configured match mode.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -regions regioncode.csv \
//	  -geojson koreamap.geojson \
//	  -name-property SIG_KOR_NM \
//	  -match suffix
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/8irDeok/houseprice-dashboard/internal/adapter/refdata"
	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	regionsPath := flag.String("regions", "regioncode.csv", "path to the region code CSV")
	geoPath := flag.String("geojson", "koreamap.geojson", "path to the boundary GeoJSON")
	nameProp := flag.String("name-property", "SIG_KOR_NM", "GeoJSON property holding the region name")
	match := flag.String("match", "suffix", "name match mode: suffix or exact")
	flag.Parse()

	mode := domain.MatchSuffix
	switch *match {
	case "suffix":
	case "exact":
		mode = domain.MatchExact
	default:
		fmt.Fprintf(os.Stderr, "FATAL: unknown match mode %q\n", *match)
		os.Exit(1)
	}

	if code := run(*regionsPath, *geoPath, *nameProp, mode); code != 0 {
		os.Exit(code)
	}
}

func run(regionsPath, geoPath, nameProp string, mode domain.MatchMode) int {
	fmt.Println("=== Reference Data Validation ===")
	fmt.Println()

	regions, err := refdata.LoadRegionTable(regionsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load region CSV: %v\n", err)
		return 1
	}

	features, err := refdata.LoadFeatureCollection(geoPath, nameProp)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load GeoJSON: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateRegions(regions),
		validateFeatures(features),
		validateJoinCoverage(regions, features, mode),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Loaded: %d regions, %d features\n", regions.Len(), len(features))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Region Table ──
// Checks region names for blanks and duplicates. Duplicate codes cannot
// surface here: the loader keeps the first entry per code.

func validateRegions(regions *domain.RegionTable) *phase {
	p := &phase{name: "Phase 1: Region Table (CSV)"}

	seenNames := map[domain.RegionName][]domain.RegionCode{}
	for _, code := range regions.Codes() {
		name, _ := regions.Name(code)
		if strings.TrimSpace(string(name)) == "" {
			p.errorf("region %s: blank name", code)
			continue
		}
		seenNames[name] = append(seenNames[name], code)
	}
	for name, codes := range seenNames {
		if len(codes) > 1 {
			p.errorf("name %q shared by codes %v (join is ambiguous)", name, codes)
		}
	}
	return p
}

// ── Phase 2: Feature Collection ──

func validateFeatures(features []domain.GeoFeature) *phase {
	p := &phase{name: "Phase 2: Feature Collection (GeoJSON)"}

	seen := map[string]int{}
	for i, f := range features {
		if strings.TrimSpace(f.Name) == "" {
			p.errorf("feature %d: blank name", i)
		}
		if len(f.Geometry) == 0 {
			p.errorf("feature %d (%s): empty geometry", i, f.Name)
		}
		seen[f.Name]++
	}
	for name, n := range seen {
		if n > 1 {
			p.errorf("feature name %q appears %d times", name, n)
		}
	}
	return p
}

// ── Phase 3: Join Coverage ──
// Runs the same name join the pipeline uses with a synthetic change per
// region, then reports features left unmatched and regions that matched
// no feature at all.

func validateJoinCoverage(regions *domain.RegionTable, features []domain.GeoFeature, mode domain.MatchMode) *phase {
	p := &phase{name: "Phase 3: Join Coverage (name matching)"}

	var changes []domain.ChangeResult
	for _, code := range regions.Codes() {
		name, _ := regions.Name(code)
		changes = append(changes, domain.ChangeResult{
			Region: code,
			Name:   name,
		})
	}

	joined := domain.CloneFeatures(features)
	misses := domain.JoinChanges(joined, changes, mode)
	if misses > 0 {
		for _, f := range joined {
			if f.Change == nil {
				p.errorf("feature %q matched no region", f.Name)
			}
		}
	}

	matched := map[domain.RegionCode]bool{}
	for _, f := range joined {
		if f.Change != nil {
			matched[f.Change.Region] = true
		}
	}
	for _, code := range regions.Codes() {
		if !matched[code] {
			name, _ := regions.Name(code)
			p.errorf("region %s (%s) matched no feature", code, name)
		}
	}
	return p
}
