package domain

import (
	"encoding/json"
	"strings"
)

// MatchMode selects how a region name is matched against a feature name.
type MatchMode int

const (
	// MatchSuffix matches when the full administrative region name ends with
	// the feature name: region "서울특별시 강남구" matches feature "강남구".
	// This is how the source data lines up: the statistics table carries the
	// long form, the map file the short one.
	MatchSuffix MatchMode = iota
	// MatchExact requires strict name equality.
	MatchExact
)

// GeoFeature is one named polygon from the administrative boundary file.
// Geometry and source properties are opaque reference data passed through to
// the map renderer untouched. Change is the only mutable field, set at most
// once by JoinChanges; nil means "no data" and must render in the neutral
// sentinel color, never as a zero change.
type GeoFeature struct {
	Name       string
	Geometry   json.RawMessage
	Properties map[string]any
	Change     *ChangeResult
}

// nameMatches reports whether a region's administrative name matches a
// feature name under the given mode.
func nameMatches(region RegionName, feature string, mode MatchMode) bool {
	r := strings.TrimSpace(string(region))
	f := strings.TrimSpace(feature)
	if r == "" || f == "" {
		return false
	}
	if mode == MatchExact {
		return r == f
	}
	return r == f || strings.HasSuffix(r, f)
}

// JoinChanges attaches at most one change result to each feature. The first
// matching result in input order wins; already-matched features are never
// overwritten, so a name shared by several regions stays deterministic.
// Returns the number of features left without data.
func JoinChanges(features []GeoFeature, changes []ChangeResult, mode MatchMode) int {
	misses := 0
	for i := range features {
		for j := range changes {
			if nameMatches(changes[j].Name, features[i].Name, mode) {
				features[i].Change = &changes[j]
				break
			}
		}
		if features[i].Change == nil {
			misses++
		}
	}
	return misses
}

// CloneFeatures deep-copies the join-relevant parts of a feature set so a
// pipeline run can attach results without mutating the shared reference data.
// Geometry and properties stay shared: they are read-only by contract.
func CloneFeatures(features []GeoFeature) []GeoFeature {
	out := make([]GeoFeature, len(features))
	for i, f := range features {
		out[i] = GeoFeature{
			Name:       f.Name,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		}
	}
	return out
}
