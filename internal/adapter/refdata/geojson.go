package refdata

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

type geoJSONFile struct {
	Type     string        `json:"type"`
	Features []geoJSONFeat `json:"features"`
}

type geoJSONFeat struct {
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// LoadFeatureCollection reads the boundary GeoJSON. The feature name is
// taken from the given property key (SIG_KOR_NM in the source file);
// features without that property are kept with an empty name so they still
// render, as "no data". Geometry stays raw JSON: it is never interpreted
// here, only passed through to the map renderer.
func LoadFeatureCollection(path, nameProperty string) ([]domain.GeoFeature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open geojson: %w", err)
	}

	var file geoJSONFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse geojson %s: %w", path, err)
	}
	if file.Type != "FeatureCollection" {
		return nil, fmt.Errorf("geojson %s: want FeatureCollection, got %q", path, file.Type)
	}
	if len(file.Features) == 0 {
		return nil, fmt.Errorf("geojson %s contains no features", path)
	}

	features := make([]domain.GeoFeature, 0, len(file.Features))
	for _, f := range file.Features {
		name, _ := f.Properties[nameProperty].(string)
		features = append(features, domain.GeoFeature{
			Name:       name,
			Geometry:   f.Geometry,
			Properties: f.Properties,
		})
	}
	return features, nil
}
