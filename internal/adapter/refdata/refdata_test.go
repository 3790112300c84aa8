package refdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/8irDeok/houseprice-dashboard/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegionTable(t *testing.T) {
	path := writeFile(t, "regions.csv",
		"분류코드,분류명\n"+
			"500001,전국\n"+
			"500002,서울특별시\n"+
			"500011,서울특별시 강남구\n")

	table, err := LoadRegionTable(path)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	name, ok := table.Name("500011")
	require.True(t, ok)
	assert.Equal(t, domain.RegionName("서울특별시 강남구"), name)
	assert.Equal(t, domain.RegionCode("500001"), table.Codes()[0])
}

func TestLoadRegionTable_SkipsBlankCodes(t *testing.T) {
	path := writeFile(t, "regions.csv", "code,name\n,empty\n11,seoul\n")

	table, err := LoadRegionTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}

func TestLoadRegionTable_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegionTable(filepath.Join(t.TempDir(), "absent.csv"))
		assert.Error(t, err)
	})

	t.Run("header only", func(t *testing.T) {
		path := writeFile(t, "regions.csv", "code,name\n")
		_, err := LoadRegionTable(path)
		assert.Error(t, err)
	})

	t.Run("too few columns", func(t *testing.T) {
		path := writeFile(t, "regions.csv", "code,name\nonlycode\n")
		_, err := LoadRegionTable(path)
		assert.Error(t, err)
	})
}

const testGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"SIG_CD": "11680", "SIG_KOR_NM": "강남구"},
      "geometry": {"type": "Polygon", "coordinates": [[[127.0, 37.5], [127.1, 37.5], [127.1, 37.6], [127.0, 37.5]]]}
    },
    {
      "type": "Feature",
      "properties": {"SIG_CD": "26110"},
      "geometry": {"type": "Polygon", "coordinates": [[[129.0, 35.1], [129.1, 35.1], [129.1, 35.2], [129.0, 35.1]]]}
    }
  ]
}`

func TestLoadFeatureCollection(t *testing.T) {
	path := writeFile(t, "map.geojson", testGeoJSON)

	features, err := LoadFeatureCollection(path, "SIG_KOR_NM")
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "강남구", features[0].Name)
	assert.JSONEq(t,
		`{"type": "Polygon", "coordinates": [[[127.0, 37.5], [127.1, 37.5], [127.1, 37.6], [127.0, 37.5]]]}`,
		string(features[0].Geometry))
	assert.Empty(t, features[1].Name, "missing name property keeps the feature with an empty name")
	assert.Nil(t, features[0].Change)
}

func TestLoadFeatureCollection_Errors(t *testing.T) {
	t.Run("not a collection", func(t *testing.T) {
		path := writeFile(t, "map.geojson", `{"type": "Feature"}`)
		_, err := LoadFeatureCollection(path, "SIG_KOR_NM")
		assert.Error(t, err)
	})

	t.Run("empty collection", func(t *testing.T) {
		path := writeFile(t, "map.geojson", `{"type": "FeatureCollection", "features": []}`)
		_, err := LoadFeatureCollection(path, "SIG_KOR_NM")
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeFile(t, "map.geojson", `{"type":`)
		_, err := LoadFeatureCollection(path, "SIG_KOR_NM")
		assert.Error(t, err)
	})
}
