package joins

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const definitionsYAML = `
models:
  - name: Camera
    collection: cameras
  - name: Event
    collection: events
    softDelete: true
  - name: Site
    collection: sites
joins:
  - model: Camera
    path: events
    type: ReferenceJoin
    target: Event
    multiple: true
    mapping: camera
  - model: Camera
    path: site
    type: FkJoin
    target: Site
    nullable: false
    mapping:
      from: siteId
  - model: Site
    path: cameras
    type: MappedJoin
    target: Camera
    multiple: true
    mapping:
      to: [siteCode, region]
      from: [code, region]
`

func TestParseDefinitionsYAML(t *testing.T) {
	file, err := ParseDefinitionsYAML([]byte(definitionsYAML))
	require.NoError(t, err)
	require.Len(t, file.Models, 3)
	assert.True(t, file.Models[1].SoftDelete)

	catalog := NewCatalog()
	require.NoError(t, catalog.Apply(file))

	cameras, ok := catalog.SchemaOf("Camera")
	require.True(t, ok)
	assert.Equal(t, "cameras", cameras.Collection())
	assert.Equal(t, []string{"events", "site"}, cameras.Paths())

	site := cameras.Join("site")
	assert.Equal(t, ForeignKeyJoinType, site.Type())
	assert.False(t, site.Nullable())
	assert.Equal(t, FieldMapping{From: "siteId"}, site.Mapping())

	sites, _ := catalog.SchemaOf("Site")
	assert.Equal(t, FieldsMapping{To: []string{"siteCode", "region"}, From: []string{"code", "region"}}, sites.Join("cameras").Mapping())
	assert.Equal(t, Multiple, sites.Join("cameras").Cardinality())
}

func TestParseDefinitionsJSON(t *testing.T) {
	file, err := ParseDefinitionsJSON([]byte(`{
		"joins": [
			{"model": "Camera", "path": "events", "type": "ForeignKeyJoin", "target": "Event", "multiple": true, "mapping": "camera"}
		]
	}`))
	require.NoError(t, err)

	catalog := NewCatalog(WithLookup(memoryLookup{"Event": newMemoryFinder("Event", "events", bson.M{"_id": "e1", "camera": 1})}))
	require.NoError(t, catalog.Apply(file))

	binding, err := catalog.Bind(newDoc("Camera", "cameras", bson.M{"_id": 1}), "events")
	require.NoError(t, err)
	result, err := binding.Follow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Len())
}

func TestDefinitions_Validation(t *testing.T) {
	_, err := ParseDefinitionsJSON([]byte(`{"joins": [{"model": "Camera", "type": "FkJoin", "mapping": "camera"}]}`))
	assert.Error(t, err, "path is required")

	_, err = ParseDefinitionsJSON([]byte(`{"joins": [`))
	assert.Error(t, err)

	_, err = ParseDefinitionsYAML([]byte(`
models:
  - name: Camera
    collection: cameras
joins:
  - model: Camera
    path: site
    type: FkJoin
    target: Site
    mapping: siteId
`))
	assert.ErrorContains(t, err, "unknown target Site")

	_, err = ParseDefinitionsYAML([]byte(`
models:
  - name: Camera
    collection: cameras
  - name: Camera
    collection: cams
`))
	assert.ErrorContains(t, err, "defined twice")
}

func TestDefinitions_ApplyStopsAtInvalidJoin(t *testing.T) {
	file, err := ParseDefinitionsYAML([]byte(`
joins:
  - model: Camera
    path: recent
    type: QueryJoin
    target: Event
    mapping:
      kind: door
  - model: Camera
    path: events
    type: FkJoin
    target: Event
    mapping: camera
`))
	require.NoError(t, err)

	catalog := NewCatalog()
	err = catalog.Apply(file)
	require.Error(t, err)
	joinErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, DetailMappingNotFactory, joinErr.Detail)

	cameras, _ := catalog.SchemaOf("Camera")
	assert.Empty(t, cameras.Paths())
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "joins.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(definitionsYAML), 0o600))
	file, err := LoadDefinitions(yamlPath)
	require.NoError(t, err)
	assert.Len(t, file.Joins, 3)

	jsonPath := filepath.Join(dir, "joins.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"models": [{"name": "Camera", "collection": "cameras"}]}`), 0o600))
	file, err = LoadDefinitions(jsonPath)
	require.NoError(t, err)
	assert.Len(t, file.Models, 1)

	_, err = LoadDefinitions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
