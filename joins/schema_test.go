package joins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xompass/vsaas-joins/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestSchema_JoinLookupForm(t *testing.T) {
	schema := NewSchema("Camera", "cameras")

	assert.Nil(t, schema.Join("tags"), "an undeclared path is not an error")

	declared := schema.MustDeclare("events", ForeignKeyJoinType, "Event", Options{Multiple: true, Mapping: "camera"})
	assert.Same(t, declared, schema.Join("events"))
	assert.Nil(t, schema.Join("tags"))
}

func TestSchema_DeclareUnknownType(t *testing.T) {
	schema := NewSchema("Camera", "cameras")

	_, err := schema.Declare("events", "GraphJoin", "Event", Options{Mapping: "camera"})
	requireJoinError(t, err, "events", DetailNoSuchType)
	assert.Nil(t, schema.Join("events"))

	withoutRegistry := NewSchema("Camera", "cameras", WithRegistry(nil))
	_, err = withoutRegistry.Declare("events", ForeignKeyJoinType, "Event", Options{Mapping: "camera"})
	requireJoinError(t, err, "events", DetailNoSuchType)
}

func TestSchema_FailedDeclarationIsNotInstalled(t *testing.T) {
	schema := NewSchema("Camera", "cameras")

	_, err := schema.Declare("site", ReferenceJoinType, "Site", Options{Mapping: FieldMapping{To: "a", From: "b"}})
	requireJoinError(t, err, "site", DetailOnlyToOrFrom)
	assert.Nil(t, schema.Join("site"))
	assert.Empty(t, schema.Paths())

	assert.Panics(t, func() {
		schema.MustDeclare("site", ReferenceJoinType, "Site", Options{})
	})
}

func TestSchema_DeclareMergesTarget(t *testing.T) {
	schema := NewSchema("Camera", "cameras")

	declaration, err := schema.Declare("site", DBRefJoinAlias, "Site", Options{Target: "Building", Mapping: FieldMapping{From: "site"}})
	require.NoError(t, err)
	assert.Equal(t, "Site", declaration.Target())
	assert.Equal(t, ReferenceJoinType, declaration.Type(), "aliases resolve to the join type")

	declaration, err = schema.Declare("owner", FkJoinAlias, nil, Options{Target: "User", Mapping: FieldMapping{From: "ownerId"}})
	require.NoError(t, err)
	assert.Equal(t, "User", declaration.Target())

	assert.Equal(t, []string{"owner", "site"}, schema.Paths())
	require.Len(t, schema.Declarations(), 2)
	assert.Equal(t, "owner", schema.Declarations()[0].Path())
}

func TestSchema_BindIsFreshPerAccess(t *testing.T) {
	events := newMemoryFinder("Event", "events", bson.M{"_id": "e1", "camera": 1})
	schema := NewSchema("Camera", "cameras", WithLookup(memoryLookup{"Event": events}))
	schema.MustDeclare("events", ForeignKeyJoinType, "Event", Options{Multiple: true, Mapping: "camera"})

	camera := newDoc("Camera", "cameras", bson.M{"_id": 1})

	first, err := schema.Bind(camera, "events")
	require.NoError(t, err)
	second, err := schema.Bind(camera, "events")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Same(t, first.Declaration(), second.Declaration())
	assert.Same(t, camera, first.Document())

	result, err := first.Follow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Len())

	_, err = schema.Bind(camera, "tags")
	requireJoinError(t, err, "tags", DetailNoSuchJoin)
}

func TestSchema_DocumentLookupWins(t *testing.T) {
	fallback := newMemoryFinder("Site", "sites")
	own := newMemoryFinder("Site", "sites", bson.M{"_id": 2})

	schema := SchemaFor(database.NewDocument("Camera", "cameras", nil), WithLookup(memoryLookup{"Site": fallback}))
	assert.Equal(t, "Camera", schema.Model())
	assert.Equal(t, "cameras", schema.Collection())
	schema.MustDeclare("site", ForeignKeyJoinType, "Site", Options{Mapping: FieldMapping{From: "siteId"}})

	doc := sourcedDocument{
		Document: newDoc("Camera", "cameras", bson.M{"_id": 1, "siteId": 2}),
		lookup:   memoryLookup{"Site": own},
	}

	binding, ok := schema.Related(doc).Join("site")
	require.True(t, ok)
	result, err := binding.Follow(context.Background())
	require.NoError(t, err)
	assert.False(t, result.IsNull())
	assert.Equal(t, 1, own.queryCount())
	assert.Zero(t, fallback.queryCount())

	_, ok = schema.Related(doc).Join("missing")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register("Custom", ForeignKeyJoin))
	assert.Error(t, registry.Register("Custom", ReferenceJoin), "a name registers once")
	assert.Error(t, registry.Register("", ReferenceJoin))

	strategy, ok := registry.Lookup("Custom")
	require.True(t, ok)
	assert.Equal(t, ForeignKeyJoinType, strategy.Name())

	_, ok = registry.Lookup("Other")
	assert.False(t, ok)

	var missing *Registry
	_, ok = missing.Lookup("Custom")
	assert.False(t, ok)

	assert.Equal(t, []string{
		DBRefJoinAlias, FkJoinAlias, ForeignKeyJoinType, MappedFieldsJoinType,
		MappedJoinAlias, PredicateJoinType, QueryJoinAlias, ReferenceJoinType,
	}, DefaultRegistry().Names())
}
