package joins

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xompass/vsaas-joins/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type post struct {
	ID       bson.ObjectID  `bson:"_id" json:"id"`
	Title    string         `bson:"title" json:"title"`
	AuthorID *bson.ObjectID `bson:"authorId,omitempty" json:"authorId,omitempty"`
}

func (p post) GetTableName() string     { return "posts" }
func (p post) GetModelName() string     { return "Post" }
func (p post) GetConnectorName() string { return database.DefaultConnectorName }
func (p post) GetId() any               { return p.ID }

func declare(t *testing.T, path string, strategy Strategy, options Options) *Declaration {
	t.Helper()
	declaration, err := NewDeclaration(path, strategy, options)
	require.NoError(t, err)
	return declaration
}

func requireFollowerError(t *testing.T, err error, path string, detail string) {
	t.Helper()
	joinErr, ok := AsError(err)
	require.True(t, ok, "expected a follower error, got %v", err)
	assert.Equal(t, KindFollower, joinErr.Kind)
	assert.Equal(t, path, joinErr.Path)
	assert.Equal(t, detail, joinErr.Detail)
}

func requireConstraintError(t *testing.T, err error, path string) {
	t.Helper()
	joinErr, ok := AsError(err)
	require.True(t, ok, "expected a constraint error, got %v", err)
	assert.Equal(t, KindConstraint, joinErr.Kind)
	assert.Equal(t, path, joinErr.Path)
	assert.Equal(t, DetailIsNull, joinErr.Detail)
}

func TestFollow_ForeignKeyUnsetIsConstraintViolation(t *testing.T) {
	users := newMemoryFinder("User", "users")
	author := declare(t, "author", ForeignKeyJoin, Options{
		Target:   "User",
		Nullable: Bool(false),
		Mapping:  FieldMapping{From: "authorId"},
	})

	_, err := author.Follow(context.Background(), post{ID: bson.NewObjectID()}, memoryLookup{"User": users})
	requireConstraintError(t, err, "author")
	assert.Zero(t, users.queryCount(), "an unset key never reaches the store")

	nullable := declare(t, "author", ForeignKeyJoin, Options{Target: "User", Mapping: FieldMapping{From: "authorId"}})
	result, err := nullable.Follow(context.Background(), post{ID: bson.NewObjectID()}, memoryLookup{"User": users})
	require.NoError(t, err)
	assert.True(t, result.IsNull())
	assert.Nil(t, result.Value())
}

func TestFollow_ForeignKeyStringMappingIsMappedTo(t *testing.T) {
	users := newMemoryFinder("User", "users")
	author := declare(t, "author", ForeignKeyJoin, Options{
		Target:   "User",
		Nullable: Bool(false),
		Mapping:  "authorId",
	})

	postID := bson.NewObjectID()
	_, err := author.Follow(context.Background(), post{ID: postID}, memoryLookup{"User": users})
	requireConstraintError(t, err, "author")

	// "authorId" names the field of the user that holds the post id.
	if diff := cmp.Diff(bson.M{"authorId": postID}, users.lastQuery()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestFollow_ForeignKeyMappedFrom(t *testing.T) {
	authorID := bson.NewObjectID()
	users := newMemoryFinder("User", "users", bson.M{"_id": authorID, "name": "ada"})
	author := declare(t, "author", ForeignKeyJoin, Options{Target: "User", Mapping: FieldMapping{From: "authorId"}})

	result, err := author.Follow(context.Background(), post{ID: bson.NewObjectID(), AuthorID: &authorID}, memoryLookup{"User": users})
	require.NoError(t, err)

	user, ok := One[*database.Document](result)
	require.True(t, ok)
	assert.Equal(t, "ada", user.Data["name"])
	if diff := cmp.Diff(bson.M{"_id": authorID}, users.lastQuery()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestFollow_SingleWithoutMatch(t *testing.T) {
	empty := newMemoryFinder("Event", "events")
	lookup := memoryLookup{"Event": empty}
	camera := newDoc("Camera", "cameras", bson.M{"_id": 1, "site": "hq"})

	declarations := []*Declaration{
		declare(t, "lastEvent", ForeignKeyJoin, Options{Target: "Event", Nullable: Bool(false), Mapping: "camera"}),
		declare(t, "lastEvent", ReferenceJoin, Options{Target: "Event", Nullable: Bool(false), Mapping: "camera"}),
		declare(t, "lastEvent", MappedFieldsJoin, Options{Target: "Event", Nullable: Bool(false), Mapping: "site"}),
		declare(t, "lastEvent", PredicateJoin, Options{Target: "Event", Nullable: Bool(false), Mapping: Predicate(func(doc Document) any {
			return bson.M{"camera": doc.GetId()}
		})}),
	}

	for _, declaration := range declarations {
		t.Run(declaration.Type(), func(t *testing.T) {
			result, err := declaration.Follow(context.Background(), camera, lookup)
			requireConstraintError(t, err, "lastEvent")
			assert.True(t, result.IsNull())
		})
	}
}

func TestFollow_MultipleMappedFromIsImpossible(t *testing.T) {
	camera := newDoc("Camera", "cameras", bson.M{"_id": 1, "site": NewRef("sites", 2), "siteId": 2})

	for _, strategy := range []Strategy{ReferenceJoin, ForeignKeyJoin} {
		for _, nullable := range []bool{true, false} {
			lookup := &MockLookup{}
			declaration := declare(t, "site", strategy, Options{
				Target:   "Site",
				Multiple: true,
				Nullable: Bool(nullable),
				Mapping:  FieldMapping{From: "site"},
			})

			result, err := declaration.Follow(context.Background(), camera, lookup)
			requireFollowerError(t, err, "site", DetailResultSetImpossible)
			assert.True(t, result.Multiple)
			lookup.AssertNotCalled(t, "GetDocumentFinder", mock.Anything)
		}
	}
}

func TestFollow_ResultSetImpossibleBeforeDocument(t *testing.T) {
	declaration := declare(t, "site", ForeignKeyJoin, Options{
		Target:   "Site",
		Multiple: true,
		Mapping:  FieldMapping{From: "siteId"},
	})

	_, err := declaration.Follow(context.Background(), nil, memoryLookup{})
	requireFollowerError(t, err, "site", DetailResultSetImpossible)

	_, err = declaration.Count(context.Background(), nil, memoryLookup{}, nil)
	requireFollowerError(t, err, "site", DetailResultSetImpossible)

	single := declare(t, "site", ForeignKeyJoin, Options{Target: "Site", Mapping: FieldMapping{From: "siteId"}})
	_, err = single.Follow(context.Background(), nil, memoryLookup{})
	requireFollowerError(t, err, "site", DetailNoDocument)
}

func TestFollow_MappedFieldsQuery(t *testing.T) {
	users := newMemoryFinder("User", "users",
		bson.M{"_id": "u1", "userId": 7, "tenantId": 3},
		bson.M{"_id": "u2", "userId": 7, "tenantId": 4},
	)
	owner := declare(t, "owner", MappedFieldsJoin, Options{
		Target:  "User",
		Mapping: FieldsMapping{To: []string{"userId", "tenantId"}, From: []string{"ownerId", "orgId"}},
	})

	doc := newDoc("Camera", "cameras", bson.M{"_id": 1, "ownerId": 7, "orgId": 3})
	result, err := owner.Follow(context.Background(), doc, memoryLookup{"User": users})
	require.NoError(t, err)

	if diff := cmp.Diff(bson.M{"userId": 7, "tenantId": 3}, users.lastQuery()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, result.Document)
	assert.Equal(t, "u1", result.Document.GetId())
}

func TestFollow_MappedFieldsUnsetSourceMatchesNull(t *testing.T) {
	users := newMemoryFinder("User", "users")
	owner := declare(t, "owner", MappedFieldsJoin, Options{Target: "User", Mapping: FieldsMapping{To: []string{"userId"}, From: []string{"ownerId"}}})

	_, err := owner.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), memoryLookup{"User": users})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"userId": nil}, users.lastQuery())
}

func TestFollow_PredicateQueryNotDefined(t *testing.T) {
	events := newMemoryFinder("Event", "events")
	lookup := memoryLookup{"Event": events}
	doc := newDoc("Camera", "cameras", bson.M{"_id": 1, "kind": "door"})

	for name, produced := range map[string]any{
		"string":     "camera = 1",
		"nil":        nil,
		"nil bson.M": bson.M(nil),
		"number":     42,
	} {
		t.Run(name, func(t *testing.T) {
			declaration := declare(t, "recent", PredicateJoin, Options{
				Target:  "Event",
				Mapping: func(doc Document) any { return produced },
			})

			_, err := declaration.Follow(context.Background(), doc, lookup)
			requireFollowerError(t, err, "recent", DetailQueryNotDefined)
		})
	}
	assert.Zero(t, events.queryCount())
}

func TestFollow_PredicateQuery(t *testing.T) {
	events := newMemoryFinder("Event", "events",
		bson.M{"_id": "e1", "camera": 1, "kind": "door"},
		bson.M{"_id": "e2", "camera": 1, "kind": "motion"},
		bson.M{"_id": "e3", "camera": 2, "kind": "door"},
	)
	recent := declare(t, "doorEvents", PredicateJoin, Options{
		Target:   "Event",
		Multiple: true,
		Mapping: func(doc Document) any {
			return bson.D{{Key: "camera", Value: doc.GetId()}, {Key: "kind", Value: "door"}}
		},
	})

	result, err := recent.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), memoryLookup{"Event": events})
	require.NoError(t, err)

	require.Len(t, result.Documents, 1)
	assert.Equal(t, "e1", result.Documents[0].GetId())
	assert.Equal(t, bson.M{"camera": 1, "kind": "door"}, events.lastQuery())
}

func TestFollow_ReferenceMappedTo(t *testing.T) {
	events := newMemoryFinder("Event", "events",
		bson.M{"_id": "e1", "camera": bson.M{"$ref": "cameras", "$id": 1}},
		bson.M{"_id": "e2", "camera": bson.M{"$ref": "cameras", "$id": 2}},
		bson.M{"_id": "e3", "camera": bson.M{"$ref": "doors", "$id": 1}},
		bson.M{"_id": "e4", "camera": bson.M{"$ref": "cameras", "$id": 1}},
	)
	declaration := declare(t, "events", ReferenceJoin, Options{Target: "Event", Multiple: true, Mapping: "camera"})

	result, err := declaration.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), memoryLookup{"Event": events})
	require.NoError(t, err)

	if diff := cmp.Diff(bson.M{"camera.$ref": "cameras", "camera.$id": 1}, events.lastQuery()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}

	events2, ok := Many[*database.Document](result)
	require.True(t, ok)
	require.Len(t, events2, 2)
	assert.Equal(t, "e1", events2[0].GetId())
	assert.Equal(t, "e4", events2[1].GetId(), "store order is kept")
	assert.Equal(t, []string{"camera.$ref", "camera.$id"}, declaration.TargetFields())
}

func TestFollow_ReferenceMappedFrom(t *testing.T) {
	sites := newMemoryFinder("Site", "sites", bson.M{"_id": 2, "name": "hq"})
	lookup := memoryLookup{"Site": sites}
	site := declare(t, "site", ReferenceJoin, Options{Target: "Site", Nullable: Bool(false), Mapping: FieldMapping{From: "site"}})

	t.Run("match", func(t *testing.T) {
		for _, ref := range []any{
			NewRef("sites", 2),
			&Ref{Collection: "sites", ID: 2},
			bson.M{"$ref": "sites", "$id": 2},
			bson.D{{Key: "$ref", Value: "sites"}, {Key: "$id", Value: 2}},
		} {
			result, err := site.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1, "site": ref}), lookup)
			require.NoError(t, err)
			require.NotNil(t, result.Document)
			assert.Equal(t, 2, result.Document.GetId())
		}
	})

	t.Run("namespace mismatch", func(t *testing.T) {
		_, err := site.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1, "site": NewRef("buildings", 2)}), lookup)
		requireFollowerError(t, err, "site", DetailNamespaceMismatch)
	})

	t.Run("not a reference", func(t *testing.T) {
		_, err := site.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1, "site": 2}), lookup)
		requireFollowerError(t, err, "site", DetailNamespaceMismatch)
	})

	t.Run("unset", func(t *testing.T) {
		_, err := site.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), lookup)
		requireConstraintError(t, err, "site")
	})
}

func TestFollow_TargetSchemaMissing(t *testing.T) {
	doc := newDoc("Camera", "cameras", bson.M{"_id": 1})

	unset := declare(t, "events", ForeignKeyJoin, Options{Mapping: "camera"})
	_, err := unset.Follow(context.Background(), doc, memoryLookup{})
	requireFollowerError(t, err, "events", DetailTargetMissing)

	unknown := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Mapping: "camera"})
	_, err = unknown.Follow(context.Background(), doc, memoryLookup{})
	requireFollowerError(t, err, "events", DetailTargetMissing)

	_, err = unknown.Follow(context.Background(), doc, nil)
	requireFollowerError(t, err, "events", DetailTargetMissing)
}

func TestFollow_MultipleEmpty(t *testing.T) {
	events := newMemoryFinder("Event", "events")
	lookup := memoryLookup{"Event": events}
	doc := newDoc("Camera", "cameras", bson.M{"_id": 1})

	nullable := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Mapping: "camera"})
	result, err := nullable.Follow(context.Background(), doc, lookup)
	require.NoError(t, err)
	assert.True(t, result.IsNull())
	assert.Equal(t, []database.IModel{}, result.Value())

	required := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Nullable: Bool(false), Mapping: "camera"})
	_, err = required.Follow(context.Background(), doc, lookup)
	requireConstraintError(t, err, "events")
}

func TestFollow_StoreErrorsPassThrough(t *testing.T) {
	events := newMemoryFinder("Event", "events")
	events.err = assert.AnError
	declaration := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Mapping: "camera"})

	_, err := declaration.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), memoryLookup{"Event": events})
	assert.ErrorIs(t, err, assert.AnError)
	_, isJoinErr := AsError(err)
	assert.False(t, isJoinErr)
}

func TestFollow_Idempotent(t *testing.T) {
	events := newMemoryFinder("Event", "events",
		bson.M{"_id": "e1", "camera": 1},
		bson.M{"_id": "e2", "camera": 1},
	)
	lookup := memoryLookup{"Event": events}
	doc := newDoc("Camera", "cameras", bson.M{"_id": 1})
	binding := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Mapping: "camera"}).Bind(doc, lookup)

	first, err := binding.Follow(context.Background())
	require.NoError(t, err)
	second, err := binding.Follow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, events.queryCount(), "results are never cached")
	assert.Equal(t, events.queries[0], events.queries[1])
}

func TestFollow_Scoped(t *testing.T) {
	events := newMemoryFinder("Event", "events", bson.M{"_id": "e1", "camera": 1})
	declaration := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Mapping: "camera"})
	scope := database.NewFilter().OrderByDesc("created").Limit(5)

	_, err := declaration.FollowScoped(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), memoryLookup{"Event": events}, scope)
	require.NoError(t, err)
	assert.Same(t, scope, events.scopes[0])
}

func TestFollow_NotImplemented(t *testing.T) {
	_, err := (&Declaration{path: "broken"}).Follow(context.Background(), newDoc("Camera", "cameras", nil), memoryLookup{})
	requireFollowerError(t, err, "broken", DetailNotImplemented)

	noPlan := StrategyFunc("Nothing", func(path string, mapping any) (*Plan, error) { return nil, nil })
	declaration := declare(t, "nothing", noPlan, Options{Target: "Event"})
	_, err = declaration.Follow(context.Background(), newDoc("Camera", "cameras", nil), memoryLookup{})
	requireFollowerError(t, err, "nothing", DetailNotImplemented)

	var missing *Declaration
	_, err = missing.Follow(context.Background(), newDoc("Camera", "cameras", nil), memoryLookup{})
	requireFollowerError(t, err, "", DetailNotImplemented)
}

func TestFollow_SourceWithoutID(t *testing.T) {
	events := newMemoryFinder("Event", "events")
	declaration := declare(t, "events", ReferenceJoin, Options{Target: "Event", Multiple: true, Nullable: Bool(false), Mapping: "camera"})

	_, err := declaration.Follow(context.Background(), newDoc("Camera", "cameras", bson.M{}), memoryLookup{"Event": events})
	requireConstraintError(t, err, "events")
	assert.Zero(t, events.queryCount())
}

func TestCount(t *testing.T) {
	events := newMemoryFinder("Event", "events",
		bson.M{"_id": "e1", "camera": 1},
		bson.M{"_id": "e2", "camera": 1},
		bson.M{"_id": "e3", "camera": 2},
	)
	lookup := memoryLookup{"Event": events}
	camera := newDoc("Camera", "cameras", bson.M{"_id": 1})

	all := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Mapping: "camera"})
	n, err := all.Count(context.Background(), camera, lookup, database.NewFilter().Limit(1))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "limits do not apply to counts")
	assert.Equal(t, 1, events.counts)
	if diff := cmp.Diff(bson.M{"camera": 1}, events.lastQuery()); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}

	last := declare(t, "lastEvent", ForeignKeyJoin, Options{Target: "Event", Mapping: "camera"})
	n, err = last.Count(context.Background(), camera, lookup, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "a single join counts at most one document")

	n, err = all.Count(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 9}), lookup, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCount_NullHandling(t *testing.T) {
	events := newMemoryFinder("Event", "events")
	lookup := memoryLookup{"Event": events}

	required := declare(t, "events", ForeignKeyJoin, Options{Target: "Event", Multiple: true, Nullable: Bool(false), Mapping: "camera"})
	_, err := required.Count(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), lookup, nil)
	requireConstraintError(t, err, "events")

	_, err = required.Count(context.Background(), newDoc("Camera", "cameras", bson.M{}), lookup, nil)
	requireConstraintError(t, err, "events")
	assert.Equal(t, 1, events.counts, "an absent source id never reaches the store")

	_, err = required.Count(context.Background(), newDoc("Camera", "cameras", bson.M{"_id": 1}), memoryLookup{}, nil)
	requireFollowerError(t, err, "events", DetailTargetMissing)
}
