package rest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/go-errors/errors"
	"github.com/stretchr/testify/require"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/helpers"
	"github.com/xompass/vsaas-joins/joins"
	"github.com/xompass/vsaas-joins/lbq"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// storeFinder answers equality and $in queries on top level fields from
// memory. Of the scope, equality wheres (and-ed) and limits are honored.
type storeFinder struct {
	collection string
	docs       []*database.Document
	err        error
}

func newStoreFinder(model string, collection string, rows ...bson.M) *storeFinder {
	finder := &storeFinder{collection: collection}
	for _, row := range rows {
		finder.docs = append(finder.docs, database.NewDocument(model, collection, row))
	}
	return finder
}

func (f *storeFinder) GetCollectionName() string {
	return f.collection
}

func (f *storeFinder) FindDocument(ctx context.Context, query bson.M, scope *database.FilterBuilder) (database.IModel, error) {
	docs, err := f.FindDocuments(ctx, query, scope)
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (f *storeFinder) FindDocuments(ctx context.Context, query bson.M, scope *database.FilterBuilder) ([]database.IModel, error) {
	if f.err != nil {
		return nil, f.err
	}

	matches, filter, err := f.match(query, scope)
	if err != nil {
		return nil, err
	}
	if filter.Limit > 0 && uint(len(matches)) > filter.Limit {
		matches = matches[:filter.Limit]
	}
	return matches, nil
}

func (f *storeFinder) CountDocuments(ctx context.Context, query bson.M, scope *database.FilterBuilder) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}

	matches, _, err := f.match(query, scope)
	if err != nil {
		return 0, err
	}
	return int64(len(matches)), nil
}

func (f *storeFinder) match(query bson.M, scope *database.FilterBuilder) ([]database.IModel, *lbq.Filter, error) {
	filter := &lbq.Filter{}
	if scope != nil {
		built, err := scope.Build()
		if err != nil {
			return nil, nil, err
		}
		filter = built
	}

	matches := []database.IModel{}
	for _, doc := range f.docs {
		if matchesQuery(doc, query) && matchesWhere(doc, filter.Where) {
			matches = append(matches, doc)
		}
	}
	return matches, filter, nil
}

func matchesWhere(doc *database.Document, where lbq.Where) bool {
	for key, want := range where {
		if key == "and" {
			conditions, _ := want.(lbq.AndOrCondition)
			for _, condition := range conditions {
				if !matchesWhere(doc, condition) {
					return false
				}
			}
			continue
		}
		value, _ := doc.GetField(key)
		if !reflect.DeepEqual(value, want) {
			return false
		}
	}
	return true
}

func matchesQuery(doc *database.Document, query bson.M) bool {
	for key, want := range query {
		value, _ := doc.GetField(key)
		if operator, ok := want.(bson.M); ok {
			if !slicesContain(operator["$in"], value) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(value, want) {
			return false
		}
	}
	return true
}

func slicesContain(candidates any, value any) bool {
	list, ok := candidates.(bson.A)
	if !ok {
		return false
	}
	for _, candidate := range list {
		if reflect.DeepEqual(candidate, value) {
			return true
		}
	}
	return false
}

type storeLookup map[string]*storeFinder

func (l storeLookup) GetDocumentFinder(modelName string) (database.DocumentFinder, error) {
	finder, ok := l[modelName]
	if !ok {
		return nil, errors.Errorf("model %s not registered", modelName)
	}
	return finder, nil
}

var siteOID = bson.NewObjectID()

// newTestStore holds three sites and four cameras. Camera 4 points at a site
// that does not exist.
func newTestStore() storeLookup {
	return storeLookup{
		"Site": newStoreFinder("Site", "sites",
			bson.M{"_id": "hq", "name": "HQ"},
			bson.M{"_id": siteOID, "name": "Warehouse"},
			bson.M{"_id": "empty", "name": "Empty lot"},
		),
		"Camera": newStoreFinder("Camera", "cameras",
			bson.M{"_id": int64(1), "name": "door", "site": "hq"},
			bson.M{"_id": int64(2), "name": "hall", "site": "hq"},
			bson.M{"_id": int64(3), "name": "dock", "site": siteOID},
			bson.M{"_id": int64(4), "name": "orphan", "site": "gone"},
		),
	}
}

func newTestCatalog(lookup joins.Lookup) *joins.Catalog {
	catalog := joins.NewCatalog(joins.WithLookup(lookup))

	catalog.Schema("Site", "sites").MustDeclare("cameras", joins.ForeignKeyJoinType, "Camera", joins.Options{
		Multiple: true,
		Mapping:  joins.FieldMapping{To: "site"},
	})
	catalog.Schema("Camera", "cameras").MustDeclare("site", joins.ForeignKeyJoinType, "Site", joins.Options{
		Nullable: joins.Bool(false),
		Mapping:  joins.FieldMapping{From: "site"},
	})

	return catalog
}

// newTestApp serves the test catalog under /api.
func newTestApp(t *testing.T, options ...func(*RestAppOptions)) *RestApp {
	t.Helper()

	store := newTestStore()
	appOptions := RestAppOptions{
		Name:     "joins-test",
		Catalog:  newTestCatalog(store),
		Lookup:   store,
		LogLevel: helpers.LogLevelError,
	}
	for _, option := range options {
		option(&appOptions)
	}

	app := NewRestApp(appOptions)
	require.NoError(t, app.RegisterJoinEndpoints(app.Group("/api")))
	return app
}

func getJSON(t *testing.T, app *RestApp, target string, headers ...string) (int, map[string]any) {
	t.Helper()

	return decode(t, app.Test(newGet(target, headers...)))
}

// newGet builds a GET request; headers are name, value pairs.
func newGet(target string, headers ...string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

func postJSON(t *testing.T, app *RestApp, target string, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return decode(t, app.Test(req))
}

func decode(t *testing.T, res *http.Response) (int, map[string]any) {
	t.Helper()
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	body := map[string]any{}
	if len(data) > 0 {
		require.NoError(t, sonic.Unmarshal(data, &body), string(data))
	}
	return res.StatusCode, body
}

func withFilter(path string, filter string) string {
	return path + "?" + url.Values{"filter": {filter}}.Encode()
}
