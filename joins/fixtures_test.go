package joins

import (
	"context"
	"reflect"
	"sync"

	"github.com/go-errors/errors"
	"github.com/stretchr/testify/mock"
	"github.com/xompass/vsaas-joins/database"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// memoryFinder is a collection held in memory. Queries are plain equality
// on (dotted) fields.
type memoryFinder struct {
	collection string
	docs       []*database.Document
	err        error
	panics     bool

	mu      sync.Mutex
	queries []bson.M
	scopes  []*database.FilterBuilder
	counts  int
}

func newMemoryFinder(model string, collection string, rows ...bson.M) *memoryFinder {
	finder := &memoryFinder{collection: collection}
	for _, row := range rows {
		finder.docs = append(finder.docs, database.NewDocument(model, collection, row))
	}
	return finder
}

func (f *memoryFinder) GetCollectionName() string {
	return f.collection
}

func (f *memoryFinder) FindDocument(ctx context.Context, query bson.M, scope *database.FilterBuilder) (database.IModel, error) {
	matches, err := f.run(query, scope)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

func (f *memoryFinder) FindDocuments(ctx context.Context, query bson.M, scope *database.FilterBuilder) ([]database.IModel, error) {
	return f.run(query, scope)
}

func (f *memoryFinder) CountDocuments(ctx context.Context, query bson.M, scope *database.FilterBuilder) (int64, error) {
	f.mu.Lock()
	f.counts++
	f.mu.Unlock()

	matches, err := f.run(query, scope)
	return int64(len(matches)), err
}

func (f *memoryFinder) run(query bson.M, scope *database.FilterBuilder) ([]database.IModel, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.scopes = append(f.scopes, scope)
	f.mu.Unlock()

	if f.panics {
		panic("store exploded")
	}
	if f.err != nil {
		return nil, f.err
	}

	matches := []database.IModel{}
	for _, doc := range f.docs {
		if matchesQuery(doc, query) {
			matches = append(matches, doc)
		}
	}
	return matches, nil
}

func (f *memoryFinder) lastQuery() bson.M {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queries) == 0 {
		return nil
	}
	return f.queries[len(f.queries)-1]
}

func (f *memoryFinder) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func matchesQuery(doc *database.Document, query bson.M) bool {
	for key, want := range query {
		got, _ := doc.GetField(key)
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// memoryLookup maps model names to finders.
type memoryLookup map[string]database.DocumentFinder

func (l memoryLookup) GetDocumentFinder(modelName string) (database.DocumentFinder, error) {
	finder, ok := l[modelName]
	if !ok {
		return nil, errors.Errorf("model %s not found", modelName)
	}
	return finder, nil
}

type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) GetDocumentFinder(modelName string) (database.DocumentFinder, error) {
	args := m.Called(modelName)
	finder, _ := args.Get(0).(database.DocumentFinder)
	return finder, args.Error(1)
}

// sourcedDocument carries the lookup of the connection it was read from.
type sourcedDocument struct {
	*database.Document
	lookup Lookup
}

func (d sourcedDocument) JoinLookup() Lookup {
	return d.lookup
}

func newDoc(model string, collection string, data bson.M) *database.Document {
	return database.NewDocument(model, collection, data)
}
