package joins

import (
	"sort"
	"sync"

	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/helpers"
)

// Schema holds the joins declared on one model, keyed by path.
type Schema struct {
	model      string
	collection string
	registry   *Registry
	lookup     Lookup
	logger     *helpers.Logger

	mu    sync.RWMutex
	joins map[string]*Declaration
}

type SchemaOption func(*Schema)

// WithRegistry resolves join type names against registry instead of the
// default one. A nil registry makes every declaration fail.
func WithRegistry(registry *Registry) SchemaOption {
	return func(s *Schema) {
		s.registry = registry
	}
}

// WithLookup sets the lookup used to reach target collections when the
// document does not provide its own.
func WithLookup(lookup Lookup) SchemaOption {
	return func(s *Schema) {
		s.lookup = lookup
	}
}

func WithLogger(logger *helpers.Logger) SchemaOption {
	return func(s *Schema) {
		s.logger = logger
	}
}

func NewSchema(model string, collection string, opts ...SchemaOption) *Schema {
	s := &Schema{
		model:      model,
		collection: collection,
		registry:   DefaultRegistry(),
		joins:      make(map[string]*Declaration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SchemaFor returns a schema for the model and collection of model.
func SchemaFor(model database.IModel, opts ...SchemaOption) *Schema {
	return NewSchema(model.GetModelName(), model.GetTableName(), opts...)
}

func (s *Schema) Model() string {
	return s.model
}

func (s *Schema) Collection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection
}

// adoptCollection records collection unless one is already set.
func (s *Schema) adoptCollection(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.collection == "" {
		s.collection = collection
	}
}

// Join returns the join declared at path, or nil when there is none.
func (s *Schema) Join(path string) *Declaration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.joins[path]
}

// Declare configures a join of type typeName at path and installs it. A
// non nil target overrides options.Target. On error nothing is installed.
// Declaring a path again replaces the previous join.
func (s *Schema) Declare(path string, typeName string, target any, options Options) (*Declaration, error) {
	strategy, ok := s.registry.Lookup(typeName)
	if !ok {
		return nil, NewJoinError(path, DetailNoSuchType)
	}

	if target != nil {
		options.Target = target
	}

	declaration, err := NewDeclaration(path, strategy, options)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.joins[path]; exists {
		s.logger.Warnf("join %s.%s redeclared", s.model, path)
	}
	s.joins[path] = declaration

	return declaration, nil
}

func (s *Schema) MustDeclare(path string, typeName string, target any, options Options) *Declaration {
	declaration, err := s.Declare(path, typeName, target, options)
	if err != nil {
		panic(err)
	}
	return declaration
}

// Paths lists the declared paths in order.
func (s *Schema) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths := make([]string, 0, len(s.joins))
	for path := range s.joins {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Declarations returns the declared joins ordered by path.
func (s *Schema) Declarations() []*Declaration {
	paths := s.Paths()
	declarations := make([]*Declaration, 0, len(paths))
	for _, path := range paths {
		if declaration := s.Join(path); declaration != nil {
			declarations = append(declarations, declaration)
		}
	}
	return declarations
}

// Bind returns a fresh binding of the join at path to doc.
func (s *Schema) Bind(doc Document, path string) (*Binding, error) {
	declaration := s.Join(path)
	if declaration == nil {
		return nil, NewJoinError(path, DetailNoSuchJoin)
	}

	binding := declaration.Bind(doc, s.lookupFor(doc))
	binding.logger = s.logger
	return binding, nil
}

// Related gives doc access to the joins of the schema.
func (s *Schema) Related(doc Document) Related {
	return Related{schema: s, document: doc}
}

func (s *Schema) lookupFor(doc Document) Lookup {
	if source, ok := doc.(LookupSource); ok {
		if lookup := source.JoinLookup(); lookup != nil {
			return lookup
		}
	}
	return s.lookup
}

// Related is the join accessor of one document.
type Related struct {
	schema   *Schema
	document Document
}

// Join returns a binding of the join at path, or false when the schema
// declares no such join.
func (r Related) Join(path string) (*Binding, bool) {
	if r.schema == nil {
		return nil, false
	}
	binding, err := r.schema.Bind(r.document, path)
	return binding, err == nil
}
