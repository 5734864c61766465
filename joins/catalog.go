package joins

import (
	"context"
	"sort"
	"sync"

	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-joins/database"
)

// Catalog is the set of join schemas of an application, keyed by model
// name. It resolves loopback includes through declared joins and derives
// the indexes that back them.
type Catalog struct {
	opts []SchemaOption

	mu      sync.RWMutex
	schemas map[string]*Schema
}

// NewCatalog returns an empty catalog. The options apply to every schema it
// creates.
func NewCatalog(opts ...SchemaOption) *Catalog {
	return &Catalog{opts: opts, schemas: make(map[string]*Schema)}
}

// Schema returns the schema of model, creating it on first use. The
// collection is recorded once it is known.
func (c *Catalog) Schema(model string, collection string) *Schema {
	c.mu.Lock()
	defer c.mu.Unlock()

	if schema, ok := c.schemas[model]; ok {
		schema.adoptCollection(collection)
		return schema
	}

	schema := NewSchema(model, collection, c.opts...)
	c.schemas[model] = schema
	return schema
}

// SchemaOf returns the schema of model if the catalog has one.
func (c *Catalog) SchemaOf(model string) (*Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	schema, ok := c.schemas[model]
	return schema, ok
}

func (c *Catalog) Models() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	models := make([]string, 0, len(c.schemas))
	for model := range c.schemas {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Bind binds the join at path of doc's model.
func (c *Catalog) Bind(doc Document, path string) (*Binding, error) {
	schema, ok := c.SchemaOf(doc.GetModelName())
	if !ok {
		return nil, NewJoinError(path, DetailNoSuchJoin)
	}
	return schema.Bind(doc, path)
}

// Attach makes the catalog resolve the includes of ds's repositories.
func (c *Catalog) Attach(ds *database.Datasource) {
	ds.SetIncludeResolver(c)
}

// ResolveInclude follows the join named relation on doc. Single joins yield
// the document or nil, multiple joins a list.
func (c *Catalog) ResolveInclude(ctx context.Context, doc database.IModel, relation string, scope *database.FilterBuilder) (any, error) {
	binding, err := c.Bind(doc, relation)
	if err != nil {
		return nil, errors.WrapPrefix(err, "include "+doc.GetModelName(), 0)
	}

	result, err := binding.FollowScoped(ctx, scope)
	if err != nil {
		return nil, err
	}
	return result.Value(), nil
}

// Info describes a declared join.
type Info struct {
	Model       string `json:"model"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	Target      string `json:"target"`
	Cardinality string `json:"cardinality"`
	Nullable    bool   `json:"nullable"`
	Mapping     any    `json:"mapping,omitempty"`
}

// Describe lists every declared join, by model then path. Predicate
// mappings are code and are left out.
func (c *Catalog) Describe() []Info {
	var infos []Info
	for _, model := range c.Models() {
		schema, _ := c.SchemaOf(model)
		for _, declaration := range schema.Declarations() {
			info := Info{
				Model:       model,
				Path:        declaration.Path(),
				Type:        declaration.Type(),
				Target:      declaration.Target(),
				Cardinality: declaration.Cardinality().String(),
				Nullable:    declaration.Nullable(),
			}
			if _, isPredicate := declaration.Mapping().(Predicate); !isPredicate {
				info.Mapping = declaration.Mapping()
			}
			infos = append(infos, info)
		}
	}
	return infos
}

// IndexDefinitions returns, per target model, the sparse indexes that back
// joins querying target fields other than _id.
func (c *Catalog) IndexDefinitions() map[string][]database.IndexDefinition {
	indexes := make(map[string][]database.IndexDefinition)

	for _, model := range c.Models() {
		schema, _ := c.SchemaOf(model)
		for _, declaration := range schema.Declarations() {
			fields := declaration.TargetFields()
			if len(fields) == 0 || declaration.Target() == "" {
				continue
			}

			definition := database.IndexDefinition{
				Name:   indexName(model, declaration.Path()),
				Sparse: true,
			}
			for _, field := range fields {
				definition.Fields = append(definition.Fields, database.IndexField{Name: field, Order: 1})
			}

			indexes[declaration.Target()] = append(indexes[declaration.Target()], definition)
		}
	}

	return indexes
}

func indexName(model string, path string) string {
	return "join_" + model + "_" + path
}

// IndexEnsurer creates indexes on the collection of a model.
// *database.Datasource implements it.
type IndexEnsurer interface {
	EnsureModelIndexes(ctx context.Context, modelName string, indexes []database.IndexDefinition) ([]string, error)
}

// EnsureIndexes creates the join indexes of every target model and returns
// the index names per model.
func (c *Catalog) EnsureIndexes(ctx context.Context, ensurer IndexEnsurer) (map[string][]string, error) {
	definitions := c.IndexDefinitions()

	targets := make([]string, 0, len(definitions))
	for target := range definitions {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	created := make(map[string][]string, len(targets))
	for _, target := range targets {
		names, err := ensurer.EnsureModelIndexes(ctx, target, definitions[target])
		if err != nil {
			return created, errors.WrapPrefix(err, "ensuring join indexes on "+target, 0)
		}
		created[target] = names
	}

	return created, nil
}
