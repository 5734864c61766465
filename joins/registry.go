package joins

import (
	"sort"
	"sync"

	"github.com/go-errors/errors"
)

// Registry maps join type names to strategies.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

func NewRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry is the process wide registry. It holds the four built in
// join types under their names and legacy aliases.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

func init() {
	defaultRegistry.MustRegister(ReferenceJoinType, ReferenceJoin)
	defaultRegistry.MustRegister(DBRefJoinAlias, ReferenceJoin)
	defaultRegistry.MustRegister(ForeignKeyJoinType, ForeignKeyJoin)
	defaultRegistry.MustRegister(FkJoinAlias, ForeignKeyJoin)
	defaultRegistry.MustRegister(MappedFieldsJoinType, MappedFieldsJoin)
	defaultRegistry.MustRegister(MappedJoinAlias, MappedFieldsJoin)
	defaultRegistry.MustRegister(PredicateJoinType, PredicateJoin)
	defaultRegistry.MustRegister(QueryJoinAlias, PredicateJoin)
}

// Register adds a strategy under name. A name registers once.
func (r *Registry) Register(name string, strategy Strategy) error {
	if name == "" || strategy == nil {
		return errors.New("join type name and strategy are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.strategies[name]; exists {
		return errors.Errorf("join type %s already registered", name)
	}

	r.strategies[name] = strategy
	return nil
}

func (r *Registry) MustRegister(name string, strategy Strategy) {
	if err := r.Register(name, strategy); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Strategy, bool) {
	if r == nil {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	strategy, ok := r.strategies[name]
	return strategy, ok
}

// Names lists the registered names, aliases included.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
