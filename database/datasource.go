package database

import (
	"context"
	"sort"
	"sync"

	"github.com/go-errors/errors"
)

// Connector is the contract every database connector fulfils.
type Connector interface {
	Ping(ctx context.Context) error
	Disconnect(ctx context.Context) error
	GetName() string
	GetDatabaseName() string
	GetDriver() any
}

type Datasource struct {
	mu                   sync.RWMutex
	connectors           map[string]Connector      // Connectors registered in the datasource, by name.
	repositories         map[string]any            // Typed repositories, by model name.
	finders              map[string]DocumentFinder // Query access to every registered model, by model name.
	models               map[string]IModel         // Models registered in the datasource.
	connectorByModelName map[string]Connector      // Connectors by model name.
	includeResolver      IncludeResolver
}

func NewDatasource() *Datasource {
	return &Datasource{
		connectors:           map[string]Connector{},
		repositories:         map[string]any{},
		finders:              map[string]DocumentFinder{},
		models:               map[string]IModel{},
		connectorByModelName: map[string]Connector{},
	}
}

func (receiver *Datasource) AddConnector(connector Connector) error {
	if receiver == nil {
		return errors.New("datasource is nil")
	}
	if connector == nil {
		return errors.New("connector is nil")
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	if receiver.connectors == nil {
		receiver.connectors = make(map[string]Connector)
	}

	receiver.connectors[connector.GetName()] = connector
	return nil
}

func (receiver *Datasource) Destroy(ctx context.Context) {
	receiver.mu.RLock()
	defer receiver.mu.RUnlock()

	for _, connector := range receiver.connectors {
		if connector != nil {
			_ = connector.Disconnect(ctx)
		}
	}
}

func (receiver *Datasource) RegisterModel(model IModel) error {
	if receiver == nil {
		return errors.New("datasource is nil")
	}

	connector, err := receiver.GetConnector(model.GetConnectorName())
	if err != nil {
		return err
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	if receiver.models == nil {
		receiver.models = make(map[string]IModel)
	}
	if receiver.connectorByModelName == nil {
		receiver.connectorByModelName = make(map[string]Connector)
	}

	modelName := model.GetModelName()
	if existing := receiver.connectorByModelName[modelName]; existing != nil {
		return errors.Errorf("the model %s is already registered with connector %s", modelName, existing.GetName())
	}

	receiver.models[modelName] = model
	receiver.connectorByModelName[modelName] = connector
	return nil
}

func (receiver *Datasource) GetModelConnector(model IModel) (Connector, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	receiver.mu.RLock()
	defer receiver.mu.RUnlock()

	connector, ok := receiver.connectorByModelName[model.GetModelName()]
	if !ok {
		return nil, errors.Errorf("the model %s is not registered", model.GetModelName())
	}

	return connector, nil
}

func (receiver *Datasource) GetConnector(name string) (Connector, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	receiver.mu.RLock()
	defer receiver.mu.RUnlock()

	connector, ok := receiver.connectors[name]
	if !ok {
		return nil, errors.Errorf("the connector %s is not registered", name)
	}

	return connector, nil
}

func (receiver *Datasource) GetModel(modelName string) (IModel, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	receiver.mu.RLock()
	defer receiver.mu.RUnlock()

	model, ok := receiver.models[modelName]
	if !ok {
		return nil, errors.Errorf("the model %s is not registered", modelName)
	}

	return model, nil
}

// ModelNames lists the registered models in name order.
func (receiver *Datasource) ModelNames() []string {
	receiver.mu.RLock()
	defer receiver.mu.RUnlock()

	names := make([]string, 0, len(receiver.models))
	for name := range receiver.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterDocumentFinder makes a model's collection reachable by name, which
// is how join targets are resolved.
func (receiver *Datasource) RegisterDocumentFinder(modelName string, finder DocumentFinder) error {
	if receiver == nil {
		return errors.New("datasource is nil")
	}
	if finder == nil {
		return errors.Errorf("finder for model %s cannot be nil", modelName)
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()

	if receiver.finders == nil {
		receiver.finders = make(map[string]DocumentFinder)
	}

	if _, exists := receiver.finders[modelName]; exists {
		return errors.Errorf("a finder is already registered for model %s", modelName)
	}

	receiver.finders[modelName] = finder
	return nil
}

func (receiver *Datasource) GetDocumentFinder(modelName string) (DocumentFinder, error) {
	if receiver == nil {
		return nil, errors.New("datasource is nil")
	}

	receiver.mu.RLock()
	defer receiver.mu.RUnlock()

	finder, ok := receiver.finders[modelName]
	if !ok {
		return nil, errors.Errorf("the model %s is not registered", modelName)
	}

	return finder, nil
}

func (receiver *Datasource) SetIncludeResolver(resolver IncludeResolver) {
	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	receiver.includeResolver = resolver
}

func (receiver *Datasource) GetIncludeResolver() IncludeResolver {
	if receiver == nil {
		return nil
	}

	receiver.mu.RLock()
	defer receiver.mu.RUnlock()
	return receiver.includeResolver
}

func RegisterDatasourceRepository[T IModel](ds *Datasource, model T, repository Repository[T]) error {
	if ds == nil || repository == nil {
		return errors.New("datasource or repository cannot be nil")
	}

	modelName := model.GetModelName()

	repositoryConnector := repository.GetConnector()
	if repositoryConnector == nil {
		return errors.Errorf("repository for model %s does not have a connector", modelName)
	}

	ds.mu.Lock()
	connectorExists := false
	for _, existingConnector := range ds.connectors {
		if existingConnector == repositoryConnector {
			connectorExists = true
			break
		}
	}
	if !connectorExists {
		ds.mu.Unlock()
		return errors.Errorf("the connector %s for model %s is not registered in the datasource", repositoryConnector.GetName(), modelName)
	}

	if ds.repositories == nil {
		ds.repositories = make(map[string]any)
	}
	if _, exists := ds.repositories[modelName]; exists {
		ds.mu.Unlock()
		return errors.Errorf("a repository is already registered for model %s", modelName)
	}
	ds.repositories[modelName] = repository
	ds.mu.Unlock()

	return ds.RegisterDocumentFinder(modelName, repository)
}

func GetDatasourceModelRepository[T IModel](datasource *Datasource, model T) (Repository[T], error) {
	if datasource == nil {
		return nil, errors.New("datasource is nil")
	}

	datasource.mu.RLock()
	repository, ok := datasource.repositories[model.GetModelName()]
	datasource.mu.RUnlock()

	if !ok {
		return nil, errors.Errorf("the model %s is not registered", model.GetModelName())
	}

	if repo, ok := repository.(Repository[T]); ok {
		return repo, nil
	}

	return nil, errors.Errorf("the repository for model %s is not of the expected type", model.GetModelName())
}

// EnsureModelIndexes creates indexes on the collection of a registered model
// through its connector's index manager and returns the index names.
func (receiver *Datasource) EnsureModelIndexes(ctx context.Context, modelName string, indexes []IndexDefinition) ([]string, error) {
	if len(indexes) == 0 {
		return nil, nil
	}

	model, err := receiver.GetModel(modelName)
	if err != nil {
		return nil, err
	}

	manager, err := receiver.indexManagerFor(model)
	if err != nil {
		return nil, err
	}

	return manager.EnsureIndexes(ctx, model.GetTableName(), indexes)
}

// CompareModelIndexes reports differences between indexes and the ones that
// exist on the model's collection.
func (receiver *Datasource) CompareModelIndexes(ctx context.Context, modelName string, indexes []IndexDefinition) ([]IndexWarning, error) {
	model, err := receiver.GetModel(modelName)
	if err != nil {
		return nil, err
	}

	manager, err := receiver.indexManagerFor(model)
	if err != nil {
		return nil, err
	}

	return manager.CompareIndexes(ctx, model.GetTableName(), indexes)
}

func (receiver *Datasource) indexManagerFor(model IModel) (IndexManager, error) {
	connector, err := receiver.GetModelConnector(model)
	if err != nil {
		return nil, errors.Errorf("failed to get connector for model %s: %v", model.GetModelName(), err)
	}

	if mongoConnector, ok := connector.(*MongoConnector); ok && mongoConnector.GetIndexManager() != nil {
		return mongoConnector.GetIndexManager(), nil
	}

	return nil, errors.Errorf("connector %s does not manage indexes", connector.GetName())
}
