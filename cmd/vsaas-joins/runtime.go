package main

import (
	"context"

	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-joins/database"
	"github.com/xompass/vsaas-joins/joins"
)

// runtime is a catalog wired to a live MongoDB datasource.
type runtime struct {
	datasource *database.Datasource
	catalog    *joins.Catalog
	file       *joins.DefinitionFile
}

// loadCatalog reads the definitions file into a catalog whose joins resolve
// through lookup. A nil lookup is enough to check the declarations.
func loadCatalog(lookup joins.Lookup) (*joins.Catalog, *joins.DefinitionFile, error) {
	file, err := joins.LoadDefinitions(definitionsPath)
	if err != nil {
		return nil, nil, err
	}

	opts := []joins.SchemaOption{joins.WithLogger(logger)}
	if lookup != nil {
		opts = append(opts, joins.WithLookup(lookup))
	}

	catalog := joins.NewCatalog(opts...)
	if err := catalog.Apply(file); err != nil {
		return nil, nil, err
	}
	return catalog, file, nil
}

// openRuntime connects to MongoDB, registers a repository per defined model
// and lets the catalog resolve their includes.
func openRuntime(ctx context.Context) (*runtime, error) {
	file, err := joins.LoadDefinitions(definitionsPath)
	if err != nil {
		return nil, err
	}
	if len(file.Models) == 0 {
		return nil, errors.New("the definitions file lists no models")
	}

	connector, err := database.NewDefaultMongoConnector(ctx)
	if err != nil {
		return nil, err
	}

	ds := database.NewDatasource()
	if err := ds.AddConnector(connector); err != nil {
		return nil, err
	}

	for _, model := range file.Models {
		_, err := database.NewMongoCollectionRepository(ds, model.Name, model.Collection, database.RepositoryOptions{
			Deleted: model.SoftDelete,
		})
		if err != nil {
			ds.Destroy(ctx)
			return nil, errors.WrapPrefix(err, "registering "+model.Name, 0)
		}
		logger.Debugf("Registered model %s on collection %s", model.Name, model.Collection)
	}

	catalog, _, err := loadCatalog(ds)
	if err != nil {
		ds.Destroy(ctx)
		return nil, err
	}
	catalog.Attach(ds)

	return &runtime{datasource: ds, catalog: catalog, file: file}, nil
}

func (r *runtime) Close(ctx context.Context) {
	r.datasource.Destroy(ctx)
}
