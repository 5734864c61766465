package database

import (
	"context"
	"time"

	"github.com/go-errors/errors"
	"github.com/xompass/vsaas-joins/helpers"
	"github.com/xompass/vsaas-joins/http_errors"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/x/mongo/driver/connstring"
)

type MongoConnectorOpts struct {
	options.ClientOptions
	Name     string
	Database string
}

type MongoConnector struct {
	client       *mongo.Client
	options      *MongoConnectorOpts
	indexManager *MongoIndexManager
}

// NewMongoConnector creates the client and checks the server answers.
func NewMongoConnector(ctx context.Context, opts *MongoConnectorOpts) (*MongoConnector, error) {
	connector, err := newMongoConnector(opts)
	if err != nil {
		return nil, err
	}

	if err := connector.Ping(ctx); err != nil {
		return nil, errors.WrapPrefix(err, "cannot reach mongodb", 0)
	}

	return connector, nil
}

// NewDefaultMongoConnector is configured from MONGO_URI and MONGO_DATABASE;
// the database falls back to the one named in the URI, then "test".
func NewDefaultMongoConnector(ctx context.Context) (*MongoConnector, error) {
	opts, err := DefaultMongoConnectorOpts()
	if err != nil {
		return nil, err
	}
	return NewMongoConnector(ctx, opts)
}

func DefaultMongoConnectorOpts() (*MongoConnectorOpts, error) {
	uri := helpers.GetEnv("MONGO_URI", "mongodb://localhost:27017")

	conn, err := connstring.Parse(uri)
	if err != nil {
		return nil, err
	}

	dbName := conn.Database
	if dbName == "" {
		dbName = "test"
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(time.Duration(helpers.GetEnvUint16("MONGO_CONNECT_TIMEOUT", 10)) * time.Second).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	return &MongoConnectorOpts{
		ClientOptions: *clientOptions,
		Name:          DefaultConnectorName,
		Database:      helpers.GetEnv("MONGO_DATABASE", dbName),
	}, nil
}

// newMongoConnector builds the client without touching the network; the
// driver connects lazily.
func newMongoConnector(opts *MongoConnectorOpts) (*MongoConnector, error) {
	clientOptions := opts.ClientOptions

	client, err := mongo.Connect(&clientOptions)
	if err != nil {
		return nil, err
	}

	connector := &MongoConnector{
		client:  client,
		options: opts,
	}
	connector.indexManager = NewMongoIndexManager(connector)
	return connector, nil
}

func (receiver *MongoConnector) Ping(ctx context.Context) error {
	if receiver.client == nil {
		return errors.New("mongodb client not initialized")
	}
	return receiver.client.Ping(ctx, nil)
}

func (receiver *MongoConnector) Disconnect(ctx context.Context) error {
	if receiver.client == nil {
		return errors.New("mongodb client not initialized")
	}
	return receiver.client.Disconnect(ctx)
}

// GetDriver returns the underlying *mongo.Client.
func (receiver *MongoConnector) GetDriver() any {
	return receiver.client
}

func (receiver *MongoConnector) GetName() string {
	return receiver.options.Name
}

func (receiver *MongoConnector) GetDatabaseName() string {
	return receiver.options.Database
}

func (receiver *MongoConnector) GetOptions() MongoConnectorOpts {
	return *receiver.options
}

func (receiver *MongoConnector) GetIndexManager() *MongoIndexManager {
	return receiver.indexManager
}

// Collection returns a handle on a collection of the configured database.
func (receiver *MongoConnector) Collection(name string) (*mongo.Collection, error) {
	if receiver.client == nil {
		return nil, http_errors.InternalServerErrorWithCode(MONGO_CLIENT_NOT_INITIALIZED, "the MongoDB client is not initialized correctly")
	}

	if receiver.options.Database == "" {
		return nil, http_errors.BadRequestErrorWithCode(MONGO_DATABASE_NAME_REQUIRED, "database name is required")
	}

	return receiver.client.Database(receiver.options.Database).Collection(name), nil
}
