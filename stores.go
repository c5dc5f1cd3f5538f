package plano

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/plano/internal/persistence"
)

// StoreOptions selects and locates a run store backend for OpenRunStore.
type StoreOptions = persistence.Options

// NewInMemoryRunStore returns a RunStore kept in process memory.
func NewInMemoryRunStore() RunStore {
	return persistence.NewInMemoryRunStore()
}

// NewSQLiteRunStore returns a RunStore in a SQLite database. The caller
// imports the driver, e.g. modernc.org/sqlite.
func NewSQLiteRunStore(ctx context.Context, db *sql.DB) (RunStore, error) {
	return persistence.NewSQLiteRunStore(ctx, db)
}

// NewPostgresRunStore returns a RunStore in a PostgreSQL database opened
// with the pgx stdlib driver.
func NewPostgresRunStore(ctx context.Context, db *sql.DB) (RunStore, error) {
	return persistence.NewPostgresRunStore(ctx, db)
}

// NewRedisRunStore returns a RunStore in Redis; prefix defaults to "plano:".
func NewRedisRunStore(client redis.UniversalClient, prefix string) RunStore {
	return persistence.NewRedisRunStore(client, prefix)
}

// NewMongoRunStore returns a RunStore in a MongoDB collection.
func NewMongoRunStore(client *mongo.Client, dbName, collName string) RunStore {
	return persistence.NewMongoRunStore(client, dbName, collName)
}

// OpenRunStore connects to the backend named in opts. The returned
// function closes the connection.
func OpenRunStore(ctx context.Context, opts StoreOptions) (RunStore, func() error, error) {
	return persistence.Open(ctx, opts)
}
