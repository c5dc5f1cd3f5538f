package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMongo    = "mongo"
)

// Options selects and locates a store backend.
type Options struct {
	Backend string
	// DSN is the SQLite path, the Postgres connection string or the MongoDB
	// URI.
	DSN string
	// Addr is the Redis address.
	Addr string
	// Database is the MongoDB database name.
	Database string
	// Prefix namespaces Redis keys.
	Prefix string
}

// Open connects to the configured backend. The returned close function
// releases the connection.
func Open(ctx context.Context, opts Options) (RunStore, func() error, error) {
	nop := func() error { return nil }
	switch opts.Backend {
	case "", BackendMemory:
		return NewInMemoryRunStore(), nop, nil

	case BackendSQLite:
		dsn := opts.DSN
		if dsn == "" {
			dsn = "plano.db"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, nil, err
		}
		// SQLite allows one writer at a time.
		db.SetMaxOpenConns(1)
		s, err := NewSQLiteRunStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case BackendPostgres:
		db, err := sql.Open("pgx", opts.DSN)
		if err != nil {
			return nil, nil, err
		}
		s, err := NewPostgresRunStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, db.Close, nil

	case BackendRedis:
		addr := opts.Addr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return NewRedisRunStore(client, opts.Prefix), client.Close, nil

	case BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.DSN))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("mongo ping: %w", err)
		}
		closeFn := func() error { return client.Disconnect(context.Background()) }
		return NewMongoRunStore(client, opts.Database, ""), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
