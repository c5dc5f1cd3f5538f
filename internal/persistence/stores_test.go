package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/petrijr/plano/internal/testutil"
)

func TestInMemoryRunStore(t *testing.T) {
	suite.Run(t, &runStoreSuite{newStore: func(*testing.T) RunStore {
		return NewInMemoryRunStore()
	}})
}

func TestSQLiteRunStore(t *testing.T) {
	suite.Run(t, &runStoreSuite{newStore: func(t *testing.T) RunStore {
		db, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = db.Close() })

		store, err := NewSQLiteRunStore(context.Background(), db)
		require.NoError(t, err)
		return store
	}})
}

func TestRedisRunStore(t *testing.T) {
	suite.Run(t, &runStoreSuite{newStore: func(t *testing.T) RunStore {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisRunStore(client, "plano:test:")
	}})
}

func TestRedisRunStoreDefaultPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisRunStore(client, "")
	require.NoError(t, store.SaveRun(context.Background(), record("k", "p", StatusCompleted, 0)))
	require.True(t, mr.Exists("plano:run:k"))

	members, err := mr.ZMembers("plano:idx:plan:p")
	require.NoError(t, err)
	require.Equal(t, []string{"k"}, members)
}

func TestRedisRunStoreIntegration(t *testing.T) {
	addr := testutil.GetRedisAddress(t)
	suite.Run(t, &runStoreSuite{newStore: func(t *testing.T) RunStore {
		client := redis.NewClient(&redis.Options{Addr: addr})
		t.Cleanup(func() { _ = client.Close() })
		// A fresh prefix keeps tests sharing the server apart.
		return NewRedisRunStore(client, "plano:"+uuid.NewString()+":")
	}})
}

func TestPostgresRunStore(t *testing.T) {
	dsn := testutil.GetPostgresDSN(t)
	suite.Run(t, &runStoreSuite{newStore: func(t *testing.T) RunStore {
		db, err := sql.Open("pgx", dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		ctx := context.Background()
		store, err := NewPostgresRunStore(ctx, db)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, "DELETE FROM runs")
		require.NoError(t, err)
		return store
	}})
}

func TestMongoRunStore(t *testing.T) {
	uri := testutil.GetMongoURI(t)
	suite.Run(t, &runStoreSuite{newStore: func(t *testing.T) RunStore {
		ctx := context.Background()
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
		require.NoError(t, err)
		t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

		coll := "runs_" + uuid.NewString()
		t.Cleanup(func() { _ = client.Database("plano_test").Collection(coll).Drop(context.Background()) })
		return NewMongoRunStore(client, "plano_test", coll)
	}})
}
