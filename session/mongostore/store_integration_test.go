//go:build integration

package mongostore_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MrEthical07/ffauth/session"
	"github.com/MrEthical07/ffauth/session/mongostore"
	"github.com/MrEthical07/ffauth/session/sessiontest"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Integration tests are enabled when FF_TEST_MONGO_URI is set.

func TestMongoStoreSuite(t *testing.T) {
	uri := os.Getenv("FF_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("FF_TEST_MONGO_URI is not set; skipping MongoDB integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("mongo.Connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("integration test skipped: MongoDB unreachable: %v", err)
	}

	db := client.Database("ffauth_test")
	sessiontest.Run(t, func(t *testing.T) session.Store {
		coll := fmt.Sprintf("users_%d", time.Now().UnixNano())
		store := mongostore.New(db, coll)
		if err := store.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		t.Cleanup(func() { _ = db.Collection(coll).Drop(context.Background()) })
		return store
	})
}
