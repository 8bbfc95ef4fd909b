package test

import (
	"context"
	"strings"
	"testing"

	"github.com/MrEthical07/ffauth"
	"github.com/MrEthical07/ffauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "ffit"

func testConfig() ffauth.Config {
	cfg := ffauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("k", 32))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("q", 32))
	cfg.Password.BcryptCost = 4
	cfg.Audit.Enabled = false
	return cfg
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *session.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, session.NewRedisStore(rdb, keyPrefix)
}

func newEngine(t *testing.T, store session.Store) *ffauth.Engine {
	t.Helper()

	engine, err := ffauth.New().WithConfig(testConfig()).WithStore(store).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func register(t *testing.T, engine *ffauth.Engine, email string) *ffauth.AuthResult {
	t.Helper()

	res, err := engine.Register(context.Background(), ffauth.RegisterInput{
		Name:     "Alice",
		Email:    email,
		Password: "secret1",
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return res
}
