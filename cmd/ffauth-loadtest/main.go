// Command ffauth-loadtest races concurrent refresh rotations of the same
// sessions against a Redis store and checks that each session ends with
// exactly one survivor.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/ffauth"
	"github.com/MrEthical07/ffauth/jwt"
	"github.com/MrEthical07/ffauth/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type seeded struct {
	userID       string
	sessionID    string
	refreshToken string
}

type raceOutcome struct {
	winners   int
	survivors int
}

func main() {
	var (
		users     = flag.Int("users", 500, "number of users (one session each) to seed")
		racers    = flag.Int("racers", 8, "concurrent refreshes per session")
		redisAddr = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix    = flag.String("prefix", "ffload", "redis key prefix")
	)
	flag.Parse()

	if *users <= 0 || *racers <= 0 {
		fmt.Fprintln(os.Stderr, "users and racers must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  *redis.Client
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewClient(&redis.Options{Addr: addr})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	store := session.NewRedisStore(client, *prefix)
	clk := &clock{now: time.Now()}

	cfg := ffauth.DefaultConfig()
	cfg.JWT.AccessSecret = []byte(strings.Repeat("a", jwt.MinSecretLength))
	cfg.JWT.RefreshSecret = []byte(strings.Repeat("r", jwt.MinSecretLength))
	cfg.Password.BcryptCost = 4
	cfg.Audit.Enabled = false

	engine, err := ffauth.New().WithConfig(cfg).WithStore(store).WithClock(clk.Now).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	tokens, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Now:           clk.Now,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "jwt: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	run := time.Now().UnixNano()
	states := make([]seeded, *users)
	for i := range states {
		res, err := engine.Register(ctx, ffauth.RegisterInput{
			Name:     fmt.Sprintf("load-%d", i),
			Email:    fmt.Sprintf("load-%d-%d@example.com", run, i),
			Password: "secret1",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
		claims, err := tokens.VerifyRefresh(res.RefreshToken)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seeded token invalid: %v\n", err)
			os.Exit(1)
		}
		states[i] = seeded{userID: res.User.ID, sessionID: claims.SessionID(), refreshToken: res.RefreshToken}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	// Move every session inside the rotation window.
	clk.Advance(cfg.JWT.RefreshTTL - cfg.Session.RotationThreshold + time.Hour)

	outcomes, stats := runRacePhase(ctx, engine, store, tokens, states, *racers)

	fmt.Println("---- results ----")
	printStats("refresh", stats)

	hist := make(map[int]int)
	bad := 0
	for _, o := range outcomes {
		hist[o.winners]++
		if o.survivors != 1 {
			bad++
		}
	}
	keys := make([]int, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		fmt.Printf("sessions with %d winner(s): %d\n", k, hist[k])
	}

	if bad > 0 {
		fmt.Fprintf(os.Stderr, "%d session(s) did not end with exactly one survivor\n", bad)
		os.Exit(1)
	}
	fmt.Println("ok: every session has exactly one survivor")
}

func runRacePhase(ctx context.Context, engine *ffauth.Engine, store session.Store, tokens *jwt.Manager, states []seeded, racers int) ([]raceOutcome, phaseStats) {
	var (
		failures  int64
		latencies = make([]time.Duration, 0, len(states)*racers)
		mu        sync.Mutex
		outcomes  = make([]raceOutcome, len(states))
	)

	start := time.Now()
	for i, st := range states {
		var (
			wg      sync.WaitGroup
			gate    = make(chan struct{})
			results = make([]string, racers)
		)
		for r := 0; r < racers; r++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				<-gate
				t0 := time.Now()
				res, err := engine.Refresh(ctx, st.refreshToken)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				} else {
					results[slot] = res.RefreshToken
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}(r)
		}
		close(gate)
		wg.Wait()

		outcomes[i] = countSurvivors(ctx, store, tokens, st, results)
	}
	total := time.Since(start)
	return outcomes, computeStats(total, latencies, failures)
}

func countSurvivors(ctx context.Context, store session.Store, tokens *jwt.Manager, st seeded, results []string) raceOutcome {
	var out raceOutcome
	if ok, err := store.Contains(ctx, st.userID, st.sessionID); err == nil && ok {
		out.survivors++
	}
	for _, tok := range results {
		if tok == "" {
			continue
		}
		out.winners++
		claims, err := tokens.VerifyRefresh(tok)
		if err != nil {
			continue
		}
		if ok, err := store.Contains(ctx, st.userID, claims.SessionID()); err == nil && ok {
			out.survivors++
		}
	}
	return out
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d rejected=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
