//go:build smoke

// Smoke tests run virtual users against a live server and check that everything they
// created can be read back. They look for correctness bugs, not performance.
//
//	PROJECTHUB_URL=http://localhost:8080 go test -tags=smoke -count=1 -run TestE2ESmoke .
//	SMOKE_NUM_USERS=50 go test -tags=smoke -count=1 -run TestE2ESmoke .
package projecthub_test

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/client"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthubtesting"
)

// SmokeTestConfig holds configuration for smoke tests
type SmokeTestConfig struct {
	BaseURL             string
	NumUsers            int
	Timeout             time.Duration
	LaunchDelay         time.Duration // delay between launching users
	RequiredSuccessRate float64       // percent
}

func DefaultConfig() *SmokeTestConfig {
	return &SmokeTestConfig{
		BaseURL:             envOr("PROJECTHUB_URL", "http://localhost:8080", func(s string) (string, error) { return s, nil }),
		NumUsers:            envOr("SMOKE_NUM_USERS", 10, strconv.Atoi),
		Timeout:             envOr("SMOKE_TIMEOUT", 5*time.Minute, time.ParseDuration),
		LaunchDelay:         envOr("SMOKE_LAUNCH_DELAY", 10*time.Millisecond, time.ParseDuration),
		RequiredSuccessRate: envOr("SMOKE_SUCCESS_RATE", 100.0, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }),
	}
}

// envOr parses the environment variable key, falling back to def when it is unset or invalid.
func envOr[T any](key string, def T, parse func(string) (T, error)) T {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func TestE2ESmoke(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping smoke test in short mode")
	}

	config := DefaultConfig()
	require.Greater(t, config.NumUsers, 0, "NumUsers must be positive")

	ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
	defer cancel()

	healthClient, err := client.NewClient(config.BaseURL)
	require.NoError(t, err)
	health, err := healthClient.Health(ctx)
	require.NoError(t, err, "Server health check failed")
	require.Equal(t, "healthy", health["status"], "Server is not healthy")
	require.Equal(t, "read-write", health["mode"], "Server is read-only")

	t.Logf("Starting smoke test with %d users against %s", config.NumUsers, config.BaseURL)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)
	start := time.Now()
	for i := 0; i < config.NumUsers; i++ {
		vu, err := projecthubtesting.NewVirtualUser(i, config.BaseURL)
		require.NoError(t, err)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := vu.RunScenario(ctx); err != nil {
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			}
		}()
		time.Sleep(config.LaunchDelay)
	}
	wg.Wait()

	for _, err := range failures {
		t.Logf("virtual user failed: %v", err)
	}
	successRate := float64(config.NumUsers-len(failures)) / float64(config.NumUsers) * 100
	t.Logf("Completed in %v, success rate %.2f%%", time.Since(start), successRate)
	require.GreaterOrEqual(t, successRate, config.RequiredSuccessRate, "Success rate below threshold")
}
