package surrealdb

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/storetest"
)

func getEnvOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// newTestStore connects to SURREALDB_URL (e.g. ws://localhost:8000/rpc) and uses a fresh
// database per test.
func newTestStore(t *testing.T) *SurrealStore {
	t.Helper()
	url := os.Getenv("SURREALDB_URL")
	if url == "" {
		t.Skip("SURREALDB_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())

	s, err := NewSurrealStore(ctx, url, "projecthub_test", database,
		getEnvOrDefault("SURREALDB_USER", "root"),
		getEnvOrDefault("SURREALDB_PASS", "root"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestHandleNotFound(t *testing.T) {
	assert.NoError(t, handleNotFound(fmt.Errorf("Expected a single or multiple results but got 0")))
	assert.NoError(t, handleNotFound(fmt.Errorf("cbor: cannot unmarshal array into Go value of type models.User")))
	assert.NoError(t, handleNotFound(nil))

	other := fmt.Errorf("connection refused")
	assert.Equal(t, other, handleNotFound(other))
}

func TestLimitClause(t *testing.T) {
	assert.Equal(t, "", limitClause(0))
	assert.Equal(t, "", limitClause(-5))
	assert.Equal(t, " LIMIT 20", limitClause(20))
}
