//go:build integration
// +build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestPostgresConnectionRoundTrip exercises PostgresConnection against a
// real server. Gated behind the "integration" build tag and skipped
// automatically when REIZ_TEST_DATABASE_DSN isn't set, the same pattern
// the teacher uses for its libSQL integration test.
func TestPostgresConnectionRoundTrip(t *testing.T) {
	dsn := os.Getenv("REIZ_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("REIZ_TEST_DATABASE_DSN not set; skipping")
	}

	ctx := context.Background()
	conn, err := Connect(ctx, dsn)
	require.NoError(t, err)
	defer conn.Close()

	row, err := conn.QueryOne(ctx, `INSERT reiz::Module {filename := "a.py"}`, nil)
	require.NoError(t, err)
	id, ok := row.Get("id")
	require.True(t, ok)

	selectText := `SELECT reiz::Module { filename } FILTER .id = <uuid>"` + id.(uuid.UUID).String() + `"`
	fetched, err := conn.QueryOne(ctx, selectText, nil)
	require.NoError(t, err)
	filename, ok := fetched.Get("filename")
	require.True(t, ok)
	require.Equal(t, "a.py", filename)
}
