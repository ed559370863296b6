package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestRecordSuccessThenLookup(t *testing.T) {
	l := New(setupTestDB(t))

	require.NoError(t, l.RecordSuccess("proj", "a.py", "hash1"))

	e, ok := l.Lookup("proj", "a.py")
	require.True(t, ok)
	require.Equal(t, StatusOK, e.Status)
	require.Equal(t, "hash1", e.ContentHash)
}

func TestUpToDateDetectsUnchangedContent(t *testing.T) {
	l := New(setupTestDB(t))
	require.NoError(t, l.RecordSuccess("proj", "a.py", "hash1"))

	require.True(t, l.UpToDate("proj", "a.py", "hash1"))
	require.False(t, l.UpToDate("proj", "a.py", "hash2"))
	require.False(t, l.UpToDate("proj", "unseen.py", "hash1"))
}

func TestRecordFailureThenFailuresList(t *testing.T) {
	l := New(setupTestDB(t))
	require.NoError(t, l.RecordFailure("proj", "bad.py", errors.New("syntax error")))
	require.NoError(t, l.RecordSuccess("proj", "good.py", "hash1"))

	failures, err := l.Failures("proj")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, "bad.py", failures[0].Filename)
	require.Equal(t, "syntax error", failures[0].Error)
}

func TestRecordSuccessOverwritesPriorFailure(t *testing.T) {
	l := New(setupTestDB(t))
	require.NoError(t, l.RecordFailure("proj", "a.py", errors.New("boom")))
	require.NoError(t, l.RecordSuccess("proj", "a.py", "hash1"))

	failures, err := l.Failures("proj")
	require.NoError(t, err)
	require.Empty(t, failures)
	require.True(t, l.UpToDate("proj", "a.py", "hash1"))
}
