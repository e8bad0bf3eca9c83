// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/todo-service/internal/database"
)

// Clock hands out strictly increasing timestamps, one Step apart.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func NewClock() *Clock {
	return &Clock{
		now:  time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
		Step: time.Millisecond,
	}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.Step)
	return c.now
}

// New returns a migrated database stored under t.TempDir and closed when
// the test ends.
func New(t *testing.T) database.Service {
	t.Helper()
	return NewWithClock(t, NewClock())
}

func NewWithClock(t *testing.T, clock *Clock) database.Service {
	t.Helper()
	db, err := database.New(database.Options{
		URL:      "sqlite://" + filepath.Join(t.TempDir(), "todos.db"),
		LogLevel: "silent",
		NowFunc:  clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}
