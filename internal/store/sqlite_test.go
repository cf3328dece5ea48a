// ABOUTME: Tests for both Store implementations
// ABOUTME: Runs one behavioural suite against SQLite (file and in-memory) and MemoryStore

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file was not created in nested directory")
}

func TestNewSQLiteStore_Memory(t *testing.T) {
	s, err := NewSQLiteStore(MemoryPath)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.IncrementTurnCount(context.Background(), "turn", "c1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	_, err = s.IncrementTurnCount(ctx, "push", "c1")
	require.NoError(t, err)
	_, err = s.IncrementTurnCount(ctx, "push", "c1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	st, err := s.GetConversationState(ctx, "push", "c1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.TurnCount)
}

func TestStores(t *testing.T) {
	impls := map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store { return newTestStore(t) },
		"memory": func(*testing.T) Store { return NewMemoryStore() },
	}

	for name, open := range impls {
		t.Run(name, func(t *testing.T) {
			t.Run("unknown conversation", func(t *testing.T) {
				s := open(t)
				_, err := s.GetConversationState(context.Background(), "turn", "nope")
				assert.True(t, errors.Is(err, ErrNotFound))
			})

			t.Run("increment and get", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()

				for want := 1; want <= 3; want++ {
					got, err := s.IncrementTurnCount(ctx, "turn", "c1")
					require.NoError(t, err)
					assert.Equal(t, want, got)
				}

				st, err := s.GetConversationState(ctx, "turn", "c1")
				require.NoError(t, err)
				assert.Equal(t, "turn", st.Protocol)
				assert.Equal(t, "c1", st.ConversationID)
				assert.Equal(t, 3, st.TurnCount)
				assert.False(t, st.UpdatedAt.IsZero())
			})

			t.Run("protocols are separate", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()

				_, err := s.IncrementTurnCount(ctx, "turn", "c1")
				require.NoError(t, err)
				n, err := s.IncrementTurnCount(ctx, "push", "c1")
				require.NoError(t, err)
				assert.Equal(t, 1, n)
			})

			t.Run("clear", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()

				_, err := s.IncrementTurnCount(ctx, "turn", "c1")
				require.NoError(t, err)
				require.NoError(t, s.ClearConversationState(ctx, "turn", "c1"))
				require.NoError(t, s.ClearConversationState(ctx, "turn", "never-seen"))

				_, err = s.GetConversationState(ctx, "turn", "c1")
				assert.True(t, errors.Is(err, ErrNotFound))

				n, err := s.IncrementTurnCount(ctx, "turn", "c1")
				require.NoError(t, err)
				assert.Equal(t, 1, n, "counter restarts after clear")
			})

			t.Run("concurrent increments", func(t *testing.T) {
				s := open(t)
				ctx := context.Background()

				var wg sync.WaitGroup
				for i := 0; i < 20; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := s.IncrementTurnCount(ctx, "push", "busy")
						assert.NoError(t, err)
					}()
				}
				wg.Wait()

				st, err := s.GetConversationState(ctx, "push", "busy")
				require.NoError(t, err)
				assert.Equal(t, 20, st.TurnCount)
			})

			t.Run("ping", func(t *testing.T) {
				assert.NoError(t, open(t).Ping(context.Background()))
			})
		})
	}
}
