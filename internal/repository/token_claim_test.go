package repository_test

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contenthub/internal/database"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
)

// openShared opens a new pool on the file-backed database at path.  Each
// pool holds one connection, so separate pools are separate connections.
func openShared(t *testing.T, path string) *repository.Store {
	t.Helper()
	db, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewStore(db)
}

func TestTokenClaimAcrossConnections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "claims.db") + "?_pragma=journal_mode(wal)"

	first, err := database.Open(database.Options{Driver: database.DriverSQLite, Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = first.Close() })
	require.NoError(t, database.Migrate(first, database.DriverSQLite))

	s := repository.NewStore(first)
	u := seedUser(t, s, "carol", model.RoleUser)
	tok, err := s.Tokens.Store(ctx, u.ID, "hash-shared", time.Now().Add(time.Hour))
	require.NoError(t, err)

	const racers = 4
	stores := make([]*repository.Store, racers)
	for i := range stores {
		stores[i] = openShared(t, path)
		// every connection sees the token as unused before anyone claims it
		got, err := stores[i].Tokens.FindByHash(ctx, "hash-shared")
		require.NoError(t, err)
		require.False(t, got.IsUsed)
	}

	var (
		wins  atomic.Int32
		start = make(chan struct{})
		wg    sync.WaitGroup
		errs  = make(chan error, racers)
	)
	for _, st := range stores {
		wg.Add(1)
		go func(st *repository.Store) {
			defer wg.Done()
			<-start
			ok, err := st.Tokens.ClaimUnused(ctx, tok.ID)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				wins.Add(1)
			}
		}(st)
	}
	close(start)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, wins.Load())

	got, err := s.Tokens.FindByHash(ctx, "hash-shared")
	require.NoError(t, err)
	assert.True(t, got.IsUsed)
}
