package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"zenstay/internal/infra/persistence/postgres/testutil"
	"zenstay/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driver, dsn string) (*sql.DB, error) {
		require.Equal(t, defaultDriver, driver)
		require.Equal(t, defaultDSN, dsn)
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	require.NoError(t, err)
	return store, conn
}

func TestNewStoreCreatesTableAndSeeds(t *testing.T) {
	store, conn := openStub(t)
	require.Len(t, store.ListRooms(), 2)
	require.Len(t, store.LoadIssues(), 3)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(stmt, "CREATE TABLE IF NOT EXISTS state") {
			sawDDL = true
		}
	}
	require.True(t, sawDDL, "expected state table DDL, got %v", conn.Execs)
}

func TestNewStoreLoadsExistingBuckets(t *testing.T) {
	db, conn := testutil.NewStubDB()
	settings := domain.DefaultSettings()
	settings.OvertimeAlertMinutes = 90
	raw, err := json.Marshal(settings)
	require.NoError(t, err)
	conn.State[string(domain.BucketSettings)] = raw
	conn.State[string(domain.BucketGuests)] = []byte(`[]`)

	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	store, err := NewStore(context.Background(), "postgres://example/zenstay", nil)
	require.NoError(t, err)
	require.Equal(t, 90, store.Settings().OvertimeAlertMinutes)
	require.Empty(t, store.ListGuests())
	require.Len(t, store.LoadIssues(), 1)
	require.Equal(t, domain.BucketRooms, store.LoadIssues()[0].Bucket)
}

func TestRunInTransactionUpsertsDirtyBuckets(t *testing.T) {
	store, conn := openStub(t)
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		guests := tx.State().Guests
		guests[0].Phone = "13800000009"
		return tx.PutGuests(guests)
	})
	require.NoError(t, err)
	require.Equal(t, 1, conn.Commits)

	payload, ok := conn.Payload(string(domain.BucketGuests))
	require.True(t, ok)
	var guests []domain.Guest
	require.NoError(t, json.Unmarshal(payload, &guests))
	require.Equal(t, "13800000009", guests[0].Phone)
	_, ok = conn.Payload(string(domain.BucketRooms))
	require.False(t, ok, "rooms were not touched")
}

func TestRunInTransactionPersistFailure(t *testing.T) {
	store, conn := openStub(t)
	conn.FailBucket = map[string]bool{string(domain.BucketSettings): true}
	_, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		s := tx.State().Settings
		s.CheckOutTime = "10:00"
		return tx.PutSettings(s)
	})
	var perr domain.PersistError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, []domain.Bucket{domain.BucketSettings}, perr.Buckets)
	require.Equal(t, "10:00", store.Settings().CheckOutTime, "in-memory commit stands")
	require.Zero(t, conn.Commits)
}

func TestReplaceWritesEveryBucket(t *testing.T) {
	store, conn := openStub(t)
	state := domain.SeedState()
	state.Guests = nil
	require.NoError(t, store.Replace(context.Background(), state))
	for _, b := range domain.Buckets() {
		_, ok := conn.Payload(string(b))
		require.True(t, ok, "bucket %s", b)
	}
	require.Empty(t, store.ListGuests())
}

func TestNewStoreErrors(t *testing.T) {
	cases := map[string]func(*testutil.StubConn){
		"ping":  func(c *testutil.StubConn) { c.FailPing = true },
		"ddl":   func(c *testutil.StubConn) { c.FailExec = true },
		"query": func(c *testutil.StubConn) { c.FailQuery = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			db, conn := testutil.NewStubDB()
			mutate(conn)
			restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
			defer restore()
			_, err := NewStore(context.Background(), "", nil)
			require.Error(t, err)
		})
	}

	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("no driver") })
	defer restore()
	_, err := NewStore(context.Background(), "", nil)
	require.ErrorContains(t, err, "open postgres")
}
