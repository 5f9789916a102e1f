package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zenstay/internal/blob"
	"zenstay/pkg/domain"
)

type tick struct {
	at time.Time
}

func (c *tick) now() time.Time {
	c.at = c.at.Add(time.Hour)
	return c.at
}

func TestArchiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	clock := &tick{at: time.Date(2024, 5, 25, 8, 0, 0, 0, time.UTC)}
	a := New(store, WithClock(clock.now))

	state := domain.SeedState()
	m, err := a.Archive(ctx, state)
	require.NoError(t, err)
	require.Equal(t, "20240525T090000Z", m.ID)
	require.Equal(t, 2, m.Rooms)
	require.Equal(t, 6, m.Beds)
	require.Equal(t, 1, m.Occupied)
	require.Len(t, m.Digests, 3)

	infos, err := store.List(ctx, "archives/20240525T090000Z/")
	require.NoError(t, err)
	require.Len(t, infos, 4)

	loaded, issues, err := a.Load(ctx, m.ID)
	require.NoError(t, err)
	require.Empty(t, issues)
	require.Equal(t, state.Rooms[0].Beds[0].GuestID, loaded.Rooms[0].Beds[0].GuestID)
	require.True(t, state.Guests[0].TotalPaid.Equal(loaded.Guests[0].TotalPaid))

	_, _, err = a.Load(ctx, "19990101T000000Z")
	require.ErrorIs(t, err, ErrUnknownArchive)
}

func TestArchiveListLatestAndPrune(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	clock := &tick{at: time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC)}
	a := New(store, WithClock(clock.now))

	_, found, err := a.Latest(ctx)
	require.NoError(t, err)
	require.False(t, found)

	for i := 0; i < 3; i++ {
		state := domain.SeedState()
		state.Settings.OvertimeAlertMinutes = i
		_, err := a.Archive(ctx, state)
		require.NoError(t, err)
	}
	list, err := a.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "20240525T030000Z", list[0].ID)

	latest, found, err := a.Latest(ctx)
	require.NoError(t, err)
	require.True(t, found)
	loaded, _, err := a.Load(ctx, latest.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Settings.OvertimeAlertMinutes)

	removed, err := a.Prune(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, removed)
	infos, err := store.List(ctx, "archives/")
	require.NoError(t, err)
	require.Len(t, infos, 4)
	for _, info := range infos {
		require.True(t, strings.HasPrefix(info.Key, "archives/20240525T030000Z/"))
	}

	_, err = a.Prune(ctx, 0)
	require.Error(t, err)
}

func TestArchiveRefusesSameSecond(t *testing.T) {
	fixed := time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC)
	a := New(blob.NewMemory(), WithClock(func() time.Time { return fixed }))
	_, err := a.Archive(context.Background(), domain.SeedState())
	require.NoError(t, err)
	_, err = a.Archive(context.Background(), domain.SeedState())
	require.ErrorIs(t, err, blob.ErrExists)
}

func TestArchiveLoadMissingBucketFallsBack(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemory()
	a := New(store, WithClock(func() time.Time { return time.Date(2024, 5, 25, 12, 0, 0, 0, time.UTC) }))
	state := domain.SeedState()
	state.Settings.CheckOutTime = "10:00"
	m, err := a.Archive(ctx, state)
	require.NoError(t, err)
	_, err = store.Delete(ctx, bucketKey(m.ID, domain.BucketSettings))
	require.NoError(t, err)

	loaded, issues, err := a.Load(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.Equal(t, domain.BucketSettings, issues[0].Bucket)
	require.Equal(t, domain.DefaultSettings().CheckOutTime, loaded.Settings.CheckOutTime)
}
