package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sojourn/internal/compliance"
	id "sojourn/pkg/domain"
)

type statusCache interface {
	Get(ctx context.Context, personID id.PersonID, ref id.Date) (compliance.Status, bool, error)
	Generation(ctx context.Context, personID id.PersonID) (uint64, error)
	Set(ctx context.Context, personID id.PersonID, generation uint64, status compliance.Status) (bool, error)
	Invalidate(ctx context.Context, personID id.PersonID) error
}

func sampleStatus(ref string) compliance.Status {
	intervals := []compliance.Interval{{
		PersonID:          id.NewPersonID(),
		ZoneCode:          "FR",
		CountsTowardLimit: true,
		Entry:             id.MustParseDate("2025-01-01"),
		Exit:              id.MustParseDate("2025-01-10"),
	}}
	st, err := compliance.Evaluate(intervals, id.MustParseDate(ref))
	if err != nil {
		panic(err)
	}
	return st
}

// exerciseCache runs the behaviour every cache implementation must share.
func exerciseCache(t *testing.T, c statusCache) {
	ctx := context.Background()
	person, other := id.NewPersonID(), id.NewPersonID()
	st := sampleStatus("2025-01-10")

	_, ok, err := c.Get(ctx, person, st.ReferenceDate)
	require.NoError(t, err)
	assert.False(t, ok, "empty cache misses")

	store(t, c, person, st)
	store(t, c, other, st)

	got, ok, err := c.Get(ctx, person, st.ReferenceDate)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, st, got)

	_, ok, err = c.Get(ctx, person, st.ReferenceDate.AddDays(1))
	require.NoError(t, err)
	assert.False(t, ok, "a different reference date is a different entry")

	require.NoError(t, c.Invalidate(ctx, person))
	_, ok, err = c.Get(ctx, person, st.ReferenceDate)
	require.NoError(t, err)
	assert.False(t, ok, "invalidate drops every date of the person")

	_, ok, err = c.Get(ctx, other, st.ReferenceDate)
	require.NoError(t, err)
	assert.True(t, ok, "other persons are untouched")
}

// exerciseStaleWrite checks that a status computed before an invalidation is
// not stored after it.
func exerciseStaleWrite(t *testing.T, c statusCache) {
	ctx := context.Background()
	person := id.NewPersonID()
	st := sampleStatus("2025-01-10")

	before, err := c.Generation(ctx, person)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx, person))

	stored, err := c.Set(ctx, person, before, st)
	require.NoError(t, err)
	assert.False(t, stored, "write from an older generation is rejected")
	_, ok, err := c.Get(ctx, person, st.ReferenceDate)
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := c.Generation(ctx, person)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	stored, err = c.Set(ctx, person, after, st)
	require.NoError(t, err)
	assert.True(t, stored)
	_, ok, err = c.Get(ctx, person, st.ReferenceDate)
	require.NoError(t, err)
	assert.True(t, ok)
}

func store(t *testing.T, c statusCache, person id.PersonID, st compliance.Status) {
	t.Helper()
	gen, err := c.Generation(context.Background(), person)
	require.NoError(t, err)
	stored, err := c.Set(context.Background(), person, gen, st)
	require.NoError(t, err)
	require.True(t, stored)
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemory(time.Minute))
}

func TestMemoryCache_StaleWrite(t *testing.T) {
	exerciseStaleWrite(t, NewMemory(time.Minute))
}

func TestMemoryCache_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	c := NewMemory(time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	person := id.NewPersonID()
	st := sampleStatus("2025-01-10")

	store(t, c, person, st)
	_, ok, _ := c.Get(ctx, person, st.ReferenceDate)
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, person, st.ReferenceDate)
	assert.False(t, ok)
}

func TestMemoryCache_DropsExpiredEntries(t *testing.T) {
	start := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	now := start
	c := NewMemory(time.Minute, WithClock(func() time.Time { return now }))
	ctx := context.Background()
	person, other := id.NewPersonID(), id.NewPersonID()

	for ref := id.MustParseDate("2025-01-01"); !ref.After(id.MustParseDate("2025-01-10")); ref = ref.AddDays(1) {
		store(t, c, person, sampleStatus(ref.String()))
	}
	store(t, c, other, sampleStatus("2025-01-10"))
	require.Equal(t, 11, c.Len())

	t.Run("sweep drops expired entries of idle persons", func(t *testing.T) {
		now = start.Add(70 * time.Second)
		store(t, c, id.NewPersonID(), sampleStatus("2025-01-12"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("writing for a person drops that person's expired dates", func(t *testing.T) {
		now = start.Add(71 * time.Second)
		store(t, c, person, sampleStatus("2025-01-11"))
		store(t, c, person, sampleStatus("2025-01-13"))

		now = start.Add(130 * time.Second)
		store(t, c, other, sampleStatus("2025-01-12"))
		require.Equal(t, 3, c.Len(), "person's dates outlive this sweep")

		now = start.Add(135 * time.Second)
		store(t, c, person, sampleStatus("2025-01-12"))
		assert.Equal(t, 2, c.Len())
	})

	t.Run("sweep does not resurrect a pre-invalidation generation", func(t *testing.T) {
		gen, err := c.Generation(ctx, person)
		require.NoError(t, err)
		require.NoError(t, c.Invalidate(ctx, person))
		now = now.Add(2 * time.Minute)
		stored, err := c.Set(ctx, person, gen, sampleStatus("2025-01-12"))
		require.NoError(t, err)
		assert.False(t, stored)
	})
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *Redis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedis(client, 5*time.Minute)
}

func TestRedisCache(t *testing.T) {
	_, c := setupMiniredis(t)
	exerciseCache(t, c)
}

func TestRedisCache_StaleWrite(t *testing.T) {
	mr, c := setupMiniredis(t)
	exerciseStaleWrite(t, c)

	person := id.NewPersonID()
	require.NoError(t, c.Invalidate(context.Background(), person))
	assert.Equal(t, 24*time.Hour, mr.TTL("sojourn:status:gen:"+person.String()))
}

func TestRedisCache_LayoutAndExpiry(t *testing.T) {
	mr, c := setupMiniredis(t)
	ctx := context.Background()
	person := id.NewPersonID()
	st := sampleStatus("2025-01-10")

	store(t, c, person, st)

	key := "sojourn:status:" + person.String()
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 5*time.Minute, mr.TTL(key))
	fields, err := mr.HKeys(key)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-10"}, fields)

	mr.FastForward(5 * time.Minute)
	_, ok, err := c.Get(ctx, person, st.ReferenceDate)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_CorruptEntry(t *testing.T) {
	mr, c := setupMiniredis(t)
	person := id.NewPersonID()
	mr.HSet("sojourn:status:"+person.String(), "2025-01-10", "{not json")

	_, _, err := c.Get(context.Background(), person, id.MustParseDate("2025-01-10"))
	assert.Error(t, err)
}

func TestRedisCache_Unavailable(t *testing.T) {
	mr, c := setupMiniredis(t)
	mr.Close()

	_, _, err := c.Get(context.Background(), id.NewPersonID(), id.MustParseDate("2025-01-10"))
	assert.Error(t, err)
}
