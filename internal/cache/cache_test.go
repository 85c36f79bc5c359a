package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/novelseek/internal/testutil"
)

type testPage struct {
	Names  []string `json:"names"`
	IsLast bool     `json:"is_last"`
}

func setupTestCache(t *testing.T) (*CacheDB, *time.Time) {
	t.Helper()

	env := testutil.NewTestEnv(t)
	c, err := Open(env.Path("test_cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCacheDB_GetSet(t *testing.T) {
	c, _ := setupTestCache(t)

	require.NoError(t, c.Set(SearchTable, "qidian|x|1", `{"names":["a"]}`, time.Hour))

	data, ok, err := c.Get(SearchTable, "qidian|x|1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"names":["a"]}`, data)

	_, ok, err = c.Get(SearchTable, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheDB_GetExpired(t *testing.T) {
	c, now := setupTestCache(t)

	require.NoError(t, c.Set(DetailTable, "k", "{}", time.Minute))
	*now = now.Add(2 * time.Minute)

	_, ok, err := c.Get(DetailTable, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.Exists(DetailTable, "k"))
}

func TestCacheDB_RejectsUnknownTable(t *testing.T) {
	c, _ := setupTestCache(t)

	_, _, err := c.Get("users; DROP TABLE search_cache", "k")
	require.Error(t, err)
	require.Error(t, c.Set("nope", "k", "{}", time.Hour))
	_, err = c.InvalidateSource("nope")
	require.Error(t, err)
}

func TestCacheDB_ClearExpired(t *testing.T) {
	c, now := setupTestCache(t)

	require.NoError(t, c.Set(SearchTable, "old", "{}", time.Minute))
	require.NoError(t, c.Set(SearchTable, "new", "{}", time.Hour))
	*now = now.Add(10 * time.Minute)

	n, err := c.ClearExpired(SearchTable)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.True(t, c.Exists(SearchTable, "new"))
}

func TestCacheDB_InvalidateSource(t *testing.T) {
	c, _ := setupTestCache(t)

	require.NoError(t, c.Set(CoverTable, "a", "{}", time.Hour))
	require.NoError(t, c.Set(CoverTable, "b", "{}", time.Hour))
	require.NoError(t, c.Set(DetailTable, "c", "{}", time.Hour))

	n, err := c.InvalidateSource(CoverTable)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, c.Exists(DetailTable, "c"))
}

func TestGetOrFetchWithTTL_MissThenHit(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (*testPage, error) {
		calls++
		return &testPage{Names: []string{"a", "b"}}, nil
	}

	got, fromCache, err := GetOrFetchWithTTL(ctx, c, SearchTable, "k", fetch, FixedTTL[*testPage](time.Hour))
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, []string{"a", "b"}, got.Names)

	got, fromCache, err = GetOrFetchWithTTL(ctx, c, SearchTable, "k", fetch, FixedTTL[*testPage](time.Hour))
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, []string{"a", "b"}, got.Names)
	assert.Equal(t, 1, calls)
}

func TestGetOrFetchWithTTL_RespectsExpiry(t *testing.T) {
	c, now := setupTestCache(t)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (*testPage, error) {
		calls++
		return &testPage{Names: []string{"a"}}, nil
	}

	_, _, err := GetOrFetchWithTTL(ctx, c, SearchTable, "k", fetch, FixedTTL[*testPage](time.Minute))
	require.NoError(t, err)
	*now = now.Add(time.Hour)
	_, fromCache, err := GetOrFetchWithTTL(ctx, c, SearchTable, "k", fetch, FixedTTL[*testPage](time.Minute))
	require.NoError(t, err)

	assert.False(t, fromCache)
	assert.Equal(t, 2, calls)
}

func TestGetOrFetchWithTTL_SkipsEmptyResults(t *testing.T) {
	c, _ := setupTestCache(t)
	ctx := context.Background()
	fetch := func(context.Context) (*testPage, error) {
		return &testPage{IsLast: true}, nil
	}
	ttl := TTLUnless(time.Hour, func(p *testPage) bool { return len(p.Names) == 0 })

	_, _, err := GetOrFetchWithTTL(ctx, c, SearchTable, "empty", fetch, ttl)
	require.NoError(t, err)
	assert.False(t, c.Exists(SearchTable, "empty"))
}

func TestGetOrFetchWithTTL_FetchErrorNotCached(t *testing.T) {
	c, _ := setupTestCache(t)
	boom := errors.New("boom")

	_, _, err := GetOrFetchWithTTL(context.Background(), c, SearchTable, "k",
		func(context.Context) (*testPage, error) { return nil, boom },
		FixedTTL[*testPage](time.Hour))

	require.ErrorIs(t, err, boom)
	assert.False(t, c.Exists(SearchTable, "k"))
}

func TestGetOrFetchWithTTL_NilCacheFetchesDirectly(t *testing.T) {
	got, fromCache, err := GetOrFetchWithTTL(context.Background(), nil, SearchTable, "k",
		func(context.Context) (string, error) { return "direct", nil },
		FixedTTL[string](time.Hour))

	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, "direct", got)
}

func TestInvalidateCacheCmd(t *testing.T) {
	testutil.ResetViper(t)
	env := testutil.NewTestEnv(t)
	testutil.SetupTestCache(t, env)
	require.NoError(t, ResetGlobalCache())
	t.Cleanup(func() { _ = ResetGlobalCache() })

	c, err := GetGlobalCache()
	require.NoError(t, err)
	assert.Equal(t, viper.GetString("cache.dbfile"), c.Path())
	require.NoError(t, c.Set(SearchTable, "a", "{}", time.Hour))

	require.NoError(t, (&InvalidateCacheCmd{Table: "search"}).Run())
	assert.False(t, c.Exists(SearchTable, "a"))

	err = (&InvalidateCacheCmd{Table: "tmdb"}).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cover, detail, search")

	require.NoError(t, (&PruneCacheCmd{}).Run())
}
