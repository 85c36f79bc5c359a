package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/novelseek/internal/book"
)

func TestTestEnv_PathStaysInSandbox(t *testing.T) {
	env := NewTestEnv(t)

	path := env.Path("subdir", "file.txt")
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, filepath.Join(env.RootDir(), "subdir", "file.txt"), path)
}

func TestTestEnv_WriteReadList(t *testing.T) {
	env := NewTestEnv(t)

	env.WriteFile("covers/a.jpg", []byte("img"))
	assert.True(t, env.FileExists("covers/a.jpg"))
	assert.False(t, env.FileExists("covers/b.jpg"))
	assert.Equal(t, []byte("img"), env.ReadFile("covers/a.jpg"))
	assert.Equal(t, []string{"a.jpg"}, env.ListFiles("covers"))
}

func TestSetupTestCache(t *testing.T) {
	ResetViper(t)
	env := NewTestEnv(t)

	path := SetupTestCache(t, env)
	assert.Equal(t, path, viper.GetString("cache.dbfile"))
}

func TestSetViperValues(t *testing.T) {
	SetViperValues(t, map[string]any{"search.page_size": 3})
	assert.Equal(t, 3, viper.GetInt("search.page_size"))
}

func TestFakeSource_Pages(t *testing.T) {
	src := NewFakeSource("qidian", 2,
		book.SearchPage{Candidates: Books("a", "b")},
		book.SearchPage{Candidates: Books("c")},
	)

	p1, err := src.FetchPage(context.Background(), "kw", 1)
	require.NoError(t, err)
	assert.Len(t, p1.Candidates, 2)
	assert.False(t, p1.IsLast)

	p2, err := src.FetchPage(context.Background(), "kw", 2)
	require.NoError(t, err)
	assert.True(t, p2.IsLast)

	p3, err := src.FetchPage(context.Background(), "kw", 3)
	require.NoError(t, err)
	assert.Empty(t, p3.Candidates)
	assert.True(t, p3.IsLast)

	assert.Equal(t, []int{1, 2, 3}, src.Calls())
}

func TestFakeSource_FailOnce(t *testing.T) {
	src := NewFakeSource("qidian", 2, book.SearchPage{Candidates: Books("a")})
	boom := errors.New("boom")
	src.FailOnce(1, boom)

	_, err := src.FetchPage(context.Background(), "kw", 1)
	require.ErrorIs(t, err, boom)

	page, err := src.FetchPage(context.Background(), "kw", 1)
	require.NoError(t, err)
	assert.Len(t, page.Candidates, 1)
}

func TestFakeSource_DelayHonoursContext(t *testing.T) {
	src := NewFakeSource("slow", 1)
	src.Delay = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := src.FetchPage(ctx, "kw", 1)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
