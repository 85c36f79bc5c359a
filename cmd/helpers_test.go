package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/book"
	"github.com/lepinkainen/novelseek/internal/config"
	"github.com/lepinkainen/novelseek/internal/testutil"
)

type testRuntime struct {
	*runtime
	qidian *testutil.FakeSource
	sfacg  *testutil.FakeSource
	env    *testutil.TestEnv
	out    *bytes.Buffer
}

func dragons(from, to int) []book.Candidate {
	names := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		names = append(names, fmt.Sprintf("dragon %d", i))
	}
	return testutil.Books(names...)
}

// installRuntime makes every command run against scripted sources and
// captures stdout.
func installRuntime(t *testing.T) *testRuntime {
	t.Helper()

	qidian := testutil.NewFakeSource("qidian", 10,
		book.SearchPage{Candidates: dragons(1, 10)},
		book.SearchPage{Candidates: dragons(11, 15), IsLast: true},
	)
	qidian.Details = make(map[string]*book.Details)
	for _, c := range dragons(1, 15) {
		qidian.Details[c.URL] = &book.Details{
			Origin: "qidian",
			URL:    c.URL,
			Name:   book.Str(c.Name),
			Author: book.Str(c.Author),
			Status: book.Str("连载"),
			Intro:  book.Str("A story about " + c.Name),
		}
	}
	sfacg := testutil.NewFakeSource("sfacg", 10)
	sfacg.PingErr = errors.New("connection refused")

	agg, err := aggregate.NewAggregator([]aggregate.Platform{
		{Source: qidian, Priority: "2"},
		{Source: sfacg, Priority: "2"},
	}, aggregate.DefaultOptions())
	require.NoError(t, err)

	env := testutil.NewTestEnv(t)
	table := aggregate.NewTable(time.Hour, 10)
	rt := &runtime{
		settings: &config.Settings{
			Covers: config.CoverSettings{Dir: env.Path("covers"), MaxWidth: 40},
		},
		svc:   aggregate.NewService(agg, table),
		table: table,
	}

	out := &bytes.Buffer{}
	origRuntime, origStdout := newRuntime, stdout
	newRuntime = func() (*runtime, error) { return rt, nil }
	stdout = out
	t.Cleanup(func() {
		newRuntime = origRuntime
		stdout = origStdout
	})

	return &testRuntime{runtime: rt, qidian: qidian, sfacg: sfacg, env: env, out: out}
}

func newImageServer(t *testing.T, width, height int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		img := image.NewRGBA(image.Rect(0, 0, width, height))
		for x := range width {
			for y := range height {
				img.Set(x, y, color.RGBA{R: 30, G: 90, B: 160, A: 255})
			}
		}
		w.Header().Set("Content-Type", "image/png")
		_ = png.Encode(w, img)
	}))
	t.Cleanup(srv.Close)
	return srv
}
