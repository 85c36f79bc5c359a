package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/novelseek/internal/aggregate"
)

func TestChat_Conversation(t *testing.T) {
	rt := installRuntime(t)
	c := newChat(rt.svc, "alice")
	ctx := context.Background()

	steps := []struct {
		line string
		want string
		quit bool
	}{
		{line: "help", want: "detail <n>"},
		{line: "search dragon", want: `"dragon", page 1`},
		{line: "next", want: `"dragon", page 2`},
		{line: "next", want: "No more results."},
		{line: "prev", want: `"dragon", page 1`},
		{line: "prev", want: "Already on the first page."},
		{line: "page 2", want: " 11. dragon"},
		{line: "page two", want: "Usage: page <n>"},
		{line: "detail 3", want: "Title:"},
		{line: "detail 99", want: "Index 99 is out of range (15 results)."},
		{line: "/qidian dragon", want: `"dragon" on qidian, page 1`},
		{line: "bogus", want: `Unknown command "bogus"`},
		{line: "reset", want: "Search cleared."},
		{line: "next", want: "No active search."},
		{line: "browse faloo dragon", want: `Platform "faloo" is unknown or disabled.`},
		{line: "search   ", want: "Usage: search <keyword>"},
		{line: "QUIT", want: "Bye.", quit: true},
	}

	for _, step := range steps {
		reply, quit := c.handle(ctx, step.line)
		assert.Contains(t, reply, step.want, "line %q", step.line)
		assert.Equal(t, step.quit, quit, "line %q", step.line)
	}
}

func TestChat_BlankLineIsIgnored(t *testing.T) {
	rt := installRuntime(t)

	reply, quit := newChat(rt.svc, "bob").handle(context.Background(), "   ")
	assert.Empty(t, reply)
	assert.False(t, quit)
}

func TestChat_ServeStopsAtQuit(t *testing.T) {
	rt := installRuntime(t)
	in := strings.NewReader("search dragon\nquit\nsearch dragon\n")
	var out bytes.Buffer

	require.NoError(t, newChat(rt.svc, "carol").serve(context.Background(), in, &out))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, chatPrompt))
	assert.Equal(t, 1, strings.Count(text, `"dragon", page 1`))
	assert.True(t, strings.HasSuffix(text, "Bye.\n"))
	assert.Equal(t, []int{1}, rt.qidian.Calls())
}

func TestChat_ServeEndsAtEOF(t *testing.T) {
	rt := installRuntime(t)
	var out bytes.Buffer

	require.NoError(t, newChat(rt.svc, "dave").serve(context.Background(), strings.NewReader("next\n"), &out))
	assert.Equal(t, chatPrompt+"No active search. Start one with: search <keyword>\n"+chatPrompt, out.String())
}

func TestChatCmd_UsesStdin(t *testing.T) {
	rt := installRuntime(t)
	orig := stdin
	stdin = strings.NewReader("search dragon\n")
	t.Cleanup(func() { stdin = orig })

	require.NoError(t, (&ChatCmd{User: "erin"}).Run())
	assert.Contains(t, rt.out.String(), "  1. dragon")
}

func TestDescribeError_SourcesUnavailable(t *testing.T) {
	err := &aggregate.SourcesUnavailableError{Keyword: "dragon", Platforms: []string{"qidian", "sfacg"}}

	assert.Equal(t,
		`No results for "dragon" yet, unreachable platforms: qidian, sfacg. Try again in a moment.`,
		describeError(err))
}
