package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lepinkainen/novelseek/internal/book"
)

func origins(items []book.ScoredCandidate) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.Origin
	}
	return out
}

func TestInterleave_PriorityFirstThenRoundRobin(t *testing.T) {
	promoted := []book.ScoredCandidate{
		scored("ciweimao", "c1", 90),
		scored("qidian", "q1", 80),
		scored("ciweimao", "c2", 95),
		scored("qidian", "q2", 100),
		scored("qidian", "q3", 70),
	}
	priorities := []PlatformPriority{
		{Platform: "ciweimao", Priority: "2"},
		{Platform: "qidian", Priority: "1"},
	}

	out := Interleave(promoted, priorities)

	assert.Equal(t, []string{"q2", "c2", "q1", "c1", "q3"}, names(out))
	assert.Equal(t, "qidian", out[0].Origin)
}

func TestInterleave_ExcludesDisabledAndUnknown(t *testing.T) {
	promoted := []book.ScoredCandidate{
		scored("a", "a1", 50),
		scored("off", "o1", 99),
		scored("stranger", "s1", 99),
		scored("bad", "b1", 99),
	}
	priorities := []PlatformPriority{
		{Platform: "a", Priority: "1"},
		{Platform: "off", Priority: "0"},
		{Platform: "bad", Priority: "high"},
	}

	out := Interleave(promoted, priorities)
	assert.Equal(t, []string{"a1"}, names(out))
}

func TestInterleave_StableWithinPlatformAndAcrossEqualPriority(t *testing.T) {
	promoted := []book.ScoredCandidate{
		scored("b", "b1", 80),
		scored("a", "a1", 80),
		scored("a", "a2", 80),
		scored("b", "b2", 80),
	}
	priorities := []PlatformPriority{
		{Platform: "a", Priority: "1"},
		{Platform: "b", Priority: "1"},
	}

	out := Interleave(promoted, priorities)
	assert.Equal(t, []string{"a1", "b1", "a2", "b2"}, names(out))
}

func TestInterleave_KeepsEveryPromotedItem(t *testing.T) {
	promoted := []book.ScoredCandidate{
		scored("a", "a1", 10), scored("a", "a2", 20), scored("a", "a3", 30),
		scored("b", "b1", 10),
		scored("c", "c1", 10), scored("c", "c2", 5),
	}
	priorities := []PlatformPriority{
		{Platform: "c", Priority: "3"},
		{Platform: "b", Priority: "2"},
		{Platform: "a", Priority: "1"},
	}

	out := Interleave(promoted, priorities)
	assert.Equal(t, []string{"a", "b", "c", "a", "c", "a"}, origins(out))
	assert.Equal(t, []string{"a3", "b1", "c1", "a2", "c2", "a1"}, names(out))
}

func TestParsePriority(t *testing.T) {
	n, ok := ParsePriority(" 2 ")
	assert.True(t, ok)
	assert.Equal(t, 2, n)

	for _, p := range []string{"0", "-1", "", "x"} {
		_, ok := ParsePriority(p)
		assert.False(t, ok, p)
	}
}
