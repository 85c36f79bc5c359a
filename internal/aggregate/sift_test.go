package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lepinkainen/novelseek/internal/book"
)

func scored(origin, name string, score float64) book.ScoredCandidate {
	return book.ScoredCandidate{
		Candidate: book.Candidate{Origin: origin, Name: name, URL: "https://" + origin + "/" + name, ExternalID: name},
		Score:     score,
	}
}

func names(items []book.ScoredCandidate) []string {
	out := make([]string, len(items))
	for i, c := range items {
		out[i] = c.Name
	}
	return out
}

func TestSift_SplitsAtAverage(t *testing.T) {
	batch := []book.ScoredCandidate{
		scored("qidian", "X", 150),
		scored("qidian", "Xabc", 127.5),
		scored("ciweimao", "X", 100),
	}

	promoted, held, average := Sift(batch)

	assert.InDelta(t, 125.8333, average, 1e-3)
	assert.Equal(t, []string{"X", "Xabc"}, names(promoted))
	assert.Equal(t, []string{"X"}, names(held))
	assert.Equal(t, "ciweimao", held[0].Origin)
}

func TestSift_DropsZeroScores(t *testing.T) {
	batch := []book.ScoredCandidate{
		scored("a", "zero1", 0),
		scored("a", "weak", 30),
		scored("a", "zero2", 0),
		scored("a", "strong", 90),
	}

	promoted, held, average := Sift(batch)

	assert.InDelta(t, 60.0, average, 1e-9)
	assert.Equal(t, []string{"strong"}, names(promoted))
	assert.Equal(t, []string{"weak"}, names(held))
}

func TestSift_AllZero(t *testing.T) {
	promoted, held, average := Sift([]book.ScoredCandidate{scored("a", "z", 0)})
	assert.Empty(t, promoted)
	assert.Empty(t, held)
	assert.Zero(t, average)

	promoted, held, average = Sift(nil)
	assert.Empty(t, promoted)
	assert.Empty(t, held)
	assert.Zero(t, average)
}

func TestSift_EqualScoresAllPromoted(t *testing.T) {
	batch := []book.ScoredCandidate{scored("a", "1", 85), scored("a", "2", 85), scored("b", "3", 85)}
	promoted, held, _ := Sift(batch)
	assert.Len(t, promoted, 3)
	assert.Empty(t, held)
}

func TestSift_Totality(t *testing.T) {
	batches := [][]float64{
		{100, 0, 30, 30, 85, 0},
		{1, 2, 3, 4, 5, 6, 7},
		{0, 0, 0, 40},
		{70, 70.5, 69.5},
	}

	for _, scores := range batches {
		batch := make([]book.ScoredCandidate, len(scores))
		zeros := 0
		for i, s := range scores {
			batch[i] = scored("a", string(rune('a'+i)), s)
			if s == 0 {
				zeros++
			}
		}

		promoted, held, average := Sift(batch)

		assert.Equal(t, len(batch), len(promoted)+len(held)+zeros, "scores %v", scores)
		for _, c := range promoted {
			assert.GreaterOrEqual(t, c.Score, average)
		}
		for _, c := range held {
			assert.Less(t, c.Score, average)
		}
	}
}
