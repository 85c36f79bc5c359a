package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/novelseek/internal/book"
)

func TestScore_Tiers(t *testing.T) {
	tests := []struct {
		name      string
		candidate book.Candidate
		keyword   string
		weight    float64
		want      float64
	}{
		{"exact name", book.Candidate{Name: "斗破苍穹", Author: "someone"}, "斗破苍穹", 1, 100},
		{"prefix", book.Candidate{Name: "斗破苍穹前传", Author: "someone"}, "斗破苍穹", 1, 85},
		{"substring", book.Candidate{Name: "重生之斗破苍穹", Author: "someone"}, "斗破苍穹", 1, 70},
		{"fuzzy at half the runes", book.Candidate{Name: "斗罗穹顶", Author: "someone"}, "斗破苍穹", 1, 30},
		{"noise", book.Candidate{Name: "完全无关", Author: "someone"}, "斗破苍穹", 1, 0},
		{"author exact", book.Candidate{Name: "其他", Author: "天蚕土豆"}, "天蚕土豆", 1, 80},
		{"author partial", book.Candidate{Name: "其他", Author: "天蚕土豆的马甲"}, "天蚕土豆", 1, 40},
		{"double signal", book.Candidate{Name: "天蚕土豆传", Author: "天蚕土豆"}, "天蚕土豆", 1, 95},
		{"double signal partial author", book.Candidate{Name: "天蚕土豆", Author: "天蚕土豆的马甲"}, "天蚕土豆", 1, 110},
		{"fuzzy name gets no bonus", book.Candidate{Name: "土豆天", Author: "天蚕土豆"}, "天蚕土豆", 1, 80},
		{"weighted", book.Candidate{Name: "X", Author: "someone"}, "X", 1.5, 150},
		{"case and space insensitive", book.Candidate{Name: " Hello World ", Author: "someone"}, "hello world", 1, 100},
		{"empty keyword", book.Candidate{Name: "", Author: ""}, "  ", 1, 0},
		{"zero weight", book.Candidate{Name: "X"}, "X", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.candidate, tt.keyword, tt.weight), 1e-9)
		})
	}
}

func TestScore_TierOrderingHoldsForAnyWeight(t *testing.T) {
	keyword := "凡人修仙"
	names := []string{"凡人修仙", "凡人修仙传", "我的凡人修仙路", "修仙凡间"}
	authors := []string{"someone", "凡人修仙", "凡人修仙的马甲"}

	for _, author := range authors {
		for _, weight := range []float64{0.9, 1.0, 1.1, 1.5} {
			prev := -1.0
			for i, name := range names {
				s := Score(book.Candidate{Name: name, Author: author}, keyword, weight)
				require.Positive(t, s, name)
				if i > 0 {
					assert.Less(t, s, prev, "%s by %s should score below the previous tier", name, author)
				}
				prev = s
			}
		}
	}
}

func TestScore_PrefixBeatsSubstringForMatchingAuthor(t *testing.T) {
	prefix := Score(book.Candidate{Name: "金庸全集", Author: "金庸"}, "金庸", 1)
	substring := Score(book.Candidate{Name: "大侠金庸", Author: "金庸"}, "金庸", 1)

	assert.InDelta(t, 95.0, prefix, 1e-9)
	assert.InDelta(t, 90.0, substring, 1e-9)
}

func TestScorer_CustomTiers(t *testing.T) {
	tiers := DefaultTiers()
	tiers.Prefix = 90
	s := NewScorer(tiers)

	assert.InDelta(t, 90.0, s.Score(book.Candidate{Name: "abcdef"}, "abc", 1), 1e-9)
}

func TestTiers_Validate(t *testing.T) {
	require.NoError(t, DefaultTiers().Validate())

	broken := DefaultTiers()
	broken.Prefix = broken.Exact
	require.Error(t, broken.Validate())

	broken = DefaultTiers()
	broken.FuzzyRatio = 0
	require.Error(t, broken.Validate())

	broken = DefaultTiers()
	broken.DoubleSignalBonus = -1
	require.Error(t, broken.Validate())

	broken = DefaultTiers()
	broken.AuthorExact = broken.Prefix
	require.Error(t, broken.Validate())

	broken = DefaultTiers()
	broken.AuthorPartial = 90
	require.Error(t, broken.Validate())

	broken = DefaultTiers()
	broken.DoubleSignalBonus = 0
	require.Error(t, broken.Validate())

	lowAuthor := DefaultTiers()
	lowAuthor.AuthorExact = 60
	lowAuthor.DoubleSignalBonus = 0
	require.NoError(t, lowAuthor.Validate())
}

func TestWeightForPriority(t *testing.T) {
	tests := map[string]float64{
		"0":  0,
		"1":  1.1,
		"2":  1.0,
		"3":  0.9,
		" 1": 1.1,
		"7":  1.0,
		"":   1.0,
	}
	for priority, want := range tests {
		assert.InDelta(t, want, WeightForPriority(priority), 1e-9, "priority %q", priority)
	}
}
