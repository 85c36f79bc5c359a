// Package aggregate fuses search results from several book platforms into
// one ranked, stably paginated list per user session.
package aggregate

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lepinkainen/novelseek/internal/book"
)

// Tiers holds the base scores used by Scorer. Name tiers must keep the
// ordering exact > prefix > substring > fuzzy.
type Tiers struct {
	Exact     float64 `mapstructure:"exact"`
	Prefix    float64 `mapstructure:"prefix"`
	Substring float64 `mapstructure:"substring"`
	Fuzzy     float64 `mapstructure:"fuzzy"`

	// FuzzyRatio is the minimum share of keyword runes that must appear in
	// the name for the fuzzy tier.
	FuzzyRatio float64 `mapstructure:"fuzzy_ratio"`

	AuthorExact   float64 `mapstructure:"author_exact"`
	AuthorPartial float64 `mapstructure:"author_partial"`

	// DoubleSignalBonus is added when the name matches at substring tier or
	// better and the author matches too.
	DoubleSignalBonus float64 `mapstructure:"double_signal_bonus"`
}

// DefaultTiers returns the standard tier values.
func DefaultTiers() Tiers {
	return Tiers{
		Exact:             100,
		Prefix:            85,
		Substring:         70,
		Fuzzy:             30,
		FuzzyRatio:        0.5,
		AuthorExact:       80,
		AuthorPartial:     40,
		DoubleSignalBonus: 10,
	}
}

// Validate checks the tier ordering.
func (t Tiers) Validate() error {
	if !(t.Exact > t.Prefix && t.Prefix > t.Substring && t.Substring > t.Fuzzy && t.Fuzzy > 0) {
		return fmt.Errorf("score tiers must satisfy exact > prefix > substring > fuzzy > 0, got %v > %v > %v > %v",
			t.Exact, t.Prefix, t.Substring, t.Fuzzy)
	}
	if t.FuzzyRatio <= 0 || t.FuzzyRatio > 1 {
		return fmt.Errorf("fuzzy ratio must be in (0, 1], got %v", t.FuzzyRatio)
	}
	if t.AuthorExact < 0 || t.AuthorPartial < 0 || t.DoubleSignalBonus < 0 {
		return fmt.Errorf("author scores and bonus must not be negative")
	}
	// The base is max(name, author), so an author score reaching the prefix
	// tier would flatten prefix and substring matches by the same author.
	author := max(t.AuthorExact, t.AuthorPartial)
	if author >= t.Prefix {
		return fmt.Errorf("author scores must stay below the prefix tier %v, got %v", t.Prefix, author)
	}
	if author >= t.Substring && t.DoubleSignalBonus == 0 {
		return fmt.Errorf("author scores at or above the substring tier %v need a positive double signal bonus", t.Substring)
	}
	return nil
}

// Scorer computes the relevance of a candidate for a keyword. It is pure
// and safe for concurrent use.
type Scorer struct {
	tiers Tiers
}

// NewScorer creates a Scorer using the given tiers.
func NewScorer(tiers Tiers) Scorer {
	return Scorer{tiers: tiers}
}

var defaultScorer = NewScorer(DefaultTiers())

// Score scores a candidate with the default tiers.
func Score(c book.Candidate, keyword string, weight float64) float64 {
	return defaultScorer.Score(c, keyword, weight)
}

// Score returns base * weight, where base is derived from how well the
// candidate's name and author match keyword. The result is never negative.
func (s Scorer) Score(c book.Candidate, keyword string, weight float64) float64 {
	kw := normalize(keyword)
	if kw == "" || weight <= 0 {
		return 0
	}

	name := normalize(c.Name)
	author := normalize(c.Author)

	nameScore, strong := s.nameScore(name, kw)

	authorScore := 0.0
	switch {
	case author == kw:
		authorScore = s.tiers.AuthorExact
	case author != "" && strings.Contains(author, kw):
		authorScore = s.tiers.AuthorPartial
	}

	base := max(nameScore, authorScore)
	if strong && authorScore > 0 {
		base += s.tiers.DoubleSignalBonus
	}

	return base * weight
}

// nameScore returns the name tier score and whether it is substring or better.
func (s Scorer) nameScore(name, kw string) (float64, bool) {
	switch {
	case name == kw:
		return s.tiers.Exact, true
	case strings.HasPrefix(name, kw):
		return s.tiers.Prefix, true
	case strings.Contains(name, kw):
		return s.tiers.Substring, true
	}

	if fuzzyRatio(name, kw) >= s.tiers.FuzzyRatio {
		return s.tiers.Fuzzy, false
	}
	return 0, false
}

// fuzzyRatio is the share of keyword runes that occur anywhere in name.
func fuzzyRatio(name, kw string) float64 {
	total := utf8.RuneCountInString(kw)
	if total == 0 {
		return 0
	}
	hits := 0
	for _, r := range kw {
		if strings.ContainsRune(name, r) {
			hits++
		}
	}
	return float64(hits) / float64(total)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// WeightForPriority derives a platform weight from its priority string.
// "0" disables the platform. The spread is kept narrow so that platform
// preference never overturns a clearly better name match.
func WeightForPriority(priority string) float64 {
	switch strings.TrimSpace(priority) {
	case "0":
		return 0
	case "1":
		return 1.1
	case "2":
		return 1.0
	case "3":
		return 0.9
	default:
		return 1.0
	}
}
