package book

// Candidate is one book record as returned by one platform's search.
type Candidate struct {
	Origin     string   `json:"origin" yaml:"origin"`
	Name       string   `json:"name" yaml:"name"`
	Author     string   `json:"author" yaml:"author"`
	URL        string   `json:"url" yaml:"url"`
	ExternalID string   `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	Cover      string   `json:"cover,omitempty" yaml:"cover,omitempty"`
	Intro      string   `json:"intro,omitempty" yaml:"intro,omitempty"`
	WordCount  string   `json:"word_count,omitempty" yaml:"word_count,omitempty"`
	Tags       []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Key identifies a candidate within one session.
type Key struct {
	Origin string
	ID     string
}

// Key returns the dedup key: the origin plus the platform id, falling back
// to the URL when the platform exposes no id.
func (c Candidate) Key() Key {
	id := c.ExternalID
	if id == "" {
		id = c.URL
	}
	return Key{Origin: c.Origin, ID: id}
}

// ScoredCandidate is a Candidate with its relevance score for one keyword.
type ScoredCandidate struct {
	Candidate `yaml:",inline"`
	Score     float64 `json:"score" yaml:"score"`
}

// Candidates strips the scores from a slice of scored candidates.
func Candidates(scored []ScoredCandidate) []Candidate {
	out := make([]Candidate, len(scored))
	for i, sc := range scored {
		out[i] = sc.Candidate
	}
	return out
}
