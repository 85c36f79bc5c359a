package book

// Details contains the detail-page metadata of one book.
// Pointer fields distinguish "not provided by this platform" from "empty".
type Details struct {
	// Origin is the platform the details came from.
	Origin string `json:"origin" yaml:"origin"`

	// URL is the canonical detail URL.
	URL string `json:"url" yaml:"url"`

	Name   *string `json:"name,omitempty" yaml:"name,omitempty"`
	Author *string `json:"author,omitempty" yaml:"author,omitempty"`
	Intro  *string `json:"intro,omitempty" yaml:"intro,omitempty"`

	// Cover is the URL of the cover image.
	Cover *string `json:"cover,omitempty" yaml:"cover,omitempty"`

	// Status is the serialization status (ongoing, finished).
	Status    *string `json:"status,omitempty" yaml:"status,omitempty"`
	WordCount *string `json:"word_count,omitempty" yaml:"word_count,omitempty"`

	TotalChapters *int    `json:"total_chapters,omitempty" yaml:"total_chapters,omitempty"`
	Rank          *string `json:"rank,omitempty" yaml:"rank,omitempty"`
	Category      *string `json:"category,omitempty" yaml:"category,omitempty"`

	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	Rating        *string `json:"rating,omitempty" yaml:"rating,omitempty"`
	RatingUsers   *int    `json:"rating_users,omitempty" yaml:"rating_users,omitempty"`
	Collection    *int    `json:"collection,omitempty" yaml:"collection,omitempty"`
	Recommends    *int    `json:"recommends,omitempty" yaml:"recommends,omitempty"`
	TotalClicks   *string `json:"total_clicks,omitempty" yaml:"total_clicks,omitempty"`
	LastChapter   *string `json:"last_chapter,omitempty" yaml:"last_chapter,omitempty"`
	LastUpdate    *string `json:"last_update,omitempty" yaml:"last_update,omitempty"`
	FirstChapter  *string `json:"first_chapter,omitempty" yaml:"first_chapter,omitempty"`
	FirstChapterC *string `json:"first_chapter_content,omitempty" yaml:"first_chapter_content,omitempty"`
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Int returns a pointer to n, or nil when n is not positive.
func Int(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

// Value dereferences p, returning fallback when p is nil.
func Value(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}
