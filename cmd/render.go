package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/book"
)

// Output formats.
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

const introPreview = 200

func encode(v any, format string) ([]byte, error) {
	switch format {
	case formatYAML:
		return yaml.Marshal(v)
	case formatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

func renderResult(res *aggregate.Result, format string) ([]byte, error) {
	if format == formatText || format == "" {
		return []byte(formatResultText(res)), nil
	}
	return encode(res, format)
}

type detailOutput struct {
	Item    *book.Candidate `json:"item" yaml:"item"`
	Details *book.Details   `json:"details" yaml:"details"`
}

func renderDetails(c *book.Candidate, d *book.Details, format string) ([]byte, error) {
	if format == formatText || format == "" {
		return []byte(formatDetailsText(c, d)), nil
	}
	return encode(detailOutput{Item: c, Details: d}, format)
}

func formatResultText(res *aggregate.Result) string {
	var b strings.Builder
	if res.Platform != "" {
		fmt.Fprintf(&b, "%q on %s, page %d\n", res.Keyword, res.Platform, res.Page)
	} else {
		fmt.Fprintf(&b, "%q, page %d\n", res.Keyword, res.Page)
	}
	for _, it := range res.Items {
		fmt.Fprintf(&b, "%3d. %s", it.Index, it.Name)
		if it.Author != "" {
			fmt.Fprintf(&b, " / %s", it.Author)
		}
		fmt.Fprintf(&b, " [%s]", it.Origin)
		if it.Score > 0 {
			fmt.Fprintf(&b, " %.1f", it.Score)
		}
		b.WriteByte('\n')
	}
	if res.HasMore {
		b.WriteString("More results: next\n")
	}
	return b.String()
}

func formatDetailsText(c *book.Candidate, d *book.Details) string {
	var b strings.Builder
	line := func(label string, value *string) {
		if value != nil && *value != "" {
			fmt.Fprintf(&b, "%-15s %s\n", label+":", *value)
		}
	}
	count := func(label string, n *int) {
		if n != nil {
			fmt.Fprintf(&b, "%-15s %d\n", label+":", *n)
		}
	}

	name := book.Value(d.Name, c.Name)
	author := book.Value(d.Author, c.Author)
	line("Title", &name)
	line("Author", &author)
	line("Platform", &d.Origin)
	line("Status", d.Status)
	line("Category", d.Category)
	line("Words", d.WordCount)
	count("Chapters", d.TotalChapters)
	if len(d.Tags) > 0 {
		tags := strings.Join(d.Tags, ", ")
		line("Tags", &tags)
	}
	if d.Rating != nil {
		rating := *d.Rating
		if d.RatingUsers != nil {
			rating += " (" + strconv.Itoa(*d.RatingUsers) + " ratings)"
		}
		line("Rating", &rating)
	}
	line("Rank", d.Rank)
	line("Clicks", d.TotalClicks)
	count("Collection", d.Collection)
	count("Recommends", d.Recommends)
	line("Latest chapter", d.LastChapter)
	line("Updated", d.LastUpdate)
	url := d.URL
	if url == "" {
		url = c.URL
	}
	line("URL", &url)

	if intro := book.Value(d.Intro, c.Intro); intro != "" {
		fmt.Fprintf(&b, "\n%s\n", intro)
	}
	if d.FirstChapter != nil {
		fmt.Fprintf(&b, "\nFirst chapter: %s\n", *d.FirstChapter)
		if d.FirstChapterC != nil {
			fmt.Fprintf(&b, "%s\n", preview(*d.FirstChapterC, introPreview))
		}
	}
	return b.String()
}

func preview(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

// describeError turns a service error into a message for the user.
func describeError(err error) string {
	switch {
	case aggregate.IsSessionExpired(err):
		return "No active search. Start one with: search <keyword>"
	case errors.Is(err, aggregate.ErrEmptyKeyword):
		return "Usage: search <keyword>"
	case errors.Is(err, aggregate.ErrFirstPage):
		return "Already on the first page."
	case aggregate.IsNoMorePages(err):
		return "No more results."
	case aggregate.IsSourcesUnavailable(err):
		return capitalize(err.Error()) + ". Try again in a moment."
	case aggregate.IsNoResults(err), aggregate.IsIndexOutOfRange(err), aggregate.IsUnknownPlatform(err):
		return capitalize(err.Error()) + "."
	case errors.Is(err, book.ErrBookNotFound):
		return "That book is no longer available."
	default:
		slog.Warn("Request failed", "error", err)
		return "Search failed: " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
