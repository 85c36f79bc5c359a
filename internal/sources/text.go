package sources

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// flexString decodes a JSON string or number into its text form. The
// platform APIs are inconsistent about quoting numeric fields.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*f = flexString(strconv.FormatBool(b))
	return nil
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

// Int returns the leading integer of the value, or 0.
func (f flexString) Int() int {
	return leadingInt(string(f))
}

// Bool treats "true" and non-zero numbers as true.
func (f flexString) Bool() bool {
	s := f.String()
	if s == "true" {
		return true
	}
	n, err := strconv.Atoi(s)
	return err == nil && n != 0
}

var digitsRe = regexp.MustCompile(`\d+`)

func leadingInt(s string) int {
	m := digitsRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// clean collapses runs of whitespace to single spaces.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// absURL resolves ref against base, handling protocol-relative links.
func absURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// nonEmpty drops blank entries and trims the rest.
func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// ownText returns the text directly inside the first selected element,
// ignoring nested tags.
func ownText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.First().Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return clean(b.String())
}

// text returns the whitespace-collapsed text of the first selected element.
func text(sel *goquery.Selection) string {
	return clean(sel.First().Text())
}

// texts returns the text of every selected element, blanks dropped.
func texts(sel *goquery.Selection) []string {
	return nonEmpty(sel.Map(func(_ int, s *goquery.Selection) string {
		return clean(s.Text())
	}))
}

// dedupe keeps the first occurrence of each value.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
