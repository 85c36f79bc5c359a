package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/lepinkainen/novelseek/internal/book"
)

// PlatformPriority pairs a platform with its configured priority string.
// Lower numbers are served first; "0" disables the platform.
type PlatformPriority struct {
	Platform string
	Priority string
}

// ParsePriority returns the numeric priority and whether the platform is enabled.
func ParsePriority(priority string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(priority))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// Interleave merges promoted candidates into one sequence. Each platform's
// candidates are ordered by score (stable), platforms are visited in
// priority order, and one candidate per platform is taken on every pass.
// Candidates from disabled or unlisted platforms are left out.
func Interleave(promoted []book.ScoredCandidate, priorities []PlatformPriority) []book.ScoredCandidate {
	type group struct {
		platform string
		priority int
		order    int
		items    []book.ScoredCandidate
	}

	groups := make(map[string]*group, len(priorities))
	ordered := make([]*group, 0, len(priorities))
	for i, p := range priorities {
		n, ok := ParsePriority(p.Priority)
		if !ok {
			continue
		}
		if _, dup := groups[p.Platform]; dup {
			continue
		}
		g := &group{platform: p.Platform, priority: n, order: i}
		groups[p.Platform] = g
		ordered = append(ordered, g)
	}

	for _, c := range promoted {
		if g, ok := groups[c.Origin]; ok {
			g.items = append(g.items, c)
		}
	}

	for _, g := range ordered {
		sort.SliceStable(g.items, func(i, j int) bool {
			return g.items[i].Score > g.items[j].Score
		})
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].priority < ordered[j].priority
	})

	out := make([]book.ScoredCandidate, 0, len(promoted))
	for pass := 0; ; pass++ {
		took := false
		for _, g := range ordered {
			if pass < len(g.items) {
				out = append(out, g.items[pass])
				took = true
			}
		}
		if !took {
			break
		}
	}

	if len(out) > 0 && slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("Interleaved results", "count", len(out), "order", summarize(out, 10))
	}
	return out
}

func summarize(items []book.ScoredCandidate, limit int) string {
	var sb strings.Builder
	for i, c := range items {
		if i == limit {
			fmt.Fprintf(&sb, " ... %d total", len(items))
			break
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s(%s)=%.1f", c.Name, c.Origin, c.Score)
	}
	return sb.String()
}
