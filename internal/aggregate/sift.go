package aggregate

import (
	"log/slog"

	"github.com/lepinkainen/novelseek/internal/book"
)

// Sift partitions a batch by its own average score. Candidates scoring 0
// are dropped. Promoted holds everything at or above the average of the
// remaining candidates, held everything below it. Both keep input order.
func Sift(batch []book.ScoredCandidate) (promoted, held []book.ScoredCandidate, average float64) {
	total := 0.0
	valid := 0
	for _, c := range batch {
		if c.Score > 0 {
			total += c.Score
			valid++
		}
	}
	if valid == 0 {
		return nil, nil, 0
	}

	average = total / float64(valid)
	for _, c := range batch {
		switch {
		case c.Score <= 0:
		case c.Score >= average:
			promoted = append(promoted, c)
		default:
			held = append(held, c)
		}
	}

	slog.Debug("Sifted batch", "valid", valid, "average", average, "promoted", len(promoted), "held", len(held))
	return promoted, held, average
}
