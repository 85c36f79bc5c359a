package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lepinkainen/novelseek/internal/aggregate"
	"github.com/lepinkainen/novelseek/internal/errors"
	"github.com/lepinkainen/novelseek/internal/tui"
)

var selectBook = tui.Select

// PickCmd shows results in the interactive picker and prints the details of
// the chosen book.
type PickCmd struct {
	Keyword  []string `arg:"" help:"Book title or author"`
	Platform string   `short:"p" help:"Search a single platform instead of all of them"`
	User     string   `help:"Session owner" default:"cli"`
	Cover    bool     `help:"Download the cover of the chosen book"`
}

func (p *PickCmd) Run() error {
	keyword := strings.Join(p.Keyword, " ")
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		res, err := open(ctx, rt.svc, p.User, p.Platform, keyword, 1)
		if err != nil {
			return err
		}
		return p.loop(ctx, rt, res)
	})
}

func (p *PickCmd) loop(ctx context.Context, rt *runtime, res *aggregate.Result) error {
	for {
		sel, err := selectBook(res)
		if errors.IsStopProcessingError(err) {
			slog.Info("Picker closed")
			return nil
		}
		if err != nil {
			return err
		}

		var next *aggregate.Result
		switch sel.Action {
		case tui.ActionSelected:
			c := sel.Selection.Candidate
			details, err := rt.svc.Details(ctx, &c)
			if err != nil {
				return err
			}
			if err := emit([]byte(formatDetailsText(&c, details)), "", false); err != nil {
				return err
			}
			if p.Cover {
				return saveCover(ctx, rt, &c, details, false)
			}
			return nil
		case tui.ActionNextPage:
			next, err = rt.svc.Next(ctx, p.User)
		case tui.ActionPrevPage:
			next, err = rt.svc.Prev(ctx, p.User)
		default:
			return nil
		}

		if err != nil {
			if aggregate.IsNoMorePages(err) {
				slog.Info("No more results")
				continue
			}
			return err
		}
		res = next
	}
}
