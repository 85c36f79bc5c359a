package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/novelseek/internal/book"
	"github.com/lepinkainen/novelseek/internal/fileutil"
)

// SearchCmd runs one search and prints a result page.
type SearchCmd struct {
	Keyword   []string `arg:"" help:"Book title or author"`
	Page      int      `help:"Result page to show" default:"1"`
	Platform  string   `short:"p" help:"Search a single platform instead of all of them"`
	User      string   `help:"Session owner" default:"cli"`
	Format    string   `help:"Output format" enum:"text,yaml,json" default:"text"`
	Output    string   `short:"o" help:"Write the output to this file instead of stdout"`
	Overwrite bool     `help:"Overwrite an existing output file"`
}

func (s *SearchCmd) Run() error {
	keyword := strings.Join(s.Keyword, " ")
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		res, err := open(ctx, rt.svc, s.User, s.Platform, keyword, s.Page)
		if err != nil {
			return err
		}
		data, err := renderResult(res, s.Format)
		if err != nil {
			return err
		}
		return emit(data, s.Output, s.Overwrite)
	})
}

// DetailCmd searches and shows the details of the result at Index.
type DetailCmd struct {
	Keyword  string `arg:"" help:"Book title or author"`
	Index    int    `arg:"" help:"1-based result number"`
	Platform string `short:"p" help:"Resolve the index on a single platform"`
	User     string `help:"Session owner" default:"cli"`
	Format   string `help:"Output format" enum:"text,yaml,json" default:"text"`
	Cover    bool   `help:"Download the cover image to covers.dir"`
	Update   bool   `help:"Re-download the cover even if it already exists"`
}

func (d *DetailCmd) Run() error {
	return withRuntime(func(ctx context.Context, rt *runtime) error {
		if _, err := open(ctx, rt.svc, d.User, d.Platform, d.Keyword, 1); err != nil {
			return err
		}
		c, err := rt.svc.DetailByIndex(ctx, d.User, d.Index)
		if err != nil {
			return err
		}
		details, err := rt.svc.Details(ctx, c)
		if err != nil {
			return err
		}

		data, err := renderDetails(c, details, d.Format)
		if err != nil {
			return err
		}
		if err := emit(data, "", false); err != nil {
			return err
		}

		if d.Cover {
			return saveCover(ctx, rt, c, details, d.Update)
		}
		return nil
	})
}

func saveCover(ctx context.Context, rt *runtime, c *book.Candidate, d *book.Details, update bool) error {
	url := book.Value(d.Cover, c.Cover)
	if url == "" {
		slog.Info("No cover available", "name", c.Name, "platform", c.Origin)
		return nil
	}

	res, err := fileutil.DownloadCover(ctx, fileutil.CoverDownloadOptions{
		URL:          url,
		OutputDir:    rt.settings.Covers.Dir,
		Filename:     fileutil.BuildCoverFilename(c.Origin, book.Value(d.Name, c.Name)),
		MaxWidth:     rt.settings.Covers.MaxWidth,
		UpdateCovers: update,
		Cache:        rt.cache,
	})
	if err != nil {
		return fmt.Errorf("cover of %s: %w", c.Name, err)
	}
	if res.Downloaded {
		slog.Info("Cover downloaded", "path", res.LocalPath, "width", res.Width, "height", res.Height)
	} else {
		slog.Info("Cover already present", "path", res.LocalPath)
	}
	return nil
}

// emit writes data to path, or to stdout when path is empty.
func emit(data []byte, path string, overwrite bool) error {
	if path == "" {
		printf("%s", data)
		return nil
	}
	written, err := fileutil.WriteFileWithOverwrite(path, data, 0o644, overwrite)
	if err != nil {
		return err
	}
	if !written {
		slog.Warn("Output file exists, use --overwrite to replace it", "path", path)
		return nil
	}
	slog.Info("Results written", "path", path)
	return nil
}
