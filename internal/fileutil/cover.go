package fileutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lepinkainen/novelseek/internal/cache"
)

const coverCacheTTL = 30 * 24 * time.Hour

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// CoverDownloadOptions holds options for downloading cover images.
type CoverDownloadOptions struct {
	// URL is the source URL of the cover image
	URL string
	// OutputDir is the directory where the cover will be saved
	OutputDir string
	// Filename is the name of the cover file (e.g., "qidian - Title - cover.jpg")
	Filename string
	// MaxWidth downsizes wider images. 0 keeps the original size.
	MaxWidth int
	// UpdateCovers forces re-downloading even if cover exists
	UpdateCovers bool
	// Client defaults to a client with a 30 second timeout.
	Client HTTPDoer
	// Cache remembers where each cover URL was saved. Optional.
	Cache *cache.CacheDB
}

// CoverDownloadResult holds the result of a cover download operation.
type CoverDownloadResult struct {
	// Downloaded indicates if a new file was downloaded
	Downloaded bool
	// LocalPath is the full path to the saved cover
	LocalPath string
	Filename  string
	Width     int
	Height    int
}

// DownloadCover downloads a cover image, shrinks it to MaxWidth and saves it
// as JPEG. Existing covers are reused unless UpdateCovers is set. A blank
// URL returns nil, nil.
func DownloadCover(ctx context.Context, opts CoverDownloadOptions) (*CoverDownloadResult, error) {
	if opts.URL == "" {
		return nil, nil
	}

	if !opts.UpdateCovers {
		if res := reuseCover(opts); res != nil {
			return res, nil
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cover directory: %w", err)
	}
	localPath := filepath.Join(opts.OutputDir, opts.Filename)

	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build cover request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading cover from %s", resp.StatusCode, opts.URL)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}
	if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}
	if err := imaging.Save(img, localPath, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to save cover: %w", err)
	}

	if opts.Cache != nil {
		if err := opts.Cache.Set(cache.CoverTable, opts.URL, localPath, coverCacheTTL); err != nil {
			slog.Warn("Failed to remember cover location", "url", opts.URL, "error", err)
		}
	}

	slog.Info("Downloaded cover", "path", localPath)
	return &CoverDownloadResult{
		Downloaded: true,
		LocalPath:  localPath,
		Filename:   opts.Filename,
		Width:      img.Bounds().Dx(),
		Height:     img.Bounds().Dy(),
	}, nil
}

// reuseCover returns an already saved cover, looked up by target path and
// then by URL in the cover cache.
func reuseCover(opts CoverDownloadOptions) *CoverDownloadResult {
	candidates := []string{filepath.Join(opts.OutputDir, opts.Filename)}
	if opts.Cache != nil {
		if path, ok, err := opts.Cache.Get(cache.CoverTable, opts.URL); err == nil && ok {
			candidates = append(candidates, path)
		}
	}

	for _, path := range candidates {
		if !FileExists(path) {
			continue
		}
		res := &CoverDownloadResult{LocalPath: path, Filename: filepath.Base(path)}
		if cfg, err := imaging.Open(path); err == nil {
			res.Width, res.Height = cfg.Bounds().Dx(), cfg.Bounds().Dy()
		}
		slog.Debug("Cover already exists, skipping download", "path", path)
		return res
	}
	return nil
}

// BuildCoverFilename creates a standard cover filename.
// Returns: "origin - Title - cover.jpg"
func BuildCoverFilename(origin, title string) string {
	return SanitizeFilename(origin+" - "+title) + " - cover.jpg"
}
