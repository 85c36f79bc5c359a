package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lepinkainen/novelseek/internal/book"
)

const (
	tomatoBookBase = "https://fanqienovel.com"
	tomatoPageSize = 10
	tomatoNovelTab = "3"
)

var tomatoIDRe = regexp.MustCompile(`page/(\d+)`)

// Tomato searches fanqie novels through a relay API. Without an API base
// the platform is unavailable.
type Tomato struct {
	platform
}

// NewTomato creates the tomato adapter. apiBase is the relay's root URL.
func NewTomato(apiBase string, opts Options) *Tomato {
	if opts.BaseURL == "" {
		opts.BaseURL = apiBase
	}
	header := http.Header{"User-Agent": {desktopUserAgent}}
	return &Tomato{platform: newPlatform("tomato", "番茄小说", tomatoPageSize, "", header, opts)}
}

type tomatoSearchResponse struct {
	Data struct {
		Tabs []struct {
			TabType flexString `json:"tab_type"`
			HasMore flexString `json:"has_more"`
			Data    []struct {
				Books []struct {
					Name     string     `json:"book_name"`
					Author   string     `json:"author"`
					ID       flexString `json:"book_id"`
					Abstract string     `json:"abstract"`
					Thumb    string     `json:"thumb_url"`
					Category string     `json:"category"`
				} `json:"book_data"`
			} `json:"data"`
		} `json:"search_tabs"`
	} `json:"data"`
}

type tomatoDetailResponse struct {
	Data struct {
		Data *struct {
			Name          string     `json:"book_name"`
			Author        string     `json:"author"`
			Abstract      string     `json:"abstract"`
			Thumb         string     `json:"thumb_url"`
			Status        flexString `json:"tomato_book_status"`
			WordNumber    flexString `json:"word_number"`
			SerialCount   flexString `json:"serial_count"`
			Category      string     `json:"category"`
			Tags          string     `json:"tags"`
			Score         flexString `json:"score"`
			Bookshelf     flexString `json:"all_bookshelf_count"`
			ReadCount     flexString `json:"read_count"`
			LastChapter   string     `json:"last_chapter_title"`
			LastPublished flexString `json:"last_publish_time"`
			FirstChapter  string     `json:"first_chapter_title"`
			Content       string     `json:"content"`
		} `json:"data"`
	} `json:"data"`
}

func (t *Tomato) available() error {
	if t.baseURL == "" {
		return fmt.Errorf("%s: %w: tomato.api_base is not set", t.name, book.ErrAPIUnavailable)
	}
	return nil
}

func (t *Tomato) Ping(ctx context.Context) error {
	if err := t.available(); err != nil {
		return err
	}
	_, err := t.get(ctx, t.baseURL+"/")
	return err
}

func (t *Tomato) FetchPage(ctx context.Context, keyword string, page int) (*book.SearchPage, error) {
	if err := t.available(); err != nil {
		return nil, err
	}

	return t.cachedSearch(ctx, keyword, page, func(ctx context.Context) (*book.SearchPage, error) {
		u := fmt.Sprintf("%s/api/search?key=%s&offset=%d&tab_type=%s",
			t.baseURL, url.QueryEscape(keyword), (page-1)*tomatoPageSize, tomatoNovelTab)
		body, err := t.get(ctx, u)
		if err != nil {
			return nil, err
		}

		var resp tomatoSearchResponse
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&resp); err != nil {
			return nil, t.parseError("decode search response: %w", err)
		}

		tabs := resp.Data.Tabs
		idx := -1
		for i, tab := range tabs {
			if tab.TabType.String() == tomatoNovelTab {
				idx = i
				break
			}
		}
		if idx < 0 {
			for i, tab := range tabs {
				if len(tab.Data) > 0 {
					idx = i
					break
				}
			}
		}
		if idx < 0 {
			return &book.SearchPage{IsLast: true}, nil
		}

		tab := tabs[idx]
		res := &book.SearchPage{IsLast: !tab.HasMore.Bool()}
		for _, item := range tab.Data {
			for _, b := range item.Books {
				id := b.ID.String()
				if b.Name == "" || id == "" {
					continue
				}
				res.Candidates = append(res.Candidates, book.Candidate{
					Name:       clean(b.Name),
					Author:     clean(b.Author),
					URL:        fmt.Sprintf("%s/page/%s", tomatoBookBase, id),
					ExternalID: id,
					Cover:      b.Thumb,
					Intro:      strings.TrimSpace(b.Abstract),
					Tags:       nonEmpty([]string{b.Category}),
				})
			}
		}
		return res, nil
	})
}

func (t *Tomato) FetchDetails(ctx context.Context, bookURL string) (*book.Details, error) {
	if err := t.available(); err != nil {
		return nil, err
	}
	m := tomatoIDRe.FindStringSubmatch(bookURL)
	if m == nil {
		return nil, fmt.Errorf("%s: %w: %s", t.name, book.ErrInvalidURL, bookURL)
	}
	id := m[1]

	return t.cachedDetails(ctx, bookURL, func(ctx context.Context) (*book.Details, error) {
		body, err := t.get(ctx, fmt.Sprintf("%s/api/detail?book_id=%s", t.baseURL, url.QueryEscape(id)))
		if err != nil {
			return nil, err
		}

		var resp tomatoDetailResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, t.parseError("decode detail response: %w", err)
		}
		data := resp.Data.Data
		if data == nil || data.Name == "" {
			return nil, book.ErrBookNotFound
		}

		status := "已完结"
		if data.Status.String() == "1" {
			status = "连载中"
		}
		d := &book.Details{
			Origin:        t.name,
			URL:           bookURL,
			Name:          book.Str(data.Name),
			Author:        book.Str(data.Author),
			Intro:         book.Str(strings.TrimSpace(data.Abstract)),
			Cover:         book.Str(data.Thumb),
			Status:        book.Str(status),
			WordCount:     book.Str(wanWords(data.WordNumber.Int())),
			TotalChapters: book.Int(data.SerialCount.Int()),
			Category:      book.Str(data.Category),
			Tags:          nonEmpty(strings.Split(data.Tags, ",")),
			Rating:        book.Str(data.Score.String()),
			Collection:    book.Int(data.Bookshelf.Int()),
			Recommends:    book.Int(data.ReadCount.Int()),
			LastChapter:   book.Str(data.LastChapter),
			LastUpdate:    book.Str(unixTime(data.LastPublished.Int())),
			FirstChapter:  book.Str(data.FirstChapter),
			FirstChapterC: book.Str(strings.TrimSpace(data.Content)),
		}
		return d, nil
	})
}

// wanWords renders a word count in units of ten thousand.
func wanWords(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f万字", float64(n)/10000)
}

func unixTime(ts int) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(int64(ts), 0).Format("2006-01-02 15:04")
}
