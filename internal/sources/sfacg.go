package sources

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lepinkainen/novelseek/internal/book"
)

const (
	sfacgBookBase   = "https://book.sfacg.com"
	sfacgSearchBase = "http://s.sfacg.com"
	sfacgPageSize   = 10
)

var (
	sfacgIDRe        = regexp.MustCompile(`/Novel/(\d+)`)
	sfacgAuthorRe    = regexp.MustCompile(`综合信息：\s*(.*?)/`)
	sfacgWordCountRe = regexp.MustCompile(`^(.*?)\[(.*?)\]`)
)

// Sfacg searches sfacg. The search page returns every match at once, so
// pages are cut locally.
type Sfacg struct {
	platform
	searchBase string
}

// NewSfacg creates the sfacg adapter.
func NewSfacg(opts Options) *Sfacg {
	header := http.Header{
		"User-Agent": {desktopUserAgent},
		"Referer":    {sfacgBookBase + "/"},
	}
	s := &Sfacg{
		platform:   newPlatform("sfacg", "SF轻小说", sfacgPageSize, sfacgBookBase, header, opts),
		searchBase: sfacgSearchBase,
	}
	if opts.BaseURL != "" {
		s.searchBase = s.baseURL
	}
	return s
}

func (s *Sfacg) Ping(ctx context.Context) error {
	_, err := s.get(ctx, s.baseURL+"/")
	return err
}

func (s *Sfacg) FetchPage(ctx context.Context, keyword string, page int) (*book.SearchPage, error) {
	// Page 0 caches the complete listing.
	all, err := s.cachedSearch(ctx, keyword, 0, func(ctx context.Context) (*book.SearchPage, error) {
		return s.fetchAll(ctx, keyword)
	})
	if err != nil {
		return nil, err
	}

	start := (page - 1) * sfacgPageSize
	if page < 1 || start >= len(all.Candidates) {
		return &book.SearchPage{IsLast: true}, nil
	}
	end := min(start+sfacgPageSize, len(all.Candidates))
	return &book.SearchPage{
		Candidates: append([]book.Candidate(nil), all.Candidates[start:end]...),
		IsLast:     end >= len(all.Candidates),
	}, nil
}

func (s *Sfacg) fetchAll(ctx context.Context, keyword string) (*book.SearchPage, error) {
	u := fmt.Sprintf("%s/?Key=%s&S=1&SS=0", s.searchBase, url.QueryEscape(keyword))
	body, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, s.parseError("parse search page: %w", err)
	}

	res := &book.SearchPage{IsLast: true}
	doc.Find("table.comic_cover ul").Each(func(_ int, ul *goquery.Selection) {
		link := ul.Find("strong a").First()
		href, ok := link.Attr("href")
		name := text(link)
		if !ok || name == "" {
			return
		}

		bookURL := absURL(s.baseURL+"/", href)
		cand := book.Candidate{Name: name, URL: bookURL}
		if m := sfacgIDRe.FindStringSubmatch(bookURL); m != nil {
			cand.ExternalID = m[1]
		}
		if m := sfacgAuthorRe.FindStringSubmatch(ul.Text()); m != nil {
			cand.Author = strings.TrimSpace(m[1])
		}
		if src, ok := ul.Find("img").First().Attr("src"); ok {
			cand.Cover = absURL(s.baseURL+"/", src)
		}
		res.Candidates = append(res.Candidates, cand)
	})
	return res, nil
}

func (s *Sfacg) FetchDetails(ctx context.Context, bookURL string) (*book.Details, error) {
	if err := s.requireHost(bookURL, "sfacg.com"); err != nil {
		return nil, err
	}

	return s.cachedDetails(ctx, bookURL, func(ctx context.Context) (*book.Details, error) {
		body, err := s.get(ctx, bookURL)
		if err != nil {
			return nil, err
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, s.parseError("parse detail page: %w", err)
		}

		name := ownText(doc.Find(".d-summary .title .text"))
		if name == "" {
			return nil, book.ErrBookNotFound
		}

		d := &book.Details{
			Origin:      s.name,
			URL:         bookURL,
			Name:        book.Str(name),
			Author:      book.Str(text(doc.Find(".author-name span"))),
			Intro:       book.Str(text(doc.Find(".introduce"))),
			Tags:        texts(doc.Find(".tag-list .tag .text")),
			LastChapter: book.Str(text(doc.Find(".chapter-title .link"))),
		}
		if src, ok := doc.Find(".books-box .pic img").First().Attr("src"); ok {
			d.Cover = book.Str(absURL(bookURL, src))
		}

		for _, field := range texts(doc.Find(".count-detail .text")) {
			key, value, found := strings.Cut(field, "：")
			if !found {
				continue
			}
			value = strings.TrimSpace(value)
			switch {
			case strings.Contains(key, "字数"):
				if m := sfacgWordCountRe.FindStringSubmatch(value); m != nil {
					d.WordCount = book.Str(m[1])
					d.Status = book.Str(m[2])
				} else {
					d.WordCount = book.Str(value)
				}
			case strings.Contains(key, "类型"):
				d.Category = book.Str(value)
			case strings.Contains(key, "点击"):
				d.TotalClicks = book.Str(value)
			case strings.Contains(key, "更新"):
				d.LastUpdate = book.Str(value)
			}
		}
		return d, nil
	})
}
