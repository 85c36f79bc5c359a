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
	"golang.org/x/text/encoding/simplifiedchinese"

	"github.com/lepinkainen/novelseek/internal/book"
)

const (
	falooBase     = "https://wap.faloo.com"
	falooPageSize = 30
)

var falooIDRe = regexp.MustCompile(`(\d+)\.html`)

// Faloo searches the faloo mobile site, which speaks GB18030 both in the
// query string and in its pages.
type Faloo struct {
	platform
}

// NewFaloo creates the faloo adapter.
func NewFaloo(opts Options) *Faloo {
	header := http.Header{
		"User-Agent": {desktopUserAgent},
		"Referer":    {falooBase + "/"},
	}
	return &Faloo{platform: newPlatform("faloo", "飞卢小说网", falooPageSize, falooBase, header, opts)}
}

// encodeKeyword percent-encodes keyword as GB18030.
func encodeKeyword(keyword string) (string, error) {
	raw, err := simplifiedchinese.GB18030.NewEncoder().String(keyword)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(raw), nil
}

// document decodes a GB18030 page.
func (f *Faloo) document(body []byte) (*goquery.Document, error) {
	decoded, err := simplifiedchinese.GB18030.NewDecoder().Bytes(body)
	if err != nil {
		return nil, f.parseError("decode gb18030: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, f.parseError("parse html: %w", err)
	}
	return doc, nil
}

func (f *Faloo) Ping(ctx context.Context) error {
	_, err := f.get(ctx, f.baseURL+"/")
	return err
}

func (f *Faloo) FetchPage(ctx context.Context, keyword string, page int) (*book.SearchPage, error) {
	return f.cachedSearch(ctx, keyword, page, func(ctx context.Context) (*book.SearchPage, error) {
		key, err := encodeKeyword(keyword)
		if err != nil {
			return nil, f.parseError("encode keyword %q: %w", keyword, err)
		}
		body, err := f.get(ctx, fmt.Sprintf("%s/search_1_%d.html?k=%s", f.baseURL, page, key))
		if err != nil {
			return nil, err
		}
		doc, err := f.document(body)
		if err != nil {
			return nil, err
		}

		res := &book.SearchPage{}
		doc.Find(".novelList li").Each(func(_ int, li *goquery.Selection) {
			link := li.Find(".bl_r1_tit a").First()
			href, ok := link.Attr("href")
			name := text(link)
			if !ok || name == "" {
				return
			}

			bookURL := absURL(f.baseURL+"/", href)
			cand := book.Candidate{
				Name:      name,
				Author:    text(li.Find(".nl_r1_author a")),
				URL:       bookURL,
				Intro:     text(li.Find(".bl_r1_into a")),
				WordCount: text(li.Find(".nl_r2 i")),
			}
			if m := falooIDRe.FindStringSubmatch(bookURL); m != nil {
				cand.ExternalID = m[1]
			}
			if src, ok := li.Find(".nl_r1 a img").First().Attr("src"); ok {
				cand.Cover = absURL(f.baseURL+"/", src)
			}
			res.Candidates = append(res.Candidates, cand)
		})
		res.IsLast = len(res.Candidates) < falooPageSize
		return res, nil
	})
}

func (f *Faloo) FetchDetails(ctx context.Context, bookURL string) (*book.Details, error) {
	if err := f.requireHost(bookURL, "faloo.com"); err != nil {
		return nil, err
	}

	return f.cachedDetails(ctx, bookURL, func(ctx context.Context) (*book.Details, error) {
		body, err := f.get(ctx, bookURL)
		if err != nil {
			return nil, err
		}
		doc, err := f.document(body)
		if err != nil {
			return nil, err
		}

		name := text(doc.Find(".name"))
		if name == "" {
			return nil, book.ErrBookNotFound
		}

		d := &book.Details{
			Origin:        f.name,
			URL:           bookURL,
			Name:          book.Str(name),
			Status:        book.Str(text(doc.Find(".color999 .tag.textHide"))),
			Tags:          dedupe(texts(doc.Find(".tagList a"))),
			Intro:         book.Str(strings.Join(texts(doc.Find("#novel_intro").Contents()), "\n")),
			LastChapter:   book.Str(text(doc.Find(".newNode"))),
			TotalChapters: book.Int(leadingInt(text(doc.Find(".countText")))),
		}
		if people := texts(doc.Find(".color999 a")); len(people) > 0 {
			d.Author = book.Str(people[0])
			if len(people) > 1 {
				d.Category = book.Str(people[1])
			}
		}
		if src, ok := doc.Find(".cover_box img").First().Attr("src"); ok {
			d.Cover = book.Str(absURL(bookURL, src))
		}

		for _, line := range texts(doc.Find("ul.info li")) {
			switch {
			case strings.Contains(line, "万字"):
				words, clicks, _ := strings.Cut(line, "|")
				d.WordCount = book.Str(strings.TrimSpace(words))
				d.TotalClicks = book.Str(strings.TrimSpace(clicks))
			case strings.Contains(line, "更新时间："):
				d.LastUpdate = book.Str(strings.TrimSpace(strings.ReplaceAll(line, "更新时间：", "")))
			case strings.Contains(line, "分") && strings.Contains(line, "已评"):
				score, users, _ := strings.Cut(line, "/")
				d.Rating = book.Str(strings.TrimSpace(strings.ReplaceAll(score, "分", "")))
				d.RatingUsers = book.Int(leadingInt(users))
			}
		}
		return d, nil
	})
}
