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
	ciweimaoBase     = "https://www.ciweimao.com"
	ciweimaoPageSize = 10
)

var ciweimaoIDRe = regexp.MustCompile(`book/(\d+)`)

// Ciweimao searches the ciweimao HTML search listing.
type Ciweimao struct {
	platform
}

// NewCiweimao creates the ciweimao adapter.
func NewCiweimao(opts Options) *Ciweimao {
	header := http.Header{
		"User-Agent": {desktopUserAgent},
		"Referer":    {ciweimaoBase + "/"},
	}
	return &Ciweimao{platform: newPlatform("ciweimao", "刺猬猫", ciweimaoPageSize, ciweimaoBase, header, opts)}
}

func (c *Ciweimao) Ping(ctx context.Context) error {
	_, err := c.get(ctx, c.baseURL+"/")
	return err
}

func (c *Ciweimao) FetchPage(ctx context.Context, keyword string, page int) (*book.SearchPage, error) {
	return c.cachedSearch(ctx, keyword, page, func(ctx context.Context) (*book.SearchPage, error) {
		u := fmt.Sprintf("%s/get-search-book-list/0-0-0-0-0-0/%s/%s/%d",
			c.baseURL, url.PathEscape("全部"), url.PathEscape(keyword), page)
		body, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, c.parseError("parse search page: %w", err)
		}

		res := &book.SearchPage{}
		doc.Find("div.rank-book-list ul li").Each(func(_ int, li *goquery.Selection) {
			link := li.Find("p.tit a").First()
			name := text(link)
			href, ok := link.Attr("href")
			if name == "" || !ok {
				return
			}

			author := text(li.Find("div.cnt p.author a"))
			if author == "" {
				author = text(li.Find("div.cnt p").Eq(1).Find("a"))
			}

			bookURL := absURL(c.baseURL+"/", href)
			cand := book.Candidate{
				Name:   name,
				Author: author,
				URL:    bookURL,
				Intro:  text(li.Find("div.desc")),
			}
			if m := ciweimaoIDRe.FindStringSubmatch(bookURL); m != nil {
				cand.ExternalID = m[1]
			}
			if src, ok := li.Find("img").First().Attr("data-original"); ok {
				cand.Cover = absURL(c.baseURL+"/", src)
			} else if src, ok := li.Find("img").First().Attr("src"); ok {
				cand.Cover = absURL(c.baseURL+"/", src)
			}
			res.Candidates = append(res.Candidates, cand)
		})
		res.IsLast = len(res.Candidates) < ciweimaoPageSize
		return res, nil
	})
}

func (c *Ciweimao) FetchDetails(ctx context.Context, bookURL string) (*book.Details, error) {
	if err := c.requireHost(bookURL, "ciweimao.com"); err != nil {
		return nil, err
	}

	return c.cachedDetails(ctx, bookURL, func(ctx context.Context) (*book.Details, error) {
		body, err := c.get(ctx, bookURL)
		if err != nil {
			return nil, err
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, c.parseError("parse detail page: %w", err)
		}

		name := ownText(doc.Find(".book-info p.tit"))
		if name == "" {
			return nil, book.ErrBookNotFound
		}

		intro := doc.Find(".book-intro-cnt")
		spans := texts(intro.Find("span"))
		author := text(intro.Find(`span:contains("作者")`).NextAllFiltered("a"))

		d := &book.Details{
			Origin: c.name,
			URL:    bookURL,
			Name:   book.Str(name),
			Author: book.Str(author),
			Intro:  book.Str(strings.Join(texts(doc.Find("p.book-desc")), "\n")),
		}
		if src, ok := doc.Find(".cover img").First().Attr("src"); ok {
			d.Cover = book.Str(absURL(bookURL, src))
		}
		if len(spans) > 0 {
			d.Category = book.Str(spans[0])
			for _, sp := range spans[1:] {
				if len(d.Tags) == 3 {
					break
				}
				if !strings.Contains(sp, "作者") {
					d.Tags = append(d.Tags, sp)
				}
			}
			status := "完结"
			if strings.Contains(strings.Join(spans, " "), "连载") {
				status = "连载"
			}
			d.Status = book.Str(status)
		}
		updated := strings.TrimPrefix(text(doc.Find("span.update-time")), "最近更新：")
		d.LastUpdate = book.Str(strings.TrimSpace(updated))
		return d, nil
	})
}
