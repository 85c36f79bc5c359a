package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lepinkainen/novelseek/internal/book"
)

const (
	qidianBase     = "https://m.qidian.com"
	qidianPageSize = 20
	qidianCover    = "https://bookcover.yuewen.com/qdbimg/349573/%s/%d"
)

// Qidian searches the qidian mobile site. Pages embed their data as JSON in
// the server-side render script.
type Qidian struct {
	platform
}

// NewQidian creates the qidian adapter.
func NewQidian(opts Options) *Qidian {
	header := http.Header{
		"User-Agent": {mobileUserAgent},
		"Referer":    {qidianBase + "/"},
		"Accept":     {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
	}
	return &Qidian{platform: newPlatform("qidian", "起点中文网", qidianPageSize, qidianBase, header, opts)}
}

type qidianPageContext struct {
	PageContext struct {
		PageProps struct {
			PageData json.RawMessage `json:"pageData"`
		} `json:"pageProps"`
	} `json:"pageContext"`
}

type qidianSearchData struct {
	BookInfo struct {
		Records []struct {
			Name   string     `json:"bName"`
			Author string     `json:"bAuth"`
			ID     flexString `json:"bid"`
			Desc   string     `json:"desc"`
			Cat    string     `json:"cat"`
			Words  flexString `json:"cnt"`
		} `json:"records"`
		IsLast flexString `json:"isLast"`
	} `json:"bookInfo"`
}

type qidianDetailData struct {
	BookInfo struct {
		BookID      flexString `json:"bookId"`
		BookName    string     `json:"bookName"`
		AuthorName  string     `json:"authorName"`
		Desc        string     `json:"desc"`
		BookStatus  string     `json:"bookStatus"`
		WordsCnt    string     `json:"showWordsCnt"`
		ChanName    string     `json:"chanName"`
		SubCateName string     `json:"subCateName"`
		Collect     flexString `json:"collect"`
		RecomAll    flexString `json:"recomAll"`
		UpdChapter  string     `json:"updChapterName"`
		UpdTime     string     `json:"updTime"`
		RateInfo    struct {
			Rate      flexString `json:"rate"`
			UserCount flexString `json:"userCount"`
		} `json:"rateInfo"`
	} `json:"bookInfo"`
	BookExtra struct {
		Tags []struct {
			Name string `json:"TagName"`
		} `json:"ugcTagInfos"`
	} `json:"bookExtra"`
	Chapter struct {
		Title   string `json:"firstChapterT"`
		Content string `json:"firstChapterC"`
	} `json:"chapterContentInfo"`
	ChapterCount    flexString `json:"cTCnt"`
	MonthTicketInfo struct {
		Rank flexString `json:"rank"`
	} `json:"monthTicketInfo"`
}

// pageData extracts pageContext.pageProps.pageData from a rendered page.
func (q *Qidian) pageData(body []byte, target any) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return q.parseError("parse html: %w", err)
	}
	script := doc.Find("script#vite-plugin-ssr_pageContext").First()
	if script.Length() == 0 {
		return q.parseError("page context script not found")
	}

	var pc qidianPageContext
	if err := json.Unmarshal([]byte(script.Text()), &pc); err != nil {
		return q.parseError("decode page context: %w", err)
	}
	if len(pc.PageContext.PageProps.PageData) == 0 {
		return q.parseError("page data missing")
	}
	if err := json.Unmarshal(pc.PageContext.PageProps.PageData, target); err != nil {
		return q.parseError("decode page data: %w", err)
	}
	return nil
}

func (q *Qidian) Ping(ctx context.Context) error {
	_, err := q.get(ctx, q.baseURL+"/")
	return err
}

func (q *Qidian) FetchPage(ctx context.Context, keyword string, page int) (*book.SearchPage, error) {
	return q.cachedSearch(ctx, keyword, page, func(ctx context.Context) (*book.SearchPage, error) {
		u := fmt.Sprintf("%s/so/%s.html?pageNum=%d", q.baseURL, url.PathEscape(keyword), page)
		body, err := q.get(ctx, u)
		if err != nil {
			return nil, err
		}

		var data qidianSearchData
		if err := q.pageData(body, &data); err != nil {
			return nil, err
		}

		records := data.BookInfo.Records
		res := &book.SearchPage{
			IsLast: data.BookInfo.IsLast.Bool() || len(records) < qidianPageSize,
		}
		for _, r := range records {
			id := r.ID.String()
			if r.Name == "" || id == "" {
				continue
			}
			res.Candidates = append(res.Candidates, book.Candidate{
				Name:       clean(r.Name),
				Author:     clean(r.Author),
				URL:        fmt.Sprintf("%s/book/%s/", q.baseURL, id),
				ExternalID: id,
				Cover:      fmt.Sprintf(qidianCover, id, 150),
				Intro:      strings.TrimSpace(r.Desc),
				WordCount:  r.Words.String(),
				Tags:       nonEmpty([]string{r.Cat}),
			})
		}
		return res, nil
	})
}

func (q *Qidian) FetchDetails(ctx context.Context, bookURL string) (*book.Details, error) {
	bookURL = strings.Replace(bookURL, "www.qidian.com", "m.qidian.com", 1)
	if err := q.requireHost(bookURL, "m.qidian.com"); err != nil {
		return nil, err
	}

	return q.cachedDetails(ctx, bookURL, func(ctx context.Context) (*book.Details, error) {
		body, err := q.get(ctx, bookURL)
		if err != nil {
			return nil, err
		}

		var data qidianDetailData
		if err := q.pageData(body, &data); err != nil {
			return nil, err
		}
		info := data.BookInfo
		if info.BookName == "" {
			return nil, book.ErrBookNotFound
		}

		var tags []string
		for _, t := range data.BookExtra.Tags {
			tags = append(tags, t.Name)
		}
		category := strings.Trim(info.ChanName+"·"+info.SubCateName, "·")

		return &book.Details{
			Origin:        q.name,
			URL:           bookURL,
			Name:          book.Str(info.BookName),
			Author:        book.Str(info.AuthorName),
			Intro:         book.Str(strings.TrimSpace(info.Desc)),
			Cover:         book.Str(fmt.Sprintf(qidianCover, info.BookID.String(), 600)),
			Status:        book.Str(info.BookStatus),
			WordCount:     book.Str(info.WordsCnt),
			TotalChapters: book.Int(data.ChapterCount.Int()),
			Rank:          book.Str(data.MonthTicketInfo.Rank.String()),
			Category:      book.Str(category),
			Tags:          nonEmpty(tags),
			Rating:        book.Str(info.RateInfo.Rate.String()),
			RatingUsers:   book.Int(info.RateInfo.UserCount.Int()),
			Collection:    book.Int(info.Collect.Int()),
			Recommends:    book.Int(info.RecomAll.Int()),
			LastChapter:   book.Str(info.UpdChapter),
			LastUpdate:    book.Str(info.UpdTime),
			FirstChapter:  book.Str(data.Chapter.Title),
			FirstChapterC: book.Str(strings.TrimSpace(data.Chapter.Content)),
		}, nil
	})
}
