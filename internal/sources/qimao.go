package sources

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lepinkainen/novelseek/internal/book"
)

const (
	qimaoAPIBase  = "https://api-bc.wtzw.com"
	qimaoBookBase = "https://www.qimao.com"
	qimaoPageSize = 20
	qimaoSignKey  = "d3dGiJc651gSQ8w1"
	qimaoDevice   = "2937357107"
)

var qimaoIDRe = regexp.MustCompile(`shuku/(\d+)`)

// qimaoHeaders are the app headers the API expects. Names are sent verbatim.
var qimaoHeaders = map[string]string{
	"User-Agent":     "okhttp/3.12.12",
	"app-version":    "51110",
	"platform":       "android",
	"reg":            "0",
	"AUTHORIZATION":  "",
	"application-id": "com.kmxs.reader",
	"net-env":        "1",
	"channel":        "unknown",
	"qm-params":      "",
}

// Qimao searches the qimao app API. Requests carry an md5 signature over
// both the headers and the query parameters.
type Qimao struct {
	platform
}

// NewQimao creates the qimao adapter.
func NewQimao(opts Options) *Qimao {
	return &Qimao{platform: newPlatform("qimao", "七猫小说", qimaoPageSize, qimaoAPIBase, signedHeader(), opts)}
}

// sign is md5 over the sorted key=value pairs, User-Agent excluded, followed
// by the signing key.
func sign(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "User-Agent" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(values[k])
	}
	b.WriteString(qimaoSignKey)

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func signedHeader() http.Header {
	h := make(http.Header, len(qimaoHeaders)+1)
	for k, v := range qimaoHeaders {
		h[k] = []string{v}
	}
	h["sign"] = []string{sign(qimaoHeaders)}
	return h
}

func signedQuery(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("sign", sign(params))
	return q.Encode()
}

// qimaoTags accepts ptags as a string, a list of strings or a list of
// objects with a title.
type qimaoTags []string

func (t *qimaoTags) UnmarshalJSON(data []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		var single flexString
		if err := json.Unmarshal(data, &single); err != nil {
			return nil
		}
		*t = nonEmpty([]string{single.String()})
		return nil
	}

	var out []string
	for _, raw := range list {
		var s flexString
		if err := json.Unmarshal(raw, &s); err == nil {
			out = append(out, s.String())
			continue
		}
		var obj struct {
			Title string `json:"title"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			out = append(out, obj.Title)
		}
	}
	*t = nonEmpty(out)
	return nil
}

type qimaoSearchResponse struct {
	Data struct {
		Books []struct {
			ID     flexString `json:"id"`
			Title  string     `json:"original_title"`
			Author string     `json:"original_author"`
			Image  string     `json:"image_link"`
			Intro  string     `json:"intro"`
			Words  flexString `json:"words_num"`
			Tags   qimaoTags  `json:"ptags"`
		} `json:"books"`
		Meta struct {
			TotalPage flexString `json:"total_page"`
		} `json:"meta"`
	} `json:"data"`
}

type qimaoDetailResponse struct {
	Data struct {
		Book *struct {
			Title         string     `json:"title"`
			Author        string     `json:"author"`
			Image         string     `json:"image_link"`
			Intro         string     `json:"intro"`
			Words         flexString `json:"words_num"`
			CategoryWords string     `json:"category_over_words"`
			UpdateStatus  flexString `json:"update_status"`
			UpdateTime    flexString `json:"update_time"`
			LastChapter   string     `json:"latest_chapter_title"`
			Score         flexString `json:"score"`
			TagList       []struct {
				Title string `json:"title"`
			} `json:"book_tag_list"`
		} `json:"book"`
	} `json:"data"`
}

func (q *Qimao) Ping(ctx context.Context) error {
	_, err := q.get(ctx, q.searchURL("斗罗", 1))
	return err
}

func (q *Qimao) searchURL(keyword string, page int) string {
	query := signedQuery(map[string]string{
		"gender":  "3",
		"imei_ip": qimaoDevice,
		"page":    strconv.Itoa(page),
		"wd":      keyword,
	})
	return q.baseURL + "/api/v5/search/words?" + query
}

func (q *Qimao) FetchPage(ctx context.Context, keyword string, page int) (*book.SearchPage, error) {
	return q.cachedSearch(ctx, keyword, page, func(ctx context.Context) (*book.SearchPage, error) {
		body, err := q.get(ctx, q.searchURL(keyword, page))
		if err != nil {
			return nil, err
		}

		var resp qimaoSearchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, q.parseError("decode search response: %w", err)
		}

		totalPages := max(resp.Data.Meta.TotalPage.Int(), 1)
		res := &book.SearchPage{IsLast: page >= totalPages || len(resp.Data.Books) == 0}
		for _, b := range resp.Data.Books {
			id := b.ID.String()
			if b.Title == "" || id == "" {
				continue
			}
			res.Candidates = append(res.Candidates, book.Candidate{
				Name:       clean(b.Title),
				Author:     clean(b.Author),
				URL:        fmt.Sprintf("%s/shuku/%s/", qimaoBookBase, id),
				ExternalID: id,
				Cover:      b.Image,
				Intro:      strings.TrimSpace(b.Intro),
				WordCount:  b.Words.String(),
				Tags:       b.Tags,
			})
		}
		return res, nil
	})
}

func (q *Qimao) FetchDetails(ctx context.Context, bookURL string) (*book.Details, error) {
	m := qimaoIDRe.FindStringSubmatch(bookURL)
	if m == nil {
		return nil, fmt.Errorf("%s: %w: %s", q.name, book.ErrInvalidURL, bookURL)
	}
	id := m[1]

	return q.cachedDetails(ctx, bookURL, func(ctx context.Context) (*book.Details, error) {
		query := signedQuery(map[string]string{
			"id":         id,
			"imei_ip":    qimaoDevice,
			"teeny_mode": "0",
		})
		body, err := q.get(ctx, q.baseURL+"/api/v4/book/detail?"+query)
		if err != nil {
			return nil, err
		}

		var resp qimaoDetailResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, q.parseError("decode detail response: %w", err)
		}
		b := resp.Data.Book
		if b == nil || b.Title == "" {
			return nil, book.ErrBookNotFound
		}

		// category_over_words looks like "都市・完结・120万字".
		parts := strings.Split(b.CategoryWords, "・")
		category := strings.TrimSpace(parts[0])
		words := b.Words.String()
		status := "完结"
		for _, p := range parts {
			switch {
			case strings.Contains(p, "万字"):
				words = strings.TrimSpace(p)
			case strings.Contains(p, "连载"):
				status = "连载"
			}
		}
		if b.UpdateStatus.String() == "0" {
			status = "连载"
		}

		var tags []string
		for _, t := range b.TagList {
			tags = append(tags, t.Title)
		}

		return &book.Details{
			Origin:      q.name,
			URL:         fmt.Sprintf("%s/shuku/%s/", qimaoBookBase, id),
			Name:        book.Str(b.Title),
			Author:      book.Str(b.Author),
			Intro:       book.Str(strings.TrimSpace(b.Intro)),
			Cover:       book.Str(b.Image),
			Status:      book.Str(status),
			WordCount:   book.Str(words),
			Category:    book.Str(category),
			Tags:        nonEmpty(tags),
			Rating:      book.Str(b.Score.String()),
			LastChapter: book.Str(b.LastChapter),
			LastUpdate:  book.Str(unixTime(b.UpdateTime.Int())),
		}, nil
	})
}
