package watchpage

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/vidsorter/internal/domain"
	providerx "github.com/John-Robertt/vidsorter/internal/provider"
)

// Provider 抓取视频的 watch 页面，从 microdata/meta 标签里读出频道名。
//
// 约束：
// - 不执行 JS，只读静态 HTML
// - 被引导到 consent 页面时返回 *provider.BlockedError，不尝试绕过
// - Parse 是纯函数（只依赖 html + pageURL）
type Provider struct {
	BaseURL string
}

func (Provider) Name() string { return "watchpage" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://www.youtube.com"
	}
	return strings.TrimRight(u, "/")
}

func (p Provider) Fetch(ctx context.Context, id domain.VideoID, c *http.Client) ([]byte, string, error) {
	if id == "" {
		return nil, "", errors.New("video id 不能为空")
	}
	pageURL := p.baseURL() + "/watch?v=" + url.QueryEscape(string(id))

	// SOCS 让欧盟地区直接返回内容页而不是 consent 跳转。
	h := http.Header{}
	h.Set("Cookie", "SOCS=CAI")
	body, err := providerx.FetchURL(ctx, c, pageURL, h)
	if err != nil {
		return nil, "", err
	}
	if isConsentPage(body) {
		return nil, "", &providerx.BlockedError{URL: pageURL, Reason: "consent"}
	}
	return body, pageURL, nil
}

func (Provider) Parse(id domain.VideoID, html []byte, pageURL string) (domain.OwnerMeta, error) {
	if len(html) == 0 {
		return domain.OwnerMeta{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return domain.OwnerMeta{}, err
	}

	owner := attr(doc, `span[itemprop="author"] link[itemprop="name"]`, "content")
	if owner == "" {
		owner = attr(doc, `link[itemprop="name"]`, "content")
	}
	if owner == "" {
		owner = normSpace(doc.Find("#owner #channel-name a").First().Text())
	}
	if owner == "" {
		return domain.OwnerMeta{}, errors.New("页面中未找到频道名")
	}

	channelID := attr(doc, `meta[itemprop="channelId"]`, "content")
	if channelID == "" {
		channelID = attr(doc, `meta[itemprop="identifier"][content^="UC"]`, "content")
	}

	title := attr(doc, `meta[property="og:title"]`, "content")
	if title == "" {
		title = normSpace(doc.Find("title").First().Text())
	}

	return domain.OwnerMeta{
		VideoID:   id,
		Owner:     owner,
		ChannelID: channelID,
		Title:     title,
		Website:   strings.TrimSpace(pageURL),
	}, nil
}

func isConsentPage(html []byte) bool {
	return bytes.Contains(html, []byte("consent.youtube.com")) &&
		!bytes.Contains(html, []byte(`itemprop="author"`))
}

func attr(doc *goquery.Document, sel, name string) string {
	v, _ := doc.Find(sel).First().Attr(name)
	return normSpace(v)
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
