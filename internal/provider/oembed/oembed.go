package oembed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/John-Robertt/vidsorter/internal/domain"
	providerx "github.com/John-Robertt/vidsorter/internal/provider"
)

// Provider 通过公开的 oEmbed 接口查询视频作者。
//
// oEmbed 不需要 API key，返回体很小；私有/已删除视频会得到 401/404。
type Provider struct {
	// BaseURL 为空时使用 https://www.youtube.com（测试用 httptest 覆盖）。
	BaseURL string
}

func (Provider) Name() string { return "oembed" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return "https://www.youtube.com"
	}
	return strings.TrimRight(u, "/")
}

// Fetch 请求：{base}/oembed?url=<watch URL>&format=json
func (p Provider) Fetch(ctx context.Context, id domain.VideoID, c *http.Client) ([]byte, string, error) {
	if id == "" {
		return nil, "", errors.New("video id 不能为空")
	}
	endpoint := p.baseURL() + "/oembed?url=" + url.QueryEscape(id.WatchURL()) + "&format=json"
	body, err := providerx.FetchURL(ctx, c, endpoint, http.Header{"Accept": {"application/json"}})
	if err != nil {
		return nil, "", err
	}
	return body, id.WatchURL(), nil
}

type payload struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
	ProviderName string `json:"provider_name"`
}

// Parse 读取 author_name；缺失即视为失败。
func (Provider) Parse(id domain.VideoID, body []byte, pageURL string) (domain.OwnerMeta, error) {
	if len(body) == 0 {
		return domain.OwnerMeta{}, errors.New("响应为空")
	}
	var pl payload
	if err := json.Unmarshal(body, &pl); err != nil {
		return domain.OwnerMeta{}, fmt.Errorf("解析 oEmbed JSON 失败：%w", err)
	}
	owner := strings.TrimSpace(pl.AuthorName)
	if owner == "" {
		return domain.OwnerMeta{}, errors.New("oEmbed 响应缺少 author_name")
	}
	return domain.OwnerMeta{
		VideoID:   id,
		Owner:     owner,
		ChannelID: channelFromURL(pl.AuthorURL),
		Title:     strings.TrimSpace(pl.Title),
		Website:   strings.TrimSpace(pageURL),
	}, nil
}

// channelFromURL 从 author_url 取最后一段（@handle 或 UC... 频道 id）。
func channelFromURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Path == "" {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	return parts[len(parts)-1]
}
