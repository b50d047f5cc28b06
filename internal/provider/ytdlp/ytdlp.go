package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strings"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

// Runner 执行外部命令并返回 stdout（便于测试注入）。
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Provider 调用本机的 yt-dlp 读取视频元数据（不下载）。
//
// HTTP client 不参与：代理等网络配置由 yt-dlp 自己处理（--proxy 会透传）。
type Provider struct {
	// Binary 为空时使用 PATH 中的 "yt-dlp"。
	Binary string
	// Proxy 非空时透传为 --proxy。
	Proxy string
	Run   Runner
}

func (Provider) Name() string { return "ytdlp" }

func (p Provider) binary() string {
	if b := strings.TrimSpace(p.Binary); b != "" {
		return b
	}
	return "yt-dlp"
}

func (p Provider) Fetch(ctx context.Context, id domain.VideoID, _ *http.Client) ([]byte, string, error) {
	if id == "" {
		return nil, "", errors.New("video id 不能为空")
	}
	args := []string{"--dump-single-json", "--skip-download", "--no-warnings"}
	if px := strings.TrimSpace(p.Proxy); px != "" {
		args = append(args, "--proxy", px)
	}
	args = append(args, "--", id.WatchURL())

	run := p.Run
	if run == nil {
		run = execRunner
	}
	out, err := run(ctx, p.binary(), args...)
	if err != nil {
		return nil, "", err
	}
	return out, id.WatchURL(), nil
}

type info struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Uploader  string `json:"uploader"`
	Channel   string `json:"channel"`
	ChannelID string `json:"channel_id"`
}

// Parse 优先使用 uploader，缺失时回退 channel。
func (Provider) Parse(id domain.VideoID, body []byte, pageURL string) (domain.OwnerMeta, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.OwnerMeta{}, errors.New("yt-dlp 输出为空")
	}
	var in info
	if err := json.Unmarshal(body, &in); err != nil {
		return domain.OwnerMeta{}, fmt.Errorf("解析 yt-dlp JSON 失败：%w", err)
	}
	owner := strings.TrimSpace(in.Uploader)
	if owner == "" {
		owner = strings.TrimSpace(in.Channel)
	}
	if owner == "" {
		return domain.OwnerMeta{}, errors.New("yt-dlp 输出缺少 uploader/channel")
	}
	return domain.OwnerMeta{
		VideoID:   id,
		Owner:     owner,
		ChannelID: strings.TrimSpace(in.ChannelID),
		Title:     strings.TrimSpace(in.Title),
		Website:   strings.TrimSpace(pageURL),
	}, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s 执行失败：%w：%s", name, err, firstLine(msg))
		}
		return nil, fmt.Errorf("%s 执行失败：%w", name, err)
	}
	return out, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
