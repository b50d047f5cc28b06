package watchpage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/John-Robertt/vidsorter/internal/domain"
	providerx "github.com/John-Robertt/vidsorter/internal/provider"
)

const id = domain.VideoID("dQw4w9WgXcQ")

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture 失败：%v", err)
	}
	return b
}

func TestParse_Fixture(t *testing.T) {
	html := readFixture(t, "dQw4w9WgXcQ.html")

	meta, err := Provider{}.Parse(id, html, id.WatchURL())
	if err != nil {
		t.Fatalf("Parse 失败：%v", err)
	}
	if meta.Owner != "Rick Astley" {
		t.Fatalf("owner 不符合预期：%q", meta.Owner)
	}
	if meta.ChannelID != "UCuAXFkgsw1L7xaCfnd5JJOw" {
		t.Fatalf("channel id 不符合预期：%q", meta.ChannelID)
	}
	if meta.Title != "Rick Astley - Never Gonna Give You Up (Official Music Video)" {
		t.Fatalf("title 不符合预期：%q", meta.Title)
	}
}

func TestParse_NoOwner(t *testing.T) {
	if _, err := (Provider{}).Parse(id, []byte("<html><body>nothing</body></html>"), ""); err == nil {
		t.Fatalf("期望错误")
	}
	if _, err := (Provider{}).Parse(id, nil, ""); err == nil {
		t.Fatalf("空 html 期望错误")
	}
}

func TestFetch_ConsentIsBlocked(t *testing.T) {
	consent := readFixture(t, "consent.html")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(consent)
	}))
	defer srv.Close()

	_, _, err := Provider{BaseURL: srv.URL}.Fetch(context.Background(), id, srv.Client())
	var be *providerx.BlockedError
	if !errors.As(err, &be) || be.Reason != "consent" {
		t.Fatalf("期望 BlockedError(consent)，实际：%v", err)
	}
}

func TestFetch_SendsConsentCookie(t *testing.T) {
	page := readFixture(t, "dQw4w9WgXcQ.html")
	var cookie, v string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie = r.Header.Get("Cookie")
		v = r.URL.Query().Get("v")
		_, _ = w.Write(page)
	}))
	defer srv.Close()

	body, pageURL, err := Provider{BaseURL: srv.URL}.Fetch(context.Background(), id, srv.Client())
	if err != nil {
		t.Fatalf("Fetch 失败：%v", err)
	}
	if cookie != "SOCS=CAI" || v != string(id) {
		t.Fatalf("请求不符合预期：cookie=%q v=%q", cookie, v)
	}
	if pageURL != srv.URL+"/watch?v="+string(id) || len(body) == 0 {
		t.Fatalf("返回不符合预期：url=%q len=%d", pageURL, len(body))
	}
}
