package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

type stubProvider struct {
	name string

	fetchErr error
	parseErr error

	body  []byte
	url   string
	owner string

	fetchCalls int
	parseCalls int
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Fetch(ctx context.Context, id domain.VideoID, c *http.Client) ([]byte, string, error) {
	p.fetchCalls++
	if p.fetchErr != nil {
		return nil, "", p.fetchErr
	}
	return p.body, p.url, nil
}

func (p *stubProvider) Parse(id domain.VideoID, body []byte, pageURL string) (domain.OwnerMeta, error) {
	p.parseCalls++
	if p.parseErr != nil {
		return domain.OwnerMeta{}, p.parseErr
	}
	return domain.OwnerMeta{Owner: p.owner}, nil
}

const testID = domain.VideoID("dQw4w9WgXcQ")

func TestChain_FallbackOnFetchFail(t *testing.T) {
	a := &stubProvider{name: "oembed", fetchErr: errors.New("nope")}
	b := &stubProvider{name: "watchpage", body: []byte("<html/>"), url: "https://example.test/watch", owner: "Rick Astley"}

	reg, err := NewRegistry(a, b)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	ch, err := NewChain(reg, []string{"oembed", "watchpage"}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	meta, attempts, err := ch.ResolveTrace(context.Background(), testID)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if meta.Owner != "Rick Astley" || meta.Website != b.url || meta.VideoID != testID {
		t.Fatalf("meta 不符合预期：%+v", meta)
	}
	if len(attempts) != 2 || attempts[0].Stage != "fetch" || attempts[1].Stage != "ok" {
		t.Fatalf("attempts 不符合预期：%+v", attempts)
	}
}

func TestChain_EachProviderAskedOnce(t *testing.T) {
	a := &stubProvider{name: "oembed", fetchErr: errors.New("down")}
	b := &stubProvider{name: "watchpage", body: []byte("x"), parseErr: errors.New("layout changed")}

	reg, _ := NewRegistry(a, b)
	ch, err := NewChain(reg, []string{"oembed", "watchpage"}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	_, err = ch.Resolve(context.Background(), testID)
	var pe *Error
	if !errors.As(err, &pe) || pe.Provider != "watchpage" || pe.Stage != "parse" {
		t.Fatalf("期望最后一个 provider 的 parse 错误，实际：%v", err)
	}
	if a.fetchCalls != 1 || b.fetchCalls != 1 || b.parseCalls != 1 {
		t.Fatalf("每个 provider 只应被问一次：a=%d b=%d/%d", a.fetchCalls, b.fetchCalls, b.parseCalls)
	}
}

func TestChain_EmptyOwnerIsFailure(t *testing.T) {
	a := &stubProvider{name: "oembed", body: []byte("{}"), owner: "   "}
	reg, _ := NewRegistry(a)
	ch, _ := NewChain(reg, []string{"oembed"}, nil)

	if _, err := ch.Resolve(context.Background(), testID); err == nil {
		t.Fatalf("空 owner 应视为失败")
	}
}

func TestChain_CancelledContext(t *testing.T) {
	a := &stubProvider{name: "oembed", owner: "x"}
	reg, _ := NewRegistry(a)
	ch, _ := NewChain(reg, []string{"oembed"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ch.Resolve(ctx, testID); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，实际：%v", err)
	}
	if a.fetchCalls != 0 {
		t.Fatalf("已取消时不应再发起 fetch")
	}
}

func TestNewChain_Validation(t *testing.T) {
	reg, _ := NewRegistry(&stubProvider{name: "oembed"})

	if _, err := NewChain(reg, nil, nil); err == nil {
		t.Fatalf("空链期望错误")
	}
	if _, err := NewChain(reg, []string{"nope"}, nil); err == nil {
		t.Fatalf("未知 resolver 期望错误")
	}
	if _, err := NewChain(reg, []string{"oembed", " OEMBED "}, nil); err == nil {
		t.Fatalf("重复 resolver 期望错误")
	}
	ch, err := NewChain(reg, []string{" OEmbed "}, nil)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got := ch.Order(); len(got) != 1 || got[0] != "oembed" {
		t.Fatalf("期望规范化为 oembed，实际 %v", got)
	}
}

func TestNewRegistry_Rejects(t *testing.T) {
	if _, err := NewRegistry(&stubProvider{name: ""}); err == nil {
		t.Fatalf("空 name 期望错误")
	}
	if _, err := NewRegistry(&stubProvider{name: "a"}, &stubProvider{name: "A"}); err == nil {
		t.Fatalf("重复 name 期望错误")
	}
}
