package stats

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/John-Robertt/vidsorter/internal/domain"
)

func ok(src, owner string, kind domain.MediaKind, size int64) domain.FileResult {
	return domain.FileResult{Src: src, Owner: owner, Kind: kind, Size: size, Status: domain.StatusSucceeded}
}

func fail(src string, ek domain.ErrorKind, msg string) domain.FileResult {
	return domain.FileResult{Src: src, Kind: domain.KindVideo, Status: domain.StatusFailed, ErrorKind: ek, ErrorMsg: msg}
}

func TestCollector_Counts(t *testing.T) {
	c := New(time.Now())
	c.SetTotal(5)

	c.Record(ok("/r/a.mp4", "Alice", domain.KindVideo, 100))
	c.Record(ok("/r/b.mp3", "Alice", domain.KindAudio, 50))
	c.Record(ok("/r/c.mp4", "Bob", domain.KindVideo, 1))
	c.Record(fail("/r/noid.mp4", domain.ErrIDExtractionFailed, "no id"))

	s := c.Summary()
	if s.Total != 5 || s.Succeeded != 3 || s.Failed != 1 || s.NotProcessed != 1 {
		t.Fatalf("计数不符合预期：%+v", s)
	}
	if s.Video != 3 || s.Audio != 1 || s.Unknown != 0 {
		t.Fatalf("类别计数不符合预期：%+v", s)
	}
	if s.Owners != 2 || s.Bytes != 151 {
		t.Fatalf("owner/bytes 不符合预期：%+v", s)
	}
	if s.ErrorKinds[domain.ErrIDExtractionFailed] != 1 {
		t.Fatalf("错误类别计数不符合预期：%+v", s.ErrorKinds)
	}

	errs := c.Errors()
	if len(errs) != 1 || errs[0].Filename != "noid.mp4" || errs[0].Detail != "no id" || errs[0].At.IsZero() {
		t.Fatalf("错误记录不符合预期：%+v", errs)
	}
}

func TestCollector_ConcurrentConservation(t *testing.T) {
	const n = 200
	c := New(time.Now())
	c.SetTotal(n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			src := fmt.Sprintf("/r/%03d.mp4", i)
			if i%3 == 0 {
				c.Record(fail(src, domain.ErrMoveFailed, "x"))
				return
			}
			c.Record(ok(src, fmt.Sprintf("o%d", i%7), domain.KindVideo, 1))
		}(i)
	}
	wg.Wait()

	s := c.Summary()
	if s.Succeeded+s.Failed != n || s.NotProcessed != 0 {
		t.Fatalf("守恒被破坏：%+v", s)
	}
	if len(c.Errors()) != s.Failed {
		t.Fatalf("错误记录数与失败数不一致：%d vs %d", len(c.Errors()), s.Failed)
	}

	var rep domain.RunReport
	c.Fill(&rep)
	if len(rep.Files) != n {
		t.Fatalf("files 数量不符合预期：%d", len(rep.Files))
	}
}
