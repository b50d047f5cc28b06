package relocate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/John-Robertt/vidsorter/internal/domain"
	"github.com/John-Robertt/vidsorter/internal/owner"
	"github.com/John-Robertt/vidsorter/internal/videoid"
)

func mediaFile(t *testing.T, root, name string) domain.MediaFile {
	t.Helper()
	p := filepath.Join(root, name)
	if err := os.WriteFile(p, []byte(name), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	return domain.MediaFile{
		AbsPath: p,
		RelPath: name,
		Name:    name,
		Ext:     filepath.Ext(name),
		Kind:    domain.KindVideo,
		Size:    int64(len(name)),
	}
}

func fixed(name string) owner.Resolver {
	return owner.Func(func(ctx context.Context, id domain.VideoID) (string, error) { return name, nil })
}

func failing() owner.Resolver {
	return owner.Func(func(ctx context.Context, id domain.VideoID) (string, error) {
		return "", errors.New("HTTP 404")
	})
}

func newEngine(root string, r owner.Resolver) *Engine {
	return &Engine{
		Root:      root,
		Extractor: videoid.New([]string{".mp4", ".mp3"}),
		Resolver:  r,
	}
}

func TestProcess_MovesIntoOwnerDir(t *testing.T) {
	root := t.TempDir()
	f := mediaFile(t, root, "Song [dQw4w9WgXcQ].mp4")

	res := newEngine(root, fixed("Rick: Astley?")).Process(context.Background(), f)
	if !res.Succeeded() {
		t.Fatalf("期望成功：%+v", res)
	}
	want := filepath.Join(root, "Rick_ Astley_", f.Name)
	if res.Dst != want || res.Owner != "Rick_ Astley_" || res.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("结果不符合预期：%+v", res)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("目标文件不存在：%v", err)
	}
	if _, err := os.Stat(f.AbsPath); !os.IsNotExist(err) {
		t.Fatalf("源文件应已移走：%v", err)
	}
}

func TestProcess_NoID(t *testing.T) {
	root := t.TempDir()
	f := mediaFile(t, root, "no id here.mp4")

	res := newEngine(root, fixed("x")).Process(context.Background(), f)
	if res.Succeeded() || res.ErrorKind != domain.ErrIDExtractionFailed {
		t.Fatalf("期望 ID_EXTRACTION_FAILED：%+v", res)
	}
	if _, err := os.Stat(f.AbsPath); err != nil {
		t.Fatalf("失败时源文件必须保留：%v", err)
	}
}

func TestProcess_LookupFailure(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		root := t.TempDir()
		f := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")

		res := newEngine(root, failing()).Process(context.Background(), f)
		if !res.Succeeded() || res.Owner != domain.UnknownOwner || !res.OwnerFallback {
			t.Fatalf("期望降级到 Unknown_Channel：%+v", res)
		}
	})
	t.Run("strict", func(t *testing.T) {
		root := t.TempDir()
		f := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")

		e := newEngine(root, failing())
		e.Strict = true
		res := e.Process(context.Background(), f)
		if res.Succeeded() || res.ErrorKind != domain.ErrMetadataFetchFailed {
			t.Fatalf("期望 METADATA_FETCH_FAILED：%+v", res)
		}
		if _, err := os.Stat(filepath.Join(root, domain.UnknownOwner)); !os.IsNotExist(err) {
			t.Fatalf("strict 失败时不应创建目录")
		}
	})
	t.Run("skip", func(t *testing.T) {
		root := t.TempDir()
		f := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")

		called := false
		e := newEngine(root, owner.Func(func(ctx context.Context, id domain.VideoID) (string, error) {
			called = true
			return "x", nil
		}))
		e.SkipMetadata = true
		res := e.Process(context.Background(), f)
		if called || res.Owner != domain.UnknownOwner {
			t.Fatalf("skip-metadata 不应查询：called=%v res=%+v", called, res)
		}
	})
}

func TestProcess_DirCreationFailed(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "Alice"), []byte("not a dir"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	f := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")

	for _, dry := range []bool{false, true} {
		e := newEngine(root, fixed("Alice"))
		e.DryRun = dry
		res := e.Process(context.Background(), f)
		if res.ErrorKind != domain.ErrDirCreationFailed {
			t.Fatalf("dry=%v 期望 DIR_CREATION_FAILED：%+v", dry, res)
		}
	}
}

func TestProcess_CollisionSuffix(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "Alice"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	name := "a [dQw4w9WgXcQ].mp4"
	if err := os.WriteFile(filepath.Join(root, "Alice", name), []byte("old"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	f := mediaFile(t, root, name)

	res := newEngine(root, fixed("Alice")).Process(context.Background(), f)
	want := filepath.Join(root, "Alice", "a [dQw4w9WgXcQ]_1.mp4")
	if res.Dst != want {
		t.Fatalf("期望 %q，实际 %+v", want, res)
	}
	b, _ := os.ReadFile(filepath.Join(root, "Alice", name))
	if string(b) != "old" {
		t.Fatalf("已存在的文件被覆盖了")
	}
}

func TestProcess_ExternalWriterRace(t *testing.T) {
	root := t.TempDir()
	f := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")

	// 模拟“选名之后、移动之前”目标被外部进程抢占。
	calls := 0
	e := newEngine(root, fixed("Alice"))
	e.Mover = func(src, dst string) error {
		calls++
		if calls == 1 {
			return &os.LinkError{Op: "rename", Old: src, New: dst, Err: fs.ErrExist}
		}
		return os.Rename(src, dst)
	}

	res := e.Process(context.Background(), f)
	if !res.Succeeded() || filepath.Base(res.Dst) != "a [dQw4w9WgXcQ]_1.mp4" {
		t.Fatalf("EEXIST 后应换下一个候选：%+v", res)
	}
}

func TestProcess_MoveFailed(t *testing.T) {
	root := t.TempDir()
	f := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")

	e := newEngine(root, fixed("Alice"))
	e.Mover = func(src, dst string) error { return os.ErrPermission }

	res := e.Process(context.Background(), f)
	if res.ErrorKind != domain.ErrMoveFailed {
		t.Fatalf("期望 MOVE_FAILED：%+v", res)
	}
}

func TestProcess_DryRunReservesNames(t *testing.T) {
	root := t.TempDir()
	a := mediaFile(t, root, "a [dQw4w9WgXcQ].mp4")
	// 第二个同名文件（只需要 MediaFile，dry-run 不会碰磁盘）。
	b := a
	b.AbsPath = filepath.Join(root, "copy", a.Name)

	e := newEngine(root, fixed("Alice"))
	e.DryRun = true
	r1 := e.Process(context.Background(), a)
	r2 := e.Process(context.Background(), b)
	if r1.Dst == r2.Dst {
		t.Fatalf("dry-run 两个文件不应规划到同一目标：%q", r1.Dst)
	}
	if _, err := os.Stat(filepath.Join(root, "Alice")); !os.IsNotExist(err) {
		t.Fatalf("dry-run 不应创建目录")
	}
	if _, err := os.Stat(a.AbsPath); err != nil {
		t.Fatalf("dry-run 不应移动文件：%v", err)
	}
}

func TestProcess_ConcurrentSameName(t *testing.T) {
	root := t.TempDir()
	const n = 8
	name := "same [dQw4w9WgXcQ].mp4"

	files := make([]domain.MediaFile, 0, n)
	for i := 0; i < n; i++ {
		sub := filepath.Join(root, fmt.Sprintf("in%d", i))
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
		files = append(files, mediaFile(t, sub, name))
	}

	e := newEngine(root, fixed("Alice"))
	var wg sync.WaitGroup
	results := make([]domain.FileResult, n)
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Process(context.Background(), files[i])
		}(i)
	}
	wg.Wait()

	seen := map[string]bool{}
	for _, r := range results {
		if !r.Succeeded() {
			t.Fatalf("不期望失败：%+v", r)
		}
		if seen[r.Dst] {
			t.Fatalf("两个文件移动到了同一目标：%q", r.Dst)
		}
		seen[r.Dst] = true
	}
	entries, err := os.ReadDir(filepath.Join(root, "Alice"))
	if err != nil || len(entries) != n {
		t.Fatalf("期望 %d 个文件，实际 %d（err=%v）", n, len(entries), err)
	}
}
