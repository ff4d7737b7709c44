package pageservice

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/nodepad/internal/apperr"
	"github.com/starford/nodepad/internal/index"
	"github.com/starford/nodepad/internal/storage"
)

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeNotifier) PublishPageEvent(kind, path, oldPath string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := kind + ":" + path
	if oldPath != "" {
		ev += "<-" + oldPath
	}
	f.events = append(f.events, ev)
}

type fakeTrigger struct{ n int }

func (f *fakeTrigger) Trigger() { f.n++ }

func newService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	store, err := storage.NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(store, opts...)
}

func TestSaveAndPage(t *testing.T) {
	n := &fakeNotifier{}
	b := &fakeTrigger{}
	svc := newService(t, WithEvents(n, false), WithBackups(b))
	ctx := context.Background()

	d, err := svc.Save(ctx, SaveRequest{Path: "a.md", Content: "# Alpha\nbody", Tags: []string{"Go", "go", "Web"}})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if d.Title != "Alpha" || d.Content != "" || len(d.Tags) != 2 {
		t.Errorf("detail = %+v", d)
	}

	page, err := svc.Page(ctx, "a.md")
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	if page.Content != "# Alpha\nbody" || page.Checksum != d.Checksum {
		t.Errorf("page = %+v", page)
	}

	// tags untouched when omitted
	if _, err := svc.Save(ctx, SaveRequest{Path: "a.md", Content: "# Alpha v2"}); err != nil {
		t.Fatal(err)
	}
	page, _ = svc.Page(ctx, "a.md")
	if len(page.Tags) != 2 {
		t.Errorf("tags = %v, want kept", page.Tags)
	}

	if b.n != 2 {
		t.Errorf("backup triggers = %d, want 2", b.n)
	}
	if len(n.events) != 2 || n.events[0] != "created:a.md" || n.events[1] != "updated:a.md" {
		t.Errorf("events = %v", n.events)
	}
}

func TestSaveIfMatch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d, err := svc.Save(ctx, SaveRequest{Path: "a.md", Content: "one"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Save(ctx, SaveRequest{Path: "a.md", Content: "two", IfMatch: "stale"}); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
	if _, err := svc.Save(ctx, SaveRequest{Path: "a.md", Content: "two", IfMatch: d.Checksum}); err != nil {
		t.Errorf("matching checksum: %v", err)
	}
}

func TestWatchedServicePublishesOnlyMoves(t *testing.T) {
	n := &fakeNotifier{}
	svc := newService(t, WithEvents(n, true))
	ctx := context.Background()

	if _, err := svc.Create(ctx, "a.md", "file"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "sub", "folder"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Move(ctx, "a.md", "sub"); err != nil {
		t.Fatal(err)
	}
	if len(n.events) != 1 || n.events[0] != "moved:sub/a.md<-a.md" {
		t.Errorf("events = %v", n.events)
	}
}

func TestTreeQuery(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, SaveRequest{Path: "b.md", Content: "# Bee", Tags: []string{"keep"}})
	_, _ = svc.Save(ctx, SaveRequest{Path: "a.md", Content: "# A"})
	_, _ = svc.Save(ctx, SaveRequest{Path: "dir/c.md", Content: "# C", Tags: []string{"Keep"}})
	_, _ = svc.Save(ctx, SaveRequest{Path: "dir2/d.md", Content: "# D"})

	nodes, total, err := svc.Tree(ctx, TreeQuery{Sorted: true, DirsFirst: true, Counts: true, Titles: true})
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if total != 4 || len(nodes) != 4 || nodes[0].Name != "dir" || nodes[2].Name != "a.md" {
		t.Fatalf("nodes = %+v total %d", nodes, total)
	}
	if nodes[0].FileCount == nil || *nodes[0].FileCount != 1 {
		t.Errorf("dir count = %v", nodes[0].FileCount)
	}
	if nodes[3].Title != "Bee" {
		t.Errorf("title = %q", nodes[3].Title)
	}

	filtered, _, err := svc.Tree(ctx, TreeQuery{Tags: []string{"KEEP"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 || filtered[0].Name != "b.md" || filtered[1].Name != "dir" {
		t.Errorf("filtered = %+v", filtered)
	}
	if filtered[1].FileCount != nil {
		t.Error("counts not requested")
	}
}

func TestTagIndexFromCache(t *testing.T) {
	db, err := index.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	svc := newService(t, WithCache(db))
	ctx := context.Background()

	_, _ = svc.Save(ctx, SaveRequest{Path: "a.md", Content: "a", Tags: []string{"Go"}})
	_, _ = svc.Save(ctx, SaveRequest{Path: "sub/b.md", Content: "b", Tags: []string{"go", "web"}})

	counts, err := svc.TagCounts(ctx)
	if err != nil {
		t.Fatalf("TagCounts: %v", err)
	}
	if len(counts) != 2 || counts[0].Tag != "go" || counts[0].Count != 2 {
		t.Errorf("counts = %+v", counts)
	}

	if _, err := svc.Move(ctx, "sub/b.md", ""); err != nil {
		t.Fatal(err)
	}
	idx, err := svc.TagIndex(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := idx.ByPath["b.md"]; !ok {
		t.Errorf("cache not updated after move: %v", idx.ByPath)
	}
	if _, ok := idx.ByPath["sub/b.md"]; ok {
		t.Error("stale path left in cache")
	}

	suggest, err := svc.SuggestTags(ctx, "w", 0)
	if err != nil || len(suggest) != 1 || suggest[0] != "web" {
		t.Errorf("suggest = %v, %v", suggest, err)
	}
}

func TestRender(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, _ = svc.Save(ctx, SaveRequest{Path: "r.md", Content: "# Title\n\n*em*"})
	html, err := svc.Render(ctx, "r.md")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if html == "" {
		t.Error("empty render")
	}
}
