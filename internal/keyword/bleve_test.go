package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := NewIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestIndex_AddAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	docs := []*Document{
		{ID: "chapter_001.md", Kind: "chapter", Title: "Chapter 1", Content: "The fresco technique uses wet plaster."},
		{ID: "chapter_002.md", Kind: "chapter", Title: "Chapter 2", Content: "Oil painting on canvas spread through Venice."},
		{ID: "term:fresco", Kind: "term", Title: "fresco", Content: "Painting on freshly laid lime plaster."},
	}
	for _, d := range docs {
		if err := idx.Add(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	count, err := idx.DocCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("doc count = %d, want 3", count)
	}

	results, err := idx.Search(ctx, "fresco", 10, 3.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(results), results)
	}
	// Title boost should rank the glossary entry above the chapter mention.
	if results[0].ID != "term:fresco" {
		t.Errorf("top hit = %q, want term:fresco", results[0].ID)
	}
	if results[0].Kind != "term" {
		t.Errorf("top hit kind = %q, want term", results[0].Kind)
	}
}

func TestIndex_Delete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	if err := idx.Add(ctx, &Document{ID: "a", Kind: "chapter", Title: "Chapter 1", Content: "gesso ground"}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	results, err := idx.Search(ctx, "gesso", 10, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("deleted doc still found: %+v", results)
	}
}

func TestIndex_ReopenExisting(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keyword.bleve")
	idx, err := NewIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Add(context.Background(), &Document{ID: "a", Kind: "chapter", Title: "Chapter 1", Content: "tenebrism"}); err != nil {
		t.Fatal(err)
	}
	idx.Close()

	reopened, err := NewIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	count, _ := reopened.DocCount()
	if count != 1 {
		t.Fatalf("reopened doc count = %d, want 1", count)
	}
}
