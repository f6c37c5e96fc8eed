package docstore

import (
	"context"
	"errors"
	"hash/fnv"
	"path/filepath"
	"strings"
	"testing"
)

// wordEmbedder hashes lowercased words into a small bag-of-words vector.
type wordEmbedder struct {
	calls int
	err   error
}

func (w *wordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := w.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (w *wordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	w.calls++
	if w.err != nil {
		return nil, w.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, 64)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(strings.Trim(word, ".,!?")))
			vec[h.Sum32()%64]++
		}
		out[i] = vec
	}
	return out, nil
}

func corpusDocs() []Document {
	return []Document{
		{ID: "EX_1", Text: "I reduced queue latency by batching writes.", Metadata: map[string]string{MetaQuestionID: "1", MetaLabel: "good"}},
		{ID: "EX_2", Text: "I enjoy reading novels on weekends.", Metadata: map[string]string{MetaQuestionID: "1", MetaLabel: "bad"}},
		{ID: "EX_3", Text: "Queue latency dropped after we added caching.", Metadata: map[string]string{MetaQuestionID: "2", MetaLabel: "good"}},
		{ID: "EX_4", Text: "Our queue latency alerts fired every night.", Metadata: map[string]string{MetaQuestionID: "1", MetaLabel: "good"}},
	}
}

func storeContract(t *testing.T, newStore func(t *testing.T, e *wordEmbedder) Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("nearest with filter", func(t *testing.T) {
		store := newStore(t, &wordEmbedder{})
		if err := store.UpsertCorpus(ctx, "rubric-42", corpusDocs()); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		got, err := store.QueryNearest(ctx, "rubric-42", "queue latency", 2, Filter{MetaQuestionID: "1"})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 results, got %+v", got)
		}
		for _, d := range got {
			if d.Metadata[MetaQuestionID] != "1" {
				t.Fatalf("filter not applied: %+v", d)
			}
			if d.ID == "EX_2" {
				t.Fatalf("unrelated document ranked in top 2: %+v", got)
			}
		}
		if got[0].Score < got[1].Score {
			t.Fatalf("results not sorted by score: %+v", got)
		}
	})

	t.Run("replace all", func(t *testing.T) {
		store := newStore(t, &wordEmbedder{})
		if err := store.UpsertCorpus(ctx, "rubric-42", corpusDocs()); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := store.UpsertCorpus(ctx, "rubric-42", corpusDocs()[1:2]); err != nil {
			t.Fatalf("second upsert: %v", err)
		}

		got, err := store.QueryNearest(ctx, "rubric-42", "queue latency", 3, nil)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 1 || got[0].ID != "EX_2" {
			t.Fatalf("expected only the replacement document, got %+v", got)
		}

		if err := store.UpsertCorpus(ctx, "rubric-42", nil); err != nil {
			t.Fatalf("empty upsert: %v", err)
		}
		got, err = store.QueryNearest(ctx, "rubric-42", "queue latency", 3, nil)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected empty collection, got %+v / %v", got, err)
		}
	})

	t.Run("collections are isolated", func(t *testing.T) {
		store := newStore(t, &wordEmbedder{})
		if err := store.UpsertCorpus(ctx, "rubric-1", corpusDocs()[:1]); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := store.UpsertCorpus(ctx, "rubric-2", corpusDocs()[2:3]); err != nil {
			t.Fatalf("upsert: %v", err)
		}

		got, err := store.QueryNearest(ctx, "rubric-1", "queue", 5, nil)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(got) != 1 || got[0].ID != "EX_1" {
			t.Fatalf("unexpected documents: %+v", got)
		}
	})

	t.Run("missing collection and blank query", func(t *testing.T) {
		embedder := &wordEmbedder{}
		store := newStore(t, embedder)

		got, err := store.QueryNearest(ctx, "nothing", "queue", 3, nil)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected no results, got %+v / %v", got, err)
		}
		got, err = store.QueryNearest(ctx, "nothing", "   ", 3, nil)
		if err != nil || len(got) != 0 {
			t.Fatalf("expected no results, got %+v / %v", got, err)
		}
		if embedder.calls != 0 {
			t.Fatalf("embedder must not be called, got %d calls", embedder.calls)
		}
	})

	t.Run("embedding failure", func(t *testing.T) {
		boom := errors.New("embedding down")
		store := newStore(t, &wordEmbedder{err: boom})
		if err := store.UpsertCorpus(ctx, "rubric-42", corpusDocs()); !errors.Is(err, boom) {
			t.Fatalf("expected embedding error, got %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(_ *testing.T, e *wordEmbedder) Store {
		return NewMemoryStore(e)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T, e *wordEmbedder) Store {
		store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "rag.sqlite"), e)
		if err != nil {
			t.Fatalf("open store: %v", err)
		}
		t.Cleanup(func() { store.Close() })
		return store
	})
}

func TestSQLiteStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rag.sqlite")

	first, err := NewSQLiteStore(path, &wordEmbedder{})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := first.UpsertCorpus(ctx, "rubric-42", corpusDocs()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(path, &wordEmbedder{})
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer second.Close()

	count, err := second.Count(ctx, "rubric-42")
	if err != nil || count != 4 {
		t.Fatalf("expected 4 persisted documents, got %d / %v", count, err)
	}
}

func TestFilterMatches(t *testing.T) {
	t.Parallel()

	meta := map[string]string{MetaQuestionID: "1", MetaLabel: "good"}
	if !(Filter{}).Matches(meta) || !(Filter{MetaLabel: "good"}).Matches(meta) {
		t.Fatal("expected match")
	}
	if (Filter{MetaQuestionID: "2"}).Matches(meta) || (Filter{"x": "y"}).Matches(nil) {
		t.Fatal("expected no match")
	}
}
