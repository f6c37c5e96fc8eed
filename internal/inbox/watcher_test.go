package inbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type received struct {
	kind Kind
	name string
	data string
}

type recorder struct {
	mu    sync.Mutex
	calls []received
	fail  map[string]bool
	seen  chan struct{}
}

func newRecorder() *recorder {
	return &recorder{fail: map[string]bool{}, seen: make(chan struct{}, 16)}
}

func (r *recorder) handle(_ context.Context, kind Kind, name string, data []byte) error {
	r.mu.Lock()
	r.calls = append(r.calls, received{kind: kind, name: name, data: string(data)})
	fail := r.fail[name]
	r.mu.Unlock()

	r.seen <- struct{}{}
	if fail {
		return errors.New("invalid payload")
	}
	return nil
}

func (r *recorder) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.seen:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for handler call %d of %d", i+1, n)
		}
	}
}

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("file %s never appeared", path)
}

// drop writes outside the inbox and renames into it.
func drop(t *testing.T, root string, kind Kind, name, content string) {
	t.Helper()
	tmp := filepath.Join(root, name+".partial")
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, string(kind)), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, filepath.Join(root, string(kind), name)); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, root string, rec *recorder) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := New(root, rec.handle, nil)
	go func() { done <- w.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("watcher returned error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

func TestWatcherHandlesExistingFiles(t *testing.T) {
	root := t.TempDir()
	drop(t, root, KindRubric, "42.json", `{"jobPostingId":42}`)
	drop(t, root, KindApplication, "notes.txt", "ignored")

	rec := newRecorder()
	startWatcher(t, root, rec)
	rec.wait(t, 1)

	waitForFile(t, filepath.Join(root, processedDir, string(KindRubric), "42.json"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 1 || rec.calls[0].kind != KindRubric || rec.calls[0].data != `{"jobPostingId":42}` {
		t.Fatalf("unexpected calls: %+v", rec.calls)
	}
	if _, err := os.Stat(filepath.Join(root, string(KindApplication), "notes.txt")); err != nil {
		t.Fatalf("non-json file should be left alone: %v", err)
	}
}

func TestWatcherHandlesNewFiles(t *testing.T) {
	root := t.TempDir()
	rec := newRecorder()
	rec.fail["bad.json"] = true
	startWatcher(t, root, rec)

	// The watcher creates the inbox; wait for it before dropping files.
	waitForFile(t, filepath.Join(root, failedDir, string(KindApplication)))

	drop(t, root, KindApplication, "99.json", `{"applicationId":99}`)
	drop(t, root, KindApplication, "bad.json", `{`)
	rec.wait(t, 2)

	waitForFile(t, filepath.Join(root, processedDir, string(KindApplication), "99.json"))
	waitForFile(t, filepath.Join(root, failedDir, string(KindApplication), "bad.json"))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	for _, c := range rec.calls {
		if c.kind != KindApplication {
			t.Fatalf("unexpected kind: %+v", c)
		}
	}
}
