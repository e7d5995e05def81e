package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestRun_ReportsEveryCheck(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	results := Run(context.Background(),
		Check{Name: "good", Run: func(context.Context) error { return nil }},
		Check{Name: "bad", Run: func(context.Context) error { return boom }},
	)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Name != "good" || results[0].Err != nil {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Name != "bad" || !errors.Is(results[1].Err, boom) {
		t.Errorf("second result = %+v", results[1])
	}
	if OK(results) {
		t.Error("OK = true with a failing check")
	}
	if !OK(results[:1]) {
		t.Error("OK = false with only passing checks")
	}
}

func TestBinary(t *testing.T) {
	t.Parallel()
	if err := Binary("shell", "sh").Run(context.Background()); err != nil {
		t.Errorf("sh should resolve: %v", err)
	}
	if err := Binary("missing", "definitely-not-a-binary-4711").Run(context.Background()); err == nil {
		t.Error("nonexistent binary passed")
	}
}

func TestFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(path, []byte("weights"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := File("model", path).Run(context.Background()); err != nil {
		t.Errorf("existing file failed: %v", err)
	}
	if err := File("model", filepath.Join(dir, "nope.bin")).Run(context.Background()); err == nil {
		t.Error("missing file passed")
	}
	if err := File("model", dir).Run(context.Background()); err == nil {
		t.Error("directory passed as file")
	}
}
