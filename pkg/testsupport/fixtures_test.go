package testsupport

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "scenarios.json")
	if err := os.WriteFile(testFile, []byte(`{"name":"test","value":42}`), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result struct {
		Name  string `json:"name"`
		Value int    `json:"value"`
	}
	LoadFixtureJSON(t, testFile, &result)

	if result.Name != "test" || result.Value != 42 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestFixturePath(t *testing.T) {
	if got, want := FixturePath("keys.json"), filepath.Join("testdata", "keys.json"); got != want {
		t.Errorf("FixturePath() = %q, want %q", got, want)
	}
}

func TestCacheDir(t *testing.T) {
	dir := CacheDir(t)

	if filepath.Base(dir) != ".dcache" {
		t.Errorf("expected .dcache leaf, got %q", dir)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("expected %s to not exist yet, got %v", dir, err)
	}
}

func TestCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.entry", filepath.Join("nested", "b.entry")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("ok"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	if n := CorruptFiles(t, dir); n != 2 {
		t.Fatalf("expected 2 files corrupted, got %d", n)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.entry"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "not an entry" {
		t.Errorf("file not overwritten: %q", data)
	}
}

func TestCallCounter(t *testing.T) {
	var c CallCounter

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Record(i)
		}(i)
	}
	wg.Wait()

	if c.Count() != 10 {
		t.Errorf("Count() = %d, want 10", c.Count())
	}
	if len(c.Calls()) != 10 {
		t.Errorf("Calls() len = %d, want 10", len(c.Calls()))
	}

	c.Reset()
	if c.Count() != 0 || len(c.Calls()) != 0 {
		t.Errorf("expected empty counter after Reset")
	}
}
