package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// Numbers decode as float64 unless dest says otherwise.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// CacheDir returns a not yet existing cache directory inside t.TempDir().
// Services create it on first use, the way they create the default location.
func CacheDir(t testing.TB) string {
	t.Helper()

	return filepath.Join(t.TempDir(), ".dcache")
}

// CorruptFiles overwrites every regular file under dir with garbage and
// returns how many it touched.
func CorruptFiles(t testing.TB, dir string) int {
	t.Helper()

	var n int
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		n++
		return os.WriteFile(path, []byte("not an entry"), 0o600)
	})
	if err != nil {
		t.Fatalf("failed to corrupt files under %s: %v", dir, err)
	}
	return n
}
