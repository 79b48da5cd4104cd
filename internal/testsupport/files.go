package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteLinesFile writes one text line per entry to path and returns it.
func WriteLinesFile(t testing.TB, path string, entries ...string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := strings.Join(entries, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
