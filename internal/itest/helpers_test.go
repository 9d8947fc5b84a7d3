//go:build integration

package itest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/forPelevin/autocut/internal/types"
)

// mustRepoRoot resolves the module root from this file's location, two
// levels below it.
func mustRepoRoot(t *testing.T) string {
	t.Helper()

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("repo root: no caller information")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		t.Fatalf("repo root %s: %v", root, err)
	}
	return root
}

// fixture returns the path of a file under internal/itest/testdata.
func fixture(repoRoot, name string) string {
	return filepath.Join(repoRoot, "internal", "itest", "testdata", name)
}

func readReport(t *testing.T, path string) types.Report {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var rep types.Report
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	return rep
}
