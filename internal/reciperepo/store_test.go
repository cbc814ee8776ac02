package reciperepo

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRecipe(t *testing.T, dir, name, version string) {
	t.Helper()
	content := `
name = "` + name + `"
version = "` + version + `"
description = "test"
target_arch = "x86_64"
dependencies = []
source_url = "https://example.invalid/` + name + `.tar.gz"
sha256_sum = "` + strings64() + `"
build_commands = ["make"]
install_commands = ["make install"]
`
	if err := os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func strings64() string {
	s := ""
	for i := 0; i < 64; i++ {
		s += "a"
	}
	return s
}

func TestLoadAndListAll(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "libdummy", "1.0.0")
	writeRecipe(t, dir, "hello", "2.10.0")

	store := New(dir)

	r, err := store.Load("libdummy")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if r.Version != "1.0.0" {
		t.Errorf("got version %q", r.Version)
	}

	all, errs := store.ListAll()
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 recipes, got %d", len(all))
	}
}

func TestLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	_, err := store.Load("missing")
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v (%T)", err, err)
	}
}

func TestSearchRanking(t *testing.T) {
	dir := t.TempDir()
	writeRecipe(t, dir, "hello", "1.0.0")
	writeRecipe(t, dir, "libhello", "1.0.0")
	writeRecipe(t, dir, "hxexlxlxo", "1.0.0")

	store := New(dir)
	results := store.Search("hello")

	if len(results) != 3 {
		t.Fatalf("expected 3 matches, got %v", results)
	}
	if results[0] != "hello" {
		t.Errorf("expected exact-prefix match first, got %v", results)
	}
	if results[1] != "libhello" {
		t.Errorf("expected substring match second, got %v", results)
	}
}
