package planner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"raven/internal/catalog"
	"raven/internal/reactor"
	"raven/internal/reciperepo"
	"raven/internal/rvconfig"
)

func writeRecipe(t *testing.T, dir, name, version string, deps []string) {
	t.Helper()
	depsLine := "[]"
	if len(deps) > 0 {
		quoted := make([]string, len(deps))
		for i, d := range deps {
			quoted[i] = `"` + d + `"`
		}
		depsLine = "[" + joinComma(quoted) + "]"
	}
	content := "name = \"" + name + "\"\n" +
		"version = \"" + version + "\"\n" +
		"description = \"test\"\n" +
		"target_arch = \"x86_64\"\n" +
		"dependencies = " + depsLine + "\n" +
		"source_url = \"https://example.invalid/" + name + ".tar.gz\"\n" +
		"sha256_sum = \"0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef\"\n" +
		"build_commands = []\n" +
		"install_commands = []\n"
	if err := os.WriteFile(filepath.Join(dir, name+".toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func joinComma(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}

func setup(t *testing.T) (*Planner, *catalog.Catalog, string) {
	t.Helper()
	recipesDir := t.TempDir()
	cat, err := catalog.Open(filepath.Join(t.TempDir(), "metadata.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })
	store := reciperepo.New(recipesDir)
	cfg := rvconfig.New()
	liveRoot := t.TempDir()
	p := New(cfg, cat, store, liveRoot, nil)
	return p, cat, recipesDir
}

func TestInstallAlreadyInstalledIsNoop(t *testing.T) {
	p, cat, dir := setup(t)
	writeRecipe(t, dir, "libdummy", "1.0.0", nil)

	ctx := context.Background()
	txn, err := cat.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := txn.Insert(ctx, "libdummy", "1.0.0", nil, nil); err != nil {
		t.Fatal(err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	_, err = p.Install(ctx, "libdummy")
	if _, ok := err.(*AlreadyInstalledError); !ok {
		t.Fatalf("expected *AlreadyInstalledError, got %T: %v", err, err)
	}
}

func TestInstallUnknownRecipeFails(t *testing.T) {
	p, _, _ := setup(t)
	_, err := p.Install(context.Background(), "nosuchpkg")
	if _, ok := err.(*reciperepo.NotFoundError); !ok {
		t.Fatalf("expected *reciperepo.NotFoundError, got %T: %v", err, err)
	}
}

func TestInstallDetectsCycle(t *testing.T) {
	p, _, dir := setup(t)
	writeRecipe(t, dir, "a", "1.0.0", []string{"b"})
	writeRecipe(t, dir, "b", "1.0.0", []string{"a"})

	_, err := p.Install(context.Background(), "a")
	if _, ok := err.(*reactor.CycleError); !ok {
		t.Fatalf("expected *reactor.CycleError, got %T: %v", err, err)
	}
}

func TestInstallVersionMismatch(t *testing.T) {
	p, _, dir := setup(t)
	writeRecipe(t, dir, "libdummy", "1.0.0", nil)
	writeRecipe(t, dir, "app_strict", "1.0.0", []string{"libdummy >= 2.0.0"})

	_, err := p.Install(context.Background(), "app_strict")
	if _, ok := err.(*reactor.VersionMismatchError); !ok {
		t.Fatalf("expected *reactor.VersionMismatchError, got %T: %v", err, err)
	}
}

func TestRemoveNotInstalled(t *testing.T) {
	p, _, _ := setup(t)
	err := p.Remove(context.Background(), "nope")
	if _, ok := err.(*NotInstalledError); !ok {
		t.Fatalf("expected *NotInstalledError, got %T: %v", err, err)
	}
}

func TestSearchRanksExactPrefixFirst(t *testing.T) {
	p, _, dir := setup(t)
	writeRecipe(t, dir, "hello", "1.0.0", nil)
	writeRecipe(t, dir, "shell", "1.0.0", nil)

	got := p.Search("hell")
	if len(got) != 2 || got[0] != "hello" {
		t.Fatalf("expected hello ranked first, got %v", got)
	}
}
