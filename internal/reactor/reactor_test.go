package reactor

import (
	"context"
	"testing"

	"raven/internal/catalog"
	"raven/internal/reciperepo"
	"raven/internal/recipe"
)

// fakeCatalog and fakeRecipes let the Reactor's algorithm be tested without
// a real SQLite database or disk directory.

type fakeCatalog struct {
	installed map[string]*catalog.InstalledPackage
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{installed: map[string]*catalog.InstalledPackage{}}
}

func (f *fakeCatalog) Get(_ context.Context, name string) (*catalog.InstalledPackage, error) {
	return f.installed[name], nil
}

func (f *fakeCatalog) ReverseDeps(_ context.Context, name string) ([]string, error) {
	var out []string
	for n, pkg := range f.installed {
		for _, d := range pkg.Deps {
			c, _ := parseName(d)
			if c == name {
				out = append(out, n)
			}
		}
	}
	return out, nil
}

func parseName(constraint string) (string, bool) {
	for i := 0; i < len(constraint); i++ {
		if constraint[i] == ' ' {
			return constraint[:i], true
		}
	}
	return constraint, false
}

type fakeRecipes struct {
	recipes map[string]*recipe.Recipe
}

func newFakeRecipes() *fakeRecipes {
	return &fakeRecipes{recipes: map[string]*recipe.Recipe{}}
}

func (f *fakeRecipes) Load(name string) (*recipe.Recipe, error) {
	r, ok := f.recipes[name]
	if !ok {
		return nil, &reciperepo.NotFoundError{Name: name}
	}
	return r, nil
}

func mustRecipe(t *testing.T, name, version string, deps []string) *recipe.Recipe {
	t.Helper()
	r := &recipe.Recipe{
		Name:            name,
		Version:         version,
		Dependencies:    deps,
		SourceURL:       "https://example.invalid/" + name,
		SHA256Sum:       "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		BuildCommands:   []string{"make"},
		InstallCommands: []string{"make install"},
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("invalid test fixture recipe %s: %v", name, err)
	}
	return r
}

func TestResolveSimpleChain(t *testing.T) {
	rc := newFakeRecipes()
	rc.recipes["libdummy"] = mustRecipe(t, "libdummy", "1.0.0", nil)
	rc.recipes["hello"] = mustRecipe(t, "hello", "2.10.0", []string{"libdummy"})

	r := New(newFakeCatalog(), rc)
	plan, err := r.Resolve(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan.Recipes) != 2 {
		t.Fatalf("expected 2 recipes in plan, got %d", len(plan.Recipes))
	}
	if plan.Recipes[0].Name != "libdummy" || plan.Recipes[1].Name != "hello" {
		t.Errorf("expected libdummy before hello, got %v, %v", plan.Recipes[0].Name, plan.Recipes[1].Name)
	}
}

func TestResolveAlreadySatisfied(t *testing.T) {
	rc := newFakeRecipes()
	rc.recipes["hello"] = mustRecipe(t, "hello", "2.10.0", []string{"libdummy"})

	fc := newFakeCatalog()
	fc.installed["libdummy"] = &catalog.InstalledPackage{Name: "libdummy", Version: "1.0.0"}

	r := New(fc, rc)
	plan, err := r.Resolve(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan.Recipes) != 1 || plan.Recipes[0].Name != "hello" {
		t.Errorf("expected only hello in plan, got %v", plan.Recipes)
	}
}

func TestResolveVersionMismatch(t *testing.T) {
	rc := newFakeRecipes()
	rc.recipes["libdummy"] = mustRecipe(t, "libdummy", "1.0.0", nil)
	rc.recipes["app_strict"] = mustRecipe(t, "app_strict", "1.0.0", []string{"libdummy >= 2.0.0"})

	r := New(newFakeCatalog(), rc)
	_, err := r.Resolve(context.Background(), "app_strict")
	if err == nil {
		t.Fatal("expected VersionMismatchError")
	}
	if _, ok := err.(*VersionMismatchError); !ok {
		t.Fatalf("expected *VersionMismatchError, got %T: %v", err, err)
	}
}

func TestResolveUnresolved(t *testing.T) {
	rc := newFakeRecipes()
	rc.recipes["app"] = mustRecipe(t, "app", "1.0.0", []string{"missing"})

	r := New(newFakeCatalog(), rc)
	_, err := r.Resolve(context.Background(), "app")
	if _, ok := err.(*UnresolvedError); !ok {
		t.Fatalf("expected *UnresolvedError, got %T: %v", err, err)
	}
}

func TestResolveCycle(t *testing.T) {
	rc := newFakeRecipes()
	rc.recipes["a"] = mustRecipe(t, "a", "1.0.0", []string{"b"})
	rc.recipes["b"] = mustRecipe(t, "b", "1.0.0", []string{"a"})

	r := New(newFakeCatalog(), rc)
	_, err := r.Resolve(context.Background(), "a")
	if _, ok := err.(*CycleError); !ok {
		t.Fatalf("expected *CycleError, got %T: %v", err, err)
	}
}

func TestResolveConflictingReverseDep(t *testing.T) {
	rc := newFakeRecipes()
	rc.recipes["libdummy"] = mustRecipe(t, "libdummy", "2.0.0", nil)

	fc := newFakeCatalog()
	fc.installed["hello"] = &catalog.InstalledPackage{
		Name: "hello", Version: "1.0.0", Deps: []string{"libdummy < 2.0.0"},
	}

	r := New(fc, rc)
	_, err := r.Resolve(context.Background(), "libdummy")
	if _, ok := err.(*ConflictingReverseDepError); !ok {
		t.Fatalf("expected *ConflictingReverseDepError, got %T: %v", err, err)
	}
}
