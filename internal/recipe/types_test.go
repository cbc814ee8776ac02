package recipe

import "testing"

func validRecipe() Recipe {
	return Recipe{
		Name:            "Hello",
		Version:         "2.10.0",
		Description:     "hello world",
		TargetArch:      "x86_64",
		Dependencies:    []string{"libdummy", "base >= 1.0.0"},
		SourceURL:       "https://example.invalid/hello-2.10.0.tar.gz",
		SHA256Sum:       "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		BuildCommands:   []string{"make"},
		InstallCommands: []string{"make install"},
	}
}

func TestValidateLowercasesName(t *testing.T) {
	r := validRecipe()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.Name != "hello" {
		t.Errorf("expected lowercased name, got %q", r.Name)
	}
	if r.ParsedVersion().String() != "2.10.0" {
		t.Errorf("unexpected parsed version %q", r.ParsedVersion())
	}
	if len(r.ParsedDependencies()) != 2 {
		t.Fatalf("expected 2 parsed dependencies, got %d", len(r.ParsedDependencies()))
	}
}

func TestValidateRejectsEmptyName(t *testing.T) {
	r := validRecipe()
	r.Name = "   "
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestValidateRejectsBadVersion(t *testing.T) {
	r := validRecipe()
	r.Version = "2.10"
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for malformed version")
	}
}

func TestValidateRejectsShortSHA(t *testing.T) {
	r := validRecipe()
	r.SHA256Sum = "abc123"
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for short sha256_sum")
	}
}

func TestValidateRejectsUppercaseSHA(t *testing.T) {
	r := validRecipe()
	r.SHA256Sum = "0123456789ABCDEF0123456789abcdef0123456789abcdef0123456789abcdef"
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for uppercase hex in sha256_sum")
	}
}

func TestValidateRejectsMalformedDependency(t *testing.T) {
	r := validRecipe()
	r.Dependencies = []string{"libdummy >= notaversion"}
	if err := r.Validate(); err == nil {
		t.Fatal("expected error for malformed dependency constraint")
	}
}
