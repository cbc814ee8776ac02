package semver

import "testing"

func TestParseConstraintBareName(t *testing.T) {
	c, err := ParseConstraint("libdummy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Bound {
		t.Fatal("expected unbound constraint")
	}
	v, _ := Parse("0.0.0")
	if !c.Satisfies(v) {
		t.Error("bare name constraint must accept any version")
	}
}

func TestParseConstraintOperators(t *testing.T) {
	cases := []struct {
		input string
		op    Op
		name  string
		ver   string
	}{
		{"libdummy >= 2.0.0", OpGE, "libdummy", "2.0.0"},
		{"libdummy>=2.0.0", OpGE, "libdummy", "2.0.0"},
		{"libdummy = 1.0.0", OpEQ, "libdummy", "1.0.0"},
		{"libdummy > 1.0.0", OpGT, "libdummy", "1.0.0"},
		{"libdummy <= 1.0.0", OpLE, "libdummy", "1.0.0"},
		{"libdummy < 1.0.0", OpLT, "libdummy", "1.0.0"},
	}
	for _, tc := range cases {
		c, err := ParseConstraint(tc.input)
		if err != nil {
			t.Fatalf("ParseConstraint(%q) unexpected error: %v", tc.input, err)
		}
		if c.Op != tc.op || c.Name != tc.name || c.Version.String() != tc.ver {
			t.Errorf("ParseConstraint(%q) = %+v, want op=%s name=%s ver=%s", tc.input, c, tc.op, tc.name, tc.ver)
		}
	}
}

func TestSatisfies(t *testing.T) {
	v1, _ := Parse("2.0.0")
	c, _ := ParseConstraint("libdummy >= 2.0.0")
	if !c.Satisfies(v1) {
		t.Error("2.0.0 should satisfy >= 2.0.0")
	}
	v0, _ := Parse("1.9.9")
	if c.Satisfies(v0) {
		t.Error("1.9.9 should not satisfy >= 2.0.0")
	}
}

func TestParseConstraintInvalid(t *testing.T) {
	cases := []string{"", "libdummy >= ", " >= 1.0.0", "libdummy >= 01.2.3"}
	for _, c := range cases {
		if _, err := ParseConstraint(c); err == nil {
			t.Errorf("ParseConstraint(%q) expected error", c)
		}
	}
}
