package semver

import "testing"

func TestParseValid(t *testing.T) {
	cases := []string{"0.0.0", "1.2.3", "10.20.30", "1.0.0"}
	for _, c := range cases {
		v, err := Parse(c)
		if err != nil {
			t.Fatalf("Parse(%q) unexpected error: %v", c, err)
		}
		if v.String() != c {
			t.Errorf("Parse(%q).String() = %q, want %q", c, v.String(), c)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []string{"1.2", "1.2.3.4", "1.2.-3", "a.b.c", "1.2.3-alpha", "1.2.3+build", "v1.2.3", "01.2.3", ""}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("Parse(%q) expected error, got none", c)
		}
	}
}

func TestCompare(t *testing.T) {
	a, _ := Parse("1.2.3")
	b, _ := Parse("1.2.4")
	c, _ := Parse("1.2.3")

	if !a.LessThan(b) {
		t.Error("expected 1.2.3 < 1.2.4")
	}
	if !b.GreaterThan(a) {
		t.Error("expected 1.2.4 > 1.2.3")
	}
	if !a.Equal(c) {
		t.Error("expected 1.2.3 == 1.2.3")
	}
}
