package gps

import "testing"

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"main", "mian", 2},
		{"develop", "develpo", 2},
	}

	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestClosestBranch(t *testing.T) {
	candidates := []string{"main", "develop", "release-1.0"}

	if got, want := closestBranch("mian", candidates, 2), "main"; got != want {
		t.Errorf("closestBranch(mian) = %q, want %q", got, want)
	}

	if got := closestBranch("completely-unrelated-name", candidates, 2); got != "" {
		t.Errorf("closestBranch(completely-unrelated-name) = %q, want no suggestion", got)
	}
}
