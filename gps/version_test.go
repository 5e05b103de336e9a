package gps

import "testing"

func TestParseVersionVPrefix(t *testing.T) {
	v, err := ParseVersion("v1.2.3")
	if err != nil {
		t.Fatalf("ParseVersion: %v", err)
	}
	if got, want := v.Canonical(), "1.2.3"; got != want {
		t.Errorf("Canonical() = %q, want %q", got, want)
	}
}

func TestParseVersionRejectsNonSemver(t *testing.T) {
	if _, err := ParseVersion("not-a-version"); err == nil {
		t.Fatal("expected an error for a non-semver tag")
	}
}

func TestVersionEqualAcrossSparseForms(t *testing.T) {
	a, err := ParseVersion("1.1")
	if err != nil {
		t.Fatalf("ParseVersion(1.1): %v", err)
	}
	b, err := ParseVersion("v1.1.0")
	if err != nil {
		t.Fatalf("ParseVersion(v1.1.0): %v", err)
	}
	if !a.Equal(b) {
		t.Errorf("expected %q and %q to be equal", a, b)
	}
	if a.Canonical() != b.Canonical() {
		t.Errorf("expected equivalent tags to render identically: %q vs %q", a.Canonical(), b.Canonical())
	}
}

func TestVersionPrereleaseSortsBelowRelease(t *testing.T) {
	release, _ := ParseVersion("1.0.0")
	pre, _ := ParseVersion("1.0.0-beta.1")

	if !pre.IsPrerelease() {
		t.Fatal("expected 1.0.0-beta.1 to be a prerelease")
	}
	if pre.Compare(release) >= 0 {
		t.Errorf("expected prerelease to sort below release, got Compare=%d", pre.Compare(release))
	}
}

func TestSortDescending(t *testing.T) {
	tags := []string{"1.0.0", "2.1.0", "1.5.0", "2.0.0-alpha"}
	var versions []Version
	for _, tag := range tags {
		v, err := ParseVersion(tag)
		if err != nil {
			t.Fatalf("ParseVersion(%q): %v", tag, err)
		}
		versions = append(versions, v)
	}

	SortDescending(versions)

	want := []string{"2.1.0", "2.0.0-alpha", "1.5.0", "1.0.0"}
	for i, w := range want {
		if got := versions[i].Canonical(); got != w {
			t.Errorf("versions[%d] = %q, want %q", i, got, w)
		}
	}
}

func TestToolsVersionAdmitted(t *testing.T) {
	current := ToolsVersion{Major: 5, Minor: 9, Patch: 0}

	cases := []struct {
		name     string
		declared ToolsVersion
		want     bool
	}{
		{"at ceiling", ToolsVersion{5, 9, 0}, true},
		{"below ceiling", ToolsVersion{5, 0, 0}, true},
		{"above ceiling", ToolsVersion{6, 0, 0}, false},
		{"below minimum", ToolsVersion{2, 9, 0}, false},
		{"at minimum", MinimumSupportedToolsVersion, true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := ToolsVersionAdmitted(c.declared, current); got != c.want {
				t.Errorf("ToolsVersionAdmitted(%v, %v) = %v, want %v", c.declared, current, got, c.want)
			}
		})
	}
}

func TestToolsVersionAdmittedIsMonotonic(t *testing.T) {
	declared := ToolsVersion{4, 0, 0}
	lower := ToolsVersion{4, 0, 0}
	higher := ToolsVersion{5, 0, 0}

	if !ToolsVersionAdmitted(declared, lower) {
		t.Fatal("expected admission at the declared version's own ceiling")
	}
	if !ToolsVersionAdmitted(declared, higher) {
		t.Error("expected admission to remain true under a higher ceiling")
	}
}
