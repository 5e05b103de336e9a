package gps

import "testing"

func TestProductFilterAdmits(t *testing.T) {
	everything := Everything()
	if !everything.Admits("anything") {
		t.Error("Everything() should admit any product name")
	}

	specific := SpecificProducts("Core", "Networking")
	if !specific.Admits("Core") {
		t.Error("expected SpecificProducts to admit a listed product")
	}
	if specific.Admits("Unlisted") {
		t.Error("expected SpecificProducts to reject an unlisted product")
	}
}

func TestProductFilterKeyDistinguishesFilters(t *testing.T) {
	a := SpecificProducts("Core")
	b := SpecificProducts("Networking")
	c := Everything()

	if a.key() == b.key() {
		t.Errorf("distinct product filters produced the same key: %q", a.key())
	}
	if a.key() == c.key() {
		t.Errorf("Everything() and a specific filter produced the same key: %q", a.key())
	}
}

func TestProductFilterKeyIsOrderIndependent(t *testing.T) {
	a := SpecificProducts("Core", "Networking")
	b := SpecificProducts("Networking", "Core")

	if a.key() != b.key() {
		t.Errorf("expected order-independent keys, got %q vs %q", a.key(), b.key())
	}
}

func TestFilteredDependenciesEverything(t *testing.T) {
	m := Manifest{
		Dependencies: []Dependency{
			{Ref: PackageReference{Identity: "a"}, Products: []string{"TargetA"}},
			{Ref: PackageReference{Identity: "b"}},
		},
	}

	got := m.FilteredDependencies(Everything())
	if len(got) != 2 {
		t.Fatalf("expected both dependencies under Everything(), got %d", len(got))
	}
}

func TestFilteredDependenciesByProduct(t *testing.T) {
	m := Manifest{
		Products: []Product{
			{Name: "Core", Targets: []string{"TargetA"}},
		},
		Dependencies: []Dependency{
			{Ref: PackageReference{Identity: "a"}, Products: []string{"TargetA"}},
			{Ref: PackageReference{Identity: "b"}, Products: []string{"TargetB"}},
			{Ref: PackageReference{Identity: "unconditional"}},
		},
	}

	got := m.FilteredDependencies(SpecificProducts("Core"))

	var identities []string
	for _, d := range got {
		identities = append(identities, string(d.Ref.Identity))
	}

	want := map[string]bool{"a": true, "unconditional": true}
	if len(identities) != len(want) {
		t.Fatalf("FilteredDependencies(Core) = %v, want keys of %v", identities, want)
	}
	for _, id := range identities {
		if !want[id] {
			t.Errorf("unexpected dependency %q admitted under Core filter", id)
		}
	}
}
