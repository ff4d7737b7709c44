package tags

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"CSharp":              "csharp",
		"  dotnet ":           "dotnet",
		"ASP.NET":             "asp.net",
		"Machine\t  Learning": "machine learning",
		"   ":                 "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeAll_Dedupes(t *testing.T) {
	got := NormalizeAll([]string{"Go", "go ", "GO", "", "Rust"})
	want := []string{"go", "rust"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeAll = %v, want %v", got, want)
	}
}

func TestSplitCSVAndClean(t *testing.T) {
	got := Clean(SplitCSV("CSharp,  dotnet ,  ASP.NET, csharp,,"))
	want := []string{"CSharp", "dotnet", "ASP.NET"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Clean(SplitCSV) = %v, want %v", got, want)
	}
}

func TestContainsAll(t *testing.T) {
	have := []string{"go", "web", "notes"}
	if !ContainsAll(have, []string{"go", "notes"}) {
		t.Error("expected superset match")
	}
	if ContainsAll(have, []string{"go", "rust"}) {
		t.Error("rust is not present")
	}
	if !ContainsAll(have, nil) {
		t.Error("empty requirement always matches")
	}
}

func TestIndex_SortedAndSuggest(t *testing.T) {
	ix := NewIndex()
	ix.Add("a.md", []string{"Go", "Web"})
	ix.Add("b.md", []string{"go", "gardening"})
	ix.Add("c.md", []string{"GO"})

	sorted := ix.Sorted()
	want := []Count{{"go", 3}, {"gardening", 1}, {"web", 1}}
	if !reflect.DeepEqual(sorted, want) {
		t.Errorf("Sorted = %v, want %v", sorted, want)
	}

	sug := ix.Suggest("G", 10)
	if !reflect.DeepEqual(sug, []string{"gardening", "go"}) {
		t.Errorf("Suggest = %v", sug)
	}
	if got := ix.Suggest("g", 1); len(got) != 1 || got[0] != "gardening" {
		t.Errorf("capped Suggest = %v", got)
	}
	if !reflect.DeepEqual(ix.ByPath["a.md"], []string{"go", "web"}) {
		t.Errorf("ByPath[a.md] = %v", ix.ByPath["a.md"])
	}
}
