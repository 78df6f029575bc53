package matching

import "testing"

func TestClassifyIndexed_MatchesFullScan(t *testing.T) {
	catalog := catalogOf("Acme Spirits", "Glenlivet Company", "xy brandnamezz", "xy brandnamez", "Macallan")
	idx := NewIndex(catalog, -1)
	names := []string{"Acme Spirit", "The Glenlivet Co", "xy brandname", "Zyx Corp", "Macallan", "", "!!!"}
	for _, name := range names {
		full := Classify(name, catalog)
		indexed := ClassifyIndexed(name, idx, DefaultThreshold)
		if full.Kind != indexed.Kind || full.Match != indexed.Match || full.Score != indexed.Score {
			t.Fatalf("%q: full scan %s/%v/%v, indexed %s/%v/%v", name,
				full.Kind, full.Match, full.Score, indexed.Kind, indexed.Match, indexed.Score)
		}
	}
}

func TestClassifyIndexed_TokenBucketWithoutFallback(t *testing.T) {
	catalog := catalogOf("Zyx Corp", "Acme Spirits")
	idx := NewIndex(catalog, 0)

	v := ClassifyIndexed("Acme Spirit", idx, DefaultThreshold)
	if v.Kind != VerdictFuzzy || v.Match.name != "Acme Spirits" {
		t.Fatalf("expected fuzzy Acme Spirits, got %s %+v", v.Kind, v.Match)
	}
	v = ClassifyIndexed("Zyx Corp", idx, DefaultThreshold)
	if v.Kind != VerdictExact {
		t.Fatalf("expected exact, got %s", v.Kind)
	}
}

func TestClassifyIndexed_FallbackWindow(t *testing.T) {
	// different first token; only reachable through the fallback scan
	catalog := catalogOf("Akme Spirits")

	if v := ClassifyIndexed("Acme Spirits", NewIndex(catalog, 0), DefaultThreshold); v.Kind != VerdictNew {
		t.Fatalf("expected new without fallback, got %s", v.Kind)
	}
	if v := ClassifyIndexed("Acme Spirits", NewIndex(catalog, 1), DefaultThreshold); v.Kind != VerdictFuzzy {
		t.Fatalf("expected fuzzy with fallback, got %s", v.Kind)
	}
}

func TestNewIndex_DuplicateExactKeepsFirst(t *testing.T) {
	catalog := catalogOf("Acme", "Acme")
	v := ClassifyIndexed("Acme", NewIndex(catalog, DefaultFallbackScan), DefaultThreshold)
	if v.Kind != VerdictExact || v.Match.id != 1 {
		t.Fatalf("expected exact on id 1, got %s %+v", v.Kind, v.Match)
	}
}
