package search

import (
	"testing"

	"kadaipos/engine/internal/domain"
)

func catalog() []domain.Product {
	return []domain.Product{
		{ID: "soda", ProductCode: "7", Barcode: "8901001000059", NameEN: "7-Up 750ml"},
		{ID: "biscuit", ProductCode: "BIS-7", Barcode: "777000111", NameEN: "Marie Biscuit"},
		{ID: "rice", ProductCode: "RICE-01", Barcode: "8901001000011", NameEN: "Ponni Rice 1kg", NameTA: "பொன்னி அரிசி"},
		{ID: "ricecake", ProductCode: "IDLY-01", NameEN: "Rice Cake Mix"},
		{ID: "soap", ProductCode: "SOAP-01", NameEN: "Bath Soap"},
	}
}

// A product whose code is exactly the query must beat products that merely
// contain it in a name or barcode, no matter how they sort alphabetically.
func TestRankExactCodeWins(t *testing.T) {
	got := Rank(catalog(), "7")
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != "soda" {
		t.Errorf("first result = %s, want soda (exact code match)", got[0].ID)
	}
	if got[1].ID != "biscuit" {
		t.Errorf("second result = %s, want biscuit", got[1].ID)
	}
}

func TestRankPrefixBeforeSubstring(t *testing.T) {
	got := Rank(catalog(), "rice")
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2: %v", len(got), got)
	}
	// "Rice Cake Mix" is a name prefix; "Ponni Rice 1kg" only contains it.
	if got[0].ID != "ricecake" || got[1].ID != "rice" {
		t.Errorf("order = [%s %s], want [ricecake rice]", got[0].ID, got[1].ID)
	}
}

func TestRankExactBarcode(t *testing.T) {
	got := Rank(catalog(), "8901001000011")
	if len(got) != 1 || got[0].ID != "rice" {
		t.Fatalf("got %v, want just rice", got)
	}
}

func TestRankCaseInsensitive(t *testing.T) {
	got := Rank(catalog(), "BATH soap")
	if len(got) != 1 || got[0].ID != "soap" {
		t.Fatalf("got %v, want just soap", got)
	}
}

func TestRankTamilName(t *testing.T) {
	got := Rank(catalog(), "அரிசி")
	if len(got) != 1 || got[0].ID != "rice" {
		t.Fatalf("got %v, want rice via Tamil name", got)
	}
}

func TestRankAlphabeticalWithinTier(t *testing.T) {
	products := []domain.Product{
		{ID: "b", NameEN: "soap bar B"},
		{ID: "a", NameEN: "soap bar A"},
	}
	got := Rank(products, "soap")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("got %v, want alphabetical order within the tier", got)
	}
}

func TestRankEmptyQuery(t *testing.T) {
	if got := Rank(catalog(), "   "); got != nil {
		t.Fatalf("got %v, want nil for a blank query", got)
	}
}

func TestMatches(t *testing.T) {
	p := domain.Product{ProductCode: "RICE-01", NameEN: "Ponni Rice 1kg"}
	if !Matches(p, "ponni") {
		t.Error("expected a name substring to match")
	}
	if Matches(p, "sugar") {
		t.Error("unexpected match for unrelated query")
	}
	if Matches(p, "") {
		t.Error("blank query must not match")
	}
}
