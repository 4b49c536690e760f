package catalog

import "testing"

func TestDefaultCatalogOrderAndMinimums(t *testing.T) {
	c := Default()

	list := c.List()
	if len(list) == 0 {
		t.Fatalf("default catalog is empty")
	}

	wantOrder := []string{"zakat", "sadqah", "education", "health", "emergency", "gaza"}
	if len(list) != len(wantOrder) {
		t.Fatalf("catalog size = %d, want %d", len(list), len(wantOrder))
	}

	for i, id := range wantOrder {
		if list[i].ID != id {
			t.Fatalf("list[%d].ID = %q, want %q", i, list[i].ID, id)
		}
	}

	for _, cat := range list {
		if cat.MinAmount <= 0 {
			t.Fatalf("category %q has non-positive MinAmount %v", cat.ID, cat.MinAmount)
		}
	}
}

func TestGet(t *testing.T) {
	c := Default()

	cat, ok := c.Get("zakat")
	if !ok {
		t.Fatalf("zakat not found")
	}
	if cat.Title != "Zakat" || cat.MinAmount != 50 {
		t.Fatalf("unexpected category: %+v", cat)
	}

	if _, ok := c.Get("unknown"); ok {
		t.Fatalf("unknown id must not resolve")
	}
}

func TestNewSkipsDuplicateIDs(t *testing.T) {
	c := New(Default().List())
	dup := append(c.List(), c.List()[0])

	c2 := New(dup)
	if len(c2.List()) != len(c.List()) {
		t.Fatalf("duplicate id was not skipped")
	}
}

func TestListReturnsCopy(t *testing.T) {
	c := Default()

	list := c.List()
	list[0].Title = "mutated"

	if c.List()[0].Title == "mutated" {
		t.Fatalf("List must return a copy of the catalog")
	}
}
