package enums

import "testing"

func TestParseSortField(t *testing.T) {
	for _, field := range SortFields() {
		got, err := ParseSortField(" " + string(field) + " ")
		if err != nil {
			t.Fatalf("expected %q to parse: %v", field, err)
		}
		if got != field {
			t.Fatalf("expected %q, got %q", field, got)
		}
	}
	if _, err := ParseSortField("discount_percentage"); err == nil {
		t.Fatal("expected discount_percentage to be rejected")
	}
	if SortField("Name").IsValid() {
		t.Fatal("field names are case sensitive")
	}
}

func TestSortDirection(t *testing.T) {
	cases := map[string]SortDirection{"asc": SortAscending, "DESC": SortDescending, "descending": SortDescending}
	for raw, want := range cases {
		got, err := ParseSortDirection(raw)
		if err != nil || got != want {
			t.Fatalf("ParseSortDirection(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseSortDirection("up"); err == nil {
		t.Fatal("expected invalid direction error")
	}
	if SortAscending.Reverse() != SortDescending || SortDescending.Reverse() != SortAscending {
		t.Fatal("Reverse should flip direction")
	}
}

func TestParseScrapeStatus(t *testing.T) {
	if s, err := ParseScrapeStatus("failed"); err != nil || s != ScrapeStatusFailed {
		t.Fatalf("unexpected parse result %q %v", s, err)
	}
	if ScrapeStatus("queued").IsValid() {
		t.Fatal("queued is not a scrape status")
	}
}
