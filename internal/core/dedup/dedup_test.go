package dedup

import (
	"testing"

	"github.com/logship/logship/internal/core/domain"
)

func records(ids ...string) []domain.Record {
	rs := make([]domain.Record, len(ids))
	for i, id := range ids {
		rs[i] = domain.Record{ID: id}
	}
	return rs
}

func idSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestFilterRemovesUploaded(t *testing.T) {
	got := Filter(records("a", "b", "c"), idSet("b"), true)

	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("got [%s %s], want [a c] in order", got[0].ID, got[1].ID)
	}
}

func TestFilterDisabledIsIdentity(t *testing.T) {
	in := records("a", "b", "c")
	got := Filter(in, idSet("b"), false)

	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i := range in {
		if got[i].ID != in[i].ID {
			t.Errorf("record %d = %s, want %s", i, got[i].ID, in[i].ID)
		}
	}
}

func TestFilterEmptyUploadedSet(t *testing.T) {
	got := Filter(records("a", "b"), idSet(), true)
	if len(got) != 2 {
		t.Errorf("got %d records, want 2", len(got))
	}
}

func TestFilterAllUploaded(t *testing.T) {
	got := Filter(records("a", "b"), idSet("a", "b"), true)
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestExtractIDs(t *testing.T) {
	ids := ExtractIDs(records("a", "b", "c"))
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("ExtractIDs = %v, want [a b c]", ids)
	}
}
