package catalog

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	w, err := Get("Likutei_Moharan")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if w.Title != "Likutei Moharan" {
		t.Errorf("title: got %q, want %q", w.Title, "Likutei Moharan")
	}
	if w.TotalChapters() != 286+125 {
		t.Errorf("total chapters: got %d, want %d", w.TotalChapters(), 286+125)
	}

	if _, err := Get("Zohar"); err == nil {
		t.Error("expected error for unknown work")
	}
}

func TestRefs(t *testing.T) {
	w, err := Get("Likutei_Moharan")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	refs := w.Refs()
	if len(refs) != 286+125 {
		t.Fatalf("refs: got %d, want %d", len(refs), 286+125)
	}
	if refs[0] != "Likutei_Moharan.1" {
		t.Errorf("first ref: got %q", refs[0])
	}
	if refs[285] != "Likutei_Moharan.286" {
		t.Errorf("last part-1 ref: got %q", refs[285])
	}
	if refs[286] != "Likutei_Moharan,_Part_2.1" {
		t.Errorf("first part-2 ref: got %q", refs[286])
	}
}

func TestRefsSinglePart(t *testing.T) {
	w, err := Get("Sippurei_Maasiyot")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	refs := w.Refs()
	if len(refs) != 13 {
		t.Fatalf("refs: got %d, want 13", len(refs))
	}
	for _, ref := range refs {
		if strings.Contains(ref, "Part") {
			t.Errorf("single-part work should not emit part refs, got %q", ref)
		}
	}
}

func TestMatch(t *testing.T) {
	all, err := Match(nil)
	if err != nil {
		t.Fatalf("Match(nil): %v", err)
	}
	if len(all) != 7 {
		t.Errorf("full catalog: got %d works, want 7", len(all))
	}

	one, err := Match([]string{"Sichot_HaRan"})
	if err != nil {
		t.Fatalf("Match exact: %v", err)
	}
	if len(one) != 1 || one[0].Slug != "Sichot_HaRan" {
		t.Errorf("exact match: got %v", one)
	}

	glob, err := Match([]string{"Likutei_*"})
	if err != nil {
		t.Fatalf("Match glob: %v", err)
	}
	if len(glob) != 2 {
		t.Errorf("glob match: got %d works, want 2", len(glob))
	}

	// Duplicate selectors must not duplicate works.
	dup, err := Match([]string{"Likutei_Moharan", "Likutei_*"})
	if err != nil {
		t.Fatalf("Match dup: %v", err)
	}
	if len(dup) != 2 {
		t.Errorf("dedup: got %d works, want 2", len(dup))
	}

	if _, err := Match([]string{"Nonexistent_Book"}); err == nil {
		t.Error("expected error for selector matching nothing")
	}
}
