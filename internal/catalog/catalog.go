// Package catalog holds the static library of Breslov works known to the
// ingestion pipeline: each work's Sefaria slug, display title, and the
// number of chapters in each of its parts.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Work describes one work and its structural extent on Sefaria.
type Work struct {
	Slug     string
	Title    string
	Parts    int
	Chapters map[int]int // part number -> chapter count
}

// works is the full Rabbi Nachman corpus available on Sefaria.
var works = map[string]Work{
	"Likutei_Moharan": {
		Slug:     "Likutei_Moharan",
		Title:    "Likutei Moharan",
		Parts:    2,
		Chapters: map[int]int{1: 286, 2: 125},
	},
	"Sichot_HaRan": {
		Slug:     "Sichot_HaRan",
		Title:    "Sichot HaRan",
		Parts:    1,
		Chapters: map[int]int{1: 308},
	},
	"Sefer_HaMiddot": {
		Slug:     "Sefer_HaMiddot",
		Title:    "Sefer HaMiddot",
		Parts:    1,
		Chapters: map[int]int{1: 150},
	},
	"Likutei_Tefilot": {
		Slug:     "Likutei_Tefilot",
		Title:    "Likutei Tefilot",
		Parts:    2,
		Chapters: map[int]int{1: 211, 2: 25},
	},
	"Sippurei_Maasiyot": {
		Slug:     "Sippurei_Maasiyot",
		Title:    "Sippurei Maasiyot",
		Parts:    1,
		Chapters: map[int]int{1: 13},
	},
	"Shivchei_HaRan": {
		Slug:     "Shivchei_HaRan",
		Title:    "Shivchei HaRan",
		Parts:    1,
		Chapters: map[int]int{1: 50},
	},
	"Chayei_Moharan": {
		Slug:     "Chayei_Moharan",
		Title:    "Chayei Moharan",
		Parts:    1,
		Chapters: map[int]int{1: 600},
	},
}

// Get returns the work for the given slug.
func Get(slug string) (Work, error) {
	w, ok := works[slug]
	if !ok {
		return Work{}, fmt.Errorf("unknown work: %s", slug)
	}
	return w, nil
}

// All returns every known work, sorted by slug for stable iteration.
func All() []Work {
	out := make([]Work, 0, len(works))
	for _, w := range works {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Match resolves a list of selectors to works. A selector is either an
// exact slug or a doublestar glob over slugs (e.g. "Likutei_*"). An empty
// selector list means the whole catalog.
func Match(selectors []string) ([]Work, error) {
	if len(selectors) == 0 {
		return All(), nil
	}

	seen := make(map[string]bool)
	var out []Work
	for _, sel := range selectors {
		sel = strings.TrimSpace(sel)
		if sel == "" {
			continue
		}

		if w, ok := works[sel]; ok {
			if !seen[w.Slug] {
				seen[w.Slug] = true
				out = append(out, w)
			}
			continue
		}

		matched := false
		for _, w := range All() {
			ok, err := doublestar.Match(sel, w.Slug)
			if err != nil {
				return nil, fmt.Errorf("bad work selector %q: %w", sel, err)
			}
			if ok {
				matched = true
				if !seen[w.Slug] {
					seen[w.Slug] = true
					out = append(out, w)
				}
			}
		}
		if !matched {
			return nil, fmt.Errorf("unknown work: %s", sel)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

// Refs enumerates every chapter reference of the work, in order. References
// in a second part carry the ",_Part_2" suffix Sefaria uses for those works.
func (w Work) Refs() []string {
	var refs []string
	for part := 1; part <= w.Parts; part++ {
		partRef := w.Slug
		if w.Parts > 1 && part == 2 {
			partRef = w.Slug + ",_Part_2"
		}
		for chapter := 1; chapter <= w.Chapters[part]; chapter++ {
			refs = append(refs, fmt.Sprintf("%s.%d", partRef, chapter))
		}
	}
	return refs
}

// TotalChapters returns the chapter count across all parts.
func (w Work) TotalChapters() int {
	total := 0
	for _, n := range w.Chapters {
		total += n
	}
	return total
}
