package chunker

import (
	"strconv"
	"strings"
)

// parseRef extracts chapter and verse from a catalog-style ref such as
// "Likutei_Moharan.24:3". The chapter follows the last "." and the verse,
// if present, follows ":". Components that fail to parse as positive
// integers are left unset rather than guessed at.
func parseRef(ref string) (chapter, verse string) {
	dot := strings.LastIndex(ref, ".")
	if dot < 0 || dot == len(ref)-1 {
		return "", ""
	}
	tail := ref[dot+1:]

	chapterPart := tail
	versePart := ""
	if colon := strings.Index(tail, ":"); colon >= 0 {
		chapterPart = tail[:colon]
		versePart = tail[colon+1:]
	}

	if !isPositiveInt(chapterPart) {
		return "", ""
	}
	chapter = chapterPart
	if isPositiveInt(versePart) {
		verse = versePart
	}
	return chapter, verse
}

func isPositiveInt(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n > 0
}

// sourceURL builds the public Sefaria page for a ref, chapter-level: the
// paragraph suffix is stripped so the link lands on a real page.
func sourceURL(ref string) string {
	if colon := strings.Index(ref, ":"); colon >= 0 {
		ref = ref[:colon]
	}
	return "https://www.sefaria.org/" + ref
}
