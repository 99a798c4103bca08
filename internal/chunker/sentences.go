package chunker

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// splitSentences cuts text into sentences on terminal punctuation and
// paragraph breaks. Hebrew sof pasuq and the colon Sefaria uses as a verse
// terminator both count. Whitespace-only fragments are dropped.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	flush := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?', '׃', ':':
			// Only break when followed by whitespace or end of text, so
			// abbreviations mid-word stay intact.
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		case '\n':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// windows builds the sliding context window around each sentence: the
// sentence plus up to buffer neighbors on each side, joined with spaces.
func windows(sentences []string, buffer int) []string {
	out := make([]string, len(sentences))
	for i := range sentences {
		lo := i - buffer
		if lo < 0 {
			lo = 0
		}
		hi := i + buffer + 1
		if hi > len(sentences) {
			hi = len(sentences)
		}
		out[i] = strings.Join(sentences[lo:hi], " ")
	}
	return out
}

// cosineDistance is 1 minus the cosine similarity of a and b. Zero vectors
// count as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// percentile returns the p-th percentile of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}
