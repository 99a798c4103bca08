package chunker

import (
	"fmt"
	"strings"

	"github.com/nlerner/breslov-rag/internal/vectordb"
)

// MinChunkLength is the shortest trimmed body kept by Optimize. Fragments
// below it carry too little signal to be worth a vector.
const MinChunkLength = 100

// Optimize filters out undersized chunks and stamps each survivor with a
// human-readable citation prefix. Running it again over its own output is
// a no-op: surviving documents keep their single prefix and are not dropped
// for being short, since the prefix only ever grows the body.
func Optimize(docs []vectordb.Document) []vectordb.Document {
	out := make([]vectordb.Document, 0, len(docs))
	for _, doc := range docs {
		body := strings.TrimSpace(doc.Body)
		prefix := citation(doc.Metadata)

		if strings.HasPrefix(body, prefix) {
			doc.Body = body
			out = append(out, doc)
			continue
		}
		if len(body) < MinChunkLength {
			continue
		}
		doc.Body = prefix + body
		out = append(out, doc)
	}
	return out
}

// citation renders "[Book - chapter N - verse M]\n\n", dropping the parts
// the metadata does not carry.
func citation(m vectordb.Metadata) string {
	book := strings.ReplaceAll(m.Book, "_", " ")
	parts := []string{book}
	if m.Chapter != "" {
		parts = append(parts, "chapter "+m.Chapter)
	}
	if m.Verse != "" {
		parts = append(parts, "verse "+m.Verse)
	}
	return fmt.Sprintf("[%s]\n\n", strings.Join(parts, " - "))
}

// ChunkStats summarizes an optimized document set.
type ChunkStats struct {
	Total    int
	PerBook  map[string]int
	AvgChars int
}

// CollectStats tallies chunk counts per book and the mean body length.
func CollectStats(docs []vectordb.Document) ChunkStats {
	stats := ChunkStats{PerBook: make(map[string]int)}
	totalChars := 0
	for _, doc := range docs {
		stats.Total++
		stats.PerBook[doc.Metadata.Book]++
		totalChars += len(doc.Body)
	}
	if stats.Total > 0 {
		stats.AvgChars = totalChars / stats.Total
	}
	return stats
}
