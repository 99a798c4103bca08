// Package chunker turns fetched passages into retrieval-sized documents by
// splitting on semantic boundaries rather than fixed character counts.
package chunker

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nlerner/breslov-rag/internal/embeddings"
	"github.com/nlerner/breslov-rag/internal/models"
	"github.com/nlerner/breslov-rag/internal/vectordb"
)

const (
	// DefaultBufferSize is how many neighboring sentences pad each side of
	// the sliding window embedded for boundary detection.
	DefaultBufferSize = 3
	// DefaultBreakpointPercentile: a boundary opens where the distance
	// between consecutive windows exceeds this percentile of all distances.
	DefaultBreakpointPercentile = 85
	// MinContentLength is the shortest combined passage worth chunking.
	MinContentLength = 50
)

// Chunker splits passages along semantic boundaries found by embedding
// sliding sentence windows and cutting where consecutive windows diverge.
type Chunker struct {
	embedder   embeddings.Embedder
	bufferSize int
	percentile float64
	minContent int
}

// New builds a Chunker with the default window and threshold settings.
func New(embedder embeddings.Embedder) *Chunker {
	return &Chunker{
		embedder:   embedder,
		bufferSize: DefaultBufferSize,
		percentile: DefaultBreakpointPercentile,
		minContent: MinContentLength,
	}
}

// WithBufferSize overrides the sentence window padding.
func (c *Chunker) WithBufferSize(n int) *Chunker {
	if n >= 0 {
		c.bufferSize = n
	}
	return c
}

// WithBreakpointPercentile overrides the split threshold percentile.
func (c *Chunker) WithBreakpointPercentile(p float64) *Chunker {
	if p > 0 && p <= 100 {
		c.percentile = p
	}
	return c
}

// Chunk splits one source text into documents. Passages whose combined
// content is under MinContentLength yield no documents and no error.
func (c *Chunker) Chunk(ctx context.Context, st models.SourceText) ([]vectordb.Document, error) {
	content := prepare(st)
	if len(content) < c.minContent {
		return nil, nil
	}

	pieces, err := c.split(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("chunking %s: %w", st.Ref, err)
	}

	chapter, verse := parseRef(st.Ref)
	docs := make([]vectordb.Document, 0, len(pieces))
	for i, body := range pieces {
		docs = append(docs, vectordb.Document{
			Body: body,
			Metadata: vectordb.Metadata{
				Book:        st.Title,
				Ref:         st.Ref,
				Language:    string(st.Language),
				ChunkIndex:  i,
				TotalChunks: len(pieces),
				Chapter:     chapter,
				Verse:       verse,
				SourceURL:   sourceURL(st.Ref),
				Version:     st.VersionTitle,
			},
		})
	}
	return docs, nil
}

// ChunkBatch runs Chunk over texts in order, calling progress after each
// item. A text that fails to chunk is logged and skipped so one bad passage
// cannot sink an ingestion run.
func (c *Chunker) ChunkBatch(ctx context.Context, texts []models.SourceText, progress func()) ([]vectordb.Document, error) {
	var docs []vectordb.Document
	for _, st := range texts {
		if err := ctx.Err(); err != nil {
			return docs, err
		}
		items, err := c.Chunk(ctx, st)
		if err != nil {
			log.Printf("chunker: skipping %s: %v", st.Ref, err)
		} else {
			docs = append(docs, items...)
		}
		if progress != nil {
			progress()
		}
	}
	return docs, nil
}

// split finds semantic boundaries in content and returns the resulting
// pieces. Texts with too few sentences to measure come back whole.
func (c *Chunker) split(ctx context.Context, content string) ([]string, error) {
	sentences := splitSentences(content)
	if len(sentences) <= 1 {
		return []string{content}, nil
	}

	vecs, err := c.embedder.Embed(ctx, windows(sentences, c.bufferSize))
	if err != nil {
		return nil, err
	}

	distances := make([]float64, len(vecs)-1)
	for i := 0; i < len(vecs)-1; i++ {
		distances[i] = cosineDistance(vecs[i], vecs[i+1])
	}
	threshold := percentile(distances, c.percentile)

	var pieces []string
	start := 0
	for i, d := range distances {
		if d > threshold {
			pieces = append(pieces, strings.Join(sentences[start:i+1], " "))
			start = i + 1
		}
	}
	pieces = append(pieces, strings.Join(sentences[start:], " "))
	return pieces, nil
}

// prepare combines the Hebrew and English halves of a passage, either one
// standing alone when the other is missing.
func prepare(st models.SourceText) string {
	he := strings.TrimSpace(st.Hebrew)
	en := strings.TrimSpace(st.English)
	switch {
	case he != "" && en != "":
		return he + "\n\n" + en
	case he != "":
		return he
	default:
		return en
	}
}
