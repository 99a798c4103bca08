package vectordb

import "strconv"

// Metadata is the structured record attached to every stored passage.
// Required fields are always set by the chunker; Chapter, Verse, SourceURL
// and Version may be absent. Extra preserves unknown keys round-tripped
// through a store without the codec having to know about them.
type Metadata struct {
	Book        string
	Ref         string
	Language    string
	ChunkIndex  int
	TotalChunks int

	Chapter   string
	Verse     string
	SourceURL string
	Version   string

	Extra map[string]string
}

// Document is one retrieval-unit passage with its metadata. ID is assigned
// by the store at insertion time and is empty before that.
type Document struct {
	ID       string
	Body     string
	Metadata Metadata
}

// SearchResult pairs a stored document with its similarity score in [0,1].
type SearchResult struct {
	Document   Document
	Similarity float64
}

// Reserved keys used by the flat metadata codec.
const (
	keyBook        = "book"
	keyRef         = "ref"
	keyLanguage    = "language"
	keyChunkIndex  = "chunk_index"
	keyTotalChunks = "total_chunks"
	keyChapter     = "chapter"
	keyVerse       = "verse"
	keySourceURL   = "source_url"
	keyVersion     = "version"
)

// EncodeMetadata flattens a Metadata record into the string map shape both
// backends store. Absent optional fields are omitted entirely.
func EncodeMetadata(m Metadata) map[string]string {
	out := map[string]string{
		keyBook:        m.Book,
		keyRef:         m.Ref,
		keyLanguage:    m.Language,
		keyChunkIndex:  strconv.Itoa(m.ChunkIndex),
		keyTotalChunks: strconv.Itoa(m.TotalChunks),
	}
	if m.Chapter != "" {
		out[keyChapter] = m.Chapter
	}
	if m.Verse != "" {
		out[keyVerse] = m.Verse
	}
	if m.SourceURL != "" {
		out[keySourceURL] = m.SourceURL
	}
	if m.Version != "" {
		out[keyVersion] = m.Version
	}
	for k, v := range m.Extra {
		if _, reserved := out[k]; !reserved {
			out[k] = v
		}
	}
	return out
}

// DecodeMetadata rebuilds a Metadata record from the flat map, collecting
// unrecognized keys into Extra.
func DecodeMetadata(raw map[string]string) Metadata {
	m := Metadata{
		Book:      raw[keyBook],
		Ref:       raw[keyRef],
		Language:  raw[keyLanguage],
		Chapter:   raw[keyChapter],
		Verse:     raw[keyVerse],
		SourceURL: raw[keySourceURL],
		Version:   raw[keyVersion],
	}
	m.ChunkIndex, _ = strconv.Atoi(raw[keyChunkIndex])
	m.TotalChunks, _ = strconv.Atoi(raw[keyTotalChunks])

	for k, v := range raw {
		switch k {
		case keyBook, keyRef, keyLanguage, keyChunkIndex, keyTotalChunks,
			keyChapter, keyVerse, keySourceURL, keyVersion:
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]string)
			}
			m.Extra[k] = v
		}
	}
	return m
}
