package models

import "fmt"

// Language identifies a supported response language.
type Language string

const (
	LangFrench  Language = "fr"
	LangHebrew  Language = "he"
	LangEnglish Language = "en"
)

// DisplayName returns the language name used in the prompt directive.
func (l Language) DisplayName() string {
	switch l {
	case LangFrench:
		return "French"
	case LangHebrew:
		return "Hebrew"
	case LangEnglish:
		return "English"
	default:
		return "French"
	}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LangFrench, LangHebrew, LangEnglish:
		return true
	}
	return false
}

// ParseLanguage validates a raw language tag.
func ParseLanguage(s string) (Language, error) {
	l := Language(s)
	if !l.Valid() {
		return "", fmt.Errorf("unsupported language %q: must be one of fr, he, en", s)
	}
	return l, nil
}

// SourceText is one fetched unit of scripture or commentary, immutable
// once fetched. Ref has the form "Work.Chapter" or "Work.Chapter:Verse".
type SourceText struct {
	Title         string
	Ref           string
	Hebrew        string
	English       string
	Language      string
	VersionTitle  string
	VersionSource string
}

// SourceDocument is a retrieved passage returned alongside an answer.
type SourceDocument struct {
	Book     string            `json:"book"`
	Chapter  string            `json:"chapter,omitempty"`
	Verse    string            `json:"verse,omitempty"`
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Language string            `json:"language"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// QueryMetadata carries timing and retrieval counters for one query.
type QueryMetadata struct {
	QueryTime       float64  `json:"query_time"`
	ChunksRetrieved int      `json:"chunks_retrieved"`
	Language        Language `json:"language"`
}

// QueryResult is the full result of one RAG query.
type QueryResult struct {
	Answer   string           `json:"answer"`
	Sources  []SourceDocument `json:"sources"`
	Metadata QueryMetadata    `json:"metadata"`
}

// BookInfo describes one work present in the index, derived from stored
// chunk metadata.
type BookInfo struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Languages   []string `json:"languages"`
	NumChapters int      `json:"num_chapters"`
}

// Stats summarizes the state of the index.
type Stats struct {
	TotalDocuments int      `json:"total_documents"`
	TotalBooks     int      `json:"total_books"`
	Languages      []string `json:"languages"`
	Books          []string `json:"books"`
	EmbeddingModel string   `json:"embedding_model"`
	LLMModel       string   `json:"llm_model"`
}
