package engine

import (
	"fmt"
	"strings"

	"github.com/nlerner/breslov-rag/internal/models"
	"github.com/nlerner/breslov-rag/internal/vectordb"
)

// systemPrompt frames every answer: teachings of Rabbi Nachman, grounded
// in the retrieved sources only.
const systemPrompt = `You are a knowledgeable teacher of the works of Rabbi Nachman of Breslov.
Answer questions using only the source passages provided. Each passage is
labeled with its book, chapter, and verse; cite them when you draw on a
passage. If the sources do not contain enough to answer, say so plainly
rather than inventing.`

// augmentQuestion appends the language directive. The augmented form is
// what gets embedded for retrieval and what the model is asked, so both
// sides see the same query text.
func augmentQuestion(question string, lang models.Language) string {
	return fmt.Sprintf("%s\n\nRespond in %s.", question, lang.DisplayName())
}

// buildPrompt assembles the user message: the retrieved passages, then
// the augmented question.
func buildPrompt(question string, results []vectordb.SearchResult) string {
	var b strings.Builder

	if len(results) > 0 {
		b.WriteString("Source passages:\n\n")
		for i, r := range results {
			fmt.Fprintf(&b, "--- Source %d ---\n%s\n\n", i+1, r.Document.Body)
		}
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
