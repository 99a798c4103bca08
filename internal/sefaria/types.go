package sefaria

import (
	"encoding/json"
	"fmt"
	"strings"
)

// textField handles Sefaria's habit of returning a chapter's text either as
// a single string or as an array of paragraph strings, depending on the ref.
type textField []string

func (t *textField) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*t = nil
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = []string{s}
		return nil
	case '[':
		var parts []json.RawMessage
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			// Nested arrays show up on complex refs; flatten one level
			// and join with spaces.
			if len(p) > 0 && p[0] == '[' {
				var inner []string
				if err := json.Unmarshal(p, &inner); err != nil {
					return err
				}
				out = append(out, strings.Join(inner, " "))
				continue
			}
			var s string
			if err := json.Unmarshal(p, &s); err != nil {
				return err
			}
			out = append(out, s)
		}
		*t = out
		return nil
	}
	return fmt.Errorf("sefaria: unexpected text field shape %q", data[:min(len(data), 20)])
}

// textResponse is the subset of Sefaria's /texts payload we consume.
type textResponse struct {
	Ref           string    `json:"ref"`
	Book          string    `json:"book"`
	Hebrew        textField `json:"he"`
	English       textField `json:"text"`
	VersionTitle  string    `json:"versionTitle"`
	VersionSource string    `json:"versionSource"`
}

// Passage is one fetched paragraph with Hebrew and English side by side.
// Ref carries the paragraph suffix (":N") when the chapter has more than
// one paragraph.
type Passage struct {
	Ref           string
	Book          string
	Hebrew        string
	English       string
	VersionTitle  string
	VersionSource string
}
