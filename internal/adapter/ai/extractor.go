// Package ai provides extraction utilities for handling LLM responses
// that are supposed to be JSON but frequently are not.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jerwingubat/RoadMapGenerator/internal/domain"
)

// Extractor turns raw model output into a roadmap document. Extraction is
// attempted in order: strict JSON parse, fenced code block, brace-delimited
// substring. When everything fails the raw text is preserved on the
// document instead of structured fields.
type Extractor struct{}

// NewExtractor creates a new response extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	fencedAnyRe  = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")
)

// Extract parses model output into a Document, falling back to Raw.
func (e *Extractor) Extract(content string) domain.Document {
	if candidate, ok := e.ExtractJSON(content); ok {
		var doc domain.Document
		if err := json.Unmarshal([]byte(candidate), &doc); err == nil {
			return doc
		}
	}
	return domain.Document{Raw: strings.TrimSpace(content)}
}

// ExtractJSON returns the first substring of content that parses as JSON,
// trying the whole content, then fenced blocks, then the outermost braces.
func (e *Extractor) ExtractJSON(content string) (string, bool) {
	content = strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))

	if isValidJSON(content) {
		return content, true
	}
	if inner, ok := e.fencedBlock(content); ok && isValidJSON(inner) {
		return inner, true
	}
	if inner, ok := e.braceDelimited(content); ok && isValidJSON(inner) {
		return inner, true
	}
	return "", false
}

// fencedBlock searches for a ```json fence first, then a plain ``` fence.
func (e *Extractor) fencedBlock(content string) (string, bool) {
	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := fencedAnyRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// braceDelimited takes the substring from the first '{' to the last '}'.
func (e *Extractor) braceDelimited(content string) (string, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return content[start : end+1], true
}

func isValidJSON(s string) bool {
	if s == "" {
		return false
	}
	var v any
	return json.Unmarshal([]byte(s), &v) == nil
}
