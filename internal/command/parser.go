package command

import (
	"sort"
	"strings"
	"unicode"
)

// Parser scans transcribed text for command phrases. Matching is
// case-insensitive, requires a word boundary on both sides of the phrase,
// and prefers longer phrases over shorter ones sharing a prefix.
type Parser struct {
	phrases []phraseEntry
}

type phraseEntry struct {
	words []rune // lowercase phrase
	id    ID
}

// NewParser builds a parser from the built-in phrase table merged with the
// given overrides. Overrides win on key collision.
func NewParser(overrides map[string]ID) *Parser {
	table := Builtins()
	for phrase, id := range overrides {
		table[strings.ToLower(phrase)] = id
	}

	phrases := make([]phraseEntry, 0, len(table))
	for phrase, id := range table {
		phrases = append(phrases, phraseEntry{
			words: lowerRunes([]rune(phrase)),
			id:    id,
		})
	}

	// Longest-first so "select all" beats a colliding shorter prefix.
	// Ties break lexically to keep the scan deterministic.
	sort.Slice(phrases, func(i, j int) bool {
		if len(phrases[i].words) != len(phrases[j].words) {
			return len(phrases[i].words) > len(phrases[j].words)
		}
		return string(phrases[i].words) < string(phrases[j].words)
	})

	return &Parser{phrases: phrases}
}

// Parse splits text into an ordered sequence of prose and command segments.
// Original casing is preserved in the emitted text segments. Empty or
// whitespace-only input yields an empty sequence.
func (p *Parser) Parse(text string) []Segment {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	original := []rune(text)
	lower := lowerRunes(original)

	var segments []Segment
	pending := 0 // start of the unflushed text run
	i := 0

	for i < len(lower) {
		entry, ok := p.matchAt(lower, i)
		if !ok {
			i++
			continue
		}

		if i > pending {
			segments = append(segments, TextSegment(string(original[pending:i])))
		}
		segments = append(segments, CommandSegment(entry.id))

		i += len(entry.words)
		pending = i
	}

	if pending < len(original) {
		segments = append(segments, TextSegment(string(original[pending:])))
	}

	return segments
}

// matchAt returns the longest phrase matching at position i with word
// boundaries on both sides.
func (p *Parser) matchAt(lower []rune, i int) (phraseEntry, bool) {
	if i > 0 && isWordRune(lower[i-1]) {
		return phraseEntry{}, false
	}

	for _, entry := range p.phrases {
		end := i + len(entry.words)
		if end > len(lower) {
			continue
		}
		if !runesEqual(lower[i:end], entry.words) {
			continue
		}
		if end < len(lower) && isWordRune(lower[end]) {
			// Matched inside a larger word ("undo" in "undoing").
			continue
		}
		return entry, true
	}

	return phraseEntry{}, false
}

func lowerRunes(runes []rune) []rune {
	lower := make([]rune, len(runes))
	for i, r := range runes {
		lower[i] = unicode.ToLower(r)
	}
	return lower
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
