// Package filter selects diagram blocks by their labels and suggests the
// nearest match for mistyped names.
package filter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Mode selects how a Matcher compares its pattern.
type Mode int

const (
	ModeAny Mode = iota
	ModeExact
	ModeContains
	ModeRegex
	ModeFuzzy
)

// Matcher tests one block field. Comparisons other than regex ignore case.
type Matcher struct {
	Pattern string
	Mode    Mode
	regex   *regexp.Regexp
}

// NewMatcher compiles pattern for mode. An empty pattern matches everything.
func NewMatcher(pattern string, mode Mode) (*Matcher, error) {
	if pattern == "" {
		mode = ModeAny
	}
	m := &Matcher{Pattern: pattern, Mode: mode}
	if mode == ModeRegex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern '%s': %w", pattern, err)
		}
		m.regex = re
	}
	return m, nil
}

func (m *Matcher) Match(s string) bool {
	switch m.Mode {
	case ModeExact:
		return strings.EqualFold(s, m.Pattern)
	case ModeContains:
		return strings.Contains(strings.ToLower(s), strings.ToLower(m.Pattern))
	case ModeRegex:
		return m.regex.MatchString(s)
	case ModeFuzzy:
		return FuzzyMatch(m.Pattern, s)
	}
	return true
}

// FuzzyMatch reports whether pattern is a case-insensitive subsequence of
// text.
func FuzzyMatch(pattern, text string) bool {
	if pattern == "" {
		return true
	}
	p := []rune(strings.ToLower(pattern))
	i := 0
	for _, r := range strings.ToLower(text) {
		if r == p[i] {
			i++
			if i == len(p) {
				return true
			}
		}
	}
	return false
}

// LevenshteinDistance is the case-insensitive edit distance of s1 and s2.
func LevenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	previousRow := make([]int, len(b)+1)
	currentRow := make([]int, len(b)+1)
	for j := range previousRow {
		previousRow[j] = j
	}

	for i := range a {
		currentRow[0] = i + 1
		for j := range b {
			cost := 1
			if unicode.ToLower(a[i]) == unicode.ToLower(b[j]) {
				cost = 0
			}
			currentRow[j+1] = min(currentRow[j]+1, previousRow[j+1]+1, previousRow[j]+cost)
		}
		previousRow, currentRow = currentRow, previousRow
	}

	return previousRow[len(b)]
}

// Closest returns the candidate nearest to word, or "" when none is within
// maxDistance edits.
func Closest(word string, candidates []string, maxDistance int) string {
	best, bestDistance := "", maxDistance+1
	for _, c := range candidates {
		if d := LevenshteinDistance(word, c); d < bestDistance {
			best, bestDistance = c, d
		}
	}
	return best
}

// BlockFilter selects diagram blocks. Empty fields match everything.
type BlockFilter struct {
	Kind      string // exact
	Text      string // substring of the labels
	TextRegex string
	TextFuzzy string

	kind, text []*Matcher
}

func (f *BlockFilter) compile() error {
	if f.kind != nil {
		return nil
	}
	kind, err := NewMatcher(f.Kind, ModeExact)
	if err != nil {
		return err
	}
	f.kind = []*Matcher{kind}
	for _, field := range []struct {
		pattern string
		mode    Mode
	}{
		{f.Text, ModeContains},
		{f.TextRegex, ModeRegex},
		{f.TextFuzzy, ModeFuzzy},
	} {
		m, err := NewMatcher(field.pattern, field.mode)
		if err != nil {
			f.kind, f.text = nil, nil
			return fmt.Errorf("invalid text filter: %w", err)
		}
		f.text = append(f.text, m)
	}
	return nil
}

// Matches checks a block given its kind and label text.
func (f *BlockFilter) Matches(kind, text string) (bool, error) {
	if err := f.compile(); err != nil {
		return false, err
	}
	for _, m := range f.kind {
		if !m.Match(kind) {
			return false, nil
		}
	}
	for _, m := range f.text {
		if !m.Match(text) {
			return false, nil
		}
	}
	return true, nil
}
