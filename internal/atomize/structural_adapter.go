package atomize

import (
	"strings"
)

// structuralAdapter is the line/brace-based fallback used for languages
// with no Go tree-sitter grammar binding available (css, glsl, hlsl,
// html, wgsl). It treats the source as a flat sequence of top-level
// rules/blocks/statements, mirroring the boundary rule's explicit
// allowance for "a file whose top level is a sequence of statements"
// and the original implementation's own non-ast-parsing fallback for
// these same stylesheet-shaped languages.
type structuralAdapter struct {
	language string
}

func newStructuralAdapter(language string) *structuralAdapter {
	return &structuralAdapter{language: language}
}

func (a *structuralAdapter) Language() string { return a.language }

func (a *structuralAdapter) Capabilities() CapabilitySet {
	return CapabilitySet{CapParseNames: true}
}

// Extract splits source into top-level brace-delimited blocks (CSS
// rules/at-rules, GLSL/HLSL/WGSL top-level declarations). Only braces
// delimit a block: HTML elements are not recognized by their tags, so
// markup outside any brace pair yields no atom. Each block becomes one
// atom; nesting inside a block is
// not further decomposed — the boundary rule only requires the smallest
// *named* enclosing construct, and this adapter has no name resolution
// below the top level.
func (a *structuralAdapter) Extract(source []byte) ([]RawAtom, error) {
	src := string(source)
	var atoms []RawAtom

	depth := 0
	blockStart := -1
	lineOf := newLineIndex(src)

	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '{':
			if depth == 0 {
				blockStart = findBlockStart(src, i)
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && blockStart >= 0 {
					end := i + 1
					header := strings.TrimSpace(src[blockStart:findOpenBrace(src, blockStart)])
					name := ruleName(header)
					atoms = append(atoms, RawAtom{
						Name:       name,
						Kind:       "rule",
						StartByte:  blockStart,
						EndByte:    end,
						StartLine:  lineOf(blockStart),
						EndLine:    lineOf(end - 1),
						Defines:    []string{name},
						Visibility: "public",
					})
					blockStart = -1
				}
			}
		}
	}

	return atoms, nil
}

func findOpenBrace(src string, from int) int {
	idx := strings.IndexByte(src[from:], '{')
	if idx < 0 {
		return len(src)
	}
	return from + idx
}

// findBlockStart walks backward from an opening brace to the start of
// its statement (the end of the previous top-level block, or start of
// file), skipping leading blank lines.
func findBlockStart(src string, bracePos int) int {
	// Walk back to the previous top-level '}' or the start of file.
	depth := 0
	for i := bracePos - 1; i >= 0; i-- {
		switch src[i] {
		case '}':
			if depth == 0 {
				return trimLeadingBlank(src, i+1)
			}
			depth++
		case '{':
			depth--
		}
	}
	return trimLeadingBlank(src, 0)
}

func trimLeadingBlank(src string, from int) int {
	i := from
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func ruleName(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return "rule"
	}
	// Keep it to the first line / first selector group for a readable name.
	if idx := strings.IndexByte(header, '\n'); idx >= 0 {
		header = strings.TrimSpace(header[:idx])
	}
	if len(header) > 80 {
		header = header[:80]
	}
	return header
}

func newLineIndex(src string) func(byteOffset int) int {
	offsets := []int{0}
	for i, c := range src {
		if c == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return func(byteOffset int) int {
		// binary search for the line containing byteOffset
		lo, hi := 0, len(offsets)-1
		for lo < hi {
			mid := (lo + hi + 1) / 2
			if offsets[mid] <= byteOffset {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		return lo + 1
	}
}
