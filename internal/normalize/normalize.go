// Package normalize implements language-aware canonicalization and
// semantic hashing: the pure-function core that lets syntactically
// different but semantically equivalent atoms collapse to one fingerprint.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ConflictingTheories/cadi/internal/chunkid"
)

// Result is the output of Canonicalize: a canonical form plus its
// derived semantic hash.
type Result struct {
	Canonical    string
	SemanticHash string
}

// alphaRenameCapable lists languages whose function-parameter lists this
// package knows how to rewrite safely. Declared explicitly per the open
// question in the source spec: a language not in this set is never
// α-renamed, even partially — a missed dedup is preferable to a false
// positive from an unsafe rename.
var alphaRenameCapable = map[string]bool{
	"typescript": true,
	"tsx":        true,
	"javascript": true,
	"jsx":        true,
	"go":         true,
}

// controlKeywords precede a "(" that is a control-flow construct, not a
// function signature; the α-rename pass must not mistake one for the other.
var controlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true,
}

// lineComment and blockComment strip the common comment forms seen
// across the supported languages. Python gets only the '#' strip; every
// other language gets both the '//' and '/* */' strips, and bash/ruby
// also get the '#' strip.
var lineComment = regexp.MustCompile(`//[^\n]*`)
var blockComment = regexp.MustCompile(`/\*[\s\S]*?\*/`)
var hashComment = regexp.MustCompile(`#[^\n]*`)

// tokenPattern splits source into the token stream canonicalization
// operates on: quoted strings kept whole, identifiers/numbers kept
// whole, common multi-character operators kept whole, everything else
// falls back to one token per punctuation character. Whitespace between
// tokens is never part of a token, which is what lets canonicalization
// rejoin tokens with a uniform single space regardless of how the
// original source spaced them.
var tokenPattern = regexp.MustCompile(
	`"(?:[^"\\]|\\.)*"` +
		"|'(?:[^'\\\\]|\\\\.)*'" +
		"|`(?:[^`\\\\]|\\\\.)*`" +
		`|[A-Za-z_][A-Za-z0-9_]*` +
		`|\d+\.\d+|\d+` +
		`|==|!=|<=|>=|&&|\|\||=>|->|::|\+\+|--|\+=|-=|\*=|/=|%=` +
		`|[^\sA-Za-z0-9_]`,
)

// Canonicalize reduces source to a language-aware canonical form and
// derives its semantic hash. Pure function: no I/O, no shared state.
func Canonicalize(language, source string) Result {
	stripped := stripComments(language, source)
	tokens := tokenize(stripped)
	if alphaRenameCapable[language] {
		tokens = alphaRenameFirstSignature(tokens)
	}
	canonical := strings.Join(tokens, " ")
	return Result{
		Canonical:    canonical,
		SemanticHash: "semantic:" + chunkid.Sha256Str(canonical),
	}
}

func stripComments(language, source string) string {
	switch language {
	case "python":
		return hashComment.ReplaceAllString(source, "")
	case "css", "glsl", "hlsl", "wgsl", "c", "cpp", "csharp", "java", "rust":
		return blockComment.ReplaceAllString(lineComment.ReplaceAllString(source, ""), "")
	default:
		// go, javascript, jsx, typescript, tsx, bash, ruby, html and the
		// structural-fallback languages all tolerate the C-style strip;
		// bash/ruby also use '#' comments.
		s := blockComment.ReplaceAllString(lineComment.ReplaceAllString(source, ""), "")
		if language == "bash" || language == "ruby" {
			s = hashComment.ReplaceAllString(s, "")
		}
		return s
	}
}

func tokenize(s string) []string {
	return tokenPattern.FindAllString(s, -1)
}

func isPlainIdentifier(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
		return false
	}
	for i := 1; i < len(tok); i++ {
		c := tok[i]
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}

// alphaRenameFirstSignature renames the first top-level parameter list
// it finds to a positional scheme ($0, $1, ...), and carries the same
// rename through every later occurrence of each parameter name in the
// rest of the token stream (the function body). Deliberately narrow: it
// targets the common "name(params) { body }" shape and leaves anything
// it cannot confidently parse untouched.
func alphaRenameFirstSignature(tokens []string) []string {
	openIdx := -1
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == "(" && isPlainIdentifier(tokens[i-1]) && !controlKeywords[tokens[i-1]] {
			openIdx = i
			break
		}
	}
	if openIdx == -1 {
		return tokens
	}

	closeIdx := matchingParen(tokens, openIdx)
	if closeIdx == -1 || closeIdx == openIdx+1 {
		return tokens
	}

	groups := splitTopLevel(tokens[openIdx+1 : closeIdx])
	if len(groups) == 0 {
		return tokens
	}

	rename := make(map[string]string, len(groups))
	params := make([]string, len(groups))
	for i, g := range groups {
		name := firstIdentifier(g)
		if name == "" {
			// Can't confidently identify this parameter's name; bail out
			// rather than risk renaming the wrong thing.
			return tokens
		}
		positional := "$" + strconv.Itoa(i)
		rename[name] = positional
		params[i] = positional
	}

	out := make([]string, 0, len(tokens))
	out = append(out, tokens[:openIdx+1]...)
	for i, p := range params {
		if i > 0 {
			out = append(out, ",")
		}
		out = append(out, p)
	}
	out = append(out, ")")
	for _, t := range tokens[closeIdx+1:] {
		if renamed, ok := rename[t]; ok {
			out = append(out, renamed)
		} else {
			out = append(out, t)
		}
	}
	return out
}

// matchingParen returns the index of the ")" matching the "(" at openIdx,
// accounting for nesting, or -1 if unbalanced.
func matchingParen(tokens []string, openIdx int) int {
	depth := 0
	for i := openIdx; i < len(tokens); i++ {
		switch tokens[i] {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitTopLevel splits a parameter-list token slice on commas that are
// not nested inside another bracket pair (default-value expressions,
// generic type arguments).
func splitTopLevel(tokens []string) [][]string {
	var groups [][]string
	var current []string
	depth := 0
	for _, t := range tokens {
		switch t {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		}
		if t == "," && depth == 0 {
			groups = append(groups, current)
			current = nil
			continue
		}
		current = append(current, t)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// firstIdentifier returns the first plain identifier token in a
// parameter group, which is the parameter name in every supported
// calling convention ("name Type", "name: Type", "name = default").
func firstIdentifier(group []string) string {
	for _, t := range group {
		if isPlainIdentifier(t) {
			return t
		}
	}
	return ""
}
