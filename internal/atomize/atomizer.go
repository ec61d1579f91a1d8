// Package atomize implements the Atomizer component: language-aware
// extraction of bounded code units (atoms) with their defined and
// referenced symbols.
package atomize

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ConflictingTheories/cadi/internal/atom"
	"github.com/ConflictingTheories/cadi/internal/cerr"
)

// Atomizer is a strategy selector over per-language adapters. It is the
// sole entry point external callers use: Extract(lang, source) -> atoms.
type Atomizer struct {
	registry *languageRegistry
	adapters map[string]Adapter
	logger   *slog.Logger
}

// New builds an Atomizer with adapters for every language in
// SupportedLanguages: tree-sitter-backed where a grammar is available,
// structural fallback otherwise.
func New(logger *slog.Logger) *Atomizer {
	if logger == nil {
		logger = slog.Default()
	}
	registry := newLanguageRegistry()
	a := &Atomizer{registry: registry, adapters: make(map[string]Adapter), logger: logger}

	for _, lang := range SupportedLanguages {
		if astBacked[lang] {
			kinds, _ := registry.nodeKindsFor(lang)
			a.adapters[lang] = newTreeSitterAdapter(lang, kinds, registry)
		} else {
			a.adapters[lang] = newStructuralAdapter(lang)
		}
	}
	return a
}

// LanguageFromExtension returns the language tag registered for a file
// extension, or "" when no adapter registers that extension.
func (a *Atomizer) LanguageFromExtension(ext string) string {
	return a.registry.TagFromExtension(ext)
}

// RecognizedExtensions returns every file extension this Atomizer can
// resolve to a language tag. A file-watch consumer uses this as an
// allowlist so churn outside the atomizer's input contract never
// triggers a re-atomization attempt.
func (a *Atomizer) RecognizedExtensions() []string {
	return a.registry.Extensions()
}

// Extract is the Atomizer's consumer-surface entry point. It produces
// an ordered (ascending byte offset) atom sequence for (language, source).
func (a *Atomizer) Extract(ctx context.Context, language string, source []byte) ([]atom.Atom, error) {
	adapter, ok := a.adapters[language]
	if !ok {
		return nil, cerr.UnsupportedLanguage(language)
	}

	if len(source) == 0 {
		return []atom.Atom{}, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	raw, err := adapter.Extract(source)
	if err != nil {
		a.logger.Warn("atomizer parse failed", slog.String("language", language), slog.String("error", err.Error()))
		return nil, cerr.ParseFailed(language, err)
	}

	atoms := make([]atom.Atom, 0, len(raw))
	for _, r := range raw {
		atoms = append(atoms, atom.Atom{
			Name:       r.Name,
			Kind:       atom.Kind(r.Kind),
			Source:     string(source[r.StartByte:r.EndByte]),
			StartByte:  r.StartByte,
			EndByte:    r.EndByte,
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			Defines:    r.Defines,
			References: r.References,
			DocComment: r.DocComment,
			Visibility: atom.Visibility(orDefault(r.Visibility, string(atom.VisibilityPublic))),
			Decorators: r.Decorators,
			Parent:     r.Parent,
			Language:   language,
		})
	}

	sort.SliceStable(atoms, func(i, j int) bool {
		return atoms[i].StartByte < atoms[j].StartByte
	})

	a.logger.Debug("atomized source", slog.String("language", language), slog.Int("atom_count", len(atoms)))
	return atoms, nil
}

// Capabilities exposes an adapter's declared capability set so callers
// can check before requesting behavior the adapter may not support.
func (a *Atomizer) Capabilities(language string) (CapabilitySet, bool) {
	adapter, ok := a.adapters[language]
	if !ok {
		return nil, false
	}
	return adapter.Capabilities(), true
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
