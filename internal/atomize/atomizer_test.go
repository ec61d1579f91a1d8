package atomize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConflictingTheories/cadi/internal/cerr"
)

const goSample = `package sample

// Add returns the sum of a and b.
func Add(a, b int) int {
	return a + b
}

type Point struct {
	X, Y int
}
`

func TestExtract_GoSource_ProducesOrderedAtoms(t *testing.T) {
	a := New(nil)
	atoms, err := a.Extract(context.Background(), "go", []byte(goSample))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(atoms), 2)

	for i := 1; i < len(atoms); i++ {
		assert.LessOrEqual(t, atoms[i-1].StartByte, atoms[i].StartByte)
	}

	var names []string
	for _, at := range atoms {
		names = append(names, at.Name)
	}
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Point")
}

func TestExtract_GoSource_DocCommentAttachedWithNoBlankGap(t *testing.T) {
	a := New(nil)
	atoms, err := a.Extract(context.Background(), "go", []byte(goSample))
	require.NoError(t, err)

	for _, at := range atoms {
		if at.Name == "Add" {
			assert.Contains(t, at.DocComment, "Add returns the sum")
			return
		}
	}
	t.Fatal("Add atom not found")
}

func TestExtract_UnsupportedLanguage_ReturnsUnsupportedLanguageError(t *testing.T) {
	a := New(nil)
	_, err := a.Extract(context.Background(), "cobol", []byte("IDENTIFICATION DIVISION."))
	require.Error(t, err)
	assert.Equal(t, cerr.CodeUnsupportedLanguage, cerr.Code(err))
}

func TestExtract_EmptySource_ReturnsEmptyAtomSlice(t *testing.T) {
	a := New(nil)
	atoms, err := a.Extract(context.Background(), "go", []byte{})
	require.NoError(t, err)
	assert.Empty(t, atoms)
}

func TestExtract_CSSSource_UsesStructuralFallback(t *testing.T) {
	a := New(nil)
	css := `.button {
  color: red;
}

.card {
  padding: 4px;
}
`
	atoms, err := a.Extract(context.Background(), "css", []byte(css))
	require.NoError(t, err)
	require.Len(t, atoms, 2)
	assert.Equal(t, ".button", atoms[0].Name)
	assert.Equal(t, ".card", atoms[1].Name)
}

func TestExtract_ContextCanceled_ReturnsContextError(t *testing.T) {
	a := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Extract(ctx, "go", []byte(goSample))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCapabilities_GoDeclaresAlphaRenameButNotDecorators(t *testing.T) {
	a := New(nil)
	caps, ok := a.Capabilities("go")
	require.True(t, ok)
	assert.True(t, caps.Has(CapAlphaRenameForNormalize))
	assert.False(t, caps.Has(CapExtractDecorators))
}

func TestCapabilities_UnknownLanguage_ReturnsFalse(t *testing.T) {
	a := New(nil)
	_, ok := a.Capabilities("cobol")
	assert.False(t, ok)
}

func TestLanguageFromExtension_ResolvesKnownExtension(t *testing.T) {
	a := New(nil)
	assert.Equal(t, "go", a.LanguageFromExtension(".go"))
	assert.Equal(t, "go", a.LanguageFromExtension("go"))
	assert.Equal(t, "", a.LanguageFromExtension(".cbl"))
}

func TestRecognizedExtensions_IncludesEveryRegisteredLanguage(t *testing.T) {
	a := New(nil)
	exts := a.RecognizedExtensions()
	assert.Contains(t, exts, ".go")
	assert.Contains(t, exts, ".py")
	assert.Contains(t, exts, ".rs")
	for _, ext := range exts {
		assert.NotEmpty(t, a.LanguageFromExtension(ext), "every recognized extension must resolve back to a language")
	}
}
