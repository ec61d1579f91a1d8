package atomize

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// tree is the parsed-AST shape every adapter walks. It is a thin,
// dependency-free mirror of the tree-sitter node tree so extraction
// logic never touches the sitter package directly.
type tree struct {
	Root     *node
	Source   []byte
	Language string
}

type point struct {
	Row    uint32
	Column uint32
}

type node struct {
	Type       string
	StartByte  uint32
	EndByte    uint32
	StartPoint point
	EndPoint   point
	Children   []*node
	HasError   bool
}

// content returns the verbatim source text spanned by n.
func (n *node) content(source []byte) string {
	if n.StartByte >= n.EndByte || int(n.EndByte) > len(source) {
		return ""
	}
	return string(source[n.StartByte:n.EndByte])
}

func (n *node) childByType(t string) *node {
	for _, c := range n.Children {
		if c.Type == t {
			return c
		}
	}
	return nil
}

func (n *node) childrenByType(t string) []*node {
	var out []*node
	for _, c := range n.Children {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// walk traverses depth-first and calls fn for every node; fn returning
// false stops descent into that node's children (not the whole walk).
func (n *node) walk(fn func(*node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// treeSitterParser wraps a single tree-sitter parser instance, swapping
// the grammar per call via the language registry.
type treeSitterParser struct {
	p        *sitter.Parser
	registry *languageRegistry
}

func newTreeSitterParser(registry *languageRegistry) *treeSitterParser {
	return &treeSitterParser{p: sitter.NewParser(), registry: registry}
}

func (p *treeSitterParser) Close() {
	if p.p != nil {
		p.p.Close()
	}
}

func (p *treeSitterParser) parse(ctx context.Context, source []byte, language string) (*tree, error) {
	tsLang, ok := p.registry.treeSitterLanguage(language)
	if !ok {
		return nil, fmt.Errorf("no tree-sitter grammar registered for %q", language)
	}
	p.p.SetLanguage(tsLang)

	tsTree, err := p.p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse failed: %w", err)
	}
	if tsTree == nil {
		return nil, fmt.Errorf("parse failed: nil tree")
	}

	return &tree{
		Root:     convertNode(tsTree.RootNode()),
		Source:   source,
		Language: language,
	}, nil
}

func convertNode(n *sitter.Node) *node {
	if n == nil {
		return nil
	}
	out := &node{
		Type:       n.Type(),
		StartByte:  n.StartByte(),
		EndByte:    n.EndByte(),
		StartPoint: point{Row: n.StartPoint().Row, Column: n.StartPoint().Column},
		EndPoint:   point{Row: n.EndPoint().Row, Column: n.EndPoint().Column},
		HasError:   n.HasError(),
		Children:   make([]*node, 0, int(n.ChildCount())),
	}
	for i := uint32(0); i < n.ChildCount(); i++ {
		if child := n.Child(int(i)); child != nil {
			out.Children = append(out.Children, convertNode(child))
		}
	}
	return out
}
