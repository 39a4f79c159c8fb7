package extract

import (
	"fmt"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
)

var rustLanguage = sitter.NewLanguage(rust.Language())

type itemCounts struct {
	functions, structs, enums, traits, impls int32
}

// analyzeRust parses Rust source once, counting item declarations and
// classifying lines. Functions include methods and associated functions
// with a body. Comment bytes come from comment nodes, so comment markers
// inside string or char literals stay code.
func analyzeRust(src []byte) (itemCounts, lineCounts, error) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(rustLanguage); err != nil {
		return itemCounts{}, lineCounts{}, err
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return itemCounts{}, lineCounts{}, fmt.Errorf("tree-sitter returned no tree")
	}
	defer tree.Close()

	var c itemCounts
	comment := make([]bool, len(src))
	walkTree(tree.RootNode(), func(n *sitter.Node) {
		switch n.Kind() {
		case "function_item":
			c.functions++
		case "struct_item":
			c.structs++
		case "enum_item":
			c.enums++
		case "trait_item":
			c.traits++
		case "impl_item":
			c.impls++
		case "line_comment", "block_comment":
			for i := n.StartByte(); i < n.EndByte() && int(i) < len(src); i++ {
				comment[i] = true
			}
		}
	})
	return c, countMasked(src, comment), nil
}

func walkTree(node *sitter.Node, visit func(*sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visit)
	}
}
