// Package pysrc extracts symbol information from Python cell source.
//
// Extraction is a lexical approximation over a flat per-cell scope:
// assignment targets, function/class names, parameters, and import
// bindings count as defines; every other identifier read counts as a
// use, except names the same cell also defines. There is no scope
// resolution. Source that does not parse yields empty sets; extraction
// never reports an error.
package pysrc

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Summary holds the symbol sets for one cell, each sorted.
// Imports entries are qualified as "module:name" for from-imports with a
// module, or the bare dotted path otherwise.
type Summary struct {
	Defines []string
	Uses    []string
	Imports []string
}

// Summarize parses source as Python and collects defines, uses and
// imports. Malformed source degrades to an empty Summary so one broken
// cell never blocks analysis of the rest of a notebook.
func Summarize(ctx context.Context, source string) Summary {
	content := []byte(source)

	// Tree-sitter parsers are not safe for concurrent use; a fresh one
	// per call keeps Summarize callable from any goroutine.
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return emptySummary()
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return emptySummary()
	}

	c := newCollector(content)
	c.walk(root, modeLoad)

	// A name defined anywhere in the cell is not a dependency use,
	// even when the use appears before the in-cell definition.
	for name := range c.defines {
		delete(c.uses, name)
	}

	return Summary{
		Defines: sortedKeys(c.defines),
		Uses:    sortedKeys(c.uses),
		Imports: sortedKeys(c.imports),
	}
}

func emptySummary() Summary {
	return Summary{Defines: []string{}, Uses: []string{}, Imports: []string{}}
}

// mode says what an identifier in the current position means.
type mode int

const (
	modeLoad  mode = iota // identifier is read
	modeStore             // identifier is bound
	modeDel               // identifier is deleted (tracked as neither)
)

type collector struct {
	content []byte
	defines map[string]struct{}
	uses    map[string]struct{}
	imports map[string]struct{}
}

func newCollector(content []byte) *collector {
	return &collector{
		content: content,
		defines: make(map[string]struct{}),
		uses:    make(map[string]struct{}),
		imports: make(map[string]struct{}),
	}
}

func (c *collector) text(n *sitter.Node) string {
	return string(c.content[n.StartByte():n.EndByte()])
}

func (c *collector) define(n *sitter.Node) {
	c.defines[c.text(n)] = struct{}{}
}

func (c *collector) walk(n *sitter.Node, m mode) {
	switch n.Type() {
	case "identifier":
		switch m {
		case modeStore:
			c.define(n)
		case modeLoad:
			c.uses[c.text(n)] = struct{}{}
		}

	case "comment":
		// no identifiers inside

	case "string":
		// Only f-string interpolations carry code.
		for i := 0; i < int(n.ChildCount()); i++ {
			if child := n.Child(i); child.Type() == "interpolation" {
				c.walkChildren(child, modeLoad)
			}
		}

	case "import_statement":
		c.importStatement(n)

	case "import_from_statement", "future_import_statement":
		c.importFromStatement(n)

	case "function_definition":
		c.functionDefinition(n)

	case "class_definition":
		c.classDefinition(n)

	case "parameters", "lambda_parameters":
		c.parameters(n)

	case "assignment":
		// left (store), then ':' type and '=' value (load)
		c.splitWalk(n, modeStore, modeLoad, "=", ":")

	case "augmented_assignment", "named_expression":
		c.firstStoreRestLoad(n)

	case "for_statement", "for_in_clause":
		// targets before 'in' bind, everything after reads
		c.splitWalk(n, modeStore, modeLoad, "in")

	case "as_pattern":
		c.asPattern(n)

	case "keyword_argument":
		// f(name=value): the keyword name is not an identifier reference
		c.splitWalk(n, modeSkip, modeLoad, "=")

	case "attribute":
		// a.b: only the base object is a reference, in load context even
		// when the attribute itself is an assignment target
		if n.ChildCount() > 0 {
			c.walk(n.Child(0), modeLoad)
		}

	case "subscript":
		// a[i] reads both a and i, also as an assignment target
		c.walkChildren(n, modeLoad)

	case "list_splat_pattern", "dictionary_splat_pattern":
		c.walkChildren(n, m)

	case "delete_statement":
		c.walkChildren(n, modeDel)

	case "global_statement", "nonlocal_statement":
		// declaration only, the names are not reads or bindings here

	default:
		c.walkChildren(n, m)
	}
}

// modeSkip is a sentinel for splitWalk heads that are ignored outright.
const modeSkip mode = -1

func (c *collector) walkChildren(n *sitter.Node, m mode) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c.walk(n.Child(i), m)
	}
}

// splitWalk walks children in before-mode until one of the separator
// token types appears, then in after-mode.
func (c *collector) splitWalk(n *sitter.Node, before, after mode, separators ...string) {
	seen := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if !seen && isSeparator(child.Type(), separators) {
			seen = true
			continue
		}
		m := before
		if seen {
			m = after
		}
		if m == modeSkip {
			continue
		}
		c.walk(child, m)
	}
}

func isSeparator(typ string, separators []string) bool {
	for _, s := range separators {
		if typ == s {
			return true
		}
	}
	return false
}

func (c *collector) firstStoreRestLoad(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		m := modeLoad
		if i == 0 {
			m = modeStore
		}
		c.walk(n.Child(i), m)
	}
}

// asPattern handles "value as target". With-statement targets bind a
// name; except-clause targets do not surface as cross-cell symbols
// (mirroring the per-statement binding rules the extractor tracks).
func (c *collector) asPattern(n *sitter.Node) {
	inExcept := n.Parent() != nil && n.Parent().Type() == "except_clause"
	seenAs := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "as" {
			seenAs = true
			continue
		}
		switch {
		case !seenAs:
			c.walk(child, modeLoad)
		case !inExcept:
			c.walk(child, modeStore)
		}
	}
}

func (c *collector) functionDefinition(n *sitter.Node) {
	named := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "identifier":
			if !named {
				c.define(child)
				named = true
			}
		case "parameters":
			c.parameters(child)
		default:
			// return annotation and body
			c.walk(child, modeLoad)
		}
	}
}

func (c *collector) classDefinition(n *sitter.Node) {
	named := false
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "identifier" && !named {
			c.define(child)
			named = true
			continue
		}
		// superclass list and body
		c.walk(child, modeLoad)
	}
}

// parameters binds every parameter name; annotations and default values
// are reads.
func (c *collector) parameters(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "identifier":
			c.define(child)
		case "typed_parameter":
			for j := 0; j < int(child.ChildCount()); j++ {
				g := child.Child(j)
				switch g.Type() {
				case "identifier":
					c.define(g)
				case "list_splat_pattern", "dictionary_splat_pattern":
					c.walkChildren(g, modeStore)
				case "type":
					c.walk(g, modeLoad)
				}
			}
		case "default_parameter", "typed_default_parameter":
			c.splitWalk(child, modeStore, modeLoad, ":", "=")
		case "list_splat_pattern", "dictionary_splat_pattern":
			c.walkChildren(child, modeStore)
		}
	}
}

// importStatement handles "import a.b.c" and "import a.b.c as d".
// The bound local name is the alias, or the first dotted segment.
func (c *collector) importStatement(n *sitter.Node) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "dotted_name":
			path := c.text(child)
			c.imports[path] = struct{}{}
			c.defines[firstSegment(path)] = struct{}{}
		case "aliased_import":
			var path, alias string
			for j := 0; j < int(child.ChildCount()); j++ {
				g := child.Child(j)
				switch g.Type() {
				case "dotted_name":
					path = c.text(g)
				case "identifier":
					alias = c.text(g)
				}
			}
			if path == "" {
				continue
			}
			c.imports[path] = struct{}{}
			if alias != "" {
				c.defines[alias] = struct{}{}
			} else {
				c.defines[firstSegment(path)] = struct{}{}
			}
		}
	}
}

// importFromStatement handles "from m import x, y as z". Star imports
// are skipped. The import record is "m:x", or bare "x" when the module
// is empty (relative "from . import x").
func (c *collector) importFromStatement(n *sitter.Node) {
	var module string
	sawImport := false

	addName := func(name, alias string) {
		if name == "" {
			return
		}
		if alias != "" {
			c.defines[alias] = struct{}{}
		} else {
			c.defines[name] = struct{}{}
		}
		if module != "" {
			c.imports[module+":"+name] = struct{}{}
		} else {
			c.imports[name] = struct{}{}
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import":
			sawImport = true
		case "__future__":
			module = "__future__"
		case "relative_import":
			// dots plus an optional dotted name; only the name counts
			// as the module, "from . import x" has none
			for j := 0; j < int(child.ChildCount()); j++ {
				if g := child.Child(j); g.Type() == "dotted_name" {
					module = c.text(g)
				}
			}
		case "dotted_name":
			if !sawImport {
				module = c.text(child)
			} else {
				addName(c.text(child), "")
			}
		case "identifier":
			if sawImport {
				addName(c.text(child), "")
			}
		case "aliased_import":
			var name, alias string
			for j := 0; j < int(child.ChildCount()); j++ {
				g := child.Child(j)
				switch g.Type() {
				case "dotted_name":
					if name == "" {
						name = c.text(g)
					}
				case "identifier":
					if name == "" {
						name = c.text(g)
					} else {
						alias = c.text(g)
					}
				}
			}
			addName(name, alias)
		case "wildcard_import":
			// star imports bind nothing trackable
		}
	}
}

func firstSegment(dotted string) string {
	if i := strings.IndexByte(dotted, '.'); i >= 0 {
		return dotted[:i]
	}
	return dotted
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
