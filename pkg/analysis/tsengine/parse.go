package tsengine

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/simonhull/firebird-suite/flock/pkg/analysis"
)

var (
	languageTypeScript = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript())
	languageTSX        = tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX())
)

type exportKind int

const (
	exportLocal      exportKind = iota // export class Foo / export { a as b }
	exportFrom                         // export { a as b } from './x'
	exportStar                         // export * from './x'
	exportNamespace                    // export * as ns from './x'
	exportAssignment                   // export default <expr> / export = <expr>
)

type exportEntry struct {
	kind     exportKind
	name     string // exported name
	local    string // exportLocal: local binding
	imported string // exportFrom: name in the source module
	spec     string // module specifier
	pos      analysis.Position
}

// importBinding is one local name introduced by an import declaration.
// imported is "default" for default imports and "*" for namespace imports.
type importBinding struct {
	local    string
	imported string
	spec     string
	pos      analysis.Position
}

type memberAccess struct {
	object   string
	property string
	pos      analysis.Position
}

type localDecl struct {
	kind analysis.DeclarationKind
	pos  analysis.Position
}

// fileInfo is everything the engine keeps about one parsed file. Trees are
// closed right after extraction.
type fileInfo struct {
	path    string
	decls   map[string]localDecl // first top-level declaration per name
	imports []importBinding
	exports []exportEntry
	usages  map[string][]analysis.Position
	members []memberAccess
	specs   []string          // every module specifier, in source order
	modules map[string]string // specifier -> resolved file, "" when external
}

func newFileInfo(path string) *fileInfo {
	return &fileInfo{
		path:   path,
		decls:  make(map[string]localDecl),
		usages: make(map[string][]analysis.Position),
	}
}

func (fi *fileInfo) declaration(name string) (analysis.Declaration, bool) {
	d, ok := fi.decls[name]
	if !ok {
		return analysis.Declaration{}, false
	}
	return analysis.Declaration{Name: name, Kind: d.kind, FilePath: fi.path, Pos: d.pos}, true
}

func (fi *fileInfo) importOf(local string) (importBinding, bool) {
	for _, imp := range fi.imports {
		if imp.local == local {
			return imp, true
		}
	}
	return importBinding{}, false
}

func (fi *fileInfo) addSpec(spec string) {
	for _, s := range fi.specs {
		if s == spec {
			return
		}
	}
	fi.specs = append(fi.specs, spec)
}

// parser holds one tree-sitter parser per dialect. It is not safe for
// concurrent use; each worker owns one.
type parser struct {
	ts  *tree_sitter.Parser
	tsx *tree_sitter.Parser
}

func newParser() (*parser, error) {
	p := &parser{ts: tree_sitter.NewParser(), tsx: tree_sitter.NewParser()}
	if err := p.ts.SetLanguage(languageTypeScript); err != nil {
		p.close()
		return nil, err
	}
	if err := p.tsx.SetLanguage(languageTSX); err != nil {
		p.close()
		return nil, err
	}
	return p, nil
}

func (p *parser) close() {
	p.ts.Close()
	p.tsx.Close()
}

func (p *parser) parse(path string, src []byte) *fileInfo {
	tp := p.ts
	if strings.HasSuffix(path, ".tsx") {
		tp = p.tsx
	}
	tree := tp.Parse(src, nil)
	defer tree.Close()

	x := &extractor{
		src:      src,
		info:     newFileInfo(path),
		names:    make(map[uint]bool),
		shadowed: make(map[string]int),
	}
	root := tree.RootNode()
	for i := uint(0); i < root.NamedChildCount(); i++ {
		x.statement(root.NamedChild(i))
	}
	return x.info
}

type extractor struct {
	src  []byte
	info *fileInfo
	// names holds the start bytes of declaration name nodes so the usage
	// walk does not count a declaration as a reference to itself.
	names map[uint]bool
	// shadowed counts the enclosing functions binding a name as a parameter.
	shadowed map[string]int
}

func (x *extractor) text(n *tree_sitter.Node) string {
	return n.Utf8Text(x.src)
}

func position(n *tree_sitter.Node) analysis.Position {
	p := n.StartPosition()
	return analysis.Position{Line: int(p.Row), Column: int(p.Column)}
}

func unquote(s string) string {
	return strings.Trim(s, "'\"`")
}

func (x *extractor) statement(n *tree_sitter.Node) {
	switch n.Kind() {
	case "import_statement":
		x.importStatement(n)
	case "export_statement":
		x.exportStatement(n)
	default:
		x.declaration(n)
		x.walk(n)
	}
}

func (x *extractor) importStatement(n *tree_sitter.Node) {
	source := n.ChildByFieldName("source")
	if source == nil {
		// import x = require('y')
		x.walk(n)
		return
	}
	spec := unquote(x.text(source))
	x.info.addSpec(spec)

	for i := uint(0); i < n.NamedChildCount(); i++ {
		clause := n.NamedChild(i)
		if clause.Kind() != "import_clause" {
			continue
		}
		for j := uint(0); j < clause.NamedChildCount(); j++ {
			x.importClause(clause.NamedChild(j), spec)
		}
	}
}

func (x *extractor) importClause(n *tree_sitter.Node, spec string) {
	switch n.Kind() {
	case "identifier":
		x.info.imports = append(x.info.imports, importBinding{
			local: x.text(n), imported: "default", spec: spec, pos: position(n),
		})
	case "namespace_import":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			if id := n.NamedChild(i); id.Kind() == "identifier" {
				x.info.imports = append(x.info.imports, importBinding{
					local: x.text(id), imported: "*", spec: spec, pos: position(id),
				})
			}
		}
	case "named_imports":
		for i := uint(0); i < n.NamedChildCount(); i++ {
			specifier := n.NamedChild(i)
			if specifier.Kind() != "import_specifier" {
				continue
			}
			name := specifier.ChildByFieldName("name")
			if name == nil {
				continue
			}
			imported := unquote(x.text(name))
			local := imported
			if alias := specifier.ChildByFieldName("alias"); alias != nil {
				local = x.text(alias)
			}
			x.info.imports = append(x.info.imports, importBinding{
				local: local, imported: imported, spec: spec, pos: position(specifier),
			})
		}
	}
}

func (x *extractor) exportStatement(n *tree_sitter.Node) {
	isDefault, isAssign := false, false
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c.IsNamed() {
			continue
		}
		switch c.Kind() {
		case "default":
			isDefault = true
		case "=":
			isAssign = true
		}
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		names := x.declaration(decl)
		switch {
		case isDefault && len(names) > 0:
			x.addExport(exportEntry{kind: exportLocal, name: "default", local: names[0], pos: position(decl)})
		case isDefault:
			x.addExport(exportEntry{kind: exportAssignment, name: "default", pos: position(decl)})
		default:
			for _, name := range names {
				d := x.info.decls[name]
				x.addExport(exportEntry{kind: exportLocal, name: name, local: name, pos: d.pos})
			}
		}
		x.walk(decl)
		return
	}

	if value := n.ChildByFieldName("value"); value != nil || isAssign {
		name := "default"
		if isAssign {
			name = "export="
		}
		x.addExport(exportEntry{kind: exportAssignment, name: name, pos: position(n)})
		for i := uint(0); i < n.NamedChildCount(); i++ {
			x.walk(n.NamedChild(i))
		}
		return
	}

	spec := ""
	source := n.ChildByFieldName("source")
	if source != nil {
		spec = unquote(x.text(source))
		x.info.addSpec(spec)
	}

	clauses := 0
	for i := uint(0); i < n.NamedChildCount(); i++ {
		c := n.NamedChild(i)
		switch c.Kind() {
		case "export_clause":
			clauses++
			x.exportClause(c, spec)
		case "namespace_export":
			clauses++
			for j := uint(0); j < c.NamedChildCount(); j++ {
				id := c.NamedChild(j)
				x.addExport(exportEntry{
					kind: exportNamespace, name: unquote(x.text(id)), spec: spec, pos: position(id),
				})
			}
		}
	}
	if source != nil && clauses == 0 {
		x.addExport(exportEntry{kind: exportStar, spec: spec, pos: position(n)})
	}
}

func (x *extractor) exportClause(n *tree_sitter.Node, spec string) {
	for i := uint(0); i < n.NamedChildCount(); i++ {
		specifier := n.NamedChild(i)
		if specifier.Kind() != "export_specifier" {
			continue
		}
		name := specifier.ChildByFieldName("name")
		if name == nil {
			continue
		}
		local := unquote(x.text(name))
		exported := local
		if alias := specifier.ChildByFieldName("alias"); alias != nil {
			exported = unquote(x.text(alias))
		}

		if spec != "" {
			x.addExport(exportEntry{
				kind: exportFrom, name: exported, imported: local, spec: spec, pos: position(specifier),
			})
			continue
		}
		x.addExport(exportEntry{kind: exportLocal, name: exported, local: local, pos: position(specifier)})
		// `export { Foo }` uses Foo
		x.info.usages[local] = append(x.info.usages[local], position(name))
	}
}

func (x *extractor) addExport(e exportEntry) {
	x.info.exports = append(x.info.exports, e)
}

// declaration records the top-level names n declares and returns them.
func (x *extractor) declaration(n *tree_sitter.Node) []string {
	switch n.Kind() {
	case "function_declaration", "generator_function_declaration", "function_signature":
		return x.named(n, analysis.KindFunction)
	case "class_declaration", "abstract_class_declaration":
		return x.named(n, analysis.KindClass)
	case "interface_declaration":
		return x.named(n, analysis.KindInterface)
	case "type_alias_declaration":
		return x.named(n, analysis.KindTypeAlias)
	case "enum_declaration":
		return x.named(n, analysis.KindEnum)
	case "internal_module", "module":
		return x.named(n, analysis.KindVariable)
	case "lexical_declaration", "variable_declaration":
		var names []string
		for i := uint(0); i < n.NamedChildCount(); i++ {
			d := n.NamedChild(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			if name := d.ChildByFieldName("name"); name != nil {
				names = append(names, x.pattern(name)...)
			}
		}
		return names
	case "ambient_declaration", "expression_statement":
		var names []string
		for i := uint(0); i < n.NamedChildCount(); i++ {
			names = append(names, x.declaration(n.NamedChild(i))...)
		}
		return names
	}
	return nil
}

func (x *extractor) named(n *tree_sitter.Node, kind analysis.DeclarationKind) []string {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	switch name.Kind() {
	case "identifier", "type_identifier", "nested_identifier":
	default:
		// declare module 'x'
		return nil
	}
	return []string{x.declare(name, kind)}
}

// pattern declares every binding in a variable name or destructuring pattern.
func (x *extractor) pattern(n *tree_sitter.Node) []string {
	var names []string
	bindings(n, func(id *tree_sitter.Node) {
		names = append(names, x.declare(id, analysis.KindVariable))
	})
	return names
}

// bindings calls visit for each identifier a binding pattern introduces.
func bindings(n *tree_sitter.Node, visit func(*tree_sitter.Node)) {
	switch n.Kind() {
	case "identifier", "shorthand_property_identifier_pattern":
		visit(n)
		return
	case "pair_pattern":
		if v := n.ChildByFieldName("value"); v != nil {
			bindings(v, visit)
		}
		return
	case "assignment_pattern", "object_assignment_pattern":
		if l := n.ChildByFieldName("left"); l != nil {
			bindings(l, visit)
		}
		return
	}
	for i := uint(0); i < n.NamedChildCount(); i++ {
		bindings(n.NamedChild(i), visit)
	}
}

// parameters lists the names a function-like node binds as parameters.
func (x *extractor) parameters(fn *tree_sitter.Node) []string {
	var names []string
	visit := func(id *tree_sitter.Node) { names = append(names, x.text(id)) }

	if p := fn.ChildByFieldName("parameter"); p != nil {
		// x => x
		bindings(p, visit)
		return names
	}
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}
	for i := uint(0); i < params.NamedChildCount(); i++ {
		if p := params.NamedChild(i).ChildByFieldName("pattern"); p != nil {
			bindings(p, visit)
		}
	}
	return names
}

func (x *extractor) declare(name *tree_sitter.Node, kind analysis.DeclarationKind) string {
	text := x.text(name)
	x.names[name.StartByte()] = true
	if _, ok := x.info.decls[text]; !ok {
		x.info.decls[text] = localDecl{kind: kind, pos: position(name)}
	}
	return text
}

// walk records identifier usages, namespace member accesses and dynamic
// import specifiers below n. Values named by an enclosing function's
// parameters are not usages.
func (x *extractor) walk(n *tree_sitter.Node) {
	switch n.Kind() {
	case "type_identifier":
		x.usage(n)
		return
	case "identifier", "shorthand_property_identifier":
		if x.shadowed[x.text(n)] == 0 {
			x.usage(n)
		}
		return
	case "string", "comment", "regex", "number":
		return
	case "function_declaration", "generator_function_declaration", "function_expression",
		"function", "generator_function", "arrow_function", "method_definition":
		params := x.parameters(n)
		for _, p := range params {
			x.shadowed[p]++
		}
		defer func() {
			for _, p := range params {
				x.shadowed[p]--
			}
		}()
	case "member_expression":
		obj, prop := n.ChildByFieldName("object"), n.ChildByFieldName("property")
		if obj != nil && prop != nil && obj.Kind() == "identifier" && prop.Kind() == "property_identifier" &&
			x.shadowed[x.text(obj)] == 0 {
			x.info.members = append(x.info.members, memberAccess{
				object: x.text(obj), property: x.text(prop), pos: position(prop),
			})
		}
	case "nested_type_identifier":
		module, name := n.ChildByFieldName("module"), n.ChildByFieldName("name")
		if module != nil && name != nil && module.Kind() == "identifier" {
			x.info.members = append(x.info.members, memberAccess{
				object: x.text(module), property: x.text(name), pos: position(name),
			})
		}
		return
	case "call_expression":
		// import('./lazy') pulls the file into the source set
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Kind() == "import" {
			if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				if arg := args.NamedChild(0); arg.Kind() == "string" {
					x.info.addSpec(unquote(x.text(arg)))
				}
			}
		}
	}

	for i := uint(0); i < n.NamedChildCount(); i++ {
		x.walk(n.NamedChild(i))
	}
}

func (x *extractor) usage(n *tree_sitter.Node) {
	if x.names[n.StartByte()] {
		return
	}
	name := x.text(n)
	x.info.usages[name] = append(x.info.usages[name], position(n))
}
