// Package analysis defines what flock needs from a source analysis engine.
//
// The dependency core never parses source itself. It loads a source set
// through an Engine, asks for the exports of library barrel files, and asks
// for every reference to each exported declaration. Any engine that can
// answer those questions (the tree-sitter engine in tsengine, or the
// in-memory fake in analysistest) can drive the core.
package analysis

import (
	"context"
	"fmt"
)

// DeclarationKind classifies a declaration handle.
type DeclarationKind int

const (
	KindUnknown DeclarationKind = iota
	KindFunction
	KindClass
	KindVariable
	KindInterface
	KindTypeAlias
	KindEnum
	// KindExportSpecifier is an alias such as `export { Foo } from './foo'`.
	// Its references are found through the declarations it aliases.
	KindExportSpecifier
	// KindExportAssignment is `export default <expression>`.
	KindExportAssignment
	// KindNamespaceExport is `export * as ns from './x'`.
	KindNamespaceExport
)

func (k DeclarationKind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindClass:
		return "class"
	case KindVariable:
		return "variable"
	case KindInterface:
		return "interface"
	case KindTypeAlias:
		return "type"
	case KindEnum:
		return "enum"
	case KindExportSpecifier:
		return "export-specifier"
	case KindExportAssignment:
		return "export-assignment"
	case KindNamespaceExport:
		return "namespace-export"
	default:
		return "unknown"
	}
}

// Position is a zero-based line and column in a file.
type Position struct {
	Line   int
	Column int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Declaration is an opaque handle to a declaration site. Only the engine
// that produced it interprets it.
type Declaration struct {
	Name     string
	Kind     DeclarationKind
	FilePath string
	Pos      Position
}

// IsAlias reports whether the declaration forwards to another symbol.
func (d Declaration) IsAlias() bool {
	return d.Kind == KindExportSpecifier
}

func (d Declaration) String() string {
	return fmt.Sprintf("%s %s (%s:%s)", d.Kind, d.Name, d.FilePath, d.Pos)
}

// Symbol is one exported name of a file with its declaration sites.
type Symbol struct {
	Name         string
	Declarations []Declaration
}

// Reference is a location where a declaration is used.
type Reference struct {
	FilePath string
	Pos      Position
}

// Engine is the capability contract of the external analysis engine.
type Engine interface {
	// AddSourceFilesFromConfig loads every file a compiler config includes
	// plus the files they reach through relative or mapped imports.
	AddSourceFilesFromConfig(ctx context.Context, configPath string) error

	// HasSourceFile reports whether path is part of the loaded source set.
	HasSourceFile(path string) bool

	// ExportedSymbols lists the exports of a loaded file in source order.
	ExportedSymbols(path string) ([]Symbol, error)

	// IsReferenceFindable reports whether FindReferences can track decl.
	IsReferenceFindable(decl Declaration) bool

	// FindReferences returns every syntactic reference site of decl.
	FindReferences(ctx context.Context, decl Declaration) ([]Reference, error)

	// ResolveAlias returns the declarations of the symbol an export
	// specifier forwards to.
	ResolveAlias(decl Declaration) ([]Declaration, error)
}
