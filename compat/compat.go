// Package compat checks a candidate fix against the sibling files that
// reference it: renamed or removed symbols must still satisfy every
// reference from context files, and the candidate's own imports must be
// well-formed.
package compat

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
)

// IssueKind categorizes a compatibility problem.
type IssueKind string

const (
	IssueMissingSymbol IssueKind = "missing_symbol"
	IssueInvalidImport IssueKind = "invalid_import"
	IssueParseError    IssueKind = "parse_error"
)

// Issue is one compatibility problem found in a candidate.
type Issue struct {
	Path    string
	Kind    IssueKind
	Message string
	Line    int
}

// Checker verifies candidate source against sibling context files.
type Checker struct{}

// New creates a Checker.
func New() *Checker {
	return &Checker{}
}

// Check parses candidateSource (the proposed replacement for path) and
// every file in contextFiles (path -> source), then reports every issue
// found. An empty result means the candidate is compatible.
func (c *Checker) Check(candidateSource, path string, contextFiles map[string]string) ([]Issue, error) {
	fset := token.NewFileSet()

	candidateFile, err := parser.ParseFile(fset, path, candidateSource, parser.AllErrors)
	if err != nil {
		return []Issue{{Path: path, Kind: IssueParseError, Message: err.Error()}}, nil
	}

	var issues []Issue
	issues = append(issues, checkImports(fset, candidateFile, path)...)

	symbols := topLevelSymbols(candidateFile)
	packageName := candidateFile.Name.Name
	baseName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	for ctxPath, src := range contextFiles {
		ctxFile, err := parser.ParseFile(fset, ctxPath, src, parser.AllErrors)
		if err != nil {
			issues = append(issues, Issue{Path: ctxPath, Kind: IssueParseError, Message: err.Error()})
			continue
		}
		alias := importAlias(ctxFile, path, packageName, baseName)
		if alias == "" {
			continue // this context file does not import the candidate's package
		}
		issues = append(issues, checkReferences(fset, ctxFile, ctxPath, alias, symbols)...)
	}

	return issues, nil
}

// topLevelSymbols collects every exported top-level function, type, and
// var/const name the candidate declares.
func topLevelSymbols(file *ast.File) map[string]bool {
	symbols := make(map[string]bool)
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv == nil && d.Name.IsExported() {
				symbols[d.Name.Name] = true
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if s.Name.IsExported() {
						symbols[s.Name.Name] = true
					}
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if name.IsExported() {
							symbols[name.Name] = true
						}
					}
				}
			}
		}
	}
	return symbols
}

// importAlias finds the local alias a context file uses to import the
// candidate's package, matching either on the candidate's declared
// package name or its file's base name (the common layout for a
// same-directory sibling).
func importAlias(ctxFile *ast.File, candidatePath, packageName, baseName string) string {
	for _, imp := range ctxFile.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		last := path_Base(importPath)
		if last != packageName && last != baseName {
			continue
		}
		if imp.Name != nil {
			return imp.Name.Name
		}
		return last
	}
	return ""
}

func path_Base(importPath string) string {
	idx := strings.LastIndex(importPath, "/")
	if idx == -1 {
		return importPath
	}
	return importPath[idx+1:]
}

// checkReferences walks ctxFile for alias.Symbol selector expressions and
// reports any Symbol missing from the candidate's declared set.
func checkReferences(fset *token.FileSet, ctxFile *ast.File, ctxPath, alias string, symbols map[string]bool) []Issue {
	var issues []Issue
	ast.Inspect(ctxFile, func(n ast.Node) bool {
		sel, ok := n.(*ast.SelectorExpr)
		if !ok {
			return true
		}
		ident, ok := sel.X.(*ast.Ident)
		if !ok || ident.Name != alias {
			return true
		}
		if !symbols[sel.Sel.Name] {
			pos := fset.Position(sel.Pos())
			issues = append(issues, Issue{
				Path:    ctxPath,
				Kind:    IssueMissingSymbol,
				Message: fmt.Sprintf("%s.%s is referenced here but no longer exists in the candidate", alias, sel.Sel.Name),
				Line:    pos.Line,
			})
		}
		return true
	})
	return issues
}

// checkImports flags syntactically malformed import paths in the
// candidate. Resolving third-party imports against the module graph
// requires a real build, which this checker deliberately does not
// perform.
func checkImports(fset *token.FileSet, file *ast.File, path string) []Issue {
	var issues []Issue
	for _, imp := range file.Imports {
		importPath, err := strconv.Unquote(imp.Path.Value)
		if err != nil || importPath == "" || strings.ContainsAny(importPath, " \t\"") {
			pos := fset.Position(imp.Pos())
			issues = append(issues, Issue{
				Path:    path,
				Kind:    IssueInvalidImport,
				Message: fmt.Sprintf("malformed import %q", imp.Path.Value),
				Line:    pos.Line,
			})
		}
	}
	return issues
}
