package enumvalidator

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

var Analyzer = &analysis.Analyzer{
	Name: "enumvalidator",
	Doc:  "checks that enum-typed values use their defined constants, not string literals",
	Run:  run,
}

// enumTypes are the string enums persisted in history documents or sent to
// clients. A typo in a literal would silently create a new value.
var enumTypes = map[string]bool{
	"QueryStatus":   true,
	"StatementKind": true,
	"Stage":         true,
}

func run(pass *analysis.Pass) (any, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.AssignStmt:
				for i, lhs := range node.Lhs {
					if i >= len(node.Rhs) {
						continue
					}
					sel, ok := lhs.(*ast.SelectorExpr)
					if !ok {
						continue
					}
					if isStringLiteral(node.Rhs[i]) && isEnum(pass.TypesInfo.TypeOf(sel)) {
						pass.Reportf(node.Pos(),
							"enum field %s assigned string literal; use defined constant instead",
							sel.Sel.Name)
					}
				}

			case *ast.KeyValueExpr:
				key, ok := node.Key.(*ast.Ident)
				if !ok {
					return true
				}
				if isStringLiteral(node.Value) && isEnum(pass.TypesInfo.TypeOf(node.Value)) {
					pass.Reportf(node.Pos(),
						"enum field %s set to string literal; use defined constant instead",
						key.Name)
				}
			}
			return true
		})
	}
	return nil, nil
}

func isEnum(t types.Type) bool {
	named, ok := t.(*types.Named)
	return ok && enumTypes[named.Obj().Name()]
}

func isStringLiteral(expr ast.Expr) bool {
	lit, ok := expr.(*ast.BasicLit)
	return ok && lit.Kind == token.STRING
}
