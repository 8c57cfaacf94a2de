package parser

import (
	"errors"

	"github.com/open-policy-agent/opa/v1/ast"
)

// Rego modules have no resource blocks of their own, so the dialect maps
// module structure onto the normalized tree instead: the module itself
// becomes one resource of kind "package", and every rego rule becomes a
// resource of kind "rule". Compliance rules can then require things like
// a deny rule being present, or a default allow being false.
func parseRego(doc Document) ([]Resource, error) {
	module, err := ast.ParseModule(doc.Name, string(doc.Content))
	if err != nil {
		return nil, syntaxErrorFromAST(doc.Name, err)
	}

	pkgPath := module.Package.Path.String()

	imports := make([]interface{}, 0, len(module.Imports))
	for _, imp := range module.Imports {
		imports = append(imports, imp.Path.String())
	}

	ruleCounts := make(map[string]interface{})
	resources := make([]Resource, 0, len(module.Rules)+1)

	for _, rule := range module.Rules {
		name := regoRuleName(rule)
		if n, ok := ruleCounts[name].(int); ok {
			ruleCounts[name] = n + 1
		} else {
			ruleCounts[name] = 1
		}

		res := Resource{
			Kind: "rule",
			Name: name,
			Fields: map[string]interface{}{
				"name":    name,
				"package": pkgPath,
				"default": rule.Default,
				"head":    rule.Head.String(),
				"body":    rule.Body.String(),
			},
			Source: Location{File: doc.Name},
		}
		if loc := rule.Loc(); loc != nil {
			res.Source.Line = loc.Row
			res.Source.Column = loc.Col
		}
		resources = append(resources, res)
	}

	pkg := Resource{
		Kind: "package",
		Name: pkgPath,
		Fields: map[string]interface{}{
			"path":    pkgPath,
			"imports": imports,
			"rules":   ruleCounts,
		},
		Source: Location{File: doc.Name},
	}
	if loc := module.Package.Loc(); loc != nil {
		pkg.Source.Line = loc.Row
		pkg.Source.Column = loc.Col
	}

	// Package resource first, rules in declaration order after it.
	return append([]Resource{pkg}, resources...), nil
}

// regoRuleName returns the rule's head name, falling back to the full
// head reference for ref-head rules.
func regoRuleName(rule *ast.Rule) string {
	if rule.Head.Name != "" {
		return string(rule.Head.Name)
	}
	return rule.Head.Ref().String()
}

// syntaxErrorFromAST converts OPA parser errors into a SyntaxError
// positioned at the first reported location.
func syntaxErrorFromAST(file string, err error) *SyntaxError {
	var astErrs ast.Errors
	if errors.As(err, &astErrs) && len(astErrs) > 0 {
		first := astErrs[0]
		se := &SyntaxError{File: file, Message: first.Message, Err: err}
		if first.Location != nil {
			se.Line = first.Location.Row
			se.Column = first.Location.Col
		}
		return se
	}
	return &SyntaxError{File: file, Message: err.Error(), Err: err}
}
