// Package pyparse lowers Python source into pkg/pyast trees using
// tree-sitter, the parsing front end pkg/engine.IngestFile hands off to —
// grounded on termfx-morfx's internal/lang/python provider, which walks
// the same go-tree-sitter CST this package consumes, though for a
// different end (structural search templates rather than a closed AST
// schema).
package pyparse

import (
	"fmt"
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/reizio/reiz/pkg/pyast"
)

// Parse converts src into a pkg/pyast.Module. filename is stamped onto the
// result so callers don't need a second pass to fill it in.
func Parse(src []byte, filename string) (*pyast.Module, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	tree := parser.Parse(nil, src)
	if tree == nil {
		return nil, fmt.Errorf("pyparse: %s: tree-sitter returned no tree", filename)
	}
	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("pyparse: %s: syntax error", filename)
	}

	c := &converter{src: src, filename: filename}
	body := c.convertBlock(root)
	return &pyast.Module{Body: body, Filename: filename}, nil
}

type converter struct {
	src      []byte
	filename string
}

func (c *converter) text(n *sitter.Node) string {
	return n.Content(c.src)
}

func (c *converter) pos(n *sitter.Node) pyast.Pos {
	start, end := n.StartPoint(), n.EndPoint()
	return pyast.Pos{
		Lineno:       int(start.Row) + 1,
		ColOffset:    int(start.Column),
		EndLineno:    int(end.Row) + 1,
		EndColOffset: int(end.Column),
	}
}

// convertBlock lowers every direct child statement of a module/block node,
// skipping child kinds this closed schema doesn't declare (comments,
// blank lines, and Python constructs (match/try/with/...) outside the
// node-kind set this repo indexes).
func (c *converter) convertBlock(n *sitter.Node) []pyast.Stmt {
	var out []pyast.Stmt
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if stmt := c.convertStmt(child); stmt != nil {
			out = append(out, stmt)
		}
	}
	return out
}

func (c *converter) convertStmt(n *sitter.Node) pyast.Stmt {
	switch n.Type() {
	case "function_definition":
		return c.convertFunctionDef(n)
	case "class_definition":
		return c.convertClassDef(n)
	case "if_statement":
		return c.convertIf(n)
	case "for_statement":
		return c.convertFor(n)
	case "while_statement":
		return c.convertWhile(n)
	case "return_statement":
		return c.convertReturn(n)
	case "import_statement", "import_from_statement":
		return c.convertImport(n)
	case "expression_statement":
		return c.convertExprStmtOrAssign(n)
	default:
		return nil
	}
}

// convertExprStmtOrAssign dispatches on the wrapped expression's type:
// tree-sitter nests `x = 1` inside an expression_statement just like any
// bare expression, but this schema represents it as a top-level Assign.
func (c *converter) convertExprStmtOrAssign(n *sitter.Node) pyast.Stmt {
	if n.ChildCount() == 0 {
		return &pyast.ExprStmt{Pos: c.pos(n)}
	}
	child := n.Child(0)
	if child.Type() == "assignment" {
		return c.convertAssign(child)
	}
	return &pyast.ExprStmt{Pos: c.pos(n), Value: c.convertExpr(child)}
}

func (c *converter) convertFunctionDef(n *sitter.Node) *pyast.FunctionDef {
	fn := &pyast.FunctionDef{Pos: c.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		fn.Name = c.text(name)
	}
	if params := n.ChildByFieldName("parameters"); params != nil {
		fn.Args = c.convertParams(params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		fn.Body = c.convertBlock(body)
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "decorator" {
			if expr := c.decoratorExpr(child); expr != nil {
				fn.Decorators = append(fn.Decorators, expr)
			}
		}
	}
	return fn
}

func (c *converter) decoratorExpr(n *sitter.Node) pyast.Expr {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "@" {
			continue
		}
		return c.convertExpr(child)
	}
	return nil
}

func (c *converter) convertParams(n *sitter.Node) []*pyast.Arg {
	var out []*pyast.Arg
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "identifier":
			out = append(out, &pyast.Arg{Pos: c.pos(child), ArgName: c.text(child)})
		case "typed_parameter":
			arg := &pyast.Arg{Pos: c.pos(child)}
			if id := child.Child(0); id != nil && id.Type() == "identifier" {
				arg.ArgName = c.text(id)
			}
			if ann := child.ChildByFieldName("type"); ann != nil {
				arg.Annotation = c.convertExpr(ann)
			}
			out = append(out, arg)
		case "default_parameter", "typed_default_parameter":
			if name := child.ChildByFieldName("name"); name != nil {
				arg := &pyast.Arg{Pos: c.pos(child), ArgName: c.text(name)}
				if ann := child.ChildByFieldName("type"); ann != nil {
					arg.Annotation = c.convertExpr(ann)
				}
				out = append(out, arg)
			}
		}
	}
	return out
}

func (c *converter) convertClassDef(n *sitter.Node) *pyast.ClassDef {
	cd := &pyast.ClassDef{Pos: c.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		cd.Name = c.text(name)
	}
	if superclasses := n.ChildByFieldName("superclasses"); superclasses != nil {
		for i := 0; i < int(superclasses.ChildCount()); i++ {
			child := superclasses.Child(i)
			if expr := c.convertExpr(child); expr != nil {
				cd.Bases = append(cd.Bases, expr)
			}
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		cd.Body = c.convertBlock(body)
	}
	return cd
}

func (c *converter) convertIf(n *sitter.Node) *pyast.If {
	stmt := &pyast.If{Pos: c.pos(n)}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		stmt.Test = c.convertExpr(cond)
	}
	if body := n.ChildByFieldName("consequence"); body != nil {
		stmt.Body = c.convertBlock(body)
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		switch alt.Type() {
		case "else_clause":
			if block := alt.ChildByFieldName("body"); block != nil {
				stmt.Orelse = c.convertBlock(block)
			}
		case "elif_clause":
			if elif := c.convertElif(alt); elif != nil {
				stmt.Orelse = []pyast.Stmt{elif}
			}
		}
	}
	return stmt
}

func (c *converter) convertElif(n *sitter.Node) *pyast.If {
	stmt := &pyast.If{Pos: c.pos(n)}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		stmt.Test = c.convertExpr(cond)
	}
	if body := n.ChildByFieldName("consequence"); body != nil {
		stmt.Body = c.convertBlock(body)
	}
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		switch alt.Type() {
		case "else_clause":
			if block := alt.ChildByFieldName("body"); block != nil {
				stmt.Orelse = c.convertBlock(block)
			}
		case "elif_clause":
			if elif := c.convertElif(alt); elif != nil {
				stmt.Orelse = []pyast.Stmt{elif}
			}
		}
	}
	return stmt
}

func (c *converter) convertFor(n *sitter.Node) *pyast.For {
	stmt := &pyast.For{Pos: c.pos(n)}
	if target := n.ChildByFieldName("left"); target != nil {
		stmt.Target = c.convertExpr(target)
	}
	if iter := n.ChildByFieldName("right"); iter != nil {
		stmt.Iter = c.convertExpr(iter)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		stmt.Body = c.convertBlock(body)
	}
	return stmt
}

func (c *converter) convertWhile(n *sitter.Node) *pyast.While {
	stmt := &pyast.While{Pos: c.pos(n)}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		stmt.Test = c.convertExpr(cond)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		stmt.Body = c.convertBlock(body)
	}
	return stmt
}

func (c *converter) convertReturn(n *sitter.Node) *pyast.Return {
	stmt := &pyast.Return{Pos: c.pos(n)}
	if n.ChildCount() > 1 {
		stmt.Value = c.convertExpr(n.Child(1))
	}
	return stmt
}

func (c *converter) convertImport(n *sitter.Node) *pyast.Import {
	stmt := &pyast.Import{Pos: c.pos(n)}
	switch n.Type() {
	case "import_statement":
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
				stmt.Names = append(stmt.Names, c.text(child))
			}
		}
	case "import_from_statement":
		module := ""
		if m := n.ChildByFieldName("module_name"); m != nil {
			module = c.text(m) + "."
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			child := n.Child(i)
			if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
				stmt.Names = append(stmt.Names, module+c.text(child))
			}
		}
	}
	return stmt
}

// convertExpr lowers a single expression node. Assignments ride inside
// expression_statement in tree-sitter's grammar but are a top-level
// statement kind in this schema, so convertExprStmtOrAssign builds them
// and convertExpr itself returns nil for an assignment node.
func (c *converter) convertExpr(n *sitter.Node) pyast.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return &pyast.Name{Pos: c.pos(n), ID: c.text(n), Ctx: pyast.Load}
	case "attribute":
		attr := &pyast.Attribute{Pos: c.pos(n), Ctx: pyast.Load}
		if obj := n.ChildByFieldName("object"); obj != nil {
			attr.Value = c.convertExpr(obj)
		}
		if a := n.ChildByFieldName("attribute"); a != nil {
			attr.Attr = c.text(a)
		}
		return attr
	case "call":
		call := &pyast.Call{Pos: c.pos(n)}
		if fn := n.ChildByFieldName("function"); fn != nil {
			call.Func = c.convertExpr(fn)
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.ChildCount()); i++ {
				argNode := args.Child(i)
				if expr := c.convertExpr(argNode); expr != nil {
					call.Args = append(call.Args, expr)
				}
			}
		}
		return call
	case "binary_operator":
		bin := &pyast.BinOp{Pos: c.pos(n)}
		if left := n.ChildByFieldName("left"); left != nil {
			bin.Left = c.convertExpr(left)
		}
		if right := n.ChildByFieldName("right"); right != nil {
			bin.Right = c.convertExpr(right)
		}
		if op := n.ChildByFieldName("operator"); op != nil {
			bin.Op = convertOperator(c.text(op))
		}
		return bin
	case "comparison_operator":
		return c.convertComparison(n)
	case "boolean_operator":
		return c.convertBoolOp(n)
	case "not_operator":
		// Schema has no unary-not node kind; fall through to its operand
		// so `not x` still indexes as `x` rather than vanishing entirely.
		if arg := n.ChildByFieldName("argument"); arg != nil {
			return c.convertExpr(arg)
		}
		return nil
	case "string":
		return &pyast.Constant{Pos: c.pos(n), Value: stringLiteralValue(c.text(n))}
	case "integer":
		v, _ := strconv.ParseInt(c.text(n), 0, 64)
		return &pyast.Constant{Pos: c.pos(n), Value: v}
	case "true":
		return &pyast.Constant{Pos: c.pos(n), Value: true}
	case "false":
		return &pyast.Constant{Pos: c.pos(n), Value: false}
	case "none":
		return &pyast.Constant{Pos: c.pos(n), Value: nil}
	case "assignment":
		// Reached when an expression_statement wraps a single assignment;
		// callers that need the Stmt form use convertAssign directly.
		return nil
	case "parenthesized_expression":
		if n.ChildCount() > 1 {
			return c.convertExpr(n.Child(1))
		}
		return nil
	default:
		return nil
	}
}

func (c *converter) convertComparison(n *sitter.Node) *pyast.Compare {
	cmp := &pyast.Compare{Pos: c.pos(n)}
	if n.ChildCount() == 0 {
		return cmp
	}
	cmp.Left = c.convertExpr(n.Child(0))
	for i := 1; i+1 < int(n.ChildCount()); i += 2 {
		cmp.Ops = append(cmp.Ops, convertCmpOp(c.text(n.Child(i))))
		cmp.Comparators = append(cmp.Comparators, c.convertExpr(n.Child(i+1)))
	}
	return cmp
}

func (c *converter) convertBoolOp(n *sitter.Node) *pyast.BoolOp {
	op := &pyast.BoolOp{Pos: c.pos(n)}
	if operator := n.ChildByFieldName("operator"); operator != nil && c.text(operator) == "or" {
		op.Op = pyast.BoolOr
	}
	if left := n.ChildByFieldName("left"); left != nil {
		if expr := c.convertExpr(left); expr != nil {
			op.Values = append(op.Values, expr)
		}
	}
	if right := n.ChildByFieldName("right"); right != nil {
		if expr := c.convertExpr(right); expr != nil {
			op.Values = append(op.Values, expr)
		}
	}
	return op
}

// convertAssign handles the tree-sitter shape
// expression_statement -> assignment, which this schema represents as a
// single Assign statement rather than an expression-wrapped one.
func (c *converter) convertAssign(n *sitter.Node) *pyast.Assign {
	a := &pyast.Assign{Pos: c.pos(n)}
	if left := n.ChildByFieldName("left"); left != nil {
		if expr := c.convertExpr(left); expr != nil {
			a.Targets = []pyast.Expr{expr}
		}
	}
	if right := n.ChildByFieldName("right"); right != nil {
		a.Value = c.convertExpr(right)
	}
	return a
}

func convertOperator(op string) pyast.Operator {
	switch op {
	case "-":
		return pyast.Sub
	case "*":
		return pyast.Mult
	case "/":
		return pyast.Div
	default:
		return pyast.Add
	}
}

func convertCmpOp(op string) pyast.CmpOp {
	switch op {
	case "!=":
		return pyast.NotEq
	case "<":
		return pyast.Lt
	case ">":
		return pyast.Gt
	case "<=":
		return pyast.LtE
	case ">=":
		return pyast.GtE
	default:
		return pyast.Eq
	}
}

// stringLiteralValue strips the quote characters tree-sitter's python
// grammar retains in a "string" node's text. It does not resolve escape
// sequences or f-string interpolation — indexing treats string literals
// as opaque atoms, matching original_source/reiz's own ATOMIC_TYPES
// handling of str.
func stringLiteralValue(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	quote := raw[0]
	if (quote == '"' || quote == '\'') && raw[len(raw)-1] == quote {
		return raw[1 : len(raw)-1]
	}
	return raw
}
