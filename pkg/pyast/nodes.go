package pyast

// Sentinel stands in for an absent optional child (Go nil) so that every
// reference the serializer produces points at a real row — spec.md's
// "references are never null".
type Sentinel struct{}

func (Sentinel) Kind() string         { return "Sentinel" }
func (Sentinel) Fields() []FieldValue { return nil }

// Module is the root of every parsed file. Filename and Project are
// declared fields even though they're populated by the ingestion
// protocol rather than the parser, so that QLState.Fields can override
// them the same way it overrides any other declared field.
type Module struct {
	Body     []Stmt
	Filename string
	Project  any
}

func (m *Module) Kind() string { return "Module" }

func (m *Module) Fields() []FieldValue {
	body := make([]Node, len(m.Body))
	for i, s := range m.Body {
		body[i] = s
	}
	var filename any
	if m.Filename != "" {
		filename = m.Filename
	}
	return []FieldValue{
		{Name: "body", Value: nodeList(body)},
		{Name: "filename", Value: filename},
		{Name: "project", Value: m.Project},
	}
}

func nodeList(nodes []Node) any {
	if len(nodes) == 0 {
		return []Node{}
	}
	return nodes
}

// ---- statements ----

type FunctionDef struct {
	Pos
	Name       string
	Args       []*Arg
	Body       []Stmt
	Decorators []Expr
}

func (*FunctionDef) isStmt()        {}
func (f *FunctionDef) Kind() string { return "FunctionDef" }
func (f *FunctionDef) Fields() []FieldValue {
	args := make([]Node, len(f.Args))
	for i, a := range f.Args {
		args[i] = a
	}
	body := make([]Node, len(f.Body))
	for i, s := range f.Body {
		body[i] = s
	}
	decos := make([]Node, len(f.Decorators))
	for i, d := range f.Decorators {
		decos[i] = d
	}
	return []FieldValue{
		{Name: "name", Value: f.Name},
		{Name: "args", Value: nodeList(args)},
		{Name: "body", Value: nodeList(body)},
		{Name: "decorators", Value: nodeList(decos)},
	}
}

type ClassDef struct {
	Pos
	Name  string
	Bases []Expr
	Body  []Stmt
}

func (*ClassDef) isStmt()        {}
func (c *ClassDef) Kind() string { return "ClassDef" }
func (c *ClassDef) Fields() []FieldValue {
	bases := make([]Node, len(c.Bases))
	for i, b := range c.Bases {
		bases[i] = b
	}
	body := make([]Node, len(c.Body))
	for i, s := range c.Body {
		body[i] = s
	}
	return []FieldValue{
		{Name: "name", Value: c.Name},
		{Name: "bases", Value: nodeList(bases)},
		{Name: "body", Value: nodeList(body)},
	}
}

type If struct {
	Pos
	Test   Expr
	Body   []Stmt
	Orelse []Stmt
}

func (*If) isStmt()        {}
func (n *If) Kind() string { return "If" }
func (n *If) Fields() []FieldValue {
	body := make([]Node, len(n.Body))
	for i, s := range n.Body {
		body[i] = s
	}
	orelse := make([]Node, len(n.Orelse))
	for i, s := range n.Orelse {
		orelse[i] = s
	}
	var test any
	if n.Test != nil {
		test = n.Test
	}
	return []FieldValue{
		{Name: "test", Value: test},
		{Name: "body", Value: nodeList(body)},
		{Name: "orelse", Value: nodeList(orelse)},
	}
}

type For struct {
	Pos
	Target Expr
	Iter   Expr
	Body   []Stmt
}

func (*For) isStmt()        {}
func (n *For) Kind() string { return "For" }
func (n *For) Fields() []FieldValue {
	body := make([]Node, len(n.Body))
	for i, s := range n.Body {
		body[i] = s
	}
	return []FieldValue{
		{Name: "target", Value: exprOrNil(n.Target)},
		{Name: "iter", Value: exprOrNil(n.Iter)},
		{Name: "body", Value: nodeList(body)},
	}
}

type While struct {
	Pos
	Test Expr
	Body []Stmt
}

func (*While) isStmt()        {}
func (n *While) Kind() string { return "While" }
func (n *While) Fields() []FieldValue {
	body := make([]Node, len(n.Body))
	for i, s := range n.Body {
		body[i] = s
	}
	return []FieldValue{
		{Name: "test", Value: exprOrNil(n.Test)},
		{Name: "body", Value: nodeList(body)},
	}
}

type Return struct {
	Pos
	Value Expr
}

func (*Return) isStmt()        {}
func (n *Return) Kind() string { return "Return" }
func (n *Return) Fields() []FieldValue {
	return []FieldValue{{Name: "value", Value: exprOrNil(n.Value)}}
}

type Assign struct {
	Pos
	Targets []Expr
	Value   Expr
}

func (*Assign) isStmt()        {}
func (n *Assign) Kind() string { return "Assign" }
func (n *Assign) Fields() []FieldValue {
	targets := make([]Node, len(n.Targets))
	for i, t := range n.Targets {
		targets[i] = t
	}
	return []FieldValue{
		{Name: "targets", Value: nodeList(targets)},
		{Name: "value", Value: exprOrNil(n.Value)},
	}
}

type Import struct {
	Pos
	Names []string
}

func (*Import) isStmt()        {}
func (n *Import) Kind() string { return "Import" }
func (n *Import) Fields() []FieldValue {
	return []FieldValue{{Name: "names", Value: stringList(n.Names)}}
}

func stringList(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

type ExprStmt struct {
	Pos
	Value Expr
}

func (*ExprStmt) isStmt()        {}
func (n *ExprStmt) Kind() string { return "ExprStmt" }
func (n *ExprStmt) Fields() []FieldValue {
	return []FieldValue{{Name: "value", Value: exprOrNil(n.Value)}}
}

// ---- expressions ----

func exprOrNil(e Expr) any {
	if e == nil {
		return nil
	}
	return e
}

type Name struct {
	Pos
	ID  string
	Ctx ExprContext
}

func (*Name) isExpr()        {}
func (n *Name) Kind() string { return "Name" }
func (n *Name) Fields() []FieldValue {
	return []FieldValue{
		{Name: "id", Value: n.ID},
		{Name: "ctx", Value: n.Ctx},
	}
}

type Call struct {
	Pos
	Func Expr
	Args []Expr
}

func (*Call) isExpr()        {}
func (n *Call) Kind() string { return "Call" }
func (n *Call) Fields() []FieldValue {
	args := make([]Node, len(n.Args))
	for i, a := range n.Args {
		args[i] = a
	}
	return []FieldValue{
		{Name: "func", Value: exprOrNil(n.Func)},
		{Name: "args", Value: nodeList(args)},
	}
}

type Attribute struct {
	Pos
	Value Expr
	Attr  string
	Ctx   ExprContext
}

func (*Attribute) isExpr()        {}
func (n *Attribute) Kind() string { return "Attribute" }
func (n *Attribute) Fields() []FieldValue {
	return []FieldValue{
		{Name: "value", Value: exprOrNil(n.Value)},
		{Name: "attr", Value: n.Attr},
		{Name: "ctx", Value: n.Ctx},
	}
}

type BinOp struct {
	Pos
	Left  Expr
	Op    Operator
	Right Expr
}

func (*BinOp) isExpr()        {}
func (n *BinOp) Kind() string { return "BinOp" }
func (n *BinOp) Fields() []FieldValue {
	return []FieldValue{
		{Name: "left", Value: exprOrNil(n.Left)},
		{Name: "op", Value: n.Op},
		{Name: "right", Value: exprOrNil(n.Right)},
	}
}

type Compare struct {
	Pos
	Left        Expr
	Ops         []CmpOp
	Comparators []Expr
}

func (*Compare) isExpr()        {}
func (n *Compare) Kind() string { return "Compare" }
func (n *Compare) Fields() []FieldValue {
	comparators := make([]Node, len(n.Comparators))
	for i, c := range n.Comparators {
		comparators[i] = c
	}
	ops := make([]Node, len(n.Ops))
	for i, o := range n.Ops {
		ops[i] = enumNode{o}
	}
	return []FieldValue{
		{Name: "left", Value: exprOrNil(n.Left)},
		{Name: "ops", Value: nodeList(ops)},
		{Name: "comparators", Value: nodeList(comparators)},
	}
}

// enumNode adapts a bare EnumValue so it can travel through a []Node
// field slot (ops in a Compare) without widening Node itself.
type enumNode struct{ EnumValue }

func (e enumNode) Kind() string         { return e.EnumBase() }
func (e enumNode) Fields() []FieldValue { return nil }

type Constant struct {
	Pos
	Value any // string, int64, bool, or nil for Python's None
}

func (*Constant) isExpr()        {}
func (n *Constant) Kind() string { return "Constant" }
func (n *Constant) Fields() []FieldValue {
	return []FieldValue{{Name: "value", Value: n.Value}}
}

type BoolOp struct {
	Pos
	Op     BoolOpKind
	Values []Expr
}

func (*BoolOp) isExpr()        {}
func (n *BoolOp) Kind() string { return "BoolOp" }
func (n *BoolOp) Fields() []FieldValue {
	values := make([]Node, len(n.Values))
	for i, v := range n.Values {
		values[i] = v
	}
	return []FieldValue{
		{Name: "op", Value: n.Op},
		{Name: "values", Value: nodeList(values)},
	}
}

// Arg is Python's ast.arg: a single function parameter, optionally
// annotated. It has its own abstract base ("arg"), distinct from stmt
// and expr, which is why a positional match against annotation must
// reach the module back-pointer through the annotation field (spec §4.3.1).
type Arg struct {
	Pos
	ArgName    string
	Annotation Expr
}

func (a *Arg) Kind() string { return "arg" }
func (a *Arg) Fields() []FieldValue {
	return []FieldValue{
		{Name: "arg", Value: a.ArgName},
		{Name: "annotation", Value: exprOrNil(a.Annotation)},
	}
}
