package pyast

// ExprContext mirrors Python's ast.expr_context: whether a name/attribute
// is being read, assigned to, or deleted.
type ExprContext int

const (
	Load ExprContext = iota
	Store
	Del
)

func (c ExprContext) EnumBase() string { return "ExprContext" }

func (c ExprContext) Variant() string {
	switch c {
	case Store:
		return "Store"
	case Del:
		return "Del"
	default:
		return "Load"
	}
}

// Operator mirrors a subset of ast.operator, the binary arithmetic
// operators.
type Operator int

const (
	Add Operator = iota
	Sub
	Mult
	Div
)

func (o Operator) EnumBase() string { return "Operator" }

func (o Operator) Variant() string {
	switch o {
	case Sub:
		return "Sub"
	case Mult:
		return "Mult"
	case Div:
		return "Div"
	default:
		return "Add"
	}
}

// CmpOp mirrors ast.cmpop, the comparison operators.
type CmpOp int

const (
	Eq CmpOp = iota
	NotEq
	Lt
	Gt
	LtE
	GtE
)

func (c CmpOp) EnumBase() string { return "CmpOp" }

func (c CmpOp) Variant() string {
	switch c {
	case NotEq:
		return "NotEq"
	case Lt:
		return "Lt"
	case Gt:
		return "Gt"
	case LtE:
		return "LtE"
	case GtE:
		return "GtE"
	default:
		return "Eq"
	}
}

// BoolOpKind mirrors ast.boolop, the `and`/`or` connective in a boolean
// expression (distinct from ReizQL's pattern-level Logical operator).
type BoolOpKind int

const (
	BoolAnd BoolOpKind = iota
	BoolOr
)

func (b BoolOpKind) EnumBase() string { return "BoolOp" }

func (b BoolOpKind) Variant() string {
	if b == BoolOr {
		return "Or"
	}
	return "And"
}
