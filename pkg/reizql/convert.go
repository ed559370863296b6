package reizql

import (
	"errors"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/reizio/reiz/pkg/pyast"
)

// ParseQuery parses a ReizQL query string into its root Match. Any failure —
// lexing, grammar, or schema validation — comes back as a *SyntaxError.
func ParseQuery(input string) (*Match, error) {
	raw, err := reizqlParser.ParseString("", input)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return convertMatch(raw)
}

// wrapParseError turns whatever participle returns into our own
// *SyntaxError, carrying position when participle exposes one — the same
// error-boundary shape pgraph's internal/dsl/errors.go keeps around its
// own participle.Error.
func wrapParseError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		pos := perr.Position()
		return newSyntaxErr(ErrUnexpectedToken, &Position{Line: pos.Line, Column: pos.Column}, "%s", perr.Message())
	}
	return newSyntaxErr(ErrUnexpectedToken, nil, "%s", err.Error())
}

func posOf(p lexer.Position) *Position {
	return &Position{Line: p.Line, Column: p.Column}
}

func convertMatch(g *grammarMatch) (*Match, error) {
	info, ok := knownKind(g.Name)
	if !ok {
		return nil, newSyntaxErr(ErrUnknownNodeKind, posOf(g.Pos), "unknown node kind %q", g.Name)
	}

	m := &Match{Name: g.Name, Positional: info.Positional}
	seenPositional := false

	for _, arg := range g.Args {
		switch {
		case arg.Keyword != nil:
			key := arg.Keyword.Key
			if !pyast.HasField(g.Name, key) {
				return nil, newSyntaxErr(ErrUnknownField, posOf(g.Pos), "%q has no field %q", g.Name, key)
			}
			val, err := convertValue(arg.Keyword.Value)
			if err != nil {
				return nil, err
			}
			m.Filters = append(m.Filters, MatchFilter{Key: key, Value: val})

		case arg.Positional != nil:
			if info.PositionalArg == "" {
				return nil, newSyntaxErr(ErrPositionalNotAllowed, posOf(g.Pos), "%q takes no positional argument", g.Name)
			}
			if seenPositional {
				return nil, newSyntaxErr(ErrPositionalNotAllowed, posOf(g.Pos), "%q takes at most one positional argument", g.Name)
			}
			seenPositional = true
			val, err := convertValue(arg.Positional)
			if err != nil {
				return nil, err
			}
			m.Filters = append(m.Filters, MatchFilter{Key: info.PositionalArg, Value: val})
		}
	}

	return m, nil
}

// convertValue walks the `|`-chain (loosest precedence), folding
// left-associatively into nested Logical{Op: LogicalOr} nodes.
func convertValue(g *grammarValue) (MatchValue, error) {
	if len(g.Terms) == 0 {
		return nil, newSyntaxErr(ErrUnexpectedToken, posOf(g.Pos), "empty value")
	}
	left, err := convertAnd(g.Terms[0])
	if err != nil {
		return nil, err
	}
	for _, term := range g.Terms[1:] {
		right, err := convertAnd(term)
		if err != nil {
			return nil, err
		}
		if err := checkHomogeneous(left, right); err != nil {
			return nil, err
		}
		left = Logical{Op: LogicalOr, Left: left, Right: right}
	}
	return left, nil
}

// convertAnd walks the `&`-chain, binding tighter than `|`.
func convertAnd(g *grammarTerm) (MatchValue, error) {
	if len(g.Factors) == 0 {
		return nil, newSyntaxErr(ErrUnexpectedToken, nil, "empty term")
	}
	left, err := convertNeg(g.Factors[0])
	if err != nil {
		return nil, err
	}
	for _, factor := range g.Factors[1:] {
		right, err := convertNeg(factor)
		if err != nil {
			return nil, err
		}
		if err := checkHomogeneous(left, right); err != nil {
			return nil, err
		}
		left = Logical{Op: LogicalAnd, Left: left, Right: right}
	}
	return left, nil
}

// convertNeg applies `!`, the tightest-binding operator.
func convertNeg(g *grammarFactor) (MatchValue, error) {
	val, err := convertPrimary(g.Primary)
	if err != nil {
		return nil, err
	}
	if g.Negated {
		return Negation{Value: val}, nil
	}
	return val, nil
}

func convertPrimary(g *grammarPrimary) (MatchValue, error) {
	switch {
	case g.Paren != nil:
		return convertValue(g.Paren)

	case g.Match != nil:
		return convertMatch(g.Match)

	case g.List != nil:
		items := make([]MatchValue, 0, len(g.List.Items))
		var family string
		for _, item := range g.List.Items {
			v, err := convertValue(item)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				family = variantFamily(v)
			} else if variantFamily(v) != family {
				return nil, newSyntaxErr(ErrHomogeneityViolation, posOf(g.Pos), "list elements must share a kind: %s vs %s", family, variantFamily(v))
			}
			items = append(items, v)
		}
		return List{Items: items}, nil

	case g.Wildcard:
		return Wildcard{}, nil

	case g.String != nil:
		return Atom{Value: unquote(*g.String)}, nil

	case g.Int != nil:
		return Atom{Value: *g.Int}, nil

	case g.Ident != nil:
		switch *g.Ident {
		case "None":
			return Atom{Value: nil}, nil
		default:
			return EnumVal{Name: *g.Ident}, nil
		}

	default:
		return nil, newSyntaxErr(ErrUnexpectedToken, posOf(g.Pos), "empty primary expression")
	}
}

// checkHomogeneous enforces that both sides of a logical combinator
// belong to the same value family — spec.md's homogeneity constraint
// extended from lists to & and |.
func checkHomogeneous(left, right MatchValue) error {
	lf, rf := variantFamily(left), variantFamily(right)
	if lf != rf {
		return newSyntaxErr(ErrHomogeneityViolation, nil, "cannot combine %s with %s", lf, rf)
	}
	return nil
}

// unquote strips the lexer's String token delimiters and resolves the
// two backslash escapes ReizQL string literals allow: an escaped
// delimiter quote and an escaped backslash. Any other backslash sequence
// is kept as written.
func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	body := s[1 : len(s)-1]
	quote := s[0]
	var out []byte
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) {
			next := body[i+1]
			if next == quote || next == '\\' {
				out = append(out, next)
				i++
				continue
			}
		}
		out = append(out, c)
	}
	return string(out)
}
